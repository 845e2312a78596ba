package systems

import (
	"math"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/geom"
)

// EffectiveAcceleration decomposes the nominal acceleration into components
// parallel and perpendicular to the orientation; strafing (the
// perpendicular part) is damped by 1/(1+strafing_difficulty). Both
// components are expressed in the orientation-relative frame.
func EffectiveAcceleration(k *components.Kinematics) (par, perp float64) {
	par = k.Acceleration * math.Cos(k.AccelerationAngle)
	perp = k.Acceleration * math.Sin(k.AccelerationAngle) / (1 + k.StrafingDifficulty)
	return par, perp
}

// ForwardFriction is the linear friction magnitude, proportional to speed.
func ForwardFriction(k *components.Kinematics) float64 {
	return k.Friction * k.Velocity
}

// RotationalFriction is the angular friction magnitude.
func RotationalFriction(k *components.Kinematics) float64 {
	return k.Friction * math.Abs(k.RotationalVelocity)
}

// UpdateVelocities integrates the effective accelerations over dt and
// applies friction. Friction acts against the current velocity direction
// and may fully cancel small velocities but never reverses their sign.
func UpdateVelocities(k *components.Kinematics, dt float64) {
	accPar, accPerp := EffectiveAcceleration(k)

	vx := k.Velocity * math.Cos(k.VelocityAngle)
	vy := k.Velocity * math.Sin(k.VelocityAngle)
	vx += accPar * dt
	vy += accPerp * dt

	speed := math.Hypot(vx, vy)
	friction := ForwardFriction(k) * dt
	if friction >= speed {
		k.Velocity = 0
	} else {
		scale := (speed - friction) / speed
		k.Velocity = speed * scale
		k.VelocityAngle = geom.NewOrientedAngle(math.Atan2(vy, vx)).Angle()
	}

	omega := k.RotationalVelocity + k.RotationalAcceleration*dt
	rotFriction := RotationalFriction(k) * dt
	if rotFriction >= math.Abs(omega) {
		k.RotationalVelocity = 0
	} else {
		k.RotationalVelocity = omega - math.Copysign(rotFriction, omega)
	}
}

// Rotate advances the orientation by the rotational velocity.
func Rotate(k *components.Kinematics, rot *components.Rotation, dt float64) {
	rot.Heading = geom.NewOrientedAngle(rot.Heading + k.RotationalVelocity*dt).Angle()
}

// Move advances the position along the velocity vector and wraps it into
// the map.
func Move(k *components.Kinematics, rot *components.Rotation, pos *components.Position, dt, w, h float64) {
	angle := k.VelocityAngle + rot.Heading
	pos.X = geom.Wrap(pos.X+k.Velocity*math.Cos(angle)*dt, w)
	pos.Y = geom.Wrap(pos.Y+k.Velocity*math.Sin(angle)*dt, h)
}

// Integrate runs one full physics step: velocities, rotation, position.
func Integrate(k *components.Kinematics, rot *components.Rotation, pos *components.Position, dt, w, h float64) {
	UpdateVelocities(k, dt)
	Rotate(k, rot, dt)
	Move(k, rot, pos, dt, w, h)
}
