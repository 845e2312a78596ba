package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/geom"
)

// Chain returns the transitive closure of grab relations reachable from
// start, following both the grabbed reference and the grabbed-by backlinks.
// Entities without a Grab component terminate the walk; the result always
// contains start.
func Chain(start ecs.Entity, grabMap *ecs.Map1[components.Grab]) []ecs.Entity {
	visited := map[ecs.Entity]bool{start: true}
	chain := []ecs.Entity{start}

	for i := 0; i < len(chain); i++ {
		g := grabMap.Get(chain[i])
		if g == nil {
			continue
		}
		if g.HasGrabbed && !visited[g.Grabbed] {
			visited[g.Grabbed] = true
			chain = append(chain, g.Grabbed)
		}
		for _, e := range g.GrabbedBy {
			if !visited[e] {
				visited[e] = true
				chain = append(chain, e)
			}
		}
	}
	return chain
}

// ChainState is the rigid-body summary of a grab chain for one tick.
type ChainState struct {
	TotalMass float64
	CenterX   float64
	CenterY   float64

	// Forward acceleration of the chain in the world frame.
	Accel      float64
	AccelAngle float64

	RotAccel float64
}

// mass of an entity is its area.
func mass(size float64) float64 { return size * size }

// ComputeChainState aggregates mass, center of mass and effective
// accelerations over a chain. The center of mass is accumulated in the
// frame of the first member so a chain spanning the map seam stays
// coherent.
func ComputeChainState(chain []ecs.Entity,
	posMap *ecs.Map1[components.Position],
	bodyMap *ecs.Map1[components.Body],
	kinMap *ecs.Map1[components.Kinematics],
	rotMap *ecs.Map1[components.Rotation],
	w, h float64) ChainState {

	var st ChainState
	if len(chain) == 0 {
		return st
	}

	ref := posMap.Get(chain[0])
	if ref == nil {
		return st
	}

	var comX, comY float64
	var accX, accY float64
	for _, e := range chain {
		pos := posMap.Get(e)
		body := bodyMap.Get(e)
		kin := kinMap.Get(e)
		rot := rotMap.Get(e)
		if pos == nil || body == nil || kin == nil || rot == nil {
			continue
		}

		m := mass(body.Size)
		st.TotalMass += m

		dx, dy := geom.ToroidalDelta(ref.X, ref.Y, pos.X, pos.Y, w, h)
		comX += dx * m
		comY += dy * m

		worldAngle := rot.Heading + kin.AccelerationAngle
		accX += m * kin.Acceleration * math.Cos(worldAngle)
		accY += m * kin.Acceleration * math.Sin(worldAngle)
	}
	if st.TotalMass == 0 {
		return st
	}

	comX /= st.TotalMass
	comY /= st.TotalMass
	st.CenterX = geom.Wrap(ref.X+comX, w)
	st.CenterY = geom.Wrap(ref.Y+comY, h)

	accX /= st.TotalMass
	accY /= st.TotalMass
	st.Accel = math.Hypot(accX, accY)
	st.AccelAngle = math.Atan2(accY, accX)

	var torque float64
	for _, e := range chain {
		pos := posMap.Get(e)
		body := bodyMap.Get(e)
		kin := kinMap.Get(e)
		rot := rotMap.Get(e)
		if pos == nil || body == nil || kin == nil || rot == nil {
			continue
		}

		dx, dy := geom.ToroidalDelta(st.CenterX, st.CenterY, pos.X, pos.Y, w, h)
		ccDist := math.Hypot(dx, dy)
		ccAngle := math.Atan2(dy, dx)

		forward := ccDist * kin.Acceleration *
			math.Sin(rot.Heading+kin.AccelerationAngle-ccAngle)
		torque += mass(body.Size) * (kin.RotationalAcceleration + forward)
	}
	st.RotAccel = torque / st.TotalMass

	return st
}

// ApplyChainState overwrites each member's effective accelerations so the
// whole chain moves as one rigid body this tick.
func ApplyChainState(chain []ecs.Entity, st ChainState,
	kinMap *ecs.Map1[components.Kinematics],
	rotMap *ecs.Map1[components.Rotation]) {

	for _, e := range chain {
		kin := kinMap.Get(e)
		rot := rotMap.Get(e)
		if kin == nil || rot == nil {
			continue
		}
		kin.Acceleration = st.Accel
		kin.AccelerationAngle = geom.NewOrientedAngle(st.AccelAngle - rot.Heading).Angle()
		kin.RotationalAcceleration = st.RotAccel
	}
}

// DetachGrabs unlinks a dying entity from its chain: grabbers lose their
// grabbed reference, the grabbed target loses the backlink. The chain
// bookkeeping of the survivors stays valid.
func DetachGrabs(e ecs.Entity, grabMap *ecs.Map1[components.Grab]) {
	g := grabMap.Get(e)
	if g == nil {
		return
	}

	if g.HasGrabbed {
		if target := grabMap.Get(g.Grabbed); target != nil {
			kept := target.GrabbedBy[:0]
			for _, by := range target.GrabbedBy {
				if by != e {
					kept = append(kept, by)
				}
			}
			target.GrabbedBy = kept
		}
		g.HasGrabbed = false
		g.Grabbing = false
	}

	for _, by := range g.GrabbedBy {
		if holder := grabMap.Get(by); holder != nil && holder.HasGrabbed && holder.Grabbed == e {
			holder.HasGrabbed = false
			holder.Grabbing = false
		}
	}
	g.GrabbedBy = g.GrabbedBy[:0]
}

// StartGrab links grabber to target and records the backlink.
func StartGrab(grabber, target ecs.Entity, grabMap *ecs.Map1[components.Grab]) {
	g := grabMap.Get(grabber)
	t := grabMap.Get(target)
	if g == nil || t == nil || g.HasGrabbed {
		return
	}
	g.Grabbed = target
	g.HasGrabbed = true
	g.Grabbing = true
	t.GrabbedBy = append(t.GrabbedBy, grabber)
}
