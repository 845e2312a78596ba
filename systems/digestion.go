package systems

import (
	"math"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
)

// MaxHealth is the health ceiling of a creature: integrity scales with the
// body area.
func MaxHealth(cr *components.Creature, size float64) float64 {
	return cr.Mutable.Integrity * size * size
}

// SetHealth writes health, clamped to the integrity ceiling.
func SetHealth(cr *components.Creature, size, health float64) {
	cr.Health = math.Min(health, MaxHealth(cr, size))
}

// SetEnergy writes energy, clamped to the current max energy.
func SetEnergy(cr *components.Creature, energy float64) {
	cr.Energy = math.Min(energy, cr.MaxEnergy)
}

// UpdateMaxEnergy recomputes the energy ceiling: it grows with body area
// and decays with age.
func UpdateMaxEnergy(cr *components.Creature, size float64) {
	cr.MaxEnergy = cr.Mutable.EnergyDensity * size * size * math.Exp(-cr.Age/50)
}

// BalanceHealthEnergy moves value between the energy and health pools: an
// energy deficit drains health, surplus over the ceiling converts to
// health, and a well-fed creature slowly regenerates.
func BalanceHealthEnergy(cr *components.Creature, size float64) {
	if cr.Energy < 0 {
		SetHealth(cr, size, cr.Health+cr.Energy-0.1)
		cr.Energy = 0.1
	} else if cr.Energy > cr.MaxEnergy {
		SetHealth(cr, size, cr.Health+cr.Energy-cr.MaxEnergy)
		cr.Energy = cr.MaxEnergy
	}

	if cr.Health < cr.Energy && cr.Energy >= 0.1*cr.MaxEnergy {
		cr.Energy -= 0.1
		SetHealth(cr, size, cr.Health+0.1)
	}
}

// UpdateEnergy spends movement and heat energy over dt, rebalances the
// pools, and reports whether the creature is still alive. A pregnant
// female pays her maintenance scaled by the pregnancy energy factor.
func UpdateEnergy(cr *components.Creature, kin *components.Kinematics, size, dt float64) bool {
	env := config.Cfg().Environment

	movement := (math.Abs(kin.Acceleration) + math.Abs(kin.RotationalAcceleration)) *
		size * dt * env.MovementEnergy
	heat := cr.Mutable.EnergyLoss * size * dt * env.HeatEnergy

	if cr.Female.Egg != nil {
		factor := config.Cfg().PhysicalConstraints.PregnancyEnergyFactor
		heat *= factor
		movement *= factor
	}

	cr.Energy -= movement + heat
	BalanceHealthEnergy(cr, size)

	return cr.Health > 0
}

// UpdateDigestionDerived refreshes the size-dependent digestion state.
func UpdateDigestionDerived(cr *components.Creature, size float64) {
	d := &cr.Digestion
	d.StomachCapacity = cr.Mutable.StomachCapacityFactor * size * size
	d.BiteStrength = cr.Mutable.GeneticStrength * size
	if d.StomachFullness > d.StomachCapacity {
		d.StomachFullness = d.StomachCapacity
	}
	if d.StomachAcid > d.StomachCapacity {
		d.StomachAcid = d.StomachCapacity
	}
}

// Bite moves mass from a food entity into the stomach. The bite area is
// bounded by bite strength and remaining stomach space; nutrition is scaled
// by diet (plants favor herbivores, meat favors carnivores). Returns true
// when the food was consumed entirely.
func Bite(cr *components.Creature, food *components.Food, foodBody *components.Body) bool {
	d := &cr.Digestion
	d.EatingCooldown = cr.Mutable.EatingSpeed

	availableSpace := math.Max(d.StomachCapacity-d.StomachFullness, 0)
	areaToEat := math.Min(math.Pi*d.BiteStrength*d.BiteStrength, availableSpace)
	areaToEat = math.Max(areaToEat, 0)
	foodToEat := math.Sqrt(areaToEat)

	var nutrition float64
	consumed := false

	if foodToEat >= foodBody.Size {
		nutrition = food.NutritionalValue * foodBody.Size
		d.StomachFullness += math.Pi * foodBody.Size * foodBody.Size
		foodBody.Size = 0
		consumed = true
	} else {
		initial := foodBody.Size
		foodBody.Size = math.Sqrt(math.Abs(initial*initial - foodToEat*foodToEat))
		d.StomachFullness += math.Pi * foodToEat * foodToEat
		nutrition = food.NutritionalValue * foodToEat
	}
	if d.StomachFullness > d.StomachCapacity {
		d.StomachFullness = d.StomachCapacity
	}

	switch food.Type {
	case components.FoodPlant:
		nutrition *= 2 * (1 - cr.Mutable.Diet)
	case components.FoodMeat:
		nutrition *= 2 * cr.Mutable.Diet
	}

	d.PotentialEnergyInStomach += nutrition
	return consumed
}

// Digest converts stomach contents to energy, limited by acid, fullness and
// the digestion rate.
func Digest(cr *components.Creature, size, dt float64) {
	d := &cr.Digestion
	eps := config.Cfg().Engine.EPS
	rate := config.Cfg().PhysicalConstraints.DDigestionRate

	quantity := math.Min(dt*rate, d.StomachAcid)
	quantity = math.Min(quantity, d.StomachFullness)
	if quantity < eps || d.StomachFullness < eps {
		return
	}

	avgNutrition := d.PotentialEnergyInStomach / d.StomachFullness

	SetEnergy(cr, cr.Energy+quantity*avgNutrition)
	if cr.Energy >= cr.MaxEnergy {
		BalanceHealthEnergy(cr, size)
	}

	d.StomachAcid = math.Max(d.StomachAcid-quantity, 0)
	d.PotentialEnergyInStomach = math.Max(d.PotentialEnergyInStomach-quantity*avgNutrition, 0)
	d.StomachFullness = math.Max(d.StomachFullness-quantity, 0)
}

// AddAcid tops up stomach acid, paying energy proportional to the amount
// actually added.
func AddAcid(cr *components.Creature, quantity float64) {
	d := &cr.Digestion
	initial := d.StomachAcid
	d.StomachAcid = math.Min(d.StomachCapacity, d.StomachAcid+quantity)
	cr.Energy -= (d.StomachAcid - initial) / config.Cfg().PhysicalConstraints.DAcidToEnergy
}

// Grow converts energy into body size through the growth factor, capped at
// the mutable max size.
func Grow(cr *components.Creature, body *components.Body, energy float64) {
	size := body.Size + energy*cr.Mutable.GrowthFactor
	if size > cr.Mutable.MaxSize {
		size = cr.Mutable.MaxSize
	}
	body.Size = size
	cr.Energy -= energy
}
