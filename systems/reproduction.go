package systems

import (
	"errors"
	"math"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
	"github.com/evolution-simulator/evosim/rng"
)

// Errors of the reproduction/egg state machine. A manager must never reach
// these states; any occurrence is a bug.
var (
	ErrNotPregnant  = errors.New("systems: female has no gestating egg")
	ErrHatchDead    = errors.New("systems: cannot hatch a dead egg")
	ErrHatchPremature = errors.New("systems: cannot hatch an egg that has not incubated")
)

// InitReproduction seeds the reproduction state of a fresh creature from
// its mutable traits.
func InitReproduction(cr *components.Creature) {
	cr.MaturityAge = cr.Mutable.MaturityAge
	cr.ReproductionCooldown = cr.Mutable.ReproductionCooldown
	cr.Male.ReadyToReproduceAt = cr.MaturityAge
	cr.Female.ReadyToReproduceAt = cr.MaturityAge
	cr.Female.PregnancyHardship = config.Cfg().Environment.PregnancyHardshipModifier
}

// UpdateMatingDesire rolls the per-tick desire probability for a mature,
// well-fed creature: min(max_prob, factor * energy/max_energy).
func UpdateMatingDesire(cr *components.Creature, r *rng.Rand) {
	pc := config.Cfg().PhysicalConstraints
	if cr.Age < cr.MaturityAge || cr.Age > pc.MaxReproducingAge || cr.MaxEnergy <= 0 {
		cr.MatingDesire = false
		return
	}
	p := math.Min(pc.MatingDesireMaxProb, pc.MatingDesireFactor*cr.Energy/cr.MaxEnergy)
	cr.MatingDesire = r.Bernoulli(p)
}

// reproductionEnergyMet checks the shared energy gate.
func reproductionEnergyMet(cr *components.Creature) bool {
	threshold := config.Cfg().Environment.ReproductionThreshold
	return cr.Energy > threshold*cr.MaxEnergy
}

// MaleReadyToProcreate reports whether the creature can act as a father.
func MaleReadyToProcreate(cr *components.Creature) bool {
	return cr.Age >= cr.Male.ReadyToReproduceAt && reproductionEnergyMet(cr)
}

// FemaleReadyToProcreate reports whether the creature can act as a mother.
func FemaleReadyToProcreate(cr *components.Creature) bool {
	return cr.Age >= cr.Female.ReadyToReproduceAt &&
		cr.Female.Egg == nil &&
		reproductionEnergyMet(cr)
}

// Compatible reports whether two creatures are genetically close enough to
// mate: the sum of genome and mutable distances stays under the threshold.
func Compatible(a, b *components.Creature) bool {
	threshold := config.Cfg().Compatibility.CompatibilityThreshold
	distance := a.Genome.Compatibility(b.Genome) + a.Mutable.Compatibility(&b.Mutable)
	return distance < threshold
}

// MaleAfterMate pays the father's energy cost and restarts his cooldown.
func MaleAfterMate(cr *components.Creature, size float64) {
	cost := config.Cfg().Environment.MaleReproductionCost
	cr.Energy -= cost * cr.Mutable.EnergyDensity * size * size
	cr.Male.ReadyToReproduceAt = cr.Age + cr.ReproductionCooldown
	cr.OffspringNumber++
}

// MateWithMale conceives: the higher-energy parent dominates crossover of
// both the genome and the trait vector, the offspring is mutated twice, and
// the mother starts gestating the egg.
func MateWithMale(father, mother *components.Creature, r *rng.Rand) error {
	var domG, recG *neat.Genome
	var domM, recM *mutable.Mutable
	if father.Energy > mother.Energy {
		domG, recG = father.Genome, mother.Genome
		domM, recM = &father.Mutable, &mother.Mutable
	} else {
		domG, recG = mother.Genome, father.Genome
		domM, recM = &mother.Mutable, &father.Mutable
	}
	generation := max(father.Generation, mother.Generation)

	genome, err := neat.Crossover(domG, recG, r)
	if err != nil {
		return err
	}
	traits := mutable.Crossover(domM, recM)

	genome.Mutate(r)
	genome.Mutate(r)
	traits.Mutate(r)
	traits.Mutate(r)

	incubation := traits.Complexity() *
		config.Cfg().Environment.EggIncubationTimeMultiplier / 10

	mother.Female.Egg = &components.GestatingEgg{
		Genome:         genome,
		Mutable:        traits,
		Generation:     generation + 1,
		IncubationTime: incubation,
	}
	return nil
}

// UpdateGestation advances a pregnancy. The egg matures at the gestation
// ratio; the mother's velocity is damped while pregnant.
func UpdateGestation(cr *components.Creature, kin *components.Kinematics, dt float64) {
	egg := cr.Female.Egg
	if egg == nil {
		return
	}
	egg.Age += dt * cr.Mutable.GestationRatioToIncubation
	kin.Velocity *= config.Cfg().PhysicalConstraints.PregnancyVelocityFactor
}

// CanBirth reports whether the gestating egg is ready to be laid.
func CanBirth(cr *components.Creature) bool {
	egg := cr.Female.Egg
	if egg == nil {
		return false
	}
	return egg.Age >= egg.IncubationTime*cr.Mutable.GestationRatioToIncubation
}

// GiveBirth detaches the gestating egg for laying as a world entity. The
// external egg incubates for the remainder not covered by gestation; the
// mother restarts her cooldown and gets the after-birth speed boost.
func GiveBirth(cr *components.Creature, kin *components.Kinematics) (components.GestatingEgg, error) {
	if cr.Female.Egg == nil {
		return components.GestatingEgg{}, ErrNotPregnant
	}

	egg := *cr.Female.Egg
	egg.IncubationTime = (1 - cr.Mutable.GestationRatioToIncubation) * egg.IncubationTime
	egg.Age = 0

	cr.Female.Egg = nil
	cr.Female.ReadyToReproduceAt = cr.Age + cr.ReproductionCooldown
	cr.OffspringNumber++
	kin.Velocity *= config.Cfg().PhysicalConstraints.AfterBirthVelocityFactor

	return egg, nil
}

// HatchEgg validates the egg's hatching preconditions. Callers spawn the
// creature from the embedded genome and traits on success.
func HatchEgg(egg *components.Egg, state components.State) error {
	if state == components.Dead {
		return ErrHatchDead
	}
	if egg.Age < egg.IncubationTime {
		return ErrHatchPremature
	}
	return nil
}

// EggSize is the laid egg's current radius: it grows linearly with
// incubation progress, from half the baby size to 1.5 times the baby size.
func EggSize(egg *components.Egg) float64 {
	progress := 0.0
	if egg.IncubationTime > 0 {
		progress = egg.Age / egg.IncubationTime
	}
	return (0.5 + progress) * egg.Mutable.BabySize
}
