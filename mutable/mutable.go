// Package mutable implements the fixed-schema trait vector carried by every
// creature alongside its neural genome: numeric traits with per-trait
// defaults, mutation spreads and clamps, plus crossover, the compatibility
// metric and the complexity-derived reproduction parameters.
package mutable

import (
	"math"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
)

// Mutable is the trait vector. Traits are orthogonal to the neural genome;
// every trait participates in mutation, crossover and compatibility.
type Mutable struct {
	EnergyDensity             float64 `json:"energy_density"`
	EnergyLoss                float64 `json:"energy_loss"`
	Integrity                 float64 `json:"integrity"`
	StrafingDifficulty        float64 `json:"strafing_difficulty"`
	MaxSize                   float64 `json:"max_size"`
	BabySize                  float64 `json:"baby_size"`
	MaxForce                  float64 `json:"max_force"`
	GrowthFactor              float64 `json:"growth_factor"`
	VisionFactor              float64 `json:"vision_factor"`
	GestationRatioToIncubation float64 `json:"gestation_ratio_to_incubation"`
	Color                     float64 `json:"color"`
	StomachCapacityFactor     float64 `json:"stomach_capacity_factor"`
	Diet                      float64 `json:"diet"`
	GeneticStrength           float64 `json:"genetic_strength"`
	EatingSpeed               float64 `json:"eating_speed"`
	PheromoneEmission         float64 `json:"pheromone_emission"`

	// Derived from the traits above via UpdateReproduction.
	MaturityAge          float64 `json:"maturity_age"`
	ReproductionCooldown float64 `json:"reproduction_cooldown"`
}

// Default returns a trait vector populated from the configured per-trait
// defaults.
func Default() Mutable {
	pc := config.Cfg().PhysicalConstraints
	m := Mutable{
		EnergyDensity:             pc.DEnergyDensity,
		EnergyLoss:                pc.DEnergyLoss,
		Integrity:                 pc.DIntegrity,
		StrafingDifficulty:        pc.DStrafingDifficulty,
		MaxSize:                   pc.DMaxSize,
		BabySize:                  pc.DBabySize,
		MaxForce:                  pc.DMaxForce,
		GrowthFactor:              pc.DGrowthFactor,
		VisionFactor:              pc.DVisionFactor,
		GestationRatioToIncubation: pc.DGestationRatioToIncubation,
		Color:                     0,
		StomachCapacityFactor:     pc.DStomachCapacity,
		Diet:                      pc.DDiet,
		GeneticStrength:           pc.DGeneticStrength,
		EatingSpeed:               pc.DEatingSpeed,
		PheromoneEmission:         pc.PheromoneEmissionRate,
	}
	m.UpdateReproduction()
	return m
}

// Complexity is a monotonically scaled combination of the traits, used to
// derive maturity age and reproduction cooldown.
func (m *Mutable) Complexity() float64 {
	return (m.EnergyDensity*10 + 5/m.EnergyLoss + m.Integrity*20 +
		5/(1+m.StrafingDifficulty) + m.MaxForce*2 + 5/m.GrowthFactor) *
		m.BabySize / 10
}

// UpdateReproduction recomputes maturity age and reproduction cooldown from
// the current traits. Call after any trait change.
func (m *Mutable) UpdateReproduction() {
	complexity := m.Complexity()
	multiplier := config.Cfg().Environment.MaturityAgeMultiplier
	m.MaturityAge = complexity * (1 + m.MaxSize - m.BabySize) * multiplier
	m.ReproductionCooldown = complexity * 0.5
}

// Mutate perturbs each trait independently with the configured mutation
// probability, adding Gaussian noise with the trait's spread and clamping to
// the trait's bounds.
func (m *Mutable) Mutate(r *rng.Rand) {
	pc := config.Cfg().PhysicalConstraints
	env := config.Cfg().Environment
	rate := pc.MutationRate

	perturb := func(v *float64, sigma, lo float64, hi float64) {
		if !r.Bernoulli(rate) {
			return
		}
		*v += r.Normal(0, sigma)
		if *v < lo {
			*v = lo
		}
		if hi > lo && *v > hi {
			*v = hi
		}
	}

	perturb(&m.EnergyDensity, pc.DEnergyDensity/20, 0, pc.MaxEnergyDensity)
	perturb(&m.EnergyLoss, pc.DEnergyLoss/20, pc.MinEnergyLoss, 0)
	perturb(&m.Integrity, pc.DIntegrity/20, 0, 0)
	perturb(&m.StrafingDifficulty, pc.DStrafingDifficulty/20, 0, 0)
	perturb(&m.MaxSize, pc.DMaxSize/20, env.MinCreatureSize, 0)
	perturb(&m.BabySize, pc.DBabySize/20, env.MinCreatureSize, m.MaxSize)
	perturb(&m.MaxForce, pc.DMaxForce/20, 0, 0)
	perturb(&m.GrowthFactor, pc.DGrowthFactor/20, 0.1, 0)
	perturb(&m.VisionFactor, pc.DVisionFactor/20, 0.1, 0)
	perturb(&m.GestationRatioToIncubation, pc.DGestationRatioToIncubation/20, 0, 1)
	perturb(&m.StomachCapacityFactor, pc.DStomachCapacity/20, 0.1, 0)
	perturb(&m.Diet, pc.DDiet/20, 0, 1)
	perturb(&m.GeneticStrength, pc.DGeneticStrength/20, 0.1, 1)
	perturb(&m.EatingSpeed, pc.DEatingSpeed/20, 0.1, 0)
	perturb(&m.PheromoneEmission, pc.PheromoneEmissionRate/20, 0, 1)

	// Color mutates on the hue circle with its own spread.
	if r.Bernoulli(rate) {
		m.Color += r.Normal(0, pc.ColorMutationFactor)
		m.Color -= math.Floor(m.Color)
	}

	// A shrinking max size drags the baby size along.
	if m.BabySize > m.MaxSize {
		m.BabySize = m.MaxSize
	}

	m.UpdateReproduction()
}

// Crossover returns the weighted average of two trait vectors favoring the
// dominant parent: (2*dominant + recessive) / 3 per trait.
func Crossover(dominant, recessive *Mutable) Mutable {
	mix := func(d, r float64) float64 { return d + (r-d)/3 }

	child := Mutable{
		EnergyDensity:             mix(dominant.EnergyDensity, recessive.EnergyDensity),
		EnergyLoss:                mix(dominant.EnergyLoss, recessive.EnergyLoss),
		Integrity:                 mix(dominant.Integrity, recessive.Integrity),
		StrafingDifficulty:        mix(dominant.StrafingDifficulty, recessive.StrafingDifficulty),
		MaxSize:                   mix(dominant.MaxSize, recessive.MaxSize),
		BabySize:                  mix(dominant.BabySize, recessive.BabySize),
		MaxForce:                  mix(dominant.MaxForce, recessive.MaxForce),
		GrowthFactor:              mix(dominant.GrowthFactor, recessive.GrowthFactor),
		VisionFactor:              mix(dominant.VisionFactor, recessive.VisionFactor),
		GestationRatioToIncubation: mix(dominant.GestationRatioToIncubation, recessive.GestationRatioToIncubation),
		Color:                     mixHue(dominant.Color, recessive.Color),
		StomachCapacityFactor:     mix(dominant.StomachCapacityFactor, recessive.StomachCapacityFactor),
		Diet:                      mix(dominant.Diet, recessive.Diet),
		GeneticStrength:           mix(dominant.GeneticStrength, recessive.GeneticStrength),
		EatingSpeed:               mix(dominant.EatingSpeed, recessive.EatingSpeed),
		PheromoneEmission:         mix(dominant.PheromoneEmission, recessive.PheromoneEmission),
	}
	child.UpdateReproduction()
	return child
}

// mixHue averages two hues along the shorter arc of the hue circle.
func mixHue(d, r float64) float64 {
	diff := r - d
	if diff > 0.5 {
		diff -= 1
	} else if diff < -0.5 {
		diff += 1
	}
	h := d + diff/3
	return h - math.Floor(h)
}

// Compatibility sums weighted absolute trait differences between two
// vectors. Identical vectors have distance zero.
func (m *Mutable) Compatibility(other *Mutable) float64 {
	colorDiff := math.Abs(m.Color - other.Color)
	colorDiff = math.Min(colorDiff, 1-colorDiff)

	d := math.Abs(m.EnergyDensity-other.EnergyDensity) +
		math.Abs(m.EnergyLoss-other.EnergyLoss) +
		math.Abs(m.Integrity-other.Integrity) +
		math.Abs(m.StrafingDifficulty-other.StrafingDifficulty) +
		math.Abs(m.MaxSize-other.MaxSize) +
		math.Abs(m.BabySize-other.BabySize) +
		math.Abs(m.MaxForce-other.MaxForce) +
		math.Abs(m.GrowthFactor-other.GrowthFactor) +
		math.Abs(m.VisionFactor-other.VisionFactor)/100 +
		math.Abs(m.GestationRatioToIncubation-other.GestationRatioToIncubation) +
		math.Abs(m.StomachCapacityFactor-other.StomachCapacityFactor) +
		math.Abs(m.Diet-other.Diet) +
		math.Abs(m.GeneticStrength-other.GeneticStrength) +
		math.Abs(m.EatingSpeed-other.EatingSpeed) +
		math.Abs(m.PheromoneEmission-other.PheromoneEmission)

	cfg := config.Cfg().Compatibility
	return cfg.MutablesCompatibility*d/15 + cfg.ColorCompatibility*colorDiff
}
