package components

import (
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
)

// GestatingEgg is the offspring a pregnant female carries before laying it.
type GestatingEgg struct {
	Genome         *neat.Genome
	Mutable        mutable.Mutable
	Generation     int
	Age            float64
	IncubationTime float64
}

// Egg is the component of a laid egg entity. While incubating its size
// scales with age/incubation; a completed egg hatches into a creature.
type Egg struct {
	GestatingEgg
	Health           float64
	NutritionalValue float64
}

// Digestion is the stomach state of a creature.
type Digestion struct {
	StomachCapacity          float64
	StomachFullness          float64
	StomachAcid              float64
	PotentialEnergyInStomach float64
	EatingCooldown           float64
	BiteStrength             float64
	WantsToBite              bool
}

// MaleSystem is the male half of the reproduction state machine.
type MaleSystem struct {
	ReadyToReproduceAt float64
}

// FemaleSystem is the female half. Egg is nil unless pregnant.
type FemaleSystem struct {
	ReadyToReproduceAt float64
	Egg                *GestatingEgg
	PregnancyHardship  float64
}

// Vision is the per-tick sensory snapshot of a creature's cone query.
// When no target of a kind is visible the distance falls back to the vision
// radius and the size to -1.
type Vision struct {
	Radius float64
	Angle  float64

	DistancePlant    float64
	OrientationPlant float64
	PlantSize        float64

	DistanceMeat    float64
	OrientationMeat float64
	MeatSize        float64

	// Extra targets collected for active vision modules, flattened as
	// (distance, orientation, size) triples in module order.
	ModuleInputs []float64
}

// PheromoneSense is the creature-side pheromone state: which channels the
// genome's modules activate, the detected densities and the emission drive
// coming out of the brain.
type PheromoneSense struct {
	Channels  [16]bool
	Densities [16]float64
	Emissions [16]float64
}

// Creature is the aggregate record of a live creature. The entity also
// carries Position, Rotation, Body, Meta, Kinematics and Grab components;
// this component owns everything creature-specific.
type Creature struct {
	Genome  *neat.Genome
	Mutable mutable.Mutable
	Brain   *neat.FeedForward

	// NeuronData is the reusable input buffer fed to the brain.
	NeuronData []float64

	Energy     float64
	MaxEnergy  float64
	Health     float64
	Age        float64
	Generation int

	MaturityAge          float64
	ReproductionCooldown float64
	WaitingToReproduce   bool
	MatingDesire         bool
	OffspringNumber      int

	Digestion  Digestion
	Male       MaleSystem
	Female     FemaleSystem
	Vision     Vision
	Pheromones PheromoneSense
}
