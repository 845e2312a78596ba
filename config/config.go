// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the complete simulation configuration tree.
// It is loaded once at startup and treated as immutable afterwards.
type Config struct {
	Neat                NeatConfig                `yaml:"neat"`
	Compatibility       CompatibilityConfig       `yaml:"compatibility"`
	Environment         EnvironmentConfig         `yaml:"environment"`
	Engine              EngineConfig              `yaml:"engine"`
	PhysicalConstraints PhysicalConstraintsConfig `yaml:"physical_constraints"`
	UI                  UIConfig                  `yaml:"ui"`
	Random              RandomConfig              `yaml:"random"`
}

// NeatConfig holds genome mutation parameters.
type NeatConfig struct {
	WeightMutationRate           float64 `yaml:"weight_mutation_rate"`
	StandardDeviationWeight      float64 `yaml:"standard_deviation_weight"`
	MaxWeight                    float64 `yaml:"max_weight"`
	MinWeight                    float64 `yaml:"min_weight"`
	AddNeuronMutationRate        float64 `yaml:"add_neuron_mutation_rate"`
	AddLinkMutationRate          float64 `yaml:"add_link_mutation_rate"`
	RemoveNeuronMutationRate     float64 `yaml:"remove_neuron_mutation_rate"`
	RemoveLinkMutationRate       float64 `yaml:"remove_link_mutation_rate"`
	ChangeWeightMutationRate     float64 `yaml:"change_weight_mutation_rate"`
	BiasMutationRate             float64 `yaml:"bias_mutation_rate"`
	MaxBias                      float64 `yaml:"max_bias"`
	MinBias                      float64 `yaml:"min_bias"`
	ChangeBiasMutationRate       float64 `yaml:"change_bias_mutation_rate"`
	AdjustmentProbability        float64 `yaml:"adjustment_probability"`
	ActivationFunctionMutationRate float64 `yaml:"activation_function_mutation_rate"`
	ModuleActivationMutationRate float64 `yaml:"module_activation_mutation_rate"`
	ModuleDisableMutationRate    float64 `yaml:"module_disable_mutation_rate"`
}

// CompatibilityConfig holds the weights of the species distance metric.
type CompatibilityConfig struct {
	WeightSharedNeurons      float64 `yaml:"weight_shared_neurons"`
	WeightSharedLinks        float64 `yaml:"weight_shared_links"`
	AverageWeightSharedLinks float64 `yaml:"average_weight_shared_links"`
	ColorCompatibility       float64 `yaml:"color_compatibility"`
	MutablesCompatibility    float64 `yaml:"mutables_compatibility"`
	CompatibilityThreshold   float64 `yaml:"compatibility_threshold"`
	CompatibilityDistance    float64 `yaml:"compatibility_distance"`
}

// EnvironmentConfig holds world-level parameters.
type EnvironmentConfig struct {
	MapWidth                    float64 `yaml:"map_width"`
	MapHeight                   float64 `yaml:"map_height"`
	CreatureDensity             float64 `yaml:"creature_density"`
	MaxFoodSize                 float64 `yaml:"max_food_size"`
	MaxCreatureSize             float64 `yaml:"max_creature_size"`
	Tolerance                   float64 `yaml:"tolerance"`
	DefaultFoodDensity          float64 `yaml:"default_food_density"`
	FoodSpawnRate               float64 `yaml:"food_spawn_rate"`
	EnergyToHealth              float64 `yaml:"energy_to_health"`
	HealthToEnergy              float64 `yaml:"health_to_energy"`
	DefaultCreatureDensity      float64 `yaml:"default_creature_density"`
	PlantNutritionalValue       float64 `yaml:"plant_nutritional_value"`
	MeatNutritionalValue        float64 `yaml:"meat_nutritional_value"`
	EggNutritionalValue         float64 `yaml:"egg_nutritional_value"`
	EggIncubationTimeMultiplier float64 `yaml:"egg_incubation_time_multiplier"`
	PlantProportion             float64 `yaml:"plant_proportion"`
	RotFactor                   float64 `yaml:"rot_factor"`
	GridCellSize                float64 `yaml:"grid_cell_size"`
	MinCreatureSize             float64 `yaml:"min_creature_size"`
	ReproductionThreshold       float64 `yaml:"reproduction_threshold"`
	ReproductionCooldown        float64 `yaml:"reproduction_cooldown"`
	InputNeurons                int     `yaml:"input_neurons"`
	OutputNeurons               int     `yaml:"output_neurons"`
	MaxNutritionalValue         float64 `yaml:"max_nutritional_value"`
	DefaultLifespan             float64 `yaml:"default_lifespan"`
	PhotosynthesisFactor        float64 `yaml:"photosynthesis_factor"`
	FrictionalCoefficient       float64 `yaml:"frictional_coefficient"`
	MaturityAgeMultiplier       float64 `yaml:"maturity_age_multiplier"`
	MaleReproductionCost        float64 `yaml:"male_reproduction_cost"`
	PregnancyHardshipModifier   float64 `yaml:"pregnancy_hardship_modifier"`
	SurfaceDimension            int     `yaml:"surface_dimension"`
	VolumeDimension             int     `yaml:"volume_dimension"`
	MovementEnergy              float64 `yaml:"movement_energy"`
	HeatEnergy                  float64 `yaml:"heat_energy"`
	NoiseFactor                 float64 `yaml:"noise_factor"`
	NoiseScale                  float64 `yaml:"noise_scale"`
}

// EngineConfig holds fixed-step loop parameters.
type EngineConfig struct {
	FixedUpdateInterval   float64 `yaml:"fixed_update_interval"`
	EPS                   float64 `yaml:"eps"`
	MaxCellsToFindFood    int     `yaml:"max_cells_to_find_food"`
	MaxFoodDensityColored float64 `yaml:"max_food_density_colored"`
}

// PhysicalConstraintsConfig holds the per-trait defaults and bounds of the
// mutable trait vector, plus the creature-physiology constants derived from
// them.
type PhysicalConstraintsConfig struct {
	MutationRate                 float64 `yaml:"mutation_rate"`
	MaxEnergyDensity             float64 `yaml:"max_energy_density"`
	MinEnergyLoss                float64 `yaml:"min_energy_loss"`
	DEnergyDensity               float64 `yaml:"d_energy_density"`
	DEnergyLoss                  float64 `yaml:"d_energy_loss"`
	DIntegrity                   float64 `yaml:"d_integrity"`
	DStrafingDifficulty          float64 `yaml:"d_strafing_difficulty"`
	DMaxSize                     float64 `yaml:"d_max_size"`
	DBabySize                    float64 `yaml:"d_baby_size"`
	DMaxForce                    float64 `yaml:"d_max_force"`
	DGrowthFactor                float64 `yaml:"d_growth_factor"`
	DVisionFactor                float64 `yaml:"d_vision_factor"`
	DGestationRatioToIncubation  float64 `yaml:"d_gestation_ratio_to_incubation"`
	VisionRadius                 float64 `yaml:"vision_radius"`
	VisionAngle                  float64 `yaml:"vision_angle"`
	VisionARRatio                float64 `yaml:"vision_ar_ratio"`
	ColorMutationFactor          float64 `yaml:"color_mutation_factor"`
	DStomachCapacity             float64 `yaml:"d_stomach_capacity"`
	DDiet                        float64 `yaml:"d_diet"`
	DEatingCooldown              float64 `yaml:"d_eating_cooldown"`
	DEatingSpeed                 float64 `yaml:"d_eating_speed"`
	DDigestionRate               float64 `yaml:"d_digestion_rate"`
	DGeneticStrength             float64 `yaml:"d_genetic_strength"`
	DAcidToEnergy                float64 `yaml:"d_acid_to_energy"`
	MaxReproducingAge            float64 `yaml:"max_reproducing_age"`
	MatingDesireMaxProb          float64 `yaml:"mating_desire_max_prob"`
	MatingDesireFactor           float64 `yaml:"mating_desire_factor"`
	PregnancyEnergyFactor        float64 `yaml:"pregnancy_energy_factor"`
	PregnancyVelocityFactor      float64 `yaml:"pregnancy_velocity_factor"`
	AfterBirthVelocityFactor     float64 `yaml:"after_birth_velocity_factor"`
	DBiteDamageRatio             float64 `yaml:"d_bite_damage_ratio"`
	DBiteEnergyConsumptionRatio  float64 `yaml:"d_bite_energy_consumption_ratio"`
	DBiteNutritionalValue        float64 `yaml:"d_bite_nutritional_value"`
	DPheromoneEmission           float64 `yaml:"d_pheromone_emission"`
	PheromoneDetectionSensitivity float64 `yaml:"pheromone_detection_sensitivity"`
	PheromoneEmissionRate        float64 `yaml:"pheromone_emission_rate"`
}

// UIConfig holds display parameters. The core ignores these; they are kept
// so a full configuration file round-trips unchanged.
type UIConfig struct {
	DraggingSensitivity float64 `yaml:"dragging_sensitivity"`
	MinZoom             float64 `yaml:"min_zoom"`
	MaxZoom             float64 `yaml:"max_zoom"`
}

// RandomConfig holds seeding parameters.
type RandomConfig struct {
	Seed      int64 `yaml:"seed"`
	InputSeed bool  `yaml:"input_seed"`
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if
// path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	return cfg, nil
}

// WriteYAML saves the configuration to a file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
