package neat

// Brain module IDs. A module is an optional sensory/actuator block a genome
// can evolve in and out of; activating one appends its input and output
// neurons to the genome.
const (
	ModuleVision    = 1 // an extra vision target: distance, orientation, size
	ModulePheromone = 2 // one pheromone channel: density in, emission out
)

// PheromoneChannels is the number of distinct pheromone channels a
// pheromone module can bind to.
const PheromoneChannels = 16

// BrainModule describes one activated module instance inside a genome.
// InputIDs and OutputIDs are the genome neuron IDs backing the module;
// FirstInputIndex / FirstOutputIndex record where the module's neurons start
// within the genome's input and output ordering.
type BrainModule struct {
	ModuleID         int   `json:"module_id"`
	Multiple         bool  `json:"multiple"`
	Type             int   `json:"type"`
	FirstInputIndex  int   `json:"first_input_index"`
	FirstOutputIndex int   `json:"first_output_index"`
	InputIDs         []int `json:"input_neuron_ids"`
	OutputIDs        []int `json:"output_neuron_ids"`
}

// AvailableModules lists the module templates a mutation can activate.
// Input/output lengths define how many neurons an instance appends.
var AvailableModules = []BrainModule{
	{ModuleID: ModuleVision, Multiple: true, InputIDs: make([]int, 3)},
	{ModuleID: ModulePheromone, Multiple: true, InputIDs: make([]int, 1), OutputIDs: make([]int, 1)},
}

// copyModule deep-copies a module instance.
func copyModule(m BrainModule) BrainModule {
	c := m
	c.InputIDs = append([]int(nil), m.InputIDs...)
	c.OutputIDs = append([]int(nil), m.OutputIDs...)
	return c
}
