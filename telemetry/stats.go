// Package telemetry collects periodic aggregate statistics of the
// population and writes them to structured logs, CSV and JSON.
package telemetry

import (
	"encoding/json"
	"log/slog"
	"os"

	"gonum.org/v1/gonum/stat"
)

// Sample is one aggregate snapshot of the population.
type Sample struct {
	WorldTime     float64 `csv:"world_time" json:"world_time"`
	CreatureCount int     `csv:"creatures" json:"creatures"`
	MeanSize      float64 `csv:"mean_size" json:"mean_size"`
	MeanEnergy    float64 `csv:"mean_energy" json:"mean_energy"`
	MeanVelocity  float64 `csv:"mean_velocity" json:"mean_velocity"`
	MeanDiet      float64 `csv:"mean_diet" json:"mean_diet"`
	DietStd       float64 `csv:"diet_std" json:"diet_std"`
	MeanOffspring float64 `csv:"mean_offspring" json:"mean_offspring"`
}

// LogValue implements slog.LogValuer for structured logging.
func (s Sample) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("world_time", s.WorldTime),
		slog.Int("creatures", s.CreatureCount),
		slog.Float64("mean_size", s.MeanSize),
		slog.Float64("mean_energy", s.MeanEnergy),
		slog.Float64("mean_velocity", s.MeanVelocity),
		slog.Float64("mean_diet", s.MeanDiet),
		slog.Float64("diet_std", s.DietStd),
		slog.Float64("mean_offspring", s.MeanOffspring),
	)
}

// Series accumulates samples on a fixed world-time cadence.
type Series struct {
	Interval float64
	Samples  []Sample

	lastRecorded float64
}

// NewSeries creates a series sampling once per second of world time.
func NewSeries() *Series {
	return &Series{Interval: 1.0}
}

// Due reports whether the cadence has elapsed since the last sample.
func (s *Series) Due(worldTime float64) bool {
	return worldTime-s.lastRecorded >= s.Interval
}

// Record appends an aggregate sample built from the per-creature metric
// slices.
func (s *Series) Record(worldTime float64, sizes, energies, velocities, diets, offspring []float64) {
	s.lastRecorded = worldTime

	sample := Sample{
		WorldTime:     worldTime,
		CreatureCount: len(sizes),
		MeanSize:      mean(sizes),
		MeanEnergy:    mean(energies),
		MeanVelocity:  mean(velocities),
		MeanDiet:      mean(diets),
		MeanOffspring: mean(offspring),
	}
	if len(diets) > 1 {
		sample.DietStd = stat.StdDev(diets, nil)
	}

	s.Samples = append(s.Samples, sample)
}

// Last returns the most recent sample, or false when none was recorded.
func (s *Series) Last() (Sample, bool) {
	if len(s.Samples) == 0 {
		return Sample{}, false
	}
	return s.Samples[len(s.Samples)-1], true
}

// WriteJSON writes the per-metric time series to a file.
func (s *Series) WriteJSON(path string) error {
	out := struct {
		CreatureCountOverTime     []int     `json:"creature_count_over_time"`
		CreatureSizeOverTime      []float64 `json:"creature_size_over_time"`
		CreatureEnergyOverTime    []float64 `json:"creature_energy_over_time"`
		CreatureVelocityOverTime  []float64 `json:"creature_velocity_over_time"`
		CreatureDietOverTime      []float64 `json:"creature_diet_over_time"`
		CreatureOffspringOverTime []float64 `json:"creature_offspring_over_time"`
	}{}

	for _, sample := range s.Samples {
		out.CreatureCountOverTime = append(out.CreatureCountOverTime, sample.CreatureCount)
		out.CreatureSizeOverTime = append(out.CreatureSizeOverTime, sample.MeanSize)
		out.CreatureEnergyOverTime = append(out.CreatureEnergyOverTime, sample.MeanEnergy)
		out.CreatureVelocityOverTime = append(out.CreatureVelocityOverTime, sample.MeanVelocity)
		out.CreatureDietOverTime = append(out.CreatureDietOverTime, sample.MeanDiet)
		out.CreatureOffspringOverTime = append(out.CreatureOffspringOverTime, sample.MeanOffspring)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// mean is stat.Mean with an empty-slice guard.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
