package telemetry

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSeriesCadence(t *testing.T) {
	s := NewSeries()

	if s.Due(0.5) {
		t.Error("series due before the first interval")
	}
	if !s.Due(1.0) {
		t.Error("series not due at the interval")
	}

	s.Record(1.0, nil, nil, nil, nil, nil)
	if s.Due(1.5) {
		t.Error("series due again right after recording")
	}
	if !s.Due(2.0) {
		t.Error("series not due a full interval later")
	}
}

func TestRecordAggregates(t *testing.T) {
	s := NewSeries()
	s.Record(1.0,
		[]float64{2, 4},      // sizes
		[]float64{10, 30},    // energies
		[]float64{1, 3},      // velocities
		[]float64{0.2, 0.8},  // diets
		[]float64{0, 2},      // offspring
	)

	sample, ok := s.Last()
	if !ok {
		t.Fatal("no sample recorded")
	}
	if sample.CreatureCount != 2 {
		t.Errorf("count = %d, want 2", sample.CreatureCount)
	}
	if sample.MeanSize != 3 || sample.MeanEnergy != 20 || sample.MeanVelocity != 2 {
		t.Errorf("means = %v/%v/%v, want 3/20/2",
			sample.MeanSize, sample.MeanEnergy, sample.MeanVelocity)
	}
	if math.Abs(sample.MeanDiet-0.5) > 1e-12 {
		t.Errorf("mean diet = %v, want 0.5", sample.MeanDiet)
	}
	if sample.DietStd <= 0 {
		t.Errorf("diet std = %v, want > 0", sample.DietStd)
	}
}

func TestRecordEmptyPopulation(t *testing.T) {
	s := NewSeries()
	s.Record(1.0, nil, nil, nil, nil, nil)

	sample, _ := s.Last()
	if sample.CreatureCount != 0 {
		t.Errorf("count = %d, want 0", sample.CreatureCount)
	}
	if sample.MeanSize != 0 || math.IsNaN(sample.MeanEnergy) {
		t.Errorf("empty population produced mean %v / %v", sample.MeanSize, sample.MeanEnergy)
	}
}

func TestWriteJSON(t *testing.T) {
	s := NewSeries()
	s.Record(1.0, []float64{2}, []float64{10}, []float64{1}, []float64{0.5}, []float64{0})
	s.Record(2.0, []float64{3}, []float64{11}, []float64{2}, []float64{0.6}, []float64{1})

	path := filepath.Join(t.TempDir(), "statistics.json")
	if err := s.WriteJSON(path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	counts, ok := out["creature_count_over_time"].([]any)
	if !ok || len(counts) != 2 {
		t.Errorf("creature_count_over_time = %v, want 2 entries", out["creature_count_over_time"])
	}
}

func TestOutputManagerCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteSample(Sample{WorldTime: 1, CreatureCount: 5}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := om.WriteSample(Sample{WorldTime: 2, CreatureCount: 6}); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("stats.csv has %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "world_time") {
		t.Errorf("header missing column names: %q", lines[0])
	}
	if strings.Contains(lines[2], "world_time") {
		t.Error("second row repeated the header")
	}
}

func TestNilOutputManagerIsNoop(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager(\"\"): %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should disable output")
	}
	if err := om.WriteSample(Sample{}); err != nil {
		t.Errorf("nil WriteSample returned %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close returned %v", err)
	}
}
