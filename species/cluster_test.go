package species

import (
	"testing"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
)

func TestMain(m *testing.M) {
	config.MustInit("")
	m.Run()
}

const testEpsilon = 0.5

// groupTemplates builds two templates whose mutual distance is well above
// testEpsilon: B carries its own link topology and strongly shifted traits.
func groupTemplates() (gA *neat.Genome, tA mutable.Mutable, gB *neat.Genome, tB mutable.Mutable) {
	gA = neat.NewGenome(4, 2)
	tA = mutable.Default()

	gB = gA.Copy()
	for i := 0; i < 4; i++ {
		in, _ := gB.InputNeuronID(i)
		out, _ := gB.OutputNeuronID(i % 2)
		gB.AddLink(neat.NewLink(in, out, 0.5+float64(i)*0.1))
	}
	tB = tA
	tB.MaxSize += 10
	tB.MaxForce += 10
	tB.EnergyDensity += 4
	tB.UpdateReproduction()
	return gA, tA, gB, tB
}

// twoGroups seeds 2*n points forming two dense groups of clones.
func twoGroups(n int) map[uint64]Point {
	gA, tA, gB, tB := groupTemplates()

	points := make(map[uint64]Point, 2*n)
	for i := 0; i < n; i++ {
		points[uint64(i)] = Point{Genome: gA.Copy(), Mutable: tA, Alive: true, Hue: 0.2}
		points[uint64(n+i)] = Point{Genome: gB.Copy(), Mutable: tB, Alive: true, Hue: 0.7}
	}
	return points
}

func TestDBSCANFindsTwoSpecies(t *testing.T) {
	c := NewCluster(testEpsilon, 10)
	c.Init(twoGroups(10))

	labels := c.Species()
	distinct := make(map[int]bool)
	for id, label := range labels {
		if label == Noise {
			t.Errorf("point %d labeled noise in a dense group", id)
		}
		distinct[label] = true
	}
	if len(distinct) != 2 {
		t.Fatalf("found %d species, want 2", len(distinct))
	}

	if labels[0] != labels[9] {
		t.Error("group A split across labels")
	}
	if labels[10] != labels[19] {
		t.Error("group B split across labels")
	}
	if labels[0] == labels[10] {
		t.Error("both groups merged into one label")
	}
}

func TestDBSCANSparsePointsAreNoise(t *testing.T) {
	c := NewCluster(testEpsilon, 10)

	gA, tA, _, _ := groupTemplates()
	points := make(map[uint64]Point)
	for i := 0; i < 3; i++ {
		points[uint64(i)] = Point{Genome: gA.Copy(), Mutable: tA, Alive: true}
	}
	c.Init(points)

	// Three clones are dense but below minPts.
	for id, label := range c.Species() {
		if label != Noise {
			t.Errorf("point %d in an undersized group got label %d, want noise", id, label)
		}
	}
}

func TestAddNewbornsJoinNearbyCore(t *testing.T) {
	c := NewCluster(testEpsilon, 10)
	groups := twoGroups(10)
	c.Init(groups)
	labelA := c.Species()[0]

	// A newborn cloned from group A joins A's species.
	c.AddNewborns(map[uint64]Point{
		1000: {Genome: groups[0].Genome.Copy(), Mutable: groups[0].Mutable, Alive: true, Hue: 0.2},
	})
	if got := c.Species()[1000]; got != labelA {
		t.Errorf("newborn label = %d, want %d", got, labelA)
	}

	// A newborn far from every core point becomes noise.
	gAlien := neat.NewGenome(4, 2)
	for i := 0; i < 4; i++ {
		in, _ := gAlien.InputNeuronID(i)
		out, _ := gAlien.OutputNeuronID((i + 1) % 2)
		gAlien.AddLink(neat.NewLink(in, out, -0.8))
	}
	tAlien := mutable.Default()
	tAlien.MaxSize += 40
	tAlien.UpdateReproduction()

	c.AddNewborns(map[uint64]Point{2000: {Genome: gAlien, Mutable: tAlien, Alive: true}})
	if got := c.Species()[2000]; got != Noise {
		t.Errorf("alien newborn label = %d, want noise", got)
	}
}

func TestSpeciesSizesCountAliveOnly(t *testing.T) {
	c := NewCluster(testEpsilon, 10)
	c.Init(twoGroups(10))

	sizes := c.SpeciesSizes()
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total != 20 {
		t.Fatalf("alive count = %d, want 20", total)
	}

	var all []uint64
	for id := uint64(0); id < 20; id++ {
		all = append(all, id)
	}
	c.UpdateDeadCreatures(all)

	if sizes := c.SpeciesSizes(); len(sizes) != 0 {
		t.Errorf("species sizes after extinction = %v, want empty", sizes)
	}
}

func TestSyncAliveMarksMissingDead(t *testing.T) {
	c := NewCluster(testEpsilon, 10)
	groups := twoGroups(10)
	c.Init(groups)

	// Only group A survives.
	survivors := make(map[uint64]Point)
	for id := uint64(0); id < 10; id++ {
		survivors[id] = groups[id]
	}
	c.SyncAlive(survivors)

	sizes := c.SpeciesSizes()
	total := 0
	for _, n := range sizes {
		total += n
	}
	if total != 10 {
		t.Errorf("alive count after sync = %d, want 10", total)
	}

	c.Recluster()
	if c.Species()[0] == Noise {
		t.Error("survivor lost its label after recluster")
	}
}

func TestSpeciesColorsFollowMembers(t *testing.T) {
	c := NewCluster(testEpsilon, 10)
	c.Init(twoGroups(10))

	colors := c.SpeciesColors()
	if len(colors) != 2 {
		t.Fatalf("color map has %d entries, want 2", len(colors))
	}

	labels := c.Species()
	wantHue := map[int]float64{labels[0]: 0.2, labels[10]: 0.7}
	for label, hue := range colors {
		if diff := hue - wantHue[label]; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("label %d hue = %v, want %v", label, hue, wantHue[label])
		}
	}
}
