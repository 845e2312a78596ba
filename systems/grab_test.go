package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/evolution-simulator/evosim/components"
)

type grabWorld struct {
	world   *ecs.World
	mapper  *ecs.Map5[components.Position, components.Rotation, components.Body, components.Kinematics, components.Grab]
	posMap  *ecs.Map1[components.Position]
	rotMap  *ecs.Map1[components.Rotation]
	bodyMap *ecs.Map1[components.Body]
	kinMap  *ecs.Map1[components.Kinematics]
	grabMap *ecs.Map1[components.Grab]
}

func newGrabWorld() *grabWorld {
	world := ecs.NewWorld()
	return &grabWorld{
		world: world,
		mapper: ecs.NewMap5[components.Position, components.Rotation, components.Body,
			components.Kinematics, components.Grab](world),
		posMap:  ecs.NewMap1[components.Position](world),
		rotMap:  ecs.NewMap1[components.Rotation](world),
		bodyMap: ecs.NewMap1[components.Body](world),
		kinMap:  ecs.NewMap1[components.Kinematics](world),
		grabMap: ecs.NewMap1[components.Grab](world),
	}
}

func (w *grabWorld) spawn(x, y, size float64) ecs.Entity {
	pos := components.Position{X: x, Y: y}
	rot := components.Rotation{}
	body := components.Body{Size: size}
	kin := components.Kinematics{}
	grab := components.Grab{}
	return w.mapper.NewEntity(&pos, &rot, &body, &kin, &grab)
}

func TestChainTransitiveClosure(t *testing.T) {
	w := newGrabWorld()
	a := w.spawn(10, 10, 2)
	b := w.spawn(12, 10, 2)
	c := w.spawn(14, 10, 2)

	StartGrab(a, b, w.grabMap)
	StartGrab(c, b, w.grabMap)

	chain := Chain(a, w.grabMap)
	if len(chain) != 3 {
		t.Fatalf("chain from a has %d members, want 3", len(chain))
	}

	// The closure is the same from any member.
	if got := Chain(c, w.grabMap); len(got) != 3 {
		t.Errorf("chain from c has %d members, want 3", len(got))
	}
}

func TestChainStateMassAndCenter(t *testing.T) {
	w := newGrabWorld()
	a := w.spawn(10, 50, 2)
	b := w.spawn(14, 50, 2)
	StartGrab(a, b, w.grabMap)

	chain := Chain(a, w.grabMap)
	st := ComputeChainState(chain, w.posMap, w.bodyMap, w.kinMap, w.rotMap, 100, 100)

	if math.Abs(st.TotalMass-8) > 1e-9 {
		t.Errorf("total mass = %v, want 2^2+2^2 = 8", st.TotalMass)
	}
	if math.Abs(st.CenterX-12) > 1e-9 || math.Abs(st.CenterY-50) > 1e-9 {
		t.Errorf("center of mass = (%v,%v), want (12,50)", st.CenterX, st.CenterY)
	}
}

func TestChainStateAcrossSeam(t *testing.T) {
	w := newGrabWorld()
	a := w.spawn(99, 50, 2)
	b := w.spawn(1, 50, 2)
	StartGrab(a, b, w.grabMap)

	chain := Chain(a, w.grabMap)
	st := ComputeChainState(chain, w.posMap, w.bodyMap, w.kinMap, w.rotMap, 100, 100)

	// Center of mass sits on the seam, not mid-map.
	onSeam := st.CenterX < 1 || st.CenterX > 99
	if !onSeam {
		t.Errorf("seam-spanning chain center = %v, want near 0/100", st.CenterX)
	}
}

func TestApplyChainStateUniform(t *testing.T) {
	w := newGrabWorld()
	a := w.spawn(10, 50, 2)
	b := w.spawn(14, 50, 3)
	StartGrab(a, b, w.grabMap)

	if kin := w.kinMap.Get(a); kin != nil {
		kin.Acceleration = 6
		kin.AccelerationAngle = 0
	}

	chain := Chain(a, w.grabMap)
	st := ComputeChainState(chain, w.posMap, w.bodyMap, w.kinMap, w.rotMap, 100, 100)
	ApplyChainState(chain, st, w.kinMap, w.rotMap)

	ka := w.kinMap.Get(a)
	kb := w.kinMap.Get(b)
	if ka.Acceleration != kb.Acceleration {
		t.Errorf("chain members have different accelerations: %v vs %v",
			ka.Acceleration, kb.Acceleration)
	}
	if ka.Acceleration <= 0 {
		t.Error("chain acceleration lost")
	}
}

func TestDetachGrabsOnDeath(t *testing.T) {
	w := newGrabWorld()
	a := w.spawn(10, 10, 2)
	b := w.spawn(12, 10, 2)
	c := w.spawn(14, 10, 2)
	StartGrab(a, b, w.grabMap)
	StartGrab(b, c, w.grabMap)

	// b dies; a and c must not reference it afterwards.
	DetachGrabs(b, w.grabMap)

	if ga := w.grabMap.Get(a); ga.HasGrabbed {
		t.Error("grabber still holds dead entity")
	}
	gc := w.grabMap.Get(c)
	for _, by := range gc.GrabbedBy {
		if by == b {
			t.Error("dead entity still registered in grabbed-by")
		}
	}

	if chain := Chain(a, w.grabMap); len(chain) != 1 {
		t.Errorf("chain from a has %d members after detach, want 1", len(chain))
	}
}
