package geom

import (
	"math"
	"testing"
)

func TestToroidalDistanceWrap(t *testing.T) {
	w, h := 100.0, 100.0
	eps := 1.0

	// Points near opposite corners are close through the wrap.
	d := ToroidalDistance(Point{0, 0}, Point{w - eps, h - eps}, w, h)
	want := math.Hypot(eps, eps)
	if math.Abs(d-want) > 1e-9 {
		t.Errorf("wrap distance = %v, want %v", d, want)
	}

	// Distance within the same image is plain Euclidean.
	d = ToroidalDistance(Point{10, 10}, Point{13, 14}, w, h)
	if math.Abs(d-5) > 1e-9 {
		t.Errorf("plain distance = %v, want 5", d)
	}
}

func TestWrap(t *testing.T) {
	cases := []struct {
		v, max, want float64
	}{
		{5, 10, 5},
		{15, 10, 5},
		{-3, 10, 7},
		{10, 10, 0},
		{-10, 10, 0},
	}
	for _, c := range cases {
		if got := Wrap(c.v, c.max); math.Abs(got-c.want) > 1e-12 {
			t.Errorf("Wrap(%v, %v) = %v, want %v", c.v, c.max, got, c.want)
		}
	}
}

func TestToroidalDelta(t *testing.T) {
	dx, dy := ToroidalDelta(99, 50, 1, 50, 100, 100)
	if dx != 2 || dy != 0 {
		t.Errorf("delta across seam = (%v,%v), want (2,0)", dx, dy)
	}

	dx, dy = ToroidalDelta(1, 1, 99, 99, 100, 100)
	if dx != -2 || dy != -2 {
		t.Errorf("delta across corner = (%v,%v), want (-2,-2)", dx, dy)
	}
}

func TestOrientedAngleNormalization(t *testing.T) {
	if got := NewOrientedAngle(3 * math.Pi).Angle(); got != -math.Pi {
		t.Errorf("OrientedAngle(3pi) = %v, want -pi", got)
	}
	if got := NewOrientedAngle(math.Pi).Angle(); got != -math.Pi {
		t.Errorf("OrientedAngle(pi) = %v, want -pi", got)
	}
	if got := NewOrientedAngle(-math.Pi / 2).Angle(); got != -math.Pi/2 {
		t.Errorf("OrientedAngle(-pi/2) = %v, want -pi/2", got)
	}

	sum := NewOrientedAngle(3).Add(NewOrientedAngle(3))
	if sum.Angle() < -math.Pi || sum.Angle() >= math.Pi {
		t.Errorf("sum %v not normalized", sum.Angle())
	}
}

func TestAngleDistanceToCone(t *testing.T) {
	left := NewOrientedAngle(-math.Pi / 4)
	right := NewOrientedAngle(math.Pi / 4)

	if d := NewOrientedAngle(0).AngleDistanceToCone(left, right); d != 0 {
		t.Errorf("inside cone distance = %v, want 0", d)
	}
	if d := NewOrientedAngle(math.Pi / 2).AngleDistanceToCone(left, right); math.Abs(d-math.Pi/4) > 1e-9 {
		t.Errorf("outside cone distance = %v, want pi/4", d)
	}

	// Cone spanning the wrap boundary.
	left = NewOrientedAngle(3 * math.Pi / 4)
	right = NewOrientedAngle(-3 * math.Pi / 4)
	if d := NewOrientedAngle(-math.Pi).AngleDistanceToCone(left, right); d != 0 {
		t.Errorf("wrap-spanning cone: distance at -pi = %v, want 0", d)
	}
	if d := NewOrientedAngle(0).AngleDistanceToCone(left, right); math.Abs(d-3*math.Pi/4) > 1e-9 {
		t.Errorf("wrap-spanning cone: distance at 0 = %v, want 3pi/4", d)
	}
}

func TestAngleBetweenUsesShortestWrap(t *testing.T) {
	// Straight through the seam: from x=99 the nearest image of x=1 is +2.
	a := AngleBetween(Point{99, 50}, Point{1, 50}, 100, 100)
	if math.Abs(a.Angle()) > 1e-9 {
		t.Errorf("angle through seam = %v, want 0", a.Angle())
	}
}

func TestCellPossiblyInConeNoFalseNegatives(t *testing.T) {
	w, h := 1000.0, 1000.0
	cellSize := 50.0
	center := Point{500, 500}
	radius := 200.0
	left := NewOrientedAngle(-math.Pi / 3)
	right := NewOrientedAngle(math.Pi / 3)

	// A cell whose interior certainly intersects the cone must pass.
	inside := Point{600, 500}
	if !CellPossiblyInCone(inside, cellSize, center, radius, left, right, 15, 1e-7, w, h) {
		t.Error("cell on the cone axis rejected")
	}

	// The cell containing the cone center always passes.
	if !CellPossiblyInCone(center, cellSize, center, radius, left, right, 15, 1e-7, w, h) {
		t.Error("center cell rejected")
	}

	// A far-away cell behind the cone must be rejected.
	behind := Point{100, 500}
	if CellPossiblyInCone(behind, cellSize, center, radius, left, right, 15, 1e-7, w, h) {
		t.Error("distant opposite cell accepted")
	}
}

func TestSupercoverLine(t *testing.T) {
	// Diagonal line covers both orthogonal cells at every step.
	line := SupercoverLine(0, 0, 2, 2)
	if len(line) != 5 {
		t.Fatalf("supercover of (0,0)-(2,2) has %d cells, want 5", len(line))
	}
	if line[0] != (Cell{0, 0}) || line[len(line)-1] != (Cell{2, 2}) {
		t.Errorf("endpoints wrong: %v", line)
	}
	for i := 1; i < len(line); i++ {
		dx := abs(line[i].X - line[i-1].X)
		dy := abs(line[i].Y - line[i-1].Y)
		if dx+dy != 1 {
			t.Errorf("diagonal jump between %v and %v", line[i-1], line[i])
		}
	}

	// Horizontal line.
	line = SupercoverLine(0, 0, 3, 0)
	if len(line) != 4 {
		t.Errorf("horizontal supercover has %d cells, want 4", len(line))
	}

	// Single cell.
	line = SupercoverLine(1, 1, 1, 1)
	if len(line) != 1 || line[0] != (Cell{1, 1}) {
		t.Errorf("degenerate line = %v", line)
	}
}
