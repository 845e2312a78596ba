package systems

import (
	"math"
	"testing"

	"github.com/evolution-simulator/evosim/components"
	"github.com/evolution-simulator/evosim/mutable"
	"github.com/evolution-simulator/evosim/neat"
)

func newTestCreature(size float64) (*components.Creature, *components.Body) {
	traits := mutable.Default()
	cr := &components.Creature{
		Genome:    neat.NewGenome(12, 6),
		Mutable:   traits,
		Energy:    traits.EnergyDensity * size * size / 2,
		MaxEnergy: traits.EnergyDensity * size * size,
		Health:    traits.Integrity * size * size / 2,
	}
	UpdateDigestionDerived(cr, size)
	return cr, &components.Body{Size: size}
}

func TestHealthCeiling(t *testing.T) {
	cr, body := newTestCreature(4)
	SetHealth(cr, body.Size, 1e9)
	if cr.Health > MaxHealth(cr, body.Size) {
		t.Errorf("health %v above integrity ceiling %v", cr.Health, MaxHealth(cr, body.Size))
	}
}

func TestEnergyCeiling(t *testing.T) {
	cr, _ := newTestCreature(4)
	SetEnergy(cr, 1e9)
	if cr.Energy > cr.MaxEnergy {
		t.Errorf("energy %v above max %v", cr.Energy, cr.MaxEnergy)
	}
}

func TestMaxEnergyDecaysWithAge(t *testing.T) {
	cr, body := newTestCreature(4)
	UpdateMaxEnergy(cr, body.Size)
	young := cr.MaxEnergy

	cr.Age = 100
	UpdateMaxEnergy(cr, body.Size)
	if cr.MaxEnergy >= young {
		t.Errorf("max energy did not decay with age: %v >= %v", cr.MaxEnergy, young)
	}
}

func TestBalanceHealthEnergyNoUnboundedNegative(t *testing.T) {
	cr, body := newTestCreature(3)
	cr.Energy = -50

	BalanceHealthEnergy(cr, body.Size)

	if cr.Energy < 0 {
		t.Errorf("energy still negative after balance: %v", cr.Energy)
	}
	// The deficit came out of health.
	if cr.Health >= MaxHealth(cr, body.Size)/2 {
		t.Errorf("health did not absorb the deficit: %v", cr.Health)
	}
}

func TestStarvingCreatureDies(t *testing.T) {
	cr, body := newTestCreature(3)
	kin := &components.Kinematics{Acceleration: 5, RotationalAcceleration: 5}
	cr.Energy = 0
	dt := 0.05

	alive := true
	// Bounded by energy and health reserves; generous margin.
	for i := 0; i < 2_000_000 && alive; i++ {
		UpdateMaxEnergy(cr, body.Size)
		alive = UpdateEnergy(cr, kin, body.Size, dt)
	}
	if alive {
		t.Fatal("creature with no intake never died")
	}
}

func TestBiteSmallFoodConsumesAll(t *testing.T) {
	cr, _ := newTestCreature(5)
	food := &components.Food{Type: components.FoodPlant, NutritionalValue: 1}
	foodBody := &components.Body{Size: 0.5}

	consumed := Bite(cr, food, foodBody)
	if !consumed {
		t.Fatal("small food not fully consumed")
	}
	if foodBody.Size != 0 {
		t.Errorf("consumed food retains size %v", foodBody.Size)
	}
	if cr.Digestion.PotentialEnergyInStomach <= 0 {
		t.Error("bite added no stomach energy")
	}
	if cr.Digestion.EatingCooldown != cr.Mutable.EatingSpeed {
		t.Error("bite did not reset the eating cooldown")
	}
}

func TestBiteLargeFoodShrinksIt(t *testing.T) {
	cr, _ := newTestCreature(2)
	food := &components.Food{Type: components.FoodPlant, NutritionalValue: 1}
	foodBody := &components.Body{Size: 10}
	before := foodBody.Size

	consumed := Bite(cr, food, foodBody)
	if consumed {
		t.Fatal("large food reported consumed")
	}
	if foodBody.Size >= before || foodBody.Size <= 0 {
		t.Errorf("food size %v, want shrunk but positive", foodBody.Size)
	}
	if cr.Digestion.StomachFullness > cr.Digestion.StomachCapacity {
		t.Error("stomach overfilled")
	}
}

func TestDietScalesNutrition(t *testing.T) {
	herb, _ := newTestCreature(3)
	carn, _ := newTestCreature(3)
	herb.Mutable.Diet = 0
	carn.Mutable.Diet = 1

	plant := func() (*components.Food, *components.Body) {
		return &components.Food{Type: components.FoodPlant, NutritionalValue: 1},
			&components.Body{Size: 0.5}
	}

	f1, b1 := plant()
	Bite(herb, f1, b1)
	f2, b2 := plant()
	Bite(carn, f2, b2)

	if herb.Digestion.PotentialEnergyInStomach <= 0 {
		t.Fatal("herbivore gained nothing from a plant")
	}
	if carn.Digestion.PotentialEnergyInStomach != 0 {
		t.Errorf("pure carnivore gained %v from a plant, want 0",
			carn.Digestion.PotentialEnergyInStomach)
	}
}

func TestDigestConvertsStomachToEnergy(t *testing.T) {
	cr, body := newTestCreature(4)
	food := &components.Food{Type: components.FoodPlant, NutritionalValue: 1}
	foodBody := &components.Body{Size: 1}
	Bite(cr, food, foodBody)
	AddAcid(cr, 5)

	startEnergy := cr.Energy
	startFullness := cr.Digestion.StomachFullness

	Digest(cr, body.Size, 0.5)

	if cr.Energy <= startEnergy {
		t.Error("digestion produced no energy")
	}
	if cr.Digestion.StomachFullness >= startFullness {
		t.Error("digestion did not empty the stomach")
	}
	if cr.Digestion.StomachAcid < 0 || cr.Digestion.StomachFullness < 0 {
		t.Error("digestion drove stomach state negative")
	}
}

func TestAddAcidCostsEnergy(t *testing.T) {
	cr, _ := newTestCreature(4)
	start := cr.Energy
	AddAcid(cr, 3)
	if cr.Energy >= start {
		t.Error("adding acid cost no energy")
	}
	if cr.Digestion.StomachAcid > cr.Digestion.StomachCapacity {
		t.Error("acid above stomach capacity")
	}
}

func TestGrowCapsAtMaxSize(t *testing.T) {
	cr, body := newTestCreature(3)
	Grow(cr, body, 1e6)
	if body.Size != cr.Mutable.MaxSize {
		t.Errorf("size = %v, want capped at %v", body.Size, cr.Mutable.MaxSize)
	}
	if math.IsNaN(cr.Energy) {
		t.Error("growth produced NaN energy")
	}
}
