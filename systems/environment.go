package systems

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
)

// Environment holds the world parameters: map dimensions, friction,
// creature density and the food-density field food spawning samples.
type Environment struct {
	Width               float64
	Height              float64
	FrictionCoefficient float64
	CreatureDensity     float64

	// FoodDensityScale is the scalar the installed density field was
	// built with; persisted so a reloaded world rebuilds the same field.
	FoodDensityScale float64

	foodDensity func(x, y float64) float64
}

// NewEnvironment creates an environment with the configured defaults and a
// single-Gaussian food-density field centered on the map. When
// environment.noise_factor is positive the field is modulated by a simplex
// patchiness multiplier.
func NewEnvironment(width, height float64) *Environment {
	cfg := config.Cfg().Environment
	e := &Environment{
		Width:               width,
		Height:              height,
		FrictionCoefficient: cfg.FrictionalCoefficient,
		CreatureDensity:     cfg.DefaultCreatureDensity,
	}
	e.SetFoodDensity(cfg.DefaultFoodDensity)
	return e
}

// SetFoodDensity installs the single-Gaussian field scaled by density.
func (e *Environment) SetFoodDensity(density float64) {
	cfg := config.Cfg().Environment
	e.FoodDensityScale = density
	meanX := e.Width / 2
	meanY := e.Height / 2
	sigmaX := e.Width / 3
	sigmaY := e.Height / 3

	base := func(x, y float64) float64 {
		return density * e.gaussian(x, y, meanX, meanY, sigmaX, sigmaY)
	}

	if cfg.NoiseFactor > 0 {
		noise := opensimplex.NewNormalized(rng.Seed())
		factor := cfg.NoiseFactor
		scale := cfg.NoiseScale
		e.foodDensity = func(x, y float64) float64 {
			patch := 1 - factor + factor*noise.Eval2(x/scale, y/scale)
			return base(x, y) * patch
		}
		return
	}
	e.foodDensity = base
}

// SetDoubleGaussianFoodDensity installs a two-peak field: one peak at the
// map center and one at the opposite corner through the wrap.
func (e *Environment) SetDoubleGaussianFoodDensity(density float64) {
	e.FoodDensityScale = density
	meanX1 := e.Width / 2
	meanY1 := e.Height / 2
	meanX2 := math.Mod(meanX1+e.Width/2, e.Width)
	meanY2 := math.Mod(meanY1+e.Height/2, e.Height)
	sigmaX := e.Width / 10
	sigmaY := e.Height / 10

	e.foodDensity = func(x, y float64) float64 {
		d1 := e.gaussian(x, y, meanX1, meanY1, sigmaX, sigmaY)
		d2 := e.gaussian(x, y, meanX2, meanY2, sigmaX, sigmaY)
		return density * (d1 + d2)
	}
}

// SetFoodDensityFunc installs an arbitrary density field.
func (e *Environment) SetFoodDensityFunc(f func(x, y float64) float64) {
	e.foodDensity = f
}

// FoodDensity samples the food-density field.
func (e *Environment) FoodDensity(x, y float64) float64 {
	return e.foodDensity(x, y)
}

// SetCreatureDensity sets the initial creature spawn density.
func (e *Environment) SetCreatureDensity(density float64) {
	e.CreatureDensity = density
}

// gaussian evaluates an axis-aligned Gaussian using wrap-around distances.
func (e *Environment) gaussian(x, y, meanX, meanY, sigmaX, sigmaY float64) float64 {
	dx := math.Min(math.Abs(x-meanX), e.Width-math.Abs(x-meanX))
	dy := math.Min(math.Abs(y-meanY), e.Height-math.Abs(y-meanY))
	exponent := -((dx*dx)/(2*sigmaX*sigmaX) + (dy*dy)/(2*sigmaY*sigmaY))
	return math.Exp(exponent)
}
