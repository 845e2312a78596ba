package sim

import (
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/rng"
	"github.com/evolution-simulator/evosim/systems"
)

// Engine is the real-time driver: it measures elapsed wall time, scales it
// by the speed factor and feeds the simulation fixed-length ticks through
// an accumulator.
type Engine struct {
	env *systems.Environment
	sim *Simulation

	running  atomic.Bool
	paused   atomic.Bool
	speed    atomic.Uint64 // float64 bits
	maxTicks atomic.Int64  // 0 = unbounded
}

// maxCycleDelta clamps one engine cycle's worth of scaled elapsed time so
// a stall cannot trigger a catch-up avalanche of fixed updates.
const maxCycleDelta = 0.05

// NewEngine creates an engine over a fresh environment and simulation.
// When the configuration does not pin the seed, one is drawn from the
// clock and logged so a run can be replayed.
func NewEngine(width, height float64) *Engine {
	cfg := config.Cfg()

	seed := cfg.Random.Seed
	if !cfg.Random.InputSeed {
		seed = time.Now().UnixNano()
		slog.Info("simulation_seed", "seed", seed)
	}
	rng.SetSeed(seed)

	env := systems.NewEnvironment(width, height)
	e := &Engine{
		env: env,
		sim: NewSimulation(env),
	}
	e.SetSpeed(1)
	return e
}

// NewEngineWithDensities creates an engine with explicit food and creature
// densities.
func NewEngineWithDensities(width, height, foodDensity, creatureDensity float64) *Engine {
	e := NewEngine(width, height)
	e.env.SetFoodDensity(foodDensity)
	e.env.SetCreatureDensity(creatureDensity)
	return e
}

// Environment returns the engine's environment.
func (e *Engine) Environment() *systems.Environment { return e.env }

// GetSimulation returns the driven simulation.
func (e *Engine) GetSimulation() *Simulation { return e.sim }

// SetMaxTicks bounds the number of fixed updates Run performs; 0 runs
// until Stop.
func (e *Engine) SetMaxTicks(n int64) { e.maxTicks.Store(n) }

// Run drives the simulation until Stop is called. It blocks the calling
// goroutine.
func (e *Engine) Run() {
	if !e.running.CompareAndSwap(false, true) {
		return
	}

	interval := config.Cfg().Engine.FixedUpdateInterval
	e.sim.Start()

	lastUpdate := time.Now()
	accumulator := 0.0
	var ticks int64

	for e.running.Load() {
		if e.paused.Load() {
			lastUpdate = time.Now()
			time.Sleep(time.Millisecond)
			continue
		}

		now := time.Now()
		delta := now.Sub(lastUpdate).Seconds() * e.GetSpeed()
		if delta > maxCycleDelta {
			delta = maxCycleDelta
		}
		lastUpdate = now
		accumulator += delta

		e.sim.Update(delta)

		for accumulator >= interval {
			if !e.running.Load() {
				break
			}
			if err := e.sim.FixedUpdate(interval); err != nil {
				slog.Error("fixed_update_failed", "err", err)
				e.Stop()
				break
			}
			accumulator -= interval

			ticks++
			if limit := e.maxTicks.Load(); limit > 0 && ticks >= limit {
				e.Stop()
				break
			}
		}

		time.Sleep(time.Millisecond)
	}

	e.sim.Stop()
}

// Stop ends the engine loop; pending phases complete normally.
func (e *Engine) Stop() { e.running.Store(false) }

// Pause suspends fixed updates without ending Run.
func (e *Engine) Pause() { e.paused.Store(true) }

// Resume continues after Pause.
func (e *Engine) Resume() { e.paused.Store(false) }

// IsPaused reports whether the engine is paused.
func (e *Engine) IsPaused() bool { return e.paused.Load() }

// SetSpeed sets the simulation speed factor; negative values clamp to 0.
func (e *Engine) SetSpeed(speed float64) {
	e.speed.Store(math.Float64bits(math.Max(0, speed)))
}

// GetSpeed returns the current speed factor.
func (e *Engine) GetSpeed() float64 {
	return math.Float64frombits(e.speed.Load())
}
