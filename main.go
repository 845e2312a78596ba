package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/evolution-simulator/evosim/config"
	"github.com/evolution-simulator/evosim/sim"
	"github.com/evolution-simulator/evosim/species"
	"github.com/evolution-simulator/evosim/telemetry"
)

var (
	configPath      = flag.String("config", "", "Path to a YAML config file (embedded defaults when empty)")
	width           = flag.Float64("width", 0, "Map width (config default when 0)")
	height          = flag.Float64("height", 0, "Map height (config default when 0)")
	seed            = flag.Int64("seed", 0, "Override the random seed (0 = use config)")
	speed           = flag.Float64("speed", 1, "Initial simulation speed factor")
	maxTicks        = flag.Int64("max-ticks", 0, "Stop after N fixed updates (0 = run until interrupted)")
	outputDir       = flag.String("output", "", "Directory for stats.csv, statistics.json and the effective config")
	loadPath        = flag.String("load", "", "Load a world snapshot before starting")
	savePath        = flag.String("save", "", "Write a world snapshot on shutdown")
	logJSON         = flag.Bool("log-json", false, "Emit JSON logs instead of text")
	logStats        = flag.Bool("log-stats", false, "Log the periodic statistics samples")
	clusterInterval = flag.Duration("cluster-interval", 5*time.Second, "Species reclustering cadence")
)

func main() {
	flag.Parse()

	var handler slog.Handler
	if *logJSON {
		handler = slog.NewJSONHandler(os.Stderr, nil)
	} else {
		handler = slog.NewTextHandler(os.Stderr, nil)
	}
	slog.SetDefault(slog.New(handler))

	if err := config.Init(*configPath); err != nil {
		// A broken config file is reported; the core starts with defaults.
		slog.Error("config_load_failed", "path", *configPath, "err", err)
		config.MustInit("")
	}
	cfg := config.Cfg()

	if *seed != 0 {
		cfg.Random.Seed = *seed
		cfg.Random.InputSeed = true
	}

	mapWidth := cfg.Environment.MapWidth
	mapHeight := cfg.Environment.MapHeight
	if *width > 0 {
		mapWidth = *width
	}
	if *height > 0 {
		mapHeight = *height
	}

	engine := sim.NewEngine(mapWidth, mapHeight)
	engine.SetSpeed(*speed)
	engine.SetMaxTicks(*maxTicks)

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("output_init_failed", "err", err)
		os.Exit(1)
	}
	if output != nil {
		if err := cfg.WriteYAML(filepath.Join(output.Dir(), "config.yaml")); err != nil {
			slog.Warn("config_write_failed", "err", err)
		}
	}

	if *loadPath != "" {
		snap, err := sim.ReadSnapshot(*loadPath)
		if err != nil {
			slog.Error("snapshot_load_failed", "path", *loadPath, "err", err)
			os.Exit(1)
		}
		accessor := engine.GetSimulation().GetSimulationData()
		snap.Apply(accessor.Data())
		accessor.Release()
		slog.Info("snapshot_loaded", "path", *loadPath,
			"creatures", len(snap.Creatures), "food", len(snap.Food), "eggs", len(snap.Eggs))
	}

	stop := make(chan struct{})

	// Species clustering runs on its own cadence off brief data snapshots.
	cluster := species.NewCluster(cfg.Compatibility.CompatibilityThreshold, 10)
	go cluster.Loop(stop, *clusterInterval, func(c *species.Cluster) {
		accessor := engine.GetSimulation().GetSimulationData()
		points := accessor.Data().CreaturePoints()
		accessor.Release()
		c.SyncAlive(points)
	})

	// Statistics reporter: follows the 1 s world-time series.
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		written := 0
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				accessor := engine.GetSimulation().GetSimulationData()
				samples := accessor.Data().Stats.Samples
				fresh := make([]telemetry.Sample, len(samples)-written)
				copy(fresh, samples[written:])
				written = len(samples)
				accessor.Release()

				for _, sample := range fresh {
					if *logStats {
						slog.Info("stats", "sample", sample)
					}
					if err := output.WriteSample(sample); err != nil {
						slog.Warn("stats_write_failed", "err", err)
					}
				}
			}
		}
	}()

	// Interrupts stop the engine; pending phases complete normally.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		slog.Info("interrupt_received")
		engine.Stop()
	}()

	slog.Info("engine_start", "width", mapWidth, "height", mapHeight,
		"speed", *speed, "max_ticks", *maxTicks)
	engine.Run()
	close(stop)

	accessor := engine.GetSimulation().GetSimulationData()
	data := accessor.Data()
	slog.Info("engine_stopped",
		"world_time", data.WorldTime,
		"creatures", data.CreatureCount(),
		"food", data.FoodCount(),
		"eggs", data.EggCount(),
		"species", len(cluster.SpeciesSizes()),
	)

	if *savePath != "" {
		snap := sim.TakeSnapshot(data)
		if err := snap.WriteFile(*savePath); err != nil {
			slog.Error("snapshot_save_failed", "path", *savePath, "err", err)
		} else {
			slog.Info("snapshot_saved", "path", *savePath)
		}
	}
	if output != nil {
		if err := data.Stats.WriteJSON(filepath.Join(output.Dir(), "statistics.json")); err != nil {
			slog.Warn("statistics_write_failed", "err", err)
		}
	}
	accessor.Release()

	if err := output.Close(); err != nil {
		slog.Warn("output_close_failed", "err", err)
	}
}
