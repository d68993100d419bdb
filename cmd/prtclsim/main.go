// Command prtclsim runs an SPH scene headlessly: it loads a scene
// configuration and the .prtcl schemes it names, steps the model
// forward on the grid/scheduler runtime for a fixed tick budget, and
// emits structured logs plus an optional CSV telemetry trace.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prtcl-go/prtcl/config"
	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/internal/scene"
	"github.com/prtcl-go/prtcl/internal/simlog"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/source"
	"github.com/prtcl-go/prtcl/tensor"
	"github.com/prtcl-go/prtcl/telemetry"
)

var (
	configPath  = flag.String("config", "", "path to a scene YAML config (embedded defaults if empty)")
	maxTicks    = flag.Int("max-ticks", 1000, "stop after N ticks (0 = run forever)")
	logFilePath = flag.String("logfile", "", "write structured logs to this file instead of stderr")
	logLevel    = flag.String("log-level", "info", "debug, info, warn, or error")
	outputDir   = flag.String("output", "", "directory for CSV telemetry/perf/bookmark traces (overrides config)")
	perfLog     = flag.Bool("perf", false, "log a per-phase timing breakdown alongside telemetry")
	seed        = flag.Int64("seed", 1, "RNG seed for particle source jitter")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prtclsim: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *outputDir != "" {
		cfg.Telemetry.OutputDir = *outputDir
	}

	var logWriter io.Writer = os.Stderr
	if *logFilePath != "" {
		f, err := os.Create(*logFilePath)
		if err != nil {
			return fmt.Errorf("opening logfile: %w", err)
		}
		defer f.Close()
		logWriter = f
	}

	m, sched, schemes, err := scene.Load(cfg, *seed)
	if err != nil {
		return err
	}
	dims := cfg.World.Dimensions

	var tick int32
	logger := simlog.New(logWriter, parseLevel(*logLevel), func() int64 { return int64(tick) }, sched.Now)

	nh := grid.New(cfg.Grid.Radius, dims, source.DefaultPosField)

	var out *telemetry.OutputManager
	if cfg.Telemetry.OutputDir != "" {
		out, err = telemetry.NewOutputManager(cfg.Telemetry.OutputDir)
		if err != nil {
			return fmt.Errorf("opening telemetry output: %w", err)
		}
		defer out.Close()
		if err := out.WriteConfig(cfg); err != nil {
			return fmt.Errorf("writing config.yaml: %w", err)
		}
	}

	windowTicks := int32(cfg.Telemetry.WindowTicks)
	if windowTicks <= 0 {
		windowTicks = 120
	}
	collector := telemetry.NewCollector(float64(windowTicks)*cfg.Physics.DT, float32(cfg.Physics.DT))
	historySize := cfg.Telemetry.HistorySize
	if historySize <= 0 {
		historySize = 10
	}
	bookmarks := telemetry.NewBookmarkDetector(historySize, cfg.Physics.RestDensity)

	var perfCollector *telemetry.PerfCollector
	if *perfLog {
		perfCollector = telemetry.NewPerfCollector(int(windowTicks))
	}

	for *maxTicks == 0 || tick < int32(*maxTicks) {
		if perfCollector != nil {
			perfCollector.StartTick()
		}

		sched.Tick(cfg.Physics.DT)

		if perfCollector != nil {
			perfCollector.StartPhase(telemetry.PhaseNeighborSearch)
		}
		gridStart := time.Now()
		nh.Update(m)
		gridDur := time.Since(gridStart)

		if perfCollector != nil {
			perfCollector.StartPhase(telemetry.PhaseForces)
		}
		schemeStart := time.Now()
		for _, bs := range schemes {
			for _, proc := range bs.Procedures {
				if err := bs.Scheme.RunProcedure(proc, nh); err != nil {
					return fmt.Errorf("tick %d: procedure %q: %w", tick, proc, err)
				}
			}
		}
		schemeDur := time.Since(schemeStart)

		if perfCollector != nil {
			perfCollector.StartPhase(telemetry.PhaseTelemetry)
		}
		recordTelemetry(m, cfg, collector)

		if collector.ShouldFlush(tick) {
			stats := collector.Flush(tick, scene.ParticleCount(m), sched.Now())
			stats.LogStats()
			if out != nil {
				if err := out.WriteTelemetry(stats); err != nil {
					return fmt.Errorf("writing telemetry: %w", err)
				}
			}
			for _, b := range bookmarks.Check(stats) {
				b.LogBookmark()
				if out != nil {
					if err := out.WriteBookmark(b); err != nil {
						return fmt.Errorf("writing bookmark: %w", err)
					}
				}
			}

			if perfCollector != nil {
				perfStats := perfCollector.Stats()
				perfStats.LogStats()
				if out != nil {
					if err := out.WritePerf(perfStats, tick); err != nil {
						return fmt.Errorf("writing perf: %w", err)
					}
				}
			}
		}

		if perfCollector != nil {
			perfCollector.EndTick()
		}

		if cfg.Telemetry.LogInterval > 0 && int(tick)%cfg.Telemetry.LogInterval == 0 {
			logger.ReportStep(simlog.StepReport{
				Tick:         int64(tick),
				SimTime:      sched.Now(),
				ParticleN:    scene.ParticleCount(m),
				GridUpdateUs: gridDur.Microseconds(),
				SchemeUs:     schemeDur.Microseconds(),
			})
		}

		m.ClearDirty()
		tick++
	}

	logger.Info("run complete", "ticks", tick, "particles", scene.ParticleCount(m))
	return nil
}

// recordTelemetry samples every group's density/pressure/velocity/mass
// fields (named by config, since the runtime treats schemes as opaque)
// and folds them into collector's current window. Solver iteration
// counts are not sampled here: RunProcedure does not expose the PCG
// diagnostics of any solve blocks a scheme runs internally.
func recordTelemetry(m *model.Model, cfg *config.Config, collector *telemetry.Collector) {
	scalarType := tensor.TensorType{Component: tensor.F64}
	vecType := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{cfg.World.Dimensions}}

	var densities, pressures, velocityMag []float64
	var totalMass, kineticEnergy float64
	var momentum [3]float64

	for _, g := range m.Groups() {
		n := g.Len()
		if n == 0 {
			continue
		}

		var mass field.TypedSpan[float64]
		haveMass := false
		if cfg.Telemetry.MassField != "" {
			if span, ok := field.TryGetVarying[float64](g.Varying, cfg.Telemetry.MassField, scalarType); ok {
				mass = span
				haveMass = true
			}
		}

		if cfg.Telemetry.DensityField != "" {
			if span, ok := field.TryGetVarying[float64](g.Varying, cfg.Telemetry.DensityField, scalarType); ok {
				for i := 0; i < n; i++ {
					densities = append(densities, span.Get(i).At(0))
				}
			}
		}
		if cfg.Telemetry.PressureField != "" {
			if span, ok := field.TryGetVarying[float64](g.Varying, cfg.Telemetry.PressureField, scalarType); ok {
				for i := 0; i < n; i++ {
					pressures = append(pressures, span.Get(i).At(0))
				}
			}
		}
		if cfg.Telemetry.VelocityField != "" {
			if span, ok := field.TryGetVarying[float64](g.Varying, cfg.Telemetry.VelocityField, vecType); ok {
				for i := 0; i < n; i++ {
					v := span.Get(i)
					speed := tensor.Norm(v)
					velocityMag = append(velocityMag, speed)

					particleMass := 1.0
					if haveMass {
						particleMass = mass.Get(i).At(0)
					}
					totalMass += particleMass
					kineticEnergy += 0.5 * particleMass * speed * speed
					for d := 0; d < v.Len() && d < 3; d++ {
						momentum[d] += particleMass * v.At(d)
					}
				}
			}
		}
	}

	collector.RecordTick(densities, pressures, velocityMag, totalMass, momentum, kineticEnergy, 0, 0, cfg.Solver.MaxIterations)
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
