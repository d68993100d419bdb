// Package simlog provides the structured logger used by the
// simulation driver: a thin wrapper over log/slog that tags every
// record with the current tick and virtual simulation time.
package simlog

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps an *slog.Logger, stamping every record with the
// simulation's current tick and time. Values are read lazily from tick
// and simTime at the moment a record is emitted, so the same Logger can
// be handed to every subsystem up front.
type Logger struct {
	base    *slog.Logger
	tick    func() int64
	simTime func() float64
}

// New builds a Logger writing to w as JSON, sourcing the tick/time
// pair from the given callbacks (typically the driver's tick counter
// and Scheduler.Now).
func New(w io.Writer, level slog.Level, tick func() int64, simTime func() float64) *Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return &Logger{base: slog.New(handler), tick: tick, simTime: simTime}
}

// Default builds a Logger writing to os.Stderr at Info level.
func Default(tick func() int64, simTime func() float64) *Logger {
	return New(os.Stderr, slog.LevelInfo, tick, simTime)
}

func (l *Logger) with() *slog.Logger {
	return l.base.With(
		slog.Int64("tick", l.tick()),
		slog.Float64("sim_time", l.simTime()),
	)
}

// Info logs at Info level with the current tick/time attached.
func (l *Logger) Info(msg string, args ...any) { l.with().Info(msg, args...) }

// Warn logs at Warn level with the current tick/time attached.
func (l *Logger) Warn(msg string, args ...any) { l.with().Warn(msg, args...) }

// Error logs at Error level with the current tick/time attached.
func (l *Logger) Error(msg string, args ...any) { l.with().Error(msg, args...) }

// Debug logs at Debug level with the current tick/time attached.
func (l *Logger) Debug(msg string, args ...any) { l.with().Debug(msg, args...) }

// StepReport summarizes one tick's cost breakdown by phase, in the
// shape the headless driver emits once per log_interval ticks.
type StepReport struct {
	Tick         int64
	SimTime      float64
	ParticleN    int
	GridUpdateUs int64
	SchemeUs     int64
	SolverIters  int
}

// LogValue implements slog.LogValuer so a StepReport can be passed
// directly as a log attribute.
func (r StepReport) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("tick", r.Tick),
		slog.Float64("sim_time", r.SimTime),
		slog.Int("particles", r.ParticleN),
		slog.Int64("grid_update_us", r.GridUpdateUs),
		slog.Int64("scheme_us", r.SchemeUs),
		slog.Int("solver_iters", r.SolverIters),
	)
}

// ReportStep logs a StepReport under a single "step" attribute.
func (l *Logger) ReportStep(r StepReport) {
	l.base.Info("step", "step", r)
}
