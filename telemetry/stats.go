// Package telemetry provides simulation health tracking, anomaly
// bookmarking, CSV trace output, and binary snapshots.
package telemetry

import (
	"log/slog"
	"sort"
)

// WindowStats summarizes one telemetry window's worth of simulation
// ticks: population and conservation diagnostics plus PCG solver
// health, the per-tick particle counts / iteration counts / reduction
// values a CSV trace records.
type WindowStats struct {
	WindowStartTick int32
	WindowEndTick   int32
	SimTimeSec      float64

	ParticleCount    int
	ParticlesEmitted int
	ParticlesRemoved int

	DensityMean float64
	DensityP10  float64
	DensityP50  float64
	DensityP90  float64

	PressureMean float64
	PressureP10  float64
	PressureP50  float64
	PressureP90  float64

	VelocityMeanMag float64
	VelocityMaxMag  float64

	KineticEnergy float64
	TotalMass     float64
	MomentumMag   float64

	NeighborCountMean float64

	SolverIterationsMean   float64
	SolverIterationsMax    int
	SolverNonConvergedTick int32
}

// Percentile returns the p-th percentile (0..1) of a slice already
// sorted in ascending order, using linear interpolation between the
// two nearest ranks.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(pos)
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

// ComputeFieldStats sorts a copy of values and returns its mean and
// 10th/50th/90th percentiles, the shape every per-window scalar field
// summary (density, pressure, velocity magnitude) is reduced to.
func ComputeFieldStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	mean = sum / float64(len(sorted))
	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)
	return mean, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_end", int64(s.WindowEndTick)),
		slog.Float64("sim_time_sec", s.SimTimeSec),
		slog.Int("particles", s.ParticleCount),
		slog.Int("emitted", s.ParticlesEmitted),
		slog.Int("removed", s.ParticlesRemoved),
		slog.Float64("density_mean", s.DensityMean),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("pressure_mean", s.PressureMean),
		slog.Float64("velocity_mean", s.VelocityMeanMag),
		slog.Float64("velocity_max", s.VelocityMaxMag),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("total_mass", s.TotalMass),
		slog.Float64("momentum_mag", s.MomentumMag),
		slog.Float64("neighbor_count_mean", s.NeighborCountMean),
		slog.Float64("solver_iters_mean", s.SolverIterationsMean),
		slog.Int("solver_iters_max", s.SolverIterationsMax),
		slog.Int64("solver_nonconverged_tick", int64(s.SolverNonConvergedTick)),
	)
}

// LogStats logs the window at info level.
func (s WindowStats) LogStats() {
	slog.Info("window", "stats", s)
}
