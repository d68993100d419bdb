package telemetry

import "math"

// Collector accumulates per-tick simulation samples within a rolling
// time window and reduces them to a WindowStats on Flush.
type Collector struct {
	windowTicks int32
	dt          float32

	windowStartTick int32
	ticksInWindow   int32

	particlesEmitted int
	particlesRemoved int

	densities   []float64
	pressures   []float64
	velocityMag []float64

	kineticEnergySum float64
	totalMassSum     float64
	momentumSum      [3]float64
	neighborCountSum float64

	solverIterSum      int
	solverIterMax      int
	solverNonConverged int32
}

// NewCollector creates a Collector flushing every windowDurationSec
// seconds of simulated time, given the scheme's fixed tick length dt.
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticks := int32(windowDurationSec / float64(dt))
	if ticks < 1 {
		ticks = 1
	}
	return &Collector{windowTicks: ticks, dt: dt}
}

// RecordTick folds one tick's field values and solver outcome into the
// current window.
func (c *Collector) RecordTick(densities, pressures, velocityMag []float64, totalMass float64, momentum [3]float64, kineticEnergy float64, neighborCountMean float64, solverIterations, solverMaxIterations int) {
	c.densities = append(c.densities, densities...)
	c.pressures = append(c.pressures, pressures...)
	c.velocityMag = append(c.velocityMag, velocityMag...)

	c.kineticEnergySum += kineticEnergy
	c.totalMassSum += totalMass
	for d := 0; d < 3; d++ {
		c.momentumSum[d] += momentum[d]
	}
	c.neighborCountSum += neighborCountMean

	c.solverIterSum += solverIterations
	if solverIterations > c.solverIterMax {
		c.solverIterMax = solverIterations
	}
	if solverIterations >= solverMaxIterations {
		c.solverNonConverged++
	}

	c.ticksInWindow++
}

// RecordEmit records n particles added by source seeding this tick.
func (c *Collector) RecordEmit(n int) { c.particlesEmitted += n }

// RecordRemove records n particles removed (left the domain, merged,
// or culled) this tick.
func (c *Collector) RecordRemove(n int) { c.particlesRemoved += n }

// ShouldFlush reports whether the window has accumulated windowTicks
// ticks and is ready to be reduced.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowTicks
}

// Flush reduces the accumulated window into a WindowStats, resets the
// window's counters, and advances the window start to currentTick.
func (c *Collector) Flush(currentTick int32, particleCount int, simTimeSec float64) WindowStats {
	densityMean, densityP10, densityP50, densityP90 := ComputeFieldStats(c.densities)
	pressureMean, pressureP10, pressureP50, pressureP90 := ComputeFieldStats(c.pressures)
	velMean, _, _, _ := ComputeFieldStats(c.velocityMag)

	var velMax float64
	for _, v := range c.velocityMag {
		if v > velMax {
			velMax = v
		}
	}

	n := c.ticksInWindow
	var solverIterMean float64
	var neighborMean float64
	if n > 0 {
		solverIterMean = float64(c.solverIterSum) / float64(n)
		neighborMean = c.neighborCountSum / float64(n)
	}

	momentumMag := 0.0
	for d := 0; d < 3; d++ {
		momentumMag += c.momentumSum[d] * c.momentumSum[d]
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      simTimeSec,

		ParticleCount:    particleCount,
		ParticlesEmitted: c.particlesEmitted,
		ParticlesRemoved: c.particlesRemoved,

		DensityMean: densityMean,
		DensityP10:  densityP10,
		DensityP50:  densityP50,
		DensityP90:  densityP90,

		PressureMean: pressureMean,
		PressureP10:  pressureP10,
		PressureP50:  pressureP50,
		PressureP90:  pressureP90,

		VelocityMeanMag: velMean,
		VelocityMaxMag:  velMax,

		KineticEnergy: c.kineticEnergySum,
		TotalMass:     c.totalMassSum,
		MomentumMag:   math.Sqrt(momentumMag),

		NeighborCountMean: neighborMean,

		SolverIterationsMean:   solverIterMean,
		SolverIterationsMax:    c.solverIterMax,
		SolverNonConvergedTick: c.solverNonConverged,
	}

	c.windowStartTick = currentTick
	c.ticksInWindow = 0
	c.particlesEmitted = 0
	c.particlesRemoved = 0
	c.densities = c.densities[:0]
	c.pressures = c.pressures[:0]
	c.velocityMag = c.velocityMag[:0]
	c.kineticEnergySum = 0
	c.totalMassSum = 0
	c.momentumSum = [3]float64{}
	c.neighborCountSum = 0
	c.solverIterSum = 0
	c.solverIterMax = 0
	c.solverNonConverged = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 { return c.windowTicks }
