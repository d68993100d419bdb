package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the kind of anomaly a Bookmark records.
type BookmarkType string

const (
	BookmarkSolverStall    BookmarkType = "solver_stall"
	BookmarkDensityAnomaly BookmarkType = "density_anomaly"
	BookmarkEnergySpike    BookmarkType = "energy_spike"
	BookmarkSteadyState    BookmarkType = "steady_state"
)

// Bookmark represents an automatically detected moment worth
// flagging in a simulation run.
type Bookmark struct {
	Type        BookmarkType
	Tick        int32
	Description string
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// Thresholds for bookmark detection. These are fixed rather than
// config-driven: they flag diagnostics, not simulation behavior.
const (
	densityAnomalyRatio  = 1.10 // density deviates >10% from rest density
	energySpikeMultiplier = 2.0  // kinetic energy jumps >2x rolling average
	steadyStateCV         = 0.01 // coefficient of variation^2 below this is "steady"
	steadyStateWindows    = 5
)

// BookmarkDetector watches a stream of WindowStats and flags solver
// non-convergence, density/energy anomalies, and steady-state runs.
type BookmarkDetector struct {
	restDensity float64

	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	stableWindowsCount int
}

// NewBookmarkDetector creates a detector with the given rolling
// history size and the scheme's target rest density.
func NewBookmarkDetector(historySize int, restDensity float64) *BookmarkDetector {
	if historySize < steadyStateWindows {
		historySize = steadyStateWindows
	}
	return &BookmarkDetector{
		restDensity: restDensity,
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest window and returns any triggered
// bookmarks, then folds the window into the rolling history.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	if b := bd.checkSolverStall(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}
	if b := bd.checkDensityAnomaly(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		if b := bd.checkEnergySpike(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
		if b := bd.checkSteadyState(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkSolverStall(stats WindowStats) *Bookmark {
	if stats.SolverNonConvergedTick == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkSolverStall,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("PCG solver hit max iterations on %d tick(s), max %d iterations", stats.SolverNonConvergedTick, stats.SolverIterationsMax),
	}
}

func (bd *BookmarkDetector) checkDensityAnomaly(stats WindowStats) *Bookmark {
	if bd.restDensity <= 0 || stats.DensityMean == 0 {
		return nil
	}
	ratio := stats.DensityMean / bd.restDensity
	if ratio < 1 {
		ratio = 1 / ratio
	}
	if ratio > densityAnomalyRatio {
		return &Bookmark{
			Type:        BookmarkDensityAnomaly,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("mean density %.2f deviates %.0f%% from rest density %.2f", stats.DensityMean, (ratio-1)*100, bd.restDensity),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkEnergySpike(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 {
		return nil
	}
	var sum float64
	for _, h := range history {
		sum += h.KineticEnergy
	}
	avg := sum / float64(len(history))
	if avg <= 0 {
		return nil
	}
	if stats.KineticEnergy > avg*energySpikeMultiplier {
		return &Bookmark{
			Type:        BookmarkEnergySpike,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("kinetic energy %.3f is %.1fx rolling average %.3f", stats.KineticEnergy, stats.KineticEnergy/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkSteadyState(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < steadyStateWindows {
		return nil
	}
	recent := history[len(history)-steadyStateWindows:]

	var sum float64
	for _, h := range recent {
		sum += h.KineticEnergy
	}
	mean := sum / float64(len(recent))

	var variance float64
	for _, h := range recent {
		diff := h.KineticEnergy - mean
		variance += diff * diff
	}
	variance /= float64(len(recent))

	cv := 0.0
	if mean > 0 {
		cv = variance / (mean * mean)
	}

	if cv < steadyStateCV {
		bd.stableWindowsCount++
	} else {
		bd.stableWindowsCount = 0
	}

	if bd.stableWindowsCount == steadyStateWindows {
		return &Bookmark{
			Type:        BookmarkSteadyState,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("kinetic energy steady over %d+ windows (mean %.4f)", steadyStateWindows, mean),
		}
	}
	return nil
}
