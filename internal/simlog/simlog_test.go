package simlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestInfoAttachesTickAndTime(t *testing.T) {
	var buf bytes.Buffer
	tick := int64(7)
	simTime := 0.42

	l := New(&buf, slog.LevelInfo, func() int64 { return tick }, func() float64 { return simTime })
	l.Info("neighborhood updated", "cell_count", 12)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}

	if rec["tick"] != float64(7) {
		t.Errorf("tick = %v, want 7", rec["tick"])
	}
	if rec["sim_time"] != 0.42 {
		t.Errorf("sim_time = %v, want 0.42", rec["sim_time"])
	}
	if rec["cell_count"] != float64(12) {
		t.Errorf("cell_count = %v, want 12", rec["cell_count"])
	}
}

func TestReportStepLogValue(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, slog.LevelInfo, func() int64 { return 3 }, func() float64 { return 1.5 })

	l.ReportStep(StepReport{Tick: 3, SimTime: 1.5, ParticleN: 500, GridUpdateUs: 120, SchemeUs: 900, SolverIters: 4})

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	step, ok := rec["step"].(map[string]any)
	if !ok {
		t.Fatalf("expected nested step group, got %v", rec["step"])
	}
	if step["particles"] != float64(500) {
		t.Errorf("particles = %v, want 500", step["particles"])
	}
}
