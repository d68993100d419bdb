package telemetry

import (
	"os"
	"testing"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

const testGroup model.GroupIndex = 0

func buildTestModel() *model.Model {
	m := model.NewModel()
	g, _ := m.AddGroup("fluid", "fluid")
	typ := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{2}}
	pos, _ := field.AddVarying[float64](g.Varying, "x", typ)
	lo, _ := g.Varying.CreateItems(2)
	v := tensor.New[float64](tensor.Shape{2})
	v.Set(0, 1.5)
	v.Set(1, -2.5)
	pos.Set(lo, v)
	pos.Set(lo+1, v)
	return m
}

func TestSnapshotSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	m := buildTestModel()

	meta := SnapshotMeta{RNGSeed: 42, Tick: 1000, SimTimeSec: 12.5}
	path, err := SaveSnapshot(meta, m, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("snapshot file not created at %s", path)
	}

	loadedMeta, loadedModel, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}

	if loadedMeta.Version != SnapshotVersion {
		t.Errorf("Version = %d, want %d", loadedMeta.Version, SnapshotVersion)
	}
	if loadedMeta.RNGSeed != meta.RNGSeed {
		t.Errorf("RNGSeed = %d, want %d", loadedMeta.RNGSeed, meta.RNGSeed)
	}
	if loadedMeta.Tick != meta.Tick {
		t.Errorf("Tick = %d, want %d", loadedMeta.Tick, meta.Tick)
	}
	if loadedMeta.SimTimeSec != meta.SimTimeSec {
		t.Errorf("SimTimeSec = %v, want %v", loadedMeta.SimTimeSec, meta.SimTimeSec)
	}

	grp := loadedModel.Group(testGroup)
	if grp.Len() != 2 {
		t.Fatalf("loaded group length = %d, want 2", grp.Len())
	}
	typ := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{2}}
	pos, ok := field.TryGetVarying[float64](grp.Varying, "x", typ)
	if !ok {
		t.Fatal("loaded group missing field x")
	}
	if pos.Get(0).At(0) != 1.5 || pos.Get(0).At(1) != -2.5 {
		t.Errorf("loaded position = %v, want (1.5, -2.5)", pos.Get(0))
	}
}

func TestSnapshotFilename(t *testing.T) {
	tmpDir := t.TempDir()
	m := buildTestModel()

	path, err := SaveSnapshot(SnapshotMeta{Tick: 5000}, m, tmpDir)
	if err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	want := tmpDir + "/snapshot_5000.bin"
	if path != want {
		t.Errorf("path = %s, want %s", path, want)
	}
}
