package archive

import (
	"bytes"
	"testing"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := model.NewModel()
	g, err := m.AddGroup("fluid", "fluid")
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	g.AddTag("dynamic")

	posTyp := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{3}}
	massTyp := tensor.TensorType{Component: tensor.F64}
	tagTyp := tensor.TensorType{Component: tensor.I64}
	activeTyp := tensor.TensorType{Component: tensor.Bool}

	pos, _ := field.AddVarying[float64](g.Varying, "x", posTyp)
	mass, _ := field.AddVarying[float64](g.Varying, "m", massTyp)
	id, _ := field.AddVarying[int64](g.Varying, "id", tagTyp)
	active, _ := field.AddVarying[bool](g.Varying, "active", activeTyp)

	lo, _ := g.Varying.CreateItems(3)
	for i := lo; i < lo+3; i++ {
		pos.Set(i, tensor.FromSlice[float64](tensor.Shape{3}, []float64{float64(i), float64(i) * 2, float64(i) * 3}))
		mass.Set(i, tensor.Scalar(1.5*float64(i+1)))
		id.Set(i, tensor.Scalar(int64(i)))
		active.Set(i, tensor.Scalar(i%2 == 0))
	}

	gravTyp := tensor.TensorType{Component: tensor.F64}
	grav, _ := field.AddUniform[float64](m.Global, "gravity", gravTyp)
	grav.Set(0, tensor.Scalar(-9.81))

	var buf bytes.Buffer
	if err := Save(&buf, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(&buf)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lg, ok := loaded.GroupByName("fluid")
	if !ok {
		t.Fatal("loaded model is missing group \"fluid\"")
	}
	if lg.Type != "fluid" {
		t.Errorf("group type = %q, want %q", lg.Type, "fluid")
	}
	if !lg.HasTag("dynamic") {
		t.Error("loaded group lost its \"dynamic\" tag")
	}
	if lg.Len() != 3 {
		t.Fatalf("loaded group has %d items, want 3", lg.Len())
	}

	lpos, ok := field.TryGetVarying[float64](lg.Varying, "x", posTyp)
	if !ok {
		t.Fatal("loaded group is missing field \"x\"")
	}
	for i := 0; i < 3; i++ {
		want := tensor.FromSlice[float64](tensor.Shape{3}, []float64{float64(i), float64(i) * 2, float64(i) * 3})
		got := lpos.Get(i)
		for c := 0; c < 3; c++ {
			if got.At(c) != want.At(c) {
				t.Errorf("x[%d][%d] = %v, want %v", i, c, got.At(c), want.At(c))
			}
		}
	}

	lid, ok := field.TryGetVarying[int64](lg.Varying, "id", tagTyp)
	if !ok {
		t.Fatal("loaded group is missing field \"id\"")
	}
	for i := 0; i < 3; i++ {
		if got := lid.Get(i).At(0); got != int64(i) {
			t.Errorf("id[%d] = %v, want %v", i, got, i)
		}
	}

	lactive, ok := field.TryGetVarying[bool](lg.Varying, "active", activeTyp)
	if !ok {
		t.Fatal("loaded group is missing field \"active\"")
	}
	for i := 0; i < 3; i++ {
		if got := lactive.Get(i).At(0); got != (i%2 == 0) {
			t.Errorf("active[%d] = %v, want %v", i, got, i%2 == 0)
		}
	}

	lgrav, ok := field.TryGetUniform[float64](loaded.Global, "gravity", gravTyp)
	if !ok {
		t.Fatal("loaded model is missing global field \"gravity\"")
	}
	if got := lgrav.Get(0).At(0); got != -9.81 {
		t.Errorf("gravity = %v, want -9.81", got)
	}
}

func TestLoadRejectsTruncatedStream(t *testing.T) {
	m := model.NewModel()
	g, _ := m.AddGroup("fluid", "fluid")
	massTyp := tensor.TensorType{Component: tensor.F64}
	mass, _ := field.AddVarying[float64](g.Varying, "m", massTyp)
	lo, _ := g.Varying.CreateItems(2)
	mass.Set(lo, tensor.Scalar(1.0))
	mass.Set(lo+1, tensor.Scalar(2.0))

	var buf bytes.Buffer
	if err := Save(&buf, m); err != nil {
		t.Fatalf("Save: %v", err)
	}

	truncated := bytes.NewReader(buf.Bytes()[:buf.Len()-4])
	if _, err := Load(truncated); err == nil {
		t.Fatal("Load on a truncated stream succeeded, want an error")
	}
}
