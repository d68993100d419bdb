package raytrace

import (
	"testing"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/internal/workpool"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

func vec3(x, y, z float64) tensor.Tensor[float64] {
	v := tensor.New[float64](tensor.Shape{3})
	v.Set(0, x)
	v.Set(1, y)
	v.Set(2, z)
	return v
}

func TestTraceHitsAVisibleParticleCluster(t *testing.T) {
	m := model.NewModel()
	g, _ := m.AddGroup("fluid", "fluid")
	g.AddTag("visible")

	typ := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{3}}
	pos, _ := field.AddVarying[float64](g.Varying, "x", typ)
	lo, _ := g.Varying.CreateItems(27)
	idx := lo
	for ix := -1; ix <= 1; ix++ {
		for iy := -1; iy <= 1; iy++ {
			for iz := -1; iz <= 1; iz++ {
				pos.Set(idx, vec3(float64(ix)*0.05, float64(iy)*0.05, float64(iz)*0.05))
				idx++
			}
		}
	}

	cam := NewCamera(vec3(0, 0, 5), vec3(0, 0, -1), vec3(0, 1, 0), 10.0, 16, 16)
	tracer := NewTracer(cam, 3, 0.1, "x", workpool.New(0))

	im := tracer.Trace(m)
	if im.Width != 16 || im.Height != 16 {
		t.Fatalf("Image size = %dx%d, want 16x16", im.Width, im.Height)
	}

	hit := false
	for iy := 0; iy < im.Height; iy++ {
		for ix := 0; ix < im.Width; ix++ {
			if im.At(ix, iy) != 0 {
				hit = true
			}
		}
	}
	if !hit {
		t.Error("expected at least one ray to hit the particle cluster, got an all-zero image")
	}
}

func TestTraceMissesAnEmptyModel(t *testing.T) {
	m := model.NewModel()
	m.AddGroup("fluid", "fluid")

	cam := NewCamera(vec3(0, 0, 5), vec3(0, 0, -1), vec3(0, 1, 0), 2.0, 4, 4)
	tracer := NewTracer(cam, 3, 0.1, "x", workpool.New(0))

	im := tracer.Trace(m)
	for iy := 0; iy < im.Height; iy++ {
		for ix := 0; ix < im.Width; ix++ {
			if im.At(ix, iy) != 0 {
				t.Errorf("pixel (%d,%d) = %v, want 0 for an empty model", ix, iy, im.At(ix, iy))
			}
		}
	}
}
