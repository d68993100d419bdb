// Package raytrace implements the sphere tracer auxiliary to the
// simulation core (spec.md §4.9): given a camera and the particle
// cloud of every "visible"-tagged group, it marches each pixel's ray
// along the signed-distance field induced by an aggregate cubic
// spline kernel density, falling back to a conservative cell-envelope
// distance estimate until the ray is near the surface. Not part of
// the simulation's correctness contract; it exists to exercise the
// neighborhood grid's position-based (non-particle) query mode.
package raytrace

import (
	"math"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/internal/workpool"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

const visibleTag = "visible"

// Image is a dense width x height buffer of per-pixel intensities.
type Image struct {
	Width, Height int
	Intensity     []float64
}

// At returns the intensity at (ix, iy).
func (im *Image) At(ix, iy int) float64 { return im.Intensity[iy*im.Width+ix] }

func (im *Image) set(ix, iy int, v float64) { im.Intensity[iy*im.Width+ix] = v }

// Tracer renders a Model's "visible"-tagged groups from a Camera using
// sphere tracing over an aggregate kernel-density surface.
type Tracer struct {
	Camera *Camera
	Dims   int

	// H is the SPH smoothing length the tracer's scales derive from:
	// Trace uses a grid radius of 4H and evaluates the cubic spline
	// kernel with smoothing length 2H, whose support radius is also 4H.
	H         float64
	PosField  string
	Threshold float64
	MaxSteps  int

	Pool *workpool.Pool
}

// NewTracer constructs a Tracer with the original implementation's
// defaults (Threshold 0.5, MaxSteps 300).
func NewTracer(cam *Camera, dims int, h float64, posField string, pool *workpool.Pool) *Tracer {
	return &Tracer{
		Camera:    cam,
		Dims:      dims,
		H:         h,
		PosField:  posField,
		Threshold: 0.5,
		MaxSteps:  300,
		Pool:      pool,
	}
}

// Trace renders m into an Image the size of the camera's sensor.
func (t *Tracer) Trace(m *model.Model) *Image {
	cellRadius := 4 * t.H
	view := visibleOnly(m, t.Dims, t.PosField)
	g := grid.New(cellRadius, t.Dims, t.PosField)
	g.Update(view)

	rays := t.Camera.Cast()
	maxParameter := cellRadius * 10000
	results := make([]float64, len(rays))

	t.Pool.For(len(rays), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			results[i] = t.traceRay(view, g, cellRadius, maxParameter, rays[i])
		}
	})

	im := &Image{Width: t.Camera.Width, Height: t.Camera.Height, Intensity: make([]float64, t.Camera.Width*t.Camera.Height)}
	for i, r := range rays {
		im.set(r.X, r.Y, results[i])
	}
	return im
}

// visibleOnly returns a shallow model view containing only the groups
// tagged "visible" with a position field of the right shape, the same
// filter the original's Trace applies before building its grid.
func visibleOnly(m *model.Model, dims int, posField string) *model.Model {
	view := model.NewModel()
	typ := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{dims}}
	for _, src := range m.Groups() {
		if !src.HasTag(visibleTag) {
			continue
		}
		if _, ok := field.TryGetVarying[float64](src.Varying, posField, typ); !ok {
			continue
		}
		dst, _ := view.AddGroup(src.Name, src.Type)
		dst.AddTag(visibleTag)
		pos, _ := field.TryGetVarying[float64](src.Varying, posField, typ)
		dstPos, _ := field.AddVarying[float64](dst.Varying, posField, typ)
		lo, _ := dst.Varying.CreateItems(src.Len())
		for i := 0; i < src.Len(); i++ {
			dstPos.Set(lo+i, pos.Get(i))
		}
	}
	return view
}

// traceRay marches ray.origin + parameter*ray.direction along the
// signed-distance field until it crosses the surface or exceeds
// maxParameter, returning a shaded intensity (the dot of the ray
// direction against the estimated surface normal) or 0 for a miss.
func (t *Tracer) traceRay(m *model.Model, g *grid.Grid, cellDiameter, maxParameter float64, ray Ray) float64 {
	lipschitz := kernelLipschitz(cellDiameter/2, t.Dims)

	var normal tensor.Tensor[float64]
	parameter := 0.0
	steps := 0
	for ; steps < t.MaxSteps; steps++ {
		rayX := tensor.Add(ray.Origin, tensor.Scale(ray.Direction, parameter))

		sdf := cellEnvelopeSDF(g, rayX, cellDiameter)

		if sdf < cellDiameter {
			phi, grad, count := t.kernelDeficit(m, g, rayX, cellDiameter/2)
			if count > 0 {
				phi /= lipschitz * float64(count)
				normal = tensor.Scale(grad, 1/(lipschitz*float64(count)))
				if phi > sdf {
					sdf = phi
				}
			} else if cellDiameter/4 > sdf {
				sdf = cellDiameter / 4
			}
		}

		if sdf < 1e-6 {
			break
		}
		parameter += sdf
		if parameter >= maxParameter {
			break
		}
	}

	if steps >= t.MaxSteps || parameter >= maxParameter {
		return 0
	}
	if normal.Len() == 0 || tensor.Norm(normal) < 1e-12 {
		return 0.3
	}
	return -tensor.Dot(tensor.Normalized(ray.Direction, 1e-12), tensor.Normalized(normal, 1e-12))
}

// kernelDeficit evaluates the aggregate cubic spline kernel density
// at x against every particle within the grid radius 2h of x (using the grid's
// exact position-based neighbor query), returning the threshold-minus-
// weight sum, its gradient, and how many neighbors contributed.
func (t *Tracer) kernelDeficit(m *model.Model, g *grid.Grid, x tensor.Tensor[float64], h float64) (phi float64, grad tensor.Tensor[float64], count int) {
	phi = t.Threshold * kernelEval(0, h, t.Dims)
	grad = tensor.New[float64](tensor.Shape{t.Dims})

	g.NeighborsAt(m, x, func(gi model.GroupIndex, idx int) {
		grp := m.Group(gi)
		pos, ok := field.TryGetVarying[float64](grp.Varying, t.PosField, tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{t.Dims}})
		if !ok {
			return
		}
		diff := tensor.Sub(x, pos.Get(idx))
		r := tensor.Norm(diff)
		w := kernelEval(r, h, t.Dims)
		if w <= 0 {
			return
		}
		phi -= w
		var diffArr [3]float64
		for d := 0; d < t.Dims; d++ {
			diffArr[d] = diff.At(d)
		}
		g3 := kernelGrad(diffArr, h, t.Dims)
		for d := 0; d < t.Dims; d++ {
			grad.Set(d, grad.At(d)-g3[d])
		}
		count++
	})
	return phi, grad, count
}

// cellEnvelopeSDF returns a conservative lower bound on x's distance
// to the nearest occupied grid cell's envelope box (half-extent
// cellDiameter/2), the coarse first-phase estimate that lets the
// tracer skip empty space quickly before falling back to the exact
// kernel-density phase near the surface.
func cellEnvelopeSDF(g *grid.Grid, x tensor.Tensor[float64], cellDiameter float64) float64 {
	half := cellDiameter / 2
	best := math.Inf(1)
	for _, center := range g.CellCenters() {
		maxComp := math.Inf(-1)
		sumSq := 0.0
		for d := 0; d < center.Len(); d++ {
			q := math.Abs(x.At(d)-center.At(d)) - half
			if q > maxComp {
				maxComp = q
			}
			if q > 0 {
				sumSq += q * q
			}
		}
		l := math.Sqrt(sumSq) + math.Min(maxComp, 0)
		if l < best {
			best = l
		}
	}
	if math.IsInf(best, 1) {
		return cellDiameter
	}
	return best
}
