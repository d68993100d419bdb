// Package source implements particle emitters: scheduler-driven
// callbacks that seed new particles into a model group over the
// course of a simulation, the counterpart to the teacher's animated
// resource field (systems/resource_field.go) but emitting discrete
// particles instead of updating a dense grid.
package source

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/scheduler"
	"github.com/prtcl-go/prtcl/tensor"
)

// Default field names an HCPLatticeSource writes on emission. A
// scheme can read these under whatever alias it declares them with,
// as long as the groups block names the same underlying field.
const (
	DefaultPosField   = "x"
	DefaultVelField   = "v"
	DefaultMassField  = "m"
	DefaultBirthField = "t_birth"
)

// HCPLatticeSource emits hexagonal-close-packed circular layers of
// particles into Group, aligned to the plane perpendicular to Normal,
// spaced sqrt(6)*H/3 apart along the flow direction so consecutive
// layers arrive at the SPH particle spacing the scheme expects.
type HCPLatticeSource struct {
	Group  *model.Group
	Dims   int
	Center tensor.Tensor[float64]
	Normal tensor.Tensor[float64] // flow direction; normalized internally
	// Velocity is the initial velocity stamped on every emitted
	// particle, and determines the layer-to-layer emission interval:
	// faster flow means layers must be emitted more often to keep the
	// sqrt(6)*H/3 spacing.
	Velocity tensor.Tensor[float64]
	Radius   float64
	H        float64
	Rho0     float64
	// Budget is the number of particles this source may still emit;
	// it is decremented as layers are emitted and the source stops
	// rescheduling itself once it reaches zero.
	Budget int

	PosField, VelField, MassField, BirthField string

	// JitterFraction perturbs each lattice point's in-plane position
	// by up to JitterFraction*H, using 3D OpenSimplex noise keyed on
	// the point's lattice coordinates and layer count so repeated
	// layers do not jitter identically.
	JitterFraction float64

	noise  opensimplex.Noise
	layers int
}

// NewHCPLatticeSource constructs a source with noise jitter seeded
// from seed; field names default to the package's DefaultXField
// constants.
func NewHCPLatticeSource(seed int64) *HCPLatticeSource {
	return &HCPLatticeSource{
		PosField:   DefaultPosField,
		VelField:   DefaultVelField,
		MassField:  DefaultMassField,
		BirthField: DefaultBirthField,
		noise:      opensimplex.New(seed),
	}
}

// layerInterval returns the time between successive layer emissions:
// the sqrt(6)*H/3 spacing divided by the flow speed.
func (s *HCPLatticeSource) layerInterval() float64 {
	speed := tensor.Norm(s.Velocity)
	if speed <= 0 {
		return math.Inf(1)
	}
	return math.Sqrt(6) * s.H / 3 / speed
}

// Start schedules the source's first emission. Subsequent emissions
// reschedule themselves from within emit as long as Budget remains.
func (s *HCPLatticeSource) Start(sched *scheduler.Scheduler) {
	if s.Budget <= 0 {
		return
	}
	sched.ScheduleAfter(s.layerInterval(), s.emit)
}

// basis returns two unit vectors orthogonal to Normal (and to each
// other), spanning the emission plane.
func (s *HCPLatticeSource) basis() (tensor.Tensor[float64], tensor.Tensor[float64]) {
	n := tensor.Normalized(s.Normal, 1e-9)
	ref := tensor.New[float64](tensor.Shape{s.Dims})
	ref.Set(0, 1)
	if math.Abs(tensor.Dot(n, ref)) > 0.9 {
		ref = tensor.New[float64](tensor.Shape{s.Dims})
		ref.Set(1, 1)
	}
	u := tensor.Normalized(tensor.Cross(n, ref), 1e-9)
	v := tensor.Cross(n, u)
	return u, v
}

// latticePoints returns the in-plane (x, y) offsets of every HCP
// lattice site within Radius of the emitter's center, spaced H apart.
func (s *HCPLatticeSource) latticePoints() [][2]float64 {
	spacing := s.H
	rowSpacing := spacing * math.Sqrt(3) / 2
	var pts [][2]float64
	maxRow := int(s.Radius/rowSpacing) + 1
	for row := -maxRow; row <= maxRow; row++ {
		y := float64(row) * rowSpacing
		offset := 0.0
		if row%2 != 0 {
			offset = spacing / 2
		}
		maxCol := int(s.Radius/spacing) + 2
		for col := -maxCol; col <= maxCol; col++ {
			x := float64(col)*spacing + offset
			if x*x+y*y <= s.Radius*s.Radius {
				pts = append(pts, [2]float64{x, y})
			}
		}
	}
	return pts
}

// emit creates one lattice layer's worth of particles (bounded by the
// remaining budget), then reschedules itself if any budget remains.
func (s *HCPLatticeSource) emit(sched *scheduler.Scheduler, now float64) {
	posTyp := tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{s.Dims}}
	velTyp := posTyp
	scalarTyp := tensor.TensorType{Component: tensor.F64}

	pos, _ := field.AddVarying[float64](s.Group.Varying, s.PosField, posTyp)
	vel, _ := field.AddVarying[float64](s.Group.Varying, s.VelField, velTyp)
	mass, _ := field.AddVarying[float64](s.Group.Varying, s.MassField, scalarTyp)
	birth, _ := field.AddVarying[float64](s.Group.Varying, s.BirthField, scalarTyp)

	pts := s.latticePoints()
	if len(pts) > s.Budget {
		pts = pts[:s.Budget]
	}
	u, v := s.basis()
	particleMass := math.Pow(s.H, float64(s.Dims)) * s.Rho0

	lo, _ := s.Group.Varying.CreateItems(len(pts))
	for i, p := range pts {
		jx, jy := s.jitter(p[0], p[1])
		offset := tensor.Add(tensor.Scale(u, p[0]+jx), tensor.Scale(v, p[1]+jy))
		position := tensor.Add(s.Center, offset)
		pos.Set(lo+i, position)
		vel.Set(lo+i, s.Velocity)
		mass.Set(lo+i, tensor.Scalar(particleMass))
		birth.Set(lo+i, tensor.Scalar(now))
	}
	s.Budget -= len(pts)
	s.layers++

	if s.Budget > 0 {
		sched.ScheduleAfter(s.layerInterval(), s.emit)
	}
}

// jitter samples 3D OpenSimplex noise at (x, y, layer) to perturb a
// lattice point's in-plane offset by up to JitterFraction*H.
func (s *HCPLatticeSource) jitter(x, y float64) (float64, float64) {
	if s.JitterFraction <= 0 {
		return 0, 0
	}
	amp := s.JitterFraction * s.H
	freq := 1 / s.H
	jx := s.noise.Eval3(x*freq, y*freq, float64(s.layers)) * amp
	jy := s.noise.Eval3(x*freq, y*freq, float64(s.layers)+1000) * amp
	return jx, jy
}
