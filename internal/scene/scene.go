// Package scene loads a config.SceneConfig into a runtime model: it
// compiles each configured .prtcl scheme, registers it, and starts an
// HCP-lattice source for each configured seed group. cmd/prtclsim and
// cmd/prtclview both drive this same path so they build identical
// initial state from identical scene files.
package scene

import (
	"fmt"
	"os"

	"github.com/prtcl-go/prtcl/config"
	"github.com/prtcl-go/prtcl/interp"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/scheduler"
	"github.com/prtcl-go/prtcl/scheme"
	"github.com/prtcl-go/prtcl/source"
	"github.com/prtcl-go/prtcl/tensor"
)

// Bound pairs a loaded scheme with the procedures the main loop runs
// against it each tick, in declared order.
type Bound struct {
	Scheme     scheme.Scheme
	Procedures []string
}

// Load builds a fresh model and scheduler, seeds the model's groups
// with HCP-lattice sources, and compiles/loads every configured
// scheme against it.
func Load(cfg *config.Config, seed int64) (*model.Model, *scheduler.Scheduler, []Bound, error) {
	m := model.NewModel()
	sched := scheduler.New()
	dims := cfg.World.Dimensions

	if err := SeedGroups(cfg, m, sched, dims, seed); err != nil {
		return nil, nil, nil, err
	}
	bound, err := LoadSchemes(cfg, m, dims)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, sched, bound, nil
}

// SeedGroups creates one group per configured seed and starts an
// HCP-lattice source emitting into it.
func SeedGroups(cfg *config.Config, m *model.Model, sched *scheduler.Scheduler, dims int, seed int64) error {
	for i, sd := range cfg.Scene.Seeds {
		g, err := m.AddGroup(sd.Name, sd.Type)
		if err != nil {
			return fmt.Errorf("seed %q: %w", sd.Name, err)
		}
		for _, tag := range sd.Tags {
			g.AddTag(tag)
		}

		src := source.NewHCPLatticeSource(seed + int64(i))
		src.Group = g
		src.Dims = dims
		src.Center = tensor.FromSlice[float64](tensor.Shape{dims}, padTo(sd.Center, dims))
		src.Normal = tensor.FromSlice[float64](tensor.Shape{dims}, padTo(sd.Normal, dims))
		src.Velocity = tensor.FromSlice[float64](tensor.Shape{dims}, padTo(sd.Velocity, dims))
		src.Radius = sd.Radius
		src.H = cfg.Physics.SmoothingScale
		src.Rho0 = cfg.Physics.RestDensity
		src.Budget = sd.Budget
		src.JitterFraction = sd.Jitter
		src.Start(sched)
	}
	return nil
}

// LoadSchemes reads and compiles every configured .prtcl source,
// registers it under its scheme name, and loads it against m.
func LoadSchemes(cfg *config.Config, m *model.Model, dims int) ([]Bound, error) {
	registry := scheme.NewRegistry()
	var out []Bound
	for _, sc := range cfg.Scene.Schemes {
		src, err := os.ReadFile(sc.Source)
		if err != nil {
			return nil, fmt.Errorf("reading scheme %q: %w", sc.Source, err)
		}
		ctor := interp.NewConstructor(string(src), interp.Options{
			SchemeName: sc.Name,
			Dims:       dims,
			Tol:        cfg.Solver.Tolerance,
			MaxIter:    cfg.Solver.MaxIterations,
		})
		name := sc.Name
		if name == "" {
			name = sc.Source
		}
		registry.Register(name, ctor)
		inst, err := registry.Instantiate(name)
		if err != nil {
			return nil, fmt.Errorf("instantiating scheme %q: %w", name, err)
		}
		if err := inst.Load(m); err != nil {
			return nil, fmt.Errorf("loading scheme %q: %w", name, err)
		}
		out = append(out, Bound{Scheme: inst, Procedures: sc.Procedures})
	}
	return out, nil
}

// ParticleCount sums the live particle count across every group in m.
func ParticleCount(m *model.Model) int {
	n := 0
	for _, g := range m.Groups() {
		n += g.Len()
	}
	return n
}

// padTo right-pads or truncates v to exactly n components, so a scene
// config can omit trailing zero components of center/normal/velocity.
func padTo(v []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, v)
	return out
}
