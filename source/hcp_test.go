package source

import (
	"testing"

	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/scheduler"
	"github.com/prtcl-go/prtcl/tensor"
)

func vec3(x, y, z float64) tensor.Tensor[float64] {
	v := tensor.New[float64](tensor.Shape{3})
	v.Set(0, x)
	v.Set(1, y)
	v.Set(2, z)
	return v
}

func TestHCPLatticeSourceEmitsWithinBudget(t *testing.T) {
	m := model.NewModel()
	g, _ := m.AddGroup("fluid", "fluid")

	src := NewHCPLatticeSource(42)
	src.Group = g
	src.Dims = 3
	src.Center = vec3(0, 0, 0)
	src.Normal = vec3(0, 0, 1)
	src.Velocity = vec3(0, 0, 1)
	src.Radius = 0.3
	src.H = 0.1
	src.Rho0 = 1000
	src.Budget = 5

	sched := scheduler.New()
	src.Start(sched)
	if sched.Pending() != 1 {
		t.Fatalf("Pending = %d, want 1 scheduled emission", sched.Pending())
	}
	sched.Tick(src.layerInterval())

	if g.Len() == 0 {
		t.Fatal("expected particles to be emitted")
	}
	if g.Len() > 5 {
		t.Errorf("emitted %d particles, want at most the 5-particle budget", g.Len())
	}
	if src.Budget < 0 {
		t.Errorf("Budget went negative: %d", src.Budget)
	}

	massCol, ok := g.Varying.TryGetCollection(DefaultMassField)
	if !ok {
		t.Fatal("mass field was not declared")
	}
	wantMass := src.H * src.H * src.H * src.Rho0
	if got := massCol.GetComponent(0, 0); got != wantMass {
		t.Errorf("mass[0] = %v, want %v", got, wantMass)
	}
}

func TestHCPLatticeSourceStopsAtZeroBudget(t *testing.T) {
	m := model.NewModel()
	g, _ := m.AddGroup("fluid", "fluid")
	src := NewHCPLatticeSource(1)
	src.Group = g
	src.Dims = 3
	src.Center = vec3(0, 0, 0)
	src.Normal = vec3(0, 0, 1)
	src.Velocity = vec3(0, 0, 1)
	src.Radius = 1.0
	src.H = 0.1
	src.Rho0 = 1000
	src.Budget = 3

	sched := scheduler.New()
	src.Start(sched)
	for sched.Pending() > 0 && src.Budget > 0 {
		sched.Tick(src.layerInterval())
	}
	if src.Budget != 0 {
		t.Errorf("Budget = %d, want exactly exhausted", src.Budget)
	}
	if g.Len() != 3 {
		t.Errorf("total emitted = %d, want exactly the 3-particle budget", g.Len())
	}
}
