package grid

import (
	"testing"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

func posType(dims int) tensor.TensorType {
	return tensor.TensorType{Component: tensor.F64, Shape: tensor.Shape{dims}}
}

func setPosition(g *model.Group, i int, coords ...float64) {
	span, _ := field.TryGetVarying[float64](g.Varying, "position", posType(len(coords)))
	span.Set(i, tensor.FromSlice[float64](tensor.Shape{len(coords)}, coords))
}

func neighborSet(t *testing.T, g *Grid, m *model.Model, group model.GroupIndex, index int) map[[2]int]bool {
	t.Helper()
	out := make(map[[2]int]bool)
	g.Neighbors(m, group, index, func(og model.GroupIndex, oi int) {
		if og == group && oi == index {
			return
		}
		out[[2]int{int(og), oi}] = true
	})
	return out
}

func TestNeighborsUnitCubePairs(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	field.AddVarying[float64](fluid.Varying, "position", posType(3))
	fluid.Varying.CreateItems(4)

	setPosition(fluid, 0, 0, 0, 0)
	setPosition(fluid, 1, 0.1, 0, 0)
	setPosition(fluid, 2, 1, 0, 0)
	setPosition(fluid, 3, 1.1, 0, 0)

	g := New(0.2, 3, "position")
	g.Update(m)

	got0 := neighborSet(t, g, m, fluid.Index, 0)
	want0 := map[[2]int]bool{{int(fluid.Index), 1}: true}
	if len(got0) != len(want0) || !got0[[2]int{int(fluid.Index), 1}] {
		t.Errorf("neighbors of particle 0 = %v, want %v", got0, want0)
	}

	got2 := neighborSet(t, g, m, fluid.Index, 2)
	want2 := map[[2]int]bool{{int(fluid.Index), 3}: true}
	if len(got2) != len(want2) || !got2[[2]int{int(fluid.Index), 3}] {
		t.Errorf("neighbors of particle 2 = %v, want %v", got2, want2)
	}
}

func TestNeighborsUnitCubeCorners(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	field.AddVarying[float64](fluid.Varying, "position", posType(3))
	fluid.Varying.CreateItems(8)

	corner := 0
	for x := 0.0; x <= 1; x++ {
		for y := 0.0; y <= 1; y++ {
			for z := 0.0; z <= 1; z++ {
				setPosition(fluid, corner, x, y, z)
				corner++
			}
		}
	}

	g := New(1.74, 3, "position")
	g.Update(m)

	for i := 0; i < 8; i++ {
		got := neighborSet(t, g, m, fluid.Index, i)
		if len(got) != 7 {
			t.Errorf("particle %d has %d neighbors, want 7 (got %v)", i, len(got), got)
		}
	}
}

func TestNeighborsEmptyRadiusZero(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	field.AddVarying[float64](fluid.Varying, "position", posType(3))
	fluid.Varying.CreateItems(2)
	setPosition(fluid, 0, 0, 0, 0)
	setPosition(fluid, 1, 0, 0, 0)

	g := New(0, 3, "position")
	g.Update(m)

	got := neighborSet(t, g, m, fluid.Index, 0)
	if len(got) != 0 {
		t.Errorf("expected no neighbors with R=0, got %v", got)
	}
}

func TestComputeGroupPermutationIsPermutation(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	field.AddVarying[float64](fluid.Varying, "position", posType(3))
	fluid.Varying.CreateItems(5)
	for i := 0; i < 5; i++ {
		setPosition(fluid, i, float64(4-i), 0, 0)
	}

	g := New(0.5, 3, "position")
	g.Update(m)

	perm := g.ComputeGroupPermutation(fluid.Index)
	if len(perm) != 5 {
		t.Fatalf("permutation length = %d, want 5", len(perm))
	}
	seen := make(map[int]bool)
	for _, p := range perm {
		if p < 0 || p >= 5 || seen[p] {
			t.Fatalf("permutation %v is not a valid bijection on [0,5)", perm)
		}
		seen[p] = true
	}
}

// A group tagged cannot_be_neighbor is excluded from the cell index
// entirely: its particles can still query their own neighborhoods
// (falling back to a positional lookup), but no indexed particle will
// ever see them as a neighbor, since that is exactly what the tag means.
func TestCannotBeNeighborTagExcludesGroup(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	field.AddVarying[float64](fluid.Varying, "position", posType(3))
	fluid.Varying.CreateItems(1)
	setPosition(fluid, 0, 0, 0, 0)

	boundary, _ := m.AddGroup("boundary", "boundary")
	boundary.AddTag(cannotBeNeighborTag)
	field.AddVarying[float64](boundary.Varying, "position", posType(3))
	boundary.Varying.CreateItems(1)
	setPosition(boundary, 0, 0.05, 0, 0)

	g := New(0.2, 3, "position")
	g.Update(m)

	fluidNeighbors := neighborSet(t, g, m, fluid.Index, 0)
	if fluidNeighbors[[2]int{int(boundary.Index), 0}] {
		t.Errorf("a cannot_be_neighbor group must never appear in another particle's neighbor set, got %v", fluidNeighbors)
	}

	boundaryNeighbors := neighborSet(t, g, m, boundary.Index, 0)
	if !boundaryNeighbors[[2]int{int(fluid.Index), 0}] {
		t.Errorf("a cannot_be_neighbor particle should still find indexed neighbors of its own, got %v", boundaryNeighbors)
	}
}
