package model

import (
	"errors"
	"testing"
)

func TestAddGroupIdempotent(t *testing.T) {
	m := NewModel()
	a, err := m.AddGroup("fluid", "sph-fluid")
	if err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	b, err := m.AddGroup("fluid", "sph-fluid")
	if err != nil {
		t.Fatalf("AddGroup (re-add): %v", err)
	}
	if a != b {
		t.Error("re-adding a group with matching type should return the same *Group")
	}
}

func TestAddGroupTypeMismatch(t *testing.T) {
	m := NewModel()
	if _, err := m.AddGroup("fluid", "sph-fluid"); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	_, err := m.AddGroup("fluid", "sph-boundary")
	if !errors.Is(err, ErrGroupOfDifferentType) {
		t.Errorf("expected ErrGroupOfDifferentType, got %v", err)
	}
}

func TestGroupIndexStableAcrossRemoval(t *testing.T) {
	m := NewModel()
	fluid, _ := m.AddGroup("fluid", "sph-fluid")
	boundary, _ := m.AddGroup("boundary", "sph-boundary")

	fluidIdx := fluid.Index
	boundaryIdx := boundary.Index

	m.RemoveGroup("fluid")

	if m.Group(fluidIdx) != nil {
		t.Error("removed group should no longer be resolvable")
	}
	if g := m.Group(boundaryIdx); g == nil || g.Name != "boundary" {
		t.Error("boundary's GroupIndex should remain valid after fluid is removed")
	}

	// Re-adding a brand new group must not reuse the tombstoned index.
	rock, _ := m.AddGroup("rock", "sph-boundary")
	if rock.Index == fluidIdx {
		t.Error("a tombstoned GroupIndex must not be reused")
	}
}

func TestGroupsSkipsTombstones(t *testing.T) {
	m := NewModel()
	m.AddGroup("fluid", "sph-fluid")
	m.AddGroup("boundary", "sph-boundary")
	m.RemoveGroup("fluid")

	groups := m.Groups()
	if len(groups) != 1 || groups[0].Name != "boundary" {
		t.Errorf("Groups() = %v, want just [boundary]", groups)
	}
}

func TestGroupsWithTag(t *testing.T) {
	m := NewModel()
	fluid, _ := m.AddGroup("fluid", "sph-fluid")
	boundary, _ := m.AddGroup("boundary", "sph-boundary")
	fluid.AddTag("dynamic")
	boundary.AddTag("cannot_be_neighbor")

	dyn := m.GroupsWithTag("dynamic")
	if len(dyn) != 1 || dyn[0].Name != "fluid" {
		t.Errorf("GroupsWithTag(dynamic) = %v, want [fluid]", dyn)
	}
}

func TestModelDirtyAggregatesGroups(t *testing.T) {
	m := NewModel()
	g, _ := m.AddGroup("fluid", "sph-fluid")
	m.ClearDirty()
	if m.Dirty() {
		t.Fatal("freshly cleared model should not be dirty")
	}

	g.Varying.CreateItems(1)
	if !m.Dirty() {
		t.Error("mutating a group's varying manager should mark the model dirty")
	}
	m.ClearDirty()
	if m.Dirty() {
		t.Error("ClearDirty should clear every group's dirty flag")
	}
}

func TestGroupByNameMissing(t *testing.T) {
	m := NewModel()
	if _, ok := m.GroupByName("nope"); ok {
		t.Error("expected GroupByName to fail for missing group")
	}
}
