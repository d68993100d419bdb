// Package model implements the particle data model: groups of
// particles carrying uniform and varying tensor fields, collected
// under a model that also owns a manager of global uniform fields.
package model

import (
	"errors"
	"fmt"

	"github.com/prtcl-go/prtcl/field"
)

var (
	// ErrGroupOfDifferentType is returned by AddGroup when a group of
	// the given name already exists with a different type string.
	ErrGroupOfDifferentType = errors.New("model: group of different type already exists")

	// ErrGroupDoesNotExist names the missing-group error kind. No
	// function in this package returns it: GroupByName reports a
	// missing group with ok == false and Group returns nil.
	ErrGroupDoesNotExist = errors.New("model: group does not exist")
)

// GroupIndex identifies a group within a Model. It stays valid for
// the model's lifetime: RemoveGroup tombstones the slot rather than
// compacting, so indices handed out earlier (held by the neighborhood
// grid or a compiled scheme) never point at the wrong group.
type GroupIndex int

// Group owns a name, a type tag, a set of scheme-selection tags, and
// its own varying/uniform field managers.
type Group struct {
	Name    string
	Type    string
	Tags    map[string]struct{}
	Varying *field.VaryingManager
	Uniform *field.UniformManager
	Index   GroupIndex
}

func newGroup(name, typ string, idx GroupIndex) *Group {
	return &Group{
		Name:    name,
		Type:    typ,
		Tags:    make(map[string]struct{}),
		Varying: field.NewVaryingManager(),
		Uniform: field.NewUniformManager(),
		Index:   idx,
	}
}

// AddTag marks the group with a tag used by scheme selector matching.
func (g *Group) AddTag(tag string) { g.Tags[tag] = struct{}{} }

// RemoveTag clears a tag.
func (g *Group) RemoveTag(tag string) { delete(g.Tags, tag) }

// HasTag reports whether the group carries the given tag.
func (g *Group) HasTag(tag string) bool {
	_, ok := g.Tags[tag]
	return ok
}

// Len returns the number of particles currently in the group.
func (g *Group) Len() int { return g.Varying.Len() }

// Model owns an ordered sequence of groups plus a manager of global
// uniform fields shared by every scheme.
type Model struct {
	groups []*Group
	byName map[string]GroupIndex
	Global *field.UniformManager
}

// NewModel constructs an empty model.
func NewModel() *Model {
	return &Model{
		byName: make(map[string]GroupIndex),
		Global: field.NewUniformManager(),
	}
}

// AddGroup creates a group with the given name and type, or returns
// the existing group if name is already present with a matching type.
// Fails with ErrGroupOfDifferentType if an existing group's type
// string differs.
func (m *Model) AddGroup(name, typ string) (*Group, error) {
	if idx, ok := m.byName[name]; ok {
		g := m.groups[idx]
		if g == nil {
			idx2 := GroupIndex(len(m.groups))
			g = newGroup(name, typ, idx2)
			m.groups = append(m.groups, g)
			m.byName[name] = idx2
			return g, nil
		}
		if g.Type != typ {
			return nil, fmt.Errorf("%w: %q has type %q, requested %q", ErrGroupOfDifferentType, name, g.Type, typ)
		}
		return g, nil
	}

	idx := GroupIndex(len(m.groups))
	g := newGroup(name, typ, idx)
	m.groups = append(m.groups, g)
	m.byName[name] = idx
	return g, nil
}

// RemoveGroup deletes a group by name, tombstoning its GroupIndex
// rather than compacting the sequence so other live GroupIndex values
// stay valid.
func (m *Model) RemoveGroup(name string) {
	idx, ok := m.byName[name]
	if !ok {
		return
	}
	m.groups[idx] = nil
	delete(m.byName, name)
}

// Group returns the group at idx, or nil if the slot is out of range
// or tombstoned.
func (m *Model) Group(idx GroupIndex) *Group {
	if int(idx) < 0 || int(idx) >= len(m.groups) {
		return nil
	}
	return m.groups[idx]
}

// GroupByName looks up a live group by name.
func (m *Model) GroupByName(name string) (*Group, bool) {
	idx, ok := m.byName[name]
	if !ok {
		return nil, false
	}
	g := m.groups[idx]
	return g, g != nil
}

// Groups returns every live group, in index order, skipping tombstones.
func (m *Model) Groups() []*Group {
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		if g != nil {
			out = append(out, g)
		}
	}
	return out
}

// GroupsWithTag returns every live group carrying tag.
func (m *Model) GroupsWithTag(tag string) []*Group {
	var out []*Group
	for _, g := range m.groups {
		if g != nil && g.HasTag(tag) {
			out = append(out, g)
		}
	}
	return out
}

// Dirty reports whether any group or the global manager has a pending
// structural mutation.
func (m *Model) Dirty() bool {
	if m.Global.Dirty() {
		return true
	}
	for _, g := range m.groups {
		if g != nil && (g.Varying.Dirty() || g.Uniform.Dirty()) {
			return true
		}
	}
	return false
}

// ClearDirty clears the dirty flag on the global manager and every
// live group.
func (m *Model) ClearDirty() {
	m.Global.ClearDirty()
	for _, g := range m.groups {
		if g != nil {
			g.Varying.ClearDirty()
			g.Uniform.ClearDirty()
		}
	}
}
