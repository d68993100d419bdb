package field

import (
	"fmt"
	"regexp"

	"github.com/prtcl-go/prtcl/tensor"
)

var identifierRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name matches [A-Za-z][A-Za-z0-9_]*.
func ValidIdentifier(name string) bool {
	return identifierRE.MatchString(name)
}

// VaryingManager owns an ordered name -> Collection mapping where every
// field has the same item count (one value per particle). Structural
// mutation (add/remove/resize/permute) sets a dirty flag the driver
// clears explicitly after reacting.
type VaryingManager struct {
	order  []string
	fields map[string]Collection
	n      int
	dirty  bool
}

// NewVaryingManager constructs an empty manager.
func NewVaryingManager() *VaryingManager {
	return &VaryingManager{fields: make(map[string]Collection)}
}

// Len returns the number of items every field in the manager holds.
func (m *VaryingManager) Len() int { return m.n }

// Names returns field names in addition order.
func (m *VaryingManager) Names() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Has reports whether a field with the given name exists.
func (m *VaryingManager) Has(name string) bool {
	_, ok := m.fields[name]
	return ok
}

// TryGetCollection returns the type-erased handle for name, if present.
func (m *VaryingManager) TryGetCollection(name string) (Collection, bool) {
	c, ok := m.fields[name]
	return c, ok
}

// Remove deletes a field by name. No-op if it does not exist.
func (m *VaryingManager) Remove(name string) {
	if _, ok := m.fields[name]; !ok {
		return
	}
	delete(m.fields, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.dirty = true
}

// Dirty reports whether a structural mutation has occurred since the
// last ClearDirty.
func (m *VaryingManager) Dirty() bool { return m.dirty }

// ClearDirty resets the dirty flag.
func (m *VaryingManager) ClearDirty() { m.dirty = false }

// ResizeItems grows or shrinks every field in the manager to n items.
func (m *VaryingManager) ResizeItems(n int) {
	if n == m.n {
		return
	}
	for _, name := range m.order {
		m.fields[name].Resize(n)
	}
	m.n = n
	m.dirty = true
}

// PermuteItems applies perm (a permutation of [0, Len())) to every
// field: new[i] = old[perm[i]].
func (m *VaryingManager) PermuteItems(perm []int) {
	if len(perm) != m.n {
		panic("field: permutation length does not match item count")
	}
	for _, name := range m.order {
		m.fields[name].Permute(perm)
	}
	m.dirty = true
}

// CreateItems grows the manager by count items, returning the
// [lo, hi) range of newly allocated indices.
func (m *VaryingManager) CreateItems(count int) (lo, hi int) {
	lo = m.n
	hi = lo + count
	m.ResizeItems(hi)
	return lo, hi
}

// DestroyItems removes the given item indices: it computes the set
// difference with [0, Len()) in order, concatenates the destroyed
// indices at the tail, applies the resulting permutation to every
// field, then shrinks the manager by the number of distinct indices
// destroyed. A no-op for an empty index set.
func (m *VaryingManager) DestroyItems(indices []int) {
	if len(indices) == 0 {
		return
	}
	destroyed := make(map[int]bool, len(indices))
	for _, idx := range indices {
		destroyed[idx] = true
	}
	perm := make([]int, 0, m.n)
	for i := 0; i < m.n; i++ {
		if !destroyed[i] {
			perm = append(perm, i)
		}
	}
	kept := len(perm)
	for i := 0; i < m.n; i++ {
		if destroyed[i] {
			perm = append(perm, i)
		}
	}
	m.PermuteItems(perm)
	m.ResizeItems(kept)
}

func addField[T tensor.Component](m *VaryingManager, name string, typ tensor.TensorType) (TypedSpan[T], error) {
	if !ValidIdentifier(name) {
		return TypedSpan[T]{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	if existing, ok := m.fields[name]; ok {
		if !existing.Type().Equal(typ) {
			return TypedSpan[T]{}, fmt.Errorf("%w: %q has type %v, requested %v", ErrFieldOfDifferentType, name, existing.Type(), typ)
		}
		span, ok := AsTyped[T](existing, typ)
		if !ok {
			return TypedSpan[T]{}, fmt.Errorf("%w: %q has type %v, requested %v", ErrFieldOfDifferentType, name, existing.Type(), typ)
		}
		return span, nil
	}
	f := NewField[T](typ)
	f.Resize(m.n)
	m.fields[name] = f
	m.order = append(m.order, name)
	m.dirty = true
	return TypedSpan[T]{f: f}, nil
}

// AddVarying adds a varying field of the given tensor type, or returns
// a span onto the existing field of the same name if its TensorType
// matches (idempotent re-declaration, as the DSL loader requires).
// Fails with ErrFieldOfDifferentType if an existing field's type
// differs, or ErrInvalidIdentifier if name is not a valid identifier.
func AddVarying[T tensor.Component](m *VaryingManager, name string, typ tensor.TensorType) (TypedSpan[T], error) {
	return addField[T](m, name, typ)
}

// TryGetVarying returns a typed span onto an existing varying field,
// or an invalid span if it does not exist or has a different type.
func TryGetVarying[T tensor.Component](m *VaryingManager, name string, typ tensor.TensorType) (TypedSpan[T], bool) {
	c, ok := m.fields[name]
	if !ok {
		return TypedSpan[T]{}, false
	}
	return AsTyped[T](c, typ)
}

// UniformManager owns an ordered name -> Collection mapping where every
// field holds exactly one value (a group's or model's globals).
// Structurally a VaryingManager pinned to length 1.
type UniformManager struct {
	inner *VaryingManager
}

// NewUniformManager constructs an empty manager.
func NewUniformManager() *UniformManager {
	return &UniformManager{inner: NewVaryingManager()}
}

// Names returns field names in addition order.
func (m *UniformManager) Names() []string { return m.inner.Names() }

// Has reports whether a field with the given name exists.
func (m *UniformManager) Has(name string) bool { return m.inner.Has(name) }

// TryGetCollection returns the type-erased handle for name, if present.
func (m *UniformManager) TryGetCollection(name string) (Collection, bool) {
	return m.inner.TryGetCollection(name)
}

// Remove deletes a field by name.
func (m *UniformManager) Remove(name string) { m.inner.Remove(name) }

// Dirty reports whether a structural mutation has occurred since the
// last ClearDirty.
func (m *UniformManager) Dirty() bool { return m.inner.Dirty() }

// ClearDirty resets the dirty flag.
func (m *UniformManager) ClearDirty() { m.inner.ClearDirty() }

// AddUniform adds a uniform field of the given tensor type (length 1),
// or returns a span onto the existing field if its TensorType matches.
func AddUniform[T tensor.Component](m *UniformManager, name string, typ tensor.TensorType) (TypedSpan[T], error) {
	if !m.inner.Has(name) {
		// A brand new uniform field starts life at length 0 in the
		// shared VaryingManager machinery; pin it to exactly 1 item.
		span, err := addField[T](m.inner, name, typ)
		if err != nil {
			return span, err
		}
		m.inner.fields[name].Resize(1)
		return span, nil
	}
	return addField[T](m.inner, name, typ)
}

// TryGetUniform returns a typed span onto an existing uniform field.
func TryGetUniform[T tensor.Component](m *UniformManager, name string, typ tensor.TensorType) (TypedSpan[T], bool) {
	return TryGetVarying[T](m.inner, name, typ)
}
