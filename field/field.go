// Package field implements the type-erased per-particle and per-group
// tensor storage the simulation data model is built on: varying fields
// (one tensor per particle) and uniform fields (one tensor per group,
// implemented as a varying field of length 1).
package field

import "github.com/prtcl-go/prtcl/tensor"

// Collection is the non-generic handle external code (serialization,
// introspection, DSL-driven field creation) uses to manipulate a field
// without knowing its concrete component type. Typed callers instead
// obtain a TypedSpan via AsTyped once they have verified the TensorType.
type Collection interface {
	// Type returns the field's (ComponentType, Shape) identity.
	Type() tensor.TensorType
	// Len returns the number of items (particles, or 1 for uniform).
	Len() int
	// GetComponent returns the comp-th scalar component of item i as a
	// float64 (bool as 0/1).
	GetComponent(item, comp int) float64
	// SetComponent assigns the comp-th scalar component of item i.
	SetComponent(item, comp int, v float64)
	// Resize grows or shrinks the field to n items. New items are
	// zero-initialized.
	Resize(n int)
	// Permute reorders items so that the element at source position
	// perm[i] ends up at position i. The implementation may consume
	// and overwrite perm.
	Permute(perm []int)
}

// Field is the concrete, generically-typed storage backing a
// Collection: a flat row-major buffer of n items, each holding
// typ.Shape.ComponentCount() components of type T.
type Field[T tensor.Component] struct {
	typ  tensor.TensorType
	n    int
	data []T
}

// NewField constructs an empty field of the given tensor type.
func NewField[T tensor.Component](typ tensor.TensorType) *Field[T] {
	return &Field[T]{typ: typ}
}

// Type implements Collection.
func (f *Field[T]) Type() tensor.TensorType { return f.typ }

// Len implements Collection.
func (f *Field[T]) Len() int { return f.n }

func (f *Field[T]) compCount() int { return f.typ.Shape.ComponentCount() }

// GetComponent implements Collection.
func (f *Field[T]) GetComponent(item, comp int) float64 {
	return tensor.ToFloat64(f.data[item*f.compCount()+comp])
}

// SetComponent implements Collection.
func (f *Field[T]) SetComponent(item, comp int, v float64) {
	f.data[item*f.compCount()+comp] = tensor.FromFloat64[T](v)
}

// Resize implements Collection. Growing zero-initializes new items;
// shrinking discards the tail.
func (f *Field[T]) Resize(n int) {
	if n == f.n {
		return
	}
	cc := f.compCount()
	newData := make([]T, n*cc)
	copy(newData, f.data[:min(len(f.data), len(newData))])
	f.data = newData
	f.n = n
}

// Permute implements Collection. The permutation is applied
// out-of-place into a scratch buffer (the implementation is allowed to,
// but does not need to, consume/overwrite perm itself).
func (f *Field[T]) Permute(perm []int) {
	if len(perm) != f.n {
		panic("field: permutation length does not match item count")
	}
	cc := f.compCount()
	out := make([]T, len(f.data))
	for i, src := range perm {
		copy(out[i*cc:(i+1)*cc], f.data[src*cc:(src+1)*cc])
	}
	f.data = out
}

// Get returns item i as a concretely-typed tensor (a copy).
func (f *Field[T]) Get(i int) tensor.Tensor[T] {
	cc := f.compCount()
	data := make([]T, cc)
	copy(data, f.data[i*cc:(i+1)*cc])
	return tensor.FromSlice[T](f.typ.Shape, data)
}

// Set assigns item i from a concretely-typed tensor.
func (f *Field[T]) Set(i int, v tensor.Tensor[T]) {
	cc := f.compCount()
	copy(f.data[i*cc:(i+1)*cc], v.Raw())
}

// TypedSpan is a typed view over a Field, obtained via AsTyped after a
// TensorType check. It never reinterprets a mismatched buffer.
type TypedSpan[T tensor.Component] struct {
	f *Field[T]
}

// Len returns the number of items in the span.
func (s TypedSpan[T]) Len() int {
	if s.f == nil {
		return 0
	}
	return s.f.Len()
}

// Get returns item i.
func (s TypedSpan[T]) Get(i int) tensor.Tensor[T] { return s.f.Get(i) }

// Set assigns item i.
func (s TypedSpan[T]) Set(i int, v tensor.Tensor[T]) { s.f.Set(i, v) }

// Valid reports whether the span refers to storage (false for the
// zero value returned on a TensorType mismatch).
func (s TypedSpan[T]) Valid() bool { return s.f != nil }

// AsTyped downcasts a Collection to a TypedSpan[T], verifying that its
// stored TensorType matches want. On mismatch (either a different
// concrete Go type or shape) it returns an invalid, empty span rather
// than reinterpreting the underlying bytes.
func AsTyped[T tensor.Component](col Collection, want tensor.TensorType) (TypedSpan[T], bool) {
	f, ok := col.(*Field[T])
	if !ok || !f.typ.Equal(want) {
		return TypedSpan[T]{}, false
	}
	return TypedSpan[T]{f: f}, true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
