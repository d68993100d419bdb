// Package tensor implements the small, fixed-shape dense tensor algebra
// the simulation runtime operates on: scalars, vectors and matrices of
// rank 0, 1 or 2 with extents that are small (typically <= 3). Every
// operation is pure and runs in time proportional to the number of
// scalar components; there is no hidden state and no allocation beyond
// the result tensor.
package tensor

import "golang.org/x/exp/constraints"

// Numeric is the set of arithmetic component types a Tensor can carry.
// bool tensors exist (see ComponentType) but only as opaque storage —
// arithmetic is only ever defined over Numeric.
type Numeric interface {
	constraints.Integer | constraints.Float
}

// Component is the full set of types the type-erased field layer can
// store a Tensor of, per spec ComponentType = {bool, i32, i64, f32, f64}.
type Component interface {
	~bool | ~int32 | ~int64 | ~float32 | ~float64
}

// ComponentType identifies a Tensor's scalar component type at runtime,
// for the type-erased boundary (field.Collection, the DSL/parser, and
// serialization).
type ComponentType int

const (
	Invalid ComponentType = iota
	Bool
	I32
	I64
	F32
	F64
)

// String renders the component type the way diagnostics and .prtcl
// source dumps expect.
func (c ComponentType) String() string {
	switch c {
	case Bool:
		return "boolean"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "real"
	default:
		return "invalid"
	}
}

// Shape is an ordered sequence of non-negative extents. A nil or empty
// Shape denotes rank 0 (a scalar); a Shape with positive length but a
// zero extent anywhere is invalid.
type Shape []int

// Rank returns the number of axes.
func (s Shape) Rank() int { return len(s) }

// ComponentCount returns the number of scalar components: the product
// of extents, with the rank-0 convention that an empty Shape counts 1.
func (s Shape) ComponentCount() int {
	n := 1
	for _, e := range s {
		n *= e
	}
	return n
}

// Valid reports whether the shape is well-formed: every extent positive,
// rank at most 2, and each extent at most 3 (the runtime's "small
// tensor" contract — larger dynamic dimensionality is carried by
// Dynamic at the model boundary, not by this fixed-shape type).
func (s Shape) Valid() bool {
	if len(s) > 2 {
		return false
	}
	for _, e := range s {
		if e <= 0 || e > 3 {
			return false
		}
	}
	return true
}

// Equal reports whether two shapes have identical rank and extents.
func (s Shape) Equal(o Shape) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

// TensorType is a field's identity beyond its name: the pair of
// component type and shape. Two fields with the same name but
// different TensorType cannot coexist in a field manager.
type TensorType struct {
	Component ComponentType
	Shape     Shape
}

// Equal reports whether two tensor types describe the same storage.
func (t TensorType) Equal(o TensorType) bool {
	return t.Component == o.Component && t.Shape.Equal(o.Shape)
}

// Tensor is a small, dense, row-major tensor of rank 0 (scalar), 1
// (vector) or 2 (matrix). Shape mismatches between operands are a
// programmer error: operations on mismatched shapes panic rather than
// silently broadcasting, per the propagation policy for low-level
// tensor operations.
type Tensor[T Component] struct {
	shape Shape
	data  []T
}

// New constructs a zero-valued tensor of the given shape.
func New[T Component](shape Shape) Tensor[T] {
	if !shape.Valid() && len(shape) != 0 {
		panic("tensor: invalid shape")
	}
	return Tensor[T]{shape: shape, data: make([]T, shape.ComponentCount())}
}

// FromSlice builds a tensor from pre-computed row-major data. The slice
// is taken by reference, not copied.
func FromSlice[T Component](shape Shape, data []T) Tensor[T] {
	if len(data) != shape.ComponentCount() {
		panic("tensor: data length does not match shape")
	}
	return Tensor[T]{shape: shape, data: data}
}

// Scalar builds a rank-0 tensor holding a single value.
func Scalar[T Component](v T) Tensor[T] {
	return Tensor[T]{shape: nil, data: []T{v}}
}

// Shape returns the tensor's shape.
func (t Tensor[T]) Shape() Shape { return t.shape }

// Len returns the number of scalar components.
func (t Tensor[T]) Len() int { return len(t.data) }

// At returns the component at a flat row-major index.
func (t Tensor[T]) At(i int) T { return t.data[i] }

// Set assigns the component at a flat row-major index.
func (t Tensor[T]) Set(i int, v T) { t.data[i] = v }

// AtRC returns the component at (row, col) of a rank-2 tensor.
func (t Tensor[T]) AtRC(r, c int) T {
	cols := t.shape[1]
	return t.data[r*cols+c]
}

// SetRC assigns the component at (row, col) of a rank-2 tensor.
func (t Tensor[T]) SetRC(r, c int, v T) {
	cols := t.shape[1]
	t.data[r*cols+c] = v
}

// Raw exposes the underlying row-major buffer for callers that need
// direct access (the field package copies tensors into its storage
// through it). Mutating the returned slice mutates the tensor.
func (t Tensor[T]) Raw() []T { return t.data }

// Clone returns an independent copy.
func (t Tensor[T]) Clone() Tensor[T] {
	data := make([]T, len(t.data))
	copy(data, t.data)
	return Tensor[T]{shape: t.shape, data: data}
}

// Type returns this tensor's TensorType, given its ComponentType (the
// caller knows T statically; this is used when building a type-erased
// handle around a concretely-typed tensor).
func (t Tensor[T]) Type(c ComponentType) TensorType {
	return TensorType{Component: c, Shape: t.shape}
}

func mustSameShape[T Component](a, b Tensor[T]) {
	if !a.shape.Equal(b.shape) {
		panic("tensor: shape mismatch")
	}
}
