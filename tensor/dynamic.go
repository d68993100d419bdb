package tensor

import "fmt"

// Dynamic is a tensor whose shape and component type are carried at
// runtime rather than as a Go type parameter. It is used only at the
// model/user boundary — setting a global from parsed configuration or
// DSL source, where the concrete (T, Shape) pair is not known until the
// value is read.
type Dynamic struct {
	typ  TensorType
	data []float64
}

// NewDynamic builds a Dynamic tensor of the given type, zero-initialized.
func NewDynamic(typ TensorType) Dynamic {
	return Dynamic{typ: typ, data: make([]float64, typ.Shape.ComponentCount())}
}

// Type returns the dynamic tensor's TensorType.
func (d Dynamic) Type() TensorType { return d.typ }

// Get returns the component at a flat row-major index as a float64,
// regardless of the underlying component type (bool is 0/1).
func (d Dynamic) Get(i int) float64 { return d.data[i] }

// Set assigns the component at a flat row-major index.
func (d Dynamic) Set(i int, v float64) { d.data[i] = v }

// Len returns the number of scalar components.
func (d Dynamic) Len() int { return len(d.data) }

// ToFixed converts a Dynamic tensor to a concretely-typed Tensor[T],
// failing if the requested ComponentType/Shape does not match.
func ToFixed[T Component](d Dynamic, want TensorType) (Tensor[T], error) {
	if !d.typ.Equal(want) {
		return Tensor[T]{}, fmt.Errorf("tensor: dynamic tensor has type %v, want %v", d.typ, want)
	}
	out := New[T](want.Shape)
	for i, v := range d.data {
		out.data[i] = T(v)
	}
	return out, nil
}

// FromFixed builds a Dynamic tensor from a concretely-typed Tensor[T].
func FromFixed[T Component](t Tensor[T], ct ComponentType) Dynamic {
	d := Dynamic{typ: TensorType{Component: ct, Shape: t.shape}, data: make([]float64, len(t.data))}
	for i, v := range t.data {
		d.data[i] = ToFloat64(v)
	}
	return d
}

// ToFloat64 converts any Component value to its float64 representation
// (bool as 0/1), for the dynamic/type-erased boundary.
func ToFloat64[T Component](v T) float64 {
	switch x := any(v).(type) {
	case bool:
		if x {
			return 1
		}
		return 0
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// FromFloat64 converts a float64 representation back to a Component
// value (nonzero is true for bool).
func FromFloat64[T Component](v float64) T {
	var zero T
	switch any(zero).(type) {
	case bool:
		return any(v != 0).(T)
	case int32:
		return any(int32(v)).(T)
	case int64:
		return any(int64(v)).(T)
	case float32:
		return any(float32(v)).(T)
	case float64:
		return any(v).(T)
	default:
		return zero
	}
}
