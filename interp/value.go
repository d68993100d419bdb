package interp

import (
	"fmt"
	"math"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/tensor"
)

// value is the interpreter's runtime representation of a tensor: a
// flat row-major component buffer plus the shape it was produced with.
// Every expression evaluates to one, mirroring the way field.Collection
// exposes components as float64 regardless of declared component type.
type value struct {
	shape tensor.Shape
	data  []float64
}

func scalar(v float64) value { return value{data: []float64{v}} }

func zerosValue(shape tensor.Shape) value {
	return value{shape: shape, data: make([]float64, shape.ComponentCount())}
}

func (v value) clone() value {
	data := make([]float64, len(v.data))
	copy(data, v.data)
	return value{shape: v.shape, data: data}
}

// broadcastShape picks the non-scalar shape when exactly one operand
// is a scalar, matching the DSL's "scalar broadcasts" rule (spec.md §3).
func broadcastShape(l, r value) (tensor.Shape, error) {
	switch {
	case len(l.data) == 1 && len(r.data) != 1:
		return r.shape, nil
	case len(r.data) == 1 && len(l.data) != 1:
		return l.shape, nil
	case len(l.data) == len(r.data):
		return l.shape, nil
	default:
		return nil, fmt.Errorf("interp: shape mismatch (%d vs %d components)", len(l.data), len(r.data))
	}
}

func elementwise(l, r value, op func(a, b float64) float64) (value, error) {
	shape, err := broadcastShape(l, r)
	if err != nil {
		return value{}, err
	}
	n := shape.ComponentCount()
	if n == 0 {
		n = 1
	}
	out := value{shape: shape, data: make([]float64, n)}
	for i := 0; i < n; i++ {
		a := component(l, i)
		b := component(r, i)
		out.data[i] = op(a, b)
	}
	return out, nil
}

// component reads the i-th component of v, repeating its single
// component if v is a scalar being broadcast against a larger operand.
func component(v value, i int) float64 {
	if len(v.data) == 1 {
		return v.data[0]
	}
	return v.data[i]
}

func binaryOp(op string, l, r value) (value, error) {
	switch op {
	case "+":
		return elementwise(l, r, func(a, b float64) float64 { return a + b })
	case "-":
		return elementwise(l, r, func(a, b float64) float64 { return a - b })
	case "*":
		return elementwise(l, r, func(a, b float64) float64 { return a * b })
	case "/":
		return elementwise(l, r, func(a, b float64) float64 { return a / b })
	default:
		return value{}, fmt.Errorf("interp: unknown binary operator %q", op)
	}
}

func negate(v value) value {
	out := v.clone()
	for i := range out.data {
		out.data[i] = -out.data[i]
	}
	return out
}

// applyAssignOp folds rhs into cur per a compute/reduce assignment
// operator; "=" simply replaces cur.
func applyAssignOp(op string, cur, rhs value) (value, error) {
	switch op {
	case "=":
		return rhs.clone(), nil
	case "+=":
		return elementwise(cur, rhs, func(a, b float64) float64 { return a + b })
	case "-=":
		return elementwise(cur, rhs, func(a, b float64) float64 { return a - b })
	case "*=":
		return elementwise(cur, rhs, func(a, b float64) float64 { return a * b })
	case "/=":
		return elementwise(cur, rhs, func(a, b float64) float64 { return a / b })
	case "max=":
		return elementwise(cur, rhs, math.Max)
	case "min=":
		return elementwise(cur, rhs, math.Min)
	default:
		return value{}, fmt.Errorf("interp: unknown assignment operator %q", op)
	}
}

// dtypeComponentType maps a .prtcl surface dtype to the runtime's
// type-erased ComponentType; the DSL exposes only these three, a
// deliberate simplification of the full {bool,i32,i64,f32,f64} set
// spec.md §3 allows at the type-erased boundary.
func dtypeComponentType(d ast.Dtype) tensor.ComponentType {
	switch d {
	case ast.Integer:
		return tensor.I64
	case ast.Boolean:
		return tensor.Bool
	default:
		return tensor.F64
	}
}

// resolveType turns a parsed TypeExpr into a concrete TensorType,
// substituting dims for any bracket that was written empty ("[]").
func resolveType(te ast.TypeExpr, dims int) tensor.TensorType {
	shape := make(tensor.Shape, len(te.Extents))
	for i, e := range te.Extents {
		if te.RuntimeExtent[i] {
			shape[i] = dims
		} else {
			shape[i] = e
		}
	}
	return tensor.TensorType{Component: dtypeComponentType(te.Dtype), Shape: shape}
}
