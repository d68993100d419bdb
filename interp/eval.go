package interp

import (
	"fmt"
	"math"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/tensor"
)

// eval evaluates an expression node against the current scope.
func (c *execCtx) eval(e ast.Expr, s *scope) (value, error) {
	switch n := e.(type) {
	case ast.LiteralExpr:
		return scalar(n.Value), nil
	case ast.IdentExpr:
		if v, ok := s.locals[n.Name]; ok {
			return v, nil
		}
		if fr, ok := c.sch.globalFields[n.Name]; ok {
			col, _ := c.sch.model.Global.TryGetCollection(fr.name)
			return getValue(col, 0), nil
		}
		return value{}, fmt.Errorf("interp: undefined identifier %q", n.Name)
	case ast.FieldAccessExpr:
		col, item, _, err := c.resolveFieldAccess(s, n)
		if err != nil {
			return value{}, err
		}
		return getValue(col, item), nil
	case ast.UnaryExpr:
		x, err := c.eval(n.X, s)
		if err != nil {
			return value{}, err
		}
		if n.Op != "-" {
			return value{}, fmt.Errorf("interp: unknown unary operator %q", n.Op)
		}
		return negate(x), nil
	case ast.BinaryExpr:
		l, err := c.eval(n.Left, s)
		if err != nil {
			return value{}, err
		}
		r, err := c.eval(n.Right, s)
		if err != nil {
			return value{}, err
		}
		return binaryOp(n.Op, l, r)
	case ast.CallExpr:
		return c.evalCall(n, s)
	default:
		return value{}, fmt.Errorf("interp: unhandled expression node %T", e)
	}
}

// resolveFieldAccess maps an `alias[index]` field access onto the
// concrete Collection and item it names, consulting the role the
// bound group plays (via roleOfGroup) to find the alias's declared
// field name and storage.
func (c *execCtx) resolveFieldAccess(s *scope, fa ast.FieldAccessExpr) (field.Collection, int, tensor.TensorType, error) {
	g, ok := s.bindGroup[fa.Index]
	if !ok {
		return nil, 0, tensor.TensorType{}, fmt.Errorf("interp: undefined index binding %q", fa.Index)
	}
	role, ok := c.sch.roleOfGroup[g.Index]
	if !ok {
		return nil, 0, tensor.TensorType{}, fmt.Errorf("interp: group %q has no scheme role", g.Name)
	}
	decl := c.sch.groupDecls[role]
	fr, ok := decl.fields[fa.Alias]
	if !ok {
		return nil, 0, tensor.TensorType{}, fmt.Errorf("interp: group %q has no field alias %q", role, fa.Alias)
	}
	item := s.bindIndex[fa.Index]
	if fr.storage == ast.Uniform {
		col, ok := g.Uniform.TryGetCollection(fr.name)
		if !ok {
			return nil, 0, tensor.TensorType{}, fmt.Errorf("interp: uniform field %q missing on group %q", fr.name, g.Name)
		}
		return col, 0, fr.typ, nil
	}
	col, ok := g.Varying.TryGetCollection(fr.name)
	if !ok {
		return nil, 0, tensor.TensorType{}, fmt.Errorf("interp: varying field %q missing on group %q", fr.name, g.Name)
	}
	return col, item, fr.typ, nil
}

// evalCall evaluates the DSL's small set of intrinsic functions:
// zeros<TYPE>() constructs a zero tensor of the given type,
// reciprocal_or_zero(x, eps) divides by x unless |x| < eps, and
// norm(x) and dot(a, b).
func (c *execCtx) evalCall(n ast.CallExpr, s *scope) (value, error) {
	switch n.Name {
	case "zeros":
		if n.TypeArg == nil {
			return value{}, fmt.Errorf("interp: zeros<> requires a type argument")
		}
		typ := resolveType(*n.TypeArg, c.sch.opts.Dims)
		return zerosValue(typ.Shape), nil
	case "reciprocal_or_zero":
		if len(n.Args) != 2 {
			return value{}, fmt.Errorf("interp: reciprocal_or_zero expects 2 arguments")
		}
		x, err := c.eval(n.Args[0], s)
		if err != nil {
			return value{}, err
		}
		eps, err := c.eval(n.Args[1], s)
		if err != nil {
			return value{}, err
		}
		out := x.clone()
		e := eps.data[0]
		for i, v := range out.data {
			if math.Abs(v) < e {
				out.data[i] = 0
			} else {
				out.data[i] = 1 / v
			}
		}
		return out, nil
	case "norm":
		if len(n.Args) != 1 {
			return value{}, fmt.Errorf("interp: norm expects 1 argument")
		}
		x, err := c.eval(n.Args[0], s)
		if err != nil {
			return value{}, err
		}
		sum := 0.0
		for _, v := range x.data {
			sum += v * v
		}
		return scalar(math.Sqrt(sum)), nil
	case "dot":
		if len(n.Args) != 2 {
			return value{}, fmt.Errorf("interp: dot expects 2 arguments")
		}
		l, err := c.eval(n.Args[0], s)
		if err != nil {
			return value{}, err
		}
		r, err := c.eval(n.Args[1], s)
		if err != nil {
			return value{}, err
		}
		if len(l.data) != len(r.data) {
			return value{}, fmt.Errorf("interp: dot operands have mismatched component counts")
		}
		sum := 0.0
		for i := range l.data {
			sum += l.data[i] * r.data[i]
		}
		return scalar(sum), nil
	default:
		return value{}, fmt.Errorf("interp: unknown function %q", n.Name)
	}
}
