package interp

import (
	"fmt"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

// addField declares fr on group g, varying or uniform as fr.storage
// says, dispatching to the generically-typed manager for fr.typ's
// component type (the DSL surface only ever needs these three).
func addField(g *model.Group, fr fieldRef) error {
	switch fr.storage {
	case ast.Uniform:
		return addUniformField(g.Uniform, fr.name, fr.typ)
	default:
		return addVaryingField(g.Varying, fr.name, fr.typ)
	}
}

func addVaryingField(m *field.VaryingManager, name string, typ tensor.TensorType) error {
	var err error
	switch typ.Component {
	case tensor.I64:
		_, err = field.AddVarying[int64](m, name, typ)
	case tensor.Bool:
		_, err = field.AddVarying[bool](m, name, typ)
	default:
		_, err = field.AddVarying[float64](m, name, typ)
	}
	if err != nil {
		return fmt.Errorf("interp: declaring varying field %q: %w", name, err)
	}
	return nil
}

func addUniformField(m *field.UniformManager, name string, typ tensor.TensorType) error {
	var err error
	switch typ.Component {
	case tensor.I64:
		_, err = field.AddUniform[int64](m, name, typ)
	case tensor.Bool:
		_, err = field.AddUniform[bool](m, name, typ)
	default:
		_, err = field.AddUniform[float64](m, name, typ)
	}
	if err != nil {
		return fmt.Errorf("interp: declaring uniform field %q: %w", name, err)
	}
	return nil
}

// getValue reads every component of item i from col into a value
// shaped per col's declared type.
func getValue(col field.Collection, item int) value {
	shape := col.Type().Shape
	n := shape.ComponentCount()
	if n == 0 {
		n = 1
	}
	out := value{shape: shape, data: make([]float64, n)}
	for c := 0; c < n; c++ {
		out.data[c] = col.GetComponent(item, c)
	}
	return out
}

// setValue writes v's components into item i of col, broadcasting a
// scalar v across every component.
func setValue(col field.Collection, item int, v value) {
	n := col.Type().Shape.ComponentCount()
	if n == 0 {
		n = 1
	}
	for c := 0; c < n; c++ {
		col.SetComponent(item, c, component(v, c))
	}
}
