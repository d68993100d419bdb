package archive

import (
	"fmt"
	"io"

	"github.com/prtcl-go/prtcl/field"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/tensor"
)

// Save writes every live group (name, type, tags, varying fields) and
// the model's global fields to w, in group-addition order. It is the
// engine's binary save format: no version tag, little-endian numbers,
// field components stored as float64.
func Save(w io.Writer, m *model.Model) error {
	aw := NewWriter(w)

	groups := m.Groups()
	aw.WriteUint64(uint64(len(groups)))
	for _, g := range groups {
		saveGroup(aw, g)
	}
	saveFields(aw, m.Global)

	return aw.Err()
}

func saveGroup(aw *Writer, g *model.Group) {
	aw.WriteString(g.Name)
	aw.WriteString(g.Type)

	aw.WriteUint64(uint64(len(g.Tags)))
	for tag := range g.Tags {
		aw.WriteString(tag)
	}

	saveFields(aw, g.Varying)
}

// fieldNamer is the subset of *field.VaryingManager / *field.UniformManager
// saveFields needs: name enumeration plus by-name collection lookup.
type fieldNamer interface {
	Names() []string
	TryGetCollection(name string) (field.Collection, bool)
}

func saveFields(aw *Writer, m fieldNamer) {
	names := m.Names()
	aw.WriteUint64(uint64(len(names)))
	for _, name := range names {
		col, _ := m.TryGetCollection(name)
		aw.WriteString(name)
		saveCollection(aw, col)
	}
}

func saveCollection(aw *Writer, col field.Collection) {
	typ := col.Type()
	aw.WriteUint64(uint64(typ.Component))
	aw.WriteUint64(uint64(len(typ.Shape)))
	for _, extent := range typ.Shape {
		aw.WriteUint64(uint64(extent))
	}
	n := col.Len()
	aw.WriteUint64(uint64(n))
	cc := typ.Shape.ComponentCount()
	for i := 0; i < n; i++ {
		for c := 0; c < cc; c++ {
			aw.WriteFloat64(col.GetComponent(i, c))
		}
	}
}

// Load reads a stream written by Save into a freshly constructed
// Model, recreating every group, tag set and field from the archive's
// own type tags (it does not require a scheme to already be loaded).
func Load(r io.Reader) (*model.Model, error) {
	ar := NewReader(r)
	m := model.NewModel()

	groupCount := ar.ReadUint64()
	for i := uint64(0); i < groupCount; i++ {
		if err := loadGroup(ar, m); err != nil {
			return nil, err
		}
	}
	if err := loadUniformFields(ar, m.Global); err != nil {
		return nil, fmt.Errorf("archive: load: global fields: %w", err)
	}
	if err := ar.Err(); err != nil {
		return nil, fmt.Errorf("archive: load: %w", err)
	}
	return m, nil
}

func loadGroup(ar *Reader, m *model.Model) error {
	name := ar.ReadString()
	typ := ar.ReadString()
	g, err := m.AddGroup(name, typ)
	if err != nil {
		return fmt.Errorf("archive: load group %q: %w", name, err)
	}

	tagCount := ar.ReadUint64()
	for i := uint64(0); i < tagCount; i++ {
		g.AddTag(ar.ReadString())
	}

	if err := loadVaryingFields(ar, g.Varying); err != nil {
		return fmt.Errorf("archive: load group %q: %w", name, err)
	}
	return ar.Err()
}

// readCollectionHeader reads a field's (ComponentType, Shape, item
// count) header, the prefix every saveCollection call writes.
func readCollectionHeader(ar *Reader) (tensor.TensorType, int) {
	comp := tensor.ComponentType(ar.ReadUint64())
	rank := int(ar.ReadUint64())
	shape := make(tensor.Shape, rank)
	for i := range shape {
		shape[i] = int(ar.ReadUint64())
	}
	n := int(ar.ReadUint64())
	return tensor.TensorType{Component: comp, Shape: shape}, n
}

func fillCollection(ar *Reader, col field.Collection, n int) {
	cc := col.Type().Shape.ComponentCount()
	for i := 0; i < n; i++ {
		for c := 0; c < cc; c++ {
			col.SetComponent(i, c, ar.ReadFloat64())
		}
	}
}

func loadVaryingFields(ar *Reader, vm *field.VaryingManager) error {
	count := ar.ReadUint64()
	maxLen := 0
	for i := uint64(0); i < count; i++ {
		name := ar.ReadString()
		typ, n := readCollectionHeader(ar)
		col, err := addVaryingByType(vm, name, typ)
		if err != nil {
			return fmt.Errorf("archive: field %q: %w", name, err)
		}
		col.Resize(n)
		fillCollection(ar, col, n)
		if n > maxLen {
			maxLen = n
		}
	}
	if vm.Len() < maxLen {
		vm.ResizeItems(maxLen)
	}
	return nil
}

func loadUniformFields(ar *Reader, um *field.UniformManager) error {
	count := ar.ReadUint64()
	for i := uint64(0); i < count; i++ {
		name := ar.ReadString()
		typ, n := readCollectionHeader(ar)
		col, err := addUniformByType(um, name, typ)
		if err != nil {
			return fmt.Errorf("archive: field %q: %w", name, err)
		}
		fillCollection(ar, col, n)
	}
	return nil
}

// addVaryingByType / addUniformByType dispatch a runtime ComponentType
// tag (read back from the archive) to the right field.AddVarying[T] /
// field.AddUniform[T] instantiation, mirroring interp/fields.go's
// declaration-time dispatch for the DSL's three surface types, plus
// the two archive-only component types (i32, f32) the wire format
// also carries.
func addVaryingByType(vm *field.VaryingManager, name string, typ tensor.TensorType) (field.Collection, error) {
	switch typ.Component {
	case tensor.Bool:
		s, err := field.AddVarying[bool](vm, name, typ)
		return spanCollection(vm, name, err, s)
	case tensor.I32:
		s, err := field.AddVarying[int32](vm, name, typ)
		return spanCollection(vm, name, err, s)
	case tensor.I64:
		s, err := field.AddVarying[int64](vm, name, typ)
		return spanCollection(vm, name, err, s)
	case tensor.F32:
		s, err := field.AddVarying[float32](vm, name, typ)
		return spanCollection(vm, name, err, s)
	case tensor.F64:
		s, err := field.AddVarying[float64](vm, name, typ)
		return spanCollection(vm, name, err, s)
	default:
		return nil, fmt.Errorf("archive: unknown component type tag %d", typ.Component)
	}
}

func addUniformByType(um *field.UniformManager, name string, typ tensor.TensorType) (field.Collection, error) {
	switch typ.Component {
	case tensor.Bool:
		_, err := field.AddUniform[bool](um, name, typ)
		return collectionErr(um, name, err)
	case tensor.I32:
		_, err := field.AddUniform[int32](um, name, typ)
		return collectionErr(um, name, err)
	case tensor.I64:
		_, err := field.AddUniform[int64](um, name, typ)
		return collectionErr(um, name, err)
	case tensor.F32:
		_, err := field.AddUniform[float32](um, name, typ)
		return collectionErr(um, name, err)
	case tensor.F64:
		_, err := field.AddUniform[float64](um, name, typ)
		return collectionErr(um, name, err)
	default:
		return nil, fmt.Errorf("archive: unknown component type tag %d", typ.Component)
	}
}

// spanCollection re-resolves the just-added field as its type-erased
// Collection: AddVarying returns a generic TypedSpan, but the rest of
// this package works through the non-generic Collection interface.
func spanCollection[T tensor.Component](vm *field.VaryingManager, name string, err error, _ field.TypedSpan[T]) (field.Collection, error) {
	if err != nil {
		return nil, err
	}
	col, _ := vm.TryGetCollection(name)
	return col, nil
}

func collectionErr(um *field.UniformManager, name string, err error) (field.Collection, error) {
	if err != nil {
		return nil, err
	}
	col, _ := um.TryGetCollection(name)
	return col, nil
}
