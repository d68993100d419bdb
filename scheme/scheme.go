// Package scheme defines the runtime contract a compiled .prtcl scheme
// implements (interp produces the concrete implementations), a
// name-keyed registry of scheme constructors, select-expression
// matching against a model.Group, and the reduction-identity table
// fixed by operator per spec.
package scheme

import (
	"errors"
	"fmt"
	"math"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/model"
)

// ErrSchemeNotRegistered is returned by Registry.Instantiate for an
// unknown scheme name.
var ErrSchemeNotRegistered = errors.New("scheme: not registered")

// Scheme is a compiled .prtcl scheme bound to a model: it declares the
// fields it needs (during Load) and exposes named procedures that can
// be run repeatedly against a neighborhood grid.
type Scheme interface {
	// Load walks the model's groups, creating or attaching the
	// scheme's required fields and caching typed handles keyed by
	// group index.
	Load(m *model.Model) error
	// RunProcedure executes the named procedure once, synchronously.
	RunProcedure(name string, nh *grid.Grid) error
	// ProcedureNames lists every procedure this scheme exposes.
	ProcedureNames() []string
	// Source returns the original .prtcl text the scheme was compiled
	// from, for diagnostics and introspection.
	Source() string
}

// Constructor builds a fresh, unloaded Scheme instance.
type Constructor func() (Scheme, error)

// Registry is a name -> Constructor catalog, the Go analog of the
// original's global scheme-name lookup table.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

// Register adds (or replaces) the constructor for name.
func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[name] = ctor
}

// Instantiate builds a new Scheme by name, failing with
// ErrSchemeNotRegistered if no constructor was registered under it.
func (r *Registry) Instantiate(name string) (Scheme, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemeNotRegistered, name)
	}
	return ctor()
}

// Names lists every registered scheme name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	return out
}

// MatchSelect evaluates a select expression's Boolean combination of
// `type T` / `tag T` atoms against a group. Per spec.md §4.5, `and`
// binds tighter than `or` and `not` is unary — already reflected in
// how dsl/parser nests the tree, so evaluation here is a direct
// recursive-descent walk.
func MatchSelect(sel ast.Select, g *model.Group) bool {
	switch n := sel.(type) {
	case ast.TypeAtom:
		return g.Type == n.Type
	case ast.TagAtom:
		return g.HasTag(n.Tag)
	case ast.AndExpr:
		return MatchSelect(n.Left, g) && MatchSelect(n.Right, g)
	case ast.OrExpr:
		return MatchSelect(n.Left, g) || MatchSelect(n.Right, g)
	case ast.NotExpr:
		return !MatchSelect(n.Expr, g)
	default:
		return false
	}
}

// MatchingGroups returns every live group in m that MatchSelect
// accepts, in model order — the group-index list a `groups`
// declaration's select expression caches at load time.
func MatchingGroups(sel ast.Select, m *model.Model) []*model.Group {
	var out []*model.Group
	for _, g := range m.Groups() {
		if MatchSelect(sel, g) {
			out = append(out, g)
		}
	}
	return out
}

// ReductionIdentity returns the per-thread partial accumulator's
// initial value for a reduction operator, fixed at code-gen time per
// spec.md §4.5/§9 rather than derived from user code: `+=` -> 0,
// `*=` -> 1, `max=` -> -Inf, `min=` -> +Inf.
func ReductionIdentity(op string) (float64, error) {
	switch op {
	case "+=":
		return 0, nil
	case "*=":
		return 1, nil
	case "max=":
		return math.Inf(-1), nil
	case "min=":
		return math.Inf(1), nil
	default:
		return 0, fmt.Errorf("scheme: %q is not a valid reduction operator", op)
	}
}

// Combine applies a reduction operator's combining rule to fold one
// partial into an accumulator.
func Combine(op string, acc, partial float64) float64 {
	switch op {
	case "+=":
		return acc + partial
	case "*=":
		return acc * partial
	case "max=":
		return math.Max(acc, partial)
	case "min=":
		return math.Min(acc, partial)
	default:
		return partial
	}
}
