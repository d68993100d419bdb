package scheme

import (
	"errors"
	"math"
	"testing"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/model"
)

func TestRegistryInstantiateUnknownName(t *testing.T) {
	r := NewRegistry()
	_, err := r.Instantiate("missing")
	if !errors.Is(err, ErrSchemeNotRegistered) {
		t.Fatalf("err = %v, want ErrSchemeNotRegistered", err)
	}
}

type stubScheme struct{}

func (stubScheme) Load(*model.Model) error                       { return nil }
func (stubScheme) RunProcedure(string, *grid.Grid) error          { return nil }
func (stubScheme) ProcedureNames() []string                       { return []string{"p"} }
func (stubScheme) Source() string                                 { return "scheme s {}" }

func TestRegistryRegisterAndInstantiate(t *testing.T) {
	r := NewRegistry()
	r.Register("s", func() (Scheme, error) { return stubScheme{}, nil })
	s, err := r.Instantiate("s")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if s.ProcedureNames()[0] != "p" {
		t.Errorf("ProcedureNames = %v", s.ProcedureNames())
	}
}

func TestMatchSelectTypeAndTag(t *testing.T) {
	m := model.NewModel()
	fluid, _ := m.AddGroup("fluid", "fluid")
	boundary, _ := m.AddGroup("wall", "boundary")
	boundary.AddTag("cannot_be_neighbor")

	sel := ast.AndExpr{
		Left:  ast.TypeAtom{Type: "fluid"},
		Right: ast.NotExpr{Expr: ast.TagAtom{Tag: "cannot_be_neighbor"}},
	}
	if !MatchSelect(sel, fluid) {
		t.Error("fluid group should match")
	}
	if MatchSelect(sel, boundary) {
		t.Error("boundary group should not match (wrong type and tagged)")
	}

	matches := MatchingGroups(sel, m)
	if len(matches) != 1 || matches[0].Name != "fluid" {
		t.Fatalf("MatchingGroups = %v", matches)
	}
}

func TestMatchSelectOr(t *testing.T) {
	m := model.NewModel()
	a, _ := m.AddGroup("a", "fluid")
	b, _ := m.AddGroup("b", "rigid")
	sel := ast.OrExpr{Left: ast.TypeAtom{Type: "fluid"}, Right: ast.TypeAtom{Type: "rigid"}}
	if !MatchSelect(sel, a) || !MatchSelect(sel, b) {
		t.Error("both groups should match the or-selector")
	}
}

func TestReductionIdentityByOperator(t *testing.T) {
	cases := map[string]float64{"+=": 0, "*=": 1, "max=": math.Inf(-1), "min=": math.Inf(1)}
	for op, want := range cases {
		got, err := ReductionIdentity(op)
		if err != nil {
			t.Fatalf("%s: %v", op, err)
		}
		if got != want {
			t.Errorf("%s identity = %v, want %v", op, got, want)
		}
	}
	if _, err := ReductionIdentity("~="); err == nil {
		t.Error("expected an error for an unknown reduction operator")
	}
}

// TestSumReductionOverOneThousandParticles implements the scenario:
// reduce counter += 1 over 1000 particles must combine to 1000.
func TestSumReductionOverOneThousandParticles(t *testing.T) {
	const n = 1000
	identity, _ := ReductionIdentity("+=")
	partials := make([]float64, 4)
	for i := range partials {
		partials[i] = identity
	}
	chunk := n / len(partials)
	for w := range partials {
		for i := 0; i < chunk; i++ {
			partials[w] = Combine("+=", partials[w], 1)
		}
	}
	total := identity
	for _, p := range partials {
		total = Combine("+=", total, p)
	}
	if total != float64(n) {
		t.Errorf("total = %v, want %v", total, n)
	}
}
