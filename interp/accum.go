package interp

import (
	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/scheme"
)

// accumEntry is one reduction target's per-thread partial: the
// operator it combines with (fixed for the target's whole foreach)
// and the running value.
type accumEntry struct {
	op  string
	val value
}

// accumSet collects every reduction target reached inside one
// foreach-particle body, keyed by the target alias. A nil accumSet
// means "no enclosing reduction context" — execReduce fails with an
// error for a reduce statement reached outside any foreach.
type accumSet map[string]accumEntry

func newAccumSet(targets map[string]string) accumSet {
	out := make(accumSet, len(targets))
	for alias, op := range targets {
		id, _ := scheme.ReductionIdentity(op)
		out[alias] = accumEntry{op: op, val: scalar(id)}
	}
	return out
}

func cloneAccumSet(a accumSet) accumSet {
	out := make(accumSet, len(a))
	for k, v := range a {
		out[k] = accumEntry{op: v.op, val: v.val.clone()}
	}
	return out
}

// combineInto folds rhs into the named target using the reduction
// operator the target was first declared with.
func (a accumSet) combineInto(alias, op string, rhs value) {
	e, ok := a[alias]
	if !ok {
		id, _ := scheme.ReductionIdentity(op)
		e = accumEntry{op: op, val: scalar(id)}
	}
	combined, err := elementwise(e.val, rhs, func(x, y float64) float64 {
		return scheme.Combine(e.op, x, y)
	})
	if err != nil {
		// shape mismatch against a scalar identity: widen the
		// identity to rhs's shape before combining.
		e.val = zerosValue(rhs.shape)
		for i := range e.val.data {
			id, _ := scheme.ReductionIdentity(op)
			e.val.data[i] = id
		}
		combined, _ = elementwise(e.val, rhs, func(x, y float64) float64 {
			return scheme.Combine(e.op, x, y)
		})
	}
	e.val = combined
	a[alias] = e
}

// combineAccumSets merges two partial accumulations produced by
// independent chunks, per target operator.
func combineAccumSets(a, b accumSet) accumSet {
	out := cloneAccumSet(a)
	for k, v := range b {
		cur, ok := out[k]
		if !ok {
			out[k] = v
			continue
		}
		combined, err := elementwise(cur.val, v.val, func(x, y float64) float64 {
			return scheme.Combine(cur.op, x, y)
		})
		if err == nil {
			cur.val = combined
			out[k] = cur
		}
	}
	return out
}

// collectReduceTargets walks a foreach-particle body (including
// nested foreach-neighbor bodies) and returns every reduction target
// alias reached, mapped to the operator it was reduced with. Solve
// blocks are not walked: reductions inside a solve body are
// undocumented and out of scope, per the same caution spec.md §9
// already applies to selector-scoped reductions.
func collectReduceTargets(stmts []ast.Stmt) map[string]string {
	out := map[string]string{}
	var walk func([]ast.Stmt)
	walk = func(ss []ast.Stmt) {
		for _, st := range ss {
			switch n := st.(type) {
			case ast.ReduceStmt:
				if id, ok := n.LHS.(ast.IdentExpr); ok {
					if _, exists := out[id.Name]; !exists {
						out[id.Name] = n.Op
					}
				}
			case ast.ForeachStmt:
				walk(n.Body)
			}
		}
	}
	walk(stmts)
	return out
}
