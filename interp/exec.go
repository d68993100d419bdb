package interp

import (
	"fmt"
	"sync"

	"github.com/prtcl-go/prtcl/dsl/ast"
	"github.com/prtcl-go/prtcl/grid"
	"github.com/prtcl-go/prtcl/internal/workpool"
	"github.com/prtcl-go/prtcl/model"
	"github.com/prtcl-go/prtcl/scheme"
	"github.com/prtcl-go/prtcl/solver"
	"github.com/prtcl-go/prtcl/tensor"
)

// execCtx carries everything one RunProcedure call threads through
// statement execution: the compiled scheme it is running, the
// neighborhood grid foreach-neighbor queries against, and the first
// error raised by any worker goroutine.
type execCtx struct {
	sch *compiledScheme
	nh  *grid.Grid

	mu  sync.Mutex
	err error
}

func (c *execCtx) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}

// execStmts runs stmts in order against s, stopping at the first
// error. accum is non-nil only inside a foreach-particle body, and
// collects reduce statements reached directly or via nested
// foreach-neighbor bodies.
func (c *execCtx) execStmts(stmts []ast.Stmt, s *scope, accum accumSet) error {
	for _, st := range stmts {
		if err := c.execStmt(st, s, accum); err != nil {
			return err
		}
	}
	return nil
}

func (c *execCtx) execStmt(st ast.Stmt, s *scope, accum accumSet) error {
	switch n := st.(type) {
	case ast.LocalDefStmt:
		v, err := c.eval(n.Value, s)
		if err != nil {
			return err
		}
		s.locals[n.Name] = v
		return nil
	case ast.ComputeStmt:
		return c.execCompute(n, s)
	case ast.ReduceStmt:
		return c.execReduce(n, s, accum)
	case ast.ForeachStmt:
		if n.Kind == ast.Particle {
			return c.runForeachParticle(n, s)
		}
		return c.runForeachNeighbor(n, s, accum)
	case ast.SolveStmt:
		return c.runSolve(n, s)
	default:
		return fmt.Errorf("interp: unhandled statement node %T", st)
	}
}

// execCompute applies a compute statement's operator to either a
// local variable or a bound field item.
func (c *execCtx) execCompute(n ast.ComputeStmt, s *scope) error {
	rhs, err := c.eval(n.RHS, s)
	if err != nil {
		return err
	}
	switch lhs := n.LHS.(type) {
	case ast.IdentExpr:
		cur, ok := s.locals[lhs.Name]
		if !ok {
			cur = scalar(0)
		}
		next, err := applyAssignOp(n.Op, cur, rhs)
		if err != nil {
			return err
		}
		s.locals[lhs.Name] = next
		return nil
	case ast.FieldAccessExpr:
		col, item, _, err := c.resolveFieldAccess(s, lhs)
		if err != nil {
			return err
		}
		cur := getValue(col, item)
		next, err := applyAssignOp(n.Op, cur, rhs)
		if err != nil {
			return err
		}
		setValue(col, item, next)
		return nil
	default:
		return fmt.Errorf("interp: compute target must be a field access or a local, got %T", n.LHS)
	}
}

// execReduce folds a reduce statement's right-hand side into the
// enclosing foreach's per-chunk accumulator. A reduce statement
// reached outside any foreach-particle body is a scheme error: there
// is no thread-local partial to combine it into.
func (c *execCtx) execReduce(n ast.ReduceStmt, s *scope, accum accumSet) error {
	id, ok := n.LHS.(ast.IdentExpr)
	if !ok {
		return fmt.Errorf("interp: reduce target must be a plain identifier, got %T", n.LHS)
	}
	rhs, err := c.eval(n.RHS, s)
	if err != nil {
		return err
	}
	if accum == nil {
		return fmt.Errorf("interp: reduce into %q reached outside a foreach particle loop", id.Name)
	}
	accum.combineInto(id.Name, n.Op, rhs)
	return nil
}

// runForeachParticle runs fe.Body once per particle of every group
// playing fe.Group's role, in parallel chunks via the scheme's pool.
// Reductions reached in the body accumulate per chunk, tree-combine,
// then apply: targets naming a global field combine again across
// every matching group before being applied once; targets naming the
// current role's own uniform field apply per group.
func (c *execCtx) runForeachParticle(fe ast.ForeachStmt, s *scope) error {
	if _, ok := c.sch.groupDecls[fe.Group]; !ok {
		return fmt.Errorf("interp: foreach references unknown groups role %q", fe.Group)
	}
	groups := c.sch.matching[fe.Group]
	targets := collectReduceTargets(fe.Body)

	var globalAcc accumSet
	for _, g := range groups {
		n := g.Len()
		if n == 0 {
			continue
		}
		base := newAccumSet(targets)
		result := workpool.Reduce(c.sch.opts.Pool, n, base,
			func(lo, hi int, identity accumSet) accumSet {
				acc := cloneAccumSet(identity)
				for i := lo; i < hi; i++ {
					ps := s.child()
					ps.bindIndex[fe.Index] = i
					ps.bindGroup[fe.Index] = g
					ps.particleIndexName = fe.Index
					ps.particleGroup = g
					ps.particleIndex = i
					if err := c.execStmts(fe.Body, ps, acc); err != nil {
						c.fail(err)
						return acc
					}
				}
				return acc
			},
			combineAccumSets,
		)
		if c.err != nil {
			return c.err
		}

		groupAcc := accumSet{}
		for alias, e := range result {
			if _, isGlobal := c.sch.globalFields[alias]; isGlobal {
				if globalAcc == nil {
					globalAcc = accumSet{}
				}
				if cur, ok := globalAcc[alias]; ok {
					combined, err := elementwise(cur.val, e.val, func(x, y float64) float64 {
						return scheme.Combine(cur.op, x, y)
					})
					if err != nil {
						combined = cur.val
					}
					globalAcc[alias] = accumEntry{op: e.op, val: combined}
				} else {
					globalAcc[alias] = e
				}
				continue
			}
			groupAcc[alias] = e
		}
		if err := c.applyUniformTargets(g, fe.Group, groupAcc); err != nil {
			return err
		}
	}
	if len(globalAcc) > 0 {
		if err := c.applyGlobalTargets(globalAcc); err != nil {
			return err
		}
	}
	return nil
}

// applyUniformTargets applies every target in acc against g's own
// uniform fields, using each target's reduce operator against the
// field's current value.
func (c *execCtx) applyUniformTargets(g *model.Group, role string, acc accumSet) error {
	decl := c.sch.groupDecls[role]
	for alias, e := range acc {
		fr, ok := decl.fields[alias]
		if !ok || fr.storage != ast.Uniform {
			return fmt.Errorf("%w: %q on %q", ErrSelectorScopedReduction, alias, role)
		}
		col, ok := g.Uniform.TryGetCollection(fr.name)
		if !ok {
			return fmt.Errorf("interp: uniform field %q missing on group %q", fr.name, g.Name)
		}
		cur := getValue(col, 0)
		next, err := applyAssignOp(e.op, cur, e.val)
		if err != nil {
			return err
		}
		setValue(col, 0, next)
	}
	return nil
}

// applyGlobalTargets applies every target in acc, already combined
// across every matching group, against the model's global fields.
func (c *execCtx) applyGlobalTargets(acc accumSet) error {
	for alias, e := range acc {
		fr := c.sch.globalFields[alias]
		col, ok := c.sch.model.Global.TryGetCollection(fr.name)
		if !ok {
			return fmt.Errorf("interp: global field %q missing", fr.name)
		}
		cur := getValue(col, 0)
		next, err := applyAssignOp(e.op, cur, e.val)
		if err != nil {
			return err
		}
		setValue(col, 0, next)
	}
	return nil
}

// runForeachNeighbor iterates the neighbors of the enclosing particle
// found within the grid's search radius, running fe.Body once for
// each neighbor whose group plays fe.Group's role.
func (c *execCtx) runForeachNeighbor(fe ast.ForeachStmt, s *scope, accum accumSet) error {
	if c.nh == nil {
		return fmt.Errorf("interp: foreach neighbor requires a neighborhood grid")
	}
	if s.particleGroup == nil {
		return fmt.Errorf("interp: foreach neighbor must be nested inside a foreach particle loop")
	}
	if _, ok := c.sch.groupDecls[fe.Group]; !ok {
		return fmt.Errorf("interp: foreach references unknown groups role %q", fe.Group)
	}
	var innerErr error
	c.nh.Neighbors(c.sch.model, s.particleGroup.Index, s.particleIndex, func(group model.GroupIndex, index int) {
		if innerErr != nil {
			return
		}
		if c.sch.roleOfGroup[group] != fe.Group {
			return
		}
		ng := c.sch.model.Group(group)
		ns := s.child()
		ns.bindIndex[fe.Index] = index
		ns.bindGroup[fe.Index] = ng
		if err := c.execStmts(fe.Body, ns, accum); err != nil {
			innerErr = err
		}
	})
	return innerErr
}

func widthShape(width int) tensor.Shape {
	if width <= 1 {
		return nil
	}
	return tensor.Shape{width}
}

// runVectorBlock runs body once per particle of group, binding the
// pseudo-local "iterate" to the particle's slice of in (or a zero
// vector, if in is nil) before execution and, if out is non-nil,
// reading "iterate" back out after the block runs. This is the
// convention every solve sub-block uses to move a solver.Vector
// through DSL statements without a dedicated grammar form for it.
func (c *execCtx) runVectorBlock(body []ast.Stmt, s *scope, group *model.Group, index string, n, width int, in, out solver.Vector) error {
	var mu sync.Mutex
	var firstErr error
	c.sch.opts.Pool.For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			ps := s.child()
			ps.bindIndex[index] = i
			ps.bindGroup[index] = group
			ps.particleIndexName = index
			ps.particleGroup = group
			ps.particleIndex = i

			iv := zerosValue(widthShape(width))
			if in != nil {
				for w := 0; w < width; w++ {
					iv.data[w] = in[i*width+w]
				}
			}
			ps.locals["iterate"] = iv

			if err := c.execStmts(body, ps, nil); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			if out != nil {
				res := ps.locals["iterate"]
				for w := 0; w < width; w++ {
					out[i*width+w] = component(res, w)
				}
			}
		}
	})
	return firstErr
}

// runSolve lowers a solve statement into a solver.Ops and runs
// solver.Solve once per group playing the statement's role.
func (c *execCtx) runSolve(st ast.SolveStmt, s *scope) error {
	if _, ok := c.sch.groupDecls[st.Group]; !ok {
		return fmt.Errorf("interp: solve references unknown groups role %q", st.Group)
	}
	typ := resolveType(st.Type, c.sch.opts.Dims)
	width := typ.Shape.ComponentCount()

	for _, g := range c.sch.matching[st.Group] {
		n := g.Len()
		if n == 0 {
			continue
		}
		ops := solver.Ops{
			N:     n,
			Width: width,
			RHS: func(out solver.Vector) {
				if err := c.runVectorBlock(st.RHS, s, g, st.Index, n, width, nil, out); err != nil {
					c.fail(err)
				}
			},
			Guess: func(out solver.Vector) {
				if err := c.runVectorBlock(st.Guess, s, g, st.Index, n, width, nil, out); err != nil {
					c.fail(err)
				}
			},
			System: func(out, in solver.Vector) {
				if err := c.runVectorBlock(st.System, s, g, st.Index, n, width, in, out); err != nil {
					c.fail(err)
				}
			},
			Precond: func(out, in solver.Vector) {
				if err := c.runVectorBlock(st.Precond, s, g, st.Index, n, width, in, out); err != nil {
					c.fail(err)
				}
			},
			Apply: func(x solver.Vector) {
				if err := c.runVectorBlock(st.Apply, s, g, st.Index, n, width, x, nil); err != nil {
					c.fail(err)
				}
			},
		}
		solver.Solve(ops, c.sch.opts.Tol, c.sch.opts.MaxIter, c.sch.opts.Pool)
		if c.err != nil {
			return c.err
		}
	}
	return nil
}
