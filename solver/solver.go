// Package solver implements the preconditioned conjugate gradient
// driver used by viscosity and vorticity schemes to solve A x = b for
// a per-particle tensor unknown, where A and the preconditioner M are
// matrix-free operators supplied as callbacks.
package solver

import (
	"math"

	"github.com/prtcl-go/prtcl/internal/workpool"
)

// Vector is a flat buffer of N*Width scalar components: particle i's
// components occupy [i*Width, (i+1)*Width).
type Vector = []float64

// Ops bundles the matrix-free operators a scheme supplies to the
// solver. System and Precond receive the whole current vector and
// write the whole result vector; a typical implementation loops over
// particles internally (via workpool.Pool.For) and consults a
// neighborhood for off-diagonal terms.
type Ops struct {
	N       int // particle count
	Width   int // scalar components per particle (1 for a real unknown, 3 for a vector unknown)
	RHS     func(out Vector)
	Guess   func(out Vector)
	System  func(out, in Vector)
	Precond func(out, in Vector)
	// Apply, if non-nil, is called once with the final iterate so the
	// scheme can write it back into its own per-particle field.
	Apply func(x Vector)
}

// Result reports the solve's final iterate and diagnostics.
type Result struct {
	X          Vector
	Iterations int
}

// Solve runs preconditioned conjugate gradient until ‖r‖² drops below
// max(tol²‖b‖², the smallest positive float64) or either of the two
// per-iteration denominators (pᵀq in the step-length computation, the
// previous rᵀy in the update-direction computation) falls below tol in
// magnitude, whichever comes first — a small-denominator breakdown is
// not an error, it just stops iteration and keeps the last iterate.
// If b is exactly zero, returns immediately with x equal to the
// initial guess (after Apply). pool may be nil to use a
// default-sized pool for the tree-reduced dot products.
func Solve(ops Ops, tol float64, maxIter int, pool *workpool.Pool) Result {
	if pool == nil {
		pool = workpool.New(0)
	}
	n := ops.N * ops.Width

	b := make(Vector, n)
	ops.RHS(b)

	x := make(Vector, n)
	ops.Guess(x)

	bDotB := dot(pool, b, b)
	if bDotB == 0 {
		if ops.Apply != nil {
			ops.Apply(x)
		}
		return Result{X: x, Iterations: 0}
	}

	thresh := tol * tol * bDotB
	if thresh < math.SmallestNonzeroFloat64 {
		thresh = math.SmallestNonzeroFloat64
	}

	q := make(Vector, n)
	ops.System(q, x)

	r := make(Vector, n)
	for i := range r {
		r[i] = b[i] - q[i]
	}

	y := make(Vector, n)
	ops.Precond(y, r)

	p := make(Vector, n)
	copy(p, y)

	rDotY := dot(pool, r, y)
	iters := 0

	for iter := 0; iter < maxIter; iter++ {
		if dot(pool, r, r) < thresh {
			break
		}

		ops.System(q, p)
		pDotQ := dot(pool, p, q)
		if math.Abs(pDotQ) < tol {
			break
		}

		alpha := rDotY / pDotQ
		for i := range x {
			x[i] += alpha * p[i]
		}
		for i := range r {
			r[i] -= alpha * q[i]
		}
		iters = iter + 1

		if math.Abs(rDotY) < tol {
			break
		}

		ops.Precond(y, r)
		rDotYNew := dot(pool, r, y)
		beta := rDotYNew / rDotY
		for i := range p {
			p[i] = y[i] + beta*p[i]
		}
		rDotY = rDotYNew
	}

	if ops.Apply != nil {
		ops.Apply(x)
	}
	return Result{X: x, Iterations: iters}
}

func dot(pool *workpool.Pool, a, b Vector) float64 {
	return workpool.Reduce(pool, len(a), 0.0,
		func(lo, hi int, identity float64) float64 {
			sum := identity
			for i := lo; i < hi; i++ {
				sum += a[i] * b[i]
			}
			return sum
		},
		func(x, y float64) float64 { return x + y },
	)
}
