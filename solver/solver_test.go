package solver

import (
	"math"
	"testing"
)

// TestSolve2x2WithExactPreconditioner implements the scenario: solve
// A = [[4,1],[1,3]], b = [1,2] using A itself as the preconditioner.
// A perfect preconditioner makes PCG converge in a single iteration;
// the solution must land within 1e-6 of the exact (1/11, 7/11).
func TestSolve2x2WithExactPreconditioner(t *testing.T) {
	a := [2][2]float64{{4, 1}, {1, 3}}
	bVal := []float64{1, 2}

	applyA := func(out, in Vector) {
		out[0] = a[0][0]*in[0] + a[0][1]*in[1]
		out[1] = a[1][0]*in[0] + a[1][1]*in[1]
	}
	solveA := func(out, in Vector) {
		// Cramer's rule for the 2x2 preconditioner solve M y = r, M = A.
		det := a[0][0]*a[1][1] - a[0][1]*a[1][0]
		out[0] = (in[0]*a[1][1] - a[0][1]*in[1]) / det
		out[1] = (a[0][0]*in[1] - in[0]*a[1][0]) / det
	}

	ops := Ops{
		N:       2,
		Width:   1,
		RHS:     func(out Vector) { copy(out, bVal) },
		Guess:   func(out Vector) {},
		System:  applyA,
		Precond: solveA,
	}

	result := Solve(ops, 1e-10, 100, nil)

	if result.Iterations > 2 {
		t.Errorf("Iterations = %d, want <= 2", result.Iterations)
	}
	want := []float64{1.0 / 11, 7.0 / 11}
	for i, w := range want {
		if math.Abs(result.X[i]-w) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, result.X[i], w)
		}
	}
}

// TestSolveZeroRHSReturnsGuessImmediately covers the b == 0 failure
// semantics: the solver returns the initial guess untouched, with zero
// iterations spent.
func TestSolveZeroRHSReturnsGuessImmediately(t *testing.T) {
	ops := Ops{
		N:     3,
		Width: 1,
		RHS:   func(out Vector) {},
		Guess: func(out Vector) { out[0], out[1], out[2] = 5, 6, 7 },
		System: func(out, in Vector) {
			copy(out, in)
		},
		Precond: func(out, in Vector) {
			copy(out, in)
		},
	}

	result := Solve(ops, 1e-10, 50, nil)
	if result.Iterations != 0 {
		t.Errorf("Iterations = %d, want 0", result.Iterations)
	}
	want := []float64{5, 6, 7}
	for i, w := range want {
		if result.X[i] != w {
			t.Errorf("x[%d] = %v, want %v (guess untouched)", i, result.X[i], w)
		}
	}
}

// TestSolveDiagonalSystemWithJacobiPreconditioner exercises a larger
// diagonal system with the diagonal (Jacobi) preconditioner and checks
// that every component of the solution is within 1e-6 of 1/diag[i].
func TestSolveDiagonalSystemWithJacobiPreconditioner(t *testing.T) {
	const n = 50
	diag := make([]float64, n)
	bVal := make([]float64, n)
	for i := range diag {
		diag[i] = float64(i + 1)
		bVal[i] = 1
	}

	var residuals []float64
	ops := Ops{
		N:     n,
		Width: 1,
		RHS:   func(out Vector) { copy(out, bVal) },
		Guess: func(out Vector) {},
		System: func(out, in Vector) {
			for i := range out {
				out[i] = diag[i] * in[i]
			}
			var rNorm float64
			for i := range in {
				rNorm += in[i] * in[i]
			}
			residuals = append(residuals, rNorm)
		},
		Precond: func(out, in Vector) {
			for i := range out {
				out[i] = in[i] / diag[i]
			}
		},
	}

	result := Solve(ops, 1e-12, n, nil)

	want := make([]float64, n)
	for i := range want {
		want[i] = 1 / diag[i]
	}
	for i, w := range want {
		if math.Abs(result.X[i]-w) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, result.X[i], w)
		}
	}
}

func TestSolveApplyCallbackReceivesFinalIterate(t *testing.T) {
	var applied Vector
	ops := Ops{
		N:     1,
		Width: 1,
		RHS:   func(out Vector) { out[0] = 4 },
		Guess: func(out Vector) {},
		System: func(out, in Vector) {
			out[0] = 2 * in[0]
		},
		Precond: func(out, in Vector) {
			out[0] = in[0] / 2
		},
		Apply: func(x Vector) {
			applied = append(Vector{}, x...)
		},
	}

	Solve(ops, 1e-10, 10, nil)
	if len(applied) != 1 || math.Abs(applied[0]-2) > 1e-6 {
		t.Errorf("Apply received %v, want [2]", applied)
	}
}
