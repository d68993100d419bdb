package tensor

import (
	"math"

	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"
)

// DotF32 computes the dot product of two rank-1 float32 tensors using
// gonum's BLAS level-1 kernel.
func DotF32(a, b Tensor[float32]) float32 {
	mustSameShape(a, b)
	if a.shape.Rank() != 1 {
		panic("tensor: DotF32 requires rank-1 tensors")
	}
	va := blas32.Vector{N: len(a.data), Inc: 1, Data: a.data}
	vb := blas32.Vector{N: len(b.data), Inc: 1, Data: b.data}
	return blas32.Dot(va, vb)
}

// NormF32 computes the Euclidean norm of a rank-1 float32 tensor using
// gonum's BLAS level-1 kernel.
func NormF32(a Tensor[float32]) float32 {
	v := blas32.Vector{N: len(a.data), Inc: 1, Data: a.data}
	return blas32.Nrm2(v)
}

func toDense(a Tensor[float64]) *mat.Dense {
	if a.shape.Rank() != 2 {
		panic("tensor: expected a rank-2 tensor")
	}
	rows, cols := a.shape[0], a.shape[1]
	data := make([]float64, len(a.data))
	copy(data, a.data)
	return mat.NewDense(rows, cols, data)
}

func fromDense(d *mat.Dense) Tensor[float64] {
	rows, cols := d.Dims()
	out := New[float64](Shape{rows, cols})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.SetRC(r, c, d.At(r, c))
		}
	}
	return out
}

// Invert returns the matrix inverse of a square rank-2 tensor (2x2 or
// 3x3, per the "small tensor" shape contract) and whether the matrix
// was non-singular. A singular matrix yields the zero matrix and false
// rather than inf/NaN components.
func Invert(a Tensor[float64]) (Tensor[float64], bool) {
	if a.shape.Rank() != 2 || a.shape[0] != a.shape[1] {
		panic("tensor: Invert requires a square rank-2 tensor")
	}
	src := toDense(a)
	var dst mat.Dense
	if err := dst.Inverse(src); err != nil {
		return New[float64](a.shape), false
	}
	return fromDense(&dst), true
}

// SolveSD solves A x = b for a small symmetric positive-definite matrix
// A and right-hand-side vector b (rank-1, same extent as A's rows),
// returning the solution and whether A was solvable.
func SolveSD(a Tensor[float64], b Tensor[float64]) (Tensor[float64], bool) {
	if a.shape.Rank() != 2 || a.shape[0] != a.shape[1] {
		panic("tensor: SolveSD requires a square rank-2 tensor")
	}
	if b.shape.Rank() != 1 || b.shape[0] != a.shape[0] {
		panic("tensor: SolveSD requires b to match A's row count")
	}
	n := a.shape[0]
	A := toDense(a)
	B := mat.NewDense(n, 1, append([]float64(nil), b.data...))
	var x mat.Dense
	if err := x.Solve(A, B); err != nil {
		return New[float64](Shape{n}), false
	}
	out := New[float64](Shape{n})
	for i := 0; i < n; i++ {
		out.Set(i, x.At(i, 0))
	}
	return out, true
}

// RotationMatrix2D returns the 2x2 rotation matrix for the given angle
// in radians.
func RotationMatrix2D(angle float64) Tensor[float64] {
	s, c := math.Sincos(angle)
	out := New[float64](Shape{2, 2})
	out.SetRC(0, 0, c)
	out.SetRC(0, 1, -s)
	out.SetRC(1, 0, s)
	out.SetRC(1, 1, c)
	return out
}

// RotationMatrix3D returns the 3x3 rotation matrix for a right-handed
// rotation by angle radians about the given (not necessarily
// normalized) axis, via Rodrigues' formula. Required by the PT16
// scheme's frame construction.
func RotationMatrix3D(axis Tensor[float64], angle float64) Tensor[float64] {
	if axis.shape.Rank() != 1 || axis.shape[0] != 3 {
		panic("tensor: RotationMatrix3D requires a length-3 axis")
	}
	u := Normalized(axis, 1e-12)
	s, c := math.Sincos(angle)
	K := CrossMatrix(u)
	KK := matmul3(K, K)
	out := Identity(3)
	out = Add(out, Scale(K, s))
	out = Add(out, Scale(KK, 1-c))
	return out
}

// CrossMatrix returns the 3x3 antisymmetric ("hat") matrix [v]_x such
// that [v]_x * w == Cross(v, w) for any vector w.
func CrossMatrix(v Tensor[float64]) Tensor[float64] {
	if v.shape.Rank() != 1 || v.shape[0] != 3 {
		panic("tensor: CrossMatrix requires a length-3 vector")
	}
	out := New[float64](Shape{3, 3})
	out.SetRC(0, 1, -v.At(2))
	out.SetRC(0, 2, v.At(1))
	out.SetRC(1, 0, v.At(2))
	out.SetRC(1, 2, -v.At(0))
	out.SetRC(2, 0, -v.At(1))
	out.SetRC(2, 1, v.At(0))
	return out
}

// InverseCrossMatrix extracts the axial vector v from a 3x3
// antisymmetric matrix m such that CrossMatrix(v) == m (up to
// floating-point roundoff): the inverse of CrossMatrix.
func InverseCrossMatrix(m Tensor[float64]) Tensor[float64] {
	if m.shape.Rank() != 2 || m.shape[0] != 3 || m.shape[1] != 3 {
		panic("tensor: InverseCrossMatrix requires a 3x3 matrix")
	}
	out := New[float64](Shape{3})
	out.Set(0, 0.5*(m.AtRC(2, 1)-m.AtRC(1, 2)))
	out.Set(1, 0.5*(m.AtRC(0, 2)-m.AtRC(2, 0)))
	out.Set(2, 0.5*(m.AtRC(1, 0)-m.AtRC(0, 1)))
	return out
}

// matmul3 multiplies two small square matrices directly (avoiding a
// gonum round-trip for the 3x3 products RotationMatrix3D needs).
func matmul3(a, b Tensor[float64]) Tensor[float64] {
	n := a.shape[0]
	out := New[float64](Shape{n, n})
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += a.AtRC(i, k) * b.AtRC(k, j)
			}
			out.SetRC(i, j, sum)
		}
	}
	return out
}
