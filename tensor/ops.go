package tensor

import "math"

// Add returns the elementwise sum. Panics on shape mismatch.
func Add[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = a.data[i] + b.data[i]
	}
	return out
}

// Sub returns the elementwise difference. Panics on shape mismatch.
func Sub[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = a.data[i] - b.data[i]
	}
	return out
}

// Mul returns the elementwise (Hadamard) product. Panics on shape mismatch.
func Mul[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = a.data[i] * b.data[i]
	}
	return out
}

// DivElem returns the elementwise quotient. It does not guard against
// zero denominators (ReciprocalOrZero is the guarded scalar form).
func DivElem[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = a.data[i] / b.data[i]
	}
	return out
}

// Scale returns every component multiplied by a scalar broadcast.
func Scale[T Numeric](a Tensor[T], s T) Tensor[T] {
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = a.data[i] * s
	}
	return out
}

// Negate returns the elementwise negation.
func Negate[T Numeric](a Tensor[T]) Tensor[T] {
	out := New[T](a.shape)
	for i := range out.data {
		out.data[i] = -a.data[i]
	}
	return out
}

// Dot returns the dot product of two rank-1 tensors of equal length.
func Dot[T Numeric](a, b Tensor[T]) T {
	mustSameShape(a, b)
	if a.shape.Rank() != 1 {
		panic("tensor: Dot requires rank-1 tensors")
	}
	var sum T
	for i := range a.data {
		sum += a.data[i] * b.data[i]
	}
	return sum
}

// Cross returns the 3D cross product of two rank-1, length-3 tensors.
func Cross[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	if a.shape.Rank() != 1 || a.shape[0] != 3 {
		panic("tensor: Cross requires length-3 vectors")
	}
	out := New[T](Shape{3})
	out.data[0] = a.data[1]*b.data[2] - a.data[2]*b.data[1]
	out.data[1] = a.data[2]*b.data[0] - a.data[0]*b.data[2]
	out.data[2] = a.data[0]*b.data[1] - a.data[1]*b.data[0]
	return out
}

// Outer returns the outer product of two rank-1 tensors as a rank-2
// tensor of shape [len(a), len(b)].
func Outer[T Numeric](a, b Tensor[T]) Tensor[T] {
	if a.shape.Rank() != 1 || b.shape.Rank() != 1 {
		panic("tensor: Outer requires rank-1 tensors")
	}
	n, m := a.shape[0], b.shape[0]
	out := New[T](Shape{n, m})
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			out.SetRC(i, j, a.data[i]*b.data[j])
		}
	}
	return out
}

// Transpose returns the transpose of a rank-2 tensor.
func Transpose[T Numeric](a Tensor[T]) Tensor[T] {
	if a.shape.Rank() != 2 {
		panic("tensor: Transpose requires a rank-2 tensor")
	}
	rows, cols := a.shape[0], a.shape[1]
	out := New[T](Shape{cols, rows})
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			out.SetRC(c, r, a.AtRC(r, c))
		}
	}
	return out
}

// ComponentSum returns the sum of all components.
func ComponentSum[T Numeric](a Tensor[T]) T {
	var sum T
	for _, v := range a.data {
		sum += v
	}
	return sum
}

// ComponentMin returns the elementwise minimum of two equally-shaped
// tensors.
func ComponentMin[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		if a.data[i] < b.data[i] {
			out.data[i] = a.data[i]
		} else {
			out.data[i] = b.data[i]
		}
	}
	return out
}

// ComponentMax returns the elementwise maximum of two equally-shaped
// tensors.
func ComponentMax[T Numeric](a, b Tensor[T]) Tensor[T] {
	mustSameShape(a, b)
	out := New[T](a.shape)
	for i := range out.data {
		if a.data[i] > b.data[i] {
			out.data[i] = a.data[i]
		} else {
			out.data[i] = b.data[i]
		}
	}
	return out
}

// Norm returns the Euclidean (L2) norm, defined for float tensors of
// any rank by flattening the components.
func Norm(a Tensor[float64]) float64 {
	var sum float64
	for _, v := range a.data {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// NormSquared returns the squared Euclidean norm, avoiding the sqrt in
// Norm for callers that only need to compare against a squared radius.
func NormSquared(a Tensor[float64]) float64 {
	var sum float64
	for _, v := range a.data {
		sum += v * v
	}
	return sum
}

// Normalized returns a / Norm(a), or the zero tensor if the norm is
// smaller than eps (see ReciprocalOrZero — this is the tensor-valued
// equivalent used pervasively for inverse-distance direction vectors).
func Normalized(a Tensor[float64], eps float64) Tensor[float64] {
	n := Norm(a)
	r := ReciprocalOrZero(n, eps)
	return Scale(a, r)
}

// ReciprocalOrZero returns 1/value, or 0 when |value| < eps. Normalized
// uses it; the interpreter's reciprocal_or_zero intrinsic applies the
// same rule componentwise, while its `/` operator divides directly.
func ReciprocalOrZero(value, eps float64) float64 {
	if math.Abs(value) < eps {
		return 0
	}
	return 1 / value
}

// Zeros returns the additive identity tensor of the given shape.
func Zeros[T Numeric](shape Shape) Tensor[T] {
	return New[T](shape)
}

// Identity returns the n x n identity matrix.
func Identity(n int) Tensor[float64] {
	out := New[float64](Shape{n, n})
	for i := 0; i < n; i++ {
		out.SetRC(i, i, 1)
	}
	return out
}
