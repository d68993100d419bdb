package raytrace

import "math"

// cubicSplineNormalization returns the Monaghan (1992) cubic spline
// kernel's dimension-dependent normalization constant.
func cubicSplineNormalization(dims int) float64 {
	switch dims {
	case 1:
		return 1.0 / 6.0
	case 2:
		return 5.0 / (14.0 * math.Pi)
	case 3:
		return 1.0 / (4.0 * math.Pi)
	default:
		panic("raytrace: cubic spline kernel only supports 1, 2 or 3 dimensions")
	}
}

// kernelEvalQ evaluates the normalized cubic spline at q = r/h.
func kernelEvalQ(q float64, dims int) float64 {
	var result float64
	if q < 1 {
		result -= 4 * cube(1-q)
	}
	if q < 2 {
		result += cube(2 - q)
	}
	return cubicSplineNormalization(dims) * result
}

// kernelDerivQ evaluates the normalized cubic spline's first
// derivative with respect to q.
func kernelDerivQ(q float64, dims int) float64 {
	var result float64
	if q < 1 {
		result += 12 * square(1-q)
	}
	if q < 2 {
		result -= 3 * square(2-q)
	}
	return cubicSplineNormalization(dims) * result
}

func cube(x float64) float64   { return x * x * x }
func square(x float64) float64 { return x * x }

// kernelEval evaluates the cubic spline kernel at a scalar distance r
// with smoothing length h.
func kernelEval(r, h float64, dims int) float64 {
	q := r / h
	return kernelEvalQ(q, dims) / math.Pow(h, float64(dims))
}

// kernelGrad evaluates the cubic spline kernel's gradient at the
// displacement vector diff (origin minus neighbor), with smoothing
// length h. The gradient points toward the neighbor, where the kernel
// is larger.
func kernelGrad(diff [3]float64, h float64, dims int) [3]float64 {
	r := math.Sqrt(diff[0]*diff[0] + diff[1]*diff[1] + diff[2]*diff[2])
	if r < 1e-12 {
		return [3]float64{}
	}
	q := r / h
	dWdr := kernelDerivQ(q, dims) / math.Pow(h, float64(dims+1))
	scale := dWdr / r
	return [3]float64{diff[0] * scale, diff[1] * scale, diff[2] * scale}
}

// kernelLipschitz returns the Lipschitz constant of the h-scaled
// kernel, used by the sphere tracer to turn a raw kernel-density
// deficit into a signed-distance-like quantity (see spec.md §4.9).
func kernelLipschitz(h float64, dims int) float64 {
	return -kernelDerivQ(2.0/3.0, dims) / math.Pow(h, float64(dims+1))
}
