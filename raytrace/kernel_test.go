package raytrace

import "testing"

func TestKernelEvalDecaysToZeroAtSupportBoundary(t *testing.T) {
	h := 0.5
	if w := kernelEval(2*h-1e-9, h, 3); w <= 0 {
		t.Errorf("kernel should still be positive just inside the support radius, got %v", w)
	}
	if w := kernelEval(2*h+1e-6, h, 3); w != 0 {
		t.Errorf("kernel should be zero outside the support radius, got %v", w)
	}
}

func TestKernelEvalIsLargestAtOrigin(t *testing.T) {
	h := 0.3
	w0 := kernelEval(1e-9, h, 3)
	w1 := kernelEval(h, h, 3)
	if w1 >= w0 {
		t.Errorf("kernel at q=1 (%v) should be smaller than at the origin (%v)", w1, w0)
	}
}

func TestKernelGradZeroAtOrigin(t *testing.T) {
	g := kernelGrad([3]float64{0, 0, 0}, 0.3, 3)
	if g[0] != 0 || g[1] != 0 || g[2] != 0 {
		t.Errorf("gradient at the origin should be zero, got %v", g)
	}
}

func TestKernelGradPointsTowardNeighbor(t *testing.T) {
	h := 0.3
	diff := [3]float64{0.1, 0, 0}
	g := kernelGrad(diff, h, 3)
	if g[0] >= 0 {
		t.Errorf("gradient x-component should be negative for a positive displacement, got %v", g[0])
	}
}
