package tensor

import (
	"math"
	"testing"
)

func vec3(x, y, z float64) Tensor[float64] {
	return FromSlice[float64](Shape{3}, []float64{x, y, z})
}

func TestAddSubShapeMismatch(t *testing.T) {
	a := vec3(1, 2, 3)
	b := FromSlice[float64](Shape{2}, []float64{1, 2})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on shape mismatch")
		}
	}()
	Add(a, b)
}

func TestDotCrossNorm(t *testing.T) {
	a := vec3(1, 0, 0)
	b := vec3(0, 1, 0)

	if got := Dot(a, b); got != 0 {
		t.Errorf("Dot = %v, want 0", got)
	}

	c := Cross(a, b)
	want := vec3(0, 0, 1)
	for i := 0; i < 3; i++ {
		if c.At(i) != want.At(i) {
			t.Errorf("Cross()[%d] = %v, want %v", i, c.At(i), want.At(i))
		}
	}

	if n := Norm(vec3(3, 4, 0)); math.Abs(n-5) > 1e-12 {
		t.Errorf("Norm = %v, want 5", n)
	}
}

func TestReciprocalOrZero(t *testing.T) {
	if got := ReciprocalOrZero(0, 1e-9); got != 0 {
		t.Errorf("ReciprocalOrZero(0) = %v, want 0", got)
	}
	if got := ReciprocalOrZero(2, 1e-9); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("ReciprocalOrZero(2) = %v, want 0.5", got)
	}
}

func TestInvert2x2(t *testing.T) {
	m := New[float64](Shape{2, 2})
	m.SetRC(0, 0, 4)
	m.SetRC(0, 1, 7)
	m.SetRC(1, 0, 2)
	m.SetRC(1, 1, 6)

	inv, ok := Invert(m)
	if !ok {
		t.Fatal("expected invertible matrix")
	}

	prod := matmul3squareGeneric(m, inv)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if math.Abs(prod.AtRC(i, j)-want) > 1e-9 {
				t.Errorf("(A*A^-1)[%d][%d] = %v, want %v", i, j, prod.AtRC(i, j), want)
			}
		}
	}
}

func TestInvertSingular(t *testing.T) {
	m := New[float64](Shape{2, 2})
	m.SetRC(0, 0, 1)
	m.SetRC(0, 1, 2)
	m.SetRC(1, 0, 2)
	m.SetRC(1, 1, 4)

	_, ok := Invert(m)
	if ok {
		t.Fatal("expected singular matrix to report not-ok")
	}
}

func TestCrossMatrixRoundTrip(t *testing.T) {
	v := vec3(1, -2, 0.5)
	m := CrossMatrix(v)
	back := InverseCrossMatrix(m)
	for i := 0; i < 3; i++ {
		if math.Abs(back.At(i)-v.At(i)) > 1e-12 {
			t.Errorf("InverseCrossMatrix(CrossMatrix(v))[%d] = %v, want %v", i, back.At(i), v.At(i))
		}
	}
}

func TestRotationMatrix3DPreservesLength(t *testing.T) {
	axis := vec3(0, 0, 1)
	rot := RotationMatrix3D(axis, math.Pi/2)
	v := vec3(1, 0, 0)
	rotated := matVec3(rot, v)

	if math.Abs(Norm(rotated)-1) > 1e-9 {
		t.Errorf("rotated vector norm = %v, want 1", Norm(rotated))
	}
	if math.Abs(rotated.At(1)-1) > 1e-9 {
		t.Errorf("rotating (1,0,0) by 90deg about z should land near (0,1,0), got %v", rotated)
	}
}

func TestSolveSD(t *testing.T) {
	a := New[float64](Shape{2, 2})
	a.SetRC(0, 0, 4)
	a.SetRC(0, 1, 1)
	a.SetRC(1, 0, 1)
	a.SetRC(1, 1, 3)
	b := FromSlice[float64](Shape{2}, []float64{1, 2})

	x, ok := SolveSD(a, b)
	if !ok {
		t.Fatal("expected solvable system")
	}
	want := []float64{1.0 / 11, 7.0 / 11}
	for i, w := range want {
		if math.Abs(x.At(i)-w) > 1e-6 {
			t.Errorf("x[%d] = %v, want %v", i, x.At(i), w)
		}
	}
}

func TestDynamicRoundTrip(t *testing.T) {
	typ := TensorType{Component: F64, Shape: Shape{3}}
	t1 := vec3(1, 2, 3)
	d := FromFixed(t1, F64)

	t2, err := ToFixed[float64](d, typ)
	if err != nil {
		t.Fatalf("ToFixed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if t1.At(i) != t2.At(i) {
			t.Errorf("round-trip[%d] = %v, want %v", i, t2.At(i), t1.At(i))
		}
	}

	if _, err := ToFixed[float64](d, TensorType{Component: F64, Shape: Shape{2}}); err == nil {
		t.Error("expected shape mismatch error")
	}
}

// matmul3squareGeneric multiplies two square matrices of equal size.
func matmul3squareGeneric(a, b Tensor[float64]) Tensor[float64] {
	return matmul3(a, b)
}

// matVec3 multiplies a 3x3 matrix by a length-3 vector.
func matVec3(m, v Tensor[float64]) Tensor[float64] {
	out := New[float64](Shape{3})
	for i := 0; i < 3; i++ {
		var sum float64
		for j := 0; j < 3; j++ {
			sum += m.AtRC(i, j) * v.At(j)
		}
		out.Set(i, sum)
	}
	return out
}
