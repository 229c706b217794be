package numdiff

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func objV2(x, y []float64) {
	y[0] = x[0] * math.Sin(x[1])
	y[1] = x[1] * math.Cos(x[0])
	y[2] = math.Pow(x[0], 3) * math.Pow(x[1], -0.5)
}

func jacV2(x []float64) []float64 {
	return []float64{
		math.Sin(x[1]), x[0] * math.Cos(x[1]),
		-x[1] * math.Sin(x[0]), math.Cos(x[0]),
		3 * math.Pow(x[0], 2) * math.Pow(x[1], -0.5), -0.5 * math.Pow(x[0], 3) * math.Pow(x[1], -1.5),
	}
}

func objZero(x, y []float64) {
	y[0] = x[0] * x[1]
	y[1] = math.Cos(x[0] * x[1])
}

func jacZero(x []float64) []float64 {
	return []float64{
		x[1], x[0],
		-x[1] * math.Sin(x[0]*x[1]), -x[0] * math.Sin(x[0]*x[1]),
	}
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py (test_absolute_step_sign)
func TestAbsoluteStep(t *testing.T) {

	x0 := []float64{1e-5, 0, 1, 1e5}

	for _, method := range []Method{Forward, Central} {
		rel := method.relativeStep()
		expected := []float64{rel, rel, rel, rel * x0[3]}
		for i, v := range x0 {
			assert.InEpsilon(t, expected[i], absoluteStep(v, method, 0, 0), 1e-12)
			neg := absoluteStep(-v, method, 0, 0)
			if method == Forward && v != 0 {
				assert.InEpsilon(t, -expected[i], neg, 1e-12)
			} else {
				assert.InEpsilon(t, expected[i], math.Abs(neg), 1e-12)
			}
		}
	}

	// user-specified relative step
	for _, rel := range []float64{0.1, 1, 10, 100} {
		expected := []float64{rel * x0[0], sqrtEps, rel * x0[2], rel * x0[3]}
		for i, v := range x0 {
			assert.InEpsilon(t, expected[i], absoluteStep(v, Forward, rel, 0), 1e-12)
		}
	}
}

func TestAbsoluteStepSign(t *testing.T) {

	obj := func(x, y []float64) {
		y[0] = -math.Abs(x[0]+1) + math.Abs(x[1]+1)
	}

	x0 := []float64{-1, -1}
	grad := []float64{0, 0}

	j := Jacobian{N: 2, M: 1, Method: Forward, Object: obj, AbsStep: 1e-8}
	require.NoError(t, j.Diff(x0, grad))
	assert.InDeltaSlice(t, []float64{-1.0, 1.0}, grad, 1e-7)

	j = Jacobian{N: 2, M: 1, Method: Forward, Object: obj, AbsStep: -1e-8}
	require.NoError(t, j.Diff(x0, grad))
	assert.InDeltaSlice(t, []float64{1.0, -1.0}, grad, 1e-7)

	assert.Equal(t, []float64{-1, -1}, x0, "x0 must be restored")
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativesDense.test_vector_vector)
func TestVector(t *testing.T) {

	x0 := []float64{-100.0, 0.2}
	jac1 := jacV2(x0)
	jac2 := make([]float64, 6)
	jac3 := make([]float64, 6)

	j := Jacobian{N: 2, M: 3, Method: Forward, Object: objV2}
	require.NoError(t, j.Diff(x0, jac2))
	j = Jacobian{N: 2, M: 3, Method: Central, Object: objV2}
	require.NoError(t, j.Diff(x0, jac3))

	if !relativeEqual(jac1, jac2, 1e-5) {
		t.Fatal("unexpected forward approx result")
	}
	if !relativeEqual(jac1, jac3, 1e-6) {
		t.Fatal("unexpected central approx result")
	}

	j = Jacobian{N: 2, M: 3, Method: Forward, Object: objV2, RelStep: 1e-4}
	require.NoError(t, j.Diff(x0, jac2))
	j = Jacobian{N: 2, M: 3, Method: Central, Object: objV2, RelStep: 1e-4}
	require.NoError(t, j.Diff(x0, jac3))

	if !relativeEqual(jac1, jac2, 1e-2) {
		t.Fatal("unexpected forward approx result")
	}
	if !relativeEqual(jac1, jac3, 1e-4) {
		t.Fatal("unexpected central approx result")
	}
}

func TestAccuracy(t *testing.T) {

	maxError := func(n, m int, x0 []float64, fun func(x, y []float64), jac func(x []float64) []float64) float64 {
		want := jac(x0)
		got := make([]float64, n*m)
		j := Jacobian{N: n, M: m, Method: Central, Object: fun}
		require.NoError(t, j.Diff(x0, got))
		maxErr := 0.0
		for i := range got {
			maxErr = math.Max(maxErr, math.Abs(want[i]-got[i])/math.Max(1, math.Abs(got[i])))
		}
		return maxErr
	}

	assert.LessOrEqual(t, maxError(2, 3, []float64{-10.0, 10}, objV2, jacV2), 1e-9)
	assert.Zero(t, maxError(2, 2, []float64{0, 0}, objZero, jacZero))
}

func TestCheck(t *testing.T) {
	x0 := []float64{1, 2}
	tests := []struct {
		name string
		j    Jacobian
		jac  []float64
	}{
		{"dimension", Jacobian{N: 0, M: 1, Object: objZero}, make([]float64, 2)},
		{"method", Jacobian{N: 2, M: 2, Method: 7, Object: objZero}, make([]float64, 4)},
		{"object", Jacobian{N: 2, M: 2}, make([]float64, 4)},
		{"jacobian", Jacobian{N: 2, M: 2, Object: objZero}, make([]float64, 3)},
	}
	for _, tt := range tests {
		assert.Error(t, tt.j.Check(x0, tt.jac), tt.name)
	}
}

func TestHessVec(t *testing.T) {

	// f(x) = x₀⁴ + x₀x₁ + eˣ¹ has 𝐇 = [[12x₀², 1], [1, eˣ¹]]
	grad := func(x, g []float64) {
		g[0] = 4*math.Pow(x[0], 3) + x[1]
		g[1] = x[0] + math.Exp(x[1])
	}
	x := []float64{1.5, -0.5}
	v := []float64{0.3, -2}
	want := []float64{
		12*x[0]*x[0]*v[0] + v[1],
		v[0] + math.Exp(x[1])*v[1],
	}

	for _, method := range []Method{Forward, Central} {
		hv := make([]float64, 2)
		h := HessVec{N: 2, Grad: grad, Method: method}
		require.NoError(t, h.Apply(x, v, nil, hv))
		tol := 1e-5
		if method == Central {
			tol = 1e-8
		}
		if !relativeEqual(want, hv, tol) {
			t.Fatalf("unexpected Hv for method %d: %v", method, hv)
		}
	}

	hv := []float64{7, 7}
	h := HessVec{N: 2, Grad: grad}
	require.NoError(t, h.Apply(x, []float64{0, 0}, nil, hv))
	assert.Equal(t, []float64{0, 0}, hv)

	assert.Error(t, h.Apply(x, []float64{1}, nil, hv))
}

func relativeEqual(a, b []float64, tol float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i, a := range a {
		if a == b[i] {
			continue
		}
		if math.Abs(a-b[i])/math.Max(math.Abs(a), math.Abs(b[i])) > tol {
			return false
		}
	}
	return true
}
