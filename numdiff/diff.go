package numdiff

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use the second order accuracy central difference.
	Central
)

// relativeStep returns the default relative step of the method.
func (m Method) relativeStep() float64 {
	switch m {
	case Forward:
		return sqrtEps
	case Central:
		return cubeEps
	default:
		panic("unknown method")
	}
}

// Jacobian estimates the derivative of a vector function 𝒇 : ℝⁿ → ℝᵐ.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
type Jacobian struct {
	N, M int
	// Function of which to estimate the derivatives.
	// The argument x passed to this function is an n-vector.
	// The result is store in an m-vector y.
	Object func(x, y []float64)
	// Finite difference method to use.
	Method Method
	// Relative step size used to compute absolute step size.
	// The default absolute step size is h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0).
	RelStep float64
	// Absolute step size to use. The RelStep is used when AbsStep is not provide.
	AbsStep float64
	jacCtx
}

type jacCtx struct {
	f0, f1, f2 []float64
	absStep    []float64
}

// Check the parameters and initialize the work buffers.
func (j *Jacobian) Check(x0, jac []float64) (err error) {
	switch {
	case j.N <= 0 || j.M <= 0:
		err = errors.New("negative dimensions")
	case j.Method != Forward && j.Method != Central:
		err = errors.New("unknown method")
	case j.Object == nil:
		err = errors.New("object function is required")
	case j.N != len(x0):
		err = errors.New("invalid x0 dimensions")
	case j.N*j.M != len(jac):
		err = errors.New("invalid jacobian dimensions")
	}
	if err != nil {
		return
	}
	if len(j.f0) != j.M {
		j.f0 = make([]float64, j.M)
		j.f1 = make([]float64, j.M)
		j.f2 = make([]float64, j.M)
	}
	if len(j.absStep) != j.N {
		j.absStep = make([]float64, j.N)
	}
	return
}

// Diff fills jac (row-major m×n) with the finite difference approximation at x0.
// x0 is used as scratch but restored before returning.
func (j *Jacobian) Diff(x0, jac []float64) error {
	if err := j.Check(x0, jac); err != nil {
		return err
	}
	for i, v := range x0 {
		j.absStep[i] = absoluteStep(v, j.Method, j.RelStep, j.AbsStep)
	}

	n := j.N
	fun, f0, f1, f2 := j.Object, j.f0, j.f1, j.f2
	if j.Method == Forward {
		fun(x0, f0)
	}
	for i, h := range j.absStep {
		t := x0[i]
		if j.Method == Forward {
			x0[i] = t + h
			fun(x0, f1)
			floats.SubTo(f2, f1, f0)
			floats.Scale(1/h, f2)
		} else {
			x0[i] = t - h
			fun(x0, f1)
			x0[i] = t + h
			fun(x0, f2)
			floats.Sub(f2, f1)
			floats.Scale(1/(2*h), f2)
		}
		x0[i] = t
		for k, d := range f2 {
			jac[i+k*n] = d
		}
	}
	return nil
}

// absoluteStep picks the difference step for coordinate value v.
func absoluteStep(v float64, method Method, rel, abs float64) float64 {
	eps := method.relativeStep()
	if abs == 0 && rel == 0 {
		return math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
	}
	s := abs
	if s == 0 {
		s = math.Copysign(rel, v) * math.Abs(v)
	}
	if (v+s)-v == 0 {
		s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
	}
	if method == Central {
		s = math.Abs(s)
	}
	return s
}
