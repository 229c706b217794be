package numdiff

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

// HessVec approximates Hessian-vector products 𝐇(𝐱)𝐯 by differencing an
// analytic gradient 𝒈 along 𝐯:
//
//	Forward:  𝐇𝐯 ≈ (𝒈(𝐱 + h𝐯) - 𝒈(𝐱)) / h
//	Central:  𝐇𝐯 ≈ (𝒈(𝐱 + h𝐯) - 𝒈(𝐱 - h𝐯)) / 2h
//
// where h = RelStep × max(1, ‖𝐱‖₂) / ‖𝐯‖₂.
type HessVec struct {
	N int
	// Grad stores the gradient at x into g.
	Grad func(x, g []float64)
	// Finite difference method to use.
	Method Method
	// Relative step size. Selected from the method when zero.
	RelStep float64
	hvCtx
}

type hvCtx struct {
	xt, g0, g1 []float64
}

// Check the parameters and initialize the work buffers.
func (h *HessVec) Check(x, v, hv []float64) (err error) {
	switch {
	case h.N <= 0:
		err = errors.New("negative dimensions")
	case h.Method != Forward && h.Method != Central:
		err = errors.New("unknown method")
	case h.Grad == nil:
		err = errors.New("gradient function is required")
	case len(x) != h.N || len(v) != h.N || len(hv) != h.N:
		err = errors.New("invalid vector dimensions")
	}
	if err == nil && len(h.xt) != h.N {
		h.xt = make([]float64, h.N)
		h.g0 = make([]float64, h.N)
		h.g1 = make([]float64, h.N)
	}
	return
}

// Apply stores the approximation of 𝐇(x)v into hv.
// When the method is Forward and g0 is not nil it is used as 𝒈(x).
func (h *HessVec) Apply(x, v, g0, hv []float64) error {
	if err := h.Check(x, v, hv); err != nil {
		return err
	}

	vn := floats.Norm(v, 2)
	if vn == 0 {
		for i := range hv {
			hv[i] = 0
		}
		return nil
	}

	rel := h.RelStep
	if rel == 0 {
		rel = h.Method.relativeStep()
	}
	step := rel * math.Max(1, floats.Norm(x, 2)) / vn

	floats.AddScaledTo(h.xt, x, step, v)
	h.Grad(h.xt, h.g1)

	if h.Method == Central {
		floats.AddScaledTo(h.xt, x, -step, v)
		h.Grad(h.xt, h.g0)
		floats.SubTo(hv, h.g1, h.g0)
		floats.Scale(1/(2*step), hv)
		return nil
	}

	if g0 == nil {
		h.Grad(x, h.g0)
		g0 = h.g0
	}
	floats.SubTo(hv, h.g1, g0)
	floats.Scale(1/step, hv)
	return nil
}
