// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"
	"sync"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/numdiff"
)

// Evaluation evaluates the objective at x and stores its gradient into g.
type Evaluation func(x []float64, g []float64) (f float64)

// FiniteDiff is an objective with an analytic gradient whose Hessian products
// are approximated by differencing the gradient.
type FiniteDiff struct {
	q     *device.Queue
	eval  Evaluation
	x     []float64 // last point evaluated with needHessian
	grad  device.Vector[float64]
	value float64

	mu sync.Mutex // guards hv scratch
	hv numdiff.HessVec
}

// NewFiniteDiff creates an n-dimensional objective from eval.
// The Hessian products use the central difference scheme.
func NewFiniteDiff(q *device.Queue, n int, eval Evaluation) (*FiniteDiff, error) {
	switch {
	case n <= 0:
		return nil, errors.New("problem dimension must greater than 0")
	case eval == nil:
		return nil, errors.New("evaluation target is required")
	}
	f := &FiniteDiff{
		q:    q,
		eval: eval,
		x:    make([]float64, n),
		grad: device.Alloc[float64](n),
	}
	f.hv = numdiff.HessVec{
		N:      n,
		Method: numdiff.Central,
		Grad: func(x, g []float64) {
			_ = eval(x, g)
		},
	}
	return f, nil
}

func (f *FiniteDiff) UpdateX(x device.Vector[float64], needHessian bool, deps device.Events) device.Events {
	return device.Events{f.q.Submit(deps, func() error {
		if x.Len() != len(f.x) {
			return device.ErrDimension
		}
		f.value = f.eval(x.Data(), f.grad.Data())
		if needHessian {
			copy(f.x, x.Data())
		}
		return nil
	})}
}

func (f *FiniteDiff) Gradient() device.Vector[float64] {
	return f.grad
}

func (f *FiniteDiff) Value() float64 {
	return f.value
}

func (f *FiniteDiff) HessianProduct() Operator[float64] {
	return OperatorFunc[float64](func(src, dst device.Vector[float64], deps device.Events) *device.Event {
		return f.q.Submit(deps, func() error {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.hv.Apply(f.x, src.Data(), nil, dst.Data())
		})
	})
}
