// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"
	"fmt"
	"math"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/primitives"
)

// LogLoss is the mean binary cross-entropy of a logistic model with L2 penalty.
//
// For samples 𝐗 (m×p), labels y ∈ {0,1} and parameters 𝐰 = [b, 𝛃] (b present
// only when fitting the intercept):
//
//	zᵢ = 𝐱ᵢᵀ𝛃 + b
//	𝒇(𝐰) = (1/m) Σ [𝚜𝚘𝚏𝚝𝚙𝚕𝚞𝚜(zᵢ) - yᵢzᵢ] + λ‖𝛃‖²
//	∇𝒇 = (1/m) 𝐀ᵀ(σ(𝐳) - 𝐲) + 2λ𝛃
//	𝐇𝐯 = (1/m) 𝐀ᵀ 𝚍𝚒𝚊𝚐(σ(1-σ)) 𝐀𝐯 + 2λ𝐯ᵦ
//
// where 𝐀 = [𝟏 𝐗]. The intercept is never penalized.
type LogLoss[F device.Float] struct {
	q         *device.Queue
	x         device.Matrix[F]
	y         device.Vector[F]
	intercept bool
	l2        F

	z      device.Vector[F] // m: linear predictor, reused by the Hessian product
	loss   device.Vector[F] // m: per-sample loss
	resid  device.Vector[F] // m: (σ - y)/m
	weight device.Vector[F] // m: σ(1-σ)/m
	grad   device.Vector[F] // dim

	lossSum F
	penalty F
}

// NewLogLoss creates the logistic loss over x with labels y (0 or 1).
func NewLogLoss[F device.Float](q *device.Queue, x device.Matrix[F], y []int32, fitIntercept bool, l2 float64) (*LogLoss[F], error) {
	m := x.Rows()
	switch {
	case m == 0 || x.Cols() == 0:
		return nil, errors.New("sample matrix must not be empty")
	case len(y) != m:
		return nil, fmt.Errorf("label size %d must equal to sample count %d", len(y), m)
	case l2 < 0 || math.IsNaN(l2):
		return nil, errors.New("L2 penalty must not less than 0")
	}
	labels := make([]F, m)
	for i, v := range y {
		if v != 0 && v != 1 {
			return nil, fmt.Errorf("label at %d must be 0 or 1, got %d", i, v)
		}
		labels[i] = F(v)
	}
	f := &LogLoss[F]{
		q:         q,
		x:         x,
		y:         device.Wrap(labels),
		intercept: fitIntercept,
		l2:        F(l2),
		z:         device.Alloc[F](m),
		loss:      device.Alloc[F](m),
		resid:     device.Alloc[F](m),
		weight:    device.Alloc[F](m),
	}
	f.grad = device.Alloc[F](f.Dim())
	return f, nil
}

// Dim returns the number of parameters, including the intercept slot.
func (f *LogLoss[F]) Dim() int {
	if f.intercept {
		return f.x.Cols() + 1
	}
	return f.x.Cols()
}

// split returns the intercept slot (empty without intercept) and the coefficients of w.
func (f *LogLoss[F]) split(w device.Vector[F]) (device.Vector[F], device.Vector[F]) {
	if f.intercept {
		return w.Slice(0, 1), w.Slice(1, w.Len())
	}
	return w.Slice(0, 0), w
}

// Softplus computes log(1 + eᶻ) without overflow.
func Softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

// Sigmoid computes 1 / (1 + e⁻ᶻ) without overflow.
func Sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func (f *LogLoss[F]) UpdateX(w device.Vector[F], needHessian bool, deps device.Events) device.Events {
	q := f.q
	if w.Len() != f.Dim() {
		return device.Events{device.Failed(fmt.Errorf("%w: log-loss of %d parameters at point of size %d", device.ErrDimension, f.Dim(), w.Len()))}
	}

	b, beta := f.split(w)
	gb, gbeta := f.split(f.grad)

	linear := primitives.Gemv(q, false, 1, f.x, beta, 0, f.z, deps)
	stats := q.Submit(device.Events{linear}, func() error {
		var bias float64
		if b.Len() > 0 {
			bias = float64(b.Data()[0])
		}
		inv := 1 / float64(f.z.Len())
		z, y := f.z.Data(), f.y.Data()
		loss, resid, weight := f.loss.Data(), f.resid.Data(), f.weight.Data()
		q.For(len(z), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				zi := float64(z[i]) + bias
				s := Sigmoid(zi)
				loss[i] = F(Softplus(zi) - float64(y[i])*zi)
				resid[i] = F((s - float64(y[i])) * inv)
				if needHessian {
					weight[i] = F(s * (1 - s) * inv)
				}
			}
		})
		return nil
	})

	lossSum := primitives.Sum(q, f.loss, &f.lossSum, device.Events{stats})
	penalty := primitives.Dot(q, beta, beta, &f.penalty, deps)

	grad := primitives.Gemv(q, true, 1, f.x, f.resid, 0, gbeta, device.Events{stats})
	if f.l2 != 0 {
		grad = primitives.Axpy(q, 2*f.l2, beta, gbeta, device.Events{grad})
	}
	events := device.Events{lossSum, penalty, grad}
	if gb.Len() > 0 {
		events = append(events, primitives.Sum(q, f.resid, &gb.Data()[0], device.Events{stats}))
	}
	return events
}

func (f *LogLoss[F]) Gradient() device.Vector[F] {
	return f.grad
}

func (f *LogLoss[F]) Value() F {
	v := f.lossSum / F(f.x.Rows())
	if f.l2 != 0 {
		v += f.l2 * f.penalty
	}
	return v
}

func (f *LogLoss[F]) HessianProduct() Operator[F] {
	return OperatorFunc[F](f.hessianProduct)
}

// hessianProduct reuses the linear predictor buffer as scratch, which is safe
// because UpdateX and Hessian products are never in flight together.
func (f *LogLoss[F]) hessianProduct(src, dst device.Vector[F], deps device.Events) *device.Event {
	q := f.q
	if src.Len() != f.Dim() || dst.Len() != f.Dim() {
		return device.Failed(fmt.Errorf("%w: hessian product of size %d with src[%d] dst[%d]", device.ErrDimension, f.Dim(), src.Len(), dst.Len()))
	}
	vb, vbeta := f.split(src)
	db, dbeta := f.split(dst)

	av := primitives.Gemv(q, false, 1, f.x, vbeta, 0, f.z, deps)
	scaled := q.Submit(device.Events{av}, func() error {
		var bias F
		if vb.Len() > 0 {
			bias = vb.Data()[0]
		}
		t, w := f.z.Data(), f.weight.Data()
		q.For(len(t), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				t[i] = w[i] * (t[i] + bias)
			}
		})
		return nil
	})

	out := primitives.Gemv(q, true, 1, f.x, f.z, 0, dbeta, device.Events{scaled})
	if f.l2 != 0 {
		out = primitives.Axpy(q, 2*f.l2, vbeta, dbeta, device.Events{out})
	}
	if db.Len() > 0 {
		out = primitives.Sum(q, f.z, &db.Data()[0], device.Events{out})
	}
	return out
}
