// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/primitives"
)

// Quadratic is the separable quadratic
//
//	𝒇(𝐱) = ½ Σ hᵢ(xᵢ - cᵢ)²
//
// with gradient h ⊙ (𝐱 - 𝐜) and Hessian 𝚍𝚒𝚊𝚐(h).
// Negative hᵢ yield directions of negative curvature.
type Quadratic[F device.Float] struct {
	q      *device.Queue
	diag   device.Vector[F]
	center device.Vector[F]
	shift  device.Vector[F] // 𝐱 - 𝐜
	grad   device.Vector[F]
	dot    F // (𝐱 - 𝐜)ᵀ𝐇(𝐱 - 𝐜)
}

// NewQuadratic creates the quadratic with Hessian diagonal diag and minimizer center.
// A nil center places the minimizer at the origin.
func NewQuadratic[F device.Float](q *device.Queue, diag, center []F) (*Quadratic[F], error) {
	n := len(diag)
	switch {
	case n == 0:
		return nil, errors.New("quadratic dimension must greater than 0")
	case center != nil && len(center) != n:
		return nil, errors.New("quadratic center size must equal to diagonal size")
	}
	if center == nil {
		center = make([]F, n)
	}
	return &Quadratic[F]{
		q:      q,
		diag:   device.Wrap(diag),
		center: device.Wrap(center),
		shift:  device.Alloc[F](n),
		grad:   device.Alloc[F](n),
	}, nil
}

func sub[F device.Float](a, b F) F { return a - b }

func mul[F device.Float](a, b F) F { return a * b }

func (f *Quadratic[F]) UpdateX(x device.Vector[F], _ bool, deps device.Events) device.Events {
	q := f.q
	shift := primitives.ElementWise2(q, sub[F], x, f.center, f.shift, deps)
	grad := primitives.ElementWise2(q, mul[F], f.diag, f.shift, f.grad, device.Events{shift})
	value := primitives.Dot(q, f.shift, f.grad, &f.dot, device.Events{grad})
	return device.Events{value}
}

func (f *Quadratic[F]) Gradient() device.Vector[F] {
	return f.grad
}

func (f *Quadratic[F]) Value() F {
	return f.dot / 2
}

func (f *Quadratic[F]) HessianProduct() Operator[F] {
	return OperatorFunc[F](func(src, dst device.Vector[F], deps device.Events) *device.Event {
		return primitives.ElementWise2(f.q, mul[F], f.diag, src, dst, deps)
	})
}
