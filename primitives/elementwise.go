// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package primitives

import (
	"fmt"

	"github.com/curioloop/newtoncg/device"
)

// UnaryFunc maps an element and a scalar parameter to a new element.
type UnaryFunc[F device.Float] func(x, param F) F

// BinaryFunc combines two elements.
type BinaryFunc[F device.Float] func(a, b F) F

// Negate is the UnaryFunc x ↦ -x.
func Negate[F device.Float](x, _ F) F { return -x }

// ElementWise computes outᵢ = fn(inᵢ, param). out may alias in.
func ElementWise[F device.Float](q *device.Queue, fn UnaryFunc[F], in device.Vector[F], param F, out device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		if in.Len() != out.Len() {
			return fmt.Errorf("%w: element-wise %d into %d", device.ErrDimension, in.Len(), out.Len())
		}
		x, y := in.Data(), out.Data()
		q.For(len(x), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				y[i] = fn(x[i], param)
			}
		})
		return nil
	})
}

// ElementWise2 computes outᵢ = fn(aᵢ, bᵢ). out may alias a or b.
func ElementWise2[F device.Float](q *device.Queue, fn BinaryFunc[F], a, b, out device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		if a.Len() != b.Len() || a.Len() != out.Len() {
			return fmt.Errorf("%w: element-wise %d, %d into %d", device.ErrDimension, a.Len(), b.Len(), out.Len())
		}
		x, y, z := a.Data(), b.Data(), out.Data()
		q.For(len(x), func(lo, hi int) {
			for i := lo; i < hi; i++ {
				z[i] = fn(x[i], y[i])
			}
		})
		return nil
	})
}

// Fill sets every element of v to value.
func Fill[F device.Float](q *device.Queue, v device.Vector[F], value F, deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		x := v.Data()
		for i := range x {
			x[i] = value
		}
		return nil
	})
}

// Copy copies src into dst.
func Copy[F device.Float](q *device.Queue, dst, src device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		if dst.Len() != src.Len() {
			return fmt.Errorf("%w: copy %d into %d", device.ErrDimension, src.Len(), dst.Len())
		}
		copy(dst.Data(), src.Data())
		return nil
	})
}

// Axpy computes y += alpha*x.
func Axpy[F device.Float](q *device.Queue, alpha F, x, y device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		if x.Len() != y.Len() {
			return fmt.Errorf("%w: axpy %d into %d", device.ErrDimension, x.Len(), y.Len())
		}
		axpy(alpha, x.Data(), y.Data())
		return nil
	})
}

// Scal computes x *= alpha.
func Scal[F device.Float](q *device.Queue, alpha F, x device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		scal(alpha, x.Data())
		return nil
	})
}
