// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objective defines the smooth functions minimized by the
// second-order optimizers and a few concrete variants.
package objective

import "github.com/curioloop/newtoncg/device"

// Operator is a linear map applied asynchronously on the device.
type Operator[F device.Float] interface {
	// Apply stores the product of the operator and src into dst once deps completed.
	// src and dst must not alias.
	Apply(src, dst device.Vector[F], deps device.Events) *device.Event
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc[F device.Float] func(src, dst device.Vector[F], deps device.Events) *device.Event

func (f OperatorFunc[F]) Apply(src, dst device.Vector[F], deps device.Events) *device.Event {
	return f(src, dst, deps)
}

// Function is a twice differentiable objective 𝒇 : ℝⁿ → ℝ evaluated at a current point.
//
// UpdateX recomputes the value and gradient from scratch at x, so calling it
// twice at the same point yields identical results. The Hessian product is only
// prepared when needHessian is set; otherwise the operator keeps describing the
// last point evaluated with needHessian.
//
// Value and the gradient contents are valid once every event returned by
// UpdateX completed. The gradient vector is owned by the function but callers
// may overwrite it in place until the next UpdateX.
type Function[F device.Float] interface {
	UpdateX(x device.Vector[F], needHessian bool, deps device.Events) device.Events
	Gradient() device.Vector[F]
	Value() F
	HessianProduct() Operator[F]
}
