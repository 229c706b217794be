// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package device provides an asynchronous host device: a queue executing
// kernels as a dependency graph, completion events, and device-resident
// vectors with a scratch arena.
package device

import "math"

// Float is the set of supported floating point precisions.
type Float interface {
	float32 | float64
}

// Epsilon returns the machine epsilon of F.
func Epsilon[F Float]() F {
	var z F
	if _, ok := any(z).(float32); ok {
		return F(math.Nextafter32(1, 2) - 1)
	}
	return F(math.Nextafter(1, 2) - 1)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite[F Float](v F) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
