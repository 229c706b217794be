// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package primitives

import (
	"fmt"

	"github.com/curioloop/newtoncg/device"
)

// L1Norm computes ‖v‖₁ into out.
func L1Norm[F device.Float](q *device.Queue, v device.Vector[F], out *F, deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		*out = asum(v.Data())
		return nil
	})
}

// MaxAbs computes ‖v‖∞ into out.
func MaxAbs[F device.Float](q *device.Queue, v device.Vector[F], out *F, deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		x := v.Data()
		if len(x) == 0 {
			*out = 0
			return nil
		}
		m := x[iamax(x)]
		if m < 0 {
			m = -m
		}
		*out = m
		return nil
	})
}

// Dot computes aᵀb into out.
func Dot[F device.Float](q *device.Queue, a, b device.Vector[F], out *F, deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		if a.Len() != b.Len() {
			return fmt.Errorf("%w: dot of %d and %d", device.ErrDimension, a.Len(), b.Len())
		}
		*out = dot(a.Data(), b.Data())
		return nil
	})
}

// Sum computes Σ vᵢ into out.
func Sum[F device.Float](q *device.Queue, v device.Vector[F], out *F, deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		var s float64
		for _, x := range v.Data() {
			s += float64(x)
		}
		*out = F(s)
		return nil
	})
}
