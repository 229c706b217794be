// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package primitives

import (
	"fmt"

	"github.com/curioloop/newtoncg/device"
)

// Gemv computes y = alpha*A*x + beta*y, or y = alpha*Aᵀ*x + beta*y when trans is set.
func Gemv[F device.Float](q *device.Queue, trans bool, alpha F, a device.Matrix[F], x device.Vector[F], beta F, y device.Vector[F], deps device.Events) *device.Event {
	return q.Submit(deps, func() error {
		in, out := a.Cols(), a.Rows()
		if trans {
			in, out = out, in
		}
		if x.Len() != in || y.Len() != out {
			return fmt.Errorf("%w: gemv %d×%d (trans=%t) with x[%d] y[%d]",
				device.ErrDimension, a.Rows(), a.Cols(), trans, x.Len(), y.Len())
		}
		gemv(trans, alpha, a.Rows(), a.Cols(), a.Data(), x.Data(), beta, y.Data())
		return nil
	})
}
