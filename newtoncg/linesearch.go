// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newtoncg

import (
	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/objective"
	"github.com/curioloop/newtoncg/primitives"
)

type searchResult[F device.Float] struct {
	step  F             // last step tried
	ok    bool          // whether the step satisfied the sufficient decrease condition
	evals int           // function evaluations performed
	last  *device.Event // event producing the trial point
}

// backtracking searches along the descent direction d from x for a step λ satisfying
//
//	𝒇(𝐱 + λ𝐝) ≤ 𝒇(𝐱) - cλ⟨-𝐠, 𝐝⟩
//
// where f0 = 𝒇(𝐱) and desc = ⟨-𝐠, 𝐝⟩ > 0. λ starts from tol.Step and is
// multiplied by tol.Contraction after each rejection. Non-finite values are
// always rejected.
//
// The trial point 𝐱 + λ𝐝 is written into out; x is never modified. When the
// next step would fall below tol.MinStep the search gives up with ok unset,
// leaving out at the smallest step tried.
func backtracking[F device.Float](q *device.Queue, fn objective.Function[F],
	x, d, out device.Vector[F], f0, desc F, tol *SearchTol, deps device.Events) (res searchResult[F], err error) {

	c, rho, minStep := F(tol.Decrease), F(tol.Contraction), F(tol.MinStep)

	res.step = F(tol.Step)
	for {
		// 𝐱ₜ = 𝐱 + λ𝐝
		res.last = primitives.Copy(q, out, x, deps)
		res.last = primitives.Axpy(q, res.step, d, out, device.Events{res.last})

		if err = fn.UpdateX(out, false, device.Events{res.last}).Wait(); err != nil {
			return
		}
		res.evals++

		fx := fn.Value()
		if device.IsFinite(fx) && fx <= f0-c*res.step*desc {
			res.ok = true
			return
		}
		if res.step*rho < minStep {
			return
		}
		res.step *= rho
	}
}
