// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newtoncg

import (
	"fmt"
	"math"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/objective"
	"github.com/curioloop/newtoncg/primitives"
)

// cgSolve approximately solves 𝐇𝐱 = 𝐛 by conjugate gradient without preconditioning.
//
// The iterate starts from 𝐱ᵢ = x0 and the solve stops as soon as
//   - the residual satisfies ‖𝐫‖₂ ≤ tol × ‖𝐛‖₂
//   - the search direction has non-positive curvature 𝐩ᵀ𝐇𝐩 ≤ 0,
//     in which case the iterate of the previous step is kept
//   - maxInner Hessian products were computed
//
// r, p and hp are scratch vectors; s holds the scalar slots. The returned event
// produces x; the number of Hessian products is reported as inner iterations.
func cgSolve[F device.Float](q *device.Queue, hv objective.Operator[F],
	b, x, r, p, hp device.Vector[F], s []F,
	tol, x0 F, maxInner int, deps device.Events) (last *device.Event, inner int, err error) {

	rr, bb, curv := &s[slotResidual], &s[slotRhs], &s[slotCurvature]

	// 𝐫₀ = 𝐛 - 𝐇𝐱₀ , 𝐩₀ = 𝐫₀
	last = primitives.Fill(q, x, x0, deps)
	if x0 == 0 {
		last = primitives.Copy(q, r, b, device.Events{last})
	} else {
		last = hv.Apply(x, hp, device.Events{last})
		last = primitives.ElementWise2(q, func(b, h F) F { return b - h }, b, hp, r, device.Events{last})
	}
	last = primitives.Copy(q, p, r, device.Events{last})

	rhsNorm := primitives.Dot(q, b, b, bb, deps)
	last = primitives.Dot(q, r, r, rr, device.Events{last})
	if err = device.WaitAll(rhsNorm, last); err != nil {
		return
	}

	bound := tol * sqrt(*bb)
	if !finite(*rr, bound) {
		err = fmt.Errorf("%w: inner residual ‖r‖²=%v bound=%v", ErrNumerical, *rr, bound)
		return
	}

	for inner < maxInner && sqrt(*rr) > bound {

		last = hv.Apply(p, hp, device.Events{last})
		last = primitives.Dot(q, p, hp, curv, device.Events{last})
		if err = last.Wait(); err != nil {
			return
		}
		inner++

		c := *curv
		if math.IsNaN(float64(c)) {
			err = fmt.Errorf("%w: curvature is NaN", ErrNumerical)
			return
		}
		if c <= 0 {
			break // negative curvature
		}

		// α = 𝐫ᵀ𝐫 / 𝐩ᵀ𝐇𝐩 , 𝐱 += α𝐩 , 𝐫 -= α𝐇𝐩
		alpha := *rr / c
		moved := primitives.Axpy(q, alpha, p, x, device.Events{last})
		reduced := primitives.Axpy(q, -alpha, hp, r, device.Events{last})

		prev := *rr
		last = primitives.Dot(q, r, r, rr, device.Events{moved, reduced})
		if err = last.Wait(); err != nil {
			return
		}
		if sqrt(*rr) <= bound {
			break
		}

		// β = 𝐫ₖ₊₁ᵀ𝐫ₖ₊₁ / 𝐫ₖᵀ𝐫ₖ , 𝐩 = 𝐫 + β𝐩
		beta := *rr / prev
		last = primitives.ElementWise2(q, func(r, p F) F { return r + beta*p }, r, p, p, device.Events{last})
	}
	return
}
