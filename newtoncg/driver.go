// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newtoncg

import (
	"errors"
	"fmt"
	"math"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/primitives"
)

// Scratch vectors of the workspace arena.
const (
	vecResidual = iota // CG residual
	vecSearch          // CG search direction, later the line search trial point
	vecProduct         // Hessian product of the CG search direction
	vecDirection       // Newton direction
	numVecs
)

type iterCtx[F device.Float] struct {
	arena *device.Arena[F]
	// scalars is the arena scalar region written by reductions.
	scalars []F

	r, p, hp, d device.Vector[F]
	// trial aliases p: the line search starts after the last CG solve completed.
	trial device.Vector[F]

	// objective value and gradient norms at the current iterate.
	f, gradNorm, gradMax F
	// descent quality ⟨-g, d⟩ of the current direction.
	desc F
	// step length and update norm of the last accepted step.
	step, updNorm F
	// events of the last gradient evaluation.
	updated device.Events
	// event producing the current direction.
	dirReady *device.Event

	iter      int // accepted outer iterations
	inner     int // cumulative CG iterations
	stepInner int // CG iterations of the current outer iteration
	numEval   int // objective evaluations
	searchBad int // line searches ending at the minimum step
}

func (c *iterCtx[F]) init(n int) {
	c.arena = device.NewArena[F](n, numVecs, numSlots)
	c.scalars = c.arena.Scalars().Data()
	c.r = c.arena.Vector(vecResidual)
	c.p = c.arena.Vector(vecSearch)
	c.hp = c.arena.Vector(vecProduct)
	c.d = c.arena.Vector(vecDirection)
	c.trial = c.p
}

func (c *iterCtx[F]) clear() {
	c.f, c.gradNorm, c.gradMax = 0, 0, 0
	c.desc, c.step, c.updNorm = 0, 0, 0
	c.updated, c.dirReady = nil, nil
	c.iter, c.inner, c.stepInner = 0, 0, 0
	c.numEval, c.searchBad = 0, 0
}

// iterDriver is the main driver for iterations in an optimization process,
// responsible for managing the flow of the optimization.
type iterDriver[F device.Float] struct {
	optimizer *Optimizer[F]
	workspace *Workspace[F]
	x         device.Vector[F]
}

// mainLoop runs outer iterations until convergence, the iteration limit or a
// fatal failure. The returned event commits the last accepted iterate into x.
func (d *iterDriver[F]) mainLoop(deps device.Events) (last *device.Event, task Status, err error) {

	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	q := spec.queue

	ctx.clear()
	d.printInit()

	last = device.Completed()
	iterDeps := deps
	for {
		if task, err = d.evaluate(iterDeps); task != iterLoop {
			break
		}
		if ctx.iter >= spec.stop.MaxIterations {
			task = OverIterLimit
			break
		}
		if task, err = d.searchDirection(); task != iterLoop {
			break
		}
		var searched *device.Event
		if searched, task, err = d.searchOptimalStep(); task != iterLoop {
			break
		}

		// The trial point becomes the next iterate.
		last = primitives.Copy(q, d.x, ctx.trial, device.Events{searched})
		iterDeps = device.Events{last}
		ctx.iter++
	}

	d.printExit(task, err)
	return
}

// evaluate moves the objective to the current iterate, reads the gradient
// norms back and checks convergence.
func (d *iterDriver[F]) evaluate(deps device.Events) (Status, error) {
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	q, fn, s := spec.queue, spec.fn, ctx.scalars

	ctx.numEval++
	updated := fn.UpdateX(d.x, true, deps)
	grad := fn.Gradient()
	norm := primitives.L1Norm(q, grad, &s[slotGradNorm], updated)
	peak := primitives.MaxAbs(q, grad, &s[slotGradMax], updated)
	if err := device.WaitAll(norm, peak); err != nil {
		return DeviceFault, fmt.Errorf("newtoncg: evaluate gradient: %w", err)
	}

	ctx.updated = updated
	ctx.f = fn.Value()
	ctx.gradNorm, ctx.gradMax = s[slotGradNorm], s[slotGradMax]
	d.printIter()

	switch {
	case !finite(ctx.f, ctx.gradNorm, ctx.gradMax):
		return NumericalFault, fmt.Errorf("%w: f=%v ‖g‖₁=%v ‖g‖∞=%v", ErrNumerical, ctx.f, ctx.gradNorm, ctx.gradMax)
	case float64(ctx.gradMax) < spec.stop.GradTolerance:
		return Converged, nil
	}
	return iterLoop, nil
}

// searchDirection solves 𝐇𝐝 = -𝐠 by truncated CG, tightening the inner
// tolerance until ⟨-𝐠, 𝐝⟩ > 0.
func (d *iterDriver[F]) searchDirection() (Status, error) {
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	q, fn, s := spec.queue, spec.fn, ctx.scalars
	log := &spec.logger

	tolK := min(sqrt(ctx.gradNorm), F(forcingCap))
	if spec.stop.ExactNewton {
		tolK = 0
	}

	// The gradient is negated in place to form the right-hand side.
	grad := fn.Gradient()
	negated := primitives.ElementWise(q, primitives.Negate[F], grad, 0, grad, ctx.updated)
	last := primitives.Fill(q, ctx.d, 0, device.Events{negated})
	hv := fn.HessianProduct()

	ctx.stepInner = 0
	s[slotDesc] = -1
	for attempt := 0; attempt < maxDescentAttempts; attempt++ {
		if attempt > 0 {
			tolK /= ten
		}
		solved, inner, err := cgSolve(q, hv, grad, ctx.d, ctx.r, ctx.p, ctx.hp, s, tolK, 0, spec.stop.MaxInnerIterations, device.Events{last})
		ctx.inner += inner
		ctx.stepInner += inner
		if err != nil {
			if errors.Is(err, ErrNumerical) {
				return NumericalFault, err
			}
			return DeviceFault, fmt.Errorf("newtoncg: inner solve: %w", err)
		}

		// ⟨-𝐠, 𝐝⟩ is positive for a descent direction
		last = primitives.Dot(q, grad, ctx.d, &s[slotDesc], device.Events{solved})
		if err = last.Wait(); err != nil {
			return DeviceFault, fmt.Errorf("newtoncg: descent check: %w", err)
		}

		desc := s[slotDesc]
		if log.enable(LogTrace) {
			log.Debug().Int("iter", ctx.iter).Int("attempt", attempt+1).Int("inner", inner).
				Float64("tol_k", float64(tolK)).Float64("desc", float64(desc)).Msg("inner solve")
		}
		if math.IsNaN(float64(desc)) {
			return NumericalFault, fmt.Errorf("%w: descent quality is NaN", ErrNumerical)
		}
		if desc > 0 {
			break
		}
	}

	ctx.desc = s[slotDesc]
	ctx.dirReady = last
	if !(ctx.desc > 0) {
		return DescentFailure, ErrDescentDirection
	}
	return iterLoop, nil
}

// searchOptimalStep runs the backtracking line search along the direction and
// returns the event producing the trial point.
func (d *iterDriver[F]) searchOptimalStep() (*device.Event, Status, error) {
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	q, s := spec.queue, ctx.scalars
	log := &spec.logger

	dirNorm := primitives.Dot(q, ctx.d, ctx.d, &s[slotDirNorm], device.Events{ctx.dirReady})

	res, err := backtracking(q, spec.fn, d.x, ctx.d, ctx.trial, ctx.f, ctx.desc, &spec.search, device.Events{ctx.dirReady})
	ctx.numEval += res.evals
	if err != nil {
		return res.last, DeviceFault, fmt.Errorf("newtoncg: line search: %w", err)
	}
	if err = dirNorm.Wait(); err != nil {
		return res.last, DeviceFault, fmt.Errorf("newtoncg: direction norm: %w", err)
	}

	if !res.ok {
		ctx.searchBad++
		if log.enable(LogLast) {
			log.Warn().Int("iter", ctx.iter).Float64("step", float64(res.step)).
				Msg("line search reached the minimum step without sufficient decrease")
		}
	}

	ctx.step = res.step
	ctx.updNorm = sqrt(s[slotDirNorm]) * res.step
	if log.enable(LogTrace) {
		log.Debug().Int("iter", ctx.iter).Int("trials", res.evals).Float64("step", float64(ctx.step)).
			Float64("update_norm", float64(ctx.updNorm)).Msg("line search")
	}
	return res.last, iterLoop, nil
}

// printInit logs the problem and device description.
func (d *iterDriver[F]) printInit() {
	spec := &d.optimizer.iterSpec
	log := &spec.logger
	if log.enable(LogTrace) {
		log.Debug().Int("n", spec.n).
			Int("max_iter", spec.stop.MaxIterations).
			Int("max_inner", spec.stop.MaxInnerIterations).
			Float64("tol", spec.stop.GradTolerance).
			Float64("eps", float64(device.Epsilon[F]())).
			Stringer("device", spec.queue.Features()).
			Msg("running newton-cg")
	}
}

// printIter logs and reports the state at the current iterate.
func (d *iterDriver[F]) printIter() {
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx

	progress := Progress{
		Iter:       ctx.iter,
		Loss:       float64(ctx.f),
		GradNorm:   float64(ctx.gradNorm),
		GradMaxAbs: float64(ctx.gradMax),
		InnerIter:  ctx.stepInner,
		Step:       float64(ctx.step),
		UpdateNorm: float64(ctx.updNorm),
	}

	if log := &spec.logger; log.enable(LogEval) {
		log.Info().Int("iter", progress.Iter).
			Float64("loss", progress.Loss).
			Float64("grad_norm", progress.GradNorm).
			Float64("max_abs", progress.GradMaxAbs).
			Int("inner", progress.InnerIter).
			Float64("step", progress.Step).
			Float64("update_norm", progress.UpdateNorm).
			Msg("newton-cg iteration")
	}

	if spec.monitor != nil {
		spec.monitor(progress)
	}
}

// printExit logs the final statistics and exit conditions of the optimization process.
func (d *iterDriver[F]) printExit(task Status, err error) {
	spec := &d.optimizer.iterSpec
	ctx := &d.workspace.iterCtx
	log := &spec.logger
	if !log.enable(LogLast) {
		return
	}
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("n", spec.n).
		Int("iter", ctx.iter).
		Int("inner", ctx.inner).
		Int("eval", ctx.numEval).
		Int("bad_search", ctx.searchBad).
		Float64("max_abs", float64(ctx.gradMax)).
		Float64("f", float64(ctx.f)).
		Msg(task.String())
}
