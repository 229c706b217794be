// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package newtoncg implements the truncated Newton method with conjugate
// gradient inner solves and backtracking line search for unconstrained
// minimization of smooth functions on device-resident vectors.
package newtoncg

import "errors"

const (
	zero = 0.0
	one  = 1.0
	p5   = 0.5
	ten  = 10.0
)

const (
	// maxDescentAttempts bounds the CG solves spent looking for a descent direction.
	maxDescentAttempts = 10
	// forcingCap caps the relative residual tolerance of the inner solve.
	forcingCap = p5
)

const (
	searchStep        = 1.0
	searchDecrease    = 1.0e-4
	searchContraction = 0.5
	searchMinStep     = 1.0e-20
)

// Scalar slots of the workspace arena.
const (
	slotGradNorm = iota
	slotGradMax
	slotDesc
	slotDirNorm
	slotResidual
	slotRhs
	slotCurvature
	numSlots
)

// Status is the final state of an optimization.
type Status int

const (
	iterLoop Status = iota
	// Converged the largest gradient component fell below the tolerance.
	Converged
	// OverIterLimit the outer iteration budget was exhausted (non convergence).
	OverIterLimit
	// DescentFailure no descent direction was found within the retry budget.
	DescentFailure
	// NumericalFault a NaN or Inf was produced by the objective.
	NumericalFault
	// DeviceFault a kernel failed.
	DeviceFault
)

func (s Status) String() string {
	switch s {
	case iterLoop:
		return "RUNNING"
	case Converged:
		return "CONVERGENCE: MAX_ABS_OF_GRADIENT_<_TOL"
	case OverIterLimit:
		return "STOP: TOTAL NO. of ITERATIONS REACHED LIMIT"
	case DescentFailure:
		return "ABNORMAL_TERMINATION_IN_DESCENT_DIRECTION"
	case NumericalFault:
		return "ABNORMAL_TERMINATION_NON_FINITE_VALUE"
	case DeviceFault:
		return "ABNORMAL_TERMINATION_DEVICE_FAILURE"
	default:
		return "UNKNOWN TASK"
	}
}

var (
	// ErrDescentDirection is returned when no CG solve produced a descent direction.
	ErrDescentDirection = errors.New("newtoncg: failed to find a descent direction")
	// ErrNumerical is returned when the objective produced a NaN or Inf.
	ErrNumerical = errors.New("newtoncg: non-finite value encountered")
)
