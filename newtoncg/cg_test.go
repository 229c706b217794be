// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package newtoncg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/newtoncg/device"
	"github.com/curioloop/newtoncg/objective"
)

type cgBuffers struct {
	x, r, p, hp device.Vector[float64]
	s           []float64
}

func newCGBuffers(n int) cgBuffers {
	return cgBuffers{
		x:  device.Alloc[float64](n),
		r:  device.Alloc[float64](n),
		p:  device.Alloc[float64](n),
		hp: device.Alloc[float64](n),
		s:  make([]float64, numSlots),
	}
}

func TestCGSolveExact(t *testing.T) {
	q := device.Default()
	diag := []float64{1, 2, 3, 4}
	f, err := objective.NewQuadratic(q, diag, nil)
	require.NoError(t, err)

	b := device.Wrap([]float64{1, 1, 1, 1})
	buf := newCGBuffers(4)
	last, inner, err := cgSolve(q, f.HessianProduct(), b, buf.x, buf.r, buf.p, buf.hp, buf.s, 0, 0, 4, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())

	assert.Equal(t, 4, inner)
	for i, h := range diag {
		assert.InDelta(t, 1/h, buf.x.Data()[i], 1e-10)
	}
}

func TestCGSolveTruncated(t *testing.T) {
	q := device.Default()
	diag := []float64{1, 10, 100, 1000}
	f, err := objective.NewQuadratic(q, diag, nil)
	require.NoError(t, err)

	rhs := []float64{1, -2, 3, -4}
	buf := newCGBuffers(4)
	last, inner, err := cgSolve(q, f.HessianProduct(), device.Wrap(rhs), buf.x, buf.r, buf.p, buf.hp, buf.s, 0.5, 0, 100, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())

	assert.LessOrEqual(t, inner, 4)
	var res, norm float64
	for i, h := range diag {
		v := rhs[i] - h*buf.x.Data()[i]
		res += v * v
		norm += rhs[i] * rhs[i]
	}
	assert.LessOrEqual(t, math.Sqrt(res), 0.5*math.Sqrt(norm)+1e-12)
}

func TestCGSolveNegativeCurvature(t *testing.T) {
	q := device.Default()
	f, err := objective.NewQuadratic(q, []float64{-1, -1}, nil)
	require.NoError(t, err)

	buf := newCGBuffers(2)
	last, inner, err := cgSolve(q, f.HessianProduct(), device.Wrap([]float64{1, 2}), buf.x, buf.r, buf.p, buf.hp, buf.s, 0.5, 0, 10, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())

	// the first step is rejected and the initial iterate kept
	assert.Equal(t, 1, inner)
	assert.Equal(t, []float64{0, 0}, buf.x.Data())
}

func TestCGSolveInnerLimit(t *testing.T) {
	q := device.Default()
	f, err := objective.NewQuadratic(q, []float64{1, 5, 25}, nil)
	require.NoError(t, err)

	buf := newCGBuffers(3)
	last, inner, err := cgSolve(q, f.HessianProduct(), device.Wrap([]float64{1, 1, 1}), buf.x, buf.r, buf.p, buf.hp, buf.s, 0, 0, 1, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())
	assert.Equal(t, 1, inner)
}

func TestCGSolveZeroRhs(t *testing.T) {
	q := device.Default()
	f, err := objective.NewQuadratic(q, []float64{2, 3}, nil)
	require.NoError(t, err)

	buf := newCGBuffers(2)
	last, inner, err := cgSolve(q, f.HessianProduct(), device.Alloc[float64](2), buf.x, buf.r, buf.p, buf.hp, buf.s, 0.5, 0, 10, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())
	assert.Zero(t, inner)
	assert.Equal(t, []float64{0, 0}, buf.x.Data())
}

func TestCGSolveStartPoint(t *testing.T) {
	q := device.Default()
	f, err := objective.NewQuadratic(q, []float64{2, 4}, nil)
	require.NoError(t, err)

	buf := newCGBuffers(2)
	last, _, err := cgSolve(q, f.HessianProduct(), device.Wrap([]float64{2, 4}), buf.x, buf.r, buf.p, buf.hp, buf.s, 0, 1, 10, nil)
	require.NoError(t, err)
	require.NoError(t, last.Wait())
	assert.InDeltaSlice(t, []float64{1, 1}, buf.x.Data(), 1e-12)
}

func TestCGSolveDeviceFailure(t *testing.T) {
	q := device.Default()
	broken := objective.OperatorFunc[float64](func(src, dst device.Vector[float64], deps device.Events) *device.Event {
		return q.Submit(deps, func() error { panic("boom") })
	})

	buf := newCGBuffers(2)
	_, _, err := cgSolve(q, broken, device.Wrap([]float64{1, 1}), buf.x, buf.r, buf.p, buf.hp, buf.s, 0.5, 0, 10, nil)
	assert.ErrorIs(t, err, device.ErrKernelPanic)
}
