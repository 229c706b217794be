// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package primitives

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curioloop/newtoncg/device"
)

func testReduce[F device.Float](t *testing.T) {
	q := device.Default()
	v := device.Wrap([]F{1, -4, 2, -0.5})

	var norm, peak, dp, sum F
	require.NoError(t, device.WaitAll(
		L1Norm(q, v, &norm, nil),
		MaxAbs(q, v, &peak, nil),
		Dot(q, v, v, &dp, nil),
		Sum(q, v, &sum, nil),
	))
	assert.Equal(t, F(7.5), norm)
	assert.Equal(t, F(4), peak)
	assert.Equal(t, F(21.25), dp)
	assert.Equal(t, F(-1.5), sum)

	var empty F = -1
	require.NoError(t, MaxAbs(q, device.Alloc[F](0), &empty, nil).Wait())
	assert.Zero(t, empty)

	assert.ErrorIs(t, Dot(q, v, device.Alloc[F](3), &dp, nil).Wait(), device.ErrDimension)
}

func testElementWise[F device.Float](t *testing.T) {
	q := device.Default()
	x := device.Wrap([]F{1, 2, 3})
	y := device.Wrap([]F{10, 20, 30})
	out := device.Alloc[F](3)

	ev := ElementWise(q, Negate[F], x, 0, out, nil)
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{-1, -2, -3}, out.Data())

	scale := func(v, p F) F { return v * p }
	ev = ElementWise(q, scale, x, 2, x, nil)
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{2, 4, 6}, x.Data())

	ev = ElementWise2(q, func(a, b F) F { return a + b }, x, y, out, nil)
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{12, 24, 36}, out.Data())

	ev = Axpy(q, 0.5, y, out, nil)
	ev = Scal(q, 2, out, device.Events{ev})
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{34, 68, 102}, out.Data())

	ev = Fill(q, out, 7, nil)
	ev = Copy(q, y, out, device.Events{ev})
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{7, 7, 7}, y.Data())

	short := device.Alloc[F](2)
	assert.ErrorIs(t, Copy(q, short, x, nil).Wait(), device.ErrDimension)
	assert.ErrorIs(t, Axpy(q, 1, x, short, nil).Wait(), device.ErrDimension)
	assert.ErrorIs(t, ElementWise(q, Negate[F], x, 0, short, nil).Wait(), device.ErrDimension)
	assert.ErrorIs(t, ElementWise2(q, scale, x, short, x, nil).Wait(), device.ErrDimension)
}

func testGemv[F device.Float](t *testing.T) {
	q := device.Default()
	a, err := device.WrapMatrix([]F{
		1, 2, 3,
		4, 5, 6,
	}, 2, 3)
	require.NoError(t, err)

	y := device.Wrap([]F{1, 1})
	ev := Gemv(q, false, 1, a, device.Wrap([]F{1, 0, -1}), 2, y, nil)
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{0, 0}, y.Data())

	z := device.Alloc[F](3)
	ev = Gemv(q, true, 2, a, device.Wrap([]F{1, 1}), 0, z, nil)
	require.NoError(t, ev.Wait())
	assert.Equal(t, []F{10, 14, 18}, z.Data())

	ev = Gemv(q, true, 1, a, device.Wrap([]F{1, 1}), 0, y, nil)
	assert.ErrorIs(t, ev.Wait(), device.ErrDimension)
}

func TestPrimitives(t *testing.T) {
	t.Run("float32", func(t *testing.T) {
		testReduce[float32](t)
		testElementWise[float32](t)
		testGemv[float32](t)
	})
	t.Run("float64", func(t *testing.T) {
		testReduce[float64](t)
		testElementWise[float64](t)
		testGemv[float64](t)
	})
}

func TestParallelKernels(t *testing.T) {
	q := device.NewQueue(device.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16})
	n := 1000
	x := device.Alloc[float64](n)
	ev := Fill(q, x, 1, nil)
	ev = ElementWise(q, func(v, p float64) float64 { return v * p }, x, 3, x, device.Events{ev})

	var sum float64
	require.NoError(t, Sum(q, x, &sum, device.Events{ev}).Wait())
	assert.Equal(t, 3000., sum)
}
