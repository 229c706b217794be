// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package primitives implements the asynchronous BLAS, reduction and
// elementwise kernels the optimizers are built from.
//
// Every primitive takes an explicit dependency list and returns the event of
// the submitted kernel. Reductions write their scalar through an out pointer
// that may only be read after that event completed.
package primitives

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"

	"github.com/curioloop/newtoncg/device"
)

// The helpers below dispatch a generic slice to the single or double
// precision gonum implementation.

func vec32(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Inc: 1, Data: x}
}

func vec64(x []float64) blas64.Vector {
	return blas64.Vector{N: len(x), Inc: 1, Data: x}
}

func dot[F device.Float](x, y []F) F {
	switch x := any(x).(type) {
	case []float32:
		return F(blas32.Dot(vec32(x), vec32(any(y).([]float32))))
	default:
		return F(blas64.Dot(vec64(x.([]float64)), vec64(any(y).([]float64))))
	}
}

func asum[F device.Float](x []F) F {
	switch x := any(x).(type) {
	case []float32:
		return F(blas32.Asum(vec32(x)))
	default:
		return F(blas64.Asum(vec64(x.([]float64))))
	}
}

func iamax[F device.Float](x []F) int {
	switch x := any(x).(type) {
	case []float32:
		return blas32.Iamax(vec32(x))
	default:
		return blas64.Iamax(vec64(x.([]float64)))
	}
}

// axpy computes y += alpha*x.
func axpy[F device.Float](alpha F, x, y []F) {
	switch x := any(x).(type) {
	case []float32:
		blas32.Axpy(float32(alpha), vec32(x), vec32(any(y).([]float32)))
	default:
		blas64.Axpy(float64(alpha), vec64(x.([]float64)), vec64(any(y).([]float64)))
	}
}

func scal[F device.Float](alpha F, x []F) {
	switch x := any(x).(type) {
	case []float32:
		blas32.Scal(float32(alpha), vec32(x))
	default:
		blas64.Scal(float64(alpha), vec64(x.([]float64)))
	}
}

// gemv computes y = alpha*op(A)*x + beta*y for a row-major A.
func gemv[F device.Float](trans bool, alpha F, rows, cols int, a, x []F, beta F, y []F) {
	t := blas.NoTrans
	if trans {
		t = blas.Trans
	}
	switch a := any(a).(type) {
	case []float32:
		m := blas32.General{Rows: rows, Cols: cols, Stride: cols, Data: a}
		blas32.Gemv(t, float32(alpha), m, vec32(any(x).([]float32)), float32(beta), vec32(any(y).([]float32)))
	default:
		m := blas64.General{Rows: rows, Cols: cols, Stride: cols, Data: a.([]float64)}
		blas64.Gemv(t, float64(alpha), m, vec64(any(x).([]float64)), float64(beta), vec64(any(y).([]float64)))
	}
}
