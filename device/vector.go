// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import (
	"errors"
	"fmt"
	"slices"
)

// ErrDimension is reported when operand shapes disagree.
var ErrDimension = errors.New("device: dimension mismatch")

// Vector is a dense vector resident on the device.
// Its contents must only be read on the host after waiting for the event
// of the last kernel writing it.
type Vector[F Float] struct {
	data []F
}

// Alloc allocates a zeroed vector of length n.
func Alloc[F Float](n int) Vector[F] {
	return Vector[F]{data: make([]F, n)}
}

// Wrap makes host memory visible to the device without copying.
func Wrap[F Float](data []F) Vector[F] {
	return Vector[F]{data: data}
}

// Len returns the vector length.
func (v Vector[F]) Len() int {
	return len(v.data)
}

// Data returns the backing memory.
func (v Vector[F]) Data() []F {
	return v.data
}

// Slice returns the sub-vector [lo, hi) sharing memory with v.
func (v Vector[F]) Slice(lo, hi int) Vector[F] {
	return Vector[F]{data: v.data[lo:hi:hi]}
}

// ToHost returns a copy of the vector contents.
func (v Vector[F]) ToHost() []F {
	return slices.Clone(v.data)
}

// Matrix is a dense row-major matrix resident on the device.
type Matrix[F Float] struct {
	rows, cols int
	data       []F
}

// WrapMatrix wraps row-major host memory as a rows×cols matrix.
func WrapMatrix[F Float](data []F, rows, cols int) (Matrix[F], error) {
	if rows <= 0 || cols <= 0 {
		return Matrix[F]{}, fmt.Errorf("%w: matrix shape %d×%d", ErrDimension, rows, cols)
	}
	if len(data) < rows*cols {
		return Matrix[F]{}, fmt.Errorf("%w: %d values for %d×%d matrix", ErrDimension, len(data), rows, cols)
	}
	return Matrix[F]{rows: rows, cols: cols, data: data[:rows*cols]}, nil
}

// Rows returns the number of rows.
func (m Matrix[F]) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m Matrix[F]) Cols() int { return m.cols }

// Data returns the row-major backing memory.
func (m Matrix[F]) Data() []F { return m.data }

// RowSlice returns the rows [lo, hi) sharing memory with m.
func (m Matrix[F]) RowSlice(lo, hi int) Matrix[F] {
	return Matrix[F]{rows: hi - lo, cols: m.cols, data: m.data[lo*m.cols : hi*m.cols]}
}
