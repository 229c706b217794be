// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package device

import "fmt"

// Arena carves one allocation into equally sized, disjoint vectors
// addressed by index, followed by a small scalar region.
//
// Layout for dimension n, k vectors and s scalars:
//
//	[ vec 0 | vec 1 | ... | vec k-1 | scalars ]
//	  n       n             n         s
//
// Sub-vectors are capacity-limited so that appending to one can never
// spill into its neighbour.
type Arena[F Float] struct {
	buf     []F
	dim     int
	vectors int
}

// NewArena allocates an arena of vectors×n + scalars elements.
func NewArena[F Float](n, vectors, scalars int) *Arena[F] {
	if n <= 0 || vectors < 0 || scalars < 0 {
		panic(fmt.Sprintf("device: invalid arena layout n=%d vectors=%d scalars=%d", n, vectors, scalars))
	}
	return &Arena[F]{
		buf:     make([]F, vectors*n+scalars),
		dim:     n,
		vectors: vectors,
	}
}

// Dim returns the length of every vector region.
func (a *Arena[F]) Dim() int {
	return a.dim
}

// Vector returns the i-th vector region.
func (a *Arena[F]) Vector(i int) Vector[F] {
	if i < 0 || i >= a.vectors {
		panic(fmt.Sprintf("device: arena vector %d out of range [0,%d)", i, a.vectors))
	}
	lo, hi := i*a.dim, (i+1)*a.dim
	return Vector[F]{data: a.buf[lo:hi:hi]}
}

// Scalars returns the scalar region.
func (a *Arena[F]) Scalars() Vector[F] {
	return Vector[F]{data: a.buf[a.vectors*a.dim:]}
}

// Size returns the total number of elements owned by the arena.
func (a *Arena[F]) Size() int {
	return len(a.buf)
}
