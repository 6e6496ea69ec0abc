// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package circular

import (
	"math/bits"

	"github.com/grailbio/base/log"
)

// NextExp2 returns the next power of 2 strictly greater than x.  (Useful when
// setting circular buffer size.)
func NextExp2(x int) int {
	log2 := 63 - bits.LeadingZeros64(uint64(x))
	return 2 << uint32(log2)
}

// Ring is a circular byte buffer which tracks the sum of the most recent
// width values pushed into it.  Storage is rounded up to a power of two so
// that positions can be mapped to slots with a mask.
type Ring struct {
	buf   []byte
	mask  int
	width int
	// n is the number of values pushed so far (high bits preserved).
	n   int
	sum int
}

// NewRing creates an empty Ring summing over the last width values.
func NewRing(width int) Ring {
	if width <= 0 {
		log.Panicf("circular.NewRing: width must be positive, got %d", width)
	}
	nCirc := NextExp2(width)
	return Ring{
		buf:   make([]byte, nCirc),
		mask:  nCirc - 1,
		width: width,
	}
}

// Push appends v.  Once more than width values have been pushed, the value
// pushed width positions earlier drops out of the sum.
func (r *Ring) Push(v byte) {
	if r.n >= r.width {
		r.sum -= int(r.buf[(r.n-r.width)&r.mask])
	}
	r.buf[r.n&r.mask] = v
	r.sum += int(v)
	r.n++
}

// Sum returns the sum of the last min(N(), width) values pushed.
func (r *Ring) Sum() int {
	return r.sum
}

// N returns the number of values pushed since creation.
func (r *Ring) N() int {
	return r.n
}
