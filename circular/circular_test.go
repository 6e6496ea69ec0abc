// Copyright 2018 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package circular_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/hetcall/circular"
	"github.com/grailbio/testutil/expect"
)

func TestNextExp2(t *testing.T) {
	expect.EQ(t, circular.NextExp2(1), 2)
	expect.EQ(t, circular.NextExp2(3), 4)
	expect.EQ(t, circular.NextExp2(4), 8)
	expect.EQ(t, circular.NextExp2(100000), 131072)
}

func TestRing(t *testing.T) {
	rand.Seed(1)
	for _, width := range []int{1, 2, 7, 8, 100} {
		r := circular.NewRing(width)
		var vals []byte
		for i := 0; i < 1000; i++ {
			v := byte(rand.Intn(2))
			r.Push(v)
			vals = append(vals, v)
			start := len(vals) - width
			if start < 0 {
				start = 0
			}
			want := 0
			for _, x := range vals[start:] {
				want += int(x)
			}
			if r.Sum() != want {
				t.Fatalf("width=%d i=%d: got sum %d, want %d", width, i, r.Sum(), want)
			}
		}
		expect.EQ(t, r.N(), 1000)
	}
}
