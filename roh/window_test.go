// Copyright 2021 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package roh_test

import (
	"math/rand"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hetcall/roh"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	tassert "github.com/stretchr/testify/assert"
)

func TestWindowOptsValidate(t *testing.T) {
	for _, opts := range []roh.WindowOpts{
		{Size: 0, Step: 1},
		{Size: 10, Step: 0},
		{Size: -5, Step: 1},
		{Size: 10, Step: 11},
	} {
		err := opts.Validate()
		expect.True(t, errors.Is(errors.Invalid, err), "opts=%+v", opts)
		_, err = roh.NewAggregator(opts)
		expect.NotNil(t, err, "opts=%+v", opts)
	}
	assert.NoError(t, roh.DefaultWindowOpts.Validate())
	assert.NoError(t, roh.WindowOpts{Size: 10, Step: 10}.Validate())
}

func TestAggregatorWindowCount(t *testing.T) {
	for _, test := range []struct {
		size, step, nSite int
	}{
		{4, 4, 0},
		{4, 4, 3},
		{4, 4, 4},
		{4, 4, 15},
		{4, 1, 4},
		{4, 1, 10},
		{4, 3, 12},
		{100, 25, 99},
		{100, 25, 1000},
		{100, 25, 1024},
	} {
		opts := roh.WindowOpts{Size: test.size, Step: test.step}
		agg, err := roh.NewAggregator(opts)
		assert.NoError(t, err)
		n := 0
		for i := 0; i < test.nSite; i++ {
			if _, ok := agg.Add(i%3 == 0); ok {
				n++
			}
		}
		want := 0
		if test.nSite >= test.size {
			want = (test.nSite-test.size)/test.step + 1
		}
		expect.EQ(t, n, want, "%+v", test)
		expect.EQ(t, agg.NWindow(), want, "%+v", test)
		expect.EQ(t, opts.NumWindows(test.nSite), want, "%+v", test)
		expect.EQ(t, agg.NSite(), test.nSite)
	}
}

func TestAggregatorContents(t *testing.T) {
	rand.Seed(7)
	flags := make([]bool, 5000)
	for i := range flags {
		flags[i] = rand.Intn(5) == 0
	}
	for _, opts := range []roh.WindowOpts{
		{Size: 1, Step: 1},
		{Size: 100, Step: 25},
		{Size: 64, Step: 64},
		{Size: 333, Step: 100},
	} {
		agg, err := roh.NewAggregator(opts)
		assert.NoError(t, err)
		nextIndex := 0
		for i, het := range flags {
			w, ok := agg.Add(het)
			if !ok {
				continue
			}
			expect.EQ(t, w.Index, nextIndex)
			nextIndex++
			expect.EQ(t, w.Start, i+1-opts.Size)
			expect.EQ(t, w.Start%opts.Step, 0)
			expect.EQ(t, w.Length, opts.Size)
			want := 0
			for _, f := range flags[w.Start : w.Start+opts.Size] {
				if f {
					want++
				}
			}
			expect.EQ(t, w.HetCount, want, "opts=%+v start=%d", opts, w.Start)
			tassert.InDelta(t, float64(want)/float64(opts.Size), w.Proportion, 1e-12)
		}
		expect.EQ(t, nextIndex, opts.NumWindows(len(flags)))
	}
}
