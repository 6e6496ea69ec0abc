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
package roh

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hetcall/circular"
)

const (
	// DefaultWindowSize is the default number of sites per window.
	DefaultWindowSize = 100000
	// DefaultStepSize is the default number of sites between window starts.
	DefaultStepSize = 25000
)

// WindowOpts defines window geometry, in sites.  Windows are positional in the
// site stream; genomic gaps between consecutive sites are ignored.
type WindowOpts struct {
	// Size is the number of sites in each window.
	Size int
	// Step is the number of sites between the starts of consecutive windows.
	// Step < Size gives overlapping windows, Step == Size tumbling ones.
	Step int
}

// DefaultWindowOpts are the window parameters used when none are specified.
var DefaultWindowOpts = WindowOpts{
	Size: DefaultWindowSize,
	Step: DefaultStepSize,
}

// Validate returns a configuration error if the geometry is unusable.
func (o WindowOpts) Validate() error {
	if o.Size <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("config: window size must be positive, got %d", o.Size))
	}
	if o.Step <= 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("config: step size must be positive, got %d", o.Step))
	}
	if o.Step > o.Size {
		return errors.E(errors.Invalid, fmt.Sprintf("config: step size %d exceeds window size %d", o.Step, o.Size))
	}
	return nil
}

// NumWindows returns the number of windows emitted for a stream of nSite
// sites: floor((nSite-Size)/Step)+1, or 0 when nSite < Size.
func (o WindowOpts) NumWindows(nSite int) int {
	if nSite < o.Size {
		return 0
	}
	return (nSite-o.Size)/o.Step + 1
}

// Window summarizes one closed window.
type Window struct {
	// Index is the 0-based ordinal of the window in the stream.
	Index int
	// Start is the 0-based index of the window's first site in the stream.
	Start int
	// Length is the number of sites covered; always WindowOpts.Size.
	Length int
	// HetCount is the number of covered sites accepted by the predicate.
	HetCount int
	// Proportion is HetCount / Length.
	Proportion float64
}

// Aggregator turns a stream of per-site heterozygosity flags into windows.
// Sites beyond the last complete window are never reported.
type Aggregator struct {
	opts    WindowOpts
	ring    circular.Ring
	nWindow int
}

// NewAggregator returns an Aggregator for the given (validated) geometry.
func NewAggregator(opts WindowOpts) (*Aggregator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{
		opts: opts,
		ring: circular.NewRing(opts.Size),
	}, nil
}

// Add consumes the next site.  ok is true when the site completes a window,
// in which case w describes it.
func (a *Aggregator) Add(het bool) (w Window, ok bool) {
	var v byte
	if het {
		v = 1
	}
	a.ring.Push(v)
	start := a.ring.N() - a.opts.Size
	if start < 0 || start%a.opts.Step != 0 {
		return
	}
	hetCount := a.ring.Sum()
	w = Window{
		Index:      a.nWindow,
		Start:      start,
		Length:     a.opts.Size,
		HetCount:   hetCount,
		Proportion: float64(hetCount) / float64(a.opts.Size),
	}
	a.nWindow++
	return w, true
}

// NSite returns the number of sites consumed.
func (a *Aggregator) NSite() int {
	return a.ring.N()
}

// NWindow returns the number of windows emitted.
func (a *Aggregator) NWindow() int {
	return a.nWindow
}
