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
)

// DefaultMinProportion is the default ROH threshold: windows with a
// heterozygosity proportion below it extend a run.
const DefaultMinProportion = 0.2

// Run is a maximal sequence of consecutive windows whose proportion is below
// the detector's threshold.
type Run struct {
	// FirstWindow is the Index of the run's first window.
	FirstWindow int
	// WindowCount is the number of windows in the run; always >= 1.
	WindowCount int
	// TerminalProportion is the proportion of the run's last window.
	TerminalProportion float64
}

// Detector groups a window stream into runs.  It is either idle or inside an
// open run; a run closes on the first window at or above the threshold, or on
// Finish.
type Detector struct {
	minProportion float64
	inRun         bool
	cur           Run
}

// NewDetector returns an idle Detector for the given ROH threshold, which
// must lie strictly between 0 and 1.
func NewDetector(minProportion float64) (*Detector, error) {
	if !(minProportion > 0 && minProportion < 1) {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("config: ROH minimum must be in (0, 1), got %v", minProportion))
	}
	return &Detector{minProportion: minProportion}, nil
}

// MinProportion returns the detector's threshold.
func (d *Detector) MinProportion() float64 {
	return d.minProportion
}

// Add consumes the next window.  ok is true when w closes a run, in which
// case r is that run.
func (d *Detector) Add(w Window) (r Run, ok bool) {
	if w.Proportion < d.minProportion {
		if !d.inRun {
			d.inRun = true
			d.cur = Run{FirstWindow: w.Index}
		}
		d.cur.WindowCount++
		d.cur.TerminalProportion = w.Proportion
		return
	}
	return d.close()
}

// Finish closes and returns the open run, if any.  The detector is idle
// afterwards.
func (d *Detector) Finish() (r Run, ok bool) {
	return d.close()
}

func (d *Detector) close() (r Run, ok bool) {
	if !d.inRun {
		return
	}
	r = d.cur
	d.inRun = false
	d.cur = Run{}
	return r, true
}

// DetectRuns runs a Detector over an in-memory proportion sequence.  Window
// indexes are positions in proportions.
func DetectRuns(proportions []float64, minProportion float64) ([]Run, error) {
	d, err := NewDetector(minProportion)
	if err != nil {
		return nil, err
	}
	var runs []Run
	for i, p := range proportions {
		if r, ok := d.Add(Window{Index: i, Proportion: p}); ok {
			runs = append(runs, r)
		}
	}
	if r, ok := d.Finish(); ok {
		runs = append(runs, r)
	}
	return runs, nil
}
