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

	"github.com/grailbio/hetcall/pileup/basecall"
)

// Mode selects which heterozygous sites count toward window proportions.
type Mode struct {
	// Name is used in output file names and logs.
	Name  string
	IsHet basecall.Predicate
}

var (
	// ModeAll counts every heterozygous site.
	ModeAll = Mode{Name: "all", IsHet: basecall.AnyHet}
	// ModeTransversion counts transversion-type heterozygous sites only.
	ModeTransversion = Mode{Name: "tv", IsHet: basecall.TransversionHet}
)

// Modes lists the analysis modes, in reporting order.
var Modes = []Mode{ModeAll, ModeTransversion}

// RunFunc receives runs as they close.  rohIdx indexes the ROH minimums the
// Track was created with.
type RunFunc func(rohIdx int, r Run) error

// Track runs one Mode's window aggregation and run detection, for any number
// of ROH minimums, over a classified site stream.  Every minimum shares the
// same windows.
type Track struct {
	Mode      Mode
	Summaries []*Summary

	agg       *Aggregator
	detectors []*Detector
	onRun     RunFunc
}

// NewTrack returns a Track for mode.  onRun may be nil.
func NewTrack(mode Mode, wopts WindowOpts, rohMins []float64, onRun RunFunc) (*Track, error) {
	if len(rohMins) == 0 {
		return nil, fmt.Errorf("roh.NewTrack: at least one ROH minimum required")
	}
	agg, err := NewAggregator(wopts)
	if err != nil {
		return nil, err
	}
	t := &Track{
		Mode:  mode,
		agg:   agg,
		onRun: onRun,
	}
	for _, m := range rohMins {
		d, err := NewDetector(m)
		if err != nil {
			return nil, err
		}
		t.detectors = append(t.detectors, d)
		t.Summaries = append(t.Summaries, NewSummary(wopts.Size, m))
	}
	return t, nil
}

// Add consumes the next classified site.
func (t *Track) Add(call basecall.Call) error {
	het := t.Mode.IsHet(call)
	for _, s := range t.Summaries {
		s.AddSite(het)
	}
	w, ok := t.agg.Add(het)
	if !ok {
		return nil
	}
	for i, d := range t.detectors {
		t.Summaries[i].AddWindow(w)
		if r, closed := d.Add(w); closed {
			if err := t.emit(i, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Finish closes any open runs.  The Track must not be used afterwards.
func (t *Track) Finish() error {
	for i, d := range t.detectors {
		if r, closed := d.Finish(); closed {
			if err := t.emit(i, r); err != nil {
				return err
			}
		}
	}
	return nil
}

// NWindow returns the number of windows emitted so far.
func (t *Track) NWindow() int {
	return t.agg.NWindow()
}

func (t *Track) emit(rohIdx int, r Run) error {
	t.Summaries[rohIdx].AddRun(r)
	if t.onRun == nil {
		return nil
	}
	return t.onRun(rohIdx, r)
}
