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
	"math"

	"github.com/montanaflynn/stats"
)

// Tiers are the minimum run lengths, in windows, for which base pairs in ROH
// are reported.
var Tiers = [...]int{1, 10, 50}

// NTier is the number of reporting tiers.
const NTier = len(Tiers)

// Summary folds one mode's sites, windows, and runs into genome-wide
// statistics for a single (threshold, ROH minimum) configuration.
//
// Base-pair figures scale window counts by the window size, i.e. each window
// is reported as an independent block of WindowSize units even when windows
// overlap.
type Summary struct {
	// WindowSize is the per-window base-pair constant.
	WindowSize int
	// MinProportion is the ROH threshold the runs were detected with.
	MinProportion float64

	HetSites   uint64
	TotalSites uint64
	NWindow    int
	// RunWindows[i] is the total WindowCount of runs at least Tiers[i] windows
	// long.
	RunWindows [NTier]int64

	windowPropSum float64
	runLens       stats.Float64Data
}

// NewSummary returns an empty Summary.
func NewSummary(windowSize int, minProportion float64) *Summary {
	return &Summary{WindowSize: windowSize, MinProportion: minProportion}
}

// AddSite records one site; het reports whether the mode's predicate accepted
// it.
func (s *Summary) AddSite(het bool) {
	s.TotalSites++
	if het {
		s.HetSites++
	}
}

// AddWindow records one closed window.
func (s *Summary) AddWindow(w Window) {
	s.NWindow++
	s.windowPropSum += w.Proportion
}

// AddRun records one closed run.
func (s *Summary) AddRun(r Run) {
	for i, tier := range Tiers {
		if r.WindowCount >= tier {
			s.RunWindows[i] += int64(r.WindowCount)
		}
	}
	s.runLens = append(s.runLens, float64(r.WindowCount))
}

// NRun returns the number of runs recorded.
func (s *Summary) NRun() int {
	return len(s.runLens)
}

// BpInROH returns the base pairs in runs at least Tiers[tier] windows long.
func (s *Summary) BpInROH(tier int) int64 {
	return s.RunWindows[tier] * int64(s.WindowSize)
}

// BpAnalysed returns the number of windows observed, scaled by the window
// size.
func (s *Summary) BpAnalysed() int64 {
	return int64(s.NWindow) * int64(s.WindowSize)
}

// GenomeWideHeterozygosity returns HetSites / (TotalSites - 1), or NaN when
// TotalSites <= 1.
//
// The denominator is one less than the site count, matching established
// output that counted a header row among its sites.
// TODO(hetcall): drop the -1 once downstream comparisons are re-baselined.
func (s *Summary) GenomeWideHeterozygosity() float64 {
	if s.TotalSites <= 1 {
		return math.NaN()
	}
	return float64(s.HetSites) / float64(s.TotalSites-1)
}

// MeanWindowProportion returns the mean heterozygosity proportion over all
// windows, or NaN when there were none.
func (s *Summary) MeanWindowProportion() float64 {
	if s.NWindow == 0 {
		return math.NaN()
	}
	return s.windowPropSum / float64(s.NWindow)
}

// RunLengthStats returns the mean, median, and maximum run length in windows.
// All three are NaN when no runs were recorded.
func (s *Summary) RunLengthStats() (mean, median, max float64) {
	var err error
	if mean, err = stats.Mean(s.runLens); err != nil {
		return math.NaN(), math.NaN(), math.NaN()
	}
	if median, err = stats.Median(s.runLens); err != nil {
		return math.NaN(), math.NaN(), math.NaN()
	}
	if max, err = stats.Max(s.runLens); err != nil {
		return math.NaN(), math.NaN(), math.NaN()
	}
	return
}
