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
package basecall

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/hetcall/pileup"
)

// DefaultThreshold is the heterozygosity calling threshold used when none is
// specified.
const DefaultThreshold = 0.05

// Classify returns the call for a site with the given counts.
//
// A base whose proportion exceeds 1-threshold makes the site homozygous.
// Otherwise the first pair (in AC, AG, AT, CG, CT, GT order) whose two
// proportions both exceed threshold makes it heterozygous.  Bases are
// checked in A, C, G, T order, so when several qualify (only possible for a
// very small threshold) the earliest wins.  Everything else, including sites
// with no reads, is Unknown.
func Classify(counts Counts, threshold float64) Call {
	if counts.Sum() == 0 {
		return Call{}
	}
	props := counts.Proportions()
	homoCutoff := 1 - threshold
	for b := pileup.BaseA; b <= pileup.BaseT; b++ {
		if props[b] > homoCutoff {
			return HomozygousCall(b)
		}
	}
	for p := PairAC; p < NPair; p++ {
		x, y := p.Bases()
		if props[x] > threshold && props[y] > threshold {
			return HeterozygousCall(p)
		}
	}
	return Call{}
}

// Classifier classifies sites against a fixed, validated threshold.  The zero
// value is not usable; construct with NewClassifier.
type Classifier struct {
	threshold float64
}

// NewClassifier returns a Classifier for threshold, which must lie strictly
// between 0 and 1.
func NewClassifier(threshold float64) (Classifier, error) {
	if !(threshold > 0 && threshold < 1) {
		return Classifier{}, errors.E(errors.Invalid, fmt.Sprintf("config: calling threshold must be in (0, 1), got %v", threshold))
	}
	return Classifier{threshold: threshold}, nil
}

// Threshold returns the calling threshold.
func (c Classifier) Threshold() float64 {
	return c.threshold
}

// Classify is equivalent to Classify(counts, c.Threshold()).
func (c Classifier) Classify(counts Counts) Call {
	return Classify(counts, c.threshold)
}

// Site returns the fully populated Site for counts.
func (c Classifier) Site(counts Counts) Site {
	return Site{
		Counts:      counts,
		Proportions: counts.Proportions(),
		Call:        Classify(counts, c.threshold),
	}
}

// Predicate selects the calls that count as heterozygous for windowed
// heterozygosity.
type Predicate func(Call) bool

// AnyHet accepts every heterozygous call.
func AnyHet(c Call) bool {
	return c.Type == Heterozygous
}

// TransversionHet accepts heterozygous calls whose pair is a transversion.
func TransversionHet(c Call) bool {
	return c.Type == Heterozygous && c.Pair.Kind() == Transversion
}
