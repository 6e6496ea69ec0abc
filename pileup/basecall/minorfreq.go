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
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/tsv"
)

// nFreqBin covers minor allele frequencies 0.00..0.50 in steps of 0.01.
const nFreqBin = 51

// MinorFreqTable counts heterozygous sites by (minor allele frequency, pair).
// The minor allele frequency of a heterozygous site is the smaller of its two
// pair proportions, rounded to the nearest hundredth.
type MinorFreqTable struct {
	counts [nFreqBin][NPair]uint64
}

// Add records site if it is heterozygous; other calls are ignored.
func (m *MinorFreqTable) Add(site *Site) {
	if site.Call.Type != Heterozygous {
		return
	}
	x, y := site.Call.Pair.Bases()
	minor := math.Min(site.Proportions[x], site.Proportions[y])
	// Proportions are renormalized over all four bases, so minor <= 0.5 always.
	bin := int(math.Round(minor * 100))
	if bin >= nFreqBin {
		bin = nFreqBin - 1
	}
	m.counts[bin][site.Call.Pair]++
}

// Count returns the number of sites recorded for freq (in hundredths) and p.
func (m *MinorFreqTable) Count(freqHundredths int, p Pair) uint64 {
	return m.counts[freqHundredths][p]
}

// Total returns the number of heterozygous sites recorded.
func (m *MinorFreqTable) Total() (n uint64) {
	for i := range m.counts {
		for _, c := range m.counts[i] {
			n += c
		}
	}
	return
}

// WriteTSV writes the nonzero table entries, ordered by frequency and then
// pair.
func (m *MinorFreqTable) WriteTSV(w io.Writer) error {
	tsvw := tsv.NewWriter(w)
	tsvw.WriteString("#FREQ\tPAIR\tKIND\tCOUNT")
	if err := tsvw.EndLine(); err != nil {
		return err
	}
	for bin := range m.counts {
		for p, c := range m.counts[bin] {
			if c == 0 {
				continue
			}
			pair := Pair(p)
			tsvw.WriteString(strconv.FormatFloat(float64(bin)/100, 'f', 2, 64))
			tsvw.WriteString(pair.String())
			tsvw.WriteString(pair.Kind().String())
			tsvw.WriteString(strconv.FormatUint(c, 10))
			if err := tsvw.EndLine(); err != nil {
				return err
			}
		}
	}
	return tsvw.Flush()
}
