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
	"github.com/grailbio/hetcall/pileup"
)

// Counts holds the raw read depth for A, C, G, and T, in pileup.BaseA..BaseT
// order.
type Counts [pileup.NBase]uint32

// Sum returns the total depth.
func (c *Counts) Sum() uint64 {
	return uint64(c[pileup.BaseA]) + uint64(c[pileup.BaseC]) + uint64(c[pileup.BaseG]) + uint64(c[pileup.BaseT])
}

// Proportions returns counts[i] / sum(counts), or all zeros when no base was
// observed.
func (c *Counts) Proportions() (props [pileup.NBase]float64) {
	sum := c.Sum()
	if sum == 0 {
		return
	}
	fsum := float64(sum)
	for i, n := range c {
		props[i] = float64(n) / fsum
	}
	return
}

// Kind distinguishes heterozygous pairs by mutation class.
type Kind uint8

const (
	// KindNone is the Kind of non-heterozygous calls.
	KindNone Kind = iota
	// Transition covers the A<->G and C<->T pairs.
	Transition
	// Transversion covers the other four pairs.
	Transversion
)

// String returns "ts", "tv", or ".".
func (k Kind) String() string {
	switch k {
	case Transition:
		return "ts"
	case Transversion:
		return "tv"
	}
	return "."
}

// Pair identifies an unordered two-base combination.  Values are ordered the
// way pairs are tested during calling.
type Pair uint8

const (
	PairAC Pair = iota
	PairAG
	PairAT
	PairCG
	PairCT
	PairGT
	// NPair is the number of distinct pairs.
	NPair
)

var pairBases = [NPair][2]byte{
	{pileup.BaseA, pileup.BaseC},
	{pileup.BaseA, pileup.BaseG},
	{pileup.BaseA, pileup.BaseT},
	{pileup.BaseC, pileup.BaseG},
	{pileup.BaseC, pileup.BaseT},
	{pileup.BaseG, pileup.BaseT},
}

var pairKinds = [NPair]Kind{Transversion, Transition, Transversion, Transversion, Transition, Transversion}

// Bases returns the two bases of the pair, lower enum value first.
func (p Pair) Bases() (byte, byte) {
	return pairBases[p][0], pairBases[p][1]
}

// Kind returns Transition for AG and CT, Transversion otherwise.
func (p Pair) Kind() Kind {
	return pairKinds[p]
}

func (p Pair) String() string {
	x, y := p.Bases()
	return string([]byte{pileup.EnumToASCIITable[x], pileup.EnumToASCIITable[y]})
}

// CallType is the top-level classification of a site.
type CallType uint8

const (
	// Unknown means neither the homozygous nor the heterozygous condition
	// held, or no reads covered the site.
	Unknown CallType = iota
	// Homozygous means a single base exceeded the homozygous cutoff.
	Homozygous
	// Heterozygous means both bases of some pair exceeded the threshold.
	Heterozygous
)

// Call is the immutable result of classifying one site.  Base is only
// meaningful for Homozygous calls, and Pair only for Heterozygous ones.
type Call struct {
	Type CallType
	Base byte
	Pair Pair
}

// HomozygousCall returns the call for a site dominated by base.
func HomozygousCall(base byte) Call {
	return Call{Type: Homozygous, Base: base}
}

// HeterozygousCall returns the call for a site supporting both bases of p.
func HeterozygousCall(p Pair) Call {
	return Call{Type: Heterozygous, Pair: p}
}

// Kind returns the pair's mutation class for heterozygous calls, and
// KindNone otherwise.
func (c Call) Kind() Kind {
	if c.Type != Heterozygous {
		return KindNone
	}
	return c.Pair.Kind()
}

// String renders the call as a base letter ("A"), a pair ("AG"), or "N".
func (c Call) String() string {
	switch c.Type {
	case Homozygous:
		return string(pileup.EnumToASCIITable[c.Base : c.Base+1])
	case Heterozygous:
		return c.Pair.String()
	}
	return "N"
}

// Site bundles a site's counts with the derived proportions and call.
type Site struct {
	Counts      Counts
	Proportions [pileup.NBase]float64
	Call        Call
}
