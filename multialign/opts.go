// Copyright 2020 Grail Inc.
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
package multialign

// CallMode selects the base-calling algorithm.
type CallMode int

const (
	// Statistical weighs every base by its quality.
	Statistical CallMode = iota
	// Plurality counts bases.
	Plurality
	// Passthrough copies the first bead of the column.
	Passthrough
)

func (m CallMode) String() string {
	switch m {
	case Statistical:
		return "statistical"
	case Plurality:
		return "plurality"
	case Passthrough:
		return "passthrough"
	}
	return "unknown"
}

// CallOpts configures BaseCall.
type CallOpts struct {
	Mode CallMode
	// Ploidy and SNPRate set the prior probability of a gap call.
	Ploidy  int
	SNPRate float64
	// MinQV and MaxQV clamp the output quality.
	MinQV, MaxQV int
	// A base counts towards variation only if it is seen in at least
	// MinReadsForVariation beads with quality >= MinQVForVariation.  A gap
	// also counts if its two best qualities sum to at least
	// MinSumQVForGapVariation.
	MinQVForVariation       int
	MinReadsForVariation    int
	MinSumQVForGapVariation int
	// Smoothing negates the variation score of gap calls.
	Smoothing bool
	// TargetAllele, when >= 0, restricts the voting reads to those whose
	// entry in Alleles (indexed by FragID) equals it.
	TargetAllele int
	Alleles      []int
	// TieBreaker resolves equal weights.  nil means LowestCode.
	TieBreaker TieBreaker
}

// DefaultCallOpts is the default base-calling configuration.
var DefaultCallOpts = CallOpts{
	Mode:                    Statistical,
	Ploidy:                  1,
	SNPRate:                 0.001,
	MinQV:                   0,
	MaxQV:                   60,
	MinQVForVariation:       12,
	MinReadsForVariation:    1,
	MinSumQVForGapVariation: 40,
	TargetAllele:            -1,
	TieBreaker:              LowestCode,
}

// RefreshOpts configures RefreshMANode.
type RefreshOpts struct {
	Call CallOpts
	// SplitAlleles recalls every variant region from its heaviest allele
	// and produces variant records.
	SplitAlleles bool
	// SmoothWindow bridges zero-variation runs of up to this many columns
	// between two variation signals.
	SmoothWindow int
	// GapVarWeight scales the variation of gap calls before smoothing.
	GapVarWeight float64
	// MaxAlleles bounds the number of alleles whose consensus is reported.
	MaxAlleles int
	// MinAlleleReads is the number of reads that confirms an allele.
	MinAlleleReads int
}

// DefaultRefreshOpts is the default refresh configuration.
var DefaultRefreshOpts = RefreshOpts{
	Call:           DefaultCallOpts,
	SplitAlleles:   false,
	SmoothWindow:   11,
	GapVarWeight:   0.5,
	MaxAlleles:     2,
	MinAlleleReads: 2,
}

// WindowPolicy selects how IdentifyWindow finds an abacus window.
type WindowPolicy int

const (
	// Smooth windows are runs of gap-call columns.
	Smooth WindowPolicy = iota
	// PolyX windows are homopolymer runs interrupted by gaps.
	PolyX
	// Indel windows start at a mismatch and end at a stable border.
	Indel
)

func (p WindowPolicy) String() string {
	switch p {
	case Smooth:
		return "smooth"
	case PolyX:
		return "polyx"
	case Indel:
		return "indel"
	}
	return "unknown"
}

// AbacusOpts configures AbacusRefine.
type AbacusOpts struct {
	// Call recomputes column calls after a window is rewritten.
	Call CallOpts
	// MaxWindowWidth skips windows wider than this many columns.
	MaxWindowWidth int
	// StabWidth is the number of clean columns that ends an Indel window.
	StabWidth int
	// KmerLength is the anchor length used by MixedShift.
	KmerLength int
}

// DefaultAbacusOpts is the default abacus configuration.
var DefaultAbacusOpts = AbacusOpts{
	Call:           DefaultCallOpts,
	MaxWindowWidth: 100,
	StabWidth:      6,
	KmerLength:     3,
}
