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
package overlap

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/consensus/multialign"
)

// Opts configures Find.
type Opts struct {
	// ErrorRate is the error rate of the first attempt.
	ErrorRate float64
	// MaxErrorRate bounds the empirical error rate of wide-band results.
	MaxErrorRate float64
	// MinLength is the minimum overlap length of the first attempt; later
	// attempts use half of it.
	MinLength int
	// TightSemiBandWidth is the half width of the band around the expected
	// a-hang, and the largest drift accepted outside merge contexts.
	TightSemiBandWidth int
	// LooseSemiBandWidth is the unit of band widening.
	LooseSemiBandWidth int
	// NegativeHangTolerance is the most negative a-hang accepted unless
	// AllowNegativeHang is set.
	NegativeHangTolerance int
	AllowNegativeHang     bool
	// MergeContext disables the drift check, for placements whose expected
	// hang is known to be loose.
	MergeContext bool
}

// DefaultOpts are the default ladder options.
var DefaultOpts = Opts{
	ErrorRate:             0.06,
	MaxErrorRate:          0.30,
	MinLength:             40,
	TightSemiBandWidth:    6,
	LooseSemiBandWidth:    100,
	NegativeHangTolerance: 5,
}

// Sequence is one side of an overlap.
type Sequence struct {
	Ident string
	Bases []byte
	// Consensus is set for unitig or contig consensus sequences.
	Consensus bool
}

// wideBandMultipliers scale LooseSemiBandWidth in successive wide-band
// attempts.
var wideBandMultipliers = []int{2, 3, 5}

type ladder struct {
	al   Aligner
	opts Opts
}

// accept applies the hang rules to a result of an attempt expecting ahang.
func (l *ladder) accept(o Overlap, ahang int) bool {
	if o.AHang < -l.opts.NegativeHangTolerance && !l.opts.AllowNegativeHang {
		return false
	}
	if l.opts.MergeContext {
		return true
	}
	drift := o.AHang - ahang
	if drift < 0 {
		drift = -drift
	}
	return drift <= l.opts.TightSemiBandWidth
}

func (l *ladder) try(a, b []byte, ahang, semi int, erate float64, minLen int) (Overlap, bool) {
	req := Request{
		BandBegin: ahang - semi,
		BandEnd:   ahang + semi,
		ErrorRate: erate,
		MinLength: minLen,
	}
	o, ok := l.al.Align(a, b, req)
	if !ok || !l.accept(o, ahang) {
		return Overlap{}, false
	}
	return o, true
}

// forward runs steps one through four of the ladder on a and b as given.
func (l *ladder) forward(a, b Sequence, ahang int) (Overlap, Trick, bool) {
	opts := l.opts
	if o, ok := l.try(a.Bases, b.Bases, ahang, opts.TightSemiBandWidth, opts.ErrorRate, opts.MinLength); ok {
		return o, 0, true
	}
	trick := ShortOverlap
	minLen := opts.MinLength / 2
	if o, ok := l.try(a.Bases, b.Bases, ahang, opts.TightSemiBandWidth, opts.ErrorRate, minLen); ok {
		return o, trick, true
	}
	erate := opts.ErrorRate
	if a.Consensus || b.Consensus || multialign.HasAmbiguity(a.Bases) || multialign.HasAmbiguity(b.Bases) {
		erate *= 2
		trick |= DoubledErrorRate
		if o, ok := l.try(a.Bases, b.Bases, ahang, opts.TightSemiBandWidth, erate, minLen); ok {
			return o, trick, true
		}
	}
	trick |= WideBand
	for _, m := range wideBandMultipliers {
		erate *= 2
		if erate > opts.MaxErrorRate {
			erate = opts.MaxErrorRate
		}
		o, ok := l.try(a.Bases, b.Bases, ahang, m*opts.LooseSemiBandWidth, erate, minLen)
		if ok && o.ErrorRate() <= opts.MaxErrorRate {
			return o, trick, true
		}
	}
	return Overlap{}, 0, false
}

// Find obtains an overlap of b against a, where b is expected to start
// ahang bases after a.  It retries the aligner with a shorter minimum
// length, a doubled error rate for consensus or ambiguous sequences, wider
// bands, the opposite strand and finally swapped roles.  It returns the
// overlap and the tricks needed, or an AlignmentNotFound error.
func Find(al Aligner, a, b Sequence, ahang int, opts Opts) (Overlap, Trick, error) {
	l := ladder{al: al, opts: opts}
	if o, trick, ok := l.forward(a, b, ahang); ok {
		return o, trick, nil
	}

	// The transformed attempts check the hang rules only once the result
	// is mapped back onto a and b.
	loose := ladder{al: al, opts: opts}
	loose.opts.AllowNegativeHang = true

	// A bad prefix can mask an overlap that is found from the other end.
	alen, blen := len(a.Bases), len(b.Bases)
	ra := Sequence{Ident: a.Ident, Bases: reverseComplement(a.Bases), Consensus: a.Consensus}
	rb := Sequence{Ident: b.Ident, Bases: reverseComplement(b.Bases), Consensus: b.Consensus}
	if o, trick, ok := loose.forward(ra, rb, alen-ahang-blen); ok {
		if o = invert(o, alen, blen); l.accept(o, ahang) {
			log.Debug.Printf("overlap %s/%s: found on the opposite strand: %v", a.Ident, b.Ident, o)
			return o, trick | OppositeStrand, nil
		}
	}
	if o, trick, ok := loose.forward(b, a, -ahang); ok {
		if o = swap(o); l.accept(o, ahang) {
			log.Debug.Printf("overlap %s/%s: found with roles swapped: %v", a.Ident, b.Ident, o)
			return o, trick | Swapped, nil
		}
	}
	return Overlap{}, 0, multialign.Errorf(multialign.AlignmentNotFound,
		"no overlap between %s (%d bases) and %s (%d bases) at ahang %d", a.Ident, alen, b.Ident, blen, ahang)
}
