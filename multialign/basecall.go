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

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// lnTauMismatch is ln(1/5), the weight of a base that does not agree with a
// candidate call, on top of its error probability.
var lnTauMismatch = math.Log(1.0 / 5.0)

// tieEpsilon is the log-space distance under which two weights are equal.
const tieEpsilon = 1e-9

// Call is the result of calling one column.
type Call struct {
	Base byte
	QV   byte
	// Var is the column's variation score in [0, 1], negated for a gap call
	// when smoothing.
	Var float64
}

// votingBeads returns the beads that decide the call of cid.  Reads vote
// when there are any; otherwise guide and consensus fragments vote.
func (a *Arena) votingBeads(cid ColumnID, opts *CallOpts) []BeadID {
	var reads, guides []BeadID
	for b := a.beads[a.columns[cid].Call].Down; b != NoBead; b = a.beads[b].Down {
		switch read, ok := a.votes(b, opts); {
		case !ok:
		case read:
			reads = append(reads, b)
		default:
			guides = append(guides, b)
		}
	}
	if len(reads) > 0 {
		return reads
	}
	return guides
}

// votes classifies a bead as a read or a guide; ok is false for a read
// outside the target allele.
func (a *Arena) votes(b BeadID, opts *CallOpts) (read, ok bool) {
	f := &a.frags[a.beads[b].Frag]
	if f.Type != FragRead {
		return false, true
	}
	if opts.TargetAllele >= 0 {
		if int(f.ID) >= len(opts.Alleles) || opts.Alleles[f.ID] != opts.TargetAllele {
			return true, false
		}
	}
	return true, true
}

// BaseCall calls column cid and stores the result in its call bead.
func (a *Arena) BaseCall(cid ColumnID, opts CallOpts) (Call, error) {
	if !a.validColumn(cid) {
		return Call{}, invariantf("BaseCall: bad column %d", cid)
	}
	var c Call
	switch opts.Mode {
	case Passthrough:
		c = a.passthroughCall(cid)
	case Plurality:
		c = a.pluralityCall(cid, &opts)
	case Statistical:
		c = a.statisticalCall(cid, &opts)
	default:
		return Call{}, invariantf("BaseCall: unknown mode %d", opts.Mode)
	}
	a.setCall(cid, c.Base, c.QV)
	return c, nil
}

// CallRange calls every column from -> to inclusive (to == NoColumn means
// through the end of the MANode).
func (a *Arena) CallRange(from, to ColumnID, opts CallOpts) error {
	for cid := from; cid != NoColumn; cid = a.columns[cid].Next {
		if _, err := a.BaseCall(cid, opts); err != nil {
			return err
		}
		if cid == to {
			break
		}
	}
	return nil
}

func (a *Arena) passthroughCall(cid ColumnID) Call {
	b := a.beads[a.columns[cid].Call].Down
	if b == NoBead {
		return Call{Base: Gap}
	}
	return Call{Base: a.Base(b), QV: a.Qual(b)}
}

// lnPrior returns the log prior of each symbol.  A gap has probability
// ploidy*snpRate, clamped to [1e-6, 1/NCallable]; the bases share the rest.
// The prior never depends on the column being called.
func lnPrior(ploidy int, snpRate float64) [NCallable]float64 {
	if ploidy < 1 {
		ploidy = 1
	}
	g := snpRate * float64(ploidy)
	if g < 1e-6 {
		g = 1e-6
	} else if g > 1.0/NCallable {
		g = 1.0 / NCallable
	}
	var p [NCallable]float64
	lnBase := math.Log((1 - g) / (NCallable - 1))
	for s := range p {
		p[s] = lnBase
	}
	p[IdxGap] = math.Log(g)
	return p
}

func (a *Arena) statisticalCall(cid ColumnID, opts *CallOpts) Call {
	beads := a.votingBeads(cid, opts)
	if len(beads) == 0 {
		return Call{Base: Gap}
	}
	lnW := lnPrior(opts.Ploidy, opts.SNPRate)
	for _, b := range beads {
		c, q := a.Base(b), a.Qual(b)
		for s := 0; s < NCallable; s++ {
			if Compatible(c, IdxToASCIITable[s]) {
				lnW[s] += lnCorrectTable[q]
			} else {
				lnW[s] += lnTauMismatch + lnErrorTable[q]
			}
		}
	}
	norm := floats.LogSumExp(lnW[:])
	best := floats.Max(lnW[:])
	var candidates []int
	for s, w := range lnW {
		if best-w <= tieEpsilon {
			candidates = append(candidates, s)
		}
	}
	call := breakTie(opts.TieBreaker, candidates)
	var perr float64
	for s, w := range lnW {
		if s != call {
			perr += math.Exp(w - norm)
		}
	}
	base := IdxToASCIITable[call]
	qv := ClampQV(opts.MaxQV)
	if !a.unanimous(beads, base) {
		qv = qvFromErrProb(perr, opts.MinQV, opts.MaxQV)
	}
	return Call{Base: base, QV: qv, Var: a.variation(beads, call, opts)}
}

// unanimous returns true if every bead agrees with call.
func (a *Arena) unanimous(beads []BeadID, call byte) bool {
	for _, b := range beads {
		if !Compatible(a.Base(b), call) {
			return false
		}
	}
	return true
}

// variation scores how strongly the beads disagree with the call.  It is
// zero unless at least two symbols are well supported, and otherwise the
// fraction of qualifying quality mass that does not back the call.
func (a *Arena) variation(beads []BeadID, call int, opts *CallOpts) float64 {
	var (
		nreads [NCallable]int
		sumQV  [NCallable]int
		top2   [NCallable][2]int
	)
	for _, b := range beads {
		i := int(ASCIIToIdxTable[a.Base(b)])
		if i >= NCallable {
			continue
		}
		q := int(a.Qual(b))
		if q >= opts.MinQVForVariation {
			nreads[i]++
			sumQV[i] += q
		}
		if q > top2[i][0] {
			top2[i][0], top2[i][1] = q, top2[i][0]
		} else if q > top2[i][1] {
			top2[i][1] = q
		}
	}
	minReads := opts.MinReadsForVariation
	if minReads < 1 {
		minReads = 1
	}
	var (
		mass       [NCallable]int
		qualifying int
		total      int
	)
	for i := 0; i < NCallable; i++ {
		switch {
		case nreads[i] >= minReads:
			mass[i] = sumQV[i]
		case i == IdxGap && top2[i][0]+top2[i][1] >= opts.MinSumQVForGapVariation && top2[i][0] > 0:
			mass[i] = top2[i][0] + top2[i][1]
		default:
			continue
		}
		qualifying++
		total += mass[i]
	}
	if qualifying < 2 || total == 0 {
		return 0
	}
	v := 1 - float64(mass[call])/float64(total)
	if opts.Smoothing && call == IdxGap {
		v = -v
	}
	return v
}

func (a *Arena) pluralityCall(cid ColumnID, opts *CallOpts) Call {
	var (
		reads, guides [NCallable]int
		qsum          [NCallable]int
		haveReads     bool
	)
	for b := a.beads[a.columns[cid].Call].Down; b != NoBead; b = a.beads[b].Down {
		i := int(ASCIIToIdxTable[a.Base(b)])
		if i >= NCallable {
			continue
		}
		switch read, ok := a.votes(b, opts); {
		case !ok:
		case read:
			reads[i]++
			haveReads = true
		default:
			guides[i]++
		}
	}
	primary := reads
	if !haveReads {
		primary = guides
	}
	best := -1
	var candidates []int
	for i := 0; i < NCallable; i++ {
		switch {
		case primary[i] > best:
			best = primary[i]
			candidates = append(candidates[:0], i)
		case primary[i] == best:
			candidates = append(candidates, i)
		}
	}
	if best == 0 {
		return Call{Base: IdxToASCIITable[IdxN]}
	}
	if haveReads && len(candidates) > 1 {
		// Guides break read ties.
		g := -1
		var byGuide []int
		for _, i := range candidates {
			switch {
			case guides[i] > g:
				g = guides[i]
				byGuide = append(byGuide[:0], i)
			case guides[i] == g:
				byGuide = append(byGuide, i)
			}
		}
		candidates = byGuide
	}
	call := breakTie(opts.TieBreaker, candidates)
	beads := a.votingBeads(cid, opts)
	for _, b := range beads {
		if i := int(ASCIIToIdxTable[a.Base(b)]); i < NCallable {
			qsum[i] += int(a.Qual(b))
		}
	}
	competing := 0
	for i, q := range qsum {
		if i != call && q > competing {
			competing = q
		}
	}
	q := qsum[call] - competing
	if q < opts.MinQV {
		q = opts.MinQV
	}
	if opts.MaxQV > 0 && q > opts.MaxQV {
		q = opts.MaxQV
	}
	return Call{Base: IdxToASCIITable[call], QV: ClampQV(q), Var: a.variation(beads, call, opts)}
}
