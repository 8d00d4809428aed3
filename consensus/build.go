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
package consensus

import (
	"sort"

	"github.com/grailbio/base/log"
	"github.com/grailbio/consensus/encoding/fastq"
	"github.com/grailbio/consensus/encoding/layout"
	"github.com/grailbio/consensus/multialign"
	"github.com/grailbio/consensus/overlap"
	"github.com/pkg/errors"
)

// Result is one built unitig or contig.
type Result struct {
	Ident     string
	Mode      Mode
	Consensus multialign.Consensus
	// Coords are the placements of the tig's fragments.
	Coords []multialign.Coord
	// Components are the reads of a contig's unitigs, in contig
	// coordinates.  Their Frag is NoFrag.
	Components []multialign.Coord
	Variants   []multialign.VarRecord
	// Ejected lists contained fragments that could not be aligned.
	Ejected []string
	// Abutted lists fragments placed end to end without an overlap.
	Abutted []string
	// Tricks counts placements that needed the retry ladder.
	Tricks int
}

type builder struct {
	a     *multialign.Arena
	al    overlap.Aligner
	opts  Opts
	tig   *layout.Tig
	mid   multialign.MANodeID
	index anchorIndex
	res   *Result
}

func newBuilder(a *multialign.Arena, tig *layout.Tig, al overlap.Aligner, opts Opts, mode Mode) *builder {
	a.Reset()
	if opts.Call.TieBreaker == nil {
		opts.Call.TieBreaker = multialign.LowestCode
	}
	opts.Refresh.Call = opts.Call
	opts.Abacus.Call = opts.Call
	return &builder{
		a:    a,
		al:   al,
		opts: opts,
		tig:  tig,
		mid:  a.CreateMANode(),
		res:  &Result{Ident: tig.Ident, Mode: mode},
	}
}

// layoutOrder returns the placements of tig sorted by begin, and checks
// that they cover [0, Length) without a break.
func layoutOrder(tig *layout.Tig) ([]int, error) {
	if len(tig.Placements) == 0 {
		return nil, multialign.Errorf(multialign.MalformedLayout, "tig %s has no fragments", tig.Ident)
	}
	order := make([]int, len(tig.Placements))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		li, hi := tig.Placements[order[i]].Span()
		lj, hj := tig.Placements[order[j]].Span()
		if li != lj {
			return li < lj
		}
		return hi > hj
	})
	cover := 0
	for _, i := range order {
		p := &tig.Placements[i]
		lo, hi := p.Span()
		if lo > cover {
			return nil, multialign.Errorf(multialign.MalformedLayout,
				"tig %s: no fragment covers [%d, %d)", tig.Ident, cover, lo)
		}
		if hi > cover {
			cover = hi
		}
	}
	if cover != tig.Length {
		return nil, multialign.Errorf(multialign.MalformedLayout,
			"tig %s: fragments cover [0, %d), length is %d", tig.Ident, cover, tig.Length)
	}
	return order, nil
}

// BuildUnitig builds the consensus of one unitig from its reads.  Reads are
// looked up by name.  The arena is reset first.
func BuildUnitig(a *multialign.Arena, tig *layout.Tig, reads map[string]*fastq.Record, al overlap.Aligner, opts Opts) (*Result, error) {
	b := newBuilder(a, tig, al, opts, UnitigMode)
	order, err := layoutOrder(tig)
	if err != nil {
		return nil, err
	}
	for _, i := range order {
		p := &tig.Placements[i]
		rec, ok := reads[p.Frag]
		if !ok {
			return nil, multialign.Errorf(multialign.MalformedLayout, "tig %s: no sequence for %s", tig.Ident, p.Frag)
		}
		spec := multialign.FragmentSpec{
			Ident:      p.Frag,
			Type:       multialign.FragType(p.Type[0]),
			Seq:        rec.Seq,
			Qual:       rec.Qual,
			Complement: p.Complement(),
		}
		if err := b.place(spec, p); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	return b.res, nil
}

// BuildContig builds the consensus of one contig from unitig consensus
// records.  components optionally maps a unitig to the placements of its
// reads in unitig coordinates; they are reported in contig coordinates.
func BuildContig(a *multialign.Arena, tig *layout.Tig, unitigs map[string]*fastq.Record, components map[string][]layout.Placement, al overlap.Aligner, opts Opts) (*Result, error) {
	b := newBuilder(a, tig, al, opts, ContigMode)
	order, err := layoutOrder(tig)
	if err != nil {
		return nil, err
	}
	for _, i := range order {
		p := &tig.Placements[i]
		rec, ok := unitigs[p.Frag]
		if !ok {
			return nil, multialign.Errorf(multialign.MalformedLayout, "contig %s: no consensus for %s", tig.Ident, p.Frag)
		}
		spec := multialign.FragmentSpec{
			Ident:      p.Frag,
			Type:       multialign.FragType(p.Type[0]),
			Seq:        rec.Seq,
			Qual:       rec.Qual,
			Complement: p.Complement(),
		}
		for _, c := range components[p.Frag] {
			spec.Components = append(spec.Components, multialign.Component{
				Ident: c.Frag,
				Type:  multialign.FragType(c.Type[0]),
				Begin: int(c.Begin),
				End:   int(c.End),
			})
		}
		if err := b.place(spec, p); err != nil {
			return nil, err
		}
	}
	if err := b.finish(); err != nil {
		return nil, err
	}
	comps, err := b.components()
	if err != nil {
		return nil, err
	}
	b.res.Components = comps
	return b.res, nil
}

// place adds one fragment and merges it into the MANode.
func (b *builder) place(spec multialign.FragmentSpec, p *layout.Placement) error {
	lo, hi := p.Span()
	_, spec.Contained = b.index.container(lo, hi)
	fid, err := b.a.AddFragment(spec)
	if err != nil {
		return errors.Wrapf(err, "tig %s", b.tig.Ident)
	}
	if b.index.len() == 0 {
		if err := b.a.SeedMANode(b.mid, fid); err != nil {
			return err
		}
		b.index.add(placed{lo: lo, hi: hi, frag: fid})
		return nil
	}

	anc, ok := b.index.best(lo, hi)
	if !ok {
		// Nothing overlaps; anchor on the rightmost coverage.
		anc, _ = b.index.container(b.index.hi-1, b.index.hi)
	}
	start := b.a.Bead(b.a.Fragment(anc.frag).FirstBead).Column
	callOpts := b.opts.Call
	callOpts.Mode = multialign.Plurality
	if err := b.a.CallRange(start, multialign.NoColumn, callOpts); err != nil {
		return err
	}
	anchor := multialign.ConsensusAnchor(start)
	aseq, err := b.a.AnchorSequence(b.mid, anchor)
	if err != nil {
		return err
	}
	bseq, _ := b.a.StoredSequence(fid)
	ahang := lo - anc.lo
	ancIdent := b.a.Fragment(anc.frag).Ident

	ovOpts := b.opts.Overlap
	if ahang < 0 {
		ovOpts.AllowNegativeHang = true
	}
	o, trick, err := overlap.Find(b.al,
		overlap.Sequence{Ident: ancIdent, Bases: aseq, Consensus: true},
		overlap.Sequence{Ident: spec.Ident, Bases: bseq, Consensus: spec.Type.IsConsensus()},
		ahang, ovOpts)
	switch {
	case err == nil:
		if trick != 0 {
			b.res.Tricks++
			log.Printf("tig %s: placed %s (%v) against %s with %v, ahang %d (expected %d)",
				b.tig.Ident, spec.Ident, spec.Type, ancIdent, trick, o.AHang, ahang)
		}
		if log.At(log.Debug) {
			ra, rb, _ := overlap.Render(aseq, bseq, o)
			log.Debug.Printf("tig %s: %s on %s:\n%s\n%s", b.tig.Ident, spec.Ident, ancIdent, ra, rb)
		}
		err = b.a.ApplyAlignment(b.mid, anchor, fid, o.AHang, o.Trace)
	case !multialign.IsKind(err, multialign.AlignmentNotFound):
	case spec.Contained:
		log.Printf("tig %s: ejecting contained %s (%v), no overlap with %s at ahang %d",
			b.tig.Ident, spec.Ident, spec.Type, ancIdent, ahang)
		b.res.Ejected = append(b.res.Ejected, spec.Ident)
		return b.a.MarkDeleted(fid)
	case b.index.hi-lo <= b.opts.ForcedAbutTolerance:
		log.Printf("tig %s: abutting %s (%v) to %s, expected overlap %d",
			b.tig.Ident, spec.Ident, spec.Type, ancIdent, b.index.hi-lo)
		b.res.Abutted = append(b.res.Abutted, spec.Ident)
		err = b.a.ApplyAlignment(b.mid, anchor, fid, len(aseq), nil)
	default:
		log.Error.Printf("tig %s: cannot place %s (%v) against %s (%v), unconfirmed ahang %d",
			b.tig.Ident, spec.Ident, spec.Type, ancIdent, b.a.Fragment(anc.frag).Type, ahang)
	}
	if err != nil {
		return errors.Wrapf(err, "tig %s: placing %s", b.tig.Ident, spec.Ident)
	}
	b.index.add(placed{lo: lo, hi: hi, frag: fid})
	return nil
}

// finish refines the MANode and collects the result.
func (b *builder) finish() error {
	a, mid := b.a, b.mid
	if _, err := a.RefreshMANode(mid, multialign.RefreshOpts{Call: b.opts.Call}); err != nil {
		return err
	}
	for _, policy := range []multialign.WindowPolicy{multialign.Smooth, multialign.PolyX, multialign.Indel} {
		n, err := a.AbacusRefine(mid, multialign.NoColumn, multialign.NoColumn, policy, b.opts.Abacus)
		if err != nil {
			return err
		}
		m, err := a.MergeRefine(mid, b.opts.Call)
		if err != nil {
			return err
		}
		log.Debug.Printf("tig %s: %v refinement rewrote %d windows, merged %d columns", b.tig.Ident, policy, n, m)
	}
	refresh := b.opts.Refresh
	refresh.SplitAlleles = b.opts.SplitAlleles
	vars, err := a.RefreshMANode(mid, refresh)
	if err != nil {
		return err
	}
	if err := a.CheckInvariants(mid); err != nil {
		return err
	}
	coords, err := a.Coordinates(mid)
	if err != nil {
		return err
	}
	b.res.Consensus = a.Consensus(mid)
	b.res.Coords = coords
	b.res.Variants = vars
	return nil
}

// components maps the reads of every placed unitig through the unitig's
// beads into contig coordinates.
func (b *builder) components() ([]multialign.Coord, error) {
	a := b.a
	cols := a.Columns(b.mid)
	gapped := make(map[multialign.ColumnID]int, len(cols))
	ungapped := make([]int, len(cols)+1)
	for i, cid := range cols {
		gapped[cid] = i
		ungapped[i+1] = ungapped[i]
		if a.CallBase(cid) != multialign.Gap {
			ungapped[i+1]++
		}
	}
	var out []multialign.Coord
	for fid := multialign.FragID(0); int(fid) < a.NumFragments(); fid++ {
		f := a.Fragment(fid)
		if f.Deleted || len(f.Components) == 0 {
			continue
		}
		// col[i] is the column of stored base i.
		col := make([]multialign.ColumnID, f.Length)
		for _, bid := range a.FragmentBeads(fid) {
			if bd := a.Bead(bid); bd.FOffset >= 0 {
				col[bd.FOffset] = bd.Column
			}
		}
		n := int(f.Length)
		for _, c := range f.Components {
			lo, hi, rev := c.Begin, c.End, false
			if lo > hi {
				lo, hi, rev = hi, lo, true
			}
			if lo < 0 || hi > n || lo == hi {
				log.Printf("contig %s: component %s at [%d, %d) is outside unitig %s (%d bases)",
					b.tig.Ident, c.Ident, c.Begin, c.End, f.Ident, n)
				continue
			}
			if f.Complement {
				lo, hi, rev = n-hi, n-lo, !rev
			}
			first, ok1 := gapped[col[lo]]
			last, ok2 := gapped[col[hi-1]]
			if !ok1 || !ok2 {
				return nil, multialign.Errorf(multialign.StoreInvariantViolation,
					"contig %s: unitig %s is not fully aligned", b.tig.Ident, f.Ident)
			}
			coord := multialign.Coord{
				Frag:          multialign.NoFrag,
				Ident:         c.Ident,
				Type:          c.Type,
				GappedBegin:   first,
				GappedEnd:     last + 1,
				UngappedBegin: ungapped[first],
				UngappedEnd:   ungapped[last+1],
			}
			if rev {
				coord.GappedBegin, coord.GappedEnd = coord.GappedEnd, coord.GappedBegin
				coord.UngappedBegin, coord.UngappedEnd = coord.UngappedEnd, coord.UngappedBegin
			}
			out = append(out, coord)
		}
	}
	return out, nil
}
