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

import "github.com/pkg/errors"

// Anchor is what a new fragment is aligned against: either a fragment
// already in the MANode, or (Frag == NoFrag) the consensus calls of the
// MANode starting at column Start.
type Anchor struct {
	Frag  FragID
	Start ColumnID
}

// FragAnchor returns an anchor for a placed fragment.
func FragAnchor(fid FragID) Anchor { return Anchor{Frag: fid, Start: NoColumn} }

// ConsensusAnchor returns an anchor for the consensus starting at cid.
func ConsensusAnchor(cid ColumnID) Anchor { return Anchor{Frag: NoFrag, Start: cid} }

// slot is one anchor position as laid out in the alignment.  Gap slots are
// gap beads of an anchor fragment, or gap-call columns of a consensus
// anchor; they do not count as anchor positions.
type slot struct {
	col ColumnID
	gap bool
}

func (a *Arena) anchorSlots(mid MANodeID, anchor Anchor) (slots []slot, alen int, err error) {
	if anchor.Frag != NoFrag {
		if !a.validFrag(anchor.Frag) || a.frags[anchor.Frag].MANode != mid {
			return nil, 0, invariantf("anchor fragment %d is not in MANode %d", anchor.Frag, mid)
		}
		for b := a.frags[anchor.Frag].FirstBead; b != NoBead; b = a.beads[b].Next {
			if a.beads[b].Column == NoColumn {
				return nil, 0, invariantf("anchor bead %d is not aligned", b)
			}
			s := slot{col: a.beads[b].Column, gap: a.Base(b) == Gap}
			if !s.gap {
				alen++
			}
			slots = append(slots, s)
		}
		return slots, alen, nil
	}
	if !a.validColumn(anchor.Start) || a.columns[anchor.Start].MANode != mid {
		return nil, 0, invariantf("anchor column %d is not in MANode %d", anchor.Start, mid)
	}
	for c := anchor.Start; c != NoColumn; c = a.columns[c].Next {
		s := slot{col: c, gap: a.CallBase(c) == Gap}
		if !s.gap {
			alen++
		}
		slots = append(slots, s)
	}
	return slots, alen, nil
}

// AnchorSequence returns the ungapped sequence an aligner must see for
// anchor.  For a consensus anchor it is the current calls from Start to the
// end of the MANode.
func (a *Arena) AnchorSequence(mid MANodeID, anchor Anchor) ([]byte, error) {
	if anchor.Frag != NoFrag {
		if !a.validFrag(anchor.Frag) || a.frags[anchor.Frag].MANode != mid {
			return nil, invariantf("anchor fragment %d is not in MANode %d", anchor.Frag, mid)
		}
		return a.UngappedSequence(anchor.Frag), nil
	}
	slots, alen, err := a.anchorSlots(mid, anchor)
	if err != nil {
		return nil, err
	}
	seq := make([]byte, 0, alen)
	for _, s := range slots {
		if !s.gap {
			seq = append(seq, a.CallBase(s.col))
		}
	}
	return seq, nil
}

// TrimTrace returns trace up to, not including, its first zero entry.
func TrimTrace(trace []int32) []int32 {
	for i, k := range trace {
		if k == 0 {
			return trace[:i]
		}
	}
	return trace
}

// CheckTrace verifies that trace is a consistent edit script for an anchor
// of alen bases and a new sequence of blen bases starting at ahang.
func CheckTrace(alen, blen, ahang int, trace []int32) error {
	apos, bpos := 0, 0
	if ahang >= 0 {
		if ahang > alen {
			return Errorf(TraceMismatch, "ahang %d past anchor end %d", ahang, alen)
		}
		apos = ahang
	} else {
		if -ahang > blen {
			return Errorf(TraceMismatch, "ahang %d past sequence length %d", ahang, blen)
		}
		bpos = -ahang
	}
	for i, k := range TrimTrace(trace) {
		if k > 0 {
			// Gap in the anchor before anchor position k.
			m := int(k) - 1 - apos
			if m < 0 {
				return Errorf(TraceMismatch, "trace[%d]=%d: anchor position already at %d", i, k, apos+1)
			}
			if int(k)-1 > alen {
				return Errorf(TraceMismatch, "trace[%d]=%d: past anchor end %d", i, k, alen)
			}
			if bpos+m+1 > blen {
				return Errorf(TraceMismatch, "trace[%d]=%d: runs off new sequence (%d bases)", i, k, blen)
			}
			apos += m
			bpos += m + 1
			continue
		}
		// Gap in the new sequence before position -k.
		kk := int(-k)
		m := kk - 1 - bpos
		if m < 0 {
			return Errorf(TraceMismatch, "trace[%d]=%d: sequence position already at %d", i, k, bpos+1)
		}
		if kk > blen {
			return Errorf(TraceMismatch, "trace[%d]=%d: past sequence end %d", i, k, blen)
		}
		if apos+m+1 > alen {
			return Errorf(TraceMismatch, "trace[%d]=%d: runs off anchor (%d bases)", i, k, alen)
		}
		apos += m + 1
		bpos += m
	}
	return nil
}

// placer walks an anchor and a new fragment in lock step.
type placer struct {
	a     *Arena
	slots []slot
	// b holds the new fragment's real beads.
	b []BeadID
	// si is the next unconsumed slot.
	si         int
	apos, bpos int
	// lastB is the last aligned bead of the new fragment.
	lastB BeadID
}

// skipReal moves the cursor past the first n real anchor slots.
func (p *placer) skipReal(n int) {
	for n > 0 {
		if !p.slots[p.si].gap {
			n--
		}
		p.si++
	}
}

// newGap creates a gap bead at the current position of the new fragment.
func (p *placer) newGap() (BeadID, error) {
	if p.lastB != NoBead {
		return p.a.AppendGapBead(p.lastB)
	}
	return p.a.PrependGapBead(p.b[p.bpos])
}

// advance moves to the next real anchor slot and returns its column.  Gap
// slots on the way get gap beads once the new fragment has started.
func (p *placer) advance() (ColumnID, error) {
	for p.slots[p.si].gap {
		if p.lastB != NoBead {
			g, err := p.a.AppendGapBead(p.lastB)
			if err != nil {
				return NoColumn, err
			}
			if err := p.a.AlignBead(p.slots[p.si].col, g); err != nil {
				return NoColumn, err
			}
			p.lastB = g
		}
		p.si++
	}
	col := p.slots[p.si].col
	p.si++
	p.apos++
	return col, nil
}

// match aligns the next base of the new fragment to the next anchor base.
func (p *placer) match() error {
	col, err := p.advance()
	if err != nil {
		return err
	}
	bid := p.b[p.bpos]
	if err := p.a.AlignBead(col, bid); err != nil {
		return err
	}
	p.lastB = bid
	p.bpos++
	return nil
}

// gapInNew aligns a new gap bead of the new fragment to the next anchor base.
func (p *placer) gapInNew() error {
	g, err := p.newGap()
	if err != nil {
		return err
	}
	col, err := p.advance()
	if err != nil {
		return err
	}
	if err := p.a.AlignBead(col, g); err != nil {
		return err
	}
	p.lastB = g
	return nil
}

// gapInAnchor places the next base of the new fragment between two anchor
// positions, reusing an anchor gap slot when there is one.
func (p *placer) gapInAnchor() error {
	bid := p.b[p.bpos]
	var err error
	switch {
	case p.si < len(p.slots) && p.slots[p.si].gap:
		err = p.a.AlignBead(p.slots[p.si].col, bid)
		p.si++
	case p.lastB != NoBead:
		_, err = p.a.ColumnAppend(p.a.beads[p.lastB].Column, bid)
	case p.si > 0:
		_, err = p.a.ColumnAppend(p.slots[p.si-1].col, bid)
	default:
		_, err = p.a.ColumnPrepend(p.slots[0].col, bid)
	}
	if err != nil {
		return err
	}
	p.lastB = bid
	p.bpos++
	return nil
}

// ApplyAlignment merges fragment bfid into MANode mid.  ahang is the offset
// of bfid's first base relative to the anchor's first base (negative if
// bfid starts first).  Trace entries are 1-based: k > 0 puts a gap in the
// anchor before anchor base k, k < 0 puts a gap in bfid before its base -k.
// An inconsistent trace returns TraceMismatch and leaves mid untouched.
func (a *Arena) ApplyAlignment(mid MANodeID, anchor Anchor, bfid FragID, ahang int, trace []int32) error {
	if !a.validMANode(mid) || a.manodes[mid].First == NoColumn {
		return invariantf("ApplyAlignment: MANode %d is not seeded", mid)
	}
	if !a.validFrag(bfid) || a.frags[bfid].Deleted || a.frags[bfid].MANode != NoMANode {
		return invariantf("ApplyAlignment: fragment %d is not available", bfid)
	}
	slots, alen, err := a.anchorSlots(mid, anchor)
	if err != nil {
		return err
	}
	bbeads := a.FragmentBeads(bfid)
	for _, b := range bbeads {
		if a.beads[b].Column != NoColumn || a.Base(b) == Gap {
			return invariantf("ApplyAlignment: fragment %d is already laid out", bfid)
		}
	}
	blen := len(bbeads)
	trace = TrimTrace(trace)
	if err := CheckTrace(alen, blen, ahang, trace); err != nil {
		return errors.Wrapf(err, "placing %s", a.frags[bfid].Ident)
	}

	p := placer{a: a, slots: slots, b: bbeads, lastB: NoBead}
	bstart := 0
	if ahang >= 0 {
		p.skipReal(ahang)
		p.apos = ahang
	} else {
		bstart = -ahang
		p.bpos = bstart
	}
	for _, k := range trace {
		if k > 0 {
			for p.apos < int(k)-1 {
				if err := p.match(); err != nil {
					return err
				}
			}
			if err := p.gapInAnchor(); err != nil {
				return err
			}
			continue
		}
		for p.bpos < int(-k)-1 {
			if err := p.match(); err != nil {
				return err
			}
		}
		if err := p.gapInNew(); err != nil {
			return err
		}
	}
	for p.apos < alen && p.bpos < blen {
		if err := p.match(); err != nil {
			return err
		}
	}
	// Trailing overhang.
	for ; p.bpos < blen; p.bpos++ {
		after := NoColumn
		switch {
		case p.lastB != NoBead:
			after = a.beads[p.lastB].Column
		case p.si > 0:
			after = p.slots[p.si-1].col
		default:
			after = p.slots[len(p.slots)-1].col
		}
		bid := p.b[p.bpos]
		if _, err := a.ColumnAppend(after, bid); err != nil {
			return err
		}
		p.lastB = bid
	}
	// Leading overhang, right to left.
	for i := bstart - 1; i >= 0; i-- {
		bid := p.b[i]
		next := a.beads[bid].Next
		if _, err := a.ColumnPrepend(a.beads[next].Column, bid); err != nil {
			return err
		}
	}
	a.frags[bfid].MANode = mid
	return nil
}
