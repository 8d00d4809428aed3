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

// Bead primitives.  These, together with the column primitives in column.go,
// are the only functions that modify fragment or column chains.

// AppendGapBead inserts a new, unaligned gap bead right after bid in bid's
// fragment chain and returns it.  Its quality is the smaller of its
// neighbours' qualities, floored to MinGapQV.
func (a *Arena) AppendGapBead(bid BeadID) (BeadID, error) {
	if !a.validBead(bid) {
		return NoBead, invariantf("AppendGapBead: bad bead %d", bid)
	}
	next := a.beads[bid].Next
	q := a.Qual(bid)
	if next != NoBead && a.Qual(next) < q {
		q = a.Qual(next)
	}
	if q == QVUnknown {
		q = MinGapQV
	}
	frag := a.beads[bid].Frag
	g := a.newBead(Gap, q, frag, -1)
	a.beads[g].Prev = bid
	a.beads[g].Next = next
	if next != NoBead {
		a.beads[next].Prev = g
	} else if frag != NoFrag {
		a.frags[frag].LastBead = g
	}
	a.beads[bid].Next = g
	return g, nil
}

// PrependGapBead inserts a new, unaligned gap bead right before bid in bid's
// fragment chain and returns it.
func (a *Arena) PrependGapBead(bid BeadID) (BeadID, error) {
	if !a.validBead(bid) {
		return NoBead, invariantf("PrependGapBead: bad bead %d", bid)
	}
	prev := a.beads[bid].Prev
	q := a.Qual(bid)
	if prev != NoBead && a.Qual(prev) < q {
		q = a.Qual(prev)
	}
	if q == QVUnknown {
		q = MinGapQV
	}
	frag := a.beads[bid].Frag
	g := a.newBead(Gap, q, frag, -1)
	a.beads[g].Next = bid
	a.beads[g].Prev = prev
	if prev != NoBead {
		a.beads[prev].Next = g
	} else if frag != NoFrag {
		a.frags[frag].FirstBead = g
	}
	a.beads[bid].Prev = g
	return g, nil
}

// AlignBead attaches an unaligned bead to column cid, just below the call
// bead, and adds it to the column's tally.
func (a *Arena) AlignBead(cid ColumnID, bid BeadID) error {
	if !a.validColumn(cid) {
		return invariantf("AlignBead: bad column %d", cid)
	}
	if !a.validBead(bid) || a.beads[bid].Frag == NoFrag {
		return invariantf("AlignBead: bad bead %d", bid)
	}
	if a.beads[bid].Column != NoColumn {
		return invariantf("AlignBead: bead %d already in column %d", bid, a.beads[bid].Column)
	}
	call := a.columns[cid].Call
	down := a.beads[call].Down
	a.beads[bid].Up = call
	a.beads[bid].Down = down
	if down != NoBead {
		a.beads[down].Up = bid
	}
	a.beads[call].Down = bid
	a.beads[bid].Column = cid
	a.columns[cid].Counts.inc(a.Base(bid))
	return nil
}

// UnAlignBead detaches a bead from its column.
func (a *Arena) UnAlignBead(bid BeadID) error {
	if !a.validBead(bid) {
		return invariantf("UnAlignBead: bad bead %d", bid)
	}
	b := a.beads[bid]
	if b.Column == NoColumn || b.Frag == NoFrag {
		return invariantf("UnAlignBead: bead %d is not aligned", bid)
	}
	a.beads[b.Up].Down = b.Down
	if b.Down != NoBead {
		a.beads[b.Down].Up = b.Up
	}
	a.columns[b.Column].Counts.dec(a.Base(bid))
	a.beads[bid].Up = NoBead
	a.beads[bid].Down = NoBead
	a.beads[bid].Column = NoColumn
	return nil
}

// LateralExchangeBead swaps two chain-adjacent beads of one fragment (right
// must follow left) together with their columns.  Afterwards right sits in
// left's old column and vice versa.
func (a *Arena) LateralExchangeBead(left, right BeadID) error {
	if !a.validBead(left) || !a.validBead(right) || a.beads[left].Next != right {
		return invariantf("LateralExchangeBead: beads %d and %d are not adjacent", left, right)
	}
	lc, rc := a.beads[left].Column, a.beads[right].Column
	if lc == NoColumn || rc == NoColumn || a.columns[lc].Next != rc {
		return invariantf("LateralExchangeBead: beads %d and %d are not in adjacent columns", left, right)
	}
	frag := a.beads[left].Frag
	if err := a.UnAlignBead(left); err != nil {
		return err
	}
	if err := a.UnAlignBead(right); err != nil {
		return err
	}
	p, n := a.beads[left].Prev, a.beads[right].Next
	if p != NoBead {
		a.beads[p].Next = right
	} else {
		a.frags[frag].FirstBead = right
	}
	if n != NoBead {
		a.beads[n].Prev = left
	} else {
		a.frags[frag].LastBead = left
	}
	a.beads[right].Prev = p
	a.beads[right].Next = left
	a.beads[left].Prev = right
	a.beads[left].Next = n
	if err := a.AlignBead(lc, right); err != nil {
		return err
	}
	return a.AlignBead(rc, left)
}

// chainSpan walks from bid to eid along the fragment chain.  It returns the
// number of beads strictly between them and whether all of those are gaps.
func (a *Arena) chainSpan(bid, eid BeadID) (between int, allGaps bool, ok bool) {
	if !a.validBead(bid) || !a.validBead(eid) || a.beads[bid].Frag != a.beads[eid].Frag {
		return 0, false, false
	}
	allGaps = true
	for b := a.beads[bid].Next; b != NoBead; b = a.beads[b].Next {
		if b == eid {
			return between, allGaps, true
		}
		between++
		if a.Base(b) != Gap {
			allGaps = false
		}
	}
	return 0, false, false
}

// LeftEndShiftBead moves eid left into bid's column; bid and every bead
// between them shift one column right.  Either eid is a gap (a gap moving
// left across bases) or bid and every bead between are gaps (a base moving
// left across gaps).
func (a *Arena) LeftEndShiftBead(bid, eid BeadID) error {
	if bid == eid {
		return nil
	}
	_, allGaps, ok := a.chainSpan(bid, eid)
	if !ok {
		return invariantf("LeftEndShiftBead: bead %d does not precede %d in one fragment", bid, eid)
	}
	if a.Base(eid) != Gap && !(allGaps && a.Base(bid) == Gap) {
		return invariantf("LeftEndShiftBead: bead %d cannot cross non-gap beads", eid)
	}
	for {
		p := a.beads[eid].Prev
		if err := a.LateralExchangeBead(p, eid); err != nil {
			return err
		}
		if p == bid {
			return nil
		}
	}
}

// RightEndShiftBead moves bid right into eid's column; eid and every bead
// between them shift one column left.  Either bid is a gap or eid and every
// bead between are gaps.
func (a *Arena) RightEndShiftBead(bid, eid BeadID) error {
	if bid == eid {
		return nil
	}
	_, allGaps, ok := a.chainSpan(bid, eid)
	if !ok {
		return invariantf("RightEndShiftBead: bead %d does not precede %d in one fragment", bid, eid)
	}
	if a.Base(bid) != Gap && !(allGaps && a.Base(eid) == Gap) {
		return invariantf("RightEndShiftBead: bead %d cannot cross non-gap beads", bid)
	}
	for {
		n := a.beads[bid].Next
		if err := a.LateralExchangeBead(bid, n); err != nil {
			return err
		}
		if n == eid {
			return nil
		}
	}
}

// unlinkGapBead removes an unaligned gap bead from its fragment chain.
func (a *Arena) unlinkGapBead(bid BeadID) {
	b := a.beads[bid]
	if b.Prev != NoBead {
		a.beads[b.Prev].Next = b.Next
	} else if b.Frag != NoFrag {
		a.frags[b.Frag].FirstBead = b.Next
	}
	if b.Next != NoBead {
		a.beads[b.Next].Prev = b.Prev
	} else if b.Frag != NoFrag {
		a.frags[b.Frag].LastBead = b.Prev
	}
	a.beads[bid].Prev = NoBead
	a.beads[bid].Next = NoBead
}
