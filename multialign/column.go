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

// ColumnBeads returns the fragment beads of column cid, top to bottom.  The
// call bead is not included.
func (a *Arena) ColumnBeads(cid ColumnID) []BeadID {
	var beads []BeadID
	for b := a.beads[a.columns[cid].Call].Down; b != NoBead; b = a.beads[b].Down {
		beads = append(beads, b)
	}
	return beads
}

// linkColumnAfter splices the unlinked column n after cid.
func (a *Arena) linkColumnAfter(cid, n ColumnID) {
	next := a.columns[cid].Next
	a.columns[n].Prev = cid
	a.columns[n].Next = next
	if next != NoColumn {
		a.columns[next].Prev = n
	} else {
		a.manodes[a.columns[cid].MANode].Last = n
	}
	a.columns[cid].Next = n
}

// linkColumnBefore splices the unlinked column n before cid.
func (a *Arena) linkColumnBefore(cid, n ColumnID) {
	prev := a.columns[cid].Prev
	a.columns[n].Next = cid
	a.columns[n].Prev = prev
	if prev != NoColumn {
		a.columns[prev].Next = n
	} else {
		a.manodes[a.columns[cid].MANode].First = n
	}
	a.columns[cid].Prev = n
}

// ColumnAppend creates a new column right after cid and aligns bid to it.
// Every row of cid that continues past cid receives a filler gap bead in the
// new column.
func (a *Arena) ColumnAppend(cid ColumnID, bid BeadID) (ColumnID, error) {
	if !a.validColumn(cid) {
		return NoColumn, invariantf("ColumnAppend: bad column %d", cid)
	}
	if !a.validBead(bid) || a.beads[bid].Column != NoColumn {
		return NoColumn, invariantf("ColumnAppend: bead %d is not free", bid)
	}
	n := a.newColumn(a.columns[cid].MANode)
	a.linkColumnAfter(cid, n)
	for _, r := range a.ColumnBeads(cid) {
		next := a.beads[r].Next
		if next == NoBead || next == bid || a.beads[next].Column == NoColumn {
			continue
		}
		g, err := a.AppendGapBead(r)
		if err != nil {
			return NoColumn, err
		}
		if err := a.AlignBead(n, g); err != nil {
			return NoColumn, err
		}
	}
	if err := a.AlignBead(n, bid); err != nil {
		return NoColumn, err
	}
	return n, nil
}

// ColumnPrepend creates a new column right before cid and aligns bid to it.
// Every row of cid that extends before cid receives a filler gap bead in the
// new column.
func (a *Arena) ColumnPrepend(cid ColumnID, bid BeadID) (ColumnID, error) {
	if !a.validColumn(cid) {
		return NoColumn, invariantf("ColumnPrepend: bad column %d", cid)
	}
	if !a.validBead(bid) || a.beads[bid].Column != NoColumn {
		return NoColumn, invariantf("ColumnPrepend: bead %d is not free", bid)
	}
	n := a.newColumn(a.columns[cid].MANode)
	a.linkColumnBefore(cid, n)
	for _, r := range a.ColumnBeads(cid) {
		prev := a.beads[r].Prev
		if prev == NoBead || prev == bid || a.beads[prev].Column == NoColumn {
			continue
		}
		g, err := a.PrependGapBead(r)
		if err != nil {
			return NoColumn, err
		}
		if err := a.AlignBead(n, g); err != nil {
			return NoColumn, err
		}
	}
	if err := a.AlignBead(n, bid); err != nil {
		return NoColumn, err
	}
	return n, nil
}

// RemoveNullColumn splices out a column that holds only gap beads.  The gap
// beads are removed from their fragment chains.
func (a *Arena) RemoveNullColumn(cid ColumnID) error {
	if !a.validColumn(cid) {
		return invariantf("RemoveNullColumn: bad column %d", cid)
	}
	if !a.columns[cid].Null() {
		return invariantf("RemoveNullColumn: column %d holds %d bases", cid,
			a.columns[cid].Counts.Depth-a.columns[cid].Counts.Gaps())
	}
	for _, b := range a.ColumnBeads(cid) {
		if err := a.UnAlignBead(b); err != nil {
			return err
		}
		a.unlinkGapBead(b)
	}
	c := a.columns[cid]
	mid := c.MANode
	if c.Prev != NoColumn {
		a.columns[c.Prev].Next = c.Next
	} else if mid != NoMANode {
		a.manodes[mid].First = c.Next
	}
	if c.Next != NoColumn {
		a.columns[c.Next].Prev = c.Prev
	} else if mid != NoMANode {
		a.manodes[mid].Last = c.Prev
	}
	a.columns[cid].Prev = NoColumn
	a.columns[cid].Next = NoColumn
	a.columns[cid].Removed = true
	return nil
}

// NextColumn returns the column after cid, or NoColumn.
func (a *Arena) NextColumn(cid ColumnID) ColumnID { return a.columns[cid].Next }

// PrevColumn returns the column before cid, or NoColumn.
func (a *Arena) PrevColumn(cid ColumnID) ColumnID { return a.columns[cid].Prev }

// CallBase returns the consensus character currently stored for cid.
func (a *Arena) CallBase(cid ColumnID) byte { return a.Base(a.columns[cid].Call) }

// CallQV returns the consensus quality currently stored for cid.
func (a *Arena) CallQV(cid ColumnID) byte { return a.Qual(a.columns[cid].Call) }

func (a *Arena) setCall(cid ColumnID, c, q byte) {
	off := a.beads[a.columns[cid].Call].SOffset
	a.seq[off] = c
	a.qual[off] = q
}
