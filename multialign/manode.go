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

import "fmt"

// CreateMANode allocates an empty multiple alignment.
func (a *Arena) CreateMANode() MANodeID {
	id := MANodeID(len(a.manodes))
	a.manodes = append(a.manodes, MANode{ID: id, First: NoColumn, Last: NoColumn})
	return id
}

// SeedMANode starts an empty MANode with the bead chain of fid, one column
// per base.
func (a *Arena) SeedMANode(mid MANodeID, fid FragID) error {
	if !a.validMANode(mid) || a.manodes[mid].First != NoColumn {
		return invariantf("SeedMANode: MANode %d is not empty", mid)
	}
	if !a.validFrag(fid) || a.frags[fid].Deleted {
		return invariantf("SeedMANode: bad fragment %d", fid)
	}
	prev := NoColumn
	for b := a.frags[fid].FirstBead; b != NoBead; b = a.beads[b].Next {
		cid := a.newColumn(mid)
		if prev == NoColumn {
			a.manodes[mid].First = cid
			a.manodes[mid].Last = cid
		} else {
			a.linkColumnAfter(prev, cid)
		}
		if err := a.AlignBead(cid, b); err != nil {
			return err
		}
		prev = cid
	}
	a.frags[fid].MANode = mid
	return a.RefreshColumns(mid)
}

// RefreshColumns rebuilds the ordered column list of mid and renumbers every
// column's MAIndex.
func (a *Arena) RefreshColumns(mid MANodeID) error {
	if !a.validMANode(mid) {
		return invariantf("RefreshColumns: bad MANode %d", mid)
	}
	cols := a.manodes[mid].Columns[:0]
	prev := NoColumn
	for c := a.manodes[mid].First; c != NoColumn; c = a.columns[c].Next {
		if a.columns[c].Removed || a.columns[c].Prev != prev {
			return invariantf("RefreshColumns: column %d is not linked after %d", c, prev)
		}
		if len(cols) > len(a.columns) {
			return invariantf("RefreshColumns: column cycle in MANode %d", mid)
		}
		a.columns[c].MAIndex = int32(len(cols))
		cols = append(cols, c)
		prev = c
	}
	if prev != a.manodes[mid].Last {
		return invariantf("RefreshColumns: MANode %d ends at %d, last is %d", mid, prev, a.manodes[mid].Last)
	}
	a.manodes[mid].Columns = cols
	return nil
}

// Columns returns the ordered column list of mid as of the last
// RefreshColumns.
func (a *Arena) Columns(mid MANodeID) []ColumnID {
	return append([]ColumnID(nil), a.manodes[mid].Columns...)
}

// NumMANodeColumns returns the number of columns currently linked into mid.
func (a *Arena) NumMANodeColumns(mid MANodeID) int {
	n := 0
	for c := a.manodes[mid].First; c != NoColumn; c = a.columns[c].Next {
		n++
	}
	return n
}

// Consensus is the called sequence of an MANode.
type Consensus struct {
	// Gapped has one character per column.
	Gapped []byte
	// GappedQual has one quality per column.
	GappedQual []byte
	// Ungapped and UngappedQual omit gap calls.
	Ungapped     []byte
	UngappedQual []byte
}

// Consensus returns the current calls of mid.  It does not recall any
// column; use RefreshMANode first.
func (a *Arena) Consensus(mid MANodeID) Consensus {
	var c Consensus
	for cid := a.manodes[mid].First; cid != NoColumn; cid = a.columns[cid].Next {
		base, q := a.CallBase(cid), a.CallQV(cid)
		c.Gapped = append(c.Gapped, base)
		c.GappedQual = append(c.GappedQual, q)
		if base != Gap {
			c.Ungapped = append(c.Ungapped, base)
			c.UngappedQual = append(c.UngappedQual, q)
		}
	}
	return c
}

// Coord is the placement of one fragment in the final alignment.  Begin is
// inclusive, End exclusive.  For a complemented fragment Begin > End.
type Coord struct {
	Frag                       FragID
	Ident                      string
	Type                       FragType
	GappedBegin, GappedEnd     int
	UngappedBegin, UngappedEnd int
}

// Coordinates walks the column list of mid and reports where every placed
// fragment starts and ends, in fragment id order.
func (a *Arena) Coordinates(mid MANodeID) ([]Coord, error) {
	if !a.validMANode(mid) {
		return nil, invariantf("Coordinates: bad MANode %d", mid)
	}
	// ungapped[i] is the number of non-gap calls before gapped position i.
	var (
		gappedIndex = map[ColumnID]int{}
		ungapped    []int
		n           int
	)
	for cid := a.manodes[mid].First; cid != NoColumn; cid = a.columns[cid].Next {
		gappedIndex[cid] = len(ungapped)
		ungapped = append(ungapped, n)
		if a.CallBase(cid) != Gap {
			n++
		}
	}
	ungapped = append(ungapped, n)

	var coords []Coord
	for i := range a.frags {
		f := &a.frags[i]
		if f.MANode != mid || f.Deleted {
			continue
		}
		first, ok1 := gappedIndex[a.beads[f.FirstBead].Column]
		last, ok2 := gappedIndex[a.beads[f.LastBead].Column]
		if !ok1 || !ok2 {
			return nil, invariantf("Coordinates: fragment %s is not fully aligned", f.Ident)
		}
		c := Coord{
			Frag:          f.ID,
			Ident:         f.Ident,
			Type:          f.Type,
			GappedBegin:   first,
			GappedEnd:     last + 1,
			UngappedBegin: ungapped[first],
			UngappedEnd:   ungapped[last+1],
		}
		if f.Complement {
			c.GappedBegin, c.GappedEnd = c.GappedEnd, c.GappedBegin
			c.UngappedBegin, c.UngappedEnd = c.UngappedEnd, c.UngappedBegin
		}
		coords = append(coords, c)
	}
	return coords, nil
}

// CheckInvariants verifies the linked structure of mid: every column's tally
// matches its chain, no fragment row skips a column, and bead and column
// links agree.
func (a *Arena) CheckInvariants(mid MANodeID) error {
	if !a.validMANode(mid) {
		return invariantf("CheckInvariants: bad MANode %d", mid)
	}
	prev := NoColumn
	for cid := a.manodes[mid].First; cid != NoColumn; cid = a.columns[cid].Next {
		col := &a.columns[cid]
		if col.Removed || col.Prev != prev || col.MANode != mid {
			return invariantf("column %d: bad column link", cid)
		}
		var counts BaseCount
		up := col.Call
		for b := a.beads[col.Call].Down; b != NoBead; b = a.beads[b].Down {
			bead := &a.beads[b]
			if bead.Column != cid || bead.Up != up {
				return invariantf("column %d: bead %d has bad column links", cid, b)
			}
			counts.inc(a.Base(b))
			if int(counts.Depth) > len(a.beads) {
				return invariantf("column %d: column chain cycle", cid)
			}
			if bead.Next != NoBead {
				if nc := a.beads[bead.Next].Column; nc != NoColumn && nc != col.Next {
					return invariantf("column %d: bead %d is followed by bead %d in column %d", cid, b, bead.Next, nc)
				}
			}
			up = b
		}
		if counts != col.Counts {
			return invariantf("column %d: tally %v does not match chain %v", cid, col.Counts, counts)
		}
		var sum int32
		for _, n := range col.Counts.Count {
			sum += n
		}
		if sum != col.Counts.Depth {
			return invariantf("column %d: depth %d, tally sum %d", cid, col.Counts.Depth, sum)
		}
		prev = cid
	}
	if prev != a.manodes[mid].Last {
		return invariantf("MANode %d: last column is %d, want %d", mid, a.manodes[mid].Last, prev)
	}
	for i := range a.frags {
		f := &a.frags[i]
		if f.MANode != mid || f.Deleted {
			continue
		}
		p := NoBead
		for b := f.FirstBead; b != NoBead; b = a.beads[b].Next {
			if a.beads[b].Prev != p || a.beads[b].Frag != f.ID {
				return invariantf("fragment %s: bad chain link at bead %d", f.Ident, b)
			}
			if a.beads[b].Column == NoColumn {
				return invariantf("fragment %s: bead %d is not aligned", f.Ident, b)
			}
			p = b
		}
		if p != f.LastBead {
			return invariantf("fragment %s: last bead is %d, chain ends at %d", f.Ident, f.LastBead, p)
		}
	}
	return nil
}

func (c Coord) String() string {
	return fmt.Sprintf("%s:%d-%d", c.Ident, c.UngappedBegin, c.UngappedEnd)
}
