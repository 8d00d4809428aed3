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

// FragID is a handle to a Fragment in an Arena.
type FragID int32

// BeadID is a handle to a Bead in an Arena.
type BeadID int32

// ColumnID is a handle to a Column in an Arena.
type ColumnID int32

// MANodeID is a handle to an MANode in an Arena.
type MANodeID int32

// The "none" value of each handle type.
const (
	NoFrag   FragID   = -1
	NoBead   BeadID   = -1
	NoColumn ColumnID = -1
	NoMANode MANodeID = -1
)

// DefaultMaxSequenceLength is the default per-fragment length limit.
const DefaultMaxSequenceLength = 2000000

// Bead is one base-position instance.  Every aligned base belongs to exactly
// one fragment chain and at most one column chain.
type Bead struct {
	ID BeadID
	// SOffset indexes the arena's sequence and quality stores.
	SOffset int32
	// FOffset is the ungapped offset of a real base within its fragment, -1
	// for gap and call beads.
	FOffset int32
	// Prev and Next link the fragment chain.
	Prev, Next BeadID
	// Up and Down link the column chain; the top of the chain is the
	// column's call bead.
	Up, Down BeadID
	// Frag is NoFrag for call beads.
	Frag FragID
	// Column is NoColumn while the bead is unaligned.
	Column ColumnID
}

// BaseCount is a column's running tally.  Depth always equals the sum of
// Count.
type BaseCount struct {
	Count [NAlphabet]int32
	Depth int32
}

func (bc *BaseCount) inc(c byte) {
	bc.Count[ASCIIToIdxTable[c]]++
	bc.Depth++
}

func (bc *BaseCount) dec(c byte) {
	bc.Count[ASCIIToIdxTable[c]]--
	bc.Depth--
}

// Gaps returns the number of gap beads counted.
func (bc BaseCount) Gaps() int32 { return bc.Count[IdxGap] }

// Column is one slot of a multiple alignment.
type Column struct {
	ID ColumnID
	// Call is the column's call bead; it anchors the column chain and holds
	// the consensus base and quality.
	Call BeadID
	// Prev and Next order the columns of an MANode.
	Prev, Next ColumnID
	// MAIndex is the column's rank, recomputed by RefreshColumns.
	MAIndex int32
	Counts  BaseCount
	MANode  MANodeID
	// Removed is set once the column has been spliced out of its MANode.
	Removed bool
}

// Null returns true if every bead in the column is a gap.
func (c Column) Null() bool {
	return c.Counts.Depth == c.Counts.Gaps()
}

// MANode is one complete multiple alignment.
type MANode struct {
	ID          MANodeID
	First, Last ColumnID
	// Columns is the ordered column list, rebuilt by RefreshColumns.
	Columns []ColumnID
}

// Sizes are the initial capacities of an arena's stores.
type Sizes struct {
	Fragments int
	Beads     int
	Columns   int
	Bases     int
}

// Arena owns the stores of one build.  Handles stay valid until Reset.
type Arena struct {
	seq     []byte
	qual    []byte
	beads   []Bead
	columns []Column
	frags   []Fragment
	manodes []MANode

	generation int
	// MaxSequenceLength bounds the ungapped length of one fragment.
	MaxSequenceLength int
}

// NewArena creates an arena with stores sized from the caller's estimates.
func NewArena(sz Sizes) *Arena {
	return &Arena{
		seq:               make([]byte, 0, sz.Bases),
		qual:              make([]byte, 0, sz.Bases),
		beads:             make([]Bead, 0, sz.Beads),
		columns:           make([]Column, 0, sz.Columns),
		frags:             make([]Fragment, 0, sz.Fragments),
		manodes:           make([]MANode, 0, 1),
		MaxSequenceLength: DefaultMaxSequenceLength,
	}
}

// Reset empties every store and invalidates all outstanding handles.  It
// must only be called between independent builds.
func (a *Arena) Reset() {
	a.seq = a.seq[:0]
	a.qual = a.qual[:0]
	a.beads = a.beads[:0]
	a.columns = a.columns[:0]
	a.frags = a.frags[:0]
	a.manodes = a.manodes[:0]
	a.generation++
}

// Generation is incremented by every Reset.
func (a *Arena) Generation() int { return a.generation }

// NumFragments returns the number of fragments in the arena.
func (a *Arena) NumFragments() int { return len(a.frags) }

// NumBeads returns the number of beads ever allocated since the last Reset,
// including call beads and beads of removed columns.
func (a *Arena) NumBeads() int { return len(a.beads) }

// NumColumns returns the number of columns ever allocated since the last
// Reset, including removed ones.
func (a *Arena) NumColumns() int { return len(a.columns) }

// Bead returns a copy of the bead.
func (a *Arena) Bead(id BeadID) Bead { return a.beads[id] }

// Column returns a copy of the column.
func (a *Arena) Column(id ColumnID) Column { return a.columns[id] }

// Fragment returns a copy of the fragment.
func (a *Arena) Fragment(id FragID) Fragment { return a.frags[id] }

// MANode returns a copy of the MANode.
func (a *Arena) MANode(id MANodeID) MANode { return a.manodes[id] }

// Base returns the base character of a bead.
func (a *Arena) Base(id BeadID) byte { return a.seq[a.beads[id].SOffset] }

// Qual returns the quality value of a bead.
func (a *Arena) Qual(id BeadID) byte { return a.qual[a.beads[id].SOffset] }

func (a *Arena) validBead(id BeadID) bool { return id >= 0 && int(id) < len(a.beads) }

func (a *Arena) validColumn(id ColumnID) bool {
	return id >= 0 && int(id) < len(a.columns) && !a.columns[id].Removed
}

func (a *Arena) validFrag(id FragID) bool { return id >= 0 && int(id) < len(a.frags) }

func (a *Arena) validMANode(id MANodeID) bool { return id >= 0 && int(id) < len(a.manodes) }

// appendBase appends one base/quality pair to the sequence stores and
// returns its offset.
func (a *Arena) appendBase(c, q byte) int32 {
	a.seq = append(a.seq, c)
	a.qual = append(a.qual, q)
	return int32(len(a.seq) - 1)
}

// newBead allocates an unlinked, unaligned bead.  It may relocate the bead
// store, so callers must not hold *Bead values across it.
func (a *Arena) newBead(c, q byte, frag FragID, foffset int32) BeadID {
	id := BeadID(len(a.beads))
	a.beads = append(a.beads, Bead{
		ID:      id,
		SOffset: a.appendBase(c, q),
		FOffset: foffset,
		Prev:    NoBead,
		Next:    NoBead,
		Up:      NoBead,
		Down:    NoBead,
		Frag:    frag,
		Column:  NoColumn,
	})
	return id
}

// newColumn allocates a column with a fresh call bead, not yet linked into
// any MANode.
func (a *Arena) newColumn(mid MANodeID) ColumnID {
	call := a.newBead('N', 0, NoFrag, -1)
	id := ColumnID(len(a.columns))
	a.columns = append(a.columns, Column{
		ID:      id,
		Call:    call,
		Prev:    NoColumn,
		Next:    NoColumn,
		MAIndex: -1,
		MANode:  mid,
	})
	a.beads[call].Column = id
	return id
}
