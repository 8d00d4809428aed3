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
	"bytes"
	"fmt"
)

// noData marks an abacus cell outside its row's span.
const noData = byte('n')

// abacusRow is one fragment's cells across a window.
type abacusRow struct {
	frag  FragID
	read  bool
	cells []byte
	// lo and hi bound the row's span, hi exclusive.
	lo, hi int
	// first is the bead in column lo.
	first BeadID
	// pinLo (pinHi) is set if cell lo (hi-1) is the fragment's first (last)
	// bead; such a base may not move off its cell.
	pinLo, pinHi bool
}

func (r *abacusRow) isBase(j int) bool {
	return j >= r.lo && j < r.hi && r.cells[j] != Gap
}

// Abacus is a dense working copy of a window of columns.  Shifts only move
// bases over gap cells of the same row, so every row keeps its base order.
// LeftShift and RightShift never slide a fragment's first or last base on
// their own: a row whose span starts (ends) at its fragment's first (last)
// bead keeps that base in its cell.  Only a merge of a whole compatible
// column may move it, after which the emptied column is removed.
type Abacus struct {
	cols   []ColumnID
	rows   []abacusRow
	counts [][NAlphabet]int
}

// newAbacus copies the columns of win, which must be consecutive.
func (a *Arena) newAbacus(win []ColumnID) (*Abacus, error) {
	ab := &Abacus{cols: win, counts: make([][NAlphabet]int, len(win))}
	rowOf := map[FragID]int{}
	last := map[FragID]BeadID{}
	for j, cid := range win {
		for _, b := range a.ColumnBeads(cid) {
			fid := a.beads[b].Frag
			i, ok := rowOf[fid]
			if !ok {
				i = len(ab.rows)
				rowOf[fid] = i
				cells := bytes.Repeat([]byte{noData}, len(win))
				ab.rows = append(ab.rows, abacusRow{
					frag:  fid,
					read:  a.frags[fid].Type == FragRead,
					cells: cells,
					lo:    j,
					hi:    j,
					first: b,
					pinLo: a.frags[fid].FirstBead == b,
				})
			}
			r := &ab.rows[i]
			if r.hi != j {
				return nil, invariantf("abacus: fragment %s skips column %d", a.frags[fid].Ident, cid)
			}
			r.cells[j] = a.Base(b)
			r.hi = j + 1
			last[fid] = b
			ab.counts[j][ASCIIToIdxTable[a.Base(b)]]++
		}
	}
	for i := range ab.rows {
		r := &ab.rows[i]
		r.pinHi = a.frags[r.frag].LastBead == last[r.frag]
	}
	return ab, nil
}

// clone returns a deep copy.
func (ab *Abacus) clone() *Abacus {
	c := &Abacus{
		cols:   ab.cols,
		rows:   make([]abacusRow, len(ab.rows)),
		counts: append([][NAlphabet]int(nil), ab.counts...),
	}
	for i, r := range ab.rows {
		r.cells = append([]byte(nil), r.cells...)
		c.rows[i] = r
	}
	return c
}

// Width returns the number of columns.
func (ab *Abacus) Width() int { return len(ab.cols) }

// move swaps a base at cell from of row i with the gap at cell to.
func (ab *Abacus) move(i, from, to int) {
	r := &ab.rows[i]
	c := r.cells[from]
	r.cells[to], r.cells[from] = c, Gap
	ab.counts[from][ASCIIToIdxTable[c]]--
	ab.counts[from][IdxGap]++
	ab.counts[to][IdxGap]--
	ab.counts[to][ASCIIToIdxTable[c]]++
}

// null returns true if column j holds no base.
func (ab *Abacus) null(j int) bool {
	for s := IdxA; s < NAlphabet; s++ {
		if ab.counts[j][s] > 0 {
			return false
		}
	}
	return true
}

// call returns the plurality base of column j, ignoring gaps, or 0 if the
// column holds no base.
func (ab *Abacus) call(j int) byte {
	best, n := 0, 0
	for s := IdxA; s < NAlphabet; s++ {
		if ab.counts[j][s] > n {
			best, n = s, ab.counts[j][s]
		}
	}
	if n == 0 {
		return 0
	}
	return IdxToASCIITable[best]
}

// AbacusScore ranks layouts; lower is better.
type AbacusScore struct {
	// GapOpens counts the maximal gap runs of every row, ignoring null
	// columns.
	GapOpens int
	// Columns counts the non-null columns.
	Columns int
	// Mismatches counts the bases that disagree with their column's
	// plurality base.
	Mismatches int
}

// Less compares scores lexicographically.
func (s AbacusScore) Less(o AbacusScore) bool {
	if s.GapOpens != o.GapOpens {
		return s.GapOpens < o.GapOpens
	}
	if s.Columns != o.Columns {
		return s.Columns < o.Columns
	}
	return s.Mismatches < o.Mismatches
}

func (s AbacusScore) String() string {
	return fmt.Sprintf("{gaps:%d cols:%d mm:%d}", s.GapOpens, s.Columns, s.Mismatches)
}

// Score computes the score of the current layout.
func (ab *Abacus) Score() AbacusScore {
	var s AbacusScore
	nonNull := make([]bool, len(ab.cols))
	for j := range ab.cols {
		if ab.null(j) {
			continue
		}
		nonNull[j] = true
		s.Columns++
		total, best := 0, 0
		for k := IdxA; k < NAlphabet; k++ {
			total += ab.counts[j][k]
			if ab.counts[j][k] > best {
				best = ab.counts[j][k]
			}
		}
		s.Mismatches += total - best
	}
	for i := range ab.rows {
		r := &ab.rows[i]
		inGap := false
		for j := r.lo; j < r.hi; j++ {
			if !nonNull[j] {
				continue
			}
			gap := r.cells[j] == Gap
			if gap && !inGap {
				s.GapOpens++
			}
			inGap = gap
		}
	}
	return s
}

// String renders one row per line.
func (ab *Abacus) String() string {
	var buf bytes.Buffer
	for _, r := range ab.rows {
		buf.Write(r.cells)
		buf.WriteByte('\n')
	}
	return buf.String()
}
