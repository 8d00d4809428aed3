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
	"sort"

	farm "github.com/dgryski/go-farm"
)

// LeftShift returns a copy of ab in which every base slides left over gap
// cells of its row to the leftmost column whose running plurality call is
// the same base.  Compatible columns are then merged leftward.
func (ab *Abacus) LeftShift() *Abacus {
	c := ab.clone()
	for i := range c.rows {
		r := &c.rows[i]
		for j := r.lo + 1; j < r.hi; j++ {
			if r.cells[j] == Gap || (r.pinHi && j == r.hi-1) {
				continue
			}
			target := j
			for t := j - 1; t >= r.lo && r.cells[t] == Gap; t-- {
				if c.call(t) == r.cells[j] {
					target = t
				}
			}
			if target != j {
				c.move(i, j, target)
			}
		}
	}
	c.mergeLeft()
	return c
}

// RightShift mirrors LeftShift.
func (ab *Abacus) RightShift() *Abacus {
	c := ab.clone()
	for i := range c.rows {
		r := &c.rows[i]
		for j := r.hi - 2; j >= r.lo; j-- {
			if r.cells[j] == Gap || (r.pinLo && j == r.lo) {
				continue
			}
			target := j
			for t := j + 1; t < r.hi && r.cells[t] == Gap; t++ {
				if c.call(t) == r.cells[j] {
					target = t
				}
			}
			if target != j {
				c.move(i, j, target)
			}
		}
	}
	c.mergeRight()
	return c
}

// mergeInto moves every base of column j to column to if each such row has
// only gap cells from to up to j.
func (ab *Abacus) mergeInto(j, to int) bool {
	lo, hi := to, j
	if to > j {
		lo, hi = j+1, to+1
	}
	for i := range ab.rows {
		r := &ab.rows[i]
		if !r.isBase(j) {
			continue
		}
		if lo < r.lo || hi > r.hi {
			return false
		}
		for t := lo; t < hi; t++ {
			if r.cells[t] != Gap {
				return false
			}
		}
	}
	for i := range ab.rows {
		if ab.rows[i].isBase(j) {
			ab.move(i, j, to)
		}
	}
	return true
}

// mergeLeft merges each column into the nearest non-null column on its left
// when they are compatible.
func (ab *Abacus) mergeLeft() {
	left := -1
	for j := range ab.cols {
		if ab.null(j) {
			continue
		}
		if left >= 0 && ab.mergeInto(j, left) {
			continue
		}
		left = j
	}
}

// mergeRight mirrors mergeLeft.
func (ab *Abacus) mergeRight() {
	right := -1
	for j := len(ab.cols) - 1; j >= 0; j-- {
		if ab.null(j) {
			continue
		}
		if right >= 0 && ab.mergeInto(j, right) {
			continue
		}
		right = j
	}
}

// alleleGroups groups the read rows that span the whole window by their
// ungapped sequence.  It returns the rows of the largest and second largest
// groups.
func (ab *Abacus) alleleGroups() (majority, minority []int, ok bool) {
	var (
		groups = map[uint64][]int{}
		order  []uint64
		w      = len(ab.cols)
	)
	for i := range ab.rows {
		r := &ab.rows[i]
		if !r.read || r.lo != 0 || r.hi != w {
			continue
		}
		key := farm.Hash64(ungap(r.cells))
		if _, found := groups[key]; !found {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	if len(order) < 2 {
		return nil, nil, false
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(groups[order[i]]) > len(groups[order[j]])
	})
	return groups[order[0]], groups[order[1]], true
}

// minorityGaps returns true if a row of the second allele has a gap in a
// non-null column.
func (ab *Abacus) minorityGaps() bool {
	_, minority, ok := ab.alleleGroups()
	if !ok {
		return false
	}
	for _, i := range minority {
		r := &ab.rows[i]
		for j := r.lo; j < r.hi; j++ {
			if r.cells[j] == Gap && !ab.null(j) {
				return true
			}
		}
	}
	return false
}

// MixedShift anchors the second allele's sequence against the first
// allele's with k-mers from both ends, and shifts only the second allele's
// rows in the flanks outside that core, towards columns where the first
// allele has the same base.  It returns nil if there is no second allele or
// no anchor.
func (ab *Abacus) MixedShift(k int) *Abacus {
	c := ab.clone()
	majority, minority, ok := c.alleleGroups()
	if !ok {
		return nil
	}
	template := c.rows[majority[0]].cells
	begin, end, ok := anchorCore(ungap(c.rows[minority[0]].cells), ungap(template), k)
	if !ok {
		return nil
	}
	// Map the core from ungapped template positions to columns.
	coreLo, coreHi := -1, -1
	for j, n := 0, 0; j < len(template); j++ {
		if template[j] == Gap {
			continue
		}
		if n == begin {
			coreLo = j
		}
		if n == end-1 {
			coreHi = j
		}
		n++
	}
	if coreLo < 0 || coreHi < coreLo {
		return nil
	}
	for _, i := range minority {
		r := &c.rows[i]
		// Left flank: slide right towards the core.
		for j := coreLo - 1; j >= r.lo; j-- {
			if r.cells[j] == Gap || (r.pinLo && j == r.lo) {
				continue
			}
			target := j
			for t := j + 1; t < coreLo && r.cells[t] == Gap; t++ {
				if template[t] == r.cells[j] {
					target = t
				}
			}
			if target != j {
				c.move(i, j, target)
			}
		}
		// Right flank: slide left towards the core.
		for j := coreHi + 1; j < r.hi; j++ {
			if r.cells[j] == Gap || (r.pinHi && j == r.hi-1) {
				continue
			}
			target := j
			for t := j - 1; t > coreHi && r.cells[t] == Gap; t-- {
				if template[t] == r.cells[j] {
					target = t
				}
			}
			if target != j {
				c.move(i, j, target)
			}
		}
	}
	c.mergeLeft()
	return c
}
