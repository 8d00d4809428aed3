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
	"math"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/consensus/multialign"
)

// placed is a fragment already merged into the MANode, at its layout
// span [lo, hi).
type placed struct {
	lo, hi int
	frag   multialign.FragID
}

// Compare orders placements by begin, then by fragment.
func (p placed) Compare(c llrb.Comparable) int {
	q := c.(placed)
	if p.lo != q.lo {
		return p.lo - q.lo
	}
	return int(p.frag) - int(q.frag)
}

// anchorIndex finds, for a new fragment, the placed fragment it overlaps
// most.
type anchorIndex struct {
	tree llrb.Tree
	// hi is the largest end of any placed fragment.
	hi int
}

func (x *anchorIndex) add(p placed) {
	x.tree.Insert(p)
	if p.hi > x.hi {
		x.hi = p.hi
	}
}

// best returns the placed fragment with the largest overlap with [lo, hi),
// preferring the earliest one on ties.  It returns false if no placed
// fragment overlaps.
func (x *anchorIndex) best(lo, hi int) (placed, bool) {
	var (
		best  placed
		most  = 0
		found = false
	)
	x.tree.DoRange(func(c llrb.Comparable) bool {
		p := c.(placed)
		b, e := p.lo, p.hi
		if b < lo {
			b = lo
		}
		if e > hi {
			e = hi
		}
		if e-b > most {
			best, most, found = p, e-b, true
		}
		return false
	}, placed{lo: math.MinInt32, frag: -1}, placed{lo: hi, frag: -1})
	return best, found
}

// container returns the placed fragment containing [lo, hi), if any.
func (x *anchorIndex) container(lo, hi int) (placed, bool) {
	var (
		c     placed
		found bool
	)
	x.tree.DoRange(func(item llrb.Comparable) bool {
		p := item.(placed)
		if p.hi >= hi {
			c, found = p, true
			return true
		}
		return false
	}, placed{lo: math.MinInt32, frag: -1}, placed{lo: lo + 1, frag: -1})
	return c, found
}

func (x *anchorIndex) len() int { return x.tree.Len() }
