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

	"github.com/grailbio/base/log"
)

// polyChar returns the single non-gap character of column cid, 0 if the
// column holds only gaps, or 1 if it holds more than one character.
func (a *Arena) polyChar(cid ColumnID) byte {
	var x byte
	for b := a.beads[a.columns[cid].Call].Down; b != NoBead; b = a.beads[b].Down {
		c := a.Base(b)
		switch {
		case c == Gap:
		case x == 0:
			x = c
		case c != x:
			return 1
		}
	}
	return x
}

// mismatch counts the beads of cid that are not its most common symbol,
// gaps included.
func (a *Arena) mismatch(cid ColumnID) int {
	counts := &a.columns[cid].Counts
	best := int32(0)
	for _, n := range counts.Count {
		if n > best {
			best = n
		}
	}
	return int(counts.Depth - best)
}

func (a *Arena) columnRange(from, to ColumnID) []ColumnID {
	var win []ColumnID
	for c := from; c != NoColumn; c = a.columns[c].Next {
		win = append(win, c)
		if c == to {
			break
		}
	}
	return win
}

// IdentifyWindow returns the first abacus window at or after start.  Column
// calls must be current.
func (a *Arena) IdentifyWindow(start ColumnID, policy WindowPolicy, opts AbacusOpts) ([]ColumnID, bool) {
	if !a.validColumn(start) {
		return nil, false
	}
	switch policy {
	case Smooth:
		for c := start; c != NoColumn; c = a.columns[c].Next {
			if a.CallBase(c) != Gap {
				continue
			}
			b, e := c, c
			for n := a.columns[e].Next; n != NoColumn && a.CallBase(n) == Gap; n = a.columns[n].Next {
				e = n
			}
			// Include one neighbour on each side for the gap-call bases to
			// merge into.
			if p := a.columns[b].Prev; p != NoColumn {
				b = p
			}
			if n := a.columns[e].Next; n != NoColumn {
				e = n
			}
			return a.columnRange(b, e), true
		}
	case PolyX:
		for c := start; c != NoColumn; {
			x := a.polyChar(c)
			if x <= 1 {
				c = a.columns[c].Next
				continue
			}
			e := c
			gaps := a.columns[c].Counts.Gaps() > 0
			for n := a.columns[e].Next; n != NoColumn; n = a.columns[n].Next {
				if y := a.polyChar(n); y != x && y != 0 {
					break
				}
				e = n
				gaps = gaps || a.columns[n].Counts.Gaps() > 0
			}
			if gaps && e != c {
				return a.columnRange(c, e), true
			}
			c = a.columns[e].Next
		}
	case Indel:
		for c := start; c != NoColumn; c = a.columns[c].Next {
			if a.mismatch(c) == 0 {
				continue
			}
			e := c
			for {
				x, clean := a.columns[e].Next, 0
				for x != NoColumn && clean < opts.StabWidth && a.mismatch(x) == 0 {
					clean++
					x = a.columns[x].Next
				}
				if x == NoColumn || clean >= opts.StabWidth {
					break
				}
				e = x
			}
			if e != c {
				return a.columnRange(c, e), true
			}
		}
	}
	return nil, false
}

// RefineWindow scores the window's layout against its left-, right- and,
// when useful, mixed-shifted alternatives, and rewrites the window with the
// best one.  The original layout wins ties.  It returns true if the window
// was rewritten.
func (a *Arena) RefineWindow(win []ColumnID, opts AbacusOpts) (bool, error) {
	orig, err := a.newAbacus(win)
	if err != nil {
		return false, err
	}
	best, score := orig, orig.Score()
	for _, cand := range []*Abacus{orig.LeftShift(), orig.RightShift()} {
		if s := cand.Score(); s.Less(score) {
			best, score = cand, s
		}
	}
	if best.minorityGaps() {
		if m := best.MixedShift(opts.KmerLength); m != nil {
			if s := m.Score(); s.Less(score) {
				best, score = m, s
			}
		}
	}
	if best == orig {
		return false, nil
	}
	if log.At(log.Debug) {
		log.Debug.Printf("abacus: columns %d-%d: %v -> %v", a.columns[win[0]].MAIndex,
			a.columns[win[len(win)-1]].MAIndex, orig.Score(), score)
	}
	if err := a.applyAbacus(best); err != nil {
		return false, err
	}
	for _, cid := range win {
		if a.columns[cid].Null() {
			if err := a.RemoveNullColumn(cid); err != nil {
				return false, err
			}
			continue
		}
		if _, err := a.BaseCall(cid, opts.Call); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (a *Arena) nextBead(bid BeadID, gap bool) (BeadID, error) {
	for b := a.beads[bid].Next; b != NoBead; b = a.beads[b].Next {
		if (a.Base(b) == Gap) == gap {
			return b, nil
		}
	}
	return NoBead, invariantf("abacus: fragment %d has no bead to shift after %d", a.beads[bid].Frag, bid)
}

// applyAbacus replays each row of ab onto its fragment, left to right.
func (a *Arena) applyAbacus(ab *Abacus) error {
	for i := range ab.rows {
		r := &ab.rows[i]
		cur := r.first
		for j := r.lo; j < r.hi; j++ {
			want, have := r.cells[j] != Gap, a.Base(cur) != Gap
			if want != have {
				x, err := a.nextBead(cur, have)
				if err != nil {
					return err
				}
				if err := a.LeftEndShiftBead(cur, x); err != nil {
					return err
				}
				cur = x
			}
			if j < r.hi-1 {
				cur = a.beads[cur].Next
			}
		}
	}
	return nil
}

// AbacusRefine refines every window of the given policy that starts between
// columns from and to (NoColumn means the first and last column), then
// recalls the MANode without splitting alleles.  It returns the number of
// windows rewritten.
func (a *Arena) AbacusRefine(mid MANodeID, from, to ColumnID, policy WindowPolicy, opts AbacusOpts) (int, error) {
	if err := a.RefreshColumns(mid); err != nil {
		return 0, err
	}
	if from == NoColumn {
		from = a.manodes[mid].First
	}
	limit := int32(math.MaxInt32)
	if to != NoColumn {
		limit = a.columns[to].MAIndex
	}
	refined := 0
	for cur := from; cur != NoColumn && a.columns[cur].MAIndex <= limit; {
		win, ok := a.IdentifyWindow(cur, policy, opts)
		if !ok || a.columns[win[0]].MAIndex > limit {
			break
		}
		next := a.columns[win[len(win)-1]].Next
		if opts.MaxWindowWidth > 0 && len(win) > opts.MaxWindowWidth {
			log.Debug.Printf("abacus: skipping %v window of %d columns at %d", policy, len(win), a.columns[win[0]].MAIndex)
			cur = next
			continue
		}
		changed, err := a.RefineWindow(win, opts)
		if err != nil {
			return refined, err
		}
		if changed {
			refined++
		}
		cur = next
	}
	_, err := a.RefreshMANode(mid, RefreshOpts{Call: opts.Call})
	return refined, err
}
