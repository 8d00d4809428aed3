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

// MergeCompatible merges the column after cid into cid if every base of
// the next column follows a gap in cid.  The bases slide left, the emptied
// column is removed and cid is recalled.  It returns true on a merge.
func (a *Arena) MergeCompatible(cid ColumnID, opts CallOpts) (bool, error) {
	if !a.validColumn(cid) {
		return false, invariantf("MergeCompatible: bad column %d", cid)
	}
	next := a.columns[cid].Next
	if next == NoColumn {
		return false, nil
	}
	var moves [][2]BeadID
	for b := a.beads[a.columns[next].Call].Down; b != NoBead; b = a.beads[b].Down {
		if a.Base(b) == Gap {
			continue
		}
		p := a.beads[b].Prev
		if p == NoBead || a.beads[p].Column != cid || a.Base(p) != Gap {
			return false, nil
		}
		moves = append(moves, [2]BeadID{p, b})
	}
	for _, m := range moves {
		if err := a.LeftEndShiftBead(m[0], m[1]); err != nil {
			return false, err
		}
	}
	if err := a.RemoveNullColumn(next); err != nil {
		return false, err
	}
	if _, err := a.BaseCall(cid, opts); err != nil {
		return false, err
	}
	return true, nil
}

// MergeRefine sweeps mid left to right, merging each column with its
// successors for as long as they are compatible.  It returns the number of
// columns removed.
func (a *Arena) MergeRefine(mid MANodeID, opts CallOpts) (int, error) {
	if !a.validMANode(mid) {
		return 0, invariantf("MergeRefine: bad MANode %d", mid)
	}
	merged := 0
	for cid := a.manodes[mid].First; cid != NoColumn; {
		ok, err := a.MergeCompatible(cid, opts)
		if err != nil {
			return merged, err
		}
		if ok {
			merged++
			continue
		}
		cid = a.columns[cid].Next
	}
	return merged, a.RefreshColumns(mid)
}
