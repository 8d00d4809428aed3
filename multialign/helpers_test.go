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
	"testing"

	"github.com/grailbio/testutil/assert"
)

func quals(n int, q byte) []byte {
	return bytes.Repeat([]byte{q}, n)
}

func addRead(t *testing.T, a *Arena, ident, seq string, q byte) FragID {
	fid, err := a.AddFragment(FragmentSpec{Ident: ident, Type: FragRead, Seq: []byte(seq), Qual: quals(len(seq), q)})
	assert.NoError(t, err)
	return fid
}

// seedReads creates an MANode from the first sequence and stacks the rest
// on it without gaps, all starting at the first column.
func seedReads(t *testing.T, a *Arena, q byte, seqs ...string) (MANodeID, []FragID) {
	mid := a.CreateMANode()
	var fids []FragID
	for i, s := range seqs {
		fid := addRead(t, a, string(rune('a'+i)), s, q)
		if i == 0 {
			assert.NoError(t, a.SeedMANode(mid, fid))
		} else {
			assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(fids[0]), fid, 0, nil))
		}
		fids = append(fids, fid)
	}
	assert.NoError(t, a.RefreshColumns(mid))
	return mid, fids
}

// projectRows lays every fragment out through the column list of mid.
// Columns a fragment does not reach are left blank.
func projectRows(a *Arena, mid MANodeID) map[FragID]string {
	rows := map[FragID][]byte{}
	var ncol int
	for c := a.MANode(mid).First; c != NoColumn; c = a.NextColumn(c) {
		for _, b := range a.ColumnBeads(c) {
			fid := a.Bead(b).Frag
			row := rows[fid]
			for len(row) < ncol {
				row = append(row, ' ')
			}
			rows[fid] = append(row, a.Base(b))
		}
		ncol++
	}
	out := map[FragID]string{}
	for fid, row := range rows {
		out[fid] = string(bytes.TrimLeft(row, " "))
	}
	return out
}

func checkRoundTrip(t *testing.T, a *Arena, mid MANodeID) {
	assert.NoError(t, a.CheckInvariants(mid))
	for fid, row := range projectRows(a, mid) {
		seq, _ := a.StoredSequence(fid)
		assert.EQ(t, string(ungap([]byte(row))), string(seq), "fragment %s", a.Fragment(fid).Ident)
	}
}
