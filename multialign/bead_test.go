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
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func TestGapBeadQuality(t *testing.T) {
	a := NewArena(Sizes{})
	fid, err := a.AddFragment(FragmentSpec{Ident: "r", Type: FragRead, Seq: []byte("ACG"), Qual: []byte{20, 10, 0}})
	assert.NoError(t, err)
	beads := a.FragmentBeads(fid)

	g, err := a.AppendGapBead(beads[0])
	assert.NoError(t, err)
	expect.EQ(t, a.Qual(g), byte(10))
	expect.EQ(t, a.Base(g), Gap)

	g, err = a.PrependGapBead(beads[0])
	assert.NoError(t, err)
	expect.EQ(t, a.Qual(g), byte(20))
	expect.EQ(t, a.Fragment(fid).FirstBead, g)

	g, err = a.AppendGapBead(beads[2])
	assert.NoError(t, err)
	expect.EQ(t, a.Qual(g), byte(MinGapQV))
	expect.EQ(t, a.Fragment(fid).LastBead, g)
	expect.EQ(t, string(a.GappedSequence(fid)), "-A-CG-")
	expect.EQ(t, string(a.UngappedSequence(fid)), "ACG")
}

func TestColumnAppendAndRemove(t *testing.T) {
	a := NewArena(Sizes{})
	mid, fids := seedReads(t, a, 30, "ACGT", "ACGT")
	extra := addRead(t, a, "x", "T", 30)
	x := a.Fragment(extra).FirstBead
	c1 := a.Bead(a.FragmentBeads(fids[0])[1]).Column

	n, err := a.ColumnAppend(c1, x)
	assert.NoError(t, err)
	col := a.Column(n)
	expect.EQ(t, col.Counts.Depth, int32(3))
	expect.EQ(t, col.Counts.Gaps(), int32(2))
	expect.EQ(t, a.NextColumn(c1), n)
	expect.EQ(t, string(a.GappedSequence(fids[0])), "AC-GT")
	assert.NoError(t, a.CheckInvariants(mid))

	err = a.RemoveNullColumn(n)
	expect.True(t, IsKind(err, StoreInvariantViolation), "err: %v", err)

	assert.NoError(t, a.UnAlignBead(x))
	assert.NoError(t, a.RemoveNullColumn(n))
	expect.EQ(t, string(a.GappedSequence(fids[0])), "ACGT")
	expect.EQ(t, string(a.GappedSequence(fids[1])), "ACGT")
	expect.EQ(t, a.NumMANodeColumns(mid), 4)
	assert.NoError(t, a.CheckInvariants(mid))

	err = a.AlignBead(n, x)
	expect.True(t, IsKind(err, StoreInvariantViolation), "err: %v", err)
}

func TestColumnPrepend(t *testing.T) {
	a := NewArena(Sizes{})
	mid, fids := seedReads(t, a, 30, "ACGT", "ACGT")
	extra := addRead(t, a, "x", "G", 30)
	first := a.MANode(mid).First
	n, err := a.ColumnPrepend(first, a.Fragment(extra).FirstBead)
	assert.NoError(t, err)
	// Neither row extends before the first column, so no filler is needed.
	expect.EQ(t, a.Column(n).Counts.Depth, int32(1))
	expect.EQ(t, a.MANode(mid).First, n)

	c2 := a.Bead(a.FragmentBeads(fids[0])[2]).Column
	extra2 := addRead(t, a, "y", "T", 30)
	n, err = a.ColumnPrepend(c2, a.Fragment(extra2).FirstBead)
	assert.NoError(t, err)
	expect.EQ(t, a.Column(n).Counts.Gaps(), int32(2))
	expect.EQ(t, string(a.GappedSequence(fids[1])), "AC-GT")
	assert.NoError(t, a.CheckInvariants(mid))
}

func TestEndShift(t *testing.T) {
	a := NewArena(Sizes{})
	mid := a.CreateMANode()
	fa := addRead(t, a, "a", "ACGT", 30)
	fb := addRead(t, a, "b", "ACGT", 30)
	assert.NoError(t, a.SeedMANode(mid, fa))
	// b's G goes in a new column; b then skips a's G.
	assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(fa), fb, 0, []int32{3, -4}))
	expect.EQ(t, string(a.GappedSequence(fa)), "AC-GT")
	expect.EQ(t, string(a.GappedSequence(fb)), "ACG-T")
	assert.NoError(t, a.CheckInvariants(mid))

	ab := a.FragmentBeads(fa)
	bb := a.FragmentBeads(fb)

	// A base may not jump over another base.
	err := a.LeftEndShiftBead(ab[1], ab[3])
	expect.True(t, IsKind(err, StoreInvariantViolation), "err: %v", err)

	// Move b's gap left, over its G.
	assert.NoError(t, a.LeftEndShiftBead(bb[2], bb[3]))
	expect.EQ(t, string(a.GappedSequence(fb)), "AC-GT")
	gapCol := a.Bead(bb[3]).Column
	expect.True(t, a.Column(gapCol).Null())
	assert.NoError(t, a.CheckInvariants(mid))
	assert.NoError(t, a.RemoveNullColumn(gapCol))
	expect.EQ(t, string(a.GappedSequence(fa)), "ACGT")
	expect.EQ(t, string(a.GappedSequence(fb)), "ACGT")
	assert.NoError(t, a.CheckInvariants(mid))
}

func TestRightEndShift(t *testing.T) {
	a := NewArena(Sizes{})
	mid := a.CreateMANode()
	fa := addRead(t, a, "a", "ACGT", 30)
	fb := addRead(t, a, "b", "ACGT", 30)
	assert.NoError(t, a.SeedMANode(mid, fa))
	assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(fa), fb, 0, []int32{3, -4}))
	ab := a.FragmentBeads(fa)
	cCol := a.Bead(ab[1]).Column
	// a's C moves right into its gap.
	assert.NoError(t, a.RightEndShiftBead(ab[1], ab[2]))
	expect.EQ(t, string(a.GappedSequence(fa)), "A-CGT")
	expect.EQ(t, a.Bead(ab[2]).Column, cCol)
	assert.NoError(t, a.CheckInvariants(mid))
}
