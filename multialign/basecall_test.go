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

func thirdColumn(a *Arena, mid MANodeID) ColumnID {
	return a.Columns(mid)[2]
}

func TestStatisticalCall(t *testing.T) {
	a := NewArena(Sizes{})
	mid, _ := seedReads(t, a, 30, "AACGT", "AACGT", "AATGT")
	c, err := a.BaseCall(thirdColumn(a, mid), DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('C'))
	expect.True(t, c.Var > 0.3 && c.Var < 0.34, "var %v", c.Var)
	expect.True(t, c.QV > 0 && int(c.QV) < DefaultCallOpts.MaxQV, "qv %d", c.QV)
	expect.EQ(t, a.CallBase(thirdColumn(a, mid)), byte('C'))

	// A unanimous column gets the maximum quality and no variation.
	c, err = a.BaseCall(a.Columns(mid)[0], DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('A'))
	expect.EQ(t, int(c.QV), DefaultCallOpts.MaxQV)
	expect.EQ(t, c.Var, 0.0)

	// With two reads required per base, the single T no longer counts.
	opts := DefaultCallOpts
	opts.MinReadsForVariation = 2
	c, err = a.BaseCall(thirdColumn(a, mid), opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Var, 0.0)
}

func TestStatisticalPriorIgnoresCounts(t *testing.T) {
	a := NewArena(Sizes{})
	mid, _ := seedReads(t, a, 20, "GAT", "GAT", "GAT", "GCT")
	cid := a.Columns(mid)[1]
	// Three matches against one mismatch at Q20 leave an error probability
	// of about 4.1e-6.
	c, err := a.BaseCall(cid, DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('A'))
	expect.EQ(t, c.QV, byte(54))

	// The prior only moves weight between the gap and the bases.
	opts := DefaultCallOpts
	opts.SNPRate = 0.2
	c, err = a.BaseCall(cid, opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('A'))
	expect.EQ(t, c.QV, byte(54))

	p := lnPrior(1, 0.001)
	expect.EQ(t, p[IdxA], p[IdxT])
	expect.True(t, p[IdxGap] < p[IdxA])
	expect.EQ(t, lnPrior(0, 0.001), p)
	expect.EQ(t, lnPrior(1, 0.9), lnPrior(1, 1.0/NCallable))
}

func TestStatisticalPriorGapColumn(t *testing.T) {
	a := NewArena(Sizes{})
	mid := a.CreateMANode()
	r1 := addRead(t, a, "r1", "ACGT", 20)
	r2 := addRead(t, a, "r2", "ACT", 20)
	assert.NoError(t, a.SeedMANode(mid, r1))
	assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(r1), r2, 0, []int32{-3}))
	assert.NoError(t, a.RefreshColumns(mid))
	expect.EQ(t, string(a.GappedSequence(r2)), "AC-T")
	cid := thirdColumn(a, mid)

	c, err := a.BaseCall(cid, DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('G'))
	expect.EQ(t, c.QV, byte(20))

	// At the largest gap prior G and gap weigh the same; the base wins the
	// tie with an error probability just over a half.
	opts := DefaultCallOpts
	opts.SNPRate = 0.2
	c, err = a.BaseCall(cid, opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('G'))
	expect.EQ(t, c.QV, byte(3))
}

func TestCallModes(t *testing.T) {
	a := NewArena(Sizes{})
	mid, _ := seedReads(t, a, 30, "AACGT", "AACGT", "AATGT")
	cid := thirdColumn(a, mid)

	opts := DefaultCallOpts
	opts.Mode = Plurality
	c, err := a.BaseCall(cid, opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('C'))
	expect.EQ(t, c.QV, byte(30))

	// The most recently aligned bead sits right below the call.
	opts.Mode = Passthrough
	c, err = a.BaseCall(cid, opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('T'))
	expect.EQ(t, c.QV, byte(30))

	opts.Mode = CallMode(9)
	_, err = a.BaseCall(cid, opts)
	expect.True(t, IsKind(err, StoreInvariantViolation))
}

func TestGuidesVoteOnlyAlone(t *testing.T) {
	a := NewArena(Sizes{})
	mid, fids := seedReads(t, a, 30, "AACGT", "AACGT")
	g, err := a.AddFragment(FragmentSpec{Ident: "g", Type: FragGuide, Seq: []byte("AAGGTCC"), Qual: quals(7, 40)})
	assert.NoError(t, err)
	assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(fids[0]), g, 0, nil))
	assert.NoError(t, a.RefreshColumns(mid))
	cols := a.Columns(mid)
	expect.EQ(t, len(cols), 7)

	c, err := a.BaseCall(cols[2], DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('C'))
	c, err = a.BaseCall(cols[6], DefaultCallOpts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('C'))
	expect.EQ(t, int(c.QV), DefaultCallOpts.MaxQV)
}

func TestTargetAlleleCall(t *testing.T) {
	a := NewArena(Sizes{})
	mid, fids := seedReads(t, a, 30, "AACGT", "AACGT", "AATGT")
	opts := DefaultCallOpts
	opts.TargetAllele = 1
	opts.Alleles = make([]int, len(fids))
	opts.Alleles[fids[2]] = 1
	c, err := a.BaseCall(thirdColumn(a, mid), opts)
	assert.NoError(t, err)
	expect.EQ(t, c.Base, byte('T'))
	expect.EQ(t, c.Var, 0.0)
}

func TestTieBreakDeterminism(t *testing.T) {
	call := func(tb TieBreaker) []byte {
		a := NewArena(Sizes{})
		mid, _ := seedReads(t, a, 30, "ACGTACGT", "AGGTTCGA", "ATGTGCGC")
		opts := DefaultCallOpts
		opts.TieBreaker = tb
		var out []byte
		for _, cid := range a.Columns(mid) {
			c, err := a.BaseCall(cid, opts)
			assert.NoError(t, err)
			out = append(out, c.Base)
		}
		return out
	}
	expect.EQ(t, string(call(LowestCode)), "ACGTACGA")
	expect.EQ(t, call(NewRandomTieBreaker(7)), call(NewRandomTieBreaker(7)))
	expect.EQ(t, call(nil), call(LowestCode))
}

func TestBreakTiePrefersBases(t *testing.T) {
	expect.EQ(t, breakTie(LowestCode, []int{IdxGap, IdxT}), IdxT)
	expect.EQ(t, breakTie(LowestCode, []int{IdxGap}), IdxGap)
	expect.EQ(t, breakTie(LowestCode, []int{IdxGap, IdxC, IdxG}), IdxC)
	tb := NewRandomTieBreaker(1)
	for i := 0; i < 20; i++ {
		c := breakTie(tb, []int{IdxGap, IdxA, IdxC})
		expect.True(t, c == IdxA || c == IdxC)
	}
}
