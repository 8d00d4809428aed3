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
	"math/rand"
	"testing"

	"github.com/grailbio/consensus/encoding/fastq"
	"github.com/grailbio/consensus/encoding/layout"
	"github.com/grailbio/consensus/multialign"
	"github.com/grailbio/consensus/overlap"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func randomSeq(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	s := make([]byte, n)
	for i := range s {
		s[i] = "ACGT"[r.Intn(4)]
	}
	return s
}

func revcomp(s []byte) []byte {
	c := append([]byte(nil), s...)
	multialign.ReverseComplementInplace(c)
	return c
}

func newRecord(name string, seq []byte) *fastq.Record {
	q := make([]byte, len(seq))
	for i := range q {
		q[i] = 30
	}
	return &fastq.Record{Name: name, Seq: seq, Qual: q}
}

type row struct {
	frag, typ  string
	begin, end int64
}

func newTig(ident string, length int, rows ...row) *layout.Tig {
	tig := &layout.Tig{Ident: ident, Length: length}
	for _, r := range rows {
		tig.Placements = append(tig.Placements, layout.Placement{
			Tig: ident, Length: int64(length), Frag: r.frag, Type: r.typ, Begin: r.begin, End: r.end,
		})
	}
	return tig
}

func coordsByIdent(coords []multialign.Coord) map[string]multialign.Coord {
	m := map[string]multialign.Coord{}
	for _, c := range coords {
		m[c.Ident] = c
	}
	return m
}

func testArena() *multialign.Arena { return multialign.NewArena(multialign.Sizes{}) }

// genome is the 120 bases every test tig is cut from.
var genome = randomSeq(120, 1)

func unitigReads() map[string]*fastq.Record {
	return map[string]*fastq.Record{
		"r1": newRecord("r1", genome[0:80]),
		"r2": newRecord("r2", genome[40:120]),
		"r3": newRecord("r3", revcomp(genome[20:100])),
	}
}

func TestBuildUnitig(t *testing.T) {
	tig := newTig("utg1", 120,
		row{"r2", "R", 40, 120},
		row{"r1", "R", 0, 80},
		row{"r3", "R", 100, 20})
	res, err := BuildUnitig(testArena(), tig, unitigReads(), overlap.DefaultBandedAligner, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, res.Ident, "utg1")
	expect.EQ(t, res.Mode, UnitigMode)
	expect.EQ(t, string(res.Consensus.Ungapped), string(genome))
	expect.EQ(t, len(res.Consensus.UngappedQual), len(genome))
	expect.EQ(t, len(res.Variants), 0)
	expect.EQ(t, len(res.Ejected), 0)
	expect.EQ(t, len(res.Abutted), 0)
	expect.EQ(t, res.Tricks, 0)

	assert.EQ(t, len(res.Coords), 3)
	coords := coordsByIdent(res.Coords)
	expect.EQ(t, coords["r1"].UngappedBegin, 0)
	expect.EQ(t, coords["r1"].UngappedEnd, 80)
	expect.EQ(t, coords["r2"].UngappedBegin, 40)
	expect.EQ(t, coords["r2"].UngappedEnd, 120)
	// Complemented placements run backwards.
	expect.EQ(t, coords["r3"].UngappedBegin, 100)
	expect.EQ(t, coords["r3"].UngappedEnd, 20)
}

func TestBuildUnitigArenaReuse(t *testing.T) {
	a := testArena()
	tig := newTig("utg1", 120,
		row{"r1", "R", 0, 80},
		row{"r3", "R", 100, 20},
		row{"r2", "R", 40, 120})
	first, err := BuildUnitig(a, tig, unitigReads(), overlap.DefaultBandedAligner, DefaultOpts)
	assert.NoError(t, err)
	second, err := BuildUnitig(a, tig, unitigReads(), overlap.DefaultBandedAligner, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, string(second.Consensus.Gapped), string(first.Consensus.Gapped))
	expect.EQ(t, second.Consensus.GappedQual, first.Consensus.GappedQual)
	expect.EQ(t, a.NumFragments(), 3)
}

func TestBuildUnitigMalformed(t *testing.T) {
	reads := unitigReads()
	tests := []struct {
		name string
		tig  *layout.Tig
	}{
		{"empty", newTig("utg1", 120)},
		{"hole", newTig("utg1", 120, row{"r1", "R", 0, 50}, row{"r2", "R", 60, 120})},
		{"short", newTig("utg1", 130, row{"r1", "R", 0, 80}, row{"r2", "R", 40, 120})},
		{"missing read", newTig("utg1", 120, row{"r1", "R", 0, 80}, row{"r9", "R", 40, 120})},
	}
	for _, test := range tests {
		_, err := BuildUnitig(testArena(), test.tig, reads, overlap.DefaultBandedAligner, DefaultOpts)
		expect.True(t, multialign.IsKind(err, multialign.MalformedLayout), "%s: %v", test.name, err)
	}
}

func TestBuildUnitigEjectsContained(t *testing.T) {
	reads := unitigReads()
	reads["junk"] = newRecord("junk", randomSeq(40, 99))
	tig := newTig("utg1", 120,
		row{"r1", "R", 0, 80},
		row{"r3", "R", 100, 20},
		row{"junk", "R", 30, 70},
		row{"r2", "R", 40, 120})
	res, err := BuildUnitig(testArena(), tig, reads, overlap.DefaultBandedAligner, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, res.Ejected, []string{"junk"})
	expect.EQ(t, len(res.Coords), 3)
	_, ok := coordsByIdent(res.Coords)["junk"]
	expect.False(t, ok)
	expect.EQ(t, string(res.Consensus.Ungapped), string(genome))
}

func TestBuildUnitigAbut(t *testing.T) {
	// The layout claims a 5 base overlap that the reads do not support.
	reads := map[string]*fastq.Record{
		"r1": newRecord("r1", genome[0:60]),
		"r2": newRecord("r2", genome[55:120]),
	}
	tig := newTig("utg1", 120, row{"r1", "R", 0, 60}, row{"r2", "R", 55, 120})

	_, err := BuildUnitig(testArena(), tig, reads, overlap.DefaultBandedAligner, DefaultOpts)
	expect.True(t, multialign.IsKind(err, multialign.AlignmentNotFound), "%v", err)

	opts := DefaultOpts
	opts.ForcedAbutTolerance = 5
	res, err := BuildUnitig(testArena(), tig, reads, overlap.DefaultBandedAligner, opts)
	assert.NoError(t, err)
	expect.EQ(t, res.Abutted, []string{"r2"})
	want := string(genome[0:60]) + string(genome[55:120])
	expect.EQ(t, string(res.Consensus.Ungapped), want)
	coords := coordsByIdent(res.Coords)
	expect.EQ(t, coords["r2"].UngappedBegin, 60)
	expect.EQ(t, coords["r2"].UngappedEnd, 125)
}

func TestBuildContig(t *testing.T) {
	unitigs := map[string]*fastq.Record{
		"u1": newRecord("u1", genome[0:80]),
		"u2": newRecord("u2", revcomp(genome[40:120])),
	}
	components := map[string][]layout.Placement{
		"u1": {
			{Tig: "u1", Length: 80, Frag: "r1", Type: "R", Begin: 0, End: 50},
			{Tig: "u1", Length: 80, Frag: "r2", Type: "R", Begin: 60, End: 30},
		},
		"u2": {
			// Positions are along u2 as stored in its FASTQ record.
			{Tig: "u2", Length: 80, Frag: "r3", Type: "R", Begin: 0, End: 30},
		},
	}
	tig := newTig("ctg1", 120, row{"u1", "U", 0, 80}, row{"u2", "U", 120, 40})
	res, err := BuildContig(testArena(), tig, unitigs, components, overlap.DefaultBandedAligner, DefaultOpts)
	assert.NoError(t, err)
	expect.EQ(t, res.Mode, ContigMode)
	expect.EQ(t, string(res.Consensus.Ungapped), string(genome))

	coords := coordsByIdent(res.Coords)
	expect.EQ(t, coords["u1"].Type, multialign.FragUnitig)
	expect.EQ(t, coords["u2"].UngappedBegin, 120)
	expect.EQ(t, coords["u2"].UngappedEnd, 40)

	assert.EQ(t, len(res.Components), 3)
	comps := coordsByIdent(res.Components)
	expect.EQ(t, comps["r1"].Frag, multialign.NoFrag)
	expect.EQ(t, comps["r1"].UngappedBegin, 0)
	expect.EQ(t, comps["r1"].UngappedEnd, 50)
	expect.EQ(t, comps["r2"].UngappedBegin, 60)
	expect.EQ(t, comps["r2"].UngappedEnd, 30)
	// The first 30 bases of reverse(u2) are contig [90, 120), reversed.
	expect.EQ(t, comps["r3"].UngappedBegin, 120)
	expect.EQ(t, comps["r3"].UngappedEnd, 90)
}

func TestLayoutOrder(t *testing.T) {
	tig := newTig("utg1", 120,
		row{"a", "R", 40, 120},
		row{"b", "R", 0, 60},
		row{"c", "R", 80, 0},
		row{"d", "R", 0, 30})
	order, err := layoutOrder(tig)
	assert.NoError(t, err)
	// By begin, longest first.
	expect.EQ(t, order, []int{2, 1, 3, 0})
}
