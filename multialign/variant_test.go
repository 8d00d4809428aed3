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

func TestClusterReads(t *testing.T) {
	reads := []Read{
		NewRead(0, []byte("A"), []byte{10}),
		NewRead(1, []byte("A"), []byte{10}),
		NewRead(2, []byte("G"), []byte{30}),
		NewRead(3, []byte("G"), []byte{30}),
	}
	alleles := ClusterReads(reads)
	assert.EQ(t, len(alleles), 2)
	expect.EQ(t, alleles[0].Reads, []int{0, 1})
	expect.EQ(t, alleles[1].Reads, []int{2, 3})
	expect.EQ(t, reads[3].Allele, 1)
	expect.EQ(t, alleles[0].Weight, 20.0)
	expect.EQ(t, alleles[1].Weight, 60.0)

	SortAllelesByWeight(alleles)
	expect.EQ(t, alleles[0].ID, 1)
	expect.EQ(t, alleles[1].ID, 0)
}

func TestClusterReadsTransitive(t *testing.T) {
	// The reads agree once gaps are removed, whatever their order.
	reads := []Read{
		NewRead(0, []byte("A-C"), []byte{20, 20, 20}),
		NewRead(1, []byte("-AC"), []byte{20, 20, 20}),
		NewRead(2, []byte("AC-"), []byte{20, 20, 20}),
		NewRead(3, []byte("AG-"), []byte{20, 20, 20}),
	}
	alleles := ClusterReads(reads)
	assert.EQ(t, len(alleles), 2)
	expect.EQ(t, alleles[0].Reads, []int{0, 1, 2})
	expect.EQ(t, alleles[0].UngappedLen, 2)
	expect.EQ(t, ReadDistance(&reads[0], &reads[3]), 1)
	expect.EQ(t, ReadDistance(&reads[1], &reads[3]), 1)
}

func TestSortAllelesByLength(t *testing.T) {
	alleles := []Allele{
		{ID: 0, Weight: 90, Reads: []int{0}, UngappedLen: 9},
		{ID: 1, Weight: 20, Reads: []int{1, 2}, UngappedLen: 4},
		{ID: 2, Weight: 50, Reads: []int{3, 4}, UngappedLen: 6},
	}
	SortAllelesByLength(alleles)
	expect.EQ(t, []int{alleles[0].ID, alleles[1].ID, alleles[2].ID}, []int{2, 1, 0})
}

func TestDistanceMatrix(t *testing.T) {
	reads := []Read{
		NewRead(0, []byte("ACGT"), nil),
		NewRead(1, []byte("AC-T"), nil),
		NewRead(2, []byte("TCGA"), nil),
	}
	m := distanceMatrix(reads)
	expect.EQ(t, m.at(0, 1), 1)
	expect.EQ(t, m.at(1, 0), 1)
	expect.EQ(t, m.at(0, 2), 2)
	expect.EQ(t, m.at(2, 2), 0)
	expect.EQ(t, m.String(), "\n0 | 1 | 2\n1 | 0 | 3\n2 | 3 | 0")
}

func TestRefreshSplitsAlleles(t *testing.T) {
	a := NewArena(Sizes{})
	mid := a.CreateMANode()
	var fids []FragID
	for i, s := range []string{"ACGTA", "ACGTA", "ACTTA", "ACTTA"} {
		q := byte(30)
		if s[2] == 'T' {
			q = 40
		}
		fid := addRead(t, a, string(rune('a'+i)), s, q)
		if i == 0 {
			assert.NoError(t, a.SeedMANode(mid, fid))
		} else {
			assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(fids[0]), fid, 0, nil))
		}
		fids = append(fids, fid)
	}
	opts := DefaultRefreshOpts
	opts.SplitAlleles = true
	recs, err := a.RefreshMANode(mid, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Begin, 2)
	expect.EQ(t, rec.End, 3)
	expect.EQ(t, rec.NumReads, 4)
	expect.EQ(t, rec.NumConfirmedAlleles, 2)
	expect.EQ(t, rec.Weights, "80/60")
	expect.EQ(t, rec.ReadCounts, "2/2")
	expect.EQ(t, rec.AlleleSeqs, "T/G")
	expect.EQ(t, rec.Ratio, 0.75)
	expect.EQ(t, string(a.Consensus(mid).Gapped), "ACTTA")

	// Without splitting there are no records.
	opts.SplitAlleles = false
	recs, err = a.RefreshMANode(mid, opts)
	assert.NoError(t, err)
	expect.EQ(t, len(recs), 0)
}

func TestClusterReadsPartial(t *testing.T) {
	reads := []Read{
		NewRead(0, []byte("GT"), []byte{30, 30}),
		NewRead(1, []byte("GT"), []byte{30, 30}),
		NewRead(2, []byte("TC"), []byte{40, 40}),
		NewRead(3, []byte("TC"), []byte{40, 40}),
		NewRead(4, []byte("G."), []byte{20, 0}),
		NewRead(5, []byte(".C"), []byte{0, 10}),
		NewRead(6, []byte("A."), []byte{30, 0}),
	}
	expect.False(t, reads[0].Partial)
	expect.True(t, reads[4].Partial)
	expect.EQ(t, reads[4].AvgQV, 20.0)
	expect.EQ(t, ReadDistance(&reads[0], &reads[4]), 0)
	expect.EQ(t, ReadDistance(&reads[2], &reads[4]), 1)

	alleles := ClusterReads(reads)
	assert.EQ(t, len(alleles), 2)
	expect.EQ(t, alleles[0].Reads, []int{0, 1, 4})
	expect.EQ(t, alleles[1].Reads, []int{2, 3, 5})
	expect.EQ(t, alleles[0].Weight, 80.0)
	expect.EQ(t, alleles[1].Weight, 90.0)
	expect.EQ(t, alleles[0].UngappedLen, 2)
	// A partial read that agrees with no allele stays unassigned.
	expect.EQ(t, reads[6].Allele, -1)
}

// buildRefreshTig seeds a tig from the first read and stacks the others on
// it at offset zero, each with its own quality and trace.
func buildRefreshTig(t *testing.T, a *Arena, seqs []string, qs []byte, traces [][]int32) MANodeID {
	mid := a.CreateMANode()
	var first FragID
	for i, s := range seqs {
		fid := addRead(t, a, string(rune('a'+i)), s, qs[i])
		if i == 0 {
			assert.NoError(t, a.SeedMANode(mid, fid))
			first = fid
			continue
		}
		assert.NoError(t, a.ApplyAlignment(mid, FragAnchor(first), fid, 0, traces[i]))
	}
	return mid
}

func TestRefreshKeepsLongestAllele(t *testing.T) {
	a := NewArena(Sizes{})
	// The deletion allele is heavier, but the G allele is longer.
	mid := buildRefreshTig(t, a,
		[]string{"ACGTA", "ACGTA", "ACTA", "ACTA"},
		[]byte{30, 30, 40, 40},
		[][]int32{nil, nil, {-3}, {-3}})
	opts := DefaultRefreshOpts
	opts.SplitAlleles = true
	recs, err := a.RefreshMANode(mid, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Begin, 2)
	expect.EQ(t, rec.End, 3)
	expect.EQ(t, rec.NumReads, 4)
	expect.EQ(t, rec.Weights, "80/60")
	expect.EQ(t, rec.ReadCounts, "2/2")
	expect.EQ(t, rec.AlleleSeqs, "/G")
	expect.EQ(t, rec.Ratio, 0.75)
	expect.EQ(t, string(a.Consensus(mid).Gapped), "ACGTA")
}

func TestRefreshCountsPartialReads(t *testing.T) {
	a := NewArena(Sizes{})
	// The last read stops inside the region.
	mid := buildRefreshTig(t, a,
		[]string{"ACGTA", "ACGTA", "ACTCA", "ACTCA", "ACG"},
		[]byte{30, 30, 40, 40, 30},
		make([][]int32, 5))
	opts := DefaultRefreshOpts
	opts.SplitAlleles = true
	recs, err := a.RefreshMANode(mid, opts)
	assert.NoError(t, err)
	assert.EQ(t, len(recs), 1)
	rec := recs[0]
	expect.EQ(t, rec.Begin, 2)
	expect.EQ(t, rec.End, 4)
	expect.EQ(t, rec.NumReads, 5)
	expect.EQ(t, rec.NumConfirmedAlleles, 2)
	expect.EQ(t, rec.Weights, "90/80")
	expect.EQ(t, rec.ReadCounts, "3/2")
	expect.EQ(t, rec.AlleleSeqs, "GT/TC")
	expect.EQ(t, rec.Ratio, 80.0/90.0)
	expect.EQ(t, string(a.Consensus(mid).Gapped), "ACGTA")
}

func TestVarRegions(t *testing.T) {
	opts := DefaultRefreshOpts
	opts.SmoothWindow = 2
	opts.GapVarWeight = 0.5
	// A gap-call signal bridges only half as far.
	vars := []float64{0, 0.3, 0, 0, 0.2, 0, 0, 0, 0.1, 0, 0, -0.4}
	expect.EQ(t, varRegions(vars, opts), [][2]int{{1, 5}, {8, 9}, {11, 12}})
	vars = []float64{0.1, 0, 0, 0.1, 0, -0.2}
	expect.EQ(t, varRegions(vars, opts), [][2]int{{0, 6}})
}
