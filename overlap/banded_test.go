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
package overlap

import (
	"testing"

	"github.com/grailbio/consensus/multialign"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestBandedAligner(t *testing.T) {
	tests := []struct {
		a, b         string
		band         [2]int
		ahang, bhang int
		diffs        int
		trace        []int32
		rowA, rowB   string
	}{
		{
			a: "ACGTACGTTGCA", b: "ACGTTGCAGGAT", band: [2]int{0, 8},
			ahang: 4, bhang: 4,
			rowA: "ACGTACGTTGCA    ", rowB: "    ACGTTGCAGGAT",
		},
		{
			a: "ACGTACGTTGCATG", b: "ACGTAGTTGCATG", band: [2]int{-3, 3},
			diffs: 1, trace: []int32{-6},
			rowA: "ACGTACGTTGCATG", rowB: "ACGTA-GTTGCATG",
		},
		{
			a: "TTTTACGTACGGAAAA", b: "ACGTACGG", band: [2]int{2, 6},
			ahang: 4, bhang: -4,
			rowA: "TTTTACGTACGGAAAA", rowB: "    ACGTACGG    ",
		},
	}
	for _, test := range tests {
		req := Request{BandBegin: test.band[0], BandEnd: test.band[1], ErrorRate: 0.1, MinLength: 5}
		o, ok := DefaultBandedAligner.Align([]byte(test.a), []byte(test.b), req)
		require.True(t, ok, test.a)
		expect.EQ(t, o.AHang, test.ahang, test.a)
		expect.EQ(t, o.BHang, test.bhang, test.a)
		expect.EQ(t, o.Diffs, test.diffs, test.a)
		expect.EQ(t, len(o.Trace), len(test.trace), test.a)
		for i := range test.trace {
			expect.EQ(t, o.Trace[i], test.trace[i], test.a)
		}
		ra, rb, ok := Render([]byte(test.a), []byte(test.b), o)
		require.True(t, ok)
		expect.EQ(t, string(ra), test.rowA)
		expect.EQ(t, string(rb), test.rowB)
	}
}

func TestBandedAlignerRejects(t *testing.T) {
	a, b := []byte("ACGTACGTTGCA"), []byte("ACGTTGCAGGAT")
	_, ok := DefaultBandedAligner.Align(a, b, Request{BandBegin: 0, BandEnd: 8, ErrorRate: 0.1, MinLength: 9})
	expect.False(t, ok)
	_, ok = DefaultBandedAligner.Align(a, b, Request{BandBegin: 20, BandEnd: 30, ErrorRate: 0.1})
	expect.False(t, ok)
}

func TestInvertTrace(t *testing.T) {
	expect.EQ(t, InvertTrace([]int32{2}, 4, 5), []int32{4})
	expect.EQ(t, InvertTrace([]int32{2, -3, 0, 7}, 6, 6), []int32{-5, 6})
	expect.EQ(t, SwapTrace([]int32{3, -5, 0}), []int32{-3, 5})

	a, b := []byte("ACGTACGTTGCATG"), []byte("ACGTAGTTGCATG")
	req := Request{BandBegin: -3, BandEnd: 3, ErrorRate: 0.1, MinLength: 5}
	ro, ok := DefaultBandedAligner.Align(reverseComplement(a), reverseComplement(b), req)
	require.True(t, ok)
	o := invert(ro, len(a), len(b))
	require.NoError(t, multialign.CheckTrace(len(a), len(b), o.AHang, o.Trace))
	ra, rb, ok := Render(a, b, o)
	require.True(t, ok)
	diffs := 0
	for i := range ra {
		if ra[i] != rb[i] {
			diffs++
		}
	}
	expect.EQ(t, diffs, 1)
	expect.EQ(t, o.AHang, 0)
	expect.EQ(t, o.BHang, 0)
}

func TestTrickString(t *testing.T) {
	expect.EQ(t, Trick(0).String(), "none")
	expect.EQ(t, (ShortOverlap | WideBand).String(), "short,wide-band")
	expect.EQ(t, (OppositeStrand | Swapped).String(), "opposite,swapped")
}
