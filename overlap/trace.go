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
	"github.com/grailbio/consensus/multialign"
	"golang.org/x/exp/slices"
)

// InvertTrace converts a trace between the reverse complements of a and b
// (of lengths alen and blen) into a trace between a and b.
func InvertTrace(trace []int32, alen, blen int) []int32 {
	trace = multialign.TrimTrace(trace)
	out := make([]int32, len(trace))
	for i, k := range trace {
		if k > 0 {
			out[i] = int32(alen) - k + 2
		} else {
			out[i] = -(int32(blen) + k + 2)
		}
	}
	slices.Reverse(out)
	return out
}

// SwapTrace converts a trace of b against a into a trace of a against b.
func SwapTrace(trace []int32) []int32 {
	trace = multialign.TrimTrace(trace)
	out := make([]int32, len(trace))
	for i, k := range trace {
		out[i] = -k
	}
	return out
}

// invert maps an overlap between the reverse complements back onto a and b.
func invert(o Overlap, alen, blen int) Overlap {
	o.AHang, o.BHang = -o.BHang, -o.AHang
	o.Trace = InvertTrace(o.Trace, alen, blen)
	return o
}

// swap maps an overlap of b against a onto a against b.
func swap(o Overlap) Overlap {
	o.AHang, o.BHang = -o.AHang, -o.BHang
	o.Trace = SwapTrace(o.Trace)
	return o
}

func reverseComplement(seq []byte) []byte {
	rc := append([]byte(nil), seq...)
	multialign.ReverseComplementInplace(rc)
	return rc
}

// Render lays a and b out as two rows of equal length according to o.
// Overhangs are padded with spaces.  It returns false if the trace is
// inconsistent with the sequences.
func Render(a, b []byte, o Overlap) (ra, rb []byte, ok bool) {
	trace := multialign.TrimTrace(o.Trace)
	if multialign.CheckTrace(len(a), len(b), o.AHang, trace) != nil {
		return nil, nil, false
	}
	apos, bpos := 0, 0
	pad := func(row *[]byte, n int) {
		for i := 0; i < n; i++ {
			*row = append(*row, ' ')
		}
	}
	if o.AHang >= 0 {
		ra = append(ra, a[:o.AHang]...)
		pad(&rb, o.AHang)
		apos = o.AHang
	} else {
		pad(&ra, -o.AHang)
		rb = append(rb, b[:-o.AHang]...)
		bpos = -o.AHang
	}
	for _, k := range trace {
		if k > 0 {
			for ; apos < int(k)-1; apos, bpos = apos+1, bpos+1 {
				ra, rb = append(ra, a[apos]), append(rb, b[bpos])
			}
			ra, rb = append(ra, multialign.Gap), append(rb, b[bpos])
			bpos++
			continue
		}
		for ; bpos < int(-k)-1; apos, bpos = apos+1, bpos+1 {
			ra, rb = append(ra, a[apos]), append(rb, b[bpos])
		}
		ra, rb = append(ra, a[apos]), append(rb, multialign.Gap)
		apos++
	}
	for ; apos < len(a) && bpos < len(b); apos, bpos = apos+1, bpos+1 {
		ra, rb = append(ra, a[apos]), append(rb, b[bpos])
	}
	ra = append(ra, a[apos:]...)
	pad(&rb, len(a)-apos)
	pad(&ra, len(b)-bpos)
	rb = append(rb, b[bpos:]...)
	return ra, rb, true
}
