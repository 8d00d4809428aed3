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
)

// Backtrace arrows.
const (
	opStart = iota
	// opDiag consumes a base of each sequence.
	opDiag
	// opGapB consumes a base of a against a gap in b.
	opGapB
	// opGapA consumes a base of b against a gap in a.
	opGapA
)

// BandedAligner is a reference overlap aligner.  It maximizes a unit-cost
// score over dovetail and containment overlaps whose diagonals lie within
// the requested band, then checks the result against the request's error
// rate and minimum length.
type BandedAligner struct {
	Match, Mismatch, Gap int
}

// DefaultBandedAligner scores +1 per match and -2 per difference.
var DefaultBandedAligner = BandedAligner{Match: 1, Mismatch: -2, Gap: -2}

// bandMatrix stores one cell per (j, d) with d = i - j in [lo, hi], where i
// and j count the bases of a and b consumed.
type bandMatrix struct {
	lo, hi int
	score  []int32
	op     []byte
}

func (m *bandMatrix) index(j, d int) int { return j*(m.hi-m.lo+1) + d - m.lo }

// Align implements Aligner.
func (al BandedAligner) Align(a, b []byte, req Request) (Overlap, bool) {
	n, nb := len(a), len(b)
	lo, hi := req.BandBegin, req.BandEnd
	if lo < -nb {
		lo = -nb
	}
	if hi > n {
		hi = n
	}
	if lo > hi || n == 0 || nb == 0 {
		return Overlap{}, false
	}
	m := bandMatrix{lo: lo, hi: hi}
	m.score = make([]int32, (nb+1)*(hi-lo+1))
	m.op = make([]byte, len(m.score))

	bestScore, bestJ, bestD := int32(-1<<30), -1, 0
	for j := 0; j <= nb; j++ {
		for d := lo; d <= hi; d++ {
			i := j + d
			if i < 0 || i > n {
				continue
			}
			x := m.index(j, d)
			if i == 0 || j == 0 {
				// Free overhangs.
				m.score[x], m.op[x] = 0, opStart
			} else {
				s := int32(al.Mismatch)
				if multialign.Compatible(b[j-1], a[i-1]) || multialign.Compatible(a[i-1], b[j-1]) {
					s = int32(al.Match)
				}
				best, op := m.score[m.index(j-1, d)]+s, byte(opDiag)
				if d > lo {
					if v := m.score[m.index(j, d-1)] + int32(al.Gap); v > best {
						best, op = v, opGapB
					}
				}
				if d < hi {
					if v := m.score[m.index(j-1, d+1)] + int32(al.Gap); v > best {
						best, op = v, opGapA
					}
				}
				m.score[x], m.op[x] = best, op
			}
			if (i == n || j == nb) && m.score[x] > bestScore {
				bestScore, bestJ, bestD = m.score[x], j, d
			}
		}
	}
	if bestJ <= 0 || bestJ+bestD <= 0 {
		return Overlap{}, false
	}
	o := al.traceback(&m, a, b, bestJ, bestD)
	if o.Length < req.MinLength || o.ErrorRate() > req.ErrorRate {
		return Overlap{}, false
	}
	return o, true
}

func (al BandedAligner) traceback(m *bandMatrix, a, b []byte, j, d int) Overlap {
	n, nb := len(a), len(b)
	var o Overlap
	if i := j + d; i == n {
		o.BHang = nb - j
	} else {
		o.BHang = -(n - i)
	}
	var ops []byte
	for {
		op := m.op[m.index(j, d)]
		if op == opStart {
			break
		}
		ops = append(ops, op)
		switch op {
		case opDiag:
			j--
		case opGapB:
			d--
		case opGapA:
			j--
			d++
		}
	}
	if j == 0 {
		o.AHang = d
	} else {
		o.AHang = -j
	}
	i := j + d
	for k := len(ops) - 1; k >= 0; k-- {
		o.Length++
		switch ops[k] {
		case opDiag:
			if !multialign.Compatible(b[j], a[i]) && !multialign.Compatible(a[i], b[j]) {
				o.Diffs++
			}
			i++
			j++
		case opGapB:
			o.Diffs++
			o.Trace = append(o.Trace, -int32(j+1))
			i++
		case opGapA:
			o.Diffs++
			o.Trace = append(o.Trace, int32(i+1))
			j++
		}
	}
	return o
}
