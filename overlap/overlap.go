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
	"fmt"
	"strings"
)

// Request parameterizes one aligner call.
type Request struct {
	// BandBegin and BandEnd bound the a-hang of acceptable overlaps,
	// both inclusive.
	BandBegin, BandEnd int
	// ErrorRate is the largest acceptable fraction of differences.
	ErrorRate float64
	// MinLength is the shortest acceptable overlap, in alignment columns.
	MinLength int
}

// Overlap is an aligner result.
type Overlap struct {
	// AHang is the offset of b's first base from a's first base; negative
	// if b starts first.
	AHang int
	// BHang is the number of b bases past a's end, or minus the number of a
	// bases past b's end.  A negative BHang with a non-negative AHang means
	// b is contained in a.
	BHang int
	// Diffs counts mismatches and gaps.
	Diffs int
	// Length counts alignment columns.
	Length int
	Trace  []int32
}

// ErrorRate is the empirical error rate of the overlap.
func (o Overlap) ErrorRate() float64 {
	if o.Length == 0 {
		return 1
	}
	return float64(o.Diffs) / float64(o.Length)
}

func (o Overlap) String() string {
	return fmt.Sprintf("ahang:%d bhang:%d diffs:%d/%d trace:%v", o.AHang, o.BHang, o.Diffs, o.Length, o.Trace)
}

// Aligner is the external pairwise aligner.  Align returns false if a and b
// have no overlap satisfying req.
type Aligner interface {
	Align(a, b []byte, req Request) (Overlap, bool)
}

// Trick records the unusual steps Find needed to obtain an overlap.  Tricks
// are logged for audit; they are not errors.
type Trick uint8

const (
	// ShortOverlap means the minimum overlap length was relaxed.
	ShortOverlap Trick = 1 << iota
	// DoubledErrorRate means the error rate was doubled because a sequence
	// is a consensus or carries ambiguity codes.
	DoubledErrorRate
	// WideBand means the band was widened beyond the tight semibandwidth.
	WideBand
	// OppositeStrand means the overlap was found between the reverse
	// complements.
	OppositeStrand
	// Swapped means the overlap was found with a and b exchanged.
	Swapped
)

var trickNames = []string{"short", "doubled-erate", "wide-band", "opposite", "swapped"}

func (t Trick) String() string {
	if t == 0 {
		return "none"
	}
	var names []string
	for i, name := range trickNames {
		if t&(1<<uint(i)) != 0 {
			names = append(names, name)
		}
	}
	return strings.Join(names, ",")
}
