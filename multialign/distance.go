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
	"fmt"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// matrix is a dense n x n read distance matrix.
type matrix struct {
	n    int
	data []int
}

func newMatrix(n int) matrix {
	return matrix{n: n, data: make([]int, n*n)}
}

func (m matrix) at(i, j int) int { return m.data[i*m.n+j] }

// setSym sets both (i, j) and (j, i).
func (m matrix) setSym(i, j, v int) {
	m.data[i*m.n+j] = v
	m.data[j*m.n+i] = v
}

// String returns a string representation of a matrix.
func (m matrix) String() string {
	width := 0
	for _, d := range m.data {
		if l := len(strconv.Itoa(d)); l > width {
			width = l
		}
	}
	lines := []string{""}
	for i := 0; i < m.n; i++ {
		var parts []string
		for j := 0; j < m.n; j++ {
			parts = append(parts, fmt.Sprintf("%*d", width, m.at(i, j)))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}

// gappedHamming counts the positions at which two equal-length gapped
// vectors differ.  Positions where either holds NoData are skipped.
func gappedHamming(x, y []byte) int {
	d := 0
	for i := range x {
		if x[i] == NoData || y[i] == NoData {
			continue
		}
		if x[i] != y[i] {
			d++
		}
	}
	return d
}

func ungap(s []byte) []byte {
	out := make([]byte, 0, len(s))
	for _, c := range s {
		if c != Gap {
			out = append(out, c)
		}
	}
	return out
}

// ReadDistance is the smaller of the gapped Hamming distance of two reads
// over a region and the Hamming distance of their ungapped sequences.  The
// latter is only defined when the ungapped lengths agree and both reads
// cover the whole region.
func ReadDistance(x, y *Read) int {
	d := gappedHamming(x.Bases, y.Bases)
	if d == 0 || x.Partial || y.Partial {
		return 0
	}
	if u, err := matchr.Hamming(string(ungap(x.Bases)), string(ungap(y.Bases))); err == nil && u < d {
		d = u
	}
	return d
}

// distanceMatrix computes all pairwise read distances.
func distanceMatrix(reads []Read) matrix {
	m := newMatrix(len(reads))
	for i := range reads {
		for j := i + 1; j < len(reads); j++ {
			m.setSym(i, j, ReadDistance(&reads[i], &reads[j]))
		}
	}
	return m
}
