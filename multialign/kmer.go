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

// kmer is a 2-bit packed sequence of up to 32 bases.
type kmer uint64

const invalidKmerBits = 0xff

var asciiToKmerMap [256]uint8

func init() {
	for i := range asciiToKmerMap {
		asciiToKmerMap[i] = invalidKmerBits
	}
	for i, c := range []byte("ACGT") {
		asciiToKmerMap[c] = uint8(i)
		asciiToKmerMap[c+'a'-'A'] = uint8(i)
	}
}

// kmerizer enumerates the k-mers of a sequence, skipping any that contain a
// base other than ACGT.
type kmerizer struct {
	k    int
	mask kmer // ~(~0 << 2k)
	seq  []byte
	pos  int
	// run counts the consecutive ACGT bases that end at pos-1.
	run int
	cur kmer
}

func newKmerizer(k int) *kmerizer {
	return &kmerizer{k: k, mask: ^(^kmer(0) << kmer(2*k))}
}

func (z *kmerizer) Reset(seq []byte) {
	z.seq = seq
	z.pos = 0
	z.run = 0
	z.cur = 0
}

// Scan advances to the next valid k-mer.
func (z *kmerizer) Scan() bool {
	for z.pos < len(z.seq) {
		bits := asciiToKmerMap[z.seq[z.pos]]
		z.pos++
		if bits == invalidKmerBits {
			z.run = 0
			z.cur = 0
			continue
		}
		z.cur = ((z.cur << 2) | kmer(bits)) & z.mask
		z.run++
		if z.run >= z.k {
			return true
		}
	}
	return false
}

// Get returns the current k-mer and its start position.
func (z *kmerizer) Get() (kmer, int) { return z.cur, z.pos - z.k }

// kmerPositions indexes every k-mer of seq by its start positions.
func kmerPositions(seq []byte, k int) map[kmer][]int {
	idx := map[kmer][]int{}
	z := newKmerizer(k)
	z.Reset(seq)
	for z.Scan() {
		km, pos := z.Get()
		idx[km] = append(idx[km], pos)
	}
	return idx
}

// anchorCore finds a region of long that short aligns to confidently: the
// first k-mer of short found in long anchors the left end and the last k-mer
// of short found in long anchors the right end.  It returns the core as
// [begin, end) positions of long.
func anchorCore(short, long []byte, k int) (begin, end int, ok bool) {
	if k <= 0 || k > 32 || len(short) < k || len(long) < k {
		return 0, 0, false
	}
	idx := kmerPositions(long, k)
	var hits []int
	z := newKmerizer(k)
	z.Reset(short)
	for z.Scan() {
		km, _ := z.Get()
		if pos, found := idx[km]; found {
			hits = append(hits, pos[0], pos[len(pos)-1])
		}
	}
	if len(hits) == 0 {
		return 0, 0, false
	}
	begin, end = hits[0], hits[len(hits)-1]+k
	if end <= begin {
		return 0, 0, false
	}
	return begin, end, true
}
