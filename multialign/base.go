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

// Column tallies use a six-letter alphabet.  The index order doubles as the
// tie-break order of LowestCode.
const (
	// IdxGap is the tally index of a gap.
	IdxGap = iota
	// IdxA is the tally index of an A.
	IdxA
	// IdxC is the tally index of a C.
	IdxC
	// IdxG is the tally index of a G.
	IdxG
	// IdxT is the tally index of a T.
	IdxT
	// IdxN is the tally index of N and of every other ambiguity code.
	IdxN
)

const (
	// NAlphabet is the number of tally slots.
	NAlphabet = 6
	// NCallable counts the symbols a statistical call may return (gap and
	// ACGT).
	NCallable = 5
)

// Gap is the ASCII gap character.
const Gap = byte('-')

// IdxToASCIITable is the tally-index -> ASCII mapping.
var IdxToASCIITable = [NAlphabet]byte{'-', 'A', 'C', 'G', 'T', 'N'}

// ASCIIToIdxTable maps an ASCII base to its tally index.  Anything that is
// neither a gap nor an unambiguous base maps to IdxN.
var ASCIIToIdxTable [256]byte

// iupacMaskTable holds the A=1/C=2/G=4/T=8 set encoding of each IUPAC code.
// A gap is 16, so it is only compatible with itself.
var iupacMaskTable [256]byte

var complementTable [256]byte

func init() {
	for i := range ASCIIToIdxTable {
		ASCIIToIdxTable[i] = IdxN
		complementTable[i] = 'N'
	}
	ASCIIToIdxTable['-'] = IdxGap
	for _, c := range []byte("Aa") {
		ASCIIToIdxTable[c] = IdxA
	}
	for _, c := range []byte("Cc") {
		ASCIIToIdxTable[c] = IdxC
	}
	for _, c := range []byte("Gg") {
		ASCIIToIdxTable[c] = IdxG
	}
	for _, c := range []byte("Tt") {
		ASCIIToIdxTable[c] = IdxT
	}

	masks := map[byte]byte{
		'A': 1, 'C': 2, 'G': 4, 'T': 8,
		'R': 1 | 4, 'Y': 2 | 8, 'S': 2 | 4, 'W': 1 | 8,
		'K': 4 | 8, 'M': 1 | 2, 'B': 2 | 4 | 8, 'D': 1 | 4 | 8,
		'H': 1 | 2 | 8, 'V': 1 | 2 | 4, 'N': 15,
	}
	for c, m := range masks {
		iupacMaskTable[c] = m
		iupacMaskTable[c+'a'-'A'] = m
	}
	iupacMaskTable['-'] = 16

	pairs := [][2]byte{{'A', 'T'}, {'C', 'G'}, {'R', 'Y'}, {'K', 'M'}, {'B', 'V'}, {'D', 'H'}}
	for _, p := range pairs {
		complementTable[p[0]], complementTable[p[1]] = p[1], p[0]
		complementTable[p[0]+'a'-'A'], complementTable[p[1]+'a'-'A'] = p[1]+'a'-'A', p[0]+'a'-'A'
	}
	for _, c := range []byte("SWNswn") {
		complementTable[c] = c
	}
	complementTable['-'] = '-'
}

// IsAmbiguous returns true if c is neither a gap nor one of ACGT (either
// case).
func IsAmbiguous(c byte) bool {
	return ASCIIToIdxTable[c] == IdxN
}

// HasAmbiguity returns true if any byte of seq is an ambiguity code.
func HasAmbiguity(seq []byte) bool {
	for _, c := range seq {
		if IsAmbiguous(c) {
			return true
		}
	}
	return false
}

// Compatible returns true if an observed base (possibly an IUPAC ambiguity
// code) is consistent with the called symbol.
func Compatible(observed, call byte) bool {
	if call == Gap || observed == Gap {
		return call == observed
	}
	return iupacMaskTable[observed]&iupacMaskTable[call] != 0
}

// ReverseComplementInplace reverse-complements an ASCII sequence.  IUPAC
// ambiguity codes map to their complements, gaps are kept, everything else
// becomes N.
func ReverseComplementInplace(seq []byte) {
	n := len(seq)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		seq[i], seq[j] = complementTable[seq[j]], complementTable[seq[i]]
	}
	if n&1 == 1 {
		seq[n>>1] = complementTable[seq[n>>1]]
	}
}

// ReverseInplace reverses a quality (or any byte) vector.
func ReverseInplace(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
