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

// FragType is the kind of sequence a fragment holds.
type FragType byte

const (
	// FragRead is a sequencing read.
	FragRead FragType = 'R'
	// FragUnitig is a unitig consensus placed in a contig.
	FragUnitig FragType = 'U'
	// FragContig is a contig consensus.
	FragContig FragType = 'C'
	// FragGuide is a sequence that only guides the alignment; it votes in a
	// column only when no read does.
	FragGuide FragType = 'G'
)

func (t FragType) String() string {
	switch t {
	case FragRead:
		return "read"
	case FragUnitig:
		return "unitig"
	case FragContig:
		return "contig"
	case FragGuide:
		return "guide"
	}
	return "unknown"
}

// IsConsensus returns true for fragments that are themselves consensus
// sequences.
func (t FragType) IsConsensus() bool {
	return t == FragUnitig || t == FragContig
}

// Component is one member of an aggregate fragment, positioned in the
// aggregate's ungapped coordinates.  Begin > End marks a reverse placement.
type Component struct {
	Ident      string
	Type       FragType
	Begin, End int
}

// Fragment is one participating sequence.  Fragments are never freed within
// a build; they are marked Deleted instead.
type Fragment struct {
	ID    FragID
	Ident string
	Type  FragType
	// Complement is set if the stored sequence is the reverse complement of
	// the input.
	Complement bool
	// Length is the ungapped length.
	Length int32
	// SeqOffset is the store offset of the first base.
	SeqOffset           int32
	FirstBead, LastBead BeadID
	Contained           bool
	Deleted             bool
	MANode              MANodeID
	Components          []Component
}

// FragmentSpec describes a fragment to add.  Seq and Qual are in input
// orientation; the arena stores the reverse complement when Complement is
// set.  Qual may be nil, in which case every base gets QVUnknown.
type FragmentSpec struct {
	Ident      string
	Type       FragType
	Seq        []byte
	Qual       []byte
	Complement bool
	Contained  bool
	Components []Component
}

// AddFragment copies a sequence into the arena and creates its (unaligned)
// bead chain.
func (a *Arena) AddFragment(spec FragmentSpec) (FragID, error) {
	n := len(spec.Seq)
	if n == 0 {
		return NoFrag, Errorf(MalformedLayout, "fragment %s has no bases", spec.Ident)
	}
	if a.MaxSequenceLength > 0 && n > a.MaxSequenceLength {
		return NoFrag, Errorf(LengthExceeded, "fragment %s has %d bases, limit is %d", spec.Ident, n, a.MaxSequenceLength)
	}
	if spec.Qual != nil && len(spec.Qual) != n {
		return NoFrag, Errorf(MalformedLayout, "fragment %s: %d bases but %d quality values", spec.Ident, n, len(spec.Qual))
	}
	seq := append([]byte(nil), spec.Seq...)
	qual := make([]byte, n)
	if spec.Qual != nil {
		for i, q := range spec.Qual {
			qual[i] = ClampQV(int(q))
		}
	}
	if spec.Complement {
		ReverseComplementInplace(seq)
		ReverseInplace(qual)
	}
	for i, c := range seq {
		if c >= 'a' && c <= 'z' {
			seq[i] = c - ('a' - 'A')
		}
	}

	id := FragID(len(a.frags))
	a.frags = append(a.frags, Fragment{
		ID:         id,
		Ident:      spec.Ident,
		Type:       spec.Type,
		Complement: spec.Complement,
		Length:     int32(n),
		SeqOffset:  int32(len(a.seq)),
		FirstBead:  NoBead,
		LastBead:   NoBead,
		Contained:  spec.Contained,
		MANode:     NoMANode,
		Components: spec.Components,
	})
	prev := NoBead
	for i := 0; i < n; i++ {
		b := a.newBead(seq[i], qual[i], id, int32(i))
		if prev == NoBead {
			a.frags[id].FirstBead = b
		} else {
			a.beads[prev].Next = b
			a.beads[b].Prev = prev
		}
		prev = b
	}
	a.frags[id].LastBead = prev
	return id, nil
}

// MarkDeleted flags a fragment as ejected from its build.  Its beads must
// not be aligned.
func (a *Arena) MarkDeleted(fid FragID) error {
	if !a.validFrag(fid) {
		return invariantf("MarkDeleted: bad fragment %d", fid)
	}
	for b := a.frags[fid].FirstBead; b != NoBead; b = a.beads[b].Next {
		if a.beads[b].Column != NoColumn {
			return invariantf("MarkDeleted: fragment %s is aligned", a.frags[fid].Ident)
		}
	}
	a.frags[fid].Deleted = true
	return nil
}

// FragmentBeads returns the fragment's chain, gaps included.
func (a *Arena) FragmentBeads(fid FragID) []BeadID {
	var out []BeadID
	for b := a.frags[fid].FirstBead; b != NoBead; b = a.beads[b].Next {
		out = append(out, b)
	}
	return out
}

// GappedSequence returns the fragment's bases as laid out in the alignment.
func (a *Arena) GappedSequence(fid FragID) []byte {
	var out []byte
	for b := a.frags[fid].FirstBead; b != NoBead; b = a.beads[b].Next {
		out = append(out, a.Base(b))
	}
	return out
}

// UngappedSequence returns the fragment's bases with gaps removed, in
// alignment (possibly complemented) orientation.
func (a *Arena) UngappedSequence(fid FragID) []byte {
	out := make([]byte, 0, a.frags[fid].Length)
	for b := a.frags[fid].FirstBead; b != NoBead; b = a.beads[b].Next {
		if c := a.Base(b); c != Gap {
			out = append(out, c)
		}
	}
	return out
}

// StoredSequence returns the fragment's original stored bases and
// qualities (alignment orientation).
func (a *Arena) StoredSequence(fid FragID) (seq, qual []byte) {
	f := &a.frags[fid]
	return a.seq[f.SeqOffset : f.SeqOffset+f.Length], a.qual[f.SeqOffset : f.SeqOffset+f.Length]
}
