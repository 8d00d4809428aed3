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
// Package layout reads the placements that the upstream layout stage
// assigns to each unitig or contig.  A layout file is a TSV with a header
// row naming the columns
//
//   tig  length  frag  type  begin  end
//
// Each row places one fragment (a read, or a unitig within a contig) at
// [begin, end) of the tig.  A row with end < begin places the reverse
// complement of the fragment at [end, begin).  Rows of one tig must be
// contiguous.
package layout

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// Placement is one row of a layout file.
type Placement struct {
	Tig    string `tsv:"tig"`
	Length int64  `tsv:"length"`
	Frag   string `tsv:"frag"`
	// Type is R (read), G (guide), U (unitig) or C (contig).
	Type  string `tsv:"type"`
	Begin int64  `tsv:"begin"`
	End   int64  `tsv:"end"`
}

// Complement returns true if the fragment is placed reverse complemented.
func (p *Placement) Complement() bool { return p.End < p.Begin }

// Span returns the placed interval with lo <= hi.
func (p *Placement) Span() (lo, hi int) {
	if p.Complement() {
		return int(p.End), int(p.Begin)
	}
	return int(p.Begin), int(p.End)
}

// Tig is the layout of one unitig or contig.
type Tig struct {
	Ident string
	// Length is the length the layout stage claims for the tig.
	Length int
	// Placements are in file order.
	Placements []Placement
}

// Read reads every tig of a layout file.
func Read(r io.Reader) ([]Tig, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	tr.UseHeaderNames = true
	tr.Comment = '#'

	var (
		tigs []Tig
		seen = map[string]bool{}
	)
	for n := 1; ; n++ {
		var p Placement
		if err := tr.Read(&p); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "layout row %d", n)
		}
		if err := validate(&p); err != nil {
			return nil, errors.Wrapf(err, "layout row %d", n)
		}
		if len(tigs) == 0 || tigs[len(tigs)-1].Ident != p.Tig {
			if seen[p.Tig] {
				return nil, errors.Errorf("layout row %d: rows of tig %s are not contiguous", n, p.Tig)
			}
			seen[p.Tig] = true
			tigs = append(tigs, Tig{Ident: p.Tig, Length: int(p.Length)})
		}
		t := &tigs[len(tigs)-1]
		if int(p.Length) != t.Length {
			return nil, errors.Errorf("layout row %d: tig %s length %d, previously %d", n, p.Tig, p.Length, t.Length)
		}
		t.Placements = append(t.Placements, p)
	}
	return tigs, nil
}

func validate(p *Placement) error {
	switch p.Type {
	case "R", "G", "U", "C":
	default:
		return errors.Errorf("fragment %s: unknown type %q", p.Frag, p.Type)
	}
	if p.Tig == "" || p.Frag == "" {
		return errors.New("empty identifier")
	}
	if p.Begin < 0 || p.End < 0 || p.Begin == p.End {
		return errors.Errorf("fragment %s: bad interval [%d, %d)", p.Frag, p.Begin, p.End)
	}
	return nil
}
