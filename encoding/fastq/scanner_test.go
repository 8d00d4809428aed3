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
package fastq

import (
	"bytes"
	"strings"
	"testing"
)

const fq = `@read1 unitig=1
ACGTACGTAC
+
IIIIIIIII#
@read2
GTACGTTA
+
5555::::
@utg7 len=4
ACNT
+
!!~~
`

func scanErr(s string) error {
	scan := NewScanner(strings.NewReader(s))
	var r Record
	for scan.Scan(&r) {
	}
	return scan.Err()
}

func TestFASTQ(t *testing.T) {
	recs, err := ReadAll(strings.NewReader(fq))
	if err != nil {
		t.Fatal(err)
	}
	if got, want := len(recs), 3; got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	r := recs[0]
	if got, want := r.Name, "read1"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := string(r.Seq), "ACGTACGTAC"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := r.Qual, []byte{40, 40, 40, 40, 40, 40, 40, 40, 40, 2}; !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := recs[1].Qual[4], byte(25); got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if got, want := recs[2].Name, "utg7"; got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBadFASTQ(t *testing.T) {
	for _, test := range []struct {
		in   string
		want error
	}{
		{"12312#", ErrInvalid},
		{"@1234\n123", ErrShort},
		{"@1234\nACG\n-\nIII\n", ErrInvalid},
		{"@1234\nACG\n+\nII\n", ErrLength},
		{"@1234\nACG\n+\nI I\n", ErrInvalid},
		{"", nil},
	} {
		if got := scanErr(test.in); got != test.want {
			t.Errorf("%q: got %v, want %v", test.in, got, test.want)
		}
	}
}

func TestWriter(t *testing.T) {
	recs, err := ReadAll(strings.NewReader(fq))
	if err != nil {
		t.Fatal(err)
	}
	var (
		b = new(bytes.Buffer)
		w = NewWriter(b)
	)
	for i := range recs {
		if err := w.Write(&recs[i]); err != nil {
			t.Fatal(err)
		}
	}
	want := strings.NewReplacer(" unitig=1", "", " len=4", "").Replace(fq)
	if got := b.String(); got != want {
		t.Errorf("got %v, want %v", got, want)
	}

	b.Reset()
	if err := w.Write(&Record{Name: "hi", Seq: []byte("A"), Qual: []byte{120}}); err != nil {
		t.Fatal(err)
	}
	if got, want := b.String(), "@hi\nA\n+\n~\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
