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
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	// ErrShort is returned when a truncated FASTQ file is encountered.
	ErrShort = errors.New("short FASTQ file")
	// ErrInvalid is returned when an invalid FASTQ file is encountered.
	ErrInvalid = errors.New("invalid FASTQ file")
	// ErrLength is returned when a record's sequence and quality lengths
	// differ.
	ErrLength = errors.New("FASTQ sequence and quality lengths differ")
)

// QualOffset is the phred offset of FASTQ quality characters.
const QualOffset = 33

// maxLineLength bounds a FASTQ line; consensus records can be long.
const maxLineLength = 256 << 20

// A Record is a named sequence with per-base quality values.
type Record struct {
	// Name is the ID line without the leading '@' and without anything
	// after the first space.
	Name string
	Seq  []byte
	// Qual holds quality values, not their phred+33 characters.
	Qual []byte
}

var errEOF = errors.New("eof")

// Scanner reads FASTQ records.  It requires ID lines to begin with "@",
// line 3 to begin with "+", and the sequence and quality lines to have
// equal length.  Scanners are not threadsafe.
type Scanner struct {
	b   *bufio.Scanner
	err error
}

// NewScanner constructs a new Scanner that reads raw FASTQ data from r.
func NewScanner(r io.Reader) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64<<10), maxLineLength)
	return &Scanner{b: b}
}

// Scan reads the next record into rec.  The record's slices are freshly
// allocated.  Once Scan returns false it never returns true again; Err
// distinguishes errors from the end of the stream.
func (f *Scanner) Scan(rec *Record) bool {
	if f.err != nil {
		return false
	}
	if !f.b.Scan() {
		if f.err = f.b.Err(); f.err == nil {
			f.err = errEOF
		}
		return false
	}
	id := f.b.Bytes()
	if len(id) == 0 || id[0] != '@' {
		f.err = ErrInvalid
		return false
	}
	id = id[1:]
	if i := bytes.IndexAny(id, " \t"); i >= 0 {
		id = id[:i]
	}
	rec.Name = string(id)
	if !f.scan() {
		return false
	}
	rec.Seq = append([]byte(nil), f.b.Bytes()...)
	if !f.scan() {
		return false
	}
	if unk := f.b.Bytes(); len(unk) == 0 || unk[0] != '+' {
		f.err = ErrInvalid
		return false
	}
	if !f.scan() {
		return false
	}
	qual := f.b.Bytes()
	if len(qual) != len(rec.Seq) {
		f.err = ErrLength
		return false
	}
	rec.Qual = make([]byte, len(qual))
	for i, q := range qual {
		if q < QualOffset {
			f.err = ErrInvalid
			return false
		}
		rec.Qual[i] = q - QualOffset
	}
	return true
}

func (f *Scanner) scan() bool {
	ok := f.b.Scan()
	if !ok {
		if f.err = f.b.Err(); f.err == nil {
			f.err = ErrShort
		}
	}
	return ok
}

// Err returns the scanning error, if any.
func (f *Scanner) Err() error {
	if f.err == errEOF {
		return nil
	}
	return f.err
}

// ReadAll scans every record of r.
func ReadAll(r io.Reader) ([]Record, error) {
	var (
		s    = NewScanner(r)
		recs []Record
		rec  Record
	)
	for s.Scan(&rec) {
		recs = append(recs, rec)
	}
	return recs, s.Err()
}
