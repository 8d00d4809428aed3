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

import "io"

// Writer is a FASTQ file writer.
type Writer struct {
	w   io.Writer
	buf []byte
	err error
}

// NewWriter constructs a new FASTQ writer
// that writes records to the underlying writer w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes rec in FASTQ format, encoding qualities as phred+33
// characters clamped to '~'.  An error is returned if the write failed.
func (w *Writer) Write(rec *Record) error {
	if w.err != nil {
		return w.err
	}
	w.buf = append(w.buf[:0], '@')
	w.buf = append(w.buf, rec.Name...)
	w.buf = append(w.buf, '\n')
	w.buf = append(w.buf, rec.Seq...)
	w.buf = append(w.buf, "\n+\n"...)
	for _, q := range rec.Qual {
		c := int(q) + QualOffset
		if c > '~' {
			c = '~'
		}
		w.buf = append(w.buf, byte(c))
	}
	w.buf = append(w.buf, '\n')
	_, w.err = w.w.Write(w.buf)
	return w.err
}
