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
package consensus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/consensus/encoding/fastq"
	"github.com/grailbio/consensus/multialign"
	"github.com/grailbio/hts/bgzf"
	"github.com/klauspost/compress/gzip"
)

func init() {
	recordiozstd.Init()
}

// VariantsHeader is the header row of a variants TSV.
const VariantsHeader = "tig\tbegin\tend\tnreads\tnalleles\tweights\treadcounts\talleles\tratio"

// VariantRow is one variant record of a named tig.
type VariantRow struct {
	Tig string
	multialign.VarRecord
}

// Output paths, relative to Opts.OutPrefix.
const (
	consensusSuffix = ".consensus.fq"
	layoutSuffix    = ".layout.tsv"
	variantsSuffix  = ".variants.tsv"
	rioSuffix       = ".variants.rio"
)

func writeOutputs(ctx context.Context, opts *Opts, results []*Result) error {
	if err := writeConsensus(ctx, opts, results); err != nil {
		return err
	}
	if err := writeLayout(ctx, opts.OutPrefix+layoutSuffix, results); err != nil {
		return err
	}
	var rows []VariantRow
	for _, r := range results {
		if r == nil {
			continue
		}
		for _, v := range r.Variants {
			rows = append(rows, VariantRow{Tig: r.Ident, VarRecord: v})
		}
	}
	if err := writeVariants(ctx, opts, rows); err != nil {
		return err
	}
	if opts.RecordIO {
		if err := writeVariantsRio(ctx, opts.OutPrefix+rioSuffix, rows); err != nil {
			return err
		}
	}
	return nil
}

func writeConsensus(ctx context.Context, opts *Opts, results []*Result) (err error) {
	path := opts.OutPrefix + consensusSuffix
	if opts.Compress {
		path += ".gz"
	}
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "creating", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)

	out := dst.Writer(ctx)
	if opts.Compress {
		gz := gzip.NewWriter(out)
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		out = gz
	}
	w := fastq.NewWriter(out)
	for _, r := range results {
		if r == nil {
			continue
		}
		rec := fastq.Record{Name: r.Ident, Seq: r.Consensus.Ungapped, Qual: r.Consensus.UngappedQual}
		if err = w.Write(&rec); err != nil {
			return errors.E(err, "writing", path)
		}
	}
	log.Printf("consensus: wrote %s", path)
	return nil
}

func writeLayoutRow(w *tsv.Writer, tig string, length int, c *multialign.Coord) error {
	w.WriteString(tig)
	w.WriteUint32(uint32(length))
	w.WriteString(c.Ident)
	w.WriteByte(byte(c.Type))
	w.WriteUint32(uint32(c.UngappedBegin))
	w.WriteUint32(uint32(c.UngappedEnd))
	return w.EndLine()
}

// WriteLayout writes the final placement of every fragment of results, in
// the format read by layout.Read.  Positions are ungapped consensus
// coordinates, so that a unitig batch's layout can serve as the components
// of a contig batch.
func WriteLayout(out io.Writer, results []*Result) error {
	w := tsv.NewWriter(out)
	w.WriteString("tig\tlength\tfrag\ttype\tbegin\tend")
	if err := w.EndLine(); err != nil {
		return err
	}
	for _, r := range results {
		if r == nil {
			continue
		}
		n := len(r.Consensus.Ungapped)
		for i := range r.Coords {
			if err := writeLayoutRow(w, r.Ident, n, &r.Coords[i]); err != nil {
				return err
			}
		}
		for i := range r.Components {
			if err := writeLayoutRow(w, r.Ident, n, &r.Components[i]); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writeLayout(ctx context.Context, path string, results []*Result) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "creating", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if err = WriteLayout(dst.Writer(ctx), results); err != nil {
		return errors.E(err, "writing", path)
	}
	return nil
}

// WriteVariantsTSV writes rows as a variants TSV, header first.
func WriteVariantsTSV(out io.Writer, rows []VariantRow) error {
	w := tsv.NewWriter(out)
	w.WriteString(VariantsHeader)
	if err := w.EndLine(); err != nil {
		return err
	}
	for i := range rows {
		v := &rows[i]
		w.WriteString(v.Tig)
		w.WriteUint32(uint32(v.Begin))
		w.WriteUint32(uint32(v.End))
		w.WriteUint32(uint32(v.NumReads))
		w.WriteUint32(uint32(v.NumConfirmedAlleles))
		w.WriteString(v.Weights)
		w.WriteString(v.ReadCounts)
		w.WriteString(v.AlleleSeqs)
		w.WriteString(strconv.FormatFloat(v.Ratio, 'f', 3, 64))
		if err := w.EndLine(); err != nil {
			return err
		}
	}
	return w.Flush()
}

func writeVariants(ctx context.Context, opts *Opts, rows []VariantRow) (err error) {
	path := opts.OutPrefix + variantsSuffix
	if opts.Compress {
		path += ".gz"
	}
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "creating", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)

	out := dst.Writer(ctx)
	if opts.Compress {
		bw := bgzf.NewWriter(out, opts.Parallelism)
		defer func() {
			if e := bw.Close(); e != nil && err == nil {
				err = e
			}
		}()
		out = bw
	}
	if err = WriteVariantsTSV(out, rows); err != nil {
		return errors.E(err, "writing", path)
	}
	log.Printf("consensus: wrote %d variant records to %s", len(rows), path)
	return nil
}

const rioTrailerVersion = 1

func marshalVariant(scratch []byte, p interface{}) ([]byte, error) {
	v := p.(*VariantRow)
	t := scratch[:0]
	putString := func(s string) {
		t = binary.AppendUvarint(t, uint64(len(s)))
		t = append(t, s...)
	}
	putString(v.Tig)
	for _, x := range []int{v.Begin, v.End, v.NumReads, v.NumConfirmedAlleles} {
		t = binary.AppendUvarint(t, uint64(x))
	}
	putString(v.Weights)
	putString(v.ReadCounts)
	putString(v.AlleleSeqs)
	t = binary.LittleEndian.AppendUint64(t, math.Float64bits(v.Ratio))
	return t, nil
}

// variantDecoder reads the fields of one marshaled VariantRow.
type variantDecoder struct {
	b   []byte
	err error
}

func (d *variantDecoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	x, n := binary.Uvarint(d.b)
	if n <= 0 {
		d.err = fmt.Errorf("consensus: truncated variant record")
		return 0
	}
	d.b = d.b[n:]
	return x
}

func (d *variantDecoder) string() string {
	n := d.uvarint()
	if d.err != nil {
		return ""
	}
	if uint64(len(d.b)) < n {
		d.err = fmt.Errorf("consensus: truncated variant record")
		return ""
	}
	s := string(d.b[:n])
	d.b = d.b[n:]
	return s
}

func unmarshalVariant(in []byte) (interface{}, error) {
	d := variantDecoder{b: in}
	v := &VariantRow{Tig: d.string()}
	v.Begin = int(d.uvarint())
	v.End = int(d.uvarint())
	v.NumReads = int(d.uvarint())
	v.NumConfirmedAlleles = int(d.uvarint())
	v.Weights = d.string()
	v.ReadCounts = d.string()
	v.AlleleSeqs = d.string()
	if d.err != nil {
		return nil, d.err
	}
	if len(d.b) != 8 {
		return nil, fmt.Errorf("consensus: variant record has %d trailing bytes, want 8", len(d.b))
	}
	v.Ratio = math.Float64frombits(binary.LittleEndian.Uint64(d.b))
	return v, nil
}

func variantsRioTrailer(n int) []byte {
	t := binary.LittleEndian.AppendUint64(nil, rioTrailerVersion)
	return binary.LittleEndian.AppendUint64(t, uint64(n))
}

// WriteVariantsRio writes rows as a zstd-compressed recordio file.  The
// trailer records the number of rows.
func WriteVariantsRio(out io.Writer, rows []VariantRow) error {
	w := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalVariant,
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(recordio.KeyTrailer, true)
	for i := range rows {
		w.Append(&rows[i])
	}
	w.SetTrailer(variantsRioTrailer(len(rows)))
	return w.Finish()
}

// ReadVariantsRio reads the rows written by WriteVariantsRio.
func ReadVariantsRio(rs io.ReadSeeker) ([]VariantRow, error) {
	scanner := recordio.NewScanner(rs, recordio.ScannerOpts{Unmarshal: unmarshalVariant})
	var rows []VariantRow
	if t := scanner.Trailer(); len(t) == 16 {
		if v := binary.LittleEndian.Uint64(t); v != rioTrailerVersion {
			return nil, fmt.Errorf("consensus: unrecognized trailer version %d", v)
		}
		rows = make([]VariantRow, 0, binary.LittleEndian.Uint64(t[8:]))
	}
	for scanner.Scan() {
		rows = append(rows, *scanner.Get().(*VariantRow))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rows, scanner.Finish()
}

func writeVariantsRio(ctx context.Context, path string, rows []VariantRow) (err error) {
	var dst file.File
	if dst, err = file.Create(ctx, path); err != nil {
		return errors.E(err, "creating", path)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	if err = WriteVariantsRio(dst.Writer(ctx), rows); err != nil {
		return errors.E(err, "writing", path)
	}
	return nil
}

// ConvertVariantsRio rewrites a variants recordio file as a TSV.
func ConvertVariantsRio(ctx context.Context, rioPath, tsvPath string) (err error) {
	var src file.File
	if src, err = file.Open(ctx, rioPath); err != nil {
		return errors.E(err, "opening", rioPath)
	}
	defer file.CloseAndReport(ctx, src, &err)
	rows, err := ReadVariantsRio(src.Reader(ctx))
	if err != nil {
		return errors.E(err, "reading", rioPath)
	}
	var dst file.File
	if dst, err = file.Create(ctx, tsvPath); err != nil {
		return errors.E(err, "creating", tsvPath)
	}
	defer file.CloseAndReport(ctx, dst, &err)
	return WriteVariantsTSV(dst.Writer(ctx), rows)
}
