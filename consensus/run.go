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
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/consensus/encoding/fastq"
	"github.com/grailbio/consensus/encoding/layout"
	"github.com/grailbio/consensus/multialign"
)

// Failure records a tig that could not be built.
type Failure struct {
	Tig string
	Err error
}

// Summary reports the outcome of a batch.
type Summary struct {
	Built    int
	Failures []Failure
	// Results are in layout order; failed tigs are nil.
	Results []*Result
}

// tigSeed derives a tig's tie-break seed from its identifier, so that the
// output does not depend on which worker builds it.
func tigSeed(seed int64, ident string) int64 {
	return int64(seahash.Sum64([]byte(ident))) ^ seed
}

// openInput opens path, decompressing it if its name says so.
func openInput(ctx context.Context, path string) (io.Reader, func() error, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, errors.E(err, "opening", path)
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return bufio.NewReaderSize(r, 64<<10), func() error { return in.Close(ctx) }, nil
}

func readRecords(ctx context.Context, path string) (map[string]*fastq.Record, error) {
	r, done, err := openInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer done() // nolint: errcheck
	recs, err := fastq.ReadAll(r)
	if err != nil {
		return nil, errors.E(err, "reading", path)
	}
	m := make(map[string]*fastq.Record, len(recs))
	for i := range recs {
		if _, ok := m[recs[i].Name]; ok {
			return nil, errors.E("duplicate record", recs[i].Name, "in", path)
		}
		m[recs[i].Name] = &recs[i]
	}
	return m, nil
}

func readLayout(ctx context.Context, path string) ([]layout.Tig, error) {
	r, done, err := openInput(ctx, path)
	if err != nil {
		return nil, err
	}
	defer done() // nolint: errcheck
	tigs, err := layout.Read(r)
	if err != nil {
		return nil, errors.E(err, "reading", path)
	}
	return tigs, nil
}

// Run builds every tig of the layout and writes the outputs under
// opts.OutPrefix.  Tigs are built in parallel, each worker owning its
// arena.  A tig that fails with a recoverable error is counted and skipped;
// the batch aborts on a fatal error or once more than MaxFailures tigs
// have failed.
func Run(ctx context.Context, opts Opts) (*Summary, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	seqs, err := readRecords(ctx, opts.ReadsPath)
	if err != nil {
		return nil, err
	}
	tigs, err := readLayout(ctx, opts.LayoutPath)
	if err != nil {
		return nil, err
	}
	components := map[string][]layout.Placement{}
	if opts.Mode == ContigMode && opts.ComponentsPath != "" {
		utgs, err := readLayout(ctx, opts.ComponentsPath)
		if err != nil {
			return nil, err
		}
		for _, u := range utgs {
			components[u.Ident] = u.Placements
		}
	}

	var (
		sum = &Summary{Results: make([]*Result, len(tigs))}
		mu  sync.Mutex
	)
	parallelism := opts.Parallelism
	if parallelism > len(tigs) {
		parallelism = len(tigs)
	}
	log.Printf("consensus: building %d %ss (%d jobs)", len(tigs), opts.Mode, parallelism)
	err = traverse.Each(parallelism, func(jobIdx int) error {
		startIdx := (jobIdx * len(tigs)) / parallelism
		endIdx := ((jobIdx + 1) * len(tigs)) / parallelism
		arena := multialign.NewArena(multialign.Sizes{Fragments: 256, Beads: 1 << 16, Columns: 1 << 14, Bases: 1 << 16})
		for i := startIdx; i < endIdx; i++ {
			tig := &tigs[i]
			o := opts
			o.Call.TieBreaker = multialign.NewRandomTieBreaker(tigSeed(opts.Seed, tig.Ident))
			var (
				res *Result
				err error
			)
			if opts.Mode == ContigMode {
				res, err = BuildContig(arena, tig, seqs, components, opts.Aligner, o)
			} else {
				res, err = BuildUnitig(arena, tig, seqs, opts.Aligner, o)
			}
			if err == nil {
				sum.Results[i] = res
				continue
			}
			kind := multialign.KindOf(err)
			if kind == 0 || kind.Fatal() {
				return err
			}
			log.Error.Printf("consensus: %s %s failed: %v", opts.Mode, tig.Ident, err)
			mu.Lock()
			sum.Failures = append(sum.Failures, Failure{Tig: tig.Ident, Err: err})
			n := len(sum.Failures)
			mu.Unlock()
			if opts.MaxFailures >= 0 && n > opts.MaxFailures {
				return errors.E(err, fmt.Sprintf("%d tigs failed, limit %d", n, opts.MaxFailures))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, r := range sum.Results {
		if r != nil {
			sum.Built++
		}
	}
	log.Printf("consensus: built %d %ss, %d failed", sum.Built, opts.Mode, len(sum.Failures))
	if err := writeOutputs(ctx, &opts, sum.Results); err != nil {
		return nil, err
	}
	return sum, nil
}
