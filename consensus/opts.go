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
	"fmt"
	"runtime"

	"github.com/grailbio/consensus/multialign"
	"github.com/grailbio/consensus/overlap"
)

// Mode selects what a build assembles.
type Mode int

const (
	// UnitigMode builds unitigs from reads.
	UnitigMode Mode = iota
	// ContigMode builds contigs from unitig consensus sequences.
	ContigMode
)

func (m Mode) String() string {
	if m == ContigMode {
		return "contig"
	}
	return "unitig"
}

// Opts configures a batch.
type Opts struct {
	Mode Mode
	// ReadsPath is a FASTQ of the fragments named by the layout: reads in
	// unitig mode, unitig consensus records in contig mode.
	ReadsPath string
	// LayoutPath is the layout TSV.
	LayoutPath string
	// ComponentsPath optionally holds the read coordinates of each unitig,
	// as written by a unitig batch, so that contig mode can report read
	// positions in contig coordinates.
	ComponentsPath string
	OutPrefix      string

	// Parallelism is the number of concurrent builds; 0 means one per CPU.
	Parallelism int
	// MaxFailures is the number of failed tigs tolerated before the batch
	// aborts.  Negative means unlimited.
	MaxFailures int
	// ForcedAbutTolerance is the largest expected overlap, in bases, at
	// which a fragment with no overlap is abutted to the MANode instead of
	// failing the tig.
	ForcedAbutTolerance int
	// Seed is mixed into every tig's tie-break seed.
	Seed int64
	// Compress writes gzip FASTQ and bgzf variant TSV.
	Compress bool
	// RecordIO also writes the variants as a zstd-compressed recordio file.
	RecordIO bool
	// SplitAlleles makes the final refresh of every tig cluster reads into
	// alleles, recall variant regions from the heaviest allele and report
	// variant records.
	SplitAlleles bool

	Call    multialign.CallOpts
	Refresh multialign.RefreshOpts
	Abacus  multialign.AbacusOpts
	Overlap overlap.Opts
	Aligner overlap.Aligner
}

// DefaultOpts are the default batch options.
var DefaultOpts = Opts{
	Mode:                UnitigMode,
	MaxFailures:         0,
	ForcedAbutTolerance: 0,
	SplitAlleles:        true,
	Call:                multialign.DefaultCallOpts,
	Refresh:             multialign.DefaultRefreshOpts,
	Abacus:              multialign.DefaultAbacusOpts,
	Overlap:             overlap.DefaultOpts,
	Aligner:             overlap.DefaultBandedAligner,
}

func (o *Opts) validate() error {
	if o.Parallelism < 0 {
		return fmt.Errorf("consensus: negative parallelism %d", o.Parallelism)
	}
	if o.Parallelism == 0 {
		o.Parallelism = runtime.NumCPU()
	}
	if o.ForcedAbutTolerance < 0 {
		return fmt.Errorf("consensus: negative forced-abut tolerance %d", o.ForcedAbutTolerance)
	}
	if o.Aligner == nil {
		o.Aligner = overlap.DefaultBandedAligner
	}
	if o.Call.MaxQV < o.Call.MinQV {
		return fmt.Errorf("consensus: quality clamp [%d, %d] is empty", o.Call.MinQV, o.Call.MaxQV)
	}
	if o.Refresh.MaxAlleles < 1 {
		return fmt.Errorf("consensus: max alleles must be positive, got %d", o.Refresh.MaxAlleles)
	}
	return nil
}
