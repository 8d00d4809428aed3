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
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/consensus/consensus"
	"github.com/grailbio/consensus/multialign"
	"v.io/x/lib/cmdline"
)

// buildFlags registers the options shared by unitig and contig builds.
func buildFlags(fs *flag.FlagSet, opts *consensus.Opts) *string {
	fs.StringVar(&opts.OutPrefix, "out", "bio-consensus", "Output path prefix")
	fs.IntVar(&opts.Parallelism, "parallelism", 0, "Number of tigs built concurrently; 0 = runtime.NumCPU()")
	fs.IntVar(&opts.MaxFailures, "max-failures", opts.MaxFailures, "Number of failed tigs tolerated before the batch aborts; negative means unlimited")
	fs.IntVar(&opts.ForcedAbutTolerance, "forced-abut", opts.ForcedAbutTolerance, "Largest expected overlap at which an unalignable fragment is abutted instead of failing its tig")
	fs.Int64Var(&opts.Seed, "seed", opts.Seed, "Seed mixed into every tig's tie-break generator")
	fs.BoolVar(&opts.Compress, "compress", opts.Compress, "Write gzip FASTQ and bgzf variants")
	fs.BoolVar(&opts.RecordIO, "recordio", opts.RecordIO, "Also write the variants as recordio")
	fs.BoolVar(&opts.SplitAlleles, "split-alleles", opts.SplitAlleles, "Cluster reads into alleles and report variants")
	fs.IntVar(&opts.Call.MinQV, "min-qv", opts.Call.MinQV, "Lower bound on consensus quality")
	fs.IntVar(&opts.Call.MaxQV, "max-qv", opts.Call.MaxQV, "Upper bound on consensus quality")
	fs.Float64Var(&opts.Call.SNPRate, "snp-rate", opts.Call.SNPRate, "Expected heterozygosity of the prior")
	fs.IntVar(&opts.Refresh.MaxAlleles, "max-alleles", opts.Refresh.MaxAlleles, "Number of alleles reported per variant")
	fs.IntVar(&opts.Refresh.MinAlleleReads, "min-allele-reads", opts.Refresh.MinAlleleReads, "Reads needed to confirm an allele")
	fs.IntVar(&opts.Abacus.MaxWindowWidth, "max-window", opts.Abacus.MaxWindowWidth, "Widest window rewritten by abacus refinement")
	fs.Float64Var(&opts.Overlap.ErrorRate, "erate", opts.Overlap.ErrorRate, "Error rate of the first overlap attempt")
	fs.Float64Var(&opts.Overlap.MaxErrorRate, "max-erate", opts.Overlap.MaxErrorRate, "Largest error rate any overlap attempt may use")
	fs.IntVar(&opts.Overlap.MinLength, "min-overlap", opts.Overlap.MinLength, "Shortest overlap of the first attempt")
	return fs.String("call", opts.Call.Mode.String(), "Base calling: 'statistical' or 'plurality'")
}

func parseCallMode(s string) (multialign.CallMode, error) {
	switch s {
	case "statistical":
		return multialign.Statistical, nil
	case "plurality":
		return multialign.Plurality, nil
	}
	return 0, fmt.Errorf("unknown call mode %q", s)
}

func newCmdBuild(mode consensus.Mode) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     mode.String(),
		Short:    fmt.Sprintf("Build %s consensus sequences", mode),
		ArgsName: "fastq layout",
	}
	if mode == consensus.UnitigMode {
		cmd.Long = "Build the consensus of every unitig of the layout from its reads."
	} else {
		cmd.Long = "Build the consensus of every contig of the layout from unitig consensus records."
	}
	opts := consensus.DefaultOpts
	opts.Mode = mode
	callFlag := buildFlags(&cmd.Flags, &opts)
	if mode == consensus.ContigMode {
		cmd.Flags.StringVar(&opts.ComponentsPath, "components", "", "Layout TSV written by the unitig build; its reads are reported in contig coordinates")
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("%s takes fastq and layout paths, but got %v", mode, argv)
		}
		var err error
		if opts.Call.Mode, err = parseCallMode(*callFlag); err != nil {
			return err
		}
		opts.ReadsPath, opts.LayoutPath = argv[0], argv[1]
		sum, err := consensus.Run(vcontext.Background(), opts)
		if err != nil {
			return err
		}
		for _, f := range sum.Failures {
			fmt.Fprintf(env.Stderr, "%s\t%v\n", f.Tig, f.Err)
		}
		return nil
	})
	return cmd
}

func newCmdVariants() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "variants",
		Short:    "Convert a variants recordio file to TSV",
		ArgsName: "rio tsv",
	}
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 2 {
			return fmt.Errorf("variants takes rio and tsv paths, but got %v", argv)
		}
		return consensus.ConvertVariantsRio(vcontext.Background(), argv[0], argv[1])
	})
	return cmd
}

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-consensus",
			Short:    "Multiple-alignment consensus for unitigs and contigs",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdBuild(consensus.UnitigMode),
				newCmdBuild(consensus.ContigMode),
				newCmdVariants(),
			},
		})
}
