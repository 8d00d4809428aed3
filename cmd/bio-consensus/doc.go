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

/*
bio-consensus computes the consensus sequences of the unitigs or contigs of
a genome assembly.

Given the reads (or unitig consensus records) in FASTQ and a layout TSV that
places them on each tig, it builds a multiple alignment per tig, refines it
and calls one base per column.  It writes

  <out>.consensus.fq[.gz]   one record per tig
  <out>.layout.tsv          final fragment coordinates
  <out>.variants.tsv[.gz]   polymorphic regions
  <out>.variants.rio        (with -recordio) the same regions as recordio

Sample usage:

  bio-consensus unitig -out asm.utg reads.fq.gz reads.layout.tsv
  bio-consensus contig -components asm.utg.layout.tsv -out asm.ctg \
      asm.utg.consensus.fq asm.ctg.layout.tsv
*/
package main
