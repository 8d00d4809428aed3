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

import (
	"bytes"

	"github.com/grailbio/base/log"
)

// RefreshMANode recalls every column of mid.  With opts.SplitAlleles it also
// finds polymorphic regions, clusters the reads of each into alleles and
// returns one VarRecord per region with at least two alleles.  Each region
// keeps the calls of its longest multi-read allele.
func (a *Arena) RefreshMANode(mid MANodeID, opts RefreshOpts) ([]VarRecord, error) {
	if err := a.RefreshColumns(mid); err != nil {
		return nil, err
	}
	cols := a.manodes[mid].Columns
	callOpts := opts.Call
	callOpts.TargetAllele = -1
	callOpts.Smoothing = opts.SplitAlleles
	vars := make([]float64, len(cols))
	for i, cid := range cols {
		c, err := a.BaseCall(cid, callOpts)
		if err != nil {
			return nil, err
		}
		vars[i] = c.Var
	}
	if !opts.SplitAlleles {
		return nil, nil
	}
	var records []VarRecord
	for _, reg := range varRegions(vars, opts) {
		rec, ok, err := a.splitRegion(mid, reg[0], reg[1], opts)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// varRegions finds the maximal runs of nonzero variation, bridging short
// zero runs.  A run next to a gap-call signal may bridge only GapVarWeight
// times as far.  Regions are [begin, end) column indices.
func varRegions(vars []float64, opts RefreshOpts) [][2]int {
	var regions [][2]int
	last := -1
	lastGap := false
	for i, v := range vars {
		if v == 0 {
			continue
		}
		gap := v < 0
		if last >= 0 {
			reach := opts.SmoothWindow
			if gap || lastGap {
				reach = int(float64(reach) * opts.GapVarWeight)
			}
			if i-last-1 <= reach {
				regions[len(regions)-1][1] = i + 1
				last, lastGap = i, gap
				continue
			}
		}
		regions = append(regions, [2]int{i, i + 1})
		last, lastGap = i, gap
	}
	return regions
}

// regionReads collects every read with a bead in columns [begin, end) of
// mid.  Columns a read does not reach hold NoData.
func (a *Arena) regionReads(mid MANodeID, begin, end int) []Read {
	cols := a.manodes[mid].Columns[begin:end]
	var (
		frags        []FragID
		bases, quals [][]byte
		index        = map[FragID]int{}
	)
	for i, cid := range cols {
		for b := a.beads[a.columns[cid].Call].Down; b != NoBead; b = a.beads[b].Down {
			fid := a.beads[b].Frag
			if a.frags[fid].Type != FragRead {
				continue
			}
			k, ok := index[fid]
			if !ok {
				k = len(frags)
				index[fid] = k
				frags = append(frags, fid)
				bases = append(bases, bytes.Repeat([]byte{NoData}, len(cols)))
				quals = append(quals, make([]byte, len(cols)))
			}
			bases[k][i] = a.Base(b)
			quals[k][i] = a.Qual(b)
		}
	}
	reads := make([]Read, len(frags))
	for k, fid := range frags {
		reads[k] = NewRead(fid, bases[k], quals[k])
	}
	return reads
}

// splitRegion clusters the reads of one region and recalls the region from
// the longest well-supported allele.  Alleles are reported heaviest first.
func (a *Arena) splitRegion(mid MANodeID, begin, end int, opts RefreshOpts) (VarRecord, bool, error) {
	reg := VarRegion{Begin: begin, End: end, Reads: a.regionReads(mid, begin, end)}
	if len(reg.Reads) < 2 {
		return VarRecord{}, false, nil
	}
	reg.dist = distanceMatrix(reg.Reads)
	if log.At(log.Debug) {
		log.Debug.Printf("region [%d, %d) read distances:%v", begin, end, reg.dist)
	}
	reg.Alleles = clusterReads(reg.Reads, reg.dist)
	if len(reg.Alleles) < 2 {
		return VarRecord{}, false, nil
	}
	byLen := append([]Allele(nil), reg.Alleles...)
	SortAllelesByLength(byLen)
	keep := byLen[0].ID
	SortAllelesByWeight(reg.Alleles)

	alleleOf := make([]int, len(a.frags))
	for i := range alleleOf {
		alleleOf[i] = -1
	}
	for _, r := range reg.Reads {
		alleleOf[r.Frag] = r.Allele
	}
	n := len(reg.Alleles)
	if opts.MaxAlleles > 0 && n > opts.MaxAlleles {
		n = opts.MaxAlleles
	}
	cols := a.manodes[mid].Columns[begin:end]
	callOpts := opts.Call
	callOpts.Alleles = alleleOf
	recall := func(id int) ([]byte, error) {
		callOpts.TargetAllele = id
		var seq []byte
		for _, cid := range cols {
			c, err := a.BaseCall(cid, callOpts)
			if err != nil {
				return nil, err
			}
			if c.Base != Gap {
				seq = append(seq, c.Base)
			}
		}
		return seq, nil
	}
	seqs := make([][]byte, n)
	keepIdx := -1
	for i := 0; i < n; i++ {
		if reg.Alleles[i].ID == keep {
			keepIdx = i
			continue
		}
		seq, err := recall(reg.Alleles[i].ID)
		if err != nil {
			return VarRecord{}, false, err
		}
		seqs[i] = seq
	}
	// The kept allele goes last so its calls stay in the columns.
	seq, err := recall(keep)
	if err != nil {
		return VarRecord{}, false, err
	}
	if keepIdx >= 0 {
		seqs[keepIdx] = seq
	}
	return newVarRecord(&reg, seqs, opts.MinAlleleReads), true, nil
}
