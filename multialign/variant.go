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
	"sort"
	"strconv"
	"strings"
)

// NoData marks a region column that a read does not reach.
const NoData = byte('.')

// Read is one read's view of a variant region.
type Read struct {
	Frag FragID
	// Bases and Quals cover the region column by column, gaps included.
	Bases []byte
	Quals []byte
	// AvgQV is the mean of Quals over the covered columns.
	AvgQV float64
	// Partial is set if some of Bases are NoData.
	Partial bool
	// Allele is the index of the read's allele in the region, or -1.
	Allele int
}

// NewRead builds a read from its region bases and qualities.
func NewRead(fid FragID, bases, quals []byte) Read {
	r := Read{Frag: fid, Bases: bases, Quals: quals, Allele: -1}
	sum, n := 0, 0
	for i, q := range quals {
		if bases[i] == NoData {
			r.Partial = true
			continue
		}
		sum += int(q)
		n++
	}
	if n > 0 {
		r.AvgQV = float64(sum) / float64(n)
	}
	return r
}

// Allele is a cluster of reads that agree across a region.
type Allele struct {
	ID int
	// Weight is the sum of the members' average qualities.
	Weight float64
	// Reads indexes the region's reads.
	Reads       []int
	UngappedLen int
}

// Confirmed returns true if at least minReads reads support the allele.
func (al *Allele) Confirmed(minReads int) bool { return len(al.Reads) >= minReads }

// VarRegion is the scratch state of one polymorphic region.
type VarRegion struct {
	// Begin and End are MAIndex values, End exclusive.
	Begin, End int
	Reads      []Read
	Alleles    []Allele
	dist       matrix
}

// disjointSet is a union-find over read indices.
type disjointSet []int

func newDisjointSet(n int) disjointSet {
	s := make(disjointSet, n)
	for i := range s {
		s[i] = i
	}
	return s
}

func (s disjointSet) find(i int) int {
	for s[i] != i {
		s[i] = s[s[i]]
		i = s[i]
	}
	return i
}

func (s disjointSet) union(i, j int) {
	ri, rj := s.find(i), s.find(j)
	switch {
	case ri < rj:
		s[rj] = ri
	case rj < ri:
		s[ri] = rj
	}
}

// ClusterReads groups reads at distance zero from each other into alleles.
// Grouping is transitive over the reads that cover the whole region.
// Alleles are numbered in order of their first such read.  A partial read
// joins an allele only if it agrees with that allele's reads and no
// other's; otherwise its Allele stays -1.
func ClusterReads(reads []Read) []Allele {
	return clusterReads(reads, distanceMatrix(reads))
}

func clusterReads(reads []Read, dist matrix) []Allele {
	set := newDisjointSet(len(reads))
	for i := range reads {
		if reads[i].Partial {
			continue
		}
		for j := i + 1; j < len(reads); j++ {
			if !reads[j].Partial && dist.at(i, j) == 0 {
				set.union(i, j)
			}
		}
	}
	var (
		alleles []Allele
		byRoot  = map[int]int{}
	)
	join := func(i, id int) {
		reads[i].Allele = id
		alleles[id].Reads = append(alleles[id].Reads, i)
		alleles[id].Weight += reads[i].AvgQV
	}
	for i := range reads {
		if reads[i].Partial {
			continue
		}
		root := set.find(i)
		id, ok := byRoot[root]
		if !ok {
			id = len(alleles)
			byRoot[root] = id
			alleles = append(alleles, Allele{ID: id, UngappedLen: len(ungap(reads[i].Bases))})
		}
		join(i, id)
	}
	for i := range reads {
		if !reads[i].Partial {
			continue
		}
		id := -1
		for j := range reads {
			if reads[j].Partial || dist.at(i, j) != 0 {
				continue
			}
			if id >= 0 && reads[j].Allele != id {
				id = -1
				break
			}
			id = reads[j].Allele
		}
		if id >= 0 {
			join(i, id)
		}
	}
	return alleles
}

// SortAllelesByWeight orders alleles by decreasing weight.  Equal weights
// keep ID order.
func SortAllelesByWeight(alleles []Allele) {
	sort.SliceStable(alleles, func(i, j int) bool {
		if alleles[i].Weight != alleles[j].Weight {
			return alleles[i].Weight > alleles[j].Weight
		}
		return alleles[i].ID < alleles[j].ID
	})
}

// SortAllelesByLength puts multi-read alleles first, ordered by decreasing
// ungapped length, then the singletons.  Ties are broken by weight.
func SortAllelesByLength(alleles []Allele) {
	sort.SliceStable(alleles, func(i, j int) bool {
		mi, mj := len(alleles[i].Reads) > 1, len(alleles[j].Reads) > 1
		if mi != mj {
			return mi
		}
		if alleles[i].UngappedLen != alleles[j].UngappedLen {
			return alleles[i].UngappedLen > alleles[j].UngappedLen
		}
		if alleles[i].Weight != alleles[j].Weight {
			return alleles[i].Weight > alleles[j].Weight
		}
		return alleles[i].ID < alleles[j].ID
	})
}

// VarRecord describes one polymorphic region of a consensus.
type VarRecord struct {
	// Begin and End are gapped consensus positions, End exclusive.
	Begin, End          int
	NumReads            int
	NumConfirmedAlleles int
	// Weights, ReadCounts and AlleleSeqs hold one "/"-separated entry per
	// reported allele, heaviest first.
	Weights    string
	ReadCounts string
	AlleleSeqs string
	// Ratio is the weight of the second allele relative to the first.
	Ratio float64
}

func newVarRecord(r *VarRegion, seqs [][]byte, minAlleleReads int) VarRecord {
	rec := VarRecord{Begin: r.Begin, End: r.End, NumReads: len(r.Reads)}
	var weights, counts, strs []string
	for i, al := range r.Alleles {
		if al.Confirmed(minAlleleReads) {
			rec.NumConfirmedAlleles++
		}
		if i >= len(seqs) {
			continue
		}
		weights = append(weights, strconv.Itoa(int(al.Weight+0.5)))
		counts = append(counts, strconv.Itoa(len(al.Reads)))
		strs = append(strs, string(seqs[i]))
	}
	rec.Weights = strings.Join(weights, "/")
	rec.ReadCounts = strings.Join(counts, "/")
	rec.AlleleSeqs = strings.Join(strs, "/")
	if len(r.Alleles) > 1 && r.Alleles[0].Weight > 0 {
		rec.Ratio = r.Alleles[1].Weight / r.Alleles[0].Weight
	}
	return rec
}
