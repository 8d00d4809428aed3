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

import "math/rand"

// TieBreaker picks one of several equally supported tally indices.
// Candidates are non-empty and sorted ascending.
type TieBreaker interface {
	Choose(candidates []int) int
}

type lowestCode struct{}

func (lowestCode) Choose(candidates []int) int { return candidates[0] }

// LowestCode always picks the candidate with the lowest tally index.  It is
// the default.
var LowestCode TieBreaker = lowestCode{}

type randomTieBreaker struct {
	r *rand.Rand
}

func (t *randomTieBreaker) Choose(candidates []int) int {
	return candidates[t.r.Intn(len(candidates))]
}

// NewRandomTieBreaker returns a tie breaker that draws uniformly from a
// source seeded with seed.  Two breakers with the same seed make the same
// choices.
func NewRandomTieBreaker(seed int64) TieBreaker {
	return &randomTieBreaker{r: rand.New(rand.NewSource(seed))}
}

// breakTie drops the gap from a tie with any real base, then defers to tb.
func breakTie(tb TieBreaker, candidates []int) int {
	if len(candidates) == 1 {
		return candidates[0]
	}
	if candidates[0] == IdxGap {
		candidates = candidates[1:]
		if len(candidates) == 1 {
			return candidates[0]
		}
	}
	if tb == nil {
		tb = LowestCode
	}
	return tb.Choose(candidates)
}
