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

import "math"

// This file contains qual phred-math routines.

// Input quality values are never larger than (nQual - 1); larger values are
// clamped on load.
const nQual = 96

// QVUnknown is the quality of a base whose quality was never measured.
const QVUnknown = 0

// MinGapQV is the floor applied to a filler gap whose neighbours have unknown
// quality.
const MinGapQV = 1

// minLikelihoodQV is the smallest quality used when scoring a base, so a
// QVUnknown base still carries a little evidence instead of none.
const minLikelihoodQV = 5

var (
	// errProbTable[q] is the error probability 10^(-q/10).
	errProbTable [nQual]float64
	// lnCorrectTable[q] is ln(1 - errProbTable[q']) with q' = max(q, minLikelihoodQV).
	lnCorrectTable [nQual]float64
	// lnErrorTable[q] is ln(errProbTable[q']) with q' = max(q, minLikelihoodQV).
	lnErrorTable [nQual]float64
)

func init() {
	for i := range errProbTable {
		errProbTable[i] = math.Exp(float64(i) * (-0.1 * math.Ln10))
	}
	for i := range lnCorrectTable {
		q := i
		if q < minLikelihoodQV {
			q = minLikelihoodQV
		}
		lnCorrectTable[i] = math.Log1p(-errProbTable[q])
		lnErrorTable[i] = math.Log(errProbTable[q])
	}
}

// ClampQV clamps an arbitrary integer quality into the supported range.
func ClampQV(q int) byte {
	if q < 0 {
		return 0
	}
	if q >= nQual {
		return nQual - 1
	}
	return byte(q)
}

// qvFromErrProb converts an error probability to a phred score clamped to
// [minQV, maxQV].
func qvFromErrProb(p float64, minQV, maxQV int) byte {
	q := maxQV
	if p > 0 {
		q = int(math.Round(math.Log(p) * (-10.0 * math.Log10E)))
	}
	if q < minQV {
		q = minQV
	}
	if q > maxQV {
		q = maxQV
	}
	return ClampQV(q)
}
