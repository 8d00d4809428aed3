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
// Package overlap obtains edit traces between a new fragment and its anchor
// from an external pairwise aligner.  The aligner is treated as an oracle;
// Find only retries it with progressively looser parameters, different
// strands and swapped roles until an acceptable overlap is returned.
//
// Traces follow the convention of multialign.ApplyAlignment: entries are
// 1-based full-sequence positions, k > 0 puts a gap in the first sequence
// before its base k and k < 0 puts a gap in the second sequence before its
// base -k.
package overlap
