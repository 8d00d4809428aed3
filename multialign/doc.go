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
Package multialign builds gapped multiple alignments of reads (or of unitig
consensus sequences) and calls a consensus base and quality for every
column.

The alignment is stored in an Arena as two families of doubly linked lists
threaded through the same beads:

  - a fragment chain (Bead.Prev/Bead.Next) holds the gapped bases of one
    fragment, left to right;
  - a column chain (Bead.Up/Bead.Down) holds every bead aligned to one
    column, hanging below the column's call bead.

Columns are linked left to right (Column.Prev/Column.Next) and an MANode
names the first and last column of one alignment.  All links are integer
handles into the arena's stores, never pointers, so stores can grow while a
caller still holds handles.

A typical build seeds an MANode with one fragment, merges every other
fragment with ApplyAlignment using a trace from an external pairwise
aligner, then runs AbacusRefine / MergeRefine to remove layout artifacts and
finally RefreshMANode to call the consensus and report variation.

An Arena is not safe for concurrent use.  Independent builds use independent
arenas.
*/
package multialign
