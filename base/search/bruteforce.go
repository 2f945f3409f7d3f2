// Copyright 2024 bookworm Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package search

import (
	"github.com/bookworm-io/bookworm/base/heap"
)

// Bruteforce is a naive nearest-neighbor index: a query scans every stored
// vector. The query vector is not excluded, so searching with a stored row
// normally returns that row itself at distance 0 first; rows tied at the
// same distance may displace it, callers that need the query row kept must
// restore it themselves. Fields are exported for gob.
type Bruteforce struct {
	Vectors []*SparseVector
}

// NewBruteforce creates a Bruteforce vector index.
func NewBruteforce(vectors []*SparseVector) *Bruteforce {
	return &Bruteforce{
		Vectors: vectors,
	}
}

// Len returns the number of indexed vectors.
func (b *Bruteforce) Len() int {
	return len(b.Vectors)
}

// Search returns the n nearest vectors to q, closest first, with their
// cosine distances.
func (b *Bruteforce) Search(q *SparseVector, n int) (values []int32, scores []float32) {
	pq := heap.NewPriorityQueue(true)
	for i, vec := range b.Vectors {
		pq.Push(int32(i), q.Distance(vec))
		if pq.Len() > n {
			pq.Pop()
		}
	}
	pq = pq.Reverse()
	for pq.Len() > 0 {
		value, score := pq.Pop()
		values = append(values, value)
		scores = append(scores, score)
	}
	return
}
