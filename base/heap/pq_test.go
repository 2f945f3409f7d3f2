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

package heap

import (
	"math"
	"sort"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestPriorityQueue(t *testing.T) {
	pq := NewPriorityQueue(false)
	elements := []int32{5, 3, 7, 8, 6, 2, 9}
	for _, e := range elements {
		pq.Push(e, float32(e))
	}
	assert.Equal(t, len(elements), pq.Len())
	assert.ElementsMatch(t, elements, pq.Values())

	// duplicate pushes are ignored
	pq.Push(5, 5)
	assert.Equal(t, len(elements), pq.Len())

	// test peek and pop in ascending order
	rev := pq.Reverse()
	sorted := make([]int32, len(elements))
	copy(sorted, elements)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for _, e := range sorted {
		value, weight := pq.Peek()
		assert.Equal(t, e, value)
		assert.Equal(t, e, int32(weight))
		value, weight = pq.Pop()
		assert.Equal(t, e, value)
		assert.Equal(t, e, int32(weight))
	}

	// test reverse
	descending := lo.Reverse(sorted)
	for _, e := range descending {
		value, _ := rev.Pop()
		assert.Equal(t, e, value)
	}
}

func TestPriorityQueueNaN(t *testing.T) {
	pq := NewPriorityQueue(true)
	assert.Panics(t, func() {
		pq.Push(1, float32(math.NaN()))
	})
}
