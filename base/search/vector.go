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

// Package search provides a brute-force nearest-neighbor index over sparse
// rating vectors under cosine distance.
package search

import (
	"sort"

	"github.com/chewxy/math32"
)

// SparseVector stores the non-zero entries of a pivot matrix row. Indices are
// kept sorted so dot products are a single merge walk. The Euclidean norm is
// computed once at construction. All fields are exported for gob.
type SparseVector struct {
	Indices []int32
	Values  []float32
	Norm    float32
}

// NewSparseVector creates a SparseVector from parallel index/value slices.
func NewSparseVector(indices []int32, values []float32) *SparseVector {
	v := &SparseVector{Indices: indices, Values: values}
	sort.Sort(v)
	var sum float32
	for _, value := range values {
		sum += value * value
	}
	v.Norm = math32.Sqrt(sum)
	return v
}

// NewSparseVectorFromDense creates a SparseVector from a dense row, keeping
// only non-zero cells.
func NewSparseVectorFromDense(row []float32) *SparseVector {
	indices := make([]int32, 0)
	values := make([]float32, 0)
	for i, value := range row {
		if value != 0 {
			indices = append(indices, int32(i))
			values = append(values, value)
		}
	}
	return NewSparseVector(indices, values)
}

func (v *SparseVector) Len() int {
	return len(v.Indices)
}

func (v *SparseVector) Less(i, j int) bool {
	return v.Indices[i] < v.Indices[j]
}

func (v *SparseVector) Swap(i, j int) {
	v.Indices[i], v.Indices[j] = v.Indices[j], v.Indices[i]
	v.Values[i], v.Values[j] = v.Values[j], v.Values[i]
}

// Dot computes the dot product with another sparse vector.
func (v *SparseVector) Dot(u *SparseVector) float32 {
	i, j, sum := 0, 0, float32(0)
	for i < len(v.Indices) && j < len(u.Indices) {
		if v.Indices[i] == u.Indices[j] {
			sum += v.Values[i] * u.Values[j]
			i++
			j++
		} else if v.Indices[i] < u.Indices[j] {
			i++
		} else {
			j++
		}
	}
	return sum
}

// Distance computes the cosine distance 1-cos(v,u). Vectors with zero norm
// are maximally distant from everything.
func (v *SparseVector) Distance(u *SparseVector) float32 {
	if v.Norm == 0 || u.Norm == 0 {
		return 1
	}
	return 1 - v.Dot(u)/(v.Norm*u.Norm)
}
