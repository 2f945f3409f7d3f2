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

package base

// Index manages the map between sparse names and dense indices. A sparse name
// is a book title or a raw user ID. The dense index is the row or column
// position inside the pivot matrix, so the mapping defines the index space
// used to translate neighbor-query results back to titles.
type Index struct {
	Numbers map[string]int32 // sparse name -> dense index
	Names   []string         // dense index -> sparse name
}

// NotId represents a name that doesn't exist in the index.
const NotId = int32(-1)

// NewIndex creates an empty Index.
func NewIndex() *Index {
	set := new(Index)
	set.Numbers = make(map[string]int32)
	set.Names = make([]string, 0)
	return set
}

// Len returns the number of indexed names.
func (idx *Index) Len() int32 {
	if idx == nil {
		return 0
	}
	return int32(len(idx.Names))
}

// Add adds a new name to the index. Duplicates keep their first position.
func (idx *Index) Add(name string) {
	if _, exist := idx.Numbers[name]; !exist {
		idx.Numbers[name] = int32(len(idx.Names))
		idx.Names = append(idx.Names, name)
	}
}

// ToNumber converts a sparse name to a dense index.
func (idx *Index) ToNumber(name string) int32 {
	if denseId, exist := idx.Numbers[name]; exist {
		return denseId
	}
	return NotId
}

// ToName converts a dense index to a sparse name.
func (idx *Index) ToName(index int32) string {
	return idx.Names[index]
}

// GetNames returns all names in current index.
func (idx *Index) GetNames() []string {
	return idx.Names
}
