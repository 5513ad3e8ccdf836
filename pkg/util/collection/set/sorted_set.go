// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package set

import (
	"cmp"
	"slices"
	"sort"
)

// SortedSet is an array of unique elements kept in ascending order.  This
// gives deterministic iteration, which matters whenever a set ends up in a
// diagnostic or a solver log.
type SortedSet[T cmp.Ordered] []T

// NewSortedSet returns a sorted set containing the given elements.
func NewSortedSet[T cmp.Ordered](elements ...T) *SortedSet[T] {
	data := slices.Clone(elements)
	slices.Sort(data)
	data = slices.Compact(data)
	//
	set := SortedSet[T](data)
	//
	return &set
}

// Len returns the number of elements in this set.
func (p *SortedSet[T]) Len() int {
	return len(*p)
}

// Contains returns true if a given element is in the set.
//
//nolint:revive
func (p *SortedSet[T]) Contains(element T) bool {
	data := *p
	// Find index where element either does occur, or should occur.
	i := sort.Search(len(data), func(i int) bool {
		return element <= data[i]
	})
	// Check whether item existed or not.
	return i < len(data) && data[i] == element
}

// Insert an element into this sorted set, returning true if it was not already
// present.
//
//nolint:revive
func (p *SortedSet[T]) Insert(element T) bool {
	data := *p
	// Find index where element either does occur, or should occur.
	i := sort.Search(len(data), func(i int) bool {
		return element <= data[i]
	})
	//
	if i < len(data) && data[i] == element {
		return false
	}
	//
	*p = slices.Insert(data, i, element)
	//
	return true
}
