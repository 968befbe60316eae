// elContig: a high-performance tool for loading ACE assemblies.
// Copyright (c) 2017-2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elcontig/blob/master/LICENSE.txt>.

package intervals

import (
	"sort"

	"github.com/exascience/pargo/parallel"
	psort "github.com/exascience/pargo/sort"
)

// Interval is a generic struct with a start and an end position. Both
// positions are inclusive.
type Interval struct {
	Start, End int32
}

// Extend makes interval1 larger if it overlaps with interval2,
// by storing max(interval1.End, interval2.End) in interval1.End;
// otherwise, interval1 remains unchanged.
// Returns true if the two intervals overlap, false otherwise.
// interval2.Start >= interval1.Start must be true before
// calling Extend.
func (interval1 *Interval) Extend(interval2 Interval) bool {
	if interval2.Start > interval1.End {
		return false
	}
	if interval2.End > interval1.End {
		interval1.End = interval2.End
	}
	return true
}

// Flatten merges overlapping intervals into larger intervals.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func Flatten(intervals []Interval) []Interval {
	for i, n := 0, len(intervals)-1; i < n; i++ {
		if intervals[i].Extend(intervals[i+1]) {
			n++
			for j := i + 1; j < n; j++ {
				if !intervals[i].Extend(intervals[j]) {
					i++
					intervals[i] = intervals[j]
				}
			}
			return intervals[:i+1]
		}
	}
	return intervals
}

const parallelFlattenGrainSize = 0x1000

// ParallelFlatten merges overlapping intervals into larger intervals,
// using a parallel algorithm.
// intervals must be sorted by Start before calling Flatten.
// The resulting slice is sorted by Start, and no two
// intervals in the result overlap with each other.
// The result shares memory with the intervals argument.
func ParallelFlatten(intervals []Interval) []Interval {
	if len(intervals) < parallelFlattenGrainSize {
		return Flatten(intervals)
	}
	half := len(intervals) >> 1
	left, right := intervals[:half], intervals[half:]
	parallel.Do(
		func() { left = ParallelFlatten(left) },
		func() { right = ParallelFlatten(right) },
	)
	for left[len(left)-1].Extend(right[0]) {
		right = right[1:]
	}
	return append(left, right...)
}

// Intersect returns a slice of all intervals that overlap with the
// given start/end range.
// intervals must be Flattened and sorted by Start.
// The result shares memory with the intervals argument.
func Intersect(intervals []Interval, start, end int32) []Interval {
	n := len(intervals)
	return intervals[sort.Search(n, func(i int) bool {
		return intervals[i].End >= start
	}):sort.Search(n, func(i int) bool {
		return intervals[i].Start > end
	})]
}

// Keyed is an Interval that remembers the index of the record it was
// derived from.
type Keyed struct {
	Interval
	Key int
}

type stableKeyedSorter []Keyed

func (s stableKeyedSorter) SequentialSort(i, j int) {
	k := s[i:j]
	sort.SliceStable(k, func(i, j int) bool {
		return k[i].Start < k[j].Start
	})
}

func (s stableKeyedSorter) NewTemp() psort.StableSorter {
	return stableKeyedSorter(make([]Keyed, len(s)))
}

func (s stableKeyedSorter) Len() int {
	return len(s)
}

func (s stableKeyedSorter) Less(i, j int) bool {
	return s[i].Start < s[j].Start
}

func (s stableKeyedSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	dst, src := s, source.(stableKeyedSorter)
	return func(i, j, len int) {
		copy(dst[i:i+len], src[j:j+len])
	}
}

// ParallelSortKeyedByStart sorts a slice of Keyed by Start position
// using a parallel stable sort.
func ParallelSortKeyedByStart(keyed []Keyed) {
	psort.StableSort(stableKeyedSorter(keyed))
}

// Disjoint reports whether no two of the given intervals overlap.
// keyed must be sorted by Start.
func Disjoint(keyed []Keyed) bool {
	intervals := make([]Interval, len(keyed))
	for i, k := range keyed {
		intervals[i] = k.Interval
	}
	return len(ParallelFlatten(intervals)) == len(keyed)
}

// Containing returns the interval that fully contains the given
// start/end range. keyed must be Disjoint and sorted by Start.
func Containing(keyed []Keyed, start, end int32) (Keyed, bool) {
	i := sort.Search(len(keyed), func(i int) bool {
		return keyed[i].Start > start
	}) - 1
	if i >= 0 && keyed[i].End >= end {
		return keyed[i], true
	}
	return Keyed{}, false
}

// Straddles reports whether the given start/end range overlaps
// intervals without being contained in one of them. keyed must be
// Disjoint and sorted by Start.
func Straddles(keyed []Keyed, start, end int32) bool {
	if _, ok := Containing(keyed, start, end); ok {
		return false
	}
	intervals := make([]Interval, len(keyed))
	for i, k := range keyed {
		intervals[i] = k.Interval
	}
	return len(Intersect(intervals, start, end)) > 0
}
