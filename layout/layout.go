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

// Package layout assigns display tracks to intervals so that overlapping
// intervals never share a track.
package layout

import (
	"context"

	"github.com/willf/bitset"
)

// DefaultGap is the number of positions reserved in front of each
// fragment for its label.
const DefaultGap = 20

// DefaultGeneWindow is the window size used to lay out genes.
const DefaultGeneWindow = 500

/*
Interface is implemented by collections whose elements can be laid
out. Spans are 0-based and inclusive. A track < 0 is unassigned.
*/
type Interface interface {
	Len() int
	Span(i int) (start, end int32)
	Track(i int) int32
	SetTrack(i int, track int32)
}

func windowOf(pos, window int32, windows int) int {
	if pos < 0 {
		return 0
	}
	w := int(pos / window)
	if w >= windows {
		return windows - 1
	}
	return w
}

func mark(occupied []*bitset.BitSet, first, last int, track int32) {
	for w := first; w <= last; w++ {
		if occupied[w] == nil {
			occupied[w] = bitset.New(64)
		}
		occupied[w].Set(uint(track))
	}
}

func lowestFree(occupied []*bitset.BitSet, first, last int) int32 {
	for track := uint(0); ; track++ {
		free := true
		for w := first; w <= last; w++ {
			if occupied[w] != nil && occupied[w].Test(track) {
				free = false
				break
			}
		}
		if free {
			return int32(track)
		}
	}
}

/*
Assign gives every unassigned element of items the lowest track that is
free in all windows its interval [start-gap, end] touches, and returns
the number of tracks in use.

The contig of the given size is split into windows of the given size.
Windows are visited from left to right, and elements that start in the
same window are placed in input order. Elements that already have a
track keep it and reserve it in every window they touch, so a second
run on partially laid out input is stable. Two elements on the same
track never share a window, and therefore never overlap.

The context is checked at every window boundary.
*/
func Assign(ctx context.Context, items Interface, size, window, gap int32) (rows int32, err error) {
	n := items.Len()
	if n == 0 {
		return 0, nil
	}
	if window < 1 {
		window = 1
	}
	windows := int((int64(size) + int64(window) - 1) / int64(window))
	if windows < 1 {
		windows = 1
	}
	first := make([]int, n)
	last := make([]int, n)
	newcomers := make([][]int, windows)
	occupied := make([]*bitset.BitSet, windows)
	maxTrack := int32(-1)
	for i := 0; i < n; i++ {
		start, end := items.Span(i)
		first[i] = windowOf(start-gap, window, windows)
		last[i] = windowOf(end, window, windows)
		if last[i] < first[i] {
			last[i] = first[i]
		}
		if track := items.Track(i); track >= 0 {
			mark(occupied, first[i], last[i], track)
			if track > maxTrack {
				maxTrack = track
			}
		} else {
			newcomers[first[i]] = append(newcomers[first[i]], i)
		}
	}
	for w, list := range newcomers {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for _, i := range list {
			track := lowestFree(occupied, w, last[i])
			items.SetTrack(i, track)
			mark(occupied, w, last[i], track)
			if track > maxTrack {
				maxTrack = track
			}
		}
		newcomers[w] = nil
	}
	return maxTrack + 1, nil
}

// Overlap reports whether the gapped intervals of two spans overlap.
func Overlap(start1, end1, start2, end2, gap int32) bool {
	return start1-gap <= end2 && start2-gap <= end1
}
