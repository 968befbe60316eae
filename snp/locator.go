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

// Package snp finds the positions of a contig where the mapped reads
// disagree with the reference sequence.
package snp

import (
	"context"
	"errors"
	"fmt"

	"github.com/willf/bitset"

	"github.com/exascience/elcontig/ace"
)

// DefaultWindow is the number of contig positions handled at once.
const DefaultWindow = 500

// ErrThreshold is returned for SNP thresholds outside of [0, 100].
var ErrThreshold = errors.New("SNP threshold must be between 0 and 100")

// ValidateThreshold checks that a variation percentage threshold lies
// in [0, 100].
func ValidateThreshold(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("%w, got %v", ErrThreshold, threshold)
	}
	return nil
}

// Percent returns 100*mismatches/depth, rounded half up.
func Percent(mismatches, depth int32) int32 {
	if depth <= 0 {
		return 0
	}
	return int32((200*int64(mismatches) + int64(depth)) / (2 * int64(depth)))
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func clip(f *ace.Fragment, size int32) (start, end int32) {
	start, end = f.Start(), f.End()
	if start < 0 {
		start = 0
	}
	if last := f.Start() + int32(len(f.Seq)) - 1; end > last {
		end = last
	}
	if end >= size {
		end = size - 1
	}
	return start, end
}

/*
Locate computes the pileup of the fragments of a contig, window by
window, and calls emit once per window that contains at least one
position where a fragment base differs from the reference base. Bases
are compared case-insensitively. The SNPs of one window are sorted by
position. Positions are 0-based. The slice passed to emit is reused
for the next window.

An error returned by emit aborts the remaining windows. The context is
checked at every window boundary. The contig is not modified.
*/
func Locate(ctx context.Context, c *ace.Contig, window int32, emit func([]ace.Snp) error) error {
	size := int32(len(c.Seq))
	if size == 0 || len(c.Fragments) == 0 {
		return nil
	}
	if window < 1 {
		window = DefaultWindow
	}
	windows := (size + window - 1) / window
	buckets := make([][]*ace.Fragment, windows)
	for _, f := range c.Fragments {
		start, end := clip(f, size)
		if start > end {
			continue
		}
		for w := start / window; w <= end/window; w++ {
			buckets[w] = append(buckets[w], f)
		}
	}

	depth := make([]int32, window)
	mismatches := make([]int32, window)
	marks := bitset.New(uint(window))
	var snps []ace.Snp
	for w := int32(0); w < windows; w++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		bucket := buckets[w]
		if len(bucket) == 0 {
			continue
		}
		offset := w * window
		last := offset + window - 1
		if last >= size {
			last = size - 1
		}
		for _, f := range bucket {
			start, end := clip(f, size)
			if start < offset {
				start = offset
			}
			if end > last {
				end = last
			}
			fstart := f.Start()
			for pos := start; pos <= end; pos++ {
				i := pos - offset
				depth[i]++
				if lower(c.Seq[pos]) != lower(f.Seq[pos-fstart]) {
					mismatches[i]++
					marks.Set(uint(i))
				}
			}
		}
		snps = snps[:0]
		for i, ok := marks.NextSet(0); ok; i, ok = marks.NextSet(i + 1) {
			snps = append(snps, ace.Snp{
				ContigID: c.ID,
				Pos:      offset + int32(i),
				Percent:  Percent(mismatches[i], depth[i]),
			})
		}
		for i := range depth {
			depth[i] = 0
			mismatches[i] = 0
		}
		marks.ClearAll()
		buckets[w] = nil
		if len(snps) > 0 {
			if err := emit(snps); err != nil {
				return err
			}
		}
	}
	return nil
}

// Collect runs Locate and returns all SNPs of the contig.
func Collect(ctx context.Context, c *ace.Contig, window int32) ([]ace.Snp, error) {
	var all []ace.Snp
	err := Locate(ctx, c, window, func(snps []ace.Snp) error {
		all = append(all, snps...)
		return nil
	})
	return all, err
}
