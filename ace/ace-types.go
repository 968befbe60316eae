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

package ace

import (
	"math"
)

// A File is the source file a contig was read from.
type File struct {
	ID   int32
	Name string
	Path string
}

/*
A Contig is one assembled reference sequence with the reads mapped onto
it.

After a Contig is handed to the persistence workers, its fields are
read-only until Release is called.
*/
type Contig struct {
	ID    int32
	Order int32
	Name  string
	Seq   []byte
	Size  int32

	NumberReads    int32
	ReadStartIndex int32
	ReadEndIndex   int32

	Coverage    float64
	ZoomLevels  int32
	MaxFragRows int32
	MaxGeneRows int32

	// Sum of the sizes of all fragments.
	TotalFragmentLength int64

	File      *File
	Fragments Fragments
}

/*
A Fragment is one read mapped onto a contig.

StartPos and EndPos are contig coordinates, 1-based inclusive as
parsed. They may lie outside the contig.
*/
type Fragment struct {
	ID       int32
	ContigID int32
	Name     string
	Seq      []byte
	Size     int32

	StartPos   int32
	EndPos     int32
	QualStart  int32
	QualEnd    int32
	AlignStart int32
	AlignEnd   int32

	Complement  bool
	NumMappings int32

	// Display track, -1 when unassigned.
	YPos int32
}

// A Snp is one position of a contig where some of the overlapping
// fragments disagree with the reference base. Pos is 0-based.
type Snp struct {
	ContigID int32
	Pos      int32
	Percent  int32
}

// NewFragment allocates a Fragment with an unassigned track.
func NewFragment(id, contigID int32, name string, complement bool, startPos int32) *Fragment {
	return &Fragment{
		ID:          id,
		ContigID:    contigID,
		Name:        name,
		Complement:  complement,
		StartPos:    startPos,
		NumMappings: 1,
		YPos:        -1,
	}
}

// Start returns the 0-based start position of the fragment.
func (f *Fragment) Start() int32 {
	return f.StartPos - 1
}

// End returns the 0-based inclusive end position of the fragment.
func (f *Fragment) End() int32 {
	return f.EndPos - 1
}

// Release drops the sequence and fragments of the contig, and so all
// memory they hold once no other reference exists.
func (c *Contig) Release() {
	c.Seq = nil
	for i := range c.Fragments {
		c.Fragments[i] = nil
	}
	c.Fragments = nil
}

// finalize computes the derived statistics of a fully parsed contig.
func (c *Contig) finalize() {
	c.Size = int32(len(c.Seq))
	c.TotalFragmentLength = 0
	for _, f := range c.Fragments {
		c.TotalFragmentLength += int64(f.Size)
	}
	if c.Size > 0 {
		c.Coverage = float64(c.TotalFragmentLength) / float64(c.Size)
		c.ZoomLevels = int32(math.Log(float64(c.Size)))
	} else {
		c.Coverage = 0
		c.ZoomLevels = 0
	}
}

// AverageFragmentLength returns the mean fragment size rounded up, or
// 0 if the contig has no fragments.
func (c *Contig) AverageFragmentLength() int32 {
	if len(c.Fragments) == 0 {
		return 0
	}
	n := int64(len(c.Fragments))
	return int32((c.TotalFragmentLength + n - 1) / n)
}

// Fragments is a list of fragments of one contig. It can be laid out
// with the layout package.
type Fragments []*Fragment

// Len implements layout.Interface.
func (fs Fragments) Len() int { return len(fs) }

// Span implements layout.Interface and returns 0-based coordinates.
func (fs Fragments) Span(i int) (start, end int32) {
	f := fs[i]
	return f.Start(), f.End()
}

// Track implements layout.Interface.
func (fs Fragments) Track(i int) int32 { return fs[i].YPos }

// SetTrack implements layout.Interface.
func (fs Fragments) SetTrack(i int, track int32) { fs[i].YPos = track }
