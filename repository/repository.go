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

// Package repository stores loaded contigs, fragments, SNPs and
// annotations, and answers the queries of the viewer.
package repository

import (
	"errors"

	"github.com/exascience/elcontig/ace"
)

// ErrNotFound is returned by queries for records that do not exist.
var ErrNotFound = errors.New("not found")

/*
Repository is the persistence used by the persistence workers.

InsertContig stores the contig record and its sequence, and expects
c.File.ID to be set by a prior InsertFile. InsertFragments stores all
fragments of one contig as a unit: either all of them are stored or
none. InsertSnps does the same for one window of SNPs.

Implementations must be safe for concurrent use.
*/
type Repository interface {
	InsertFile(name, path string) (int32, error)
	InsertContig(c *ace.Contig) error
	InsertFragments(contigID int32, fragments []*ace.Fragment) error
	InsertSnp(contigID, pos, percent int32) error
	InsertSnps(contigID int32, snps []ace.Snp) error

	ContigSize(contigID int32) (int32, error)
	Sequence(contigID int32) ([]byte, error)
	// Fragments whose 1-based span overlaps start..end.
	FragmentsInRange(contigID, start, end int32) ([]*ace.Fragment, error)
}

// A ContigSummary is a contig record without its sequence.
type ContigSummary struct {
	ID          int32   `db:"id" json:"id"`
	Order       int32   `db:"contigOrder" json:"order"`
	Name        string  `db:"name" json:"name"`
	Size        int32   `db:"size" json:"size"`
	NumberReads int32   `db:"numberReads" json:"numberReads"`
	Coverage    float64 `db:"coverage" json:"coverage"`
	ZoomLevels  int32   `db:"zoomLevels" json:"zoomLevels"`
	MaxFragRows int32   `db:"maxFragRows" json:"maxFragRows"`
	MaxGeneRows int32   `db:"maxGeneRows" json:"maxGeneRows"`
	FileID      int32   `db:"fileId" json:"fileId"`
}
