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

// Package annotation maps genome annotation tracks onto loaded contigs.
//
// Contigs are placed on chromosomes by an order file. BED regions that
// fall inside a placement become annotations of that contig, in contig
// coordinates. Genes are laid out on display tracks, and gene
// sub-structures (exons, introns, UTRs) are attached to the gene that
// contains them.
package annotation

import (
	"github.com/exascience/elcontig/bed"
)

// A Placement positions a contig on a chromosome. Start and End are
// inclusive chromosome coordinates.
type Placement struct {
	Chrom    string `db:"chrom"`
	ContigID int32  `db:"contigId"`
	Start    int32  `db:"chromStart"`
	End      int32  `db:"chromEnd"`
}

// An Annotation is a BED region in contig coordinates.
type Annotation struct {
	ID       int64         `db:"id"`
	ContigID int32         `db:"contigId"`
	Start    int32         `db:"startPos"`
	End      int32         `db:"endPos"`
	Name     string        `db:"name"`
	Type     bed.TrackType `db:"annotationTypeId"`
	FileID   int32         `db:"fileId"`
}

// A Gene is the display information of a gene annotation.
type Gene struct {
	AnnotationID int64 `db:"geneId"`
	YPos         int32 `db:"yPos"`
	Downstream   bool  `db:"strand"`
}

// A GeneAnnotation is a gene annotation with its display information.
// YPos is -1 for genes that have not been laid out yet.
type GeneAnnotation struct {
	Annotation
	Gene
}

// A Structure is an exon, intron or UTR of a gene, in contig
// coordinates.
type Structure struct {
	GeneID int64             `db:"geneId"`
	Kind   bed.StructureKind `db:"type"`
	Name   string            `db:"name"`
	Start  int32             `db:"startPos"`
	End    int32             `db:"endPos"`
}

// Store is the persistence needed to annotate contigs.
type Store interface {
	InsertFile(name, path string) (int32, error)
	ContigIDs() (map[string]int32, error)
	UpdateContigOrder(contigID, order int32) error
	ReplacePlacements(placements []Placement) error
	Placements() ([]Placement, error)
	InsertAnnotations(annotations []*Annotation) error
	InsertGenes(genes []Gene) error
	UpdateMaxGeneRows(contigID, rows int32) error
	Genes(contigID int32) ([]GeneAnnotation, error)
	InsertStructures(structures []Structure) error
}

// genes is a list of gene annotations that can be laid out. BED ends
// are exclusive.
type genes []GeneAnnotation

func (g genes) Len() int { return len(g) }

func (g genes) Span(i int) (start, end int32) { return g[i].Start, g[i].End - 1 }

func (g genes) Track(i int) int32 { return g[i].YPos }

func (g genes) SetTrack(i int, track int32) { g[i].YPos = track }
