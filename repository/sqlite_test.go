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

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/annotation"
	"github.com/exascience/elcontig/bed"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testContig() *ace.Contig {
	c := &ace.Contig{
		ID: 1, Order: 1, Name: "contig1", Seq: []byte("ACGTACGTAC"), Size: 10,
		NumberReads: 2, ReadStartIndex: 1, ReadEndIndex: 2, Coverage: 0.9, ZoomLevels: 2,
		MaxFragRows: 2, File: &ace.File{Name: "a.ace", Path: "/data/a.ace"},
	}
	f1 := ace.NewFragment(1, 1, "r1", false, 1)
	f1.Seq, f1.Size, f1.EndPos, f1.YPos = []byte("ACGT"), 4, 4, 0
	f2 := ace.NewFragment(2, 1, "r2", true, 3)
	f2.Seq, f2.Size, f2.EndPos, f2.YPos = []byte("GTACG"), 5, 7, 1
	f2.QualStart, f2.QualEnd, f2.AlignStart, f2.AlignEnd = 1, 5, 2, 5
	c.Fragments = ace.Fragments{f1, f2}
	return c
}

func testRepositoryRoundTrip(t *testing.T, repo Repository) {
	c := testContig()
	id, err := repo.InsertFile(c.File.Name, c.File.Path)
	require.NoError(t, err)
	again, err := repo.InsertFile(c.File.Name, c.File.Path)
	require.NoError(t, err)
	assert.Equal(t, id, again, "InsertFile is not idempotent")
	c.File.ID = id

	require.NoError(t, repo.InsertContig(c))
	require.NoError(t, repo.InsertFragments(c.ID, c.Fragments))

	size, err := repo.ContigSize(1)
	require.NoError(t, err)
	assert.EqualValues(t, 10, size)

	seq, err := repo.Sequence(1)
	require.NoError(t, err)
	assert.Equal(t, "ACGTACGTAC", string(seq))

	fragments, err := repo.FragmentsInRange(1, 5, 10)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	f := fragments[0]
	assert.Equal(t, "r2", f.Name)
	assert.EqualValues(t, 3, f.StartPos)
	assert.EqualValues(t, 7, f.EndPos)
	assert.EqualValues(t, 1, f.YPos)
	assert.True(t, f.Complement)
	assert.Equal(t, "GTACG", string(f.Seq))
	assert.EqualValues(t, 2, f.AlignStart)

	fragments, err = repo.FragmentsInRange(1, 1, 10)
	require.NoError(t, err)
	assert.Len(t, fragments, 2)

	_, err = repo.ContigSize(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteRoundTrip(t *testing.T) {
	testRepositoryRoundTrip(t, openTestSQLite(t))
}

func TestMemoryRoundTrip(t *testing.T) {
	testRepositoryRoundTrip(t, NewMemory())
}

func TestSQLiteSnps(t *testing.T) {
	db := openTestSQLite(t)
	require.NoError(t, db.InsertSnps(1, []ace.Snp{{ContigID: 1, Pos: 3, Percent: 100}, {ContigID: 1, Pos: 7, Percent: 20}, {ContigID: 1, Pos: 12, Percent: 55}}))
	require.NoError(t, db.InsertSnp(1, 20, 75))
	require.NoError(t, db.InsertSnp(1, 7, 25))

	snps, err := db.Snps(1, 50)
	require.NoError(t, err)
	assert.Equal(t, []ace.Snp{{ContigID: 1, Pos: 3, Percent: 100}, {ContigID: 1, Pos: 12, Percent: 55}, {ContigID: 1, Pos: 20, Percent: 75}}, snps)

	all, err := db.Snps(1, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.EqualValues(t, 25, all[1].Percent, "SNP rewrite not replaced")

	next, err := db.NextSnp(1, 3, 50)
	require.NoError(t, err)
	assert.EqualValues(t, 12, next.Pos)
	prev, err := db.PrevSnp(1, 12, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 7, prev.Pos)
	_, err = db.NextSnp(1, 20, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteContigs(t *testing.T) {
	db := openTestSQLite(t)
	c := testContig()
	require.NoError(t, db.InsertContig(c))
	d := testContig()
	d.ID, d.Order, d.Name = 2, 2, "contig2"
	require.NoError(t, db.InsertContig(d))
	require.NoError(t, db.UpdateContigOrder(1, 3))

	contigs, err := db.Contigs()
	require.NoError(t, err)
	require.Len(t, contigs, 2)
	assert.Equal(t, "contig2", contigs[0].Name)
	assert.EqualValues(t, 3, contigs[1].Order)
	assert.InDelta(t, 0.9, contigs[1].Coverage, 1e-9)

	ids, err := db.ContigIDs()
	require.NoError(t, err)
	assert.Equal(t, map[string]int32{"contig1": 1, "contig2": 2}, ids)

	contigID, fragmentID, err := db.NextIDs()
	require.NoError(t, err)
	assert.EqualValues(t, 2, contigID)
	assert.EqualValues(t, 0, fragmentID)

	require.NoError(t, db.InsertLoad("load-1", []string{"a.ace", "b.ace"}))
}

func TestSQLiteAnnotations(t *testing.T) {
	db := openTestSQLite(t)
	require.NoError(t, db.InsertContig(testContig()))
	require.NoError(t, db.ReplacePlacements([]annotation.Placement{{Chrom: "chr1", ContigID: 1, Start: 1000, End: 1009}}))
	require.NoError(t, db.ReplacePlacements([]annotation.Placement{{Chrom: "chr1", ContigID: 1, Start: 2000, End: 2009}}))
	placements, err := db.Placements()
	require.NoError(t, err)
	assert.Equal(t, []annotation.Placement{{Chrom: "chr1", ContigID: 1, Start: 2000, End: 2009}}, placements)

	gene := &annotation.Annotation{ContigID: 1, Start: 2, End: 8, Name: "geneA", Type: bed.GeneTrack, FileID: 1}
	snp := &annotation.Annotation{ContigID: 1, Start: 4, End: 5, Name: "rs1", Type: bed.SnpTrack, FileID: 1}
	require.NoError(t, db.InsertAnnotations([]*annotation.Annotation{gene, snp}))
	assert.NotZero(t, gene.ID)
	assert.NotEqual(t, gene.ID, snp.ID)

	genes, err := db.Genes(1)
	require.NoError(t, err)
	require.Len(t, genes, 1)
	assert.EqualValues(t, -1, genes[0].YPos)
	assert.Equal(t, gene.ID, genes[0].AnnotationID)

	require.NoError(t, db.InsertGenes([]annotation.Gene{{AnnotationID: gene.ID, YPos: 0, Downstream: true}}))
	require.NoError(t, db.UpdateMaxGeneRows(1, 1))
	genes, err = db.Genes(1)
	require.NoError(t, err)
	assert.EqualValues(t, 0, genes[0].YPos)
	assert.True(t, genes[0].Downstream)

	require.NoError(t, db.InsertStructures([]annotation.Structure{{GeneID: gene.ID, Kind: bed.Exon, Name: "geneA.1", Start: 2, End: 4}}))
	structures, err := db.Structures(gene.ID)
	require.NoError(t, err)
	assert.Len(t, structures, 1)

	annotations, err := db.Annotations(1, 5, 6)
	require.NoError(t, err)
	assert.Len(t, annotations, 1)
	annotations, err = db.Annotations(1, 0, 10)
	require.NoError(t, err)
	assert.Len(t, annotations, 2)
	assert.Equal(t, bed.SnpTrack, annotations[1].Type)
}

func TestMemoryFailure(t *testing.T) {
	m := NewMemory()
	m.FailFragments = func(contigID int32) error {
		if contigID == 2 {
			return assert.AnError
		}
		return nil
	}
	assert.NoError(t, m.InsertFragments(1, nil))
	assert.ErrorIs(t, m.InsertFragments(2, nil), assert.AnError)
	assert.True(t, m.HasFragments(1))
	assert.False(t, m.HasFragments(2))
}
