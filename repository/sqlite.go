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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/annotation"
	"github.com/exascience/elcontig/bed"
)

const schema = `
create table if not exists load (
	id text primary key,
	started text,
	files text
);
create table if not exists file (
	id integer primary key,
	file_name text,
	filepath text unique
);
create table if not exists contig (
	id integer primary key,
	name text,
	size integer,
	numberReads integer,
	readStartIndex integer,
	readEndIndex integer,
	contigOrder integer,
	coverage real,
	zoomLevels integer,
	maxFragRows integer,
	maxGeneRows integer default 0,
	fileId integer
);
create index if not exists contig_name on contig (name);
create table if not exists contig_seq (
	contigId integer primary key,
	seq blob
);
create table if not exists fragment (
	id integer primary key,
	name text,
	size integer,
	startPos integer,
	endPos integer,
	alignStart integer,
	alignEnd integer,
	qualStart integer,
	qualEnd integer,
	complement boolean,
	seq blob,
	contig_id integer,
	yPos integer,
	numMappings integer
);
create index if not exists fragment_contig on fragment (contig_id, startPos);
create table if not exists snp_pos (
	contig_id integer,
	pos integer,
	variationPercent integer,
	primary key (contig_id, pos)
);
create table if not exists chrom_contig (
	chrom text,
	contigId integer,
	chromStart integer,
	chromEnd integer
);
create table if not exists annotation (
	id integer primary key autoincrement,
	contigId integer,
	startPos integer,
	endPos integer,
	name text,
	annotationTypeId integer,
	fileId integer
);
create index if not exists annotation_contig on annotation (contigId, startPos);
create table if not exists gene (
	geneId integer primary key,
	yPos integer,
	strand boolean
);
create table if not exists gene_structure (
	type integer,
	geneId integer,
	name text,
	startPos integer,
	endPos integer
);
create index if not exists gene_structure_gene on gene_structure (geneId);
`

// SQLite is a Repository backed by an SQLite database.
type SQLite struct {
	db *sqlx.DB
}

/*
OpenSQLite opens or creates the SQLite database at the given path and
makes sure all tables exist. The path ":memory:" opens a private
in-memory database.

The returned repository uses a single connection, which serializes
all writes.
*/
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_busy_timeout=10000&_journal_mode=WAL"
	}
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w, while opening database %v", err, path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w, while creating tables in %v", err, path)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) inTx(f func(tx *sqlx.Tx) error) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// NextIDs returns the highest contig and fragment ids stored so far.
func (s *SQLite) NextIDs() (contigID, fragmentID int32, err error) {
	if err = s.db.Get(&contigID, "select coalesce(max(id), 0) from contig"); err != nil {
		return 0, 0, err
	}
	err = s.db.Get(&fragmentID, "select coalesce(max(id), 0) from fragment")
	return contigID, fragmentID, err
}

// InsertLoad records the start of a load.
func (s *SQLite) InsertLoad(id string, files []string) error {
	_, err := s.db.Exec("insert into load (id, started, files) values (?, ?, ?)",
		id, time.Now().UTC().Format(time.RFC3339), strings.Join(files, "\n"))
	return err
}

// InsertFile stores a file record once per path and returns its id.
func (s *SQLite) InsertFile(name, path string) (id int32, err error) {
	err = s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("insert or ignore into file (file_name, filepath) values (?, ?)", name, path); err != nil {
			return err
		}
		return tx.Get(&id, "select id from file where filepath = ?", path)
	})
	return id, err
}

type contigRow struct {
	ID             int32   `db:"id"`
	Name           string  `db:"name"`
	Size           int32   `db:"size"`
	NumberReads    int32   `db:"numberReads"`
	ReadStartIndex int32   `db:"readStartIndex"`
	ReadEndIndex   int32   `db:"readEndIndex"`
	Order          int32   `db:"contigOrder"`
	Coverage       float64 `db:"coverage"`
	ZoomLevels     int32   `db:"zoomLevels"`
	MaxFragRows    int32   `db:"maxFragRows"`
	MaxGeneRows    int32   `db:"maxGeneRows"`
	FileID         int32   `db:"fileId"`
}

const insertContig = `insert or replace into contig
	(id, name, size, numberReads, readStartIndex, readEndIndex, contigOrder, coverage, zoomLevels, maxFragRows, maxGeneRows, fileId)
	values (:id, :name, :size, :numberReads, :readStartIndex, :readEndIndex, :contigOrder, :coverage, :zoomLevels, :maxFragRows, :maxGeneRows, :fileId)`

// InsertContig stores the contig record and its sequence in one
// transaction.
func (s *SQLite) InsertContig(c *ace.Contig) error {
	row := contigRow{
		ID:             c.ID,
		Name:           c.Name,
		Size:           c.Size,
		NumberReads:    c.NumberReads,
		ReadStartIndex: c.ReadStartIndex,
		ReadEndIndex:   c.ReadEndIndex,
		Order:          c.Order,
		Coverage:       c.Coverage,
		ZoomLevels:     c.ZoomLevels,
		MaxFragRows:    c.MaxFragRows,
		MaxGeneRows:    c.MaxGeneRows,
	}
	if c.File != nil {
		row.FileID = c.File.ID
	}
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExec(insertContig, row); err != nil {
			return err
		}
		_, err := tx.Exec("insert or replace into contig_seq (contigId, seq) values (?, ?)", c.ID, c.Seq)
		return err
	})
}

type fragmentRow struct {
	ID          int32  `db:"id"`
	Name        string `db:"name"`
	Size        int32  `db:"size"`
	StartPos    int32  `db:"startPos"`
	EndPos      int32  `db:"endPos"`
	AlignStart  int32  `db:"alignStart"`
	AlignEnd    int32  `db:"alignEnd"`
	QualStart   int32  `db:"qualStart"`
	QualEnd     int32  `db:"qualEnd"`
	Complement  bool   `db:"complement"`
	Seq         []byte `db:"seq"`
	ContigID    int32  `db:"contig_id"`
	YPos        int32  `db:"yPos"`
	NumMappings int32  `db:"numMappings"`
}

func (r *fragmentRow) fragment() *ace.Fragment {
	return &ace.Fragment{
		ID:          r.ID,
		ContigID:    r.ContigID,
		Name:        r.Name,
		Seq:         r.Seq,
		Size:        r.Size,
		StartPos:    r.StartPos,
		EndPos:      r.EndPos,
		QualStart:   r.QualStart,
		QualEnd:     r.QualEnd,
		AlignStart:  r.AlignStart,
		AlignEnd:    r.AlignEnd,
		Complement:  r.Complement,
		NumMappings: r.NumMappings,
		YPos:        r.YPos,
	}
}

const insertFragment = `insert or replace into fragment
	(id, name, size, startPos, endPos, alignStart, alignEnd, qualStart, qualEnd, complement, seq, contig_id, yPos, numMappings)
	values (:id, :name, :size, :startPos, :endPos, :alignStart, :alignEnd, :qualStart, :qualEnd, :complement, :seq, :contig_id, :yPos, :numMappings)`

// InsertFragments stores the fragments of one contig in one
// transaction.
func (s *SQLite) InsertFragments(contigID int32, fragments []*ace.Fragment) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamed(insertFragment)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range fragments {
			if _, err := stmt.Exec(fragmentRow{
				ID:          f.ID,
				Name:        f.Name,
				Size:        f.Size,
				StartPos:    f.StartPos,
				EndPos:      f.EndPos,
				AlignStart:  f.AlignStart,
				AlignEnd:    f.AlignEnd,
				QualStart:   f.QualStart,
				QualEnd:     f.QualEnd,
				Complement:  f.Complement,
				Seq:         f.Seq,
				ContigID:    contigID,
				YPos:        f.YPos,
				NumMappings: f.NumMappings,
			}); err != nil {
				return fmt.Errorf("%w, while storing fragment %v", err, f.Name)
			}
		}
		return nil
	})
}

const insertSnp = "insert or replace into snp_pos (contig_id, pos, variationPercent) values (?, ?, ?)"

// InsertSnp stores one SNP record.
func (s *SQLite) InsertSnp(contigID, pos, percent int32) error {
	_, err := s.db.Exec(insertSnp, contigID, pos, percent)
	return err
}

// InsertSnps stores the SNPs of one window in one transaction.
func (s *SQLite) InsertSnps(contigID int32, snps []ace.Snp) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		stmt, err := tx.Preparex(insertSnp)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, snp := range snps {
			if _, err := stmt.Exec(contigID, snp.Pos, snp.Percent); err != nil {
				return err
			}
		}
		return nil
	})
}

// ContigSize returns the size of a contig.
func (s *SQLite) ContigSize(contigID int32) (size int32, err error) {
	err = s.db.Get(&size, "select size from contig where id = ?", contigID)
	return size, notFound(err)
}

// Sequence returns the sequence of a contig.
func (s *SQLite) Sequence(contigID int32) (seq []byte, err error) {
	err = s.db.Get(&seq, "select seq from contig_seq where contigId = ?", contigID)
	return seq, notFound(err)
}

// FragmentsInRange returns the fragments of a contig that overlap
// start..end, ordered by start position.
func (s *SQLite) FragmentsInRange(contigID, start, end int32) ([]*ace.Fragment, error) {
	var rows []fragmentRow
	if err := s.db.Select(&rows, `select * from fragment
		where contig_id = ? and startPos <= ? and endPos >= ?
		order by startPos, id`, contigID, end, start); err != nil {
		return nil, err
	}
	fragments := make([]*ace.Fragment, len(rows))
	for i := range rows {
		fragments[i] = rows[i].fragment()
	}
	return fragments, nil
}

// Contigs returns all contigs in display order.
func (s *SQLite) Contigs() (contigs []ContigSummary, err error) {
	err = s.db.Select(&contigs, `select id, contigOrder, name, size, numberReads, coverage,
		zoomLevels, maxFragRows, maxGeneRows, fileId
		from contig order by contigOrder, id`)
	return contigs, err
}

type snpRow struct {
	ContigID int32 `db:"contig_id"`
	Pos      int32 `db:"pos"`
	Percent  int32 `db:"variationPercent"`
}

func (r snpRow) snp() ace.Snp {
	return ace.Snp{ContigID: r.ContigID, Pos: r.Pos, Percent: r.Percent}
}

// Snps returns the SNPs of a contig with a variation percentage of at
// least threshold, ordered by position.
func (s *SQLite) Snps(contigID, threshold int32) ([]ace.Snp, error) {
	var rows []snpRow
	if err := s.db.Select(&rows, `select contig_id, pos, variationPercent from snp_pos
		where contig_id = ? and variationPercent >= ? order by pos`, contigID, threshold); err != nil {
		return nil, err
	}
	snps := make([]ace.Snp, len(rows))
	for i, r := range rows {
		snps[i] = r.snp()
	}
	return snps, nil
}

// NextSnp returns the first SNP after pos with a variation percentage
// of at least threshold.
func (s *SQLite) NextSnp(contigID, pos, threshold int32) (ace.Snp, error) {
	var row snpRow
	err := s.db.Get(&row, `select contig_id, pos, variationPercent from snp_pos
		where contig_id = ? and pos > ? and variationPercent >= ? order by pos limit 1`, contigID, pos, threshold)
	return row.snp(), notFound(err)
}

// PrevSnp returns the last SNP before pos with a variation percentage
// of at least threshold.
func (s *SQLite) PrevSnp(contigID, pos, threshold int32) (ace.Snp, error) {
	var row snpRow
	err := s.db.Get(&row, `select contig_id, pos, variationPercent from snp_pos
		where contig_id = ? and pos < ? and variationPercent >= ? order by pos desc limit 1`, contigID, pos, threshold)
	return row.snp(), notFound(err)
}

// ContigIDs maps contig names onto contig ids.
func (s *SQLite) ContigIDs() (map[string]int32, error) {
	var rows []struct {
		ID   int32  `db:"id"`
		Name string `db:"name"`
	}
	if err := s.db.Select(&rows, "select id, name from contig"); err != nil {
		return nil, err
	}
	ids := make(map[string]int32, len(rows))
	for _, r := range rows {
		ids[r.Name] = r.ID
	}
	return ids, nil
}

// UpdateContigOrder sets the display order of a contig.
func (s *SQLite) UpdateContigOrder(contigID, order int32) error {
	_, err := s.db.Exec("update contig set contigOrder = ? where id = ?", order, contigID)
	return err
}

// ReplacePlacements replaces all chromosome placements.
func (s *SQLite) ReplacePlacements(placements []annotation.Placement) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("delete from chrom_contig"); err != nil {
			return err
		}
		for _, p := range placements {
			if _, err := tx.NamedExec(`insert into chrom_contig (chrom, contigId, chromStart, chromEnd)
				values (:chrom, :contigId, :chromStart, :chromEnd)`, p); err != nil {
				return err
			}
		}
		return nil
	})
}

// Placements returns all chromosome placements.
func (s *SQLite) Placements() (placements []annotation.Placement, err error) {
	err = s.db.Select(&placements, "select chrom, contigId, chromStart, chromEnd from chrom_contig order by chrom, chromStart")
	return placements, err
}

// InsertAnnotations stores annotations in one transaction and sets
// their ids.
func (s *SQLite) InsertAnnotations(annotations []*annotation.Annotation) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamed(`insert into annotation (contigId, startPos, endPos, name, annotationTypeId, fileId)
			values (:contigId, :startPos, :endPos, :name, :annotationTypeId, :fileId)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, a := range annotations {
			result, err := stmt.Exec(a)
			if err != nil {
				return err
			}
			if a.ID, err = result.LastInsertId(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Annotations returns the annotations of a contig that overlap the
// half-open range start..end.
func (s *SQLite) Annotations(contigID, start, end int32) (annotations []annotation.Annotation, err error) {
	err = s.db.Select(&annotations, `select id, contigId, startPos, endPos, name, annotationTypeId, fileId
		from annotation where contigId = ? and startPos < ? and endPos > ?
		order by startPos, id`, contigID, end, start)
	return annotations, err
}

// InsertGenes stores or replaces the display information of genes.
func (s *SQLite) InsertGenes(genes []annotation.Gene) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		for _, g := range genes {
			if _, err := tx.NamedExec("insert or replace into gene (geneId, yPos, strand) values (:geneId, :yPos, :strand)", g); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateMaxGeneRows sets the number of gene tracks of a contig.
func (s *SQLite) UpdateMaxGeneRows(contigID, rows int32) error {
	_, err := s.db.Exec("update contig set maxGeneRows = ? where id = ?", rows, contigID)
	return err
}

// Genes returns the gene annotations of a contig, ordered by start
// position.
func (s *SQLite) Genes(contigID int32) (genes []annotation.GeneAnnotation, err error) {
	err = s.db.Select(&genes, `select a.id, a.contigId, a.startPos, a.endPos, a.name, a.annotationTypeId, a.fileId,
		a.id as geneId, coalesce(g.yPos, -1) as yPos, coalesce(g.strand, 0) as strand
		from annotation a left join gene g on g.geneId = a.id
		where a.contigId = ? and a.annotationTypeId = ?
		order by a.startPos, a.id`, contigID, bed.GeneTrack)
	return genes, err
}

// InsertStructures stores gene sub-structures in one transaction.
func (s *SQLite) InsertStructures(structures []annotation.Structure) error {
	return s.inTx(func(tx *sqlx.Tx) error {
		for _, st := range structures {
			if _, err := tx.NamedExec(`insert into gene_structure (type, geneId, name, startPos, endPos)
				values (:type, :geneId, :name, :startPos, :endPos)`, st); err != nil {
				return err
			}
		}
		return nil
	})
}

// Structures returns the sub-structures of a gene, ordered by start
// position.
func (s *SQLite) Structures(geneID int64) (structures []annotation.Structure, err error) {
	err = s.db.Select(&structures, `select type, geneId, name, startPos, endPos
		from gene_structure where geneId = ? order by startPos`, geneID)
	return structures, err
}
