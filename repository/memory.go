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
	"sort"
	"sync"

	"github.com/exascience/elcontig/ace"
)

/*
Memory is a Repository that keeps copies of all records in memory.

The Fail hooks, when set, are called before each write and make it fail
without storing anything when they return an error.
*/
type Memory struct {
	FailContig    func(contigID int32) error
	FailFragments func(contigID int32) error
	FailSnps      func(contigID int32) error

	mutex     sync.Mutex
	files     map[string]int32
	contigs   map[int32]ace.Contig
	fragments map[int32][]ace.Fragment
	snps      map[int32]map[int32]int32
}

// NewMemory allocates an empty in-memory repository.
func NewMemory() *Memory {
	return &Memory{
		files:     make(map[string]int32),
		contigs:   make(map[int32]ace.Contig),
		fragments: make(map[int32][]ace.Fragment),
		snps:      make(map[int32]map[int32]int32),
	}
}

// InsertFile stores a file record once per path and returns its id.
func (m *Memory) InsertFile(name, path string) (int32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if id, ok := m.files[path]; ok {
		return id, nil
	}
	id := int32(len(m.files) + 1)
	m.files[path] = id
	return id, nil
}

// InsertContig stores a copy of the contig record and its sequence.
func (m *Memory) InsertContig(c *ace.Contig) error {
	if m.FailContig != nil {
		if err := m.FailContig(c.ID); err != nil {
			return err
		}
	}
	record := *c
	record.Seq = append([]byte(nil), c.Seq...)
	record.Fragments = nil
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.contigs[c.ID] = record
	return nil
}

// InsertFragments stores copies of the fragments of one contig.
func (m *Memory) InsertFragments(contigID int32, fragments []*ace.Fragment) error {
	if m.FailFragments != nil {
		if err := m.FailFragments(contigID); err != nil {
			return err
		}
	}
	records := make([]ace.Fragment, len(fragments))
	for i, f := range fragments {
		records[i] = *f
		records[i].ContigID = contigID
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.fragments[contigID] = append(m.fragments[contigID], records...)
	return nil
}

func (m *Memory) insertSnp(contigID, pos, percent int32) {
	table := m.snps[contigID]
	if table == nil {
		table = make(map[int32]int32)
		m.snps[contigID] = table
	}
	table[pos] = percent
}

// InsertSnp stores one SNP record.
func (m *Memory) InsertSnp(contigID, pos, percent int32) error {
	return m.InsertSnps(contigID, []ace.Snp{{ContigID: contigID, Pos: pos, Percent: percent}})
}

// InsertSnps stores the SNPs of one window.
func (m *Memory) InsertSnps(contigID int32, snps []ace.Snp) error {
	if m.FailSnps != nil {
		if err := m.FailSnps(contigID); err != nil {
			return err
		}
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, snp := range snps {
		m.insertSnp(contigID, snp.Pos, snp.Percent)
	}
	return nil
}

// ContigSize returns the size of a contig.
func (m *Memory) ContigSize(contigID int32) (int32, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.contigs[contigID]
	if !ok {
		return 0, ErrNotFound
	}
	return c.Size, nil
}

// Sequence returns the sequence of a contig.
func (m *Memory) Sequence(contigID int32) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.contigs[contigID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), c.Seq...), nil
}

// FragmentsInRange returns the fragments of a contig that overlap
// start..end, ordered by start position.
func (m *Memory) FragmentsInRange(contigID, start, end int32) ([]*ace.Fragment, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var result []*ace.Fragment
	for i := range m.fragments[contigID] {
		f := m.fragments[contigID][i]
		if f.StartPos <= end && f.EndPos >= start {
			result = append(result, &f)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartPos < result[j].StartPos
	})
	return result, nil
}

// Contig returns a copy of a stored contig record.
func (m *Memory) Contig(contigID int32) (ace.Contig, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	c, ok := m.contigs[contigID]
	return c, ok
}

// HasFragments reports whether fragments of a contig are stored.
func (m *Memory) HasFragments(contigID int32) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.fragments[contigID]
	return ok
}

// NumContigs returns the number of stored contigs.
func (m *Memory) NumContigs() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.contigs)
}

// Snps returns the SNPs of a contig with a variation percentage of at
// least threshold, ordered by position.
func (m *Memory) Snps(contigID, threshold int32) ([]ace.Snp, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var snps []ace.Snp
	for pos, percent := range m.snps[contigID] {
		if percent >= threshold {
			snps = append(snps, ace.Snp{ContigID: contigID, Pos: pos, Percent: percent})
		}
	}
	sort.Slice(snps, func(i, j int) bool {
		return snps[i].Pos < snps[j].Pos
	})
	return snps, nil
}
