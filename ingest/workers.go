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

package ingest

import (
	"fmt"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/queue"
	"github.com/exascience/elcontig/snp"
)

// A fragmentItem is one entry of the fragment queue. The last fragment
// of a contig is flagged, so that its batch can be written without
// waiting for the next contig. Contigs without fragments are announced
// with a nil fragment.
type fragmentItem struct {
	contigID int32
	fragment *ace.Fragment
	last     bool
}

func (r *run) saveContigs(q *queue.Queue[*ace.Contig]) {
	defer r.stageFinished(StageContigs)
	files := make(map[*ace.File]int32)
	for {
		c, ok := q.Pop()
		if !ok {
			return
		}
		if err := r.saveContig(c, files); err != nil {
			r.fail(c.ID, StageContigs, err)
		}
		r.state.advance(StageContigs, c.ID)
	}
}

func (r *run) saveContig(c *ace.Contig, files map[*ace.File]int32) error {
	if c.File != nil {
		id, ok := files[c.File]
		if !ok {
			var err error
			if id, err = r.repo.InsertFile(c.File.Name, c.File.Path); err != nil {
				return fmt.Errorf("%w, while storing file record for %v", err, c.File.Path)
			}
			files[c.File] = id
		}
		c.File.ID = id
	}
	if err := r.repo.InsertContig(c); err != nil {
		return fmt.Errorf("%w, while storing contig %v", err, c.Name)
	}
	return nil
}

func (r *run) saveFragments(q *queue.Queue[fragmentItem]) {
	defer r.stageFinished(StageFragments)
	var (
		current int32
		batch   []*ace.Fragment
	)
	flush := func() {
		if current == 0 {
			return
		}
		if len(batch) > 0 {
			if err := r.repo.InsertFragments(current, batch); err != nil {
				r.fail(current, StageFragments, fmt.Errorf("%w, while storing %v fragments", err, len(batch)))
			}
		}
		r.state.advance(StageFragments, current)
		current, batch = 0, nil
	}
	for {
		item, ok := q.Pop()
		if !ok {
			flush()
			return
		}
		if item.contigID != current {
			flush()
			current = item.contigID
		}
		if item.fragment != nil {
			batch = append(batch, item.fragment)
		}
		if item.last {
			flush()
		}
	}
}

func (r *run) saveSnps(q *queue.Queue[*ace.Contig]) {
	defer r.stageFinished(StageSnps)
	for {
		c, ok := q.Pop()
		if !ok {
			return
		}
		err := snp.Locate(r.ctx, c, r.config.SnpWindow, func(snps []ace.Snp) error {
			return r.repo.InsertSnps(c.ID, snps)
		})
		if err != nil && r.ctx.Err() == nil {
			r.fail(c.ID, StageSnps, fmt.Errorf("%w, while storing SNPs", err))
		}
		r.state.advance(StageSnps, c.ID)
	}
}

// variantView returns the contig the variant saver works on. When
// retention does not wait for SNPs, that is a copy whose sequence and
// fragments survive the release of the original.
func (r *run) variantView(c *ace.Contig) *ace.Contig {
	if r.config.RetainUntilSnps {
		return c
	}
	view := *c
	view.Fragments = append(ace.Fragments(nil), c.Fragments...)
	return &view
}
