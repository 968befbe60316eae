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
	"math"
	"sync"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/queue"
)

// saveState tracks, per saving stage, the highest contig id that stage
// has handled, successfully or not. Contig ids grow in the order in
// which contigs are enqueued, and every saver handles contigs in queue
// order.
type saveState struct {
	mutex   sync.Mutex
	cond    sync.Cond
	handled [numStages]int32
	aborted bool
}

func newSaveState() *saveState {
	s := &saveState{}
	s.cond.L = &s.mutex
	return s
}

func (s *saveState) advance(stage Stage, contigID int32) {
	s.mutex.Lock()
	if contigID > s.handled[stage] {
		s.handled[stage] = contigID
	}
	s.mutex.Unlock()
	s.cond.Broadcast()
}

// finish marks a stage as done for all contigs that may still follow.
func (s *saveState) finish(stage Stage) {
	s.advance(stage, math.MaxInt32)
}

func (s *saveState) abort() {
	s.mutex.Lock()
	s.aborted = true
	s.mutex.Unlock()
	s.cond.Broadcast()
}

func (s *saveState) reached(contigID int32, stages []Stage) bool {
	for _, stage := range stages {
		if s.handled[stage] < contigID {
			return false
		}
	}
	return true
}

// waitFor blocks until all given stages have handled the contig. It
// returns false if the load is aborted first.
func (s *saveState) waitFor(contigID int32, stages []Stage) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for !s.aborted && !s.reached(contigID, stages) {
		s.cond.Wait()
	}
	return !s.aborted
}

// retain releases the sequence and fragments of each contig once all
// savers that read them are done with it.
func (r *run) retain(q *queue.Queue[*ace.Contig]) {
	stages := []Stage{StageContigs, StageFragments}
	if r.config.RetainUntilSnps {
		stages = append(stages, StageSnps)
	}
	for {
		c, ok := q.Pop()
		if !ok {
			return
		}
		if !r.state.waitFor(c.ID, stages) {
			return
		}
		c.Release()
		r.emit(Event{Kind: EventContigReleased, ContigID: c.ID})
	}
}
