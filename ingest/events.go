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

import "strconv"

// An EventKind identifies the kind of an Event.
type EventKind int

// Event kinds.
const (
	// Bytes holds the summed size of all input files.
	EventTotalSize EventKind = iota
	// Bytes holds the number of bytes parsed so far.
	EventProgress
	// Message holds a file boundary or status message.
	EventMessage
	EventStarted
	// Sent exactly once, after parsing, contig saving and fragment
	// saving are all done. Err holds the error of the load, if any.
	EventFinished
	// Stage holds the stage that finished.
	EventStageFinished
	// ContigID holds the contig whose memory was released.
	EventContigReleased
	// Stage, ContigID and Err describe a failed write.
	EventError
)

var eventKindNames = [...]string{
	"total-size", "progress", "message", "started", "finished", "stage-finished", "contig-released", "error",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return "EventKind(" + strconv.Itoa(int(k)) + ")"
	}
	return eventKindNames[k]
}

// A Stage is one of the concurrent activities of a load.
type Stage int

// Stages.
const (
	StageParse Stage = iota
	StageContigs
	StageFragments
	StageSnps
	numStages
)

var stageNames = [...]string{"parse", "contigs", "fragments", "snps"}

func (s Stage) String() string {
	if s < 0 || s >= numStages {
		return "Stage(" + strconv.Itoa(int(s)) + ")"
	}
	return stageNames[s]
}

// An Event reports the progress of a load.
type Event struct {
	Kind     EventKind
	LoadID   string
	Bytes    int64
	Message  string
	Stage    Stage
	ContigID int32
	Err      error
}
