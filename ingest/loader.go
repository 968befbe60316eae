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

/*
Package ingest coordinates the concurrent loading of ACE files into a
repository.

A load runs one parser goroutine and one goroutine each for saving
contigs, saving fragments, saving SNPs and releasing memory. They are
connected by bounded queues, so a slow repository throttles the parser.
*/
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/layout"
	"github.com/exascience/elcontig/queue"
	"github.com/exascience/elcontig/repository"
)

var errAborted = errors.New("load aborted")

// A LoadRecorder is a repository that keeps a record of each load.
type LoadRecorder interface {
	InsertLoad(id string, files []string) error
}

// A Loader loads ACE files into a repository.
type Loader struct {
	Repo   repository.Repository
	Config Config
	// Events, when set, receives all events of a load. Events are never
	// delivered concurrently.
	Events func(Event)
}

// NewLoader returns a Loader with the default configuration.
func NewLoader(repo repository.Repository) *Loader {
	return &Loader{Repo: repo, Config: DefaultConfig()}
}

// A Failure describes a contig that could not be stored completely.
type Failure struct {
	ContigID int32
	Stage    Stage
	Err      error
}

// Result summarizes a load.
type Result struct {
	LoadID  string
	Contigs int
	Failed  []Failure
}

type run struct {
	ctx    context.Context
	repo   repository.Repository
	config Config
	loadID string
	state  *saveState
	done   *completion

	eventMutex sync.Mutex
	events     func(Event)

	failMutex sync.Mutex
	failed    []Failure
}

func (r *run) emit(event Event) {
	if r.events == nil {
		return
	}
	event.LoadID = r.loadID
	r.eventMutex.Lock()
	defer r.eventMutex.Unlock()
	r.events(event)
}

func (r *run) fail(contigID int32, stage Stage, err error) {
	log.Printf("Error: %v, contig id %v, %v stage", err, contigID, stage)
	r.failMutex.Lock()
	r.failed = append(r.failed, Failure{ContigID: contigID, Stage: stage, Err: err})
	r.failMutex.Unlock()
	r.emit(Event{Kind: EventError, Stage: stage, ContigID: contigID, Err: err})
}

func (r *run) stageFinished(stage Stage) {
	if stage != StageParse {
		r.state.finish(stage)
	}
	r.emit(Event{Kind: EventStageFinished, Stage: stage})
	r.done.signal(stage)
}

/*
Load parses the given ACE files and stores their contigs, fragments and
SNPs in the repository.

Load returns the first fatal error: ace.ErrNoContigs when the files
hold no contigs, a format or I/O error of the parser, or the context
error on cancellation. A failure to store a contig only aborts that
contig. It is reported as an EventError and listed in Result.Failed.
*/
func (l *Loader) Load(ctx context.Context, paths []string) (*Result, error) {
	config := l.Config
	if err := config.Validate(); err != nil {
		return nil, err
	}
	r := &run{
		ctx:    ctx,
		repo:   l.Repo,
		config: config,
		loadID: uuid.New().String(),
		state:  newSaveState(),
		events: l.Events,
	}
	result := &Result{LoadID: r.loadID}
	if recorder, ok := l.Repo.(LoadRecorder); ok {
		if err := recorder.InsertLoad(r.loadID, paths); err != nil {
			return result, fmt.Errorf("%w, while recording load %v", err, r.loadID)
		}
	}

	var (
		parseErr error
		finished = make(chan struct{})
	)
	r.done = newCompletion(func() {
		r.emit(Event{Kind: EventFinished, Err: parseErr})
		close(finished)
	}, StageParse, StageContigs, StageFragments)

	contigQ := queue.New[*ace.Contig](config.ContigQueueSize)
	retainQ := queue.New[*ace.Contig](config.ContigQueueSize)
	fragmentQ := queue.New[fragmentItem](config.FragmentQueueSize)
	var snpQ *queue.Queue[*ace.Contig]
	if config.CallVariants {
		snpQ = queue.New[*ace.Contig](config.ContigQueueSize)
	}

	abort := func() {
		contigQ.Abort()
		retainQ.Abort()
		fragmentQ.Abort()
		if snpQ != nil {
			snpQ.Abort()
		}
		r.state.abort()
	}
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		select {
		case <-ctx.Done():
			abort()
		case <-watcherDone:
		}
	}()

	r.emit(Event{Kind: EventStarted})
	r.emit(Event{Kind: EventTotalSize, Bytes: ace.TotalSize(paths)})

	parser := ace.NewParser(config.parserOptions())
	parser.OnProgress = func(parsed int64) {
		r.emit(Event{Kind: EventProgress, Bytes: parsed})
	}
	parser.OnMessage = func(msg string) {
		r.emit(Event{Kind: EventMessage, Message: msg})
	}
	parser.OnContig = func(c *ace.Contig) error {
		window := config.LayoutWindow
		if window <= 0 {
			window = c.AverageFragmentLength()
		}
		rows, err := layout.Assign(ctx, c.Fragments, c.Size, window, config.DescriptorGap)
		if err != nil {
			return err
		}
		c.MaxFragRows = rows
		fragments := c.Fragments
		if !contigQ.Push(c) {
			return errAborted
		}
		if snpQ != nil && !snpQ.Push(r.variantView(c)) {
			return errAborted
		}
		for i, f := range fragments {
			if !fragmentQ.Push(fragmentItem{contigID: c.ID, fragment: f, last: i == len(fragments)-1}) {
				return errAborted
			}
		}
		if len(fragments) == 0 && !fragmentQ.Push(fragmentItem{contigID: c.ID, last: true}) {
			return errAborted
		}
		if !retainQ.Push(c) {
			return errAborted
		}
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		r.saveContigs(contigQ)
	}()
	go func() {
		defer wg.Done()
		r.saveFragments(fragmentQ)
	}()
	go func() {
		defer wg.Done()
		r.retain(retainQ)
	}()
	if snpQ != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.saveSnps(snpQ)
		}()
	}
	go func() {
		defer wg.Done()
		parseErr = parser.Parse(ctx, paths)
		result.Contigs = parser.Contigs()
		contigQ.Finish(nil)
		fragmentQ.Finish(fragmentItem{})
		if snpQ != nil {
			snpQ.Finish(nil)
		}
		retainQ.Finish(nil)
		r.stageFinished(StageParse)
	}()

	wg.Wait()
	<-finished

	result.Failed = r.failed
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if parseErr != nil {
		return result, parseErr
	}
	return result, nil
}
