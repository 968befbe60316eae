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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/repository"
)

// Each contig has two reads, the second with one mismatch.
func aceData(prefix string, contigs int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "AS %v %v\n\n", contigs, 2*contigs)
	for i := 1; i <= contigs; i++ {
		fmt.Fprintf(&sb, "CO %v%v 10 2 1 U\nACGTACGTAC\n\n", prefix, i)
		fmt.Fprintf(&sb, "AF %vr%va U 1\nAF %vr%vb U 3\n\n", prefix, i, prefix, i)
		fmt.Fprintf(&sb, "RD %vr%va 5 0 0\nACGTA\n\nQA 1 5 1 5\n\n", prefix, i)
		fmt.Fprintf(&sb, "RD %vr%vb 5 0 0\nGTTCG\n\nQA 1 5 1 5\n\n", prefix, i)
	}
	return sb.String()
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

type eventLog struct {
	mutex  sync.Mutex
	events []Event
}

func (l *eventLog) record(e Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) count(kind EventKind) (n int) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, e := range l.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) last(kind EventKind) (event Event) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, e := range l.events {
		if e.Kind == kind {
			event = e
		}
	}
	return event
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.ace", aceData("a", 3)),
		writeFile(t, dir, "b.ace", aceData("b", 3)),
	}
	repo := repository.NewMemory()
	events := &eventLog{}
	loader := NewLoader(repo)
	loader.Events = events.record

	result, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 6, result.Contigs)
	assert.Empty(t, result.Failed)
	assert.NotEmpty(t, result.LoadID)

	assert.Equal(t, 6, repo.NumContigs())
	for id := int32(1); id <= 6; id++ {
		c, ok := repo.Contig(id)
		require.True(t, ok, "contig %v missing", id)
		assert.EqualValues(t, 10, c.Size)
		assert.EqualValues(t, 2, c.MaxFragRows)
		fragments, err := repo.FragmentsInRange(id, 1, 10)
		require.NoError(t, err)
		assert.Len(t, fragments, 2)
		snps, err := repo.Snps(id, 0)
		require.NoError(t, err)
		assert.Equal(t, []ace.Snp{{ContigID: id, Pos: 4, Percent: 50}}, snps)
	}

	assert.Equal(t, 1, events.count(EventStarted))
	assert.Equal(t, 1, events.count(EventFinished))
	assert.Equal(t, int(numStages), events.count(EventStageFinished))
	assert.Equal(t, 6, events.count(EventContigReleased))
	assert.Equal(t, 0, events.count(EventError))
	assert.Equal(t, ace.TotalSize(paths), events.last(EventTotalSize).Bytes)
	assert.Equal(t, ace.TotalSize(paths), events.last(EventProgress).Bytes)
	assert.GreaterOrEqual(t, events.count(EventMessage), 2)
	for _, e := range events.events {
		assert.Equal(t, result.LoadID, e.LoadID)
	}
}

func TestReleaseAfterSave(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 20))
	repo := repository.NewMemory()
	loader := NewLoader(repo)
	loader.Config.ContigQueueSize = 2
	loader.Config.FragmentQueueSize = 3

	var released []int32
	loader.Events = func(e Event) {
		if e.Kind != EventContigReleased {
			return
		}
		released = append(released, e.ContigID)
		_, ok := repo.Contig(e.ContigID)
		assert.True(t, ok, "contig %v released before it was stored", e.ContigID)
		assert.True(t, repo.HasFragments(e.ContigID), "contig %v released before its fragments were stored", e.ContigID)
		snps, _ := repo.Snps(e.ContigID, 0)
		assert.NotEmpty(t, snps, "contig %v released before its SNPs were stored", e.ContigID)
	}

	_, err := loader.Load(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, released, 20)
	for i, id := range released {
		assert.EqualValues(t, i+1, id, "contigs released out of order")
	}
}

func TestPersistenceFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 4))
	repo := repository.NewMemory()
	failure := errors.New("disk full")
	repo.FailFragments = func(contigID int32) error {
		if contigID == 2 {
			return failure
		}
		return nil
	}
	events := &eventLog{}
	loader := NewLoader(repo)
	loader.Events = events.record

	result, err := loader.Load(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, result.Failed, 1)
	assert.EqualValues(t, 2, result.Failed[0].ContigID)
	assert.Equal(t, StageFragments, result.Failed[0].Stage)
	assert.ErrorIs(t, result.Failed[0].Err, failure)

	assert.False(t, repo.HasFragments(2))
	for _, id := range []int32{1, 3, 4} {
		assert.True(t, repo.HasFragments(id))
	}
	assert.Equal(t, 1, events.count(EventError))
	assert.Equal(t, 4, events.count(EventContigReleased))
	assert.Equal(t, 1, events.count(EventFinished))
}

func TestNoContigs(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.ace", "AS 0 0\n\n")
	events := &eventLog{}
	loader := NewLoader(repository.NewMemory())
	loader.Events = events.record

	_, err := loader.Load(context.Background(), []string{path})
	assert.ErrorIs(t, err, ace.ErrNoContigs)
	assert.Equal(t, 1, events.count(EventFinished))
	assert.ErrorIs(t, events.last(EventFinished).Err, ace.ErrNoContigs)
}

func TestFormatError(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.ace", aceData("a", 2)),
		writeFile(t, dir, "b.ace", "CO broken\n"),
		writeFile(t, dir, "c.ace", aceData("c", 2)),
	}
	repo := repository.NewMemory()
	result, err := NewLoader(repo).Load(context.Background(), paths)
	var ferr *ace.FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Equal(t, 2, result.Contigs)
	assert.Equal(t, 2, repo.NumContigs())
}

func TestUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "missing.ace"),
		writeFile(t, dir, "a.ace", aceData("a", 2)),
	}
	loader := NewLoader(repository.NewMemory())
	_, err := loader.Load(context.Background(), paths)
	assert.ErrorIs(t, err, os.ErrNotExist)

	loader.Config.SkipUnreadable = true
	result, err := loader.Load(context.Background(), paths)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Contigs)
}

func TestCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	repo := repository.NewMemory()
	_, err := NewLoader(repo).Load(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.NumContigs())
}

func TestCancelDuringLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 50))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := repository.NewMemory()
	repo.FailContig = func(contigID int32) error {
		if contigID == 3 {
			cancel()
		}
		return nil
	}
	loader := NewLoader(repo)
	loader.Config.ContigQueueSize = 1
	_, err := loader.Load(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, repo.NumContigs(), 50)
}

func TestWithoutVariants(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 3))
	repo := repository.NewMemory()
	events := &eventLog{}
	loader := NewLoader(repo)
	loader.Config.CallVariants = false
	loader.Events = events.record

	_, err := loader.Load(context.Background(), []string{path})
	require.NoError(t, err)
	snps, err := repo.Snps(1, 0)
	require.NoError(t, err)
	assert.Empty(t, snps)
	assert.Equal(t, int(numStages)-1, events.count(EventStageFinished))
	assert.Equal(t, 3, events.count(EventContigReleased))
}

func TestEarlyRelease(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.ace", aceData("c", 10))
	repo := repository.NewMemory()
	loader := NewLoader(repo)
	loader.Config.RetainUntilSnps = false

	_, err := loader.Load(context.Background(), []string{path})
	require.NoError(t, err)
	for id := int32(1); id <= 10; id++ {
		snps, err := repo.Snps(id, 0)
		require.NoError(t, err)
		assert.Len(t, snps, 1)
	}
}

func TestConfigValidate(t *testing.T) {
	config := DefaultConfig()
	assert.NoError(t, config.Validate())

	config.CallVariants = false
	require.NoError(t, config.Validate())
	assert.False(t, config.RetainUntilSnps)

	for _, mutate := range []func(*Config){
		func(c *Config) { c.ContigQueueSize = 0 },
		func(c *Config) { c.FragmentQueueSize = -1 },
		func(c *Config) { c.LayoutWindow = -5 },
		func(c *Config) { c.DescriptorGap = -1 },
		func(c *Config) { c.SnpWindow = 0 },
		func(c *Config) { c.ContigIDOffset = -1 },
	} {
		config := DefaultConfig()
		mutate(&config)
		assert.Error(t, config.Validate())
	}
}
