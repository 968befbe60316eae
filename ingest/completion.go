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

import "sync"

// A completion calls a function once after each of a set of stages
// has signalled, in whatever order the signals arrive.
type completion struct {
	mutex   sync.Mutex
	pending map[Stage]bool
	fired   bool
	done    func()
}

func newCompletion(done func(), stages ...Stage) *completion {
	pending := make(map[Stage]bool, len(stages))
	for _, stage := range stages {
		pending[stage] = true
	}
	return &completion{pending: pending, done: done}
}

// signal marks a stage as finished. Repeated signals and signals for
// stages that are not awaited are ignored.
func (c *completion) signal(stage Stage) {
	c.mutex.Lock()
	if !c.pending[stage] {
		c.mutex.Unlock()
		return
	}
	delete(c.pending, stage)
	fire := len(c.pending) == 0 && !c.fired
	if fire {
		c.fired = true
	}
	c.mutex.Unlock()
	if fire {
		c.done()
	}
}
