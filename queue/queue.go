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

// Package queue implements the bounded transfer queues that connect the
// ACE parser to the persistence workers.
package queue

import "sync"

/*
A Queue is a bounded FIFO queue for one producer and one or more
consumers.

Push blocks while the queue holds Cap() elements. Pop blocks while the
queue is empty and more data is expected. Once the producer calls
Finish, Pop drains the remaining elements and then reports that no
more data is coming.

The zero Queue is not valid, use New.
*/
type Queue[T any] struct {
	mutex    sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	buf      []T
	head     int
	size     int
	more     bool
	aborted  bool
	sentinel T
	hasSent  bool
}

// New allocates a queue that holds at most capacity elements. A
// capacity < 1 is treated as 1.
func New[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	q := &Queue[T]{buf: make([]T, capacity), more: true}
	q.notFull.L = &q.mutex
	q.notEmpty.L = &q.mutex
	return q
}

// Cap returns the maximum number of elements the queue holds.
func (q *Queue[T]) Cap() int {
	return len(q.buf)
}

// Len returns the number of elements currently in the queue.
func (q *Queue[T]) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.size
}

// More reports whether the producer may still push elements.
func (q *Queue[T]) More() bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.more
}

/*
Push appends v to the queue, blocking while the queue is full.

Push returns false without queuing v if the queue was aborted or
finished.
*/
func (q *Queue[T]) Push(v T) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for q.size == len(q.buf) && q.more && !q.aborted {
		q.notFull.Wait()
	}
	if !q.more || q.aborted {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = v
	q.size++
	q.notEmpty.Signal()
	return true
}

/*
Pop removes and returns the oldest element of the queue.

Pop blocks while the queue is empty and more data is expected. When
the queue is drained after Finish, Pop returns the end-of-stream
sentinel and false. Each consumer that arrives after the drain sees
the sentinel, so one Finish wakes all of them. After Abort, Pop
returns the zero value and false immediately.
*/
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	for q.size == 0 && q.more && !q.aborted {
		q.notEmpty.Wait()
	}
	if q.aborted {
		return v, false
	}
	if q.size == 0 {
		if q.hasSent {
			return q.sentinel, false
		}
		return v, false
	}
	var zero T
	v = q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	q.notFull.Signal()
	return v, true
}

/*
Finish marks the end of the stream. The sentinel is handed to every
consumer that pops after the last real element. Finish may be called
only once; later calls have no effect.
*/
func (q *Queue[T]) Finish(sentinel T) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	if !q.more {
		return
	}
	q.more = false
	q.sentinel = sentinel
	q.hasSent = true
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Abort wakes all blocked producers and consumers and makes every
// subsequent Push and Pop fail.
func (q *Queue[T]) Abort() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.aborted = true
	q.more = false
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}
