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

package queue

import (
	"sync"
	"testing"
	"time"
)

func TestFIFO(t *testing.T) {
	q := New[int](4)
	for i := 1; i <= 4; i++ {
		if !q.Push(i) {
			t.Error("Push failed")
		}
	}
	q.Finish(-1)
	for i := 1; i <= 4; i++ {
		if v, ok := q.Pop(); !ok || v != i {
			t.Errorf("Pop failed, got %v %v, expected %v", v, ok, i)
		}
	}
	if v, ok := q.Pop(); ok || v != -1 {
		t.Errorf("Pop after drain failed, got %v %v", v, ok)
	}
	if q.Push(5) {
		t.Error("Push after Finish succeeded")
	}
}

func TestWrapAround(t *testing.T) {
	q := New[int](3)
	next := 0
	for round := 0; round < 10; round++ {
		q.Push(round*2 + 0)
		q.Push(round*2 + 1)
		for j := 0; j < 2; j++ {
			v, ok := q.Pop()
			if !ok || v != next {
				t.Fatalf("Pop failed, got %v, expected %v", v, next)
			}
			next++
		}
	}
}

func TestBackpressure(t *testing.T) {
	const capacity = 3
	q := New[int](capacity)
	pushed := make(chan int, 2*capacity)
	go func() {
		for i := 0; i < 2*capacity; i++ {
			q.Push(i)
			pushed <- i
		}
	}()
	for i := 0; i < capacity; i++ {
		<-pushed
	}
	select {
	case i := <-pushed:
		t.Fatalf("Push of element %v did not block on a full queue", i)
	case <-time.After(50 * time.Millisecond):
	}
	if n := q.Len(); n > capacity {
		t.Errorf("queue size %v exceeds capacity %v", n, capacity)
	}
	if _, ok := q.Pop(); !ok {
		t.Fatal("Pop failed")
	}
	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("Push did not resume after Pop")
	}
	if n := q.Len(); n > capacity {
		t.Errorf("queue size %v exceeds capacity %v", n, capacity)
	}
}

func TestFinishWakesAllConsumers(t *testing.T) {
	q := New[string](2)
	var wg sync.WaitGroup
	results := make([]string, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = q.Pop()
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	q.Finish("eos")
	wg.Wait()
	for i, r := range results {
		if r != "eos" {
			t.Errorf("consumer %v got %q, expected the sentinel", i, r)
		}
	}
	if q.More() {
		t.Error("More after Finish")
	}
}

func TestAbort(t *testing.T) {
	q := New[int](1)
	q.Push(1)
	done := make(chan bool)
	go func() {
		done <- q.Push(2)
	}()
	time.Sleep(20 * time.Millisecond)
	q.Abort()
	if <-done {
		t.Error("blocked Push succeeded after Abort")
	}
	if _, ok := q.Pop(); ok {
		t.Error("Pop succeeded after Abort")
	}
}

func BenchmarkQueue(b *testing.B) {
	q := New[int](1024)
	go func() {
		for i := 0; i < b.N; i++ {
			q.Push(i)
		}
		q.Finish(-1)
	}()
	for {
		if _, ok := q.Pop(); !ok {
			break
		}
	}
}
