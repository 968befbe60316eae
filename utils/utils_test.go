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

package utils

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/pgzip"
)

func TestIntern(t *testing.T) {
	a := "chr" + "1"
	if Intern(a) != Intern("chr1") {
		t.Error("Intern of equal strings failed")
	}
	if Intern("chr1") == Intern("chr2") {
		t.Error("Intern of different strings failed")
	}
	if *Intern("chrX") != "chrX" {
		t.Error("Intern dereference failed")
	}
	if SymbolString(nil) != "" || SymbolString(Intern("+")) != "+" {
		t.Error("SymbolString failed")
	}
	var wg sync.WaitGroup
	symbols := make([]Symbol, 16)
	for i := range symbols {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			symbols[i] = Intern("contig42")
		}(i)
	}
	wg.Wait()
	for _, s := range symbols {
		if s != symbols[0] {
			t.Error("concurrent Intern failed")
		}
	}
}

func TestHandleGzip(t *testing.T) {
	var compressed bytes.Buffer
	w := pgzip.NewWriter(&compressed)
	if _, err := w.Write([]byte("CO contig1 4 0 0 U\n")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	for _, input := range []io.Reader{bytes.NewReader(compressed.Bytes()), strings.NewReader("CO contig1 4 0 0 U\n")} {
		r, err := HandleGzip(bufio.NewReader(input))
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "CO contig1 4 0 0 U\n" {
			t.Errorf("HandleGzip failed, got %q", data)
		}
		if err := r.Close(); err != nil {
			t.Error(err)
		}
	}
	for _, input := range []string{"", "x"} {
		if ok, err := IsGzip(bufio.NewReader(strings.NewReader(input))); ok || err != nil {
			t.Errorf("IsGzip(%q) failed", input)
		}
	}
}
