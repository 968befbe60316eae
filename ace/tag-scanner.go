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

package ace

import (
	"fmt"
	"strconv"
)

/*
A scanner to scan/parse the whitespace-separated fields of tagged
lines in ACE files.

The zero tagScanner is valid and empty.
*/
type tagScanner struct {
	index int
	data  string
	err   error
}

/*
Returns the error that occurred during scanning/parsing.
*/
func (sc *tagScanner) Err() error {
	return sc.err
}

/*
Resets the scanner, and initializes it with the given string.
*/
func (sc *tagScanner) Reset(s string) {
	sc.index = 0
	sc.data = s
	sc.err = nil
}

/*
Returns the number of ASCII characters that still need to be
scanned/parsed. Returns 0 if Err() would return a non-nil value.
*/
func (sc *tagScanner) Len() int {
	if sc.err != nil {
		return 0
	}
	return len(sc.data) - sc.index
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r'
}

func (sc *tagScanner) skipSpace() {
	for sc.index < len(sc.data) && isSpace(sc.data[sc.index]) {
		sc.index++
	}
}

// readField returns the next field, or "" and false if the line is
// exhausted.
func (sc *tagScanner) readField() (s string, found bool) {
	if sc.err != nil {
		return "", false
	}
	sc.skipSpace()
	start := sc.index
	for sc.index < len(sc.data) && !isSpace(sc.data[sc.index]) {
		sc.index++
	}
	if start == sc.index {
		return "", false
	}
	return sc.data[start:sc.index], true
}

func (sc *tagScanner) readString(what string) string {
	s, found := sc.readField()
	if !found && sc.err == nil {
		sc.err = fmt.Errorf("missing %v", what)
	}
	return s
}

func (sc *tagScanner) readInt32(what string) int32 {
	s, found := sc.readField()
	if !found {
		if sc.err == nil {
			sc.err = fmt.Errorf("missing %v", what)
		}
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		sc.err = fmt.Errorf("invalid %v %q", what, s)
		return 0
	}
	return int32(n)
}

// readComplement parses a U/C or +/- orientation flag.
func (sc *tagScanner) readComplement(what string) bool {
	s, found := sc.readField()
	if !found {
		if sc.err == nil {
			sc.err = fmt.Errorf("missing %v", what)
		}
		return false
	}
	switch s {
	case "C", "c", "-":
		return true
	case "U", "u", "+":
		return false
	default:
		sc.err = fmt.Errorf("invalid %v %q", what, s)
		return false
	}
}
