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
	"io"

	"github.com/klauspost/pgzip"
)

// IsGzip checks if the given reader produces a gzip stream by peeking
// at the two magic bytes.
func IsGzip(buf *bufio.Reader) (bool, error) {
	magic, err := buf.Peek(2)
	if err == io.EOF || (err == nil && len(magic) < 2) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return magic[0] == 0x1f && magic[1] == 0x8b, nil
}

// HandleGzip returns a pgzip reader if the given reader produces a
// gzip stream, or the given reader unchanged otherwise. The returned
// reader must be closed.
func HandleGzip(buf *bufio.Reader) (io.ReadCloser, error) {
	if ok, err := IsGzip(buf); err != nil {
		return nil, err
	} else if ok {
		return pgzip.NewReader(buf)
	}
	return io.NopCloser(buf), nil
}
