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

package annotation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/elcontig/bed"
)

// A FileEntry names an annotation file and the type of its tracks.
type FileEntry struct {
	File  string
	Type  bed.TrackType
	Alias string
	// Take the type of each track from its track line instead.
	Detect bool
}

// A SequenceEntry places a contig on a chromosome. Start and End are
// inclusive.
type SequenceEntry struct {
	Chrom  string
	Start  int32
	End    int32
	Contig string
}

// An Order is the content of an order file.
type Order struct {
	Annotations []FileEntry
	Sequences   []SequenceEntry
}

const (
	annotationSection = "[annotation files]"
	sequenceSection   = "[sequence files]"
)

type orderSection int

const (
	noSection orderSection = iota
	inAnnotations
	inSequences
)

func parseInt32(s, what string) (int32, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %v %q", what, s)
	}
	return int32(value), nil
}

/*
ParseOrder parses an order file.

An order file has an annotation section and a sequence section, each
introduced by a header line and optionally closed by the matching
[/...] line. Lines starting with # and blank lines are ignored.

	[annotation files]
	genes.bed	gene
	snps.bed	snp	dbSNP
	[sequence files]
	chr1	1	5000	contig1
*/
func ParseOrder(r io.Reader) (*Order, error) {
	order := &Order{}
	section := noSection
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		switch strings.ToLower(trimmed) {
		case annotationSection:
			section = inAnnotations
			continue
		case sequenceSection:
			section = inSequences
			continue
		case "[/annotation files]", "[/sequence files]":
			section = noSection
			continue
		}
		fields := strings.Split(line, "\t")
		switch section {
		case inAnnotations:
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %v: expected file name and annotation type", lineNo)
			}
			t, err := bed.ParseTrackType(fields[1])
			if err != nil {
				return nil, fmt.Errorf("%w, in line %v", err, lineNo)
			}
			entry := FileEntry{File: strings.TrimSpace(fields[0]), Type: t}
			if len(fields) > 2 {
				entry.Alias = strings.TrimSpace(fields[2])
			}
			order.Annotations = append(order.Annotations, entry)
		case inSequences:
			if len(fields) != 4 {
				return nil, fmt.Errorf("line %v: expected chromosome, start, end and contig name", lineNo)
			}
			start, err := parseInt32(fields[1], "start")
			if err != nil {
				return nil, fmt.Errorf("%w, in line %v", err, lineNo)
			}
			end, err := parseInt32(fields[2], "end")
			if err != nil {
				return nil, fmt.Errorf("%w, in line %v", err, lineNo)
			}
			if end < start {
				return nil, fmt.Errorf("line %v: end %v before start %v", lineNo, end, start)
			}
			order.Sequences = append(order.Sequences, SequenceEntry{
				Chrom:  strings.TrimSpace(fields[0]),
				Start:  start,
				End:    end,
				Contig: strings.TrimSpace(fields[3]),
			})
		default:
			return nil, fmt.Errorf("line %v: %q outside of a section", lineNo, trimmed)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

// ReadOrderFile parses the named order file.
func ReadOrderFile(filename string) (order *Order, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := f.Close(); err == nil {
			err = nerr
		}
	}()
	order, err = ParseOrder(f)
	if err != nil {
		return nil, fmt.Errorf("%w, while reading order file %v", err, filename)
	}
	return order, nil
}
