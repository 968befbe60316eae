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

package bed

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/exascience/pargo/pipeline"

	"github.com/exascience/elcontig/utils"
)

// parseTrackLine parses the key=value pairs of a track line. Values may
// be quoted.
func parseTrackLine(line string) map[string]string {
	fields := make(map[string]string)
	line = strings.TrimSpace(strings.TrimPrefix(line, "track"))
	for len(line) > 0 {
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			break
		}
		key := strings.TrimSpace(line[:eq])
		line = line[eq+1:]
		var value string
		if strings.HasPrefix(line, "\"") {
			end := strings.IndexByte(line[1:], '"')
			if end < 0 {
				value, line = line[1:], ""
			} else {
				value, line = line[1:end+1], line[end+2:]
			}
		} else if sp := strings.IndexAny(line, " \t"); sp >= 0 {
			value, line = line[:sp], line[sp:]
		} else {
			value, line = line, ""
		}
		fields[key] = value
		line = strings.TrimSpace(line)
	}
	return fields
}

// parseRegionLine parses one data line. Fields may be separated by tabs
// or spaces.
func parseRegionLine(line string) (*Region, error) {
	data := strings.Fields(line)
	if len(data) < 3 {
		return nil, fmt.Errorf("BED line has %v fields", len(data))
	}
	start, err := strconv.ParseInt(data[1], 10, 32)
	if err != nil {
		return nil, err
	}
	end, err := strconv.ParseInt(data[2], 10, 32)
	if err != nil {
		return nil, err
	}
	return NewRegion(utils.Intern(data[0]), int32(start), int32(end), data[3:])
}

type skippedLine struct{}

// ParseBedReader parses a BED stream, which may be gzip compressed.
// Malformed data lines are skipped and counted in Bed.Skipped. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
func ParseBedReader(r io.Reader) (*Bed, error) {
	input, err := utils.HandleGzip(bufio.NewReader(r))
	if err != nil {
		return nil, err
	}
	defer input.Close()

	bed := &Bed{}
	var current *Track
	var p pipeline.Pipeline
	p.Source(pipeline.NewScanner(input))
	p.Add(pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
		lines := data.([]string)
		items := make([]interface{}, 0, len(lines))
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "",
				strings.HasPrefix(trimmed, "#"),
				strings.HasPrefix(trimmed, "browser"):
			case strings.HasPrefix(trimmed, "track"):
				items = append(items, parseTrackLine(trimmed))
			default:
				if region, err := parseRegionLine(trimmed); err == nil {
					items = append(items, region)
				} else {
					items = append(items, skippedLine{})
				}
			}
		}
		return items
	})))
	p.Add(pipeline.Ord(pipeline.Receive(func(_ int, data interface{}) interface{} {
		for _, item := range data.([]interface{}) {
			switch item := item.(type) {
			case map[string]string:
				current = NewTrack(item)
				bed.Tracks = append(bed.Tracks, current)
			case *Region:
				if current == nil {
					current = NewTrack(map[string]string{})
					bed.Tracks = append(bed.Tracks, current)
				}
				current.Regions = append(current.Regions, item)
			case skippedLine:
				bed.Skipped++
			}
		}
		return nil
	})))
	p.Run()
	if err := p.Err(); err != nil {
		return nil, err
	}
	return bed, nil
}

// ParseBed parses a BED file.
func ParseBed(filename string) (result *Bed, err error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func() {
		if nerr := file.Close(); err == nil {
			err = nerr
		}
	}()
	result, err = ParseBedReader(file)
	if err != nil {
		return nil, fmt.Errorf("%w, while parsing BED file %v", err, filename)
	}
	return result, nil
}
