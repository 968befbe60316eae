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
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/exascience/elcontig/utils"
)

// A TrackType classifies the annotation a BED track holds.
type TrackType int

// Track types.
const (
	CustomTrack TrackType = iota
	GeneTrack
	SnpTrack
	StructureTrack
)

var trackTypeNames = [...]string{"custom", "gene", "snp", "structure"}

func (t TrackType) String() string {
	if t < 0 || int(t) >= len(trackTypeNames) {
		return "TrackType(" + strconv.Itoa(int(t)) + ")"
	}
	return trackTypeNames[t]
}

// ParseTrackType parses the type names used in order files.
func ParseTrackType(s string) (TrackType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "custom":
		return CustomTrack, nil
	case "gene", "genes":
		return GeneTrack, nil
	case "snp", "snps":
		return SnpTrack, nil
	case "structure", "exon", "exons", "intron", "introns", "3putr", "5putr":
		return StructureTrack, nil
	}
	return CustomTrack, fmt.Errorf("unknown annotation type %q", s)
}

// trackTypeFromName derives the type of a track from its name field.
func trackTypeFromName(name string) TrackType {
	switch name {
	case "Genes":
		return GeneTrack
	case "SNPs":
		return SnpTrack
	case "Exons", "Introns", "3PUTR", "5PUTR":
		return StructureTrack
	}
	return CustomTrack
}

// A StructureKind is the kind of gene sub-structure a region describes.
type StructureKind int

// Gene sub-structure kinds.
const (
	Exon StructureKind = iota
	Intron
	UTR3
	UTR5
)

// StructureKindFromName derives the kind of a gene sub-structure track
// from its name field. Unknown names are exons.
func StructureKindFromName(name string) StructureKind {
	switch name {
	case "Introns":
		return Intron
	case "3PUTR":
		return UTR3
	case "5PUTR":
		return UTR5
	}
	return Exon
}

// A Bed holds the tracks of one BED file.
type Bed struct {
	// Bed tracks defined in the file. Regions before the first track
	// line belong to an unnamed custom track.
	Tracks []*Track
	// Number of data lines that could not be parsed.
	Skipped int
}

// A Track is a struct for representing BED tracks. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
type Track struct {
	// All track fields are optional.
	Fields map[string]string
	// Type derived from the name field.
	Type TrackType
	// The bed regions this track groups together.
	Regions []*Region
}

// Name returns the name field of the track, or "".
func (t *Track) Name() string {
	return t.Fields["name"]
}

// A Region is a struct for representing intervals as defined in a BED
// file. Start is 0-based, End is exclusive. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
type Region struct {
	Chrom          utils.Symbol
	Start          int32
	End            int32
	OptionalFields []interface{}
}

// Symbols for optional strand field of a Region.
var (
	// Strand forward.
	SF = utils.Intern("+")
	// Strand reverse.
	SR = utils.Intern("-")
)

// NewRegion allocates and initializes a new Region. Optional fields
// are given in order. If a "later" field is entered, then the
// "earlier" field was entered as well. See
// https://genome.ucsc.edu/FAQ/FAQformat.html#format1
func NewRegion(chrom utils.Symbol, start int32, end int32, fields []string) (b *Region, err error) {
	if end < start {
		return nil, fmt.Errorf("region end %v before start %v", end, start)
	}
	regionFields, err := initializeRegionFields(fields)
	if err != nil {
		return nil, err
	}
	return &Region{
		Chrom:          chrom,
		Start:          start,
		End:            end,
		OptionalFields: regionFields,
	}, nil
}

// Name returns the name field of the region, or "".
func (r *Region) Name() string {
	if len(r.OptionalFields) > brName {
		return r.OptionalFields[brName].(string)
	}
	return ""
}

// Strand returns the strand field of the region, or nil.
func (r *Region) Strand() utils.Symbol {
	if len(r.OptionalFields) > brStrand {
		return r.OptionalFields[brStrand].(utils.Symbol)
	}
	return nil
}

// Valid bed region optional fields, in column order.
const (
	brName = iota
	brScore
	brStrand
	brThickStart
	brThickEnd
	brItemRgb
	brBlockCount
	brBlockSizes
	brBlockStarts
)

// Allocates the optional fields of a Region. Fields beyond the BED
// columns are ignored.
func initializeRegionFields(fields []string) ([]interface{}, error) {
	if len(fields) > brBlockStarts+1 {
		fields = fields[:brBlockStarts+1]
	}
	brFields := make([]interface{}, len(fields))
	for i, val := range fields {
		switch i {
		case brName:
			brFields[brName] = val
		case brScore:
			score, err := strconv.ParseFloat(val, 64)
			if val == "." {
				score, err = 0, nil
			}
			if err != nil || score < 0 || score > 1000 {
				return nil, fmt.Errorf("invalid Score field: %v", val)
			}
			brFields[brScore] = int(score)
		case brStrand:
			if val != "+" && val != "-" && val != "." {
				return nil, fmt.Errorf("invalid Strand field: %v", val)
			}
			brFields[brStrand] = utils.Intern(val)
		case brThickStart, brThickEnd:
			pos, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid thick position field: %v", val)
			}
			brFields[i] = pos
		case brItemRgb:
			brFields[brItemRgb] = val
		case brBlockCount:
			count, err := strconv.Atoi(val)
			if err != nil {
				return nil, fmt.Errorf("invalid BlockCount field: %v", val)
			}
			brFields[brBlockCount] = count
		case brBlockSizes, brBlockStarts:
			brFields[i] = val
		}
	}
	return brFields, nil
}

// NewTrack allocates and initializes a new Track.
func NewTrack(fields map[string]string) *Track {
	return &Track{
		Fields: fields,
		Type:   trackTypeFromName(fields["name"]),
	}
}

// Regions returns all regions of all tracks of the given type.
func (bed *Bed) Regions(t TrackType) (regions []*Region) {
	for _, track := range bed.Tracks {
		if track.Type == t {
			regions = append(regions, track.Regions...)
		}
	}
	return regions
}

// SortRegions sorts the regions of every track by chromosome and start
// position.
func (bed *Bed) SortRegions() {
	for _, track := range bed.Tracks {
		regions := track.Regions
		sort.SliceStable(regions, func(i, j int) bool {
			if *regions[i].Chrom != *regions[j].Chrom {
				return *regions[i].Chrom < *regions[j].Chrom
			}
			return regions[i].Start < regions[j].Start
		})
	}
}
