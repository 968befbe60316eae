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
	"strings"
	"testing"
)

const testBed = `browser position chr1:1-1000
# comment
chr0	1	5	orphan
track name="Genes" description="Known genes"
chr1	100	200	geneA	0	+
chr1	300	450	geneB	500	-
chr1	x	450	broken
chr2	10
track name=Exons
chr1	100	120	geneA.exon1
chr1	150	200	geneA.exon2	0	+	100	200	0	2	20,50	0,50	extra
track name="SNPs"
chr1 42 43 rs1
track name="My track" color=255,0,0
chr3	5	4	reversed
chr3	5	9
`

func TestParseBed(t *testing.T) {
	bed, err := ParseBedReader(strings.NewReader(testBed))
	if err != nil {
		t.Fatal(err)
	}
	if len(bed.Tracks) != 5 {
		t.Fatalf("expected 5 tracks, got %v", len(bed.Tracks))
	}
	if bed.Skipped != 3 {
		t.Errorf("expected 3 skipped lines, got %v", bed.Skipped)
	}
	types := []TrackType{CustomTrack, GeneTrack, StructureTrack, SnpTrack, CustomTrack}
	for i, track := range bed.Tracks {
		if track.Type != types[i] {
			t.Errorf("track %v has type %v, expected %v", i, track.Type, types[i])
		}
	}
	genes := bed.Tracks[1]
	if genes.Name() != "Genes" || genes.Fields["description"] != "Known genes" {
		t.Errorf("track fields failed: %v", genes.Fields)
	}
	if len(genes.Regions) != 2 {
		t.Fatalf("expected 2 genes, got %v", len(genes.Regions))
	}
	b := genes.Regions[1]
	if *b.Chrom != "chr1" || b.Start != 300 || b.End != 450 || b.Name() != "geneB" || b.Strand() != SR {
		t.Errorf("gene fields failed: %v %v %v %v", *b.Chrom, b.Start, b.End, b.Name())
	}
	if r := bed.Tracks[2].Regions[1]; len(r.OptionalFields) != 9 {
		t.Errorf("extra fields not ignored: %v", r.OptionalFields)
	}
	if r := bed.Tracks[3].Regions[0]; r.Start != 42 || r.Name() != "rs1" || r.Strand() != nil {
		t.Errorf("space separated line failed: %+v", r)
	}
	if tr := bed.Tracks[4]; tr.Name() != "My track" || tr.Fields["color"] != "255,0,0" || len(tr.Regions) != 1 {
		t.Errorf("custom track failed: %v %v", tr.Fields, len(tr.Regions))
	}
	if got := bed.Regions(GeneTrack); len(got) != 2 {
		t.Errorf("Regions failed: %v", len(got))
	}
}

func TestParseBedLarge(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("track name=\"Genes\"\n")
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&sb, "chr1\t%v\t%v\tg%v\n", i*10, i*10+5, i)
	}
	bed, err := ParseBedReader(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatal(err)
	}
	regions := bed.Tracks[0].Regions
	if len(regions) != 20000 {
		t.Fatalf("expected 20000 regions, got %v", len(regions))
	}
	for i, r := range regions {
		if r.Start != int32(i*10) {
			t.Fatalf("region order not preserved at %v", i)
		}
	}
}

func TestParseTrackType(t *testing.T) {
	for s, expected := range map[string]TrackType{"snp": SnpTrack, "Gene": GeneTrack, "custom": CustomTrack, "exon": StructureTrack} {
		if tt, err := ParseTrackType(s); err != nil || tt != expected {
			t.Errorf("ParseTrackType(%v) failed: %v %v", s, tt, err)
		}
	}
	if _, err := ParseTrackType("bogus"); err == nil {
		t.Error("ParseTrackType accepted an unknown type")
	}
	if StructureKindFromName("3PUTR") != UTR3 || StructureKindFromName("Exons") != Exon {
		t.Error("StructureKindFromName failed")
	}
}
