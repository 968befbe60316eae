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
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strings"

	"github.com/exascience/pargo/parallel"

	"github.com/exascience/elcontig/bed"
	"github.com/exascience/elcontig/intervals"
	"github.com/exascience/elcontig/layout"
)

// A Summary counts what an annotation run did.
type Summary struct {
	Files       int
	Annotations int
	Genes       int
	Structures  int
	// Regions outside of all placements.
	Unplaced int
	// Regions that overlap a placement without being contained in it.
	Straddling int
	// Gene structures without a containing gene of a matching name.
	Unmatched int
	// BED data lines that could not be parsed.
	Skipped int
}

// An Annotator maps BED annotations onto the contigs of a Store.
type Annotator struct {
	Store Store
	// OnMessage, when set, receives status messages.
	OnMessage func(msg string)

	placements []Placement
	byChrom    map[string][]intervals.Keyed
}

// NewAnnotator allocates an Annotator.
func NewAnnotator(store Store) *Annotator {
	return &Annotator{Store: store}
}

func (a *Annotator) message(format string, v ...interface{}) {
	if a.OnMessage != nil {
		a.OnMessage(fmt.Sprintf(format, v...))
	}
}

// index builds the per-chromosome placement lookup. Placements on one
// chromosome must be disjoint.
func index(placements []Placement) (map[string][]intervals.Keyed, error) {
	byChrom := make(map[string][]intervals.Keyed)
	for i, p := range placements {
		byChrom[p.Chrom] = append(byChrom[p.Chrom], intervals.Keyed{
			Interval: intervals.Interval{Start: p.Start, End: p.End},
			Key:      i,
		})
	}
	for chrom, keyed := range byChrom {
		intervals.ParallelSortKeyedByStart(keyed)
		if !intervals.Disjoint(keyed) {
			return nil, fmt.Errorf("overlapping contig placements on chromosome %v", chrom)
		}
	}
	return byChrom, nil
}

/*
ApplyOrder stores the contig placements of an order file and renumbers
the contigs. Listed contigs come first, in the order of the sequence
section. The others follow in their current order.

ApplyOrder returns the contig names that are listed but not stored,
followed by the stored contig names that are not listed.
*/
func (a *Annotator) ApplyOrder(order *Order) (mismatched []string, err error) {
	ids, err := a.Store.ContigIDs()
	if err != nil {
		return nil, fmt.Errorf("%w, while fetching contig ids", err)
	}
	var placements []Placement
	listed := make(map[int32]bool)
	var sequence []int32
	for _, entry := range order.Sequences {
		id, ok := ids[entry.Contig]
		if !ok {
			mismatched = append(mismatched, entry.Contig)
			continue
		}
		placements = append(placements, Placement{Chrom: entry.Chrom, ContigID: id, Start: entry.Start, End: entry.End})
		if !listed[id] {
			listed[id] = true
			sequence = append(sequence, id)
		}
	}
	byChrom, err := index(placements)
	if err != nil {
		return nil, err
	}

	var unlisted []int32
	unlistedNames := make(map[int32]string)
	for name, id := range ids {
		if !listed[id] {
			unlisted = append(unlisted, id)
			unlistedNames[id] = name
		}
	}
	sort.Slice(unlisted, func(i, j int) bool { return unlisted[i] < unlisted[j] })
	for _, id := range unlisted {
		mismatched = append(mismatched, unlistedNames[id])
	}
	if len(mismatched) > 0 {
		log.Printf("Warning: order file and repository disagree on %v contigs: %v\n", len(mismatched), strings.Join(mismatched, ", "))
	}

	if err = a.Store.ReplacePlacements(placements); err != nil {
		return nil, fmt.Errorf("%w, while storing contig placements", err)
	}
	for i, id := range append(sequence, unlisted...) {
		if err = a.Store.UpdateContigOrder(id, int32(i+1)); err != nil {
			return nil, fmt.Errorf("%w, while updating order of contig %v", err, id)
		}
	}
	a.placements, a.byChrom = placements, byChrom
	return mismatched, nil
}

func (a *Annotator) loadPlacements() error {
	if a.byChrom != nil {
		return nil
	}
	placements, err := a.Store.Placements()
	if err != nil {
		return fmt.Errorf("%w, while fetching contig placements", err)
	}
	byChrom, err := index(placements)
	if err != nil {
		return err
	}
	a.placements, a.byChrom = placements, byChrom
	return nil
}

// place converts a chromosome region to contig coordinates.
func (a *Annotator) place(region *bed.Region, summary *Summary) (contigID, start, end int32, ok bool) {
	keyed := a.byChrom[*region.Chrom]
	k, ok := intervals.Containing(keyed, region.Start, region.End)
	if !ok {
		if intervals.Straddles(keyed, region.Start, region.End) {
			summary.Straddling++
		} else {
			summary.Unplaced++
		}
		return 0, 0, 0, false
	}
	p := a.placements[k.Key]
	return p.ContigID, region.Start - p.Start, region.End - p.Start, true
}

type structureRegion struct {
	Structure
	contigID int32
}

/*
Annotate reads the listed BED files from dir and stores their
annotations. Gene structures are attached to the genes after all files
are stored. The tracks of an entry with Detect set get the type their
track line names, the others get the type of the entry.

Placements are taken from the last ApplyOrder, or from the Store.
The context is checked between files and during gene layout.
*/
func (a *Annotator) Annotate(ctx context.Context, dir string, entries []FileEntry) (*Summary, error) {
	if err := a.loadPlacements(); err != nil {
		return nil, err
	}
	summary := &Summary{}
	touched := make(map[int32]bool)
	var structures []structureRegion

	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		path := filepath.Join(dir, entry.File)
		a.message("Parsing annotation file %v of %v: %v", i+1, len(entries), entry.File)
		b, err := bed.ParseBed(path)
		if err != nil {
			return summary, err
		}
		name := entry.File
		if entry.Alias != "" {
			name = entry.Alias
		}
		fileID, err := a.Store.InsertFile(name, path)
		if err != nil {
			return summary, fmt.Errorf("%w, while storing file record for %v", err, path)
		}
		summary.Files++
		summary.Skipped += b.Skipped

		var annotations []*Annotation
		var downstream []bool
		for _, track := range b.Tracks {
			t := entry.Type
			if entry.Detect {
				t = track.Type
			}
			for _, region := range track.Regions {
				contigID, start, end, ok := a.place(region, summary)
				if !ok {
					continue
				}
				if t == bed.StructureTrack {
					structures = append(structures, structureRegion{
						Structure: Structure{Kind: bed.StructureKindFromName(track.Name()), Name: region.Name(), Start: start, End: end},
						contigID:  contigID,
					})
					continue
				}
				annotations = append(annotations, &Annotation{
					ContigID: contigID, Start: start, End: end,
					Name: region.Name(), Type: t, FileID: fileID,
				})
				downstream = append(downstream, region.Strand() == bed.SF)
			}
		}
		if err = a.Store.InsertAnnotations(annotations); err != nil {
			return summary, fmt.Errorf("%w, while storing annotations of %v", err, path)
		}
		summary.Annotations += len(annotations)
		var records []Gene
		for j, annotation := range annotations {
			if annotation.Type != bed.GeneTrack {
				continue
			}
			records = append(records, Gene{AnnotationID: annotation.ID, YPos: -1, Downstream: downstream[j]})
			touched[annotation.ContigID] = true
		}
		if len(records) == 0 {
			continue
		}
		if err = a.Store.InsertGenes(records); err != nil {
			return summary, fmt.Errorf("%w, while storing genes of %v", err, path)
		}
		summary.Genes += len(records)
	}

	if err := a.layoutGenes(ctx, touched); err != nil {
		return summary, err
	}
	if err := a.attachStructures(structures, summary); err != nil {
		return summary, err
	}
	if summary.Straddling > 0 {
		log.Printf("Warning: %v annotations cross a contig boundary and were skipped.\n", summary.Straddling)
	}
	if summary.Unmatched > 0 {
		log.Printf("Warning: %v gene structures match no gene and were skipped.\n", summary.Unmatched)
	}
	return summary, nil
}

// layoutGenes assigns display tracks to the genes of the given contigs.
// Genes laid out by earlier runs keep their track.
func (a *Annotator) layoutGenes(ctx context.Context, touched map[int32]bool) error {
	if len(touched) == 0 {
		return nil
	}
	contigIDs := make([]int32, 0, len(touched))
	for id := range touched {
		contigIDs = append(contigIDs, id)
	}
	sort.Slice(contigIDs, func(i, j int) bool { return contigIDs[i] < contigIDs[j] })

	perContig := make([]genes, len(contigIDs))
	for i, id := range contigIDs {
		g, err := a.Store.Genes(id)
		if err != nil {
			return fmt.Errorf("%w, while fetching genes of contig %v", err, id)
		}
		perContig[i] = g
	}

	rows := make([]int32, len(contigIDs))
	errs := make([]error, len(contigIDs))
	parallel.Range(0, len(contigIDs), 0, func(low, high int) {
		for i := low; i < high; i++ {
			var size int32
			for _, g := range perContig[i] {
				if g.End > size {
					size = g.End
				}
			}
			rows[i], errs[i] = layout.Assign(ctx, perContig[i], size, layout.DefaultGeneWindow, 0)
		}
	})

	for i, id := range contigIDs {
		if errs[i] != nil {
			return errs[i]
		}
		updated := make([]Gene, len(perContig[i]))
		for j, g := range perContig[i] {
			updated[j] = g.Gene
		}
		if err := a.Store.InsertGenes(updated); err != nil {
			return fmt.Errorf("%w, while storing gene layout of contig %v", err, id)
		}
		if err := a.Store.UpdateMaxGeneRows(id, rows[i]); err != nil {
			return fmt.Errorf("%w, while storing gene rows of contig %v", err, id)
		}
	}
	return nil
}

// attachStructures stores each structure with the first gene on its
// contig that contains it and whose name is a case-insensitive prefix
// of the structure name.
func (a *Annotator) attachStructures(structures []structureRegion, summary *Summary) error {
	if len(structures) == 0 {
		return nil
	}
	cache := make(map[int32][]GeneAnnotation)
	var matched []Structure
	for _, s := range structures {
		candidates, ok := cache[s.contigID]
		if !ok {
			var err error
			if candidates, err = a.Store.Genes(s.contigID); err != nil {
				return fmt.Errorf("%w, while fetching genes of contig %v", err, s.contigID)
			}
			cache[s.contigID] = candidates
		}
		name := strings.ToLower(s.Name)
		found := false
		for _, g := range candidates {
			if g.Start <= s.Start && s.End <= g.End && g.Name != "" && strings.HasPrefix(name, strings.ToLower(g.Name)) {
				structure := s.Structure
				structure.GeneID = g.AnnotationID
				matched = append(matched, structure)
				found = true
				break
			}
		}
		if !found {
			summary.Unmatched++
		}
	}
	if err := a.Store.InsertStructures(matched); err != nil {
		return fmt.Errorf("%w, while storing gene structures", err)
	}
	summary.Structures += len(matched)
	return nil
}
