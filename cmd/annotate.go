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

package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/exascience/elcontig/annotation"
	"github.com/exascience/elcontig/internal"
	"github.com/exascience/elcontig/repository"
)

// AnnotateHelp is the help string for this command.
const AnnotateHelp = "\nannotate parameters:\n" +
	"elcontig annotate annotation-directory --db database-file\n" +
	"[--order-file file]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

const orderFilename = "order.txt"

// bedEntries lists the BED files of a directory for type detection
// from their track lines.
func bedEntries(dir string) ([]annotation.FileEntry, error) {
	files, err := internal.FilesWithExtension(dir, ".bed", ".bed.gz")
	if err != nil {
		return nil, err
	}
	entries := make([]annotation.FileEntry, 0, len(files))
	for _, file := range files {
		entries = append(entries, annotation.FileEntry{File: filepath.Base(file), Detect: true})
	}
	return entries, nil
}

// Annotate implements the elcontig annotate command.
func Annotate() error {
	var (
		db, orderFile, profile, logPath string
		timed                           bool
	)

	var flags flag.FlagSet

	flags.StringVar(&db, "db", "", "SQLite database holding the loaded contigs")
	flags.StringVar(&orderFile, "order-file", "", "order file, default order.txt in the annotation directory")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 3, AnnotateHelp)
	dir := getFilename(os.Args[2], AnnotateHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("", dir) {
		sanityChecksFailed = true
	}
	if !checkExist("--db", db) {
		sanityChecksFailed = true
	}
	if orderFile == "" {
		if found, ok := internal.FindFile(dir, orderFilename); ok {
			orderFile = found
		} else {
			log.Printf("Error: Couldn't find file '%v' in %v.\n", orderFilename, dir)
			sanityChecksFailed = true
		}
	} else if !checkExist("--order-file", orderFile) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, AnnotateHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " annotate ", dir)
	fmt.Fprint(&command, " --db ", db)
	fmt.Fprint(&command, " --order-file ", orderFile)
	if timed {
		fmt.Fprint(&command, " --timed")
	}
	if profile != "" {
		fmt.Fprint(&command, " --profile ", profile)
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	order, err := annotation.ReadOrderFile(orderFile)
	if err != nil {
		return err
	}
	entries := order.Annotations
	if len(entries) == 0 {
		if entries, err = bedEntries(dir); err != nil {
			return err
		}
		log.Printf("No annotation files listed in %v, using the %v BED files in %v.\n", filepath.Base(orderFile), len(entries), dir)
	}

	repo, err := repository.OpenSQLite(db)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := repo.Close(); nerr != nil {
			log.Println("Error:", nerr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	annotator := annotation.NewAnnotator(repo)
	annotator.OnMessage = func(msg string) { log.Println(msg) }

	if len(order.Sequences) > 0 {
		if _, err = annotator.ApplyOrder(order); err != nil {
			return err
		}
	}

	var summary *annotation.Summary
	err = timedRun(timed, profile, "Annotating contigs.", 1, func() (err error) {
		summary, err = annotator.Annotate(ctx, dir, entries)
		return err
	})
	if err != nil {
		return err
	}
	log.Printf("Stored %v annotations, %v genes and %v gene structures from %v files.\n",
		summary.Annotations, summary.Genes, summary.Structures, summary.Files)
	if summary.Unplaced > 0 {
		log.Printf("Warning: %v annotations lie outside all placed contigs.\n", summary.Unplaced)
	}
	if summary.Skipped > 0 {
		log.Printf("Warning: %v malformed BED lines were skipped.\n", summary.Skipped)
	}
	return nil
}
