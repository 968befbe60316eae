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
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sys/unix"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/ingest"
	"github.com/exascience/elcontig/internal"
	"github.com/exascience/elcontig/repository"
)

// LoadHelp is the help string for this command.
const LoadHelp = "\nload parameters:\n" +
	"elcontig load ace-file-or-directory [ace-file-or-directory ...] --db database-file\n" +
	"[--contig-queue-size n]\n" +
	"[--fragment-queue-size n]\n" +
	"[--layout-window n]\n" +
	"[--descriptor-gap n]\n" +
	"[--snp-window n]\n" +
	"[--no-snps]\n" +
	"[--release-before-snps]\n" +
	"[--skip-unreadable]\n" +
	"[--key-reads-by-name]\n" +
	"[--no-progress]\n" +
	"[--nr-of-threads n]\n" +
	"[--timed]\n" +
	"[--profile file]\n" +
	"[--log-path path]\n"

// aceFiles expands directories into the ACE files they contain. Inputs
// that cannot be accessed are passed on to the parser.
func aceFiles(inputs []string) (files []string) {
	for _, input := range inputs {
		expanded, err := internal.FilesWithExtension(input, ".ace", ".ace.gz")
		if err != nil {
			files = append(files, input)
			continue
		}
		files = append(files, expanded...)
	}
	return files
}

// Load implements the elcontig load command.
func Load() error {
	var (
		db, profile, logPath               string
		layoutWindow, descriptorGap        int
		snpWindow, nrOfThreads             int
		contigQueueSize, fragmentQueueSize int
		noSnps, releaseBeforeSnps          bool
		skipUnreadable, keyReadsByName     bool
		noProgress, timed                  bool
	)

	config := ingest.DefaultConfig()

	var flags flag.FlagSet

	flags.StringVar(&db, "db", "", "SQLite database to load into")
	flags.IntVar(&contigQueueSize, "contig-queue-size", config.ContigQueueSize, "number of contigs queued per saver")
	flags.IntVar(&fragmentQueueSize, "fragment-queue-size", config.FragmentQueueSize, "number of fragments queued for the fragment saver")
	flags.IntVar(&layoutWindow, "layout-window", int(config.LayoutWindow), "window size for fragment layout, 0 for the average fragment length")
	flags.IntVar(&descriptorGap, "descriptor-gap", int(config.DescriptorGap), "positions reserved for fragment labels")
	flags.IntVar(&snpWindow, "snp-window", int(config.SnpWindow), "window size for SNP detection")
	flags.BoolVar(&noSnps, "no-snps", false, "do not detect SNPs")
	flags.BoolVar(&releaseBeforeSnps, "release-before-snps", false, "release contigs without waiting for their SNPs")
	flags.BoolVar(&skipUnreadable, "skip-unreadable", false, "skip files that cannot be opened")
	flags.BoolVar(&keyReadsByName, "key-reads-by-name", false, "match RD and AF lines by read name instead of by order")
	flags.BoolVar(&noProgress, "no-progress", false, "do not show a progress bar")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	inputs := getFilenames(LoadHelp)
	parseFlags(&flags, 2+len(inputs), LoadHelp)

	terminal := setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if len(inputs) == 0 {
		log.Println("Error: No ACE files given.")
		sanityChecksFailed = true
	}
	for _, input := range inputs {
		if !checkExist("", input) && !skipUnreadable {
			sanityChecksFailed = true
		}
	}
	if !checkCreate("--db", db) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if !checkThreads(nrOfThreads) {
		sanityChecksFailed = true
	}

	config.ContigQueueSize = contigQueueSize
	config.FragmentQueueSize = fragmentQueueSize
	config.LayoutWindow = int32(layoutWindow)
	config.DescriptorGap = int32(descriptorGap)
	config.SnpWindow = int32(snpWindow)
	config.CallVariants = !noSnps
	config.RetainUntilSnps = !releaseBeforeSnps
	config.SkipUnreadable = skipUnreadable
	config.KeyReadsByName = keyReadsByName
	if err := config.Validate(); err != nil {
		log.Println("Error:", err)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, LoadHelp)
		os.Exit(1)
	}

	files := aceFiles(inputs)
	if len(files) == 0 {
		log.Println("No ACE files found.")
		return nil
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " load")
	for _, input := range inputs {
		fmt.Fprint(&command, " ", input)
	}
	fmt.Fprint(&command, " --db ", db)
	fmt.Fprint(&command, " --contig-queue-size ", contigQueueSize)
	fmt.Fprint(&command, " --fragment-queue-size ", fragmentQueueSize)
	fmt.Fprint(&command, " --layout-window ", layoutWindow)
	fmt.Fprint(&command, " --descriptor-gap ", descriptorGap)
	fmt.Fprint(&command, " --snp-window ", snpWindow)
	if noSnps {
		fmt.Fprint(&command, " --no-snps")
	}
	if releaseBeforeSnps {
		fmt.Fprint(&command, " --release-before-snps")
	}
	if skipUnreadable {
		fmt.Fprint(&command, " --skip-unreadable")
	}
	if keyReadsByName {
		fmt.Fprint(&command, " --key-reads-by-name")
	}
	if nrOfThreads > 0 {
		fmt.Fprint(&command, " --nr-of-threads ", nrOfThreads)
	}
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

	repo, err := repository.OpenSQLite(db)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := repo.Close(); nerr != nil {
			log.Println("Error:", nerr)
		}
	}()
	if config.ContigIDOffset, config.FragmentIDOffset, err = repo.NextIDs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	var bar *pb.ProgressBar
	loader := &ingest.Loader{Repo: repo, Config: config}
	loader.Events = func(e ingest.Event) {
		switch e.Kind {
		case ingest.EventTotalSize:
			if !noProgress {
				bar = pb.Full.New(0).SetTotal(e.Bytes).Set(pb.Bytes, true).SetWriter(terminal).Start()
			}
		case ingest.EventProgress:
			if bar != nil {
				bar.SetCurrent(e.Bytes)
			}
		case ingest.EventMessage:
			log.Println(e.Message)
		case ingest.EventStageFinished:
			log.Printf("Finished %v stage.\n", e.Stage)
		case ingest.EventFinished:
			if bar != nil {
				bar.Finish()
			}
		}
	}

	var result *ingest.Result
	err = timedRun(timed, profile, "Loading ACE files.", 1, func() (err error) {
		result, err = loader.Load(ctx, files)
		return err
	})
	if errors.Is(err, ace.ErrNoContigs) {
		log.Println("No contigs found.")
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("Loaded %v contigs from %v files into %v (load %v).\n", result.Contigs, len(files), filepath.Base(db), result.LoadID)
	if n := len(result.Failed); n > 0 {
		return fmt.Errorf("%v contig writes failed", n)
	}
	return nil
}
