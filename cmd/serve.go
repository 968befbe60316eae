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
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/exascience/elcontig/repository"
	"github.com/exascience/elcontig/server"
	"github.com/exascience/elcontig/snp"
)

// ServeHelp is the help string for this command.
const ServeHelp = "\nserve parameters:\n" +
	"elcontig serve --db database-file\n" +
	"[--addr host:port]\n" +
	"[--snp-threshold n]\n" +
	"[--debug]\n" +
	"[--log-path path]\n"

// Serve implements the elcontig serve command.
func Serve() error {
	var (
		db, addr, logPath string
		threshold         int
		debug             bool
	)

	var flags flag.FlagSet

	flags.StringVar(&db, "db", "", "SQLite database to serve")
	flags.StringVar(&addr, "addr", ":8080", "address to listen on")
	flags.IntVar(&threshold, "snp-threshold", server.DefaultThreshold, "initial SNP variation percentage threshold")
	flags.BoolVar(&debug, "debug", false, "log every request")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(&flags, 2, ServeHelp)

	setLogOutput(logPath)

	// sanity checks

	var sanityChecksFailed bool

	if !checkExist("--db", db) {
		sanityChecksFailed = true
	}
	if err := snp.ValidateThreshold(threshold); err != nil {
		log.Println("Error: Invalid --snp-threshold parameter:", err)
		sanityChecksFailed = true
	}

	if sanityChecksFailed {
		fmt.Fprint(os.Stderr, ServeHelp)
		os.Exit(1)
	}

	// building output command line

	var command bytes.Buffer
	fmt.Fprint(&command, os.Args[0], " serve")
	fmt.Fprint(&command, " --db ", db)
	fmt.Fprint(&command, " --addr ", addr)
	fmt.Fprint(&command, " --snp-threshold ", threshold)
	if debug {
		fmt.Fprint(&command, " --debug")
	}
	if logPath != "" {
		fmt.Fprint(&command, " --log-path ", logPath)
	}

	// executing command

	log.Println("Executing command:\n", command.String())

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
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

	var middleware []gin.HandlerFunc
	if debug {
		middleware = append(middleware, gin.Logger())
	}
	s, err := server.New(repo, threshold, middleware...)
	if err != nil {
		return err
	}
	log.Println("Serving", db, "on", addr)
	return s.Run(addr)
}
