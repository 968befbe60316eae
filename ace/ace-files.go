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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/exascience/elcontig/utils"
)

// ErrNoContigs is returned by Parse when none of the input files
// contains a contig.
var ErrNoContigs = errors.New("no contigs found")

// A FormatError reports a malformed or inconsistent line in an ACE
// file.
type FormatError struct {
	File string
	Line int
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%v:%v: %v", e.File, e.Line, e.Msg)
}

// DefaultProgressInterval is the number of bytes between two progress
// reports.
const DefaultProgressInterval = 5000

const maxLineSize = 1 << 30

// Options configure a Parser.
type Options struct {
	// Bind read headers to read placements by name instead of by
	// position.
	KeyReadsByName bool

	// Skip files that cannot be opened instead of aborting.
	SkipUnreadable bool

	// Bytes between two progress reports, DefaultProgressInterval if 0.
	ProgressInterval int64

	// Contig and fragment ids start after these values.
	ContigIDOffset   int32
	FragmentIDOffset int32
}

/*
A Parser reads ACE files and hands every completed contig, with its
fragments, to OnContig.

A Parser is not safe for concurrent use. The ids it assigns continue
across all calls to Parse and ParseReader.
*/
type Parser struct {
	Options

	// OnContig receives each complete contig. An error aborts parsing.
	OnContig func(*Contig) error

	// OnProgress receives the cumulative number of bytes read.
	OnProgress func(parsed int64)

	// OnMessage receives file boundary messages.
	OnMessage func(msg string)

	contigID   int32
	fragmentID int32
	contigs    int
	parsed     int64
}

// NewParser allocates a Parser.
func NewParser(opts Options) *Parser {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Parser{
		Options:    opts,
		contigID:   opts.ContigIDOffset,
		fragmentID: opts.FragmentIDOffset,
	}
}

// Contigs returns the number of contigs handed to OnContig so far.
func (p *Parser) Contigs() int {
	return p.contigs
}

// TotalSize returns the sum of the sizes of the given files. Files that
// cannot be accessed are not counted.
func TotalSize(paths []string) (total int64) {
	for _, path := range paths {
		if info, err := os.Stat(path); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (p *Parser) message(format string, v ...interface{}) {
	if p.OnMessage != nil {
		p.OnMessage(fmt.Sprintf(format, v...))
	}
}

func (p *Parser) progress() {
	if p.OnProgress != nil {
		p.OnProgress(p.parsed)
	}
}

/*
Parse reads the given ACE files in order. The context is checked at
each file boundary.

With SkipUnreadable, files that cannot be opened are skipped, unless
there is only one file. Parse returns ErrNoContigs if no file contained
a contig.
*/
func (p *Parser) Parse(ctx context.Context, paths []string) error {
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.message("Reading file %v of %v: %v", i+1, len(paths), filepath.Base(path))
		if err := p.parseFile(ctx, path); err != nil {
			var perr *os.PathError
			if p.SkipUnreadable && len(paths) > 1 && errors.As(err, &perr) {
				log.Println("Warning:", err)
				p.message("Skipping unreadable file %v", path)
				continue
			}
			return err
		}
	}
	if p.contigs == 0 {
		return ErrNoContigs
	}
	return nil
}

func (p *Parser) parseFile(ctx context.Context, path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if nerr := f.Close(); err == nil {
			err = nerr
		}
	}()
	fullPath, err := filepath.Abs(path)
	if err != nil {
		fullPath = path
	}
	return p.ParseReader(ctx, f, &File{Name: filepath.Base(path), Path: fullPath})
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(b []byte) (int, error) {
	n, err := cr.r.Read(b)
	cr.n += int64(n)
	return n, err
}

/*
ParseReader reads one ACE file from r. The contents may be gzip
compressed. Progress is reported in bytes read from r.
*/
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, file *File) error {
	cr := &countingReader{r: r}
	in, err := utils.HandleGzip(bufio.NewReaderSize(cr, 1<<16))
	if err != nil {
		return fmt.Errorf("%w, while opening ACE file %v", err, file.Path)
	}
	defer in.Close()

	base := p.parsed
	var reported int64
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 1<<16), maxLineSize)

	st := &fileState{ctx: ctx, parser: p, file: file}
	for scanner.Scan() {
		st.line++
		if err := st.handle(scanner.Text()); err != nil {
			return err
		}
		if cr.n-reported >= p.ProgressInterval {
			reported = cr.n
			p.parsed = base + cr.n
			p.progress()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w, while reading ACE file %v", err, file.Path)
	}
	if err := st.finishContig(); err != nil {
		return err
	}
	p.parsed = base + cr.n
	p.progress()
	return nil
}

type parseState int

const (
	stateTags parseState = iota
	stateContigSeq
	stateReadSeq
	stateSkipSeq
)

// fileState is the state machine for one ACE file.
type fileState struct {
	ctx    context.Context
	parser *Parser
	file   *File
	line   int
	state  parseState
	sc     tagScanner

	headerSeen bool

	contig   *Contig
	pending  []*Fragment
	byName   map[string][]*Fragment
	nextRead int

	// Most recently completed read, still accepting a QA line.
	read       *Fragment
	awaitingQA bool

	// Name of the contig whose self-reference lines are dropped. It
	// outlives the contig until the next CO line.
	selfName string
	skipQA   bool
}

func (st *fileState) formatError(format string, v ...interface{}) error {
	return &FormatError{File: st.file.Path, Line: st.line, Msg: fmt.Sprintf(format, v...)}
}

func (st *fileState) handle(line string) error {
	switch st.state {
	case stateContigSeq:
		if s := strings.TrimSpace(line); s == "" {
			st.state = stateTags
		} else {
			st.contig.Seq = append(st.contig.Seq, s...)
		}
		return nil
	case stateReadSeq:
		if s := strings.TrimSpace(line); s == "" {
			st.state = stateTags
			st.read.Seq = st.read.Seq[:len(st.read.Seq):len(st.read.Seq)]
			st.contig.Fragments = append(st.contig.Fragments, st.read)
			st.awaitingQA = true
		} else {
			st.read.Seq = append(st.read.Seq, s...)
		}
		return nil
	case stateSkipSeq:
		if strings.TrimSpace(line) == "" {
			st.state = stateTags
		}
		return nil
	}

	st.sc.Reset(line)
	tag, found := st.sc.readField()
	if !found {
		return nil
	}
	if tag != "QA" {
		st.skipQA = false
	}
	if tag != "QA" && st.awaitingQA {
		st.awaitingQA = false
		if err := st.checkComplete(); err != nil {
			return err
		}
	}
	switch tag {
	case "AS":
		return st.handleHeader()
	case "CO":
		return st.handleContig()
	case "AF":
		return st.handlePlacement()
	case "RD":
		return st.handleRead()
	case "QA":
		return st.handleQuality()
	}
	return nil
}

// handleHeader parses the advisory AS line, ignoring it when malformed.
func (st *fileState) handleHeader() error {
	if st.headerSeen {
		return nil
	}
	st.headerSeen = true
	contigs := st.sc.readInt32("contig count")
	reads := st.sc.readInt32("read count")
	if st.sc.Err() == nil {
		st.parser.message("%v announces %v contigs and %v reads", st.file.Name, contigs, reads)
	}
	return nil
}

func (st *fileState) handleContig() error {
	if err := st.finishContig(); err != nil {
		return err
	}
	if err := st.ctx.Err(); err != nil {
		return err
	}
	name := st.sc.readString("contig name")
	bases := st.sc.readInt32("contig length")
	reads := st.sc.readInt32("read count")
	if err := st.sc.Err(); err != nil {
		return st.formatError("%v in CO line", err)
	}
	if bases < 0 || reads < 0 {
		return st.formatError("negative count in CO line")
	}
	p := st.parser
	p.contigID++
	st.selfName = name
	st.contig = &Contig{
		ID:             p.contigID,
		Order:          p.contigID,
		Name:           name,
		Seq:            make([]byte, 0, bases),
		NumberReads:    reads,
		ReadStartIndex: p.fragmentID + 1,
		ReadEndIndex:   p.fragmentID + reads,
		File:           st.file,
		Fragments:      make(Fragments, 0, reads),
	}
	st.pending = st.pending[:0]
	st.nextRead = 0
	if st.parser.KeyReadsByName {
		st.byName = make(map[string][]*Fragment, reads)
	}
	st.state = stateContigSeq
	return nil
}

func (st *fileState) handlePlacement() error {
	name := st.sc.readString("read name")
	complement := st.sc.readComplement("complement flag")
	start := st.sc.readInt32("start offset")
	if st.contig == nil {
		if st.sc.Err() == nil && st.selfName != "" && name == st.selfName {
			return nil
		}
		return st.formatError("AF line outside of a contig")
	}
	if err := st.sc.Err(); err != nil {
		return st.formatError("%v in AF line", err)
	}
	c := st.contig
	if name == c.Name {
		c.NumberReads--
		c.ReadEndIndex--
		return nil
	}
	p := st.parser
	p.fragmentID++
	f := NewFragment(p.fragmentID, c.ID, name, complement, start)
	st.pending = append(st.pending, f)
	if st.byName != nil {
		st.byName[name] = append(st.byName[name], f)
	}
	return nil
}

func (st *fileState) nextPending(name string) (*Fragment, error) {
	if st.byName != nil {
		fs := st.byName[name]
		if len(fs) == 0 {
			return nil, st.formatError("read %v has no AF line", name)
		}
		st.byName[name] = fs[1:]
		return fs[0], nil
	}
	if st.nextRead >= len(st.pending) {
		return nil, st.formatError("read %v has no AF line", name)
	}
	f := st.pending[st.nextRead]
	st.nextRead++
	if f.Name != name {
		return nil, st.formatError("reads in AF section are in a different order than in RD section: expected %v, got %v", f.Name, name)
	}
	return f, nil
}

func (st *fileState) handleRead() error {
	name := st.sc.readString("read name")
	bases := st.sc.readInt32("read length")
	if st.contig == nil && (st.sc.Err() != nil || st.selfName == "" || name != st.selfName) {
		return st.formatError("RD line outside of a contig")
	}
	if err := st.sc.Err(); err != nil {
		return st.formatError("%v in RD line", err)
	}
	if bases < 0 {
		return st.formatError("negative read length %v", bases)
	}
	if name == st.selfName {
		st.state = stateSkipSeq
		st.skipQA = true
		return nil
	}
	f, err := st.nextPending(name)
	if err != nil {
		return err
	}
	f.Size = bases
	f.EndPos = f.StartPos + bases - 1
	f.Seq = make([]byte, 0, bases)
	st.read = f
	st.state = stateReadSeq
	return nil
}

func (st *fileState) handleQuality() error {
	if st.skipQA {
		st.skipQA = false
		return nil
	}
	if !st.awaitingQA {
		return st.formatError("QA line without a preceding read")
	}
	st.awaitingQA = false
	f := st.read
	f.QualStart = st.sc.readInt32("quality start")
	f.QualEnd = st.sc.readInt32("quality end")
	f.AlignStart = st.sc.readInt32("alignment start")
	f.AlignEnd = st.sc.readInt32("alignment end")
	if err := st.sc.Err(); err != nil {
		return st.formatError("%v in QA line", err)
	}
	return st.checkComplete()
}

// checkComplete hands the current contig on once all of its reads have
// been collected.
func (st *fileState) checkComplete() error {
	if st.contig == nil || int32(len(st.contig.Fragments)) < st.contig.NumberReads {
		return nil
	}
	return st.emit()
}

// finishContig hands on an in-progress contig at the next CO line or at
// the end of the file, even if reads are missing.
func (st *fileState) finishContig() error {
	if st.state == stateReadSeq {
		st.contig.Fragments = append(st.contig.Fragments, st.read)
		st.state = stateTags
	}
	if st.contig == nil {
		return nil
	}
	c := st.contig
	if n := int32(len(c.Fragments)); n < c.NumberReads {
		log.Printf("Warning: contig %v in %v announces %v reads, but only %v were found.\n", c.Name, st.file.Name, c.NumberReads, n)
		c.NumberReads = n
		c.ReadEndIndex = c.ReadStartIndex + n - 1
	}
	return st.emit()
}

func (st *fileState) emit() error {
	c := st.contig
	st.contig = nil
	st.read = nil
	st.awaitingQA = false
	st.pending = st.pending[:0]
	st.byName = nil
	st.state = stateTags
	c.finalize()
	st.parser.contigs++
	if st.parser.OnContig == nil {
		return nil
	}
	return st.parser.OnContig(c)
}
