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

package ingest

import (
	"fmt"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/layout"
	"github.com/exascience/elcontig/snp"
)

// Config configures a load.
type Config struct {
	// Capacity of the contig queues.
	ContigQueueSize int
	// Capacity of the fragment queue.
	FragmentQueueSize int

	// Window size for fragment layout, the average fragment length of
	// each contig if 0.
	LayoutWindow int32
	// Positions reserved in front of every fragment for its label.
	DescriptorGap int32
	// Window size for SNP detection.
	SnpWindow int32

	// Bytes between two progress events.
	ProgressInterval int64

	// Run the variant saver.
	CallVariants bool
	// Keep contigs in memory until their SNPs are stored as well.
	RetainUntilSnps bool

	SkipUnreadable bool
	KeyReadsByName bool

	// Contig and fragment ids start after these values, so that a load
	// can be appended to an existing repository.
	ContigIDOffset   int32
	FragmentIDOffset int32
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ContigQueueSize:   64,
		FragmentQueueSize: 50000,
		DescriptorGap:     layout.DefaultGap,
		SnpWindow:         snp.DefaultWindow,
		ProgressInterval:  ace.DefaultProgressInterval,
		CallVariants:      true,
		RetainUntilSnps:   true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.ContigQueueSize < 1:
		return fmt.Errorf("invalid contig queue size %v", c.ContigQueueSize)
	case c.FragmentQueueSize < 1:
		return fmt.Errorf("invalid fragment queue size %v", c.FragmentQueueSize)
	case c.LayoutWindow < 0:
		return fmt.Errorf("invalid layout window %v", c.LayoutWindow)
	case c.DescriptorGap < 0:
		return fmt.Errorf("invalid descriptor gap %v", c.DescriptorGap)
	case c.SnpWindow < 1:
		return fmt.Errorf("invalid SNP window %v", c.SnpWindow)
	case c.ProgressInterval < 0:
		return fmt.Errorf("invalid progress interval %v", c.ProgressInterval)
	case c.ContigIDOffset < 0 || c.FragmentIDOffset < 0:
		return fmt.Errorf("invalid id offsets %v and %v", c.ContigIDOffset, c.FragmentIDOffset)
	}
	if !c.CallVariants {
		c.RetainUntilSnps = false
	}
	return nil
}

func (c *Config) parserOptions() ace.Options {
	return ace.Options{
		KeyReadsByName:   c.KeyReadsByName,
		SkipUnreadable:   c.SkipUnreadable,
		ProgressInterval: c.ProgressInterval,
		ContigIDOffset:   c.ContigIDOffset,
		FragmentIDOffset: c.FragmentIDOffset,
	}
}
