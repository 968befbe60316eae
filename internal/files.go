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

package internal

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Directory returns the names of the entries of a directory, or the
// base name of the file if it is not one.
func Directory(file string) (files []string, err error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{filepath.Base(file)}, nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() {
		nerr := f.Close()
		if err == nil {
			err = nerr
		}
	}()
	return f.Readdirnames(0)
}

// FindFile looks for an entry of a directory by case-insensitive name,
// and returns its full path.
func FindFile(dir, name string) (string, bool) {
	files, err := Directory(dir)
	if err != nil {
		return "", false
	}
	for _, file := range files {
		if strings.EqualFold(file, name) {
			return filepath.Join(dir, file), true
		}
	}
	return "", false
}

// FilesWithExtension returns the full paths of the files in a
// directory whose name ends in one of the given extensions, in
// lexical order. A regular file is returned as is.
func FilesWithExtension(dir string, extensions ...string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{dir}, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*"))
	if err != nil {
		return nil, err
	}
	var result []string
	for _, file := range files {
		lower := strings.ToLower(file)
		for _, ext := range extensions {
			if strings.HasSuffix(lower, ext) {
				result = append(result, file)
				break
			}
		}
	}
	return result, nil
}

func FullPathname(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		return filename, nil
	}
	wd, err := os.Getwd()
	return filepath.Join(wd, filename), err
}

// MkdirAll is os.MkdirAll with panics in place of errors
func MkdirAll(path string, perm os.FileMode) {
	if err := os.MkdirAll(path, perm); err != nil {
		log.Panic(err)
	}
}

// FileCreate is os.Create with panics in place of errors
func FileCreate(name string) *os.File {
	f, err := os.Create(name)
	if err != nil {
		log.Panic(err)
	}
	return f
}

// Close is f.Close() with panics in place of errors
func Close(f *os.File) {
	if err := f.Close(); err != nil {
		log.Panic(err)
	}
}
