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

package server

import (
	"math"

	"github.com/exascience/elcontig/ace"
	"github.com/exascience/elcontig/annotation"
)

const maxPos = math.MaxInt32

type fragmentView struct {
	ID         int32  `json:"id"`
	Name       string `json:"name"`
	Seq        string `json:"seq"`
	Size       int32  `json:"size"`
	StartPos   int32  `json:"startPos"`
	EndPos     int32  `json:"endPos"`
	QualStart  int32  `json:"qualStart"`
	QualEnd    int32  `json:"qualEnd"`
	AlignStart int32  `json:"alignStart"`
	AlignEnd   int32  `json:"alignEnd"`
	Complement bool   `json:"complement"`
	YPos       int32  `json:"yPos"`
}

func newFragmentView(f *ace.Fragment) fragmentView {
	return fragmentView{
		ID:         f.ID,
		Name:       f.Name,
		Seq:        string(f.Seq),
		Size:       f.Size,
		StartPos:   f.StartPos,
		EndPos:     f.EndPos,
		QualStart:  f.QualStart,
		QualEnd:    f.QualEnd,
		AlignStart: f.AlignStart,
		AlignEnd:   f.AlignEnd,
		Complement: f.Complement,
		YPos:       f.YPos,
	}
}

type snpView struct {
	Pos     int32 `json:"pos"`
	Percent int32 `json:"percent"`
}

func newSnpView(s ace.Snp) snpView {
	return snpView{Pos: s.Pos, Percent: s.Percent}
}

type annotationView struct {
	ID    int64  `json:"id"`
	Start int32  `json:"start"`
	End   int32  `json:"end"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

func newAnnotationView(a annotation.Annotation) annotationView {
	return annotationView{ID: a.ID, Start: a.Start, End: a.End, Name: a.Name, Type: a.Type.String()}
}
