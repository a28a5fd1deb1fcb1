// coedit - real-time collaborative document editing
// Copyright (C) 2026 the coedit authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package lineDiff compares two documents line by line via a longest
// common subsequence and groups the result into added, removed and
// unchanged segments.
package lineDiff

import (
	"strings"
)

type SegmentType string

const (
	Added     SegmentType = "added"
	Removed   SegmentType = "removed"
	Unchanged SegmentType = "unchanged"
)

type Segment struct {
	Type  SegmentType `json:"type"`
	Lines []string    `json:"lines"`
}

// Summary counts lines and code points per side. NetChange is
// AddedChars - RemovedChars.
type Summary struct {
	AddedLines   int `json:"addedLines"`
	RemovedLines int `json:"removedLines"`
	AddedChars   int `json:"addedChars"`
	RemovedChars int `json:"removedChars"`
	NetChange    int `json:"netChange"`
}

type Diff struct {
	Segments []Segment `json:"segments"`
	Summary  Summary   `json:"summary"`
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Compute diffs before against after. Identical inputs produce a single
// unchanged segment; a nil input side counts as zero lines.
func Compute(before, after string) Diff {
	a := splitLines(before)
	b := splitLines(after)

	// lcs[i][j] is the LCS length of a[i:] and b[j:].
	lcs := make([][]int, len(a)+1)
	for i := range lcs {
		lcs[i] = make([]int, len(b)+1)
	}
	for i := len(a) - 1; i >= 0; i-- {
		for j := len(b) - 1; j >= 0; j-- {
			if a[i] == b[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	d := Diff{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			d.push(Unchanged, a[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			d.push(Removed, a[i])
			i++
		default:
			d.push(Added, b[j])
			j++
		}
	}
	for ; i < len(a); i++ {
		d.push(Removed, a[i])
	}
	for ; j < len(b); j++ {
		d.push(Added, b[j])
	}
	return d
}

func (d *Diff) push(t SegmentType, line string) {
	switch t {
	case Added:
		d.Summary.AddedLines++
		d.Summary.AddedChars += len([]rune(line))
	case Removed:
		d.Summary.RemovedLines++
		d.Summary.RemovedChars += len([]rune(line))
	}
	d.Summary.NetChange = d.Summary.AddedChars - d.Summary.RemovedChars

	n := len(d.Segments)
	if n > 0 && d.Segments[n-1].Type == t {
		d.Segments[n-1].Lines = append(d.Segments[n-1].Lines, line)
		return
	}
	d.Segments = append(d.Segments, Segment{Type: t, Lines: []string{line}})
}
