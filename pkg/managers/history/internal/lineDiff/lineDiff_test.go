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

package lineDiff

import (
	"reflect"
	"strings"
	"testing"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		before   string
		after    string
		segments []Segment
		summary  Summary
	}{
		{
			name:   "identical",
			before: "a\nb",
			after:  "a\nb",
			segments: []Segment{
				{Type: Unchanged, Lines: []string{"a", "b"}},
			},
			summary: Summary{},
		},
		{
			name:   "bothEmpty",
			before: "",
			after:  "",
		},
		{
			name:   "fromEmpty",
			before: "",
			after:  "one\ntwo",
			segments: []Segment{
				{Type: Added, Lines: []string{"one", "two"}},
			},
			summary: Summary{
				AddedLines: 2, AddedChars: 6, NetChange: 6,
			},
		},
		{
			name:   "toEmpty",
			before: "one\ntwo",
			after:  "",
			segments: []Segment{
				{Type: Removed, Lines: []string{"one", "two"}},
			},
			summary: Summary{
				RemovedLines: 2, RemovedChars: 6, NetChange: -6,
			},
		},
		{
			name:   "changedMiddleLine",
			before: "head\nold middle\ntail",
			after:  "head\nnew middle\ntail",
			segments: []Segment{
				{Type: Unchanged, Lines: []string{"head"}},
				{Type: Removed, Lines: []string{"old middle"}},
				{Type: Added, Lines: []string{"new middle"}},
				{Type: Unchanged, Lines: []string{"tail"}},
			},
			summary: Summary{
				AddedLines: 1, RemovedLines: 1,
				AddedChars: 10, RemovedChars: 10, NetChange: 0,
			},
		},
		{
			name:   "appendedLines",
			before: "a",
			after:  "a\nb\nc",
			segments: []Segment{
				{Type: Unchanged, Lines: []string{"a"}},
				{Type: Added, Lines: []string{"b", "c"}},
			},
			summary: Summary{
				AddedLines: 2, AddedChars: 2, NetChange: 2,
			},
		},
		{
			name:   "unicodeCountsCodePoints",
			before: "héllo",
			after:  "wörld",
			segments: []Segment{
				{Type: Removed, Lines: []string{"héllo"}},
				{Type: Added, Lines: []string{"wörld"}},
			},
			summary: Summary{
				AddedLines: 1, RemovedLines: 1,
				AddedChars: 5, RemovedChars: 5, NetChange: 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.before, tt.after)
			if !reflect.DeepEqual(got.Segments, tt.segments) {
				t.Errorf("segments = %+v, want %+v", got.Segments, tt.segments)
			}
			if got.Summary != tt.summary {
				t.Errorf("summary = %+v, want %+v", got.Summary, tt.summary)
			}
		})
	}
}

// Replaying a diff must reproduce the after side: unchanged plus added
// segments concatenate to after, unchanged plus removed to before.
func TestComputeRoundTrip(t *testing.T) {
	before := "alpha\nbeta\ngamma\ndelta"
	after := "alpha\nbeta two\ngamma\nepsilon\ndelta"
	d := Compute(before, after)

	var fromSide, toSide []string
	for _, s := range d.Segments {
		switch s.Type {
		case Unchanged:
			fromSide = append(fromSide, s.Lines...)
			toSide = append(toSide, s.Lines...)
		case Removed:
			fromSide = append(fromSide, s.Lines...)
		case Added:
			toSide = append(toSide, s.Lines...)
		}
	}
	if got := strings.Join(fromSide, "\n"); got != before {
		t.Errorf("before side = %q", got)
	}
	if got := strings.Join(toSide, "\n"); got != after {
		t.Errorf("after side = %q", got)
	}
}
