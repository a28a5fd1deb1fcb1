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

package text

import (
	"testing"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

func TestApplyInsert(t *testing.T) {
	s := sharedTypes.Snapshot("Hello World")
	op := sharedTypes.Operation{
		Type:     sharedTypes.OpInsert,
		Content:  sharedTypes.Snippet("brave "),
		Position: 6,
	}
	got, err := Apply(s, &op)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "Hello brave World" {
		t.Errorf("got %q", string(got))
	}
	if len(got) != len(s)+len(op.Content) {
		t.Errorf("length not conserved: %d", len(got))
	}
	if string(s) != "Hello World" {
		t.Errorf("input snapshot mutated: %q", string(s))
	}
}

func TestApplyDeleteCapturesText(t *testing.T) {
	s := sharedTypes.Snapshot("Hello World")
	op := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   6,
		Position: 0,
	}
	got, err := Apply(s, &op)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "World" {
		t.Errorf("got %q", string(got))
	}
	if string(op.Deleted) != "Hello " {
		t.Errorf("captured %q", string(op.Deleted))
	}
	if len(got) != len(s)-op.Length {
		t.Errorf("length not conserved: %d", len(got))
	}
}

func TestApplyDeleteOutOfBounds(t *testing.T) {
	s := sharedTypes.Snapshot("short")
	op := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   10,
		Position: 2,
	}
	if _, err := Apply(s, &op); err == nil {
		t.Error("expected consistency error")
	}
}

func TestApplyUnicodePositions(t *testing.T) {
	// Positions count code points, not bytes.
	s := sharedTypes.Snapshot("héllo wörld")
	op := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   5,
		Position: 6,
	}
	got, err := Apply(s, &op)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "héllo " {
		t.Errorf("got %q", string(got))
	}
	if string(op.Deleted) != "wörld" {
		t.Errorf("captured %q", string(op.Deleted))
	}
}

// Concurrent delete + insert at overlapping positions, applied through
// transform, must produce the merged text.
func TestDeleteInsertConvergence(t *testing.T) {
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")
	userB := mustUUID(t, "00000000-0000-4000-8000-00000000000b")

	s := sharedTypes.Snapshot("Hello World")
	delOp := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   6,
		Position: 0,
		AuthorId: userA,
	}
	insOp := sharedTypes.Operation{
		Type:     sharedTypes.OpInsert,
		Content:  sharedTypes.Snippet("Hi "),
		Position: 0,
		AuthorId: userB,
	}

	s, err := Apply(s, &delOp)
	if err != nil {
		t.Fatal(err)
	}
	insPrime := Transform(insOp, []sharedTypes.Operation{delOp})
	s, err = Apply(s, &insPrime)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "Hi World" {
		t.Errorf("got %q", string(s))
	}
}

// Two adjacent deletes submitted against the same base collapse the text
// without double-deleting.
func TestOverlappingDeletesConvergence(t *testing.T) {
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")
	userB := mustUUID(t, "00000000-0000-4000-8000-00000000000b")

	s := sharedTypes.Snapshot("Hello World Test")
	del1 := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   6,
		Position: 0,
		AuthorId: userA,
	}
	del2 := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   6,
		Position: 6,
		AuthorId: userB,
	}

	s, err := Apply(s, &del1)
	if err != nil {
		t.Fatal(err)
	}
	del2Prime := Transform(del2, []sharedTypes.Operation{del1})
	s, err = Apply(s, &del2Prime)
	if err != nil {
		t.Fatal(err)
	}
	if string(s) != "Test" {
		t.Errorf("got %q", string(s))
	}
}
