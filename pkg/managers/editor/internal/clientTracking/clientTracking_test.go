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

package clientTracking

import (
	"testing"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

func mustUUID(t *testing.T, s string) sharedTypes.UUID {
	t.Helper()
	u, err := sharedTypes.ParseUUID(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %s", s, err)
	}
	return u
}

func TestColorAssignmentIsStable(t *testing.T) {
	m := New(nil)
	docId := mustUUID(t, "00000000-0000-4000-8000-000000000001")
	userId := mustUUID(t, "00000000-0000-4000-8000-00000000000a")

	first := m.Update(docId, userId, 0, "alice")
	second := m.Update(docId, userId, 10, "alice")
	if first.Color != second.Color {
		t.Errorf("color changed between updates: %q vs %q", first.Color, second.Color)
	}
	found := false
	for _, c := range DefaultPalette {
		if c == first.Color {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("color %q not from palette", first.Color)
	}
}

func TestUpdateAndList(t *testing.T) {
	m := New(nil)
	docId := mustUUID(t, "00000000-0000-4000-8000-000000000001")
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")
	userB := mustUUID(t, "00000000-0000-4000-8000-00000000000b")

	m.Update(docId, userA, 3, "alice")
	m.Update(docId, userB, 7, "bob")
	m.Update(docId, userA, 5, "alice")

	got := m.List(docId)
	if len(got) != 2 {
		t.Fatalf("expected 2 cursors, got %d", len(got))
	}
	for _, c := range got {
		if c.UserId == userA && c.Position != 5 {
			t.Errorf("stale position for userA: %d", c.Position)
		}
	}
}

func TestRemoveDropsEmptyDocument(t *testing.T) {
	m := New(nil)
	docId := mustUUID(t, "00000000-0000-4000-8000-000000000001")
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")

	m.Update(docId, userA, 3, "alice")
	m.Remove(docId, userA)
	if got := m.List(docId); len(got) != 0 {
		t.Errorf("expected empty list, got %d entries", len(got))
	}
	inner := m.(*manager)
	if _, ok := inner.cursors[docId]; ok {
		t.Error("empty document entry not dropped")
	}
}

func TestRemoveAllForUser(t *testing.T) {
	m := New(nil)
	doc1 := mustUUID(t, "00000000-0000-4000-8000-000000000001")
	doc2 := mustUUID(t, "00000000-0000-4000-8000-000000000002")
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")
	userB := mustUUID(t, "00000000-0000-4000-8000-00000000000b")

	m.Update(doc1, userA, 0, "alice")
	m.Update(doc2, userA, 0, "alice")
	m.Update(doc2, userB, 0, "bob")

	m.RemoveAllForUser(userA)

	if got := m.List(doc1); len(got) != 0 {
		t.Errorf("doc1 still has %d cursors", len(got))
	}
	got := m.List(doc2)
	if len(got) != 1 || got[0].UserId != userB {
		t.Errorf("doc2 cursors wrong: %+v", got)
	}
}
