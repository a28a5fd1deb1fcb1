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
	"reflect"
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

func TestTransform(t *testing.T) {
	userA := "00000000-0000-4000-8000-00000000000a"
	userB := "00000000-0000-4000-8000-00000000000b"

	insert := func(s string, pos int, author string) sharedTypes.Operation {
		return sharedTypes.Operation{
			Type:     sharedTypes.OpInsert,
			Content:  sharedTypes.Snippet(s),
			Position: pos,
			AuthorId: mustUUID(t, author),
		}
	}
	del := func(length, pos int, author string) sharedTypes.Operation {
		return sharedTypes.Operation{
			Type:     sharedTypes.OpDelete,
			Length:   length,
			Position: pos,
			AuthorId: mustUUID(t, author),
		}
	}

	tests := []struct {
		name       string
		op         sharedTypes.Operation
		concurrent []sharedTypes.Operation
		want       sharedTypes.Operation
	}{
		{
			name:       "emptyConcurrent",
			op:         insert("foo", 3, userA),
			concurrent: nil,
			want:       insert("foo", 3, userA),
		},
		{
			name:       "insertShiftedByEarlierInsert",
			op:         insert("foo", 3, userB),
			concurrent: []sharedTypes.Operation{insert("ab", 1, userA)},
			want:       insert("foo", 5, userB),
		},
		{
			name:       "insertNotShiftedByLaterInsert",
			op:         insert("foo", 3, userA),
			concurrent: []sharedTypes.Operation{insert("ab", 7, userB)},
			want:       insert("foo", 3, userA),
		},
		{
			name:       "insertTieLowerAuthorWins",
			op:         insert("World", 0, userB),
			concurrent: []sharedTypes.Operation{insert("Hello", 0, userA)},
			want:       insert("World", 5, userB),
		},
		{
			name:       "insertTieHigherAuthorStays",
			op:         insert("Hello", 0, userA),
			concurrent: []sharedTypes.Operation{insert("World", 0, userB)},
			want:       insert("Hello", 0, userA),
		},
		{
			name:       "insertAfterDeleteShiftsLeft",
			op:         insert("foo", 10, userB),
			concurrent: []sharedTypes.Operation{del(4, 2, userA)},
			want:       insert("foo", 6, userB),
		},
		{
			name:       "insertBeforeDeleteUnchanged",
			op:         insert("Hi ", 0, userB),
			concurrent: []sharedTypes.Operation{del(6, 0, userA)},
			want:       insert("Hi ", 0, userB),
		},
		{
			name:       "insertInsideDeletedRangeSnapsToStart",
			op:         insert("foo", 5, userB),
			concurrent: []sharedTypes.Operation{del(6, 2, userA)},
			want:       insert("foo", 2, userB),
		},
		{
			name:       "deleteAfterInsertShiftsRight",
			op:         del(3, 5, userB),
			concurrent: []sharedTypes.Operation{insert("ab", 2, userA)},
			want:       del(3, 7, userB),
		},
		{
			name:       "deleteBeforeInsertUnchanged",
			op:         del(3, 0, userB),
			concurrent: []sharedTypes.Operation{insert("ab", 7, userA)},
			want:       del(3, 0, userB),
		},
		{
			name:       "insertInsideDeleteRangeGrowsDelete",
			op:         del(4, 2, userB),
			concurrent: []sharedTypes.Operation{insert("abc", 4, userA)},
			want:       del(7, 2, userB),
		},
		{
			name:       "deleteAfterDisjointDeleteShiftsLeft",
			op:         del(3, 10, userB),
			concurrent: []sharedTypes.Operation{del(4, 2, userA)},
			want:       del(3, 6, userB),
		},
		{
			name:       "deleteBeforeDisjointDeleteUnchanged",
			op:         del(3, 0, userB),
			concurrent: []sharedTypes.Operation{del(4, 6, userA)},
			want:       del(3, 0, userB),
		},
		{
			name:       "deleteOverlapLeft",
			op:         del(5, 5, userB),
			concurrent: []sharedTypes.Operation{del(7, 0, userA)},
			want:       del(3, 0, userB),
		},
		{
			name:       "deleteOverlapRight",
			op:         del(7, 0, userB),
			concurrent: []sharedTypes.Operation{del(5, 5, userA)},
			want:       del(5, 0, userB),
		},
		{
			name:       "deleteFullyCoveredBecomesNoop",
			op:         del(3, 5, userB),
			concurrent: []sharedTypes.Operation{del(10, 0, userA)},
			want:       del(0, 0, userB),
		},
		{
			name: "foldAcrossMultiplePeers",
			op:   del(4, 8, userB),
			concurrent: []sharedTypes.Operation{
				insert("ab", 0, userA),
				del(2, 4, userA),
			},
			want: del(4, 8, userB),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Transform(tt.op, tt.concurrent)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Transform() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTransformDoesNotMutateInput(t *testing.T) {
	userA := "00000000-0000-4000-8000-00000000000a"
	userB := "00000000-0000-4000-8000-00000000000b"
	op := sharedTypes.Operation{
		Type:     sharedTypes.OpDelete,
		Length:   4,
		Position: 8,
		AuthorId: mustUUID(t, userB),
	}
	concurrent := []sharedTypes.Operation{
		{
			Type:     sharedTypes.OpDelete,
			Length:   4,
			Position: 2,
			AuthorId: mustUUID(t, userA),
		},
	}
	before := op
	peerBefore := concurrent[0]
	_ = Transform(op, concurrent)
	if !reflect.DeepEqual(op, before) {
		t.Errorf("op mutated: %+v", op)
	}
	if !reflect.DeepEqual(concurrent[0], peerBefore) {
		t.Errorf("peer mutated: %+v", concurrent[0])
	}
}

// Two concurrent inserts at the same position must converge regardless of
// apply order once transformed.
func TestTransformInsertCommutes(t *testing.T) {
	userA := mustUUID(t, "00000000-0000-4000-8000-00000000000a")
	userB := mustUUID(t, "00000000-0000-4000-8000-00000000000b")

	opA := sharedTypes.Operation{
		Type:     sharedTypes.OpInsert,
		Content:  sharedTypes.Snippet("Hello"),
		Position: 0,
		AuthorId: userA,
	}
	opB := sharedTypes.Operation{
		Type:     sharedTypes.OpInsert,
		Content:  sharedTypes.Snippet("World"),
		Position: 0,
		AuthorId: userB,
	}

	// A first, then B transformed against A.
	s1 := sharedTypes.Snapshot("")
	s1, err := Apply(s1, &opA)
	if err != nil {
		t.Fatal(err)
	}
	bPrime := Transform(opB, []sharedTypes.Operation{opA})
	s1, err = Apply(s1, &bPrime)
	if err != nil {
		t.Fatal(err)
	}

	// B first, then A transformed against B.
	s2 := sharedTypes.Snapshot("")
	s2, err = Apply(s2, &opB)
	if err != nil {
		t.Fatal(err)
	}
	aPrime := Transform(opA, []sharedTypes.Operation{opB})
	s2, err = Apply(s2, &aPrime)
	if err != nil {
		t.Fatal(err)
	}

	if string(s1) != "HelloWorld" || string(s2) != "HelloWorld" {
		t.Errorf("did not converge: %q vs %q", string(s1), string(s2))
	}
}
