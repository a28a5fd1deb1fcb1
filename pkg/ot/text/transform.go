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
	"bytes"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Transform rebases op against the ordered list of operations that were
// applied after op's baseVersion. It never mutates its arguments; the result
// keeps Type, Content, AuthorId and BaseVersion, with Position (and Length
// for deletes) adjusted. A delete fully covered by concurrent deletes comes
// back with Length 0 and must be treated as a no-op by the caller.
func Transform(op sharedTypes.Operation, concurrent []sharedTypes.Operation) sharedTypes.Operation {
	for i := range concurrent {
		op = transformComponent(op, &concurrent[i])
		if op.IsNoop() {
			return op
		}
	}
	return op
}

func transformComponent(op sharedTypes.Operation, peer *sharedTypes.Operation) sharedTypes.Operation {
	if op.IsInsert() {
		if peer.IsInsert() {
			// Ties on position break on authorId to keep both sides
			// converging on the same order.
			if peer.Position < op.Position ||
				(peer.Position == op.Position &&
					authorBefore(peer.AuthorId, op.AuthorId)) {
				op.Position += len(peer.Content)
			}
			return op
		}
		peerEnd := peer.Position + peer.Length
		switch {
		case peerEnd <= op.Position:
			op.Position -= peer.Length
		case peer.Position >= op.Position:
			// Deletion strictly after the insert point.
		default:
			// Insert point fell inside the deleted range.
			op.Position = peer.Position
		}
		return op
	}

	// op is a delete
	opEnd := op.Position + op.Length
	if peer.IsInsert() {
		switch {
		case peer.Position <= op.Position:
			op.Position += len(peer.Content)
		case peer.Position >= opEnd:
			// Insertion after the deleted range.
		default:
			// Inserted text falls inside the deletion range; grow the
			// delete to keep it contiguous.
			op.Length += len(peer.Content)
		}
		return op
	}

	peerEnd := peer.Position + peer.Length
	shift := 0
	if peer.Position < op.Position {
		shift = min(peerEnd, op.Position) - peer.Position
	}
	overlap := min(opEnd, peerEnd) - max(op.Position, peer.Position)
	if overlap > 0 {
		op.Length -= overlap
	}
	op.Position -= shift
	return op
}

func authorBefore(a, b sharedTypes.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
