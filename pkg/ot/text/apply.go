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
	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Apply mutates snapshot per op and returns the new snapshot. For deletes
// the removed text is captured into op.Deleted for the change log. The
// caller has validated type and bounds already; violations here are fatal.
func Apply(snapshot sharedTypes.Snapshot, op *sharedTypes.Operation) (sharedTypes.Snapshot, error) {
	if op.IsInsert() {
		if op.Position > len(snapshot) {
			return nil, &errors.DocConsistencyError{
				Msg: "insert past end of doc after transform",
			}
		}
		return Inject(snapshot, op.Position, op.Content), nil
	}
	if op.IsDelete() {
		start := op.Position
		end := op.Position + op.Length
		if end > len(snapshot) {
			return nil, &errors.DocConsistencyError{
				Msg: "delete past end of doc after transform",
			}
		}
		op.Deleted = append(sharedTypes.Snippet{}, snapshot[start:end]...)
		s := make(sharedTypes.Snapshot, 0, len(snapshot)-op.Length)
		s = append(s, snapshot[:start]...)
		s = append(s, snapshot[end:]...)
		return s, nil
	}
	return nil, &errors.DocConsistencyError{
		Msg: "unknown operation type past validation",
	}
}

// Inject returns a copy of s with the snippet inserted at pos.
func Inject(s sharedTypes.Snapshot, pos int, insertion sharedTypes.Snippet) sharedTypes.Snapshot {
	out := make(sharedTypes.Snapshot, 0, len(s)+len(insertion))
	out = append(out, s[:pos]...)
	out = append(out, insertion...)
	out = append(out, s[pos:]...)
	return out
}
