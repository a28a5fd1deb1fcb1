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

package changeLog

import (
	"time"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Entry is one row of change_tracking. Content holds the inserted text for
// inserts and the captured deleted text for deletes. A nil VersionId marks
// the entry as part of the unversioned tail.
type Entry struct {
	Id         sharedTypes.UUID          `json:"id"`
	DocumentId sharedTypes.UUID          `json:"documentId"`
	UserId     sharedTypes.UUID          `json:"userId"`
	ChangeType sharedTypes.OperationType `json:"changeType"`
	Content    string                    `json:"content"`
	Position   int                       `json:"position"`
	Timestamp  time.Time                 `json:"timestamp"`
	VersionId  *sharedTypes.UUID         `json:"versionId,omitempty"`
}

// Operation rebuilds the applied operation for replaying the log. The
// position was recorded against the text at application time, so replaying
// entries in timestamp order reproduces it exactly.
func (e *Entry) Operation() sharedTypes.Operation {
	op := sharedTypes.Operation{
		Type:     e.ChangeType,
		Position: e.Position,
		AuthorId: e.UserId,
	}
	if e.ChangeType == sharedTypes.OpInsert {
		op.Content = sharedTypes.Snippet(e.Content)
	} else {
		op.Length = len([]rune(e.Content))
	}
	return op
}

// FromOperation builds the change-log row for an applied operation. The
// deleted snippet has been captured into op.Deleted during apply.
func FromOperation(update *sharedTypes.DocumentUpdate, at time.Time) (Entry, error) {
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return Entry{}, err
	}
	content := string(update.Op.Content)
	if update.Op.IsDelete() {
		content = string(update.Op.Deleted)
	}
	return Entry{
		Id:         id,
		DocumentId: update.DocId,
		UserId:     update.UserId,
		ChangeType: update.Op.Type,
		Content:    content,
		Position:   update.Op.Position,
		Timestamp:  at,
	}, nil
}
