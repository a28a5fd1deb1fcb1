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

package sharedTypes

import (
	"encoding/json"

	"github.com/coedit/coedit/pkg/errors"
)

// Frame names on the per-document topic.
const (
	FrameOperation  = "operation"
	FrameCursor     = "cursor"
	FrameUsersList  = "users_list"
	FrameUserJoined = "user_joined"
	FrameUserLeft   = "user_left"
	FrameReset      = "reset"
)

// EditorEvent is the broadcast envelope published on a document channel and
// fanned out to every connected member.
type EditorEvent struct {
	DocId   UUID            `json:"documentId"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (e *EditorEvent) ChannelId() UUID {
	return e.DocId
}

func (e *EditorEvent) Validate() error {
	if e.Name == "" {
		return &errors.ValidationError{Msg: "missing event name"}
	}
	return nil
}

// OperationBody is the payload of an operation frame: the applied op with
// its server-assigned operationId, plus authoring metadata for the UI.
type OperationBody struct {
	Op       Operation `json:"op"`
	UserName string    `json:"userName,omitempty"`
}

// ResetBody carries the authoritative text after a revert, a stale edit or a
// room-level failure. Clients discard local state and rebase.
type ResetBody struct {
	Snapshot Snapshot `json:"text"`
	Version  Version  `json:"serverVersion"`
}

// CursorBody is one participant's caret position.
type CursorBody struct {
	UserId   UUID   `json:"userId"`
	Position int    `json:"position"`
	UserName string `json:"userName,omitempty"`
	Color    string `json:"color,omitempty"`
}

// ConnectedUser is one entry of a users_list frame.
type ConnectedUser struct {
	UserId   UUID      `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	JoinedAt Timestamp `json:"joinedAt"`
}
