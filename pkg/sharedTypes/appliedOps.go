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
	"github.com/coedit/coedit/pkg/errors"
)

type OperationType string

const (
	OpInsert OperationType = "INSERT"
	OpDelete OperationType = "DELETE"
)

func (t OperationType) Validate() error {
	switch t {
	case OpInsert, OpDelete:
		return nil
	default:
		return &errors.ValidationError{
			Msg: "unknown operation type: " + string(t),
		}
	}
}

// Operation is a single character-level edit. Operations are immutable once
// an operationId has been assigned; transformation produces new values with
// adjusted Position (and Length for deletes) only.
type Operation struct {
	Type        OperationType `json:"type"`
	Content     Snippet       `json:"content,omitempty"`
	Length      int           `json:"length,omitempty"`
	Position    int           `json:"position"`
	AuthorId    UUID          `json:"authorId"`
	DocumentId  UUID          `json:"documentId"`
	OperationId Version       `json:"operationId,omitempty"`
	BaseVersion Version       `json:"baseVersion"`

	// Deleted is the exact text removed by a delete, captured at apply time
	// for the change log. Never set on inbound frames.
	Deleted Snippet `json:"deletedText,omitempty"`
}

func (o *Operation) IsInsert() bool {
	return o.Type == OpInsert
}

func (o *Operation) IsDelete() bool {
	return o.Type == OpDelete
}

// IsNoop reports whether the operation has been transformed into nothing,
// i.e. a delete whose range was already removed by concurrent peers.
func (o *Operation) IsNoop() bool {
	return o.IsDelete() && o.Length <= 0
}

func (o *Operation) Validate() error {
	if err := o.Type.Validate(); err != nil {
		return err
	}
	if o.Position < 0 {
		return &errors.ValidationError{Msg: "position is negative"}
	}
	if o.BaseVersion < 0 {
		return &errors.ValidationError{Msg: "baseVersion missing"}
	}
	if o.IsInsert() {
		if len(o.Content) == 0 {
			return &errors.ValidationError{Msg: "insert without content"}
		}
		return Snapshot(o.Content).Validate()
	}
	if o.Length <= 0 {
		return &errors.ValidationError{Msg: "delete without length"}
	}
	return nil
}

// CheckBounds validates the operation range against the given document size
// in code points.
func (o *Operation) CheckBounds(docLen int) error {
	if o.IsInsert() {
		if o.Position > docLen {
			return &errors.ValidationError{
				Msg: "insert position past end of doc",
			}
		}
		return nil
	}
	if o.Position+o.Length > docLen {
		return &errors.ValidationError{
			Msg: "delete range past end of doc",
		}
	}
	return nil
}

// DocumentUpdate is the semantic payload of one inbound edit frame.
type DocumentUpdate struct {
	DocId    UUID      `json:"documentId"`
	UserId   UUID      `json:"userId"`
	UserName string    `json:"userName,omitempty"`
	Op       Operation `json:"operation"`
}

func (d *DocumentUpdate) Validate() error {
	if d.DocId.IsZero() {
		return &errors.ValidationError{Msg: "missing documentId"}
	}
	if d.UserId.IsZero() {
		return &errors.ValidationError{Msg: "missing userId"}
	}
	return d.Op.Validate()
}

// DocumentUpdateAck confirms an applied operation to its originator.
type DocumentUpdateAck struct {
	DocId       UUID    `json:"documentId"`
	OperationId Version `json:"operationId"`
	BaseVersion Version `json:"baseVersion"`
}
