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

package document

import (
	"time"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Document is the metadata row. Content mirrors the latest room text as a
// plain string for listings and cold starts; the version history remains
// the source of truth.
type Document struct {
	Id              sharedTypes.UUID   `json:"id"`
	Name            string             `json:"name"`
	OwnerId         sharedTypes.UUID   `json:"ownerId"`
	CollaboratorIds []sharedTypes.UUID `json:"collaboratorIds"`
	Status          Status             `json:"status"`
	Content         string             `json:"content"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// HasMember reports whether userId is the owner or a collaborator.
func (d *Document) HasMember(userId sharedTypes.UUID) bool {
	if d.OwnerId == userId {
		return true
	}
	for _, id := range d.CollaboratorIds {
		if id == userId {
			return true
		}
	}
	return false
}
