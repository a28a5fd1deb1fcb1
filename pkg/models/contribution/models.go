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

package contribution

import (
	"time"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

// UserContribution is one row of user_contributions, one per
// (document, user), created lazily on first contribution.
type UserContribution struct {
	Id                sharedTypes.UUID `json:"id"`
	DocumentId        sharedTypes.UUID `json:"documentId"`
	UserId            sharedTypes.UUID `json:"userId"`
	UserName          string           `json:"userName,omitempty"`
	EditCount         int64            `json:"editCount"`
	CharactersAdded   int64            `json:"charactersAdded"`
	CharactersDeleted int64            `json:"charactersDeleted"`
	FirstContribution time.Time        `json:"firstContribution"`
	LastContribution  time.Time        `json:"lastContribution"`
}

// Delta is the per-user increment folded out of a batch of applied
// operations. Counters only ever grow.
type Delta struct {
	UserId            sharedTypes.UUID
	EditCount         int64
	CharactersAdded   int64
	CharactersDeleted int64
}
