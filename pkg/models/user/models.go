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

package user

import (
	"github.com/coedit/coedit/pkg/sharedTypes"
)

// WithPublicInfo is the slice of the user row exposed to other members of
// a document: history listings, cursor frames, contribution stats.
type WithPublicInfo struct {
	Id          sharedTypes.UUID `json:"id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"displayName"`
}
