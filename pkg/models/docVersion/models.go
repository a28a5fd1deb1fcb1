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

package docVersion

import (
	"time"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

// DocumentVersion is one row of document_versions. VersionNumber is dense
// per document, starting at 0 at document creation.
type DocumentVersion struct {
	Id                sharedTypes.UUID          `json:"id"`
	DocumentId        sharedTypes.UUID          `json:"documentId"`
	VersionNumber     sharedTypes.VersionNumber `json:"versionNumber"`
	Content           string                    `json:"content"`
	CreatedBy         sharedTypes.UUID          `json:"createdBy"`
	CreatedByName     string                    `json:"createdByName,omitempty"`
	CreatedAt         time.Time                 `json:"createdAt"`
	ChangeDescription string                    `json:"changeDescription"`
}
