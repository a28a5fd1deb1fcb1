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
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Manager interface {
	Append(ctx context.Context, e *Entry) error
	CountForDocument(ctx context.Context, documentId sharedTypes.UUID) (int64, error)
	ListUnversioned(ctx context.Context, documentId sharedTypes.UUID) ([]Entry, error)
	ListByVersion(ctx context.Context, versionId sharedTypes.UUID) ([]Entry, error)
	Unlink(ctx context.Context, versionId sharedTypes.UUID) error
	DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) Append(ctx context.Context, e *Entry) error {
	_, err := m.db.Exec(ctx, `
INSERT INTO change_tracking
(id, document_id, user_id, change_type, content, position, timestamp,
 version_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)
`,
		e.Id, e.DocumentId, e.UserId, e.ChangeType, e.Content, e.Position,
		e.Timestamp,
	)
	if err != nil {
		return errors.Tag(err, "append change")
	}
	return nil
}

// CountForDocument counts all changes ever applied to the document,
// versioned or not. Exactly one row exists per applied operation, so the
// count rehydrates the operationId sequence.
func (m *manager) CountForDocument(ctx context.Context, documentId sharedTypes.UUID) (int64, error) {
	var n int64
	err := m.db.QueryRow(ctx, `
SELECT COUNT(*) FROM change_tracking WHERE document_id = $1
`, documentId).Scan(&n)
	if err != nil {
		return 0, errors.Tag(err, "count changes")
	}
	return n, nil
}

// ListUnversioned returns the unversioned tail in application order. Rows
// carry the timestamps the room assigned under its gate, which are strictly
// increasing per document.
func (m *manager) ListUnversioned(ctx context.Context, documentId sharedTypes.UUID) ([]Entry, error) {
	return m.list(ctx, `
SELECT id, document_id, user_id, change_type, content, position, timestamp,
       version_id
FROM change_tracking
WHERE document_id = $1 AND version_id IS NULL
ORDER BY timestamp
`, documentId)
}

func (m *manager) ListByVersion(ctx context.Context, versionId sharedTypes.UUID) ([]Entry, error) {
	return m.list(ctx, `
SELECT id, document_id, user_id, change_type, content, position, timestamp,
       version_id
FROM change_tracking
WHERE version_id = $1
ORDER BY timestamp
`, versionId)
}

func (m *manager) list(ctx context.Context, q string, arg interface{}) ([]Entry, error) {
	r, err := m.db.Query(ctx, q, arg)
	if err != nil {
		return nil, errors.Tag(err, "query changes")
	}
	defer r.Close()
	out := make([]Entry, 0)
	for r.Next() {
		e := Entry{}
		err = r.Scan(
			&e.Id, &e.DocumentId, &e.UserId, &e.ChangeType, &e.Content,
			&e.Position, &e.Timestamp, &e.VersionId,
		)
		if err != nil {
			return nil, errors.Tag(err, "scan change")
		}
		out = append(out, e)
	}
	if err = r.Err(); err != nil {
		return nil, errors.Tag(err, "iter changes")
	}
	return out, nil
}

// Unlink returns a version's changes to the unversioned tail. Used when a
// version is purged; the changes outlive it and fold into the next snapshot.
func (m *manager) Unlink(ctx context.Context, versionId sharedTypes.UUID) error {
	_, err := m.db.Exec(ctx, `
UPDATE change_tracking SET version_id = NULL WHERE version_id = $1
`, versionId)
	if err != nil {
		return errors.Tag(err, "unlink changes")
	}
	return nil
}

func (m *manager) DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error {
	_, err := m.db.Exec(ctx, `
DELETE FROM change_tracking WHERE document_id = $1
`, documentId)
	if err != nil {
		return errors.Tag(err, "delete changes")
	}
	return nil
}
