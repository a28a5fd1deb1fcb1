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
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/models/contribution"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Manager interface {
	CreateInitialVersion(ctx context.Context, documentId, authorId sharedTypes.UUID, initialText string) (DocumentVersion, error)
	InsertSnapshot(ctx context.Context, v *DocumentVersion, entryIds []sharedTypes.UUID, deltas []contribution.Delta) error
	GetHistory(ctx context.Context, documentId sharedTypes.UUID) ([]DocumentVersion, error)
	GetByNumber(ctx context.Context, documentId sharedTypes.UUID, n sharedTypes.VersionNumber) (DocumentVersion, error)
	GetLatest(ctx context.Context, documentId sharedTypes.UUID) (DocumentVersion, error)
	GetMaxNumber(ctx context.Context, documentId sharedTypes.UUID) (sharedTypes.VersionNumber, error)
	Delete(ctx context.Context, versionId sharedTypes.UUID) error
	DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

const allColumns = `id, document_id, version_number, content, created_by,
       created_at, change_description`

func scanVersion(r pgx.Row, v *DocumentVersion) error {
	return r.Scan(
		&v.Id, &v.DocumentId, &v.VersionNumber, &v.Content, &v.CreatedBy,
		&v.CreatedAt, &v.ChangeDescription,
	)
}

// CreateInitialVersion writes version 0 for a fresh document. It is
// idempotent: when version 0 exists already, the existing row is returned.
func (m *manager) CreateInitialVersion(ctx context.Context, documentId, authorId sharedTypes.UUID, initialText string) (DocumentVersion, error) {
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return DocumentVersion{}, err
	}
	_, err = m.db.Exec(ctx, `
INSERT INTO document_versions
(id, document_id, version_number, content, created_by, created_at,
 change_description)
VALUES ($1, $2, 0, $3, $4, transaction_timestamp(), 'Initial version')
ON CONFLICT (document_id, version_number) DO NOTHING
`, id, documentId, initialText, authorId)
	if err != nil {
		return DocumentVersion{}, errors.Tag(err, "insert initial version")
	}
	return m.GetByNumber(ctx, documentId, 0)
}

// InsertSnapshot atomically writes the version row, stamps the given
// change-log rows with its id, and folds the contribution deltas into
// user_contributions. A concurrent snapshot taking the same versionNumber
// surfaces as an InvalidStateError; the caller retries with a fresh number.
func (m *manager) InsertSnapshot(ctx context.Context, v *DocumentVersion, entryIds []sharedTypes.UUID, deltas []contribution.Delta) error {
	tx, err := m.db.Begin(ctx)
	if err != nil {
		return errors.Tag(err, "start tx")
	}
	ok := false
	defer func() {
		if !ok {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
INSERT INTO document_versions
(id, document_id, version_number, content, created_by, created_at,
 change_description)
VALUES ($1, $2, $3, $4, $5, transaction_timestamp(), $6)
RETURNING created_at
`,
		v.Id, v.DocumentId, v.VersionNumber, v.Content, v.CreatedBy,
		v.ChangeDescription,
	).Scan(&v.CreatedAt)
	if err != nil {
		if e, ok2 := err.(*pgconn.PgError); ok2 &&
			e.ConstraintName == "document_versions_document_id_version_number_key" {
			return &errors.InvalidStateError{
				Msg: "version number taken by concurrent snapshot",
			}
		}
		return errors.Tag(err, "insert version")
	}

	if len(entryIds) > 0 {
		_, err = tx.Exec(ctx, `
UPDATE change_tracking
SET version_id = $1
WHERE id = ANY ($2::uuid[])
`, v.Id, sharedTypes.UUIDStrings(entryIds))
		if err != nil {
			return errors.Tag(err, "link change log")
		}
	}

	for _, d := range deltas {
		id, err2 := sharedTypes.GenerateUUID()
		if err2 != nil {
			return err2
		}
		_, err = tx.Exec(ctx, `
INSERT INTO user_contributions
(id, document_id, user_id, edit_count, characters_added,
 characters_deleted, first_contribution, last_contribution)
VALUES ($1, $2, $3, $4, $5, $6,
        transaction_timestamp(), transaction_timestamp())
ON CONFLICT (document_id, user_id) DO UPDATE
    SET edit_count         = user_contributions.edit_count + EXCLUDED.edit_count,
        characters_added   = user_contributions.characters_added + EXCLUDED.characters_added,
        characters_deleted = user_contributions.characters_deleted + EXCLUDED.characters_deleted,
        last_contribution  = transaction_timestamp()
`,
			id, v.DocumentId, d.UserId, d.EditCount, d.CharactersAdded,
			d.CharactersDeleted,
		)
		if err != nil {
			return errors.Tag(err, "upsert contribution")
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return errors.Tag(err, "commit tx")
	}
	ok = true
	return nil
}

func (m *manager) GetHistory(ctx context.Context, documentId sharedTypes.UUID) ([]DocumentVersion, error) {
	r, err := m.db.Query(ctx, `
SELECT `+allColumns+`
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC
`, documentId)
	if err != nil {
		return nil, errors.Tag(err, "query history")
	}
	defer r.Close()
	out := make([]DocumentVersion, 0)
	for r.Next() {
		v := DocumentVersion{}
		if err = scanVersion(r, &v); err != nil {
			return nil, errors.Tag(err, "scan version")
		}
		out = append(out, v)
	}
	if err = r.Err(); err != nil {
		return nil, errors.Tag(err, "iter history")
	}
	return out, nil
}

func (m *manager) GetByNumber(ctx context.Context, documentId sharedTypes.UUID, n sharedTypes.VersionNumber) (DocumentVersion, error) {
	v := DocumentVersion{}
	err := scanVersion(m.db.QueryRow(ctx, `
SELECT `+allColumns+`
FROM document_versions
WHERE document_id = $1 AND version_number = $2
`, documentId, n), &v)
	if err == pgx.ErrNoRows {
		return v, &errors.NotFoundError{}
	}
	if err != nil {
		return v, errors.Tag(err, "get version")
	}
	return v, nil
}

func (m *manager) GetLatest(ctx context.Context, documentId sharedTypes.UUID) (DocumentVersion, error) {
	v := DocumentVersion{}
	err := scanVersion(m.db.QueryRow(ctx, `
SELECT `+allColumns+`
FROM document_versions
WHERE document_id = $1
ORDER BY version_number DESC
LIMIT 1
`, documentId), &v)
	if err == pgx.ErrNoRows {
		return v, &errors.NotFoundError{}
	}
	if err != nil {
		return v, errors.Tag(err, "get latest version")
	}
	return v, nil
}

// GetMaxNumber returns -1 when the document has no versions yet.
func (m *manager) GetMaxNumber(ctx context.Context, documentId sharedTypes.UUID) (sharedTypes.VersionNumber, error) {
	var n sharedTypes.VersionNumber
	err := m.db.QueryRow(ctx, `
SELECT COALESCE(MAX(version_number), -1)
FROM document_versions
WHERE document_id = $1
`, documentId).Scan(&n)
	if err != nil {
		return 0, errors.Tag(err, "get max version number")
	}
	return n, nil
}

func (m *manager) Delete(ctx context.Context, versionId sharedTypes.UUID) error {
	r, err := m.db.Exec(ctx, `
DELETE FROM document_versions WHERE id = $1
`, versionId)
	if err != nil {
		return errors.Tag(err, "delete version")
	}
	if r.RowsAffected() == 0 {
		return &errors.NotFoundError{}
	}
	return nil
}

func (m *manager) DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error {
	_, err := m.db.Exec(ctx, `
DELETE FROM document_versions WHERE document_id = $1
`, documentId)
	if err != nil {
		return errors.Tag(err, "delete versions")
	}
	return nil
}
