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
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Manager interface {
	Create(ctx context.Context, d *Document) error
	Get(ctx context.Context, documentId sharedTypes.UUID) (Document, error)
	CheckAccess(ctx context.Context, documentId, userId sharedTypes.UUID) error
	CheckOwner(ctx context.Context, documentId, userId sharedTypes.UUID) error
	AddCollaborator(ctx context.Context, documentId, userId sharedTypes.UUID) error
	UpdateContent(ctx context.Context, documentId sharedTypes.UUID, content string) error
	Delete(ctx context.Context, documentId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) Create(ctx context.Context, d *Document) error {
	if d.Id.IsZero() {
		id, err := sharedTypes.GenerateUUID()
		if err != nil {
			return err
		}
		d.Id = id
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
	err := m.db.QueryRow(ctx, `
INSERT INTO documents
(id, name, owner_id, collaborator_ids, status, content, created_at,
 updated_at)
VALUES ($1, $2, $3, $4, $5, $6,
        transaction_timestamp(), transaction_timestamp())
RETURNING created_at, updated_at
`,
		d.Id, d.Name, d.OwnerId, d.CollaboratorIds, d.Status, d.Content,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return errors.Tag(err, "insert document")
	}
	return nil
}

func (m *manager) Get(ctx context.Context, documentId sharedTypes.UUID) (Document, error) {
	d := Document{}
	err := m.db.QueryRow(ctx, `
SELECT id, name, owner_id, collaborator_ids, status, content, created_at,
       updated_at
FROM documents
WHERE id = $1
`, documentId).Scan(
		&d.Id, &d.Name, &d.OwnerId, &d.CollaboratorIds, &d.Status,
		&d.Content, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return d, &errors.NotFoundError{}
	}
	if err != nil {
		return d, errors.Tag(err, "get document")
	}
	return d, nil
}

// CheckAccess resolves the join/edit authorization question: the user must
// be owner or collaborator of an active document.
func (m *manager) CheckAccess(ctx context.Context, documentId, userId sharedTypes.UUID) error {
	d, err := m.Get(ctx, documentId)
	if err != nil {
		return err
	}
	if d.Status != StatusActive {
		return &errors.InvalidStateError{Msg: "document is not active"}
	}
	if !d.HasMember(userId) {
		return &errors.NotAuthorizedError{}
	}
	return nil
}

func (m *manager) CheckOwner(ctx context.Context, documentId, userId sharedTypes.UUID) error {
	d, err := m.Get(ctx, documentId)
	if err != nil {
		return err
	}
	if d.OwnerId != userId {
		return &errors.NotAuthorizedError{}
	}
	return nil
}

func (m *manager) AddCollaborator(ctx context.Context, documentId, userId sharedTypes.UUID) error {
	r, err := m.db.Exec(ctx, `
UPDATE documents
SET collaborator_ids = array_append(collaborator_ids, $2),
    updated_at       = transaction_timestamp()
WHERE id = $1
  AND owner_id != $2
  AND NOT collaborator_ids @> ARRAY [$2::uuid]
`, documentId, userId)
	if err != nil {
		return errors.Tag(err, "add collaborator")
	}
	if r.RowsAffected() == 0 {
		// Already a member, or no such document. Resolve which.
		if _, err = m.Get(ctx, documentId); err != nil {
			return err
		}
	}
	return nil
}

func (m *manager) UpdateContent(ctx context.Context, documentId sharedTypes.UUID, content string) error {
	r, err := m.db.Exec(ctx, `
UPDATE documents
SET content = $2, updated_at = transaction_timestamp()
WHERE id = $1
`, documentId, content)
	if err != nil {
		return errors.Tag(err, "update content")
	}
	if r.RowsAffected() == 0 {
		return &errors.NotFoundError{}
	}
	return nil
}

func (m *manager) Delete(ctx context.Context, documentId sharedTypes.UUID) error {
	r, err := m.db.Exec(ctx, `
DELETE FROM documents WHERE id = $1
`, documentId)
	if err != nil {
		return errors.Tag(err, "delete document")
	}
	if r.RowsAffected() == 0 {
		return &errors.NotFoundError{}
	}
	return nil
}
