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
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Manager interface {
	GetForDocument(ctx context.Context, documentId sharedTypes.UUID) ([]UserContribution, error)
	DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error
}

func New(db *pgxpool.Pool) Manager {
	return &manager{db: db}
}

type manager struct {
	db *pgxpool.Pool
}

func (m *manager) GetForDocument(ctx context.Context, documentId sharedTypes.UUID) ([]UserContribution, error) {
	r, err := m.db.Query(ctx, `
SELECT id, document_id, user_id, edit_count, characters_added,
       characters_deleted, first_contribution, last_contribution
FROM user_contributions
WHERE document_id = $1
ORDER BY characters_added + characters_deleted DESC
`, documentId)
	if err != nil {
		return nil, errors.Tag(err, "query contributions")
	}
	defer r.Close()
	out := make([]UserContribution, 0)
	for r.Next() {
		c := UserContribution{}
		err = r.Scan(
			&c.Id, &c.DocumentId, &c.UserId, &c.EditCount,
			&c.CharactersAdded, &c.CharactersDeleted,
			&c.FirstContribution, &c.LastContribution,
		)
		if err != nil {
			return nil, errors.Tag(err, "scan contribution")
		}
		out = append(out, c)
	}
	if err = r.Err(); err != nil {
		return nil, errors.Tag(err, "iter contributions")
	}
	return out, nil
}

func (m *manager) DeleteAllForDocument(ctx context.Context, documentId sharedTypes.UUID) error {
	_, err := m.db.Exec(ctx, `
DELETE FROM user_contributions WHERE document_id = $1
`, documentId)
	if err != nil {
		return errors.Tag(err, "delete contributions")
	}
	return nil
}
