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
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Manager interface {
	GetUser(ctx context.Context, userId sharedTypes.UUID) (WithPublicInfo, error)
	GetUsers(ctx context.Context, userIds []sharedTypes.UUID) (map[sharedTypes.UUID]WithPublicInfo, error)
}

// New returns a read-only user directory with an in-process LRU over
// display info. Entries are immutable for our purposes; stale names age
// out with the cache.
func New(db *pgxpool.Pool, cacheSize int) (Manager, error) {
	c, err := lru.New[sharedTypes.UUID, WithPublicInfo](cacheSize)
	if err != nil {
		return nil, errors.Tag(err, "create user cache")
	}
	return &manager{db: db, cache: c}, nil
}

type manager struct {
	db    *pgxpool.Pool
	cache *lru.Cache[sharedTypes.UUID, WithPublicInfo]
}

func (m *manager) GetUser(ctx context.Context, userId sharedTypes.UUID) (WithPublicInfo, error) {
	if u, ok := m.cache.Get(userId); ok {
		return u, nil
	}
	u := WithPublicInfo{}
	err := m.db.QueryRow(ctx, `
SELECT id, email, display_name
FROM users
WHERE id = $1 AND deleted_at IS NULL
`, userId).Scan(&u.Id, &u.Email, &u.DisplayName)
	if err == pgx.ErrNoRows {
		return u, &errors.NotFoundError{}
	}
	if err != nil {
		return u, errors.Tag(err, "get user")
	}
	m.cache.Add(u.Id, u)
	return u, nil
}

// GetUsers resolves display info in bulk. Deleted or unknown ids are simply
// absent from the result; callers render a fallback name.
func (m *manager) GetUsers(ctx context.Context, userIds []sharedTypes.UUID) (map[sharedTypes.UUID]WithPublicInfo, error) {
	out := make(map[sharedTypes.UUID]WithPublicInfo, len(userIds))
	missing := make([]sharedTypes.UUID, 0, len(userIds))
	for _, id := range userIds {
		if _, dup := out[id]; dup {
			continue
		}
		if u, ok := m.cache.Get(id); ok {
			out[id] = u
		} else {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}
	r, err := m.db.Query(ctx, `
SELECT id, email, display_name
FROM users
WHERE id = ANY ($1::uuid[]) AND deleted_at IS NULL
`, sharedTypes.UUIDStrings(missing))
	if err != nil {
		return nil, errors.Tag(err, "query users")
	}
	defer r.Close()
	for r.Next() {
		u := WithPublicInfo{}
		if err = r.Scan(&u.Id, &u.Email, &u.DisplayName); err != nil {
			return nil, errors.Tag(err, "scan user")
		}
		m.cache.Add(u.Id, u)
		out[u.Id] = u
	}
	if err = r.Err(); err != nil {
		return nil, errors.Tag(err, "iter users")
	}
	return out, nil
}
