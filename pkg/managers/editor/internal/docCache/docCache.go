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

package docCache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Entry is the room state flushed to redis on teardown so a rejoin shortly
// after does not replay the change log from postgres. LastTs mirrors the
// room watermark: the change-log timestamp of the newest operation folded
// into Snapshot.
type Entry struct {
	Snapshot string              `json:"snapshot"`
	Version  sharedTypes.Version `json:"version"`
	LastTs   time.Time           `json:"lastTs"`
}

type Manager interface {
	Get(ctx context.Context, docId sharedTypes.UUID) (Entry, error)
	Set(ctx context.Context, docId sharedTypes.UUID, e Entry) error
	Delete(ctx context.Context, docId sharedTypes.UUID) error
}

const expiry = 24 * time.Hour

func New(client redis.UniversalClient) Manager {
	return &manager{client: client}
}

type manager struct {
	client redis.UniversalClient
}

func key(docId sharedTypes.UUID) string {
	return "doc:" + docId.String()
}

func (m *manager) Get(ctx context.Context, docId sharedTypes.UUID) (Entry, error) {
	e := Entry{}
	raw, err := m.client.Get(ctx, key(docId)).Bytes()
	if err == redis.Nil {
		return e, &errors.NotFoundError{}
	}
	if err != nil {
		return e, errors.Tag(err, "get cached doc")
	}
	if err = json.Unmarshal(raw, &e); err != nil {
		// A broken payload is as good as a miss; the change log replay
		// rebuilds the state.
		return e, &errors.NotFoundError{}
	}
	return e, nil
}

func (m *manager) Set(ctx context.Context, docId sharedTypes.UUID, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Tag(err, "serialize cached doc")
	}
	if err = m.client.Set(ctx, key(docId), raw, expiry).Err(); err != nil {
		return errors.Tag(err, "set cached doc")
	}
	return nil
}

func (m *manager) Delete(ctx context.Context, docId sharedTypes.UUID) error {
	if err := m.client.Del(ctx, key(docId)).Err(); err != nil {
		return errors.Tag(err, "delete cached doc")
	}
	return nil
}
