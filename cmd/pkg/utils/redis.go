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

package utils

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/options/redisOptions"
)

// ensureRedisAcceptsWrites writes a dummy value as health check on startup.
// A standalone that is not reachable times out; a cluster with a shard down
// errors out, provided cluster-require-full-coverage=yes is set (the
// default).
func ensureRedisAcceptsWrites(ctx context.Context, rClient redis.UniversalClient) error {
	return rClient.Set(ctx, "startup", "42", time.Second).Err()
}

func MustConnectRedis(ctx context.Context) redis.UniversalClient {
	ctx, done := context.WithTimeout(ctx, 10*time.Second)
	defer done()

	rClient := redis.NewUniversalClient(redisOptions.Parse())
	if err := ensureRedisAcceptsWrites(ctx, rClient); err != nil {
		panic(errors.Tag(err, "ensure redis accepts writes"))
	}
	return rClient
}
