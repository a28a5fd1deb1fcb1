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

package postgresOptions

import (
	"net/url"
	"strconv"

	"github.com/coedit/coedit/pkg/options/env"
)

func Parse() string {
	poolSize := env.GetInt("POSTGRES_POOL_SIZE", 25)
	u := url.URL{
		Scheme: "postgresql",
		User:   url.User("postgres"),
		Host:   env.GetString("POSTGRES_HOST", "localhost:5432"),
		Path:   "/postgres",
	}
	u.RawQuery = url.Values{
		"sslmode":        {"disable"},
		"pool_max_conns": {strconv.FormatInt(int64(poolSize), 10)},
	}.Encode()
	return env.GetString("POSTGRES_DSN", u.String())
}
