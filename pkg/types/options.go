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

package types

import (
	"time"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/options/env"
)

type Options struct {
	// RecentRetention caps the per-document window of recent operations
	// kept in memory for transforming stale edits.
	RecentRetention int

	// GracePeriod is how long an idle document room stays open after the
	// last client leaves.
	GracePeriod time.Duration

	// AuthTimeout bounds the access check during joinDoc.
	AuthTimeout time.Duration

	// CursorPalette overrides the default cursor color palette.
	CursorPalette []string

	DiffStatsEnabled bool

	WriteQueueDepth int
	UserCacheSize   int
}

func (o *Options) FillFromEnv() {
	o.RecentRetention = env.GetInt("RECENT_RETENTION", 1024)
	o.GracePeriod = env.GetDuration("ROOM_GRACE_PERIOD_S", 30*time.Second)
	o.AuthTimeout = env.GetDuration("AUTHORIZATION_TIMEOUT_MS", 5*time.Second)
	env.ParseJSONIfSet(&o.CursorPalette, "CURSOR_PALETTE")
	o.DiffStatsEnabled = env.GetBool("DIFF_STATS_ENABLED", true)
	o.WriteQueueDepth = env.GetInt("WRITE_QUEUE_DEPTH", 10)
	o.UserCacheSize = env.GetInt("USER_CACHE_SIZE", 2048)
}

func (o *Options) Validate() error {
	if o.RecentRetention <= 0 {
		return &errors.ValidationError{Msg: "recent_retention must be greater zero"}
	}
	if o.GracePeriod <= 0 {
		return &errors.ValidationError{Msg: "grace_period must be greater zero"}
	}
	if o.AuthTimeout <= 0 {
		return &errors.ValidationError{Msg: "auth_timeout must be greater zero"}
	}
	if o.WriteQueueDepth <= 0 {
		return &errors.ValidationError{Msg: "write_queue_depth must be greater zero"}
	}
	if o.UserCacheSize <= 0 {
		return &errors.ValidationError{Msg: "user_cache_size must be greater zero"}
	}
	// Color assignment hashes the userId over a fixed 15 cursor slots; a
	// palette of any other size would shift everyone's color.
	if len(o.CursorPalette) != 0 && len(o.CursorPalette) != 15 {
		return &errors.ValidationError{
			Msg: "cursor_palette must hold exactly 15 colors",
		}
	}
	for _, c := range o.CursorPalette {
		if len(c) != 7 || c[0] != '#' {
			return &errors.ValidationError{
				Msg: "cursor_palette entries must look like #rrggbb",
			}
		}
	}
	return nil
}
