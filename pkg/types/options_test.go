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
	"testing"
	"time"
)

func validOptions() Options {
	return Options{
		RecentRetention: 1024,
		GracePeriod:     30 * time.Second,
		AuthTimeout:     5 * time.Second,
		WriteQueueDepth: 10,
		UserCacheSize:   2048,
	}
}

func fullPalette() []string {
	out := make([]string, 15)
	for i := range out {
		out[i] = "#00000" + string(rune('a'+i))
	}
	return out
}

func TestOptionsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(o *Options)
		wantOk bool
	}{
		{
			name:   "defaults",
			mutate: func(o *Options) {},
			wantOk: true,
		},
		{
			name: "emptyPaletteUsesBuiltin",
			mutate: func(o *Options) {
				o.CursorPalette = nil
			},
			wantOk: true,
		},
		{
			name: "fullPalette",
			mutate: func(o *Options) {
				o.CursorPalette = fullPalette()
			},
			wantOk: true,
		},
		{
			name: "shortPalette",
			mutate: func(o *Options) {
				o.CursorPalette = fullPalette()[:3]
			},
			wantOk: false,
		},
		{
			name: "oversizedPalette",
			mutate: func(o *Options) {
				o.CursorPalette = append(fullPalette(), "#ffffff")
			},
			wantOk: false,
		},
		{
			name: "badPaletteEntry",
			mutate: func(o *Options) {
				p := fullPalette()
				p[7] = "red"
				o.CursorPalette = p
			},
			wantOk: false,
		},
		{
			name: "zeroRetention",
			mutate: func(o *Options) {
				o.RecentRetention = 0
			},
			wantOk: false,
		},
		{
			name: "zeroGracePeriod",
			mutate: func(o *Options) {
				o.GracePeriod = 0
			},
			wantOk: false,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			o := validOptions()
			c.mutate(&o)
			err := o.Validate()
			if c.wantOk && err != nil {
				t.Errorf("unexpected error: %s", err)
			}
			if !c.wantOk && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
