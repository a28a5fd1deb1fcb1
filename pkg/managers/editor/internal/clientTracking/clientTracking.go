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

package clientTracking

import (
	"sync"

	"github.com/coedit/coedit/pkg/sharedTypes"
)

// DefaultPalette has one entry per cursor slot; a user keeps the same color
// on every document and every node since assignment hashes the userId.
var DefaultPalette = []string{
	"#F44336", "#E91E63", "#9C27B0", "#673AB7", "#3F51B5",
	"#2196F3", "#03A9F4", "#00BCD4", "#009688", "#4CAF50",
	"#8BC34A", "#CDDC39", "#FFC107", "#FF9800", "#795548",
}

type Manager interface {
	Update(docId, userId sharedTypes.UUID, position int, userName string) sharedTypes.CursorBody
	Remove(docId, userId sharedTypes.UUID)
	RemoveAllForUser(userId sharedTypes.UUID)
	List(docId sharedTypes.UUID) []sharedTypes.CursorBody
}

func New(palette []string) Manager {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &manager{
		palette: palette,
		cursors: make(map[sharedTypes.UUID]map[sharedTypes.UUID]sharedTypes.CursorBody),
	}
}

type manager struct {
	mu      sync.Mutex
	palette []string
	cursors map[sharedTypes.UUID]map[sharedTypes.UUID]sharedTypes.CursorBody
}

func (m *manager) colorFor(userId sharedTypes.UUID) string {
	return m.palette[userId.Mod(len(m.palette))]
}

func (m *manager) Update(docId, userId sharedTypes.UUID, position int, userName string) sharedTypes.CursorBody {
	c := sharedTypes.CursorBody{
		UserId:   userId,
		Position: position,
		UserName: userName,
		Color:    m.colorFor(userId),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser, ok := m.cursors[docId]
	if !ok {
		byUser = make(map[sharedTypes.UUID]sharedTypes.CursorBody)
		m.cursors[docId] = byUser
	}
	byUser[userId] = c
	return c
}

func (m *manager) Remove(docId, userId sharedTypes.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser, ok := m.cursors[docId]
	if !ok {
		return
	}
	delete(byUser, userId)
	if len(byUser) == 0 {
		delete(m.cursors, docId)
	}
}

func (m *manager) RemoveAllForUser(userId sharedTypes.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for docId, byUser := range m.cursors {
		delete(byUser, userId)
		if len(byUser) == 0 {
			delete(m.cursors, docId)
		}
	}
}

func (m *manager) List(docId sharedTypes.UUID) []sharedTypes.CursorBody {
	m.mu.Lock()
	defer m.mu.Unlock()
	byUser := m.cursors[docId]
	out := make([]sharedTypes.CursorBody, 0, len(byUser))
	for _, c := range byUser {
		out = append(out, c)
	}
	return out
}
