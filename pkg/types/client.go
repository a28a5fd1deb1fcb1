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
	"sync"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Client is one websocket connection. All frames leave through WriteQueue;
// the router owns the single writer goroutine draining it. A full queue
// marks the connection as too slow and triggers a disconnect rather than
// blocking the broadcast path.
type Client struct {
	UserId      sharedTypes.UUID
	DisplayName string

	mu     sync.Mutex
	docId  sharedTypes.UUID
	closed bool

	writeQueue chan *RPCResponse
	disconnect func()
}

func NewClient(userId sharedTypes.UUID, displayName string, queueDepth int, disconnect func()) *Client {
	return &Client{
		UserId:      userId,
		DisplayName: displayName,
		writeQueue:  make(chan *RPCResponse, queueDepth),
		disconnect:  disconnect,
	}
}

// WriteQueue exposes the drain side to the writer goroutine.
func (c *Client) WriteQueue() <-chan *RPCResponse {
	return c.writeQueue
}

func (c *Client) MarkJoined(docId sharedTypes.UUID) {
	c.mu.Lock()
	c.docId = docId
	c.mu.Unlock()
}

func (c *Client) MarkLeft() {
	c.mu.Lock()
	c.docId = sharedTypes.UUID{}
	c.mu.Unlock()
}

func (c *Client) JoinedDoc() (sharedTypes.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.docId, !c.docId.IsZero()
}

func (c *Client) CanDo(action Action, docId sharedTypes.UUID) error {
	switch action {
	case Ping:
		return nil
	case JoinDoc:
		if docId.IsZero() {
			return &errors.ValidationError{Msg: "missing docId"}
		}
		if joined, ok := c.JoinedDoc(); ok && joined != docId {
			return &errors.InvalidStateError{Msg: "joined another doc"}
		}
		return nil
	case LeaveDoc, ApplyUpdate, UpdatePosition, GetConnected:
		joined, ok := c.JoinedDoc()
		if !ok {
			return &errors.InvalidStateError{Msg: "join doc first"}
		}
		if joined != docId {
			return &errors.ValidationError{Msg: "docId mismatch"}
		}
		return nil
	default:
		return &errors.ValidationError{Msg: "unknown action"}
	}
}

// EnsureQueueResponse queues resp, disconnecting the client instead of
// blocking when the queue is full. Reports whether resp was queued.
func (c *Client) EnsureQueueResponse(resp *RPCResponse) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	select {
	case c.writeQueue <- resp:
		c.mu.Unlock()
		return true
	default:
		c.mu.Unlock()
		c.TriggerDisconnect()
		return false
	}
}

// TriggerDisconnect tells the router to tear the connection down. Safe to
// call multiple times and from any goroutine.
func (c *Client) TriggerDisconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.writeQueue)
	c.mu.Unlock()
	if c.disconnect != nil {
		c.disconnect()
	}
}
