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

// Package room runs one goroutine per open document. The mailbox is the
// exclusive gate from the concurrency model: operations cross it one at a
// time, which defines the total operationId order.
package room

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/models/changeLog"
	"github.com/coedit/coedit/pkg/ot/text"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

// Persistence is the slice of the change-log manager the room needs.
type Persistence interface {
	Append(ctx context.Context, e *changeLog.Entry) error
}

// Broadcaster publishes a frame on the document channel. Delivery to local
// members happens via the pub/sub listener, never directly from here.
type Broadcaster interface {
	Broadcast(ctx context.Context, e *sharedTypes.EditorEvent) error
}

const (
	mailboxDepth   = 64
	persistRetries = 3
	persistTimeout = 10 * time.Second
)

// Snapshot is what join returns and what teardown flushes. LastTs is the
// change-log timestamp of the newest operation folded into Text; the
// version controller uses it to cut the unversioned tail consistently
// while edits keep flowing.
type Snapshot struct {
	Text    string
	Version sharedTypes.Version
	LastTs  time.Time
	Members []sharedTypes.ConnectedUser
}

type Room struct {
	docId sharedTypes.UUID
	c     chan func()

	// mu guards closed and the send into c; after Stop any call returns
	// ErrRoomClosed instead of hitting the closed mailbox.
	mu     sync.Mutex
	closed bool

	// Owned by the process goroutine.
	snapshot sharedTypes.Snapshot
	version  sharedTypes.Version
	recent   []sharedTypes.Operation
	members  map[sharedTypes.UUID]sharedTypes.ConnectedUser
	lastTs   time.Time

	retention int
	p         Persistence
	b         Broadcaster
}

// New starts the actor on rehydrated state: initialText is the latest
// persisted text, version the number of operations ever applied to it and
// lastTs the change-log timestamp of the newest of those.
func New(docId sharedTypes.UUID, initialText string, version sharedTypes.Version, lastTs time.Time, retention int, p Persistence, b Broadcaster) *Room {
	r := &Room{
		docId:     docId,
		c:         make(chan func(), mailboxDepth),
		snapshot:  sharedTypes.Snapshot(initialText),
		version:   version,
		recent:    make([]sharedTypes.Operation, 0, retention),
		members:   make(map[sharedTypes.UUID]sharedTypes.ConnectedUser),
		lastTs:    lastTs,
		retention: retention,
		p:         p,
		b:         b,
	}
	go r.process()
	return r
}

func (r *Room) process() {
	for fn := range r.c {
		fn()
	}
}

// ErrRoomClosed surfaces a call racing Stop. The caller retries against a
// rehydrated room or gives up; it must never crash.
var ErrRoomClosed = &errors.InvalidStateError{Msg: "doc room closed"}

// send queues fn on the mailbox unless the room has been stopped. The
// actor drains the mailbox independently of mu, so holding it across the
// send cannot deadlock.
func (r *Room) send(fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRoomClosed
	}
	r.c <- fn
	return nil
}

// Stop drains the mailbox and returns the final state for flushing. Calls
// racing or following Stop get ErrRoomClosed; a second Stop returns the
// zero Snapshot.
func (r *Room) Stop() Snapshot {
	done := make(chan Snapshot, 1)
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return Snapshot{}
	}
	r.closed = true
	r.c <- func() {
		done <- r.stateLocked()
	}
	close(r.c)
	r.mu.Unlock()
	return <-done
}

// State returns a point-in-time copy without stopping the actor.
func (r *Room) State() (Snapshot, error) {
	done := make(chan Snapshot, 1)
	if err := r.send(func() {
		done <- r.stateLocked()
	}); err != nil {
		return Snapshot{}, err
	}
	return <-done, nil
}

func (r *Room) stateLocked() Snapshot {
	members := make([]sharedTypes.ConnectedUser, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	return Snapshot{
		Text:    string(r.snapshot),
		Version: r.version,
		LastTs:  r.lastTs,
		Members: members,
	}
}

// Join adds or refreshes a member and returns the current state. The
// user_joined frame goes out on the channel for everyone else.
func (r *Room) Join(ctx context.Context, userId sharedTypes.UUID, userName string) (Snapshot, error) {
	done := make(chan Snapshot, 1)
	err := r.send(func() {
		u := sharedTypes.ConnectedUser{
			UserId:   userId,
			UserName: userName,
			JoinedAt: sharedTypes.Timestamp(time.Now().UnixMilli()),
		}
		_, rejoin := r.members[userId]
		r.members[userId] = u
		if !rejoin {
			r.publish(ctx, sharedTypes.FrameUserJoined, u)
		}
		done <- r.stateLocked()
	})
	if err != nil {
		return Snapshot{}, err
	}
	return <-done, nil
}

// Leave removes a member and reports how many remain.
func (r *Room) Leave(ctx context.Context, userId sharedTypes.UUID) (int, error) {
	done := make(chan int, 1)
	err := r.send(func() {
		if u, ok := r.members[userId]; ok {
			delete(r.members, userId)
			r.publish(ctx, sharedTypes.FrameUserLeft, u)
		}
		done <- len(r.members)
	})
	if err != nil {
		return 0, err
	}
	return <-done, nil
}

type applyResult struct {
	ack   sharedTypes.DocumentUpdateAck
	reset *sharedTypes.ResetBody
	err   error
}

// ApplyEdit runs the full pipeline under the gate: pick the concurrent
// tail, transform, bounds-check, apply, persist, broadcast, ack. A stale
// baseVersion comes back as a StaleDocError together with a reset body the
// caller forwards to the submitting client only.
func (r *Room) ApplyEdit(update *sharedTypes.DocumentUpdate) (sharedTypes.DocumentUpdateAck, *sharedTypes.ResetBody, error) {
	done := make(chan applyResult, 1)
	err := r.send(func() {
		done <- r.applyEdit(update)
	})
	if err != nil {
		return sharedTypes.DocumentUpdateAck{}, nil, err
	}
	res := <-done
	return res.ack, res.reset, res.err
}

func (r *Room) applyEdit(update *sharedTypes.DocumentUpdate) applyResult {
	if _, ok := r.members[update.UserId]; !ok {
		return applyResult{err: &errors.NotAuthorizedError{}}
	}
	base := update.Op.BaseVersion
	if base > r.version {
		return applyResult{err: &errors.ValidationError{
			Msg: "baseVersion ahead of server",
		}}
	}
	lag := int(r.version - base)
	if lag > len(r.recent) {
		// The client fell behind the retention window; it cannot be
		// transformed safely anymore and has to rebase onto the current
		// text.
		reset := &sharedTypes.ResetBody{
			Snapshot: r.snapshot,
			Version:  r.version,
		}
		return applyResult{reset: reset, err: &errors.StaleDocError{}}
	}

	op := text.Transform(update.Op, r.recent[len(r.recent)-lag:])
	if op.IsNoop() {
		// Fully consumed by concurrent deletes. Nothing to apply or
		// broadcast; the ack fast-forwards the client.
		return applyResult{ack: sharedTypes.DocumentUpdateAck{
			DocId:       r.docId,
			OperationId: r.version,
			BaseVersion: base,
		}}
	}
	if err := op.CheckBounds(len(r.snapshot)); err != nil {
		return applyResult{err: err}
	}

	newSnapshot, err := text.Apply(r.snapshot, &op)
	if err != nil {
		return applyResult{err: err}
	}
	if len(newSnapshot) > sharedTypes.MaxDocLength {
		return applyResult{err: &errors.ValidationError{
			Msg: "doc length exceeded",
		}}
	}
	op.OperationId = r.version + 1

	// Postgres keeps microseconds; truncating here makes the stored
	// timestamp round-trip exactly, and the bump keeps it strictly
	// increasing per document.
	ts := time.Now().Truncate(time.Microsecond)
	if !ts.After(r.lastTs) {
		ts = r.lastTs.Add(time.Microsecond)
	}
	applied := *update
	applied.Op = op
	entry, err := changeLog.FromOperation(&applied, ts)
	if err != nil {
		return applyResult{err: err}
	}
	if err = r.persist(&entry); err != nil {
		// State is untouched; the client may retry the same op.
		return applyResult{err: errors.Tag(err, "persist change")}
	}

	r.snapshot = newSnapshot
	r.version = op.OperationId
	r.lastTs = ts
	if len(r.recent) == r.retention {
		copy(r.recent, r.recent[1:])
		r.recent = r.recent[:r.retention-1]
	}
	r.recent = append(r.recent, op)

	ctx, done := context.WithTimeout(context.Background(), persistTimeout)
	defer done()
	r.publish(ctx, sharedTypes.FrameOperation, sharedTypes.OperationBody{
		Op:       op,
		UserName: update.UserName,
	})
	return applyResult{ack: sharedTypes.DocumentUpdateAck{
		DocId:       r.docId,
		OperationId: op.OperationId,
		BaseVersion: base,
	}}
}

func (r *Room) persist(e *changeLog.Entry) error {
	ctx, done := context.WithTimeout(context.Background(), persistTimeout)
	defer done()
	var err error
	for i := 0; i < persistRetries; i++ {
		if err = r.p.Append(ctx, e); err == nil {
			return nil
		}
		time.Sleep(time.Duration(i+1) * 50 * time.Millisecond)
	}
	return err
}

// CheckCursor validates membership and that position is inside the current
// text before the caller fans the cursor frame out.
func (r *Room) CheckCursor(userId sharedTypes.UUID, position int) error {
	done := make(chan error, 1)
	err := r.send(func() {
		if _, ok := r.members[userId]; !ok {
			done <- &errors.NotAuthorizedError{}
			return
		}
		if position < 0 || position > len(r.snapshot) {
			done <- &errors.ValidationError{Msg: "position out of bounds"}
			return
		}
		done <- nil
	})
	if err != nil {
		return err
	}
	return <-done
}

// Reset replaces the text wholesale, drops the transform window and bumps
// the version so in-flight client edits surface as stale. Used by reverts.
func (r *Room) Reset(ctx context.Context, newText string) (sharedTypes.Version, error) {
	done := make(chan sharedTypes.Version, 1)
	err := r.send(func() {
		r.snapshot = sharedTypes.Snapshot(newText)
		r.recent = r.recent[:0]
		r.version++
		r.publish(ctx, sharedTypes.FrameReset, sharedTypes.ResetBody{
			Snapshot: r.snapshot,
			Version:  r.version,
		})
		done <- r.version
	})
	if err != nil {
		return 0, err
	}
	return <-done, nil
}

func (r *Room) publish(ctx context.Context, name string, body interface{}) {
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("room %s: serialize %s frame: %s", r.docId, name, err)
		return
	}
	e := &sharedTypes.EditorEvent{
		DocId:   r.docId,
		Name:    name,
		Payload: payload,
	}
	if err = r.b.Broadcast(ctx, e); err != nil {
		log.Printf("room %s: broadcast %s frame: %s", r.docId, name, err)
	}
}
