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

// Package editor is the live half of the system: it owns the open document
// rooms, routes websocket RPCs into them and fans the resulting frames back
// out to the connected clients via redis pub/sub.
package editor

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/managers/editor/internal/clientTracking"
	"github.com/coedit/coedit/pkg/managers/editor/internal/docCache"
	"github.com/coedit/coedit/pkg/managers/editor/internal/room"
	"github.com/coedit/coedit/pkg/models/changeLog"
	"github.com/coedit/coedit/pkg/models/docVersion"
	"github.com/coedit/coedit/pkg/models/document"
	"github.com/coedit/coedit/pkg/ot/text"
	"github.com/coedit/coedit/pkg/pubSub/channel"
	"github.com/coedit/coedit/pkg/sharedTypes"
	"github.com/coedit/coedit/pkg/types"
)

type Config struct {
	Retention   int
	GracePeriod time.Duration
	AuthTimeout time.Duration
	Palette     []string
}

// JoinResponse bootstraps an editor session.
type JoinResponse struct {
	Text           string                      `json:"text"`
	Version        sharedTypes.Version         `json:"serverVersion"`
	ConnectedUsers []sharedTypes.ConnectedUser `json:"connectedUsers"`
	Cursors        []sharedTypes.CursorBody    `json:"cursors"`
}

// DocState is the consistent read the version controller snapshots from:
// Text includes every change-log row with timestamp <= LastTs and nothing
// newer.
type DocState struct {
	Text    string
	Version sharedTypes.Version
	LastTs  time.Time
}

type Manager interface {
	StartListening(ctx context.Context) error
	Join(ctx context.Context, client *types.Client, docId sharedTypes.UUID) (*JoinResponse, error)
	Leave(ctx context.Context, client *types.Client, docId sharedTypes.UUID) error
	ApplyEdit(ctx context.Context, client *types.Client, update *sharedTypes.DocumentUpdate) (sharedTypes.DocumentUpdateAck, error)
	UpdatePosition(ctx context.Context, client *types.Client, docId sharedTypes.UUID, position int) error
	GetConnectedUsers(ctx context.Context, docId sharedTypes.UUID) (*JoinResponse, error)
	Disconnect(client *types.Client)

	GetDocState(ctx context.Context, docId sharedTypes.UUID) (DocState, error)
	ResetDoc(ctx context.Context, docId sharedTypes.UUID, newText string) error
	PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error
	FlushAll()
}

func New(cfg Config, rc redis.UniversalClient, dm document.Manager, cl changeLog.Manager, dv docVersion.Manager) Manager {
	return &manager{
		cfg:      cfg,
		dm:       dm,
		cl:       cl,
		dv:       dv,
		cache:    docCache.New(rc),
		tracking: clientTracking.New(cfg.Palette),
		channel:  channel.New(rc, "editor-events"),
		entries:  make(map[sharedTypes.UUID]*docEntry),
	}
}

type docEntry struct {
	room       *room.Room
	clients    map[*types.Client]struct{}
	drainTimer *time.Timer

	// dead closes once the entry has been deregistered and its room
	// stopped. Joins that lose the race against teardown wait on it and
	// rehydrate fresh.
	dead chan struct{}
}

type manager struct {
	cfg      Config
	dm       document.Manager
	cl       changeLog.Manager
	dv       docVersion.Manager
	cache    docCache.Manager
	tracking clientTracking.Manager
	channel  channel.Manager

	mu      sync.Mutex
	entries map[sharedTypes.UUID]*docEntry
}

func (m *manager) StartListening(ctx context.Context) error {
	c, err := m.channel.Listen(ctx)
	if err != nil {
		return errors.Tag(err, "listen on editor events")
	}
	go m.dispatch(c)
	return nil
}

// dispatch fans incoming pub/sub frames out to the local members of the
// document. Every node runs this loop; rooms publish instead of writing to
// clients directly, so members on other nodes stay in sync too.
func (m *manager) dispatch(c <-chan *channel.PubSubMessage) {
	for msg := range c {
		if msg.Action != channel.IncomingMessage {
			continue
		}
		e := sharedTypes.EditorEvent{}
		if err := json.Unmarshal([]byte(msg.Msg), &e); err != nil {
			log.Printf("editor: drop malformed frame on %s: %s", msg.Channel, err)
			continue
		}
		resp := &types.RPCResponse{Name: e.Name, Body: e.Payload}
		for _, client := range m.localClients(msg.Channel) {
			client.EnsureQueueResponse(resp)
		}
	}
}

func (m *manager) localClients(docId sharedTypes.UUID) []*types.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[docId]
	if !ok {
		return nil
	}
	out := make([]*types.Client, 0, len(e.clients))
	for client := range e.clients {
		out = append(out, client)
	}
	return out
}

func (m *manager) Join(ctx context.Context, client *types.Client, docId sharedTypes.UUID) (*JoinResponse, error) {
	authCtx, done := context.WithTimeout(ctx, m.cfg.AuthTimeout)
	err := m.dm.CheckAccess(authCtx, docId, client.UserId)
	done()
	if err != nil {
		return nil, err
	}

	e, err := m.openEntry(ctx, docId)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	e.clients[client] = struct{}{}
	m.mu.Unlock()

	s, err := e.room.Join(ctx, client.UserId, client.DisplayName)
	if err != nil {
		// The doc got purged between opening the entry and joining.
		m.mu.Lock()
		delete(e.clients, client)
		m.mu.Unlock()
		return nil, err
	}
	client.MarkJoined(docId)
	return &JoinResponse{
		Text:           s.Text,
		Version:        s.Version,
		ConnectedUsers: s.Members,
		Cursors:        m.tracking.List(docId),
	}, nil
}

// openEntry returns the live entry for docId, rehydrating a room when
// none is open. Hydration happens outside the registry lock; a concurrent
// join winning the race is detected and the loser's room discarded. An
// entry whose grace timer already fired is dying: its teardown may be
// blocked on the registry lock right now, so handing it out would race the
// room stop. Wait for the teardown to finish flushing, then start over.
func (m *manager) openEntry(ctx context.Context, docId sharedTypes.UUID) (*docEntry, error) {
	for {
		m.mu.Lock()
		e, ok := m.entries[docId]
		if ok && (e.drainTimer == nil || e.drainTimer.Stop()) {
			e.drainTimer = nil
			m.mu.Unlock()
			return e, nil
		}
		m.mu.Unlock()
		if ok {
			select {
			case <-e.dead:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			continue
		}

		state, err := m.loadState(ctx, docId)
		if err != nil {
			return nil, err
		}
		r := room.New(
			docId, state.Text, state.Version, state.LastTs,
			m.cfg.Retention, m.cl, m.broadcaster(),
		)
		if err = m.channel.Subscribe(ctx, docId); err != nil {
			r.Stop()
			return nil, errors.Tag(err, "subscribe doc channel")
		}

		m.mu.Lock()
		if e, ok = m.entries[docId]; ok {
			m.mu.Unlock()
			r.Stop()
			// Raced another join; loop to vet its entry as live.
			continue
		}
		e = &docEntry{
			room:    r,
			clients: make(map[*types.Client]struct{}),
			dead:    make(chan struct{}),
		}
		m.entries[docId] = e
		m.mu.Unlock()
		return e, nil
	}
}

type channelBroadcaster struct {
	w channel.Writer
}

func (b channelBroadcaster) Broadcast(ctx context.Context, e *sharedTypes.EditorEvent) error {
	return b.w.Publish(ctx, e)
}

func (m *manager) broadcaster() room.Broadcaster {
	return channelBroadcaster{w: m.channel}
}

// loadState rehydrates document text: redis cache first, then the latest
// version snapshot with the unversioned change-log tail replayed on top.
func (m *manager) loadState(ctx context.Context, docId sharedTypes.UUID) (DocState, error) {
	if e, err := m.cache.Get(ctx, docId); err == nil {
		return DocState{Text: e.Snapshot, Version: e.Version, LastTs: e.LastTs}, nil
	} else if !errors.IsNotFoundError(err) {
		return DocState{}, err
	}

	base := ""
	v, err := m.dv.GetLatest(ctx, docId)
	if err == nil {
		base = v.Content
	} else if !errors.IsNotFoundError(err) {
		return DocState{}, errors.Tag(err, "load latest version")
	}
	tail, err := m.cl.ListUnversioned(ctx, docId)
	if err != nil {
		return DocState{}, errors.Tag(err, "load unversioned tail")
	}
	snapshot := sharedTypes.Snapshot(base)
	for i := range tail {
		if snapshot, err = replayEntry(snapshot, &tail[i]); err != nil {
			return DocState{}, errors.Tag(err, "replay change log")
		}
	}
	count, err := m.cl.CountForDocument(ctx, docId)
	if err != nil {
		return DocState{}, errors.Tag(err, "count changes")
	}
	state := DocState{
		Text:    string(snapshot),
		Version: sharedTypes.Version(count),
	}
	if len(tail) > 0 {
		state.LastTs = tail[len(tail)-1].Timestamp
	}
	return state, nil
}

// replayEntry re-applies a persisted change. Positions were recorded at
// application time against this exact text, so replay in order is exact.
func replayEntry(snapshot sharedTypes.Snapshot, e *changeLog.Entry) (sharedTypes.Snapshot, error) {
	op := e.Operation()
	return text.Apply(snapshot, &op)
}

func (m *manager) Leave(ctx context.Context, client *types.Client, docId sharedTypes.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[docId]
	if ok {
		delete(e.clients, client)
	}
	m.mu.Unlock()
	client.MarkLeft()
	if !ok {
		return nil
	}
	m.tracking.Remove(docId, client.UserId)
	remaining, err := e.room.Leave(ctx, client.UserId)
	if err != nil {
		// Already stopped by a purge; nothing left to drain.
		return nil
	}
	if remaining == 0 {
		m.scheduleTeardown(docId, e)
	}
	return nil
}

// Disconnect handles an unclean connection drop.
func (m *manager) Disconnect(client *types.Client) {
	if docId, ok := client.JoinedDoc(); ok {
		_ = m.Leave(context.Background(), client, docId)
	}
	m.tracking.RemoveAllForUser(client.UserId)
}

func (m *manager) scheduleTeardown(docId sharedTypes.UUID, e *docEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(e.clients) > 0 || e.drainTimer != nil {
		return
	}
	e.drainTimer = time.AfterFunc(m.cfg.GracePeriod, func() {
		m.teardown(docId, e)
	})
}

// teardown deregisters exactly the entry it was scheduled for; a purge or
// a fresh room under the same docId is left alone. Whoever deregisters the
// entry closes dead afterwards, releasing joins parked in openEntry.
func (m *manager) teardown(docId sharedTypes.UUID, e *docEntry) {
	m.mu.Lock()
	if cur, ok := m.entries[docId]; !ok || cur != e || len(e.clients) > 0 {
		m.mu.Unlock()
		return
	}
	delete(m.entries, docId)
	m.mu.Unlock()
	defer close(e.dead)

	s := e.room.Stop()
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	err := m.cache.Set(ctx, docId, docCache.Entry{
		Snapshot: s.Text,
		Version:  s.Version,
		LastTs:   s.LastTs,
	})
	if err != nil {
		log.Printf("editor: flush doc %s to cache: %s", docId, err)
	}
	if err = m.dm.UpdateContent(ctx, docId, s.Text); err != nil {
		log.Printf("editor: flush doc %s content: %s", docId, err)
	}
	if err = m.channel.Unsubscribe(ctx, docId); err != nil {
		log.Printf("editor: unsubscribe doc %s: %s", docId, err)
	}
}

// FlushAll tears every idle and active room down. Only called on shutdown
// after the websocket server stopped accepting frames.
func (m *manager) FlushAll() {
	type flush struct {
		docId sharedTypes.UUID
		e     *docEntry
	}
	m.mu.Lock()
	open := make([]flush, 0, len(m.entries))
	for docId, e := range m.entries {
		e.clients = make(map[*types.Client]struct{})
		open = append(open, flush{docId: docId, e: e})
	}
	m.mu.Unlock()
	for _, f := range open {
		m.teardown(f.docId, f.e)
	}
}

func (m *manager) ApplyEdit(ctx context.Context, client *types.Client, update *sharedTypes.DocumentUpdate) (sharedTypes.DocumentUpdateAck, error) {
	if err := update.Validate(); err != nil {
		return sharedTypes.DocumentUpdateAck{}, err
	}
	m.mu.Lock()
	e, ok := m.entries[update.DocId]
	m.mu.Unlock()
	if !ok {
		return sharedTypes.DocumentUpdateAck{}, &errors.InvalidStateError{
			Msg: "doc not open",
		}
	}
	update.UserId = client.UserId
	update.UserName = client.DisplayName
	ack, reset, err := e.room.ApplyEdit(update)
	if err != nil && errors.IsDocConsistencyError(err) {
		// The room state can no longer be trusted. Tear it down; clients
		// reconnect and rehydrate from the persisted log.
		log.Printf("editor: doc %s diverged: %s", update.DocId, err)
		if err2 := m.PurgeDoc(ctx, update.DocId); err2 != nil {
			log.Printf("editor: purge diverged doc %s: %s", update.DocId, err2)
		}
		return sharedTypes.DocumentUpdateAck{}, err
	}
	if reset != nil {
		// Only the stale client rebases; everyone else is unaffected.
		if body, err2 := json.Marshal(reset); err2 == nil {
			client.EnsureQueueResponse(&types.RPCResponse{
				Name: sharedTypes.FrameReset,
				Body: body,
			})
		}
	}
	return ack, err
}

func (m *manager) UpdatePosition(ctx context.Context, client *types.Client, docId sharedTypes.UUID, position int) error {
	m.mu.Lock()
	e, ok := m.entries[docId]
	m.mu.Unlock()
	if !ok {
		return &errors.InvalidStateError{Msg: "doc not open"}
	}
	if err := e.room.CheckCursor(client.UserId, position); err != nil {
		return err
	}
	cursor := m.tracking.Update(docId, client.UserId, position, client.DisplayName)
	body, err := json.Marshal(cursor)
	if err != nil {
		return errors.Tag(err, "serialize cursor")
	}
	return m.channel.Publish(ctx, &sharedTypes.EditorEvent{
		DocId:   docId,
		Name:    sharedTypes.FrameCursor,
		Payload: body,
	})
}

func (m *manager) GetConnectedUsers(ctx context.Context, docId sharedTypes.UUID) (*JoinResponse, error) {
	m.mu.Lock()
	e, ok := m.entries[docId]
	m.mu.Unlock()
	if !ok {
		return &JoinResponse{}, nil
	}
	s, err := e.room.State()
	if err != nil {
		return &JoinResponse{}, nil
	}
	return &JoinResponse{
		ConnectedUsers: s.Members,
		Cursors:        m.tracking.List(docId),
	}, nil
}

// GetDocState serves the version controller. An open room answers from
// memory; otherwise the state is rebuilt from cache or storage.
func (m *manager) GetDocState(ctx context.Context, docId sharedTypes.UUID) (DocState, error) {
	m.mu.Lock()
	e, ok := m.entries[docId]
	m.mu.Unlock()
	if ok {
		if s, err := e.room.State(); err == nil {
			return DocState{Text: s.Text, Version: s.Version, LastTs: s.LastTs}, nil
		}
	}
	return m.loadState(ctx, docId)
}

// ResetDoc force-feeds restored text into the live room, or invalidates
// the cache when no room is open.
func (m *manager) ResetDoc(ctx context.Context, docId sharedTypes.UUID, newText string) error {
	m.mu.Lock()
	e, ok := m.entries[docId]
	m.mu.Unlock()
	if ok {
		if _, err := e.room.Reset(ctx, newText); err == nil {
			return nil
		}
	}
	return m.cache.Delete(ctx, docId)
}

// PurgeDoc drops all live state ahead of document deletion.
func (m *manager) PurgeDoc(ctx context.Context, docId sharedTypes.UUID) error {
	m.mu.Lock()
	e, ok := m.entries[docId]
	if ok {
		delete(m.entries, docId)
	}
	m.mu.Unlock()
	if ok {
		// A reset frame without a body tells the client to rebase by
		// reconnecting; rehydration then reads the persisted log. The
		// write loop delivers it and closes the connection on the fatal
		// flag, so a hard disconnect is only needed when queueing fails.
		reset := &types.RPCResponse{
			Name:       sharedTypes.FrameReset,
			FatalError: true,
		}
		for client := range e.clients {
			if !client.EnsureQueueResponse(reset) {
				client.TriggerDisconnect()
			}
		}
		e.room.Stop()
		close(e.dead)
		if err := m.channel.Unsubscribe(ctx, docId); err != nil {
			log.Printf("editor: unsubscribe doc %s: %s", docId, err)
		}
	}
	return m.cache.Delete(ctx, docId)
}
