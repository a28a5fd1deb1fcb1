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

package router

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/httpUtils"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/models/user"
	"github.com/coedit/coedit/pkg/sharedTypes"
	"github.com/coedit/coedit/pkg/types"
)

const (
	// Two missed client heartbeats plus latency.
	idleTime     = time.Minute + 10*time.Second
	writeTimeout = 30 * time.Second
)

type wsController struct {
	em              editor.Manager
	um              user.Manager
	writeQueueDepth int
	shuttingDown    atomic.Bool

	upgrader websocket.Upgrader
}

func newWsController(em editor.Manager, um user.Manager, writeQueueDepth int) *wsController {
	return &wsController{
		em:              em,
		um:              um,
		writeQueueDepth: writeQueueDepth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *wsController) wsHTTP(w http.ResponseWriter, r *http.Request) {
	if h.shuttingDown.Load() {
		httpUtils.RespondPlain(w, http.StatusServiceUnavailable, "shutting down")
		return
	}
	userId, err := sharedTypes.ParseUUID(r.URL.Query().Get("userId"))
	if err != nil {
		httpUtils.RespondErr(w, r, &errors.UnauthorizedError{
			Reason: "missing or malformed userId",
		})
		return
	}
	u, err := h.um.GetUser(r.Context(), userId)
	if err != nil {
		if errors.IsNotFoundError(err) {
			err = &errors.UnauthorizedError{Reason: "unknown user"}
		}
		httpUtils.RespondErr(w, r, err)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has responded already.
		return
	}

	client := types.NewClient(userId, u.DisplayName, h.writeQueueDepth, func() {
		_ = conn.Close()
	})
	go h.writeLoop(conn, client)
	go h.readLoop(conn, client)
}

func (h *wsController) writeLoop(conn *websocket.Conn, client *types.Client) {
	defer func() {
		_ = conn.Close()
		for range client.WriteQueue() {
			// Flush until the disconnect closes the channel.
		}
	}()
	for resp := range client.WriteQueue() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
		if resp.FatalError {
			return
		}
	}
}

func (h *wsController) readLoop(conn *websocket.Conn, client *types.Client) {
	defer func() {
		h.em.Disconnect(client)
		client.TriggerDisconnect()
	}()
	_ = conn.SetReadDeadline(time.Now().Add(idleTime))
	for {
		request := types.RPCRequest{}
		if err := conn.ReadJSON(&request); err != nil {
			_ = conn.Close()
			return
		}
		if request.Action == types.Ping {
			if conn.SetReadDeadline(time.Now().Add(idleTime)) != nil {
				_ = conn.Close()
				return
			}
			if !client.EnsureQueueResponse(&types.RPCResponse{
				Callback: request.Callback,
			}) {
				return
			}
			continue
		}
		response := types.RPCResponse{Callback: request.Callback}
		rpc := types.RPC{
			Client:   client,
			Request:  &request,
			Response: &response,
		}
		h.handle(&rpc)
		if !client.EnsureQueueResponse(&response) {
			return
		}
		if response.FatalError {
			return
		}
	}
}

func (h *wsController) handle(rpc *types.RPC) {
	ctx, done := context.WithTimeout(context.Background(), writeTimeout)
	defer done()
	err := rpc.Validate()
	if err == nil {
		err = h.dispatch(ctx, rpc)
	}
	if err != nil {
		rpc.Response.FatalError = errors.IsFatalError(err)
		rpc.Response.Error = &errors.JavaScriptError{
			Message: errors.GetPublicMessage(err, "hidden error in "+string(rpc.Request.Action)),
		}
		if errors.IsStaleDocError(err) {
			rpc.Response.Error.Code = "staleDoc"
		}
		if rpc.Response.FatalError {
			log.Printf(
				"ws %s for user %s failed: %s",
				rpc.Request.Action, rpc.Client.UserId, err,
			)
		}
	}
}

func (h *wsController) dispatch(ctx context.Context, rpc *types.RPC) error {
	switch rpc.Request.Action {
	case types.JoinDoc:
		res, err := h.em.Join(ctx, rpc.Client, rpc.Request.DocId)
		if err != nil {
			return err
		}
		return respond(rpc.Response, string(types.JoinDoc), res)
	case types.LeaveDoc:
		return h.em.Leave(ctx, rpc.Client, rpc.Request.DocId)
	case types.ApplyUpdate:
		op := sharedTypes.Operation{}
		if err := json.Unmarshal(rpc.Request.Body, &op); err != nil {
			return &errors.ValidationError{Msg: "bad operation payload"}
		}
		ack, err := h.em.ApplyEdit(ctx, rpc.Client, &sharedTypes.DocumentUpdate{
			DocId: rpc.Request.DocId,
			Op:    op,
		})
		if err != nil {
			return err
		}
		return respond(rpc.Response, string(types.ApplyUpdate), ack)
	case types.UpdatePosition:
		body := types.UpdatePositionRequest{}
		if err := json.Unmarshal(rpc.Request.Body, &body); err != nil {
			return &errors.ValidationError{Msg: "bad position payload"}
		}
		return h.em.UpdatePosition(ctx, rpc.Client, rpc.Request.DocId, body.Position)
	case types.GetConnected:
		res, err := h.em.GetConnectedUsers(ctx, rpc.Request.DocId)
		if err != nil {
			return err
		}
		return respond(rpc.Response, sharedTypes.FrameUsersList, res)
	default:
		return &errors.ValidationError{Msg: "unknown action"}
	}
}

func respond(resp *types.RPCResponse, name string, body interface{}) error {
	blob, err := json.Marshal(body)
	if err != nil {
		return errors.Tag(err, "serialize "+name+" response")
	}
	resp.Name = name
	resp.Body = blob
	return nil
}
