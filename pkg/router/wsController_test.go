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
	"testing"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/sharedTypes"
	"github.com/coedit/coedit/pkg/types"
)

type fakeEditorManager struct {
	connected editor.JoinResponse
}

func (f *fakeEditorManager) StartListening(_ context.Context) error { return nil }
func (f *fakeEditorManager) Join(_ context.Context, _ *types.Client, _ sharedTypes.UUID) (*editor.JoinResponse, error) {
	return nil, &errors.InvalidStateError{Msg: "not implemented"}
}
func (f *fakeEditorManager) Leave(_ context.Context, _ *types.Client, _ sharedTypes.UUID) error {
	return nil
}
func (f *fakeEditorManager) ApplyEdit(_ context.Context, _ *types.Client, _ *sharedTypes.DocumentUpdate) (sharedTypes.DocumentUpdateAck, error) {
	return sharedTypes.DocumentUpdateAck{}, &errors.InvalidStateError{Msg: "not implemented"}
}
func (f *fakeEditorManager) UpdatePosition(_ context.Context, _ *types.Client, _ sharedTypes.UUID, _ int) error {
	return nil
}
func (f *fakeEditorManager) GetConnectedUsers(_ context.Context, _ sharedTypes.UUID) (*editor.JoinResponse, error) {
	return &f.connected, nil
}
func (f *fakeEditorManager) Disconnect(_ *types.Client) {}
func (f *fakeEditorManager) GetDocState(_ context.Context, _ sharedTypes.UUID) (editor.DocState, error) {
	return editor.DocState{}, &errors.NotFoundError{}
}
func (f *fakeEditorManager) ResetDoc(_ context.Context, _ sharedTypes.UUID, _ string) error {
	return nil
}
func (f *fakeEditorManager) PurgeDoc(_ context.Context, _ sharedTypes.UUID) error { return nil }
func (f *fakeEditorManager) FlushAll()                                            {}

func TestGetConnectedRespondsWithUsersListFrame(t *testing.T) {
	userId, err := sharedTypes.ParseUUID("00000000-0000-4000-8000-00000000000a")
	if err != nil {
		t.Fatal(err)
	}
	docId, err := sharedTypes.ParseUUID("00000000-0000-4000-8000-000000000001")
	if err != nil {
		t.Fatal(err)
	}
	em := &fakeEditorManager{connected: editor.JoinResponse{
		ConnectedUsers: []sharedTypes.ConnectedUser{
			{UserId: userId, UserName: "Alice"},
		},
	}}
	h := &wsController{em: em, writeQueueDepth: 1}
	client := types.NewClient(userId, "Alice", 1, func() {})
	response := types.RPCResponse{}
	rpc := types.RPC{
		Client:   client,
		Request:  &types.RPCRequest{Action: types.GetConnected, DocId: docId},
		Response: &response,
	}

	if err = h.dispatch(context.Background(), &rpc); err != nil {
		t.Fatal(err)
	}
	if response.Name != sharedTypes.FrameUsersList {
		t.Errorf("response name = %q", response.Name)
	}
	body := editor.JoinResponse{}
	if err = json.Unmarshal(response.Body, &body); err != nil {
		t.Fatal(err)
	}
	if len(body.ConnectedUsers) != 1 || body.ConnectedUsers[0].UserName != "Alice" {
		t.Errorf("connected users = %+v", body.ConnectedUsers)
	}
}
