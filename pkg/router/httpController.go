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

// Package router exposes the system over HTTP: a websocket endpoint for
// the live editing session and a JSON API for documents, version history,
// diffs and contribution statistics.
package router

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/httpUtils"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/managers/history"
	"github.com/coedit/coedit/pkg/models/document"
	"github.com/coedit/coedit/pkg/models/user"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Handler struct {
	*httpUtils.Router
	ws *wsController
}

// BeginShutdown stops accepting new websocket connections; established
// sessions are flushed by the editor manager afterwards.
func (h *Handler) BeginShutdown() {
	h.ws.shuttingDown.Store(true)
}

func New(em editor.Manager, hm history.Manager, dm document.Manager, um user.Manager, writeQueueDepth int) *Handler {
	ws := newWsController(em, um, writeQueueDepth)
	h := &Handler{
		Router: httpUtils.NewRouter(&httpUtils.RouterOptions{
			Ready: func() bool {
				return !ws.shuttingDown.Load()
			},
		}),
		ws: ws,
	}
	c := httpController{hm: hm, dm: dm}

	h.HandleFunc("/socket", ws.wsHTTP).Methods(http.MethodGet)

	api := h.PathPrefix("/api").Subrouter()
	api.HandleFunc("/document", c.createDocument).
		Methods(http.MethodPost)
	doc := api.PathPrefix("/document/{documentId}").Subrouter()
	doc.HandleFunc("", c.getDocument).Methods(http.MethodGet)
	doc.HandleFunc("", c.deleteDocument).Methods(http.MethodDelete)
	doc.HandleFunc("/collaborators", c.addCollaborator).
		Methods(http.MethodPost)
	doc.HandleFunc("/version", c.createVersion).Methods(http.MethodPost)
	doc.HandleFunc("/versions", c.getHistory).Methods(http.MethodGet)
	doc.HandleFunc("/version/{versionNumber}", c.getVersion).
		Methods(http.MethodGet)
	doc.HandleFunc("/version/{versionNumber}", c.deleteVersion).
		Methods(http.MethodDelete)
	doc.HandleFunc("/version/{versionNumber}/changes", c.getVersionChanges).
		Methods(http.MethodGet)
	doc.HandleFunc("/version/{versionNumber}/restore", c.restoreVersion).
		Methods(http.MethodPost)
	doc.HandleFunc("/diff", c.getDiff).Methods(http.MethodGet)
	doc.HandleFunc("/contributions", c.getContributions).
		Methods(http.MethodGet)
	return h
}

type httpController struct {
	hm history.Manager
	dm document.Manager
}

// requestUser resolves the acting user. Auth internals live elsewhere; the
// gateway forwards the verified identity in a header.
func requestUser(r *http.Request) (sharedTypes.UUID, error) {
	raw := r.Header.Get("X-User-Id")
	if raw == "" {
		return sharedTypes.UUID{}, &errors.UnauthorizedError{
			Reason: "missing X-User-Id",
		}
	}
	userId, err := sharedTypes.ParseUUID(raw)
	if err != nil {
		return sharedTypes.UUID{}, &errors.UnauthorizedError{
			Reason: "malformed X-User-Id",
		}
	}
	return userId, nil
}

func (c *httpController) docRequest(r *http.Request) (sharedTypes.UUID, sharedTypes.UUID, error) {
	userId, err := requestUser(r)
	if err != nil {
		return sharedTypes.UUID{}, sharedTypes.UUID{}, err
	}
	docId, err := httpUtils.ParseUUIDVar(r, "documentId")
	if err != nil {
		return sharedTypes.UUID{}, sharedTypes.UUID{}, &errors.ValidationError{
			Msg: "malformed documentId",
		}
	}
	return userId, docId, nil
}

func (c *httpController) memberRequest(r *http.Request) (sharedTypes.UUID, sharedTypes.UUID, error) {
	userId, docId, err := c.docRequest(r)
	if err != nil {
		return userId, docId, err
	}
	return userId, docId, c.dm.CheckAccess(r.Context(), docId, userId)
}

func (c *httpController) ownerRequest(r *http.Request) (sharedTypes.UUID, sharedTypes.UUID, error) {
	userId, docId, err := c.docRequest(r)
	if err != nil {
		return userId, docId, err
	}
	return userId, docId, c.dm.CheckOwner(r.Context(), docId, userId)
}

func parseVersionNumber(r *http.Request) (sharedTypes.VersionNumber, error) {
	var n sharedTypes.VersionNumber
	raw := mux.Vars(r)["versionNumber"]
	if raw == "" {
		return 0, &errors.ValidationError{Msg: "missing versionNumber"}
	}
	if err := n.ParseIfSet(raw); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &errors.ValidationError{Msg: "negative versionNumber"}
	}
	return n, nil
}

type createDocumentRequest struct {
	Name            string             `json:"name"`
	InitialText     string             `json:"initialText"`
	CollaboratorIds []sharedTypes.UUID `json:"collaboratorIds"`
}

func (c *httpController) createDocument(w http.ResponseWriter, r *http.Request) {
	userId, err := requestUser(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	body := createDocumentRequest{}
	if err = json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "bad payload"})
		return
	}
	if body.Name == "" {
		httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "missing name"})
		return
	}
	d := document.Document{
		Name:            body.Name,
		OwnerId:         userId,
		CollaboratorIds: body.CollaboratorIds,
		Content:         body.InitialText,
	}
	if err = c.dm.Create(r.Context(), &d); err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	if _, err = c.hm.CreateInitialVersion(
		r.Context(), d.Id, userId, body.InitialText,
	); err != nil {
		httpUtils.RespondErr(w, r, errors.Tag(err, "create initial version"))
		return
	}
	httpUtils.Respond(w, r, http.StatusCreated, d, nil)
}

func (c *httpController) getDocument(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	d, err := c.dm.Get(r.Context(), docId)
	httpUtils.Respond(w, r, http.StatusOK, d, err)
}

func (c *httpController) deleteDocument(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.ownerRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	if err = c.hm.DeleteAllForDocument(r.Context(), docId); err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	err = c.dm.Delete(r.Context(), docId)
	httpUtils.Respond(w, r, http.StatusNoContent, nil, err)
}

type addCollaboratorRequest struct {
	UserId sharedTypes.UUID `json:"userId"`
}

func (c *httpController) addCollaborator(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.ownerRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	body := addCollaboratorRequest{}
	if err = json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "bad payload"})
		return
	}
	if body.UserId.IsZero() {
		httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "missing userId"})
		return
	}
	err = c.dm.AddCollaborator(r.Context(), docId, body.UserId)
	httpUtils.Respond(w, r, http.StatusNoContent, nil, err)
}

type createVersionRequest struct {
	Description string `json:"description"`
}

func (c *httpController) createVersion(w http.ResponseWriter, r *http.Request) {
	userId, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	body := createVersionRequest{}
	if r.ContentLength != 0 {
		if err = json.NewDecoder(r.Body).Decode(&body); err != nil {
			httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "bad payload"})
			return
		}
	}
	v, err := c.hm.CreateVersion(r.Context(), docId, userId, body.Description)
	httpUtils.Respond(w, r, http.StatusCreated, v, err)
}

func (c *httpController) getHistory(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	versions, err := c.hm.GetHistory(r.Context(), docId)
	httpUtils.Respond(w, r, http.StatusOK, map[string]interface{}{
		"versions": versions,
	}, err)
}

func (c *httpController) getVersion(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	n, err := parseVersionNumber(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	v, err := c.hm.GetVersion(r.Context(), docId, n)
	httpUtils.Respond(w, r, http.StatusOK, v, err)
}

func (c *httpController) getVersionChanges(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	n, err := parseVersionNumber(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	changes, err := c.hm.GetVersionChanges(r.Context(), docId, n)
	httpUtils.Respond(w, r, http.StatusOK, map[string]interface{}{
		"changes": changes,
	}, err)
}

func (c *httpController) deleteVersion(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.ownerRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	n, err := parseVersionNumber(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	err = c.hm.DeleteVersion(r.Context(), docId, n)
	httpUtils.Respond(w, r, http.StatusNoContent, nil, err)
}

func (c *httpController) restoreVersion(w http.ResponseWriter, r *http.Request) {
	userId, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	n, err := parseVersionNumber(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	v, err := c.hm.RevertToVersion(r.Context(), docId, n, userId)
	httpUtils.Respond(w, r, http.StatusCreated, v, err)
}

func (c *httpController) getDiff(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	q := r.URL.Query()
	var to sharedTypes.VersionNumber
	if q.Get("to") == "" {
		httpUtils.RespondErr(w, r, &errors.ValidationError{Msg: "missing to"})
		return
	}
	if err = to.ParseIfSet(q.Get("to")); err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	var from *sharedTypes.VersionNumber
	if raw := q.Get("from"); raw != "" {
		var n sharedTypes.VersionNumber
		if err = n.ParseIfSet(raw); err != nil {
			httpUtils.RespondErr(w, r, err)
			return
		}
		from = &n
	}
	d, err := c.hm.GetDiff(r.Context(), docId, from, to)
	httpUtils.Respond(w, r, http.StatusOK, d, err)
}

func (c *httpController) getContributions(w http.ResponseWriter, r *http.Request) {
	_, docId, err := c.memberRequest(r)
	if err != nil {
		httpUtils.RespondErr(w, r, err)
		return
	}
	rows, err := c.hm.GetUserContributions(r.Context(), docId)
	httpUtils.Respond(w, r, http.StatusOK, map[string]interface{}{
		"contributions": rows,
	}, err)
}
