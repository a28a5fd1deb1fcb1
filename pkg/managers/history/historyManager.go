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

// Package history is the version controller: it snapshots the unversioned
// change-log tail into dense, numbered versions, computes diffs and
// contribution statistics, and restores old text by materialising new
// versions.
package history

import (
	"context"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/sync/errgroup"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/managers/history/internal/lineDiff"
	"github.com/coedit/coedit/pkg/models/changeLog"
	"github.com/coedit/coedit/pkg/models/contribution"
	"github.com/coedit/coedit/pkg/models/docVersion"
	"github.com/coedit/coedit/pkg/models/document"
	"github.com/coedit/coedit/pkg/models/user"
	"github.com/coedit/coedit/pkg/ot/text"
	"github.com/coedit/coedit/pkg/sharedTypes"
)

type Config struct {
	DiffStatsEnabled bool
}

type Manager interface {
	CreateInitialVersion(ctx context.Context, docId, authorId sharedTypes.UUID, initialText string) (docVersion.DocumentVersion, error)
	CreateVersion(ctx context.Context, docId, authorId sharedTypes.UUID, description string) (docVersion.DocumentVersion, error)
	GetHistory(ctx context.Context, docId sharedTypes.UUID) ([]docVersion.DocumentVersion, error)
	GetVersion(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) (docVersion.DocumentVersion, error)
	GetVersionChanges(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) ([]changeLog.Entry, error)
	RevertToVersion(ctx context.Context, docId sharedTypes.UUID, target sharedTypes.VersionNumber, userId sharedTypes.UUID) (docVersion.DocumentVersion, error)
	GetDiff(ctx context.Context, docId sharedTypes.UUID, from *sharedTypes.VersionNumber, to sharedTypes.VersionNumber) (lineDiff.Diff, error)
	GetUserContributions(ctx context.Context, docId sharedTypes.UUID) ([]contribution.UserContribution, error)
	DeleteVersion(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) error
	DeleteAllForDocument(ctx context.Context, docId sharedTypes.UUID) error
}

func New(cfg Config, dv docVersion.Manager, cl changeLog.Manager, cm contribution.Manager, um user.Manager, dm document.Manager, e editor.Manager) Manager {
	return &manager{
		cfg:    cfg,
		dv:     dv,
		cl:     cl,
		cm:     cm,
		um:     um,
		dm:     dm,
		editor: e,
	}
}

type manager struct {
	cfg    Config
	dv     docVersion.Manager
	cl     changeLog.Manager
	cm     contribution.Manager
	um     user.Manager
	dm     document.Manager
	editor editor.Manager
}

func (m *manager) CreateInitialVersion(ctx context.Context, docId, authorId sharedTypes.UUID, initialText string) (docVersion.DocumentVersion, error) {
	return m.dv.CreateInitialVersion(ctx, docId, authorId, initialText)
}

// CreateVersion snapshots the current text. The unversioned tail is cut at
// the room's timestamp watermark so operations racing in during the
// snapshot stay unversioned and fold into the next one.
func (m *manager) CreateVersion(ctx context.Context, docId, authorId sharedTypes.UUID, description string) (docVersion.DocumentVersion, error) {
	state, err := m.editor.GetDocState(ctx, docId)
	if err != nil {
		return docVersion.DocumentVersion{}, errors.Tag(err, "get doc state")
	}
	tail, err := m.unversionedUpTo(ctx, docId, state)
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	if len(tail) == 0 {
		return docVersion.DocumentVersion{}, &errors.InvalidStateError{
			Msg: "no changes to snapshot",
		}
	}
	if description == "" {
		description = m.autoDescription(ctx, docId, state.Text)
	}
	return m.insertSnapshot(ctx, docId, authorId, state.Text, description, tail)
}

func (m *manager) unversionedUpTo(ctx context.Context, docId sharedTypes.UUID, state editor.DocState) ([]changeLog.Entry, error) {
	tail, err := m.cl.ListUnversioned(ctx, docId)
	if err != nil {
		return nil, errors.Tag(err, "list unversioned changes")
	}
	cut := tail[:0:0]
	for _, e := range tail {
		if e.Timestamp.After(state.LastTs) {
			break
		}
		cut = append(cut, e)
	}
	return cut, nil
}

func (m *manager) insertSnapshot(ctx context.Context, docId, authorId sharedTypes.UUID, content, description string, tail []changeLog.Entry) (docVersion.DocumentVersion, error) {
	n, err := m.dv.GetMaxNumber(ctx, docId)
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	v := docVersion.DocumentVersion{
		Id:                id,
		DocumentId:        docId,
		VersionNumber:     n + 1,
		Content:           content,
		CreatedBy:         authorId,
		ChangeDescription: description,
	}
	entryIds := make([]sharedTypes.UUID, len(tail))
	for i, e := range tail {
		entryIds[i] = e.Id
	}
	err = m.dv.InsertSnapshot(ctx, &v, entryIds, foldContributions(tail))
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	return v, nil
}

// foldContributions aggregates the tail per author: one edit per entry,
// characters in code points.
func foldContributions(tail []changeLog.Entry) []contribution.Delta {
	byUser := make(map[sharedTypes.UUID]*contribution.Delta)
	order := make([]sharedTypes.UUID, 0)
	for _, e := range tail {
		d, ok := byUser[e.UserId]
		if !ok {
			d = &contribution.Delta{UserId: e.UserId}
			byUser[e.UserId] = d
			order = append(order, e.UserId)
		}
		d.EditCount++
		n := int64(len([]rune(e.Content)))
		if e.ChangeType == sharedTypes.OpInsert {
			d.CharactersAdded += n
		} else {
			d.CharactersDeleted += n
		}
	}
	out := make([]contribution.Delta, len(order))
	for i, id := range order {
		out[i] = *byUser[id]
	}
	return out
}

func (m *manager) autoDescription(ctx context.Context, docId sharedTypes.UUID, next string) string {
	prev := ""
	if v, err := m.dv.GetLatest(ctx, docId); err == nil {
		prev = v.Content
	}
	dmp := diffmatchpatch.New()
	var added, removed int
	for _, d := range dmp.DiffMain(prev, next, false) {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += n
		case diffmatchpatch.DiffDelete:
			removed += n
		}
	}
	return fmt.Sprintf("Added %d and removed %d characters", added, removed)
}

// GetHistory lists versions newest first with author display names
// resolved.
func (m *manager) GetHistory(ctx context.Context, docId sharedTypes.UUID) ([]docVersion.DocumentVersion, error) {
	versions, err := m.dv.GetHistory(ctx, docId)
	if err != nil {
		return nil, err
	}
	userIds := make([]sharedTypes.UUID, 0, len(versions))
	for _, v := range versions {
		userIds = append(userIds, v.CreatedBy)
	}
	users, err := m.um.GetUsers(ctx, userIds)
	if err != nil {
		return nil, errors.Tag(err, "resolve version authors")
	}
	for i := range versions {
		if u, ok := users[versions[i].CreatedBy]; ok {
			versions[i].CreatedByName = u.DisplayName
		}
	}
	return versions, nil
}

func (m *manager) GetVersion(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) (docVersion.DocumentVersion, error) {
	return m.dv.GetByNumber(ctx, docId, n)
}

func (m *manager) GetVersionChanges(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) ([]changeLog.Entry, error) {
	v, err := m.dv.GetByNumber(ctx, docId, n)
	if err != nil {
		return nil, err
	}
	return m.cl.ListByVersion(ctx, v.Id)
}

// RevertToVersion restores old text by writing a new version with the
// target's content; history is never rewritten. Any unversioned tail is
// linked to the new version first, so replaying the log stays consistent
// with the reset text. The live room (if any) rebases its members via a
// reset frame.
func (m *manager) RevertToVersion(ctx context.Context, docId sharedTypes.UUID, target sharedTypes.VersionNumber, userId sharedTypes.UUID) (docVersion.DocumentVersion, error) {
	targetV, err := m.dv.GetByNumber(ctx, docId, target)
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	state, err := m.editor.GetDocState(ctx, docId)
	if err != nil {
		return docVersion.DocumentVersion{}, errors.Tag(err, "get doc state")
	}
	tail, err := m.unversionedUpTo(ctx, docId, state)
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	v, err := m.insertSnapshot(
		ctx, docId, userId, targetV.Content,
		fmt.Sprintf("Reverted to version %d", target), tail,
	)
	if err != nil {
		return docVersion.DocumentVersion{}, err
	}
	if err = m.editor.ResetDoc(ctx, docId, targetV.Content); err != nil {
		return docVersion.DocumentVersion{}, errors.Tag(err, "reset room")
	}
	if err = m.dm.UpdateContent(ctx, docId, targetV.Content); err != nil {
		return docVersion.DocumentVersion{}, errors.Tag(err, "update doc content")
	}
	return v, nil
}

// GetDiff compares two versions. With from == nil the previous version is
// used, or empty text when to is the initial version.
func (m *manager) GetDiff(ctx context.Context, docId sharedTypes.UUID, from *sharedTypes.VersionNumber, to sharedTypes.VersionNumber) (lineDiff.Diff, error) {
	if from == nil && to > 0 {
		prev := to - 1
		from = &prev
	}
	var fromV, toV docVersion.DocumentVersion
	eg, pCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		toV, err = m.dv.GetByNumber(pCtx, docId, to)
		return err
	})
	if from != nil {
		eg.Go(func() error {
			var err error
			fromV, err = m.dv.GetByNumber(pCtx, docId, *from)
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return lineDiff.Diff{}, err
	}
	d := lineDiff.Compute(fromV.Content, toV.Content)
	if !m.cfg.DiffStatsEnabled {
		d.Summary = lineDiff.Summary{}
	}
	return d, nil
}

func (m *manager) GetUserContributions(ctx context.Context, docId sharedTypes.UUID) ([]contribution.UserContribution, error) {
	rows, err := m.cm.GetForDocument(ctx, docId)
	if err != nil {
		return nil, err
	}
	userIds := make([]sharedTypes.UUID, 0, len(rows))
	for _, r := range rows {
		userIds = append(userIds, r.UserId)
	}
	users, err := m.um.GetUsers(ctx, userIds)
	if err != nil {
		return nil, errors.Tag(err, "resolve contributors")
	}
	for i := range rows {
		if u, ok := users[rows[i].UserId]; ok {
			rows[i].UserName = u.DisplayName
		}
	}
	return rows, nil
}

// DeleteVersion purges the newest version only; deleting from the middle
// would leave holes in the version numbering. The linked changes return to
// the unversioned tail. That keeps the text intact only when the version's
// content equals the previous snapshot plus its changes — a revert-created
// version does not, and unlinking its tail would make a cold rehydration
// replay back to the pre-revert text while the live room and the metadata
// store hold the revert target. Such versions are refused.
func (m *manager) DeleteVersion(ctx context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) error {
	if n == 0 {
		return &errors.ValidationError{Msg: "cannot delete the initial version"}
	}
	maxN, err := m.dv.GetMaxNumber(ctx, docId)
	if err != nil {
		return err
	}
	if n != maxN {
		return &errors.InvalidStateError{
			Msg: "only the latest version can be deleted",
		}
	}
	v, err := m.dv.GetByNumber(ctx, docId, n)
	if err != nil {
		return err
	}
	prev, err := m.dv.GetByNumber(ctx, docId, n-1)
	if err != nil {
		return err
	}
	linked, err := m.cl.ListByVersion(ctx, v.Id)
	if err != nil {
		return err
	}
	replayed, err := replayEntries(prev.Content, linked)
	if err != nil || replayed != v.Content {
		return &errors.InvalidStateError{
			Msg: "version content does not derive from its changes",
		}
	}
	if err = m.cl.Unlink(ctx, v.Id); err != nil {
		return err
	}
	return m.dv.Delete(ctx, v.Id)
}

// replayEntries re-applies linked changes in order onto the preceding
// snapshot.
func replayEntries(base string, entries []changeLog.Entry) (string, error) {
	snapshot := sharedTypes.Snapshot(base)
	for i := range entries {
		op := entries[i].Operation()
		var err error
		if snapshot, err = text.Apply(snapshot, &op); err != nil {
			return "", err
		}
	}
	return string(snapshot), nil
}

// DeleteAllForDocument removes every trace of the document's history:
// changes first, then the version rows they pointed at, then the counters.
func (m *manager) DeleteAllForDocument(ctx context.Context, docId sharedTypes.UUID) error {
	if err := m.editor.PurgeDoc(ctx, docId); err != nil {
		return errors.Tag(err, "purge live doc")
	}
	if err := m.cl.DeleteAllForDocument(ctx, docId); err != nil {
		return err
	}
	if err := m.dv.DeleteAllForDocument(ctx, docId); err != nil {
		return err
	}
	return m.cm.DeleteAllForDocument(ctx, docId)
}
