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

package history

import (
	"context"
	"testing"
	"time"

	"github.com/coedit/coedit/pkg/errors"
	"github.com/coedit/coedit/pkg/managers/editor"
	"github.com/coedit/coedit/pkg/models/changeLog"
	"github.com/coedit/coedit/pkg/models/contribution"
	"github.com/coedit/coedit/pkg/models/docVersion"
	"github.com/coedit/coedit/pkg/models/document"
	"github.com/coedit/coedit/pkg/models/user"
	"github.com/coedit/coedit/pkg/sharedTypes"
	"github.com/coedit/coedit/pkg/types"
)

func mustUUID(t *testing.T, s string) sharedTypes.UUID {
	t.Helper()
	u, err := sharedTypes.ParseUUID(s)
	if err != nil {
		t.Fatalf("parse uuid %q: %s", s, err)
	}
	return u
}

type fakeLog struct {
	entries []changeLog.Entry
}

func (f *fakeLog) Append(_ context.Context, e *changeLog.Entry) error {
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLog) CountForDocument(_ context.Context, docId sharedTypes.UUID) (int64, error) {
	var n int64
	for _, e := range f.entries {
		if e.DocumentId == docId {
			n++
		}
	}
	return n, nil
}

func (f *fakeLog) ListUnversioned(_ context.Context, docId sharedTypes.UUID) ([]changeLog.Entry, error) {
	out := make([]changeLog.Entry, 0)
	for _, e := range f.entries {
		if e.DocumentId == docId && e.VersionId == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLog) ListByVersion(_ context.Context, versionId sharedTypes.UUID) ([]changeLog.Entry, error) {
	out := make([]changeLog.Entry, 0)
	for _, e := range f.entries {
		if e.VersionId != nil && *e.VersionId == versionId {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLog) Unlink(_ context.Context, versionId sharedTypes.UUID) error {
	for i := range f.entries {
		if f.entries[i].VersionId != nil && *f.entries[i].VersionId == versionId {
			f.entries[i].VersionId = nil
		}
	}
	return nil
}

func (f *fakeLog) DeleteAllForDocument(_ context.Context, docId sharedTypes.UUID) error {
	kept := f.entries[:0]
	for _, e := range f.entries {
		if e.DocumentId != docId {
			kept = append(kept, e)
		}
	}
	f.entries = kept
	return nil
}

type fakeVersions struct {
	log      *fakeLog
	versions []docVersion.DocumentVersion
	deltas   []contribution.Delta
}

func (f *fakeVersions) CreateInitialVersion(ctx context.Context, docId, authorId sharedTypes.UUID, initialText string) (docVersion.DocumentVersion, error) {
	if v, err := f.GetByNumber(ctx, docId, 0); err == nil {
		return v, nil
	}
	id, _ := sharedTypes.GenerateUUID()
	v := docVersion.DocumentVersion{
		Id: id, DocumentId: docId, VersionNumber: 0,
		Content: initialText, CreatedBy: authorId,
		CreatedAt:         time.Now(),
		ChangeDescription: "Initial version",
	}
	f.versions = append(f.versions, v)
	return v, nil
}

func (f *fakeVersions) InsertSnapshot(_ context.Context, v *docVersion.DocumentVersion, entryIds []sharedTypes.UUID, deltas []contribution.Delta) error {
	for _, existing := range f.versions {
		if existing.DocumentId == v.DocumentId &&
			existing.VersionNumber == v.VersionNumber {
			return &errors.InvalidStateError{Msg: "version number taken"}
		}
	}
	v.CreatedAt = time.Now()
	f.versions = append(f.versions, *v)
	f.deltas = append(f.deltas, deltas...)
	for _, entryId := range entryIds {
		for i := range f.log.entries {
			if f.log.entries[i].Id == entryId {
				versionId := v.Id
				f.log.entries[i].VersionId = &versionId
			}
		}
	}
	return nil
}

func (f *fakeVersions) GetHistory(_ context.Context, docId sharedTypes.UUID) ([]docVersion.DocumentVersion, error) {
	out := make([]docVersion.DocumentVersion, 0)
	for i := len(f.versions) - 1; i >= 0; i-- {
		if f.versions[i].DocumentId == docId {
			out = append(out, f.versions[i])
		}
	}
	return out, nil
}

func (f *fakeVersions) GetByNumber(_ context.Context, docId sharedTypes.UUID, n sharedTypes.VersionNumber) (docVersion.DocumentVersion, error) {
	for _, v := range f.versions {
		if v.DocumentId == docId && v.VersionNumber == n {
			return v, nil
		}
	}
	return docVersion.DocumentVersion{}, &errors.NotFoundError{}
}

func (f *fakeVersions) GetLatest(_ context.Context, docId sharedTypes.UUID) (docVersion.DocumentVersion, error) {
	best := docVersion.DocumentVersion{VersionNumber: -1}
	for _, v := range f.versions {
		if v.DocumentId == docId && v.VersionNumber > best.VersionNumber {
			best = v
		}
	}
	if best.VersionNumber == -1 {
		return best, &errors.NotFoundError{}
	}
	return best, nil
}

func (f *fakeVersions) GetMaxNumber(ctx context.Context, docId sharedTypes.UUID) (sharedTypes.VersionNumber, error) {
	v, err := f.GetLatest(ctx, docId)
	if err != nil {
		return -1, nil
	}
	return v.VersionNumber, nil
}

func (f *fakeVersions) Delete(_ context.Context, versionId sharedTypes.UUID) error {
	for i, v := range f.versions {
		if v.Id == versionId {
			f.versions = append(f.versions[:i], f.versions[i+1:]...)
			return nil
		}
	}
	return &errors.NotFoundError{}
}

func (f *fakeVersions) DeleteAllForDocument(_ context.Context, docId sharedTypes.UUID) error {
	kept := f.versions[:0]
	for _, v := range f.versions {
		if v.DocumentId != docId {
			kept = append(kept, v)
		}
	}
	f.versions = kept
	return nil
}

type fakeContributions struct {
	rows []contribution.UserContribution
}

func (f *fakeContributions) GetForDocument(_ context.Context, docId sharedTypes.UUID) ([]contribution.UserContribution, error) {
	out := make([]contribution.UserContribution, 0)
	for _, r := range f.rows {
		if r.DocumentId == docId {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeContributions) DeleteAllForDocument(_ context.Context, docId sharedTypes.UUID) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.DocumentId != docId {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

type fakeUsers struct {
	users map[sharedTypes.UUID]user.WithPublicInfo
}

func (f *fakeUsers) GetUser(_ context.Context, userId sharedTypes.UUID) (user.WithPublicInfo, error) {
	u, ok := f.users[userId]
	if !ok {
		return u, &errors.NotFoundError{}
	}
	return u, nil
}

func (f *fakeUsers) GetUsers(_ context.Context, userIds []sharedTypes.UUID) (map[sharedTypes.UUID]user.WithPublicInfo, error) {
	out := make(map[sharedTypes.UUID]user.WithPublicInfo)
	for _, id := range userIds {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeDocuments struct {
	content map[sharedTypes.UUID]string
}

func (f *fakeDocuments) Create(_ context.Context, _ *document.Document) error { return nil }
func (f *fakeDocuments) Get(_ context.Context, _ sharedTypes.UUID) (document.Document, error) {
	return document.Document{}, &errors.NotFoundError{}
}
func (f *fakeDocuments) CheckAccess(_ context.Context, _, _ sharedTypes.UUID) error { return nil }
func (f *fakeDocuments) CheckOwner(_ context.Context, _, _ sharedTypes.UUID) error  { return nil }
func (f *fakeDocuments) AddCollaborator(_ context.Context, _, _ sharedTypes.UUID) error {
	return nil
}
func (f *fakeDocuments) UpdateContent(_ context.Context, docId sharedTypes.UUID, content string) error {
	f.content[docId] = content
	return nil
}
func (f *fakeDocuments) Delete(_ context.Context, _ sharedTypes.UUID) error { return nil }

type fakeEditor struct {
	state  editor.DocState
	resets []string
	purged []sharedTypes.UUID
}

func (f *fakeEditor) StartListening(_ context.Context) error { return nil }
func (f *fakeEditor) Join(_ context.Context, _ *types.Client, _ sharedTypes.UUID) (*editor.JoinResponse, error) {
	return nil, &errors.InvalidStateError{Msg: "not implemented"}
}
func (f *fakeEditor) Leave(_ context.Context, _ *types.Client, _ sharedTypes.UUID) error {
	return nil
}
func (f *fakeEditor) ApplyEdit(_ context.Context, _ *types.Client, _ *sharedTypes.DocumentUpdate) (sharedTypes.DocumentUpdateAck, error) {
	return sharedTypes.DocumentUpdateAck{}, &errors.InvalidStateError{Msg: "not implemented"}
}
func (f *fakeEditor) UpdatePosition(_ context.Context, _ *types.Client, _ sharedTypes.UUID, _ int) error {
	return nil
}
func (f *fakeEditor) GetConnectedUsers(_ context.Context, _ sharedTypes.UUID) (*editor.JoinResponse, error) {
	return &editor.JoinResponse{}, nil
}
func (f *fakeEditor) Disconnect(_ *types.Client) {}
func (f *fakeEditor) GetDocState(_ context.Context, _ sharedTypes.UUID) (editor.DocState, error) {
	return f.state, nil
}
func (f *fakeEditor) ResetDoc(_ context.Context, _ sharedTypes.UUID, newText string) error {
	f.resets = append(f.resets, newText)
	return nil
}
func (f *fakeEditor) PurgeDoc(_ context.Context, docId sharedTypes.UUID) error {
	f.purged = append(f.purged, docId)
	return nil
}
func (f *fakeEditor) FlushAll() {}

type fixture struct {
	m      Manager
	log    *fakeLog
	vs     *fakeVersions
	cm     *fakeContributions
	um     *fakeUsers
	dm     *fakeDocuments
	ed     *fakeEditor
	docId  sharedTypes.UUID
	userA  sharedTypes.UUID
	userB  sharedTypes.UUID
	baseTs time.Time
	nextTs time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log := &fakeLog{}
	vs := &fakeVersions{log: log}
	cm := &fakeContributions{}
	dm := &fakeDocuments{content: make(map[sharedTypes.UUID]string)}
	ed := &fakeEditor{}
	f := &fixture{
		log:    log,
		vs:     vs,
		cm:     cm,
		dm:     dm,
		ed:     ed,
		docId:  mustUUID(t, "00000000-0000-4000-8000-000000000001"),
		userA:  mustUUID(t, "00000000-0000-4000-8000-00000000000a"),
		userB:  mustUUID(t, "00000000-0000-4000-8000-00000000000b"),
		baseTs: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	f.nextTs = f.baseTs
	f.um = &fakeUsers{users: map[sharedTypes.UUID]user.WithPublicInfo{
		f.userA: {Id: f.userA, DisplayName: "Alice"},
		f.userB: {Id: f.userB, DisplayName: "Bob"},
	}}
	f.m = New(Config{DiffStatsEnabled: true}, vs, log, cm, f.um, dm, ed)
	return f
}

func (f *fixture) addEntry(t *testing.T, userId sharedTypes.UUID, changeType sharedTypes.OperationType, content string, pos int) changeLog.Entry {
	t.Helper()
	f.nextTs = f.nextTs.Add(time.Second)
	id, err := sharedTypes.GenerateUUID()
	if err != nil {
		t.Fatal(err)
	}
	e := changeLog.Entry{
		Id:         id,
		DocumentId: f.docId,
		UserId:     userId,
		ChangeType: changeType,
		Content:    content,
		Position:   pos,
		Timestamp:  f.nextTs,
	}
	f.log.entries = append(f.log.entries, e)
	return e
}

func (f *fixture) setState(text string, version sharedTypes.Version) {
	f.ed.state = editor.DocState{Text: text, Version: version, LastTs: f.nextTs}
}

func TestCreateVersionLinksTailAndFoldsContributions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "Hello ", 0)
	f.addEntry(t, f.userB, sharedTypes.OpInsert, "World", 6)
	f.addEntry(t, f.userA, sharedTypes.OpDelete, "l", 2)
	f.setState("Helo World", 3)

	v, err := f.m.CreateVersion(ctx, f.docId, f.userA, "first draft")
	if err != nil {
		t.Fatal(err)
	}
	if v.VersionNumber != 1 {
		t.Errorf("versionNumber = %d", v.VersionNumber)
	}
	if v.Content != "Helo World" {
		t.Errorf("content = %q", v.Content)
	}
	if v.ChangeDescription != "first draft" {
		t.Errorf("description = %q", v.ChangeDescription)
	}

	unversioned, _ := f.log.ListUnversioned(ctx, f.docId)
	if len(unversioned) != 0 {
		t.Errorf("%d entries left unversioned", len(unversioned))
	}
	if len(f.vs.deltas) != 2 {
		t.Fatalf("deltas = %+v", f.vs.deltas)
	}
	for _, d := range f.vs.deltas {
		switch d.UserId {
		case f.userA:
			if d.EditCount != 2 || d.CharactersAdded != 6 || d.CharactersDeleted != 1 {
				t.Errorf("userA delta = %+v", d)
			}
		case f.userB:
			if d.EditCount != 1 || d.CharactersAdded != 5 || d.CharactersDeleted != 0 {
				t.Errorf("userB delta = %+v", d)
			}
		default:
			t.Errorf("unexpected delta %+v", d)
		}
	}
}

func TestCreateVersionWithoutChangesFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.setState("", 0)

	_, err := f.m.CreateVersion(ctx, f.docId, f.userA, "empty")
	if !errors.IsInvalidStateError(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
}

func TestCreateVersionCutsAtWatermark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "committed", 0)
	f.setState("committed", 1)
	// Lands after the room state was read.
	late := f.addEntry(t, f.userA, sharedTypes.OpInsert, " and racing", 9)

	v, err := f.m.CreateVersion(ctx, f.docId, f.userA, "cut")
	if err != nil {
		t.Fatal(err)
	}
	if v.Content != "committed" {
		t.Errorf("content = %q", v.Content)
	}
	unversioned, _ := f.log.ListUnversioned(ctx, f.docId)
	if len(unversioned) != 1 || unversioned[0].Id != late.Id {
		t.Errorf("racing entry not left for next snapshot: %+v", unversioned)
	}
}

func TestCreateVersionAutoDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "Hello World", 0)
	f.setState("Hello World", 1)

	v, err := f.m.CreateVersion(ctx, f.docId, f.userA, "")
	if err != nil {
		t.Fatal(err)
	}
	if v.ChangeDescription != "Added 11 and removed 0 characters" {
		t.Errorf("description = %q", v.ChangeDescription)
	}
}

func TestRevertCreatesNewVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, "clean slate"); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, " with edits", 11)
	f.setState("clean slate with edits", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "edited"); err != nil {
		t.Fatal(err)
	}

	v, err := f.m.RevertToVersion(ctx, f.docId, 0, f.userB)
	if err != nil {
		t.Fatal(err)
	}
	if v.VersionNumber != 2 {
		t.Errorf("versionNumber = %d", v.VersionNumber)
	}
	if v.Content != "clean slate" {
		t.Errorf("content = %q", v.Content)
	}
	if v.ChangeDescription != "Reverted to version 0" {
		t.Errorf("description = %q", v.ChangeDescription)
	}
	// History is append-only: the edited version survives.
	if _, err = f.m.GetVersion(ctx, f.docId, 1); err != nil {
		t.Errorf("version 1 gone: %s", err)
	}
	if len(f.ed.resets) != 1 || f.ed.resets[0] != "clean slate" {
		t.Errorf("room resets = %v", f.ed.resets)
	}
	if got := f.dm.content[f.docId]; got != "clean slate" {
		t.Errorf("stored content = %q", got)
	}
}

func TestDeleteVersionRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "a", 0)
	f.setState("a", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "v1"); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "b", 1)
	f.setState("ab", 2)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "v2"); err != nil {
		t.Fatal(err)
	}

	if err := f.m.DeleteVersion(ctx, f.docId, 0); !errors.IsValidationError(err) {
		t.Errorf("deleting v0: %v", err)
	}
	if err := f.m.DeleteVersion(ctx, f.docId, 1); !errors.IsInvalidStateError(err) {
		t.Errorf("deleting middle version: %v", err)
	}
	if err := f.m.DeleteVersion(ctx, f.docId, 2); err != nil {
		t.Fatalf("deleting latest: %s", err)
	}
	if _, err := f.m.GetVersion(ctx, f.docId, 2); !errors.IsNotFoundError(err) {
		t.Errorf("version 2 still there: %v", err)
	}
	// Its change rejoined the unversioned tail.
	unversioned, _ := f.log.ListUnversioned(ctx, f.docId)
	if len(unversioned) != 1 || unversioned[0].Content != "b" {
		t.Errorf("unversioned tail = %+v", unversioned)
	}
}

func TestDeleteRevertCreatedVersionRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "Hello", 0)
	f.setState("Hello", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "v1"); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, " World", 5)
	f.setState("Hello World", 2)
	if _, err := f.m.RevertToVersion(ctx, f.docId, 0, f.userA); err != nil {
		t.Fatal(err)
	}

	// The revert version's content is v0's text, not v1 plus its linked
	// changes. Unlinking them would make a cold rehydration replay back to
	// the pre-revert text while the live room holds the revert target.
	err := f.m.DeleteVersion(ctx, f.docId, 2)
	if !errors.IsInvalidStateError(err) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if _, err = f.m.GetVersion(ctx, f.docId, 2); err != nil {
		t.Errorf("revert version gone: %s", err)
	}
	unversioned, _ := f.log.ListUnversioned(ctx, f.docId)
	if len(unversioned) != 0 {
		t.Errorf("changes were unlinked: %+v", unversioned)
	}
}

func TestGetDiffDefaultsToPreviousVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, "line one"); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "\nline two", 8)
	f.setState("line one\nline two", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "v1"); err != nil {
		t.Fatal(err)
	}

	d, err := f.m.GetDiff(ctx, f.docId, nil, 1)
	if err != nil {
		t.Fatal(err)
	}
	if d.Summary.AddedLines != 1 || d.Summary.RemovedLines != 0 {
		t.Errorf("summary = %+v", d.Summary)
	}

	// The initial version diffs against empty text.
	d, err = f.m.GetDiff(ctx, f.docId, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if d.Summary.AddedLines != 1 || d.Summary.AddedChars != 8 {
		t.Errorf("v0 summary = %+v", d.Summary)
	}
}

func TestGetHistoryResolvesDisplayNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userB, sharedTypes.OpInsert, "x", 0)
	f.setState("x", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userB, "v1"); err != nil {
		t.Fatal(err)
	}

	versions, err := f.m.GetHistory(ctx, f.docId)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 2 {
		t.Fatalf("%d versions", len(versions))
	}
	if versions[0].VersionNumber != 1 || versions[0].CreatedByName != "Bob" {
		t.Errorf("newest = %+v", versions[0])
	}
	if versions[1].CreatedByName != "Alice" {
		t.Errorf("oldest = %+v", versions[1])
	}
}

func TestDeleteAllForDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.m.CreateInitialVersion(ctx, f.docId, f.userA, ""); err != nil {
		t.Fatal(err)
	}
	f.addEntry(t, f.userA, sharedTypes.OpInsert, "a", 0)
	f.setState("a", 1)
	if _, err := f.m.CreateVersion(ctx, f.docId, f.userA, "v1"); err != nil {
		t.Fatal(err)
	}

	if err := f.m.DeleteAllForDocument(ctx, f.docId); err != nil {
		t.Fatal(err)
	}
	if len(f.vs.versions) != 0 {
		t.Errorf("%d versions left", len(f.vs.versions))
	}
	if len(f.log.entries) != 0 {
		t.Errorf("%d change entries left", len(f.log.entries))
	}
	if len(f.ed.purged) != 1 || f.ed.purged[0] != f.docId {
		t.Errorf("purged = %v", f.ed.purged)
	}
}
