package discussion

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalume/darasa/core"
	"github.com/kalume/darasa/core/user"
)

// ---------------------------------------------------------------- test doubles

type repoMock struct {
	mu sync.Mutex
	db map[string]Discussion

	// failSaves makes the next N UpdateDiscussion calls lose the version race
	failSaves int
	saveCalls int
}

var _ Repository = (*repoMock)(nil)

func newRepoMock() *repoMock { return &repoMock{db: make(map[string]Discussion)} }

func (r *repoMock) CreateDiscussion(ctx context.Context, d Discussion) (Discussion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = uuid.New().String()
	d.Version = 1
	r.db[d.ID] = d
	return d, nil
}

func (r *repoMock) GetDiscussionByID(ctx context.Context, id string) (Discussion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.db[id]
	if !ok {
		return Discussion{}, ErrNotFound
	}
	return d, nil
}

func (r *repoMock) QueryDiscussionsBySubject(ctx context.Context, subjectID string) ([]Discussion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ds []Discussion
	for _, d := range r.db {
		if d.SubjectID == subjectID {
			ds = append(ds, d)
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].CreatedAt.After(ds[j].CreatedAt) })
	return ds, nil
}

func (r *repoMock) UpdateDiscussion(ctx context.Context, d Discussion) (Discussion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveCalls++
	if r.failSaves > 0 {
		r.failSaves--
		return Discussion{}, ErrConflict
	}
	cur, ok := r.db[d.ID]
	if !ok {
		return Discussion{}, ErrNotFound
	}
	if cur.Version != d.Version {
		return Discussion{}, ErrConflict
	}
	d.Version++
	r.db[d.ID] = d
	return d, nil
}

func (r *repoMock) DeleteDiscussionByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.db, id)
	return nil
}

type registryMock struct {
	teachers    map[string][]string // subjectID -> userIDs
	students    map[string][]string
	discussions map[string][]string
}

var _ Registry = (*registryMock)(nil)

func newRegistryMock() *registryMock {
	return &registryMock{
		teachers:    make(map[string][]string),
		students:    make(map[string][]string),
		discussions: make(map[string][]string),
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r *registryMock) IsAssignedTeacher(ctx context.Context, subjectID, userID string) (bool, error) {
	return contains(r.teachers[subjectID], userID), nil
}
func (r *registryMock) IsEnrolledStudent(ctx context.Context, subjectID, userID string) (bool, error) {
	return contains(r.students[subjectID], userID), nil
}
func (r *registryMock) AttachDiscussion(ctx context.Context, subjectID, discussionID string) error {
	r.discussions[subjectID] = append(r.discussions[subjectID], discussionID)
	return nil
}
func (r *registryMock) DetachDiscussion(ctx context.Context, subjectID, discussionID string) error {
	ids := r.discussions[subjectID]
	for i, id := range ids {
		if id == discussionID {
			r.discussions[subjectID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return nil
}

type modEntry struct {
	discussionID, kind, targetID, actorID string
	hidden                                bool
}

type modLogMock struct{ entries []modEntry }

var _ ModerationRecorder = (*modLogMock)(nil)

func (m *modLogMock) RecordModeration(ctx context.Context, discussionID, kind, targetID, actorID string, hidden bool) error {
	m.entries = append(m.entries, modEntry{discussionID, kind, targetID, actorID, hidden})
	return nil
}

type nopLogger struct{}

var _ core.Logger = (*nopLogger)(nil)

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// ------------------------------------------------------------------- fixtures

const subjID = "subj-1"

var (
	admin    = user.User{ID: "u-admin", Roles: []string{user.RoleAdmin}}
	teacher  = user.User{ID: "u-teacher", Roles: []string{user.RoleTeacher}}
	student  = user.User{ID: "u-student", Roles: []string{user.RoleStudent}}
	student2 = user.User{ID: "u-student2", Roles: []string{user.RoleStudent}}
	outsider = user.User{ID: "u-outsider", Roles: []string{user.RoleStudent}}
)

type fixture struct {
	svc      Service
	repo     *repoMock
	registry *registryMock
	modLog   *modLogMock
}

func newFixture() fixture {
	repo := newRepoMock()
	registry := newRegistryMock()
	registry.teachers[subjID] = []string{teacher.ID}
	registry.students[subjID] = []string{student.ID, student2.ID}
	modLog := &modLogMock{}
	return fixture{
		svc:      NewService(repo, registry, modLog, nopLogger{}),
		repo:     repo,
		registry: registry,
		modLog:   modLog,
	}
}

func (f fixture) mustCreate(t *testing.T, caller user.User) Discussion {
	t.Helper()
	d, err := f.svc.Create(context.Background(), caller, subjID, NewDiscussion{
		Title: "Homework 3", Content: "Questions about exercise 2 go here.",
	})
	require.NoError(t, err)
	return d
}

func isValidationError(err error) bool {
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

// ----------------------------------------------------------------- discussion

func TestServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("teacher", func(t *testing.T) {
		f := newFixture()
		d := f.mustCreate(t, teacher)

		assert.NotEmpty(t, d.ID)
		assert.Equal(t, subjID, d.SubjectID)
		assert.Equal(t, teacher.ID, d.AuthorID)
		assert.False(t, d.IsEdited)
		assert.Empty(t, d.Comments)
		assert.Equal(t, []string{d.ID}, f.registry.discussions[subjID], "discussion attached to subject")
	})

	t.Run("admin", func(t *testing.T) {
		f := newFixture()
		f.mustCreate(t, admin)
	})

	t.Run("student forbidden", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, student, subjID, NewDiscussion{Title: "t", Content: "c"})
		assert.Equal(t, ErrForbidden, errors.Cause(err))
		assert.Empty(t, f.registry.discussions[subjID])
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.Create(ctx, teacher, subjID, NewDiscussion{Title: "t"})
		assert.True(t, isValidationError(err))
		_, err = f.svc.Create(ctx, teacher, subjID, NewDiscussion{Content: "   "})
		assert.True(t, isValidationError(err))
	})
}

func TestServiceGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	for _, caller := range []user.User{admin, teacher, student} {
		got, err := f.svc.Get(ctx, caller, d.ID)
		require.NoError(t, err, caller.ID)
		assert.Equal(t, d.ID, got.ID)
	}

	_, err := f.svc.Get(ctx, outsider, d.ID)
	assert.Equal(t, ErrForbidden, errors.Cause(err))

	_, err = f.svc.Get(ctx, admin, "nope")
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("author edits", func(t *testing.T) {
		f := newFixture()
		d := f.mustCreate(t, teacher)

		got, err := f.svc.Update(ctx, teacher, d.ID, UpdateDiscussion{Content: "Revised prompt."})
		require.NoError(t, err)
		assert.Equal(t, "Revised prompt.", got.Content)
		assert.Equal(t, d.Title, got.Title, "untouched field kept")
		assert.True(t, got.IsEdited)
	})

	t.Run("no-op change leaves edited flag unset", func(t *testing.T) {
		f := newFixture()
		d := f.mustCreate(t, teacher)

		got, err := f.svc.Update(ctx, teacher, d.ID, UpdateDiscussion{Title: d.Title, Content: d.Content})
		require.NoError(t, err)
		assert.False(t, got.IsEdited)
	})

	t.Run("student forbidden, state unchanged", func(t *testing.T) {
		f := newFixture()
		d := f.mustCreate(t, teacher)

		_, err := f.svc.Update(ctx, student, d.ID, UpdateDiscussion{Title: "hijacked"})
		assert.Equal(t, ErrForbidden, errors.Cause(err))

		got, err := f.svc.Get(ctx, teacher, d.ID)
		require.NoError(t, err)
		assert.Equal(t, d.Title, got.Title)
		assert.False(t, got.IsEdited)
	})
}

func TestServiceDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	_, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, teacher, d.ID))
	assert.Empty(t, f.registry.discussions[subjID], "discussion detached from subject")

	_, err = f.svc.Get(ctx, teacher, d.ID)
	assert.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestServiceQueryBySubject(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.mustCreate(t, teacher)
	f.mustCreate(t, teacher)

	ds, err := f.svc.QueryBySubject(ctx, student, subjID)
	require.NoError(t, err)
	assert.Len(t, ds, 2)

	_, err = f.svc.QueryBySubject(ctx, outsider, subjID)
	assert.Equal(t, ErrForbidden, errors.Cause(err))
}

// ------------------------------------------------------------------- comments

func TestServiceAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	got, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "I am stuck on 2b."})
	require.NoError(t, err)
	require.Len(t, got.Comments, 1)
	c := got.Comments[0]
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, student.ID, c.AuthorID)
	assert.False(t, c.IsEdited)
	assert.False(t, c.IsHidden)

	_, err = f.svc.AddComment(ctx, outsider, d.ID, NewComment{Content: "me too"})
	assert.Equal(t, ErrForbidden, errors.Cause(err))

	_, err = f.svc.AddComment(ctx, student, d.ID, NewComment{})
	assert.True(t, isValidationError(err))
}

func TestServiceUpdateComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "first take"})
	require.NoError(t, err)
	cID := d.Comments[0].ID

	t.Run("owner", func(t *testing.T) {
		got, err := f.svc.UpdateComment(ctx, student, d.ID, cID, EditContent{Content: "second take"})
		require.NoError(t, err)
		c := got.FindComment(cID)
		assert.Equal(t, "second take", c.Content)
		assert.True(t, c.IsEdited)

		// edited flag never reverts, even on a no-op save
		got, err = f.svc.UpdateComment(ctx, student, d.ID, cID, EditContent{Content: "second take"})
		require.NoError(t, err)
		assert.True(t, got.FindComment(cID).IsEdited)
	})

	t.Run("non-owner forbidden, even teacher and admin", func(t *testing.T) {
		for _, caller := range []user.User{teacher, admin, student2} {
			_, err := f.svc.UpdateComment(ctx, caller, d.ID, cID, EditContent{Content: "rewrite"})
			assert.Equal(t, ErrForbidden, errors.Cause(err), caller.ID)
		}
	})

	t.Run("unknown comment", func(t *testing.T) {
		_, err := f.svc.UpdateComment(ctx, student, d.ID, "nope", EditContent{Content: "x"})
		assert.Equal(t, ErrCommentNotFound, errors.Cause(err))
	})
}

func TestServiceDeleteComment(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (fixture, Discussion, string) {
		f := newFixture()
		d := f.mustCreate(t, teacher)
		d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "parent"})
		require.NoError(t, err)
		cID := d.Comments[0].ID
		d, err = f.svc.AddReply(ctx, student2, d.ID, cID, NewReply{Content: "child"})
		require.NoError(t, err)
		return f, d, cID
	}

	t.Run("owner cascades the reply subtree", func(t *testing.T) {
		f, d, cID := setup(t)
		got, err := f.svc.DeleteComment(ctx, student, d.ID, cID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.NodeCount())
	})

	t.Run("teacher and admin may delete others' comments", func(t *testing.T) {
		for _, caller := range []user.User{teacher, admin} {
			f, d, cID := setup(t)
			_, err := f.svc.DeleteComment(ctx, caller, d.ID, cID)
			assert.NoError(t, err, caller.ID)
		}
	})

	t.Run("another student may not", func(t *testing.T) {
		f, d, cID := setup(t)
		_, err := f.svc.DeleteComment(ctx, student2, d.ID, cID)
		assert.Equal(t, ErrForbidden, errors.Cause(err))

		got, err := f.svc.Get(ctx, teacher, d.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.NodeCount(), "state unchanged")
	})
}

func TestServiceToggleHideComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "spam"})
	require.NoError(t, err)
	cID := d.Comments[0].ID

	t.Run("admin only", func(t *testing.T) {
		for _, caller := range []user.User{teacher, student, student2} {
			_, err := f.svc.ToggleHideComment(ctx, caller, d.ID, cID)
			assert.Equal(t, ErrForbidden, errors.Cause(err), caller.ID)
		}
		assert.Empty(t, f.modLog.entries)
	})

	t.Run("toggle round trip", func(t *testing.T) {
		got, err := f.svc.ToggleHideComment(ctx, admin, d.ID, cID)
		require.NoError(t, err)
		c := got.FindComment(cID)
		assert.True(t, c.IsHidden)
		assert.Equal(t, admin.ID, c.HiddenBy)
		assert.Equal(t, "spam", c.Content, "content kept, only flagged")

		got, err = f.svc.ToggleHideComment(ctx, admin, d.ID, cID)
		require.NoError(t, err)
		c = got.FindComment(cID)
		assert.False(t, c.IsHidden)
		assert.Empty(t, c.HiddenBy)

		require.Len(t, f.modLog.entries, 2)
		assert.Equal(t, modEntry{d.ID, "comment", cID, admin.ID, true}, f.modLog.entries[0])
		assert.Equal(t, modEntry{d.ID, "comment", cID, admin.ID, false}, f.modLog.entries[1])
	})
}

// --------------------------------------------------------------------- replies

func TestServiceAddReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "q"})
	require.NoError(t, err)
	cID := d.Comments[0].ID

	t.Run("under the comment", func(t *testing.T) {
		got, err := f.svc.AddReply(ctx, teacher, d.ID, cID, NewReply{Content: "a", ReplyTo: student.ID})
		require.NoError(t, err)
		c := got.FindComment(cID)
		require.Len(t, c.Replies, 1)
		assert.Equal(t, teacher.ID, c.Replies[0].AuthorID)
		assert.Equal(t, student.ID, c.Replies[0].ReplyTo)
	})

	t.Run("nested under a reply", func(t *testing.T) {
		d, err := f.svc.Get(ctx, teacher, d.ID)
		require.NoError(t, err)
		parentID := d.FindComment(cID).Replies[0].ID

		got, err := f.svc.AddReply(ctx, student2, d.ID, cID, NewReply{Content: "follow-up", ParentReplyID: parentID})
		require.NoError(t, err)
		parent := got.FindComment(cID).FindReply(parentID)
		require.Len(t, parent.Replies, 1)

		// and a third level below that
		got, err = f.svc.AddReply(ctx, student, d.ID, cID, NewReply{Content: "deeper", ParentReplyID: parent.Replies[0].ID})
		require.NoError(t, err)
		assert.Len(t, got.FindComment(cID).FindReply(parent.Replies[0].ID).Replies, 1)
	})

	t.Run("unknown parent reply", func(t *testing.T) {
		_, err := f.svc.AddReply(ctx, student, d.ID, cID, NewReply{Content: "x", ParentReplyID: "nope"})
		assert.Equal(t, ErrReplyNotFound, errors.Cause(err))
	})

	t.Run("outsider forbidden", func(t *testing.T) {
		_, err := f.svc.AddReply(ctx, outsider, d.ID, cID, NewReply{Content: "x"})
		assert.Equal(t, ErrForbidden, errors.Cause(err))
	})
}

func TestServiceUpdateReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "q"})
	require.NoError(t, err)
	cID := d.Comments[0].ID
	d, err = f.svc.AddReply(ctx, student2, d.ID, cID, NewReply{Content: "draft"})
	require.NoError(t, err)
	rID := d.FindComment(cID).Replies[0].ID

	got, err := f.svc.UpdateReply(ctx, student2, d.ID, cID, rID, EditContent{Content: "final"})
	require.NoError(t, err)
	r := got.FindComment(cID).FindReply(rID)
	assert.Equal(t, "final", r.Content)
	assert.True(t, r.IsEdited)

	for _, caller := range []user.User{teacher, admin, student} {
		_, err := f.svc.UpdateReply(ctx, caller, d.ID, cID, rID, EditContent{Content: "rewrite"})
		assert.Equal(t, ErrForbidden, errors.Cause(err), caller.ID)
	}

	_, err = f.svc.UpdateReply(ctx, student2, d.ID, cID, "nope", EditContent{Content: "x"})
	assert.Equal(t, ErrReplyNotFound, errors.Cause(err))
}

func TestServiceDeleteReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "q"})
	require.NoError(t, err)
	cID := d.Comments[0].ID
	d, err = f.svc.AddReply(ctx, student2, d.ID, cID, NewReply{Content: "parent"})
	require.NoError(t, err)
	rID := d.FindComment(cID).Replies[0].ID
	d, err = f.svc.AddReply(ctx, student, d.ID, cID, NewReply{Content: "child", ParentReplyID: rID})
	require.NoError(t, err)

	got, err := f.svc.DeleteReply(ctx, student2, d.ID, cID, rID)
	require.NoError(t, err)
	assert.Nil(t, got.FindComment(cID).FindReply(rID))
	assert.Equal(t, 1, got.NodeCount(), "descendants deleted with the reply")
}

func TestServiceToggleHideReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)
	d, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "q"})
	require.NoError(t, err)
	cID := d.Comments[0].ID
	d, err = f.svc.AddReply(ctx, student2, d.ID, cID, NewReply{Content: "off topic"})
	require.NoError(t, err)
	rID := d.FindComment(cID).Replies[0].ID

	_, err = f.svc.ToggleHideReply(ctx, teacher, d.ID, cID, rID)
	assert.Equal(t, ErrForbidden, errors.Cause(err))

	got, err := f.svc.ToggleHideReply(ctx, admin, d.ID, cID, rID)
	require.NoError(t, err)
	r := got.FindComment(cID).FindReply(rID)
	assert.True(t, r.IsHidden)
	assert.Equal(t, admin.ID, r.HiddenBy)
	require.Len(t, f.modLog.entries, 1)
	assert.Equal(t, modEntry{d.ID, "reply", rID, admin.ID, true}, f.modLog.entries[0])
}

// ------------------------------------------------------------------ concurrency

func TestServiceRetriesOnConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	f.repo.failSaves = maxSaveAttempts - 1
	got, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "made it"})
	require.NoError(t, err)
	assert.Len(t, got.Comments, 1)
	assert.Equal(t, maxSaveAttempts, f.repo.saveCalls)
}

func TestServiceGivesUpAfterRepeatedConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	f.repo.failSaves = maxSaveAttempts
	_, err := f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "nope"})
	assert.Equal(t, ErrConflict, errors.Cause(err))
}

func TestNodeIDsUnique(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	d := f.mustCreate(t, teacher)

	var err error
	for i := 0; i < 5; i++ {
		d, err = f.svc.AddComment(ctx, student, d.ID, NewComment{Content: "c"})
		require.NoError(t, err)
	}
	for _, c := range d.Comments {
		d, err = f.svc.AddReply(ctx, student2, d.ID, c.ID, NewReply{Content: "r"})
		require.NoError(t, err)
	}

	seen := make(map[string]bool)
	var walk func(rs []Reply)
	walk = func(rs []Reply) {
		for _, r := range rs {
			assert.False(t, seen[r.ID])
			seen[r.ID] = true
			walk(r.Replies)
		}
	}
	for _, c := range d.Comments {
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
		walk(c.Replies)
	}
	assert.Len(t, seen, d.NodeCount())
}
