package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/kalume/darasa/core/discussion"
)

type discussionRepository struct {
	db *discussionTable
}

var _ discussion.Repository = (*discussionRepository)(nil)

func NewDiscussionRepository(db *DB) discussion.Repository {
	return &discussionRepository{db: db.discussions}
}

func (repo *discussionRepository) CreateDiscussion(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	d.ID = uuid.New().String()
	d.Version = 1
	stored := copyDiscussion(d)
	repo.db.table[d.ID] = &stored
	return d, nil
}

func (repo *discussionRepository) GetDiscussionByID(ctx context.Context, id string) (discussion.Discussion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if d, ok := repo.db.table[id]; ok {
		return copyDiscussion(*d), nil
	}
	return discussion.Discussion{}, discussion.ErrNotFound
}

func (repo *discussionRepository) QueryDiscussionsBySubject(ctx context.Context, subjectID string) ([]discussion.Discussion, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var ds []discussion.Discussion
	for _, d := range repo.db.table {
		if d.SubjectID == subjectID {
			ds = append(ds, copyDiscussion(*d))
		}
	}
	sort.Slice(ds, func(i, j int) bool { return ds[i].CreatedAt.After(ds[j].CreatedAt) })
	return ds, nil
}

func (repo *discussionRepository) UpdateDiscussion(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	cur, ok := repo.db.table[d.ID]
	if !ok {
		return discussion.Discussion{}, discussion.ErrNotFound
	}
	if cur.Version != d.Version {
		return discussion.Discussion{}, discussion.ErrConflict
	}
	d.Version++
	stored := copyDiscussion(d)
	repo.db.table[d.ID] = &stored
	return d, nil
}

func (repo *discussionRepository) DeleteDiscussionByID(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	delete(repo.db.table, id)
	return nil
}

// copyDiscussion deep-copies the document so callers never alias stored slices.
func copyDiscussion(d discussion.Discussion) discussion.Discussion {
	cp := d
	cp.Comments = make([]discussion.Comment, len(d.Comments))
	for i, c := range d.Comments {
		cp.Comments[i] = c
		cp.Comments[i].Replies = copyReplies(c.Replies)
	}
	return cp
}

func copyReplies(rs []discussion.Reply) []discussion.Reply {
	out := make([]discussion.Reply, len(rs))
	for i, r := range rs {
		out[i] = r
		out[i].Replies = copyReplies(r.Replies)
	}
	return out
}
