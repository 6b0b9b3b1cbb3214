package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/kalume/darasa/core/moderation"
)

type moderationRepository struct {
	db *moderationTable
}

var _ moderation.Repository = (*moderationRepository)(nil)

func NewModerationRepository(db *DB) moderation.Repository {
	return &moderationRepository{db: db.modLog}
}

func (repo *moderationRepository) CreateEntry(ctx context.Context, entry moderation.Entry) (moderation.Entry, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	entry.ID = uuid.New().String()
	repo.db.entries = append(repo.db.entries, entry)
	return entry, nil
}

func (repo *moderationRepository) QueryEntriesByDiscussion(ctx context.Context, discussionID string) ([]moderation.Entry, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var entries []moderation.Entry
	for _, entry := range repo.db.entries {
		if entry.DiscussionID == discussionID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
