package moderation

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type (
	Repository interface {
		CreateEntry(ctx context.Context, entry Entry) (Entry, error)
		// QueryEntriesByDiscussion returns a discussion's entries oldest-first.
		QueryEntriesByDiscussion(ctx context.Context, discussionID string) ([]Entry, error)
	}

	Service interface {
		// RecordModeration appends a moderation entry for a hide/unhide action.
		RecordModeration(ctx context.Context, discussionID, targetKind, targetID, actorID string, hidden bool) error
		QueryByDiscussion(ctx context.Context, discussionID string) ([]Entry, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) RecordModeration(ctx context.Context, discussionID, targetKind, targetID, actorID string, hidden bool) error {
	entry := Entry{
		DiscussionID: discussionID,
		TargetKind:   targetKind,
		TargetID:     targetID,
		ActorID:      actorID,
		Hidden:       hidden,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err := svc.repo.CreateEntry(ctx, entry); err != nil {
		return errors.Wrap(err, "recording moderation entry")
	}
	return nil
}

func (svc *service) QueryByDiscussion(ctx context.Context, discussionID string) ([]Entry, error) {
	return svc.repo.QueryEntriesByDiscussion(ctx, discussionID)
}
