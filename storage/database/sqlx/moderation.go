package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kalume/darasa/core/moderation"
)

type moderationRow struct {
	ID           string    `db:"id"`
	DiscussionID string    `db:"discussion_id"`
	TargetKind   string    `db:"target_kind"`
	TargetID     string    `db:"target_id"`
	ActorID      string    `db:"actor_id"`
	Hidden       bool      `db:"hidden"`
	CreatedAt    time.Time `db:"created_at"`
}

func (row moderationRow) toEntry() moderation.Entry {
	return moderation.Entry(row)
}

type moderationRepository struct {
	db *sqlx.DB
}

var _ moderation.Repository = (*moderationRepository)(nil)

func NewModerationRepository(db *sqlx.DB) moderation.Repository {
	return &moderationRepository{db: db}
}

func (repo *moderationRepository) CreateEntry(ctx context.Context, entry moderation.Entry) (moderation.Entry, error) {
	entry.ID = uuid.New().String()
	query := `
		INSERT INTO moderation_log (id, discussion_id, target_kind, target_id, actor_id, hidden, created_at)
		VALUES (:id, :discussion_id, :target_kind, :target_id, :actor_id, :hidden, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, moderationRow(entry)); err != nil {
		return moderation.Entry{}, errors.Wrap(err, "creating moderation entry")
	}
	return entry, nil
}

func (repo *moderationRepository) QueryEntriesByDiscussion(ctx context.Context, discussionID string) ([]moderation.Entry, error) {
	var rows []moderationRow
	query := `SELECT * FROM moderation_log WHERE discussion_id = $1 ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &rows, query, discussionID); err != nil {
		return nil, errors.Wrap(err, "querying moderation log")
	}
	entries := make([]moderation.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries, nil
}
