package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kalume/darasa/core/discussion"
)

// discussionRow maps the discussion document: scalar fields as columns, the
// comment tree as one jsonb document.
type discussionRow struct {
	ID        string          `db:"id"`
	SubjectID string          `db:"subject_id"`
	AuthorID  string          `db:"author_id"`
	Title     string          `db:"title"`
	Content   string          `db:"content"`
	IsEdited  bool            `db:"is_edited"`
	Comments  json.RawMessage `db:"comments"`
	Version   int             `db:"version"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (row discussionRow) toDiscussion() (discussion.Discussion, error) {
	d := discussion.Discussion{
		ID:        row.ID,
		SubjectID: row.SubjectID,
		AuthorID:  row.AuthorID,
		Title:     row.Title,
		Content:   row.Content,
		IsEdited:  row.IsEdited,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		Version:   row.Version,
	}
	if err := json.Unmarshal(row.Comments, &d.Comments); err != nil {
		return discussion.Discussion{}, errors.Wrap(err, "decoding comments")
	}
	return d, nil
}

func toDiscussionRow(d discussion.Discussion) (discussionRow, error) {
	comments := d.Comments
	if comments == nil {
		comments = []discussion.Comment{}
	}
	raw, err := json.Marshal(comments)
	if err != nil {
		return discussionRow{}, errors.Wrap(err, "encoding comments")
	}
	return discussionRow{
		ID:        d.ID,
		SubjectID: d.SubjectID,
		AuthorID:  d.AuthorID,
		Title:     d.Title,
		Content:   d.Content,
		IsEdited:  d.IsEdited,
		Comments:  raw,
		Version:   d.Version,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

type discussionRepository struct {
	db *sqlx.DB
}

var _ discussion.Repository = (*discussionRepository)(nil)

func NewDiscussionRepository(db *sqlx.DB) discussion.Repository {
	return &discussionRepository{db: db}
}

func (repo *discussionRepository) CreateDiscussion(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
	d.ID = uuid.New().String()
	d.Version = 1
	row, err := toDiscussionRow(d)
	if err != nil {
		return discussion.Discussion{}, err
	}
	query := `
		INSERT INTO discussions (id, subject_id, author_id, title, content, is_edited, comments, version, created_at, updated_at)
		VALUES (:id, :subject_id, :author_id, :title, :content, :is_edited, :comments, :version, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, query, row); err != nil {
		return discussion.Discussion{}, errors.Wrap(err, "creating discussion")
	}
	return d, nil
}

func (repo *discussionRepository) GetDiscussionByID(ctx context.Context, id string) (discussion.Discussion, error) {
	var row discussionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM discussions WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return discussion.Discussion{}, discussion.ErrNotFound
		}
		return discussion.Discussion{}, errors.Wrap(err, "getting discussion")
	}
	return row.toDiscussion()
}

func (repo *discussionRepository) QueryDiscussionsBySubject(ctx context.Context, subjectID string) ([]discussion.Discussion, error) {
	var rows []discussionRow
	query := `SELECT * FROM discussions WHERE subject_id = $1 ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying discussions")
	}
	ds := make([]discussion.Discussion, len(rows))
	for i, row := range rows {
		d, err := row.toDiscussion()
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return ds, nil
}

// UpdateDiscussion saves the whole document, guarded by the version check.
func (repo *discussionRepository) UpdateDiscussion(ctx context.Context, d discussion.Discussion) (discussion.Discussion, error) {
	saveVersion := d.Version
	d.Version++
	row, err := toDiscussionRow(d)
	if err != nil {
		return discussion.Discussion{}, err
	}

	query := `
		UPDATE discussions
		SET title = $1, content = $2, is_edited = $3, comments = $4, version = $5, updated_at = $6
		WHERE id = $7 AND version = $8`
	res, err := repo.db.ExecContext(ctx, query,
		row.Title, row.Content, row.IsEdited, row.Comments, row.Version, row.UpdatedAt, row.ID, saveVersion)
	if err != nil {
		return discussion.Discussion{}, errors.Wrap(err, "updating discussion")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return discussion.Discussion{}, errors.Wrap(err, "updating discussion")
	}
	if n == 0 {
		// either the document is gone or someone saved in between
		if _, err = repo.GetDiscussionByID(ctx, d.ID); err != nil {
			return discussion.Discussion{}, err
		}
		return discussion.Discussion{}, discussion.ErrConflict
	}
	return d, nil
}

func (repo *discussionRepository) DeleteDiscussionByID(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM discussions WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting discussion")
	}
	return nil
}
