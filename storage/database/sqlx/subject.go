package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/kalume/darasa/core/subject"
)

type subjectRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Code          string         `db:"code"`
	TeacherIDs    pq.StringArray `db:"teacher_ids"`
	StudentIDs    pq.StringArray `db:"student_ids"`
	DiscussionIDs pq.StringArray `db:"discussion_ids"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (row subjectRow) toSubject() subject.Subject {
	return subject.Subject{
		ID:            row.ID,
		Name:          row.Name,
		Code:          row.Code,
		TeacherIDs:    row.TeacherIDs,
		StudentIDs:    row.StudentIDs,
		DiscussionIDs: row.DiscussionIDs,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func toSubjectRow(sub subject.Subject) subjectRow {
	row := subjectRow{
		ID:            sub.ID,
		Name:          sub.Name,
		Code:          sub.Code,
		TeacherIDs:    sub.TeacherIDs,
		StudentIDs:    sub.StudentIDs,
		DiscussionIDs: sub.DiscussionIDs,
		CreatedAt:     sub.CreatedAt,
		UpdatedAt:     sub.UpdatedAt,
	}
	if row.TeacherIDs == nil {
		row.TeacherIDs = pq.StringArray{}
	}
	if row.StudentIDs == nil {
		row.StudentIDs = pq.StringArray{}
	}
	if row.DiscussionIDs == nil {
		row.DiscussionIDs = pq.StringArray{}
	}
	return row
}

type subjectRepository struct {
	db *sqlx.DB
}

var _ subject.Repository = (*subjectRepository)(nil)

func NewSubjectRepository(db *sqlx.DB) subject.Repository {
	return &subjectRepository{db: db}
}

func (repo *subjectRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...subject.Subject) error {
	query := `SELECT COUNT(*) FROM subjects WHERE code = ?`
	args := []interface{}{code}
	if len(excludedSubjects) > 0 {
		ids := make([]string, len(excludedSubjects))
		for i, sub := range excludedSubjects {
			ids[i] = sub.ID
		}
		query += ` AND id NOT IN (?)`
		var err error
		if query, args, err = sqlx.In(query, code, ids); err != nil {
			return errors.Wrap(err, "checking code uniqueness")
		}
	}

	var count int
	if err := repo.db.GetContext(ctx, &count, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "checking code uniqueness")
	}
	if count > 0 {
		return subject.ErrCodeExists
	}
	return nil
}

func (repo *subjectRepository) CreateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	sub.ID = uuid.New().String()
	query := `
		INSERT INTO subjects (id, name, code, teacher_ids, student_ids, discussion_ids, created_at, updated_at)
		VALUES (:id, :name, :code, :teacher_ids, :student_ids, :discussion_ids, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, toSubjectRow(sub)); err != nil {
		return subject.Subject{}, errors.Wrap(err, "creating subject")
	}
	return sub, nil
}

func (repo *subjectRepository) QueryAllSubjects(ctx context.Context) ([]subject.Subject, error) {
	var rows []subjectRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM subjects ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying subjects")
	}
	subs := make([]subject.Subject, len(rows))
	for i, row := range rows {
		subs[i] = row.toSubject()
	}
	return subs, nil
}

func (repo *subjectRepository) getSubject(ctx context.Context, query string, args ...interface{}) (subject.Subject, error) {
	var row subjectRow
	if err := repo.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return subject.Subject{}, subject.ErrNotFound
		}
		return subject.Subject{}, errors.Wrap(err, "getting subject")
	}
	return row.toSubject(), nil
}

func (repo *subjectRepository) GetSubjectByID(ctx context.Context, id string) (subject.Subject, error) {
	return repo.getSubject(ctx, `SELECT * FROM subjects WHERE id = $1`, id)
}

func (repo *subjectRepository) GetSubjectByCode(ctx context.Context, code string) (subject.Subject, error) {
	return repo.getSubject(ctx, `SELECT * FROM subjects WHERE code = $1`, code)
}

func (repo *subjectRepository) UpdateSubject(ctx context.Context, sub subject.Subject) (subject.Subject, error) {
	query := `
		UPDATE subjects
		SET name = :name, code = :code, teacher_ids = :teacher_ids, student_ids = :student_ids,
		    discussion_ids = :discussion_ids, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, query, toSubjectRow(sub))
	if err != nil {
		return subject.Subject{}, errors.Wrap(err, "updating subject")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return subject.Subject{}, subject.ErrNotFound
	}
	return sub, nil
}

func (repo *subjectRepository) DeleteSubjectsByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	query, args, err := sqlx.In(`DELETE FROM subjects WHERE id IN (?)`, ids)
	if err != nil {
		return errors.Wrap(err, "deleting subjects")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(query), args...); err != nil {
		return errors.Wrap(err, "deleting subjects")
	}
	return nil
}
