package subject

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kalume/darasa/core"
	"github.com/kalume/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("subject not found")
	ErrCodeExists    = errors.New("a subject with this code already exists")
	ErrNotATeacher   = errors.New("user is not a teacher")
	ErrNotAStudent   = errors.New("user is not a student")
	ErrAlreadyMember = errors.New("user is already a member of this subject")
)

type (
	Repository interface {
		CheckCodeUniqueness(ctx context.Context, code string, excludedSubjects ...Subject) error
		CreateSubject(ctx context.Context, sub Subject) (Subject, error)
		QueryAllSubjects(ctx context.Context) ([]Subject, error)
		GetSubjectByID(ctx context.Context, id string) (Subject, error)
		GetSubjectByCode(ctx context.Context, code string) (Subject, error)
		UpdateSubject(ctx context.Context, sub Subject) (Subject, error)
		DeleteSubjectsByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckCodeUniqueness(code string, exclSubjects ...Subject) error
		Create(ctx context.Context, ns NewSubject) (Subject, error)
		QueryAll(ctx context.Context) ([]Subject, error)
		GetByID(ctx context.Context, id string) (Subject, error)
		Update(ctx context.Context, id string, us UpdateSubject) (Subject, error)
		Delete(ctx context.Context, ids ...string) error

		AssignTeacher(ctx context.Context, subjectID, userID string) (Subject, error)
		UnassignTeacher(ctx context.Context, subjectID, userID string) (Subject, error)
		EnrollStudent(ctx context.Context, subjectID, userID string) (Subject, error)
		UnenrollStudent(ctx context.Context, subjectID, userID string) (Subject, error)

		IsAssignedTeacher(ctx context.Context, subjectID, userID string) (bool, error)
		IsEnrolledStudent(ctx context.Context, subjectID, userID string) (bool, error)
		AttachDiscussion(ctx context.Context, subjectID, discussionID string) error
		DetachDiscussion(ctx context.Context, subjectID, discussionID string) error
	}

	service struct {
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, usrSvc user.Service) Service {
	return &service{
		repo:   repo,
		usrSvc: usrSvc,
	}
}

func (svc *service) CheckCodeUniqueness(code string, exclSubjects ...Subject) error {
	if err := svc.repo.CheckCodeUniqueness(context.Background(), code, exclSubjects...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "code", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, ns NewSubject) (Subject, error) {
	now := time.Now().UTC()
	sub := Subject{
		Name:      ns.Name,
		Code:      ns.Code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSubject(ctx, sub)
}

func (svc *service) QueryAll(ctx context.Context) ([]Subject, error) {
	return svc.repo.QueryAllSubjects(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubjectByID(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSubject) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, id)
	if err != nil {
		return Subject{}, err
	}
	sub.Name = us.Name
	sub.Code = us.Code
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteSubjectsByID(ctx, ids...)
}

// AssignTeacher adds a teacher to the subject's assignment list.
// The target user must hold a teacher role.
func (svc *service) AssignTeacher(ctx context.Context, subjectID, userID string) (Subject, error) {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return Subject{}, err
	}
	if !usr.IsTeacher() {
		return Subject{}, ErrNotATeacher
	}

	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	if sub.IsAssignedTeacher(userID) {
		return Subject{}, ErrAlreadyMember
	}
	sub.TeacherIDs = append(sub.TeacherIDs, userID)
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) UnassignTeacher(ctx context.Context, subjectID, userID string) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	sub.TeacherIDs = remove(sub.TeacherIDs, userID)
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

// EnrollStudent adds a student to the subject's enrollment list.
// The target user must hold a student role.
func (svc *service) EnrollStudent(ctx context.Context, subjectID, userID string) (Subject, error) {
	usr, err := svc.usrSvc.GetByID(ctx, userID)
	if err != nil {
		return Subject{}, err
	}
	if !usr.IsStudent() {
		return Subject{}, ErrNotAStudent
	}

	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	if sub.IsEnrolledStudent(userID) {
		return Subject{}, ErrAlreadyMember
	}
	sub.StudentIDs = append(sub.StudentIDs, userID)
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) UnenrollStudent(ctx context.Context, subjectID, userID string) (Subject, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return Subject{}, err
	}
	sub.StudentIDs = remove(sub.StudentIDs, userID)
	sub.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateSubject(ctx, sub)
}

func (svc *service) IsAssignedTeacher(ctx context.Context, subjectID, userID string) (bool, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return sub.IsAssignedTeacher(userID), nil
}

func (svc *service) IsEnrolledStudent(ctx context.Context, subjectID, userID string) (bool, error) {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return false, err
	}
	return sub.IsEnrolledStudent(userID), nil
}

func (svc *service) AttachDiscussion(ctx context.Context, subjectID, discussionID string) error {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return err
	}
	if contains(sub.DiscussionIDs, discussionID) {
		return nil
	}
	sub.DiscussionIDs = append(sub.DiscussionIDs, discussionID)
	sub.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateSubject(ctx, sub)
	return err
}

func (svc *service) DetachDiscussion(ctx context.Context, subjectID, discussionID string) error {
	sub, err := svc.repo.GetSubjectByID(ctx, subjectID)
	if err != nil {
		return err
	}
	sub.DiscussionIDs = remove(sub.DiscussionIDs, discussionID)
	sub.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateSubject(ctx, sub)
	return err
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
