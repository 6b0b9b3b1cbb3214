package subject

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kalume/darasa/core"
)

// Subject represents a taught subject: who teaches it, who is enrolled in it
// and which discussions belong to it.
type Subject struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code"`
	TeacherIDs    []string  `json:"teacher_ids"`
	StudentIDs    []string  `json:"student_ids"`
	DiscussionIDs []string  `json:"discussion_ids"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// IsAssignedTeacher reports whether the user with the given id teaches this subject.
func (s *Subject) IsAssignedTeacher(userID string) bool {
	return contains(s.TeacherIDs, userID)
}

// IsEnrolledStudent reports whether the user with the given id is enrolled in this subject.
func (s *Subject) IsEnrolledStudent(userID string) bool {
	return contains(s.StudentIDs, userID)
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

// NewSubject contains information needed to create a new Subject.
type NewSubject struct {
	Name string `json:"name" validate:"required"`
	Code string `json:"code" validate:"required,subjectcode"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, svc Service) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)

	if err := validate.Struct(ns); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(ns.Code)
}

// UpdateSubject defines what information may be provided to modify an existing Subject.
type UpdateSubject struct {
	Name string `json:"name"`
	Code string `json:"code" validate:"omitempty,subjectcode"`
}

func (us *UpdateSubject) Validate(validate *validator.Validate, origSub Subject, svc Service) error {
	if name := core.CleanString(us.Name); name != "" {
		us.Name = name
	} else {
		us.Name = origSub.Name
	}

	if code := core.CleanString(us.Code, true /* lower */); code != "" {
		us.Code = code
	} else {
		us.Code = origSub.Code
	}

	if err := validate.Struct(us); err != nil {
		return err
	}
	return svc.CheckCodeUniqueness(us.Code, origSub)
}
