package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/kalume/darasa/core/discussion"
	"github.com/kalume/darasa/core/subject"
	"github.com/kalume/darasa/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateSubject(
	t *testing.T,
	repo subject.Repository,
	name, code string,
	teacherIDs, studentIDs []string,
) subject.Subject {
	t.Helper()

	now := time.Now().UTC()
	sub := subject.Subject{
		Name:       name,
		Code:       code,
		TeacherIDs: teacherIDs,
		StudentIDs: studentIDs,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	sub, err := repo.CreateSubject(context.Background(), sub)
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	return sub
}

func CreateDiscussion(
	t *testing.T,
	svc discussion.Service,
	author user.User,
	subjectID, title, content string,
) discussion.Discussion {
	t.Helper()

	d, err := svc.Create(context.Background(), author, subjectID, discussion.NewDiscussion{
		Title:   title,
		Content: content,
	})
	if err != nil {
		t.Fatalf("CreateDiscussion() failed: %v", err)
	}
	return d
}
