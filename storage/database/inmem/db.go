// Package inmemdb provides mutex-guarded in-memory repositories backing the
// test suites and local hacking without a database.
package inmemdb

import (
	"sync"

	"github.com/kalume/darasa/core/discussion"
	"github.com/kalume/darasa/core/moderation"
	"github.com/kalume/darasa/core/subject"
	"github.com/kalume/darasa/core/user"
)

type DB struct {
	users       *userTable
	subjects    *subjectTable
	discussions *discussionTable
	modLog      *moderationTable
}

func NewDB() *DB {
	return &DB{
		users:       &userTable{table: make(map[string]*user.User)},
		subjects:    &subjectTable{table: make(map[string]*subject.Subject)},
		discussions: &discussionTable{table: make(map[string]*discussion.Discussion)},
		modLog:      &moderationTable{},
	}
}

type userTable struct {
	mutex sync.RWMutex
	table map[string]*user.User
}

type subjectTable struct {
	mutex sync.RWMutex
	table map[string]*subject.Subject
}

type discussionTable struct {
	mutex sync.RWMutex
	table map[string]*discussion.Discussion
}

type moderationTable struct {
	mutex   sync.RWMutex
	entries []moderation.Entry
}
