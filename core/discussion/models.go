package discussion

import (
	"time"
)

// Discussion is a topic thread scoped to exactly one subject. It owns its
// comments outright: comments and replies are embedded in the discussion
// document and are never addressable outside it.
type Discussion struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	AuthorID  string    `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	IsEdited  bool      `json:"is_edited"`
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC

	// Version is bumped on every save; the storage layer rejects a save whose
	// version no longer matches the stored document.
	Version int `json:"-"`
}

// Comment is a top-level reply within a Discussion. It owns its reply subtree.
type Comment struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	IsEdited  bool      `json:"is_edited"`
	IsHidden  bool      `json:"is_hidden"`
	HiddenBy  string    `json:"hidden_by,omitempty"` // set iff IsHidden
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Reply is a node in a recursively nestable tree attached under a Comment.
// Nesting depth is unbounded; a reply is created in place and never
// re-parented, so the tree stays acyclic by construction.
type Reply struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	ReplyTo   string    `json:"reply_to,omitempty"` // user this reply addresses (weak reference)
	IsEdited  bool      `json:"is_edited"`
	IsHidden  bool      `json:"is_hidden"`
	HiddenBy  string    `json:"hidden_by,omitempty"` // set iff IsHidden
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewDiscussion contains information needed to create a new Discussion.
type NewDiscussion struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// UpdateDiscussion defines what information may be provided to modify an
// existing Discussion. Empty fields are left untouched.
type UpdateDiscussion struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewComment contains information needed to add a Comment to a Discussion.
type NewComment struct {
	Content string `json:"content" validate:"required"`
}

// NewReply contains information needed to attach a Reply under a Comment, or
// under an existing Reply when ParentReplyID is set.
type NewReply struct {
	Content       string `json:"content" validate:"required"`
	ParentReplyID string `json:"parent_reply_id"`
	ReplyTo       string `json:"reply_to"`
}

// EditContent carries a replacement text for a Comment or Reply.
type EditContent struct {
	Content string `json:"content" validate:"required"`
}
