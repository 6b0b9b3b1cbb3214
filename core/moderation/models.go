package moderation

import "time"

// Target kinds
const (
	TargetComment = "comment"
	TargetReply   = "reply"
)

// Entry is one append-only moderation log record: who hid or unhid which
// comment/reply, in which discussion, and when. Entries are never updated
// or deleted; unhiding appends a new entry with Hidden=false.
type Entry struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussion_id"`
	TargetKind   string    `json:"target_kind"` // TargetComment or TargetReply
	TargetID     string    `json:"target_id"`
	ActorID      string    `json:"actor_id"`
	Hidden       bool      `json:"hidden"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}
