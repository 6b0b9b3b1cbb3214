package discussion

// Op identifies a discussion engine operation for authorization purposes.
type Op string

const (
	OpCreateDiscussion Op = "discussion:create"
	OpViewDiscussion   Op = "discussion:view"
	OpUpdateDiscussion Op = "discussion:update"
	OpDeleteDiscussion Op = "discussion:delete"
	OpAddComment       Op = "comment:add"
	OpUpdateComment    Op = "comment:update"
	OpDeleteComment    Op = "comment:delete"
	OpHideComment      Op = "comment:hide"
	OpAddReply         Op = "reply:add"
	OpUpdateReply      Op = "reply:update"
	OpDeleteReply      Op = "reply:delete"
	OpHideReply        Op = "reply:hide"
)

// AllOps lists every engine operation; tests enumerate the policy through it.
var AllOps = []Op{
	OpCreateDiscussion, OpViewDiscussion, OpUpdateDiscussion, OpDeleteDiscussion,
	OpAddComment, OpUpdateComment, OpDeleteComment, OpHideComment,
	OpAddReply, OpUpdateReply, OpDeleteReply, OpHideReply,
}

// Relation is a bitmask of the caller's relationships to the target
// subject/discussion/entity relevant to authorization.
type Relation uint8

const (
	RelAdmin Relation = 1 << iota
	RelAssignedTeacher
	RelEnrolledStudent
	RelDiscussionAuthor
	RelOwner // author of the target comment/reply

	RelNone Relation = 0
)

// policy maps each operation to the disjunction of relations that allow it.
//
// Editing a comment/reply is reserved to its own author; deleting extends to
// the discussion author, the assigned teacher and admins; hiding is a pure
// moderation action reserved to admins.
var policy = map[Op]Relation{
	OpCreateDiscussion: RelAdmin | RelAssignedTeacher,
	OpViewDiscussion:   RelAdmin | RelAssignedTeacher | RelEnrolledStudent,
	OpUpdateDiscussion: RelAdmin | RelAssignedTeacher | RelDiscussionAuthor,
	OpDeleteDiscussion: RelAdmin | RelAssignedTeacher | RelDiscussionAuthor,
	OpAddComment:       RelAdmin | RelAssignedTeacher | RelEnrolledStudent,
	OpUpdateComment:    RelOwner,
	OpDeleteComment:    RelAdmin | RelAssignedTeacher | RelDiscussionAuthor | RelOwner,
	OpHideComment:      RelAdmin,
	OpAddReply:         RelAdmin | RelAssignedTeacher | RelEnrolledStudent,
	OpUpdateReply:      RelOwner,
	OpDeleteReply:      RelAdmin | RelAssignedTeacher | RelDiscussionAuthor | RelOwner,
	OpHideReply:        RelAdmin,
}

// RequiredRelations returns the relation set that permits the given operation.
func RequiredRelations(op Op) Relation {
	return policy[op]
}

// Allowed reports whether a caller holding the given relations may perform op.
func Allowed(op Op, rel Relation) bool {
	req, ok := policy[op]
	return ok && req&rel != 0
}
