package discussion

// Tree traversal and mutation over the embedded comment/reply structure.
// All traversals are depth-first and first-match: sibling order is preserved
// on non-matching paths and a match short-circuits the rest of the walk.
// Ids are unique within a discussion, so first-match is the only match.

// FindComment returns a pointer to the comment with the given id, or nil.
// The pointer is only valid until the comment list is next modified.
func (d *Discussion) FindComment(id string) *Comment {
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			return &d.Comments[i]
		}
	}
	return nil
}

// RemoveComment splices the comment with the given id - and its entire reply
// subtree - out of the discussion. It reports whether a comment was removed.
func (d *Discussion) RemoveComment(id string) bool {
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			d.Comments = append(d.Comments[:i], d.Comments[i+1:]...)
			return true
		}
	}
	return false
}

// FindReply locates the reply with the given id anywhere in the comment's
// nested reply tree. A miss returns nil, not an error: callers use this for
// existence checks before authorizing.
func (c *Comment) FindReply(id string) *Reply {
	return findReply(c.Replies, id)
}

func findReply(siblings []Reply, id string) *Reply {
	for i := range siblings {
		if siblings[i].ID == id {
			return &siblings[i]
		}
	}
	for i := range siblings {
		if r := findReply(siblings[i].Replies, id); r != nil {
			return r
		}
	}
	return nil
}

// RemoveReply splices the reply with the given id - and its entire descendant
// subtree - out of the comment's reply tree, at any depth. It reports whether
// a reply was removed.
func (c *Comment) RemoveReply(id string) bool {
	return removeReply(&c.Replies, id)
}

func removeReply(siblings *[]Reply, id string) bool {
	s := *siblings
	for i := range s {
		if s[i].ID == id {
			*siblings = append(s[:i], s[i+1:]...)
			return true
		}
	}
	for i := range s {
		if removeReply(&s[i].Replies, id) {
			return true
		}
	}
	return false
}

// NodeCount returns the total number of comments and replies in the discussion.
func (d *Discussion) NodeCount() int {
	n := len(d.Comments)
	for i := range d.Comments {
		n += countReplies(d.Comments[i].Replies)
	}
	return n
}

func countReplies(siblings []Reply) int {
	n := len(siblings)
	for i := range siblings {
		n += countReplies(siblings[i].Replies)
	}
	return n
}

// hasNodeID reports whether the given id is already used by a comment or
// reply in the discussion. Creation paths use it to guarantee id uniqueness
// within a document.
func (d *Discussion) hasNodeID(id string) bool {
	for i := range d.Comments {
		if d.Comments[i].ID == id {
			return true
		}
		if findReply(d.Comments[i].Replies, id) != nil {
			return true
		}
	}
	return false
}
