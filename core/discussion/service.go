package discussion

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/kalume/darasa/core"
	"github.com/kalume/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = errors.New("discussion not found")
	ErrCommentNotFound = errors.New("comment not found")
	ErrReplyNotFound   = errors.New("reply not found")
	ErrForbidden       = errors.New("permission denied")

	// ErrConflict is returned by the storage layer when a save loses an
	// optimistic-concurrency race; the engine retries a bounded number of
	// times before surfacing it.
	ErrConflict = errors.New("discussion was modified concurrently")
)

// maxSaveAttempts bounds the read-modify-write retries on version conflicts.
const maxSaveAttempts = 3

type (
	// Registry supplies the subject-relationship predicates the engine
	// authorizes against, and keeps the subject's discussion list in sync.
	// It abstracts over how teacher assignment is modeled on the subject side.
	Registry interface {
		IsAssignedTeacher(ctx context.Context, subjectID, userID string) (bool, error)
		IsEnrolledStudent(ctx context.Context, subjectID, userID string) (bool, error)
		AttachDiscussion(ctx context.Context, subjectID, discussionID string) error
		DetachDiscussion(ctx context.Context, subjectID, discussionID string) error
	}

	// ModerationRecorder records who hid or unhid a comment/reply and when.
	ModerationRecorder interface {
		RecordModeration(ctx context.Context, discussionID, targetKind, targetID, actorID string, hidden bool) error
	}

	Repository interface {
		CreateDiscussion(ctx context.Context, d Discussion) (Discussion, error)
		GetDiscussionByID(ctx context.Context, id string) (Discussion, error)
		// QueryDiscussionsBySubject returns the subject's discussions newest-first.
		QueryDiscussionsBySubject(ctx context.Context, subjectID string) ([]Discussion, error)
		// UpdateDiscussion saves the whole document and bumps its version.
		// It fails with ErrConflict when the stored version no longer matches.
		UpdateDiscussion(ctx context.Context, d Discussion) (Discussion, error)
		DeleteDiscussionByID(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, caller user.User, subjectID string, nd NewDiscussion) (Discussion, error)
		QueryBySubject(ctx context.Context, caller user.User, subjectID string) ([]Discussion, error)
		Get(ctx context.Context, caller user.User, id string) (Discussion, error)
		Update(ctx context.Context, caller user.User, id string, ud UpdateDiscussion) (Discussion, error)
		Delete(ctx context.Context, caller user.User, id string) error

		AddComment(ctx context.Context, caller user.User, discussionID string, nc NewComment) (Discussion, error)
		UpdateComment(ctx context.Context, caller user.User, discussionID, commentID string, ec EditContent) (Discussion, error)
		DeleteComment(ctx context.Context, caller user.User, discussionID, commentID string) (Discussion, error)
		ToggleHideComment(ctx context.Context, caller user.User, discussionID, commentID string) (Discussion, error)

		AddReply(ctx context.Context, caller user.User, discussionID, commentID string, nr NewReply) (Discussion, error)
		UpdateReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string, ec EditContent) (Discussion, error)
		DeleteReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string) (Discussion, error)
		ToggleHideReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string) (Discussion, error)
	}

	service struct {
		repo     Repository
		registry Registry
		modLog   ModerationRecorder
		logger   core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, registry Registry, modLog ModerationRecorder, logger core.Logger) Service {
	return &service{
		repo:     repo,
		registry: registry,
		modLog:   modLog,
		logger:   logger,
	}
}

// callerRelations computes the caller's relation bitmask against the subject,
// the discussion and (optionally) the author of the targeted comment/reply.
func (svc *service) callerRelations(ctx context.Context, caller user.User, subjectID string, d *Discussion, ownerID string) (Relation, error) {
	var rel Relation
	if caller.IsAdmin() {
		rel |= RelAdmin
	}

	isTeacher, err := svc.registry.IsAssignedTeacher(ctx, subjectID, caller.ID)
	if err != nil {
		return RelNone, errors.Wrap(err, "checking teacher assignment")
	}
	if isTeacher {
		rel |= RelAssignedTeacher
	}

	isStudent, err := svc.registry.IsEnrolledStudent(ctx, subjectID, caller.ID)
	if err != nil {
		return RelNone, errors.Wrap(err, "checking student enrollment")
	}
	if isStudent {
		rel |= RelEnrolledStudent
	}

	if d != nil && d.AuthorID == caller.ID {
		rel |= RelDiscussionAuthor
	}
	if ownerID != "" && ownerID == caller.ID {
		rel |= RelOwner
	}
	return rel, nil
}

func (svc *service) authorize(ctx context.Context, op Op, caller user.User, subjectID string, d *Discussion, ownerID string) error {
	rel, err := svc.callerRelations(ctx, caller, subjectID, d, ownerID)
	if err != nil {
		return err
	}
	if !Allowed(op, rel) {
		return ErrForbidden
	}
	return nil
}

// newNodeID returns an id unused by any comment or reply in the discussion.
func newNodeID(d *Discussion) string {
	for {
		id := uuid.New().String()
		if !d.hasNodeID(id) {
			return id
		}
	}
}

func cleanContent(content string) (string, error) {
	content = core.CleanString(content)
	if content == "" {
		return "", core.NewValidationError(errors.New("content is required"),
			core.FieldError{Field: "content", Error: "this field is required"})
	}
	return content, nil
}

// mutate runs a read-modify-write cycle against one discussion document.
// fn authorizes and mutates in place; the whole cycle is retried on a
// version conflict so authorization always runs against fresh state.
func (svc *service) mutate(ctx context.Context, id string, fn func(d *Discussion) error) (Discussion, error) {
	var lastErr error
	for attempt := 0; attempt < maxSaveAttempts; attempt++ {
		d, err := svc.repo.GetDiscussionByID(ctx, id)
		if err != nil {
			return Discussion{}, err
		}
		if err = fn(&d); err != nil {
			return Discussion{}, err
		}
		saved, err := svc.repo.UpdateDiscussion(ctx, d)
		if errors.Cause(err) == ErrConflict {
			lastErr = err
			continue
		}
		return saved, err
	}
	return Discussion{}, lastErr
}

func (svc *service) Create(ctx context.Context, caller user.User, subjectID string, nd NewDiscussion) (Discussion, error) {
	title := core.CleanString(nd.Title)
	content, err := cleanContent(nd.Content)
	if err != nil {
		return Discussion{}, err
	}
	if title == "" {
		return Discussion{}, core.NewValidationError(errors.New("title is required"),
			core.FieldError{Field: "title", Error: "this field is required"})
	}

	if err = svc.authorize(ctx, OpCreateDiscussion, caller, subjectID, nil, ""); err != nil {
		return Discussion{}, err
	}

	now := time.Now().UTC()
	d := Discussion{
		SubjectID: subjectID,
		AuthorID:  caller.ID,
		Title:     title,
		Content:   content,
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	d, err = svc.repo.CreateDiscussion(ctx, d)
	if err != nil {
		return Discussion{}, errors.Wrap(err, "creating discussion")
	}
	if err = svc.registry.AttachDiscussion(ctx, subjectID, d.ID); err != nil {
		return Discussion{}, errors.Wrap(err, "attaching discussion to subject")
	}
	return d, nil
}

func (svc *service) QueryBySubject(ctx context.Context, caller user.User, subjectID string) ([]Discussion, error) {
	if err := svc.authorize(ctx, OpViewDiscussion, caller, subjectID, nil, ""); err != nil {
		return nil, err
	}
	return svc.repo.QueryDiscussionsBySubject(ctx, subjectID)
}

func (svc *service) Get(ctx context.Context, caller user.User, id string) (Discussion, error) {
	d, err := svc.repo.GetDiscussionByID(ctx, id)
	if err != nil {
		return Discussion{}, err
	}
	if err = svc.authorize(ctx, OpViewDiscussion, caller, d.SubjectID, &d, ""); err != nil {
		return Discussion{}, err
	}
	return d, nil
}

func (svc *service) Update(ctx context.Context, caller user.User, id string, ud UpdateDiscussion) (Discussion, error) {
	return svc.mutate(ctx, id, func(d *Discussion) error {
		if err := svc.authorize(ctx, OpUpdateDiscussion, caller, d.SubjectID, d, ""); err != nil {
			return err
		}

		changed := false
		if title := core.CleanString(ud.Title); title != "" && title != d.Title {
			d.Title = title
			changed = true
		}
		if content := core.CleanString(ud.Content); content != "" && content != d.Content {
			d.Content = content
			changed = true
		}
		if changed {
			d.IsEdited = true
			d.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
}

func (svc *service) Delete(ctx context.Context, caller user.User, id string) error {
	d, err := svc.repo.GetDiscussionByID(ctx, id)
	if err != nil {
		return err
	}
	if err = svc.authorize(ctx, OpDeleteDiscussion, caller, d.SubjectID, &d, ""); err != nil {
		return err
	}

	// detach first, then delete; comments and replies are embedded so the
	// delete cascades by construction
	if err = svc.registry.DetachDiscussion(ctx, d.SubjectID, d.ID); err != nil {
		return errors.Wrap(err, "detaching discussion from subject")
	}
	return svc.repo.DeleteDiscussionByID(ctx, d.ID)
}

func (svc *service) AddComment(ctx context.Context, caller user.User, discussionID string, nc NewComment) (Discussion, error) {
	content, err := cleanContent(nc.Content)
	if err != nil {
		return Discussion{}, err
	}
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		if err := svc.authorize(ctx, OpAddComment, caller, d.SubjectID, d, ""); err != nil {
			return err
		}
		now := time.Now().UTC()
		d.Comments = append(d.Comments, Comment{
			ID:        newNodeID(d),
			AuthorID:  caller.ID,
			Content:   content,
			Replies:   []Reply{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		d.UpdatedAt = now
		return nil
	})
}

func (svc *service) UpdateComment(ctx context.Context, caller user.User, discussionID, commentID string, ec EditContent) (Discussion, error) {
	content, err := cleanContent(ec.Content)
	if err != nil {
		return Discussion{}, err
	}
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		if err := svc.authorize(ctx, OpUpdateComment, caller, d.SubjectID, d, c.AuthorID); err != nil {
			return err
		}
		if content != c.Content {
			c.Content = content
			c.IsEdited = true
			c.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
}

func (svc *service) DeleteComment(ctx context.Context, caller user.User, discussionID, commentID string) (Discussion, error) {
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		if err := svc.authorize(ctx, OpDeleteComment, caller, d.SubjectID, d, c.AuthorID); err != nil {
			return err
		}
		d.RemoveComment(commentID)
		d.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (svc *service) ToggleHideComment(ctx context.Context, caller user.User, discussionID, commentID string) (Discussion, error) {
	var hidden bool
	d, err := svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		if err := svc.authorize(ctx, OpHideComment, caller, d.SubjectID, d, c.AuthorID); err != nil {
			return err
		}
		toggleHidden(&c.IsHidden, &c.HiddenBy, caller.ID)
		hidden = c.IsHidden
		return nil
	})
	if err != nil {
		return Discussion{}, err
	}
	svc.recordModeration(ctx, d.ID, "comment", commentID, caller.ID, hidden)
	return d, nil
}

func (svc *service) AddReply(ctx context.Context, caller user.User, discussionID, commentID string, nr NewReply) (Discussion, error) {
	content, err := cleanContent(nr.Content)
	if err != nil {
		return Discussion{}, err
	}
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		if err := svc.authorize(ctx, OpAddReply, caller, d.SubjectID, d, ""); err != nil {
			return err
		}

		// attach at the comment level, or under an existing reply for deeper nesting
		siblings := &c.Replies
		if nr.ParentReplyID != "" {
			parent := c.FindReply(nr.ParentReplyID)
			if parent == nil {
				return ErrReplyNotFound
			}
			siblings = &parent.Replies
		}

		now := time.Now().UTC()
		*siblings = append(*siblings, Reply{
			ID:        newNodeID(d),
			AuthorID:  caller.ID,
			Content:   content,
			ReplyTo:   nr.ReplyTo,
			Replies:   []Reply{},
			CreatedAt: now,
			UpdatedAt: now,
		})
		d.UpdatedAt = now
		return nil
	})
}

func (svc *service) UpdateReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string, ec EditContent) (Discussion, error) {
	content, err := cleanContent(ec.Content)
	if err != nil {
		return Discussion{}, err
	}
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		r := c.FindReply(replyID)
		if r == nil {
			return ErrReplyNotFound
		}
		if err := svc.authorize(ctx, OpUpdateReply, caller, d.SubjectID, d, r.AuthorID); err != nil {
			return err
		}
		if content != r.Content {
			r.Content = content
			r.IsEdited = true
			r.UpdatedAt = time.Now().UTC()
		}
		return nil
	})
}

func (svc *service) DeleteReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string) (Discussion, error) {
	return svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		r := c.FindReply(replyID)
		if r == nil {
			return ErrReplyNotFound
		}
		if err := svc.authorize(ctx, OpDeleteReply, caller, d.SubjectID, d, r.AuthorID); err != nil {
			return err
		}
		c.RemoveReply(replyID)
		d.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (svc *service) ToggleHideReply(ctx context.Context, caller user.User, discussionID, commentID, replyID string) (Discussion, error) {
	var hidden bool
	d, err := svc.mutate(ctx, discussionID, func(d *Discussion) error {
		c := d.FindComment(commentID)
		if c == nil {
			return ErrCommentNotFound
		}
		r := c.FindReply(replyID)
		if r == nil {
			return ErrReplyNotFound
		}
		if err := svc.authorize(ctx, OpHideReply, caller, d.SubjectID, d, r.AuthorID); err != nil {
			return err
		}
		toggleHidden(&r.IsHidden, &r.HiddenBy, caller.ID)
		hidden = r.IsHidden
		return nil
	})
	if err != nil {
		return Discussion{}, err
	}
	svc.recordModeration(ctx, d.ID, "reply", replyID, caller.ID, hidden)
	return d, nil
}

// toggleHidden flips the hidden flag; hiddenBy tracks the moderator and is
// cleared on unhide so the invariant hiddenBy-set-iff-hidden holds.
func toggleHidden(isHidden *bool, hiddenBy *string, actorID string) {
	if *isHidden {
		*isHidden = false
		*hiddenBy = ""
	} else {
		*isHidden = true
		*hiddenBy = actorID
	}
}

// recordModeration appends to the moderation log; the mutation has already
// been saved so a log failure is reported but not returned.
func (svc *service) recordModeration(ctx context.Context, discussionID, kind, targetID, actorID string, hidden bool) {
	if svc.modLog == nil {
		return
	}
	if err := svc.modLog.RecordModeration(ctx, discussionID, kind, targetID, actorID, hidden); err != nil {
		svc.logger.Error(fmt.Sprintf("recording moderation for %s %s: %v", kind, targetID, err), err)
	}
}
