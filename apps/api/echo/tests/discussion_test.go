package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/kalume/darasa/core/discussion"
	"github.com/kalume/darasa/core/moderation"
	"github.com/kalume/darasa/core/subject"
	"github.com/kalume/darasa/core/user"
	testutil "github.com/kalume/darasa/tests"
)

// response shapes as rendered by the API
type (
	replyResp struct {
		ID          string      `json:"id"`
		AuthorID    string      `json:"author_id"`
		AuthorName  string      `json:"author_name"`
		Content     string      `json:"content"`
		ContentHTML string      `json:"content_html"`
		ReplyTo     string      `json:"reply_to"`
		IsEdited    bool        `json:"is_edited"`
		IsHidden    bool        `json:"is_hidden"`
		HiddenBy    string      `json:"hidden_by"`
		Replies     []replyResp `json:"replies"`
	}

	commentResp struct {
		ID          string      `json:"id"`
		AuthorID    string      `json:"author_id"`
		AuthorName  string      `json:"author_name"`
		Content     string      `json:"content"`
		ContentHTML string      `json:"content_html"`
		IsEdited    bool        `json:"is_edited"`
		IsHidden    bool        `json:"is_hidden"`
		HiddenBy    string      `json:"hidden_by"`
		Replies     []replyResp `json:"replies"`
	}

	discResp struct {
		ID          string        `json:"id"`
		SubjectID   string        `json:"subject_id"`
		AuthorID    string        `json:"author_id"`
		AuthorName  string        `json:"author_name"`
		Title       string        `json:"title"`
		Content     string        `json:"content"`
		ContentHTML string        `json:"content_html"`
		IsEdited    bool          `json:"is_edited"`
		Comments    []commentResp `json:"comments"`
	}
)

type discussionFixture struct {
	admin, teacher, student, student2, outsider user.User
	sub                                         subject.Subject
}

func newDiscussionFixture(t *testing.T) discussionFixture {
	t.Helper()
	setup(t)

	fix := discussionFixture{
		admin:    testutil.CreateUser(t, usrRepo, "Admin", "admin1", "admin@test.cd", "", []string{user.RoleAdmin}, true),
		teacher:  testutil.CreateUser(t, usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true),
		student:  testutil.CreateUser(t, usrRepo, "Hero", "hero", "user3@test.cd", "", []string{user.RoleStudent}, true),
		student2: testutil.CreateUser(t, usrRepo, "Peer", "peer01", "peer@test.cd", "", []string{user.RoleStudent}, true),
		outsider: testutil.CreateUser(t, usrRepo, "Drifter", "drifter", "drifter@test.cd", "", []string{user.RoleStudent}, true),
	}
	fix.sub = testutil.CreateSubject(t, subRepo, "Mathematics", "math-101",
		[]string{fix.teacher.ID}, []string{fix.student.ID, fix.student2.ID})
	return fix
}

func unmarshalDiscussion(t *testing.T, body []byte) discResp {
	t.Helper()
	var d discResp
	if err := json.Unmarshal(body, &d); err != nil {
		t.Fatalf("json.Unmarshal() failed! err %v", err)
	}
	return d
}

func Test_discussionApi_create(t *testing.T) {
	fix := newDiscussionFixture(t)
	path := "/v1/subjects/" + fix.sub.ID + "/discussions"

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "required fields", path: path, token: getToken(t, fix.teacher), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"content": "this field is required"}),
		},
		{
			name: "title required", path: path, token: getToken(t, fix.teacher), wantCode: http.StatusBadRequest,
			body:     marchallObj(t, discussion.NewDiscussion{Content: "lol"}),
			wantData: marchallObj(t, map[string]string{"title": "this field is required"}),
		},
		{
			name: "students cannot open discussions", path: path, token: getToken(t, fix.student), wantCode: http.StatusForbidden,
			body:     marchallObj(t, discussion.NewDiscussion{Title: "Homework", Content: "lol"}),
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "non-members cannot open discussions", path: path, token: getToken(t, fix.outsider), wantCode: http.StatusForbidden,
			body:     marchallObj(t, discussion.NewDiscussion{Title: "Homework", Content: "lol"}),
			wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown subject", path: "/v1/subjects/lol/discussions", token: getToken(t, fix.teacher), wantCode: http.StatusNotFound,
			body:     marchallObj(t, discussion.NewDiscussion{Title: "Homework", Content: "lol"}),
			wantData: marchallObj(t, httpErr{Error: "subject not found"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("assigned teacher opens a discussion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, fix.teacher),
			marchallObj(t, discussion.NewDiscussion{Title: "Homework", Content: "I **love** maths"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		d := unmarshalDiscussion(t, rec.Body.Bytes())
		if d.ID == "" {
			t.Error("failed! empty discussion ID")
		}
		if d.AuthorID != fix.teacher.ID {
			t.Errorf("failed! AuthorID = %q; want %q", d.AuthorID, fix.teacher.ID)
		}
		if d.AuthorName != fix.teacher.Name {
			t.Errorf("failed! AuthorName = %q; want %q", d.AuthorName, fix.teacher.Name)
		}
		if !strings.Contains(d.ContentHTML, "<strong>love</strong>") {
			t.Errorf("failed! ContentHTML = %q; want rendered markdown", d.ContentHTML)
		}

		refreshed, err := subRepo.GetSubjectByID(context.Background(), fix.sub.ID)
		if err != nil {
			t.Fatalf("GetSubjectByID() failed, %v", err)
		}
		if len(refreshed.DiscussionIDs) != 1 || refreshed.DiscussionIDs[0] != d.ID {
			t.Errorf("failed! DiscussionIDs = %v; want [%s]", refreshed.DiscussionIDs, d.ID)
		}
	})

	t.Run("admins can open discussions too", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, getToken(t, fix.admin),
			marchallObj(t, discussion.NewDiscussion{Title: "Exam dates", Content: "lol"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
	})
}

func Test_discussionApi_queryAndRetrieve(t *testing.T) {
	fix := newDiscussionFixture(t)

	d1 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Homework", "lol")
	d2 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Exam dates", "lol")
	path := "/v1/subjects/" + fix.sub.ID + "/discussions"

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "non-members cannot view", method: http.MethodGet, path: path,
			token: getToken(t, fix.outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "non-members cannot retrieve", method: http.MethodGet, path: "/v1/discussions/" + d1.ID,
			token: getToken(t, fix.outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "retrieve: unknown discussion", method: http.MethodGet, path: "/v1/discussions/lol",
			token: getToken(t, fix.student), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "discussion not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("enrolled student lists discussions newest-first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, getToken(t, fix.student))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp []discResp
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(resp) != 2 {
			t.Fatalf("failed! len = %d; want 2", len(resp))
		}
		if resp[0].ID != d2.ID || resp[1].ID != d1.ID {
			t.Errorf("failed! order = [%s %s]; want [%s %s]", resp[0].ID, resp[1].ID, d2.ID, d1.ID)
		}
	})

	t.Run("enrolled student retrieves a discussion", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/discussions/"+d1.ID, getToken(t, fix.student2))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		if d.ID != d1.ID || d.Title != "Homework" {
			t.Errorf("failed! got %q %q", d.ID, d.Title)
		}
	})
}

func Test_discussionApi_update(t *testing.T) {
	fix := newDiscussionFixture(t)

	d1 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Homework", "lol")
	path := "/v1/discussions/" + d1.ID

	t.Run("students cannot edit", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, fix.student),
			marchallObj(t, discussion.UpdateDiscussion{Title: "Hijacked"}))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("author edits", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, path, getToken(t, fix.teacher),
			marchallObj(t, discussion.UpdateDiscussion{Title: "Homework (updated)"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		if d.Title != "Homework (updated)" {
			t.Errorf("failed! Title = %q", d.Title)
		}
		if !d.IsEdited {
			t.Error("failed! IsEdited should be set after an edit")
		}
		if d.Content != "lol" {
			t.Errorf("failed! Content = %q; want untouched", d.Content)
		}
	})

	t.Run("no-op edit leaves the edited flag alone", func(t *testing.T) {
		d2 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Exam dates", "lol")
		req, rec := newAuthRequest(http.MethodPut, "/v1/discussions/"+d2.ID, getToken(t, fix.teacher),
			marchallObj(t, discussion.UpdateDiscussion{Title: "Exam dates"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if d := unmarshalDiscussion(t, rec.Body.Bytes()); d.IsEdited {
			t.Error("failed! IsEdited should not be set by a no-op edit")
		}
	})
}

func Test_discussionApi_comments(t *testing.T) {
	fix := newDiscussionFixture(t)

	d1 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Homework", "lol")
	commentsPath := "/v1/discussions/" + d1.ID + "/comments"

	addComment := func(t *testing.T, author user.User, content string) commentResp {
		t.Helper()
		req, rec := newAuthRequest(http.MethodPost, commentsPath, getToken(t, author),
			marchallObj(t, discussion.NewComment{Content: content}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		return d.Comments[len(d.Comments)-1]
	}

	tests := []httpTest{
		{
			name: "add: non-members cannot comment", method: http.MethodPost, path: commentsPath,
			token: getToken(t, fix.outsider), body: marchallObj(t, discussion.NewComment{Content: "lol"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "add: content required", method: http.MethodPost, path: commentsPath,
			token: getToken(t, fix.student), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"content": "this field is required"}),
		},
		{
			name: "add: unknown discussion", method: http.MethodPost, path: "/v1/discussions/lol/comments",
			token: getToken(t, fix.student), body: marchallObj(t, discussion.NewComment{Content: "lol"}),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "discussion not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	c1 := addComment(t, fix.student, "My answer is **42**")
	if c1.AuthorID != fix.student.ID || c1.AuthorName != fix.student.Name {
		t.Errorf("failed! comment author = %q (%q)", c1.AuthorID, c1.AuthorName)
	}
	if !strings.Contains(c1.ContentHTML, "<strong>42</strong>") {
		t.Errorf("failed! ContentHTML = %q; want rendered markdown", c1.ContentHTML)
	}

	commentPath := "/v1/discussions/" + d1.ID + "/comments/" + c1.ID
	edit := marchallObj(t, discussion.EditContent{Content: "My answer is 43"})

	editTests := []httpTest{
		{
			name: "update: unknown comment", method: http.MethodPut, path: commentsPath + "/lol",
			token: getToken(t, fix.student), body: edit,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "comment not found"}),
		},
		{
			name: "update: peers cannot edit", method: http.MethodPut, path: commentPath,
			token: getToken(t, fix.student2), body: edit,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "update: teachers cannot edit others' words", method: http.MethodPut, path: commentPath,
			token: getToken(t, fix.teacher), body: edit,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "update: not even admins", method: http.MethodPut, path: commentPath,
			token: getToken(t, fix.admin), body: edit,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "hide: moderation is admin-only", method: http.MethodPatch, path: commentPath + "/hide",
			token: getToken(t, fix.teacher), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "delete: peers cannot delete", method: http.MethodDelete, path: commentPath,
			token: getToken(t, fix.student2), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
	}
	for _, tt := range editTests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("owner edits own comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, commentPath, getToken(t, fix.student), edit)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		c := d.Comments[0]
		if c.Content != "My answer is 43" {
			t.Errorf("failed! Content = %q", c.Content)
		}
		if !c.IsEdited {
			t.Error("failed! IsEdited should be set after an edit")
		}
	})

	t.Run("admin hides and unhides", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, commentPath+"/hide", getToken(t, fix.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		if c := d.Comments[0]; !c.IsHidden || c.HiddenBy != fix.admin.ID {
			t.Errorf("failed! IsHidden = %v, HiddenBy = %q; want hidden by admin", c.IsHidden, c.HiddenBy)
		}

		req, rec = newAuthRequest(http.MethodPatch, commentPath+"/hide", getToken(t, fix.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d = unmarshalDiscussion(t, rec.Body.Bytes())
		if c := d.Comments[0]; c.IsHidden || c.HiddenBy != "" {
			t.Errorf("failed! IsHidden = %v, HiddenBy = %q; want visible again", c.IsHidden, c.HiddenBy)
		}
	})

	t.Run("moderation log", func(t *testing.T) {
		modPath := "/v1/discussions/" + d1.ID + "/moderation"

		req, rec := newAuthRequest(http.MethodGet, modPath, getToken(t, fix.teacher))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)

		req, rec = newAuthRequest(http.MethodGet, modPath, getToken(t, fix.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entries []moderation.Entry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("failed! len(entries) = %d; want 2", len(entries))
		}
		for _, e := range entries {
			if e.TargetKind != moderation.TargetComment || e.TargetID != c1.ID || e.ActorID != fix.admin.ID {
				t.Errorf("failed! unexpected entry %+v", e)
			}
		}
		if !entries[0].Hidden || entries[1].Hidden {
			t.Errorf("failed! Hidden flags = [%v %v]; want [true false]", entries[0].Hidden, entries[1].Hidden)
		}
	})

	t.Run("discussion author deletes a comment", func(t *testing.T) {
		c2 := addComment(t, fix.student2, "Mine is 41")

		req, rec := newAuthRequest(http.MethodDelete, "/v1/discussions/"+d1.ID+"/comments/"+c2.ID, getToken(t, fix.teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		for _, c := range d.Comments {
			if c.ID == c2.ID {
				t.Error("failed! comment should be gone")
			}
		}
	})
}

func Test_discussionApi_replies(t *testing.T) {
	fix := newDiscussionFixture(t)

	d1 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Homework", "lol")

	// seed a comment to reply to
	var c1 commentResp
	{
		req, rec := newAuthRequest(http.MethodPost, "/v1/discussions/"+d1.ID+"/comments", getToken(t, fix.student),
			marchallObj(t, discussion.NewComment{Content: "My answer is 42"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		c1 = unmarshalDiscussion(t, rec.Body.Bytes()).Comments[0]
	}
	repliesPath := "/v1/discussions/" + d1.ID + "/comments/" + c1.ID + "/replies"

	t.Run("reply to a comment", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, repliesPath, getToken(t, fix.student2),
			marchallObj(t, discussion.NewReply{Content: "Are you sure?", ReplyTo: fix.student.ID}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		replies := d.Comments[0].Replies
		if len(replies) != 1 {
			t.Fatalf("failed! len(replies) = %d; want 1", len(replies))
		}
		if r := replies[0]; r.AuthorID != fix.student2.ID || r.ReplyTo != fix.student.ID {
			t.Errorf("failed! unexpected reply %+v", r)
		}
	})

	t.Run("nested reply", func(t *testing.T) {
		// fetch the current reply id
		req, rec := newAuthRequest(http.MethodGet, "/v1/discussions/"+d1.ID, getToken(t, fix.student))
		app.ServeHTTP(rec, req)
		parent := unmarshalDiscussion(t, rec.Body.Bytes()).Comments[0].Replies[0]

		req, rec = newAuthRequest(http.MethodPost, repliesPath, getToken(t, fix.student),
			marchallObj(t, discussion.NewReply{Content: "Positive.", ParentReplyID: parent.ID, ReplyTo: fix.student2.ID}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		nested := d.Comments[0].Replies[0].Replies
		if len(nested) != 1 || nested[0].Content != "Positive." {
			t.Fatalf("failed! nested = %+v; want one nested reply", nested)
		}
	})

	t.Run("unknown parent reply", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, repliesPath, getToken(t, fix.student),
			marchallObj(t, discussion.NewReply{Content: "lost", ParentReplyID: "lol"}))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "reply not found"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("reply moderation and removal", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/discussions/"+d1.ID, getToken(t, fix.admin))
		app.ServeHTTP(rec, req)
		target := unmarshalDiscussion(t, rec.Body.Bytes()).Comments[0].Replies[0]
		replyPath := "/v1/discussions/" + d1.ID + "/comments/" + c1.ID + "/replies/" + target.ID

		// peers cannot edit someone else's reply
		req, rec = newAuthRequest(http.MethodPut, replyPath, getToken(t, fix.student),
			marchallObj(t, discussion.EditContent{Content: "hijacked"}))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)

		// admin hides the reply
		req, rec = newAuthRequest(http.MethodPatch, replyPath+"/hide", getToken(t, fix.admin))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d := unmarshalDiscussion(t, rec.Body.Bytes())
		if r := d.Comments[0].Replies[0]; !r.IsHidden || r.HiddenBy != fix.admin.ID {
			t.Errorf("failed! IsHidden = %v, HiddenBy = %q; want hidden by admin", r.IsHidden, r.HiddenBy)
		}

		// owner deletes the reply; its subtree goes with it
		req, rec = newAuthRequest(http.MethodDelete, replyPath, getToken(t, fix.student2))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		d = unmarshalDiscussion(t, rec.Body.Bytes())
		if replies := d.Comments[0].Replies; len(replies) != 0 {
			t.Errorf("failed! replies = %+v; want none", replies)
		}
	})
}

func Test_discussionApi_destroy(t *testing.T) {
	fix := newDiscussionFixture(t)

	d1 := testutil.CreateDiscussion(t, discSvc, fix.teacher, fix.sub.ID, "Homework", "lol")
	path := "/v1/discussions/" + d1.ID

	t.Run("students cannot delete", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, fix.student))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("author deletes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, path, getToken(t, fix.teacher))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}

		refreshed, err := subRepo.GetSubjectByID(context.Background(), fix.sub.ID)
		if err != nil {
			t.Fatalf("GetSubjectByID() failed, %v", err)
		}
		if len(refreshed.DiscussionIDs) != 0 {
			t.Errorf("failed! DiscussionIDs = %v; want none", refreshed.DiscussionIDs)
		}

		req, rec = newAuthRequest(http.MethodGet, path, getToken(t, fix.student))
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "discussion not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
