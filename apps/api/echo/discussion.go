package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kalume/darasa/core"
	"github.com/kalume/darasa/core/discussion"
	"github.com/kalume/darasa/core/moderation"
	"github.com/kalume/darasa/core/user"
)

type discussionApi struct {
	svc    discussion.Service
	modSvc moderation.Service
	usrSvc user.Service
}

func registerDiscussionAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := discussionApi{
		svc:    deps.DiscussionSvc,
		modSvc: deps.ModerationSvc,
		usrSvc: deps.UserSvc,
	}

	// discussions scoped to a subject
	sg := g.Group("/subjects/:id/discussions", jwt)
	sg.POST("", api.create)
	sg.GET("", api.query)

	dg := g.Group("/discussions/:id", jwt)
	dg.GET("", api.retrieve)
	dg.PUT("", api.update)
	dg.DELETE("", api.destroy)
	dg.GET("/moderation", api.queryModerationLog, adminMiddleware())

	dg.POST("/comments", api.addComment)
	cg := dg.Group("/comments/:cid")
	cg.PUT("", api.updateComment)
	cg.DELETE("", api.destroyComment)
	cg.PATCH("/hide", api.toggleHideComment)

	cg.POST("/replies", api.addReply)
	rg := cg.Group("/replies/:rid")
	rg.PUT("", api.updateReply)
	rg.DELETE("", api.destroyReply)
	rg.PATCH("/hide", api.toggleHideReply)
}

// Handlers

func (api *discussionApi) create(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.NewDiscussion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewDiscussion")
	}

	d, err := api.svc.Create(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.render(ctx, d))
}

func (api *discussionApi) query(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	ds, err := api.svc.QueryBySubject(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return err
	}

	resp := make([]discussionResponse, len(ds))
	for i, d := range ds {
		resp[i] = api.render(ctx, d)
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *discussionApi) retrieve(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, err := api.svc.Get(ctx.Request().Context(), caller, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) update(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.UpdateDiscussion
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDiscussion")
	}

	d, err := api.svc.Update(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) destroy(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	if err := api.svc.Delete(ctx.Request().Context(), caller, ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *discussionApi) addComment(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.NewComment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComment")
	}

	d, err := api.svc.AddComment(ctx.Request().Context(), caller, ctx.Param("id"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.render(ctx, d))
}

func (api *discussionApi) updateComment(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.EditContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditContent")
	}

	d, err := api.svc.UpdateComment(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) destroyComment(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, err := api.svc.DeleteComment(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) toggleHideComment(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, err := api.svc.ToggleHideComment(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) addReply(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.NewReply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewReply")
	}

	d, err := api.svc.AddReply(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, api.render(ctx, d))
}

func (api *discussionApi) updateReply(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data discussion.EditContent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditContent")
	}

	d, err := api.svc.UpdateReply(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"), ctx.Param("rid"), data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) destroyReply(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, err := api.svc.DeleteReply(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"), ctx.Param("rid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) toggleHideReply(ctx echo.Context) error {
	caller, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	d, err := api.svc.ToggleHideReply(ctx.Request().Context(), caller, ctx.Param("id"), ctx.Param("cid"), ctx.Param("rid"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.render(ctx, d))
}

func (api *discussionApi) queryModerationLog(ctx echo.Context) error {
	entries, err := api.modSvc.QueryByDiscussion(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying moderation log")
	}
	if entries == nil {
		entries = []moderation.Entry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

// Responses
//
// Content is authored as markdown; responses carry both the raw source and a
// sanitized HTML rendering. Author display names are resolved best-effort.

type (
	discussionResponse struct {
		ID          string            `json:"id"`
		SubjectID   string            `json:"subject_id"`
		AuthorID    string            `json:"author_id"`
		AuthorName  string            `json:"author_name,omitempty"`
		Title       string            `json:"title"`
		Content     string            `json:"content"`
		ContentHTML string            `json:"content_html"`
		IsEdited    bool              `json:"is_edited"`
		Comments    []commentResponse `json:"comments"`
		CreatedAt   time.Time         `json:"created_at"`
		UpdatedAt   time.Time         `json:"updated_at"`
	}

	commentResponse struct {
		ID          string          `json:"id"`
		AuthorID    string          `json:"author_id"`
		AuthorName  string          `json:"author_name,omitempty"`
		Content     string          `json:"content"`
		ContentHTML string          `json:"content_html"`
		IsEdited    bool            `json:"is_edited"`
		IsHidden    bool            `json:"is_hidden"`
		HiddenBy    string          `json:"hidden_by,omitempty"`
		Replies     []replyResponse `json:"replies"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	replyResponse struct {
		ID          string          `json:"id"`
		AuthorID    string          `json:"author_id"`
		AuthorName  string          `json:"author_name,omitempty"`
		Content     string          `json:"content"`
		ContentHTML string          `json:"content_html"`
		ReplyTo     string          `json:"reply_to,omitempty"`
		IsEdited    bool            `json:"is_edited"`
		IsHidden    bool            `json:"is_hidden"`
		HiddenBy    string          `json:"hidden_by,omitempty"`
		Replies     []replyResponse `json:"replies"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}
)

func (api *discussionApi) render(ctx echo.Context, d discussion.Discussion) discussionResponse {
	names := make(map[string]string)
	resolve := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		var name string
		if usr, err := api.usrSvc.GetByID(ctx.Request().Context(), id); err == nil {
			name = usr.Name
		}
		names[id] = name
		return name
	}

	resp := discussionResponse{
		ID:          d.ID,
		SubjectID:   d.SubjectID,
		AuthorID:    d.AuthorID,
		AuthorName:  resolve(d.AuthorID),
		Title:       d.Title,
		Content:     d.Content,
		ContentHTML: core.MarkdownToSafeHTML(d.Content),
		IsEdited:    d.IsEdited,
		Comments:    make([]commentResponse, len(d.Comments)),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	for i, c := range d.Comments {
		resp.Comments[i] = commentResponse{
			ID:          c.ID,
			AuthorID:    c.AuthorID,
			AuthorName:  resolve(c.AuthorID),
			Content:     c.Content,
			ContentHTML: core.MarkdownToSafeHTML(c.Content),
			IsEdited:    c.IsEdited,
			IsHidden:    c.IsHidden,
			HiddenBy:    c.HiddenBy,
			Replies:     renderReplies(c.Replies, resolve),
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
	}
	return resp
}

func renderReplies(rs []discussion.Reply, resolve func(string) string) []replyResponse {
	out := make([]replyResponse, len(rs))
	for i, r := range rs {
		out[i] = replyResponse{
			ID:          r.ID,
			AuthorID:    r.AuthorID,
			AuthorName:  resolve(r.AuthorID),
			Content:     r.Content,
			ContentHTML: core.MarkdownToSafeHTML(r.Content),
			ReplyTo:     r.ReplyTo,
			IsEdited:    r.IsEdited,
			IsHidden:    r.IsHidden,
			HiddenBy:    r.HiddenBy,
			Replies:     renderReplies(r.Replies, resolve),
			CreatedAt:   r.CreatedAt,
			UpdatedAt:   r.UpdatedAt,
		}
	}
	return out
}
