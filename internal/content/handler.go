package content

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Handler exposes post and comment endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// CreatePostRequest is the body of POST /api/posts/create.
type CreatePostRequest struct {
	Content         string   `json:"content" validate:"max=5000"`
	ImageURLs       []string `json:"image_urls" validate:"max=10,dive,max=2048"`
	PostType        string   `json:"post_type"`
	CommentsEnabled *bool    `json:"comments_enabled"`
}

type ToggleCommentsRequest struct {
	Enabled *bool `json:"comments_enabled"`
}

// CommentRequest is the body of comment create and update.
type CommentRequest struct {
	Content         string `json:"content" validate:"max=2000"`
	ParentCommentID *int64 `json:"parentCommentId,string"`
}

type PostData struct {
	Post *entity.Post `json:"post"`
}

type PostList struct {
	Posts      []entity.Post        `json:"posts"`
	Pagination utilities.Pagination `json:"pagination"`
}

type CommentsState struct {
	CommentsEnabled bool `json:"comments_enabled"`
}

type CommentData struct {
	Comment *entity.Comment `json:"comment"`
}

type CommentList struct {
	Comments   []entity.Comment     `json:"comments"`
	Pagination utilities.Pagination `json:"pagination"`
}

type ReplyList struct {
	Replies []entity.Comment `json:"replies"`
	Count   int              `json:"count"`
}

type DeletedComments struct {
	Removed int64 `json:"removed"`
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, ok := utilities.PathID(r, name)
	if !ok {
		response.Fail(w, http.StatusBadRequest, msg)
	}
	return id, ok
}

func (h *Handler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid post payload", "err", err)
		response.Validation(w, err)
		return
	}
	me := session.UserID(r.Context())
	p, err := h.svc.CreatePost(r.Context(), entity.NewPost{
		UserID:          me,
		Content:         req.Content,
		ImageURLs:       req.ImageURLs,
		PostType:        entity.PostType(req.PostType),
		CommentsEnabled: req.CommentsEnabled,
	})
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	h.logger.Infow("post created", "user_id", me, "post_id", p.ID, "post_type", p.PostType)
	response.OK(w, http.StatusCreated, "Post created successfully", PostData{Post: p})
}

func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	page := utilities.PageFromRequest(r, 10)
	posts, pg, err := h.svc.ListPosts(r.Context(), session.UserID(r.Context()), page)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", PostList{Posts: posts, Pagination: pg})
}

func (h *Handler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "userId", "Invalid user id")
	if !ok {
		return
	}
	page := utilities.PageFromRequest(r, 10)
	posts, pg, err := h.svc.ListUserPosts(r.Context(), userID, session.UserID(r.Context()), page)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", PostList{Posts: posts, Pagination: pg})
}

func (h *Handler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Invalid post id")
	if !ok {
		return
	}
	p, err := h.svc.GetPost(r.Context(), id, session.UserID(r.Context()))
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", PostData{Post: p})
}

func (h *Handler) TogglePostLike(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Invalid post id")
	if !ok {
		return
	}
	res, err := h.svc.TogglePostLike(r.Context(), session.UserID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	msg := "Post unliked"
	if res.Liked {
		msg = "Post liked"
	}
	response.OK(w, http.StatusOK, msg, res)
}

func (h *Handler) ToggleComments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Invalid post id")
	if !ok {
		return
	}
	var req ToggleCommentsRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	enabled, err := h.svc.ToggleComments(r.Context(), session.UserID(r.Context()), id, req.Enabled)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	msg := "Comments disabled successfully"
	if enabled {
		msg = "Comments enabled successfully"
	}
	response.OK(w, http.StatusOK, msg, CommentsState{CommentsEnabled: enabled})
}

func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id", "Invalid post id")
	if !ok {
		return
	}
	me := session.UserID(r.Context())
	if err := h.svc.DeletePost(r.Context(), me, id); err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	h.logger.Infow("post deleted", "user_id", me, "post_id", id)
	response.Message(w, http.StatusOK, "Post deleted successfully")
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postId", "Invalid post id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid comment payload", "err", err)
		response.Validation(w, err)
		return
	}
	c, err := h.svc.AddComment(r.Context(), session.UserID(r.Context()), postID, req.Content, req.ParentCommentID)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusCreated, "Comment added successfully", CommentData{Comment: c})
}

func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "postId", "Invalid post id")
	if !ok {
		return
	}
	page := utilities.PageFromRequest(r, 20)
	out, pg, err := h.svc.ListComments(r.Context(), session.UserID(r.Context()), postID, page)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", CommentList{Comments: out, Pagination: pg})
}

func (h *Handler) Replies(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "commentId", "Invalid comment id")
	if !ok {
		return
	}
	out, err := h.svc.Replies(r.Context(), session.UserID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "", ReplyList{Replies: out, Count: len(out)})
}

func (h *Handler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "commentId", "Invalid comment id")
	if !ok {
		return
	}
	var req CommentRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		response.Validation(w, err)
		return
	}
	c, err := h.svc.UpdateComment(r.Context(), session.UserID(r.Context()), id, req.Content)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Comment updated successfully", CommentData{Comment: c})
}

func (h *Handler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "commentId", "Invalid comment id")
	if !ok {
		return
	}
	n, err := h.svc.DeleteComment(r.Context(), session.UserID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	response.OK(w, http.StatusOK, "Comment deleted successfully", DeletedComments{Removed: n})
}

func (h *Handler) ToggleCommentLike(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "commentId", "Invalid comment id")
	if !ok {
		return
	}
	res, err := h.svc.ToggleCommentLike(r.Context(), session.UserID(r.Context()), id)
	if err != nil {
		response.Error(w, h.logger, r, err)
		return
	}
	msg := "Comment unliked"
	if res.Liked {
		msg = "Comment liked"
	}
	response.OK(w, http.StatusOK, msg, res)
}
