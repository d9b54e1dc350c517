package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// PostStore persists posts and post likes.
type PostStore interface {
	Create(ctx context.Context, p *entity.Post) error
	Get(ctx context.Context, id, viewer int64) (*entity.Post, error)
	List(ctx context.Context, viewer int64, page utilities.PageParams) ([]entity.Post, error)
	Count(ctx context.Context) (int64, error)
	ListByUser(ctx context.Context, userID, viewer int64, page utilities.PageParams) ([]entity.Post, error)
	CountByUser(ctx context.Context, userID int64) (int64, error)
	ToggleLike(ctx context.Context, postID, userID int64) (entity.LikeResult, error)
	SetCommentsEnabled(ctx context.Context, id int64, enabled bool) error
	Delete(ctx context.Context, id int64) error
}

// CommentStore persists comments and comment likes.
type CommentStore interface {
	Get(ctx context.Context, id, viewer int64) (*entity.Comment, error)
	Create(ctx context.Context, c *entity.Comment) error
	ListTop(ctx context.Context, postID, viewer int64, page utilities.PageParams) ([]entity.Comment, error)
	CountTop(ctx context.Context, postID int64) (int64, error)
	Replies(ctx context.Context, parentID, viewer int64) ([]entity.Comment, error)
	Update(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, c *entity.Comment) (int64, error)
	ToggleLike(ctx context.Context, commentID, userID int64) (entity.LikeResult, error)
}

var (
	ErrPostEmpty          = apperr.NewInvalid("Post content or image is required")
	ErrInvalidPostType    = apperr.NewInvalid("Invalid post type")
	ErrPostNotFound       = apperr.NewNotFound("Post not found")
	ErrNotPostOwnerToggle = apperr.NewForbidden("You can only modify comments on your own posts")
	ErrNotPostOwnerDelete = apperr.NewForbidden("You can only delete your own posts")

	ErrCommentRequired       = apperr.NewInvalid("Comment content is required")
	ErrCommentsDisabled      = apperr.NewForbidden("Comments are disabled on this post")
	ErrParentNotFound        = apperr.NewNotFound("Parent comment not found")
	ErrParentOtherPost       = apperr.NewInvalid("Parent comment does not belong to this post")
	ErrNestedReply           = apperr.NewInvalid("Replies can only target top-level comments")
	ErrCommentNotFound       = apperr.NewNotFound("Comment not found")
	ErrNotCommentOwnerEdit   = apperr.NewForbidden("You can only edit your own comments")
	ErrNotCommentOwnerDelete = apperr.NewForbidden("You can only delete your own comments")
)

// PostCommentPreview is how many top-level comments a single post carries.
const PostCommentPreview = 20

// Service implements posts, comments and likes.
type Service struct {
	posts    PostStore
	comments CommentStore
	newID    func() (int64, error)
}

func NewService(posts PostStore, comments CommentStore) *Service {
	return &Service{posts: posts, comments: comments, newID: utilities.NewSnowflakeID}
}

func (s *Service) post(ctx context.Context, id, viewer int64) (*entity.Post, error) {
	p, err := s.posts.Get(ctx, id, viewer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return p, nil
}

func (s *Service) comment(ctx context.Context, id, viewer int64, notFound error) (*entity.Comment, error) {
	c, err := s.comments.Get(ctx, id, viewer)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// CreatePost stores a new post of in.UserID. An omitted type is derived
// from the content and images.
func (s *Service) CreatePost(ctx context.Context, in entity.NewPost) (*entity.Post, error) {
	content := strings.TrimSpace(in.Content)
	images := make([]string, 0, len(in.ImageURLs))
	for _, u := range in.ImageURLs {
		if u = strings.TrimSpace(u); u != "" {
			images = append(images, u)
		}
	}
	if content == "" && len(images) == 0 {
		return nil, ErrPostEmpty
	}
	typ := in.PostType
	if typ == "" {
		typ = entity.TypeFor(content, images)
	} else if !typ.Valid() {
		return nil, ErrInvalidPostType
	}
	enabled := true
	if in.CommentsEnabled != nil {
		enabled = *in.CommentsEnabled
	}
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("post id: %w", err)
	}
	p := &entity.Post{
		ID:              id,
		UserID:          in.UserID,
		Content:         content,
		ImageURLs:       images,
		PostType:        typ,
		CommentsEnabled: enabled,
	}
	if err := s.posts.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return s.post(ctx, id, in.UserID)
}

// ListPosts returns a page of all posts, newest first.
func (s *Service) ListPosts(ctx context.Context, viewer int64, page utilities.PageParams) ([]entity.Post, utilities.Pagination, error) {
	posts, err := s.posts.List(ctx, viewer, page)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("list posts: %w", err)
	}
	total, err := s.posts.Count(ctx)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("count posts: %w", err)
	}
	return posts, utilities.NewPagination(page, total), nil
}

func (s *Service) ListUserPosts(ctx context.Context, userID, viewer int64, page utilities.PageParams) ([]entity.Post, utilities.Pagination, error) {
	posts, err := s.posts.ListByUser(ctx, userID, viewer, page)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("list user posts: %w", err)
	}
	total, err := s.posts.CountByUser(ctx, userID)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("count user posts: %w", err)
	}
	return posts, utilities.NewPagination(page, total), nil
}

// GetPost returns a post with its most recent top-level comments.
func (s *Service) GetPost(ctx context.Context, id, viewer int64) (*entity.Post, error) {
	p, err := s.post(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	p.Comments, err = s.comments.ListTop(ctx, id, viewer, utilities.PageParams{Page: 1, Limit: PostCommentPreview})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return p, nil
}

func (s *Service) TogglePostLike(ctx context.Context, me, id int64) (entity.LikeResult, error) {
	if _, err := s.post(ctx, id, me); err != nil {
		return entity.LikeResult{}, err
	}
	res, err := s.posts.ToggleLike(ctx, id, me)
	if err != nil {
		return res, fmt.Errorf("toggle post like: %w", err)
	}
	return res, nil
}

// ToggleComments sets comments_enabled to enabled, or flips it when nil.
func (s *Service) ToggleComments(ctx context.Context, me, id int64, enabled *bool) (bool, error) {
	p, err := s.post(ctx, id, me)
	if err != nil {
		return false, err
	}
	if p.UserID != me {
		return false, ErrNotPostOwnerToggle
	}
	next := !p.CommentsEnabled
	if enabled != nil {
		next = *enabled
	}
	if err := s.posts.SetCommentsEnabled(ctx, id, next); err != nil {
		return false, fmt.Errorf("set comments enabled: %w", err)
	}
	return next, nil
}

func (s *Service) DeletePost(ctx context.Context, me, id int64) error {
	p, err := s.post(ctx, id, me)
	if err != nil {
		return err
	}
	if p.UserID != me {
		return ErrNotPostOwnerDelete
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// AddComment comments on a post, or replies to a top-level comment of it.
func (s *Service) AddComment(ctx context.Context, me, postID int64, content string, parentID *int64) (*entity.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentRequired
	}
	p, err := s.post(ctx, postID, me)
	if err != nil {
		return nil, err
	}
	if !p.CommentsEnabled {
		return nil, ErrCommentsDisabled
	}
	if parentID != nil {
		parent, err := s.comment(ctx, *parentID, me, ErrParentNotFound)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, ErrParentOtherPost
		}
		if parent.IsReply() {
			return nil, ErrNestedReply
		}
	}
	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("comment id: %w", err)
	}
	c := &entity.Comment{ID: id, UserID: me, PostID: postID, ParentCommentID: parentID, Content: content}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return s.comment(ctx, id, me, ErrCommentNotFound)
}

// ListComments returns a page of top-level comments of a post.
func (s *Service) ListComments(ctx context.Context, viewer, postID int64, page utilities.PageParams) ([]entity.Comment, utilities.Pagination, error) {
	p, err := s.post(ctx, postID, viewer)
	if err != nil {
		return nil, utilities.Pagination{}, err
	}
	if !p.CommentsEnabled {
		return nil, utilities.Pagination{}, ErrCommentsDisabled
	}
	out, err := s.comments.ListTop(ctx, postID, viewer, page)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("list comments: %w", err)
	}
	total, err := s.comments.CountTop(ctx, postID)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("count comments: %w", err)
	}
	return out, utilities.NewPagination(page, total), nil
}

func (s *Service) Replies(ctx context.Context, viewer, commentID int64) ([]entity.Comment, error) {
	if _, err := s.comment(ctx, commentID, viewer, ErrCommentNotFound); err != nil {
		return nil, err
	}
	out, err := s.comments.Replies(ctx, commentID, viewer)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	return out, nil
}

func (s *Service) UpdateComment(ctx context.Context, me, id int64, content string) (*entity.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrCommentRequired
	}
	c, err := s.comment(ctx, id, me, ErrCommentNotFound)
	if err != nil {
		return nil, err
	}
	if c.UserID != me {
		return nil, ErrNotCommentOwnerEdit
	}
	if err := s.comments.Update(ctx, id, content); err != nil {
		return nil, fmt.Errorf("update comment: %w", err)
	}
	return s.comment(ctx, id, me, ErrCommentNotFound)
}

// DeleteComment removes a comment with its replies and returns how many rows went.
func (s *Service) DeleteComment(ctx context.Context, me, id int64) (int64, error) {
	c, err := s.comment(ctx, id, me, ErrCommentNotFound)
	if err != nil {
		return 0, err
	}
	if c.UserID != me {
		return 0, ErrNotCommentOwnerDelete
	}
	n, err := s.comments.Delete(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("delete comment: %w", err)
	}
	return n, nil
}

func (s *Service) ToggleCommentLike(ctx context.Context, me, id int64) (entity.LikeResult, error) {
	if _, err := s.comment(ctx, id, me, ErrCommentNotFound); err != nil {
		return entity.LikeResult{}, err
	}
	res, err := s.comments.ToggleLike(ctx, id, me)
	if err != nil {
		return res, fmt.Errorf("toggle comment like: %w", err)
	}
	return res, nil
}
