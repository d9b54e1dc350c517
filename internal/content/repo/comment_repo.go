package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

const commentSelect = `SELECT c.id, c.user_id, c.post_id, c.parent_comment_id, c.content, c.likes_count,
	c.is_edited, c.edited_at, c.created_at, c.updated_at,
	u.name AS user_name, u.email AS user_email,
	COALESCE(up.username, '') AS username,
	EXISTS (SELECT 1 FROM comment_likes cl WHERE cl.comment_id = c.id AND cl.user_id = $1) AS is_liked,
	(SELECT COUNT(*) FROM comments r WHERE r.parent_comment_id = c.id) AS replies_count
  FROM comments c
  JOIN users u ON u.id = c.user_id
  LEFT JOIN user_profiles up ON up.user_id = c.user_id`

// CommentRepo provides data access for comments and comment likes.
type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo { return &CommentRepo{db: db} }

func (r *CommentRepo) selectComments(ctx context.Context, q string, args ...any) ([]entity.Comment, error) {
	out := []entity.Comment{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, err
	}
	for i := range out {
		out[i].FillAuthor()
	}
	return out, nil
}

// Get returns a comment or sql.ErrNoRows.
func (r *CommentRepo) Get(ctx context.Context, id, viewer int64) (*entity.Comment, error) {
	var c entity.Comment
	if err := r.db.GetContext(ctx, &c, commentSelect+` WHERE c.id = $2`, viewer, id); err != nil {
		return nil, err
	}
	c.FillAuthor()
	return &c, nil
}

// Create inserts the comment and bumps the post's comments_count.
func (r *CommentRepo) Create(ctx context.Context, c *entity.Comment) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const ins = `INSERT INTO comments (id, user_id, post_id, parent_comment_id, content)
			VALUES ($1, $2, $3, $4, $5)`
		if _, err := tx.ExecContext(ctx, ins, c.ID, c.UserID, c.PostID, c.ParentCommentID, c.Content); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET comments_count = comments_count + 1 WHERE id = $1`, c.PostID); err != nil {
			return fmt.Errorf("count comment: %w", err)
		}
		return nil
	})
}

// ListTop lists the top-level comments of a post, newest first.
func (r *CommentRepo) ListTop(ctx context.Context, postID, viewer int64, page utilities.PageParams) ([]entity.Comment, error) {
	q := commentSelect + ` WHERE c.post_id = $2 AND c.parent_comment_id IS NULL
	  ORDER BY c.created_at DESC, c.id DESC LIMIT $3 OFFSET $4`
	return r.selectComments(ctx, q, viewer, postID, page.Limit, page.Offset())
}

func (r *CommentRepo) CountTop(ctx context.Context, postID int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM comments WHERE post_id = $1 AND parent_comment_id IS NULL`, postID)
	return n, err
}

// Replies lists the replies to a comment, oldest first.
func (r *CommentRepo) Replies(ctx context.Context, parentID, viewer int64) ([]entity.Comment, error) {
	q := commentSelect + ` WHERE c.parent_comment_id = $2 ORDER BY c.created_at ASC, c.id ASC`
	return r.selectComments(ctx, q, viewer, parentID)
}

func (r *CommentRepo) Update(ctx context.Context, id int64, content string) error {
	const q = `UPDATE comments SET content = $2, is_edited = true, edited_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id, content)
	return err
}

// Delete removes the comment and its replies, with their likes, and lowers
// the post's comments_count by the number of removed rows. It returns that number.
func (r *CommentRepo) Delete(ctx context.Context, c *entity.Comment) (int64, error) {
	var removed int64
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE id = $1 OR parent_comment_id = $1)`,
			c.ID); err != nil {
			return fmt.Errorf("delete comment likes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 OR parent_comment_id = $1`, c.ID)
		if err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE posts SET comments_count = GREATEST(0, comments_count - $2) WHERE id = $1`, c.PostID, removed)
		if err != nil {
			return fmt.Errorf("uncount comments: %w", err)
		}
		return nil
	})
	return removed, err
}

// ToggleLike adds or removes the like of userID on a comment.
func (r *CommentRepo) ToggleLike(ctx context.Context, commentID, userID int64) (entity.LikeResult, error) {
	var out entity.LikeResult
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		delta, err := toggle(ctx, tx, "comment_likes", "comment_id", commentID, userID)
		if err != nil {
			return err
		}
		out.Liked = delta >= 0
		return tx.GetContext(ctx, &out.LikesCount,
			`UPDATE comments SET likes_count = GREATEST(0, likes_count + $2) WHERE id = $1 RETURNING likes_count`,
			commentID, delta)
	})
	return out, err
}
