package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// PostSelect selects posts with their author block. $1 is the viewing user
// (0 when anonymous) and drives is_liked.
const PostSelect = `SELECT p.id, p.user_id, p.content, p.image_urls, p.post_type, p.comments_enabled,
	p.likes_count, p.comments_count, p.created_at, p.updated_at,
	u.name AS user_name, u.email AS user_email,
	COALESCE(up.username, '') AS username,
	EXISTS (SELECT 1 FROM post_likes pl WHERE pl.post_id = p.id AND pl.user_id = $1) AS is_liked
  FROM posts p
  JOIN users u ON u.id = p.user_id
  LEFT JOIN user_profiles up ON up.user_id = p.user_id`

// FillAuthors sets the user block of every post.
func FillAuthors(posts []entity.Post) {
	for i := range posts {
		posts[i].FillAuthor()
	}
}

// PostRepo provides data access for posts and post likes.
type PostRepo struct {
	db *sqlx.DB
}

func NewPostRepo(db *sqlx.DB) *PostRepo { return &PostRepo{db: db} }

func (r *PostRepo) Create(ctx context.Context, p *entity.Post) error {
	const q = `INSERT INTO posts (id, user_id, content, image_urls, post_type, comments_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(ctx, q, p.ID, p.UserID, p.Content, p.ImageURLs, string(p.PostType), p.CommentsEnabled)
	return err
}

// Get returns a post or sql.ErrNoRows.
func (r *PostRepo) Get(ctx context.Context, id, viewer int64) (*entity.Post, error) {
	var p entity.Post
	if err := r.db.GetContext(ctx, &p, PostSelect+` WHERE p.id = $2`, viewer, id); err != nil {
		return nil, err
	}
	p.FillAuthor()
	return &p, nil
}

func (r *PostRepo) List(ctx context.Context, viewer int64, page utilities.PageParams) ([]entity.Post, error) {
	out := []entity.Post{}
	q := PostSelect + ` ORDER BY p.created_at DESC, p.id DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &out, q, viewer, page.Limit, page.Offset()); err != nil {
		return nil, err
	}
	FillAuthors(out)
	return out, nil
}

func (r *PostRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`)
	return n, err
}

func (r *PostRepo) ListByUser(ctx context.Context, userID, viewer int64, page utilities.PageParams) ([]entity.Post, error) {
	out := []entity.Post{}
	q := PostSelect + ` WHERE p.user_id = $2 ORDER BY p.created_at DESC, p.id DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &out, q, viewer, userID, page.Limit, page.Offset()); err != nil {
		return nil, err
	}
	FillAuthors(out)
	return out, nil
}

func (r *PostRepo) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID)
	return n, err
}

// ToggleLike adds or removes the like of userID and returns the new state.
func (r *PostRepo) ToggleLike(ctx context.Context, postID, userID int64) (entity.LikeResult, error) {
	var out entity.LikeResult
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		delta, err := toggle(ctx, tx, "post_likes", "post_id", postID, userID)
		if err != nil {
			return err
		}
		out.Liked = delta >= 0
		return tx.GetContext(ctx, &out.LikesCount,
			`UPDATE posts SET likes_count = GREATEST(0, likes_count + $2) WHERE id = $1 RETURNING likes_count`,
			postID, delta)
	})
	return out, err
}

// toggle deletes the (user, target) like row or inserts it when absent. It
// returns the change to apply to the counter.
func toggle(ctx context.Context, tx *sqlx.Tx, table, column string, targetID, userID int64) (int, error) {
	res, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1 AND %s = $2`, table, column), userID, targetID)
	if err != nil {
		return 0, fmt.Errorf("unlike: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n > 0 {
		return -1, nil
	}
	res, err = tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, %s) VALUES ($1, $2) ON CONFLICT DO NOTHING`, table, column), userID, targetID)
	if err != nil {
		return 0, fmt.Errorf("like: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	// a concurrent like won the insert; the row exists either way
	return int(n), nil
}

func (r *PostRepo) SetCommentsEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE posts SET comments_enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	return err
}

// Delete removes the post together with its comments and all their likes.
func (r *PostRepo) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		steps := []struct{ name, q string }{
			{"comment likes", `DELETE FROM comment_likes WHERE comment_id IN (SELECT id FROM comments WHERE post_id = $1)`},
			{"comments", `DELETE FROM comments WHERE post_id = $1`},
			{"post likes", `DELETE FROM post_likes WHERE post_id = $1`},
			{"post", `DELETE FROM posts WHERE id = $1`},
		}
		for _, s := range steps {
			if _, err := tx.ExecContext(ctx, s.q, id); err != nil {
				return fmt.Errorf("delete %s: %w", s.name, err)
			}
		}
		return nil
	})
}
