package repo

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	contententity "github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	contentrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/content/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// FeedRepo reads posts filtered by author set and age.
type FeedRepo struct {
	db *sqlx.DB
}

func NewFeedRepo(db *sqlx.DB) *FeedRepo { return &FeedRepo{db: db} }

// FollowingIDs returns the ids userID follows.
func (r *FeedRepo) FollowingIDs(ctx context.Context, userID int64) ([]int64, error) {
	out := []int64{}
	err := r.db.SelectContext(ctx, &out, `SELECT followee_id FROM follows WHERE follower_id = $1`, userID)
	return out, err
}

func (r *FeedRepo) HasProfile(ctx context.Context, userID int64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE user_id = $1)`, userID)
	return ok, err
}

// Posts returns a page of posts written by any of authors, newest first.
func (r *FeedRepo) Posts(ctx context.Context, viewer int64, authors []int64, page utilities.PageParams) ([]contententity.Post, error) {
	out := []contententity.Post{}
	q := contentrepo.PostSelect + ` WHERE p.user_id = ANY($2)
	  ORDER BY p.created_at DESC, p.id DESC LIMIT $3 OFFSET $4`
	if err := r.db.SelectContext(ctx, &out, q, viewer, pq.Array(authors), page.Limit, page.Offset()); err != nil {
		return nil, err
	}
	contentrepo.FillAuthors(out)
	return out, nil
}

func (r *FeedRepo) CountPosts(ctx context.Context, authors []int64) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts WHERE user_id = ANY($1)`, pq.Array(authors))
	return n, err
}

// PostsSince returns up to limit posts of authors created at or after since.
func (r *FeedRepo) PostsSince(ctx context.Context, viewer int64, authors []int64, since time.Time, limit int) ([]contententity.Post, error) {
	out := []contententity.Post{}
	q := contentrepo.PostSelect + ` WHERE p.user_id = ANY($2) AND p.created_at >= $3
	  ORDER BY p.created_at DESC, p.id DESC LIMIT $4`
	if err := r.db.SelectContext(ctx, &out, q, viewer, pq.Array(authors), since, limit); err != nil {
		return nil, err
	}
	contentrepo.FillAuthors(out)
	return out, nil
}
