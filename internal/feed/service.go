package feed

import (
	"context"
	"fmt"
	"time"

	contententity "github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/feed/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Store reads the follow set and author-filtered posts.
type Store interface {
	FollowingIDs(ctx context.Context, userID int64) ([]int64, error)
	HasProfile(ctx context.Context, userID int64) (bool, error)
	Posts(ctx context.Context, viewer int64, authors []int64, page utilities.PageParams) ([]contententity.Post, error)
	CountPosts(ctx context.Context, authors []int64) (int64, error)
	PostsSince(ctx context.Context, viewer int64, authors []int64, since time.Time, limit int) ([]contententity.Post, error)
}

var ErrUserNotFound = apperr.NewNotFound("User not found")

// RefreshWindow bounds how old a post returned by Refresh may be.
const RefreshWindow = 24 * time.Hour

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// network returns userID and the ids userID follows, plus the follow count.
func (s *Service) network(ctx context.Context, userID int64) ([]int64, int, error) {
	following, err := s.store.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("following ids: %w", err)
	}
	return append(following, userID), len(following), nil
}

func (s *Service) page(ctx context.Context, viewer int64, authors []int64, page utilities.PageParams) ([]contententity.Post, utilities.Pagination, error) {
	posts, err := s.store.Posts(ctx, viewer, authors, page)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("feed posts: %w", err)
	}
	total, err := s.store.CountPosts(ctx, authors)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("count feed posts: %w", err)
	}
	return posts, utilities.NewPagination(page, total), nil
}

// Personalized returns posts by me and the users I follow.
func (s *Service) Personalized(ctx context.Context, me int64, page utilities.PageParams) (*entity.Personalized, error) {
	authors, following, err := s.network(ctx, me)
	if err != nil {
		return nil, err
	}
	posts, pg, err := s.page(ctx, me, authors, page)
	if err != nil {
		return nil, err
	}
	return &entity.Personalized{
		Posts:      posts,
		Pagination: pg,
		FeedInfo:   entity.FeedInfo{TotalFollowing: following, FeedSource: entity.SourcePersonalized},
	}, nil
}

// UserFeed returns the posts of one user. Users without a profile are unknown.
func (s *Service) UserFeed(ctx context.Context, viewer, userID int64, page utilities.PageParams) (*entity.UserFeed, error) {
	ok, err := s.store.HasProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	posts, pg, err := s.page(ctx, viewer, []int64{userID}, page)
	if err != nil {
		return nil, err
	}
	return &entity.UserFeed{
		Posts:      posts,
		Pagination: pg,
		UserInfo:   entity.UserInfo{UserID: userID, TotalPosts: pg.Total},
	}, nil
}

// Refresh returns up to limit posts from my network created within RefreshWindow.
func (s *Service) Refresh(ctx context.Context, me int64, limit int) (*entity.Refresh, error) {
	authors, _, err := s.network(ctx, me)
	if err != nil {
		return nil, err
	}
	now := s.now()
	posts, err := s.store.PostsSince(ctx, me, authors, now.Add(-RefreshWindow), limit)
	if err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	return &entity.Refresh{RecentPosts: posts, RefreshTime: now, NewPostsCount: len(posts)}, nil
}
