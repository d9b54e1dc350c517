package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	contententity "github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

type fakeStore struct {
	follows  map[int64][]int64
	profiles map[int64]bool
	posts    []contententity.Post
	since    time.Time
}

func (f *fakeStore) FollowingIDs(_ context.Context, id int64) ([]int64, error) {
	return slices.Clone(f.follows[id]), nil
}

func (f *fakeStore) HasProfile(_ context.Context, id int64) (bool, error) { return f.profiles[id], nil }

func (f *fakeStore) byAuthors(authors []int64) []contententity.Post {
	out := []contententity.Post{}
	for _, p := range f.posts {
		if slices.Contains(authors, p.UserID) {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeStore) Posts(_ context.Context, _ int64, authors []int64, page utilities.PageParams) ([]contententity.Post, error) {
	all := f.byAuthors(authors)
	start := min(page.Offset(), len(all))
	return all[start:min(start+page.Limit, len(all))], nil
}

func (f *fakeStore) CountPosts(_ context.Context, authors []int64) (int64, error) {
	return int64(len(f.byAuthors(authors))), nil
}

func (f *fakeStore) PostsSince(_ context.Context, _ int64, authors []int64, since time.Time, limit int) ([]contententity.Post, error) {
	f.since = since
	out := []contententity.Post{}
	for _, p := range f.byAuthors(authors) {
		if !p.CreatedAt.Before(since) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func newFixture() *fakeStore {
	now := time.Now()
	return &fakeStore{
		follows:  map[int64][]int64{1: {2}},
		profiles: map[int64]bool{1: true, 2: true},
		posts: []contententity.Post{
			{ID: 10, UserID: 1, CreatedAt: now},
			{ID: 11, UserID: 2, CreatedAt: now.Add(-time.Hour)},
			{ID: 12, UserID: 3, CreatedAt: now},
			{ID: 13, UserID: 2, CreatedAt: now.Add(-48 * time.Hour)},
		},
	}
}

func ids(posts []contententity.Post) []int64 {
	out := make([]int64, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestPersonalizedIncludesSelfAndFollowing(t *testing.T) {
	svc := NewService(newFixture())
	out, err := svc.Personalized(context.Background(), 1, utilities.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 13}, ids(out.Posts))
	assert.Equal(t, int64(3), out.Pagination.Total)
	assert.Equal(t, 1, out.FeedInfo.TotalFollowing)
	assert.Equal(t, "personalized", out.FeedInfo.FeedSource)

	out, err = svc.Personalized(context.Background(), 1, utilities.PageParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{13}, ids(out.Posts))
	assert.False(t, out.Pagination.HasNext)
	assert.True(t, out.Pagination.HasPrev)
}

func TestUserFeed(t *testing.T) {
	svc := NewService(newFixture())
	_, err := svc.UserFeed(context.Background(), 1, 3, utilities.PageParams{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, ErrUserNotFound)

	out, err := svc.UserFeed(context.Background(), 1, 2, utilities.PageParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []int64{11, 13}, ids(out.Posts))
	assert.Equal(t, int64(2), out.UserInfo.UserID)
	assert.Equal(t, int64(2), out.UserInfo.TotalPosts)
}

func TestRefreshWindow(t *testing.T) {
	store := newFixture()
	svc := NewService(store)
	fixed := time.Now()
	svc.now = func() time.Time { return fixed }

	out, err := svc.Refresh(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11}, ids(out.RecentPosts))
	assert.Equal(t, 2, out.NewPostsCount)
	assert.Equal(t, fixed, out.RefreshTime)
	assert.Equal(t, fixed.Add(-24*time.Hour), store.since)
}

func TestRefreshHandlerEnvelope(t *testing.T) {
	h := NewHandler(NewService(newFixture()), zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodPost, "/api/feed/refresh", nil)
	req = req.WithContext(session.WithClaims(req.Context(), &session.Claims{ID: 1}))
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			RecentPosts   []json.RawMessage `json:"recentPosts"`
			NewPostsCount int               `json:"newPostsCount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Feed refreshed successfully", body.Message)
	assert.Equal(t, 2, body.Data.NewPostsCount)
	assert.Len(t, body.Data.RecentPosts, 2)
}

func TestUserFeedHandlerRejectsBadID(t *testing.T) {
	h := NewHandler(NewService(newFixture()), zap.NewNop().Sugar())
	req := httptest.NewRequest(http.MethodGet, "/api/feed/user/abc", nil)
	req.SetPathValue("userId", "abc")
	rec := httptest.NewRecorder()
	h.UserFeed(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
