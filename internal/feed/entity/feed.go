package entity

import (
	"time"

	contententity "github.com/ovaphlow/pitchfork/service-social-go/internal/content/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

const SourcePersonalized = "personalized"

type FeedInfo struct {
	TotalFollowing int    `json:"totalFollowing"`
	FeedSource     string `json:"feedSource"`
}

// Personalized is a page of posts by the user and everyone they follow.
type Personalized struct {
	Posts      []contententity.Post `json:"posts"`
	Pagination utilities.Pagination `json:"pagination"`
	FeedInfo   FeedInfo             `json:"feedInfo"`
}

type UserInfo struct {
	UserID     int64 `json:"userId"`
	TotalPosts int64 `json:"totalPosts"`
}

// UserFeed is a page of one user's posts.
type UserFeed struct {
	Posts      []contententity.Post `json:"posts"`
	Pagination utilities.Pagination `json:"pagination"`
	UserInfo   UserInfo             `json:"userInfo"`
}

// Refresh carries the posts of the last day from the user's network.
type Refresh struct {
	RecentPosts   []contententity.Post `json:"recentPosts"`
	RefreshTime   time.Time            `json:"refreshTime"`
	NewPostsCount int                  `json:"newPostsCount"`
}
