package entity

import "time"

// Profile is a row of `user_profiles`, one per account.
type Profile struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	Username       string    `db:"username" json:"username"`
	Bio            string    `db:"bio" json:"bio"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	CoverPicture   string    `db:"cover_picture" json:"cover_picture"`
	Location       string    `db:"location" json:"location"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Defaults applied when a profile is created without explicit values.
const (
	DefaultBio = "Hey there!"
)

// View joins a profile with its account and relation counters.
type View struct {
	UserID            int64     `db:"user_id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	IsAccountVerified bool      `db:"is_account_verified" json:"isAccountVerified"`
	Username          string    `db:"username" json:"username"`
	Bio               string    `db:"bio" json:"bio"`
	ProfilePicture    string    `db:"profile_picture" json:"profile_picture"`
	CoverPicture      string    `db:"cover_picture" json:"cover_picture"`
	Location          string    `db:"location" json:"location"`
	FollowersCount    int64     `db:"followers_count" json:"followers_count"`
	FollowingCount    int64     `db:"following_count" json:"following_count"`
	ConnectionsCount  int64     `db:"connections_count" json:"connections_count"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// Patch lists the profile fields a caller may change; nil means unchanged.
type Patch struct {
	Username       *string
	Bio            *string
	ProfilePicture *string
	CoverPicture   *string
	Location       *string
}

func (p Patch) Empty() bool {
	return p.Username == nil && p.Bio == nil && p.ProfilePicture == nil && p.CoverPicture == nil && p.Location == nil
}

// Relation to the searching user.
const (
	StatusConnected = "connected"
	StatusFollowing = "following"
	StatusNone      = "none"
)

// SearchResult is one row of a user search.
type SearchResult struct {
	UserID            int64     `db:"user_id" json:"id"`
	Name              string    `db:"name" json:"name"`
	Email             string    `db:"email" json:"email"`
	IsAccountVerified bool      `db:"is_account_verified" json:"isAccountVerified"`
	Username          string    `db:"username" json:"username"`
	Bio               string    `db:"bio" json:"bio"`
	ProfilePicture    string    `db:"profile_picture" json:"profile_picture"`
	CoverPicture      string    `db:"cover_picture" json:"cover_picture"`
	Location          string    `db:"location" json:"location"`
	FollowersCount    int64     `db:"followers_count" json:"followers_count"`
	FollowingCount    int64     `db:"following_count" json:"following_count"`
	IsFollowing       bool      `db:"is_following" json:"is_following"`
	IsConnected       bool      `db:"is_connected" json:"-"`
	ConnectionStatus  string    `db:"-" json:"connection_status"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
