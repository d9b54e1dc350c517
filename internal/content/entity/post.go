package entity

import (
	"time"

	"github.com/lib/pq"
)

// PostType classifies a post by what it carries.
type PostType string

const (
	TypeText          PostType = "text"
	TypeImage         PostType = "image"
	TypeTextWithImage PostType = "text_with_image"
)

func (t PostType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeTextWithImage:
		return true
	}
	return false
}

// TypeFor derives the post type from the presence of text and images.
func TypeFor(content string, images []string) PostType {
	switch {
	case content != "" && len(images) > 0:
		return TypeTextWithImage
	case len(images) > 0:
		return TypeImage
	default:
		return TypeText
	}
}

// UnknownUsername stands in for authors without a profile row.
const UnknownUsername = "unknown"

// Author is the user block attached to posts and comments.
type Author struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Post ids are snowflakes and exceed the float precision of JSON clients,
// so they are encoded as strings.
type Post struct {
	ID              int64          `db:"id" json:"id,string"`
	UserID          int64          `db:"user_id" json:"user_id"`
	Content         string         `db:"content" json:"content"`
	ImageURLs       pq.StringArray `db:"image_urls" json:"image_urls"`
	PostType        PostType       `db:"post_type" json:"post_type"`
	CommentsEnabled bool           `db:"comments_enabled" json:"comments_enabled"`
	LikesCount      int            `db:"likes_count" json:"likes_count"`
	CommentsCount   int            `db:"comments_count" json:"comments_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
	IsLiked         bool           `db:"is_liked" json:"isLiked"`

	AuthorName     string `db:"user_name" json:"-"`
	AuthorEmail    string `db:"user_email" json:"-"`
	AuthorUsername string `db:"username" json:"-"`

	User     Author    `db:"-" json:"user"`
	Comments []Comment `db:"-" json:"comments,omitempty"`
}

// NewAuthor builds the user block; authors without a profile get UnknownUsername.
func NewAuthor(id int64, name, email, username string) Author {
	if username == "" {
		username = UnknownUsername
	}
	return Author{ID: id, Name: name, Email: email, Username: username}
}

// FillAuthor copies the joined author columns into User.
func (p *Post) FillAuthor() {
	p.User = NewAuthor(p.UserID, p.AuthorName, p.AuthorEmail, p.AuthorUsername)
}

// NewPost is the input of post creation.
type NewPost struct {
	UserID          int64
	Content         string
	ImageURLs       []string
	PostType        PostType
	CommentsEnabled *bool
}

type LikeResult struct {
	Liked      bool `json:"isLiked"`
	LikesCount int  `json:"likes_count"`
}
