package entity

import "time"

type Comment struct {
	ID              int64      `db:"id" json:"id,string"`
	UserID          int64      `db:"user_id" json:"user_id"`
	PostID          int64      `db:"post_id" json:"post_id,string"`
	ParentCommentID *int64     `db:"parent_comment_id" json:"parent_comment_id,string"`
	Content         string     `db:"content" json:"content"`
	LikesCount      int        `db:"likes_count" json:"likes_count"`
	IsEdited        bool       `db:"is_edited" json:"is_edited"`
	EditedAt        *time.Time `db:"edited_at" json:"edited_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	RepliesCount    int        `db:"replies_count" json:"replies_count"`
	IsLiked         bool       `db:"is_liked" json:"isLiked"`

	AuthorName     string `db:"user_name" json:"-"`
	AuthorEmail    string `db:"user_email" json:"-"`
	AuthorUsername string `db:"username" json:"-"`

	User Author `db:"-" json:"user"`
}

func (c *Comment) FillAuthor() {
	c.User = NewAuthor(c.UserID, c.AuthorName, c.AuthorEmail, c.AuthorUsername)
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool { return c.ParentCommentID != nil }
