package entity

import "time"

// FollowUser is the other side of a follow edge, with profile fields.
type FollowUser struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	Username       string    `db:"username" json:"username"`
	ProfilePicture string    `db:"profile_picture" json:"profile_picture"`
	FollowedAt     time.Time `db:"followed_at" json:"followedAt"`
}

type FollowStatus struct {
	IsFollowing  bool `db:"is_following" json:"isFollowing"`
	IsFollowedBy bool `db:"is_followed_by" json:"isFollowedBy"`
	IsMutual     bool `db:"-" json:"isMutual"`
}

// RequestStatus is the state of a connection request.
type RequestStatus string

const (
	Pending  RequestStatus = "pending"
	Accepted RequestStatus = "accepted"
	Rejected RequestStatus = "rejected"
)

// ConnectionRequest is a row of connection_requests. At most one exists per unordered pair.
type ConnectionRequest struct {
	ID          int64         `db:"id" json:"id"`
	SenderID    int64         `db:"sender_id" json:"sender_id"`
	RecipientID int64         `db:"recipient_id" json:"recipient_id"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// Involves reports whether userID is sender or recipient.
func (c *ConnectionRequest) Involves(userID int64) bool {
	return c.SenderID == userID || c.RecipientID == userID
}

// ListView selects which requests of a user to list.
type ListView int

const (
	Incoming ListView = iota // pending, addressed to the user
	Outgoing                 // pending, sent by the user
	Friends                  // accepted, either direction
)

// ConnectionUser is a listed request together with the other party.
type ConnectionUser struct {
	ConnectionID   int64         `db:"connection_id" json:"connectionId"`
	UserID         int64         `db:"user_id" json:"id"`
	Name           string        `db:"name" json:"name"`
	Email          string        `db:"email" json:"email"`
	Username       string        `db:"username" json:"username"`
	ProfilePicture string        `db:"profile_picture" json:"profile_picture"`
	Status         RequestStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Connection status between the caller and another user.
const (
	StatusNone     = "none"
	StatusSent     = "sent"
	StatusReceived = "received"
	StatusFriend   = "friend"
)

type ConnectionStatus struct {
	Status       string `json:"status"`
	ConnectionID *int64 `json:"connectionId,omitempty"`
}
