package graph

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph/entity"
	graphrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/graph/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
)

// Store is the persistence of the follow and connection relations.
type Store interface {
	UserExists(ctx context.Context, id int64) (bool, error)

	Follow(ctx context.Context, follower, followee int64) (bool, error)
	Unfollow(ctx context.Context, follower, followee int64) (bool, error)
	Following(ctx context.Context, userID int64) ([]entity.FollowUser, error)
	Followers(ctx context.Context, userID int64) ([]entity.FollowUser, error)
	FollowStatus(ctx context.Context, me, other int64) (entity.FollowStatus, error)

	GetRequest(ctx context.Context, id int64) (*entity.ConnectionRequest, error)
	GetPair(ctx context.Context, a, b int64) (*entity.ConnectionRequest, error)
	CreateRequest(ctx context.Context, from, to int64) (*entity.ConnectionRequest, error)
	ReopenRequest(ctx context.Context, id, from, to int64) (bool, error)
	TransitionRequest(ctx context.Context, id int64, from, to entity.RequestStatus) (bool, error)
	DeleteRequest(ctx context.Context, id int64) (bool, error)
	ListRequests(ctx context.Context, userID int64, view entity.ListView) ([]entity.ConnectionUser, error)
}

var (
	ErrUserNotFound     = apperr.NewNotFound("User not found")
	ErrSelfFollow       = apperr.NewInvalid("You cannot follow yourself")
	ErrSelfUnfollow     = apperr.NewInvalid("You cannot unfollow yourself")
	ErrSelfFollowStatus = apperr.NewInvalid("You cannot check follow status with yourself")
	ErrAlreadyFollowing = apperr.NewConflict("You are already following this user")
	ErrNotFollowing     = apperr.NewNotFound("You are not following this user")

	ErrTargetRequired   = apperr.NewInvalid("User ID to connect with is required")
	ErrSelfConnect      = apperr.NewInvalid("You cannot send connection request to yourself")
	ErrSelfStatus       = apperr.NewInvalid("Cannot check connection status with yourself")
	ErrAlreadyConnected = apperr.NewConflict("You are already connected with this user")
	ErrAlreadySent      = apperr.NewConflict("Connection request already sent")
	ErrIncomingPending  = apperr.NewConflict("This user has already sent you a connection request")
	ErrRequestNotFound  = apperr.NewNotFound("Connection request not found")
	ErrNotRecipient     = apperr.NewForbidden("You can only accept connection requests sent to you")
	ErrAlreadyAccepted  = apperr.NewConflict("Connection request already accepted")
	ErrNotPending       = apperr.NewConflict("Connection request is no longer pending")
	ErrNotParty         = apperr.NewForbidden("You can only reject your own connection requests")
)

// Service implements follows and the connection request state machine.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	ok, err := s.store.UserExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// Follow makes me follow target.
func (s *Service) Follow(ctx context.Context, me, target int64) error {
	if me == target {
		return ErrSelfFollow
	}
	if err := s.requireUser(ctx, target); err != nil {
		return err
	}
	created, err := s.store.Follow(ctx, me, target)
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	if !created {
		return ErrAlreadyFollowing
	}
	return nil
}

// Unfollow removes the follow edge me -> target.
func (s *Service) Unfollow(ctx context.Context, me, target int64) error {
	if me == target {
		return ErrSelfUnfollow
	}
	removed, err := s.store.Unfollow(ctx, me, target)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	if !removed {
		return ErrNotFollowing
	}
	return nil
}

func (s *Service) Following(ctx context.Context, me int64) ([]entity.FollowUser, error) {
	out, err := s.store.Following(ctx, me)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return out, nil
}

func (s *Service) Followers(ctx context.Context, me int64) ([]entity.FollowUser, error) {
	out, err := s.store.Followers(ctx, me)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return out, nil
}

func (s *Service) FollowStatus(ctx context.Context, me, other int64) (entity.FollowStatus, error) {
	if me == other {
		return entity.FollowStatus{}, ErrSelfFollowStatus
	}
	st, err := s.store.FollowStatus(ctx, me, other)
	if err != nil {
		return st, fmt.Errorf("follow status: %w", err)
	}
	return st, nil
}

// pair returns the request between a and b, or nil.
func (s *Service) pair(ctx context.Context, a, b int64) (*entity.ConnectionRequest, error) {
	c, err := s.store.GetPair(ctx, a, b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pair: %w", err)
	}
	return c, nil
}

// SendRequest opens a pending connection request from -> to.
func (s *Service) SendRequest(ctx context.Context, from, to int64) (*entity.ConnectionRequest, error) {
	if to <= 0 {
		return nil, ErrTargetRequired
	}
	if from == to {
		return nil, ErrSelfConnect
	}
	if err := s.requireUser(ctx, to); err != nil {
		return nil, err
	}
	existing, err := s.pair(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := pairConflict(existing, from); err != nil {
			return nil, err
		}
		// rejected: the row is reused for the new request
		ok, err := s.store.ReopenRequest(ctx, existing.ID, from, to)
		if err != nil {
			return nil, fmt.Errorf("reopen request: %w", err)
		}
		if !ok {
			return nil, ErrAlreadySent
		}
		existing.SenderID, existing.RecipientID, existing.Status = from, to, entity.Pending
		return existing, nil
	}
	c, err := s.store.CreateRequest(ctx, from, to)
	if err != nil {
		if database.IsUniqueViolation(err, graphrepo.PairIndex) {
			return nil, s.lostRace(ctx, from, to)
		}
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c, nil
}

// pairConflict returns the error for sending a request from -> over an
// existing row, or nil when the row is rejected and may be reused.
func pairConflict(c *entity.ConnectionRequest, from int64) error {
	switch {
	case c.Status == entity.Accepted:
		return ErrAlreadyConnected
	case c.Status == entity.Pending && c.SenderID == from:
		return ErrAlreadySent
	case c.Status == entity.Pending:
		return ErrIncomingPending
	}
	return nil
}

// lostRace explains an insert rejected by the pair index using the row that won.
func (s *Service) lostRace(ctx context.Context, from, to int64) error {
	winner, err := s.pair(ctx, from, to)
	if err != nil {
		return err
	}
	if winner == nil {
		return ErrAlreadySent
	}
	if err := pairConflict(winner, from); err != nil {
		return err
	}
	return ErrAlreadySent
}

func (s *Service) request(ctx context.Context, id int64) (*entity.ConnectionRequest, error) {
	c, err := s.store.GetRequest(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return c, nil
}

// AcceptRequest lets the recipient accept a pending request.
func (s *Service) AcceptRequest(ctx context.Context, me, id int64) (*entity.ConnectionRequest, error) {
	c, err := s.request(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.RecipientID != me {
		return nil, ErrNotRecipient
	}
	switch c.Status {
	case entity.Accepted:
		return nil, ErrAlreadyAccepted
	case entity.Rejected:
		return nil, ErrNotPending
	}
	ok, err := s.store.TransitionRequest(ctx, id, entity.Pending, entity.Accepted)
	if err != nil {
		return nil, fmt.Errorf("accept request: %w", err)
	}
	if !ok {
		return nil, ErrNotPending
	}
	c.Status = entity.Accepted
	return c, nil
}

// RejectRequest removes a request for either party. A pending request
// declined by its recipient is kept as rejected; a sender cancelling, or
// either side dropping an accepted connection, deletes the row.
func (s *Service) RejectRequest(ctx context.Context, me, id int64) error {
	c, err := s.request(ctx, id)
	if err != nil {
		return err
	}
	if c.Status == entity.Rejected {
		return ErrRequestNotFound
	}
	if !c.Involves(me) {
		return ErrNotParty
	}
	var ok bool
	if c.Status == entity.Pending && c.RecipientID == me {
		ok, err = s.store.TransitionRequest(ctx, id, entity.Pending, entity.Rejected)
	} else {
		ok, err = s.store.DeleteRequest(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("reject request: %w", err)
	}
	if !ok {
		return ErrRequestNotFound
	}
	return nil
}

// List returns the caller's incoming, outgoing or accepted requests.
func (s *Service) List(ctx context.Context, me int64, view entity.ListView) ([]entity.ConnectionUser, error) {
	out, err := s.store.ListRequests(ctx, me, view)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return out, nil
}

// Status reports the connection state between me and other from me's side.
func (s *Service) Status(ctx context.Context, me, other int64) (entity.ConnectionStatus, error) {
	if me == other {
		return entity.ConnectionStatus{}, ErrSelfStatus
	}
	c, err := s.pair(ctx, me, other)
	if err != nil {
		return entity.ConnectionStatus{}, err
	}
	if c == nil || c.Status == entity.Rejected {
		return entity.ConnectionStatus{Status: entity.StatusNone}, nil
	}
	id := c.ID
	switch {
	case c.Status == entity.Accepted:
		return entity.ConnectionStatus{Status: entity.StatusFriend, ConnectionID: &id}, nil
	case c.SenderID == me:
		return entity.ConnectionStatus{Status: entity.StatusSent, ConnectionID: &id}, nil
	default:
		return entity.ConnectionStatus{Status: entity.StatusReceived, ConnectionID: &id}, nil
	}
}
