package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// Store is the persistence the profile service needs.
type Store interface {
	GetView(ctx context.Context, userID int64) (*entity.View, error)
	Ensure(ctx context.Context, userID int64) error
	UsernameTaken(ctx context.Context, username string, exceptUserID int64) (bool, error)
	Update(ctx context.Context, userID int64, p entity.Patch) error
	Search(ctx context.Context, me int64, pattern string, limit, offset int) ([]entity.SearchResult, error)
	CountSearch(ctx context.Context, me int64, pattern string) (int64, error)
}

var (
	ErrUserNotFound        = apperr.NewNotFound("User not found")
	ErrNoFields            = apperr.NewInvalid("At least one field is required to update")
	ErrUsernameTaken       = apperr.NewConflict("Username already exists")
	ErrUsernameRequired    = apperr.NewInvalid("Username is required")
	ErrSearchQueryRequired = apperr.NewInvalid("Search query is required")

	ErrUsernameTooShort = apperr.NewInvalid("Username must be at least 3 characters long")
	ErrUsernameTooLong  = apperr.NewInvalid("Username must be less than 30 characters")
	ErrUsernameChars    = apperr.NewInvalid("Username can only contain letters, numbers, and underscores")
)

var usernameChars = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateUsername enforces 3 to 30 characters of letters, digits and underscores.
func ValidateUsername(s string) error {
	switch {
	case len(s) < 3:
		return ErrUsernameTooShort
	case len(s) > 30:
		return ErrUsernameTooLong
	case !usernameChars.MatchString(s):
		return ErrUsernameChars
	}
	return nil
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the caller's profile, creating a default one on first access.
func (s *Service) Get(ctx context.Context, me int64) (*entity.View, error) {
	if err := s.store.Ensure(ctx, me); err != nil {
		return nil, fmt.Errorf("ensure profile: %w", err)
	}
	return s.view(ctx, me)
}

// GetByUserID returns another user's profile.
func (s *Service) GetByUserID(ctx context.Context, userID int64) (*entity.View, error) {
	return s.view(ctx, userID)
}

func (s *Service) view(ctx context.Context, userID int64) (*entity.View, error) {
	v, err := s.store.GetView(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return v, nil
}

// Update applies p for the caller and returns the fresh profile.
func (s *Service) Update(ctx context.Context, me int64, p entity.Patch) (*entity.View, error) {
	if p.Empty() {
		return nil, ErrNoFields
	}
	if p.Username != nil {
		u := strings.TrimSpace(*p.Username)
		if err := ValidateUsername(u); err != nil {
			return nil, err
		}
		taken, err := s.store.UsernameTaken(ctx, u, me)
		if err != nil {
			return nil, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return nil, ErrUsernameTaken
		}
		p.Username = &u
	}
	if err := s.store.Update(ctx, me, p); err != nil {
		if database.IsUniqueViolation(err, profilerepo.UsernameConstraint) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.view(ctx, me)
}

// UpdateUsername changes only the username.
func (s *Service) UpdateUsername(ctx context.Context, me int64, username string) (*entity.View, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUsernameRequired
	}
	return s.Update(ctx, me, entity.Patch{Username: &username})
}

// Search looks users up by name or username, excluding the caller.
func (s *Service) Search(ctx context.Context, me int64, query string, page utilities.PageParams) ([]entity.SearchResult, utilities.Pagination, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, utilities.Pagination{}, ErrSearchQueryRequired
	}
	pattern := profilerepo.LikePattern(query)
	total, err := s.store.CountSearch(ctx, me, pattern)
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("count search: %w", err)
	}
	rows, err := s.store.Search(ctx, me, pattern, page.Limit, page.Offset())
	if err != nil {
		return nil, utilities.Pagination{}, fmt.Errorf("search users: %w", err)
	}
	for i := range rows {
		switch {
		case rows[i].IsConnected:
			rows[i].ConnectionStatus = entity.StatusConnected
		case rows[i].IsFollowing:
			rows[i].ConnectionStatus = entity.StatusFollowing
		default:
			rows[i].ConnectionStatus = entity.StatusNone
		}
	}
	return rows, utilities.NewPagination(page, total), nil
}
