package user

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile"
	profileentity "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/apperr"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/mail"
)

const (
	verifyOTPTTL = 24 * time.Hour
	resetOTPTTL  = 15 * time.Minute

	// bcrypt only hashes the first 72 bytes and refuses longer input.
	maxPasswordBytes = 72
)

// PasswordHasher defines minimal hashing interface.
type PasswordHasher interface {
	Hash(pw string) (string, error)
	Verify(hash, pw string) bool
}

// BcryptHasher implementation.
type BcryptHasher struct{ Cost int }

func (b BcryptHasher) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (b BcryptHasher) Verify(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// Store is the account persistence used by UserService.
type Store interface {
	CreateWithProfile(ctx context.Context, u *entity.User, p *profileentity.Profile) error
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id int64) (*entity.User, error)
	Username(ctx context.Context, id int64) (string, error)
	SetVerifyOTP(ctx context.Context, id int64, otp string, expireAt int64) error
	MarkVerified(ctx context.Context, id int64) error
	SetResetOTP(ctx context.Context, id int64, otp string, expireAt int64) error
	ResetPassword(ctx context.Context, id int64, otp, hash string) (bool, error)
}

var (
	ErrMissingDetails  = apperr.NewInvalid("Missing details")
	ErrUserExists      = apperr.NewConflict("User already exists")
	ErrUsernameExists  = apperr.NewConflict("Username already exists")
	ErrLoginMissing    = apperr.NewInvalid("Email and password are required")
	ErrNotRegistered   = apperr.NewNotFound("User is not registered!")
	ErrInvalidPassword = apperr.NewUnauthorized("Invalid password")
	ErrUserNotFound    = apperr.NewNotFound("User not found")
	ErrAlreadyVerified = apperr.NewConflict("Account already verified")
	ErrInvalidOTP      = apperr.NewInvalid("Invalid OTP")
	ErrOTPExpired      = apperr.NewInvalid("OTP Expired")
	ErrEmailRequired   = apperr.NewInvalid("Email is required")
	ErrResetMissing    = apperr.NewInvalid("Email, OTP and new Password are required")
	ErrInvalidResetOTP = apperr.NewInvalid("Invalid Otp")
	ErrResetOTPExpired = apperr.NewInvalid("OTP expired")
	ErrMailFailed      = apperr.NewUnavailable("Failed to send email, please try again")
	ErrPasswordTooLong = apperr.NewInvalid("Password must be at most 72 bytes long")
)

// UserService orchestrates registration, login and the OTP flows.
type UserService struct {
	store  Store
	hasher PasswordHasher
	mailer mail.Sender
	logger *zap.SugaredLogger
	now    func() time.Time
	otp    func() (string, error)
}

func NewUserService(store Store, hasher PasswordHasher, mailer mail.Sender, logger *zap.SugaredLogger) *UserService {
	if hasher == nil {
		hasher = BcryptHasher{Cost: 10}
	}
	return &UserService{store: store, hasher: hasher, mailer: mailer, logger: logger, now: time.Now, otp: newOTP}
}

// newOTP returns a uniformly random 6-digit code.
func newOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// Register creates account and profile, then sends a best-effort welcome mail.
func (s *UserService) Register(ctx context.Context, name, email, password, username string) (*entity.PublicUser, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	if name == "" || email == "" || password == "" || username == "" {
		return nil, ErrMissingDetails
	}
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}
	if err := profile.ValidateUsername(username); err != nil {
		return nil, err
	}
	exists, err := s.store.EmailExists(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}
	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameExists
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &entity.User{Name: name, Email: email, PasswordHash: hash}
	p := &profileentity.Profile{Username: username, Bio: profileentity.DefaultBio}
	if err := s.store.CreateWithProfile(ctx, u, p); err != nil {
		switch {
		case database.IsUniqueViolation(err, userrepo.EmailConstraint):
			return nil, ErrUserExists
		case database.IsUniqueViolation(err, profilerepo.UsernameConstraint):
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.mailer.Send(ctx, mail.Welcome(u.Email, u.Name)); err != nil {
		s.logger.Warnw("welcome mail failed", "user_id", u.ID, "err", err)
	}
	return &entity.PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Username: p.Username}, nil
}

// Login checks credentials by email.
func (s *UserService) Login(ctx context.Context, email, password string) (*entity.PublicUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrLoginMissing
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}
	return s.public(ctx, u)
}

func (s *UserService) public(ctx context.Context, u *entity.User) (*entity.PublicUser, error) {
	username, err := s.store.Username(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("get username: %w", err)
	}
	return &entity.PublicUser{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		Username:        username,
		IsEmailVerified: u.IsAccountVerified,
	}, nil
}

func (s *UserService) byID(ctx context.Context, id int64) (*entity.User, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// Data returns the name and verification state of id.
func (s *UserService) Data(ctx context.Context, id int64) (*entity.Data, error) {
	u, err := s.byID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entity.Data{Name: u.Name, IsAccountVerified: u.IsAccountVerified}, nil
}

// SendVerifyOTP issues a 24h verification code to the account's email.
func (s *UserService) SendVerifyOTP(ctx context.Context, id int64) error {
	u, err := s.byID(ctx, id)
	if err != nil {
		return err
	}
	if u.IsAccountVerified {
		return ErrAlreadyVerified
	}
	code, err := s.otp()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.store.SetVerifyOTP(ctx, u.ID, code, s.now().Add(verifyOTPTTL).UnixMilli()); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.mailer.Send(ctx, mail.VerifyOTP(u.Email, code)); err != nil {
		s.logger.Warnw("verify otp mail failed", "user_id", u.ID, "err", err)
		return ErrMailFailed
	}
	return nil
}

// VerifyEmail consumes the verification code.
func (s *UserService) VerifyEmail(ctx context.Context, id int64, otp string) error {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return ErrMissingDetails
	}
	u, err := s.byID(ctx, id)
	if err != nil {
		return err
	}
	if u.VerifyOTP == "" || !constantTimeEqual(u.VerifyOTP, otp) {
		return ErrInvalidOTP
	}
	if u.VerifyOTPExpireAt < s.now().UnixMilli() {
		return ErrOTPExpired
	}
	if err := s.store.MarkVerified(ctx, u.ID); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	return nil
}

// SendResetOTP issues a 15 minute password reset code.
func (s *UserService) SendResetOTP(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ErrEmailRequired
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	code, err := s.otp()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	if err := s.store.SetResetOTP(ctx, u.ID, code, s.now().Add(resetOTPTTL).UnixMilli()); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := s.mailer.Send(ctx, mail.ResetOTP(u.Email, code)); err != nil {
		s.logger.Warnw("reset otp mail failed", "user_id", u.ID, "err", err)
		return ErrMailFailed
	}
	return nil
}

// ResetPassword consumes the reset code and stores the new password.
func (s *UserService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	otp = strings.TrimSpace(otp)
	if email == "" || otp == "" || newPassword == "" {
		return ErrResetMissing
	}
	if len(newPassword) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	u, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("get user: %w", err)
	}
	if u.ResetOTP == "" || !constantTimeEqual(u.ResetOTP, otp) {
		return ErrInvalidResetOTP
	}
	if u.ResetOTPExpireAt < s.now().UnixMilli() {
		return ErrResetOTPExpired
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	ok, err := s.store.ResetPassword(ctx, u.ID, otp, hash)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if !ok {
		// consumed by a concurrent request
		return ErrInvalidResetOTP
	}
	return nil
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
