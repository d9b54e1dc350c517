package user

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile"
	profileentity "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/mail"
)

type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*entity.User
	usernames map[string]int64
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]*entity.User{}, usernames: map[string]int64{}}
}

func (m *memStore) CreateWithProfile(_ context.Context, u *entity.User, p *profileentity.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	p.UserID = u.ID
	m.usernames[p.Username] = u.ID
	return nil
}

func (m *memStore) EmailExists(_ context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	_, ok := m.usernames[username]
	return ok, nil
}

func (m *memStore) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memStore) GetByID(_ context.Context, id int64) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Username(_ context.Context, id int64) (string, error) {
	for name, owner := range m.usernames {
		if owner == id {
			return name, nil
		}
	}
	return "", nil
}

func (m *memStore) SetVerifyOTP(_ context.Context, id int64, otp string, exp int64) error {
	m.users[id].VerifyOTP, m.users[id].VerifyOTPExpireAt = otp, exp
	return nil
}

func (m *memStore) MarkVerified(_ context.Context, id int64) error {
	u := m.users[id]
	u.IsAccountVerified, u.VerifyOTP, u.VerifyOTPExpireAt = true, "", 0
	return nil
}

func (m *memStore) SetResetOTP(_ context.Context, id int64, otp string, exp int64) error {
	m.users[id].ResetOTP, m.users[id].ResetOTPExpireAt = otp, exp
	return nil
}

func (m *memStore) ResetPassword(_ context.Context, id int64, otp, hash string) (bool, error) {
	u := m.users[id]
	if u.ResetOTP == "" || u.ResetOTP != otp {
		return false, nil
	}
	u.PasswordHash, u.ResetOTP, u.ResetOTPExpireAt = hash, "", 0
	return true, nil
}

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func newTestService(t *testing.T) (*UserService, *memStore, *fakeMailer) {
	t.Helper()
	st := newMemStore()
	ml := &fakeMailer{}
	svc := NewUserService(st, BcryptHasher{Cost: bcrypt.MinCost}, ml, zap.NewNop().Sugar())
	svc.otp = func() (string, error) { return "123456", nil }
	return svc, st, ml
}

func TestRegister(t *testing.T) {
	svc, st, ml := newTestService(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "Ann", "Ann@Example.com", "secret", "ann_1")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", u.Email)
	assert.Equal(t, "ann_1", u.Username)
	assert.False(t, u.IsEmailVerified)
	require.Len(t, ml.sent, 1)
	assert.Equal(t, "Welcome to TrueSocial", ml.sent[0].Subject)
	assert.NotEqual(t, "secret", st.users[u.ID].PasswordHash)

	_, err = svc.Register(ctx, "Ann", "ann@example.com", "x", "other")
	assert.ErrorIs(t, err, ErrUserExists)
	assert.Len(t, st.users, 1)

	_, err = svc.Register(ctx, "Bob", "bob@example.com", "x", "ann_1")
	assert.ErrorIs(t, err, ErrUsernameExists)

	_, err = svc.Register(ctx, "", "c@example.com", "x", "ccc")
	assert.ErrorIs(t, err, ErrMissingDetails)
}

func TestRegisterUsernameBounds(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for i, tc := range []struct {
		username string
		want     error
	}{
		{"ab", profile.ErrUsernameTooShort},
		{strings.Repeat("b", 31), profile.ErrUsernameTooLong},
		{"at@sign", profile.ErrUsernameChars},
		{"abc", nil},
		{strings.Repeat("z", 30), nil},
	} {
		email := string(rune('a'+i)) + "@example.com"
		_, err := svc.Register(ctx, "N", email, "pw", tc.username)
		if tc.want == nil {
			assert.NoError(t, err, tc.username)
		} else {
			assert.ErrorIs(t, err, tc.want, tc.username)
		}
	}
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	svc, st, ml := newTestService(t)
	ml.err = errors.New("smtp down")
	_, err := svc.Register(context.Background(), "Ann", "ann@example.com", "pw", "ann")
	require.NoError(t, err)
	assert.Len(t, st.users, 1)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ann", "ann@example.com", "pw", "ann")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrLoginMissing)
	_, err = svc.Login(ctx, "nobody@example.com", "pw")
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = svc.Login(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	u, err := svc.Login(ctx, " ANN@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)
}

func TestVerifyEmailFlow(t *testing.T) {
	svc, st, ml := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "Ann", "ann@example.com", "pw", "ann")
	require.NoError(t, err)

	require.NoError(t, svc.SendVerifyOTP(ctx, u.ID))
	assert.Equal(t, "Account Verification OTP", ml.sent[len(ml.sent)-1].Subject)
	assert.Equal(t, "123456", st.users[u.ID].VerifyOTP)

	assert.ErrorIs(t, svc.VerifyEmail(ctx, u.ID, "000000"), ErrInvalidOTP)

	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	assert.ErrorIs(t, svc.VerifyEmail(ctx, u.ID, "123456"), ErrOTPExpired)
	svc.now = time.Now

	require.NoError(t, svc.VerifyEmail(ctx, u.ID, "123456"))
	assert.True(t, st.users[u.ID].IsAccountVerified)
	assert.Empty(t, st.users[u.ID].VerifyOTP)
	assert.Zero(t, st.users[u.ID].VerifyOTPExpireAt)

	assert.ErrorIs(t, svc.SendVerifyOTP(ctx, u.ID), ErrAlreadyVerified)
}

func TestSendVerifyOTPMailFailure(t *testing.T) {
	svc, _, ml := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "Ann", "ann@example.com", "pw", "ann")
	require.NoError(t, err)
	ml.err = errors.New("down")
	assert.ErrorIs(t, svc.SendVerifyOTP(ctx, u.ID), ErrMailFailed)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	svc, st, ml := newTestService(t)
	ctx := context.Background()
	u, err := svc.Register(ctx, "Ann", "ann@example.com", "old", "ann")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.SendResetOTP(ctx, "missing@example.com"), ErrUserNotFound)
	require.NoError(t, svc.SendResetOTP(ctx, "ann@example.com"))
	assert.Equal(t, "Password reset OTP", ml.sent[len(ml.sent)-1].Subject)
	assert.InDelta(t, time.Now().Add(15*time.Minute).UnixMilli(), st.users[u.ID].ResetOTPExpireAt, 5000)

	assert.ErrorIs(t, svc.ResetPassword(ctx, "ann@example.com", "", "new"), ErrResetMissing)
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ann@example.com", "999999", "new"), ErrInvalidResetOTP)

	require.NoError(t, svc.ResetPassword(ctx, "ann@example.com", "123456", "new"))
	_, err = svc.Login(ctx, "ann@example.com", "new")
	require.NoError(t, err)
	_, err = svc.Login(ctx, "ann@example.com", "old")
	assert.ErrorIs(t, err, ErrInvalidPassword)

	// the code is single use
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ann@example.com", "123456", "again"), ErrInvalidResetOTP)
}

func TestResetOTPExpiry(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ann", "ann@example.com", "old", "ann")
	require.NoError(t, err)
	require.NoError(t, svc.SendResetOTP(ctx, "ann@example.com"))

	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ann@example.com", "123456", "new"), ErrResetOTPExpired)
}

func TestNewOTPShape(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := newOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		assert.NotEqual(t, byte('0'), code[0])
	}
}

// conflictingStore passes the pre-checks and then fails the insert with a
// unique violation, as when another registration commits first.
type conflictingStore struct {
	*memStore
	err error
}

func (c *conflictingStore) CreateWithProfile(context.Context, *entity.User, *profileentity.Profile) error {
	return c.err
}

func TestRegisterMapsUniqueViolations(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		constraint string
		want       error
	}{
		{userrepo.EmailConstraint, ErrUserExists},
		{profilerepo.UsernameConstraint, ErrUsernameExists},
	} {
		st := &conflictingStore{memStore: newMemStore(), err: &pq.Error{Code: "23505", Constraint: tc.constraint}}
		svc := NewUserService(st, BcryptHasher{Cost: bcrypt.MinCost}, &fakeMailer{}, zap.NewNop().Sugar())
		_, err := svc.Register(ctx, "Ann", "ann@example.com", "pw", "ann")
		assert.ErrorIs(t, err, tc.want, tc.constraint)
	}

	st := &conflictingStore{memStore: newMemStore(), err: &pq.Error{Code: "23505", Constraint: "users_pkey"}}
	svc := NewUserService(st, BcryptHasher{Cost: bcrypt.MinCost}, &fakeMailer{}, zap.NewNop().Sugar())
	_, err := svc.Register(ctx, "Ann", "ann@example.com", "pw", "ann")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserExists)
	assert.NotErrorIs(t, err, ErrUsernameExists)
}

func TestPasswordLimitCountsBytes(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	long := strings.Repeat("é", 40)

	_, err := svc.Register(ctx, "Ann", "ann@example.com", long, "ann")
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Empty(t, st.users)

	_, err = svc.Register(ctx, "Ann", "ann@example.com", strings.Repeat("é", 36), "ann")
	require.NoError(t, err)

	require.NoError(t, svc.SendResetOTP(ctx, "ann@example.com"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, "ann@example.com", "123456", long), ErrPasswordTooLong)
	require.NoError(t, svc.ResetPassword(ctx, "ann@example.com", "123456", strings.Repeat("a", 72)))
}
