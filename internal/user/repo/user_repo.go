package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	profileentity "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
)

// EmailConstraint is the unique constraint on users.email.
const EmailConstraint = "users_email_key"

const userColumns = `id, name, email, password_hash, is_account_verified,
	verify_otp, verify_otp_expire_at, reset_otp, reset_otp_expire_at, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// CreateWithProfile inserts the account and its profile in one transaction.
func (r *UserRepo) CreateWithProfile(ctx context.Context, u *entity.User, p *profileentity.Profile) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const q = `INSERT INTO users (name, email, password_hash)
			VALUES (:name, :email, :password_hash)
			RETURNING id, created_at, updated_at`
		rows, err := sqlx.NamedQueryContext(ctx, tx, q, u)
		if err != nil {
			return err
		}
		if !rows.Next() {
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			return errors.New("no id returned")
		}
		if err := rows.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		p.UserID = u.ID
		return profilerepo.Insert(ctx, tx, p)
	})
}

// EmailExists reports whether an account uses email (case-insensitive via citext).
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM users WHERE email=$1)`, email)
	return ok, err
}

// UsernameTaken reports whether any profile owns username.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE username=$1)`, username)
	return ok, err
}

// GetByEmail returns a user matched by email or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	var u entity.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// Username returns the profile username of id, or "" if it has no profile.
func (r *UserRepo) Username(ctx context.Context, id int64) (string, error) {
	var s string
	err := r.db.GetContext(ctx, &s, `SELECT COALESCE((SELECT username FROM user_profiles WHERE user_id=$1), '')`, id)
	return s, err
}

// SetVerifyOTP stores a verification code and its expiry.
func (r *UserRepo) SetVerifyOTP(ctx context.Context, id int64, otp string, expireAt int64) error {
	const q = `UPDATE users SET verify_otp=$2, verify_otp_expire_at=$3, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, otp, expireAt)
	return err
}

// MarkVerified flips the verified flag and clears the verification code.
func (r *UserRepo) MarkVerified(ctx context.Context, id int64) error {
	const q = `UPDATE users SET is_account_verified=true, verify_otp='', verify_otp_expire_at=0, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetResetOTP stores a password reset code and its expiry.
func (r *UserRepo) SetResetOTP(ctx context.Context, id int64, otp string, expireAt int64) error {
	const q = `UPDATE users SET reset_otp=$2, reset_otp_expire_at=$3, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id, otp, expireAt)
	return err
}

// ResetPassword stores hash and clears the reset code, but only while otp is
// still the stored code. It reports false when the code was already consumed.
func (r *UserRepo) ResetPassword(ctx context.Context, id int64, otp, hash string) (bool, error) {
	const q = `UPDATE users SET password_hash=$3, reset_otp='', reset_otp_expire_at=0, updated_at=NOW()
		WHERE id=$1 AND reset_otp=$2 AND reset_otp <> ''`
	res, err := r.db.ExecContext(ctx, q, id, otp, hash)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
