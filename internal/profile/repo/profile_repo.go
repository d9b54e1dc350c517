package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile/entity"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
)

// UsernameConstraint is the unique constraint guarding usernames.
const UsernameConstraint = "user_profiles_username_key"

const maxUsernameAttempts = 50

// ProfileRepo provides data access for user_profiles using sqlx.
type ProfileRepo struct {
	db *sqlx.DB
}

func NewProfileRepo(db *sqlx.DB) *ProfileRepo { return &ProfileRepo{db: db} }

// Insert stores a new profile using q, which may be a transaction.
func Insert(ctx context.Context, q sqlx.ExtContext, p *entity.Profile) error {
	if p.Bio == "" {
		p.Bio = entity.DefaultBio
	}
	const stmt = `INSERT INTO user_profiles (user_id, username, bio, profile_picture, cover_picture, location)
		VALUES (:user_id, :username, :bio, :profile_picture, :cover_picture, :location)
		RETURNING id, created_at, updated_at`
	rows, err := sqlx.NamedQueryContext(ctx, q, stmt, p)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return errors.New("no id returned")
	}
	return rows.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// EnsureProfile creates a default profile for userID if it has none.
// The generated username is user_<id>, suffixed with _<n> until unused.
func EnsureProfile(ctx context.Context, q sqlx.ExtContext, userID int64) error {
	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE user_id=$1)`, userID); err != nil {
		return fmt.Errorf("check profile: %w", err)
	}
	if exists {
		return nil
	}
	username, err := freeUsername(ctx, q, fmt.Sprintf("user_%d", userID))
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO user_profiles (user_id, username, bio) VALUES ($1, $2, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err := q.ExecContext(ctx, stmt, userID, username, entity.DefaultBio); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func freeUsername(ctx context.Context, q sqlx.ExtContext, base string) (string, error) {
	for i := 0; i < maxUsernameAttempts; i++ {
		candidate := base
		if i > 0 {
			candidate = fmt.Sprintf("%s_%d", base, i)
		}
		var taken bool
		if err := sqlx.GetContext(ctx, q, &taken, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE username=$1)`, candidate); err != nil {
			return "", fmt.Errorf("check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free username for %s", base)
}

// Ensure creates the default profile for userID if missing.
func (r *ProfileRepo) Ensure(ctx context.Context, userID int64) error {
	return EnsureProfile(ctx, r.db, userID)
}

const viewColumns = `u.id AS user_id, u.name, u.email, u.is_account_verified, u.created_at,
	COALESCE(up.username, '') AS username,
	COALESCE(up.bio, '') AS bio,
	COALESCE(up.profile_picture, '') AS profile_picture,
	COALESCE(up.cover_picture, '') AS cover_picture,
	COALESCE(up.location, '') AS location,
	(SELECT COUNT(*) FROM follows f WHERE f.followee_id = u.id) AS followers_count,
	(SELECT COUNT(*) FROM follows f WHERE f.follower_id = u.id) AS following_count`

// GetView returns the profile of userID with account fields and counters, or sql.ErrNoRows.
func (r *ProfileRepo) GetView(ctx context.Context, userID int64) (*entity.View, error) {
	q := `SELECT ` + viewColumns + `,
		(SELECT COUNT(*) FROM connection_requests c
		  WHERE c.status = 'accepted' AND (c.sender_id = u.id OR c.recipient_id = u.id)) AS connections_count
	  FROM users u
	  LEFT JOIN user_profiles up ON up.user_id = u.id
	  WHERE u.id = $1`
	var v entity.View
	if err := r.db.GetContext(ctx, &v, q, userID); err != nil {
		return nil, err
	}
	return &v, nil
}

// UsernameTaken reports whether another user already owns username.
func (r *ProfileRepo) UsernameTaken(ctx context.Context, username string, exceptUserID int64) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM user_profiles WHERE username=$1 AND user_id <> $2)`, username, exceptUserID)
	return taken, err
}

// Update applies p to the profile of userID, creating the profile first if needed.
func (r *ProfileRepo) Update(ctx context.Context, userID int64, p entity.Patch) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := EnsureProfile(ctx, tx, userID); err != nil {
			return err
		}
		const q = `UPDATE user_profiles SET
			username = COALESCE($2, username),
			bio = COALESCE($3, bio),
			profile_picture = COALESCE($4, profile_picture),
			cover_picture = COALESCE($5, cover_picture),
			location = COALESCE($6, location),
			updated_at = NOW()
		  WHERE user_id = $1`
		_, err := tx.ExecContext(ctx, q, userID, p.Username, p.Bio, p.ProfilePicture, p.CoverPicture, p.Location)
		return err
	})
}

// LikePattern escapes LIKE metacharacters in s and wraps it for a substring match.
func LikePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

const searchWhere = `FROM users u
	  LEFT JOIN user_profiles up ON up.user_id = u.id
	  WHERE (u.name ILIKE $1 OR up.username ILIKE $1) AND u.id <> $2`

// Search finds users whose name or username contains the pattern. Name matches rank first.
func (r *ProfileRepo) Search(ctx context.Context, me int64, pattern string, limit, offset int) ([]entity.SearchResult, error) {
	q := `SELECT ` + viewColumns + `,
		EXISTS (SELECT 1 FROM follows f WHERE f.follower_id = $2 AND f.followee_id = u.id) AS is_following,
		EXISTS (SELECT 1 FROM connection_requests c
		  WHERE c.status = 'accepted'
		    AND ((c.sender_id = $2 AND c.recipient_id = u.id) OR (c.sender_id = u.id AND c.recipient_id = $2))) AS is_connected
	  ` + searchWhere + `
	  ORDER BY CASE WHEN u.name ILIKE $1 THEN 1 WHEN up.username ILIKE $1 THEN 2 ELSE 3 END, u.created_at DESC
	  LIMIT $3 OFFSET $4`
	out := []entity.SearchResult{}
	if err := r.db.SelectContext(ctx, &out, q, pattern, me, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// CountSearch counts all matches of Search.
func (r *ProfileRepo) CountSearch(ctx context.Context, me int64, pattern string) (int64, error) {
	var n int64
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) `+searchWhere, pattern, me)
	return n, err
}
