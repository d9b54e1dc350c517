package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph/entity"
	profilerepo "github.com/ovaphlow/pitchfork/service-social-go/internal/profile/repo"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/database"
)

// PairIndex is the unique index allowing one connection request per unordered pair.
const PairIndex = "uq_connection_requests_pair"

// GraphRepo stores follow edges and connection requests.
type GraphRepo struct {
	db *sqlx.DB
}

func NewGraphRepo(db *sqlx.DB) *GraphRepo { return &GraphRepo{db: db} }

func (r *GraphRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.db.GetContext(ctx, &ok, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, id)
	return ok, err
}

// Follow creates the edge follower -> followee together with any missing
// profiles of both users. It reports false when the edge already existed.
func (r *GraphRepo) Follow(ctx context.Context, follower, followee int64) (bool, error) {
	var created bool
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, id := range []int64{follower, followee} {
			if err := profilerepo.EnsureProfile(ctx, tx, id); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			follower, followee)
		if err != nil {
			return fmt.Errorf("insert follow: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		created = n == 1
		return nil
	})
	return created, err
}

// Unfollow removes the edge and reports whether it existed.
func (r *GraphRepo) Unfollow(ctx context.Context, follower, followee int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM follows WHERE follower_id=$1 AND followee_id=$2`, follower, followee)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

const followUserColumns = `u.id, u.name, u.email,
	COALESCE(up.username, '') AS username,
	COALESCE(up.profile_picture, '') AS profile_picture,
	f.created_at AS followed_at`

// Following lists the users userID follows, newest first.
func (r *GraphRepo) Following(ctx context.Context, userID int64) ([]entity.FollowUser, error) {
	q := `SELECT ` + followUserColumns + `
	  FROM follows f
	  JOIN users u ON u.id = f.followee_id
	  LEFT JOIN user_profiles up ON up.user_id = u.id
	  WHERE f.follower_id = $1
	  ORDER BY f.created_at DESC`
	out := []entity.FollowUser{}
	err := r.db.SelectContext(ctx, &out, q, userID)
	return out, err
}

// Followers lists the users following userID, newest first.
func (r *GraphRepo) Followers(ctx context.Context, userID int64) ([]entity.FollowUser, error) {
	q := `SELECT ` + followUserColumns + `
	  FROM follows f
	  JOIN users u ON u.id = f.follower_id
	  LEFT JOIN user_profiles up ON up.user_id = u.id
	  WHERE f.followee_id = $1
	  ORDER BY f.created_at DESC`
	out := []entity.FollowUser{}
	err := r.db.SelectContext(ctx, &out, q, userID)
	return out, err
}

// FollowStatus reports the follow edges in both directions.
func (r *GraphRepo) FollowStatus(ctx context.Context, me, other int64) (entity.FollowStatus, error) {
	const q = `SELECT
		EXISTS (SELECT 1 FROM follows WHERE follower_id=$1 AND followee_id=$2) AS is_following,
		EXISTS (SELECT 1 FROM follows WHERE follower_id=$2 AND followee_id=$1) AS is_followed_by`
	var st entity.FollowStatus
	if err := r.db.GetContext(ctx, &st, q, me, other); err != nil {
		return st, err
	}
	st.IsMutual = st.IsFollowing && st.IsFollowedBy
	return st, nil
}

const requestColumns = `id, sender_id, recipient_id, status, created_at, updated_at`

// GetRequest returns a request by id or sql.ErrNoRows.
func (r *GraphRepo) GetRequest(ctx context.Context, id int64) (*entity.ConnectionRequest, error) {
	var c entity.ConnectionRequest
	if err := r.db.GetContext(ctx, &c, `SELECT `+requestColumns+` FROM connection_requests WHERE id=$1`, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetPair returns the request between a and b in either direction, or sql.ErrNoRows.
func (r *GraphRepo) GetPair(ctx context.Context, a, b int64) (*entity.ConnectionRequest, error) {
	q := `SELECT ` + requestColumns + ` FROM connection_requests
	  WHERE LEAST(sender_id, recipient_id) = LEAST($1::bigint, $2::bigint)
	    AND GREATEST(sender_id, recipient_id) = GREATEST($1::bigint, $2::bigint)`
	var c entity.ConnectionRequest
	if err := r.db.GetContext(ctx, &c, q, a, b); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateRequest inserts a pending request. A concurrent request for the same
// pair fails with a unique violation on PairIndex.
func (r *GraphRepo) CreateRequest(ctx context.Context, from, to int64) (*entity.ConnectionRequest, error) {
	q := `INSERT INTO connection_requests (sender_id, recipient_id, status) VALUES ($1, $2, 'pending')
	  RETURNING ` + requestColumns
	var c entity.ConnectionRequest
	if err := r.db.GetContext(ctx, &c, q, from, to); err != nil {
		return nil, err
	}
	return &c, nil
}

// ReopenRequest turns a rejected request into a pending one sent from -> to.
func (r *GraphRepo) ReopenRequest(ctx context.Context, id, from, to int64) (bool, error) {
	const q = `UPDATE connection_requests
	  SET sender_id=$2, recipient_id=$3, status='pending', created_at=NOW(), updated_at=NOW()
	  WHERE id=$1 AND status='rejected'`
	return r.affectedOne(ctx, q, id, from, to)
}

// TransitionRequest moves a request from one status to another and reports
// false if it was not in the expected status.
func (r *GraphRepo) TransitionRequest(ctx context.Context, id int64, from, to entity.RequestStatus) (bool, error) {
	const q = `UPDATE connection_requests SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2`
	return r.affectedOne(ctx, q, id, string(from), string(to))
}

// DeleteRequest removes the request and reports whether it existed.
func (r *GraphRepo) DeleteRequest(ctx context.Context, id int64) (bool, error) {
	return r.affectedOne(ctx, `DELETE FROM connection_requests WHERE id=$1`, id)
}

func (r *GraphRepo) affectedOne(ctx context.Context, q string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ListRequests returns the requests of userID selected by view, with the other party's profile.
func (r *GraphRepo) ListRequests(ctx context.Context, userID int64, view entity.ListView) ([]entity.ConnectionUser, error) {
	var where string
	switch view {
	case entity.Incoming:
		where = `c.recipient_id = $1 AND c.status = 'pending'`
	case entity.Outgoing:
		where = `c.sender_id = $1 AND c.status = 'pending'`
	case entity.Friends:
		where = `(c.sender_id = $1 OR c.recipient_id = $1) AND c.status = 'accepted'`
	default:
		return nil, fmt.Errorf("unknown list view %d", view)
	}
	q := `SELECT c.id AS connection_id, u.id AS user_id, u.name, u.email,
		COALESCE(up.username, '') AS username,
		COALESCE(up.profile_picture, '') AS profile_picture,
		c.status, c.created_at
	  FROM connection_requests c
	  JOIN users u ON u.id = CASE WHEN c.sender_id = $1 THEN c.recipient_id ELSE c.sender_id END
	  LEFT JOIN user_profiles up ON up.user_id = u.id
	  WHERE ` + where + `
	  ORDER BY c.updated_at DESC`
	out := []entity.ConnectionUser{}
	err := r.db.SelectContext(ctx, &out, q, userID)
	return out, err
}
