package repo

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph/entity"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var requestCols = []string{"id", "sender_id", "recipient_id", "status", "created_at", "updated_at"}

func TestGetPairMatchesEitherDirection(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("LEAST(sender_id, recipient_id) = LEAST($1::bigint, $2::bigint)")).
		WithArgs(int64(2), int64(1)).
		WillReturnRows(sqlmock.NewRows(requestCols).AddRow(int64(5), int64(1), int64(2), "pending", now, now))

	c, err := NewGraphRepo(db).GetPair(context.Background(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(5), c.ID)
	assert.Equal(t, int64(1), c.SenderID)
	assert.Equal(t, entity.Pending, c.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPairNoRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM connection_requests")).
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows(requestCols))

	_, err := NewGraphRepo(db).GetPair(context.Background(), 1, 3)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRequestsFiltersByView(t *testing.T) {
	cols := []string{"connection_id", "user_id", "name", "email", "username", "profile_picture", "status", "created_at"}
	cases := []struct {
		view  entity.ListView
		where string
	}{
		{entity.Incoming, "WHERE c.recipient_id = $1 AND c.status = 'pending'"},
		{entity.Outgoing, "WHERE c.sender_id = $1 AND c.status = 'pending'"},
		{entity.Friends, "WHERE (c.sender_id = $1 OR c.recipient_id = $1) AND c.status = 'accepted'"},
	}
	for _, tc := range cases {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta(tc.where)).
			WithArgs(int64(4)).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(int64(9), int64(8), "Ann", "ann@example.com", "ann", "", "pending", time.Now()))

		out, err := NewGraphRepo(db).ListRequests(context.Background(), 4, tc.view)
		require.NoError(t, err, tc.where)
		require.Len(t, out, 1)
		assert.Equal(t, int64(9), out[0].ConnectionID)
		assert.Equal(t, int64(8), out[0].UserID)
		assert.NoError(t, mock.ExpectationsWereMet(), tc.where)
	}
}

func TestListRequestsUnknownView(t *testing.T) {
	db, _ := newMock(t)
	_, err := NewGraphRepo(db).ListRequests(context.Background(), 4, entity.ListView(42))
	assert.Error(t, err)
}

func TestTransitionRequestIsConditional(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE connection_requests SET status=$3, updated_at=NOW() WHERE id=$1 AND status=$2")).
		WithArgs(int64(5), "pending", "accepted").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := NewGraphRepo(db).TransitionRequest(context.Background(), 5, entity.Pending, entity.Accepted)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
