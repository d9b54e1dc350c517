package graph

import (
	"context"
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph/entity"
	graphrepo "github.com/ovaphlow/pitchfork/service-social-go/internal/graph/repo"
)

type edge struct{ from, to int64 }

type memGraph struct {
	users    map[int64]bool
	follows  map[edge]bool
	requests map[int64]*entity.ConnectionRequest
	nextID   int64
}

func newMemGraph(users ...int64) *memGraph {
	m := &memGraph{users: map[int64]bool{}, follows: map[edge]bool{}, requests: map[int64]*entity.ConnectionRequest{}}
	for _, u := range users {
		m.users[u] = true
	}
	return m
}

func (m *memGraph) UserExists(_ context.Context, id int64) (bool, error) { return m.users[id], nil }

func (m *memGraph) Follow(_ context.Context, a, b int64) (bool, error) {
	if m.follows[edge{a, b}] {
		return false, nil
	}
	m.follows[edge{a, b}] = true
	return true, nil
}

func (m *memGraph) Unfollow(_ context.Context, a, b int64) (bool, error) {
	if !m.follows[edge{a, b}] {
		return false, nil
	}
	delete(m.follows, edge{a, b})
	return true, nil
}

func (m *memGraph) Following(_ context.Context, id int64) ([]entity.FollowUser, error) {
	out := []entity.FollowUser{}
	for e := range m.follows {
		if e.from == id {
			out = append(out, entity.FollowUser{ID: e.to})
		}
	}
	return out, nil
}

func (m *memGraph) Followers(_ context.Context, id int64) ([]entity.FollowUser, error) {
	out := []entity.FollowUser{}
	for e := range m.follows {
		if e.to == id {
			out = append(out, entity.FollowUser{ID: e.from})
		}
	}
	return out, nil
}

func (m *memGraph) FollowStatus(_ context.Context, me, other int64) (entity.FollowStatus, error) {
	st := entity.FollowStatus{IsFollowing: m.follows[edge{me, other}], IsFollowedBy: m.follows[edge{other, me}]}
	st.IsMutual = st.IsFollowing && st.IsFollowedBy
	return st, nil
}

func (m *memGraph) GetRequest(_ context.Context, id int64) (*entity.ConnectionRequest, error) {
	c, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (m *memGraph) GetPair(_ context.Context, a, b int64) (*entity.ConnectionRequest, error) {
	for _, c := range m.requests {
		if c.Involves(a) && c.Involves(b) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memGraph) CreateRequest(_ context.Context, from, to int64) (*entity.ConnectionRequest, error) {
	m.nextID++
	c := &entity.ConnectionRequest{ID: m.nextID, SenderID: from, RecipientID: to, Status: entity.Pending}
	m.requests[c.ID] = c
	cp := *c
	return &cp, nil
}

func (m *memGraph) ReopenRequest(_ context.Context, id, from, to int64) (bool, error) {
	c, ok := m.requests[id]
	if !ok || c.Status != entity.Rejected {
		return false, nil
	}
	c.SenderID, c.RecipientID, c.Status = from, to, entity.Pending
	return true, nil
}

func (m *memGraph) TransitionRequest(_ context.Context, id int64, from, to entity.RequestStatus) (bool, error) {
	c, ok := m.requests[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *memGraph) DeleteRequest(_ context.Context, id int64) (bool, error) {
	if _, ok := m.requests[id]; !ok {
		return false, nil
	}
	delete(m.requests, id)
	return true, nil
}

func (m *memGraph) ListRequests(_ context.Context, id int64, view entity.ListView) ([]entity.ConnectionUser, error) {
	out := []entity.ConnectionUser{}
	for _, c := range m.requests {
		var match bool
		switch view {
		case entity.Incoming:
			match = c.RecipientID == id && c.Status == entity.Pending
		case entity.Outgoing:
			match = c.SenderID == id && c.Status == entity.Pending
		case entity.Friends:
			match = c.Involves(id) && c.Status == entity.Accepted
		}
		if match {
			out = append(out, entity.ConnectionUser{ConnectionID: c.ID, Status: c.Status})
		}
	}
	return out, nil
}

func TestFollowRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemGraph(1, 2))

	assert.ErrorIs(t, svc.Follow(ctx, 1, 1), ErrSelfFollow)
	assert.ErrorIs(t, svc.Follow(ctx, 1, 9), ErrUserNotFound)
	require.NoError(t, svc.Follow(ctx, 1, 2))
	assert.ErrorIs(t, svc.Follow(ctx, 1, 2), ErrAlreadyFollowing)

	st, err := svc.FollowStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.FollowStatus{IsFollowing: true}, st)

	require.NoError(t, svc.Follow(ctx, 2, 1))
	st, err = svc.FollowStatus(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, st.IsMutual)

	_, err = svc.FollowStatus(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrSelfFollowStatus)

	assert.ErrorIs(t, svc.Unfollow(ctx, 1, 1), ErrSelfUnfollow)
	require.NoError(t, svc.Unfollow(ctx, 1, 2))
	assert.ErrorIs(t, svc.Unfollow(ctx, 1, 2), ErrNotFollowing)

	followers, err := svc.Followers(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, followers, 1)
}

func TestSendRequestRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemGraph(1, 2))

	_, err := svc.SendRequest(ctx, 1, 0)
	assert.ErrorIs(t, err, ErrTargetRequired)
	_, err = svc.SendRequest(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrSelfConnect)
	_, err = svc.SendRequest(ctx, 1, 7)
	assert.ErrorIs(t, err, ErrUserNotFound)

	c, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.Pending, c.Status)

	_, err = svc.SendRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrAlreadySent)
	_, err = svc.SendRequest(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrIncomingPending)

	_, err = svc.AcceptRequest(ctx, 2, c.ID)
	require.NoError(t, err)
	_, err = svc.SendRequest(ctx, 2, 1)
	assert.ErrorIs(t, err, ErrAlreadyConnected)
}

func TestAcceptRequestRules(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemGraph(1, 2))

	_, err := svc.AcceptRequest(ctx, 2, 99)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	c, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, 1, c.ID)
	assert.ErrorIs(t, err, ErrNotRecipient)

	got, err := svc.AcceptRequest(ctx, 2, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.Accepted, got.Status)

	_, err = svc.AcceptRequest(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrAlreadyAccepted)

	friends, err := svc.List(ctx, 1, entity.Friends)
	require.NoError(t, err)
	assert.Len(t, friends, 1)
}

func TestRejectAndReopen(t *testing.T) {
	ctx := context.Background()
	g := newMemGraph(1, 2, 3)
	svc := NewService(g)

	c, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.RejectRequest(ctx, 3, c.ID), ErrNotParty)

	require.NoError(t, svc.RejectRequest(ctx, 2, c.ID))
	assert.Equal(t, entity.Rejected, g.requests[c.ID].Status)
	assert.ErrorIs(t, svc.RejectRequest(ctx, 2, c.ID), ErrRequestNotFound)

	_, err = svc.AcceptRequest(ctx, 2, c.ID)
	assert.ErrorIs(t, err, ErrNotPending)

	// the rejected row is reused in the new direction
	again, err := svc.SendRequest(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, int64(2), g.requests[c.ID].SenderID)
	assert.Equal(t, entity.Pending, g.requests[c.ID].Status)

	// sender cancels
	require.NoError(t, svc.RejectRequest(ctx, 2, c.ID))
	assert.Empty(t, g.requests)
}

func TestRejectAcceptedDisconnects(t *testing.T) {
	ctx := context.Background()
	g := newMemGraph(1, 2)
	svc := NewService(g)

	c, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, 2, c.ID)
	require.NoError(t, err)

	require.NoError(t, svc.RejectRequest(ctx, 1, c.ID))
	assert.Empty(t, g.requests)
}

func TestConnectionStatus(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemGraph(1, 2))

	_, err := svc.Status(ctx, 1, 1)
	assert.ErrorIs(t, err, ErrSelfStatus)

	st, err := svc.Status(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusNone, st.Status)
	assert.Nil(t, st.ConnectionID)

	c, err := svc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	st, err = svc.Status(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusSent, st.Status)
	require.NotNil(t, st.ConnectionID)
	assert.Equal(t, c.ID, *st.ConnectionID)

	st, err = svc.Status(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReceived, st.Status)

	pending, err := svc.List(ctx, 2, entity.Incoming)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.AcceptRequest(ctx, 2, c.ID)
	require.NoError(t, err)
	st, err = svc.Status(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFriend, st.Status)
}

// racingGraph lets another request for the pair land just before the insert,
// which then fails on the pair index the way postgres reports it.
type racingGraph struct {
	*memGraph
	rival edge
}

func (r *racingGraph) CreateRequest(ctx context.Context, _, _ int64) (*entity.ConnectionRequest, error) {
	if _, err := r.memGraph.CreateRequest(ctx, r.rival.from, r.rival.to); err != nil {
		return nil, err
	}
	return nil, &pq.Error{Code: "23505", Constraint: graphrepo.PairIndex}
}

func TestSendRequestPairIndexViolation(t *testing.T) {
	ctx := context.Background()

	svc := NewService(&racingGraph{memGraph: newMemGraph(1, 2), rival: edge{1, 2}})
	_, err := svc.SendRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrAlreadySent)

	svc = NewService(&racingGraph{memGraph: newMemGraph(1, 2), rival: edge{2, 1}})
	_, err = svc.SendRequest(ctx, 1, 2)
	assert.ErrorIs(t, err, ErrIncomingPending)
}

type failingCreate struct {
	*memGraph
	err error
}

func (f *failingCreate) CreateRequest(context.Context, int64, int64) (*entity.ConnectionRequest, error) {
	return nil, f.err
}

func TestSendRequestOtherConstraintIsInternal(t *testing.T) {
	boom := &pq.Error{Code: "23503", Constraint: "connection_requests_recipient_id_fkey"}
	svc := NewService(&failingCreate{memGraph: newMemGraph(1, 2), err: boom})
	_, err := svc.SendRequest(context.Background(), 1, 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrAlreadySent)
}
