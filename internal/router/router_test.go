package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func newTestRouter(t *testing.T, db Pinger) http.Handler {
	t.Helper()
	tokens, err := session.NewTokens(session.Config{Secret: "test-secret"})
	require.NoError(t, err)
	return RegisterRoutes(zap.NewNop().Sugar(), Deps{
		DB:    db,
		Guard: session.NewGuard(tokens, nil, zap.NewNop().Sugar()),
		CORS:  CORSConfig{Origins: []string{"http://localhost:5173"}},
	})
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t, pingFunc(func(context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ok"}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestHealthReportsDatabaseOutage(t *testing.T) {
	h := newTestRouter(t, pingFunc(func(context.Context) error { return errors.New("down") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc123", rec.Header().Get(RequestIDHeader))
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	h := newTestRouter(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/user/data"},
		{http.MethodPost, "/api/posts/create"},
		{http.MethodPut, "/api/posts/1/like"},
		{http.MethodPost, "/api/follow/2"},
		{http.MethodPut, "/api/connections/accept/3"},
		{http.MethodGet, "/api/feed/personalized"},
		{http.MethodGet, "/api/comments/4/replies"},
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.path)
		assert.JSONEq(t, `{"success":false,"message":"Not Authorized. Login again!"}`, rec.Body.String(), tc.path)
	}
}

func TestUnknownMethodIsRejected(t *testing.T) {
	h := newTestRouter(t, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/posts/create", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCORSPreflightAllowsClientOrigin(t *testing.T) {
	h := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSConfigFromEnv(t *testing.T) {
	t.Setenv("CLIENT_URL", "http://a.example, http://b.example")
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, CORSConfigFromEnv().Origins)
	t.Setenv("CLIENT_URL", "")
	assert.Equal(t, []string{"http://localhost:5173"}, CORSConfigFromEnv().Origins)
}
