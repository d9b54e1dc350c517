package router

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/internal/content"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/feed"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/graph"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/profile"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-social-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

// RequestIDHeader carries the per-request id back to the client.
const RequestIDHeader = "X-Request-ID"

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware tags each request with an id and logs it once served.
// Server errors are logged at warn, everything else at debug.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = utilities.NewKSUID()
			}
			w.Header().Set(RequestIDHeader, reqID)
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			fields := []any{
				"request_id", reqID,
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
				"size", lrw.size,
			}
			if status >= http.StatusInternalServerError {
				logger.Warnw("http request", fields...)
				return
			}
			logger.Debugw("http request", fields...)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSConfig lists the browser origins allowed to call the API with cookies.
type CORSConfig struct {
	Origins []string
}

// CORSConfigFromEnv reads CLIENT_URL, a comma separated origin list.
func CORSConfigFromEnv() CORSConfig {
	raw := os.Getenv("CLIENT_URL")
	if raw == "" {
		raw = "http://localhost:5173"
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return CORSConfig{Origins: origins}
}

// CORSMiddleware allows credentialed requests from the configured origins.
func CORSMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
	})
	return c.Handler
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type healthData struct {
	Status string `json:"status"`
}

func healthHandler(db Pinger, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				logger.Warnw("health check: database unreachable", "err", err)
				response.Fail(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		response.OK(w, http.StatusOK, "", healthData{Status: "ok"})
	}
}

// Deps are the handlers and shared services mounted by RegisterRoutes.
type Deps struct {
	DB      Pinger
	Guard   *session.Guard
	CORS    CORSConfig
	User    *user.Handler
	Profile *profile.Handler
	Graph   *graph.Handler
	Content *content.Handler
	Feed    *feed.Handler
}

// RegisterRoutes mounts every endpoint on an http.ServeMux using method
// patterns and wraps it with the shared middlewares.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	auth := d.Guard.Require
	optional := d.Guard.Optional

	mux.HandleFunc("GET /health", healthHandler(d.DB, logger))

	// auth
	mux.HandleFunc("POST /api/auth/register", d.User.Register)
	mux.HandleFunc("POST /api/auth/login", d.User.Login)
	mux.HandleFunc("POST /api/auth/logout", d.User.Logout)
	mux.HandleFunc("POST /api/auth/send-verify-otp", auth(d.User.SendVerifyOTP))
	mux.HandleFunc("POST /api/auth/verify-email", auth(d.User.VerifyEmail))
	mux.HandleFunc("GET /api/auth/is-auth", auth(d.User.IsAuthenticated))
	mux.HandleFunc("POST /api/auth/send-reset-otp", d.User.SendResetOTP)
	mux.HandleFunc("POST /api/auth/reset-password", d.User.ResetPassword)

	// user and profile
	mux.HandleFunc("GET /api/user/data", auth(d.User.Data))
	mux.HandleFunc("GET /api/user/profile", auth(d.Profile.Get))
	mux.HandleFunc("GET /api/user/profile/{userId}", auth(d.Profile.GetByUserID))
	mux.HandleFunc("PUT /api/user/profile", auth(d.Profile.Update))
	mux.HandleFunc("PUT /api/user/profile/username", auth(d.Profile.UpdateUsername))
	mux.HandleFunc("GET /api/user/search", auth(d.Profile.Search))

	// posts
	mux.HandleFunc("POST /api/posts/create", auth(d.Content.CreatePost))
	mux.HandleFunc("GET /api/posts", optional(d.Content.ListPosts))
	mux.HandleFunc("GET /api/posts/{id}", optional(d.Content.GetPost))
	mux.HandleFunc("GET /api/posts/user/{userId}", optional(d.Content.ListUserPosts))
	mux.HandleFunc("PUT /api/posts/{id}/like", auth(d.Content.TogglePostLike))
	mux.HandleFunc("PUT /api/posts/{id}/comments", auth(d.Content.ToggleComments))
	mux.HandleFunc("DELETE /api/posts/{id}", auth(d.Content.DeletePost))

	// comments
	mux.HandleFunc("POST /api/comments/{postId}", auth(d.Content.AddComment))
	mux.HandleFunc("GET /api/comments/{postId}", auth(d.Content.ListComments))
	mux.HandleFunc("PUT /api/comments/{commentId}", auth(d.Content.UpdateComment))
	mux.HandleFunc("DELETE /api/comments/{commentId}", auth(d.Content.DeleteComment))
	mux.HandleFunc("PUT /api/comments/{commentId}/like", auth(d.Content.ToggleCommentLike))
	mux.HandleFunc("GET /api/comments/{commentId}/replies", auth(d.Content.Replies))

	// follows
	mux.HandleFunc("POST /api/follow/{userId}", auth(d.Graph.Follow))
	mux.HandleFunc("DELETE /api/follow/{userId}", auth(d.Graph.Unfollow))
	mux.HandleFunc("GET /api/follow/following", auth(d.Graph.Following))
	mux.HandleFunc("GET /api/follow/followers", auth(d.Graph.Followers))
	mux.HandleFunc("GET /api/follow/status/{userId}", auth(d.Graph.FollowStatus))

	// connections
	mux.HandleFunc("POST /api/connections/send-request", auth(d.Graph.SendConnection))
	mux.HandleFunc("PUT /api/connections/accept/{id}", auth(d.Graph.AcceptConnection))
	mux.HandleFunc("DELETE /api/connections/reject/{id}", auth(d.Graph.RejectConnection))
	mux.HandleFunc("GET /api/connections/pending", auth(d.Graph.Pending()))
	mux.HandleFunc("GET /api/connections/sent", auth(d.Graph.Sent()))
	mux.HandleFunc("GET /api/connections/accepted", auth(d.Graph.Accepted()))
	mux.HandleFunc("GET /api/connections/status/{userId}", auth(d.Graph.ConnectionStatus))

	// feed
	mux.HandleFunc("GET /api/feed/personalized", auth(d.Feed.Personalized))
	mux.HandleFunc("GET /api/feed/user/{userId}", auth(d.Feed.UserFeed))
	mux.HandleFunc("POST /api/feed/refresh", auth(d.Feed.Refresh))

	return LoggingMiddleware(logger)(CORSMiddleware(d.CORS)(SecurityHeadersMiddleware()(mux)))
}
