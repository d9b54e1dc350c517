package session

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-social-go/pkg/response"
)

type contextKey string

const claimsKey contextKey = "sessionClaims"

const msgNotAuthorized = "Not Authorized. Login again!"

// Guard resolves the session token to a user id for downstream handlers.
type Guard struct {
	tokens  *Tokens
	revoker Revoker
	logger  *zap.SugaredLogger
}

func NewGuard(tokens *Tokens, revoker Revoker, logger *zap.SugaredLogger) *Guard {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	return &Guard{tokens: tokens, revoker: revoker, logger: logger}
}

// Tokens exposes the issuer used by the guard.
func (g *Guard) Tokens() *Tokens { return g.tokens }

// Revoker exposes the revocation store used by the guard.
func (g *Guard) Revoker() Revoker { return g.revoker }

// Authenticate returns the claims for r, or nil if it carries no usable token.
func (g *Guard) Authenticate(r *http.Request) *Claims {
	raw := FromRequest(r)
	if raw == "" {
		return nil
	}
	claims, err := g.tokens.Parse(raw)
	if err != nil {
		return nil
	}
	revoked, err := g.revoker.IsRevoked(r.Context(), claims.RegisteredClaims.ID)
	if err != nil {
		// a revocation store outage must not lock every user out
		g.logger.Warnw("revocation lookup failed", "err", err)
		return claims
	}
	if revoked {
		return nil
	}
	return claims
}

// Require rejects requests without a valid session.
func (g *Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := g.Authenticate(r)
		if claims == nil {
			response.Fail(w, http.StatusUnauthorized, msgNotAuthorized)
			return
		}
		next(w, r.WithContext(WithClaims(r.Context(), claims)))
	}
}

// Optional attaches the session when present and never rejects.
func (g *Guard) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if claims := g.Authenticate(r); claims != nil {
			r = r.WithContext(WithClaims(r.Context(), claims))
		}
		next(w, r)
	}
}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserID returns the authenticated user id, or 0.
func UserID(ctx context.Context) int64 {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.ID
	}
	return 0
}
