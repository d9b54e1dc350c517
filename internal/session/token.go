package session

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-social-go/pkg/utilities"
)

const (
	CookieName = "token"
	DefaultTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

type Config struct {
	Secret     string
	TTL        time.Duration
	Production bool
}

// ConfigFromEnv reads JWT_SECRET and NODE_ENV.
func ConfigFromEnv() Config {
	return Config{
		Secret:     os.Getenv("JWT_SECRET"),
		TTL:        DefaultTTL,
		Production: os.Getenv("NODE_ENV") == "production",
	}
}

// Claims is the signed session payload.
type Claims struct {
	ID int64 `json:"id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 session tokens and shapes the session cookie.
type Tokens struct {
	secret     []byte
	ttl        time.Duration
	production bool
	now        func() time.Time
}

func NewTokens(cfg Config) (*Tokens, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Tokens{secret: []byte(cfg.Secret), ttl: ttl, production: cfg.Production, now: time.Now}, nil
}

// Issue signs a token for userID. The jti is a KSUID so logout can revoke it.
func (t *Tokens) Issue(userID int64) (string, *Claims, error) {
	now := t.now()
	claims := &Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utilities.NewKSUID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Parse verifies signature and expiry.
func (t *Tokens) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || !tok.Valid || claims.ID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *Tokens) cookie(value string, maxAge int) *http.Cookie {
	c := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   maxAge,
		SameSite: http.SameSiteStrictMode,
	}
	if t.production {
		c.Secure = true
		c.SameSite = http.SameSiteNoneMode
	}
	return c
}

// SetCookie writes the session cookie.
func (t *Tokens) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, t.cookie(token, int(t.ttl.Seconds())))
}

// ClearCookie expires the session cookie.
func (t *Tokens) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, t.cookie("", -1))
}

// FromRequest extracts the raw token from the cookie or a Bearer header.
func FromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
