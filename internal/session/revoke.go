package session

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Revoker tracks tokens invalidated before their expiry.
type Revoker interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisConfigFromEnv returns the zero config when REDIS_ADDR is unset.
func RedisConfigFromEnv() RedisConfig {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	return RedisConfig{Addr: os.Getenv("REDIS_ADDR"), Password: os.Getenv("REDIS_PASSWORD"), DB: db}
}

// RedisRevoker keeps one key per revoked jti, expiring with the token.
type RedisRevoker struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisRevoker(rdb *redis.Client) *RedisRevoker {
	return &RedisRevoker{rdb: rdb, now: time.Now}
}

func revokedKey(jti string) string { return "session:revoked:" + jti }

func (r *RedisRevoker) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedKey(jti), "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// NopRevoker is used when no redis is configured; logout then only clears the cookie.
type NopRevoker struct{}

func (NopRevoker) Revoke(context.Context, string, time.Time) error { return nil }
func (NopRevoker) IsRevoked(context.Context, string) (bool, error) { return false, nil }
