package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenRepo is the refresh token denylist.  Revoked token ids (jti) are kept
// in Redis until the token would have expired on its own, so the set never
// grows beyond the live tokens.
type TokenRepo struct {
	rdb    *redis.Client
	prefix string
}

func NewTokenRepo(rdb *redis.Client) *TokenRepo {
	return &TokenRepo{rdb: rdb, prefix: "auth:revoked:"}
}

// Add denylists jti for ttl.
func (r *TokenRepo) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return errors.New("empty token id")
	}
	return r.rdb.Set(ctx, r.prefix+jti, 1, ttl).Err()
}

// Contains reports whether jti has been revoked.
func (r *TokenRepo) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
