package nonce

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nonce:"

type redisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore returns a replay cache shared across instances. SET NX with a
// per-key TTL makes the check-and-write atomic on the redis side; redis also
// handles the expiry sweep.
func NewRedisStore(addr, password string, db int, now func() time.Time) (Store, error) {
	if addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if now == nil {
		now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &redisStore{client: client, now: now}, nil
}

func (r *redisStore) Has(ctx context.Context, nonce string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+nonce).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *redisStore) Admit(ctx context.Context, nonce string, expiry time.Time) (bool, error) {
	ttl := expiry.Sub(r.now())
	if ttl <= 0 {
		ttl = time.Second
	}
	ok, err := r.client.SetNX(ctx, redisKeyPrefix+nonce, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
