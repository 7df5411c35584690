package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "session:"

// RedisStore keeps sessions as JSON values that expire together with the
// session
type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(c *redis.Client) *RedisStore {
	return &RedisStore{Client: c}
}

func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := r.Client.Get(ctx, redisPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	s.ID = id

	if s.Expired(time.Now()) {
		return nil, ErrNotFound
	}

	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}

	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}

	return r.Client.Set(ctx, redisPrefix+s.ID, raw, ttl).Err()
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.Client.Del(ctx, redisPrefix+id).Err()
}
