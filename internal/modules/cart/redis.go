package cart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// cartTTL keeps abandoned carts around for a month before Redis expires them.
const cartTTL = 30 * 24 * time.Hour

// RedisStore keeps carts as JSON values in Redis.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed cart store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, key string) (*Cart, error) {
	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return NewCart(key), nil
	}
	if err != nil {
		return nil, err
	}

	c := &Cart{}
	if err := json.Unmarshal([]byte(val), c); err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = make(map[uuid.UUID]int)
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, c.Key, data, cartTTL).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
