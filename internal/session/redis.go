package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions as redis keys with a TTL, so every server
// process sharing the redis instance sees the same logins.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore stores keys as "<namespace>:session:<hash>".
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: namespace + ":session:"}
}

func (r *RedisStore) Save(ctx context.Context, tokenHash, user string, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+tokenHash, user, ttl).Err()
}

func (r *RedisStore) Lookup(ctx context.Context, tokenHash string) (string, bool, error) {
	user, err := r.rdb.Get(ctx, r.prefix+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user, true, nil
}

func (r *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	return r.rdb.Del(ctx, r.prefix+tokenHash).Err()
}
