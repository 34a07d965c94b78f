package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTracker stores entries as JSON under progress:{id} so pollers served by
// another instance see the same progress.
type RedisTracker struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisTracker(rdb *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTracker{rdb: rdb, ttl: ttl}
}

func key(id uint) string {
	return "progress:" + strconv.FormatUint(uint64(id), 10)
}

func (r *RedisTracker) Set(ctx context.Context, id uint, e Entry) error {
	e.UpdatedAt = time.Now().UTC()
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, key(id), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("progress set %d: %w", id, err)
	}
	return nil
}

func (r *RedisTracker) Get(ctx context.Context, id uint) (Entry, error) {
	raw, err := r.rdb.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NotStarted(), nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("progress get %d: %w", id, err)
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("progress decode %d: %w", id, err)
	}
	return e, nil
}

func (r *RedisTracker) Delete(ctx context.Context, id uint) error {
	if err := r.rdb.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("progress delete %d: %w", id, err)
	}
	return nil
}
