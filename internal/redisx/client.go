package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Deduper remembers processed event ids for one consumer name.
type Deduper struct {
	rdb      redis.Cmdable
	consumer string
	ttl      time.Duration
}

func NewDeduper(rdb redis.Cmdable, consumer string) *Deduper {
	return &Deduper{rdb: rdb, consumer: consumer, ttl: TTLDedup}
}

// FirstSeen marks id as processed and reports whether this call was the
// first to do so.
func (d *Deduper) FirstSeen(ctx context.Context, id string) (bool, error) {
	key := fmt.Sprintf(KeyDedup, d.consumer, id)
	ok, err := d.rdb.SetNX(ctx, key, "1", d.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("dedup %s: %w", key, err)
	}
	return ok, nil
}
