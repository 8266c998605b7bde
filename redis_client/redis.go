package redis_client

import (
	"context"
	"time"

	"github.com/Strum355/log"
	"github.com/redis/go-redis/v9"
)

// New connects to redis at addr. A failed ping is returned alongside the
// client so callers can decide to run without a cache.
func New(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return rdb, err
	}

	log.WithFields(log.Fields{"address": addr}).Info("Connected to redis")
	return rdb, nil
}
