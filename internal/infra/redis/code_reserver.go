package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeReserver claims freshly generated session codes with SETNX so two
// concurrent creates on different connections cannot race to the same
// code. The store uniqueness check remains the final authority; the
// reservation just short-circuits the obvious collisions.
type CodeReserver struct {
	client *redis.Client
	ttl    time.Duration
}

func NewCodeReserver(client *redis.Client, ttl time.Duration) *CodeReserver {
	return &CodeReserver{client: client, ttl: ttl}
}

func (r *CodeReserver) Reserve(ctx context.Context, code string) (bool, error) {
	return r.client.SetNX(ctx, r.key(code), "1", r.ttl).Result()
}

func (r *CodeReserver) key(code string) string {
	return "quiz:code:" + code
}
