package rolecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"feedback-hub/internal/models"
)

const keyPrefix = "feedback:role:"

// Redis shares role entries between replicas. Failures are logged and
// reported as misses so callers fall back to the user store.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewRedis(client *redis.Client, ttl time.Duration, log zerolog.Logger) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl, log: log.With().Str("component", "rolecache").Logger()}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("rolecache: ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Put(ctx context.Context, userID string, role models.Role) {
	if userID == "" {
		return
	}
	if err := r.client.Set(ctx, keyPrefix+userID, string(role), r.ttl).Err(); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("role cache put failed")
	}
}

func (r *Redis) Get(ctx context.Context, userID string) (models.Role, bool) {
	v, err := r.client.Get(ctx, keyPrefix+userID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.log.Warn().Err(err).Str("user_id", userID).Msg("role cache get failed")
		}
		return "", false
	}
	role, ok := models.ParseRole(v)
	return role, ok
}
