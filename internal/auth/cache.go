package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"billsplit/internal/models"
)

// UserCache remembers which user a session belongs to so that repeat
// requests skip the session lookup.
type UserCache interface {
	Get(ctx context.Context, sessionID string) (*models.User, bool)
	Set(ctx context.Context, sessionID string, user *models.User, ttl time.Duration)
	Delete(ctx context.Context, sessionID string)
}

type noCache struct{}

func (noCache) Get(context.Context, string) (*models.User, bool)           { return nil, false }
func (noCache) Set(context.Context, string, *models.User, time.Duration) {}
func (noCache) Delete(context.Context, string)                           {}

// RedisUserCache stores session users in Redis. The password hash is never
// cached.
type RedisUserCache struct {
	client *redis.Client
}

// NewRedisUserCache creates a cache over client.
func NewRedisUserCache(client *redis.Client) *RedisUserCache {
	return &RedisUserCache{client: client}
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("session:%s:user", sessionID)
}

// Get returns the cached user for sessionID.
func (r *RedisUserCache) Get(ctx context.Context, sessionID string) (*models.User, bool) {
	data, err := r.client.Get(ctx, cacheKey(sessionID)).Result()
	if err != nil {
		if err != redis.Nil {
			slog.Error("Redis GET failed", "error", err)
		}
		return nil, false
	}

	var user models.User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		slog.Warn("Failed to unmarshal cached user", "error", err)
		return nil, false
	}
	return &user, true
}

// Set caches user for sessionID for ttl.
func (r *RedisUserCache) Set(ctx context.Context, sessionID string, user *models.User, ttl time.Duration) {
	data, err := json.Marshal(user)
	if err != nil {
		slog.Error("Failed to marshal user for caching", "error", err, "user_id", user.ID)
		return
	}
	if err := r.client.Set(ctx, cacheKey(sessionID), data, ttl).Err(); err != nil {
		slog.Error("Redis SET failed", "error", err, "user_id", user.ID)
	}
}

// Delete drops the cached user for sessionID.
func (r *RedisUserCache) Delete(ctx context.Context, sessionID string) {
	if err := r.client.Del(ctx, cacheKey(sessionID)).Err(); err != nil {
		slog.Error("Redis DEL failed", "error", err)
	}
}
