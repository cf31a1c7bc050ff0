package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"portal-backend/shared/config"
	"portal-backend/shared/logger"
)

// CacheManager caches session id -> user id lookups in redis. A nil
// *CacheManager is valid and behaves as an always-empty cache.
type CacheManager struct {
	client *redis.Client
}

const sessionKeyPrefix = "session:"

// InitCacheManager connects to redis using REDIS_* settings.
func InitCacheManager(ctx context.Context) (*CacheManager, error) {
	cfg := config.GetConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDBIndex(),
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.L().Info("redis session cache initialized",
		zap.String("addr", cfg.RedisAddr()),
		zap.Int("db", cfg.RedisDBIndex()),
	)

	return &CacheManager{client: client}, nil
}

// NewCacheManager wraps an existing client.
func NewCacheManager(client *redis.Client) *CacheManager {
	return &CacheManager{client: client}
}

func SessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// SetSession remembers that sessionID belongs to userID for ttl.
func (cm *CacheManager) SetSession(ctx context.Context, sessionID string, userID uuid.UUID, ttl time.Duration) error {
	if cm == nil || ttl <= 0 {
		return nil
	}
	return cm.client.Set(ctx, SessionKey(sessionID), userID.String(), ttl).Err()
}

// GetSession returns the cached owner of sessionID.
func (cm *CacheManager) GetSession(ctx context.Context, sessionID string) (uuid.UUID, bool) {
	if cm == nil {
		return uuid.Nil, false
	}

	val, err := cm.client.Get(ctx, SessionKey(sessionID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithContext(ctx).Warn("session cache read failed", zap.Error(err))
		}
		return uuid.Nil, false
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// InvalidateSessions drops cached entries for the given session ids.
func (cm *CacheManager) InvalidateSessions(ctx context.Context, sessionIDs ...string) error {
	if cm == nil || len(sessionIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(sessionIDs))
	for _, id := range sessionIDs {
		keys = append(keys, SessionKey(id))
	}
	return cm.client.Del(ctx, keys...).Err()
}

// TestConnection pings redis.
func (cm *CacheManager) TestConnection(ctx context.Context) error {
	if cm == nil {
		return errors.New("cache manager not initialized")
	}
	return cm.client.Ping(ctx).Err()
}

func (cm *CacheManager) Close() error {
	if cm == nil {
		return nil
	}
	return cm.client.Close()
}
