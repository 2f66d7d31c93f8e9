package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/certification-service/internal/domain"
	"github.com/spec-kit/certification-service/internal/repository"
)

// RevocationCache is a fast lookup in front of the revoked token table.
type RevocationCache interface {
	Add(ctx context.Context, jti string, ttl time.Duration) error
	Contains(ctx context.Context, jti string) (bool, error)
}

// RedisRevocationCache stores one key per revoked jti that expires with the token.
type RedisRevocationCache struct {
	client *redis.Client
	prefix string
}

func NewRedisRevocationCache(client *redis.Client, prefix string) *RedisRevocationCache {
	return &RedisRevocationCache{client: client, prefix: prefix + "revoked:"}
}

func (c *RedisRevocationCache) Add(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, c.prefix+jti, 1, ttl).Err()
}

func (c *RedisRevocationCache) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevocationList records logged-out tokens. The store is authoritative and the
// optional cache only short-circuits lookups.
type RevocationList struct {
	tokens repository.RevokedTokenRepository
	cache  RevocationCache
	logger *zap.Logger
	now    func() time.Time
}

func NewRevocationList(tokens repository.RevokedTokenRepository, cache RevocationCache, logger *zap.Logger) *RevocationList {
	return &RevocationList{tokens: tokens, cache: cache, logger: logger, now: time.Now}
}

// Revoke blacklists jti until expiresAt.
func (l *RevocationList) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if err := l.tokens.Create(ctx, &domain.RevokedToken{
		ID:        uuid.NewString(),
		JTI:       jti,
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}
	if l.cache != nil {
		if err := l.cache.Add(ctx, jti, expiresAt.Sub(l.now())); err != nil {
			l.logger.Warn("failed to cache revoked token", zap.String("jti", jti), zap.Error(err))
		}
	}
	return nil
}

func (l *RevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if l.cache != nil {
		hit, err := l.cache.Contains(ctx, jti)
		if err == nil && hit {
			return true, nil
		}
		if err != nil {
			l.logger.Warn("revoked token cache lookup failed", zap.Error(err))
		}
	}
	return l.tokens.Exists(ctx, jti)
}
