package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jan-sahayak/server/internal/agent/model"
	errx "github.com/jan-sahayak/server/internal/core/error"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

// RedisSessionRepository stores each session as one JSON value.
type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisSessionRepository returns a store. A ttl of zero keeps sessions forever.
func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisSessionRepository) sessionKey(threadID string) string {
	return fmt.Sprintf("session:%s", threadID)
}

func (r *RedisSessionRepository) Load(ctx context.Context, threadID string) (*model.Session, error) {
	key := r.sessionKey(threadID)

	b, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		}
		return nil, errx.WrapRedis(err)
	}
	s, err := decodeSession(b)
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to decode session")
		return nil, err
	}
	return s, nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, s *model.Session) error {
	b, err := encodeSession(s)
	if err != nil {
		logx.Error().Err(err).Msg("failed to marshal session")
		return err
	}
	key := r.sessionKey(s.ThreadID)

	// extend TTL on touch; zero keeps the key without expiry
	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save session to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Clear(ctx context.Context, threadID string) error {
	key := r.sessionKey(threadID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete session from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)
