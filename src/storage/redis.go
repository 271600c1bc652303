package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"means-server/src/helpers"
	"means-server/src/logger"
	"means-server/src/models"

	"github.com/redis/go-redis/v9"
)

const (
	redisSessionsKey     = "means:sessions"
	redisClosedChannel   = "means:sessions.closed"
	redisMaxSessionsKept = 10000
)

// -----------------------------------------------------------------------------
// RedisArchive keeps summaries in a capped list (newest first) and publishes
// each one on a channel for external consumers.
// -----------------------------------------------------------------------------

type RedisArchive struct {
	Config *models.MConfig
	Logger *logger.Logger
	client *redis.Client
}

// -----------------------------------------------------------------------------

func NewRedisArchive(cfg *models.MConfig, log *logger.Logger) *RedisArchive {
	return &RedisArchive{
		Config: cfg,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

func (r *RedisArchive) Initialize(ctx context.Context) error {
	r.client = redis.NewClient(&redis.Options{
		Addr:     r.Config.Storage.RedisAddr,
		Password: r.Config.Storage.RedisPassword,
		DB:       r.Config.Storage.RedisDB,
	})

	err := helpers.RetryWithBackoff(ctx, r.Logger, "redis ping", 5, 500*time.Millisecond, func() error {
		return r.client.Ping(ctx).Err()
	})
	if err != nil {
		r.client.Close()
		return helpers.NewDatabaseError("redis ping", err)
	}

	r.Logger.Info("RedisArchive connected to %s", r.Config.Storage.RedisAddr)
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisArchive) SaveSessionSummary(ctx context.Context, s models.MSessionSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return helpers.NewDatabaseError("marshal session summary", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, redisSessionsKey, payload)
	pipe.LTrim(ctx, redisSessionsKey, 0, redisMaxSessionsKept-1)
	pipe.Publish(ctx, redisClosedChannel, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return helpers.NewDatabaseError(fmt.Sprintf("save session %s", s.ID), err)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisArchive) RecentSessions(ctx context.Context, limit int) ([]models.MSessionSummary, error) {
	items, err := r.client.LRange(ctx, redisSessionsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, helpers.NewDatabaseError("read session list", err)
	}

	result := make([]models.MSessionSummary, 0, len(items))
	for _, item := range items {
		var s models.MSessionSummary
		if err := json.Unmarshal([]byte(item), &s); err != nil {
			r.Logger.Warning("Skipping malformed session summary: %v", err)
			continue
		}
		result = append(result, s)
	}
	return result, nil
}

// -----------------------------------------------------------------------------

// CleanupOldData pops summaries off the old end of the list until one is newer than cutoff
func (r *RedisArchive) CleanupOldData(ctx context.Context, cutoff time.Time) error {
	removed := 0
	for {
		item, err := r.client.LIndex(ctx, redisSessionsKey, -1).Result()
		if err == redis.Nil {
			break
		}
		if err != nil {
			return helpers.NewDatabaseError("inspect session list", err)
		}

		var s models.MSessionSummary
		if err := json.Unmarshal([]byte(item), &s); err == nil && !s.ClosedAt.Before(cutoff) {
			break
		}

		if err := r.client.RPop(ctx, redisSessionsKey).Err(); err != nil && err != redis.Nil {
			return helpers.NewDatabaseError("trim session list", err)
		}
		removed++
	}

	if removed > 0 {
		r.Logger.Info("Cleanup removed %d session summaries older than %s", removed, cutoff.Format(time.RFC3339))
	}
	return nil
}

// -----------------------------------------------------------------------------

func (r *RedisArchive) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
