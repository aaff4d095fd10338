package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"threatlens/internal/pkg/logger"
	"threatlens/internal/pkg/models"
)

// Implements ResultCache with Redis as the backing store. Results are
// stored as JSON under a key prefix with a TTL, so repeated submissions of
// the same content are served without re-running the pipeline.
type redisCache struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// Creates a new Redis-backed result cache and verifies the connection.
func NewRedisCache(host, port, password string, db int, ttl time.Duration) (ResultCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password, // "" if no auth
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Log.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	logger.Log.Info("Connected to Redis successfully",
		zap.String("host", host),
		zap.String("port", port),
	)

	return &redisCache{
		client:    rdb,
		keyPrefix: "analysis_results:",
		ttl:       ttl,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (*models.AnalysisResult, bool) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			// On Redis errors, treat as a miss so analysis still runs
			logger.Log.Error("Redis cache lookup failed", zap.Error(err))
		}
		return nil, false
	}

	var result models.AnalysisResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logger.Log.Warn("Failed to decode cached analysis result", zap.Error(err))
		return nil, false
	}
	return &result, true
}

func (c *redisCache) Put(ctx context.Context, key string, result *models.AnalysisResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		logger.Log.Error("Failed to encode analysis result for cache", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, c.ttl).Err(); err != nil {
		logger.Log.Error("Failed to store analysis result in Redis", zap.Error(err))
	}
}
