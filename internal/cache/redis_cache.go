package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Cheertaboi/coupon-service/internal/models"
)

const keyPrefix = "coupon:"

// RedisCache shares coupon definitions between service instances.
type RedisCache struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(rdb redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

// NewRedisClient connects to Redis and verifies it answers.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, code string) (*models.Coupon, bool) {
	raw, err := c.rdb.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get", zap.String("code", code), zap.Error(err))
		}
		return nil, false
	}
	var coupon models.Coupon
	if err := json.Unmarshal(raw, &coupon); err != nil {
		c.logger.Warn("redis decode", zap.String("code", code), zap.Error(err))
		return nil, false
	}
	return &coupon, true
}

func (c *RedisCache) Set(ctx context.Context, coupon *models.Coupon) {
	cp := coupon.Clone()
	cp.UsageHistory = nil
	raw, err := json.Marshal(cp)
	if err != nil {
		c.logger.Warn("redis encode", zap.String("code", coupon.Code), zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, keyPrefix+coupon.Code, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set", zap.String("code", coupon.Code), zap.Error(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, code string) {
	if err := c.rdb.Del(ctx, keyPrefix+code).Err(); err != nil {
		c.logger.Warn("redis del", zap.String("code", code), zap.Error(err))
	}
}
