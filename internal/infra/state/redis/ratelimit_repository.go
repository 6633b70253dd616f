package redisstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/abdulaziz-backend/pixelpainter/internal/repository"
)

// RedisRateLimitRepository 是 RateLimitRepository 接口的 Redis 实现
type RedisRateLimitRepository struct {
	client    *redis.Client
	keyPrefix string // Redis key 前缀，方便与其他应用共用实例
}

// NewRedisRateLimitRepository 创建 RedisRateLimitRepository 实例
func NewRedisRateLimitRepository(client *redis.Client, keyPrefix string) *RedisRateLimitRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisRateLimitRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "pp:" // 默认前缀 "pp:" (pixel painter)
	}
	return &RedisRateLimitRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisRateLimitRepository) rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", r.keyPrefix, key)
}

// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
func (r *RedisRateLimitRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	fullKey := r.rateLimitKey(key)
	// 使用 Pipeline 减少网络往返
	pipe := r.client.Pipeline()
	// INCR 原子地增加计数器并返回新值
	incrCmd := pipe.Incr(ctx, fullKey)
	// 设置或刷新过期时间
	pipe.Expire(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return false, err
		}
		return false, fmt.Errorf("%w: rate limit pipeline on key %s: %v", repository.ErrUnavailable, fullKey, err)
	}
	count, err := incrCmd.Result()
	if err != nil {
		return false, fmt.Errorf("redis: failed to get incr result for rate limit on key %s: %w", fullKey, err)
	}
	// 计数大于限制即为超限
	return count > int64(limit), nil
}
