package repository

import (
	"context"
	"time"
)

// RateLimitRepository 定义了请求计数相关的操作，通常由 Redis 实现。
type RateLimitRepository interface {
	// CheckRateLimit 检查给定 key 的请求频率是否超限，并递增计数。
	// 返回 true 如果超限，false 如果未超限。
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
