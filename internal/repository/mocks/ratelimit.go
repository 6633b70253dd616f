// Package mocks 提供基于 testify/mock 的 Repository 模拟实现，仅供测试使用。
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// RateLimitRepository 是 repository.RateLimitRepository 的 Mock 实现
type RateLimitRepository struct {
	mock.Mock
}

func (m *RateLimitRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
