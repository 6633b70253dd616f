package repository

import "errors"

// 通用的存储库错误
var (
	// ErrUnavailable 表示底层存储暂时不可用 (例如 Redis 连接失败)
	ErrUnavailable = errors.New("repository: backend unavailable")
)
