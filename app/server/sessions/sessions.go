package sessions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("session entry not found")
	ErrLockNotHeld = errors.New("lock not held")
)

// Store 会话缓存：每个用户当前有效的刷新令牌、密码重置标记，以及一个
// 通用的互斥原语。生产环境用 Redis 实现，测试用 Memory 实现。
type Store interface {
	// 刷新令牌：每个用户只保留最近一次签发的值，旧值被覆盖后即失效
	PutRefreshToken(ctx context.Context, userID uint, token string, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, userID uint) (string, error)
	DeleteRefreshToken(ctx context.Context, userID uint) error

	// 密码重置标记：确认重置后删除，保证重置令牌只能使用一次
	PutResetToken(ctx context.Context, userID uint, token string, ttl time.Duration) error
	GetResetToken(ctx context.Context, userID uint) (string, error)
	DeleteResetToken(ctx context.Context, userID uint) error

	// 带超时的互斥原语，为跨进程协调预留
	Acquire(ctx context.Context, name string, ttl time.Duration) (owner string, err error)
	Release(ctx context.Context, name string, owner string) error

	// 健康检查
	Ping(ctx context.Context) error
}

// AcquireRetry 反复尝试获取锁，直到成功、遇到意外错误或次数用尽。
// 次数用尽时返回 ErrLockNotHeld 。
func AcquireRetry(ctx context.Context, s Store, name string, ttl time.Duration, attempts int, wait time.Duration) (string, error) {
	for i := 0; i < attempts; i++ {
		owner, err := s.Acquire(ctx, name, ttl)
		if err == nil {
			return owner, nil
		}
		if !errors.Is(err, ErrLockNotHeld) {
			return "", err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return "", ErrLockNotHeld
}
