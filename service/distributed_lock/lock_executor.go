package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LockExecutor 带锁执行器，用于简化锁的使用
type LockExecutor struct {
	lock DistributedLock
}

// NewLockExecutor 创建带锁执行器
func NewLockExecutor(lock DistributedLock) *LockExecutor {
	return &LockExecutor{lock: lock}
}

// ExecuteWithLock 在锁保护下执行函数；锁被其他实例持有时跳过，返回 false
func (e *LockExecutor) ExecuteWithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) (bool, error) {
	locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if !locked {
		slog.Debug("分布式锁: 锁已被其他实例持有，跳过执行", "key", key)
		return false, nil
	}
	defer e.unlock(key)

	return true, fn()
}

// ExecuteWithLockAndRefresh 在锁保护下执行函数，并按间隔自动续期
func (e *LockExecutor) ExecuteWithLockAndRefresh(ctx context.Context, key string, ttl, refreshInterval time.Duration, fn func() error) (bool, error) {
	locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if !locked {
		slog.Debug("分布式锁: 锁已被其他实例持有，跳过执行", "key", key)
		return false, nil
	}
	defer e.unlock(key)

	refreshCtx, cancelRefresh := context.WithCancel(ctx)
	defer cancelRefresh()

	go func() {
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-refreshCtx.Done():
				return
			case <-ticker.C:
				if err := e.lock.Refresh(refreshCtx, key, ttl); err != nil {
					slog.Error("分布式锁: 续期失败", "key", key, "error", err)
				}
			}
		}
	}()

	return true, fn()
}

// unlock 使用独立上下文，调用方上下文取消后仍能释放
func (e *LockExecutor) unlock(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := e.lock.Unlock(ctx, key); err != nil {
		slog.Error("分布式锁: 释放锁失败", "key", key, "error", err)
	}
}
