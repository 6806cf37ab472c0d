package distributed_lock

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLock 进程内锁，未配置Redis的单实例部署使用
type MemoryLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryLock 创建进程内锁
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// TryLock 尝试获取锁，已过期的锁视为未持有
func (m *MemoryLock) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expiresAt, ok := m.expires[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Unlock 释放锁
func (m *MemoryLock) Unlock(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, key)
	return nil
}

// Refresh 刷新锁的过期时间
func (m *MemoryLock) Refresh(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.expires[key]; !ok {
		return fmt.Errorf("锁 %s 不存在", key)
	}
	m.expires[key] = m.now().Add(ttl)
	return nil
}
