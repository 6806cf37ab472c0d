package rate_limiter

import (
	"context"
	"sync"
	"time"
)

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryRateLimiter 进程内固定窗口限流器，用于未配置Redis的单实例部署
type MemoryRateLimiter struct {
	mu       sync.Mutex
	rule     RateLimitRule
	counters map[string]*windowCounter
	now      func() time.Time
}

// NewMemoryRateLimiter 创建进程内限流器
func NewMemoryRateLimiter(rule RateLimitRule) *MemoryRateLimiter {
	return &MemoryRateLimiter{
		rule:     normalizeRule(rule),
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// Allow 检查并计数
func (m *MemoryRateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	counter, ok := m.counters[key]
	if !ok || !now.Before(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(time.Duration(m.rule.TimeWindow) * time.Second)}
		m.counters[key] = counter
		m.evictExpired(now)
	}

	result := &RateLimitResult{
		Limit:   m.rule.MaxRequests,
		ResetAt: counter.resetAt.Unix(),
	}
	if counter.count >= m.rule.MaxRequests {
		return result, nil
	}

	counter.count++
	result.Allowed = true
	result.Remaining = remaining(m.rule.MaxRequests, counter.count)
	return result, nil
}

// evictExpired 清理过期窗口，调用方持有锁
func (m *MemoryRateLimiter) evictExpired(now time.Time) {
	for key, counter := range m.counters {
		if !now.Before(counter.resetAt) {
			delete(m.counters, key)
		}
	}
}
