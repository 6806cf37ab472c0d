/*
 * @module service/rate_limiter/redis_rate_limiter_test
 * @description 限流器单元测试；Redis用例在 REDIS_HOST 未设置时跳过
 * @architecture 测试层
 */

package rate_limiter

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis 设置测试用Redis环境
func setupTestRedis(t *testing.T, rule RateLimitRule) *RedisRateLimiter {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("未设置 REDIS_HOST，跳过Redis限流测试")
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}

	limiter, err := NewRedisRateLimiter(fmt.Sprintf("%s:%s", host, port), os.Getenv("REDIS_PASSWORD"), 0, rule)
	require.NoError(t, err, "Redis限流器初始化失败")
	return limiter
}

func TestRedisRateLimiter_Allow(t *testing.T) {
	limiter := setupTestRedis(t, RateLimitRule{TimeWindow: 60, MaxRequests: 3})
	defer limiter.Close()

	ctx := context.Background()
	key := fmt.Sprintf("test-%d", time.Now().UnixNano())
	defer limiter.Reset(ctx, key)

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "第%d次请求应该被允许", i+1)
		assert.Equal(t, 3-i-1, result.Remaining)
	}

	result, err := limiter.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
}

func TestMemoryRateLimiter_Allow(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitRule{TimeWindow: 60, MaxRequests: 2})
	ctx := context.Background()

	first, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)

	second, _ := limiter.Allow(ctx, "10.0.0.1")
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, _ := limiter.Allow(ctx, "10.0.0.1")
	assert.False(t, third.Allowed)

	other, _ := limiter.Allow(ctx, "10.0.0.2")
	assert.True(t, other.Allowed, "不同地址独立计数")
}

func TestMemoryRateLimiter_WindowReset(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitRule{TimeWindow: 10, MaxRequests: 1})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	ctx := context.Background()

	result, _ := limiter.Allow(ctx, "client")
	assert.True(t, result.Allowed)
	result, _ = limiter.Allow(ctx, "client")
	assert.False(t, result.Allowed)

	now = now.Add(11 * time.Second)
	result, _ = limiter.Allow(ctx, "client")
	assert.True(t, result.Allowed, "窗口过期后应重新计数")
}

func TestMemoryRateLimiter_DefaultRule(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitRule{})
	assert.Equal(t, 60, limiter.rule.MaxRequests)
	assert.Equal(t, 60, limiter.rule.TimeWindow)
}

func TestMemoryRateLimiter_Concurrent(t *testing.T) {
	limiter := NewMemoryRateLimiter(RateLimitRule{TimeWindow: 60, MaxRequests: 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.Allow(ctx, "burst")
			if err == nil && result.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

func TestBuildRateLimitKey(t *testing.T) {
	now := time.Unix(120, 0)
	assert.Equal(t, "rate_limit:public_form:1.2.3.4:2", buildRateLimitKey("1.2.3.4", 60, now))
}
