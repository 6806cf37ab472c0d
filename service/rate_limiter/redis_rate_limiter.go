/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 公开表单访问限流，按客户端地址计数
 * @architecture 工具层 - 提供分布式限流能力
 * @stateFlow 构造Key -> Redis计数 -> 判断是否超限
 * @rules 使用Redis INCR和EXPIRE实现固定窗口限流；未配置Redis时使用进程内计数
 * @dependencies github.com/go-redis/redis/v8
 * @refs api/middleware/public_form_access.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed   bool  `json:"allowed"`   // 是否允许请求
	Limit     int   `json:"limit"`     // 限制数量
	Remaining int   `json:"remaining"` // 剩余数量
	ResetAt   int64 `json:"reset_at"`  // 重置时间（Unix时间戳）
}

// RateLimitRule 限流规则
type RateLimitRule struct {
	TimeWindow  int // 时间窗口（秒）
	MaxRequests int // 最大请求数
}

// Limiter 限流器
type Limiter interface {
	Allow(ctx context.Context, key string) (*RateLimitResult, error)
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client *redis.Client
	rule   RateLimitRule
}

// 原子性限流检查
var rateLimitScript = redis.NewScript(`
	local key = KEYS[1]
	local max_requests = tonumber(ARGV[1])
	local window = tonumber(ARGV[2])

	local current = redis.call('GET', key)
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= max_requests then
		local ttl = redis.call('TTL', key)
		if ttl == -1 then
			ttl = window
		end
		return {0, current, ttl}
	end

	local new_count = redis.call('INCR', key)
	if new_count == 1 then
		redis.call('EXPIRE', key, window)
	end

	local ttl = redis.call('TTL', key)
	if ttl == -1 then
		ttl = window
	end

	return {1, new_count, ttl}
`)

// NewRedisRateLimiter 创建Redis限流器
func NewRedisRateLimiter(addr, password string, db int, rule RateLimitRule) (*RedisRateLimiter, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis连接失败: %w", err)
	}

	slog.Info("Redis限流器初始化成功", "redis_addr", addr, "max_requests", rule.MaxRequests, "window", rule.TimeWindow)

	return &RedisRateLimiter{
		client: client,
		rule:   normalizeRule(rule),
	}, nil
}

// Allow 检查并计数
func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitResult, error) {
	redisKey := buildRateLimitKey(key, r.rule.TimeWindow, time.Now())

	result, err := rateLimitScript.Run(ctx, r.client, []string{redisKey}, r.rule.MaxRequests, r.rule.TimeWindow).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", result)
	}
	allowed := values[0].(int64) == 1
	currentCount := int(values[1].(int64))
	ttl := int(values[2].(int64))

	return &RateLimitResult{
		Allowed:   allowed,
		Limit:     r.rule.MaxRequests,
		Remaining: remaining(r.rule.MaxRequests, currentCount),
		ResetAt:   time.Now().Add(time.Duration(ttl) * time.Second).Unix(),
	}, nil
}

// Reset 重置某个Key的计数（仅用于测试或管理）
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, buildRateLimitKey(key, r.rule.TimeWindow, time.Now())).Err()
}

// Close 关闭Redis客户端
func (r *RedisRateLimiter) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// buildRateLimitKey 构造限流Key
func buildRateLimitKey(key string, window int, now time.Time) string {
	currentWindow := now.Unix() / int64(window)
	return fmt.Sprintf("rate_limit:public_form:%s:%d", key, currentWindow)
}

func normalizeRule(rule RateLimitRule) RateLimitRule {
	if rule.TimeWindow <= 0 {
		rule.TimeWindow = 60
	}
	if rule.MaxRequests <= 0 {
		rule.MaxRequests = 60
	}
	return rule
}

func remaining(limit, current int) int {
	if current >= limit {
		return 0
	}
	return limit - current
}
