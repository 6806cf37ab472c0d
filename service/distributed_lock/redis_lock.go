/*
 * @module service/distributed_lock/redis_lock
 * @description Redis分布式锁，多实例部署时保证对账和清理任务同一时间只在一个实例执行
 * @architecture 工具层 - 提供分布式锁能力
 * @stateFlow 获取锁 -> 执行任务 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，只有持有者可以续期和释放
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/scheduler/reconciler.go, service/cleanup/event_cleanup_service.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
	// Refresh 刷新锁的过期时间
	Refresh(ctx context.Context, key string, ttl time.Duration) error
}

var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

var refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
else
	return 0
end
`)

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     *redis.Client
	instanceID string // 锁的持有者标识
}

// NewRedisLock 创建Redis分布式锁
func NewRedisLock(addr, password string, db int) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	slog.Info("Redis分布式锁初始化成功", "instance_id", instanceID(), "redis_addr", addr)
	return &RedisLock{
		client:     client,
		instanceID: instanceID(),
	}, nil
}

// TryLock 尝试获取锁
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(key), r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if ok {
		slog.Debug("分布式锁: 成功获取锁", "key", key, "ttl", ttl, "instance", r.instanceID)
	}
	return ok, nil
}

// Unlock 释放锁，锁已被其他实例持有时只记录日志
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	result, err := unlockScript.Run(ctx, r.client, []string{lockKey(key)}, r.instanceID).Int64()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}
	if result == 0 {
		slog.Warn("分布式锁: 锁不存在或已被其他实例持有", "key", key, "instance", r.instanceID)
	}
	return nil
}

// Refresh 刷新锁的过期时间
func (r *RedisLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	result, err := refreshScript.Run(ctx, r.client, []string{lockKey(key)}, r.instanceID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("刷新锁失败: %w", err)
	}
	if result == 0 {
		return fmt.Errorf("锁 %s 不存在或已被其他实例持有", key)
	}
	return nil
}

// Close 关闭Redis客户端
func (r *RedisLock) Close() error {
	return r.client.Close()
}

func lockKey(key string) string {
	return fmt.Sprintf("formbuilder:lock:%s", key)
}

// instanceID 主机名+进程ID
func instanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s:%d", hostname, os.Getpid())
}
