package distributed_lock

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLock(t *testing.T) {
	lock := NewMemoryLock()
	current := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return current }
	ctx := context.Background()

	ok, err := lock.TryLock(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = lock.TryLock(ctx, "reconcile", time.Minute)
	assert.False(t, ok, "持有期间不能重复获取")

	ok, _ = lock.TryLock(ctx, "cleanup", time.Minute)
	assert.True(t, ok, "不同的键互不影响")

	current = current.Add(2 * time.Minute)
	ok, _ = lock.TryLock(ctx, "reconcile", time.Minute)
	assert.True(t, ok, "过期后可以重新获取")

	require.NoError(t, lock.Unlock(ctx, "reconcile"))
	assert.Error(t, lock.Refresh(ctx, "reconcile", time.Minute))
}

func TestLockExecutor_ExecuteWithLock(t *testing.T) {
	lock := NewMemoryLock()
	executor := NewLockExecutor(lock)
	ctx := context.Background()

	ran, err := executor.ExecuteWithLock(ctx, "job", time.Minute, func() error {
		// 执行期间其它调用被跳过
		nested, nestedErr := executor.ExecuteWithLock(ctx, "job", time.Minute, func() error {
			t.Fatal("不应执行")
			return nil
		})
		assert.False(t, nested)
		return nestedErr
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// 执行结束后锁已释放
	ok, _ := lock.TryLock(ctx, "job", time.Minute)
	assert.True(t, ok)
}

func TestLockExecutor_PropagatesError(t *testing.T) {
	executor := NewLockExecutor(NewMemoryLock())
	boom := errors.New("boom")

	ran, err := executor.ExecuteWithLock(context.Background(), "job", time.Minute, func() error { return boom })
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)
}

func TestLockExecutor_Refreshes(t *testing.T) {
	lock := &countingLock{MemoryLock: NewMemoryLock()}
	executor := NewLockExecutor(lock)

	ran, err := executor.ExecuteWithLockAndRefresh(context.Background(), "job", time.Second, 10*time.Millisecond, func() error {
		time.Sleep(80 * time.Millisecond)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Greater(t, atomic.LoadInt32(&lock.refreshes), int32(0))
}

type countingLock struct {
	*MemoryLock
	refreshes int32
}

func (c *countingLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	atomic.AddInt32(&c.refreshes, 1)
	return c.MemoryLock.Refresh(ctx, key, ttl)
}

func TestRedisLock(t *testing.T) {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		t.Skip("未配置REDIS_HOST，跳过Redis锁测试")
	}

	lock, err := NewRedisLock(host+":6379", os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer lock.Close()

	ctx := context.Background()
	key := "test:" + time.Now().Format("150405.000000")

	ok, err := lock.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lock.TryLock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Refresh(ctx, key, 5*time.Second))
	require.NoError(t, lock.Unlock(ctx, key))
	assert.Error(t, lock.Refresh(ctx, key, 5*time.Second))
}
