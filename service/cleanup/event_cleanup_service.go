/*
 * @module service/cleanup/event_cleanup_service
 * @description 表单事件清理服务，定期删除超过保留天数的事件记录
 * @architecture 分层架构 - 业务服务层
 * @stateFlow 定时触发 -> 获取锁 -> 按保留天数删除 -> 记录结果
 * @rules 清理失败只记录日志；多实例部署时同一时刻只有一个实例执行
 * @dependencies gorm.io/gorm, github.com/robfig/cron/v3
 * @refs service/event/event_service.go, service/distributed_lock/lock_executor.go
 */

package cleanup

import (
	"context"
	"fmt"
	"formbuilder-service/service/distributed_lock"
	"formbuilder-service/service/models"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const (
	// DefaultRetentionDays 默认保留30天
	DefaultRetentionDays = 30
	// DefaultCleanupCron 每天凌晨2点执行，格式：秒 分 时 日 月 周
	DefaultCleanupCron = "0 0 2 * * *"

	cleanupLockKey = "form_event_cleanup"
	cleanupLockTTL = 10 * time.Minute
)

// EventCleanupService 事件清理服务
type EventCleanupService struct {
	db            *gorm.DB
	retentionDays int
	locker        *distributed_lock.LockExecutor
	cron          *cron.Cron
	ctx           context.Context
	cancel        context.CancelFunc
	started       bool
	now           func() time.Time
}

// NewEventCleanupService 创建事件清理服务实例
func NewEventCleanupService(db *gorm.DB, retentionDays int, locker *distributed_lock.LockExecutor) *EventCleanupService {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	if locker == nil {
		locker = distributed_lock.NewLockExecutor(distributed_lock.NewMemoryLock())
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &EventCleanupService{
		db:            db,
		retentionDays: retentionDays,
		locker:        locker,
		cron:          cron.New(cron.WithSeconds()),
		ctx:           ctx,
		cancel:        cancel,
		now:           time.Now,
	}
}

// CleanupExpiredEvents 删除过期事件，返回删除条数
func (s *EventCleanupService) CleanupExpiredEvents(ctx context.Context) (int64, error) {
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	slog.Debug("清理表单事件", "cutoff", cutoff.Format("2006-01-02 15:04:05"), "retention_days", s.retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.FormEvent{})
	if result.Error != nil {
		return 0, fmt.Errorf("删除过期表单事件失败: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// runLocked 在锁保护下执行一次清理
func (s *EventCleanupService) runLocked() {
	startTime := time.Now()
	var deleted int64

	ran, err := s.locker.ExecuteWithLock(s.ctx, cleanupLockKey, cleanupLockTTL, func() error {
		var err error
		deleted, err = s.CleanupExpiredEvents(s.ctx)
		return err
	})
	if err != nil {
		slog.Error("表单事件清理失败", "error", err)
		return
	}
	if ran {
		slog.Info("表单事件清理完成",
			"deleted_count", deleted,
			"retention_days", s.retentionDays,
			"duration_ms", time.Since(startTime).Milliseconds())
	}
}

// Start 启动定时清理任务
func (s *EventCleanupService) Start(cronExpr string) error {
	if s.started {
		return fmt.Errorf("事件清理调度器已经启动")
	}
	if cronExpr == "" {
		cronExpr = DefaultCleanupCron
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runLocked); err != nil {
		return fmt.Errorf("添加定时任务失败: %w", err)
	}

	s.cron.Start()
	s.started = true
	slog.Info("事件清理调度器启动成功", "cron", cronExpr, "retention_days", s.retentionDays)
	return nil
}

// Stop 停止定时清理任务
func (s *EventCleanupService) Stop() {
	if !s.started {
		return
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.started = false

	slog.Info("事件清理调度器已停止")
}
