/**
 * @module SchemaReconciler
 * @description 表结构对账任务，定时修复表单定义与生成表之间的偏差
 * @architecture 基于robfig/cron的定时任务
 * @stateFlow 执行待执行迁移 -> 遍历表单 -> 补齐缺失列 -> 重新登记模型描述
 * @rules 只补列不删列；单个表单失败不影响其它表单
 * @dependencies gorm, cron库
 * @refs ../formbuilder/form_service.go, ../database/migration_runner.go
 */

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"formbuilder-service/service/database"
	"formbuilder-service/service/distributed_lock"
	"formbuilder-service/service/formbuilder"
	"formbuilder-service/service/metrics"
	"formbuilder-service/service/models"
)

// DefaultReconcileCron 默认每5分钟执行一次
const DefaultReconcileCron = "0 */5 * * * *"

const (
	reconcileLockKey         = "schema_reconcile"
	reconcileLockTTL         = 2 * time.Minute
	reconcileRefreshInterval = 30 * time.Second
)

// ReconcileReport 单次对账结果
type ReconcileReport struct {
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     time.Time           `json:"finished_at"`
	FormsChecked   int                 `json:"forms_checked"`
	AddedColumns   map[string][]string `json:"added_columns"`
	MissingTables  []string            `json:"missing_tables"`
	Reregistered   []string            `json:"reregistered"`
	MigrationError string              `json:"migration_error,omitempty"`
	Errors         map[string]string   `json:"errors"`
}

// HasErrors 是否存在失败项
func (r *ReconcileReport) HasErrors() bool {
	return r.MigrationError != "" || len(r.Errors) > 0
}

// SchemaReconciler 表结构对账器
type SchemaReconciler struct {
	db        *gorm.DB
	schema    *database.SchemaService
	artifacts *formbuilder.ArtifactGenerator
	runner    formbuilder.MigrationRunner
	locker    *distributed_lock.LockExecutor
	cron      *cron.Cron
	cronExpr  string
	mu        sync.Mutex // 防止两次对账重叠执行
}

// NewSchemaReconciler 创建对账器
func NewSchemaReconciler(db *gorm.DB, schema *database.SchemaService, artifacts *formbuilder.ArtifactGenerator,
	runner formbuilder.MigrationRunner, cronExpr string) *SchemaReconciler {
	if cronExpr == "" {
		cronExpr = DefaultReconcileCron
	}
	return &SchemaReconciler{
		db:        db,
		schema:    schema,
		artifacts: artifacts,
		runner:    runner,
		locker:    distributed_lock.NewLockExecutor(distributed_lock.NewMemoryLock()),
		cron:      cron.New(cron.WithSeconds()),
		cronExpr:  cronExpr,
	}
}

// SetLocker 多实例部署时替换为Redis锁
func (s *SchemaReconciler) SetLocker(locker *distributed_lock.LockExecutor) {
	if locker != nil {
		s.locker = locker
	}
}

// Start 启动定时对账
func (s *SchemaReconciler) Start() error {
	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if _, err := s.RunLocked(context.Background()); err != nil {
			slog.Error("表结构对账失败", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("无效的对账Cron表达式 %s: %w", s.cronExpr, err)
	}

	s.cron.Start()
	slog.Info("表结构对账任务已启动", "cron", s.cronExpr)
	return nil
}

// Stop 停止定时对账，等待正在执行的任务结束
func (s *SchemaReconciler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("表结构对账任务已停止")
}

// RunLocked 持有对账锁时执行一次对账；锁被其他实例持有时返回 nil 报告
func (s *SchemaReconciler) RunLocked(ctx context.Context) (*ReconcileReport, error) {
	var report *ReconcileReport
	_, err := s.locker.ExecuteWithLockAndRefresh(ctx, reconcileLockKey, reconcileLockTTL, reconcileRefreshInterval, func() error {
		var runErr error
		report, runErr = s.RunOnce(ctx)
		return runErr
	})
	return report, err
}

// RunOnce 执行一次对账
func (s *SchemaReconciler) RunOnce(ctx context.Context) (*ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := &ReconcileReport{
		StartedAt:     time.Now(),
		AddedColumns:  make(map[string][]string),
		MissingTables: make([]string, 0),
		Reregistered:  make([]string, 0),
		Errors:        make(map[string]string),
	}

	// 失败创建遗留的迁移文件可能一直失败，这里只记录，不阻断后续检查
	if err := s.runner.RunPendingMigrations(ctx, s.db); err != nil {
		slog.Warn("对账时执行迁移失败", "error", err)
		report.MigrationError = err.Error()
	}

	var forms []models.Form
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&forms).Error; err != nil {
		metrics.ReconcileRuns.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("查询表单列表失败: %w", err)
	}

	for i := range forms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.FormsChecked++
		s.reconcileForm(ctx, &forms[i], report)
	}

	report.FinishedAt = time.Now()
	result := metrics.ResultSuccess
	if report.HasErrors() {
		result = metrics.ResultFailure
	}
	metrics.ReconcileRuns.WithLabelValues(result).Inc()

	slog.Info("表结构对账完成",
		"forms", report.FormsChecked,
		"missing_tables", len(report.MissingTables),
		"errors", len(report.Errors),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, nil
}

func (s *SchemaReconciler) reconcileForm(ctx context.Context, form *models.Form, report *ReconcileReport) {
	table := form.Identifier

	descriptors, err := formbuilder.DecodeFieldDescriptors(form.FormBuilderJSON)
	if err != nil {
		report.Errors[table] = err.Error()
		return
	}
	fieldNames := database.FilterReservedColumns(formbuilder.ExtractFieldNames(descriptors))

	schema := s.schema.WithDB(s.db.WithContext(ctx))
	exists, err := schema.CheckTableExists(table)
	if err != nil {
		report.Errors[table] = err.Error()
		return
	}
	if !exists {
		slog.Warn("表单生成表不存在", "form_id", form.ID, "table", table)
		report.MissingTables = append(report.MissingTables, table)
		return
	}

	for _, name := range fieldNames {
		if schema.HasColumn(table, name) {
			continue
		}
		if err := schema.AddTextColumn(table, name); err != nil {
			report.Errors[table] = err.Error()
			return
		}
		metrics.SchemaOperations.WithLabelValues(database.ColumnOpAdd).Inc()
		report.AddedColumns[table] = append(report.AddedColumns[table], name)
	}

	if err := s.artifacts.UpdateModelArtifact(table, fieldNames); err != nil {
		report.Errors[table] = err.Error()
		return
	}
	report.Reregistered = append(report.Reregistered, table)
}
