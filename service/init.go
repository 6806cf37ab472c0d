/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、表结构迁移和各业务服务的装配
 * @architecture 分层架构 - 服务层
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；可选通道初始化失败只记录日志
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres, gorm.io/driver/sqlite
 * @refs main.go, service/config/config.go
 */

package service

import (
	"context"
	"fmt"
	"formbuilder-service/service/cleanup"
	"formbuilder-service/service/config"
	"formbuilder-service/service/database"
	"formbuilder-service/service/distributed_lock"
	"formbuilder-service/service/event"
	"formbuilder-service/service/formbuilder"
	"formbuilder-service/service/rate_limiter"
	"formbuilder-service/service/scheduler"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	DB                      *gorm.DB
	GlobalConfig            *config.Config
	GlobalEventService      *event.EventService
	GlobalSchemaService     *database.SchemaService
	GlobalModelRegistry     *formbuilder.ModelRegistry
	GlobalFormService       *formbuilder.FormService
	GlobalSubmissionService *formbuilder.SubmissionService
	GlobalReconciler        *scheduler.SchemaReconciler
	GlobalEventCleanup      *cleanup.EventCleanupService
	GlobalPublicLimiter     rate_limiter.Limiter
)

// shutdownHooks 退出时按注册的逆序执行
var shutdownHooks []func()

// Init 初始化数据库和全部服务
func Init(cfg *config.Config) error {
	GlobalConfig = cfg

	if err := initDatabase(cfg.Database); err != nil {
		return err
	}
	if err := runMigrations(); err != nil {
		return err
	}
	return initServices(cfg)
}

// Shutdown 停止后台任务并关闭外部连接
func Shutdown() {
	for i := len(shutdownHooks) - 1; i >= 0; i-- {
		shutdownHooks[i]()
	}
	shutdownHooks = nil

	if GlobalEventService != nil {
		GlobalEventService.Wait()
	}
	if DB != nil {
		if sqlDB, err := DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

// initDatabase 初始化数据库连接
func initDatabase(cfg config.DatabaseConfig) error {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN())
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Driver)
	}

	var err error
	DB, err = gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// sqlite 同一时间只允许一个写连接
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	slog.Info("数据库连接成功", "driver", cfg.Driver)
	return nil
}

// runMigrations 运行数据库迁移
func runMigrations() error {
	slog.Info("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	slog.Info("数据库表结构迁移完成")
	return nil
}

// initServices 初始化服务
func initServices(cfg *config.Config) error {
	GlobalEventService = event.NewEventService(DB)
	GlobalSchemaService = database.NewSchemaService(DB)
	GlobalModelRegistry = formbuilder.NewModelRegistry()

	artifacts := formbuilder.NewArtifactGenerator(cfg.Artifacts.MigrationsDir, cfg.Artifacts.ModelsDir, GlobalModelRegistry)
	if _, err := artifacts.LoadModelArtifacts(); err != nil {
		return fmt.Errorf("加载模型描述失败: %w", err)
	}

	runner := database.NewMigrationRunner(cfg.Artifacts.MigrationsDir, GlobalSchemaService)
	if err := runner.RunPendingMigrations(context.Background(), DB); err != nil {
		// 失败创建遗留的迁移文件会一直处于待执行状态，不阻止服务启动
		slog.Error("启动时执行待执行迁移失败", "error", err)
	}

	publisher := initPublishers(cfg.Events)
	GlobalFormService = formbuilder.NewFormService(DB, GlobalSchemaService, artifacts, runner, publisher)
	GlobalSubmissionService = formbuilder.NewSubmissionService(DB, GlobalSchemaService, GlobalModelRegistry, formbuilder.NewRowMapper())

	GlobalPublicLimiter = initPublicLimiter(cfg)
	locker := initLocker(cfg.Redis)

	GlobalEventCleanup = cleanup.NewEventCleanupService(DB, cfg.Events.RetentionDays, locker)
	if err := GlobalEventCleanup.Start(cfg.Events.CleanupCron); err != nil {
		return fmt.Errorf("启动事件清理任务失败: %w", err)
	}
	shutdownHooks = append(shutdownHooks, GlobalEventCleanup.Stop)

	if cfg.Reconcile.Enabled {
		GlobalReconciler = scheduler.NewSchemaReconciler(DB, GlobalSchemaService, artifacts, runner, cfg.Reconcile.Cron)
		GlobalReconciler.SetLocker(locker)
		if err := GlobalReconciler.Start(); err != nil {
			return fmt.Errorf("启动表结构对账任务失败: %w", err)
		}
		shutdownHooks = append(shutdownHooks, GlobalReconciler.Stop)
	}

	slog.Info("服务初始化完成", "registered_models", len(GlobalModelRegistry.Identifiers()))
	return nil
}

// initPublishers 装配通知通道：SSE 总是启用，其它通道按配置启用
func initPublishers(cfg config.EventsConfig) event.Publisher {
	publishers := event.MultiPublisher{GlobalEventService}

	if cfg.DaprPubsubName != "" {
		daprPublisher, err := event.NewDaprPublisher(cfg.DaprPubsubName, cfg.DaprTopic)
		if err != nil {
			slog.Error("Dapr事件发布器初始化失败", "error", err)
		} else {
			publishers = append(publishers, daprPublisher)
			shutdownHooks = append(shutdownHooks, daprPublisher.Close)
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := event.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kafkaPublisher)
		shutdownHooks = append(shutdownHooks, func() {
			if err := kafkaPublisher.Close(); err != nil {
				slog.Warn("关闭Kafka发布器失败", "error", err)
			}
		})
	}

	if cfg.MQTTBroker != "" {
		mqttPublisher, err := event.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
		if err != nil {
			slog.Error("MQTT事件发布器初始化失败", "error", err)
		} else {
			publishers = append(publishers, mqttPublisher)
			shutdownHooks = append(shutdownHooks, mqttPublisher.Close)
		}
	}

	slog.Info("表单事件通道装配完成", "channels", len(publishers))
	return publishers
}

// initPublicLimiter 公开表单限流器，Redis不可用时退回进程内计数
func initPublicLimiter(cfg *config.Config) rate_limiter.Limiter {
	rule := rate_limiter.RateLimitRule{
		TimeWindow:  cfg.PublicAccess.WindowSeconds,
		MaxRequests: cfg.PublicAccess.MaxRequests,
	}

	if addr := cfg.Redis.Addr(); addr != "" {
		limiter, err := rate_limiter.NewRedisRateLimiter(addr, cfg.Redis.Password, cfg.Redis.DB, rule)
		if err == nil {
			shutdownHooks = append(shutdownHooks, func() { limiter.Close() })
			return limiter
		}
		slog.Warn("Redis限流器不可用，使用进程内限流", "error", err)
	}

	return rate_limiter.NewMemoryRateLimiter(rule)
}

// initLocker 后台任务锁，Redis不可用时退回进程内锁
func initLocker(cfg config.RedisConfig) *distributed_lock.LockExecutor {
	if addr := cfg.Addr(); addr != "" {
		lock, err := distributed_lock.NewRedisLock(addr, cfg.Password, cfg.DB)
		if err == nil {
			shutdownHooks = append(shutdownHooks, func() { lock.Close() })
			return distributed_lock.NewLockExecutor(lock)
		}
		slog.Warn("Redis分布式锁不可用，使用进程内锁", "error", err)
	}
	return distributed_lock.NewLockExecutor(distributed_lock.NewMemoryLock())
}
