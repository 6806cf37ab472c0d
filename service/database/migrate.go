/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新服务自身的表结构
 * @architecture 数据访问层 - 迁移管理
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 只迁移服务自身模型，表单生成表由迁移执行器负责
 * @dependencies formbuilder-service/service/models, gorm.io/gorm
 * @refs service/init.go
 */

package database

import (
	"formbuilder-service/service/models"
	"log/slog"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	slog.Info("开始数据库迁移...")

	err := db.AutoMigrate(
		&models.Form{},
		&models.FormEvent{},
		&models.SchemaMigration{},
	)
	if err != nil {
		return err
	}

	slog.Info("数据库迁移完成")
	return nil
}
