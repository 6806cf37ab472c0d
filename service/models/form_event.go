/*
 * @module service/models/form_event
 * @description 表单生命周期事件模型，记录已发布的通知
 * @architecture 事件驱动架构 - 数据模型层
 * @rules 事件只追加不修改
 * @dependencies gorm.io/gorm, gorm.io/datatypes, github.com/google/uuid
 * @refs service/event/event_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FormEvent 表单生命周期事件
type FormEvent struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	EventType string         `gorm:"not null;index" json:"event_type"`
	FormID    uint           `gorm:"not null;index" json:"form_id"`
	UserID    string         `gorm:"not null;index" json:"user_id"`
	Payload   datatypes.JSON `json:"payload" swaggertype:"object"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate 创建前钩子
func (e *FormEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	return nil
}

// SchemaMigration 已执行的迁移记录
type SchemaMigration struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;uniqueIndex" json:"name"`
	Batch     int       `gorm:"not null" json:"batch"`
	AppliedAt time.Time `json:"applied_at"`
}

// TableName 返回表名
func (SchemaMigration) TableName() string {
	return "form_schema_migrations"
}
