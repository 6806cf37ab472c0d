/*
 * @module service/models/form
 * @description 表单定义模型，保存表单设计器输出的字段列表以及生成表的绑定标识
 * @architecture 数据模型层
 * @stateFlow Draft -> Active -> Updated -> Deleted
 * @rules identifier 创建后不可修改，是生成表和模型描述的绑定键
 * @dependencies gorm.io/gorm, gorm.io/datatypes
 * @refs service/formbuilder/form_service.go
 */

package models

import (
	"time"

	"gorm.io/datatypes"
)

// 表单可见性
const (
	FormVisibilityPublic  = "PUBLIC"
	FormVisibilityPrivate = "PRIVATE"
)

// Form 表单定义
type Form struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          string         `gorm:"not null;index" json:"user_id"`
	Name            string         `gorm:"not null" json:"name"`
	Identifier      string         `gorm:"not null;uniqueIndex" json:"identifier"`
	Description     string         `json:"description"`
	Visibility      string         `gorm:"not null;default:'PUBLIC'" json:"visibility"`
	AllowsEdit      bool           `gorm:"not null;default:false" json:"allows_edit"`
	FormBuilderJSON datatypes.JSON `gorm:"column:form_builder_json" json:"form_builder_json" swaggertype:"array,object"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`

	// 非持久化字段，详情和列表接口回填
	SubmissionsCount int64 `gorm:"-" json:"submissions_count"`
}

// TableName 返回表名
func (Form) TableName() string {
	return "forms"
}

// IsPublic 是否对匿名用户公开
func (f *Form) IsPublic() bool {
	return f.Visibility == "" || f.Visibility == FormVisibilityPublic
}

// EntryHeader 提交记录列表的表头
type EntryHeader struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}
