/*
 * @module service/event/publisher
 * @description 表单生命周期通知总线，定义事件类型和发布接口
 * @architecture 事件驱动架构 - 业务服务层
 * @stateFlow 生命周期操作 -> Publish -> 各通道适配器
 * @rules 发布即忘：适配器只记录错误，不向调用方返回
 * @dependencies formbuilder-service/service/models
 * @refs service/formbuilder/form_service.go
 */

package event

import (
	"context"
	"formbuilder-service/service/models"
	"time"
)

// EventKind 表单事件类型
type EventKind string

const (
	// EventFormCreated 表单创建
	EventFormCreated EventKind = "form.created"
	// EventFormUpdated 表单更新（当前不发布）
	EventFormUpdated EventKind = "form.updated"
	// EventFormDeleted 表单删除
	EventFormDeleted EventKind = "form.deleted"
)

// Publisher 通知总线
type Publisher interface {
	Publish(ctx context.Context, kind EventKind, form *models.Form)
}

// FormEventMessage 各通道统一的消息体
type FormEventMessage struct {
	Kind       EventKind `json:"kind"`
	FormID     uint      `json:"form_id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewFormEventMessage 根据表单构建消息体
func NewFormEventMessage(kind EventKind, form *models.Form) *FormEventMessage {
	return &FormEventMessage{
		Kind:       kind,
		FormID:     form.ID,
		Identifier: form.Identifier,
		Name:       form.Name,
		UserID:     form.UserID,
		OccurredAt: time.Now(),
	}
}

// MultiPublisher 将同一事件发布到多个通道
type MultiPublisher []Publisher

// Publish 依次发布到每个通道
func (m MultiPublisher) Publish(ctx context.Context, kind EventKind, form *models.Form) {
	for _, publisher := range m {
		if publisher == nil {
			continue
		}
		publisher.Publish(ctx, kind, form)
	}
}

// NopPublisher 不做任何事情的发布器
type NopPublisher struct{}

// Publish 忽略事件
func (NopPublisher) Publish(context.Context, EventKind, *models.Form) {}
