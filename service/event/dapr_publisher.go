/*
 * @module service/event/dapr_publisher
 * @description 通过Dapr sidecar的pub/sub组件发布表单事件
 * @architecture 事件驱动架构 - 通道适配器
 * @rules 发布失败只记录日志
 * @dependencies github.com/dapr/go-sdk/client
 * @refs service/event/publisher.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"formbuilder-service/service/models"
	"log/slog"

	dapr "github.com/dapr/go-sdk/client"
)

// daprEventClient DaprPublisher 用到的客户端能力
type daprEventClient interface {
	PublishEvent(ctx context.Context, pubsubName, topicName string, data interface{}, opts ...dapr.PublishEventOption) error
	Close()
}

// DaprPublisher Dapr pub/sub 发布器
type DaprPublisher struct {
	client     daprEventClient
	pubsubName string
	topic      string
}

// NewDaprPublisher 连接本地 Dapr sidecar
func NewDaprPublisher(pubsubName, topic string) (*DaprPublisher, error) {
	client, err := dapr.NewClient()
	if err != nil {
		return nil, fmt.Errorf("创建Dapr客户端失败: %w", err)
	}

	slog.Info("Dapr事件发布器初始化成功", "pubsub", pubsubName, "topic", topic)
	return &DaprPublisher{
		client:     client,
		pubsubName: pubsubName,
		topic:      topic,
	}, nil
}

// Publish 发布事件
func (p *DaprPublisher) Publish(ctx context.Context, kind EventKind, form *models.Form) {
	data, err := json.Marshal(NewFormEventMessage(kind, form))
	if err != nil {
		slog.Error("序列化表单事件失败", "kind", kind, "error", err)
		return
	}

	err = p.client.PublishEvent(ctx, p.pubsubName, p.topic, data,
		dapr.PublishEventWithContentType("application/json"))
	if err != nil {
		slog.Error("Dapr发布表单事件失败", "kind", kind, "form_id", form.ID, "topic", p.topic, "error", err)
	}
}

// Close 关闭客户端
func (p *DaprPublisher) Close() {
	p.client.Close()
}
