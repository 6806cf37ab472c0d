/*
 * @module service/event/kafka_publisher
 * @description 将表单事件写入Kafka主题
 * @architecture 事件驱动架构 - 通道适配器
 * @rules 以表单标识作为消息键，保证同一表单事件有序
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/event/publisher.go
 */

package event

import (
	"context"
	"encoding/json"
	"formbuilder-service/service/models"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// messageWriter kafka.Writer 的最小能力
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher Kafka 发布器
type KafkaPublisher struct {
	writer messageWriter
	topic  string
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("Kafka事件发布器初始化成功", "brokers", brokers, "topic", topic)
	return &KafkaPublisher{
		writer: writer,
		topic:  topic,
	}
}

// Publish 发布事件
func (p *KafkaPublisher) Publish(ctx context.Context, kind EventKind, form *models.Form) {
	data, err := json.Marshal(NewFormEventMessage(kind, form))
	if err != nil {
		slog.Error("序列化表单事件失败", "kind", kind, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(form.Identifier),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(kind)},
		},
		Time: time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("Kafka发布表单事件失败", "kind", kind, "form_id", form.ID, "topic", p.topic, "error", err)
	}
}

// Close 关闭生产者
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
