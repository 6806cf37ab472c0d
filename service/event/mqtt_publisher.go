/*
 * @module service/event/mqtt_publisher
 * @description 将表单事件发布到MQTT主题 <prefix>/<kind>
 * @architecture 事件驱动架构 - 通道适配器
 * @rules QoS 1，不保留消息
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/event/publisher.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"formbuilder-service/service/models"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const mqttPublishTimeout = 5 * time.Second

// mqttClient MQTTPublisher 用到的客户端能力
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher MQTT 发布器
type MQTTPublisher struct {
	client      mqttClient
	topicPrefix string
}

// NewMQTTPublisher 连接 broker 并创建发布器
func NewMQTTPublisher(broker, clientID, topicPrefix string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "broker", broker, "error", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("连接MQTT broker %s 超时", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("连接MQTT broker %s 失败: %w", broker, err)
	}

	slog.Info("MQTT事件发布器初始化成功", "broker", broker, "topic_prefix", topicPrefix)
	return &MQTTPublisher{
		client:      client,
		topicPrefix: topicPrefix,
	}, nil
}

// Topic 事件对应的主题
func (p *MQTTPublisher) Topic(kind EventKind) string {
	return fmt.Sprintf("%s/%s", p.topicPrefix, kind)
}

// Publish 发布事件
func (p *MQTTPublisher) Publish(_ context.Context, kind EventKind, form *models.Form) {
	data, err := json.Marshal(NewFormEventMessage(kind, form))
	if err != nil {
		slog.Error("序列化表单事件失败", "kind", kind, "error", err)
		return
	}

	token := p.client.Publish(p.Topic(kind), 1, false, data)
	if !token.WaitTimeout(mqttPublishTimeout) {
		slog.Error("MQTT发布表单事件超时", "kind", kind, "form_id", form.ID)
		return
	}
	if err := token.Error(); err != nil {
		slog.Error("MQTT发布表单事件失败", "kind", kind, "form_id", form.ID, "error", err)
	}
}

// Close 断开连接
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
