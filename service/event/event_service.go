/*
 * @module service/event/event_service
 * @description 事件管理服务，持久化表单事件并通过SSE推送给表单所有者
 * @architecture 事件驱动架构 - 业务服务层
 * @stateFlow 事件发布 -> 事件入库 -> 按用户分发 -> 客户端推送
 * @rules 推送队列满时丢弃，不阻塞生命周期操作
 * @dependencies formbuilder-service/service/models, gorm.io/gorm, gorm.io/datatypes
 * @refs api/controllers/event_controller.go
 */

package event

import (
	"context"
	"encoding/json"
	"formbuilder-service/service/models"
	"log/slog"
	"sync"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventService 事件管理服务
type EventService struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userID -> connectionID -> client
	mu          sync.RWMutex
	pending     sync.WaitGroup
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserID   string
	Channel  chan *models.FormEvent
	Done     chan bool
	ClientIP string
}

// NewEventService 创建事件服务实例
func NewEventService(db *gorm.DB) *EventService {
	return &EventService{
		db:          db,
		connections: make(map[string]map[string]*SSEClient),
	}
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(userID, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userID] == nil {
		s.connections[userID] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserID:   userID,
		Channel:  make(chan *models.FormEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}
	s.connections[userID][connectionID] = client

	slog.Info("SSE连接已建立", "user_id", userID, "connection_id", connectionID, "client_ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(userID, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userConnections, exists := s.connections[userID]
	if !exists {
		return
	}
	client, exists := userConnections[connectionID]
	if !exists {
		return
	}

	close(client.Done)
	delete(userConnections, connectionID)
	if len(userConnections) == 0 {
		delete(s.connections, userID)
	}

	slog.Info("SSE连接已断开", "user_id", userID, "connection_id", connectionID)
}

// ConnectionCount 用户当前的连接数
func (s *EventService) ConnectionCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections[userID])
}

// Publish 异步保存事件并推送给表单所有者
// 调用方可能仍持有事务，入库放在后台进行，不占用调用方的连接
func (s *EventService) Publish(ctx context.Context, kind EventKind, form *models.Form) {
	payload, err := json.Marshal(NewFormEventMessage(kind, form))
	if err != nil {
		slog.Error("序列化表单事件失败", "kind", kind, "form_id", form.ID, "error", err)
		return
	}

	record := &models.FormEvent{
		EventType: string(kind),
		FormID:    form.ID,
		UserID:    form.UserID,
		Payload:   datatypes.JSON(payload),
		CreatedAt: time.Now(),
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.db.WithContext(context.WithoutCancel(ctx)).Create(record).Error; err != nil {
			slog.Error("保存表单事件失败", "kind", kind, "form_id", record.FormID, "error", err)
			return
		}
		s.sendToUser(record.UserID, record)
	}()
}

// Wait 等待后台事件处理完成
func (s *EventService) Wait() {
	s.pending.Wait()
}

// ListEvents 查询用户最近的表单事件
func (s *EventService) ListEvents(userID string, limit int) ([]models.FormEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	var events []models.FormEvent
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// sendToUser 向用户的全部连接推送
func (s *EventService) sendToUser(userID string, record *models.FormEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.connections[userID] {
		select {
		case client.Channel <- record:
		default:
			slog.Warn("SSE事件队列已满，跳过发送", "user_id", userID, "connection_id", client.ID)
		}
	}
}
