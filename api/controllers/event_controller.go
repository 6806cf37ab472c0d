/*
 * @module api/controllers/event_controller
 * @description 事件控制器，提供表单事件SSE推送和事件历史查询
 * @architecture RESTful API架构 - 控制器层
 * @stateFlow HTTP请求 -> 建立SSE连接 -> 等待事件推送
 * @rules 只能订阅当前用户自己的事件；连接断开时移除订阅
 * @dependencies formbuilder-service/service/event, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/event/event_service.go
 */

package controllers

import (
	"encoding/json"
	"fmt"
	"formbuilder-service/api/middleware"
	"formbuilder-service/service/event"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// EventController 事件控制器
type EventController struct {
	eventService *event.EventService
}

// NewEventController 创建事件控制器实例
func NewEventController(eventService *event.EventService) *EventController {
	return &EventController{
		eventService: eventService,
	}
}

// HandleSSE 处理SSE连接
// @Summary 建立SSE连接
// @Description 表单所有者通过此接口接收表单创建/删除事件
// @Tags 事件管理
// @Param user_id path string true "用户标识，必须与当前用户一致"
// @Param X-User-ID header string true "用户标识"
// @Success 200 {string} string "SSE事件流"
// @Failure 401 {object} APIResponse
// @Failure 403 {object} APIResponse
// @Router /sse/{user_id} [get]
func (c *EventController) HandleSSE(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	if userID == "" {
		http.Error(w, "用户标识不能为空", http.StatusBadRequest)
		return
	}
	// 只能订阅自己的表单事件
	if userID != middleware.UserIDFromContext(r.Context()) {
		render.Render(w, r, ErrorResponse(http.StatusForbidden, "无权订阅该用户的事件", nil))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	connectionID := uuid.New().String()
	client := c.eventService.AddSSEConnection(userID, connectionID, middleware.ClientIP(r))
	defer c.eventService.RemoveSSEConnection(userID, connectionID)

	// 发送连接成功事件
	fmt.Fprintf(w, "data: {\"type\":\"connected\",\"connection_id\":\"%s\",\"timestamp\":\"%s\"}\n\n",
		connectionID, time.Now().Format(time.RFC3339))
	flush(w)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case record := <-client.Channel:
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", record.EventType, toJSON(record))
			flush(w)

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flush(w)

		case <-client.Done:
			return

		case <-r.Context().Done():
			return
		}
	}
}

// ListEvents 查询最近的表单事件
// @Summary 查询表单事件
// @Tags 事件管理
// @Produce json
// @Param X-User-ID header string true "用户标识"
// @Param limit query int false "条数" default(50)
// @Success 200 {object} APIResponse{data=[]models.FormEvent}
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := cast.ToInt(r.URL.Query().Get("limit"))

	events, err := c.eventService.ListEvents(middleware.UserIDFromContext(r.Context()), limit)
	if err != nil {
		render.Render(w, r, InternalErrorResponse("查询表单事件失败", err))
		return
	}

	render.JSON(w, r, SuccessResponse("查询表单事件成功", events))
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}
