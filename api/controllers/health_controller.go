/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态检查
 * @architecture MVC架构 - 控制器层
 * @stateFlow HTTP请求处理流程
 * @rules 就绪检查需要数据库可用
 * @dependencies net/http, gorm.io/gorm
 */

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// ServiceName 服务名称
const ServiceName = "formbuilder-service"

// Version 服务版本
const Version = "1.0.0"

// HealthController 健康检查控制器
type HealthController struct {
	db *gorm.DB
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{db: db}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"formbuilder-service"`
	Error     string    `json:"error,omitempty"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查数据库连接是否可用
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   Version,
		Service:   ServiceName,
	}

	if err := c.ping(r.Context()); err != nil {
		response.Status = "unavailable"
		response.Error = err.Error()
		render.Status(r, http.StatusServiceUnavailable)
	}

	render.JSON(w, r, response)
}

func (c *HealthController) ping(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
