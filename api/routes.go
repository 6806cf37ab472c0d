/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 */

package api

import (
	"formbuilder-service/api/controllers"
	"formbuilder-service/api/middleware"
	"formbuilder-service/service"
	"formbuilder-service/service/event"
	"formbuilder-service/service/formbuilder"
	"formbuilder-service/service/rate_limiter"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// Dependencies 路由依赖的服务
type Dependencies struct {
	DB                *gorm.DB
	FormService       *formbuilder.FormService
	SubmissionService *formbuilder.SubmissionService
	EventService      *event.EventService
	PublicLimiter     rate_limiter.Limiter
}

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	Mount(r, Dependencies{
		DB:                service.DB,
		FormService:       service.GlobalFormService,
		SubmissionService: service.GlobalSubmissionService,
		EventService:      service.GlobalEventService,
		PublicLimiter:     service.GlobalPublicLimiter,
	})
}

// Mount 在路由器上注册中间件和全部路由
func Mount(r chi.Router, deps Dependencies) {
	// 基础中间件
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Identity)

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", middleware.HeaderUserID},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// 健康检查
	healthController := controllers.NewHealthController(deps.DB)
	r.Get("/health", healthController.Health)
	r.Get("/ready", healthController.Ready)

	// SSE事件订阅
	eventController := controllers.NewEventController(deps.EventService)
	r.With(middleware.RequireUser).Get("/sse/{user_id}", eventController.HandleSSE)

	// 以下均为JSON接口
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		// 表单管理（所有者）
		r.Route("/forms", func(r chi.Router) {
			r.Use(middleware.RequireUser)

			formController := controllers.NewFormController(deps.FormService)
			submissionController := controllers.NewSubmissionController(deps.SubmissionService)

			r.Get("/", formController.ListForms)
			r.Post("/", formController.CreateForm)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", formController.GetForm)
				r.Put("/", formController.UpdateForm)
				r.Delete("/", formController.DeleteForm)

				r.Get("/submissions", submissionController.ListSubmissions)
				r.Get("/submissions/{submission_id}", submissionController.ShowSubmission)
				r.Delete("/submissions/{submission_id}", submissionController.DeleteSubmission)
			})
		})

		// 事件历史
		r.With(middleware.RequireUser).Get("/events", eventController.ListEvents)

		// 公开表单
		r.Route("/form/{identifier}", func(r chi.Router) {
			r.Use(middleware.PublicFormAccess(deps.PublicLimiter))

			renderFormController := controllers.NewRenderFormController(deps.SubmissionService)
			r.Get("/", renderFormController.RenderForm)
			r.Post("/", renderFormController.SubmitForm)
			r.Get("/feedback", renderFormController.Feedback)
		})
	})
}
