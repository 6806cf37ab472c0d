package main

import (
	"context"
	"formbuilder-service/api"
	_ "formbuilder-service/docs"
	"formbuilder-service/logger"
	"formbuilder-service/service"
	"formbuilder-service/service/config"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	daprd "github.com/dapr/go-sdk/service/http"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title 表单构建服务 API
// @version 1.0
// @description 表单构建服务：表单设计保存后自动生成数据表，提供公开填写和提交记录管理
// @BasePath /
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("加载配置失败", "error", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg.LogLevel)

	if err := service.Init(cfg); err != nil {
		slog.Error("服务初始化失败", "error", err)
		os.Exit(1)
	}

	mux := chi.NewRouter()

	// 如果有BASE_CONTEXT，则在该路径下挂载所有路由
	if cfg.Server.BaseContext != "" {
		mux.Route(cfg.Server.BaseContext, func(r chi.Router) {
			subMux := r.(*chi.Mux)
			api.InitRoute(subMux)
			r.Handle("/metrics", promhttp.Handler())
			r.Handle("/swagger*", httpSwagger.WrapHandler)
		})
	} else {
		api.InitRoute(mux)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/swagger*", httpSwagger.WrapHandler)
	}

	s := daprd.NewServiceWithMux(":"+strconv.Itoa(cfg.Server.Port), mux)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("收到退出信号，正在停止服务")
		if err := s.GracefulStop(); err != nil {
			slog.Warn("停止HTTP服务失败", "error", err)
		}
	}()

	slog.Info("表单构建服务启动", "port", cfg.Server.Port, "base_context", cfg.Server.BaseContext)
	if err := s.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("服务运行失败", "error", err)
		os.Exit(1)
	}

	// 等待后台事件处理完成
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	waitDone := make(chan struct{})
	go func() {
		service.Shutdown()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-ctx.Done():
		slog.Warn("等待后台任务结束超时")
	}
}
