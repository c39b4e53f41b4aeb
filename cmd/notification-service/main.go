package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"costwarden/cmd/notification-service/internal/conf"
	"costwarden/pkg/observability"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	_ "go.uber.org/automaxprocs"
)

var configFile = flag.String("config", "", "配置文件路径")

func main() {
	flag.Parse()

	// 加载配置
	config, err := conf.Load(*configFile)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	logger, err := initLogger(config.Observability)
	if err != nil {
		stdlog.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Notification Service",
		zap.String("version", config.Observability.ServiceVersion),
		zap.String("environment", config.Observability.Environment),
	)

	kratosLogger := log.With(log.NewStdLogger(os.Stdout),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "notification-service",
	)

	// 初始化追踪
	shutdownTracing, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		ServiceName:    "notification-service",
		ServiceVersion: config.Observability.ServiceVersion,
		Environment:    config.Observability.Environment,
		Endpoint:       config.Observability.OTELEndpoint,
		SamplingRate:   1.0,
		Enabled:        config.Observability.EnableTrace,
	})
	if err != nil {
		logger.Fatal("Failed to init tracing", zap.Error(err))
	}

	// 初始化应用（通过 Wire 生成）
	app, cleanup, err := initApp(config, logger, kratosLogger)
	if err != nil {
		logger.Fatal("Failed to initialize app", zap.Error(err))
	}
	defer cleanup()

	// 后台任务：事件消费与重试队列
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	app.StartWorkers(workerCtx)

	// 启动 HTTP 服务器
	httpAddr := fmt.Sprintf(":%d", config.Server.HTTPPort)
	srv := &http.Server{
		Addr:         httpAddr,
		Handler:      app.HTTPServer.Engine(),
		ReadTimeout:  config.Server.ReadTimeout,
		WriteTimeout: config.Server.WriteTimeout,
	}

	// 启动 Prometheus metrics 服务器
	metricsAddr := fmt.Sprintf(":%d", config.Server.MetricsPort)
	metricsSrv := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("HTTP server starting", zap.String("addr", httpAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Metrics server starting", zap.String("addr", metricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down servers...")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(ctx); err != nil {
		logger.Error("Metrics server shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Tracing shutdown failed", zap.Error(err))
	}

	logger.Info("Servers exited")
}

// initLogger 初始化日志
func initLogger(cfg conf.ObservabilityConfig) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	if cfg.Environment == "development" {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapConfig.Level = level

	zapConfig.InitialFields = map[string]interface{}{
		"service":     "notification-service",
		"version":     cfg.ServiceVersion,
		"environment": cfg.Environment,
	}

	return zapConfig.Build()
}
