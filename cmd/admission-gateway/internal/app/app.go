package app

import (
	"context"

	"costwarden/cmd/admission-gateway/internal/server"
	"costwarden/cmd/admission-gateway/internal/worker"

	"go.uber.org/zap"
)

// App 应用程序
type App struct {
	Logger       *zap.Logger
	HTTPServer   *server.HTTPServer
	OutboxWorker *worker.OutboxWorker
}

// NewApp 创建应用程序
func NewApp(
	logger *zap.Logger,
	httpServer *server.HTTPServer,
	outboxWorker *worker.OutboxWorker,
) *App {
	return &App{
		Logger:       logger,
		HTTPServer:   httpServer,
		OutboxWorker: outboxWorker,
	}
}

// StartWorkers 启动后台任务，随 ctx 取消退出
func (a *App) StartWorkers(ctx context.Context) {
	go a.OutboxWorker.Run(ctx)
}
