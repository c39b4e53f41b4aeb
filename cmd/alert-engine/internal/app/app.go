package app

import (
	"context"

	"costwarden/cmd/alert-engine/internal/biz"
	"costwarden/cmd/alert-engine/internal/server"
	"costwarden/cmd/alert-engine/internal/worker"

	"go.uber.org/zap"
)

// App 应用程序
type App struct {
	Logger       *zap.Logger
	HTTPServer   *server.HTTPServer
	Sweeper      *biz.Sweeper
	OutboxWorker *worker.OutboxWorker
}

// NewApp 创建应用程序
func NewApp(
	logger *zap.Logger,
	httpServer *server.HTTPServer,
	sweeper *biz.Sweeper,
	outboxWorker *worker.OutboxWorker,
) *App {
	return &App{
		Logger:       logger,
		HTTPServer:   httpServer,
		Sweeper:      sweeper,
		OutboxWorker: outboxWorker,
	}
}

// StartWorkers 启动后台任务，随 ctx 取消退出
func (a *App) StartWorkers(ctx context.Context) {
	go a.Sweeper.Run(ctx)
	go a.OutboxWorker.Run(ctx)
}
