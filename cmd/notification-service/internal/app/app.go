package app

import (
	"context"

	"go.uber.org/zap"

	"costwarden/cmd/notification-service/internal/biz"
	"costwarden/cmd/notification-service/internal/infra/kafka"
	"costwarden/cmd/notification-service/internal/scheduler"
	"costwarden/cmd/notification-service/internal/server"
)

// App 应用程序
type App struct {
	Logger     *zap.Logger
	HTTPServer *server.HTTPServer
	Consumer   *kafka.Consumer
	RetryQueue *scheduler.RetryQueue
	Dispatcher *biz.DispatcherUsecase
}

// NewApp 创建应用程序
func NewApp(
	logger *zap.Logger,
	httpServer *server.HTTPServer,
	consumer *kafka.Consumer,
	retryQueue *scheduler.RetryQueue,
	dispatcher *biz.DispatcherUsecase,
) *App {
	return &App{
		Logger:     logger,
		HTTPServer: httpServer,
		Consumer:   consumer,
		RetryQueue: retryQueue,
		Dispatcher: dispatcher,
	}
}

// StartWorkers 启动后台任务，随 ctx 取消退出
func (a *App) StartWorkers(ctx context.Context) {
	go func() {
		if err := a.Consumer.Run(ctx); err != nil {
			a.Logger.Error("kafka consumer stopped", zap.Error(err))
		}
	}()
	go a.RetryQueue.Run(ctx, a.Dispatcher.Retry)
}
