//go:build wireinject
// +build wireinject

package main

import (
	"time"

	"costwarden/cmd/alert-engine/internal/app"
	"costwarden/cmd/alert-engine/internal/biz"
	"costwarden/cmd/alert-engine/internal/conf"
	"costwarden/cmd/alert-engine/internal/data"
	"costwarden/cmd/alert-engine/internal/server"
	"costwarden/cmd/alert-engine/internal/service"
	"costwarden/cmd/alert-engine/internal/worker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"go.uber.org/zap"
)

// initApp 初始化应用
func initApp(config *conf.Config, logger *zap.Logger, kratosLogger log.Logger, sweepInterval time.Duration) (*app.App, func(), error) {
	wire.Build(
		// Data 层
		provideDBConfig,
		data.NewDB,
		data.NewData,
		data.NewAlertRuleRepo,
		data.NewAlertEventRepo,
		data.NewLedgerRepo,
		data.NewBudgetRepo,
		data.NewIngestionRepo,
		data.NewOutboxRepo,

		// 基础设施
		providePublisher,

		// Biz 层
		biz.NewRuleEngine,
		biz.NewEventStore,
		biz.NewSweeper,

		// Service 层
		service.NewAlertService,

		// Server 层
		provideHTTPConfig,
		server.NewHTTPServer,
		worker.NewOutboxWorker,

		app.NewApp,
	)

	return nil, nil, nil
}
