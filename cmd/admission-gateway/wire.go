//go:build wireinject
// +build wireinject

package main

import (
	"costwarden/cmd/admission-gateway/internal/app"
	"costwarden/cmd/admission-gateway/internal/biz"
	"costwarden/cmd/admission-gateway/internal/conf"
	"costwarden/cmd/admission-gateway/internal/data"
	"costwarden/cmd/admission-gateway/internal/domain"
	"costwarden/cmd/admission-gateway/internal/infra/router"
	"costwarden/cmd/admission-gateway/internal/server"
	"costwarden/cmd/admission-gateway/internal/service"
	"costwarden/cmd/admission-gateway/internal/worker"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"go.uber.org/zap"
)

// initApp 初始化应用
func initApp(config *conf.Config, logger *zap.Logger, kratosLogger log.Logger) (*app.App, func(), error) {
	wire.Build(
		// Data 层
		provideDBConfig,
		data.NewDB,
		data.NewData,
		data.NewCostEventRepo,
		data.NewBudgetRepo,
		data.NewPolicyRepo,
		data.NewOutboxRepo,

		// 基础设施
		provideSpendCache,
		providePublisher,
		provideRouterConfig,
		router.NewClient,
		wire.Bind(new(domain.ProviderRouter), new(*router.Client)),

		// Biz 层
		biz.NewCostEstimator,
		provideEnforcement,
		biz.NewBudgetUsecase,
		biz.NewPolicyUsecase,
		biz.NewAdmissionUsecase,

		// Service 层
		service.NewAdmissionService,

		// Server 层
		provideHTTPConfig,
		server.NewHTTPServer,
		worker.NewOutboxWorker,

		app.NewApp,
	)

	return nil, nil, nil
}
