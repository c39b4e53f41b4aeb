//go:build wireinject
// +build wireinject

package main

import (
	"costwarden/cmd/notification-service/internal/app"
	"costwarden/cmd/notification-service/internal/conf"
	"costwarden/cmd/notification-service/internal/data"
	"costwarden/cmd/notification-service/internal/infra/kafka"
	ws "costwarden/cmd/notification-service/internal/infra/websocket"
	"costwarden/cmd/notification-service/internal/server"
	"costwarden/cmd/notification-service/internal/service"

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
		data.NewDeliveryRepo,
		data.NewChannelRepo,

		// 基础设施
		provideRedisClient,
		provideRetryQueue,
		provideSecretBox,
		ws.NewHub,
		provideConsumerConfig,
		kafka.NewConsumer,

		// Biz 层
		provideDispatcher,

		// Service 层
		service.NewDeliveryService,

		// Server 层
		provideHTTPConfig,
		server.NewHTTPServer,

		app.NewApp,
	)

	return nil, nil, nil
}
