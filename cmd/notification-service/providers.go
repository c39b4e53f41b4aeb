package main

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"

	"costwarden/cmd/notification-service/internal/biz"
	"costwarden/cmd/notification-service/internal/conf"
	"costwarden/cmd/notification-service/internal/data"
	"costwarden/cmd/notification-service/internal/domain"
	"costwarden/cmd/notification-service/internal/infra/kafka"
	"costwarden/cmd/notification-service/internal/infra/senders"
	ws "costwarden/cmd/notification-service/internal/infra/websocket"
	"costwarden/cmd/notification-service/internal/scheduler"
	"costwarden/cmd/notification-service/internal/server"
	"costwarden/pkg/crypto"
)

// provideDBConfig 转换数据库配置
func provideDBConfig(config *conf.Config) *data.DBConfig {
	return &data.DBConfig{
		Host:     config.Database.Host,
		Port:     config.Database.Port,
		User:     config.Database.User,
		Password: config.Database.Password,
		Database: config.Database.DBName,
		SSLMode:  config.Database.SSLMode,
	}
}

// provideHTTPConfig 转换 HTTP 服务配置
func provideHTTPConfig(config *conf.Config) *server.HTTPConfig {
	return &server.HTTPConfig{
		Mode:      config.Server.Mode,
		JWTSecret: config.Auth.JWTSecret,
	}
}

// provideRedisClient 创建重试队列用的 Redis 客户端
func provideRedisClient(config *conf.Config) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	return client, func() { _ = client.Close() }, nil
}

// provideRetryQueue 创建重试队列
func provideRetryQueue(config *conf.Config, client *redis.Client, logger log.Logger) *scheduler.RetryQueue {
	return scheduler.NewRetryQueue(client, config.Retry.PollInterval, logger)
}

// provideSecretBox 创建渠道凭据解封器
func provideSecretBox(config *conf.Config) (*crypto.SecretBox, error) {
	box, err := crypto.NewSecretBox([]byte(config.Crypto.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("invalid channel secret key: %w", err)
	}
	return box, nil
}

// provideConsumerConfig 转换消费者配置
func provideConsumerConfig(config *conf.Config) kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers: config.Kafka.Brokers,
		Topic:   config.Kafka.Topic,
		GroupID: config.Kafka.GroupID,
	}
}

// provideDispatcher 创建分发用例并注册全部渠道发送器
func provideDispatcher(
	config *conf.Config,
	deliveries domain.DeliveryRepository,
	channels domain.ChannelRepository,
	retryQueue *scheduler.RetryQueue,
	secretBox *crypto.SecretBox,
	hub *ws.Hub,
	logger log.Logger,
) *biz.DispatcherUsecase {
	dispatcher := biz.NewDispatcherUsecase(deliveries, channels, retryQueue, secretBox, logger)

	dispatcher.RegisterSender(senders.NewEmailSender(senders.SMTPConfig{
		Host:     config.SMTP.Host,
		Port:     config.SMTP.Port,
		Username: config.SMTP.Username,
		From:     config.SMTP.From,
	}))
	dispatcher.RegisterSender(senders.NewChatbotSender())
	dispatcher.RegisterSender(senders.NewWebhookSender())
	dispatcher.RegisterSender(senders.NewInAppSender(hub))

	return dispatcher
}
