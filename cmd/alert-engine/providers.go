package main

import (
	"costwarden/cmd/alert-engine/internal/conf"
	"costwarden/cmd/alert-engine/internal/data"
	"costwarden/cmd/alert-engine/internal/server"
	"costwarden/pkg/events"
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

// providePublisher 创建 Kafka 发布器
func providePublisher(config *conf.Config) (events.Publisher, func(), error) {
	publisherConfig := events.DefaultPublisherConfig()
	if len(config.Kafka.Brokers) > 0 {
		publisherConfig.Brokers = config.Kafka.Brokers
	}
	if config.Kafka.Topic != "" {
		publisherConfig.Topic = config.Kafka.Topic
	}

	publisher, err := events.NewKafkaPublisher(publisherConfig)
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() { _ = publisher.Close() }, nil
}
