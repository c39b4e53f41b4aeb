package main

import (
	"costwarden/cmd/admission-gateway/internal/biz"
	"costwarden/cmd/admission-gateway/internal/conf"
	"costwarden/cmd/admission-gateway/internal/data"
	"costwarden/cmd/admission-gateway/internal/infra/router"
	"costwarden/cmd/admission-gateway/internal/server"
	"costwarden/pkg/cache"
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

// provideRouterConfig 转换路由客户端配置
func provideRouterConfig(config *conf.Config) *router.ClientConfig {
	return &router.ClientConfig{
		BaseURL: config.Router.BaseURL,
		Timeout: config.Router.Timeout,
	}
}

// provideEnforcement 解析失败策略配置
func provideEnforcement(config *conf.Config) biz.EnforcementConfig {
	enforcement := biz.DefaultEnforcementConfig()
	if mode := config.Enforcement.BudgetFailureMode; mode != "" {
		enforcement.BudgetFailureMode = biz.FailureMode(mode)
	}
	if mode := config.Enforcement.PolicyFailureMode; mode != "" {
		enforcement.PolicyFailureMode = biz.FailureMode(mode)
	}
	return enforcement
}

// provideSpendCache 创建当日支出缓存
func provideSpendCache(config *conf.Config) (cache.Cache, func()) {
	c := cache.NewRedisCache(
		config.Redis.Addr,
		config.Redis.Password,
		config.Redis.DB,
		"costwarden:admission",
	)
	return c, func() { _ = c.Close() }
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
