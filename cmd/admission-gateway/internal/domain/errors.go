package domain

import "errors"

var (
	// ErrMissingTenant 请求缺少租户
	ErrMissingTenant = errors.New("tenant_id is required")
	// ErrMissingModel 请求缺少模型
	ErrMissingModel = errors.New("model is required")
	// ErrEmptyRequest 既无 prompt 也无会话
	ErrEmptyRequest = errors.New("request must carry a prompt or a conversation")
	// ErrBudgetNotFound 预算不存在
	ErrBudgetNotFound = errors.New("budget not found")
	// ErrNoProviderConfigured 租户没有可用的提供商配置。
	// 路由实现必须显式返回该错误，调用方用 errors.Is 判断。
	ErrNoProviderConfigured = errors.New("no provider configured")
)
