package domain

import (
	"context"
	"errors"
)

// ErrChannelNotFound 渠道配置不存在
var ErrChannelNotFound = errors.New("channel config not found")

// ChannelConfig 渠道配置。凭据（SMTP 口令、webhook 签名密钥、机器人
// token）以密封密文存储，只在投递尝试时解封。
type ChannelConfig struct {
	ID           string
	TenantID     string
	Type         Channel
	Name         string
	Target       string
	SecretSealed string
	Enabled      bool
}

// ChannelRepository 渠道配置仓储
type ChannelRepository interface {
	GetByID(ctx context.Context, id string) (*ChannelConfig, error)
	ListEnabled(ctx context.Context, tenantID string) ([]*ChannelConfig, error)
}

// Sender 渠道发送契约。实现负责自身的超时边界，send 结果只通过 error
// 表达，nil 即成功。
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, delivery *Delivery, secret string) error
}
