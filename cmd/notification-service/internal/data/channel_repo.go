package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"costwarden/cmd/notification-service/internal/domain"
)

// ChannelConfigPO 渠道配置持久化对象。SecretSealed 存密封密文，
// 明文凭据不落库。
type ChannelConfigPO struct {
	ID           string `gorm:"primaryKey;size:64"`
	TenantID     string `gorm:"size:64;not null;index:idx_channel_tenant"`
	Type         string `gorm:"size:32;not null"`
	Name         string `gorm:"size:128;not null"`
	Target       string `gorm:"size:512"`
	SecretSealed string `gorm:"type:text"`
	Enabled      bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName 表名
func (ChannelConfigPO) TableName() string {
	return "notification_channels"
}

// ChannelRepository 渠道配置仓储实现
type ChannelRepository struct {
	data *Data
	log  *log.Helper
}

// NewChannelRepo 创建渠道配置仓储
func NewChannelRepo(data *Data, logger log.Logger) domain.ChannelRepository {
	return &ChannelRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetByID 按 id 读取渠道配置
func (r *ChannelRepository) GetByID(ctx context.Context, id string) (*domain.ChannelConfig, error) {
	var po ChannelConfigPO
	err := r.data.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChannelNotFound
		}
		return nil, err
	}
	return channelToDomain(&po), nil
}

// ListEnabled 租户全部启用的渠道
func (r *ChannelRepository) ListEnabled(ctx context.Context, tenantID string) ([]*domain.ChannelConfig, error) {
	var pos []ChannelConfigPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	configs := make([]*domain.ChannelConfig, 0, len(pos))
	for i := range pos {
		configs = append(configs, channelToDomain(&pos[i]))
	}
	return configs, nil
}

func channelToDomain(po *ChannelConfigPO) *domain.ChannelConfig {
	return &domain.ChannelConfig{
		ID:           po.ID,
		TenantID:     po.TenantID,
		Type:         domain.Channel(po.Type),
		Name:         po.Name,
		Target:       po.Target,
		SecretSealed: po.SecretSealed,
		Enabled:      po.Enabled,
	}
}
