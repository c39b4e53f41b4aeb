package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"costwarden/cmd/notification-service/internal/domain"
)

// DeliveryPO 投递记录持久化对象
type DeliveryPO struct {
	ID           string `gorm:"primaryKey;size:64"`
	TenantID     string `gorm:"size:64;not null;index:idx_delivery_tenant_created,priority:1"`
	AlertEventID string `gorm:"size:64;index:idx_delivery_event"`
	ChannelID    string `gorm:"size:64;not null"`
	Channel      string `gorm:"size:32;not null"`
	Target       string `gorm:"size:512"`
	Title        string `gorm:"size:256"`
	Content      string `gorm:"type:text"`
	Status       string `gorm:"size:16;not null;index:idx_delivery_status"`
	Attempts     int    `gorm:"not null;default:0"`
	LastError    string `gorm:"type:text"`
	NextRetryAt  *time.Time
	SentAt       *time.Time
	Metadata     domain.MetadataMap `gorm:"type:jsonb"`
	CreatedAt    time.Time          `gorm:"index:idx_delivery_tenant_created,priority:2,sort:desc"`
	UpdatedAt    time.Time
}

// TableName 表名
func (DeliveryPO) TableName() string {
	return "notification_deliveries"
}

// DeliveryRepository 投递记录仓储实现
type DeliveryRepository struct {
	data *Data
	log  *log.Helper
}

// NewDeliveryRepo 创建投递记录仓储
func NewDeliveryRepo(data *Data, logger log.Logger) domain.DeliveryRepository {
	return &DeliveryRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Create 写入投递记录
func (r *DeliveryRepository) Create(ctx context.Context, delivery *domain.Delivery) error {
	po := deliveryFromDomain(delivery)
	return r.data.db.WithContext(ctx).Create(po).Error
}

// Update 更新投递状态
func (r *DeliveryRepository) Update(ctx context.Context, delivery *domain.Delivery) error {
	po := deliveryFromDomain(delivery)
	return r.data.db.WithContext(ctx).
		Model(&DeliveryPO{}).
		Where("id = ?", po.ID).
		Updates(map[string]interface{}{
			"status":        po.Status,
			"attempts":      po.Attempts,
			"last_error":    po.LastError,
			"next_retry_at": po.NextRetryAt,
			"sent_at":       po.SentAt,
			"target":        po.Target,
			"updated_at":    po.UpdatedAt,
		}).Error
}

// GetByID 按 id 读取投递记录
func (r *DeliveryRepository) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	var po DeliveryPO
	err := r.data.db.WithContext(ctx).Where("id = ?", id).First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("delivery %s not found", id)
		}
		return nil, err
	}
	return deliveryToDomain(&po), nil
}

// ListByTenant 租户最近的投递记录，按创建时间倒序
func (r *DeliveryRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	var pos []DeliveryPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	deliveries := make([]*domain.Delivery, 0, len(pos))
	for i := range pos {
		deliveries = append(deliveries, deliveryToDomain(&pos[i]))
	}
	return deliveries, nil
}

func deliveryFromDomain(d *domain.Delivery) *DeliveryPO {
	return &DeliveryPO{
		ID:           d.ID,
		TenantID:     d.TenantID,
		AlertEventID: d.AlertEventID,
		ChannelID:    d.ChannelID,
		Channel:      string(d.Channel),
		Target:       d.Target,
		Title:        d.Title,
		Content:      d.Content,
		Status:       string(d.Status),
		Attempts:     d.Attempts,
		LastError:    d.LastError,
		NextRetryAt:  d.NextRetryAt,
		SentAt:       d.SentAt,
		Metadata:     d.Metadata,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func deliveryToDomain(po *DeliveryPO) *domain.Delivery {
	return &domain.Delivery{
		ID:           po.ID,
		TenantID:     po.TenantID,
		AlertEventID: po.AlertEventID,
		ChannelID:    po.ChannelID,
		Channel:      domain.Channel(po.Channel),
		Target:       po.Target,
		Title:        po.Title,
		Content:      po.Content,
		Status:       domain.DeliveryStatus(po.Status),
		Attempts:     po.Attempts,
		LastError:    po.LastError,
		NextRetryAt:  po.NextRetryAt,
		SentAt:       po.SentAt,
		Metadata:     po.Metadata,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}
