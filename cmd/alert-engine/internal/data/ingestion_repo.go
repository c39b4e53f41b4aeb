package data

import (
	"context"
	"errors"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// BillingIngestionPO 租户级账单摄取开关
type BillingIngestionPO struct {
	TenantID  string `gorm:"primaryKey;size:64"`
	Enabled   bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 表名
func (BillingIngestionPO) TableName() string {
	return "billing_ingestions"
}

// IngestionBatchPO 一次摄取批次
type IngestionBatchPO struct {
	ID        string    `gorm:"primaryKey;size:64"`
	TenantID  string    `gorm:"size:64;not null;index:idx_batch_tenant_started,priority:1"`
	StartedAt time.Time `gorm:"not null;index:idx_batch_tenant_started,priority:2"`
	Status    string    `gorm:"size:32"`
	CreatedAt time.Time
}

// TableName 表名
func (IngestionBatchPO) TableName() string {
	return "ingestion_batches"
}

// IngestionRepository 摄取状态仓储实现
type IngestionRepository struct {
	data *Data
	log  *log.Helper
}

// NewIngestionRepo 创建摄取状态仓储
func NewIngestionRepo(data *Data, logger log.Logger) domain.IngestionReader {
	return &IngestionRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Enabled 租户是否启用账单摄取。无配置行视为未启用。
func (r *IngestionRepository) Enabled(ctx context.Context, tenantID string) (bool, error) {
	var po BillingIngestionPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return po.Enabled, nil
}

// LatestBatchStart 最近一次批次开始时间，从未运行返回 nil
func (r *IngestionRepository) LatestBatchStart(ctx context.Context, tenantID string) (*time.Time, error) {
	var po IngestionBatchPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("started_at DESC").
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &po.StartedAt, nil
}
