package data

import (
	"context"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/lib/pq"
)

// PolicyPO 策略持久化对象
type PolicyPO struct {
	ID                  string         `gorm:"primaryKey;size:64"`
	TenantID            string         `gorm:"size:64;not null;index:idx_policy_tenant"`
	Name                string         `gorm:"size:100;not null"`
	Enabled             bool           `gorm:"not null;default:true"`
	BlockedModels       pq.StringArray `gorm:"type:text[]"`
	AllowedModels       pq.StringArray `gorm:"type:text[]"`
	MaxTokensPerRequest int            `gorm:"not null;default:0"`
	DailyCostCeiling    float64        `gorm:"type:decimal(14,6);not null;default:0"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName 表名
func (PolicyPO) TableName() string {
	return "usage_policies"
}

// PolicyRepository 策略仓储实现
type PolicyRepository struct {
	data *Data
	log  *log.Helper
}

// NewPolicyRepo 创建策略仓储
func NewPolicyRepo(data *Data, logger log.Logger) domain.PolicyRepository {
	return &PolicyRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListEnabled 租户全部启用的策略
func (r *PolicyRepository) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	var pos []PolicyPO
	if err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("created_at").
		Find(&pos).Error; err != nil {
		r.log.Errorf("failed to list policies: %v", err)
		return nil, err
	}

	policies := make([]*domain.Policy, 0, len(pos))
	for i := range pos {
		po := &pos[i]
		policies = append(policies, &domain.Policy{
			ID:                  po.ID,
			TenantID:            po.TenantID,
			Name:                po.Name,
			Enabled:             po.Enabled,
			BlockedModels:       []string(po.BlockedModels),
			AllowedModels:       []string(po.AllowedModels),
			MaxTokensPerRequest: po.MaxTokensPerRequest,
			DailyCostCeiling:    po.DailyCostCeiling,
			CreatedAt:           po.CreatedAt,
			UpdatedAt:           po.UpdatedAt,
		})
	}
	return policies, nil
}
