package data

import (
	"context"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// BudgetPO 预算持久化对象
type BudgetPO struct {
	ID               string  `gorm:"primaryKey;size:64"`
	TenantID         string  `gorm:"size:64;not null;index:idx_budget_tenant_scope,priority:1"`
	Scope            string  `gorm:"size:20;not null;index:idx_budget_tenant_scope,priority:2"`
	ScopeID          string  `gorm:"size:64;index:idx_budget_tenant_scope,priority:3"`
	Period           string  `gorm:"size:20;not null"`
	LimitAmount      float64 `gorm:"type:decimal(14,6);not null"`
	WarnThresholdPct float64 `gorm:"type:decimal(5,2)"`
	HardLimit        bool    `gorm:"not null;default:false"`
	Enabled          bool    `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TableName 表名
func (BudgetPO) TableName() string {
	return "budgets"
}

// BudgetRepository 预算仓储实现
type BudgetRepository struct {
	data *Data
	log  *log.Helper
}

// NewBudgetRepo 创建预算仓储
func NewBudgetRepo(data *Data, logger log.Logger) domain.BudgetRepository {
	return &BudgetRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetByID 根据ID获取预算
func (r *BudgetRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.Budget, error) {
	var po BudgetPO
	if err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&po).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, domain.ErrBudgetNotFound
		}
		r.log.Errorf("failed to get budget: %v", err)
		return nil, err
	}
	return r.toDomain(&po), nil
}

// FindHardLimit 查找维度上启用的硬限预算，无匹配返回 (nil, nil)
func (r *BudgetRepository) FindHardLimit(ctx context.Context, tenantID string, scope domain.BudgetScope, scopeID string) (*domain.Budget, error) {
	query := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND scope = ? AND enabled = ? AND hard_limit = ?",
			tenantID, string(scope), true, true)

	if scope == domain.ScopeOrg {
		query = query.Where("scope_id = '' OR scope_id IS NULL")
	} else {
		query = query.Where("scope_id = ?", scopeID)
	}

	var po BudgetPO
	if err := query.First(&po).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		r.log.Errorf("failed to find hard-limit budget: %v", err)
		return nil, err
	}
	return r.toDomain(&po), nil
}

// ListEnabled 租户全部启用的预算
func (r *BudgetRepository) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Budget, error) {
	var pos []BudgetPO
	if err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Order("created_at").
		Find(&pos).Error; err != nil {
		r.log.Errorf("failed to list budgets: %v", err)
		return nil, err
	}

	budgets := make([]*domain.Budget, 0, len(pos))
	for i := range pos {
		budgets = append(budgets, r.toDomain(&pos[i]))
	}
	return budgets, nil
}

// CountByTenant 租户预算总数
func (r *BudgetRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).
		Model(&BudgetPO{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error; err != nil {
		r.log.Errorf("failed to count budgets: %v", err)
		return 0, err
	}
	return count, nil
}

func (r *BudgetRepository) toDomain(po *BudgetPO) *domain.Budget {
	return &domain.Budget{
		ID:               po.ID,
		TenantID:         po.TenantID,
		Scope:            domain.BudgetScope(po.Scope),
		ScopeID:          po.ScopeID,
		Period:           domain.BudgetPeriod(po.Period),
		LimitAmount:      po.LimitAmount,
		WarnThresholdPct: po.WarnThresholdPct,
		HardLimit:        po.HardLimit,
		Enabled:          po.Enabled,
		CreatedAt:        po.CreatedAt,
		UpdatedAt:        po.UpdatedAt,
	}
}
