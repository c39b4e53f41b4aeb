package data

import (
	"context"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// budgetRowPO 预算表的只读映射，表由准入网关迁移
type budgetRowPO struct {
	ID               string
	TenantID         string
	Scope            string
	ScopeID          string
	Period           string
	LimitAmount      float64
	WarnThresholdPct float64
	Enabled          bool
}

// TableName 表名
func (budgetRowPO) TableName() string {
	return "budgets"
}

// BudgetRepository 预算只读仓储实现
type BudgetRepository struct {
	data *Data
	log  *log.Helper
}

// NewBudgetRepo 创建预算只读仓储
func NewBudgetRepo(data *Data, logger log.Logger) domain.BudgetReader {
	return &BudgetRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListEnabled 租户全部启用的预算
func (r *BudgetRepository) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Budget, error) {
	var pos []budgetRowPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	budgets := make([]*domain.Budget, 0, len(pos))
	for i := range pos {
		po := &pos[i]
		budgets = append(budgets, &domain.Budget{
			ID:               po.ID,
			TenantID:         po.TenantID,
			Scope:            domain.BudgetScope(po.Scope),
			ScopeID:          po.ScopeID,
			Period:           domain.BudgetPeriod(po.Period),
			LimitAmount:      po.LimitAmount,
			WarnThresholdPct: po.WarnThresholdPct,
			Enabled:          po.Enabled,
		})
	}
	return budgets, nil
}

// CountByTenant 租户预算总数（任意维度、任意状态）
func (r *BudgetRepository) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.data.db.WithContext(ctx).
		Model(&budgetRowPO{}).
		Where("tenant_id = ?", tenantID).
		Count(&count).Error
	return count, err
}
