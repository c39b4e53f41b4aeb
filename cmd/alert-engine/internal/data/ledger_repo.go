package data

import (
	"context"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// ledgerRowPO 成本账本行的只读映射。表由准入网关迁移与写入，
// 这里只声明聚合需要的列。
type ledgerRowPO struct {
	TenantID   string
	OccurredAt time.Time
	Provider   string
	UserID     string
	TeamID     string
	ProjectID  string
	AppID      string
	ClientID   string
	Cost       float64
}

// TableName 表名
func (ledgerRowPO) TableName() string {
	return "cost_events"
}

// LedgerRepository 账本只读仓储实现。全部聚合用索引列谓词
// 在查询层完成，不把行拉到内存过滤。
type LedgerRepository struct {
	data *Data
	log  *log.Helper
}

// NewLedgerRepo 创建账本只读仓储
func NewLedgerRepo(data *Data, logger log.Logger) domain.LedgerReader {
	return &LedgerRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// SumRange 区间花费合计
func (r *LedgerRepository) SumRange(ctx context.Context, tenantID, provider string, from, to time.Time) (float64, error) {
	query := r.data.db.WithContext(ctx).
		Model(&ledgerRowPO{}).
		Where("tenant_id = ? AND occurred_at >= ? AND occurred_at < ?", tenantID, from, to)
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var total float64
	err := query.Select("COALESCE(SUM(cost), 0)").Scan(&total).Error
	return total, err
}

// SumForScope 按维度过滤的花费合计
func (r *LedgerRepository) SumForScope(ctx context.Context, tenantID string, filter domain.ScopeFilter, since time.Time) (float64, error) {
	query := r.data.db.WithContext(ctx).
		Model(&ledgerRowPO{}).
		Where("tenant_id = ? AND occurred_at >= ?", tenantID, since)
	query = applyScopeFilter(query, filter)

	var total float64
	err := query.Select("COALESCE(SUM(cost), 0)").Scan(&total).Error
	return total, err
}

// SpendByConsumer 按消费者聚合，金额倒序
func (r *LedgerRepository) SpendByConsumer(ctx context.Context, tenantID string, from, to time.Time) ([]*domain.ConsumerSpend, error) {
	var rows []struct {
		UserID string
		Spend  float64
	}
	err := r.data.db.WithContext(ctx).
		Model(&ledgerRowPO{}).
		Select("user_id, SUM(cost) AS spend").
		Where("tenant_id = ? AND occurred_at >= ? AND occurred_at < ? AND user_id <> ''", tenantID, from, to).
		Group("user_id").
		Order("spend DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*domain.ConsumerSpend, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.ConsumerSpend{UserID: row.UserID, Spend: row.Spend})
	}
	return out, nil
}

func applyScopeFilter(query *gorm.DB, filter domain.ScopeFilter) *gorm.DB {
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.TeamID != "" {
		query = query.Where("team_id = ?", filter.TeamID)
	}
	if filter.ProjectID != "" {
		query = query.Where("project_id = ?", filter.ProjectID)
	}
	if filter.AppID != "" {
		query = query.Where("app_id = ?", filter.AppID)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	return query
}
