package data

import (
	"context"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// AlertRulePO 告警规则持久化对象
type AlertRulePO struct {
	ID              string `gorm:"primaryKey;size:64"`
	TenantID        string `gorm:"size:64;not null;index:idx_rule_tenant"`
	Name            string `gorm:"size:128;not null"`
	Type            string `gorm:"size:32;not null"`
	Enabled         bool   `gorm:"not null;default:true"`
	Threshold       float64
	SpikePercent    float64
	TopSharePercent float64
	LookbackDays    int
	Provider        string `gorm:"size:50"`
	CooldownHours   int
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 表名
func (AlertRulePO) TableName() string {
	return "alert_rules"
}

// AlertRuleRepository 规则仓储实现
type AlertRuleRepository struct {
	data *Data
	log  *log.Helper
}

// NewAlertRuleRepo 创建规则仓储
func NewAlertRuleRepo(data *Data, logger log.Logger) domain.AlertRuleRepository {
	return &AlertRuleRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListEnabled 租户全部启用的规则
func (r *AlertRuleRepository) ListEnabled(ctx context.Context, tenantID string) ([]*domain.AlertRule, error) {
	var pos []AlertRulePO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ? AND enabled = ?", tenantID, true).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	rules := make([]*domain.AlertRule, 0, len(pos))
	for i := range pos {
		rules = append(rules, ruleToDomain(&pos[i]))
	}
	return rules, nil
}

// ListActiveTenants 存在启用规则的租户
func (r *AlertRuleRepository) ListActiveTenants(ctx context.Context) ([]string, error) {
	var tenants []string
	err := r.data.db.WithContext(ctx).
		Model(&AlertRulePO{}).
		Where("enabled = ?", true).
		Distinct("tenant_id").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

func ruleToDomain(po *AlertRulePO) *domain.AlertRule {
	return &domain.AlertRule{
		ID:              po.ID,
		TenantID:        po.TenantID,
		Name:            po.Name,
		Type:            domain.RuleType(po.Type),
		Enabled:         po.Enabled,
		Threshold:       po.Threshold,
		SpikePercent:    po.SpikePercent,
		TopSharePercent: po.TopSharePercent,
		LookbackDays:    po.LookbackDays,
		Provider:        po.Provider,
		CooldownHours:   po.CooldownHours,
		LastTriggeredAt: po.LastTriggeredAt,
		CreatedAt:       po.CreatedAt,
		UpdatedAt:       po.UpdatedAt,
	}
}
