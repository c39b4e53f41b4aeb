package data

import (
	"context"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// AlertEventPO 告警事件持久化对象
type AlertEventPO struct {
	ID          string    `gorm:"primaryKey;size:64"`
	TenantID    string    `gorm:"size:64;not null;index:idx_event_tenant_triggered,priority:1"`
	RuleID      string    `gorm:"size:64;not null;index:idx_event_rule_triggered,priority:1"`
	RuleType    string    `gorm:"size:32;not null"`
	Severity    string    `gorm:"size:16;not null"`
	Amount      float64   `gorm:"type:decimal(14,6)"`
	Message     string    `gorm:"type:text"`
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metadata    domain.MetadataMap `gorm:"type:jsonb"`
	TriggeredAt time.Time          `gorm:"not null;index:idx_event_tenant_triggered,priority:2;index:idx_event_rule_triggered,priority:2"`
}

// TableName 表名
func (AlertEventPO) TableName() string {
	return "alert_events"
}

// AlertEventRepository 告警事件仓储实现
type AlertEventRepository struct {
	data *Data
	log  *log.Helper
}

// NewAlertEventRepo 创建告警事件仓储
func NewAlertEventRepo(data *Data, logger log.Logger) domain.AlertEventRepository {
	return &AlertEventRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// Commit 单事务提交：对规则 last_triggered_at 做条件更新，
// 条件带上读到的旧值（CAS），并发扫描只有一方能赢；
// 赢者在同一事务内写入事件行与 outbox 行。
func (r *AlertEventRepository) Commit(ctx context.Context, rule *domain.AlertRule, event *domain.AlertEvent, outbox *domain.OutboxEvent) (bool, error) {
	committed := false

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&AlertRulePO{}).
			Where("id = ?", rule.ID)
		if rule.LastTriggeredAt == nil {
			update = update.Where("last_triggered_at IS NULL")
		} else {
			update = update.Where("last_triggered_at = ?", *rule.LastTriggeredAt)
		}
		result := update.Update("last_triggered_at", event.TriggeredAt)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			// 另一个扫描抢先更新了触发时间，本次放弃
			return nil
		}

		eventPO := &AlertEventPO{
			ID:          event.ID,
			TenantID:    event.TenantID,
			RuleID:      event.RuleID,
			RuleType:    string(event.RuleType),
			Severity:    string(event.Severity),
			Amount:      event.Amount,
			Message:     event.Message,
			PeriodStart: event.PeriodStart,
			PeriodEnd:   event.PeriodEnd,
			Metadata:    event.Metadata,
			TriggeredAt: event.TriggeredAt,
		}
		if err := tx.Create(eventPO).Error; err != nil {
			return err
		}

		outboxPO := &OutboxEventPO{
			TenantID:  outbox.TenantID,
			EventType: outbox.EventType,
			Payload:   string(outbox.Payload),
			CreatedAt: outbox.CreatedAt,
		}
		if err := tx.Create(outboxPO).Error; err != nil {
			return err
		}

		committed = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return committed, nil
}

// CountSince 指定规则自 since 起的事件数
func (r *AlertEventRepository) CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error) {
	var count int64
	err := r.data.db.WithContext(ctx).
		Model(&AlertEventPO{}).
		Where("rule_id = ? AND triggered_at >= ?", ruleID, since).
		Count(&count).Error
	return count, err
}

// ListRecent 租户最近的告警事件
func (r *AlertEventRepository) ListRecent(ctx context.Context, tenantID string, limit int) ([]*domain.AlertEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var pos []AlertEventPO
	err := r.data.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("triggered_at DESC").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	events := make([]*domain.AlertEvent, 0, len(pos))
	for i := range pos {
		po := &pos[i]
		events = append(events, &domain.AlertEvent{
			ID:          po.ID,
			TenantID:    po.TenantID,
			RuleID:      po.RuleID,
			RuleType:    domain.RuleType(po.RuleType),
			Severity:    domain.Severity(po.Severity),
			Amount:      po.Amount,
			Message:     po.Message,
			PeriodStart: po.PeriodStart,
			PeriodEnd:   po.PeriodEnd,
			Metadata:    po.Metadata,
			TriggeredAt: po.TriggeredAt,
		})
	}
	return events, nil
}
