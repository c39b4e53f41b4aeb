package biz

import (
	"context"
	"encoding/json"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"
	"costwarden/pkg/events"
	"costwarden/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// EventStore 候选告警的唯一落库入口。先冷却、再去重，
// 接受时在单个事务内写事件、CAS 更新规则触发时间、写 outbox。
type EventStore struct {
	eventRepo domain.AlertEventRepository
	now       func() time.Time
	log       *log.Helper
}

// NewEventStore 创建事件存储
func NewEventStore(eventRepo domain.AlertEventRepository, logger log.Logger) *EventStore {
	return &EventStore{
		eventRepo: eventRepo,
		now:       time.Now,
		log:       log.NewHelper(logger),
	}
}

// Accept 对候选做冷却与去重，接受则原子落库并返回事件，
// 被抑制返回 (nil, nil)。CAS 未命中视为并发扫描已触发，同样抑制。
func (s *EventStore) Accept(ctx context.Context, rule *domain.AlertRule, candidate *domain.AlertCandidate) (*domain.AlertEvent, error) {
	now := s.now()

	if rule.InCooldown(now) {
		monitoring.AlertsSuppressed.WithLabelValues(rule.TenantID, string(rule.Type), "cooldown").Inc()
		return nil, nil
	}

	recent, err := s.eventRepo.CountSince(ctx, rule.ID, now.Add(-domain.DedupWindow))
	if err != nil {
		return nil, err
	}
	if recent > 0 {
		monitoring.AlertsSuppressed.WithLabelValues(rule.TenantID, string(rule.Type), "dedup").Inc()
		return nil, nil
	}

	event := &domain.AlertEvent{
		ID:          uuid.New().String(),
		TenantID:    rule.TenantID,
		RuleID:      rule.ID,
		RuleType:    rule.Type,
		Severity:    candidate.Severity,
		Amount:      candidate.Amount,
		Message:     candidate.Message,
		PeriodStart: candidate.PeriodStart,
		PeriodEnd:   candidate.PeriodEnd,
		Metadata:    candidate.Metadata,
		TriggeredAt: now,
	}

	committed, err := s.eventRepo.Commit(ctx, rule, event, s.outboxRow(event))
	if err != nil {
		return nil, err
	}
	if !committed {
		monitoring.AlertsSuppressed.WithLabelValues(rule.TenantID, string(rule.Type), "race").Inc()
		return nil, nil
	}

	// 本地同步，避免同一次扫描内凭过期的触发时间重复放行
	triggered := now
	rule.LastTriggeredAt = &triggered

	monitoring.AlertsTriggered.WithLabelValues(rule.TenantID, string(rule.Type), string(event.Severity)).Inc()
	s.log.WithContext(ctx).Infof("alert triggered: tenant=%s rule=%s severity=%s", rule.TenantID, rule.ID, event.Severity)
	return event, nil
}

// outboxRow 触发信号由 outbox worker 异步投递，
// 投递失败永不回滚或上抛到评估方。
func (s *EventStore) outboxRow(event *domain.AlertEvent) *domain.OutboxEvent {
	envelope := events.NewEnvelope(event.TenantID, events.EventAlertTriggered, map[string]interface{}{
		"alert_event_id": event.ID,
		"rule_id":        event.RuleID,
		"rule_type":      string(event.RuleType),
		"severity":       string(event.Severity),
		"amount":         event.Amount,
		"message":        event.Message,
	})
	payload, _ := json.Marshal(envelope)
	return &domain.OutboxEvent{
		TenantID:  event.TenantID,
		EventType: string(events.EventAlertTriggered),
		Payload:   payload,
		CreatedAt: event.TriggeredAt,
	}
}
