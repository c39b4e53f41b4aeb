package service

import (
	"context"
	"time"

	"costwarden/cmd/alert-engine/internal/biz"
	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// AlertService 告警引擎对外接口层
type AlertService struct {
	eventRepo domain.AlertEventRepository
	sweeper   *biz.Sweeper
	log       *log.Helper
}

// NewAlertService 创建告警服务
func NewAlertService(
	eventRepo domain.AlertEventRepository,
	sweeper *biz.Sweeper,
	logger log.Logger,
) *AlertService {
	return &AlertService{
		eventRepo: eventRepo,
		sweeper:   sweeper,
		log:       log.NewHelper(logger),
	}
}

// AlertEventDTO 告警事件
type AlertEventDTO struct {
	ID          string                 `json:"id"`
	RuleID      string                 `json:"rule_id"`
	RuleType    string                 `json:"rule_type"`
	Severity    string                 `json:"severity"`
	Amount      float64                `json:"amount"`
	Message     string                 `json:"message"`
	PeriodStart time.Time              `json:"period_start"`
	PeriodEnd   time.Time              `json:"period_end"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	TriggeredAt time.Time              `json:"triggered_at"`
}

// ListRecent 租户最近的告警事件
func (s *AlertService) ListRecent(ctx context.Context, tenantID string, limit int) ([]*AlertEventDTO, error) {
	alerts, err := s.eventRepo.ListRecent(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*AlertEventDTO, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, &AlertEventDTO{
			ID:          a.ID,
			RuleID:      a.RuleID,
			RuleType:    string(a.RuleType),
			Severity:    string(a.Severity),
			Amount:      a.Amount,
			Message:     a.Message,
			PeriodStart: a.PeriodStart,
			PeriodEnd:   a.PeriodEnd,
			Metadata:    a.Metadata,
			TriggeredAt: a.TriggeredAt,
		})
	}
	return out, nil
}

// SweepNow 立即对租户执行一次规则扫描（管理入口，
// 与周期扫描共用冷却和去重，重复调用幂等）
func (s *AlertService) SweepNow(ctx context.Context, tenantID string) error {
	return s.sweeper.SweepTenant(ctx, tenantID)
}
