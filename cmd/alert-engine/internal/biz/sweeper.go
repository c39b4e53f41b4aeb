package biz

import (
	"context"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultSweepInterval 默认扫描间隔
const DefaultSweepInterval = 5 * time.Minute

// Sweeper 周期性批量扫描。一次一条规则，跨规则、跨租户
// 无顺序保证：冷却加去重使重复评估幂等，正确性不依赖顺序。
type Sweeper struct {
	ruleRepo domain.AlertRuleRepository
	engine   *RuleEngine
	store    *EventStore
	interval time.Duration
	log      *log.Helper
}

// NewSweeper 创建扫描器
func NewSweeper(
	ruleRepo domain.AlertRuleRepository,
	engine *RuleEngine,
	store *EventStore,
	interval time.Duration,
	logger log.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		ruleRepo: ruleRepo,
		engine:   engine,
		store:    store,
		interval: interval,
		log:      log.NewHelper(logger),
	}
}

// Run 阻塞运行直到 ctx 取消
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infof("alert sweeper started, interval=%s", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("alert sweeper stopped")
			return
		case <-ticker.C:
			s.SweepAll(ctx)
		}
	}
}

// SweepAll 扫描全部活跃租户。单租户失败只打日志，不中断批次。
func (s *Sweeper) SweepAll(ctx context.Context) {
	tenants, err := s.ruleRepo.ListActiveTenants(ctx)
	if err != nil {
		s.log.WithContext(ctx).Errorf("failed to list active tenants: %v", err)
		return
	}

	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			return
		}
		if err := s.SweepTenant(ctx, tenantID); err != nil {
			s.log.WithContext(ctx).Errorf("sweep failed for tenant %s: %v", tenantID, err)
		}
	}
}

// SweepTenant 评估单个租户的全部启用规则。
// 单条规则评估失败跳过该规则，继续其余规则。
func (s *Sweeper) SweepTenant(ctx context.Context, tenantID string) error {
	rules, err := s.ruleRepo.ListEnabled(ctx, tenantID)
	if err != nil {
		return err
	}

	for _, rule := range rules {
		candidates, err := s.engine.Evaluate(ctx, rule)
		if err != nil {
			s.log.WithContext(ctx).Errorf("rule %s evaluation failed: %v", rule.ID, err)
			continue
		}

		for _, candidate := range candidates {
			if _, err := s.store.Accept(ctx, rule, candidate); err != nil {
				s.log.WithContext(ctx).Errorf("failed to commit alert for rule %s: %v", rule.ID, err)
			}
		}
	}
	return nil
}
