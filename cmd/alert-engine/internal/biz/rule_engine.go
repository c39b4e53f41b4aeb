package biz

import (
	"context"
	"fmt"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// zeroBaselineSpikePct 基线为零但有新增花费时的等效激增百分比
const zeroBaselineSpikePct = 999.0

// RuleEngine 规则评估器。五种规则相互独立、全部只读，
// 评估结果交给事件存储做冷却与去重。
type RuleEngine struct {
	ledger  domain.LedgerReader
	budgets domain.BudgetReader
	ingest  domain.IngestionReader
	now     func() time.Time
	log     *log.Helper
}

// NewRuleEngine 创建规则评估器
func NewRuleEngine(
	ledger domain.LedgerReader,
	budgets domain.BudgetReader,
	ingest domain.IngestionReader,
	logger log.Logger,
) *RuleEngine {
	return &RuleEngine{
		ledger:  ledger,
		budgets: budgets,
		ingest:  ingest,
		now:     time.Now,
		log:     log.NewHelper(logger),
	}
}

// Evaluate 评估单条规则，产出零或多个候选告警
func (e *RuleEngine) Evaluate(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	switch rule.Type {
	case domain.RuleDailySpike:
		return e.evalDailySpike(ctx, rule)
	case domain.RuleTopConsumerShare:
		return e.evalTopConsumerShare(ctx, rule)
	case domain.RuleCURStale:
		return e.evalCURStale(ctx, rule)
	case domain.RuleNoBudgets:
		return e.evalNoBudgets(ctx, rule)
	case domain.RuleBudgetStatus:
		return e.evalBudgetStatus(ctx, rule)
	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}
}

// evalDailySpike 近 24 小时花费对比历史日均基线。
// 基线窗口为当前 24 小时窗口之前的 N 天。
func (e *RuleEngine) evalDailySpike(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	now := e.now()
	windowStart := now.Add(-24 * time.Hour)
	lookback := rule.Lookback()
	baselineStart := windowStart.Add(-time.Duration(lookback) * 24 * time.Hour)

	trailing, err := e.ledger.SumRange(ctx, rule.TenantID, rule.Provider, windowStart, now)
	if err != nil {
		return nil, err
	}

	baselineTotal, err := e.ledger.SumRange(ctx, rule.TenantID, rule.Provider, baselineStart, windowStart)
	if err != nil {
		return nil, err
	}
	baseline := baselineTotal / float64(lookback)

	var increasePct float64
	switch {
	case baseline > 0:
		if trailing <= baseline*(1+rule.SpikePercent/100) {
			return nil, nil
		}
		increasePct = (trailing - baseline) / baseline * 100
	case trailing > 0:
		// 无历史可比：任何新增花费都视为等效 999% 的激增
		increasePct = zeroBaselineSpikePct
	default:
		return nil, nil
	}

	severity := domain.SeverityWarn
	if baseline > 0 && increasePct > 2*rule.SpikePercent {
		severity = domain.SeverityCritical
	}

	return []*domain.AlertCandidate{{
		Severity:    severity,
		Amount:      trailing,
		Message:     fmt.Sprintf("daily spend %.2f is %.0f%% above the %d-day baseline %.2f", trailing, increasePct, lookback, baseline),
		PeriodStart: windowStart,
		PeriodEnd:   now,
		Metadata: map[string]interface{}{
			"baseline":     baseline,
			"trailing":     trailing,
			"increase_pct": increasePct,
			"provider":     rule.Provider,
		},
	}}, nil
}

// evalTopConsumerShare 当月至今单一消费者占比。总花费为零不触发。
func (e *RuleEngine) evalTopConsumerShare(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	now := e.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	consumers, err := e.ledger.SpendByConsumer(ctx, rule.TenantID, monthStart, now)
	if err != nil {
		return nil, err
	}
	if len(consumers) == 0 {
		return nil, nil
	}

	var total float64
	for _, c := range consumers {
		total += c.Spend
	}
	if total <= 0 {
		return nil, nil
	}

	top := consumers[0]
	share := top.Spend / total * 100
	if share <= rule.TopSharePercent {
		return nil, nil
	}

	return []*domain.AlertCandidate{{
		Severity:    domain.SeverityWarn,
		Amount:      top.Spend,
		Message:     fmt.Sprintf("consumer %s holds %.1f%% of month-to-date spend (limit %.1f%%)", top.UserID, share, rule.TopSharePercent),
		PeriodStart: monthStart,
		PeriodEnd:   now,
		Metadata: map[string]interface{}{
			"user_id":   top.UserID,
			"share_pct": share,
			"total":     total,
		},
	}}, nil
}

// evalCURStale 账单摄取启用的租户，最近批次超过 48 小时
// 或从未运行过即触发。未启用摄取的租户不适用。
func (e *RuleEngine) evalCURStale(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	enabled, err := e.ingest.Enabled(ctx, rule.TenantID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, nil
	}

	now := e.now()
	latest, err := e.ingest.LatestBatchStart(ctx, rule.TenantID)
	if err != nil {
		return nil, err
	}

	var message string
	metadata := map[string]interface{}{}
	switch {
	case latest == nil:
		message = "billing ingestion is enabled but no batch has ever run"
	case now.Sub(*latest) > domain.StaleBatchAge:
		message = fmt.Sprintf("last billing ingestion batch started %.0f hours ago", now.Sub(*latest).Hours())
		metadata["last_batch_at"] = latest.Format(time.RFC3339)
	default:
		return nil, nil
	}

	return []*domain.AlertCandidate{{
		Severity:    domain.SeverityWarn,
		Message:     message,
		PeriodStart: now.Add(-domain.StaleBatchAge),
		PeriodEnd:   now,
		Metadata:    metadata,
	}}, nil
}

// evalNoBudgets 租户没有任何预算行（任意维度、任意状态）
func (e *RuleEngine) evalNoBudgets(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	count, err := e.budgets.CountByTenant(ctx, rule.TenantID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	now := e.now()
	return []*domain.AlertCandidate{{
		Severity:    domain.SeverityInfo,
		Message:     "tenant has no budgets configured",
		PeriodStart: now,
		PeriodEnd:   now,
		Metadata:    map[string]interface{}{},
	}}, nil
}

// evalBudgetStatus 对每个启用预算复用预算评估，
// WARNING/CRITICAL 各产出一条候选
func (e *RuleEngine) evalBudgetStatus(ctx context.Context, rule *domain.AlertRule) ([]*domain.AlertCandidate, error) {
	budgets, err := e.budgets.ListEnabled(ctx, rule.TenantID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	var candidates []*domain.AlertCandidate
	for _, budget := range budgets {
		periodStart := budget.PeriodStart(now)

		var spend float64
		if budget.Scope == domain.ScopeOrg {
			spend, err = e.ledger.SumRange(ctx, budget.TenantID, "", periodStart, now)
		} else {
			spend, err = e.ledger.SumForScope(ctx, budget.TenantID, budget.ScopeFilter(), periodStart)
		}
		if err != nil {
			return nil, err
		}

		var percentage float64
		if budget.LimitAmount > 0 {
			percentage = spend / budget.LimitAmount * 100
		}

		var severity domain.Severity
		var status domain.BudgetStatus
		switch {
		case percentage >= 100:
			severity = domain.SeverityCritical
			status = domain.BudgetStatusCritical
		case percentage >= budget.WarnThreshold():
			severity = domain.SeverityWarn
			status = domain.BudgetStatusWarning
		default:
			continue
		}

		candidates = append(candidates, &domain.AlertCandidate{
			Severity:    severity,
			Amount:      spend,
			Message:     fmt.Sprintf("budget %s (%s) at %.1f%% of limit %.2f", budget.ID, budget.Scope, percentage, budget.LimitAmount),
			PeriodStart: periodStart,
			PeriodEnd:   now,
			Metadata: map[string]interface{}{
				"budget_id":  budget.ID,
				"scope":      string(budget.Scope),
				"scope_id":   budget.ScopeID,
				"status":     string(status),
				"percentage": percentage,
				"spend":      spend,
				"limit":      budget.LimitAmount,
			},
		})
	}
	return candidates, nil
}
