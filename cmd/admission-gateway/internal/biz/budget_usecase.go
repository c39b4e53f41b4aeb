package biz

import (
	"context"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// BudgetUsecase 预算评估器。一次评估一个预算维度的花费/限额状态。
type BudgetUsecase struct {
	budgetRepo domain.BudgetRepository
	eventRepo  domain.CostEventRepository
	log        *log.Helper
}

// NewBudgetUsecase 创建预算评估器
func NewBudgetUsecase(
	budgetRepo domain.BudgetRepository,
	eventRepo domain.CostEventRepository,
	logger log.Logger,
) *BudgetUsecase {
	return &BudgetUsecase{
		budgetRepo: budgetRepo,
		eventRepo:  eventRepo,
		log:        log.NewHelper(logger),
	}
}

// Evaluate 评估指定预算。预算缺失或停用时返回 (nil, nil)，
// 调用方必须视为"无约束"而不是拒绝。
func (uc *BudgetUsecase) Evaluate(ctx context.Context, tenantID, budgetID string) (*domain.BudgetEvaluation, error) {
	budget, err := uc.budgetRepo.GetByID(ctx, tenantID, budgetID)
	if err != nil {
		if err == domain.ErrBudgetNotFound {
			return nil, nil
		}
		return nil, err
	}
	if budget == nil || !budget.Enabled {
		return nil, nil
	}
	return uc.EvaluateBudget(ctx, budget)
}

// EvaluateBudget 对已加载的预算行计算周期花费与状态。
// ORG 维度取全租户合计，其余维度按对应列等值过滤。
func (uc *BudgetUsecase) EvaluateBudget(ctx context.Context, budget *domain.Budget) (*domain.BudgetEvaluation, error) {
	periodStart := budget.PeriodStart(time.Now())

	var spend float64
	var err error
	if budget.Scope == domain.ScopeOrg {
		spend, err = uc.eventRepo.SumSince(ctx, budget.TenantID, periodStart)
	} else {
		spend, err = uc.eventRepo.SumForScope(ctx, budget.TenantID, budget.ScopeFilter(), periodStart)
	}
	if err != nil {
		return nil, err
	}

	var percentage float64
	if budget.LimitAmount > 0 {
		percentage = spend / budget.LimitAmount * 100
	}

	status := domain.BudgetStatusOK
	switch {
	case percentage >= 100:
		status = domain.BudgetStatusCritical
	case percentage >= budget.WarnThreshold():
		status = domain.BudgetStatusWarning
	}

	return &domain.BudgetEvaluation{
		Budget:      budget,
		Spend:       spend,
		Percentage:  percentage,
		Status:      status,
		PeriodStart: periodStart,
	}, nil
}

// EvaluateAll 评估租户全部启用预算（状态看板用）
func (uc *BudgetUsecase) EvaluateAll(ctx context.Context, tenantID string) ([]*domain.BudgetEvaluation, error) {
	budgets, err := uc.budgetRepo.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	evals := make([]*domain.BudgetEvaluation, 0, len(budgets))
	for _, budget := range budgets {
		eval, err := uc.EvaluateBudget(ctx, budget)
		if err != nil {
			uc.log.WithContext(ctx).Errorf("failed to evaluate budget %s: %v", budget.ID, err)
			continue
		}
		evals = append(evals, eval)
	}
	return evals, nil
}
