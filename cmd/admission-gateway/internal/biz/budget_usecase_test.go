package biz

import (
	"context"
	"os"
	"testing"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

func TestBudgetUsecase_EvaluateBudget(t *testing.T) {
	testCases := []struct {
		name           string
		limit          float64
		warnPct        float64
		spend          float64
		expectedStatus domain.BudgetStatus
	}{
		{
			name:           "低于阈值 - OK",
			limit:          1000,
			spend:          500,
			expectedStatus: domain.BudgetStatusOK,
		},
		{
			name:           "85% - WARNING",
			limit:          1000,
			spend:          850,
			expectedStatus: domain.BudgetStatusWarning,
		},
		{
			name:           "100% - CRITICAL",
			limit:          1000,
			spend:          1000,
			expectedStatus: domain.BudgetStatusCritical,
		},
		{
			name:           "超支 - CRITICAL",
			limit:          1000,
			spend:          1200,
			expectedStatus: domain.BudgetStatusCritical,
		},
		{
			name:           "自定义阈值 50%",
			limit:          1000,
			warnPct:        50,
			spend:          600,
			expectedStatus: domain.BudgetStatusWarning,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			eventRepo := newFakeCostEventRepo()
			eventRepo.spend = tc.spend

			uc := NewBudgetUsecase(&fakeBudgetRepo{}, eventRepo, log.NewStdLogger(os.Stdout))

			budget := &domain.Budget{
				ID:               "b1",
				TenantID:         "t1",
				Scope:            domain.ScopeOrg,
				Period:           domain.PeriodMonthly,
				LimitAmount:      tc.limit,
				WarnThresholdPct: tc.warnPct,
				Enabled:          true,
			}

			eval, err := uc.EvaluateBudget(context.Background(), budget)
			if err != nil {
				t.Fatalf("EvaluateBudget failed: %v", err)
			}
			if eval.Status != tc.expectedStatus {
				t.Errorf("Status = %s, want %s (spend=%f limit=%f)",
					eval.Status, tc.expectedStatus, tc.spend, tc.limit)
			}
		})
	}
}

func TestBudgetUsecase_Evaluate_MissingBudget(t *testing.T) {
	uc := NewBudgetUsecase(&fakeBudgetRepo{}, newFakeCostEventRepo(), log.NewStdLogger(os.Stdout))

	eval, err := uc.Evaluate(context.Background(), "t1", "no-such-budget")
	if err != nil {
		t.Fatalf("missing budget must not be an error: %v", err)
	}
	if eval != nil {
		t.Error("missing budget must evaluate to nil, not a denial")
	}
}

func TestBudgetUsecase_Evaluate_DisabledBudget(t *testing.T) {
	repo := &fakeBudgetRepo{budgets: []*domain.Budget{{
		ID: "b1", TenantID: "t1", Scope: domain.ScopeOrg,
		Period: domain.PeriodMonthly, LimitAmount: 100, Enabled: false,
	}}}
	uc := NewBudgetUsecase(repo, newFakeCostEventRepo(), log.NewStdLogger(os.Stdout))

	eval, err := uc.Evaluate(context.Background(), "t1", "b1")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if eval != nil {
		t.Error("disabled budget must evaluate to nil")
	}
}

func TestBudgetUsecase_ScopedBudgetUsesScopedSpend(t *testing.T) {
	eventRepo := newFakeCostEventRepo()
	eventRepo.spend = 10000 // 全租户花费，不应被读到
	eventRepo.scopeSpend["|proj-1||"] = 40

	uc := NewBudgetUsecase(&fakeBudgetRepo{}, eventRepo, log.NewStdLogger(os.Stdout))

	budget := &domain.Budget{
		ID: "b1", TenantID: "t1",
		Scope: domain.ScopeProject, ScopeID: "proj-1",
		Period: domain.PeriodMonthly, LimitAmount: 100, Enabled: true,
	}

	eval, err := uc.EvaluateBudget(context.Background(), budget)
	if err != nil {
		t.Fatalf("EvaluateBudget failed: %v", err)
	}
	if eval.Spend != 40 {
		t.Errorf("Spend = %f, want scoped spend 40", eval.Spend)
	}
	if eval.Status != domain.BudgetStatusOK {
		t.Errorf("Status = %s, want OK", eval.Status)
	}
}
