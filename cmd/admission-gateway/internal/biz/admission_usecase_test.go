package biz

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"costwarden/cmd/admission-gateway/internal/domain"
	pkgerrors "costwarden/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

type admissionFixture struct {
	uc        *AdmissionUsecase
	eventRepo *fakeCostEventRepo
	router    *fakeRouter
}

func newAdmissionFixture(budgets []*domain.Budget, policies []*domain.Policy, enforcement EnforcementConfig) *admissionFixture {
	logger := log.NewStdLogger(os.Stdout)
	eventRepo := newFakeCostEventRepo()
	budgetRepo := &fakeBudgetRepo{budgets: budgets}
	router := &fakeRouter{}

	estimator := NewCostEstimator()
	budgetUC := NewBudgetUsecase(budgetRepo, eventRepo, logger)
	policyUC := NewPolicyUsecase(&fakePolicyRepo{policies: policies}, eventRepo, nil, logger)

	uc := NewAdmissionUsecase(estimator, budgetUC, policyUC, budgetRepo, eventRepo, router, enforcement, logger)
	return &admissionFixture{uc: uc, eventRepo: eventRepo, router: router}
}

func validRequest() *domain.AdmissionRequest {
	return &domain.AdmissionRequest{
		TenantID:  "t1",
		Model:     "gpt-4o",
		Prompt:    "hello world",
		MaxTokens: 100,
		UserID:    "u1",
	}
}

func TestAdmissionUsecase_ValidationError(t *testing.T) {
	f := newAdmissionFixture(nil, nil, DefaultEnforcementConfig())

	_, err := f.uc.Admit(context.Background(), &domain.AdmissionRequest{TenantID: "t1", Model: "gpt-4o"})
	if err == nil {
		t.Fatal("empty request must fail validation")
	}
	if !pkgerrors.IsReason(err, pkgerrors.ReasonValidationFailed) {
		t.Errorf("err = %v, want VALIDATION_FAILED", err)
	}
	if f.router.calls != 0 {
		t.Error("validation failure must not reach the provider router")
	}
	if len(f.eventRepo.events) != 0 {
		t.Error("validation failure must not write a ledger entry")
	}
}

func TestAdmissionUsecase_SuccessPath(t *testing.T) {
	f := newAdmissionFixture(nil, nil, DefaultEnforcementConfig())

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got block reason %q reason %q", result.BlockReason, result.Reason)
	}
	if result.Provider != "openai" {
		t.Errorf("Provider = %q", result.Provider)
	}

	if len(f.eventRepo.events) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(f.eventRepo.events))
	}
	event := f.eventRepo.events[0]
	if event.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", event.StatusCode)
	}
	if event.Cost <= 0 {
		t.Errorf("Cost = %f, want > 0", event.Cost)
	}
	if event.Fingerprint == "" {
		t.Error("ledger entry must carry a fingerprint")
	}

	// 成功路径同事务写入两条下游事件
	if len(f.eventRepo.outbox) != 2 {
		t.Errorf("expected 2 outbox events, got %d", len(f.eventRepo.outbox))
	}
}

func TestAdmissionUsecase_BudgetCriticalDenies(t *testing.T) {
	budgets := []*domain.Budget{{
		ID: "b1", TenantID: "t1", Scope: domain.ScopeOrg,
		Period: domain.PeriodMonthly, LimitAmount: 100,
		HardLimit: true, Enabled: true,
	}}
	f := newAdmissionFixture(budgets, nil, DefaultEnforcementConfig())
	f.eventRepo.spend = 150 // 已超支

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("critical budget must deny")
	}
	if result.BlockReason != domain.BlockReasonBudgetCritical {
		t.Errorf("BlockReason = %q, want BUDGET_CRITICAL", result.BlockReason)
	}
	if f.router.calls != 0 {
		t.Error("denied request must not reach the provider router")
	}

	// 拒绝也要记账：专用状态码、零成本、零输出
	if len(f.eventRepo.events) != 1 {
		t.Fatalf("expected one blocked ledger entry, got %d", len(f.eventRepo.events))
	}
	event := f.eventRepo.events[0]
	if event.StatusCode != domain.StatusCodeBlocked {
		t.Errorf("StatusCode = %d, want %d", event.StatusCode, domain.StatusCodeBlocked)
	}
	if event.Cost != 0 || event.OutputTokens != 0 {
		t.Errorf("blocked entry must have zero cost and output, got cost=%f out=%d", event.Cost, event.OutputTokens)
	}
	if event.Metadata["block_reason"] != string(domain.BlockReasonBudgetCritical) {
		t.Errorf("metadata block_reason = %v", event.Metadata["block_reason"])
	}
}

func TestAdmissionUsecase_MostSpecificBudgetWins(t *testing.T) {
	// APP 预算健康，ORG 预算已爆。APP 命中后即定论，ORG 不参与。
	budgets := []*domain.Budget{
		{
			ID: "b-app", TenantID: "t1", Scope: domain.ScopeApp, ScopeID: "app-1",
			Period: domain.PeriodMonthly, LimitAmount: 1000,
			HardLimit: true, Enabled: true,
		},
		{
			ID: "b-org", TenantID: "t1", Scope: domain.ScopeOrg,
			Period: domain.PeriodMonthly, LimitAmount: 10,
			HardLimit: true, Enabled: true,
		},
	}
	f := newAdmissionFixture(budgets, nil, DefaultEnforcementConfig())
	f.eventRepo.spend = 5000                  // ORG 合计（已爆）
	f.eventRepo.scopeSpend["||app-1|"] = 100 // APP 维度健康

	req := validRequest()
	req.AppID = "app-1"

	result, err := f.uc.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("healthy APP budget must win over exhausted ORG budget, got %q", result.Reason)
	}
}

func TestAdmissionUsecase_WarningPlusEstimateDenies(t *testing.T) {
	budgets := []*domain.Budget{{
		ID: "b1", TenantID: "t1", Scope: domain.ScopeOrg,
		Period: domain.PeriodMonthly, LimitAmount: 100,
		HardLimit: true, Enabled: true,
	}}
	f := newAdmissionFixture(budgets, nil, DefaultEnforcementConfig())
	f.eventRepo.spend = 99.999 // WARNING 区间，加估价必然越限

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("estimate that would exhaust the budget must deny")
	}
	if result.BlockReason != domain.BlockReasonBudgetExhausted {
		t.Errorf("BlockReason = %q, want BUDGET_WOULD_EXHAUST", result.BlockReason)
	}
}

func TestAdmissionUsecase_BudgetFailOpen(t *testing.T) {
	f := newAdmissionFixture(nil, nil, DefaultEnforcementConfig())
	budgetRepo := &fakeBudgetRepo{findErr: errRepoDown}
	logger := log.NewStdLogger(os.Stdout)
	f.uc = NewAdmissionUsecase(
		NewCostEstimator(),
		NewBudgetUsecase(budgetRepo, f.eventRepo, logger),
		NewPolicyUsecase(&fakePolicyRepo{}, f.eventRepo, nil, logger),
		budgetRepo, f.eventRepo, f.router,
		DefaultEnforcementConfig(), logger,
	)

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if !result.Success {
		t.Errorf("budget repo failure must fail open by default, got %q", result.Reason)
	}
}

func TestAdmissionUsecase_BudgetFailClosed(t *testing.T) {
	enforcement := EnforcementConfig{BudgetFailureMode: FailClosed, PolicyFailureMode: FailClosed}
	f := newAdmissionFixture(nil, nil, enforcement)
	budgetRepo := &fakeBudgetRepo{findErr: errRepoDown}
	logger := log.NewStdLogger(os.Stdout)
	f.uc = NewAdmissionUsecase(
		NewCostEstimator(),
		NewBudgetUsecase(budgetRepo, f.eventRepo, logger),
		NewPolicyUsecase(&fakePolicyRepo{}, f.eventRepo, nil, logger),
		budgetRepo, f.eventRepo, f.router,
		enforcement, logger,
	)

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Error("budget repo failure must deny when configured fail-closed")
	}
}

func TestAdmissionUsecase_PolicyFailClosed(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)
	eventRepo := newFakeCostEventRepo()
	budgetRepo := &fakeBudgetRepo{}
	router := &fakeRouter{}
	uc := NewAdmissionUsecase(
		NewCostEstimator(),
		NewBudgetUsecase(budgetRepo, eventRepo, logger),
		NewPolicyUsecase(&fakePolicyRepo{listErr: errRepoDown}, eventRepo, nil, logger),
		budgetRepo, eventRepo, router,
		DefaultEnforcementConfig(), logger,
	)

	result, err := uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("policy evaluation failure must fail closed by default")
	}
	if result.ErrorCode != pkgerrors.ReasonInternal {
		t.Errorf("ErrorCode = %q, want INTERNAL_ERROR reason", result.ErrorCode)
	}
	if router.calls != 0 {
		t.Error("fail-closed policy error must not reach the provider router")
	}
}

func TestAdmissionUsecase_PolicyDenied(t *testing.T) {
	policies := []*domain.Policy{{
		ID: "p1", TenantID: "t1", Enabled: true,
		BlockedModels: []string{"gpt-4o"},
	}}
	f := newAdmissionFixture(nil, policies, DefaultEnforcementConfig())

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("blocked model must deny")
	}
	if result.BlockReason != domain.BlockReasonPolicy {
		t.Errorf("BlockReason = %q, want POLICY_BLOCKED", result.BlockReason)
	}
	if result.PolicyID != "p1" {
		t.Errorf("PolicyID = %q, want p1", result.PolicyID)
	}
}

func TestAdmissionUsecase_NoProviderConfigured(t *testing.T) {
	f := newAdmissionFixture(nil, nil, DefaultEnforcementConfig())
	f.router.err = domain.ErrNoProviderConfigured

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("missing provider must fail the request")
	}
	if result.ErrorCode != pkgerrors.ReasonNoProvider {
		t.Errorf("ErrorCode = %q, want NO_PROVIDER_CONFIGURED", result.ErrorCode)
	}

	if len(f.eventRepo.events) != 1 {
		t.Fatalf("provider failure must still write a ledger entry")
	}
	if f.eventRepo.events[0].StatusCode != 502 {
		t.Errorf("StatusCode = %d, want 502", f.eventRepo.events[0].StatusCode)
	}
}

func TestAdmissionUsecase_ProviderErrorSanitized(t *testing.T) {
	f := newAdmissionFixture(nil, nil, DefaultEnforcementConfig())
	f.router.err = errors.New("upstream rejected key sk-abcdef1234567890 with status 401")

	result, err := f.uc.Admit(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Admit failed: %v", err)
	}
	if result.Success {
		t.Fatal("provider error must fail the request")
	}
	if containsSecret(result.Reason) {
		t.Errorf("Reason leaked a secret: %q", result.Reason)
	}
	if errMsg, ok := f.eventRepo.events[0].Metadata["error"].(string); ok && containsSecret(errMsg) {
		t.Errorf("ledger metadata leaked a secret: %q", errMsg)
	}
}

func containsSecret(s string) bool {
	return strings.Contains(s, "sk-abcdef") || strings.Contains(s, "Bearer ")
}
