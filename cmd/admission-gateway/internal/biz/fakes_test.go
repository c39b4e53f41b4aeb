package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"
)

// fakeCostEventRepo 测试用内存账本。按指纹折叠重复写入。
type fakeCostEventRepo struct {
	mu         sync.Mutex
	events     []*domain.CostEvent
	outbox     []*domain.OutboxEvent
	spend      float64
	scopeSpend map[string]float64
	sumErr     error
}

func newFakeCostEventRepo() *fakeCostEventRepo {
	return &fakeCostEventRepo{scopeSpend: make(map[string]float64)}
}

func (f *fakeCostEventRepo) Create(ctx context.Context, event *domain.CostEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.events {
		if existing.Fingerprint == event.Fingerprint {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeCostEventRepo) CreateWithOutbox(ctx context.Context, event *domain.CostEvent, outbox []*domain.OutboxEvent) error {
	if err := f.Create(ctx, event); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outbox = append(f.outbox, outbox...)
	return nil
}

func (f *fakeCostEventRepo) SumSince(ctx context.Context, tenantID string, since time.Time) (float64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	return f.spend, nil
}

func (f *fakeCostEventRepo) SumForScope(ctx context.Context, tenantID string, filter domain.ScopeFilter, since time.Time) (float64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	key := filter.TeamID + "|" + filter.ProjectID + "|" + filter.AppID + "|" + filter.ClientID
	return f.scopeSpend[key], nil
}

// fakeBudgetRepo 测试用内存预算仓储
type fakeBudgetRepo struct {
	budgets []*domain.Budget
	findErr error
}

func (f *fakeBudgetRepo) GetByID(ctx context.Context, tenantID, id string) (*domain.Budget, error) {
	for _, b := range f.budgets {
		if b.TenantID == tenantID && b.ID == id {
			return b, nil
		}
	}
	return nil, domain.ErrBudgetNotFound
}

func (f *fakeBudgetRepo) FindHardLimit(ctx context.Context, tenantID string, scope domain.BudgetScope, scopeID string) (*domain.Budget, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, b := range f.budgets {
		if b.TenantID == tenantID && b.Scope == scope && b.ScopeID == scopeID && b.Enabled && b.HardLimit {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeBudgetRepo) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Budget, error) {
	var out []*domain.Budget
	for _, b := range f.budgets {
		if b.TenantID == tenantID && b.Enabled {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBudgetRepo) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	var n int64
	for _, b := range f.budgets {
		if b.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

// fakePolicyRepo 测试用内存策略仓储
type fakePolicyRepo struct {
	policies []*domain.Policy
	listErr  error
}

func (f *fakePolicyRepo) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Policy, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Policy
	for _, p := range f.policies {
		if p.TenantID == tenantID && p.Enabled {
			out = append(out, p)
		}
	}
	return out, nil
}

// fakeRouter 测试用提供商路由
type fakeRouter struct {
	resp   *domain.RouteResponse
	err    error
	calls  int
	lastIn *domain.RouteRequest
}

func (f *fakeRouter) Route(ctx context.Context, req *domain.RouteRequest) (*domain.RouteResponse, error) {
	f.calls++
	f.lastIn = req
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &domain.RouteResponse{
		Text:      "ok",
		TokensIn:  100,
		TokensOut: 50,
		Provider:  "openai",
	}, nil
}

var errRepoDown = errors.New("repository unavailable")
