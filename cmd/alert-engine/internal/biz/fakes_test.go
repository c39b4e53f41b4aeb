package biz

import (
	"context"
	"sync"
	"time"

	"costwarden/cmd/alert-engine/internal/domain"
)

// fakeLedger 测试用账本读模型
type fakeLedger struct {
	// ranges 按 [from, to) 注册的区间合计，按注册顺序首个覆盖命中
	sums       []rangeSum
	scopeSpend map[string]float64
	consumers  []*domain.ConsumerSpend
}

type rangeSum struct {
	from, to time.Time
	provider string
	total    float64
}

func (f *fakeLedger) SumRange(ctx context.Context, tenantID, provider string, from, to time.Time) (float64, error) {
	for _, s := range f.sums {
		if s.from.Equal(from) && s.to.Equal(to) && s.provider == provider {
			return s.total, nil
		}
	}
	return 0, nil
}

func (f *fakeLedger) SumForScope(ctx context.Context, tenantID string, filter domain.ScopeFilter, since time.Time) (float64, error) {
	key := filter.TeamID + "|" + filter.ProjectID + "|" + filter.AppID + "|" + filter.ClientID
	return f.scopeSpend[key], nil
}

func (f *fakeLedger) SpendByConsumer(ctx context.Context, tenantID string, from, to time.Time) ([]*domain.ConsumerSpend, error) {
	return f.consumers, nil
}

// fakeBudgets 测试用预算读模型
type fakeBudgets struct {
	budgets []*domain.Budget
	count   int64
}

func (f *fakeBudgets) ListEnabled(ctx context.Context, tenantID string) ([]*domain.Budget, error) {
	return f.budgets, nil
}

func (f *fakeBudgets) CountByTenant(ctx context.Context, tenantID string) (int64, error) {
	return f.count, nil
}

// fakeIngestion 测试用摄取读模型
type fakeIngestion struct {
	enabled bool
	latest  *time.Time
}

func (f *fakeIngestion) Enabled(ctx context.Context, tenantID string) (bool, error) {
	return f.enabled, nil
}

func (f *fakeIngestion) LatestBatchStart(ctx context.Context, tenantID string) (*time.Time, error) {
	return f.latest, nil
}

// fakeEventRepo 测试用事件仓储。模拟 CAS：提交时校验规则的
// last_triggered_at 是否仍与读到的一致。
type fakeEventRepo struct {
	mu        sync.Mutex
	events    []*domain.AlertEvent
	outbox    []*domain.OutboxEvent
	stored    map[string]*time.Time // ruleID -> last_triggered_at 持久值
	commitErr error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{stored: make(map[string]*time.Time)}
}

func (f *fakeEventRepo) Commit(ctx context.Context, rule *domain.AlertRule, event *domain.AlertEvent, outbox *domain.OutboxEvent) (bool, error) {
	if f.commitErr != nil {
		return false, f.commitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	persisted := f.stored[rule.ID]
	if (persisted == nil) != (rule.LastTriggeredAt == nil) {
		return false, nil
	}
	if persisted != nil && !persisted.Equal(*rule.LastTriggeredAt) {
		return false, nil
	}

	triggered := event.TriggeredAt
	f.stored[rule.ID] = &triggered
	f.events = append(f.events, event)
	f.outbox = append(f.outbox, outbox)
	return true, nil
}

func (f *fakeEventRepo) CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.events {
		if e.RuleID == ruleID && !e.TriggeredAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (f *fakeEventRepo) ListRecent(ctx context.Context, tenantID string, limit int) ([]*domain.AlertEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.AlertEvent
	for i := len(f.events) - 1; i >= 0 && len(out) < limit; i-- {
		if f.events[i].TenantID == tenantID {
			out = append(out, f.events[i])
		}
	}
	return out, nil
}
