package domain

import (
	"context"
	"time"
)

// ScopeFilter 账本聚合的维度过滤，零值字段不参与过滤
type ScopeFilter struct {
	UserID    string
	TeamID    string
	ProjectID string
	AppID     string
	ClientID  string
}

// ConsumerSpend 按消费者聚合的花费
type ConsumerSpend struct {
	UserID string
	Spend  float64
}

// LedgerReader 成本账本只读视图。告警引擎不写账本，
// 聚合全部下推到查询层的索引列。
type LedgerReader interface {
	// SumRange 区间内的花费合计，provider 为空表示不过滤
	SumRange(ctx context.Context, tenantID, provider string, from, to time.Time) (float64, error)

	// SumForScope 按维度过滤的花费合计
	SumForScope(ctx context.Context, tenantID string, filter ScopeFilter, since time.Time) (float64, error)

	// SpendByConsumer 区间内按消费者聚合的花费，按金额倒序
	SpendByConsumer(ctx context.Context, tenantID string, from, to time.Time) ([]*ConsumerSpend, error)
}

// BudgetScope 预算归属维度
type BudgetScope string

const (
	ScopeOrg     BudgetScope = "ORG"
	ScopeTeam    BudgetScope = "TEAM"
	ScopeProject BudgetScope = "PROJECT"
	ScopeApp     BudgetScope = "APP"
	ScopeClient  BudgetScope = "CLIENT"
)

// BudgetPeriod 预算周期
type BudgetPeriod string

const (
	PeriodDaily   BudgetPeriod = "DAILY"
	PeriodMonthly BudgetPeriod = "MONTHLY"
)

// BudgetStatus 预算状态
type BudgetStatus string

const (
	BudgetStatusOK       BudgetStatus = "OK"
	BudgetStatusWarning  BudgetStatus = "WARNING"
	BudgetStatusCritical BudgetStatus = "CRITICAL"
)

// DefaultWarnThresholdPct 未配置告警阈值时的默认百分比
const DefaultWarnThresholdPct = 80.0

// Budget 预算配置的只读视图
type Budget struct {
	ID               string
	TenantID         string
	Scope            BudgetScope
	ScopeID          string
	Period           BudgetPeriod
	LimitAmount      float64
	WarnThresholdPct float64
	Enabled          bool
}

// PeriodStart 当前周期起点：DAILY 为当日零点，MONTHLY 为当月一日
func (b *Budget) PeriodStart(now time.Time) time.Time {
	switch b.Period {
	case PeriodDaily:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	}
}

// WarnThreshold 告警阈值百分比
func (b *Budget) WarnThreshold() float64 {
	if b.WarnThresholdPct <= 0 {
		return DefaultWarnThresholdPct
	}
	return b.WarnThresholdPct
}

// ScopeFilter 该预算维度对应的账本过滤
func (b *Budget) ScopeFilter() ScopeFilter {
	switch b.Scope {
	case ScopeTeam:
		return ScopeFilter{TeamID: b.ScopeID}
	case ScopeProject:
		return ScopeFilter{ProjectID: b.ScopeID}
	case ScopeApp:
		return ScopeFilter{AppID: b.ScopeID}
	case ScopeClient:
		return ScopeFilter{ClientID: b.ScopeID}
	default:
		return ScopeFilter{}
	}
}

// BudgetReader 预算配置只读视图
type BudgetReader interface {
	// ListEnabled 租户全部启用的预算
	ListEnabled(ctx context.Context, tenantID string) ([]*Budget, error)

	// CountByTenant 租户预算总数（任意维度、任意状态）
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}
