package domain

import (
	"context"
	"time"
)

// BudgetScope 预算归属维度
type BudgetScope string

const (
	ScopeOrg     BudgetScope = "ORG"     // 全租户
	ScopeTeam    BudgetScope = "TEAM"    // 团队
	ScopeProject BudgetScope = "PROJECT" // 项目
	ScopeApp     BudgetScope = "APP"     // 应用
	ScopeClient  BudgetScope = "CLIENT"  // 客户端
)

// ScopePriority 预算检查的固定优先级。最具体的预算胜出：
// 一旦命中预算行即停止，不再继续更宽的维度。
var ScopePriority = []BudgetScope{ScopeApp, ScopeProject, ScopeClient, ScopeTeam, ScopeOrg}

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

// Budget 预算配置。由外部配置管理维护，本核心只读。
type Budget struct {
	ID               string
	TenantID         string
	Scope            BudgetScope
	ScopeID          string // ORG 维度为空
	Period           BudgetPeriod
	LimitAmount      float64
	WarnThresholdPct float64
	HardLimit        bool
	Enabled          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PeriodStart 当前周期起点：DAILY 为当日零点，MONTHLY 为当月一日
func (b *Budget) PeriodStart(now time.Time) time.Time {
	switch b.Period {
	case PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
}

// WarnThreshold 告警阈值，未配置时取默认值
func (b *Budget) WarnThreshold() float64 {
	if b.WarnThresholdPct <= 0 {
		return DefaultWarnThresholdPct
	}
	return b.WarnThresholdPct
}

// ScopeFilter 预算维度对应的账本过滤条件
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

// BudgetEvaluation 单个预算的花费/限额评估结果
type BudgetEvaluation struct {
	Budget      *Budget
	Spend       float64
	Percentage  float64
	Status      BudgetStatus
	PeriodStart time.Time
}

// BudgetRepository 预算仓储接口
type BudgetRepository interface {
	// GetByID 根据ID获取预算
	GetByID(ctx context.Context, tenantID, id string) (*Budget, error)

	// FindHardLimit 查找指定维度上启用的硬限预算。
	// 没有匹配行时返回 (nil, nil)，调用方继续走更宽的维度。
	FindHardLimit(ctx context.Context, tenantID string, scope BudgetScope, scopeID string) (*Budget, error)

	// ListEnabled 租户全部启用的预算
	ListEnabled(ctx context.Context, tenantID string) ([]*Budget, error)

	// CountByTenant 租户预算总数（任意维度、任意状态）
	CountByTenant(ctx context.Context, tenantID string) (int64, error)
}
