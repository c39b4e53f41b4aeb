package domain

import (
	"context"
	"time"
)

// RuleType 告警规则类型
type RuleType string

const (
	// RuleDailySpike 当日花费相对历史基线的激增
	RuleDailySpike RuleType = "DAILY_SPIKE"
	// RuleTopConsumerShare 单一消费者占比过高
	RuleTopConsumerShare RuleType = "TOP_CONSUMER_SHARE"
	// RuleCURStale 账单摄取批次过期
	RuleCURStale RuleType = "CUR_STALE"
	// RuleNoBudgets 租户未配置任何预算
	RuleNoBudgets RuleType = "NO_BUDGETS"
	// RuleBudgetStatus 预算处于 WARNING/CRITICAL
	RuleBudgetStatus RuleType = "BUDGET_STATUS"
)

// Severity 告警级别
type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityCritical Severity = "CRITICAL"
)

// DefaultLookbackDays DAILY_SPIKE 基线窗口的默认天数
const DefaultLookbackDays = 7

// DefaultCooldownHours 未配置冷却时间时的默认小时数
const DefaultCooldownHours = 24

// AlertRule 告警规则配置。LastTriggeredAt 由事件存储独占更新，
// 其余字段由外部配置管理维护。
type AlertRule struct {
	ID              string
	TenantID        string
	Name            string
	Type            RuleType
	Enabled         bool
	Threshold       float64 // BUDGET_STATUS 之外暂未使用，保留给阈值类扩展
	SpikePercent    float64 // DAILY_SPIKE：超过基线的百分比
	TopSharePercent float64 // TOP_CONSUMER_SHARE：占比上限
	LookbackDays    int     // DAILY_SPIKE：基线回看天数
	Provider        string  // DAILY_SPIKE：可选的提供商过滤
	CooldownHours   int
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Lookback 基线回看天数，未配置取默认值
func (r *AlertRule) Lookback() int {
	if r.LookbackDays <= 0 {
		return DefaultLookbackDays
	}
	return r.LookbackDays
}

// Cooldown 冷却时长，未配置取默认值
func (r *AlertRule) Cooldown() time.Duration {
	hours := r.CooldownHours
	if hours <= 0 {
		hours = DefaultCooldownHours
	}
	return time.Duration(hours) * time.Hour
}

// InCooldown 规则是否处于冷却窗口内
func (r *AlertRule) InCooldown(now time.Time) bool {
	if r.LastTriggeredAt == nil {
		return false
	}
	return now.Sub(*r.LastTriggeredAt) < r.Cooldown()
}

// AlertRuleRepository 规则仓储接口
type AlertRuleRepository interface {
	// ListEnabled 租户全部启用的规则
	ListEnabled(ctx context.Context, tenantID string) ([]*AlertRule, error)

	// ListActiveTenants 存在启用规则的全部租户
	ListActiveTenants(ctx context.Context) ([]string, error)
}
