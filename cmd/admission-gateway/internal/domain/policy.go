package domain

import (
	"context"
	"time"
)

// Policy 用量策略配置。由外部配置管理维护，本核心只读。
type Policy struct {
	ID                  string
	TenantID            string
	Name                string
	Enabled             bool
	BlockedModels       []string // 子串匹配（双向）
	AllowedModels       []string // 非空时为白名单
	MaxTokensPerRequest int      // 0 表示不限制
	DailyCostCeiling    float64  // 0 表示不限制
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// PolicyDecision 策略检查结论
type PolicyDecision struct {
	Allowed  bool
	Reason   string
	PolicyID string
}

// Allow 允许通过
func Allow() *PolicyDecision {
	return &PolicyDecision{Allowed: true}
}

// DenyByPolicy 被指定策略拒绝
func DenyByPolicy(policyID, reason string) *PolicyDecision {
	return &PolicyDecision{Allowed: false, Reason: reason, PolicyID: policyID}
}

// PolicyRepository 策略仓储接口
type PolicyRepository interface {
	// ListEnabled 租户全部启用的策略。空列表表示放行（配置缺失即放行，
	// 不是出错放行）。
	ListEnabled(ctx context.Context, tenantID string) ([]*Policy, error)
}
