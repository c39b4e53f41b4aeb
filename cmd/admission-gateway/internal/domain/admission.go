package domain

import (
	"context"
)

// Message 会话消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AdmissionRequest 一次生成请求的准入输入
type AdmissionRequest struct {
	TenantID          string
	Model             string
	Prompt            string    // 单条 prompt，与 Messages 二选一
	Messages          []Message // 结构化会话
	MaxTokens         int
	Temperature       float64
	UserID            string
	TeamID            string
	ProjectID         string
	AppID             string
	ClientID          string
	ExternalRequestID string
}

// Validate 请求必须携带单条 prompt 或结构化会话之一
func (r *AdmissionRequest) Validate() error {
	if r.TenantID == "" {
		return ErrMissingTenant
	}
	if r.Model == "" {
		return ErrMissingModel
	}
	if r.Prompt == "" && len(r.Messages) == 0 {
		return ErrEmptyRequest
	}
	return nil
}

// PromptChars 全部输入内容的字符长度
func (r *AdmissionRequest) PromptChars() int {
	n := len(r.Prompt)
	for _, m := range r.Messages {
		n += len(m.Content)
	}
	return n
}

// ChatMessages 统一成会话形式交给提供商路由
func (r *AdmissionRequest) ChatMessages() []Message {
	if len(r.Messages) > 0 {
		return r.Messages
	}
	return []Message{{Role: "user", Content: r.Prompt}}
}

// ScopeFilter 请求携带的维度
func (r *AdmissionRequest) ScopeFilter() ScopeFilter {
	return ScopeFilter{
		UserID:    r.UserID,
		TeamID:    r.TeamID,
		ProjectID: r.ProjectID,
		AppID:     r.AppID,
		ClientID:  r.ClientID,
	}
}

// ScopeID 指定维度上请求携带的标识，ORG 维度恒为空
func (r *AdmissionRequest) ScopeID(scope BudgetScope) string {
	switch scope {
	case ScopeTeam:
		return r.TeamID
	case ScopeProject:
		return r.ProjectID
	case ScopeApp:
		return r.AppID
	case ScopeClient:
		return r.ClientID
	default:
		return ""
	}
}

// BlockReason 机器可读的拒绝原因码
type BlockReason string

const (
	BlockReasonNone            BlockReason = ""
	BlockReasonBudgetCritical  BlockReason = "BUDGET_CRITICAL"
	BlockReasonBudgetExhausted BlockReason = "BUDGET_WOULD_EXHAUST"
	BlockReasonPolicy          BlockReason = "POLICY_BLOCKED"
)

// AdmissionResult 准入结论。预期内的拒绝不抛错误，
// 统一以 Success=false 加原因码返回。
type AdmissionResult struct {
	Success       bool
	Text          string
	Model         string
	Provider      string
	InputTokens   int
	OutputTokens  int
	Cost          float64
	EstimatedCost float64
	BlockReason   BlockReason
	BudgetID      string
	BudgetScope   BudgetScope
	PolicyID      string
	Reason        string // 人类可读，已脱敏
	ErrorCode     string // 非拒绝类失败的原因码
}

// RouteRequest 提供商路由输入
type RouteRequest struct {
	TenantID    string
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// RouteResponse 提供商路由输出
type RouteResponse struct {
	Text      string
	TokensIn  int
	TokensOut int
	Provider  string
	RawID     string
}

// ProviderRouter 外部提供商路由。实际上游调用在本核心之外完成。
// 未配置提供商必须以 ErrNoProviderConfigured 显式返回，
// 不允许靠错误消息子串判断。
type ProviderRouter interface {
	Route(ctx context.Context, req *RouteRequest) (*RouteResponse, error)
}
