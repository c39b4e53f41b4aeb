package service

import (
	"context"

	"costwarden/cmd/admission-gateway/internal/biz"
	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// AdmissionService 准入服务门面，负责 DTO 与领域对象的转换
type AdmissionService struct {
	admissionUC *biz.AdmissionUsecase
	budgetUC    *biz.BudgetUsecase
	log         *log.Helper
}

// NewAdmissionService 创建准入服务
func NewAdmissionService(
	admissionUC *biz.AdmissionUsecase,
	budgetUC *biz.BudgetUsecase,
	logger log.Logger,
) *AdmissionService {
	return &AdmissionService{
		admissionUC: admissionUC,
		budgetUC:    budgetUC,
		log:         log.NewHelper(logger),
	}
}

// MessageDTO 会话消息
type MessageDTO struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// AdmitRequest 准入请求体
type AdmitRequest struct {
	Model             string       `json:"model" binding:"required"`
	Prompt            string       `json:"prompt,omitempty"`
	Messages          []MessageDTO `json:"messages,omitempty"`
	MaxTokens         int          `json:"max_tokens,omitempty"`
	Temperature       float64      `json:"temperature,omitempty"`
	UserID            string       `json:"user_id,omitempty"`
	TeamID            string       `json:"team_id,omitempty"`
	ProjectID         string       `json:"project_id,omitempty"`
	AppID             string       `json:"app_id,omitempty"`
	ClientID          string       `json:"client_id,omitempty"`
	ExternalRequestID string       `json:"external_request_id,omitempty"`
}

// AdmitResponse 准入响应体
type AdmitResponse struct {
	Success       bool    `json:"success"`
	Text          string  `json:"text,omitempty"`
	Model         string  `json:"model"`
	Provider      string  `json:"provider,omitempty"`
	InputTokens   int     `json:"input_tokens,omitempty"`
	OutputTokens  int     `json:"output_tokens,omitempty"`
	Cost          float64 `json:"cost"`
	EstimatedCost float64 `json:"estimated_cost"`
	BlockReason   string  `json:"block_reason,omitempty"`
	BudgetID      string  `json:"budget_id,omitempty"`
	BudgetScope   string  `json:"budget_scope,omitempty"`
	PolicyID      string  `json:"policy_id,omitempty"`
	Reason        string  `json:"reason,omitempty"`
	ErrorCode     string  `json:"error_code,omitempty"`
}

// BudgetStatusDTO 预算状态
type BudgetStatusDTO struct {
	BudgetID   string  `json:"budget_id"`
	Scope      string  `json:"scope"`
	ScopeID    string  `json:"scope_id,omitempty"`
	Period     string  `json:"period"`
	Limit      float64 `json:"limit"`
	Spend      float64 `json:"spend"`
	Percentage float64 `json:"percentage"`
	Status     string  `json:"status"`
}

// Admit 执行准入
func (s *AdmissionService) Admit(ctx context.Context, tenantID, userID string, req *AdmitRequest) (*AdmitResponse, error) {
	domainReq := &domain.AdmissionRequest{
		TenantID:          tenantID,
		Model:             req.Model,
		Prompt:            req.Prompt,
		MaxTokens:         req.MaxTokens,
		Temperature:       req.Temperature,
		UserID:            req.UserID,
		TeamID:            req.TeamID,
		ProjectID:         req.ProjectID,
		AppID:             req.AppID,
		ClientID:          req.ClientID,
		ExternalRequestID: req.ExternalRequestID,
	}
	if domainReq.UserID == "" {
		domainReq.UserID = userID
	}
	for _, m := range req.Messages {
		domainReq.Messages = append(domainReq.Messages, domain.Message{Role: m.Role, Content: m.Content})
	}

	result, err := s.admissionUC.Admit(ctx, domainReq)
	if err != nil {
		return nil, err
	}

	return &AdmitResponse{
		Success:       result.Success,
		Text:          result.Text,
		Model:         result.Model,
		Provider:      result.Provider,
		InputTokens:   result.InputTokens,
		OutputTokens:  result.OutputTokens,
		Cost:          result.Cost,
		EstimatedCost: result.EstimatedCost,
		BlockReason:   string(result.BlockReason),
		BudgetID:      result.BudgetID,
		BudgetScope:   string(result.BudgetScope),
		PolicyID:      result.PolicyID,
		Reason:        result.Reason,
		ErrorCode:     result.ErrorCode,
	}, nil
}

// BudgetStatuses 租户全部启用预算的当前状态
func (s *AdmissionService) BudgetStatuses(ctx context.Context, tenantID string) ([]*BudgetStatusDTO, error) {
	evals, err := s.budgetUC.EvaluateAll(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	dtos := make([]*BudgetStatusDTO, 0, len(evals))
	for _, eval := range evals {
		dtos = append(dtos, &BudgetStatusDTO{
			BudgetID:   eval.Budget.ID,
			Scope:      string(eval.Budget.Scope),
			ScopeID:    eval.Budget.ScopeID,
			Period:     string(eval.Budget.Period),
			Limit:      eval.Budget.LimitAmount,
			Spend:      eval.Spend,
			Percentage: eval.Percentage,
			Status:     string(eval.Status),
		})
	}
	return dtos, nil
}
