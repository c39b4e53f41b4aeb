package biz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"
	pkgerrors "costwarden/pkg/errors"
	"costwarden/pkg/events"
	"costwarden/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

// FailureMode 评估器内部出错时的闸门行为
type FailureMode string

const (
	// FailOpen 内部错误放行：可用性优先于严格正确
	FailOpen FailureMode = "open"
	// FailClosed 内部错误拒绝
	FailClosed FailureMode = "closed"
)

// EnforcementConfig 闸门失败模式。预算默认 fail-open、
// 策略默认 fail-closed，这里把两者的不对称暴露成显式配置。
type EnforcementConfig struct {
	BudgetFailureMode FailureMode
	PolicyFailureMode FailureMode
}

// DefaultEnforcementConfig 默认失败模式
func DefaultEnforcementConfig() EnforcementConfig {
	return EnforcementConfig{
		BudgetFailureMode: FailOpen,
		PolicyFailureMode: FailClosed,
	}
}

// AdmissionUsecase 准入网关：估价 → 预算 → 策略 → 路由 → 记账。
// 生成请求的唯一入口。
type AdmissionUsecase struct {
	estimator   *CostEstimator
	budgetUC    *BudgetUsecase
	policyUC    *PolicyUsecase
	budgetRepo  domain.BudgetRepository
	eventRepo   domain.CostEventRepository
	router      domain.ProviderRouter
	enforcement EnforcementConfig
	log         *log.Helper
}

// NewAdmissionUsecase 创建准入网关
func NewAdmissionUsecase(
	estimator *CostEstimator,
	budgetUC *BudgetUsecase,
	policyUC *PolicyUsecase,
	budgetRepo domain.BudgetRepository,
	eventRepo domain.CostEventRepository,
	router domain.ProviderRouter,
	enforcement EnforcementConfig,
	logger log.Logger,
) *AdmissionUsecase {
	return &AdmissionUsecase{
		estimator:   estimator,
		budgetUC:    budgetUC,
		policyUC:    policyUC,
		budgetRepo:  budgetRepo,
		eventRepo:   eventRepo,
		router:      router,
		enforcement: enforcement,
		log:         log.NewHelper(logger),
	}
}

// Admit 执行完整准入链。预期内的拒绝以 Success=false 返回，
// 错误返回值只用于请求校验失败。
func (uc *AdmissionUsecase) Admit(ctx context.Context, req *domain.AdmissionRequest) (*domain.AdmissionResult, error) {
	// 1. 校验：在任何估价之前
	if err := req.Validate(); err != nil {
		return nil, pkgerrors.NewBadRequest(pkgerrors.ReasonValidationFailed, err.Error())
	}

	logID := uuid.New().String()

	// 2. 估算 token 与成本
	inTokens, outTokens := uc.estimator.EstimateTokens(req.PromptChars(), req.MaxTokens)
	estimatedCost := uc.estimator.EstimateCost(req.Model, inTokens, outTokens)

	// 3. 预算闸门：固定优先级 APP → PROJECT → CLIENT → TEAM → ORG，
	// 命中首个预算行即定论
	if result := uc.checkBudgets(ctx, req, estimatedCost); result != nil {
		uc.writeBlockedEvent(ctx, req, logID, inTokens, estimatedCost, result)
		monitoring.AdmissionDecisions.WithLabelValues(req.TenantID, "denied", string(result.BlockReason)).Inc()
		return result, nil
	}

	// 4. 策略闸门
	decision, err := uc.policyUC.Check(ctx, &PolicyCheckInput{
		TenantID:      req.TenantID,
		Model:         req.Model,
		TotalTokens:   inTokens + outTokens,
		EstimatedCost: estimatedCost,
	})
	if err != nil {
		// 策略评估器出错不放行
		if uc.enforcement.PolicyFailureMode == FailOpen {
			uc.log.WithContext(ctx).Errorf("policy evaluation failed, configured fail-open: %v", err)
		} else {
			uc.log.WithContext(ctx).Errorf("policy evaluation failed: %v", err)
			result := &domain.AdmissionResult{
				Success:       false,
				Model:         req.Model,
				EstimatedCost: estimatedCost,
				ErrorCode:     pkgerrors.ReasonInternal,
				Reason:        "policy evaluation unavailable",
			}
			monitoring.AdmissionDecisions.WithLabelValues(req.TenantID, "failed", pkgerrors.ReasonInternal).Inc()
			return result, nil
		}
	}
	if decision != nil && !decision.Allowed {
		result := &domain.AdmissionResult{
			Success:       false,
			Model:         req.Model,
			EstimatedCost: estimatedCost,
			BlockReason:   domain.BlockReasonPolicy,
			PolicyID:      decision.PolicyID,
			Reason:        decision.Reason,
		}
		uc.writeBlockedEvent(ctx, req, logID, inTokens, estimatedCost, result)
		monitoring.AdmissionDecisions.WithLabelValues(req.TenantID, "denied", string(domain.BlockReasonPolicy)).Inc()
		return result, nil
	}

	// 5. 委派给外部提供商路由
	resp, err := uc.router.Route(ctx, &domain.RouteRequest{
		TenantID:    req.TenantID,
		Model:       req.Model,
		Messages:    req.ChatMessages(),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return uc.handleProviderError(ctx, req, logID, estimatedCost, err), nil
	}

	// 6. 成功：按实际用量重算成本并记账
	finalCost := uc.estimator.EstimateCost(req.Model, resp.TokensIn, resp.TokensOut)
	uc.writeSuccessEvent(ctx, req, logID, resp, finalCost, estimatedCost)

	monitoring.AdmissionDecisions.WithLabelValues(req.TenantID, "allowed", "").Inc()
	monitoring.LLMCostTotal.WithLabelValues(req.Model, resp.Provider, req.TenantID).Add(finalCost)
	monitoring.LLMTokensTotal.WithLabelValues(req.Model, req.TenantID, "input").Add(float64(resp.TokensIn))
	monitoring.LLMTokensTotal.WithLabelValues(req.Model, req.TenantID, "output").Add(float64(resp.TokensOut))

	return &domain.AdmissionResult{
		Success:       true,
		Text:          resp.Text,
		Model:         req.Model,
		Provider:      resp.Provider,
		InputTokens:   resp.TokensIn,
		OutputTokens:  resp.TokensOut,
		Cost:          finalCost,
		EstimatedCost: estimatedCost,
	}, nil
}

// checkBudgets 维度优先级遍历。返回 nil 表示放行；
// 评估器内部错误按配置的失败模式处理，默认放行。
func (uc *AdmissionUsecase) checkBudgets(ctx context.Context, req *domain.AdmissionRequest, estimatedCost float64) *domain.AdmissionResult {
	for _, scope := range domain.ScopePriority {
		scopeID := req.ScopeID(scope)
		if scope != domain.ScopeOrg && scopeID == "" {
			continue
		}

		budget, err := uc.budgetRepo.FindHardLimit(ctx, req.TenantID, scope, scopeID)
		if err != nil {
			return uc.budgetFailure(ctx, req, scope, err)
		}
		if budget == nil {
			// 该维度没有预算行，继续更宽的维度
			continue
		}

		eval, err := uc.budgetUC.EvaluateBudget(ctx, budget)
		if err != nil {
			return uc.budgetFailure(ctx, req, scope, err)
		}

		if eval.Status == domain.BudgetStatusCritical {
			return &domain.AdmissionResult{
				Success:       false,
				Model:         req.Model,
				EstimatedCost: estimatedCost,
				BlockReason:   domain.BlockReasonBudgetCritical,
				BudgetID:      budget.ID,
				BudgetScope:   scope,
				Reason:        "budget limit reached for scope " + string(scope),
			}
		}
		if eval.Status == domain.BudgetStatusWarning && eval.Spend+estimatedCost >= budget.LimitAmount {
			return &domain.AdmissionResult{
				Success:       false,
				Model:         req.Model,
				EstimatedCost: estimatedCost,
				BlockReason:   domain.BlockReasonBudgetExhausted,
				BudgetID:      budget.ID,
				BudgetScope:   scope,
				Reason:        "estimated cost would exhaust the budget for scope " + string(scope),
			}
		}

		// 命中预算行即停：最具体的预算胜出，不再看更宽的维度
		return nil
	}
	return nil
}

// budgetFailure 预算评估器内部错误。默认 fail-open：
// 预算执行的可用性优先于严格正确。
func (uc *AdmissionUsecase) budgetFailure(ctx context.Context, req *domain.AdmissionRequest, scope domain.BudgetScope, err error) *domain.AdmissionResult {
	if uc.enforcement.BudgetFailureMode == FailClosed {
		uc.log.WithContext(ctx).Errorf("budget evaluation failed at scope %s, fail-closed: %v", scope, err)
		return &domain.AdmissionResult{
			Success:     false,
			Model:       req.Model,
			BlockReason: domain.BlockReasonBudgetCritical,
			BudgetScope: scope,
			Reason:      "budget evaluation unavailable",
		}
	}
	uc.log.WithContext(ctx).Errorf("budget evaluation failed at scope %s, failing open: %v", scope, err)
	return nil
}

// handleProviderError 上游失败：脱敏后记账并返回结构化失败
func (uc *AdmissionUsecase) handleProviderError(ctx context.Context, req *domain.AdmissionRequest, logID string, estimatedCost float64, err error) *domain.AdmissionResult {
	sanitized := SanitizeSecrets(err.Error())

	errorCode := pkgerrors.ReasonProviderError
	if errors.Is(err, domain.ErrNoProviderConfigured) {
		errorCode = pkgerrors.ReasonNoProvider
	}

	uc.log.WithContext(ctx).Errorf("provider call failed for tenant %s: %s", req.TenantID, sanitized)

	event := uc.newEvent(req, logID)
	event.InputTokens = 0
	event.OutputTokens = 0
	event.TotalTokens = 0
	event.Cost = 0
	event.StatusCode = 502
	event.Metadata["error"] = sanitized
	event.Metadata["error_code"] = errorCode
	event.Metadata["estimated_cost"] = estimatedCost
	event.SealFingerprint()
	if werr := uc.eventRepo.Create(ctx, event); werr != nil {
		uc.log.WithContext(ctx).Errorf("failed to write error ledger entry: %v", werr)
	}

	monitoring.AdmissionDecisions.WithLabelValues(req.TenantID, "failed", errorCode).Inc()

	return &domain.AdmissionResult{
		Success:       false,
		Model:         req.Model,
		EstimatedCost: estimatedCost,
		ErrorCode:     errorCode,
		Reason:        sanitized,
	}
}

// writeBlockedEvent 拒绝路径记账：零输出 token、专用状态码、
// 原因写入结构化元数据。记账失败只打日志，不影响拒绝结论。
func (uc *AdmissionUsecase) writeBlockedEvent(ctx context.Context, req *domain.AdmissionRequest, logID string, inTokens int, estimatedCost float64, result *domain.AdmissionResult) {
	event := uc.newEvent(req, logID)
	event.InputTokens = inTokens
	event.OutputTokens = 0
	event.TotalTokens = inTokens
	event.Cost = 0
	event.StatusCode = domain.StatusCodeBlocked
	event.Metadata["blocked"] = true
	event.Metadata["block_reason"] = string(result.BlockReason)
	event.Metadata["reason"] = result.Reason
	event.Metadata["estimated_cost"] = estimatedCost
	if result.BudgetID != "" {
		event.Metadata["budget_id"] = result.BudgetID
		event.Metadata["budget_scope"] = string(result.BudgetScope)
	}
	if result.PolicyID != "" {
		event.Metadata["policy_id"] = result.PolicyID
	}
	event.SealFingerprint()

	if err := uc.eventRepo.Create(ctx, event); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to write blocked ledger entry: %v", err)
	}
}

// writeSuccessEvent 成功路径记账，并在同一事务写入两条下游事件
// （cost_event.created、ai_request.completed），由 outbox worker
// 异步投递，投递失败不影响调用方结果。
func (uc *AdmissionUsecase) writeSuccessEvent(ctx context.Context, req *domain.AdmissionRequest, logID string, resp *domain.RouteResponse, finalCost, estimatedCost float64) {
	event := uc.newEvent(req, logID)
	event.Provider = resp.Provider
	event.InputTokens = resp.TokensIn
	event.OutputTokens = resp.TokensOut
	event.TotalTokens = resp.TokensIn + resp.TokensOut
	event.Cost = finalCost
	event.StatusCode = 200
	event.Metadata["estimated_cost"] = estimatedCost
	event.Metadata["raw_id"] = resp.RawID
	event.SealFingerprint()

	outbox := []*domain.OutboxEvent{
		uc.newOutboxEvent(req.TenantID, events.EventCostEventCreated, map[string]interface{}{
			"cost_event_id": event.ID,
			"model":         event.Model,
			"provider":      event.Provider,
			"cost":          event.Cost,
			"total_tokens":  event.TotalTokens,
		}),
		uc.newOutboxEvent(req.TenantID, events.EventRequestCompleted, map[string]interface{}{
			"log_id":        logID,
			"model":         event.Model,
			"provider":      event.Provider,
			"input_tokens":  event.InputTokens,
			"output_tokens": event.OutputTokens,
		}),
	}

	// 审计写入失败不能让已成功的请求失败
	if err := uc.eventRepo.CreateWithOutbox(ctx, event, outbox); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to write success ledger entry: %v", err)
	}
}

func (uc *AdmissionUsecase) newEvent(req *domain.AdmissionRequest, logID string) *domain.CostEvent {
	event := domain.NewCostEvent(req.TenantID, req.Model, "")
	event.UserID = req.UserID
	event.TeamID = req.TeamID
	event.ProjectID = req.ProjectID
	event.AppID = req.AppID
	event.ClientID = req.ClientID
	event.ExternalRequestID = req.ExternalRequestID
	event.LogID = logID
	return event
}

func (uc *AdmissionUsecase) newOutboxEvent(tenantID string, eventType events.EventType, payload map[string]interface{}) *domain.OutboxEvent {
	envelope := events.NewEnvelope(tenantID, eventType, payload)
	data, _ := json.Marshal(envelope)
	return &domain.OutboxEvent{
		TenantID:  tenantID,
		EventType: string(eventType),
		Payload:   data,
		CreatedAt: time.Now(),
	}
}
