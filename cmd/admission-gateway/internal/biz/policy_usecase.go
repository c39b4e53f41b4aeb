package biz

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"
	"costwarden/pkg/cache"

	"github.com/go-kratos/kratos/v2/log"
)

// dailySpendCacheTTL 当日花费的缓存时长。策略限额允许评估窗口内的
// 最终一致，不要求每次请求都打账本。
const dailySpendCacheTTL = 30 * time.Second

// PolicyCheckInput 策略检查输入
type PolicyCheckInput struct {
	TenantID      string
	Model         string
	TotalTokens   int
	EstimatedCost float64
}

// PolicyUsecase 策略评估器。三项检查按固定顺序执行，
// 首个失败即返回。租户没有任何策略时全部放行。
type PolicyUsecase struct {
	policyRepo domain.PolicyRepository
	eventRepo  domain.CostEventRepository
	spendCache cache.Cache
	log        *log.Helper
}

// NewPolicyUsecase 创建策略评估器。spendCache 可为 nil（直接查账本）。
func NewPolicyUsecase(
	policyRepo domain.PolicyRepository,
	eventRepo domain.CostEventRepository,
	spendCache cache.Cache,
	logger log.Logger,
) *PolicyUsecase {
	return &PolicyUsecase{
		policyRepo: policyRepo,
		eventRepo:  eventRepo,
		spendCache: spendCache,
		log:        log.NewHelper(logger),
	}
}

// Check 执行策略检查：模型黑白名单 → 单请求 token 上限 → 当日成本上限。
// 仓储错误原样上抛，由网关按 fail-closed 处理。
func (uc *PolicyUsecase) Check(ctx context.Context, in *PolicyCheckInput) (*domain.PolicyDecision, error) {
	policies, err := uc.policyRepo.ListEnabled(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	if len(policies) == 0 {
		return domain.Allow(), nil
	}

	// 1. 模型黑白名单
	if decision := uc.checkModelAccess(policies, in.Model); !decision.Allowed {
		return decision, nil
	}

	// 2. 单请求 token 上限
	if decision := uc.checkTokenCeiling(policies, in.TotalTokens); !decision.Allowed {
		return decision, nil
	}

	// 3. 当日成本上限
	return uc.checkDailyCeiling(ctx, policies, in)
}

// checkModelAccess 黑名单子串命中即拒绝；存在白名单且全部未命中也拒绝
func (uc *PolicyUsecase) checkModelAccess(policies []*domain.Policy, model string) *domain.PolicyDecision {
	for _, p := range policies {
		for _, pattern := range p.BlockedModels {
			if matchModel(model, pattern) {
				return domain.DenyByPolicy(p.ID,
					fmt.Sprintf("model %q is blocked by pattern %q", model, pattern))
			}
		}

		if len(p.AllowedModels) > 0 {
			allowed := false
			for _, pattern := range p.AllowedModels {
				if matchModel(model, pattern) {
					allowed = true
					break
				}
			}
			if !allowed {
				return domain.DenyByPolicy(p.ID,
					fmt.Sprintf("model %q is not on the allow list", model))
			}
		}
	}
	return domain.Allow()
}

// checkTokenCeiling 单请求 token 上限
func (uc *PolicyUsecase) checkTokenCeiling(policies []*domain.Policy, totalTokens int) *domain.PolicyDecision {
	for _, p := range policies {
		if p.MaxTokensPerRequest > 0 && totalTokens > p.MaxTokensPerRequest {
			return domain.DenyByPolicy(p.ID,
				fmt.Sprintf("request of %d tokens exceeds the per-request token limit of %d",
					totalTokens, p.MaxTokensPerRequest))
		}
	}
	return domain.Allow()
}

// checkDailyCeiling 当日已花费加本次预估超过任一策略的日上限即拒绝
func (uc *PolicyUsecase) checkDailyCeiling(ctx context.Context, policies []*domain.Policy, in *PolicyCheckInput) (*domain.PolicyDecision, error) {
	hasCeiling := false
	for _, p := range policies {
		if p.DailyCostCeiling > 0 {
			hasCeiling = true
			break
		}
	}
	if !hasCeiling {
		return domain.Allow(), nil
	}

	spend, err := uc.dailySpend(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	for _, p := range policies {
		if p.DailyCostCeiling > 0 && spend+in.EstimatedCost > p.DailyCostCeiling {
			return domain.DenyByPolicy(p.ID,
				fmt.Sprintf("daily spend %.4f plus estimate %.4f exceeds the daily cost ceiling %.2f",
					spend, in.EstimatedCost, p.DailyCostCeiling)), nil
		}
	}
	return domain.Allow(), nil
}

// dailySpend 当日花费，带短 TTL 缓存
func (uc *PolicyUsecase) dailySpend(ctx context.Context, tenantID string) (float64, error) {
	cacheKey := "daily_spend:" + tenantID

	if uc.spendCache != nil {
		if cached, err := uc.spendCache.Get(ctx, cacheKey); err == nil {
			if spend, perr := strconv.ParseFloat(cached, 64); perr == nil {
				return spend, nil
			}
		}
	}

	now := time.Now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	spend, err := uc.eventRepo.SumSince(ctx, tenantID, midnight)
	if err != nil {
		return 0, err
	}

	if uc.spendCache != nil {
		if err := uc.spendCache.Set(ctx, cacheKey, strconv.FormatFloat(spend, 'f', -1, 64), dailySpendCacheTTL); err != nil {
			uc.log.WithContext(ctx).Warnf("failed to cache daily spend: %v", err)
		}
	}

	return spend, nil
}

// matchModel 子串匹配，双向
func matchModel(model, pattern string) bool {
	model = strings.ToLower(model)
	pattern = strings.ToLower(pattern)
	return strings.Contains(model, pattern) || strings.Contains(pattern, model)
}
