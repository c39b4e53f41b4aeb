package errors

// 错误码规范：
// - 1xxxx: 通用错误（HTTP 4xx）
// - 2xxxx: 业务逻辑错误（准入/预算/策略/告警）
// - 3xxxx: 数据访问错误
// - 4xxxx: 外部服务错误
// - 5xxxx: 系统级错误（HTTP 5xx）

// ==================== 通用错误 (10000-19999) ====================

const (
	CodeBadRequest       = 10000
	CodeUnauthorized     = 10001
	CodeForbidden        = 10002
	CodeNotFound         = 10003
	CodeConflict         = 10004
	CodeValidationFailed = 10005
	CodeTooManyRequests  = 10006
	CodeRequestTimeout   = 10007
)

// ==================== 业务逻辑错误 (20000-29999) ====================

const (
	// 准入相关 (20000-20099)
	CodeRequestBlocked    = 20000
	CodeBudgetDenied      = 20001
	CodePolicyDenied      = 20002
	CodeEstimationFailed  = 20003
	CodeInvalidScope      = 20004

	// 预算相关 (20100-20199)
	CodeBudgetNotFound   = 20100
	CodeBudgetDisabled   = 20101
	CodeInvalidPeriod    = 20102
	CodeInvalidThreshold = 20103

	// 告警相关 (20200-20299)
	CodeAlertRuleNotFound   = 20200
	CodeInvalidRuleType     = 20201
	CodeRuleInCooldown      = 20202
	CodeDuplicateAlertEvent = 20203

	// 通知相关 (20300-20399)
	CodeDeliveryNotFound    = 20300
	CodeChannelNotFound     = 20301
	CodeChannelDisabled     = 20302
	CodeDeliveryExhausted   = 20303
	CodeChannelConfigSealed = 20304
)

// ==================== 数据访问错误 (30000-39999) ====================

const (
	CodeDatabaseError    = 30000
	CodeRecordNotFound   = 30001
	CodeDuplicateRecord  = 30002
	CodeTransactionError = 30003
	CodeCacheError       = 30100
)

// ==================== 外部服务错误 (40000-49999) ====================

const (
	CodeProviderError         = 40000
	CodeNoProviderConfigured  = 40001
	CodeProviderTimeout       = 40002
	CodeEventPublishFailed    = 40100
	CodeChannelSendFailed     = 40200
)

// ==================== 系统级错误 (50000-59999) ====================

const (
	CodeInternalServerError = 50000
	CodeServiceUnavailable  = 50001
	CodeGatewayTimeout      = 50002
)
