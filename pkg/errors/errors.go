package errors

import (
	"github.com/go-kratos/kratos/v2/errors"
)

// Reason codes returned to callers. These are machine-checkable: clients
// branch on Reason, never on the human-readable message.
const (
	ReasonValidationFailed = "VALIDATION_FAILED"
	ReasonBudgetDenied     = "BUDGET_DENIED"
	ReasonPolicyDenied     = "POLICY_DENIED"
	ReasonProviderError    = "PROVIDER_ERROR"
	ReasonNoProvider       = "NO_PROVIDER_CONFIGURED"
	ReasonNotFound         = "NOT_FOUND"
	ReasonInternal         = "INTERNAL_SERVER_ERROR"
)

// Common errors
var (
	ErrBadRequest          = errors.BadRequest("BAD_REQUEST", "Bad request")
	ErrUnauthorized        = errors.Unauthorized("UNAUTHORIZED", "Unauthorized")
	ErrForbidden           = errors.Forbidden("FORBIDDEN", "Forbidden")
	ErrNotFound            = errors.NotFound(ReasonNotFound, "Resource not found")
	ErrConflict            = errors.Conflict("CONFLICT", "Resource conflict")
	ErrValidationFailed    = errors.BadRequest(ReasonValidationFailed, "Validation failed")
	ErrInternalServerError = errors.InternalServer(ReasonInternal, "Internal server error")
	ErrServiceUnavailable  = errors.ServiceUnavailable("SERVICE_UNAVAILABLE", "Service unavailable")
)

// NewBadRequest creates a new bad request error.
func NewBadRequest(reason, message string) *errors.Error {
	return errors.BadRequest(reason, message)
}

// NewNotFound creates a new not found error.
func NewNotFound(reason, message string) *errors.Error {
	return errors.NotFound(reason, message)
}

// NewConflict creates a new conflict error.
func NewConflict(reason, message string) *errors.Error {
	return errors.Conflict(reason, message)
}

// NewInternal creates a new internal server error.
func NewInternal(reason, message string) *errors.Error {
	return errors.InternalServer(reason, message)
}

// NewBudgetDenied 预算拒绝错误（HTTP 402 语义，用 403 表达）
func NewBudgetDenied(message string) *errors.Error {
	return errors.Forbidden(ReasonBudgetDenied, message)
}

// NewPolicyDenied 策略拒绝错误
func NewPolicyDenied(message string) *errors.Error {
	return errors.Forbidden(ReasonPolicyDenied, message)
}

// NewProviderError 上游提供商错误（消息必须已脱敏）
func NewProviderError(message string) *errors.Error {
	return errors.New(502, ReasonProviderError, message)
}

// IsReason reports whether err carries the given reason code.
func IsReason(err error, reason string) bool {
	return errors.Reason(err) == reason
}
