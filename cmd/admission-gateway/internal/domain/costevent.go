package domain

import (
	"context"
	"crypto/sha256"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StatusCodeBlocked 被网关拒绝的请求在账本中的专用状态码，
// 与任何上游 HTTP 状态码区分开
const StatusCodeBlocked = 999

// CostEvent 成本账本行。仅由准入网关创建（成功或拒绝路径），
// 写入后不可变，保留策略属于外部关注点。
type CostEvent struct {
	ID                string
	TenantID          string
	OccurredAt        time.Time
	Provider          string
	Model             string
	UserID            string
	TeamID            string
	ProjectID         string
	AppID             string
	ClientID          string
	InputTokens       int
	OutputTokens      int
	TotalTokens       int
	Cost              float64 // 基准货币（USD）
	StatusCode        int
	ExternalRequestID string
	LogID             string
	Fingerprint       string
	Metadata          MetadataMap
	CreatedAt         time.Time
}

// MetadataMap is a custom type for JSONB storage.
type MetadataMap map[string]interface{}

// Scan implements sql.Scanner interface.
func (m *MetadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal JSONB value")
	}
	return json.Unmarshal(bytes, m)
}

// Value implements driver.Valuer interface.
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// NewCostEvent 创建账本行并计算唯一性指纹
func NewCostEvent(tenantID, model, provider string) *CostEvent {
	now := time.Now()
	return &CostEvent{
		ID:         uuid.New().String(),
		TenantID:   tenantID,
		Model:      model,
		Provider:   provider,
		OccurredAt: now,
		Metadata:   make(MetadataMap),
		CreatedAt:  now,
	}
}

// SealFingerprint 固化唯一性指纹。对相同的
// (tenant, externalRequestID, logID, tokenCount, cost) 元组结果稳定，
// 重试写入折叠为同一行。
func (e *CostEvent) SealFingerprint() {
	e.Fingerprint = Fingerprint(e.TenantID, e.ExternalRequestID, e.LogID, e.TotalTokens, e.Cost)
}

// Fingerprint 计算内容指纹（sha256 hex）
func Fingerprint(tenantID, externalRequestID, logID string, tokenCount int, cost float64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%.6f",
		tenantID, externalRequestID, logID, tokenCount, cost)))
	return hex.EncodeToString(sum[:])
}

// ScopeFilter 账本聚合查询的维度过滤。零值字段不参与过滤，
// 过滤在查询层完成（索引列谓词下推），不在内存中过滤。
type ScopeFilter struct {
	UserID    string
	TeamID    string
	ProjectID string
	AppID     string
	ClientID  string
}

// SpendByConsumer 按消费者维度聚合的花费
type SpendByConsumer struct {
	UserID string
	Spend  float64
}

// CostEventRepository 账本仓储接口
type CostEventRepository interface {
	// Create 写入账本行。对指纹冲突幂等：重复写入静默折叠。
	Create(ctx context.Context, event *CostEvent) error

	// CreateWithOutbox 在同一事务中写入账本行和 outbox 事件
	CreateWithOutbox(ctx context.Context, event *CostEvent, outbox []*OutboxEvent) error

	// SumSince 租户自 since 起的总花费
	SumSince(ctx context.Context, tenantID string, since time.Time) (float64, error)

	// SumForScope 按维度过滤的花费合计
	SumForScope(ctx context.Context, tenantID string, filter ScopeFilter, since time.Time) (float64, error)
}
