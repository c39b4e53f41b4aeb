package domain

import (
	"context"
	"time"
)

// StaleBatchAge 账单摄取批次的过期阈值
const StaleBatchAge = 48 * time.Hour

// IngestionBatch 一次外部账单摄取批次
type IngestionBatch struct {
	ID        string
	TenantID  string
	StartedAt time.Time
	Status    string
}

// IngestionReader 外部账单摄取状态的只读视图。
// 仅 CUR_STALE 规则消费。
type IngestionReader interface {
	// Enabled 租户是否启用了外部账单摄取
	Enabled(ctx context.Context, tenantID string) (bool, error)

	// LatestBatchStart 最近一次摄取批次的开始时间，从未运行过返回 nil
	LatestBatchStart(ctx context.Context, tenantID string) (*time.Time, error)
}
