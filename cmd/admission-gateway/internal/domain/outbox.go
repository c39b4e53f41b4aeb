package domain

import (
	"context"
	"time"
)

// OutboxEvent 事件发件箱行。与业务写入同事务落库，
// 由 outbox worker 异步投递到 Kafka，进程崩溃不丢事件。
type OutboxEvent struct {
	ID          int64
	TenantID    string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// OutboxRepository 发件箱仓储接口
type OutboxRepository interface {
	// FetchUnpublished 按创建顺序取未投递事件
	FetchUnpublished(ctx context.Context, limit int) ([]*OutboxEvent, error)

	// MarkPublished 标记已投递
	MarkPublished(ctx context.Context, ids []int64) error

	// CountUnpublished 未投递事件数（监控用）
	CountUnpublished(ctx context.Context) (int64, error)
}
