package data

import (
	"context"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"

	"github.com/go-kratos/kratos/v2/log"
)

// OutboxEventPO 发件箱持久化对象
type OutboxEventPO struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	TenantID    string `gorm:"size:64;not null"`
	EventType   string `gorm:"size:64;not null"`
	Payload     string `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time
	PublishedAt *time.Time `gorm:"index:idx_outbox_unpublished"`
}

// TableName 表名
func (OutboxEventPO) TableName() string {
	return "event_outbox"
}

// OutboxRepository 发件箱仓储实现
type OutboxRepository struct {
	data *Data
	log  *log.Helper
}

// NewOutboxRepo 创建发件箱仓储
func NewOutboxRepo(data *Data, logger log.Logger) domain.OutboxRepository {
	return &OutboxRepository{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// FetchUnpublished 按创建顺序取未投递事件
func (r *OutboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var pos []OutboxEventPO
	if err := r.data.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("id").
		Limit(limit).
		Find(&pos).Error; err != nil {
		r.log.Errorf("failed to fetch outbox events: %v", err)
		return nil, err
	}

	events := make([]*domain.OutboxEvent, 0, len(pos))
	for i := range pos {
		po := &pos[i]
		events = append(events, &domain.OutboxEvent{
			ID:          po.ID,
			TenantID:    po.TenantID,
			EventType:   po.EventType,
			Payload:     []byte(po.Payload),
			CreatedAt:   po.CreatedAt,
			PublishedAt: po.PublishedAt,
		})
	}
	return events, nil
}

// MarkPublished 标记已投递
func (r *OutboxRepository) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	now := time.Now()
	if err := r.data.db.WithContext(ctx).
		Model(&OutboxEventPO{}).
		Where("id IN ?", ids).
		Update("published_at", now).Error; err != nil {
		r.log.Errorf("failed to mark outbox events published: %v", err)
		return err
	}
	return nil
}

// CountUnpublished 未投递事件数
func (r *OutboxRepository) CountUnpublished(ctx context.Context) (int64, error) {
	var count int64
	if err := r.data.db.WithContext(ctx).
		Model(&OutboxEventPO{}).
		Where("published_at IS NULL").
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
