package worker

import (
	"context"
	"encoding/json"
	"time"

	"costwarden/cmd/admission-gateway/internal/domain"
	"costwarden/pkg/events"
	"costwarden/pkg/monitoring"

	"github.com/go-kratos/kratos/v2/log"
)

// OutboxWorker 轮询发件箱并投递到 Kafka。
// 落库与投递解耦：进程在提交后、投递前崩溃也不丢事件。
type OutboxWorker struct {
	outboxRepo domain.OutboxRepository
	publisher  events.Publisher
	interval   time.Duration
	batchSize  int
	log        *log.Helper
}

// NewOutboxWorker 创建发件箱投递器
func NewOutboxWorker(
	outboxRepo domain.OutboxRepository,
	publisher events.Publisher,
	logger log.Logger,
) *OutboxWorker {
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   2 * time.Second,
		batchSize:  100,
		log:        log.NewHelper(logger),
	}
}

// Run 阻塞运行直到 ctx 取消
func (w *OutboxWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("outbox worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("outbox worker stopped")
			return
		case <-ticker.C:
			if err := w.drain(ctx); err != nil {
				w.log.Errorf("outbox drain failed: %v", err)
			}
		}
	}
}

// drain 取一批未投递事件逐条发布。单条失败停止本轮，
// 留给下一轮重试，保持租户内顺序。
func (w *OutboxWorker) drain(ctx context.Context) error {
	batch, err := w.outboxRepo.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	published := make([]int64, 0, len(batch))
	for _, ob := range batch {
		var envelope events.Envelope
		if err := json.Unmarshal(ob.Payload, &envelope); err != nil {
			// 损坏的行标记已投递，避免永久卡住队列
			w.log.Errorf("dropping malformed outbox row %d: %v", ob.ID, err)
			published = append(published, ob.ID)
			continue
		}

		if err := w.publisher.Publish(ctx, &envelope); err != nil {
			w.log.Errorf("failed to publish outbox event %d: %v", ob.ID, err)
			break
		}
		published = append(published, ob.ID)
	}

	if len(published) > 0 {
		if err := w.outboxRepo.MarkPublished(ctx, published); err != nil {
			return err
		}
	}

	if pending, err := w.outboxRepo.CountUnpublished(ctx); err == nil {
		monitoring.OutboxLag.WithLabelValues("admission-gateway").Set(float64(pending))
	}
	return nil
}
