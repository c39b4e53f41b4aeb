package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

const (
	retryQueueKey = "costwarden:notification:retry_queue"

	// DefaultPollInterval 到期扫描间隔
	DefaultPollInterval = 5 * time.Second
)

// RetryHandler 处理一条到期的投递重试
type RetryHandler func(ctx context.Context, deliveryID string) error

// RetryQueue 基于 redis sorted set 的延迟重试队列。score 是到期的
// Unix 时间戳，member 是 delivery id。多实例下用 ZRem 抢占，抢到的
// 实例执行重试。
type RetryQueue struct {
	client   *redis.Client
	interval time.Duration
	log      *log.Helper
}

// NewRetryQueue 创建重试队列
func NewRetryQueue(client *redis.Client, interval time.Duration, logger log.Logger) *RetryQueue {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &RetryQueue{
		client:   client,
		interval: interval,
		log:      log.NewHelper(logger),
	}
}

// Schedule 把投递记录安排到 at 时刻重试
func (q *RetryQueue) Schedule(ctx context.Context, deliveryID string, at time.Time) error {
	return q.client.ZAdd(ctx, retryQueueKey, &redis.Z{
		Score:  float64(at.Unix()),
		Member: deliveryID,
	}).Err()
}

// Run 轮询到期任务并逐条交给 handler。handler 返回错误只记日志，
// 投递级别的重试调度由状态机自己负责。
func (q *RetryQueue) Run(ctx context.Context, handler RetryHandler) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	q.log.Infof("retry queue started, poll interval %s", q.interval)

	for {
		select {
		case <-ctx.Done():
			q.log.Info("retry queue stopped")
			return
		case <-ticker.C:
			q.drainDue(ctx, handler)
		}
	}
}

func (q *RetryQueue) drainDue(ctx context.Context, handler RetryHandler) {
	now := time.Now().UTC().Unix()

	ids, err := q.client.ZRangeByScore(ctx, retryQueueKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		q.log.Errorf("failed to read retry queue: %v", err)
		return
	}

	for _, id := range ids {
		removed, err := q.client.ZRem(ctx, retryQueueKey, id).Result()
		if err != nil {
			q.log.Errorf("failed to claim retry task %s: %v", id, err)
			continue
		}
		if removed == 0 {
			// 其他实例已抢占
			continue
		}

		if err := handler(ctx, id); err != nil {
			q.log.Errorf("retry handler failed for delivery %s: %v", id, err)
		}
	}
}
