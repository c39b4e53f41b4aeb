package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"costwarden/cmd/notification-service/internal/domain"
	"costwarden/pkg/monitoring"
)

// RetryScheduler 延迟重试调度器，按到期时间投递 delivery id。
type RetryScheduler interface {
	Schedule(ctx context.Context, deliveryID string, at time.Time) error
}

// SecretOpener 解封渠道凭据。密钥轮换或数据损坏时返回
// crypto.ErrSealedSecret。
type SecretOpener interface {
	Open(token string) ([]byte, error)
}

// DispatcherUsecase 通知分发用例。告警事件进来后为每个启用渠道各创建
// 一条投递记录并尝试发送；失败按退避表调度重试，重试时重建最小渠道
// 配置（解封凭据），配置无法重建则直接 FAILED。
type DispatcherUsecase struct {
	deliveries domain.DeliveryRepository
	channels   domain.ChannelRepository
	senders    map[domain.Channel]domain.Sender
	retries    RetryScheduler
	secrets    SecretOpener
	now        func() time.Time
	log        *log.Helper
}

// NewDispatcherUsecase 创建通知分发用例
func NewDispatcherUsecase(
	deliveries domain.DeliveryRepository,
	channels domain.ChannelRepository,
	retries RetryScheduler,
	secrets SecretOpener,
	logger log.Logger,
) *DispatcherUsecase {
	return &DispatcherUsecase{
		deliveries: deliveries,
		channels:   channels,
		senders:    make(map[domain.Channel]domain.Sender),
		retries:    retries,
		secrets:    secrets,
		now:        func() time.Time { return time.Now().UTC() },
		log:        log.NewHelper(logger),
	}
}

// RegisterSender 注册渠道发送器
func (uc *DispatcherUsecase) RegisterSender(sender domain.Sender) {
	uc.senders[sender.Channel()] = sender
}

// DispatchAlert 为租户的每个启用渠道创建投递记录并尝试首次发送。
// 单渠道失败不影响其他渠道，也不向调用方传播发送错误。
func (uc *DispatcherUsecase) DispatchAlert(ctx context.Context, tenantID, alertEventID, title, content string) ([]*domain.Delivery, error) {
	configs, err := uc.channels.ListEnabled(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	deliveries := make([]*domain.Delivery, 0, len(configs))
	for _, cfg := range configs {
		delivery := domain.NewDelivery(tenantID, alertEventID, cfg.Type, cfg.ID, cfg.Target, title, content)
		if err := uc.deliveries.Create(ctx, delivery); err != nil {
			uc.log.WithContext(ctx).Errorf("failed to create delivery for channel %s: %v", cfg.ID, err)
			continue
		}

		secret, err := uc.openSecret(cfg)
		if err != nil {
			uc.failUnrecoverable(ctx, delivery, "channel secret cannot be opened")
			deliveries = append(deliveries, delivery)
			continue
		}

		uc.attempt(ctx, delivery, secret)
		deliveries = append(deliveries, delivery)
	}
	return deliveries, nil
}

// Retry 由重试队列触发。重建最小渠道配置后再次尝试；渠道已删除、
// 已禁用或凭据解封失败时标记 FAILED 而不是无限重试。
func (uc *DispatcherUsecase) Retry(ctx context.Context, deliveryID string) error {
	delivery, err := uc.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return err
	}
	if delivery.Terminal() {
		// 过期的重试任务
		return nil
	}

	secret, err := uc.reconstruct(ctx, delivery)
	if err != nil {
		uc.failUnrecoverable(ctx, delivery, err.Error())
		return nil
	}

	uc.attempt(ctx, delivery, secret)
	return nil
}

// Resend 手工重发：清零尝试计数并立即重试一次。
func (uc *DispatcherUsecase) Resend(ctx context.Context, deliveryID string) (*domain.Delivery, error) {
	delivery, err := uc.deliveries.GetByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if err := delivery.ResetForResend(uc.now()); err != nil {
		return nil, err
	}
	if err := uc.deliveries.Update(ctx, delivery); err != nil {
		return nil, err
	}

	secret, err := uc.reconstruct(ctx, delivery)
	if err != nil {
		uc.failUnrecoverable(ctx, delivery, err.Error())
		return delivery, nil
	}

	uc.attempt(ctx, delivery, secret)
	return delivery, nil
}

// attempt 执行一次发送并推进状态机
func (uc *DispatcherUsecase) attempt(ctx context.Context, delivery *domain.Delivery, secret string) {
	now := uc.now()

	sender, ok := uc.senders[delivery.Channel]
	if !ok {
		uc.failUnrecoverable(ctx, delivery, fmt.Sprintf("no sender registered for channel %s", delivery.Channel))
		return
	}

	if err := sender.Send(ctx, delivery, secret); err != nil {
		monitoring.DeliveryAttempts.WithLabelValues(string(delivery.Channel), "failure").Inc()
		if markErr := delivery.RecordFailure(now, err); markErr != nil {
			uc.log.WithContext(ctx).Errorf("failed to record delivery failure %s: %v", delivery.ID, markErr)
			return
		}
		if err := uc.deliveries.Update(ctx, delivery); err != nil {
			uc.log.WithContext(ctx).Errorf("failed to update delivery %s: %v", delivery.ID, err)
			return
		}
		if delivery.Status == domain.StatusRetrying && delivery.NextRetryAt != nil {
			if err := uc.retries.Schedule(ctx, delivery.ID, *delivery.NextRetryAt); err != nil {
				uc.log.WithContext(ctx).Errorf("failed to schedule retry for %s: %v", delivery.ID, err)
			}
		}
		return
	}

	monitoring.DeliveryAttempts.WithLabelValues(string(delivery.Channel), "success").Inc()
	if err := delivery.MarkSent(now); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to mark delivery sent %s: %v", delivery.ID, err)
		return
	}
	if err := uc.deliveries.Update(ctx, delivery); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to update delivery %s: %v", delivery.ID, err)
	}
}

// reconstruct 重建发送所需的最小渠道配置并刷新投递目标
func (uc *DispatcherUsecase) reconstruct(ctx context.Context, delivery *domain.Delivery) (string, error) {
	cfg, err := uc.channels.GetByID(ctx, delivery.ChannelID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelNotFound) {
			return "", fmt.Errorf("channel %s no longer exists", delivery.ChannelID)
		}
		return "", err
	}
	if !cfg.Enabled {
		return "", fmt.Errorf("channel %s is disabled", delivery.ChannelID)
	}

	secret, err := uc.openSecret(cfg)
	if err != nil {
		return "", fmt.Errorf("channel %s secret cannot be opened", delivery.ChannelID)
	}

	delivery.Target = cfg.Target
	return secret, nil
}

func (uc *DispatcherUsecase) openSecret(cfg *domain.ChannelConfig) (string, error) {
	if cfg.SecretSealed == "" {
		return "", nil
	}
	plain, err := uc.secrets.Open(cfg.SecretSealed)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

func (uc *DispatcherUsecase) failUnrecoverable(ctx context.Context, delivery *domain.Delivery, reason string) {
	monitoring.DeliveryAttempts.WithLabelValues(string(delivery.Channel), "unrecoverable").Inc()
	if err := delivery.MarkFailed(uc.now(), reason); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to mark delivery failed %s: %v", delivery.ID, err)
		return
	}
	if err := uc.deliveries.Update(ctx, delivery); err != nil {
		uc.log.WithContext(ctx).Errorf("failed to update delivery %s: %v", delivery.ID, err)
	}
	uc.log.WithContext(ctx).Warnf("delivery %s marked failed: %s", delivery.ID, reason)
}
