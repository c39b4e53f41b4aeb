package service

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"costwarden/cmd/notification-service/internal/biz"
	"costwarden/cmd/notification-service/internal/domain"
)

// DeliveryService 通知服务对外接口层
type DeliveryService struct {
	deliveries domain.DeliveryRepository
	dispatcher *biz.DispatcherUsecase
	log        *log.Helper
}

// NewDeliveryService 创建通知服务
func NewDeliveryService(
	deliveries domain.DeliveryRepository,
	dispatcher *biz.DispatcherUsecase,
	logger log.Logger,
) *DeliveryService {
	return &DeliveryService{
		deliveries: deliveries,
		dispatcher: dispatcher,
		log:        log.NewHelper(logger),
	}
}

// DeliveryDTO 投递记录
type DeliveryDTO struct {
	ID           string     `json:"id"`
	AlertEventID string     `json:"alert_event_id,omitempty"`
	Channel      string     `json:"channel"`
	Target       string     `json:"target"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	LastError    string     `json:"last_error,omitempty"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// ListByTenant 租户最近的投递记录
func (s *DeliveryService) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*DeliveryDTO, error) {
	deliveries, err := s.deliveries.ListByTenant(ctx, tenantID, limit)
	if err != nil {
		return nil, err
	}

	out := make([]*DeliveryDTO, 0, len(deliveries))
	for _, d := range deliveries {
		out = append(out, toDTO(d))
	}
	return out, nil
}

// Resend 手工重发一条投递记录
func (s *DeliveryService) Resend(ctx context.Context, deliveryID string) (*DeliveryDTO, error) {
	delivery, err := s.dispatcher.Resend(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	return toDTO(delivery), nil
}

func toDTO(d *domain.Delivery) *DeliveryDTO {
	return &DeliveryDTO{
		ID:           d.ID,
		AlertEventID: d.AlertEventID,
		Channel:      string(d.Channel),
		Target:       d.Target,
		Title:        d.Title,
		Status:       string(d.Status),
		Attempts:     d.Attempts,
		LastError:    d.LastError,
		NextRetryAt:  d.NextRetryAt,
		SentAt:       d.SentAt,
		CreatedAt:    d.CreatedAt,
	}
}
