package biz

import (
	"context"
	"fmt"
	"time"

	"costwarden/cmd/notification-service/internal/domain"
	"costwarden/pkg/crypto"
)

type fakeDeliveryRepo struct {
	created []*domain.Delivery
	byID    map[string]*domain.Delivery
	getErr  error
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{byID: make(map[string]*domain.Delivery)}
}

func (r *fakeDeliveryRepo) Create(ctx context.Context, d *domain.Delivery) error {
	r.created = append(r.created, d)
	r.byID[d.ID] = d
	return nil
}

func (r *fakeDeliveryRepo) Update(ctx context.Context, d *domain.Delivery) error {
	r.byID[d.ID] = d
	return nil
}

func (r *fakeDeliveryRepo) GetByID(ctx context.Context, id string) (*domain.Delivery, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("delivery %s not found", id)
	}
	return d, nil
}

func (r *fakeDeliveryRepo) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*domain.Delivery, error) {
	var out []*domain.Delivery
	for _, d := range r.created {
		if d.TenantID == tenantID {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeChannelRepo struct {
	enabled []*domain.ChannelConfig
	listErr error
}

func (r *fakeChannelRepo) GetByID(ctx context.Context, id string) (*domain.ChannelConfig, error) {
	for _, cfg := range r.enabled {
		if cfg.ID == id {
			return cfg, nil
		}
	}
	return nil, domain.ErrChannelNotFound
}

func (r *fakeChannelRepo) ListEnabled(ctx context.Context, tenantID string) ([]*domain.ChannelConfig, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	var out []*domain.ChannelConfig
	for _, cfg := range r.enabled {
		if cfg.TenantID == tenantID && cfg.Enabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

type scheduledRetry struct {
	deliveryID string
	at         time.Time
}

type fakeScheduler struct {
	scheduled []scheduledRetry
}

func (s *fakeScheduler) Schedule(ctx context.Context, deliveryID string, at time.Time) error {
	s.scheduled = append(s.scheduled, scheduledRetry{deliveryID: deliveryID, at: at})
	return nil
}

// fakeOpener 明文即密文，sealedOK 之外的 token 解封失败。
type fakeOpener struct {
	failTokens map[string]bool
}

func (o *fakeOpener) Open(token string) ([]byte, error) {
	if o.failTokens[token] {
		return nil, crypto.ErrSealedSecret
	}
	return []byte(token), nil
}

type fakeSender struct {
	channel     domain.Channel
	err         error
	calls       int
	lastSecret  string
	lastTarget  string
	lastContent string
}

func (s *fakeSender) Channel() domain.Channel {
	return s.channel
}

func (s *fakeSender) Send(ctx context.Context, delivery *domain.Delivery, secret string) error {
	s.calls++
	s.lastSecret = secret
	s.lastTarget = delivery.Target
	s.lastContent = delivery.Content
	return s.err
}
