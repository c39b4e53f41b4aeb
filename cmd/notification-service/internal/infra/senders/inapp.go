package senders

import (
	"context"
	"time"

	"costwarden/cmd/notification-service/internal/domain"
	ws "costwarden/cmd/notification-service/internal/infra/websocket"
)

// InAppSender 站内信发送器。推送是同步的且不依赖外部系统，离线用户
// 错过的消息可从投递记录列表读回，因此发送总是成功。
type InAppSender struct {
	hub *ws.Hub
}

// NewInAppSender 创建站内信发送器
func NewInAppSender(hub *ws.Hub) *InAppSender {
	return &InAppSender{hub: hub}
}

// Channel 实现 domain.Sender
func (s *InAppSender) Channel() domain.Channel {
	return domain.ChannelInApp
}

// Send 推送给租户在线连接，始终返回 nil。
func (s *InAppSender) Send(ctx context.Context, delivery *domain.Delivery, secret string) error {
	message := map[string]interface{}{
		"delivery_id":    delivery.ID,
		"alert_event_id": delivery.AlertEventID,
		"title":          delivery.Title,
		"content":        delivery.Content,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}
	_ = s.hub.BroadcastToTenant(delivery.TenantID, message)
	return nil
}
