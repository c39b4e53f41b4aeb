package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"costwarden/cmd/notification-service/internal/domain"
)

// webhookTimeout webhook 类渠道的单次发送超时
const webhookTimeout = 10 * time.Second

// WebhookSender 通用 webhook 发送器，POST JSON 到渠道配置的 URL。
type WebhookSender struct {
	client *http.Client
}

// NewWebhookSender 创建 webhook 发送器
func NewWebhookSender() *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// Channel 实现 domain.Sender
func (s *WebhookSender) Channel() domain.Channel {
	return domain.ChannelWebhook
}

// Send POST 投递内容。secret 为渠道配置解封出的校验 token，
// 为空时不附带。
func (s *WebhookSender) Send(ctx context.Context, delivery *domain.Delivery, secret string) error {
	payload := map[string]interface{}{
		"delivery_id":    delivery.ID,
		"tenant_id":      delivery.TenantID,
		"alert_event_id": delivery.AlertEventID,
		"title":          delivery.Title,
		"content":        delivery.Content,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, delivery.Target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "CostWarden-Notification/1.0")
	if secret != "" {
		req.Header.Set("X-Webhook-Token", secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
