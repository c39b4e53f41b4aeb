package senders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"costwarden/cmd/notification-service/internal/domain"
)

// ChatbotSender 群机器人发送器。目标是飞书/钉钉风格的机器人 webhook，
// 消息统一按文本卡片发送。
type ChatbotSender struct {
	client *http.Client
}

// NewChatbotSender 创建群机器人发送器
func NewChatbotSender() *ChatbotSender {
	return &ChatbotSender{
		client: &http.Client{Timeout: webhookTimeout},
	}
}

// Channel 实现 domain.Sender
func (s *ChatbotSender) Channel() domain.Channel {
	return domain.ChannelChatbot
}

// Send 发送文本消息到机器人 webhook
func (s *ChatbotSender) Send(ctx context.Context, delivery *domain.Delivery, secret string) error {
	payload := map[string]interface{}{
		"msg_type": "text",
		"content": map[string]string{
			"text": delivery.Title + "\n" + delivery.Content,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal chatbot payload: %w", err)
	}

	url := delivery.Target
	if secret != "" {
		// 机器人密钥作为查询参数附加
		url = fmt.Sprintf("%s?token=%s", url, secret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create chatbot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send chatbot message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("chatbot webhook returned status %d", resp.StatusCode)
	}
	return nil
}
