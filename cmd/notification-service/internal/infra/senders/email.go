package senders

import (
	"context"
	"fmt"
	"net/smtp"

	"costwarden/cmd/notification-service/internal/domain"
)

// SMTPConfig SMTP 连接配置。口令不在这里，由渠道密封凭据提供。
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	From     string
}

// EmailSender SMTP 邮件发送器
type EmailSender struct {
	config SMTPConfig
}

// NewEmailSender 创建邮件发送器
func NewEmailSender(config SMTPConfig) *EmailSender {
	return &EmailSender{config: config}
}

// Channel 实现 domain.Sender
func (s *EmailSender) Channel() domain.Channel {
	return domain.ChannelEmail
}

// Send 发送邮件。secret 是解封后的 SMTP 口令。
func (s *EmailSender) Send(ctx context.Context, delivery *domain.Delivery, secret string) error {
	auth := smtp.PlainAuth("", s.config.Username, secret, s.config.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		s.config.From, delivery.Target, delivery.Title, delivery.Content)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := smtp.SendMail(addr, auth, s.config.From, []string{delivery.Target}, []byte(msg)); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}
