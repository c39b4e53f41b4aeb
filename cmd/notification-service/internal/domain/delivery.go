package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel 通知渠道类型
type Channel string

const (
	// ChannelEmail 邮件
	ChannelEmail Channel = "email"
	// ChannelChatbot 群机器人（飞书/钉钉/Slack 风格 webhook）
	ChannelChatbot Channel = "chatbot"
	// ChannelWebhook 通用 webhook
	ChannelWebhook Channel = "webhook"
	// ChannelInApp 站内信（websocket 推送）
	ChannelInApp Channel = "inapp"
)

// DeliveryStatus 投递状态
type DeliveryStatus string

const (
	// StatusPending 已创建，尚未尝试发送
	StatusPending DeliveryStatus = "PENDING"
	// StatusRetrying 发送失败，等待重试
	StatusRetrying DeliveryStatus = "RETRYING"
	// StatusSent 发送成功（终态）
	StatusSent DeliveryStatus = "SENT"
	// StatusFailed 重试耗尽或配置不可恢复（终态）
	StatusFailed DeliveryStatus = "FAILED"
)

// MaxAttempts 最大发送尝试次数，第 MaxAttempts 次失败后进入 FAILED
const MaxAttempts = 4

// RetryBackoff 重试退避表，按失败次数索引（第 1 次失败 → 5 分钟）。
var RetryBackoff = []time.Duration{
	5 * time.Minute,
	30 * time.Minute,
	2 * time.Hour,
	6 * time.Hour,
}

// ErrTerminalDelivery 终态投递记录不接受新的状态变更
var ErrTerminalDelivery = errors.New("delivery is in a terminal state")

// MetadataMap JSONB 元数据
type MetadataMap map[string]interface{}

// Value 实现 driver.Valuer
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan 实现 sql.Scanner
func (m *MetadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into MetadataMap", value)
	}
}

// Delivery 单渠道投递记录。状态只向前推进，RETRYING 可重入。
type Delivery struct {
	ID           string
	TenantID     string
	AlertEventID string
	ChannelID    string
	Channel      Channel
	Target       string
	Title        string
	Content      string
	Status       DeliveryStatus
	Attempts     int
	LastError    string
	NextRetryAt  *time.Time
	SentAt       *time.Time
	Metadata     MetadataMap
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewDelivery 创建待发送的投递记录
func NewDelivery(tenantID, alertEventID string, channel Channel, channelID, target, title, content string) *Delivery {
	now := time.Now().UTC()
	return &Delivery{
		ID:           uuid.New().String(),
		TenantID:     tenantID,
		AlertEventID: alertEventID,
		ChannelID:    channelID,
		Channel:      channel,
		Target:       target,
		Title:        title,
		Content:      content,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Terminal 是否处于终态
func (d *Delivery) Terminal() bool {
	return d.Status == StatusSent || d.Status == StatusFailed
}

// MarkSent 标记发送成功
func (d *Delivery) MarkSent(now time.Time) error {
	if d.Terminal() {
		return ErrTerminalDelivery
	}
	d.Status = StatusSent
	d.Attempts++
	d.LastError = ""
	d.NextRetryAt = nil
	d.SentAt = &now
	d.UpdatedAt = now
	return nil
}

// RecordFailure 记录一次失败。未达到 MaxAttempts 时进入 RETRYING 并按
// 退避表安排下次重试，否则进入 FAILED 并清空 NextRetryAt。
func (d *Delivery) RecordFailure(now time.Time, sendErr error) error {
	if d.Terminal() {
		return ErrTerminalDelivery
	}
	d.Attempts++
	if sendErr != nil {
		d.LastError = sendErr.Error()
	}
	d.UpdatedAt = now

	if d.Attempts >= MaxAttempts {
		d.Status = StatusFailed
		d.NextRetryAt = nil
		return nil
	}

	d.Status = StatusRetrying
	retryAt := now.Add(RetryBackoff[d.Attempts-1])
	d.NextRetryAt = &retryAt
	return nil
}

// MarkFailed 直接进入 FAILED，用于渠道配置无法重建等不可恢复场景。
func (d *Delivery) MarkFailed(now time.Time, reason string) error {
	if d.Terminal() {
		return ErrTerminalDelivery
	}
	d.Status = StatusFailed
	d.LastError = reason
	d.NextRetryAt = nil
	d.UpdatedAt = now
	return nil
}

// ResetForResend 手工重发：清零尝试计数并回到 PENDING。已成功的记录
// 不允许重发。
func (d *Delivery) ResetForResend(now time.Time) error {
	if d.Status == StatusSent {
		return ErrTerminalDelivery
	}
	d.Status = StatusPending
	d.Attempts = 0
	d.LastError = ""
	d.NextRetryAt = nil
	d.UpdatedAt = now
	return nil
}

// DeliveryRepository 投递记录仓储
type DeliveryRepository interface {
	Create(ctx context.Context, delivery *Delivery) error
	Update(ctx context.Context, delivery *Delivery) error
	GetByID(ctx context.Context, id string) (*Delivery, error)
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*Delivery, error)
}
