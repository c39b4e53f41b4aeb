package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType 事件类型
type EventType string

const (
	// EventCostEventCreated 成本账本写入完成
	EventCostEventCreated EventType = "cost_event.created"
	// EventRequestCompleted AI 请求完成
	EventRequestCompleted EventType = "ai_request.completed"
	// EventAlertTriggered 告警事件触发
	EventAlertTriggered EventType = "alert_event.triggered"
)

// Envelope 事件信封，所有跨服务事件的统一外壳
type Envelope struct {
	EventID   string                 `json:"event_id"`
	Type      EventType              `json:"type"`
	TenantID  string                 `json:"tenant_id"`
	Timestamp time.Time              `json:"timestamp"`
	Payload   map[string]interface{} `json:"payload"`
}

// NewEnvelope 创建事件信封
func NewEnvelope(tenantID string, eventType EventType, payload map[string]interface{}) *Envelope {
	return &Envelope{
		EventID:   uuid.New().String(),
		Type:      eventType,
		TenantID:  tenantID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
