package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// DedupWindow 同一规则两次触发之间的最小间隔（粗粒度时间窗去重，
// 与内容无关），独立于冷却时间生效。
const DedupWindow = time.Hour

// AlertCandidate 规则评估产出的候选告警。纯数据，未落库。
type AlertCandidate struct {
	Severity    Severity
	Amount      float64
	Message     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metadata    map[string]interface{}
}

// MetadataMap JSON 元数据列
type MetadataMap map[string]interface{}

// Scan implements sql.Scanner interface.
func (m *MetadataMap) Scan(value interface{}) error {
	if value == nil {
		*m = make(map[string]interface{})
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return errors.New("unsupported metadata column type")
	}
}

// Value implements driver.Valuer interface.
func (m MetadataMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	return string(data), err
}

// AlertEvent 已落库的告警事件。仅由事件存储创建，此后不可变。
type AlertEvent struct {
	ID          string
	TenantID    string
	RuleID      string
	RuleType    RuleType
	Severity    Severity
	Amount      float64
	Message     string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Metadata    MetadataMap
	TriggeredAt time.Time
}

// AlertEventRepository 告警事件仓储接口
type AlertEventRepository interface {
	// Commit 在单个事务内写入告警事件、对规则的 last_triggered_at 做
	// 条件更新（CAS）、写入 outbox 行。CAS 未命中表示并发扫描已先触发，
	// 返回 (false, nil) 且什么都不写。
	Commit(ctx context.Context, rule *AlertRule, event *AlertEvent, outbox *OutboxEvent) (bool, error)

	// CountSince 指定规则自 since 起已创建的事件数
	CountSince(ctx context.Context, ruleID string, since time.Time) (int64, error)

	// ListRecent 租户最近的告警事件，按触发时间倒序
	ListRecent(ctx context.Context, tenantID string, limit int) ([]*AlertEvent, error)
}
