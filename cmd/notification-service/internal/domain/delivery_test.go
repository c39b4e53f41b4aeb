package domain

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestDelivery_FourFailureWalk(t *testing.T) {
	d := NewDelivery("t1", "evt-1", ChannelWebhook, "ch-1", "https://example.com/hook", "title", "content")
	if d.Status != StatusPending {
		t.Fatalf("新建投递状态应为 PENDING，得到 %s", d.Status)
	}

	sendErr := errors.New("connection refused")

	steps := []struct {
		name        string
		wantStatus  DeliveryStatus
		wantBackoff time.Duration
	}{
		{"第一次失败退避 5 分钟", StatusRetrying, 5 * time.Minute},
		{"第二次失败退避 30 分钟", StatusRetrying, 30 * time.Minute},
		{"第三次失败退避 2 小时", StatusRetrying, 2 * time.Hour},
		{"第四次失败进入 FAILED", StatusFailed, 0},
	}

	for i, step := range steps {
		if err := d.RecordFailure(testNow, sendErr); err != nil {
			t.Fatalf("%s: RecordFailure 出错: %v", step.name, err)
		}
		if d.Status != step.wantStatus {
			t.Errorf("%s: 状态 %s，期望 %s", step.name, d.Status, step.wantStatus)
		}
		if d.Attempts != i+1 {
			t.Errorf("%s: 尝试次数 %d，期望 %d", step.name, d.Attempts, i+1)
		}

		if step.wantStatus == StatusFailed {
			if d.NextRetryAt != nil {
				t.Errorf("%s: 终态后 NextRetryAt 应为 nil", step.name)
			}
			continue
		}
		if d.NextRetryAt == nil {
			t.Fatalf("%s: NextRetryAt 不应为 nil", step.name)
		}
		if got := d.NextRetryAt.Sub(testNow); got != step.wantBackoff {
			t.Errorf("%s: 退避 %s，期望 %s", step.name, got, step.wantBackoff)
		}
	}

	if d.LastError != "connection refused" {
		t.Errorf("LastError = %q", d.LastError)
	}

	// 终态后不接受新的状态变更
	if err := d.RecordFailure(testNow, sendErr); !errors.Is(err, ErrTerminalDelivery) {
		t.Errorf("FAILED 后 RecordFailure 应返回 ErrTerminalDelivery，得到 %v", err)
	}
	if err := d.MarkSent(testNow); !errors.Is(err, ErrTerminalDelivery) {
		t.Errorf("FAILED 后 MarkSent 应返回 ErrTerminalDelivery，得到 %v", err)
	}
}

func TestDelivery_MarkSent(t *testing.T) {
	d := NewDelivery("t1", "evt-1", ChannelInApp, "ch-1", "", "title", "content")

	if err := d.MarkSent(testNow); err != nil {
		t.Fatalf("MarkSent 出错: %v", err)
	}
	if d.Status != StatusSent {
		t.Errorf("状态 %s，期望 SENT", d.Status)
	}
	if d.Attempts != 1 {
		t.Errorf("尝试次数 %d，期望 1", d.Attempts)
	}
	if d.SentAt == nil || !d.SentAt.Equal(testNow) {
		t.Errorf("SentAt = %v", d.SentAt)
	}
	if d.NextRetryAt != nil {
		t.Errorf("SENT 后 NextRetryAt 应为 nil")
	}

	// SENT 是终态
	if err := d.RecordFailure(testNow, errors.New("late failure")); !errors.Is(err, ErrTerminalDelivery) {
		t.Errorf("SENT 后 RecordFailure 应返回 ErrTerminalDelivery，得到 %v", err)
	}
}

func TestDelivery_RetryingThenSent(t *testing.T) {
	d := NewDelivery("t1", "evt-1", ChannelEmail, "ch-1", "ops@example.com", "title", "content")

	if err := d.RecordFailure(testNow, errors.New("smtp timeout")); err != nil {
		t.Fatalf("RecordFailure 出错: %v", err)
	}
	if d.Status != StatusRetrying {
		t.Fatalf("状态 %s，期望 RETRYING", d.Status)
	}

	later := testNow.Add(5 * time.Minute)
	if err := d.MarkSent(later); err != nil {
		t.Fatalf("MarkSent 出错: %v", err)
	}
	if d.Status != StatusSent {
		t.Errorf("状态 %s，期望 SENT", d.Status)
	}
	if d.Attempts != 2 {
		t.Errorf("尝试次数 %d，期望 2", d.Attempts)
	}
	if d.LastError != "" {
		t.Errorf("成功后 LastError 应清空，得到 %q", d.LastError)
	}
}

func TestDelivery_MarkFailed(t *testing.T) {
	d := NewDelivery("t1", "evt-1", ChannelWebhook, "ch-1", "https://example.com/hook", "title", "content")

	if err := d.MarkFailed(testNow, "channel deleted"); err != nil {
		t.Fatalf("MarkFailed 出错: %v", err)
	}
	if d.Status != StatusFailed {
		t.Errorf("状态 %s，期望 FAILED", d.Status)
	}
	if d.LastError != "channel deleted" {
		t.Errorf("LastError = %q", d.LastError)
	}
	if d.NextRetryAt != nil {
		t.Errorf("FAILED 后 NextRetryAt 应为 nil")
	}
}

func TestDelivery_ResetForResend(t *testing.T) {
	d := NewDelivery("t1", "evt-1", ChannelWebhook, "ch-1", "https://example.com/hook", "title", "content")
	for i := 0; i < MaxAttempts; i++ {
		_ = d.RecordFailure(testNow, errors.New("down"))
	}
	if d.Status != StatusFailed {
		t.Fatalf("状态 %s，期望 FAILED", d.Status)
	}

	if err := d.ResetForResend(testNow); err != nil {
		t.Fatalf("ResetForResend 出错: %v", err)
	}
	if d.Status != StatusPending {
		t.Errorf("状态 %s，期望 PENDING", d.Status)
	}
	if d.Attempts != 0 {
		t.Errorf("尝试次数 %d，期望 0", d.Attempts)
	}

	// 已发送成功的不允许重发
	sent := NewDelivery("t1", "evt-2", ChannelInApp, "ch-2", "", "title", "content")
	_ = sent.MarkSent(testNow)
	if err := sent.ResetForResend(testNow); !errors.Is(err, ErrTerminalDelivery) {
		t.Errorf("SENT 后 ResetForResend 应返回 ErrTerminalDelivery，得到 %v", err)
	}
}
