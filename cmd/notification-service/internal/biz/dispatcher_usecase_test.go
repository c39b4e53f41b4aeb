package biz

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"costwarden/cmd/notification-service/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type dispatcherFixture struct {
	uc         *DispatcherUsecase
	deliveries *fakeDeliveryRepo
	channels   *fakeChannelRepo
	scheduler  *fakeScheduler
	opener     *fakeOpener
}

func newDispatcherFixture(channels []*domain.ChannelConfig) *dispatcherFixture {
	f := &dispatcherFixture{
		deliveries: newFakeDeliveryRepo(),
		channels:   &fakeChannelRepo{enabled: channels},
		scheduler:  &fakeScheduler{},
		opener:     &fakeOpener{failTokens: make(map[string]bool)},
	}
	f.uc = NewDispatcherUsecase(f.deliveries, f.channels, f.scheduler, f.opener, log.NewStdLogger(os.Stdout))
	f.uc.now = func() time.Time { return testNow }
	return f
}

func webhookChannel(id string) *domain.ChannelConfig {
	return &domain.ChannelConfig{
		ID:       id,
		TenantID: "t1",
		Type:     domain.ChannelWebhook,
		Name:     "ops webhook",
		Target:   "https://example.com/hook",
		Enabled:  true,
	}
}

func TestDispatchAlert_AllChannelsSent(t *testing.T) {
	configs := []*domain.ChannelConfig{
		webhookChannel("ch-web"),
		{ID: "ch-inapp", TenantID: "t1", Type: domain.ChannelInApp, Name: "站内信", Enabled: true},
	}
	f := newDispatcherFixture(configs)

	webSender := &fakeSender{channel: domain.ChannelWebhook}
	inappSender := &fakeSender{channel: domain.ChannelInApp}
	f.uc.RegisterSender(webSender)
	f.uc.RegisterSender(inappSender)

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "[WARN] daily spike", "spend jumped")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}
	if len(deliveries) != 2 {
		t.Fatalf("应为每个启用渠道创建一条投递，得到 %d 条", len(deliveries))
	}
	for _, d := range deliveries {
		if d.Status != domain.StatusSent {
			t.Errorf("渠道 %s 状态 %s，期望 SENT", d.Channel, d.Status)
		}
		if d.Attempts != 1 {
			t.Errorf("渠道 %s 尝试次数 %d，期望 1", d.Channel, d.Attempts)
		}
	}
	if webSender.calls != 1 || inappSender.calls != 1 {
		t.Errorf("每个发送器应被调用一次，webhook=%d inapp=%d", webSender.calls, inappSender.calls)
	}
	if webSender.lastTarget != "https://example.com/hook" {
		t.Errorf("webhook 目标 = %q", webSender.lastTarget)
	}
}

func TestDispatchAlert_FailureSchedulesRetry(t *testing.T) {
	f := newDispatcherFixture([]*domain.ChannelConfig{webhookChannel("ch-1")})
	f.uc.RegisterSender(&fakeSender{channel: domain.ChannelWebhook, err: errors.New("connection refused")})

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "title", "content")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("投递条数 = %d", len(deliveries))
	}

	d := deliveries[0]
	if d.Status != domain.StatusRetrying {
		t.Fatalf("状态 %s，期望 RETRYING", d.Status)
	}
	if len(f.scheduler.scheduled) != 1 {
		t.Fatalf("应调度一次重试，得到 %d", len(f.scheduler.scheduled))
	}
	got := f.scheduler.scheduled[0]
	if got.deliveryID != d.ID {
		t.Errorf("调度的投递 id = %s", got.deliveryID)
	}
	if want := testNow.Add(5 * time.Minute); !got.at.Equal(want) {
		t.Errorf("重试时间 %v，期望 %v", got.at, want)
	}
}

func TestDispatchAlert_SingleChannelFailureDoesNotBlockOthers(t *testing.T) {
	configs := []*domain.ChannelConfig{
		webhookChannel("ch-bad"),
		{ID: "ch-inapp", TenantID: "t1", Type: domain.ChannelInApp, Enabled: true},
	}
	f := newDispatcherFixture(configs)
	f.uc.RegisterSender(&fakeSender{channel: domain.ChannelWebhook, err: errors.New("down")})
	f.uc.RegisterSender(&fakeSender{channel: domain.ChannelInApp})

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "title", "content")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}

	byChannel := make(map[domain.Channel]domain.DeliveryStatus)
	for _, d := range deliveries {
		byChannel[d.Channel] = d.Status
	}
	if byChannel[domain.ChannelWebhook] != domain.StatusRetrying {
		t.Errorf("webhook 状态 %s，期望 RETRYING", byChannel[domain.ChannelWebhook])
	}
	if byChannel[domain.ChannelInApp] != domain.StatusSent {
		t.Errorf("站内信状态 %s，期望 SENT", byChannel[domain.ChannelInApp])
	}
}

func TestDispatchAlert_UndecryptableSecretFails(t *testing.T) {
	cfg := webhookChannel("ch-1")
	cfg.SecretSealed = "rotated-away"
	f := newDispatcherFixture([]*domain.ChannelConfig{cfg})
	f.opener.failTokens["rotated-away"] = true

	sender := &fakeSender{channel: domain.ChannelWebhook}
	f.uc.RegisterSender(sender)

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "title", "content")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("投递条数 = %d", len(deliveries))
	}
	if deliveries[0].Status != domain.StatusFailed {
		t.Errorf("状态 %s，期望 FAILED", deliveries[0].Status)
	}
	if sender.calls != 0 {
		t.Errorf("凭据解封失败时不应调用发送器，calls=%d", sender.calls)
	}
	if len(f.scheduler.scheduled) != 0 {
		t.Errorf("不可恢复的失败不应调度重试")
	}
}

func TestDispatchAlert_NoSenderRegisteredFails(t *testing.T) {
	f := newDispatcherFixture([]*domain.ChannelConfig{webhookChannel("ch-1")})

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "title", "content")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}
	if deliveries[0].Status != domain.StatusFailed {
		t.Errorf("状态 %s，期望 FAILED", deliveries[0].Status)
	}
}

func TestRetry_SendsWithReconstructedConfig(t *testing.T) {
	cfg := webhookChannel("ch-1")
	cfg.SecretSealed = "hook-token"
	f := newDispatcherFixture([]*domain.ChannelConfig{cfg})
	sender := &fakeSender{channel: domain.ChannelWebhook}
	f.uc.RegisterSender(sender)

	d := domain.NewDelivery("t1", "evt-1", domain.ChannelWebhook, "ch-1", "https://old.example.com/hook", "title", "content")
	d.Status = domain.StatusRetrying
	d.Attempts = 1
	_ = f.deliveries.Create(context.Background(), d)

	// 渠道配置在重试前变更了目标地址
	cfg.Target = "https://new.example.com/hook"

	if err := f.uc.Retry(context.Background(), d.ID); err != nil {
		t.Fatalf("Retry 出错: %v", err)
	}
	if d.Status != domain.StatusSent {
		t.Errorf("状态 %s，期望 SENT", d.Status)
	}
	if sender.lastTarget != "https://new.example.com/hook" {
		t.Errorf("重试应使用重建后的目标，得到 %q", sender.lastTarget)
	}
	if sender.lastSecret != "hook-token" {
		t.Errorf("重试应携带解封后的凭据，得到 %q", sender.lastSecret)
	}
}

func TestRetry_ChannelGoneMarksFailed(t *testing.T) {
	f := newDispatcherFixture(nil)
	sender := &fakeSender{channel: domain.ChannelWebhook}
	f.uc.RegisterSender(sender)

	d := domain.NewDelivery("t1", "evt-1", domain.ChannelWebhook, "ch-deleted", "https://example.com/hook", "title", "content")
	d.Status = domain.StatusRetrying
	d.Attempts = 2
	_ = f.deliveries.Create(context.Background(), d)

	if err := f.uc.Retry(context.Background(), d.ID); err != nil {
		t.Fatalf("Retry 出错: %v", err)
	}
	if d.Status != domain.StatusFailed {
		t.Errorf("渠道不存在时应 FAILED，得到 %s", d.Status)
	}
	if sender.calls != 0 {
		t.Errorf("不应调用发送器，calls=%d", sender.calls)
	}
}

func TestRetry_DisabledChannelMarksFailed(t *testing.T) {
	cfg := webhookChannel("ch-1")
	cfg.Enabled = false
	f := newDispatcherFixture([]*domain.ChannelConfig{cfg})
	f.uc.RegisterSender(&fakeSender{channel: domain.ChannelWebhook})

	d := domain.NewDelivery("t1", "evt-1", domain.ChannelWebhook, "ch-1", cfg.Target, "title", "content")
	d.Status = domain.StatusRetrying
	d.Attempts = 1
	_ = f.deliveries.Create(context.Background(), d)

	if err := f.uc.Retry(context.Background(), d.ID); err != nil {
		t.Fatalf("Retry 出错: %v", err)
	}
	if d.Status != domain.StatusFailed {
		t.Errorf("渠道已禁用时应 FAILED，得到 %s", d.Status)
	}
}

func TestRetry_TerminalDeliveryIsNoop(t *testing.T) {
	f := newDispatcherFixture([]*domain.ChannelConfig{webhookChannel("ch-1")})
	sender := &fakeSender{channel: domain.ChannelWebhook}
	f.uc.RegisterSender(sender)

	d := domain.NewDelivery("t1", "evt-1", domain.ChannelWebhook, "ch-1", "https://example.com/hook", "title", "content")
	_ = d.MarkSent(testNow)
	_ = f.deliveries.Create(context.Background(), d)

	if err := f.uc.Retry(context.Background(), d.ID); err != nil {
		t.Fatalf("Retry 出错: %v", err)
	}
	if sender.calls != 0 {
		t.Errorf("终态投递的过期重试任务不应触发发送，calls=%d", sender.calls)
	}
}

func TestRetry_ExhaustionEndsFailed(t *testing.T) {
	f := newDispatcherFixture([]*domain.ChannelConfig{webhookChannel("ch-1")})
	f.uc.RegisterSender(&fakeSender{channel: domain.ChannelWebhook, err: errors.New("still down")})

	deliveries, err := f.uc.DispatchAlert(context.Background(), "t1", "evt-1", "title", "content")
	if err != nil {
		t.Fatalf("DispatchAlert 出错: %v", err)
	}
	d := deliveries[0]

	for i := 0; i < domain.MaxAttempts-1; i++ {
		if err := f.uc.Retry(context.Background(), d.ID); err != nil {
			t.Fatalf("Retry 出错: %v", err)
		}
	}

	if d.Status != domain.StatusFailed {
		t.Errorf("重试耗尽后状态 %s，期望 FAILED", d.Status)
	}
	if d.Attempts != domain.MaxAttempts {
		t.Errorf("尝试次数 %d，期望 %d", d.Attempts, domain.MaxAttempts)
	}
	if d.NextRetryAt != nil {
		t.Errorf("FAILED 后 NextRetryAt 应为 nil")
	}
	// 前三次失败各调度一次重试，第四次失败不再调度
	if len(f.scheduler.scheduled) != domain.MaxAttempts-1 {
		t.Errorf("调度次数 %d，期望 %d", len(f.scheduler.scheduled), domain.MaxAttempts-1)
	}
}

func TestResend_ResetsAndSends(t *testing.T) {
	f := newDispatcherFixture([]*domain.ChannelConfig{webhookChannel("ch-1")})
	sender := &fakeSender{channel: domain.ChannelWebhook}
	f.uc.RegisterSender(sender)

	d := domain.NewDelivery("t1", "evt-1", domain.ChannelWebhook, "ch-1", "https://example.com/hook", "title", "content")
	for i := 0; i < domain.MaxAttempts; i++ {
		_ = d.RecordFailure(testNow, errors.New("down"))
	}
	_ = f.deliveries.Create(context.Background(), d)

	out, err := f.uc.Resend(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Resend 出错: %v", err)
	}
	if out.Status != domain.StatusSent {
		t.Errorf("状态 %s，期望 SENT", out.Status)
	}
	if out.Attempts != 1 {
		t.Errorf("重发后尝试次数 %d，期望 1", out.Attempts)
	}

	// 已成功的不允许重发
	if _, err := f.uc.Resend(context.Background(), d.ID); !errors.Is(err, domain.ErrTerminalDelivery) {
		t.Errorf("SENT 后 Resend 应返回 ErrTerminalDelivery，得到 %v", err)
	}
}
