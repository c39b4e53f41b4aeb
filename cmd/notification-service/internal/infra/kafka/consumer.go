package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/segmentio/kafka-go"

	"costwarden/cmd/notification-service/internal/biz"
	"costwarden/pkg/events"
)

// Consumer 订阅事件总线并把告警事件交给分发用例。
type Consumer struct {
	reader     *kafka.Reader
	dispatcher *biz.DispatcherUsecase
	log        *log.Helper
}

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewConsumer 创建消费者
func NewConsumer(config ConsumerConfig, dispatcher *biz.DispatcherUsecase, logger log.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: config.Brokers,
		GroupID: config.GroupID,
		Topic:   config.Topic,
	})

	return &Consumer{
		reader:     reader,
		dispatcher: dispatcher,
		log:        log.NewHelper(logger),
	}
}

// Run 消费循环。处理失败不提交位点，依靠至少一次投递加投递记录
// 幂等（同一告警事件的重复分发由渠道侧去重，不在这里保证恰好一次）。
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("starting kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.log.Info("stopping kafka consumer")
			return c.reader.Close()
		default:
			message, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.log.Errorf("failed to fetch message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, message); err != nil {
				c.log.Errorf("failed to process message at offset %d: %v", message.Offset, err)
				continue
			}

			if err := c.reader.CommitMessages(ctx, message); err != nil {
				c.log.Errorf("failed to commit message: %v", err)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, message kafka.Message) error {
	var envelope events.Envelope
	if err := json.Unmarshal(message.Value, &envelope); err != nil {
		// 毒丸消息记日志后跳过，不阻塞分区
		c.log.Warnf("skipping malformed message at offset %d: %v", message.Offset, err)
		return nil
	}

	switch envelope.Type {
	case events.EventAlertTriggered:
		return c.handleAlertTriggered(ctx, &envelope)
	case events.EventCostEventCreated, events.EventRequestCompleted:
		// 账本事件目前只消费不分发
		return nil
	default:
		c.log.Debugf("ignoring event type %s", envelope.Type)
		return nil
	}
}

func (c *Consumer) handleAlertTriggered(ctx context.Context, envelope *events.Envelope) error {
	alertEventID := payloadString(envelope.Payload, "alert_event_id")
	if alertEventID == "" {
		c.log.Warnf("alert event %s missing alert_event_id, skipping", envelope.EventID)
		return nil
	}

	severity := payloadString(envelope.Payload, "severity")
	ruleType := payloadString(envelope.Payload, "rule_type")
	message := payloadString(envelope.Payload, "message")

	title := fmt.Sprintf("[%s] %s", severity, strings.ReplaceAll(ruleType, "_", " "))

	_, err := c.dispatcher.DispatchAlert(ctx, envelope.TenantID, alertEventID, title, message)
	return err
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
