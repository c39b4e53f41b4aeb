package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

// Publisher 事件发布器接口
type Publisher interface {
	// Publish 发布事件
	Publish(ctx context.Context, envelope *Envelope) error

	// Close 关闭发布器
	Close() error
}

// KafkaPublisher Kafka 事件发布器
type KafkaPublisher struct {
	producer sarama.SyncProducer
	config   *PublisherConfig
}

// PublisherConfig 发布器配置
type PublisherConfig struct {
	Brokers       []string
	Topic         string
	RetryMax      int
	RequiredAcks  sarama.RequiredAcks
	Compression   sarama.CompressionCodec
	FlushMessages int
}

// DefaultPublisherConfig 默认配置
func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		Brokers:       []string{"localhost:9092"},
		Topic:         "costwarden.events",
		RetryMax:      3,
		RequiredAcks:  sarama.WaitForLocal,
		Compression:   sarama.CompressionSnappy,
		FlushMessages: 100,
	}
}

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(config *PublisherConfig) (*KafkaPublisher, error) {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.Return.Successes = true
	kafkaConfig.Producer.Return.Errors = true
	kafkaConfig.Producer.RequiredAcks = config.RequiredAcks
	kafkaConfig.Producer.Compression = config.Compression
	kafkaConfig.Producer.Retry.Max = config.RetryMax
	kafkaConfig.Producer.Flush.Messages = config.FlushMessages
	kafkaConfig.Version = sarama.V3_6_0_0

	producer, err := sarama.NewSyncProducer(config.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		config:   config,
	}, nil
}

// Publish 发布事件。消息按租户分区，保证同一租户内有序。
func (p *KafkaPublisher) Publish(ctx context.Context, envelope *Envelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.config.Topic,
		Key:   sarama.StringEncoder(envelope.TenantID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(envelope.Type)},
		},
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", envelope.Type, err)
	}

	return nil
}

// Close 关闭发布器
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
