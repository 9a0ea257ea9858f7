// Package events publishes import lifecycle events to external brokers.
package events

import (
	"context"
	"errors"
	"log"

	"github.com/bytedance/sonic"

	"github.com/awsl-project/ranstat/internal/domain"
)

// Sink receives import events. Publish must be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, ev domain.ImportEvent) error
	Close() error
}

// Marshal 事件负载统一用 sonic 编码
func Marshal(ev domain.ImportEvent) ([]byte, error) {
	return sonic.Marshal(ev)
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(data []byte, ev *domain.ImportEvent) error {
	return sonic.Unmarshal(data, ev)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, domain.ImportEvent) error { return nil }
func (Nop) Close() error                                      { return nil }

// Multi fans an event out to every sink. One failing sink does not stop the others.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev domain.ImportEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Config 事件总线配置，Brokers 和 AMQPURL 都为空时不发布
type Config struct {
	KafkaBrokers []string `toml:"kafka_brokers"`
	KafkaTopic   string   `toml:"kafka_topic"`
	AMQPURL      string   `toml:"amqp_url"`
	AMQPExchange string   `toml:"amqp_exchange"`
	// broker 发布失败后的重试次数，0 不重试
	PublishRetries int `toml:"publish_retries"`
}

// New builds the sinks enabled in cfg. Extra sinks (the WebSocket hub) are
// appended as-is. Broker connection failures are returned.
func New(cfg Config, extra ...Sink) (Sink, error) {
	var sinks Multi
	if len(cfg.KafkaBrokers) > 0 {
		k, err := NewKafkaSink(KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			return nil, err
		}
		log.Printf("[Events] Kafka sink enabled (topic %s)", k.topic)
		sinks = append(sinks, WithRetry(k, cfg.PublishRetries, nil))
	}
	if cfg.AMQPURL != "" {
		a, err := NewAMQPSink(AMQPConfig{URL: cfg.AMQPURL, Exchange: cfg.AMQPExchange})
		if err != nil {
			_ = sinks.Close()
			return nil, err
		}
		log.Printf("[Events] AMQP sink enabled (exchange %s)", a.exchange)
		sinks = append(sinks, WithRetry(a, cfg.PublishRetries, nil))
	}
	sinks = append(sinks, extra...)

	switch len(sinks) {
	case 0:
		return Nop{}, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}
