package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/awsl-project/ranstat/internal/domain"
)

const DefaultAMQPExchange = "ranstat.events"

type AMQPConfig struct {
	URL      string
	Exchange string
}

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSink 发布到 topic exchange，routing key 为 import.<feed>
type AMQPSink struct {
	conn     *amqp.Connection
	ch       amqpPublisher
	exchange string
}

func NewAMQPSink(cfg AMQPConfig) (*AMQPSink, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("amqp: url is required")
	}
	exchange := strings.TrimSpace(cfg.Exchange)
	if exchange == "" {
		exchange = DefaultAMQPExchange
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange %s: %w", exchange, err)
	}
	return &AMQPSink{conn: conn, ch: ch, exchange: exchange}, nil
}

// RoutingKey returns the routing key an event is published with.
func RoutingKey(ev domain.ImportEvent) string {
	return "import." + string(ev.Feed)
}

func (s *AMQPSink) Publish(ctx context.Context, ev domain.ImportEvent) error {
	payload, err := Marshal(ev)
	if err != nil {
		return fmt.Errorf("amqp: encode event: %w", err)
	}
	err = s.ch.PublishWithContext(ctx, s.exchange, RoutingKey(ev), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.BatchID,
		Type:         string(ev.Type),
		Timestamp:    ev.Timestamp,
		Body:         payload,
	})
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", s.exchange, err)
	}
	return nil
}

func (s *AMQPSink) Close() error {
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
