package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// ProducerConfig tunes the kafka-go writer behind a Producer.
type ProducerConfig struct {
	Brokers []string

	// BatchTimeout caps how long a message waits for companions. A storefront
	// session emits a handful of events, so this stays small.
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// DefaultProducerConfig returns a synchronous writer configuration for brokers.
func DefaultProducerConfig(brokers []string) ProducerConfig {
	return ProducerConfig{
		Brokers:      brokers,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes storefront events. Messages are keyed by Event.Key so
// that the events of one cart identity stay ordered within a partition.
type Producer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewProducer creates a Producer. Broker connections are opened on the first
// publish.
func NewProducer(cfg ProducerConfig, logger *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, logger)
}

func newProducer(w messageWriter, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Producer{writer: w, logger: logger}
}

// Publish writes event to topic and waits for the leader to acknowledge it.
func (p *Producer) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := Message(ctx, topic, event)
	if err != nil {
		return err
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, msg)
	ProducerPublishDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	if err != nil {
		ProducerPublishErrors.WithLabelValues(topic).Inc()
		p.logger.ErrorContext(ctx, "event publish failed",
			slog.String("topic", topic),
			slog.String("event_id", event.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish %s to %s: %w", event.Type, topic, err)
	}

	ProducerMessagesPublished.WithLabelValues(topic).Inc()
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("event_id", event.ID),
		slog.String("key", event.Key),
	)
	return nil
}

// Close flushes pending messages and closes broker connections.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Message encodes event for topic. The event type, source and correlation id
// travel as headers next to the trace context of ctx.
func Message(ctx context.Context, topic string, event *Event) (kafka.Message, error) {
	value, err := event.Marshal()
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	headers := make([]kafka.Header, 0, 5)
	headers = append(headers,
		kafka.Header{Key: "event_type", Value: []byte(event.Type)},
		kafka.Header{Key: "source", Value: []byte(event.Source)},
	)
	if event.CorrelationID != "" {
		headers = append(headers, kafka.Header{Key: "correlation_id", Value: []byte(event.CorrelationID)})
	}
	otel.GetTextMapPropagator().Inject(ctx, NewHeaderCarrier(&headers))

	return kafka.Message{
		Topic:   topic,
		Key:     []byte(event.Key),
		Value:   value,
		Headers: headers,
	}, nil
}

// ErrNoBrokers is returned by PingBrokers for an empty broker list.
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// PingBrokers returns nil as soon as one of brokers answers a metadata
// request, and the joined dial errors otherwise.
func PingBrokers(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return ErrNoBrokers
	}

	var errs []error
	for _, addr := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", addr)
		if err == nil {
			_, err = conn.Brokers()
			_ = conn.Close()
		}
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", addr, err))
	}
	return fmt.Errorf("kafka: brokers unreachable: %w", errors.Join(errs...))
}
