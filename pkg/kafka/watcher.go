package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// Handler processes one event read from a topic.
type Handler func(ctx context.Context, event *Event) error

// WatcherConfig selects the topic a Watcher tails. Without a GroupID the
// watcher reads partition 0 starting at the newest offset.
type WatcherConfig struct {
	Brokers []string
	GroupID string
	Topic   string
}

// Watcher tails a storefront topic and hands each event to a Handler. Handler
// errors are logged and the event is skipped.
type Watcher struct {
	reader    *kafka.Reader
	logger    *slog.Logger
	handler   Handler
	closeOnce sync.Once
}

// NewWatcher creates a Watcher. No connection is made until Run.
func NewWatcher(cfg WatcherConfig, handler Handler, logger *slog.Logger) *Watcher {
	rc := kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	}
	if cfg.GroupID == "" {
		rc.StartOffset = kafka.LastOffset
	}

	return &Watcher{
		reader:  kafka.NewReader(rc),
		logger:  logger,
		handler: handler,
	}
}

// Run reads events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	topic := w.reader.Config().Topic
	w.logger.Info("watching topic", slog.String("topic", topic))

	for {
		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return w.Close()
			}
			w.logger.Error("failed to read message", slog.String("topic", topic), slog.String("error", err.Error()))
			continue
		}
		WatcherEventsReceived.WithLabelValues(msg.Topic).Inc()

		event, err := ParseEvent(msg.Value)
		if err != nil {
			w.logger.Warn("skipping malformed event",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
			continue
		}

		msgCtx := otel.GetTextMapPropagator().Extract(ctx, NewHeaderCarrier(&msg.Headers))
		if err := w.handler(msgCtx, event); err != nil {
			w.logger.Warn("event handler failed",
				slog.String("event_type", event.Type),
				slog.String("key", event.Key),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Close closes the watcher. It is safe to call multiple times.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.reader.Close()
	})
	return err
}
