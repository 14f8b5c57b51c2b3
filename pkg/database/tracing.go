package database

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/gaarage/storefront/pkg/database"

var slowCommandLog struct {
	mu     sync.RWMutex
	logger *slog.Logger
}

// SetSlowCommandLogger sets the logger that receives slow command warnings.
func SetSlowCommandLogger(logger *slog.Logger) {
	slowCommandLog.mu.Lock()
	defer slowCommandLog.mu.Unlock()
	slowCommandLog.logger = logger
}

func slowLogger() *slog.Logger {
	slowCommandLog.mu.RLock()
	defer slowCommandLog.mu.RUnlock()
	return slowCommandLog.logger
}

// TracingHook is a go-redis hook that opens a client span per command and
// warns about commands slower than its threshold.
type TracingHook struct {
	threshold time.Duration
}

// NewTracingHook returns a hook; a zero threshold disables slow command logs.
func NewTracingHook(threshold time.Duration) *TracingHook {
	return &TracingHook{threshold: threshold}
}

func (h *TracingHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *TracingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		ctx, end := h.start(ctx, cmd.Name(), 1)
		err := next(ctx, cmd)
		end(err)
		return err
	}
}

func (h *TracingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		names := make([]string, 0, len(cmds))
		for _, cmd := range cmds {
			names = append(names, cmd.Name())
		}
		ctx, end := h.start(ctx, "pipeline", len(cmds), attribute.String("db.redis.commands", strings.Join(names, " ")))
		err := next(ctx, cmds)
		end(err)
		return err
	}
}

func (h *TracingHook) start(ctx context.Context, operation string, size int, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "redis."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append(attrs,
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", operation),
			attribute.Int("db.redis.num_cmd", size),
		)...),
	)

	return ctx, func(err error) {
		// A miss is an answer, not a failure.
		if err != nil && !errors.Is(err, redis.Nil) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if logger := slowLogger(); h.threshold > 0 && logger != nil {
			if elapsed := time.Since(start); elapsed >= h.threshold {
				logger.WarnContext(ctx, "slow redis command",
					slog.String("operation", operation),
					slog.Duration("duration", elapsed),
				)
			}
		}
	}
}
