// Package cart holds the shopper's cart in memory and persists it per identity.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/internal/repository"
	apperrors "github.com/gaarage/storefront/pkg/errors"
	"github.com/gaarage/storefront/pkg/logger"
)

// EventPublisher receives cart activity. *event.Producer implements it.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, identity domain.Identity, lines []domain.CartLine) error
	PublishCartCleared(ctx context.Context, identity domain.Identity) error
}

type writeKind int

const (
	writeSave writeKind = iota
	writeDelete
	writeFlush
)

// write is one queued side effect. Snapshots are captured at mutation time so
// the writer stores them in mutation order.
type write struct {
	ctx      context.Context
	kind     writeKind
	identity domain.Identity
	lines    []domain.CartLine
	done     chan struct{}
}

const queueSize = 64

// Aggregator is the cart of the active identity. Mutations apply to memory
// under a lock and never fail; persistence happens on a single writer
// goroutine that stores full snapshots in mutation order.
type Aggregator struct {
	store  repository.CartRepository
	events EventPublisher
	logger *slog.Logger

	mu       sync.Mutex
	identity domain.Identity
	cart     domain.Cart
	closed   bool

	writes  chan write
	stopped chan struct{}
}

// New creates an empty guest cart and starts its writer. Call Load to read
// the persisted guest snapshot and Close to stop the writer. events may be nil.
func New(store repository.CartRepository, events EventPublisher, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &Aggregator{
		store:    store,
		events:   events,
		logger:   logger,
		identity: domain.Guest,
		writes:   make(chan write, queueSize),
		stopped:  make(chan struct{}),
	}
	go a.run()
	return a
}

// Load replaces the in-memory cart with the persisted snapshot of the active
// identity. A missing or unreadable snapshot leaves the cart empty.
func (a *Aggregator) Load(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reload(ctx)
}

// Identity returns the active identity.
func (a *Aggregator) Identity() domain.Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.identity
}

// Lines returns a copy of the current lines in insertion order.
func (a *Aggregator) Lines() []domain.CartLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Clone()
}

// Total returns Σ quantity × unit price of the current lines.
func (a *Aggregator) Total() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Total()
}

// ItemCount returns Σ quantity of the current lines.
func (a *Aggregator) ItemCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.ItemCount()
}

// AddItem increments the line of p, or appends a new quantity-1 line with
// p's name, price and image.
func (a *Aggregator) AddItem(ctx context.Context, p domain.Product) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.cart.FindLine(p.ID); i >= 0 {
		a.cart.Lines[i].Quantity++
	} else {
		a.cart.Lines = append(a.cart.Lines, domain.LineFromProduct(p))
	}
	a.enqueueSave(ctx)
}

// RemoveItem deletes the line of productID. An absent id leaves the lines
// unchanged.
func (a *Aggregator) RemoveItem(ctx context.Context, productID int64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.cart.FindLine(productID); i >= 0 {
		lines := make([]domain.CartLine, 0, len(a.cart.Lines)-1)
		lines = append(lines, a.cart.Lines[:i]...)
		a.cart.Lines = append(lines, a.cart.Lines[i+1:]...)
	}
	a.enqueueSave(ctx)
}

// UpdateQuantity sets the quantity of productID. A quantity below 1 is
// ignored and nothing is persisted; removal goes through RemoveItem.
func (a *Aggregator) UpdateQuantity(ctx context.Context, productID int64, quantity int) {
	if quantity < 1 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if i := a.cart.FindLine(productID); i >= 0 {
		a.cart.Lines[i].Quantity = quantity
	}
	a.enqueueSave(ctx)
}

// Clear empties the cart and deletes the snapshot of the active identity.
func (a *Aggregator) Clear(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cart.Lines = nil
	a.enqueue(write{ctx: ctx, kind: writeDelete, identity: a.identity})
}

// SwitchIdentity makes identity active. When it differs from the current one
// the in-memory lines are discarded and the snapshot of identity is loaded;
// guest lines are never merged into a user cart. Writes queued for the
// previous identity complete first.
func (a *Aggregator) SwitchIdentity(ctx context.Context, identity domain.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if identity == a.identity {
		return
	}

	previous := a.identity
	a.identity = identity
	a.cart = domain.Cart{}

	if done := a.enqueue(write{ctx: ctx, kind: writeFlush}); done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}
	a.reload(ctx)

	logger.WithContext(ctx, a.logger).InfoContext(ctx, "cart identity switched",
		slog.String("from", previous.String()),
		slog.String("to", identity.String()),
		slog.Int("item_count", a.cart.ItemCount()),
	)
}

// Flush blocks until every write queued before the call has completed.
func (a *Aggregator) Flush(ctx context.Context) error {
	a.mu.Lock()
	done := a.enqueue(write{ctx: ctx, kind: writeFlush})
	a.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains the queued writes and stops the writer. Later mutations only
// change memory.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.stopped
		return
	}
	a.closed = true
	close(a.writes)
	a.mu.Unlock()

	<-a.stopped
}

// reload must be called with a.mu held.
func (a *Aggregator) reload(ctx context.Context) {
	lines, err := a.store.Load(ctx, a.identity)
	switch {
	case err == nil:
		a.cart = domain.Cart{Lines: lines}
	case errors.Is(err, apperrors.ErrNotFound):
		a.cart = domain.Cart{}
	default:
		a.cart = domain.Cart{}
		a.reportFailure(ctx, opLoad, a.identity, err)
	}
}

// enqueueSave must be called with a.mu held.
func (a *Aggregator) enqueueSave(ctx context.Context) {
	a.enqueue(write{ctx: ctx, kind: writeSave, identity: a.identity, lines: a.cart.Clone()})
}

// enqueue must be called with a.mu held. It returns nil once the aggregator
// is closed, otherwise the completion channel of w.
func (a *Aggregator) enqueue(w write) chan struct{} {
	if a.closed {
		a.logger.DebugContext(w.ctx, "cart closed, write skipped")
		return nil
	}
	w.ctx = context.WithoutCancel(w.ctx)
	w.done = make(chan struct{})
	queuedWrites.Inc()
	a.writes <- w
	return w.done
}

func (a *Aggregator) run() {
	defer close(a.stopped)

	for w := range a.writes {
		queuedWrites.Dec()
		a.apply(w)
		close(w.done)
	}
}

func (a *Aggregator) apply(w write) {
	switch w.kind {
	case writeSave:
		if err := a.store.Save(w.ctx, w.identity, w.lines); err != nil {
			a.reportFailure(w.ctx, opSave, w.identity, err)
		}
		a.publish(w.ctx, func(ctx context.Context) error {
			return a.events.PublishCartUpdated(ctx, w.identity, w.lines)
		})
	case writeDelete:
		if err := a.store.Delete(w.ctx, w.identity); err != nil {
			a.reportFailure(w.ctx, opDelete, w.identity, err)
		}
		a.publish(w.ctx, func(ctx context.Context) error {
			return a.events.PublishCartCleared(ctx, w.identity)
		})
	case writeFlush:
	}
}

func (a *Aggregator) publish(ctx context.Context, fn func(context.Context) error) {
	if a.events == nil {
		return
	}
	if err := fn(ctx); err != nil {
		logger.WithContext(ctx, a.logger).WarnContext(ctx, "failed to publish cart event",
			slog.String("error", err.Error()),
		)
	}
}

func (a *Aggregator) reportFailure(ctx context.Context, op string, identity domain.Identity, err error) {
	PersistenceFailures.WithLabelValues(op).Inc()
	logger.WithContext(ctx, a.logger).ErrorContext(ctx, "cart persistence failed",
		slog.String("op", op),
		slog.String("key", identity.CartKey()),
		slog.String("error", err.Error()),
	)
}
