// Package catalog drives product browsing: paginated category listings,
// debounced search and zone/category lookups.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/pkg/debounce"
	"github.com/gaarage/storefront/pkg/tracing"
)

var (
	// ErrFetchInFlight is returned when a page is requested while another
	// fetch of the same query is still running. The request is dropped.
	ErrFetchInFlight = errors.New("catalog: fetch already in flight")

	// ErrNoQuery is returned when no category and zone were selected.
	ErrNoQuery = errors.New("catalog: no category selected")

	// ErrStale is returned for a response that arrived after the query
	// changed or the fetcher was closed. Its result is discarded.
	ErrStale = errors.New("catalog: stale response discarded")

	// ErrClosed is returned by a Fetcher or Searcher after Close.
	ErrClosed = errors.New("catalog: closed")
)

// PageSource fetches one page of a category listing. *api.Client implements it.
type PageSource interface {
	ProductPage(ctx context.Context, categoryID, zoneID int64, page int) (domain.ProductPage, error)
}

// Status is the lifecycle phase of a Fetcher.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoadingMore
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoadingMore:
		return "loading-more"
	case StatusReady:
		return "ready"
	default:
		return "idle"
	}
}

// State is a snapshot of a Fetcher. Items holds the current page only.
type State struct {
	Status     Status
	CategoryID int64
	ZoneID     int64
	Items      []domain.Product
	Page       int
	LastPage   int
	Total      int
	Err        error
}

// HasNext reports whether a later page exists.
func (s State) HasNext() bool {
	return s.Page < s.LastPage
}

// HasPrev reports whether an earlier page exists.
func (s State) HasPrev() bool {
	return s.Page > 1
}

// Fetcher holds one page of products for a category and zone. Responses are
// tagged with the generation current when the request started; SetQuery and
// Close advance the generation so older responses are dropped.
type Fetcher struct {
	source   PageSource
	debounce *debounce.Debouncer
	logger   *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu          sync.Mutex
	state       State
	generation  uint64
	inFlight    bool
	cancelFetch context.CancelFunc
	closed      bool
	subscribers map[int]func(State)
	nextSub     int
}

// NewFetcher creates an idle Fetcher. window is the debounce window of
// RequestPage; a non-positive window selects debounce.DefaultWindow.
func NewFetcher(source PageSource, window time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	base, cancel := context.WithCancel(context.Background())

	return &Fetcher{
		source:      source,
		debounce:    debounce.New(window),
		logger:      logger,
		base:        base,
		cancelBase:  cancel,
		state:       State{Status: StatusIdle, Page: 1, LastPage: 1},
		subscribers: make(map[int]func(State)),
	}
}

// State returns a snapshot of the current state.
func (f *Fetcher) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Subscribe registers fn to receive every state change and returns a func
// that removes it. fn must not call back into the Fetcher synchronously.
func (f *Fetcher) Subscribe(fn func(State)) (unsubscribe func()) {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.subscribers[id] = fn
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
	}
}

// SetQuery switches to categoryID in zoneID and loads page 1 right away. A
// pending debounced request and the fetch in flight are abandoned.
func (f *Fetcher) SetQuery(ctx context.Context, categoryID, zoneID int64) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	f.debounce.Cancel()
	f.generation++
	if f.cancelFetch != nil {
		f.cancelFetch()
		f.cancelFetch = nil
	}
	f.inFlight = false
	f.state = State{
		Status:     StatusIdle,
		CategoryID: categoryID,
		ZoneID:     zoneID,
		Page:       1,
		LastPage:   1,
	}
	f.mu.Unlock()

	return f.LoadPage(ctx, 1)
}

// LoadPage fetches page n of the current query. On failure the previous
// items are kept and the error is recorded in the state and returned.
func (f *Fetcher) LoadPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	f.mu.Lock()
	switch {
	case f.closed:
		f.mu.Unlock()
		return ErrClosed
	case f.state.CategoryID == 0 || f.state.ZoneID == 0:
		f.mu.Unlock()
		return ErrNoQuery
	case f.inFlight:
		f.mu.Unlock()
		return ErrFetchInFlight
	}

	gen := f.generation
	categoryID, zoneID := f.state.CategoryID, f.state.ZoneID
	fetchCtx, cancel := context.WithCancel(ctx)
	f.inFlight = true
	f.cancelFetch = cancel
	if n == 1 {
		f.state.Status = StatusLoading
	} else {
		f.state.Status = StatusLoadingMore
	}
	f.notifyLocked()
	f.mu.Unlock()

	fetchCtx, span := tracing.Start(fetchCtx, "catalog", "load_page",
		attribute.Int64("category_id", categoryID),
		attribute.Int64("zone_id", zoneID),
		attribute.Int("page", n),
	)
	page, err := f.source.ProductPage(fetchCtx, categoryID, zoneID, n)
	tracing.End(span, err)
	cancel()

	f.mu.Lock()
	defer f.mu.Unlock()

	if gen != f.generation {
		f.logger.DebugContext(ctx, "discarding stale product page",
			slog.Int64("category_id", categoryID),
			slog.Int("page", n),
		)
		return ErrStale
	}

	f.inFlight = false
	f.cancelFetch = nil
	f.state.Status = StatusReady

	if err != nil {
		f.state.Err = err
		f.notifyLocked()
		f.logger.WarnContext(ctx, "product page fetch failed",
			slog.Int64("category_id", categoryID),
			slog.Int64("zone_id", zoneID),
			slog.Int("page", n),
			slog.String("error", err.Error()),
		)
		return err
	}

	f.state.Items = page.Items
	f.state.Page = page.Page
	f.state.LastPage = page.LastPage
	f.state.Total = page.Total
	f.state.Err = nil
	f.notifyLocked()
	return nil
}

// RequestPage schedules a fetch of page n after the debounce window. Each
// call restarts the window, so only the last requested page is fetched.
func (f *Fetcher) RequestPage(n int) {
	f.debounce.Trigger(func() {
		if err := f.LoadPage(f.base, n); errors.Is(err, ErrFetchInFlight) {
			f.logger.Debug("page request dropped, fetch in flight", slog.Int("page", n))
		}
	})
}

// NextPage requests the page after the current one, if any.
func (f *Fetcher) NextPage() bool {
	s := f.State()
	if !s.HasNext() {
		return false
	}
	f.RequestPage(s.Page + 1)
	return true
}

// PrevPage requests the page before the current one, if any.
func (f *Fetcher) PrevPage() bool {
	s := f.State()
	if !s.HasPrev() {
		return false
	}
	f.RequestPage(s.Page - 1)
	return true
}

// Close cancels the pending debounced request and the fetch in flight.
// Responses arriving afterwards are discarded.
func (f *Fetcher) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	f.generation++
	f.debounce.Stop()
	if f.cancelFetch != nil {
		f.cancelFetch()
		f.cancelFetch = nil
	}
	f.cancelBase()
	f.subscribers = map[int]func(State){}
}

// snapshot must be called with f.mu held.
func (f *Fetcher) snapshot() State {
	s := f.state
	s.Items = append([]domain.Product(nil), f.state.Items...)
	return s
}

// notifyLocked must be called with f.mu held; subscribers run under the lock.
func (f *Fetcher) notifyLocked() {
	if len(f.subscribers) == 0 {
		return
	}
	s := f.snapshot()
	for _, fn := range f.subscribers {
		fn(s)
	}
}
