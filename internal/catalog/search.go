package catalog

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gaarage/storefront/internal/domain"
	"github.com/gaarage/storefront/pkg/debounce"
)

// SearchSource searches products by name. *api.Client implements it.
type SearchSource interface {
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
}

// SearchState is a snapshot of a Searcher.
type SearchState struct {
	Term    string
	Results []domain.Product
	Loading bool
	Err     error
}

// Searcher runs the latest search term after a quiet period. Only the
// response to the most recent term is kept.
type Searcher struct {
	source   SearchSource
	debounce *debounce.Debouncer
	logger   *slog.Logger

	base       context.Context
	cancelBase context.CancelFunc

	mu         sync.Mutex
	state      SearchState
	generation uint64
	closed     bool
	onChange   func(SearchState)
}

// NewSearcher creates a Searcher debouncing terms over window.
func NewSearcher(source SearchSource, window time.Duration, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	base, cancel := context.WithCancel(context.Background())

	return &Searcher{
		source:     source,
		debounce:   debounce.New(window),
		logger:     logger,
		base:       base,
		cancelBase: cancel,
	}
}

// OnChange sets the function notified of every state change.
func (s *Searcher) OnChange(fn func(SearchState)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// State returns a snapshot of the current state.
func (s *Searcher) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Search schedules a search for term. A blank term clears the results
// without a request. After Close it does nothing.
func (s *Searcher) Search(term string) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	s.state.Term = term
	s.state.Err = nil

	if term == "" {
		s.debounce.Cancel()
		s.state.Results = nil
		s.state.Loading = false
		s.notifyLocked()
		s.mu.Unlock()
		return
	}

	s.state.Loading = true
	s.notifyLocked()
	s.mu.Unlock()

	s.debounce.Trigger(func() {
		_, _ = s.run(s.base, gen, term)
	})
}

// Query searches term immediately and returns the results. It returns
// ErrClosed after Close.
func (s *Searcher) Query(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	s.debounce.Cancel()
	s.generation++
	gen := s.generation
	s.state = SearchState{Term: term, Loading: term != ""}
	s.mu.Unlock()

	if term == "" {
		return []domain.Product{}, nil
	}
	return s.run(ctx, gen, term)
}

func (s *Searcher) run(ctx context.Context, gen uint64, term string) ([]domain.Product, error) {
	results, err := s.source.SearchProducts(ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.generation {
		return results, err
	}

	s.state.Loading = false
	if err != nil {
		s.state.Err = err
		s.logger.WarnContext(ctx, "product search failed",
			slog.String("term", term),
			slog.String("error", err.Error()),
		)
	} else {
		s.state.Results = results
		s.state.Err = nil
	}
	s.notifyLocked()
	return results, err
}

// Close cancels the pending search and drops responses still in flight.
func (s *Searcher) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.state.Loading = false
	s.debounce.Stop()
	s.cancelBase()
	s.onChange = nil
}

func (s *Searcher) snapshot() SearchState {
	st := s.state
	st.Results = append([]domain.Product(nil), s.state.Results...)
	return st
}

func (s *Searcher) notifyLocked() {
	if s.onChange != nil {
		s.onChange(s.snapshot())
	}
}
