// Package reachability answers "is the storefront backend reachable right now"
// before a request is issued, so that offline failures are reported as
// connectivity errors instead of request failures.
package reachability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	apperrors "github.com/gaarage/storefront/pkg/errors"
)

// Checker probes one network path.
type Checker func(ctx context.Context) error

// Status represents the reachability of a path.
type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Report is the JSON document served by Handler.
type Report struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the result of a single probe.
type CheckResult struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Prober runs the registered checkers. The network counts as reachable when at
// least one checker succeeds, or when no checker is registered.
type Prober struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	timeout  time.Duration
}

// NewProber creates a Prober whose probes share a timeout budget.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{
		checkers: make(map[string]Checker),
		timeout:  timeout,
	}
}

// Register adds a named checker.
func (p *Prober) Register(name string, checker Checker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkers[name] = checker
}

func (p *Prober) snapshot() map[string]Checker {
	p.mu.RLock()
	defer p.mu.RUnlock()
	checkers := make(map[string]Checker, len(p.checkers))
	for k, v := range p.checkers {
		checkers[k] = v
	}
	return checkers
}

// Probe runs every checker and returns the per-path report.
func (p *Prober) Probe(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	checkers := p.snapshot()
	report := Report{
		Status:    StatusUp,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(checkers)),
	}
	if len(checkers) == 0 {
		return report
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, checker := range checkers {
		wg.Add(1)
		go func(name string, checker Checker) {
			defer wg.Done()
			res := CheckResult{Status: StatusUp}
			if err := checker(ctx); err != nil {
				res = CheckResult{Status: StatusDown, Error: err.Error()}
			}
			mu.Lock()
			report.Checks[name] = res
			mu.Unlock()
		}(name, checker)
	}
	wg.Wait()

	report.Status = StatusDown
	for _, res := range report.Checks {
		if res.Status == StatusUp {
			report.Status = StatusUp
			break
		}
	}
	return report
}

// Check returns nil when the network is reachable and a connectivity error
// otherwise.
func (p *Prober) Check(ctx context.Context) error {
	report := p.Probe(ctx)
	if report.Status == StatusUp {
		return nil
	}

	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)

	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %s", name, report.Checks[name].Error))
	}
	return apperrors.Connectivity(errors.Join(errs...))
}

// Handler serves the last probe as JSON: 200 when reachable, 503 otherwise.
func (p *Prober) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := p.Probe(r.Context())

		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}

// TCPChecker dials addr (host:port).
func TCPChecker(addr string) Checker {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		_ = conn.Close()
		return nil
	}
}

// URLChecker dials the host of rawURL, defaulting the port from its scheme.
func URLChecker(rawURL string) (Checker, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("url %q has no host", rawURL)
	}

	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return TCPChecker(net.JoinHostPort(u.Hostname(), port)), nil
}
