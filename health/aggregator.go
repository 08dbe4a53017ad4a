package health

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// DefaultCheckTimeout bounds CheckAll when no timeout is configured.
const DefaultCheckTimeout = 5 * time.Second

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout is the maximum time to wait for all checks.
	// Default: 5 seconds
	Timeout time.Duration
}

// NamedResult is the result of one registered check.
type NamedResult struct {
	Name string
	Result
}

// Aggregator runs named checkers and combines their results.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Ordering: results follow registration order.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	names    []string
	checkers map[string]Checker
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultCheckTimeout
	}
	return &Aggregator{config: cfg, checkers: make(map[string]Checker)}
}

// Register adds or replaces the checker called name.
func (a *Aggregator) Register(name string, checker Checker) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.names = append(a.names, name)
	}
	a.checkers[name] = checker
}

// Unregister removes the checker called name.
func (a *Aggregator) Unregister(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.checkers[name]; !ok {
		return false
	}
	delete(a.checkers, name)
	a.names = slices.DeleteFunc(a.names, func(n string) bool { return n == name })
	return true
}

// Names returns the registered names in registration order.
func (a *Aggregator) Names() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.names)
}

// Check runs a single named check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	checker, ok := a.checkers[name]
	a.mu.RUnlock()
	if !ok {
		return Result{}, ErrCheckerNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return run(ctx, checker), nil
}

// CheckAll runs every check concurrently under the configured timeout.
func (a *Aggregator) CheckAll(ctx context.Context) []NamedResult {
	a.mu.RLock()
	results := make([]NamedResult, len(a.names))
	checkers := make([]Checker, len(a.names))
	for i, name := range a.names {
		results[i].Name = name
		checkers[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	var g errgroup.Group
	for i, checker := range checkers {
		g.Go(func() error {
			results[i].Result = run(ctx, checker)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Overall folds results into one status: unhealthy if any is unhealthy,
// degraded if any is degraded, healthy otherwise (including no results).
func Overall(results []NamedResult) Status {
	status := StatusHealthy
	for _, r := range results {
		status = max(status, r.Status)
	}
	return status
}

// run executes checker, abandoning it when ctx ends first.
func run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	done := make(chan Result, 1)
	go func() { done <- checker.Check(ctx) }()

	var r Result
	select {
	case r = <-done:
	case <-ctx.Done():
		r = Unhealthy("check timed out", ErrCheckTimeout)
	}
	r.Duration = time.Since(start)
	r.Timestamp = start
	return r
}
