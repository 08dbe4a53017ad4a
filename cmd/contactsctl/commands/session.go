package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/mutcache/auth"
	"github.com/jonwraymond/mutcache/health"
	"github.com/jonwraymond/mutcache/inspect"
	"github.com/jonwraymond/mutcache/mutation"
	"github.com/jonwraymond/mutcache/observe"
	"github.com/jonwraymond/mutcache/resilience"
	"github.com/jonwraymond/mutcache/secret"
)

// shutdownTimeout bounds the teardown of a session.
const shutdownTimeout = 5 * time.Second

// session is everything one command invocation works with.
type session struct {
	cfg       Config
	logger    observe.Logger
	observer  observe.Observer
	api       API
	guard     *resilience.Executor
	breaker   *resilience.CircuitBreaker
	cache     *mutation.Cache
	inspector *inspect.Inspector
	checks    *health.Aggregator
	keys      *auth.KeyRing
}

// pinger is implemented by APIs that can probe their own reachability.
type pinger interface {
	Ping(ctx context.Context) error
}

// open wires the observer, the guarded API and a fresh mutation cache.
func (c *CLI) open(cmd *cobra.Command) (*session, error) {
	cfg, err := c.config(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()
	if err := cfg.resolveSecrets(ctx, secret.DefaultResolver()); err != nil {
		return nil, err
	}

	obsCfg, err := observe.ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	obsCfg.ServiceName = "contactsctl"
	obsCfg.Logging.Level = cfg.LogLevel
	obsCfg.Logging.Writer = cmd.ErrOrStderr()

	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observer: %w", err)
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, fmt.Errorf("init middleware: %w", err)
	}
	logger := obs.Logger()

	api, err := c.newAPI(cfg, logger)
	if err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures: cfg.MaxFailures,
		OnStateChange: func(from, to resilience.CircuitState) {
			logger.Warn(ctx, "contacts circuit changed",
				observe.Field{Key: "from", Value: from.String()},
				observe.Field{Key: "to", Value: to.String()},
			)
		},
	})
	bulkhead := resilience.NewBulkhead(resilience.BulkheadConfig{
		MaxConcurrent: cfg.Concurrency,
		MaxWait:       cfg.Timeout,
	})
	guard := resilience.NewExecutor(
		resilience.WithBulkhead(bulkhead),
		resilience.WithCircuitBreaker(breaker),
		resilience.WithTimeout(cfg.Timeout),
	)

	cache := mutation.New(mutation.WithLogger(logger), mutation.WithMiddleware(mw))

	checks := health.NewAggregator(health.AggregatorConfig{Timeout: cfg.Timeout})
	checks.Register("circuit", health.Circuit(breaker))
	checks.Register("bulkhead", health.Bulkhead(bulkhead))
	checks.Register("in-flight", health.InFlight(cache, cfg.InFlightLimit))
	if p, ok := api.(pinger); ok {
		checks.Register("contacts-api", health.Ping(p.Ping))
	}

	return &session{
		cfg:       cfg,
		logger:    logger,
		observer:  obs,
		api:       api,
		guard:     guard,
		breaker:   breaker,
		cache:     cache,
		inspector: inspect.New(cache, inspect.WithLogger(logger)),
		checks:    checks,
		keys:      auth.KeyRingFromSecrets(cfg.APIKeys),
	}, nil
}

// close drains detached mutations and flushes telemetry.
func (s *session) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.inspector.Close()
	return errors.Join(s.cache.Close(ctx), s.observer.Shutdown(ctx))
}
