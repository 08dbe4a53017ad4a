package observe

import "errors"

// Errors returned by Config.Validate and ConfigFromEnv. Each names the
// MUTCACHE_* variable that feeds the offending field.
var (
	ErrMissingServiceName     = errors.New("observe: service name is empty (MUTCACHE_SERVICE_NAME)")
	ErrInvalidSamplePct       = errors.New("observe: tracing sample ratio outside [0, 1] (MUTCACHE_TRACING_SAMPLE_PCT)")
	ErrInvalidTracingExporter = errors.New("observe: unknown tracing exporter (MUTCACHE_TRACING_EXPORTER)")
	ErrInvalidMetricsExporter = errors.New("observe: unknown metrics exporter (MUTCACHE_METRICS_EXPORTER)")
	ErrInvalidLogLevel        = errors.New("observe: unknown log level (MUTCACHE_LOG_LEVEL)")
)

// ErrNilObserver is returned by MiddlewareFromObserver for a nil observer.
var ErrNilObserver = errors.New("observe: observer is nil")
