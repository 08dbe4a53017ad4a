package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkBulkhead_Execute measures the uncontended path.
func BenchmarkBulkhead_Execute(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 100})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bh.Execute(ctx, succeed)
	}
}

// BenchmarkBulkhead_Parallel measures contention on the slot channel.
func BenchmarkBulkhead_Parallel(b *testing.B) {
	bh := NewBulkhead(BulkheadConfig{MaxConcurrent: 8, MaxWait: time.Second})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bh.Execute(ctx, succeed)
		}
	})
}

// BenchmarkCircuitBreaker_Closed measures the closed-circuit path.
func BenchmarkCircuitBreaker_Closed(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, succeed)
	}
}

// BenchmarkCircuitBreaker_Open measures refusals.
func BenchmarkCircuitBreaker_Open(b *testing.B) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	ctx := context.Background()
	_ = cb.Execute(ctx, fail)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, succeed)
	}
}

// BenchmarkExecutor_AllGuards measures a fully composed guard.
func BenchmarkExecutor_AllGuards(b *testing.B) {
	e := NewExecutor(
		WithBulkhead(NewBulkhead(BulkheadConfig{MaxConcurrent: 100})),
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{})),
		WithTimeout(time.Second),
	)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Execute(ctx, succeed)
	}
}
