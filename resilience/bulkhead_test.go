package resilience

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewBulkhead_Defaults(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{})
	if got := b.Stats().MaxConcurrent; got != 10 {
		t.Errorf("MaxConcurrent = %d, want 10", got)
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	for i := range 2 {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
	}
	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() when full = %v, want ErrBulkheadFull", err)
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after Release = %v", err)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		b.Release()
	}()

	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() should get the released slot, got %v", err)
	}
}

func TestBulkhead_WaitExpires(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() = %v, want ErrBulkheadFull", err)
	}
	if got := b.Stats().Rejected; got != 1 {
		t.Errorf("Rejected = %d, want 1", got)
	}
}

func TestBulkhead_ContextCancelled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() = %v, want context.Canceled", err)
	}
	if got := b.Stats().Rejected; got != 0 {
		t.Errorf("cancellation should not count as rejection, Rejected = %d", got)
	}
}

func TestBulkhead_ExecuteReleases(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	opErr := errors.New("collaborator failed")

	err := b.Execute(context.Background(), func(context.Context) error { return opErr })
	if !errors.Is(err, opErr) {
		t.Errorf("Execute() = %v, want %v", err, opErr)
	}
	if got := b.Stats().Active; got != 0 {
		t.Errorf("Active = %d after Execute, want 0", got)
	}
}

func TestBulkhead_ExecuteFullSkipsOp(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	if err := b.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	called := false
	err := b.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Execute() = %v, want ErrBulkheadFull", err)
	}
	if called {
		t.Error("op must not run when the bulkhead is full")
	}
}

func TestBulkhead_Concurrent(t *testing.T) {
	const limit = 5
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: limit, MaxWait: time.Second})

	var (
		wg      sync.WaitGroup
		current atomic.Int32
		peak    atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Execute(context.Background(), func(context.Context) error {
				n := current.Add(1)
				defer current.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			if err != nil {
				t.Errorf("Execute() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > limit {
		t.Errorf("peak concurrency = %d, want <= %d", p, limit)
	}
	stats := b.Stats()
	if stats.Peak > limit || stats.Active != 0 || stats.Available != limit {
		t.Errorf("Stats() = %+v", stats)
	}
}
