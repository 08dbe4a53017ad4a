package mutation

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"
)

// gate hands out one release channel per call, in call order.
type gate struct {
	mu    sync.Mutex
	calls []chan gateResult
}

type gateResult struct {
	data string
	err  error
}

func (g *gate) fn(ctx context.Context, vars string, _ NoContext) (string, error) {
	ch := make(chan gateResult, 1)
	g.mu.Lock()
	g.calls = append(g.calls, ch)
	g.mu.Unlock()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// release completes the i-th call once it has started.
func (g *gate) release(t *testing.T, i int, data string, err error) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		g.mu.Lock()
		if i < len(g.calls) {
			g.calls[i] <- gateResult{data: data, err: err}
			g.mu.Unlock()
			return
		}
		g.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("call %d never started", i)
		}
		time.Sleep(time.Millisecond)
	}
}

func gatedMulti(g *gate) (*Cache, *MultiMutation[string, string, NoContext]) {
	c := New()
	return c, NewMultiMutation(c, &Definition[string, string, NoContext]{Name: "gated", Fn: g.fn})
}

func TestMultiMutation_LoadingIsSynchronous(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)

	if err := m.Mutate(context.Background(), "k", "v"); err != nil {
		t.Fatal(err)
	}
	if !m.IsLoading("k") {
		t.Error("IsLoading should be true as soon as Mutate returns")
	}

	g.release(t, 0, "done", nil)
	if err := c.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.IsLoading("k") {
		t.Error("IsLoading should be false after completion")
	}
	if d, ok := m.Data("k"); !ok || d != "done" {
		t.Errorf("Data() = %q, %v; want done, true", d, ok)
	}
}

func TestMultiMutation_UnknownKey(t *testing.T) {
	_, m := gatedMulti(&gate{})

	if m.Status("nope") != StatusIdle || m.IsLoading("nope") || m.Error("nope") != nil {
		t.Error("unknown keys should read as idle with no error")
	}
	if _, ok := m.Data("nope"); ok {
		t.Error("unknown keys should have no data")
	}
	if _, ok := m.State("nope"); ok {
		t.Error("State() of an unknown key should return ok=false")
	}
}

func TestMultiMutation_KeyIsolation(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	ctx := context.Background()

	if err := m.Mutate(ctx, "a", "1"); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, &g, 1)
	if err := m.Mutate(ctx, "b", "2"); err != nil {
		t.Fatal(err)
	}

	g.release(t, 0, "", errors.New("a failed"))
	deadline := time.Now().Add(2 * time.Second)
	for m.IsLoading("a") && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if m.Status("a") != StatusError {
		t.Errorf("Status(a) = %v, want error", m.Status("a"))
	}
	if !m.IsLoading("b") || m.Error("b") != nil {
		t.Error("failure of a must not affect b")
	}

	g.release(t, 1, "b-done", nil)
	c.Wait(ctx)
	if m.Status("b") != StatusSuccess || m.Error("a") == nil {
		t.Errorf("Status(b) = %v, Error(a) = %v", m.Status("b"), m.Error("a"))
	}
	if !slices.Equal(m.Keys(), []string{"a", "b"}) {
		t.Errorf("Keys() = %v", m.Keys())
	}
}

func TestMultiMutation_LatestCallWins(t *testing.T) {
	c := New()
	m := NewMultiMutation(c, &Definition[string, time.Duration, NoContext]{
		Name: "sleep",
		Fn: func(ctx context.Context, d time.Duration, _ NoContext) (string, error) {
			time.Sleep(d)
			return d.String(), nil
		},
	})
	ctx := context.Background()

	if err := m.Mutate(ctx, "k", 100*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := m.Mutate(ctx, "k", 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}

	time.Sleep(50 * time.Millisecond)
	if d, _ := m.Data("k"); d != "10ms" || m.IsLoading("k") {
		t.Errorf("at 50ms: Data = %q, loading = %v; want 10ms, false", d, m.IsLoading("k"))
	}

	c.Wait(ctx)
	if d, _ := m.Data("k"); d != "10ms" {
		t.Errorf("after the slow call settled: Data = %q, want 10ms", d)
	}
	if m.Status("k") != StatusSuccess {
		t.Errorf("Status = %v, want success", m.Status("k"))
	}
}

func TestMultiMutation_SupersededOutcome(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	var rec recorder
	c.Subscribe(rec.record)
	ctx := context.Background()

	type outcome struct {
		data string
		err  error
	}
	first := make(chan outcome, 1)
	go func() {
		d, err := m.MutateAsync(ctx, "k", "first")
		first <- outcome{d, err}
	}()
	waitCalls(t, &g, 1)

	if err := m.Mutate(ctx, "k", "second"); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, &g, 2)

	boom := errors.New("first failed")
	g.release(t, 0, "", boom)
	got := <-first
	if !errors.Is(got.err, boom) {
		t.Errorf("superseded caller got %v, want its own error", got.err)
	}
	if !m.IsLoading("k") || m.Error("k") != nil {
		t.Error("superseded failure must not touch the invocation")
	}
	if ev := rec.last(); ev.Type != EventSettle || !ev.Discarded || ev.Status != StatusError {
		t.Errorf("last event = %+v, want a discarded error settle", ev)
	}

	g.release(t, 1, "second-done", nil)
	c.Wait(ctx)
	if d, _ := m.Data("k"); d != "second-done" {
		t.Errorf("Data = %q, want second-done", d)
	}
}

func waitCalls(t *testing.T, g *gate, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		g.mu.Lock()
		got := len(g.calls)
		g.mu.Unlock()
		if got >= n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d calls started", got, n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestMultiMutation_ForgetDuringFlight(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	ctx := context.Background()

	if err := m.Mutate(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, &g, 1)
	if !m.Forget("k") {
		t.Fatal("Forget should report true for a tracked key")
	}

	g.release(t, 0, "late", nil)
	c.Wait(ctx)

	if _, ok := m.State("k"); ok {
		t.Error("a forgotten key must not be re-created by a late completion")
	}
	if _, ok := m.Data("k"); ok {
		t.Error("a forgotten key must not receive data")
	}
}

func TestMultiMutation_ForgetThenMutateStartsFresh(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	ctx := context.Background()

	m.Mutate(ctx, "k", "old")
	waitCalls(t, &g, 1)
	m.Forget("k")
	m.Mutate(ctx, "k", "new")
	waitCalls(t, &g, 2)

	g.release(t, 0, "old-done", nil)
	g.release(t, 1, "new-done", nil)
	c.Wait(ctx)

	if d, _ := m.Data("k"); d != "new-done" {
		t.Errorf("Data = %q, want new-done", d)
	}
}

func TestMultiMutation_Reset(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		if err := m.Mutate(ctx, k, k); err != nil {
			t.Fatal(err)
		}
	}
	waitCalls(t, &g, 2)

	keys := m.Reset()
	if !slices.Equal(keys, []string{"a", "b"}) {
		t.Errorf("Reset() = %v, want [a b]", keys)
	}

	g.release(t, 0, "x", nil)
	g.release(t, 1, "y", nil)
	c.Wait(ctx)
	if len(m.Keys()) != 0 {
		t.Errorf("Keys() = %v after reset, want none", m.Keys())
	}
}

func TestMultiMutation_SharedState(t *testing.T) {
	c := New()
	def := echoDef("shared")
	a := NewMultiMutation(c, def)
	b := NewMultiMutation(c, def)

	if _, err := a.MutateAsync(context.Background(), "k", "v"); err != nil {
		t.Fatal(err)
	}
	if d, ok := b.Data("k"); !ok || d != "echo:v" {
		t.Errorf("second facade Data() = %q, %v", d, ok)
	}
	if a.Entry() != b.Entry() {
		t.Error("facades over the same definition should share the entry")
	}
}

func TestMultiMutation_MissingVars(t *testing.T) {
	c := New()
	var rec recorder
	c.Subscribe(rec.record)
	m := NewMultiMutation(c, echoDef("echo"))

	_, err := m.MutateAsync(context.Background(), "k", "")
	if !errors.Is(err, ErrMissingVars) {
		t.Errorf("MutateAsync() = %v, want ErrMissingVars", err)
	}
	if _, ok := m.State("k"); ok {
		t.Error("missing vars must not create an invocation")
	}
	if got := rec.types(); !slices.Equal(got, []EventType{EventEnsure}) {
		t.Errorf("events = %v, want only ensure", got)
	}
}

func TestMultiMutation_AllowZeroVars(t *testing.T) {
	c := New()
	def := echoDef("echo")
	def.AllowZeroVars = true
	m := NewMultiMutation(c, def)

	d, err := m.MutateAsync(context.Background(), "k", "")
	if err != nil || d != "echo:" {
		t.Errorf("MutateAsync() = %q, %v", d, err)
	}
}

func TestMultiMutation_Callbacks(t *testing.T) {
	var calls []string
	c := New()
	m := NewMultiMutation(c, &Definition[int, int, string]{
		Name: "double",
		BuildContext: func(_ context.Context, vars int) (string, error) {
			return "ctx-" + strings.Repeat("x", max(vars, 0)), nil
		},
		Fn: func(_ context.Context, vars int, mctx string) (int, error) {
			calls = append(calls, "fn:"+mctx)
			if vars < 0 {
				return 0, errors.New("negative")
			}
			return vars * 2, nil
		},
		OnSuccess: func(_ context.Context, result, _ int, mctx string) error {
			calls = append(calls, "success:"+mctx)
			return nil
		},
		OnError: func(_ context.Context, err error, _ int, _ string) error {
			calls = append(calls, "error:"+err.Error())
			return nil
		},
		OnSettled: func(_ context.Context, _ int, err error, _ int, _ string) error {
			calls = append(calls, "settled")
			return nil
		},
	})
	ctx := context.Background()

	if got, err := m.MutateAsync(ctx, "ok", 2); err != nil || got != 4 {
		t.Fatalf("MutateAsync() = %d, %v", got, err)
	}
	want := []string{"fn:ctx-xx", "success:ctx-xx", "settled"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}

	calls = nil
	if _, err := m.MutateAsync(ctx, "bad", -1); err == nil {
		t.Fatal("expected an error")
	}
	want = []string{"fn:ctx-", "error:negative", "settled"}
	if !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
}

func TestMultiMutation_CallbackErrorPropagates(t *testing.T) {
	c := New()
	cbErr := errors.New("invalidate failed")
	m := NewMultiMutation(c, &Definition[string, string, NoContext]{
		Name: "echo",
		Fn: func(_ context.Context, vars string, _ NoContext) (string, error) {
			return vars, nil
		},
		OnSuccess: func(context.Context, string, string, NoContext) error {
			return cbErr
		},
		OnSettled: func(context.Context, string, error, string, NoContext) error {
			panic("settled exploded")
		},
	})

	d, err := m.MutateAsync(context.Background(), "k", "v")
	if d != "v" {
		t.Errorf("result = %q, want v", d)
	}
	if !errors.Is(err, ErrCallback) || !errors.Is(err, cbErr) || !errors.Is(err, ErrPanic) {
		t.Errorf("err = %v, want callback and panic errors joined", err)
	}
	if m.Status("k") != StatusSuccess {
		t.Errorf("callback failure must not change status, got %v", m.Status("k"))
	}
}

func TestMultiMutation_SupersededSkipsCallbacks(t *testing.T) {
	var g gate
	var settled int
	var mu sync.Mutex
	c := New()
	m := NewMultiMutation(c, &Definition[string, string, NoContext]{
		Name: "gated",
		Fn:   g.fn,
		OnSettled: func(context.Context, string, error, string, NoContext) error {
			mu.Lock()
			settled++
			mu.Unlock()
			return nil
		},
	})
	ctx := context.Background()

	m.Mutate(ctx, "k", "1")
	waitCalls(t, &g, 1)
	m.Mutate(ctx, "k", "2")
	waitCalls(t, &g, 2)

	g.release(t, 0, "stale", nil)
	g.release(t, 1, "fresh", nil)
	c.Wait(ctx)

	mu.Lock()
	defer mu.Unlock()
	if settled != 1 {
		t.Errorf("OnSettled ran %d times, want 1", settled)
	}
}

func TestMultiMutation_BuildContextFailure(t *testing.T) {
	called := false
	c := New()
	buildErr := errors.New("no session")
	m := NewMultiMutation(c, &Definition[string, string, int]{
		Name: "ctx",
		BuildContext: func(context.Context, string) (int, error) {
			return 0, buildErr
		},
		Fn: func(context.Context, string, int) (string, error) {
			called = true
			return "", nil
		},
	})

	_, err := m.MutateAsync(context.Background(), "k", "v")
	if !errors.Is(err, buildErr) {
		t.Errorf("err = %v, want %v", err, buildErr)
	}
	if called {
		t.Error("Fn must not run when the context cannot be built")
	}
	if !errors.Is(m.Error("k"), buildErr) || m.Status("k") != StatusError {
		t.Errorf("state = %v / %v", m.Status("k"), m.Error("k"))
	}
}

func TestMultiMutation_FnPanic(t *testing.T) {
	c := New()
	m := NewMultiMutation(c, &Definition[string, string, NoContext]{
		Name: "panics",
		Fn: func(context.Context, string, NoContext) (string, error) {
			panic("kaboom")
		},
	})

	_, err := m.MutateAsync(context.Background(), "k", "v")
	if !errors.Is(err, ErrPanic) || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("err = %v, want ErrPanic", err)
	}
	if m.Status("k") != StatusError {
		t.Errorf("Status = %v, want error", m.Status("k"))
	}
}

type timeoutGuard struct{ d time.Duration }

func (g timeoutGuard) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.d)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- op(ctx) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestMultiMutation_Guard(t *testing.T) {
	c := New()
	m := NewMultiMutation(c, &Definition[string, time.Duration, NoContext]{
		Name:  "guarded",
		Guard: timeoutGuard{d: 20 * time.Millisecond},
		Fn: func(_ context.Context, d time.Duration, _ NoContext) (string, error) {
			time.Sleep(d)
			return "late", nil
		},
	})
	ctx := context.Background()

	if d, err := m.MutateAsync(ctx, "fast", time.Millisecond); err != nil || d != "late" {
		t.Errorf("fast call = %q, %v", d, err)
	}

	d, err := m.MutateAsync(ctx, "slow", 100*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("slow call err = %v, want deadline exceeded", err)
	}
	if d != "" {
		t.Errorf("slow call result = %q, want zero value", d)
	}
	if _, ok := m.Data("slow"); ok {
		t.Error("a guard failure must not write data")
	}
}

func TestMultiMutation_DetachedIgnoresCancel(t *testing.T) {
	var g gate
	c, m := gatedMulti(&g)
	ctx, cancel := context.WithCancel(context.Background())

	if err := m.Mutate(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	waitCalls(t, &g, 1)
	cancel()

	g.release(t, 0, "done", nil)
	c.Wait(context.Background())
	if d, _ := m.Data("k"); d != "done" {
		t.Errorf("Data = %q, want done", d)
	}
}

func TestMultiMutation_KeyFor(t *testing.T) {
	_, m := gatedMulti(&gate{})
	k1, err := m.KeyFor("a")
	if err != nil {
		t.Fatal(err)
	}
	k2, _ := m.KeyFor("a")
	if k1 != k2 || !strings.HasPrefix(k1, "gated:") {
		t.Errorf("KeyFor() = %q, %q", k1, k2)
	}
}
