package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/mutcache/mutation"
	"github.com/jonwraymond/mutcache/resilience"
)

// Circuit is healthy while cb is closed, degraded while it probes and
// unhealthy while it refuses calls.
func Circuit(cb *resilience.CircuitBreaker) Checker {
	return CheckFunc(func(context.Context) Result {
		st := cb.Stats()
		details := map[string]any{
			"state":    st.State.String(),
			"failures": st.Failures,
			"refused":  st.Refused,
		}

		var r Result
		switch st.State {
		case resilience.CircuitClosed:
			r = Healthy("circuit closed")
		case resilience.CircuitHalfOpen:
			r = Degraded("circuit probing")
		default:
			details["openedAt"] = st.OpenedAt
			r = Unhealthy("circuit open", st.LastFailure)
		}
		return r.WithDetails(details)
	})
}

// Bulkhead is degraded while every slot of b is taken.
func Bulkhead(b *resilience.Bulkhead) Checker {
	return CheckFunc(func(context.Context) Result {
		st := b.Stats()
		details := map[string]any{
			"active":    st.Active,
			"peak":      st.Peak,
			"available": st.Available,
			"rejected":  st.Rejected,
		}
		if st.Available == 0 {
			return Degraded(fmt.Sprintf("all %d slots in use", st.MaxConcurrent)).WithDetails(details)
		}
		return Healthy("slots available").WithDetails(details)
	})
}

// InFlight is degraded once limit or more invocations in c are loading.
func InFlight(c *mutation.Cache, limit int) Checker {
	return CheckFunc(func(context.Context) Result {
		loading, total := 0, 0
		for _, e := range c.Entries() {
			total += len(e.Invocations)
			for _, inv := range e.Invocations {
				if inv.Status == mutation.StatusLoading {
					loading++
				}
			}
		}
		details := map[string]any{"loading": loading, "invocations": total}
		if limit > 0 && loading >= limit {
			return Degraded(fmt.Sprintf("%d invocations loading", loading)).WithDetails(details)
		}
		return Healthy(fmt.Sprintf("%d invocations loading", loading)).WithDetails(details)
	})
}

// Ping is unhealthy when ping fails.
func Ping(ping func(ctx context.Context) error) Checker {
	return CheckFunc(func(ctx context.Context) Result {
		if err := ping(ctx); err != nil {
			return Unhealthy("unreachable", err)
		}
		return Healthy("reachable")
	})
}
