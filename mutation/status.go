package mutation

import (
	"fmt"

	"github.com/google/uuid"
)

// Status is the async status of an invocation.
type Status int

const (
	// StatusIdle means the invocation exists but was never started.
	StatusIdle Status = iota
	// StatusLoading means a call is in flight.
	StatusLoading
	// StatusSuccess means the tracked call succeeded.
	StatusSuccess
	// StatusError means the tracked call failed.
	StatusError
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusIdle || s > StatusError {
		return nil, fmt.Errorf("mutation: invalid status %d", int(s))
	}
	return []byte(s.String()), nil
}

// TaskID identifies one execution attempt. The zero TaskID means "no task".
type TaskID uuid.UUID

func newTaskID() TaskID {
	return TaskID(uuid.New())
}

// IsZero reports whether t is the zero TaskID.
func (t TaskID) IsZero() bool {
	return uuid.UUID(t) == uuid.Nil
}

func (t TaskID) String() string {
	if t.IsZero() {
		return ""
	}
	return uuid.UUID(t).String()
}
