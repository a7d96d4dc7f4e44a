package gen

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout marks a call that exceeded its budget. Timeouts are a normal,
// expected failure mode and are logged distinctly from provider errors.
var ErrTimeout = errors.New("generation timed out")

// ErrProvider marks any other failure reported by the generation provider.
var ErrProvider = errors.New("generation provider error")

type Request struct {
	Prompt    string
	MaxTokens int
	// Timeout is the caller-supplied budget for this single call.
	Timeout time.Duration
}

// Service turns a prompt into text. Callers apply their own retry policy
// per call site.
type Service interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrorKind classifies a generation failure for log fields.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrProvider):
		return "provider"
	default:
		return "other"
	}
}

// RetryPolicy re-invokes a generation call on failure. Zero Attempts means
// a single try with no retry.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	var err error
	backoff := p.Backoff
	for attempt := 0; attempt <= p.Attempts; attempt++ {
		if attempt > 0 && backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
