package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when a completion exceeds its deadline.
var ErrTimeout = errors.New("llm request timed out")

type timeoutCompleter struct {
	next    Completer
	timeout time.Duration
}

// WithTimeout bounds every call to next. A non-positive timeout disables the bound.
// A call that runs out of time fails with an error wrapping ErrTimeout.
func WithTimeout(next Completer, timeout time.Duration) Completer {
	if timeout <= 0 {
		return next
	}
	return &timeoutCompleter{next: next, timeout: timeout}
}

func (t *timeoutCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	resp, err := t.next.Complete(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CompletionResponse{}, fmt.Errorf("%w after %s: %v", ErrTimeout, t.timeout, err)
	}
	return resp, err
}
