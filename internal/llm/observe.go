package llm

import (
	"context"
	"time"
)

// Observer receives one callback per completion.
type Observer interface {
	ObserveCompletion(provider string, elapsed time.Duration, resp CompletionResponse, err error)
}

type observedCompleter struct {
	next     Completer
	provider string
	obs      Observer
}

// WithObserver reports every call on next to obs, labelled with provider.
func WithObserver(next Completer, provider string, obs Observer) Completer {
	if obs == nil {
		return next
	}
	return &observedCompleter{next: next, provider: provider, obs: obs}
}

func (o *observedCompleter) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	start := time.Now()
	resp, err := o.next.Complete(ctx, req)
	o.obs.ObserveCompletion(o.provider, time.Since(start), resp, err)
	return resp, err
}
