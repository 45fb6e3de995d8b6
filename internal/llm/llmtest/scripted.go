// Package llmtest provides fake completers for tests.
package llmtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ShayCichocki/agentsmith/internal/llm"
)

// ErrNoReply is returned when a Scripted completer runs out of replies.
var ErrNoReply = errors.New("llmtest: no scripted reply left")

// Reply is one canned completion outcome.
type Reply struct {
	Text  string
	Err   error
	Delay time.Duration
}

// Text is a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail is a failing reply.
func Fail(err error) Reply { return Reply{Err: err} }

// Scripted replays replies in order, or asks Handler when set.
// It records every request it receives and is safe for concurrent use.
type Scripted struct {
	// Handler, when non-nil, decides the reply for each request.
	Handler func(req llm.CompletionRequest) Reply

	mu       sync.Mutex
	replies  []Reply
	requests []llm.CompletionRequest
}

// New returns a completer that replays replies in order.
func New(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// NewFunc returns a completer that routes every request through fn.
func NewFunc(fn func(req llm.CompletionRequest) Reply) *Scripted {
	return &Scripted{Handler: fn}
}

// Complete implements llm.Completer.
func (s *Scripted) Complete(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	var r Reply
	switch {
	case s.Handler != nil:
		s.mu.Unlock()
		r = s.Handler(req)
	case len(s.replies) == 0:
		s.mu.Unlock()
		return llm.CompletionResponse{}, ErrNoReply
	default:
		r = s.replies[0]
		s.replies = s.replies[1:]
		s.mu.Unlock()
	}

	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return llm.CompletionResponse{}, ctx.Err()
		}
	}
	if r.Err != nil {
		return llm.CompletionResponse{}, r.Err
	}
	return llm.CompletionResponse{
		Text:         r.Text,
		InputTokens:  int64(len(req.Messages)),
		OutputTokens: int64(len(r.Text)),
	}, nil
}

// Requests returns a copy of every request received so far.
func (s *Scripted) Requests() []llm.CompletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.CompletionRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Calls returns the number of requests received.
func (s *Scripted) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

var _ llm.Completer = (*Scripted)(nil)
