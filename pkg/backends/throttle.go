package backends

import (
	"context"
	"time"

	"github.com/go-go-golems/chatscript/pkg/conversation"
	"github.com/go-go-golems/chatscript/pkg/usage"
	"github.com/rs/zerolog/log"
)

type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Throttled spaces calls to the wrapped backend at least MinInterval apart,
// measured from the end of the previous call to the start of the next one.
type Throttled struct {
	backend     Backend
	minInterval time.Duration
	clock       Clock
	lastEnd     time.Time
}

var _ Backend = &Throttled{}

type ThrottleOption func(*Throttled)

func WithClock(c Clock) ThrottleOption {
	return func(t *Throttled) {
		t.clock = c
	}
}

// NewThrottled wraps b so that it is called at most requestsPerMinute times
// per minute. A non-positive limit returns b unchanged.
func NewThrottled(b Backend, requestsPerMinute int, options ...ThrottleOption) Backend {
	if requestsPerMinute <= 0 {
		return b
	}
	ret := &Throttled{
		backend:     b,
		minInterval: time.Minute / time.Duration(requestsPerMinute),
		clock:       realClock{},
	}
	for _, o := range options {
		o(ret)
	}
	return ret
}

func (t *Throttled) MinInterval() time.Duration {
	return t.minInterval
}

func (t *Throttled) SendTurn(ctx context.Context, messages conversation.Conversation) (*Reply, error) {
	if !t.lastEnd.IsZero() {
		wait := t.minInterval - t.clock.Now().Sub(t.lastEnd)
		if wait > 0 {
			log.Debug().Dur("wait", wait).Str("model", t.backend.Model()).Msg("throttling request")
			if err := t.clock.Sleep(ctx, wait); err != nil {
				return nil, err
			}
		}
	}

	reply, err := t.backend.SendTurn(ctx, messages)
	t.lastEnd = t.clock.Now()
	return reply, err
}

func (t *Throttled) Model() string {
	return t.backend.Model()
}

func (t *Throttled) Accounting() usage.Accounting {
	return t.backend.Accounting()
}
