package listing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eringen/wpfront/wordpress"
)

// DefaultSuggestDelay is how long input must be quiet before a lookup runs.
const DefaultSuggestDelay = 300 * time.Millisecond

var (
	// ErrSuperseded means a newer Suggest call replaced this one.
	ErrSuperseded = errors.New("listing: suggestion superseded")
	// ErrSuggesterClosed is returned after Close.
	ErrSuggesterClosed = errors.New("listing: suggester closed")
)

// SuggestFunc performs one suggestion lookup.
type SuggestFunc func(ctx context.Context, query string) ([]wordpress.Post, error)

// Suggester debounces lookups for one visitor. Only the latest call can
// deliver a result; earlier calls, whether still waiting or already querying
// upstream, return ErrSuperseded.
type Suggester struct {
	lookup SuggestFunc
	delay  time.Duration

	mu      sync.Mutex
	seq     uint64
	waiting chan struct{} // closed to release the pending caller
	closed  bool
}

func NewSuggester(lookup SuggestFunc, delay time.Duration) *Suggester {
	if delay <= 0 {
		delay = DefaultSuggestDelay
	}
	return &Suggester{lookup: lookup, delay: delay}
}

// Suggest waits out the debounce delay and then runs the lookup for query.
func (s *Suggester) Suggest(ctx context.Context, query string) ([]wordpress.Post, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSuggesterClosed
	}
	if s.waiting != nil {
		close(s.waiting)
	}
	s.seq++
	seq := s.seq
	waiting := make(chan struct{})
	s.waiting = waiting
	s.mu.Unlock()

	timer := time.NewTimer(s.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-waiting:
		return nil, s.releaseErr()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	s.mu.Lock()
	if s.closed || s.seq != seq {
		s.mu.Unlock()
		return nil, ErrSuperseded
	}
	s.waiting = nil
	s.mu.Unlock()

	posts, err := s.lookup(ctx, query)
	if !s.current(seq) {
		return nil, ErrSuperseded
	}
	return posts, err
}

// Close releases any pending caller and rejects further calls.
func (s *Suggester) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.seq++
	if s.waiting != nil {
		close(s.waiting)
		s.waiting = nil
	}
}

func (s *Suggester) current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && s.seq == seq
}

func (s *Suggester) releaseErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSuggesterClosed
	}
	return ErrSuperseded
}
