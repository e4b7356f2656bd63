package wpfront

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

const suggestLimit = 5

func (a *App) suggestLookup(ctx context.Context, q string) ([]wordpress.Post, error) {
	return a.WordPress.SuggestPosts(ctx, q, suggestLimit)
}

// suggesterPool keeps one debouncing Suggester per visitor so that a newer
// keystroke from the same visitor supersedes the older request.
type suggesterPool struct {
	lookup listing.SuggestFunc
	delay  time.Duration
	idle   time.Duration

	mu      sync.Mutex
	entries map[string]*suggesterEntry

	done     chan struct{}
	stopOnce sync.Once
}

type suggesterEntry struct {
	s        *listing.Suggester
	lastUsed time.Time
}

func newSuggesterPool(lookup listing.SuggestFunc, delay, idle time.Duration) *suggesterPool {
	p := &suggesterPool{
		lookup:  lookup,
		delay:   delay,
		idle:    idle,
		entries: make(map[string]*suggesterEntry),
		done:    make(chan struct{}),
	}
	go p.cleanup()
	return p
}

// get returns the visitor's Suggester, creating it on first use.
func (p *suggesterPool) get(visitor string) *listing.Suggester {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[visitor]
	if !ok {
		e = &suggesterEntry{s: listing.NewSuggester(p.lookup, p.delay)}
		p.entries[visitor] = e
	}
	e.lastUsed = time.Now()
	return e.s
}

func (p *suggesterPool) cleanup() {
	ticker := time.NewTicker(p.idle)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.sweep(time.Now().Add(-p.idle))
		}
	}
}

func (p *suggesterPool) sweep(cutoff time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, e := range p.entries {
		if e.lastUsed.Before(cutoff) {
			e.s.Close()
			delete(p.entries, id)
		}
	}
}

// Stop closes every Suggester and ends the sweep.
func (p *suggesterPool) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.mu.Lock()
		defer p.mu.Unlock()
		for id, e := range p.entries {
			e.s.Close()
			delete(p.entries, id)
		}
	})
}
