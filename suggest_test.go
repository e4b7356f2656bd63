package wpfront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

func echoLookup(ctx context.Context, q string) ([]wordpress.Post, error) {
	return []wordpress.Post{{Slug: q}}, nil
}

func TestSuggesterPoolPerVisitor(t *testing.T) {
	p := newSuggesterPool(echoLookup, time.Millisecond, time.Hour)
	defer p.Stop()

	a := p.get("a")
	if p.get("a") != a {
		t.Fatalf("same visitor must reuse its suggester")
	}
	if p.get("b") == a {
		t.Fatalf("visitors must not share a suggester")
	}
}

func TestSuggesterPoolSupersedesSameVisitor(t *testing.T) {
	p := newSuggesterPool(echoLookup, 50*time.Millisecond, time.Hour)
	defer p.Stop()

	first := make(chan error, 1)
	go func() {
		_, err := p.get("a").Suggest(context.Background(), "go")
		first <- err
	}()
	time.Sleep(10 * time.Millisecond)

	posts, err := p.get("a").Suggest(context.Background(), "gopher")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(posts) != 1 || posts[0].Slug != "gopher" {
		t.Fatalf("unexpected suggestions %+v", posts)
	}
	if err := <-first; !errors.Is(err, listing.ErrSuperseded) {
		t.Fatalf("expected ErrSuperseded for the older request, got %v", err)
	}
}

func TestSuggesterPoolSweep(t *testing.T) {
	p := newSuggesterPool(echoLookup, time.Millisecond, time.Hour)
	defer p.Stop()

	old := p.get("a")
	p.sweep(time.Now().Add(time.Minute))

	if _, err := old.Suggest(context.Background(), "go"); !errors.Is(err, listing.ErrSuggesterClosed) {
		t.Fatalf("expected swept suggester to be closed, got %v", err)
	}
	if p.get("a") == old {
		t.Fatalf("expected a fresh suggester after sweep")
	}
}

func TestSuggesterPoolStop(t *testing.T) {
	p := newSuggesterPool(echoLookup, time.Millisecond, time.Hour)
	s := p.get("a")
	p.Stop()
	p.Stop()

	if _, err := s.Suggest(context.Background(), "go"); !errors.Is(err, listing.ErrSuggesterClosed) {
		t.Fatalf("expected ErrSuggesterClosed after Stop, got %v", err)
	}
}
