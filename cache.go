package wpfront

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/eringen/wpfront/wordpress"
	"golang.org/x/sync/singleflight"
)

// SiteSource provides the sidebar and footer data. *wordpress.Client
// satisfies it.
type SiteSource interface {
	Tags(ctx context.Context) ([]wordpress.Tag, error)
	TrendingPosts(ctx context.Context, limit int) ([]wordpress.Post, error)
	RecentPosts(ctx context.Context, limit int) ([]wordpress.Post, error)
}

// SiteData is the shared chrome around every listing and post page.
type SiteData struct {
	Tags     []wordpress.Tag
	Trending []wordpress.Post
	Recent   []wordpress.Post
}

// errorBackoff is how long a failed refresh is remembered before upstream is
// asked again.
const errorBackoff = 30 * time.Second

// cachedValue is one independently refreshed source. A failed refresh keeps
// serving the last good value and is not retried until the back-off passes.
// Concurrent refreshes share a single upstream call.
type cachedValue[T any] struct {
	mu      sync.RWMutex
	val     T
	ok      bool
	fetched time.Time
	failed  time.Time
	lastErr error
	ttl     time.Duration
	backoff time.Duration
	load    func(ctx context.Context) (T, error)
	group   singleflight.Group
}

// cached returns the value to serve without calling upstream, if any.
func (c *cachedValue[T]) cached() (T, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.ok && time.Since(c.fetched) < c.ttl {
		return c.val, true, nil
	}
	if c.lastErr != nil && time.Since(c.failed) < c.backoff {
		return c.val, true, c.lastErr
	}
	return c.val, false, nil
}

// get returns the cached value, refreshing it when expired. On a failed
// refresh it returns the stale value together with the error.
func (c *cachedValue[T]) get(ctx context.Context) (T, error) {
	if v, hit, err := c.cached(); hit {
		return v, err
	}

	// The shared load outlives a caller that gives up so the others still
	// receive its result.
	ch := c.group.DoChan("load", func() (any, error) {
		v, err := c.load(context.WithoutCancel(ctx))
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failed = time.Now()
			c.lastErr = err
			return c.val, err
		}
		c.val, c.ok, c.fetched, c.lastErr = v, true, time.Now(), nil
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val.(T), res.Err
	case <-ctx.Done():
		c.mu.RLock()
		defer c.mu.RUnlock()
		return c.val, ctx.Err()
	}
}

// SiteDataCache caches tags, trending and recent posts with a TTL. Listings
// and post pages are never cached.
type SiteDataCache struct {
	tags     cachedValue[[]wordpress.Tag]
	trending cachedValue[[]wordpress.Post]
	recent   cachedValue[[]wordpress.Post]
}

// NewSiteDataCache creates a SiteDataCache backed by src.
func NewSiteDataCache(src SiteSource, ttl time.Duration, trendingLimit, recentLimit int) *SiteDataCache {
	c := &SiteDataCache{}
	for _, b := range []*time.Duration{&c.tags.backoff, &c.trending.backoff, &c.recent.backoff} {
		*b = errorBackoff
	}
	c.tags.ttl = ttl
	c.tags.load = src.Tags
	c.trending.ttl = ttl
	c.trending.load = func(ctx context.Context) ([]wordpress.Post, error) {
		return src.TrendingPosts(ctx, trendingLimit)
	}
	c.recent.ttl = ttl
	c.recent.load = func(ctx context.Context) ([]wordpress.Post, error) {
		return src.RecentPosts(ctx, recentLimit)
	}
	return c
}

func (c *SiteDataCache) Tags(ctx context.Context) ([]wordpress.Tag, error) {
	return c.tags.get(ctx)
}

func (c *SiteDataCache) Trending(ctx context.Context) ([]wordpress.Post, error) {
	return c.trending.get(ctx)
}

func (c *SiteDataCache) Recent(ctx context.Context) ([]wordpress.Post, error) {
	return c.recent.get(ctx)
}

// Load settles all three sources in parallel. Every source that produced a
// value (fresh or stale) is filled in; the error joins the individual failures.
func (c *SiteDataCache) Load(ctx context.Context) (SiteData, error) {
	var (
		wg                     sync.WaitGroup
		d                      SiteData
		tagErr, trendErr, rErr error
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		d.Tags, tagErr = c.Tags(ctx)
	}()
	go func() {
		defer wg.Done()
		d.Trending, trendErr = c.Trending(ctx)
	}()
	go func() {
		defer wg.Done()
		d.Recent, rErr = c.Recent(ctx)
	}()
	wg.Wait()
	return d, errors.Join(wrapSource("tags", tagErr), wrapSource("trending", trendErr), wrapSource("recent", rErr))
}

func wrapSource(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}
