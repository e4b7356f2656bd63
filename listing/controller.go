package listing

import (
	"context"
	"errors"
	"sync"

	"github.com/eringen/wpfront/wordpress"
)

// ErrStale is returned by a transition whose fetch was overtaken by a newer
// one. Its result was discarded and the returned State is the current one.
var ErrStale = errors.New("listing: result superseded by a newer request")

// Fetcher loads one page of posts. *wordpress.Client satisfies it.
type Fetcher interface {
	ListPosts(ctx context.Context, q wordpress.ListQuery) (wordpress.ListResult, error)
}

// Options replaces the per-page variants of the listing with one configuration.
type Options struct {
	PerPage          int    `yaml:"per_page"`
	InitialSortOrder string `yaml:"sort_order"` // "desc" (default) or "asc"
	ShowHeroBanner   bool   `yaml:"show_hero_banner"`
	TrackTagRemoval  bool   `yaml:"track_tag_removal"` // also report tag clicks that deselect a tag
	ClearOnError     bool   `yaml:"clear_on_error"`    // drop the previous result when a fetch fails
}

func (o *Options) setDefaults() {
	if o.PerPage <= 0 {
		o.PerPage = DefaultPerPage
	}
	if o.InitialSortOrder != "asc" {
		o.InitialSortOrder = "desc"
	}
}

// Hooks are side effects fired by transitions. Nil hooks are skipped.
type Hooks struct {
	Searched      func(term string, results int)
	TagClicked    func(tag wordpress.Tag)
	ScrolledToTop func()
}

// State is a snapshot of the controller.
type State struct {
	Query      Query
	Result     wordpress.ListResult
	Loaded     bool // at least one fetch succeeded
	Loading    bool
	Err        error // last fetch error, cleared by the next success
	SearchOpen bool
}

// Empty reports whether there is nothing to list.
func (s State) Empty() bool {
	return len(s.Result.Posts) == 0
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithHooks installs transition side effects.
func WithHooks(h Hooks) ControllerOption {
	return func(c *Controller) { c.hooks = h }
}

// WithQuery starts the controller at q instead of the first page. The page
// size from Options always wins.
func WithQuery(q Query) ControllerOption {
	return func(c *Controller) {
		q.PerPage = c.opts.PerPage
		if q.Page < 1 {
			q.Page = 1
		}
		c.state.Query = q
	}
}

// Controller is the listing state machine. Transitions are safe for concurrent
// use; the last one started wins. Starting a fetch cancels the previous one and
// any response from an older generation is discarded.
type Controller struct {
	fetcher Fetcher
	opts    Options
	hooks   Hooks

	mu     sync.Mutex
	state  State
	gen    uint64
	cancel context.CancelFunc
}

func NewController(f Fetcher, opts Options, options ...ControllerOption) *Controller {
	opts.setDefaults()
	c := &Controller{
		fetcher: f,
		opts:    opts,
	}
	c.state.Query = NewQuery(opts.PerPage)
	c.state.Result = emptyResult(1)
	for _, o := range options {
		o(c)
	}
	return c
}

// Options returns the effective configuration.
func (c *Controller) Options() Options {
	return c.opts
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load fetches the current query.
func (c *Controller) Load(ctx context.Context) (State, error) {
	return c.run(ctx, func(q Query) Query { return q })
}

// Search sets the search text, returns to page 1 and closes the search panel.
func (c *Controller) Search(ctx context.Context, text string) (State, error) {
	c.mu.Lock()
	c.state.SearchOpen = false
	c.mu.Unlock()

	st, err := c.run(ctx, func(q Query) Query { return q.WithSearch(text) })
	if err == nil && st.Query.Search != "" && c.hooks.Searched != nil {
		c.hooks.Searched(st.Query.Search, st.Result.TotalPosts)
	}
	return st, err
}

// ToggleTag adds or removes tag from the filter set and returns to page 1.
// The TagClicked hook reflects the toggle actually applied.
func (c *Controller) ToggleTag(ctx context.Context, tag wordpress.Tag) (State, error) {
	var selecting bool
	st, err := c.run(ctx, func(q Query) Query {
		selecting = !q.HasTag(tag.ID)
		return q.WithTagToggled(tag.ID)
	})
	if c.hooks.TagClicked != nil && (selecting || c.opts.TrackTagRemoval) {
		c.hooks.TagClicked(tag)
	}
	return st, err
}

// ClearTagFilters drops every tag filter and returns to page 1.
func (c *Controller) ClearTagFilters(ctx context.Context) (State, error) {
	return c.run(ctx, func(q Query) Query { return q.WithoutTags() })
}

// GoToPage moves to page n, clamped to [1, TotalPages] once a result is known.
func (c *Controller) GoToPage(ctx context.Context, n int) (State, error) {
	if c.hooks.ScrolledToTop != nil {
		c.hooks.ScrolledToTop()
	}
	return c.run(ctx, func(q Query) Query {
		if c.state.Loaded && n > c.state.Result.TotalPages {
			n = c.state.Result.TotalPages
		}
		return q.WithPage(n)
	})
}

// OpenSearch marks the search panel open.
func (c *Controller) OpenSearch() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.SearchOpen = true
	return c.state
}

// run applies transition to the current query and fetches the result.
// transition is called with c.mu held.
func (c *Controller) run(ctx context.Context, transition func(Query) Query) (State, error) {
	c.mu.Lock()
	next := transition(c.state.Query)
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Query = next
	c.state.Loading = true
	c.mu.Unlock()

	res, err := c.fetcher.ListPosts(fetchCtx, next.ListQuery(c.opts.InitialSortOrder))

	c.mu.Lock()
	defer c.mu.Unlock()
	cancel()
	if gen != c.gen {
		return c.state, ErrStale
	}
	c.cancel = nil
	c.state.Loading = false
	if err != nil {
		c.state.Err = err
		if c.opts.ClearOnError {
			c.state.Result = emptyResult(next.Page)
		}
		return c.state, err
	}
	if res.Posts == nil {
		res.Posts = []wordpress.Post{}
	}
	c.state.Result = res
	c.state.Err = nil
	c.state.Loaded = true
	return c.state, nil
}

func emptyResult(page int) wordpress.ListResult {
	return wordpress.ListResult{Posts: []wordpress.Post{}, TotalPages: 1, CurrentPage: page}
}
