package analytics

import (
	"context"
	"strconv"
	"time"

	"github.com/eringen/wpfront/listing"
	"github.com/eringen/wpfront/wordpress"
)

// Visitor identifies who triggered an event. It travels through the request
// context so listing hooks can record without an echo.Context.
type Visitor struct {
	ID        string
	IP        string
	UserAgent string
	Path      string
	Referrer  string
	DNT       bool
}

type visitorKey struct{}

// WithVisitor attaches v to ctx.
func WithVisitor(ctx context.Context, v Visitor) context.Context {
	return context.WithValue(ctx, visitorKey{}, v)
}

// VisitorFrom returns the visitor stored in ctx.
func VisitorFrom(ctx context.Context) (Visitor, bool) {
	v, ok := ctx.Value(visitorKey{}).(Visitor)
	return v, ok
}

const recordTimeout = 2 * time.Second

// Recorder writes events for the current visitor. A nil *Recorder records
// nothing, so callers need not check whether analytics is enabled.
type Recorder struct {
	store *Store
	log   Logger
}

func NewRecorder(store *Store, logger Logger) *Recorder {
	return &Recorder{store: store, log: logger}
}

// Record stores one event for the visitor in ctx. Requests without a visitor,
// with Do Not Track set, or from crawlers are skipped; crawler page views go
// to the bot table instead.
func (r *Recorder) Record(ctx context.Context, name string, props map[string]string) {
	if r == nil || r.store == nil {
		return
	}
	v, ok := VisitorFrom(ctx)
	if !ok || v.DNT {
		return
	}
	// The write must not be cut short by a client that already hung up.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if bot := BotName(v.UserAgent); bot != "" {
		if name != EventPageView && name != EventPostView {
			return
		}
		err := r.store.SaveBotVisit(ctx, &BotVisit{
			BotName:   bot,
			IPHash:    HashIP(v.IP),
			UserAgent: v.UserAgent,
			Path:      v.Path,
		})
		r.logErr(err)
		return
	}

	id := v.ID
	if id == "" {
		id = GenerateVisitorID(v.IP, v.UserAgent)
	}
	browser, os, device := ParseUserAgent(v.UserAgent)
	r.logErr(r.store.SaveEvent(ctx, &Event{
		Name:      name,
		VisitorID: id,
		IPHash:    HashIP(v.IP),
		Path:      v.Path,
		Referrer:  CleanReferrer(v.Referrer),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Props:     props,
	}))
}

// PageView records a listing page view.
func (r *Recorder) PageView(ctx context.Context) {
	r.Record(ctx, EventPageView, nil)
}

// PostView records that a post page was opened.
func (r *Recorder) PostView(ctx context.Context, p wordpress.Post) {
	r.Record(ctx, EventPostView, map[string]string{
		"post_id":    strconv.Itoa(p.ID),
		"post_title": p.Title,
		"post_slug":  p.Slug,
	})
}

// Search records a submitted search and how many posts matched.
func (r *Recorder) Search(ctx context.Context, term string, results int) {
	r.Record(ctx, EventSearch, map[string]string{
		"search_term":   term,
		"results_count": strconv.Itoa(results),
	})
}

// TagClick records a tag filter click.
func (r *Recorder) TagClick(ctx context.Context, tag wordpress.Tag) {
	r.Record(ctx, EventTagClick, map[string]string{
		"tag_name": tag.Name,
		"tag_id":   strconv.Itoa(tag.ID),
	})
}

// Hooks binds the recorder to the listing controller for one request.
func (r *Recorder) Hooks(ctx context.Context) listing.Hooks {
	if r == nil {
		return listing.Hooks{}
	}
	return listing.Hooks{
		Searched:   func(term string, results int) { r.Search(ctx, term, results) },
		TagClicked: func(tag wordpress.Tag) { r.TagClick(ctx, tag) },
	}
}

func (r *Recorder) logErr(err error) {
	if err != nil && r.log != nil {
		r.log.Errorf("analytics: %v", err)
	}
}
