// Package wordpress adapts the WordPress REST API (wp-json/wp/v2) into a
// stable post and tag model. Upstream irregularities such as missing embeds,
// rendered-vs-raw fields and pasted video links are absorbed here so callers
// only ever see fully defaulted values.
package wordpress

import (
	"bytes"
	"encoding/json"
)

// Fallback values used when the upstream embed is missing.
const (
	DefaultAuthorName    = "Unknown Author"
	DefaultAuthorAvatar  = "/author-avatar.png"
	DefaultFeaturedImage = "/blog-post-image.png"
	DefaultLink          = "#"
)

// termsIndex is the position of the tag group inside _embedded["wp:term"].
const termsIndex = 0

// Post is the normalized article record. Values are snapshots; nothing in a
// Post refers back to live upstream state.
type Post struct {
	ID            int       `json:"id"`
	Title         string    `json:"title"`
	Excerpt       string    `json:"excerpt"`
	Content       string    `json:"content"`
	Slug          string    `json:"slug"`
	Date          string    `json:"date"`
	Modified      string    `json:"modified"`
	Author        Author    `json:"author"`
	FeaturedImage Image     `json:"featuredImage"`
	Tags          []PostTag `json:"tags"`
	Link          string    `json:"link"`
}

// HasTag reports whether the post carries the tag with the given id.
func (p Post) HasTag(id int) bool {
	for _, t := range p.Tags {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Author is a denormalized author snapshot.
type Author struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// Image is a featured image reference.
type Image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// PostTag is a tag as embedded in a post.
type PostTag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Tag is a site-wide tag with its total usage count.
type Tag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// RawPost is a WordPress post as it comes off the wire. Every field is optional.
type RawPost struct {
	ID       int          `json:"id"`
	Title    Rendered     `json:"title"`
	Excerpt  Rendered     `json:"excerpt"`
	Content  Rendered     `json:"content"`
	Slug     string       `json:"slug"`
	Date     string       `json:"date"`
	Modified string       `json:"modified"`
	Link     string       `json:"link"`
	Embedded *RawEmbedded `json:"_embedded"`
}

// RawEmbedded holds the relations expanded by _embed=true.
type RawEmbedded struct {
	Author        []RawAuthor `json:"author"`
	FeaturedMedia []RawMedia  `json:"wp:featuredmedia"`
	Terms         [][]RawTerm `json:"wp:term"`
}

type RawAuthor struct {
	Name       string            `json:"name"`
	AvatarURLs map[string]string `json:"avatar_urls"`
}

type RawMedia struct {
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text"`
}

type RawTerm struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
}

type rawTag struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// Rendered accepts either {"rendered": "..."} or a bare JSON string.
type Rendered struct {
	HTML  *string
	Plain *string
}

func (r *Rendered) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		r.Plain = &s
		return nil
	case b[0] == '{':
		var obj struct {
			Rendered *string `json:"rendered"`
			Raw      *string `json:"raw"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		r.HTML = obj.Rendered
		r.Plain = obj.Raw
		return nil
	}
	// Numbers, booleans and arrays carry no text.
	return nil
}

// String prefers the rendered HTML and falls back to the raw string.
func (r Rendered) String() string {
	if r.HTML != nil && *r.HTML != "" {
		return *r.HTML
	}
	if r.Plain != nil {
		return *r.Plain
	}
	return ""
}

// Normalize maps a raw upstream post onto a Post, applying every defaulting
// rule. It is a pure function of its input.
func Normalize(raw RawPost) Post {
	title := raw.Title.String()
	p := Post{
		ID:       raw.ID,
		Title:    title,
		Excerpt:  raw.Excerpt.String(),
		Content:  ProcessContent(raw.Content.String()),
		Slug:     raw.Slug,
		Date:     raw.Date,
		Modified: raw.Modified,
		Author: Author{
			Name:   DefaultAuthorName,
			Avatar: DefaultAuthorAvatar,
		},
		FeaturedImage: Image{
			URL: DefaultFeaturedImage,
			Alt: title,
		},
		Tags: []PostTag{},
		Link: raw.Link,
	}
	if p.Link == "" {
		p.Link = DefaultLink
	}

	emb := raw.Embedded
	if emb == nil {
		return p
	}
	if len(emb.Author) > 0 {
		a := emb.Author[0]
		if a.Name != "" {
			p.Author.Name = a.Name
		}
		if avatar := a.AvatarURLs["96"]; avatar != "" {
			p.Author.Avatar = avatar
		}
	}
	if len(emb.FeaturedMedia) > 0 {
		m := emb.FeaturedMedia[0]
		if m.SourceURL != "" {
			p.FeaturedImage.URL = m.SourceURL
		}
		if m.AltText != "" {
			p.FeaturedImage.Alt = m.AltText
		}
	}
	if len(emb.Terms) > termsIndex {
		terms := emb.Terms[termsIndex]
		tags := make([]PostTag, 0, len(terms))
		for _, t := range terms {
			tags = append(tags, PostTag{ID: t.ID, Name: t.Name, Slug: t.Slug})
		}
		p.Tags = tags
	}
	return p
}

func normalizeTag(raw rawTag) Tag {
	return Tag{ID: raw.ID, Name: raw.Name, Slug: raw.Slug, Count: raw.Count}
}
