package views

import (
	"encoding/json"

	"github.com/eringen/wpfront/wordpress"
)

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	if cfg.Author != "" {
		data["author"] = map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		}
	}
	return marshalJSONLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a post.
func BlogPostingJsonLD(cfg SiteConfig, post wordpress.Post) string {
	postURL := AbsPostURL(cfg, post.Slug)
	data := map[string]interface{}{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      PlainText(post.Title),
		"description":   Excerpt(post.Excerpt),
		"datePublished": post.Date,
		"dateModified":  post.Modified,
		"image":         post.FeaturedImage.URL,
		"url":           postURL,
		"author": map[string]string{
			"@type": "Person",
			"name":  FormatAuthorName(post.Author),
		},
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if len(post.Tags) > 0 {
		names := make([]string, len(post.Tags))
		for i, t := range post.Tags {
			names[i] = t.Name
		}
		data["keywords"] = names
	}
	return marshalJSONLD(data)
}

// json.Marshal escapes <, > and & so the output is safe inside <script>.
func marshalJSONLD(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
