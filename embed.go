package wpfront

import (
	"bytes"
	"embed"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// EmbeddedAssets contains files shipped with the binary: the analytics
// beacon, the narration player and the privacy policy source.
//
//go:embed embedded/analytics.js embedded/narration.js content/privacy.md
var EmbeddedAssets embed.FS

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// renderPrivacyPolicy converts the embedded privacy policy to HTML.
func renderPrivacyPolicy() (string, error) {
	src, err := EmbeddedAssets.ReadFile("content/privacy.md")
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := markdown.Convert(src, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (a *App) handleEmbeddedAsset(name, contentType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := EmbeddedAssets.ReadFile(name)
		if err != nil {
			return echo.ErrNotFound
		}
		return c.Blob(http.StatusOK, contentType, b)
	}
}
