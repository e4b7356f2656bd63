package wpfront

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/image/draw"
)

const (
	maxThumbWidth     = 1200
	defaultThumbWidth = 640
	jpegQuality       = 80
	maxSourceSize     = 10 << 20 // 10MB
	thumbCacheSize    = 256
)

// thumbnailer fetches remote featured images from allowed hosts and scales
// them down to the requested width. Results are kept in a small in-memory
// cache keyed by source and width.
type thumbnailer struct {
	hosts  map[string]bool
	client *http.Client

	mu    sync.Mutex
	cache map[string][]byte
	order []string
}

func newThumbnailer(hosts []string, timeout time.Duration) *thumbnailer {
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}
	return &thumbnailer{
		hosts:  allowed,
		client: &http.Client{Timeout: timeout},
		cache:  make(map[string][]byte),
	}
}

// allowed reports whether src is an http(s) URL on an allowed host, counting
// subdomains of an allowed host.
func (t *thumbnailer) allowed(src string) bool {
	u, err := url.Parse(src)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for h := range t.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func (t *thumbnailer) cached(key string) ([]byte, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.cache[key]
	return b, ok
}

func (t *thumbnailer) store(key string, b []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.cache[key]; ok {
		return
	}
	if len(t.order) == thumbCacheSize {
		delete(t.cache, t.order[0])
		t.order = t.order[1:]
	}
	t.cache[key] = b
	t.order = append(t.order, key)
}

// thumbnail returns the JPEG encoded thumbnail of src at most width pixels wide.
func (t *thumbnailer) thumbnail(ctx context.Context, src string, width int) ([]byte, error) {
	key := strconv.Itoa(width) + "|" + src
	if b, ok := t.cached(key); ok {
		return b, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	b, err := resizeImage(io.LimitReader(resp.Body, maxSourceSize), width)
	if err != nil {
		return nil, err
	}
	t.store(key, b)
	return b, nil
}

// resizeImage decodes an image from src, scales it down to width when it is
// wider, and encodes it as JPEG.
func resizeImage(src io.Reader, width int) ([]byte, error) {
	img, _, err := image.Decode(src)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > width {
		newH := max(1, h*width/w)
		dst := image.NewRGBA(image.Rect(0, 0, width, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func parseThumbWidth(s string) int {
	w, err := strconv.Atoi(s)
	if err != nil || w <= 0 {
		return defaultThumbWidth
	}
	return min(w, maxThumbWidth)
}

// handleThumb serves a resized featured image. Sources outside the allowlist
// are rejected; sources that fail to load redirect to the original so the
// page still shows an image.
func (a *App) handleThumb(c echo.Context) error {
	src := c.QueryParam("src")
	if !a.Config.Thumbnails || !a.thumbs.allowed(src) {
		return echo.NewHTTPError(http.StatusBadRequest, "image source not allowed")
	}
	b, err := a.thumbs.thumbnail(c.Request().Context(), src, parseThumbWidth(c.QueryParam("w")))
	if err != nil {
		c.Logger().Warnf("thumbnail %s: %v", src, err)
		return c.Redirect(http.StatusFound, src)
	}
	return c.Blob(http.StatusOK, "image/jpeg", b)
}
