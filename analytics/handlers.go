package analytics

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Handler serves the collect and stats endpoints.
type Handler struct {
	store          *Store
	recorder       *Recorder
	visitorID      func(echo.Context) string
	collectLimiter *rateLimiter
}

// NewHandler creates a Handler. visitorID resolves the session visitor id and
// may be nil. The collect endpoint is limited to 60 requests per IP per minute.
func NewHandler(store *Store, recorder *Recorder, visitorID func(echo.Context) string) *Handler {
	return &Handler{
		store:          store,
		recorder:       recorder,
		visitorID:      visitorID,
		collectLimiter: newRateLimiter(60, time.Minute),
	}
}

// Close stops the limiter's cleanup goroutine.
func (h *Handler) Close() {
	h.collectLimiter.stop()
}

// CollectRequest is the body browsers post to the collect endpoint.
type CollectRequest struct {
	Name     string            `json:"name"`
	Path     string            `json:"path"`
	Referrer string            `json:"referrer"`
	Props    map[string]string `json:"props"`
}

// Input validation limits for the collect endpoint.
const (
	maxPathLen     = 2048
	maxReferrerLen = 2048
	maxProps       = 8
	maxPropLen     = 256
)

func validateCollectRequest(req *CollectRequest) error {
	if !clientEvents[req.Name] {
		return fmt.Errorf("event %q is not accepted from clients", req.Name)
	}
	if len(req.Path) > maxPathLen {
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	}
	if len(req.Referrer) > maxReferrerLen {
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	}
	if len(req.Props) > maxProps {
		return fmt.Errorf("more than %d props", maxProps)
	}
	for k, v := range req.Props {
		if len(k) > maxPropLen || len(v) > maxPropLen {
			return fmt.Errorf("prop %q exceeds maximum length of %d", k, maxPropLen)
		}
	}
	return nil
}

// Collect records a client-side event.
func (h *Handler) Collect(c echo.Context) error {
	if !h.collectLimiter.allow(c.RealIP()) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := validateCollectRequest(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	v := Visitor{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Path:      req.Path,
		Referrer:  req.Referrer,
	}
	if h.visitorID != nil {
		v.ID = h.visitorID(c)
	}
	ctx := WithVisitor(c.Request().Context(), v)
	h.recorder.Record(ctx, req.Name, req.Props)
	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON body of the stats endpoint.
type StatsResponse struct {
	Stats      *Stats `json:"stats"`
	Realtime   int    `json:"realtime_visitors"`
	PeriodDays int    `json:"period_days"`
}

// GetStats returns aggregated statistics as JSON.
func (h *Handler) GetStats(c echo.Context) error {
	days := parsePeriod(c.QueryParam("period"))
	from, to := calcTimeRange(time.Now().UTC(), days)

	ctx := c.Request().Context()
	stats, err := h.store.GetStats(ctx, from, to)
	if err != nil {
		c.Logger().Errorf("Failed to get stats: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	realtime, err := h.store.RealtimeVisitors(ctx)
	if err != nil {
		c.Logger().Warnf("Failed to count realtime visitors: %v", err)
	}
	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Realtime:   realtime,
		PeriodDays: days,
	})
}

// parsePeriod maps the period query parameter to a number of days.
func parsePeriod(period string) int {
	switch period {
	case "today":
		return 1
	case "month":
		return 30
	case "year":
		return 365
	default:
		return 7
	}
}

// calcTimeRange returns [from, to) covering the last days whole days up to
// the end of today.
func calcTimeRange(now time.Time, days int) (time.Time, time.Time) {
	to := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	from := to.AddDate(0, 0, -days)
	return from, to
}

// BearerAuth rejects requests whose Authorization header does not carry token.
// An empty token disables the protected routes entirely.
func BearerAuth(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return echo.ErrNotFound
			}
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}

// RegisterRoutes mounts the public collect endpoint and the token-protected
// stats endpoint.
func (h *Handler) RegisterRoutes(e *echo.Echo, statsToken string) {
	e.POST("/api/analytics/collect", h.Collect)
	e.GET("/api/analytics/stats", h.GetStats, BearerAuth(statsToken))
}
