package wordpress

import (
	"context"
	"net/http"
	"time"
)

type requestIDKey struct{}

// WithRequestID attaches the inbound request id so outbound calls can carry it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored by WithRequestID, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// loggingTransport logs every outbound call with method, URL, status and duration.
type loggingTransport struct {
	inner http.RoundTripper
	log   Logger
}

// NewLoggingTransport wraps inner (http.DefaultTransport when nil) with request logging.
func NewLoggingTransport(inner http.RoundTripper, logger Logger) http.RoundTripper {
	if inner == nil {
		inner = http.DefaultTransport
	}
	return &loggingTransport{inner: inner, log: logger}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.inner.RoundTrip(req)
	duration := time.Since(start)
	id := RequestID(req.Context())
	if err != nil {
		t.log.Warnf("wordpress: %s %s failed after %s request_id=%s: %v", req.Method, req.URL.String(), duration, id, err)
		return nil, err
	}
	t.log.Debugf("wordpress: %s %s -> %d in %s request_id=%s", req.Method, req.URL.String(), resp.StatusCode, duration, id)
	return resp, nil
}
