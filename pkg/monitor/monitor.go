// Package monitor is a small error-capture SDK. It forwards handled errors
// and recovered panics, together with the request that caused them, to an
// external error-monitoring endpoint.
//
//	if err := monitor.Init(monitor.Config{APIKey: key, Endpoint: url}); err != nil {
//	    log.Fatal(err)
//	}
//	handler = monitor.Wrap(handler)
//
// Forwarding is asynchronous and never changes the wrapped handler's
// response. Call Flush before exiting to wait for in-flight reports.
package monitor

import (
	"context"
	"errors"
	"fmt"
	gohttp "net/http"
	"net/url"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shashiranjanraj/faultline/config"
	fhttp "github.com/shashiranjanraj/faultline/pkg/http"
	"github.com/shashiranjanraj/faultline/pkg/logger"
	"github.com/shashiranjanraj/faultline/pkg/metrics"
	"github.com/shashiranjanraj/faultline/pkg/reqid"
)

// Config configures a Client. APIKey and Endpoint are required.
type Config struct {
	APIKey      string
	Endpoint    string
	ProjectID   string
	Environment string
	Release     string

	Timeout    time.Duration  // per forward attempt, default 5s
	HTTPClient *gohttp.Client // nil uses pkg/http.DefaultClient
}

// ConfigFromEnv reads MONITOR_* keys.
func ConfigFromEnv() Config {
	return Config{
		APIKey:      config.Get("MONITOR_API_KEY", ""),
		Endpoint:    config.Get("MONITOR_ENDPOINT", ""),
		ProjectID:   config.Get("MONITOR_PROJECT_ID", ""),
		Environment: config.AppEnv(),
	}
}

// Enabled reports whether cfg carries enough to build a Client.
func (cfg Config) Enabled() bool {
	return cfg.APIKey != "" && cfg.Endpoint != ""
}

var (
	ErrMissingAPIKey   = errors.New("monitor: api key is required")
	ErrInvalidEndpoint = errors.New("monitor: endpoint must be an http(s) URL")
)

// Client forwards events. A nil *Client is valid and does nothing.
type Client struct {
	cfg      Config
	inflight sync.WaitGroup
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Client{cfg: cfg}, nil
}

// IsInitialized reports whether c can forward events.
func (c *Client) IsInitialized() bool { return c != nil }

// ─── Events ───────────────────────────────────────────────────────────────────

// Event is the JSON payload posted to the endpoint.
type Event struct {
	EventID     string            `json:"eventId"`
	ProjectID   string            `json:"projectId,omitempty"`
	Environment string            `json:"environment,omitempty"`
	Release     string            `json:"release,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Level       string            `json:"level"`
	Exception   Exception         `json:"exception"`
	Request     *RequestInfo      `json:"request,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
}

type Exception struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Stacktrace string `json:"stacktrace,omitempty"`
}

type RequestInfo struct {
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
	ClientIP  string            `json:"clientIp,omitempty"`
}

var redacted = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
	"X-Api-Key":     true,
}

func describeRequest(ctx context.Context, r *gohttp.Request) *RequestInfo {
	if r == nil {
		return nil
	}
	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		if redacted[gohttp.CanonicalHeaderKey(k)] {
			headers[k] = "[redacted]"
			continue
		}
		headers[k] = strings.Join(v, ", ")
	}

	id := reqid.FromCtx(ctx)
	if id == "" {
		id = reqid.FromCtx(r.Context())
	}

	return &RequestInfo{
		Method:    r.Method,
		URL:       r.URL.String(),
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		Headers:   headers,
		RequestID: id,
		ClientIP:  clientIP(r),
	}
}

func clientIP(r *gohttp.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// rootType names the innermost wrapped error type, which is more useful in
// a dashboard than *fmt.wrapError.
func rootType(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

func (c *Client) newEvent(level string, exc Exception, req *RequestInfo) Event {
	return Event{
		EventID:     uuid.NewString(),
		ProjectID:   c.cfg.ProjectID,
		Environment: c.cfg.Environment,
		Release:     c.cfg.Release,
		Timestamp:   time.Now().UTC(),
		Level:       level,
		Exception:   exc,
		Request:     req,
	}
}

// Capture forwards err in the background and returns the event id, or ""
// when c is nil or err is nil. r may be nil for errors outside a request.
func (c *Client) Capture(ctx context.Context, err error, r *gohttp.Request) string {
	if c == nil || err == nil {
		return ""
	}
	ev := c.newEvent("error", Exception{
		Type:    rootType(err),
		Message: err.Error(),
	}, describeRequest(ctx, r))
	c.dispatch(ctx, ev)
	return ev.EventID
}

// CapturePanic forwards a recovered panic value with its stack.
func (c *Client) CapturePanic(ctx context.Context, recovered any, stack []byte, r *gohttp.Request) string {
	if c == nil {
		return ""
	}
	ev := c.newEvent("fatal", Exception{
		Type:       "panic",
		Message:    fmt.Sprint(recovered),
		Stacktrace: string(stack),
	}, describeRequest(ctx, r))
	c.dispatch(ctx, ev)
	return ev.EventID
}

func (c *Client) dispatch(ctx context.Context, ev Event) {
	// The request context is cancelled as soon as the response is written;
	// the forward has to outlive it.
	base := context.WithoutCancel(ctx)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		if err := c.Send(base, ev); err != nil {
			logger.WithCtx(ctx).Warn("monitor: forward failed", "event_id", ev.EventID, "error", err)
		}
	}()
}

// Send posts ev synchronously with one retry.
func (c *Client) Send(ctx context.Context, ev Event) error {
	if c == nil {
		return nil
	}
	req := fhttp.Post(c.cfg.Endpoint).
		Header("X-Api-Key", c.cfg.APIKey).
		Body(ev).
		Timeout(c.cfg.Timeout).
		Retry(2, 200*time.Millisecond).
		WithContext(ctx)
	if c.cfg.HTTPClient != nil {
		req = req.Using(c.cfg.HTTPClient)
	}

	resp, err := req.Send()
	if err == nil {
		err = resp.Throw()
	}
	if err != nil {
		metrics.MonitorEvents.WithLabelValues("failed").Inc()
		return err
	}
	metrics.MonitorEvents.WithLabelValues("sent").Inc()
	return nil
}

// Flush waits until every queued forward has finished or ctx is done.
func (c *Client) Flush(ctx context.Context) error {
	if c == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ─── HTTP integration ─────────────────────────────────────────────────────────

type ctxKey struct{}

// NewContext returns ctx carrying c.
func NewContext(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the Client installed by Wrap, falling back to the
// process default. The result may be nil.
func FromContext(ctx context.Context) *Client {
	if c, ok := ctx.Value(ctxKey{}).(*Client); ok && c != nil {
		return c
	}
	return Default()
}

// Wrap installs c in every request context and reports panics before
// re-raising them for the outer recovery middleware. A nil c returns next
// unchanged.
func (c *Client) Wrap(next gohttp.Handler) gohttp.Handler {
	if c == nil {
		return next
	}
	return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		r = r.WithContext(NewContext(r.Context(), c))
		defer func() {
			if rec := recover(); rec != nil {
				if rec != gohttp.ErrAbortHandler {
					c.CapturePanic(r.Context(), rec, debug.Stack(), r)
				}
				panic(rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ─── Process default ──────────────────────────────────────────────────────────

var (
	defaultMu     sync.RWMutex
	defaultClient *Client
)

// Init builds the process default client from cfg.
func Init(cfg Config) error {
	c, err := New(cfg)
	if err != nil {
		return err
	}
	SetDefault(c)
	return nil
}

// SetDefault replaces the process default; nil disables it.
func SetDefault(c *Client) {
	defaultMu.Lock()
	defaultClient = c
	defaultMu.Unlock()
}

// Default returns the process default client, possibly nil.
func Default() *Client {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultClient
}

// IsInitialized reports whether Init has succeeded.
func IsInitialized() bool { return Default() != nil }

// Wrap is Client.Wrap on the process default, resolved per request so Init
// may run after the handler is built.
func Wrap(next gohttp.Handler) gohttp.Handler {
	return gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		Default().Wrap(next).ServeHTTP(w, r)
	})
}

// Capture forwards err through the client in ctx or the process default.
func Capture(ctx context.Context, err error, r *gohttp.Request) string {
	return FromContext(ctx).Capture(ctx, err, r)
}
