package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/draftforge/draftforge/artifact"
)

// maxFetchSize caps provider response bodies to prevent memory exhaustion.
const maxFetchSize = 10 * 1024 * 1024 // 10MB

// defaultUserAgent identifies us to provider endpoints and competitor sites.
const defaultUserAgent = "draftforge/1.0 (+https://github.com/draftforge/draftforge)"

// Base bundles the shared transport concerns of every adapter: a pooled HTTP
// client, minimum-interval pacing between live calls, and logging. Adapters
// embed behavior by composition, each with its own Base so rate limits never
// require cross-stage coordination.
type Base struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	userAgent  string
}

// BaseOption configures a Base.
type BaseOption func(*Base)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) BaseOption {
	return func(b *Base) {
		b.httpClient = c
	}
}

// WithMinInterval sets the minimum spacing between successive live calls.
// Zero disables pacing.
func WithMinInterval(d time.Duration) BaseOption {
	return func(b *Base) {
		if d > 0 {
			b.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			b.limiter = nil
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BaseOption {
	return func(b *Base) {
		b.logger = logger
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) BaseOption {
	return func(b *Base) {
		b.userAgent = ua
	}
}

// NewBase creates a Base with a 30s timeout client and 1s pacing.
func NewBase(opts ...BaseOption) *Base {
	b := &Base{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter:   rate.NewLimiter(rate.Every(time.Second), 1),
		logger:    slog.Default(),
		userAgent: defaultUserAgent,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Logger returns the configured logger.
func (b *Base) Logger() *slog.Logger {
	return b.logger
}

// Do paces, executes, and reads an HTTP request. Non-2xx statuses and
// transport failures come back as transport errors for the given kind.
func (b *Base) Do(ctx context.Context, kind artifact.Kind, req *http.Request) ([]byte, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, transportErr(kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return nil, transportErr(kind, fmt.Errorf("read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		return nil, transportErr(kind, fmt.Errorf("status %d: %s", resp.StatusCode, preview))
	}

	return body, nil
}

// FetchJSON executes a request and requires a valid JSON body.
func (b *Base) FetchJSON(ctx context.Context, kind artifact.Kind, req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Accept", "application/json")

	body, err := b.Do(ctx, kind, req)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, schemaErr(kind, fmt.Errorf("response is not valid JSON"))
	}

	return json.RawMessage(body), nil
}

// requireObject rejects payloads that are not JSON objects with at least one
// key. Research payloads are stored verbatim; this is the only structural
// contract the pipeline relies on for metrics and question payloads.
func requireObject(kind artifact.Kind, raw json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return schemaErr(kind, fmt.Errorf("payload is not a JSON object: %w", err))
	}
	if len(obj) == 0 {
		return schemaErr(kind, fmt.Errorf("payload object is empty"))
	}
	return nil
}
