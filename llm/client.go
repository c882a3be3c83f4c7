// Package llm sends completion requests to language model endpoints.
// Callers name a capability rather than a model; the registry resolves
// the capability to a preference-ordered endpoint chain, and the client
// walks that chain with per-endpoint retry. A CallRecorder, when
// configured, keeps a prompt/response audit trail per article.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/draftforge/draftforge/model"
	"github.com/google/uuid"
)

// maxResponseBytes caps how much of a response body the client reads.
const maxResponseBytes = 10 << 20

// Completer is the one-method surface pipeline stages call.
// testutil.MockLLMClient implements it for tests.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client resolves capabilities through a model registry and completes
// requests against the resolved endpoints, falling back down the chain
// when one fails.
type Client struct {
	registry    *model.Registry
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger

	// recorder persists prompt/response exchanges when set. nil
	// disables call recording.
	recorder CallRecorder
}

// Message is one turn of a chat exchange.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// Request describes one completion call.
type Request struct {
	// Capability names the kind of work ("research", "writing",
	// "fast", ...). The registry maps it to concrete models.
	Capability string

	// Slug is the article this call belongs to. Only call recording
	// reads it; empty slugs land in an "unscoped" directory.
	Slug string

	// Stage is the pipeline stage making the call ("outline",
	// "draft", ...). Only call recording reads it.
	Stage string

	// Messages is the chat history sent to the model.
	Messages []Message

	// Temperature controls sampling randomness. nil takes the
	// endpoint default, 0 is deterministic.
	Temperature *float64

	// MaxTokens caps the response length. 0 takes the endpoint default.
	MaxTokens int
}

// TokenUsage reports token consumption for one call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the result of a completion call.
type Response struct {
	// RequestID correlates this call with its audit record. Complete
	// sets it so callers can thread it into provenance.
	RequestID string

	// Content is the generated text.
	Content string

	// Model is the model that actually answered.
	Model string

	// Usage reports token consumption.
	Usage TokenUsage

	// FinishReason is the endpoint's reason generation stopped.
	FinishReason string
}

// Truncated reports whether the response was cut off at the token limit
// instead of finishing naturally. OpenAI-compatible endpoints report
// "length", Anthropic reports "max_tokens".
func (r *Response) Truncated() bool {
	return r.FinishReason == "length" || r.FinishReason == "max_tokens"
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig replaces the default retry settings.
func WithRetryConfig(cfg RetryConfig) ClientOption {
	return func(client *Client) {
		client.retryConfig = cfg
	}
}

// WithLogger replaces the default logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// WithRecorder enables prompt auditing. Every call is recorded with
// timing and token usage.
func WithRecorder(r CallRecorder) ClientOption {
	return func(client *Client) {
		client.recorder = r
	}
}

// NewClient builds a client around the given model registry, with
// default retry settings and a three minute HTTP timeout. A nil
// registry falls back to model.Global.
func NewClient(registry *model.Registry, opts ...ClientOption) *Client {
	if registry == nil {
		registry = model.Global()
	}
	c := &Client{
		registry:    registry,
		retryConfig: DefaultRetryConfig(),
		httpClient:  &http.Client{Timeout: 180 * time.Second},
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete resolves the request's capability to an endpoint chain and
// walks it until one endpoint answers. Transient failures retry on the
// same endpoint before falling through to the next; fatal failures stop
// the walk immediately.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Capability == "" {
		return nil, fmt.Errorf("capability is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("at least one message is required")
	}

	capability := model.ParseCapability(req.Capability)
	if capability == "" {
		// Unknown capabilities route to the cheap tier rather than failing.
		capability = model.CapabilityFast
	}
	chain := c.registry.GetAvailableFallbackChain(capability)
	if len(chain) == 0 {
		return nil, fmt.Errorf("no models configured for capability %s", req.Capability)
	}

	rec := CallRecord{
		RequestID:  uuid.New().String(),
		Slug:       req.Slug,
		Stage:      req.Stage,
		Capability: req.Capability,
		Messages:   req.Messages,
		StartedAt:  time.Now(),
	}

	var (
		lastErr   error
		fallbacks []string
		retries   int
	)

	for _, name := range chain {
		endpoint := c.registry.GetEndpoint(name)
		if endpoint == nil || !c.registry.IsEndpointAvailable(name) {
			c.logger.Debug("Skipping unavailable model", "model", name)
			continue
		}

		resp, attempts, err := c.attemptModel(ctx, endpoint, name, req)
		retries += attempts - 1 // the first attempt is not a retry

		if err == nil {
			resp.RequestID = rec.RequestID

			rec.Model = resp.Model
			rec.Provider = endpoint.Provider
			rec.Response = resp.Content
			rec.PromptTokens = resp.Usage.PromptTokens
			rec.CompletionTokens = resp.Usage.CompletionTokens
			rec.TotalTokens = resp.Usage.TotalTokens
			rec.FinishReason = resp.FinishReason
			rec.Retries = retries
			rec.FallbacksUsed = fallbacks
			rec.ContextBudget = endpoint.MaxTokens
			c.logCall(ctx, &rec)

			return resp, nil
		}

		fallbacks = append(fallbacks, name)
		lastErr = err

		if IsFatal(err) {
			// Auth and malformed-request failures would repeat on
			// every endpoint in the chain. Stop here.
			c.logger.Warn("Fatal endpoint error, not trying fallbacks",
				"model", name,
				"error", err)

			rec.Model = name
			rec.Provider = endpoint.Provider
			rec.Error = err.Error()
			rec.Retries = retries
			rec.FallbacksUsed = fallbacks
			rec.ContextBudget = endpoint.MaxTokens
			c.logCall(ctx, &rec)

			return nil, err
		}

		c.logger.Warn("Endpoint failed, trying fallback",
			"model", name,
			"provider", endpoint.Provider,
			"error", err)
	}

	rec.Error = fmt.Sprintf("all endpoints failed: %v", lastErr)
	rec.Retries = retries
	rec.FallbacksUsed = fallbacks
	c.logCall(ctx, &rec)

	return nil, fmt.Errorf("all endpoints failed for capability %s: %w", req.Capability, lastErr)
}

// logCall stamps completion timing on the record and hands it to the
// recorder. Recorder failures never fail the LLM call itself.
func (c *Client) logCall(ctx context.Context, rec *CallRecord) {
	if c.recorder == nil {
		return
	}
	rec.CompletedAt = time.Now()
	rec.DurationMs = rec.CompletedAt.Sub(rec.StartedAt).Milliseconds()

	if err := c.recorder.Record(ctx, rec); err != nil {
		c.logger.Warn("Recording LLM call failed",
			"request_id", rec.RequestID,
			"slug", rec.Slug,
			"stage", rec.Stage,
			"error", err)
	}
}

// attemptModel runs the retry loop against one endpoint. The attempt
// count comes back with the result so the caller can account retries
// across fallbacks.
func (c *Client) attemptModel(ctx context.Context, ep *model.EndpointConfig, name string, req Request) (*Response, int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		resp, err := c.callEndpoint(ctx, ep, req)
		if err == nil {
			c.registry.MarkEndpointSuccess(name)
			return resp, attempt, nil
		}
		lastErr = err

		// Fatal errors say nothing about endpoint health. Leave the
		// circuit alone and bail.
		if IsFatal(err) {
			return nil, attempt, err
		}

		if attempt == c.retryConfig.MaxAttempts {
			break
		}

		wait := c.backoffFor(attempt)
		c.logger.Debug("Request failed, retrying",
			"attempt", attempt,
			"max_attempts", c.retryConfig.MaxAttempts,
			"backoff", wait,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, attempt, ctx.Err()
		case <-time.After(wait):
		}
	}

	c.registry.MarkEndpointFailure(name)
	return nil, c.retryConfig.MaxAttempts, lastErr
}

// backoffFor returns the wait before the next attempt: exponential in
// the attempt number, capped at MaxBackoff, with +/-25% jitter so
// concurrent clients do not retry in lockstep.
func (c *Client) backoffFor(attempt int) time.Duration {
	scale := math.Pow(c.retryConfig.BackoffMultiplier, float64(attempt-1))
	wait := time.Duration(float64(c.retryConfig.BackoffBase) * scale)
	wait = min(wait, c.retryConfig.MaxBackoff)

	jitter := float64(wait) * 0.25 * (rand.Float64()*2 - 1)
	return wait + time.Duration(jitter)
}

// callEndpoint performs one HTTP round trip against an endpoint and
// parses the provider-specific response.
func (c *Client) callEndpoint(ctx context.Context, ep *model.EndpointConfig, req Request) (*Response, error) {
	provider := GetProvider(ep.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", ep.Provider))
	}

	body, err := provider.BuildRequestBody(ep.Model, req.Messages, req.Temperature, req.MaxTokens)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}
	url := provider.BuildURL(ep.URL)

	c.logger.Debug("Sending LLM request",
		"provider", ep.Provider,
		"model", ep.Model,
		"url", url,
		"messages", len(req.Messages))

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	hreq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(hreq)

	hresp, err := c.httpClient.Do(hreq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer hresp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(hresp.Body, maxResponseBytes))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}
	if hresp.StatusCode != http.StatusOK {
		return nil, statusError(hresp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, ep.Model)
}

// statusError classifies a non-200 response. Rate limiting and server
// errors are worth retrying; everything else, auth and malformed
// requests included, would fail the same way again.
func statusError(code int, body []byte) error {
	detail := string(body)
	if len(detail) > 200 {
		detail = detail[:200] + "..."
	}
	err := fmt.Errorf("LLM API error (status %d): %s", code, detail)

	if code == http.StatusTooManyRequests || code >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}
