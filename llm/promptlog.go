package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// CallRecord captures one prompt/response exchange. Every pipeline LLM
// call is recorded so a draft can be traced to the exact prompts that
// produced it.
type CallRecord struct {
	RequestID  string `json:"request_id"`
	Slug       string `json:"slug,omitempty"`  // article the call belongs to
	Stage      string `json:"stage,omitempty"` // pipeline stage (outline, draft, ...)
	Capability string `json:"capability"`
	Model      string `json:"model"` // model that actually answered
	Provider   string `json:"provider"`

	Messages []Message `json:"messages"`
	Response string    `json:"response"`

	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	ContextBudget    int    `json:"context_budget,omitempty"` // model context window
	FinishReason     string `json:"finish_reason"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`

	// Retries counts extra attempts within endpoints; FallbacksUsed
	// lists the models that failed before one answered.
	Retries       int      `json:"retries"`
	FallbacksUsed []string `json:"fallbacks_used,omitempty"`

	// Error is set when the call ultimately failed.
	Error string `json:"error,omitempty"`
}

// CallRecorder persists CallRecords. Implementations must tolerate concurrent
// calls; the client invokes Record on the request goroutine.
type CallRecorder interface {
	Record(ctx context.Context, rec *CallRecord) error
}

// unscopedSlug groups records that arrive without a slug.
const unscopedSlug = "unscoped"

// PromptLog records LLM calls as JSON files grouped by slug and date:
//
//	<slug dir>/prompts/<YYYY-MM-DD>/<HHMMSS>-<stage>-<id>.json
//
// The slug directory is resolved through a caller-supplied function, so the
// log lands next to the artifacts it explains.
type PromptLog struct {
	slugDir func(slug string) string
	logger  *slog.Logger
}

// PromptLogOption configures a PromptLog.
type PromptLogOption func(*PromptLog)

// WithPromptLogLogger sets the logger.
func WithPromptLogLogger(logger *slog.Logger) PromptLogOption {
	return func(l *PromptLog) {
		l.logger = logger
	}
}

// NewPromptLog creates a prompt log. slugDir maps an article slug to the
// directory its records should live under (typically Store.SlugDir).
func NewPromptLog(slugDir func(slug string) string, opts ...PromptLogOption) *PromptLog {
	l := &PromptLog{
		slugDir: slugDir,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Record writes the call record to disk.
func (l *PromptLog) Record(ctx context.Context, rec *CallRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	slug := rec.Slug
	if slug == "" {
		slug = unscopedSlug
	}

	at := rec.StartedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	dir := filepath.Join(l.slugDir(slug), "prompts", at.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create prompt log dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	path := filepath.Join(dir, recordFileName(rec, at))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write call record: %w", err)
	}

	l.logger.Debug("Recorded LLM call",
		"path", path,
		"stage", rec.Stage,
		"model", rec.Model,
		"total_tokens", rec.TotalTokens)

	return nil
}

// recordFileName builds a sortable, collision-free file name for a record.
func recordFileName(rec *CallRecord, at time.Time) string {
	stage := rec.Stage
	if stage == "" {
		stage = rec.Capability
	}
	if stage == "" {
		stage = "call"
	}

	id := rec.RequestID
	if len(id) > 8 {
		id = id[:8]
	}
	if id == "" {
		id = "unknown"
	}

	return fmt.Sprintf("%s-%s-%s.json", at.Format("150405"), stage, id)
}
