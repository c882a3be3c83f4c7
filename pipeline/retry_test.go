package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/provider"
	"github.com/draftforge/draftforge/seo"
)

func testRetryPipeline(maxRetries int) *Pipeline {
	cfg := config.DefaultConfig()
	cfg.Providers.MaxRetries = maxRetries
	return &Pipeline{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"store", &artifact.StoreError{Op: "put", Slug: "s", Err: errors.New("disk full")}, false},
		{"validation", artifact.NewValidationError("outline", errors.New("no sections")), false},
		{"provider schema", &provider.Error{Kind: artifact.KindSERP, Reason: provider.ReasonSchema, Err: errors.New("bad shape")}, false},
		{"provider transport", &provider.Error{Kind: artifact.KindSERP, Reason: provider.ReasonTransport, Err: errors.New("connection reset")}, true},
		{"truncation", &enhance.TruncationError{Heading: "Setup", Chars: 9000}, true},
		{"generic", errors.New("flaky"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := retryable(tc.err); got != tc.want {
				t.Fatalf("retryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "cancelled"},
		{&artifact.StoreError{Op: "put", Slug: "s", Err: errors.New("x")}, "artifact-store"},
		{artifact.NewValidationError("draft", errors.New("x")), "validation"},
		{&seo.BudgetExhaustedError{Best: 70, Target: 85, Iterations: 3}, "score-budget-exhausted"},
		{&provider.Error{Kind: artifact.KindPAA, Reason: provider.ReasonTransport, Err: errors.New("x")}, "provider-transport"},
		{&provider.Error{Kind: artifact.KindResearch, Reason: provider.ReasonCredential, Err: errors.New("x")}, "provider-credential"},
		{fmt.Errorf("stage: %w", &enhance.TruncationError{Heading: "Setup", Chars: 9000}), "truncation"},
		{errors.New("anything else"), "internal"},
	}
	for _, tc := range cases {
		if got := errorKind(tc.err); got != tc.want {
			t.Errorf("errorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRemediation(t *testing.T) {
	credErr := &provider.Error{Kind: artifact.KindResearch, Reason: provider.ReasonCredential, Err: errors.New("missing key")}
	hints := remediation(credErr)
	if len(hints) != 1 {
		t.Fatalf("hints = %v, want one", hints)
	}
	if want := "set " + config.EnvLLMResearchKey; hints[0] != want {
		t.Fatalf("hint = %q, want %q", hints[0], want)
	}

	budget := &seo.BudgetExhaustedError{Best: 70, Target: 85, Iterations: 3}
	hints = remediation(budget)
	if len(hints) != 1 || hints[0] != "increase pipeline.max_iterations or lower --min-score" {
		t.Fatalf("budget hints = %v", hints)
	}

	if hints := remediation(errors.New("mystery")); len(hints) != 0 {
		t.Fatalf("generic error should carry no hints, got %v", hints)
	}
}

func TestStageDeps(t *testing.T) {
	if deps := stageDeps(artifact.KindSERP, Options{}); deps != nil {
		t.Fatalf("provider stage deps = %v, want none", deps)
	}
	if deps := stageDeps(artifact.KindIntent, Options{SkipIntent: true}); deps != nil {
		t.Fatalf("skip-intent deps = %v, want none", deps)
	}

	deps := stageDeps(artifact.KindBundle, Options{})
	if len(deps) != 4 || deps[3] != artifact.KindImageSet {
		t.Fatalf("bundle deps = %v", deps)
	}
	deps = stageDeps(artifact.KindBundle, Options{SkipImage: true})
	for _, d := range deps {
		if d == artifact.KindImageSet {
			t.Fatal("skip-image bundle must not depend on the image set")
		}
	}
}

func TestTransitions(t *testing.T) {
	if got := transitions(Options{}); len(got) != 7 || got[len(got)-1] != artifact.KindBundle {
		t.Fatalf("default transitions = %v", got)
	}
	got := transitions(Options{IntentOnly: true})
	if len(got) != 2 || got[1] != artifact.KindIntent {
		t.Fatalf("intent-only transitions = %v", got)
	}
	for _, kind := range transitions(Options{SkipImage: true}) {
		if kind == artifact.KindImageSet {
			t.Fatal("skip-image transitions must not include the image set")
		}
	}
}

func TestWithRetry_StopsOnSuccess(t *testing.T) {
	p := testRetryPipeline(3)
	calls := 0
	attempts, err := p.withRetry(context.Background(), artifact.KindSERP, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || attempts != 1 || calls != 1 {
		t.Fatalf("attempts=%d calls=%d err=%v", attempts, calls, err)
	}
}

func TestWithRetry_FatalErrorStopsImmediately(t *testing.T) {
	p := testRetryPipeline(3)
	fatal := artifact.NewValidationError("draft", errors.New("broken"))
	calls := 0
	attempts, err := p.withRetry(context.Background(), artifact.KindDraft, func(context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) && err != fatal {
		t.Fatalf("err = %v", err)
	}
	if attempts != 1 || calls != 1 {
		t.Fatalf("attempts=%d calls=%d", attempts, calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	p := testRetryPipeline(2)
	flaky := errors.New("flaky")
	calls := 0
	attempts, err := p.withRetry(context.Background(), artifact.KindSERP, func(context.Context) error {
		calls++
		return flaky
	})
	if !errors.Is(err, flaky) {
		t.Fatalf("err = %v", err)
	}
	if attempts != 2 || calls != 2 {
		t.Fatalf("attempts=%d calls=%d", attempts, calls)
	}
}

func TestWithRetry_CancelledBeforeFirstAttempt(t *testing.T) {
	p := testRetryPipeline(3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	attempts, err := p.withRetry(ctx, artifact.KindSERP, func(context.Context) error {
		t.Fatal("fn must not run")
		return nil
	})
	if attempts != 0 || !errors.Is(err, context.Canceled) {
		t.Fatalf("attempts=%d err=%v", attempts, err)
	}
}
