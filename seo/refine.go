package seo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
)

const (
	defaultMinScore      = 85
	defaultMaxIterations = 3

	// maxStagnantRounds ends refinement after this many consecutive
	// revisions that fail to beat the best composite.
	maxStagnantRounds = 2

	// deficitLimit caps how many rubric failures a revision prompt names.
	deficitLimit = 3
)

// IterationScore records how one revision graded.
type IterationScore struct {
	Iteration   int     `json:"iteration"`
	Composite   int     `json:"composite"`
	Readability float64 `json:"readability"`
}

// Result is the scored-draft payload: the best revision, its report, the
// terminal iteration counter, and the score of every iteration along the
// way.
type Result struct {
	Draft     *enhance.Draft   `json:"draft"`
	Report    *Report          `json:"report"`
	Iteration int              `json:"iteration"`
	History   []IterationScore `json:"history"`
}

// Refiner revises a draft until its composite score clears the floor.
type Refiner struct {
	completer     llm.Completer
	logger        *slog.Logger
	minScore      int
	maxIterations int
}

// RefinerOption configures a Refiner.
type RefinerOption func(*Refiner)

// WithMinScore sets the composite score floor.
func WithMinScore(score int) RefinerOption {
	return func(r *Refiner) {
		if score >= 1 && score <= 100 {
			r.minScore = score
		}
	}
}

// WithMaxIterations caps the number of revision rounds.
func WithMaxIterations(n int) RefinerOption {
	return func(r *Refiner) {
		if n > 0 {
			r.maxIterations = n
		}
	}
}

// WithRefinerLogger sets the logger.
func WithRefinerLogger(logger *slog.Logger) RefinerOption {
	return func(r *Refiner) {
		r.logger = logger
	}
}

// NewRefiner creates a score-driven draft refiner.
func NewRefiner(completer llm.Completer, opts ...RefinerOption) *Refiner {
	r := &Refiner{
		completer:     completer,
		logger:        slog.Default(),
		minScore:      defaultMinScore,
		maxIterations: defaultMaxIterations,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

const refinerSystemPrompt = `You are an editor improving an article's search performance without damaging its voice. You always return the complete revised article as a single JSON object, never prose.`

// Refine scores the draft and revises it until the composite clears the
// floor, the iteration budget runs out, or revisions stop improving. The
// returned result always holds the best-scoring revision; when that best
// still sits below the floor, the error is a BudgetExhaustedError and the
// result remains valid.
func (r *Refiner) Refine(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, draft *enhance.Draft) (*Result, error) {
	ideal := 0
	if profile != nil {
		ideal = profile.IdealWordCount
	}

	current := draft
	report := Score(enhance.Render(current), kw, ideal)

	best := struct {
		draft  *enhance.Draft
		report *Report
	}{current, report}
	history := []IterationScore{{Iteration: 0, Composite: report.Composite, Readability: report.Readability}}

	stagnant := 0
	iter := 0
	for report.Composite < r.minScore && iter < r.maxIterations {
		iter++

		revised, err := r.revise(ctx, kw, current, report)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.logger.Warn("Revision failed, keeping best draft",
				"slug", kw.Slug,
				"iteration", iter,
				"error", err)
			break
		}

		revisedReport := Score(enhance.Render(revised), kw, ideal)
		history = append(history, IterationScore{
			Iteration:   iter,
			Composite:   revisedReport.Composite,
			Readability: revisedReport.Readability,
		})
		r.logger.Info("Draft revised",
			"slug", kw.Slug,
			"iteration", iter,
			"composite", revisedReport.Composite,
			"readability", revisedReport.Readability)

		if revisedReport.Composite > best.report.Composite {
			best.draft, best.report = revised, revisedReport
			stagnant = 0
		} else {
			stagnant++
			if stagnant >= maxStagnantRounds {
				break
			}
		}

		current, report = revised, revisedReport
	}

	result := &Result{
		Draft:     best.draft,
		Report:    best.report,
		Iteration: history[len(history)-1].Iteration,
		History:   history,
	}
	if best.report.Composite < r.minScore {
		return result, &BudgetExhaustedError{
			Best:       best.report.Composite,
			Target:     r.minScore,
			Iterations: result.Iteration,
		}
	}
	return result, nil
}

// revise asks the model for a targeted rewrite. A response that does not
// parse gets one corrective re-prompt carrying the failure.
func (r *Refiner) revise(ctx context.Context, kw keyword.Keyword, draft *enhance.Draft, report *Report) (*enhance.Draft, error) {
	prompt, err := r.buildRevisionPrompt(kw, draft, report)
	if err != nil {
		return nil, err
	}

	messages := []llm.Message{
		{Role: "system", Content: refinerSystemPrompt},
		{Role: "user", Content: prompt},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := r.completer.Complete(ctx, llm.Request{
			Capability: string(model.CapabilityRefinement),
			Slug:       kw.Slug,
			Stage:      string(artifact.KindScoredDraft),
			Messages:   messages,
			MaxTokens:  4000,
		})
		if err != nil {
			return nil, err
		}

		revised, err := parseDraft(resp.Content)
		if err == nil {
			return revised, nil
		}
		lastErr = err

		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: fmt.Sprintf("Your previous response could not be used: %v. Return ONLY the corrected JSON object, with no prose before or after it.", err)},
		)
	}

	return nil, fmt.Errorf("revision did not produce a usable draft: %w", lastErr)
}

func parseDraft(content string) (*enhance.Draft, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var d enhance.Draft
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("draft JSON does not match the schema: %w", err)
	}
	if d.Title == "" || len(d.Sections) == 0 {
		return nil, fmt.Errorf("revised draft is missing its title or sections")
	}
	return &d, nil
}

func (r *Refiner) buildRevisionPrompt(kw keyword.Keyword, draft *enhance.Draft, report *Report) (string, error) {
	draftJSON, err := json.MarshalIndent(draft, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling draft for revision: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Revise this article targeting the keyword %q.\n", kw.Raw)
	fmt.Fprintf(&b, "Current composite score: %d of 100 (floor %d).\n", report.Composite, r.minScore)
	fmt.Fprintf(&b, "Readability: %.1f (%s).\n\n", report.Readability, report.ReadabilityBand)

	b.WriteString("Fix these issues, highest value first:\n")
	for _, advice := range topDeficits(report.Checks, deficitLimit) {
		fmt.Fprintf(&b, "- %s\n", advice)
	}

	b.WriteString("\nCurrent article JSON:\n```json\n")
	b.Write(draftJSON)
	b.WriteString("\n```\n\n")
	b.WriteString("Return the complete revised article as a JSON object with the same schema. Keep the section structure; revise text in place. Return ONLY the JSON object.")

	return b.String(), nil
}

// topDeficits lists the advice for the highest-value failed checks.
func topDeficits(checks []Check, limit int) []string {
	var failed []Check
	for _, c := range checks {
		if c.Earned < c.Points {
			failed = append(failed, c)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].Points > failed[j].Points })

	if len(failed) > limit {
		failed = failed[:limit]
	}
	out := make([]string, 0, len(failed))
	for _, c := range failed {
		out = append(out, c.Advice)
	}
	return out
}
