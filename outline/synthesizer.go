package outline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
	"github.com/draftforge/draftforge/provider"
)

// maxQuestionsInPrompt bounds the PAA block in the prompt.
const maxQuestionsInPrompt = 6

// Synthesizer builds outlines with an LLM. Malformed responses get one
// re-prompt carrying the parse error; a second failure or any transport
// failure falls back to the deterministic outline, so synthesis itself
// never fails the stage.
type Synthesizer struct {
	completer llm.Completer
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		s.logger = logger
	}
}

// NewSynthesizer creates an outline synthesizer.
func NewSynthesizer(completer llm.Completer, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		completer: completer,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

const outlineSystemPrompt = `You are an experienced content strategist planning a long-form article. Respond with a single JSON object and nothing else.`

// Synthesize produces an outline for the keyword. The returned mode is
// derived when the LLM produced it and synthetic when the deterministic
// fallback did. Only context cancellation is returned as an error.
func (s *Synthesizer) Synthesize(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, research *provider.ResearchPayload) (*Outline, artifact.Mode, error) {
	messages := []llm.Message{
		{Role: "system", Content: outlineSystemPrompt},
		{Role: "user", Content: s.buildPrompt(kw, profile, research)},
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		resp, err := s.completer.Complete(ctx, llm.Request{
			Capability: string(model.CapabilityOutline),
			Slug:       kw.Slug,
			Stage:      string(artifact.KindOutline),
			Messages:   messages,
			MaxTokens:  3000,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			s.logger.Warn("Outline generation failed, using deterministic fallback",
				"slug", kw.Slug,
				"error", err)
			return Fallback(kw, profile), artifact.ModeSynthetic, nil
		}

		o, parseErr := parseOutline(resp.Content, profile)
		if parseErr == nil {
			return o, artifact.ModeDerived, nil
		}
		lastErr = parseErr

		// One re-prompt with the parse error in context
		messages = append(messages,
			llm.Message{Role: "assistant", Content: resp.Content},
			llm.Message{Role: "user", Content: fmt.Sprintf(
				"Your previous response could not be used: %v. Return ONLY the corrected JSON object, with no prose before or after it.",
				parseErr)},
		)
	}

	s.logger.Warn("Outline invalid after re-prompt, using deterministic fallback",
		"slug", kw.Slug,
		"error", lastErr)
	return Fallback(kw, profile), artifact.ModeSynthetic, nil
}

// parseOutline extracts, normalizes, and validates a model response. The
// FAQ is backfilled from people-also-ask questions when the model omitted it.
func parseOutline(content string, profile *intent.Profile) (*Outline, error) {
	raw, err := llm.ExtractJSON(content)
	if err != nil {
		return nil, err
	}

	var o Outline
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("outline JSON does not match the schema: %w", err)
	}

	o.Normalize()
	if len(o.FAQ) == 0 {
		for _, q := range profile.Questions {
			o.FAQ = append(o.FAQ, FAQ{
				Question:   q,
				AnswerHint: "Answer directly in two to three sentences.",
			})
		}
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

// buildPrompt assembles the structured outline request: intent profile
// first, then compacted research.
func (s *Synthesizer) buildPrompt(kw keyword.Keyword, profile *intent.Profile, research *provider.ResearchPayload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Plan an article targeting the keyword %q.\n\n", kw.Raw)

	fmt.Fprintf(&b, "Primary intent: %s\n", profile.PrimaryIntent)
	if profile.SecondaryIntent != "" {
		fmt.Fprintf(&b, "Secondary intent: %s\n", profile.SecondaryIntent)
	}
	fmt.Fprintf(&b, "Recommended format: %s\n", profile.PrimaryFormat())
	fmt.Fprintf(&b, "Target word count: %d\n", profile.IdealWordCount)
	if profile.FeaturedSnippet.Opportunity {
		fmt.Fprintf(&b, "Featured snippet target: %s\n", profile.FeaturedSnippet.Type)
	}

	if len(profile.Headings) > 0 {
		b.WriteString("\nSuggested heading structure (adapt freely):\n")
		for _, h := range profile.Headings {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	if research != nil {
		if research.Summary != "" {
			fmt.Fprintf(&b, "\nResearch summary: %s\n", research.Summary)
		}
		if len(research.KeyPoints) > 0 {
			b.WriteString("\nKey points to cover:\n")
			for _, p := range research.KeyPoints {
				fmt.Fprintf(&b, "- %s\n", p)
			}
		}
		if len(research.Subtopics) > 0 {
			fmt.Fprintf(&b, "\nRelated subtopics: %s\n", strings.Join(research.Subtopics, ", "))
		}
	}

	if len(profile.Questions) > 0 {
		b.WriteString("\nQuestions readers ask:\n")
		for i, q := range profile.Questions {
			if i == maxQuestionsInPrompt {
				break
			}
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	b.WriteString(`
Return a JSON object with this shape:
{
  "title": "article title including the keyword",
  "meta_description": "120-160 character description including the keyword",
  "introduction": "what the introduction should establish",
  "sections": [{"heading": "...", "content_hint": "what this section covers", "subsections": [...]}],
  "faq": [{"question": "...", "answer_hint": "..."}],
  "conclusion_hint": "what the conclusion should leave the reader with",
  "keywords": ["..."],
  "categories": ["..."]
}

Rules: the title must be non-empty and contain the keyword; include at least 3 sections; keep content hints concrete.`)

	return b.String()
}
