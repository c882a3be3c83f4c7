package enhance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
	"github.com/draftforge/draftforge/outline"
)

const (
	// defaultMaxSectionChars is the hard per-response length ceiling.
	defaultMaxSectionChars = 8000

	// Budget shares of the ideal word count.
	introShare      = 0.10
	conclusionShare = 0.08

	// faqAnswerWords is the budget per FAQ answer.
	faqAnswerWords = 50

	// leadInWords is the budget for a parent section's lead-in when its
	// subsections carry the substance.
	leadInWords = 60

	// minSectionWords keeps splits and small outlines from starving
	// sections below a usable budget.
	minSectionWords = 120
)

// Enhancer writes draft bodies section by section.
type Enhancer struct {
	completer       llm.Completer
	logger          *slog.Logger
	maxSectionChars int
}

// Option configures an Enhancer.
type Option func(*Enhancer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Enhancer) {
		e.logger = logger
	}
}

// WithMaxSectionChars overrides the per-response length ceiling.
func WithMaxSectionChars(n int) Option {
	return func(e *Enhancer) {
		if n > 0 {
			e.maxSectionChars = n
		}
	}
}

// NewEnhancer creates a content enhancer.
func NewEnhancer(completer llm.Completer, opts ...Option) *Enhancer {
	e := &Enhancer{
		completer:       completer,
		logger:          slog.Default(),
		maxSectionChars: defaultMaxSectionChars,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

const writerSystemPrompt = `You are an expert long-form content writer. Write natural, specific, useful prose. Markdown body text only: no headings, no code fences, no front matter.`

// Enhance fills the outline with body text. A truncated section is split
// into two subsections and rewritten once; truncation inside the split
// propagates as a TruncationError for the orchestrator to retry. Any other
// model failure degrades to the deterministic synthetic draft.
func (e *Enhancer) Enhance(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, o *outline.Outline) (*Draft, artifact.Mode, error) {
	draft := skeleton(o)
	budget := newBudget(profile.IdealWordCount, o)

	intro, err := e.write(ctx, kw, profile, o.Title, sectionRequest{
		heading:  "Introduction",
		hint:     o.Introduction,
		words:    budget.intro,
		siblings: topHeadings(o.Sections),
	})
	if err != nil {
		return e.recover(ctx, kw, profile, o, err)
	}
	draft.Introduction = intro

	sections, err := e.fillSections(ctx, kw, profile, o.Title, o.Sections, budget.sections, true)
	if err != nil {
		return e.recover(ctx, kw, profile, o, err)
	}
	draft.Sections = sections

	for _, f := range o.FAQ {
		answer, err := e.answer(ctx, kw, f)
		if err != nil {
			return e.recover(ctx, kw, profile, o, err)
		}
		draft.FAQ = append(draft.FAQ, DraftFAQ{Question: f.Question, Answer: answer})
	}

	conclusion, err := e.write(ctx, kw, profile, o.Title, sectionRequest{
		heading: "Conclusion",
		hint:    o.ConclusionHint,
		words:   budget.conclusion,
	})
	if err != nil {
		return e.recover(ctx, kw, profile, o, err)
	}
	draft.Conclusion = conclusion

	return draft, artifact.ModeDerived, nil
}

// recover decides what a failed write means for the whole draft.
// Cancellation and truncation propagate; everything else degrades to the
// synthetic draft rather than failing the stage.
func (e *Enhancer) recover(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, o *outline.Outline, err error) (*Draft, artifact.Mode, error) {
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}
	if IsTruncation(err) {
		return nil, "", err
	}

	e.logger.Warn("Draft generation failed, using synthetic draft",
		"slug", kw.Slug,
		"error", err)
	return e.Synthesize(kw, profile, o), artifact.ModeSynthetic, nil
}

// budgetPlan distributes the ideal word count across the draft parts.
type budgetPlan struct {
	intro      int
	conclusion int
	sections   int
}

func newBudget(idealWords int, o *outline.Outline) budgetPlan {
	if idealWords <= 0 {
		idealWords = 2000
	}

	plan := budgetPlan{
		intro:      int(float64(idealWords) * introShare),
		conclusion: int(float64(idealWords) * conclusionShare),
	}
	plan.sections = idealWords - plan.intro - plan.conclusion - faqAnswerWords*len(o.FAQ)
	if min := minSectionWords * len(o.Sections); plan.sections < min {
		plan.sections = min
	}
	return plan
}

// fillSections writes each section, recursing into subsections. allowSplit
// guards against re-splitting the halves of an already split section.
func (e *Enhancer) fillSections(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, title string, sections []outline.Section, budget int, allowSplit bool) ([]DraftSection, error) {
	if len(sections) == 0 {
		return nil, nil
	}

	siblings := topHeadings(sections)
	share := budget / len(sections)
	if share < minSectionWords {
		share = minSectionWords
	}

	out := make([]DraftSection, 0, len(sections))
	for _, s := range sections {
		filled, err := e.fillSection(ctx, kw, profile, title, s, siblings, share, allowSplit)
		if err != nil {
			return nil, err
		}
		out = append(out, filled)
	}
	return out, nil
}

func (e *Enhancer) fillSection(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, title string, s outline.Section, siblings []string, share int, allowSplit bool) (DraftSection, error) {
	if len(s.Subsections) > 0 {
		lead, err := e.write(ctx, kw, profile, title, sectionRequest{
			heading:  s.Heading,
			hint:     s.ContentHint,
			words:    leadInWords,
			siblings: siblings,
			leadIn:   true,
		})
		if err != nil {
			return DraftSection{}, err
		}

		subBudget := share - leadInWords
		subs, err := e.fillSections(ctx, kw, profile, title, s.Subsections, subBudget, allowSplit)
		if err != nil {
			return DraftSection{}, err
		}
		return DraftSection{Heading: s.Heading, Content: lead, Subsections: subs}, nil
	}

	content, err := e.write(ctx, kw, profile, title, sectionRequest{
		heading:  s.Heading,
		hint:     s.ContentHint,
		words:    share,
		siblings: siblings,
	})
	if err == nil {
		return DraftSection{Heading: s.Heading, Content: content}, nil
	}
	if !IsTruncation(err) || !allowSplit {
		return DraftSection{}, err
	}

	// The response blew the ceiling; rewrite as two smaller subsections.
	e.logger.Warn("Section truncated, splitting into subsections",
		"slug", kw.Slug,
		"heading", s.Heading)
	subs, err := e.fillSections(ctx, kw, profile, title, splitSection(s), share, false)
	if err != nil {
		return DraftSection{}, err
	}
	return DraftSection{Heading: s.Heading, Subsections: subs}, nil
}

// splitSection halves a section's scope.
func splitSection(s outline.Section) []outline.Section {
	return []outline.Section{
		{
			Heading:     s.Heading + ": The Essentials",
			ContentHint: "The core facts and first steps of: " + s.ContentHint,
		},
		{
			Heading:     s.Heading + ": In Practice",
			ContentHint: "Applying it, with concrete examples: " + s.ContentHint,
		},
	}
}

// sectionRequest describes one body of text to write.
type sectionRequest struct {
	heading  string
	hint     string
	words    int
	siblings []string
	leadIn   bool
}

// write performs one LLM call and enforces the length ceiling.
func (e *Enhancer) write(ctx context.Context, kw keyword.Keyword, profile *intent.Profile, title string, req sectionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := e.completer.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityWriting),
		Slug:       kw.Slug,
		Stage:      string(artifact.KindDraft),
		Messages: []llm.Message{
			{Role: "system", Content: writerSystemPrompt},
			{Role: "user", Content: e.buildPrompt(kw, profile, title, req)},
		},
		MaxTokens: tokenBudget(req.words),
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Content)
	if resp.Truncated() || len(content) > e.maxSectionChars {
		return "", &TruncationError{Heading: req.heading, Chars: len(content)}
	}
	if content == "" {
		return "", fmt.Errorf("empty response for section %q", req.heading)
	}

	return content, nil
}

// answer writes one FAQ answer.
func (e *Enhancer) answer(ctx context.Context, kw keyword.Keyword, f outline.FAQ) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Answer this reader question about %s:\n\n%s\n", kw.Raw, f.Question)
	if f.AnswerHint != "" {
		fmt.Fprintf(&b, "\nGuidance: %s\n", f.AnswerHint)
	}
	fmt.Fprintf(&b, "\nWrite approximately %d words. Answer directly in plain prose; no heading, no restating the question.", faqAnswerWords)

	resp, err := e.completer.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityWriting),
		Slug:       kw.Slug,
		Stage:      string(artifact.KindDraft),
		Messages: []llm.Message{
			{Role: "system", Content: writerSystemPrompt},
			{Role: "user", Content: b.String()},
		},
		MaxTokens: tokenBudget(faqAnswerWords),
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Content)
	if resp.Truncated() || len(content) > e.maxSectionChars {
		return "", &TruncationError{Heading: f.Question, Chars: len(content)}
	}
	if content == "" {
		return "", fmt.Errorf("empty answer for question %q", f.Question)
	}

	return content, nil
}

// buildPrompt assembles the per-section writing prompt: keyword, heading,
// siblings for coherence, and the intent profile.
func (e *Enhancer) buildPrompt(kw keyword.Keyword, profile *intent.Profile, title string, req sectionRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are writing one section of the article %q targeting the keyword %q.\n\n", title, kw.Raw)
	fmt.Fprintf(&b, "Section heading: %s\n", req.heading)
	if req.hint != "" {
		fmt.Fprintf(&b, "What it covers: %s\n", req.hint)
	}

	if len(req.siblings) > 0 {
		b.WriteString("\nNeighboring sections (do not repeat their content):\n")
		for _, sib := range req.siblings {
			if sib == req.heading {
				continue
			}
			fmt.Fprintf(&b, "- %s\n", sib)
		}
	}

	fmt.Fprintf(&b, "\nReader intent: %s", profile.PrimaryIntent)
	if profile.JourneyStage != "" {
		fmt.Fprintf(&b, " (%s stage)", profile.JourneyStage)
	}
	fmt.Fprintf(&b, ". Article format: %s.\n", profile.PrimaryFormat())

	if req.leadIn {
		b.WriteString("\nWrite a two to three sentence lead-in for this section; its subsections carry the detail.")
	} else {
		fmt.Fprintf(&b, "\nWrite approximately %d words for this section only.", req.words)
	}

	return b.String()
}

// tokenBudget converts a word budget into a max_tokens ceiling with
// headroom for markdown syntax.
func tokenBudget(words int) int {
	tokens := words*2 + 150
	if tokens < 300 {
		return 300
	}
	if tokens > 2200 {
		return 2200
	}
	return tokens
}

// topHeadings lists the headings at one tree level.
func topHeadings(sections []outline.Section) []string {
	out := make([]string, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Heading)
	}
	return out
}
