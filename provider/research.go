package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/model"
)

// ResearchPayload is the stored llm-research artifact payload.
type ResearchPayload struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"key_points"`
	Subtopics []string `json:"subtopics"`
	Sources   []string `json:"sources,omitempty"`
}

// Research produces a background research document for a keyword by asking
// an LLM. It is an adapter like the HTTP providers: when the research key is
// absent or the model output cannot be parsed, the pipeline falls back to a
// deterministic synthetic document.
type Research struct {
	completer llm.Completer
	creds     config.Credentials
}

// NewResearch creates the research adapter around an LLM client.
func NewResearch(completer llm.Completer, creds config.Credentials) *Research {
	return &Research{
		completer: completer,
		creds:     creds,
	}
}

// Kind returns the artifact kind this adapter produces.
func (r *Research) Kind() artifact.Kind {
	return artifact.KindLLMResearch
}

// Name returns the provider identifier for provenance.
func (r *Research) Name() string {
	return "llm-research"
}

// IsLive reports whether the research API key is configured.
func (r *Research) IsLive() bool {
	return r.creds.LLMResearchKey != ""
}

const researchSystemPrompt = `You are a research assistant preparing background material for a long-form article. Respond with a single JSON object and nothing else.`

// Fetch asks the LLM for a research document and validates its shape.
func (r *Research) Fetch(ctx context.Context, kw keyword.Keyword) (json.RawMessage, error) {
	if !r.IsLive() {
		return nil, credentialErr(r.Kind(), config.EnvLLMResearchKey)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Research the topic %q for an in-depth article.\n\n", kw.Raw)
	prompt.WriteString("Return a JSON object with exactly these keys:\n")
	prompt.WriteString(`- "summary": 2-4 sentence overview of the topic` + "\n")
	prompt.WriteString(`- "key_points": 5-8 factual points an article must cover` + "\n")
	prompt.WriteString(`- "subtopics": 4-6 subtopic phrases worth their own section` + "\n")
	prompt.WriteString(`- "sources": URLs of authoritative references, if known` + "\n")

	resp, err := r.completer.Complete(ctx, llm.Request{
		Capability: string(model.CapabilityResearch),
		Slug:       kw.Slug,
		Stage:      string(r.Kind()),
		Messages: []llm.Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: prompt.String()},
		},
		MaxTokens: 2000,
	})
	if err != nil {
		return nil, transportErr(r.Kind(), err)
	}

	raw, err := llm.ExtractJSON(resp.Content)
	if err != nil {
		return nil, schemaErr(r.Kind(), err)
	}

	var doc ResearchPayload
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, schemaErr(r.Kind(), err)
	}
	if doc.Summary == "" || len(doc.KeyPoints) == 0 || len(doc.Subtopics) == 0 {
		return nil, schemaErr(r.Kind(), fmt.Errorf("research document missing summary, key_points, or subtopics"))
	}

	return json.Marshal(doc)
}

var keyPointTemplates = []string{
	"Understanding the fundamentals of %s saves time and money later.",
	"The market around %s has changed significantly in recent years.",
	"Common mistakes with %s are avoidable with basic preparation.",
	"Costs for %s vary widely depending on quality and source.",
	"Experienced practitioners approach %s differently than beginners.",
	"There are well-established resources and communities around %s.",
	"Quality indicators for %s are learnable and worth knowing.",
	"Long-term maintenance matters as much as the initial choice in %s.",
}

// syntheticKeyPointCount and syntheticSubtopicCount size the fallback doc.
const (
	syntheticKeyPointCount = 5
	syntheticSubtopicCount = 5
)

// Synthesize produces a deterministic research document seeded by the slug.
func (r *Research) Synthesize(kw keyword.Keyword) (json.RawMessage, error) {
	rng := seededRand(kw.Slug, "llm-research")

	doc := ResearchPayload{
		Summary: fmt.Sprintf(
			"%s is a topic with steady interest and a wide range of audience experience levels. "+
				"A useful article covers the fundamentals first, then moves into practical guidance, "+
				"costs, and the mistakes newcomers most often make.",
			kw.TitleCase()),
	}

	for _, idx := range rng.Perm(len(keyPointTemplates))[:syntheticKeyPointCount] {
		doc.KeyPoints = append(doc.KeyPoints, fmt.Sprintf(keyPointTemplates[idx], kw.Raw))
	}

	for _, idx := range rng.Perm(len(subtopicTemplates))[:syntheticSubtopicCount] {
		doc.Subtopics = append(doc.Subtopics, fmt.Sprintf(subtopicTemplates[idx], kw.Raw))
	}

	for i := 0; i < 3; i++ {
		doc.Sources = append(doc.Sources,
			fmt.Sprintf("https://%s/%s-research-%d", pick(rng, syntheticDomains), kw.Slug, i+1))
	}

	return json.Marshal(doc)
}
