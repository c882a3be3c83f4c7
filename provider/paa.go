package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/keyword"
)

// PAAPayload is the stored people-also-ask artifact payload. The intent
// analyzer and outline fallback read Questions; everything else is opaque.
type PAAPayload struct {
	Questions []PAAQuestion `json:"questions"`
}

// PAAQuestion is a single related question with an optional answer snippet.
type PAAQuestion struct {
	Question string `json:"question"`
	Snippet  string `json:"snippet,omitempty"`
}

// PeopleAlsoAsk fetches the related questions Google shows for a keyword.
// Live responses are normalized into PAAPayload so downstream stages never
// see vendor-specific shapes.
type PeopleAlsoAsk struct {
	base     *Base
	creds    config.Credentials
	endpoint string
}

// PAAOption configures a PeopleAlsoAsk adapter.
type PAAOption func(*PeopleAlsoAsk)

// WithPAAEndpoint overrides the vendor endpoint.
func WithPAAEndpoint(url string) PAAOption {
	return func(p *PeopleAlsoAsk) {
		if url != "" {
			p.endpoint = url
		}
	}
}

// NewPeopleAlsoAsk creates the related-questions adapter. It shares the SERP
// vendor, so the keyword metrics key doubles as its credential.
func NewPeopleAlsoAsk(base *Base, creds config.Credentials, opts ...PAAOption) *PeopleAlsoAsk {
	p := &PeopleAlsoAsk{
		base:     base,
		creds:    creds,
		endpoint: defaultSERPEndpoint,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Kind returns the artifact kind this adapter produces.
func (p *PeopleAlsoAsk) Kind() artifact.Kind {
	return artifact.KindPAA
}

// Name returns the provider identifier for provenance.
func (p *PeopleAlsoAsk) Name() string {
	return "serp-related-questions"
}

// IsLive reports whether the SERP vendor key is configured.
func (p *PeopleAlsoAsk) IsLive() bool {
	return p.creds.KeywordMetricsKey != ""
}

// relatedQuestionsResponse is the slice of the vendor response we care about.
type relatedQuestionsResponse struct {
	RelatedQuestions []struct {
		Question string `json:"question"`
		Snippet  string `json:"snippet"`
	} `json:"related_questions"`
}

// Fetch retrieves live related questions and normalizes them.
func (p *PeopleAlsoAsk) Fetch(ctx context.Context, kw keyword.Keyword) (json.RawMessage, error) {
	if !p.IsLive() {
		return nil, credentialErr(p.Kind(), config.EnvKeywordMetricsKey)
	}

	query := url.Values{}
	query.Set("engine", "google")
	query.Set("q", kw.Raw)
	query.Set("api_key", p.creds.KeywordMetricsKey)

	req, err := http.NewRequest(http.MethodGet, p.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, transportErr(p.Kind(), err)
	}

	raw, err := p.base.FetchJSON(ctx, p.Kind(), req)
	if err != nil {
		return nil, err
	}

	var resp relatedQuestionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, schemaErr(p.Kind(), err)
	}
	if len(resp.RelatedQuestions) == 0 {
		return nil, schemaErr(p.Kind(), fmt.Errorf("no related_questions in response"))
	}

	payload := PAAPayload{Questions: make([]PAAQuestion, 0, len(resp.RelatedQuestions))}
	for _, q := range resp.RelatedQuestions {
		if q.Question == "" {
			continue
		}
		payload.Questions = append(payload.Questions, PAAQuestion{Question: q.Question, Snippet: q.Snippet})
	}
	if len(payload.Questions) == 0 {
		return nil, schemaErr(p.Kind(), fmt.Errorf("related_questions entries all empty"))
	}

	return json.Marshal(payload)
}

var snippetTemplates = []string{
	"The short answer depends on your situation, but most people start with %s and adjust from there.",
	"Experts generally agree that %s rewards patience more than spending.",
	"There is no single rule for %s; the guides below break down the common cases.",
	"For %s, the biggest factor is usually how much time you can commit up front.",
	"A common mistake with %s is skipping the basics and paying for it later.",
	"Most beginners overestimate the cost of %s and underestimate the learning curve.",
}

// syntheticQuestionCount questions per synthetic payload.
const syntheticQuestionCount = 6

// Synthesize produces deterministic related questions seeded by the slug.
func (p *PeopleAlsoAsk) Synthesize(kw keyword.Keyword) (json.RawMessage, error) {
	r := seededRand(kw.Slug, "paa")

	order := r.Perm(len(questionTemplates))
	payload := PAAPayload{Questions: make([]PAAQuestion, 0, syntheticQuestionCount)}
	for _, idx := range order[:syntheticQuestionCount] {
		payload.Questions = append(payload.Questions, PAAQuestion{
			Question: fmt.Sprintf(questionTemplates[idx], kw.Raw),
			Snippet:  fmt.Sprintf(pick(r, snippetTemplates), kw.Raw),
		})
	}

	return json.Marshal(payload)
}
