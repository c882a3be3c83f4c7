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

// defaultSERPEndpoint is the default SERP vendor endpoint. An alternate
// vendor with the same query shape can be selected via
// providers.serp_endpoint in the config.
const defaultSERPEndpoint = "https://serpapi.com/search.json"

// serpResultCount is how many organic results a payload carries.
const serpResultCount = 10

// enrichTopResults is how many top results get competitor word counts.
const enrichTopResults = 5

// SERPPayload is the stored SERP artifact payload.
type SERPPayload struct {
	Serp []SERPResult `json:"serp"`
}

// SERPResult is a single organic result. The field naming is part of the
// stored payload contract: est_monthly_traffic is snake_case while wordCount
// is camelCase, and consumers match both exactly.
type SERPResult struct {
	Title             string `json:"title"`
	URL               string `json:"url,omitempty"`
	EstMonthlyTraffic int    `json:"est_monthly_traffic,omitempty"`
	WordCount         int    `json:"wordCount,omitempty"`
}

// SERP fetches the organic results for a keyword. Top results are enriched
// with competitor word counts by fetching each page and extracting its
// readable text.
type SERP struct {
	base     *Base
	creds    config.Credentials
	endpoint string
	pages    *PageText
}

// SERPOption configures a SERP adapter.
type SERPOption func(*SERP)

// WithSERPEndpoint overrides the vendor endpoint.
func WithSERPEndpoint(url string) SERPOption {
	return func(s *SERP) {
		if url != "" {
			s.endpoint = url
		}
	}
}

// WithPageText enables competitor word count enrichment.
func WithPageText(pages *PageText) SERPOption {
	return func(s *SERP) {
		s.pages = pages
	}
}

// NewSERP creates the SERP adapter.
func NewSERP(base *Base, creds config.Credentials, opts ...SERPOption) *SERP {
	s := &SERP{
		base:     base,
		creds:    creds,
		endpoint: defaultSERPEndpoint,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Kind returns the artifact kind this adapter produces.
func (s *SERP) Kind() artifact.Kind {
	return artifact.KindSERP
}

// Name returns the provider identifier for provenance.
func (s *SERP) Name() string {
	return "serp-organic"
}

// IsLive reports whether the SERP vendor key is configured.
func (s *SERP) IsLive() bool {
	return s.creds.KeywordMetricsKey != ""
}

// organicResponse is the slice of the vendor response we care about.
type organicResponse struct {
	OrganicResults []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"organic_results"`
}

// Fetch retrieves live organic results, normalizes them, and enriches the
// top entries with competitor word counts.
func (s *SERP) Fetch(ctx context.Context, kw keyword.Keyword) (json.RawMessage, error) {
	if !s.IsLive() {
		return nil, credentialErr(s.Kind(), config.EnvKeywordMetricsKey)
	}

	query := url.Values{}
	query.Set("engine", "google")
	query.Set("q", kw.Raw)
	query.Set("num", fmt.Sprintf("%d", serpResultCount))
	query.Set("api_key", s.creds.KeywordMetricsKey)

	req, err := http.NewRequest(http.MethodGet, s.endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, transportErr(s.Kind(), err)
	}

	raw, err := s.base.FetchJSON(ctx, s.Kind(), req)
	if err != nil {
		return nil, err
	}

	var resp organicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, schemaErr(s.Kind(), err)
	}
	if len(resp.OrganicResults) == 0 {
		return nil, schemaErr(s.Kind(), fmt.Errorf("no organic_results in response"))
	}

	payload := SERPPayload{Serp: make([]SERPResult, 0, serpResultCount)}
	for _, entry := range resp.OrganicResults {
		if entry.Title == "" {
			continue
		}
		payload.Serp = append(payload.Serp, SERPResult{Title: entry.Title, URL: entry.Link})
		if len(payload.Serp) == serpResultCount {
			break
		}
	}
	if len(payload.Serp) == 0 {
		return nil, schemaErr(s.Kind(), fmt.Errorf("organic_results entries all empty"))
	}

	s.enrich(ctx, payload.Serp)

	return json.Marshal(payload)
}

// enrich fills in missing word counts for the top results. Failures leave
// the count at zero; the intent analyzer treats those entries as unknown.
func (s *SERP) enrich(ctx context.Context, results []SERPResult) {
	if s.pages == nil {
		return
	}

	for i := range results {
		if i == enrichTopResults {
			return
		}
		if ctx.Err() != nil {
			return
		}
		if results[i].URL == "" || results[i].WordCount > 0 {
			continue
		}
		results[i].WordCount = s.pages.WordCount(ctx, results[i].URL)
	}
}

var serpTitleTemplates = []string{
	"%s: The Complete Guide",
	"The Ultimate Guide to %s",
	"%s Explained for Beginners",
	"10 Things to Know About %s",
	"How to Choose %s",
	"%s Review and Buying Advice",
	"%s vs the Alternatives",
	"Top Picks: %s",
	"%s Frequently Asked Questions",
	"Everything We Learned About %s",
}

// Synthesize produces deterministic organic results seeded by the slug.
// Traffic estimates decay with position the way real result pages do.
// Synthetic entries carry no word counts: nothing was fetched, and the
// intent analyzer falls back to its per-intent word count table.
func (s *SERP) Synthesize(kw keyword.Keyword) (json.RawMessage, error) {
	r := seededRand(kw.Slug, "serp")

	traffic := between(r, 2000, 90000)
	payload := SERPPayload{Serp: make([]SERPResult, 0, serpResultCount)}
	for i := 0; i < serpResultCount; i++ {
		domain := pick(r, syntheticDomains)
		path := kw.Slug
		if i > 0 {
			path = fmt.Sprintf("%s-%d", kw.Slug, i)
		}

		payload.Serp = append(payload.Serp, SERPResult{
			Title:             fmt.Sprintf(serpTitleTemplates[i], kw.TitleCase()),
			URL:               fmt.Sprintf("https://%s/%s", domain, path),
			EstMonthlyTraffic: traffic,
		})

		// Position decay between 55% and 85% of the slot above
		traffic = traffic * between(r, 55, 85) / 100
		if traffic < 10 {
			traffic = 10
		}
	}

	return json.Marshal(payload)
}
