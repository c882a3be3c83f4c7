package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/draftforge/draftforge/artifact"
	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/keyword"
)

// defaultMetricsEndpoint is the keyword data vendor endpoint.
const defaultMetricsEndpoint = "https://api.keywordseverywhere.com/v1/get_keyword_data"

// KeywordMetrics fetches search volume, CPC, competition, and trend data for
// a keyword. The payload is stored verbatim; downstream stages only rely on
// it being a JSON object.
type KeywordMetrics struct {
	base     *Base
	creds    config.Credentials
	endpoint string
}

// KeywordMetricsOption configures a KeywordMetrics adapter.
type KeywordMetricsOption func(*KeywordMetrics)

// WithMetricsEndpoint overrides the vendor endpoint.
func WithMetricsEndpoint(url string) KeywordMetricsOption {
	return func(k *KeywordMetrics) {
		if url != "" {
			k.endpoint = url
		}
	}
}

// NewKeywordMetrics creates the keyword metrics adapter.
func NewKeywordMetrics(base *Base, creds config.Credentials, opts ...KeywordMetricsOption) *KeywordMetrics {
	k := &KeywordMetrics{
		base:     base,
		creds:    creds,
		endpoint: defaultMetricsEndpoint,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// Kind returns the artifact kind this adapter produces.
func (k *KeywordMetrics) Kind() artifact.Kind {
	return artifact.KindKeywordMetrics
}

// Name returns the provider identifier for provenance.
func (k *KeywordMetrics) Name() string {
	return "keywords-everywhere"
}

// IsLive reports whether the metrics API key is configured.
func (k *KeywordMetrics) IsLive() bool {
	return k.creds.KeywordMetricsKey != ""
}

// metricsRequest is the vendor request body.
type metricsRequest struct {
	Keywords   []string `json:"kw"`
	Country    string   `json:"country"`
	Currency   string   `json:"currency"`
	DataSource string   `json:"dataSource"`
}

// Fetch retrieves live keyword metrics.
func (k *KeywordMetrics) Fetch(ctx context.Context, kw keyword.Keyword) (json.RawMessage, error) {
	if !k.IsLive() {
		return nil, credentialErr(k.Kind(), config.EnvKeywordMetricsKey)
	}

	body, err := json.Marshal(metricsRequest{
		Keywords:   []string{kw.Raw},
		Country:    "us",
		Currency:   "usd",
		DataSource: "gkp",
	})
	if err != nil {
		return nil, schemaErr(k.Kind(), err)
	}

	req, err := http.NewRequest(http.MethodPost, k.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, transportErr(k.Kind(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+k.creds.KeywordMetricsKey)

	raw, err := k.base.FetchJSON(ctx, k.Kind(), req)
	if err != nil {
		return nil, err
	}

	if err := requireObject(k.Kind(), raw); err != nil {
		return nil, err
	}

	return raw, nil
}

// syntheticMetrics mirrors the vendor response shape.
type syntheticMetrics struct {
	Data []syntheticMetricsEntry `json:"data"`
}

type syntheticMetricsEntry struct {
	Keyword     string             `json:"keyword"`
	Volume      int                `json:"vol"`
	CPC         syntheticCPC       `json:"cpc"`
	Competition float64            `json:"competition"`
	Trend       []syntheticTrendPt `json:"trend"`
}

type syntheticCPC struct {
	Currency string `json:"currency"`
	Value    string `json:"value"`
}

type syntheticTrendPt struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Value int    `json:"value"`
}

var trendMonths = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// trendYear is fixed so synthetic payloads are byte-identical across reruns.
const trendYear = 2025

// Synthesize produces deterministic metrics seeded by the slug.
func (k *KeywordMetrics) Synthesize(kw keyword.Keyword) (json.RawMessage, error) {
	r := seededRand(kw.Slug, "kw-metrics")

	volume := between(r, 500, 40000)
	trend := make([]syntheticTrendPt, len(trendMonths))
	for i, month := range trendMonths {
		// Monthly values wander within +/-30% of the headline volume
		delta := between(r, -volume*3/10, volume*3/10)
		trend[i] = syntheticTrendPt{
			Month: month,
			Year:  trendYear,
			Value: max(volume+delta, 10),
		}
	}

	payload := syntheticMetrics{
		Data: []syntheticMetricsEntry{
			{
				Keyword:     kw.Raw,
				Volume:      volume,
				CPC:         syntheticCPC{Currency: "$", Value: fmt.Sprintf("%.2f", 0.2+r.Float64()*5.8)},
				Competition: float64(between(r, 5, 95)) / 100,
				Trend:       trend,
			},
		},
	}

	return json.Marshal(payload)
}
