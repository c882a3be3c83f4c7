package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/config"
	"github.com/draftforge/draftforge/provider"
)

func TestPeopleAlsoAsk_Fetch_Normalizes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "antique brass lamps", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"search_metadata": {"status": "Success"},
			"related_questions": [
				{"question": "How do I date an antique brass lamp?", "snippet": "Look for maker marks on the base."},
				{"question": "Are antique brass lamps valuable?", "snippet": ""},
				{"question": "", "snippet": "orphan snippet"}
			]
		}`))
	}))
	defer server.Close()

	adapter := provider.NewPeopleAlsoAsk(testBase(),
		config.Credentials{KeywordMetricsKey: "test-key"},
		provider.WithPAAEndpoint(server.URL))

	payload, err := adapter.Fetch(context.Background(), mustKeyword(t, "antique brass lamps"))
	require.NoError(t, err)

	var doc provider.PAAPayload
	require.NoError(t, json.Unmarshal(payload, &doc))

	// Vendor metadata is dropped and empty questions are skipped
	require.Len(t, doc.Questions, 2)
	assert.Equal(t, "How do I date an antique brass lamp?", doc.Questions[0].Question)
	assert.Equal(t, "Look for maker marks on the base.", doc.Questions[0].Snippet)
	assert.Equal(t, "Are antique brass lamps valuable?", doc.Questions[1].Question)
}

func TestPeopleAlsoAsk_Fetch_NoQuestions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"search_metadata": {"status": "Success"}}`))
	}))
	defer server.Close()

	adapter := provider.NewPeopleAlsoAsk(testBase(),
		config.Credentials{KeywordMetricsKey: "test-key"},
		provider.WithPAAEndpoint(server.URL))

	_, err := adapter.Fetch(context.Background(), mustKeyword(t, "antique brass lamps"))
	require.Error(t, err)
	assert.True(t, provider.HasReason(err, provider.ReasonSchema))
}

func TestPeopleAlsoAsk_Synthesize(t *testing.T) {
	adapter := provider.NewPeopleAlsoAsk(testBase(), config.Credentials{})
	kw := mustKeyword(t, "antique brass lamps")

	payload, err := adapter.Synthesize(kw)
	require.NoError(t, err)

	var doc provider.PAAPayload
	require.NoError(t, json.Unmarshal(payload, &doc))
	require.Len(t, doc.Questions, 6)

	seen := make(map[string]bool)
	for _, q := range doc.Questions {
		assert.Contains(t, q.Question, "antique brass lamps")
		assert.NotEmpty(t, q.Snippet)
		assert.False(t, seen[q.Question], "questions must not repeat")
		seen[q.Question] = true
	}

	again, err := adapter.Synthesize(kw)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestPeopleAlsoAsk_QuestionsCarryLeadingInterrogatives(t *testing.T) {
	// The intent analyzer keys featured-snippet detection off question
	// openers, so synthetic questions must read like real PAA entries.
	adapter := provider.NewPeopleAlsoAsk(testBase(), config.Credentials{})

	payload, err := adapter.Synthesize(mustKeyword(t, "standing desks"))
	require.NoError(t, err)

	var doc provider.PAAPayload
	require.NoError(t, json.Unmarshal(payload, &doc))

	interrogative := 0
	for _, q := range doc.Questions {
		lower := strings.ToLower(q.Question)
		for _, opener := range []string{"what", "how", "is", "are", "why", "when", "where"} {
			if strings.HasPrefix(lower, opener+" ") {
				interrogative++
				break
			}
		}
	}
	assert.Equal(t, len(doc.Questions), interrogative)
}
