package seo_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm"
	"github.com/draftforge/draftforge/llm/testutil"
	"github.com/draftforge/draftforge/outline"
	"github.com/draftforge/draftforge/seo"
)

// lowQualityDraft misses nearly every rubric check.
func lowQualityDraft() *enhance.Draft {
	return &enhance.Draft{
		Title:           "Untitled Notes",
		MetaDescription: "Notes.",
		Introduction:    "Some words.",
		Sections:        []enhance.DraftSection{{Heading: "One", Content: "Body text here."}},
		Conclusion:      "Done.",
	}
}

// strongDraft is the deterministic synthetic draft, which clears the floor.
func strongDraft(t *testing.T, raw string) (keyword.Keyword, *intent.Profile, *enhance.Draft) {
	t.Helper()
	kw := mustKeyword(t, raw)
	profile := intent.Analyze(kw, intent.Inputs{})
	o := outline.Fallback(kw, profile)
	return kw, profile, enhance.NewEnhancer(&testutil.MockLLMClient{}).Synthesize(kw, profile, o)
}

func draftResponse(t *testing.T, d *enhance.Draft) *llm.Response {
	t.Helper()
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	return &llm.Response{
		Content:      fmt.Sprintf("Here is the revision.\n```json\n%s\n```", raw),
		Model:        "test-model",
		FinishReason: "stop",
	}
}

func TestRefine_AlreadyAboveFloor(t *testing.T) {
	kw, profile, draft := strongDraft(t, "how to restore antique lamps")

	mock := &testutil.MockLLMClient{}
	result, err := seo.NewRefiner(mock).Refine(context.Background(), kw, profile, draft)
	require.NoError(t, err)

	assert.Zero(t, mock.GetCallCount())
	assert.Equal(t, 0, result.Iteration)
	require.Len(t, result.History, 1)
	assert.GreaterOrEqual(t, result.Report.Composite, 85)
	assert.Same(t, draft, result.Draft)
}

func TestRefine_RevisesToFloor(t *testing.T) {
	kw, profile, good := strongDraft(t, "how to restore antique lamps")

	mock := &testutil.MockLLMClient{Responses: []*llm.Response{draftResponse(t, good)}}
	result, err := seo.NewRefiner(mock).Refine(context.Background(), kw, profile, lowQualityDraft())
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetCallCount())
	assert.Equal(t, 1, result.Iteration)
	require.Len(t, result.History, 2)
	assert.Less(t, result.History[0].Composite, 85)
	assert.GreaterOrEqual(t, result.History[1].Composite, 85)
	assert.GreaterOrEqual(t, result.Report.Composite, result.History[0].Composite)
	assert.Equal(t, good.Title, result.Draft.Title)

	req := mock.GetRequests()[0]
	assert.Equal(t, "refinement", req.Capability)
	assert.Equal(t, "scored-draft", req.Stage)
	assert.Equal(t, kw.Slug, req.Slug)
	prompt := req.Messages[1].Content
	assert.Contains(t, prompt, "Fix these issues")
	assert.Contains(t, prompt, "Untitled Notes")
	assert.Contains(t, prompt, `"how to restore antique lamps"`)
}

func TestRefine_BudgetExhaustedAfterSingleIteration(t *testing.T) {
	kw, profile, _ := strongDraft(t, "how to restore antique lamps")
	low := lowQualityDraft()

	mock := &testutil.MockLLMClient{Responses: []*llm.Response{draftResponse(t, low)}}
	refiner := seo.NewRefiner(mock, seo.WithMaxIterations(1))
	result, err := refiner.Refine(context.Background(), kw, profile, low)

	require.Error(t, err)
	assert.True(t, seo.IsBudgetExhausted(err))

	var be *seo.BudgetExhaustedError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 85, be.Target)
	assert.Equal(t, 1, be.Iterations)

	require.NotNil(t, result)
	require.Len(t, result.History, 2)
	assert.Equal(t, result.History[0].Composite, result.Report.Composite,
		"best revision must equal the best score seen")
	assert.Equal(t, be.Best, result.Report.Composite)
	assert.Less(t, result.Report.Composite, 85)
}

func TestRefine_StopsAfterStagnantRounds(t *testing.T) {
	kw, profile, _ := strongDraft(t, "how to restore antique lamps")
	low := lowQualityDraft()

	mock := &testutil.MockLLMClient{Responses: []*llm.Response{
		draftResponse(t, low),
		draftResponse(t, low),
	}}
	result, err := seo.NewRefiner(mock).Refine(context.Background(), kw, profile, low)

	require.Error(t, err)
	assert.True(t, seo.IsBudgetExhausted(err))
	assert.Equal(t, 2, mock.GetCallCount(), "stops before the third iteration")
	require.Len(t, result.History, 3)
	for i, score := range result.History {
		assert.Equal(t, i, score.Iteration)
	}
}

func TestRefine_RepromptOnMalformedRevision(t *testing.T) {
	kw, profile, good := strongDraft(t, "how to restore antique lamps")

	mock := &testutil.MockLLMClient{Responses: []*llm.Response{
		{Content: "I rewrote it, much better now!", Model: "test-model", FinishReason: "stop"},
		draftResponse(t, good),
	}}
	result, err := seo.NewRefiner(mock).Refine(context.Background(), kw, profile, lowQualityDraft())
	require.NoError(t, err)

	assert.Equal(t, 2, mock.GetCallCount())
	assert.Equal(t, 1, result.Iteration)

	second := mock.GetRequests()[1]
	require.Len(t, second.Messages, 4)
	assert.Equal(t, "assistant", second.Messages[2].Role)
	assert.Contains(t, second.Messages[3].Content, "could not be used")
}

func TestRefine_TransportErrorKeepsBest(t *testing.T) {
	kw, profile, _ := strongDraft(t, "how to restore antique lamps")
	low := lowQualityDraft()

	mock := &testutil.MockLLMClient{Err: errors.New("connection refused")}
	result, err := seo.NewRefiner(mock).Refine(context.Background(), kw, profile, low)

	require.Error(t, err)
	assert.True(t, seo.IsBudgetExhausted(err))
	require.NotNil(t, result)
	require.Len(t, result.History, 1)
	assert.Equal(t, low.Title, result.Draft.Title)
}

func TestRefine_CancelledContext(t *testing.T) {
	kw, profile, _ := strongDraft(t, "how to restore antique lamps")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := &testutil.MockLLMClient{}
	result, err := seo.NewRefiner(mock).Refine(ctx, kw, profile, lowQualityDraft())
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}
