package seo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/enhance"
	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/llm/testutil"
	"github.com/draftforge/draftforge/outline"
	"github.com/draftforge/draftforge/seo"
)

func mustKeyword(t *testing.T, raw string) keyword.Keyword {
	t.Helper()
	kw, err := keyword.New(raw)
	require.NoError(t, err)
	return kw
}

// syntheticArticle renders the fully offline draft for a keyword.
func syntheticArticle(t *testing.T, raw string) (keyword.Keyword, *intent.Profile, string) {
	t.Helper()
	kw := mustKeyword(t, raw)
	profile := intent.Analyze(kw, intent.Inputs{})
	o := outline.Fallback(kw, profile)
	draft := enhance.NewEnhancer(&testutil.MockLLMClient{}).Synthesize(kw, profile, o)
	return kw, profile, enhance.Render(draft)
}

const sampleDoc = `---
title: 'Sample: A Guide'
description: A compact fixture.
---

# Sample Heading

First paragraph with a [useful link](https://example.com/a) inside it.

![sample alt](https://example.com/img.png)

## Second Heading

Another paragraph continues here.
![](https://example.com/bare.png)

### Deep Heading

- one item
- two items

> A quoted line with substance.

` + "```\ncode that must vanish\n```" + `

Final words and <https://example.com/b> close it out.
`

func TestTokenize_Structure(t *testing.T) {
	d := seo.Tokenize(sampleDoc)

	assert.Equal(t, "Sample: A Guide", d.Title)
	assert.Equal(t, "A compact fixture.", d.Description)

	assert.Equal(t, 1, d.H1Count)
	assert.Equal(t, 1, d.H2Count)
	assert.Equal(t, 1, d.H3Count)
	require.Len(t, d.Headings, 3)
	assert.Equal(t, seo.Heading{Level: 1, Text: "Sample Heading"}, d.Headings[0])

	assert.Equal(t, 2, d.LinkCount)
	assert.Equal(t, 2, d.ImageCount)
	assert.Equal(t, 1, d.ImagesWithAlt)
}

func TestTokenize_PlainTextKeepsProseOnly(t *testing.T) {
	d := seo.Tokenize(sampleDoc)

	assert.Contains(t, d.PlainText, "useful link")
	assert.Contains(t, d.PlainText, "A quoted line with substance.")
	assert.Contains(t, d.PlainText, "one item")
	assert.Contains(t, d.PlainText, "Final words and")

	assert.NotContains(t, d.PlainText, "Sample Heading")
	assert.NotContains(t, d.PlainText, "sample alt")
	assert.NotContains(t, d.PlainText, "code that must vanish")
	assert.NotContains(t, d.PlainText, "https://example.com/a")
	assert.NotContains(t, d.PlainText, "title:")
}

func TestScore_SyntheticArticleClearsFloor(t *testing.T) {
	kw, profile, doc := syntheticArticle(t, "how to restore antique lamps")
	report := seo.Score(doc, kw, profile.IdealWordCount)

	require.GreaterOrEqual(t, report.Composite, 85)
	for _, c := range report.Checks {
		assert.Equal(t, c.Points, c.Earned, "check %s should pass for the synthetic article", c.Name)
	}

	assert.True(t, report.SEO.KeywordInTitle)
	assert.True(t, report.SEO.KeywordInMeta)
	assert.Equal(t, 1, report.SEO.H1Count)
	assert.GreaterOrEqual(t, report.SEO.H2Count, 3)
	assert.GreaterOrEqual(t, report.SEO.KeywordInHeadingCount, 1)
	assert.GreaterOrEqual(t, report.SEO.LinkCount, 2)
	assert.Equal(t, 1.0, report.SEO.ImageAltCoverage)

	assert.GreaterOrEqual(t, report.Text.WordCount, 1600)
	assert.LessOrEqual(t, report.Text.WordCount, 2400)
	assert.Equal(t, 5, report.SEO.RecommendedImages)

	assert.GreaterOrEqual(t, report.Readability, 0.0)
	assert.LessOrEqual(t, report.Readability, 100.0)
	assert.NotEmpty(t, report.ReadabilityBand)
}

func TestScore_FlagsDeficits(t *testing.T) {
	kw := mustKeyword(t, "antique lamps")
	report := seo.Score("# Tiny\n\nShort body.\n", kw, 2000)

	assert.Equal(t, 0, report.Composite)
	assert.False(t, report.SEO.TitlePresent)
	assert.False(t, report.SEO.MetaPresent)
	assert.Equal(t, 1, report.SEO.RecommendedImages)

	byName := map[string]seo.Check{}
	for _, c := range report.Checks {
		byName[c.Name] = c
	}
	require.Len(t, byName, 10)

	assert.Contains(t, byName["keyword-in-title"].Advice, `"antique lamps"`)
	assert.Contains(t, byName["meta-length"].Advice, "120 and 160")
	assert.Contains(t, byName["keyword-density"].Advice, "0.5%-3.0%")
	assert.Contains(t, byName["word-count"].Advice, "2000")
	assert.Contains(t, byName["link-count"].Advice, "two links")
}

func TestScore_DensityExact(t *testing.T) {
	doc := `---
title: Antique Lamps
description: About antique lamps.
---

Antique lamps glow well. People love antique lamps. Ten more filler words pad this out fine.
`
	kw := mustKeyword(t, "antique lamps")
	report := seo.Score(doc, kw, 2000)

	assert.Equal(t, 16, report.Text.WordCount)
	assert.Equal(t, 3, report.Text.SentenceCount)
	assert.Equal(t, 1, report.Text.ParagraphCount)
	assert.InDelta(t, 5.3, report.Text.AvgSentenceLength, 0.001)

	assert.Equal(t, 2, report.SEO.KeywordCount)
	assert.InDelta(t, 12.5, report.SEO.KeywordDensity, 0.001)
}

func TestFlesch_ClampsAndOrders(t *testing.T) {
	easy := seo.Flesch(100, 10, 120)
	hard := seo.Flesch(100, 2, 250)

	assert.Greater(t, easy, hard)
	assert.LessOrEqual(t, easy, 100.0)
	assert.Equal(t, 0.0, hard)
	assert.Equal(t, 100.0, seo.Flesch(10, 10, 10))
	assert.Equal(t, 0.0, seo.Flesch(0, 0, 0))
}

func TestBand_Thresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "Very Easy"},
		{90, "Very Easy"},
		{85, "Easy"},
		{75, "Fairly Easy"},
		{65, "Standard"},
		{55, "Fairly Difficult"},
		{40, "Difficult"},
		{30, "Difficult"},
		{10, "Very Difficult"},
		{0, "Very Difficult"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, seo.Band(tt.score), "score %.0f", tt.score)
	}
}

func TestScore_Deterministic(t *testing.T) {
	kw, profile, doc := syntheticArticle(t, "how to restore antique lamps")

	first := seo.Score(doc, kw, profile.IdealWordCount)
	second := seo.Score(doc, kw, profile.IdealWordCount)
	assert.Equal(t, first, second)
}
