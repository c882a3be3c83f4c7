package intent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/provider"
)

func analyze(t *testing.T, raw string, in intent.Inputs) *intent.Profile {
	t.Helper()
	kw, err := keyword.New(raw)
	require.NoError(t, err)
	return intent.Analyze(kw, in)
}

func serpWithTitles(titles ...string) *provider.SERPPayload {
	payload := &provider.SERPPayload{}
	for _, title := range titles {
		payload.Serp = append(payload.Serp, provider.SERPResult{Title: title})
	}
	return payload
}

func TestAnalyze_HowToKeyword(t *testing.T) {
	profile := analyze(t, "how to restore antique lamps", intent.Inputs{})

	assert.Equal(t, intent.Informational, profile.PrimaryIntent)
	assert.Empty(t, profile.SecondaryIntent)
	assert.Equal(t, intent.FormatHowTo, profile.PrimaryFormat())
	assert.Equal(t, 2000, profile.IdealWordCount)
	assert.Equal(t, intent.Awareness, profile.JourneyStage)
	assert.Equal(t, intent.TopFunnel, profile.BuyerStage)
	assert.True(t, profile.FeaturedSnippet.Opportunity)
	assert.Equal(t, intent.SnippetParagraph, profile.FeaturedSnippet.Type)
	assert.True(t, profile.RichMedia, "how-to content calls for step imagery")

	require.NotEmpty(t, profile.Headings)
	joined := strings.Join(profile.Headings, "\n")
	assert.Contains(t, joined, "How To Restore Antique Lamps")
}

func TestAnalyze_CommercialKeyword(t *testing.T) {
	serp := serpWithTitles(
		"Best Wireless Headphones 2025: Tested by Our Lab",
		"The 12 Best Wireless Headphones You Can Buy",
		"Best Wireless Headphones for Every Budget",
		"Wireless Headphone Buying Advice",
		"Our Favorite Headphones This Year",
	)

	profile := analyze(t, "best wireless headphones 2025", intent.Inputs{SERP: serp})

	assert.Equal(t, intent.Commercial, profile.PrimaryIntent)
	assert.True(t, profile.HasFormat(intent.FormatListPost))
	assert.Equal(t, intent.Consideration, profile.JourneyStage)
	assert.Equal(t, intent.MidFunnel, profile.BuyerStage)
	assert.Equal(t, 2500, profile.IdealWordCount)

	joined := strings.Join(profile.Headings, "\n")
	assert.Contains(t, joined, "Best")
}

func TestAnalyze_TransactionalKeyword(t *testing.T) {
	profile := analyze(t, "buy canon r6 mark ii", intent.Inputs{})

	assert.Equal(t, intent.Transactional, profile.PrimaryIntent)
	assert.Equal(t, intent.Decision, profile.JourneyStage)
	assert.Equal(t, intent.BottomFunnel, profile.BuyerStage)
	assert.Equal(t, 1500, profile.IdealWordCount)

	joined := strings.Join(profile.Headings, "\n")
	assert.Contains(t, joined, "Pricing and Where to Buy")
}

func TestAnalyze_NoSignalsDefaults(t *testing.T) {
	profile := analyze(t, "quantum chromodynamics", intent.Inputs{})

	assert.Equal(t, intent.Informational, profile.PrimaryIntent)
	assert.Empty(t, profile.SecondaryIntent)
	assert.Equal(t, intent.Awareness, profile.JourneyStage)
	assert.Equal(t, []intent.Format{intent.FormatUltimateGuide}, profile.Formats)
	assert.Equal(t, 2000, profile.IdealWordCount)
	assert.False(t, profile.FeaturedSnippet.Opportunity)
	assert.Equal(t, intent.SnippetNone, profile.FeaturedSnippet.Type)
	assert.False(t, profile.LocalIntent)
	assert.Zero(t, profile.SignalScores[intent.Informational])
}

func TestAnalyze_TieBrokenByDeclarationOrder(t *testing.T) {
	// "how" scores informational, "buy" scores transactional; the earlier
	// declared set wins and the other becomes secondary.
	profile := analyze(t, "how to buy a house", intent.Inputs{})

	assert.Equal(t, intent.Informational, profile.PrimaryIntent)
	assert.Equal(t, intent.Transactional, profile.SecondaryIntent)
}

func TestAnalyze_SecondaryRequiresScore(t *testing.T) {
	profile := analyze(t, "best cheap laptop deals", intent.Inputs{})

	// "best" plus "top" (inside laptop) versus "cheap" plus "deal"
	assert.Equal(t, intent.Commercial, profile.PrimaryIntent)
	assert.Equal(t, intent.Transactional, profile.SecondaryIntent)
	assert.Equal(t, 2, profile.SignalScores[intent.Commercial])
	assert.Equal(t, 2, profile.SignalScores[intent.Transactional])
}

func TestAnalyze_NavigationalKeyword(t *testing.T) {
	profile := analyze(t, "netflix account login", intent.Inputs{})

	assert.Equal(t, intent.Navigational, profile.PrimaryIntent)
	assert.Equal(t, intent.Decision, profile.JourneyStage)
	assert.Equal(t, 1000, profile.IdealWordCount)
	assert.Equal(t, "Netflix Account Login: Official Resources", profile.Headings[0])
}

func TestAnalyze_WordCountFromCompetitors(t *testing.T) {
	serp := &provider.SERPPayload{Serp: []provider.SERPResult{
		{Title: "a", WordCount: 2000},
		{Title: "b", WordCount: 1800},
		{Title: "c", WordCount: 2200},
		{Title: "d", WordCount: 1600},
		{Title: "e", WordCount: 2400},
		{Title: "f", WordCount: 9000}, // beyond the top five, ignored
	}}

	profile := analyze(t, "quantum chromodynamics", intent.Inputs{SERP: serp})

	// mean(2000,1800,2200,1600,2400) = 2000, lifted by 10%
	assert.Equal(t, 2200, profile.IdealWordCount)
}

func TestAnalyze_WordCountPartialCompetitors(t *testing.T) {
	serp := &provider.SERPPayload{Serp: []provider.SERPResult{
		{Title: "a"},
		{Title: "b", WordCount: 1000},
		{Title: "c"},
		{Title: "d", WordCount: 2000},
		{Title: "e"},
	}}

	profile := analyze(t, "quantum chromodynamics", intent.Inputs{SERP: serp})

	// mean(1000,2000) = 1500, lifted by 10%
	assert.Equal(t, 1650, profile.IdealWordCount)
}

func TestAnalyze_WordCountZeroCompetitorsFallsBack(t *testing.T) {
	serp := serpWithTitles("one", "two", "three")

	profile := analyze(t, "buy canon r6 mark ii", intent.Inputs{SERP: serp})
	assert.Equal(t, 1500, profile.IdealWordCount)
}

func TestAnalyze_FormatFromSERPTitles(t *testing.T) {
	serp := serpWithTitles(
		"The Ultimate Guide to Quantum Chromodynamics",
		"Quantum Chromodynamics: A Complete Guide",
		"QCD Lecture Notes",
		"Inside the Strong Force",
		"Quarks and Gluons Explained",
	)

	profile := analyze(t, "quantum chromodynamics", intent.Inputs{SERP: serp})

	// Two titles carry ultimate-guide signals, so the format is appended
	assert.True(t, profile.HasFormat(intent.FormatUltimateGuide))
}

func TestAnalyze_FormatSERPBelowThreshold(t *testing.T) {
	serp := serpWithTitles(
		"How to Think About Quantum Chromodynamics",
		"QCD Lecture Notes",
		"Inside the Strong Force",
	)

	profile := analyze(t, "quantum chromodynamics", intent.Inputs{SERP: serp})

	// One matching title is not enough to append how-to
	assert.False(t, profile.HasFormat(intent.FormatHowTo))
	assert.Equal(t, []intent.Format{intent.FormatUltimateGuide}, profile.Formats)
}

func TestAnalyze_DefinitionSnippetBeatsParagraph(t *testing.T) {
	profile := analyze(t, "what is quantum computing", intent.Inputs{})

	assert.True(t, profile.FeaturedSnippet.Opportunity)
	assert.Equal(t, intent.SnippetDefinition, profile.FeaturedSnippet.Type)
}

func TestAnalyze_ListSnippet(t *testing.T) {
	profile := analyze(t, "best standing desks", intent.Inputs{})

	assert.Equal(t, intent.SnippetList, profile.FeaturedSnippet.Type)
}

func TestAnalyze_LocalIntent(t *testing.T) {
	profile := analyze(t, "coffee shops near me", intent.Inputs{})

	assert.True(t, profile.LocalIntent)
	assert.Equal(t, intent.Decision, profile.JourneyStage, "near me is an explicit decision signal")
}

func TestAnalyze_CarriesQuestionsAndSubtopics(t *testing.T) {
	in := intent.Inputs{
		Questions: []string{"How do I date an antique lamp?", "Are brass lamps valuable?"},
		Subtopics: []string{"maker marks", "patina care"},
	}

	profile := analyze(t, "antique brass lamps", in)

	assert.Equal(t, in.Questions, profile.Questions)
	assert.Equal(t, in.Subtopics, profile.Subtopics)
}

func TestAnalyze_Deterministic(t *testing.T) {
	kw, err := keyword.New("best wireless headphones 2025")
	require.NoError(t, err)

	in := intent.Inputs{SERP: serpWithTitles("Best Headphones", "Top Headphones Reviewed")}
	first := intent.Analyze(kw, in)
	second := intent.Analyze(kw, in)

	assert.Equal(t, first, second)
}
