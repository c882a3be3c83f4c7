// Package intent classifies a keyword into an intent profile that steers
// every downstream stage: outline shape, word count targets, image counts,
// and refinement emphasis. Classification is a pure function over the
// keyword and research payloads; no network calls, no stored state.
package intent

// Intent is the primary search intent behind a keyword.
type Intent string

const (
	Informational Intent = "informational"
	Commercial    Intent = "commercial"
	Transactional Intent = "transactional"
	Navigational  Intent = "navigational"
)

// intentOrder is the declaration order used for argmax tie-breaking.
var intentOrder = []Intent{Informational, Commercial, Transactional, Navigational}

// Format is a recommended content format, ordered by fit.
type Format string

const (
	FormatHowTo          Format = "how-to"
	FormatListPost       Format = "list-post"
	FormatComparison     Format = "comparison"
	FormatUltimateGuide  Format = "ultimate-guide"
	FormatCaseStudy      Format = "case-study"
	FormatQuestionAnswer Format = "question-answer"
)

// formatOrder is the declaration order used when appending formats.
var formatOrder = []Format{
	FormatHowTo,
	FormatListPost,
	FormatComparison,
	FormatUltimateGuide,
	FormatCaseStudy,
	FormatQuestionAnswer,
}

// JourneyStage is where the searcher sits in the user journey.
type JourneyStage string

const (
	Awareness     JourneyStage = "awareness"
	Consideration JourneyStage = "consideration"
	Decision      JourneyStage = "decision"
	Retention     JourneyStage = "retention"
)

// journeyOrder is the declaration order for explicit journey signals.
var journeyOrder = []JourneyStage{Awareness, Consideration, Decision, Retention}

// BuyerStage is the funnel position derived from the journey stage.
type BuyerStage string

const (
	TopFunnel    BuyerStage = "top-funnel"
	MidFunnel    BuyerStage = "mid-funnel"
	BottomFunnel BuyerStage = "bottom-funnel"
	PostPurchase BuyerStage = "post-purchase"
)

// buyerForJourney maps journey stages onto the funnel.
var buyerForJourney = map[JourneyStage]BuyerStage{
	Awareness:     TopFunnel,
	Consideration: MidFunnel,
	Decision:      BottomFunnel,
	Retention:     PostPurchase,
}

// SnippetType is the featured-snippet layout a page could win.
type SnippetType string

const (
	SnippetDefinition SnippetType = "definition"
	SnippetList       SnippetType = "list"
	SnippetTable      SnippetType = "table"
	SnippetParagraph  SnippetType = "paragraph"
	SnippetNone       SnippetType = "none"
)

// FeaturedSnippet records whether the keyword has a snippet opportunity and
// which layout to target.
type FeaturedSnippet struct {
	Opportunity bool        `json:"opportunity"`
	Type        SnippetType `json:"type"`
}

// Profile is the stored intent artifact payload.
type Profile struct {
	Keyword         string `json:"keyword"`
	PrimaryIntent   Intent `json:"primary_intent"`
	SecondaryIntent Intent `json:"secondary_intent,omitempty"`

	// SignalScores records the per-intent match counts behind the
	// classification, mostly for operators reading artifacts.
	SignalScores map[Intent]int `json:"signal_scores"`

	JourneyStage JourneyStage `json:"user_journey_stage"`
	BuyerStage   BuyerStage   `json:"buyer_journey_stage"`

	Formats        []Format `json:"recommended_formats"`
	IdealWordCount int      `json:"ideal_word_count"`

	// Headings is the recommended heading structure with the keyword
	// title-cased in.
	Headings []string `json:"recommended_headings"`

	FeaturedSnippet FeaturedSnippet `json:"featured_snippet"`

	Questions []string `json:"people_also_ask,omitempty"`
	Subtopics []string `json:"related_subtopics,omitempty"`

	LocalIntent bool `json:"local_intent"`
	RichMedia   bool `json:"rich_media"`
}

// PrimaryFormat returns the best-fit content format.
func (p *Profile) PrimaryFormat() Format {
	if len(p.Formats) == 0 {
		return FormatUltimateGuide
	}
	return p.Formats[0]
}

// HasFormat reports whether f is among the recommended formats.
func (p *Profile) HasFormat(f Format) bool {
	for _, have := range p.Formats {
		if have == f {
			return true
		}
	}
	return false
}
