package intent

import (
	"fmt"
	"math"
	"strings"

	"github.com/draftforge/draftforge/keyword"
	"github.com/draftforge/draftforge/provider"
)

// topResultCount bounds how many SERP entries inform the profile.
const topResultCount = 5

// serpTitleThreshold is how many top titles must show a format's signals
// before the format is appended.
const serpTitleThreshold = 2

// wordCountLift is applied to the mean competitor word count. Outranking
// the field takes slightly more depth than matching it.
const wordCountLift = 1.10

// Inputs carries the research payloads the analyzer draws on. SERP feeds
// classification; Questions and Subtopics are carried through into the
// profile for the outline and enhancer stages.
type Inputs struct {
	SERP      *provider.SERPPayload
	Questions []string
	Subtopics []string
}

// Analyze classifies a keyword into an intent profile. It is deterministic:
// the same keyword and inputs always produce the same profile.
func Analyze(kw keyword.Keyword, in Inputs) *Profile {
	lower := strings.ToLower(kw.Raw)

	scores := make(map[Intent]int, len(intentOrder))
	for _, it := range intentOrder {
		scores[it] = countSignals(lower, intentSignals[it])
	}
	primary, secondary := classify(scores)

	journey := journeyStage(lower, primary)
	formats := detectFormats(lower, topTitles(in.SERP))

	profile := &Profile{
		Keyword:         kw.Raw,
		PrimaryIntent:   primary,
		SecondaryIntent: secondary,
		SignalScores:    scores,
		JourneyStage:    journey,
		BuyerStage:      buyerForJourney[journey],
		Formats:         formats,
		IdealWordCount:  idealWordCount(primary, in.SERP),
		Headings:        renderHeadings(primary, kw.TitleCase()),
		FeaturedSnippet: featuredSnippet(lower),
		Questions:       append([]string(nil), in.Questions...),
		Subtopics:       append([]string(nil), in.Subtopics...),
		LocalIntent:     anySignal(lower, localSignals),
	}
	profile.RichMedia = profile.HasFormat(FormatHowTo) || anySignal(lower, visualSignals)

	return profile
}

// countSignals returns how many signals from the set occur in the keyword.
func countSignals(lower string, signals []string) int {
	count := 0
	for _, sig := range signals {
		if strings.Contains(lower, sig) {
			count++
		}
	}
	return count
}

// anySignal reports whether any signal occurs in the keyword.
func anySignal(lower string, signals []string) bool {
	for _, sig := range signals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// classify picks the primary intent by argmax with declaration-order
// tie-breaking, and the runner-up as secondary only when it scored at all.
// All-zero scores default to informational.
func classify(scores map[Intent]int) (Intent, Intent) {
	primary := Informational
	best := 0
	for _, it := range intentOrder {
		if scores[it] > best {
			primary = it
			best = scores[it]
		}
	}

	var secondary Intent
	runnerUp := 0
	for _, it := range intentOrder {
		if it == primary {
			continue
		}
		if scores[it] > runnerUp {
			secondary = it
			runnerUp = scores[it]
		}
	}

	return primary, secondary
}

// topTitles returns the lowercased titles of the top SERP results.
func topTitles(serp *provider.SERPPayload) []string {
	if serp == nil {
		return nil
	}

	titles := make([]string, 0, topResultCount)
	for _, result := range serp.Serp {
		if len(titles) == topResultCount {
			break
		}
		if result.Title == "" {
			continue
		}
		titles = append(titles, strings.ToLower(result.Title))
	}
	return titles
}

// detectFormats matches format signals against the keyword, then appends
// formats whose signals recur across the top SERP titles. No match at all
// yields ultimate-guide.
func detectFormats(lower string, titles []string) []Format {
	var formats []Format
	have := make(map[Format]bool)

	for _, f := range formatOrder {
		if anySignal(lower, formatSignals[f]) {
			formats = append(formats, f)
			have[f] = true
		}
	}

	for _, f := range formatOrder {
		if have[f] {
			continue
		}
		matching := 0
		for _, title := range titles {
			if anySignal(title, formatSignals[f]) {
				matching++
			}
		}
		if matching >= serpTitleThreshold {
			formats = append(formats, f)
			have[f] = true
		}
	}

	if len(formats) == 0 {
		formats = []Format{FormatUltimateGuide}
	}
	return formats
}

// journeyStage checks explicit journey signals before falling back to the
// intent mapping. Navigational searchers are already decided on where to go.
func journeyStage(lower string, primary Intent) JourneyStage {
	for _, stage := range journeyOrder {
		if anySignal(lower, journeySignals[stage]) {
			return stage
		}
	}

	switch primary {
	case Commercial:
		return Consideration
	case Transactional, Navigational:
		return Decision
	default:
		return Awareness
	}
}

// idealWordCount averages the top competitor word counts with a lift, or
// falls back to the per-intent table when the SERP carries none.
func idealWordCount(primary Intent, serp *provider.SERPPayload) int {
	if serp != nil {
		sum, n := 0, 0
		for i, result := range serp.Serp {
			if i == topResultCount {
				break
			}
			if result.WordCount > 0 {
				sum += result.WordCount
				n++
			}
		}
		if n > 0 {
			return int(math.Round(float64(sum) / float64(n) * wordCountLift))
		}
	}

	return defaultWordCounts[primary]
}

// featuredSnippet picks the first matching snippet layout, then falls back
// to the leading-interrogative paragraph rule.
func featuredSnippet(lower string) FeaturedSnippet {
	for _, candidate := range snippetSignals {
		if anySignal(lower, candidate.Signals) {
			return FeaturedSnippet{Opportunity: true, Type: candidate.Type}
		}
	}

	fields := strings.Fields(lower)
	if len(fields) > 0 {
		for _, opener := range interrogatives {
			if fields[0] == opener {
				return FeaturedSnippet{Opportunity: true, Type: SnippetParagraph}
			}
		}
	}

	return FeaturedSnippet{Opportunity: false, Type: SnippetNone}
}

// renderHeadings fills the intent's heading template with the title-cased
// keyword.
func renderHeadings(primary Intent, titleCased string) []string {
	template := headingTemplates[primary]
	headings := make([]string, len(template))
	for i, h := range template {
		if strings.Contains(h, "%s") {
			headings[i] = fmt.Sprintf(h, titleCased)
		} else {
			headings[i] = h
		}
	}
	return headings
}
