package outline

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/draftforge/draftforge/intent"
	"github.com/draftforge/draftforge/keyword"
)

// metaDescription length window rewarded by the SEO rubric.
const (
	metaMinLen = 120
	metaMaxLen = 160
)

// titleSuffixes completes the fallback title per primary format.
var titleSuffixes = map[intent.Format]string{
	intent.FormatHowTo:          "%s: A Step-by-Step Guide",
	intent.FormatListPost:       "%s: Ranked and Reviewed",
	intent.FormatComparison:     "%s: Which Is Right for You?",
	intent.FormatUltimateGuide:  "%s: The Complete Guide",
	intent.FormatCaseStudy:      "%s: Lessons and Results",
	intent.FormatQuestionAnswer: "%s: Your Questions Answered",
}

// categoriesForIntent maps the primary intent to default categories.
var categoriesForIntent = map[intent.Intent][]string{
	intent.Informational: {"Guides"},
	intent.Commercial:    {"Reviews"},
	intent.Transactional: {"Buying Guides"},
	intent.Navigational:  {"Resources"},
}

// fallbackQuestions backstop the FAQ when no PAA questions were gathered.
var fallbackQuestions = []string{
	"What is %s?",
	"How do I get started with %s?",
	"What mistakes should I avoid with %s?",
}

// Fallback builds a deterministic outline from the intent profile alone:
// the recommended heading structure becomes the section list and the
// people-also-ask questions become the FAQ. It always validates.
func Fallback(kw keyword.Keyword, profile *intent.Profile) *Outline {
	titleCased := kw.TitleCase()

	o := &Outline{
		Title:           fmt.Sprintf(titleSuffixes[profile.PrimaryFormat()], titleCased),
		MetaDescription: fallbackMeta(kw.Raw, titleCased),
		Introduction: fmt.Sprintf(
			"Introduce %s, who this article is for, and what readers will be able to do by the end.",
			kw.Raw),
		ConclusionHint: "Summarize the key takeaways and give the reader one clear next step.",
		Keywords:       append([]string{kw.Raw}, profile.Subtopics...),
		Categories:     append([]string(nil), categoriesForIntent[profile.PrimaryIntent]...),
	}

	for _, heading := range profile.Headings {
		// The FAQ renders as its own block from the FAQ list below
		if strings.EqualFold(heading, "Frequently Asked Questions") {
			continue
		}
		o.Sections = append(o.Sections, Section{
			Heading: heading,
			ContentHint: fmt.Sprintf(
				"Cover %q for readers researching %s. Be specific and practical.",
				heading, kw.Raw),
		})
	}

	if len(profile.Subtopics) > 0 {
		related := Section{
			Heading:     "Beyond the Basics",
			ContentHint: fmt.Sprintf("Connect %s to the closest related topics readers explore next.", kw.Raw),
		}
		for _, sub := range profile.Subtopics {
			related.Subsections = append(related.Subsections, Section{
				Heading:     titleCase(sub),
				ContentHint: fmt.Sprintf("Briefly explain %s and when it matters.", sub),
			})
		}
		o.Sections = append(o.Sections, related)
	}

	questions := profile.Questions
	if len(questions) == 0 {
		for _, tmpl := range fallbackQuestions {
			questions = append(questions, fmt.Sprintf(tmpl, kw.Raw))
		}
	}
	for _, q := range questions {
		o.FAQ = append(o.FAQ, FAQ{
			Question:   q,
			AnswerHint: "Answer directly in two to three sentences.",
		})
	}

	return o
}

// fallbackMeta builds a meta description inside the rubric's length window
// regardless of keyword length.
func fallbackMeta(raw, titleCased string) string {
	long := fmt.Sprintf(
		"%s explained: what matters, what it costs, and the mistakes to avoid. A practical, research-backed walkthrough with answers to the questions readers ask most.",
		titleCased)
	short := fmt.Sprintf(
		"%s explained: what matters, what it costs, and the mistakes to avoid, with answers to common questions.",
		titleCased)

	for _, candidate := range []string{long, short} {
		if len(candidate) >= metaMinLen && len(candidate) <= metaMaxLen {
			return candidate
		}
	}

	// Very long keywords overflow both templates; cut at a word boundary.
	trimmed := long
	if len(trimmed) > metaMaxLen {
		cut := strings.LastIndex(trimmed[:metaMaxLen-1], " ")
		if cut < metaMinLen {
			cut = metaMaxLen - 1
		}
		trimmed = strings.TrimRight(trimmed[:cut], " ,;:") + "."
	}
	return trimmed
}

// titleCase capitalizes each word of a subtopic phrase for use as a heading.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
