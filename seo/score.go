package seo

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/draftforge/draftforge/keyword"
)

const defaultIdealWords = 2000

var (
	wordPattern     = regexp.MustCompile(`\b\w+\b`)
	sentencePattern = regexp.MustCompile(`[.!?]+(\s|$)`)
	paragraphSplit  = regexp.MustCompile(`\n\s*\n`)
)

// TextMetrics counts the prose of the document body.
type TextMetrics struct {
	WordCount         int     `json:"word_count"`
	SentenceCount     int     `json:"sentence_count"`
	ParagraphCount    int     `json:"paragraph_count"`
	AvgSentenceLength float64 `json:"avg_sentence_length"`
	DifficultWordPct  float64 `json:"difficult_word_pct"`
}

// Metrics carries the search-oriented signals.
type Metrics struct {
	KeywordDensity        float64 `json:"keyword_density"`
	KeywordCount          int     `json:"keyword_count"`
	TitlePresent          bool    `json:"title_present"`
	TitleLength           int     `json:"title_length"`
	KeywordInTitle        bool    `json:"keyword_in_title"`
	MetaPresent           bool    `json:"meta_present"`
	MetaLength            int     `json:"meta_length"`
	KeywordInMeta         bool    `json:"keyword_in_meta"`
	H1Count               int     `json:"h1_count"`
	H2Count               int     `json:"h2_count"`
	H3Count               int     `json:"h3_count"`
	KeywordInHeadingCount int     `json:"keyword_in_heading_count"`
	LinkCount             int     `json:"link_count"`
	ImageCount            int     `json:"image_count"`
	ImageAltCoverage      float64 `json:"image_alt_coverage"`
	RecommendedImages     int     `json:"recommended_images"`
}

// Check is one rubric line: the points at stake, the points earned, and
// advice when they were not.
type Check struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Earned int    `json:"earned"`
	Advice string `json:"advice,omitempty"`
}

// Report is the full score card for one rendered draft.
type Report struct {
	Readability     float64     `json:"readability"`
	ReadabilityBand string      `json:"readability_band"`
	Text            TextMetrics `json:"text"`
	SEO             Metrics     `json:"seo"`
	Checks          []Check     `json:"checks"`
	Composite       int         `json:"composite"`
}

// Score tokenizes a rendered markdown document and grades it against the
// keyword. idealWords anchors the word-count check; zero falls back to a
// standard article length.
func Score(doc string, kw keyword.Keyword, idealWords int) *Report {
	if idealWords <= 0 {
		idealWords = defaultIdealWords
	}

	d := Tokenize(doc)
	words := wordPattern.FindAllString(d.PlainText, -1)

	text := TextMetrics{
		WordCount:      len(words),
		SentenceCount:  len(sentencePattern.FindAllString(d.PlainText, -1)),
		ParagraphCount: countParagraphs(d.PlainText),
	}
	if text.WordCount > 0 && text.SentenceCount == 0 {
		text.SentenceCount = 1
	}

	syllables := 0
	difficult := 0
	for _, w := range words {
		s := countSyllables(w)
		syllables += s
		if s >= 3 {
			difficult++
		}
	}
	if text.SentenceCount > 0 {
		text.AvgSentenceLength = round1(float64(text.WordCount) / float64(text.SentenceCount))
	}
	if text.WordCount > 0 {
		text.DifficultWordPct = round1(100 * float64(difficult) / float64(text.WordCount))
	}

	kwPattern := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw.Raw))
	matches := len(kwPattern.FindAllString(d.PlainText, -1))

	metrics := Metrics{
		KeywordCount:          matches,
		TitlePresent:          d.Title != "",
		TitleLength:           len(d.Title),
		KeywordInTitle:        containsFold(d.Title, kw.Raw),
		MetaPresent:           d.Description != "",
		MetaLength:            len(d.Description),
		KeywordInMeta:         containsFold(d.Description, kw.Raw),
		H1Count:               d.H1Count,
		H2Count:               d.H2Count,
		H3Count:               d.H3Count,
		LinkCount:             d.LinkCount,
		ImageCount:            d.ImageCount,
		RecommendedImages:     recommendImages(text.WordCount),
	}
	if text.WordCount > 0 {
		metrics.KeywordDensity = round2(100 * float64(matches) / float64(text.WordCount))
	}
	if d.ImageCount > 0 {
		metrics.ImageAltCoverage = round2(float64(d.ImagesWithAlt) / float64(d.ImageCount))
	}
	for _, h := range d.Headings {
		if containsFold(h.Text, kw.Raw) {
			metrics.KeywordInHeadingCount++
		}
	}

	checks := rubric(kw, metrics, len(d.Headings), d.ImagesWithAlt, text.WordCount, idealWords)
	composite := 0
	for _, c := range checks {
		composite += c.Earned
	}

	readability := round1(Flesch(text.WordCount, text.SentenceCount, syllables))
	return &Report{
		Readability:     readability,
		ReadabilityBand: Band(readability),
		Text:            text,
		SEO:             metrics,
		Checks:          checks,
		Composite:       composite,
	}
}

// rubric grades the fixed check list. Points total 100.
func rubric(kw keyword.Keyword, m Metrics, headings, imagesWithAlt, wordCount, idealWords int) []Check {
	lower := idealWords * 80 / 100
	upper := idealWords * 120 / 100

	grade := func(name string, points int, pass bool, advice string) Check {
		c := Check{Name: name, Points: points}
		if pass {
			c.Earned = points
		} else {
			c.Advice = advice
		}
		return c
	}

	return []Check{
		grade("keyword-in-title", 20, m.KeywordInTitle,
			fmt.Sprintf("Include the exact phrase %q in the title", kw.Raw)),
		grade("title-length", 10, m.TitleLength >= 30 && m.TitleLength <= 60,
			fmt.Sprintf("Keep the title between 30 and 60 characters (currently %d)", m.TitleLength)),
		grade("keyword-in-meta", 15, m.KeywordInMeta,
			fmt.Sprintf("Use the phrase %q in the meta description", kw.Raw)),
		grade("meta-length", 10, m.MetaLength >= 120 && m.MetaLength <= 160,
			fmt.Sprintf("Write a meta description between 120 and 160 characters (currently %d)", m.MetaLength)),
		grade("keyword-density", 15, m.KeywordDensity >= 0.5 && m.KeywordDensity <= 3.0,
			fmt.Sprintf("Bring keyword density into the 0.5%%-3.0%% range (currently %.2f%%)", m.KeywordDensity)),
		grade("keyword-in-heading", 10, m.KeywordInHeadingCount >= 1,
			fmt.Sprintf("Use the phrase %q in at least one heading", kw.Raw)),
		grade("heading-count", 5, headings >= 3,
			fmt.Sprintf("Structure the article with at least 3 headings (currently %d)", headings)),
		grade("image-alt", 5, imagesWithAlt >= 1,
			"Include at least one image with alt text"),
		grade("link-count", 5, m.LinkCount >= 2,
			fmt.Sprintf("Add at least two links (currently %d)", m.LinkCount)),
		grade("word-count", 5, wordCount >= lower && wordCount <= upper,
			fmt.Sprintf("Bring the word count within 20%% of %d words (currently %d)", idealWords, wordCount)),
	}
}

// recommendImages suggests roughly one image per 400 words.
func recommendImages(wordCount int) int {
	n := wordCount / 400
	if n < 1 {
		n = 1
	}
	if n > 10 {
		n = 10
	}
	return n
}

func countParagraphs(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	count := 0
	for _, block := range paragraphSplit.Split(text, -1) {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func round1(x float64) float64 { return math.Round(x*10) / 10 }

func round2(x float64) float64 { return math.Round(x*100) / 100 }
