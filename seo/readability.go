package seo

import "strings"

// Flesch computes the Flesch Reading Ease score, clamped to [0, 100].
func Flesch(words, sentences, syllables int) float64 {
	if words == 0 || sentences == 0 {
		return 0
	}
	score := 206.835 -
		1.015*(float64(words)/float64(sentences)) -
		84.6*(float64(syllables)/float64(words))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Band names the reading-ease band a score falls into.
func Band(score float64) string {
	switch {
	case score >= 90:
		return "Very Easy"
	case score >= 80:
		return "Easy"
	case score >= 70:
		return "Fairly Easy"
	case score >= 60:
		return "Standard"
	case score >= 50:
		return "Fairly Difficult"
	case score >= 30:
		return "Difficult"
	default:
		return "Very Difficult"
	}
}

// countSyllables estimates syllables by counting vowel groups after
// dropping a silent e/ed/es suffix. Words ending in le keep the suffix,
// and every word counts at least one syllable.
func countSyllables(word string) int {
	w := strings.ToLower(word)
	if len(w) <= 3 {
		return 1
	}

	if !strings.HasSuffix(w, "le") && !strings.HasSuffix(w, "les") {
		switch {
		case strings.HasSuffix(w, "es"), strings.HasSuffix(w, "ed"):
			w = w[:len(w)-2]
		case strings.HasSuffix(w, "e"):
			w = w[:len(w)-1]
		}
	}

	groups := 0
	prevVowel := false
	for _, r := range w {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			groups++
		}
		prevVowel = vowel
	}
	if groups == 0 {
		return 1
	}
	return groups
}
