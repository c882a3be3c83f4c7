package llm

import (
	"regexp"
	"strings"
)

// Patterns for digging JSON out of LLM responses. Models wrap payloads
// in markdown fences more often than not, so the fenced forms are tried
// before the greedy bare forms.
var (
	fencedObjectRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	bareObjectRe   = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	fencedArrayRe  = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	bareArrayRe    = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
)

// ExtractJSON pulls a JSON object out of an LLM response, tolerating
// markdown fences, JavaScript-style comments, and trailing commas.
// Returns "" when no object is found.
func ExtractJSON(content string) string {
	if raw := firstMatch(content, fencedObjectRe, bareObjectRe); raw != "" {
		return cleanJSON(raw)
	}
	return ""
}

// ExtractJSONArray is ExtractJSON for top-level arrays.
func ExtractJSONArray(content string) string {
	if raw := firstMatch(content, fencedArrayRe, bareArrayRe); raw != "" {
		return cleanJSON(raw)
	}
	return ""
}

// firstMatch prefers a fenced code block, then falls back to the first
// bare match.
func firstMatch(content string, fenced, bare *regexp.Regexp) string {
	if m := fenced.FindStringSubmatch(content); len(m) > 1 {
		return m[1]
	}
	return bare.FindString(content)
}

// cleanJSON strips JavaScript-style comments and trailing commas, the
// two invalid-JSON artifacts models produce most.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	out := strings.Join(lines, "\n")
	return trailingComma.ReplaceAllString(out, "$1")
}

// stripLineComment removes a // comment from a JSON line, leaving //
// sequences inside string values alone. For example:
//
//	"How to descale a kettle",        // section heading  → "How to descale a kettle",
//	"url": "http://example.com" // comment                → "url": "http://example.com"
//	"url": "http://example.com"                           → "url": "http://example.com" (no change)
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}

	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		switch {
		case escaped:
			escaped = false
		case line[i] == '\\' && inString:
			escaped = true
		case line[i] == '"':
			inString = !inString
		case !inString && strings.HasPrefix(line[i:], "//"):
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
