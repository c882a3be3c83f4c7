package llm

import (
	"encoding/json"
	"maps"
	"slices"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKey  string // if non-empty, check this key exists in parsed JSON
		wantNone bool   // no JSON should be found
	}{
		{
			name:    "plain JSON",
			input:   `{"title": "test"}`,
			wantKey: "title",
		},
		{
			name:    "markdown code block",
			input:   "```json\n{\"title\": \"test\"}\n```",
			wantKey: "title",
		},
		{
			name:    "markdown block with trailing text",
			input:   "```json\n{\"title\": \"test\"}\n```\n\n**Some extra text here**",
			wantKey: "title",
		},
		{
			name: "JS comments in values",
			input: "```json\n{\n  \"sections\": [\n    \"What Is Cold Brew\",          // intro section\n    \"Brewing Ratios Explained\"      // core how-to\n  ]\n}\n```",
			wantKey: "sections",
		},
		{
			name: "JS comments and trailing commas",
			input: "```json\n{\n  \"faqs\": [\n    \"one\",  // first\n    \"two\",  // second\n  ]\n}\n```",
			wantKey: "faqs",
		},
		{
			name:    "URL in string not stripped",
			input:   `{"url": "http://example.com/path"}`,
			wantKey: "url",
		},
		{
			name:    "URL in string with comment after",
			input:   "{\"url\": \"http://example.com/path\"} // trailing",
			wantKey: "url",
		},
		{
			name: "complex real-world response",
			input: "```json\n{\n  \"title\": \"Best Coffee Makers of 2026\",\n  \"meta_description\": \"Hands-on picks\",\n  \"sections\": [\n    {\n      \"heading\": \"How We Tested\",        // methodology first\n      \"subsections\": []\n    },\n    {\n      \"heading\": \"Top Picks\",             // the list itself\n      \"subsections\": [\n        \"Best Overall\",                    // budget-agnostic pick\n        \"Best Budget\",                     // under $100\n      ]\n    }\n  ]\n}\n```\n\n**Notes on the outline:**\n\n1. **Search intent**: Commercial investigation, so comparisons lead.\n2. **FAQ**: Pull from related questions.\n3. **Length**: Aim for the competitive word count.",
			wantKey: "title",
		},
		{
			name:     "empty input",
			input:    "",
			wantNone: true,
		},
		{
			name:     "no JSON at all",
			input:    "This is just text with no JSON.",
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSON(tt.input)

			if tt.wantNone {
				if result != "" {
					t.Errorf("expected empty result, got: %s", result)
				}
				return
			}
			if result == "" {
				t.Fatal("expected JSON result, got empty string")
			}

			var parsed map[string]any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON: %v\nresult: %s", err, result)
			}

			if tt.wantKey != "" {
				if _, ok := parsed[tt.wantKey]; !ok {
					t.Errorf("expected key %q in parsed JSON, got keys: %v", tt.wantKey, slices.Collect(maps.Keys(parsed)))
				}
			}
		})
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantLen int
	}{
		{
			name:    "plain array",
			input:   `["one", "two"]`,
			wantLen: 2,
		},
		{
			name:    "markdown code block array",
			input:   "```json\n[\"one\", \"two\"]\n```",
			wantLen: 2,
		},
		{
			name:    "array with comments",
			input:   "```json\n[\n  \"one\",  // first\n  \"two\"   // second\n]\n```",
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExtractJSONArray(tt.input)
			if result == "" {
				t.Fatal("expected result, got empty string")
			}

			var parsed []any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("result is not valid JSON array: %v\nresult: %s", err, result)
			}

			if len(parsed) != tt.wantLen {
				t.Errorf("expected array length %d, got %d", tt.wantLen, len(parsed))
			}
		})
	}
}

func TestStripLineComment(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no comment",
			input:    `  "key": "value",`,
			expected: `  "key": "value",`,
		},
		{
			name:     "trailing comment",
			input:    `  "key": "value",  // a comment`,
			expected: `  "key": "value",`,
		},
		{
			name:     "URL in string preserved",
			input:    `  "url": "http://example.com",`,
			expected: `  "url": "http://example.com",`,
		},
		{
			name:     "URL with trailing comment",
			input:    `  "url": "http://example.com",  // the url`,
			expected: `  "url": "http://example.com",`,
		},
		{
			name:     "whole line comment",
			input:    `  // This is a comment`,
			expected: ``,
		},
		{
			name:     "escaped quote in string",
			input:    `  "heading": "a\"b//c",  // comment`,
			expected: `  "heading": "a\"b//c",`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripLineComment(tt.input)
			if got != tt.expected {
				t.Errorf("stripLineComment(%q)\ngot:  %q\nwant: %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "trailing comma in array",
			input: `{"items": ["one", "two",]}`,
		},
		{
			name:  "trailing comma in object",
			input: `{"a": 1, "b": 2,}`,
		},
		{
			name:  "comments and trailing commas",
			input: "{\n  \"items\": [\n    \"one\",  // first\n    \"two\",  // second\n  ]\n}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanJSON(tt.input)

			var parsed any
			if err := json.Unmarshal([]byte(result), &parsed); err != nil {
				t.Fatalf("cleaned JSON is invalid: %v\nresult: %s", err, result)
			}
		})
	}
}
