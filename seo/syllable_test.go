package seo

import "testing"

func TestCountSyllables(t *testing.T) {
	tests := []struct {
		word string
		want int
	}{
		{"a", 1},
		{"cat", 1},
		{"psst", 1},
		{"table", 2},
		{"apples", 2},
		{"played", 1},
		{"scores", 1},
		{"restore", 2},
		{"antique", 3},
		{"readability", 5},
		{"LAMPS", 1},
	}

	for _, tt := range tests {
		if got := countSyllables(tt.word); got != tt.want {
			t.Errorf("countSyllables(%q) = %d, want %d", tt.word, got, tt.want)
		}
	}
}

func TestSplitFrontMatter(t *testing.T) {
	meta, body := splitFrontMatter("---\ntitle: X\n---\n\n# Body\n")
	if meta != "title: X\n" {
		t.Errorf("meta = %q", meta)
	}
	if body != "\n# Body\n" {
		t.Errorf("body = %q", body)
	}

	meta, body = splitFrontMatter("# No front matter\n")
	if meta != "" || body != "# No front matter\n" {
		t.Errorf("unexpected split: meta=%q body=%q", meta, body)
	}

	// Unclosed fence is body, not front matter.
	meta, body = splitFrontMatter("---\ntitle: X\n")
	if meta != "" || body != "---\ntitle: X\n" {
		t.Errorf("unclosed fence: meta=%q body=%q", meta, body)
	}
}
