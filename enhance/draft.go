// Package enhance fills an outline's section tree with body text. Each
// section is written by a separate LLM call so a failure never loses the
// whole article, truncated responses trigger a split into smaller
// subsections, and a deterministic synthetic draft backs the stage when the
// model is unreachable.
package enhance

import (
	"strings"

	"github.com/draftforge/draftforge/outline"
)

// Draft is the stored draft artifact payload: the outline with every hint
// replaced by body text. The section tree and FAQ keep the outline's shape
// unless a truncated section had to be split.
type Draft struct {
	Title           string         `json:"title"`
	MetaDescription string         `json:"meta_description"`
	Introduction    string         `json:"introduction"`
	Sections        []DraftSection `json:"sections"`
	FAQ             []DraftFAQ     `json:"faq,omitempty"`
	Conclusion      string         `json:"conclusion"`
	Keywords        []string       `json:"keywords,omitempty"`
	Categories      []string       `json:"categories,omitempty"`
}

// DraftSection is a section with its written body.
type DraftSection struct {
	Heading     string         `json:"heading"`
	Content     string         `json:"content"`
	Subsections []DraftSection `json:"subsections,omitempty"`
}

// DraftFAQ is an answered question.
type DraftFAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// skeleton copies everything from the outline that carries over unchanged.
func skeleton(o *outline.Outline) *Draft {
	return &Draft{
		Title:           o.Title,
		MetaDescription: o.MetaDescription,
		Keywords:        append([]string(nil), o.Keywords...),
		Categories:      append([]string(nil), o.Categories...),
	}
}

// WordCount returns the approximate word count of all body text.
func (d *Draft) WordCount() int {
	count := len(strings.Fields(d.Introduction)) + len(strings.Fields(d.Conclusion))
	count += sectionWords(d.Sections)
	for _, f := range d.FAQ {
		count += len(strings.Fields(f.Answer))
	}
	return count
}

func sectionWords(sections []DraftSection) int {
	count := 0
	for _, s := range sections {
		count += len(strings.Fields(s.Content))
		count += sectionWords(s.Subsections)
	}
	return count
}

// Headings returns every heading in the draft tree, depth-first.
func (d *Draft) Headings() []string {
	var out []string
	var walk func(sections []DraftSection)
	walk = func(sections []DraftSection) {
		for _, s := range sections {
			out = append(out, s.Heading)
			walk(s.Subsections)
		}
	}
	walk(d.Sections)
	return out
}
