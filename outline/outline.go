// Package outline turns an intent profile and research payloads into a
// content outline: the section tree the enhancer fills with body text. The
// synthesizer asks an LLM for the outline and falls back to a deterministic
// one built from the intent profile when the model cannot deliver.
package outline

import (
	"fmt"
	"strings"

	"github.com/draftforge/draftforge/artifact"
)

// minSections is the floor every outline must satisfy.
const minSections = 3

// Section is one node of the outline tree. ContentHint tells the enhancer
// what the body text should cover.
type Section struct {
	Heading     string    `json:"heading"`
	ContentHint string    `json:"content_hint,omitempty"`
	Subsections []Section `json:"subsections,omitempty"`
}

// FAQ is a question with a hint for its answer.
type FAQ struct {
	Question   string `json:"question"`
	AnswerHint string `json:"answer_hint,omitempty"`
}

// Outline is the stored outline artifact payload.
type Outline struct {
	Title           string    `json:"title"`
	MetaDescription string    `json:"meta_description"`
	Introduction    string    `json:"introduction,omitempty"`
	Sections        []Section `json:"sections"`
	FAQ             []FAQ     `json:"faq,omitempty"`
	ConclusionHint  string    `json:"conclusion_hint,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	Categories      []string  `json:"categories,omitempty"`
}

// Normalize trims whitespace and drops empty nodes so a sloppy model
// response still validates when its substance is there.
func (o *Outline) Normalize() {
	o.Title = strings.TrimSpace(o.Title)
	o.MetaDescription = strings.TrimSpace(o.MetaDescription)
	o.Introduction = strings.TrimSpace(o.Introduction)
	o.ConclusionHint = strings.TrimSpace(o.ConclusionHint)
	o.Sections = normalizeSections(o.Sections)

	faqs := o.FAQ[:0]
	for _, f := range o.FAQ {
		f.Question = strings.TrimSpace(f.Question)
		f.AnswerHint = strings.TrimSpace(f.AnswerHint)
		if f.Question != "" {
			faqs = append(faqs, f)
		}
	}
	o.FAQ = faqs

	o.Keywords = dropEmpty(o.Keywords)
	o.Categories = dropEmpty(o.Categories)
}

func normalizeSections(sections []Section) []Section {
	kept := sections[:0]
	for _, s := range sections {
		s.Heading = strings.TrimSpace(s.Heading)
		s.ContentHint = strings.TrimSpace(s.ContentHint)
		s.Subsections = normalizeSections(s.Subsections)
		if s.Heading != "" {
			kept = append(kept, s)
		}
	}
	return kept
}

func dropEmpty(values []string) []string {
	kept := values[:0]
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			kept = append(kept, v)
		}
	}
	return kept
}

// Validate checks the outline invariants: non-empty title and at least
// three sections.
func (o *Outline) Validate() error {
	if o.Title == "" {
		return artifact.NewValidationError("outline", fmt.Errorf("title is empty"))
	}
	if len(o.Sections) < minSections {
		return artifact.NewValidationError("outline",
			fmt.Errorf("outline has %d sections, need at least %d", len(o.Sections), minSections))
	}
	return nil
}

// SectionCount returns the total number of sections including subsections.
func (o *Outline) SectionCount() int {
	return countSections(o.Sections)
}

func countSections(sections []Section) int {
	n := len(sections)
	for _, s := range sections {
		n += countSections(s.Subsections)
	}
	return n
}
