package enhance

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords,omitempty"`
	Categories  []string `yaml:"categories,omitempty"`
}

// Render serializes the draft as a markdown article with YAML front
// matter. Only stable fields enter the front matter, so rendering the
// same draft twice yields identical bytes.
func Render(d *Draft) string {
	var b strings.Builder

	fm, _ := yaml.Marshal(frontMatter{
		Title:       d.Title,
		Description: d.MetaDescription,
		Keywords:    d.Keywords,
		Categories:  d.Categories,
	})
	b.WriteString("---\n")
	b.Write(fm)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", d.Title)

	if d.Introduction != "" {
		b.WriteString(d.Introduction)
		b.WriteString("\n\n")
	}

	renderSections(&b, d.Sections, 2)

	if len(d.FAQ) > 0 {
		b.WriteString("## Frequently Asked Questions\n\n")
		for _, f := range d.FAQ {
			fmt.Fprintf(&b, "### %s\n\n", f.Question)
			if f.Answer != "" {
				b.WriteString(f.Answer)
				b.WriteString("\n\n")
			}
		}
	}

	if d.Conclusion != "" {
		b.WriteString("## Conclusion\n\n")
		b.WriteString(d.Conclusion)
		b.WriteString("\n\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderSections(b *strings.Builder, sections []DraftSection, depth int) {
	marker := strings.Repeat("#", min(depth, 6))
	for _, s := range sections {
		fmt.Fprintf(b, "%s %s\n\n", marker, s.Heading)
		if s.Content != "" {
			b.WriteString(s.Content)
			b.WriteString("\n\n")
		}
		renderSections(b, s.Subsections, depth+1)
	}
}
