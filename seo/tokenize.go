// Package seo scores rendered articles. A markdown tokenizer reduces the
// document to plain text and structural counts, readability follows the
// Flesch Reading Ease formula, and a fixed rubric folds the signals into a
// composite score between 0 and 100. The Refiner drives targeted LLM
// revisions until the composite clears the configured floor or the
// iteration budget runs out.
package seo

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

// Heading is one heading extracted from the document body.
type Heading struct {
	Level int
	Text  string
}

// Document is the tokenized form of a markdown article. PlainText holds
// running prose only: headings live in their own list, and code blocks,
// tables, raw HTML, and image alt text are dropped entirely. Link anchor
// text stays, since it reads as part of the sentence.
type Document struct {
	Title         string
	Description   string
	PlainText     string
	Headings      []Heading
	H1Count       int
	H2Count       int
	H3Count       int
	LinkCount     int
	ImageCount    int
	ImagesWithAlt int
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Tokenize parses a markdown document, splitting YAML front matter from
// the body and walking the AST for text and structure.
func Tokenize(doc string) *Document {
	meta, body := splitFrontMatter(doc)

	d := &Document{}
	if meta != "" {
		var fm struct {
			Title       string `yaml:"title"`
			Description string `yaml:"description"`
		}
		if err := yaml.Unmarshal([]byte(meta), &fm); err == nil {
			d.Title = fm.Title
			d.Description = fm.Description
		}
	}

	source := []byte(body)
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	root := md.Parser().Parse(text.NewReader(source))

	var b strings.Builder
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n.Kind() {
		case ast.KindHeading:
			if entering {
				h := Heading{Level: n.(*ast.Heading).Level, Text: nodeText(n, source)}
				d.Headings = append(d.Headings, h)
				switch h.Level {
				case 1:
					d.H1Count++
				case 2:
					d.H2Count++
				case 3:
					d.H3Count++
				}
				return ast.WalkSkipChildren, nil
			}

		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindRawHTML, extast.KindTable:
			if entering {
				return ast.WalkSkipChildren, nil
			}

		case ast.KindImage:
			if entering {
				d.ImageCount++
				if nodeText(n, source) != "" {
					d.ImagesWithAlt++
				}
				return ast.WalkSkipChildren, nil
			}

		case ast.KindLink:
			if entering {
				d.LinkCount++
			}

		case ast.KindAutoLink:
			if entering {
				d.LinkCount++
				return ast.WalkSkipChildren, nil
			}

		case ast.KindText:
			if entering {
				t := n.(*ast.Text)
				b.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte('\n')
				}
			}

		case ast.KindString:
			if entering {
				b.Write(n.(*ast.String).Value)
			}

		case ast.KindParagraph, ast.KindTextBlock:
			if !entering {
				b.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})

	d.PlainText = strings.TrimSpace(blankRuns.ReplaceAllString(b.String(), "\n\n"))
	return d
}

// nodeText collects the text content beneath a node.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}

// splitFrontMatter separates a leading YAML block delimited by --- lines
// from the markdown body.
func splitFrontMatter(doc string) (meta, body string) {
	if !strings.HasPrefix(doc, "---\n") {
		return "", doc
	}
	rest := doc[4:]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return "", doc
	}
	return rest[:end+1], rest[end+5:]
}
