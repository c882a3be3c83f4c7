package provider

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/draftforge/draftforge/artifact"
)

var wordPattern = regexp.MustCompile(`\w+`)

// PageText fetches a competitor page and extracts its readable text so the
// SERP adapter can fill in missing word counts. Extraction runs readability
// first and falls back to a markdown conversion of the chrome-stripped
// document when readability finds no article body.
type PageText struct {
	base      *Base
	converter *md.Converter
}

// NewPageText creates a page text extractor sharing the adapter HTTP stack.
func NewPageText(base *Base) *PageText {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &PageText{
		base:      base,
		converter: converter,
	}
}

// WordCount fetches pageURL and returns the number of words in its readable
// text. Returns 0 when the page cannot be fetched or yields no text.
func (p *PageText) WordCount(ctx context.Context, pageURL string) int {
	text, err := p.Extract(ctx, pageURL)
	if err != nil {
		p.base.Logger().Debug("Competitor page extraction failed",
			"url", pageURL,
			"error", err)
		return 0
	}

	return len(wordPattern.FindAllString(text, -1))
}

// Extract fetches pageURL and returns its readable text content.
func (p *PageText) Extract(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", transportErr(artifact.KindSERP, err)
	}
	req.Header.Set("Accept", "text/html")

	body, err := p.base.Do(ctx, artifact.KindSERP, req)
	if err != nil {
		return "", err
	}

	if text := p.readableText(string(body), pageURL); text != "" {
		return text, nil
	}

	// Readability found no article body. Strip the navigation chrome and
	// convert what remains instead.
	markdown, err := p.converter.ConvertString(mainContent(string(body)))
	if err != nil {
		return "", schemaErr(artifact.KindSERP, err)
	}

	return strings.TrimSpace(markdown), nil
}

// readableText runs a readability-style extractor on the document.
func (p *PageText) readableText(documentHTML, pageURL string) string {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(strings.NewReader(documentHTML), parsedURL)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.TextContent)
}

// chromeTags lists elements that never hold article prose.
var chromeTags = map[string]bool{
	"nav": true, "header": true, "footer": true, "aside": true,
	"script": true, "style": true, "noscript": true, "iframe": true,
	"form": true, "button": true,
}

// chromeClasses lists class names that mark navigation and boilerplate blocks.
var chromeClasses = map[string]bool{
	"nav": true, "navbar": true, "navigation": true, "sidebar": true,
	"menu": true, "footer": true, "header": true, "breadcrumb": true,
	"ad": true, "advertisement": true, "social": true, "share": true,
	"comments": true, "related": true,
}

// mainContent narrows a document to its content region so the markdown
// fallback does not count navigation chrome as competitor prose. It prefers
// an explicit main or article element and otherwise strips chrome out of the
// body. Unparseable input comes back unchanged.
func mainContent(documentHTML string) string {
	doc, err := html.Parse(strings.NewReader(documentHTML))
	if err != nil {
		return documentHTML
	}

	if node := contentRoot(doc); node != nil {
		return renderNode(node)
	}

	stripChrome(doc)
	if body := elementNode(doc, "body"); body != nil {
		return renderNode(body)
	}

	return documentHTML
}

// contentRoot returns the element that explicitly marks the page's main
// content, if the page declares one.
func contentRoot(doc *html.Node) *html.Node {
	if node := elementNode(doc, "main"); node != nil {
		return node
	}
	if node := elementNode(doc, "article"); node != nil {
		return node
	}
	return attrNode(doc, "role", "main")
}

// elementNode finds the first element with the given tag name.
func elementNode(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := elementNode(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// attrNode finds the first element carrying the given attribute value.
func attrNode(n *html.Node, key, val string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == key && a.Val == val {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := attrNode(c, key, val); found != nil {
			return found
		}
	}
	return nil
}

// stripChrome removes navigation and boilerplate subtrees. Matches are
// collected before removal so the walk never follows a detached node.
func stripChrome(doc *html.Node) {
	var doomed []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (chromeTags[n.Data] || hasChromeClass(n)) {
			doomed = append(doomed, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	for _, n := range doomed {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
}

func hasChromeClass(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, name := range strings.Fields(strings.ToLower(a.Val)) {
			if chromeClasses[name] {
				return true
			}
		}
	}
	return false
}

// renderNode serializes a subtree back to HTML.
func renderNode(n *html.Node) string {
	var sb strings.Builder
	html.Render(&sb, n)
	return sb.String()
}
