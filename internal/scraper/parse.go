package scraper

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// ParsedContent is the raw field set pulled out of one post document.
type ParsedContent struct {
	Title  string
	Author string
	Date   string
	Body   string
	Images []ImageRef
	Tags   []string
}

// ParseDocument extracts post fields from a DOM snapshot using the selector
// fallback tables. A missing title falls back to the NoTitle sentinel and a
// missing body to the empty string; only a document with no recognizable
// title or body container at all is an unexpected_structure failure.
func ParseDocument(doc *goquery.Document, pageURL string) (ParsedContent, error) {
	title, titleOK := firstMatch(doc, titleSelectors)
	body, bodyOK := bodyText(doc)
	if !titleOK && !bodyOK {
		return ParsedContent{}, NewError(KindUnexpectedStructure, "no known content container in document", nil)
	}
	if !titleOK {
		title = NoTitle
	}

	author, _ := firstMatch(doc, authorSelectors)
	date, _ := firstMatch(doc, dateSelectors)

	return ParsedContent{
		Title:  title,
		Author: author,
		Date:   date,
		Body:   body,
		Images: collectImages(doc, pageURL),
		Tags:   collectTags(doc),
	}, nil
}

// firstMatch walks the fallback list and returns the first non-empty text.
func firstMatch(doc *goquery.Document, fs fieldSelectors) (string, bool) {
	for _, sel := range fs.Candidates {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text, true
		}
	}
	return "", false
}

// bodyText returns the post body as newline-joined text. The boolean is true
// when a body container was present, even if it held no text: a post with an
// empty body is still a recognized template.
func bodyText(doc *goquery.Document) (string, bool) {
	for _, sel := range bodySelectors.Candidates {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		return joinTextNodes(container), true
	}
	return "", false
}

// joinTextNodes flattens the selection's text nodes, one line per node.
func joinTextNodes(sel *goquery.Selection) string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range sel.Nodes {
		walk(node)
	}
	return strings.Join(lines, "\n")
}

// collectImages gathers every img source, preferring the primary src but
// falling back to the lazy-load attributes. Inline data URIs are skipped and
// relative sources are resolved against the page URL.
func collectImages(doc *goquery.Document, pageURL string) []ImageRef {
	base, baseErr := url.Parse(pageURL)
	var refs []ImageRef
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := ""
		for _, attr := range lazySrcAttrs {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				break
			}
		}
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}
		if baseErr == nil {
			if abs, err := base.Parse(src); err == nil {
				src = abs.String()
			}
		}
		alt, _ := img.Attr("alt")
		refs = append(refs, ImageRef{SourceURL: src, AltText: strings.TrimSpace(alt)})
	})
	return refs
}

// collectTags reads post tags, dropping the leading hash the newer templates
// render.
func collectTags(doc *goquery.Document) []string {
	seen := map[string]struct{}{}
	var tags []string
	for _, sel := range tagSelectors.Candidates {
		doc.Find(sel).Each(func(_ int, a *goquery.Selection) {
			tag := strings.TrimPrefix(strings.TrimSpace(a.Text()), "#")
			if tag == "" {
				return
			}
			if _, dup := seen[tag]; dup {
				return
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		})
	}
	return tags
}
