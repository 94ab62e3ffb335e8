package crawler

import (
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/nao1215/pagehunter/internal/model"
	"golang.org/x/net/html"
)

// inlineElements do not start a new line when rendering page text.
// Every other element ends its text with a line break.
var inlineElements = map[string]struct{}{
	"a": {}, "abbr": {}, "acronym": {}, "audio": {}, "b": {}, "bdi": {}, "bdo": {},
	"big": {}, "br": {}, "button": {}, "canvas": {}, "cite": {}, "code": {},
	"data": {}, "datalist": {}, "del": {}, "dfn": {}, "em": {}, "embed": {},
	"i": {}, "iframe": {}, "img": {}, "input": {}, "ins": {}, "kbd": {},
	"label": {}, "map": {}, "mark": {}, "meter": {}, "noscript": {},
	"object": {}, "output": {}, "picture": {}, "progress": {}, "q": {},
	"ruby": {}, "s": {}, "samp": {}, "script": {}, "select": {}, "slot": {},
	"small": {}, "span": {}, "strong": {}, "sub": {}, "sup": {}, "svg": {},
	"template": {}, "textarea": {}, "time": {}, "tt": {}, "u": {}, "var": {},
	"video": {}, "wbr": {},
}

// hiddenElements never contribute text.
var hiddenElements = map[string]struct{}{
	"script": {}, "style": {}, "noscript": {}, "template": {},
}

// Parser extracts the title, visible text and outbound links of an HTML page.
//
// Design decision: golang.org/x/net/html builds the DOM, which tolerates the
// malformed markup common on the web, and goquery runs the selectors on top
// of that tree.
type Parser struct {
	// pageURL is the canonical URL of the page being parsed. Relative links
	// are resolved against it and links equal to it are dropped.
	pageURL *url.URL
}

// ParseResult contains what was extracted from an HTML page.
type ParseResult struct {
	// Title is the trimmed text of <head><title>, at most 64 runes.
	Title string

	// Text is the body text, one block element per line.
	Text string

	// Links are the distinct absolute http(s) outbound links in document
	// order, fragments removed and self-links excluded.
	Links []string
}

// NewParser creates a parser for the page at pageURL.
// The URL must be absolute.
func NewParser(pageURL string) (*Parser, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, ErrRelativePageURL
	}
	return &Parser{pageURL: u}, nil
}

// Parse parses HTML content and extracts the title, text and links.
func (p *Parser) Parse(content io.Reader) (*ParseResult, error) {
	root, err := html.Parse(content)
	if err != nil {
		return nil, err
	}
	doc := goquery.NewDocumentFromNode(root)

	result := &ParseResult{
		Title: truncateRunes(strings.TrimSpace(doc.Find("head title").First().Text()), model.MaxTitleLength),
		Links: make([]string, 0),
	}

	if body := doc.Find("body"); body.Length() > 0 {
		result.Text = renderText(body.Nodes[0])
	}

	self := normalizeURL(p.pageURL)
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link := p.resolve(href)
		if link == "" || link == self {
			return
		}
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		result.Links = append(result.Links, link)
	})

	return result, nil
}

// resolve turns href into an absolute http(s) URL without fragment.
// It returns "" for anything that is not followable.
func (p *Parser) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	u := p.pageURL.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return normalizeURL(u)
}

// renderText renders the text below n. Block elements end with a line
// break; lines are trimmed and empty lines dropped.
func renderText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if _, hidden := hiddenElements[n.Data]; hidden {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if _, inline := inlineElements[n.Data]; !inline {
				b.WriteByte('\n')
			}
		}
	}
	walk(n)

	lines := strings.Split(b.String(), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
