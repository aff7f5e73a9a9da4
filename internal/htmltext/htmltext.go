// Package htmltext turns HTML documents into plain text plus the outbound
// links they reference.
package htmltext

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mikey/llm-fraud-checker/internal/domainutil"
	"golang.org/x/net/html/charset"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	looseURLRe   = regexp.MustCompile(`(?i)https?://[^\s)>'"]+`)
)

// Document is the text view of an HTML page
type Document struct {
	Title string
	Text  string
	Links []string
}

// Parse decodes data to UTF-8 using the content type and any <meta charset>,
// drops script and style elements and collects absolute http(s) anchors
func Parse(data []byte, contentType string) (Document, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return Document{}, err
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return Document{}, err
	}

	// Remove script & style
	doc.Find("script,noscript,style").Remove()

	var out Document
	out.Title = strings.TrimSpace(doc.Find("title").First().Text())

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(html.UnescapeString(s.AttrOr("href", "")))
		if strings.HasPrefix(strings.ToLower(href), "http") {
			out.Links = append(out.Links, href)
		}
	})

	// block elements get a separator so adjacent cells don't glue together
	doc.Find("br,p,div,li,td,th,tr,h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	out.Text = Collapse(doc.Text())
	return out, nil
}

// Collapse folds every whitespace run into a single space
func Collapse(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// URLsInText finds bare http(s) URLs in plain text
func URLsInText(text string) []string {
	return looseURLRe.FindAllString(text, -1)
}

// Links accumulates unique links and their unique domains in first-seen
// order, each list with its own cap
type Links struct {
	URLs    []string
	Domains []string

	maxURLs    int
	maxDomains int
	seen       map[string]struct{}
	seenDomain map[string]struct{}
}

// NewLinks creates an accumulator with the given caps
func NewLinks(maxURLs, maxDomains int) *Links {
	return &Links{
		URLs:       []string{},
		Domains:    []string{},
		maxURLs:    maxURLs,
		maxDomains: maxDomains,
		seen:       make(map[string]struct{}),
		seenDomain: make(map[string]struct{}),
	}
}

// Add records urls; domains are recorded even once the URL cap is reached
func (l *Links) Add(urls ...string) {
	for _, u := range urls {
		if _, ok := l.seen[u]; ok {
			continue
		}
		l.seen[u] = struct{}{}
		if len(l.URLs) < l.maxURLs {
			l.URLs = append(l.URLs, u)
		}

		d := domainutil.HostOf(u)
		if d == "" {
			continue
		}
		if _, ok := l.seenDomain[d]; ok {
			continue
		}
		l.seenDomain[d] = struct{}{}
		if len(l.Domains) < l.maxDomains {
			l.Domains = append(l.Domains, d)
		}
	}
}
