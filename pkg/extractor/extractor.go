package extractor

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// Document is everything the automation services read from one HTML page
type Document struct {
	Title            string
	MetaDescription  string
	MetaKeywords     string
	Canonical        string
	H1               []string
	Links            []models.Link
	ImagesMissingAlt int
	HasJSONLD        bool
	Text             string
	WordCount        int
}

// Extractor handles content extraction from HTML
type Extractor struct {
	emailRegex *regexp.Regexp
	phoneRegex *regexp.Regexp
}

// New creates a new Extractor instance
func New() *Extractor {
	return &Extractor{
		emailRegex: regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
		phoneRegex: regexp.MustCompile(`(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}`),
	}
}

// Parse reads a page once and returns its metadata, links and main text.
// Relative links are resolved against pageURL.
func (e *Extractor) Parse(htmlContent, pageURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	doc := &Document{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if doc.Title == "" {
					doc.Title = utils.CleanText(nodeText(n))
				}
			case "meta":
				switch strings.ToLower(attr(n, "name")) {
				case "description":
					doc.MetaDescription = attr(n, "content")
				case "keywords":
					doc.MetaKeywords = attr(n, "content")
				}
			case "link":
				if strings.EqualFold(attr(n, "rel"), "canonical") {
					doc.Canonical = resolveURL(pageURL, attr(n, "href"))
				}
			case "h1":
				doc.H1 = append(doc.H1, utils.CleanText(nodeText(n)))
			case "a":
				if href := attr(n, "href"); href != "" && !skipHref(href) {
					doc.Links = append(doc.Links, models.Link{
						ToURL:      resolveURL(pageURL, href),
						AnchorText: utils.CleanText(nodeText(n)),
					})
				}
			case "img":
				if strings.TrimSpace(attr(n, "alt")) == "" {
					doc.ImagesMissingAlt++
				}
			case "script":
				if attr(n, "type") == "application/ld+json" {
					doc.HasJSONLD = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	text, err := e.ExtractText(htmlContent)
	if err != nil || text == "" {
		text = bodyText(root)
	}
	doc.Text = utils.CleanText(text)
	doc.WordCount = len(strings.Fields(doc.Text))
	return doc, nil
}

// ExtractText extracts clean text from HTML using trafilatura
func (e *Extractor) ExtractText(htmlContent string) (string, error) {
	result, err := trafilatura.Extract(strings.NewReader(htmlContent), trafilatura.Options{})
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	return result.ContentText, nil
}

// ExtractMetadata extracts the title and meta description from HTML
func (e *Extractor) ExtractMetadata(htmlContent string) (title, description string, err error) {
	doc, err := e.Parse(htmlContent, "")
	if err != nil {
		return "", "", err
	}
	return doc.Title, doc.MetaDescription, nil
}

// ExtractEmails finds all email addresses in the content
func (e *Extractor) ExtractEmails(content string) []string {
	return uniqueStrings(e.emailRegex.FindAllString(content, -1))
}

// ExtractPhones finds all North American phone numbers in the content,
// reduced to digits
func (e *Extractor) ExtractPhones(content string) []string {
	matches := e.phoneRegex.FindAllString(content, -1)
	cleaned := make([]string, 0, len(matches))
	for _, match := range matches {
		cleaned = append(cleaned, DigitsOnly(match))
	}
	return uniqueStrings(cleaned)
}

// DigitsOnly strips everything but digits and drops a leading US country code
func DigitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}

// Helper functions

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func skipHref(href string) bool {
	for _, prefix := range []string{"#", "mailto:", "tel:", "javascript:"} {
		if strings.HasPrefix(href, prefix) {
			return true
		}
	}
	return false
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool)
	result := []string{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
		b.WriteByte(' ')
	}
	return b.String()
}

// bodyText is the fallback when trafilatura finds no main content:
// all text under <body> except scripts, styles and navigation chrome
func bodyText(root *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "nav", "header", "footer", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return b.String()
}

// resolveURL resolves href against base. With no usable base, href is
// returned as a cleaned path.
func resolveURL(base, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	ref.Fragment = ""
	b, err := url.Parse(base)
	if err != nil || base == "" {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}
