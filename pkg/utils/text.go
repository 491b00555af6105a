package utils

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Common stop words for text processing
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "has": true, "he": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"that": true, "the": true, "to": true, "was": true, "will": true, "with": true,
	"this": true, "but": true, "they": true, "have": true, "had": true, "our": true,
	"were": true, "been": true, "their": true, "she": true, "which": true, "do": true,
	"or": true, "if": true, "not": true, "what": true, "there": true, "can": true,
	"out": true, "up": true, "one": true, "about": true, "more": true, "so": true,
	"your": true, "when": true, "some": true, "into": true, "them": true, "then": true,
	"you": true, "how": true, "her": true, "than": true, "we": true, "may": true,
	"any": true, "over": true, "where": true, "just": true, "also": true, "all": true,
}

var (
	spaceRegex   = regexp.MustCompile(`\s+`)
	invalidChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	slugChars    = regexp.MustCompile(`[^a-z0-9]+`)
)

// CleanText removes extra whitespace and normalizes text
func CleanText(text string) string {
	return strings.TrimSpace(spaceRegex.ReplaceAllString(text, " "))
}

// RemoveStopWords filters out common stop words from text
func RemoveStopWords(text string) string {
	words := strings.Fields(strings.ToLower(text))
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Remove punctuation from word edges
		word = strings.Trim(word, ".,!?;:'\"()")
		if !stopWords[word] && len(word) > 0 {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

// ExtractKeywords returns the limit most frequent non-stop words longer than
// two characters. Ties are broken alphabetically.
func ExtractKeywords(text string, limit int) []string {
	wordCount := make(map[string]int)
	for _, word := range strings.Fields(RemoveStopWords(text)) {
		if len(word) > 2 {
			wordCount[word]++
		}
	}

	words := make([]string, 0, len(wordCount))
	for w := range wordCount {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if wordCount[words[i]] != wordCount[words[j]] {
			return wordCount[words[i]] > wordCount[words[j]]
		}
		return words[i] < words[j]
	})

	if limit >= 0 && len(words) > limit {
		words = words[:limit]
	}
	return words
}

// Truncate shortens text to at most maxLength bytes plus an ellipsis,
// cutting at the last word boundary and never inside a UTF-8 sequence
func Truncate(text string, maxLength int) string {
	if len(text) <= maxLength {
		return text
	}

	truncated := cutBytes(text, maxLength)
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimRight(truncated, " ,;:") + "..."
}

// cutBytes returns the longest prefix of s of at most n bytes that ends on a
// rune boundary
func cutBytes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Humanize turns a URL slug like "cataract-surgery" into "Cataract Surgery"
func Humanize(slug string) string {
	words := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// Slugify lower-cases text and joins its alphanumeric runs with dashes
func Slugify(text string) string {
	return strings.Trim(slugChars.ReplaceAllString(strings.ToLower(text), "-"), "-")
}

// NormalizeURL reduces a URL to the form used to deduplicate pages: lower-case
// scheme and host, no query or fragment, no trailing slash except on the root
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawQuery = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

// PathOf returns the path component of a URL, "/" for the root
func PathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}

// GetDomainFromURL extracts the lower-cased host name from a URL
func GetDomainFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// SanitizeFilename removes invalid characters from a filename
func SanitizeFilename(filename string) string {
	filename = invalidChars.ReplaceAllString(filename, "_")

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	return cutBytes(cleaned, 255)
}

// CalculateReadingTime estimates reading time in minutes
func CalculateReadingTime(text string) int {
	minutes := len(strings.Fields(text)) / 200
	if minutes < 1 {
		return 1
	}
	return minutes
}

// PercentChange returns the change from previous to current in percent.
// A zero previous value yields zero.
func PercentChange(previous, current float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) * 100 / previous
}

// Round rounds v to the given number of decimal places
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
