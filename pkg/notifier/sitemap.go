package notifier

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/temoto/robotstxt"
	"golang.org/x/net/publicsuffix"

	"github.com/amosWeiskopf/seoautomation/internal/models"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr,omitempty"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Xmlns    string         `xml:"xmlns,attr"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

// parseSitemap decodes a <urlset> document
func parseSitemap(data []byte) (*urlSet, error) {
	var set urlSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("invalid sitemap: %w", err)
	}
	for i, u := range set.URLs {
		if strings.TrimSpace(u.Loc) == "" {
			return nil, fmt.Errorf("invalid sitemap: url %d has no loc", i+1)
		}
	}
	return &set, nil
}

func marshalXML(v any) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// buildSitemap renders a urlset for the site's pages
func buildSitemap(baseURL string, pages []models.Page) ([]byte, error) {
	set := urlSet{Xmlns: sitemapNS}
	for _, p := range pages {
		entry := sitemapURL{Loc: baseURL + p.URL, ChangeFreq: "weekly", Priority: "0.8"}
		if p.URL == "/" {
			entry.Priority = "1.0"
		}
		if !p.ModifiedAt.IsZero() {
			entry.LastMod = p.ModifiedAt.Format("2006-01-02")
		}
		set.URLs = append(set.URLs, entry)
	}
	return marshalXML(set)
}

// buildSitemapIndex lists the site's sitemaps with today's lastmod
func buildSitemapIndex(baseURL string, now time.Time) ([]byte, error) {
	return marshalXML(sitemapIndex{
		Xmlns: sitemapNS,
		Sitemaps: []sitemapEntry{
			{Loc: baseURL + "/sitemap.xml", LastMod: now.Format("2006-01-02")},
		},
	})
}

// validateRobots parses robots.txt and returns warnings for rules that keep
// crawlers off the site or hide the sitemap
func validateRobots(data []byte, sitemapURL string) ([]string, error) {
	robots, err := robotstxt.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("invalid robots.txt: %w", err)
	}

	var warnings []string
	if !robots.TestAgent("/", "*") {
		warnings = append(warnings, "robots.txt disallows the site root for all crawlers")
	}
	found := false
	for _, s := range robots.Sitemaps {
		if s == sitemapURL {
			found = true
			break
		}
	}
	if !found {
		warnings = append(warnings, fmt.Sprintf("robots.txt does not reference %s", sitemapURL))
	}
	return warnings, nil
}

func parseLastMod(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// recentFromSitemap returns locs whose lastmod is at or after since
func recentFromSitemap(set *urlSet, since time.Time) []string {
	var urls []string
	for _, u := range set.URLs {
		if t, ok := parseLastMod(u.LastMod); ok && !t.Before(since) {
			urls = append(urls, strings.TrimSpace(u.Loc))
		}
	}
	return urls
}

// recentFromFeed returns links of RSS/Atom items published or updated at or
// after since
func recentFromFeed(data []byte, since time.Time) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	var urls []string
	for _, item := range feed.Items {
		ts := item.UpdatedParsed
		if ts == nil {
			ts = item.PublishedParsed
		}
		if ts == nil || ts.Before(since) || item.Link == "" {
			continue
		}
		urls = append(urls, item.Link)
	}
	return urls, nil
}

// siteFilter keeps URLs on the site's registrable domain. Relative URLs are
// resolved against the base URL.
type siteFilter struct {
	base   *url.URL
	domain string
}

func newSiteFilter(baseURL, domain string) (*siteFilter, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if domain == "" {
		domain = base.Hostname()
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(strings.TrimPrefix(domain, "www."))
	if err != nil {
		return nil, fmt.Errorf("invalid domain %q: %w", domain, err)
	}
	return &siteFilter{base: base, domain: root}, nil
}

func (f *siteFilter) resolve(raw string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	u := f.base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", errors.New("not an http(s) url")
	}
	root, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		return "", err
	}
	if root != f.domain {
		return "", fmt.Errorf("%s is outside %s", u.Hostname(), f.domain)
	}
	u.Fragment = ""
	return u.String(), nil
}

// Filter resolves and dedupes raw, dropping anything off-site
func (f *siteFilter) Filter(raw []string) (kept, dropped []string) {
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		u, err := f.resolve(r)
		if err != nil {
			dropped = append(dropped, r)
			continue
		}
		if seen[u] {
			continue
		}
		seen[u] = true
		kept = append(kept, u)
	}
	return kept, dropped
}
