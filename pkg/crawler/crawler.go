package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/extractor"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

const defaultUserAgent = "SEOAutomationBot/1.0 (+https://github.com/amosWeiskopf/seoautomation)"

type queueEntry struct {
	URL   string
	Depth int
}

// Crawler fetches same-site pages breadth first
type Crawler struct {
	opts    Options
	start   *url.URL
	domain  string
	client  *http.Client
	limiter *rate.Limiter
	ext     *extractor.Extractor
	log     *logger.Logger

	robotsOnce sync.Once
	robots     *robotstxt.RobotsData
}

// New creates a Crawler for opts.StartURL
func New(opts Options, log *logger.Logger) (*Crawler, error) {
	u, err := url.Parse(opts.StartURL)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid URL: %q", opts.StartURL)
	}

	// Extract the effective top-level domain plus one (eTLD+1)
	rootDomain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		rootDomain = u.Hostname()
	}

	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 200
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	transport := &http.Transport{
		MaxIdleConns:        opts.Concurrency * 2,
		MaxIdleConnsPerHost: opts.Concurrency * 2,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Crawler{
		opts:    opts,
		start:   u,
		domain:  rootDomain,
		client:  &http.Client{Transport: transport, Timeout: opts.Timeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestsPerSecond),
		ext:     extractor.New(),
		log:     log,
	}, nil
}

// NewFromConfig creates a Crawler for the configured website
func NewFromConfig(cfg *config.Config, log *logger.Logger) (*Crawler, error) {
	return New(Options{
		StartURL:          cfg.Website.BaseURL,
		MaxPages:          cfg.Crawler.MaxPages,
		RequestsPerSecond: cfg.Crawler.RequestsPerSecond,
		UserAgent:         cfg.Crawler.UserAgent,
		FollowRobotsTxt:   cfg.Crawler.FollowRobotsTxt,
		Timeout:           cfg.Crawler.Timeout,
	}, log)
}

// Crawl fetches pages level by level until the queue drains, MaxPages is
// reached or ctx is done. Pages answering with an error status are kept so
// the audit can report them.
func (c *Crawler) Crawl(ctx context.Context) ([]models.Page, error) {
	timer := c.log.StartTimer("live crawl")

	visited := map[string]bool{}
	level := []queueEntry{{URL: c.start.String()}}
	visited[utils.NormalizeURL(c.start.String())] = true

	var (
		mu    sync.Mutex
		pages []models.Page
	)
	sem := make(chan struct{}, c.opts.Concurrency)

	for len(level) > 0 && len(pages) < c.opts.MaxPages {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		var (
			wg   sync.WaitGroup
			next []queueEntry
		)
		budget := c.opts.MaxPages - len(pages)
		if len(level) > budget {
			level = level[:budget]
		}

		for _, entry := range level {
			wg.Add(1)
			sem <- struct{}{}
			go func(entry queueEntry) {
				defer func() {
					<-sem
					wg.Done()
				}()

				page, ok := c.crawlPage(ctx, entry.URL)
				if !ok {
					return
				}

				mu.Lock()
				defer mu.Unlock()
				pages = append(pages, page)
				for _, link := range page.Links {
					if !c.shouldFollow(link.ToURL) {
						continue
					}
					key := utils.NormalizeURL(link.ToURL)
					if visited[key] {
						continue
					}
					visited[key] = true
					next = append(next, queueEntry{URL: key, Depth: entry.Depth + 1})
				}
			}(entry)
		}
		wg.Wait()
		level = next
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	timer.End(map[string]any{"pages": len(pages), "domain": c.domain})
	return pages, nil
}

func (c *Crawler) crawlPage(ctx context.Context, pageURL string) (models.Page, bool) {
	if c.opts.FollowRobotsTxt && !c.isAllowedByRobots(ctx, pageURL) {
		c.log.Debug("Skipped page disallowed by robots.txt", map[string]string{"url": pageURL})
		return models.Page{}, false
	}

	var (
		resp *http.Response
		err  error
	)
	for retries := 0; retries < c.opts.Retries; retries++ {
		if err = c.limiter.Wait(ctx); err != nil {
			return models.Page{}, false
		}
		resp, err = c.fetch(ctx, pageURL)
		if err == nil {
			break
		}
		c.log.Warn(fmt.Sprintf("Fetch error for %s (retry %d)", pageURL, retries+1), err)
		select {
		case <-ctx.Done():
			return models.Page{}, false
		case <-time.After(time.Duration(100*(1<<retries)) * time.Millisecond):
		}
	}
	if err != nil {
		c.log.Error(fmt.Sprintf("Giving up on %s after %d retries", pageURL, c.opts.Retries), err)
		return models.Page{}, false
	}
	defer resp.Body.Close()

	path := pathOf(pageURL)
	pageType, category, service, location := site.Classify(path)
	page := models.Page{
		URL:        path,
		Type:       pageType,
		Category:   category,
		Service:    service,
		Location:   location,
		StatusCode: resp.StatusCode,
	}
	if lm, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		page.ModifiedAt = lm.UTC()
	}

	if resp.StatusCode != http.StatusOK || !isWebpageMIME(resp.Header.Get("Content-Type")) {
		return page, resp.StatusCode != http.StatusOK
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn(fmt.Sprintf("Body read error for %s", pageURL), err)
		return models.Page{}, false
	}
	doc, err := c.ext.Parse(string(body), pageURL)
	if err != nil {
		c.log.Warn(fmt.Sprintf("Parse error for %s", pageURL), err)
		return models.Page{}, false
	}

	page.Text = doc.Text
	page.Links = doc.Links
	page.MetaTitle = doc.Title
	page.MetaDescription = doc.MetaDescription
	page.Canonical = doc.Canonical
	page.WordCount = doc.WordCount
	page.ImagesMissingAlt = doc.ImagesMissingAlt
	page.HasReviews = strings.Contains(strings.ToLower(string(body)), "testimonial")

	c.log.Debug("Crawled page", map[string]any{"url": pageURL, "links": len(doc.Links)})
	return page, true
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	c.log.APICall(http.MethodGet, pageURL, resp.StatusCode, time.Since(start))
	return resp, nil
}

func (c *Crawler) isAllowedByRobots(ctx context.Context, pageURL string) bool {
	c.robotsOnce.Do(func() {
		robotsURL := (&url.URL{Scheme: c.start.Scheme, Host: c.start.Host, Path: "/robots.txt"}).String()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
		if err != nil {
			return
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return
		}
		defer resp.Body.Close()
		robots, err := robotstxt.FromResponse(resp)
		if err != nil {
			c.log.Warn("Could not parse robots.txt", err)
			return
		}
		c.robots = robots
	})

	if c.robots == nil {
		return true
	}
	return c.robots.TestAgent(pathOf(pageURL), c.opts.UserAgent)
}

func (c *Crawler) shouldFollow(link string) bool {
	if !isWebpageURL(link) {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	linkedDomain, err := publicsuffix.EffectiveTLDPlusOne(u.Hostname())
	if err != nil {
		linkedDomain = u.Hostname()
	}
	return linkedDomain == c.domain
}

func isWebpageURL(pageURL string) bool {
	lowercaseURL := strings.ToLower(pageURL)
	nonWebExts := []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg", ".pdf", ".zip", ".mp4", ".mp3", ".css", ".js", ".xml"}
	for _, ext := range nonWebExts {
		if strings.HasSuffix(lowercaseURL, ext) {
			return false
		}
	}
	return !strings.Contains(pageURL, "#")
}

func isWebpageMIME(contentType string) bool {
	mimeType := strings.TrimSpace(strings.Split(strings.ToLower(contentType), ";")[0])
	switch mimeType {
	case "text/html", "application/xhtml+xml", "application/xhtml":
		return true
	}
	return false
}

func pathOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return "/"
	}
	if u.Path != "/" {
		return strings.TrimSuffix(u.Path, "/")
	}
	return u.Path
}
