package crawler

import (
	"context"
	"time"

	"github.com/amosWeiskopf/seoautomation/internal/models"
)

// Fetcher loads the pages of a live site for auditing
type Fetcher interface {
	// Crawl fetches pages reachable from the start URL
	Crawl(ctx context.Context) ([]models.Page, error)
}

// Options contains configuration for the crawler
type Options struct {
	StartURL          string        // First page to fetch
	MaxPages          int           // Maximum pages fetched per crawl
	Concurrency       int           // Parallel requests
	RequestsPerSecond int           // Rate limit
	UserAgent         string        // User agent string
	FollowRobotsTxt   bool          // Respect robots.txt
	Timeout           time.Duration // Request timeout
	Retries           int           // Attempts per page on transport errors
}
