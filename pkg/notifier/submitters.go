package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/seoautomation/pkg/logger"
)

// IndexNow accepts at most this many URLs per request
const indexNowBatch = 10000

// Submission is a search engine's response to a submit call
type Submission struct {
	StatusCode int
	Message    string
}

// SitemapSubmitter tells a search engine where the sitemap lives
type SitemapSubmitter interface {
	SubmitSitemap(ctx context.Context, sitemapURL string) (Submission, error)
	Name() string
}

// URLSubmitter pushes changed URLs to a search engine
type URLSubmitter interface {
	SubmitURLs(ctx context.Context, urls []string) (Submission, error)
	Name() string
}

// LoggingSubmitter records the submission in the log without calling out.
// It stands in for engines whose APIs need credentials we don't hold.
type LoggingSubmitter struct {
	engine string
	log    *logger.Logger
}

// NewLoggingSubmitter creates a LoggingSubmitter for engine. A nil log
// discards the entries.
func NewLoggingSubmitter(engine string, log *logger.Logger) *LoggingSubmitter {
	if log == nil {
		log = logger.Nop()
	}
	return &LoggingSubmitter{engine: engine, log: log}
}

// Name identifies the engine in notification results
func (l *LoggingSubmitter) Name() string { return l.engine + " (logged)" }

// SubmitSitemap logs sitemapURL and reports it as submitted
func (l *LoggingSubmitter) SubmitSitemap(ctx context.Context, sitemapURL string) (Submission, error) {
	if err := ctx.Err(); err != nil {
		return Submission{}, err
	}
	l.log.Info(fmt.Sprintf("Mock: Submitting sitemap to %s: %s", l.engine, sitemapURL))
	return Submission{Message: "submitted"}, nil
}

// PingSubmitter sends GET <endpoint>?sitemap=<url>
type PingSubmitter struct {
	engine   string
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

// NewPingSubmitter creates a PingSubmitter for engine. Requests go through
// client and wait on limiter.
func NewPingSubmitter(engine, endpoint string, client *http.Client, limiter *rate.Limiter, log *logger.Logger) *PingSubmitter {
	if log == nil {
		log = logger.Nop()
	}
	return &PingSubmitter{engine: engine, endpoint: endpoint, client: client, limiter: limiter, log: log}
}

// Name identifies the engine in notification results
func (p *PingSubmitter) Name() string { return p.engine + " (ping)" }

// SubmitSitemap pings the endpoint with sitemapURL. A non-2xx response is an
// error carrying the status code.
func (p *PingSubmitter) SubmitSitemap(ctx context.Context, sitemapURL string) (Submission, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return Submission{}, fmt.Errorf("invalid ping endpoint %q: %w", p.endpoint, err)
	}
	q := u.Query()
	q.Set("sitemap", sitemapURL)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Submission{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := do(ctx, p.client, p.limiter, p.log, req)
	if err != nil {
		return Submission{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Submission{StatusCode: resp.StatusCode}, fmt.Errorf("%s ping error: %d %s", p.engine, resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return Submission{StatusCode: resp.StatusCode, Message: "submitted"}, nil
}

// IndexNowClient posts {host, key, urlList} to an IndexNow endpoint
type IndexNowClient struct {
	endpoint string
	host     string
	key      string
	client   *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

type indexNowPayload struct {
	Host    string   `json:"host"`
	Key     string   `json:"key"`
	URLList []string `json:"urlList"`
}

// NewIndexNowClient creates an IndexNow client for host. An empty endpoint
// uses api.indexnow.org.
func NewIndexNowClient(endpoint, host, key string, client *http.Client, limiter *rate.Limiter, log *logger.Logger) *IndexNowClient {
	if endpoint == "" {
		endpoint = "https://api.indexnow.org/indexnow"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &IndexNowClient{endpoint: endpoint, host: host, key: key, client: client, limiter: limiter, log: log}
}

// Name identifies the engine in notification results
func (c *IndexNowClient) Name() string { return "IndexNow" }

// SubmitURLs posts urls in batches. Any non-2xx response stops the run.
func (c *IndexNowClient) SubmitURLs(ctx context.Context, urls []string) (Submission, error) {
	var last Submission
	for start := 0; start < len(urls); start += indexNowBatch {
		end := min(start+indexNowBatch, len(urls))
		body, err := json.Marshal(indexNowPayload{Host: c.host, Key: c.key, URLList: urls[start:end]})
		if err != nil {
			return last, fmt.Errorf("failed to encode payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return last, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := do(ctx, c.client, c.limiter, c.log, req)
		if err != nil {
			return last, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return Submission{StatusCode: resp.StatusCode}, fmt.Errorf("IndexNow API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		last = Submission{StatusCode: resp.StatusCode, Message: "submitted"}
	}
	return last, nil
}

// do waits for the limiter, sends req and closes the body
func do(ctx context.Context, client *http.Client, limiter *rate.Limiter, log *logger.Logger, req *http.Request) (*http.Response, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Host, err)
	}
	resp.Body.Close()
	log.APICall(req.Method, req.URL.Redacted(), resp.StatusCode, time.Since(start))
	return resp, nil
}
