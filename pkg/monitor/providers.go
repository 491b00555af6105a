package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// ErrNotRanked is returned when the site does not appear in the results
var ErrNotRanked = errors.New("site not found in search results")

// Position is a keyword's current standing
type Position struct {
	Position     int    `json:"position"`
	URL          string `json:"url"`
	SearchVolume int    `json:"searchVolume"`
	Difficulty   int    `json:"difficulty"`
}

// RankingProvider looks up where the site ranks for a keyword
type RankingProvider interface {
	Ranking(ctx context.Context, keyword string) (Position, error)
	Name() string
}

// AnalyticsProvider supplies traffic and goal data for the reporting period
type AnalyticsProvider interface {
	TrafficMetrics(ctx context.Context) (models.TrafficMetrics, error)
	TrafficSegments(ctx context.Context) (models.TrafficSegments, error)
	Goals(ctx context.Context) ([]models.Goal, error)
	Funnels(ctx context.Context) ([]models.Funnel, error)
	Name() string
}

// StaticRankings serves known positions from a table. Unknown keywords get a
// position between 1 and 50 drawn from a seeded source.
type StaticRankings struct {
	table map[string]Position

	mu  sync.Mutex
	rng *rand.Rand
}

// DefaultRankings are the tracked head terms
var DefaultRankings = map[string]Position{
	"eye doctor orange county":       {Position: 3, URL: "/", SearchVolume: 1200, Difficulty: 65},
	"ophthalmologist orange county":  {Position: 5, URL: "/", SearchVolume: 800, Difficulty: 70},
	"cataract surgery orange county": {Position: 2, URL: "/services/cataract-surgery", SearchVolume: 600, Difficulty: 75},
}

// NewStaticRankings creates a table-backed provider; a nil table uses DefaultRankings
func NewStaticRankings(table map[string]Position, seed int64) *StaticRankings {
	if table == nil {
		table = DefaultRankings
	}
	return &StaticRankings{table: table, rng: rand.New(rand.NewSource(seed))}
}

func (p *StaticRankings) Name() string { return "static" }

func (p *StaticRankings) Ranking(ctx context.Context, keyword string) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if pos, ok := p.table[strings.ToLower(keyword)]; ok {
		return pos, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return Position{Position: p.rng.Intn(50) + 1, URL: "/", SearchVolume: 100, Difficulty: 50}, nil
}

// SerpAPIRankings looks keywords up through the SerpAPI Google engine
type SerpAPIRankings struct {
	apiKey   string
	endpoint string
	location string
	domain   string
	client   *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

const defaultSerpAPIEndpoint = "https://serpapi.com/search.json"

// NewSerpAPIRankings creates a SerpAPI-backed provider for domain
func NewSerpAPIRankings(cfg config.SerpAPIConfig, domain string, rps float64, log *logger.Logger) *SerpAPIRankings {
	if log == nil {
		log = logger.Nop()
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultSerpAPIEndpoint
	}
	if rps <= 0 {
		rps = 1
	}
	return &SerpAPIRankings{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		location: cfg.Location,
		domain:   strings.TrimPrefix(strings.ToLower(domain), "www."),
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		log:      log,
	}
}

func (p *SerpAPIRankings) Name() string { return "serpapi" }

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Position int    `json:"position"`
		Link     string `json:"link"`
	} `json:"organic_results"`
}

func (p *SerpAPIRankings) Ranking(ctx context.Context, keyword string) (Position, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Position{}, err
	}

	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", keyword)
	q.Set("num", "100")
	q.Set("api_key", p.apiKey)
	if p.location != "" {
		q.Set("location", p.location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Position{}, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return Position{}, fmt.Errorf("serpapi request failed: %w", err)
	}
	defer resp.Body.Close()
	p.log.APICall(http.MethodGet, p.endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return Position{}, fmt.Errorf("serpapi returned status %d", resp.StatusCode)
	}

	var body serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Position{}, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if body.Error != "" {
		return Position{}, fmt.Errorf("serpapi: %s", body.Error)
	}

	for _, r := range body.OrganicResults {
		host := strings.TrimPrefix(utils.GetDomainFromURL(r.Link), "www.")
		if host == p.domain {
			return Position{Position: r.Position, URL: utils.PathOf(r.Link)}, nil
		}
	}
	return Position{}, fmt.Errorf("%q: %w", keyword, ErrNotRanked)
}

// NewRankingProvider picks SerpAPI when a key is configured
func NewRankingProvider(cfg *config.Config, log *logger.Logger) RankingProvider {
	if cfg.APIs.SerpAPI.APIKey != "" {
		return NewSerpAPIRankings(cfg.APIs.SerpAPI, cfg.Website.Domain, 1, log)
	}
	return NewStaticRankings(nil, cfg.Content.RandomSeed)
}

// SampleAnalytics serves a fixed 30-day sample of site analytics
type SampleAnalytics struct{}

func (SampleAnalytics) Name() string { return "sample" }

func (SampleAnalytics) TrafficMetrics(ctx context.Context) (models.TrafficMetrics, error) {
	return models.TrafficMetrics{
		Sessions:           15420,
		Users:              12330,
		Pageviews:          28740,
		BounceRate:         0.42,
		AvgSessionDuration: 185,
		OrganicSessions:    8920,
		OrganicPercentage:  0.578,
	}, ctx.Err()
}

func (SampleAnalytics) TrafficSegments(ctx context.Context) (models.TrafficSegments, error) {
	return models.TrafficSegments{
		Sources: []models.SegmentShare{
			{Name: "google / organic", Sessions: 8920, Percentage: 57.8},
			{Name: "direct / (none)", Sessions: 3240, Percentage: 21.0},
			{Name: "facebook / social", Sessions: 1580, Percentage: 10.2},
			{Name: "bing / organic", Sessions: 890, Percentage: 5.8},
			{Name: "google / cpc", Sessions: 790, Percentage: 5.1},
		},
		Pages: []models.PageTraffic{
			{Page: "/", Pageviews: 8450, UniqueViews: 6720, AvgTimeOnPage: 95},
			{Page: "/services", Pageviews: 4320, UniqueViews: 3890, AvgTimeOnPage: 120},
			{Page: "/services/cataract-surgery", Pageviews: 3240, UniqueViews: 2980, AvgTimeOnPage: 180},
			{Page: "/about", Pageviews: 2100, UniqueViews: 1890, AvgTimeOnPage: 85},
			{Page: "/contact", Pageviews: 1950, UniqueViews: 1680, AvgTimeOnPage: 110},
		},
		Devices: []models.SegmentShare{
			{Name: "desktop", Sessions: 7820, Percentage: 50.7},
			{Name: "mobile", Sessions: 6240, Percentage: 40.5},
			{Name: "tablet", Sessions: 1360, Percentage: 8.8},
		},
		Geographic: []models.SegmentShare{
			{Name: "California", Sessions: 8920, Percentage: 57.8},
			{Name: "Nevada", Sessions: 1240, Percentage: 8.0},
			{Name: "Arizona", Sessions: 980, Percentage: 6.4},
			{Name: "Texas", Sessions: 780, Percentage: 5.1},
		},
	}, ctx.Err()
}

func (SampleAnalytics) Goals(ctx context.Context) ([]models.Goal, error) {
	return []models.Goal{
		{Name: "Appointment Booking", Completions: 45, ConversionRate: 0.029, Value: 4500, Change: 12.5},
		{Name: "Contact Form", Completions: 78, ConversionRate: 0.051, Value: 2340, Change: -5.2},
		{Name: "Phone Call", Completions: 124, ConversionRate: 0.080, Value: 6200, Change: 8.7},
	}, ctx.Err()
}

func (SampleAnalytics) Funnels(ctx context.Context) ([]models.Funnel, error) {
	return []models.Funnel{
		{
			Name: "Service Pages → Contact",
			Steps: []models.FunnelStep{
				{Name: "Service Page View", Users: 5420},
				{Name: "Contact Page View", Users: 1240},
				{Name: "Form Started", Users: 890},
				{Name: "Form Completed", Users: 340},
			},
			ConversionRate: 0.063,
		},
	}, ctx.Err()
}
