// Package notifier publishes the sitemap and robots.txt and tells search
// engines about new or changed pages.
package notifier

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/time/rate"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

const errorTypeNotification = "notification_error"

// Default ping endpoints
const (
	googlePingURL = "https://www.google.com/ping"
	bingPingURL   = "https://www.bing.com/ping"
)

// Pages submitted when neither the sitemap nor the feed has recent entries
var corePages = []string{"/", "/services", "/about", "/contact"}

// Options narrows a notification run
type Options struct {
	// URLs to submit via IndexNow. Empty means recently updated pages.
	URLs []string
}

// Health is the service's health report
type Health struct {
	Status           string            `json:"status"`
	LastNotification *time.Time        `json:"lastNotification"`
	APIClients       map[string]string `json:"apiClients"`
}

// Status describes the last run and the configured engines
type Status struct {
	LastNotification          *time.Time                  `json:"lastNotification"`
	LastNotificationSummary   *models.NotificationSummary `json:"lastNotificationSummary"`
	NextScheduledNotification string                      `json:"nextScheduledNotification"`
	APIClients                []string                    `json:"apiClients"`
}

// Service is the SearchEngineNotificationService
type Service struct {
	cfg     config.SearchEngineNotificationConfig
	apis    config.APIConfig
	website config.WebsiteConfig
	paths   config.PathsConfig
	fs      afero.Fs
	site    *site.Repository
	store   *store.Store
	log     *logger.Logger
	now     func() time.Time
	client  *http.Client
	limiter *rate.Limiter

	google   SitemapSubmitter
	bing     SitemapSubmitter
	indexNow URLSubmitter

	mu   sync.RWMutex
	last *models.NotificationResult
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithHTTPClient sets the client used by ping and IndexNow submitters
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithSite lets the service build sitemap.xml from the site's pages when
// the checked-in source is missing
func WithSite(r *site.Repository) Option {
	return func(s *Service) { s.site = r }
}

// WithSubmitters replaces the engines built from config. Nil entries keep
// the configured ones.
func WithSubmitters(google, bing SitemapSubmitter, indexNow URLSubmitter) Option {
	return func(s *Service) {
		if google != nil {
			s.google = google
		}
		if bing != nil {
			s.bing = bing
		}
		if indexNow != nil {
			s.indexNow = indexNow
		}
	}
}

// New creates a Service. Source and output paths are read from cfg.Paths on fsys.
func New(cfg *config.Config, fsys afero.Fs, st *store.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	n := cfg.Automation.SearchEngineNotification
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	s := &Service{
		cfg:     n,
		apis:    cfg.APIs,
		website: cfg.Website,
		paths:   cfg.Paths,
		fs:      fsys,
		store:   st,
		log:     log,
		now:     time.Now,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(max(n.RequestsPerSecond, 0.1)), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize sets up a submitter for each enabled engine and loads the last
// notification state
func (s *Service) Initialize(ctx context.Context) error {
	s.log.Info("Initializing Search Engine Notification Service")
	if err := ctx.Err(); err != nil {
		return err
	}

	s.initializeSubmitters()

	var state models.NotificationResult
	if err := s.store.ReadJSON(store.NotificationStateFile, &state); err != nil {
		if !store.IsNotExist(err) {
			s.log.Warn("Could not load notification state", err)
		}
	} else {
		s.mu.Lock()
		s.last = &state
		s.mu.Unlock()
	}

	s.log.Info("Search Engine Notification Service initialized", map[string]any{"apiClients": s.clientNames()})
	return nil
}

func (s *Service) initializeSubmitters() {
	sitemapSubmitter := func(engine, endpoint, fallback string) SitemapSubmitter {
		if !s.cfg.PingEndpoints {
			return NewLoggingSubmitter(engine, s.log)
		}
		if endpoint == "" {
			endpoint = fallback
		}
		return NewPingSubmitter(engine, endpoint, s.client, s.limiter, s.log)
	}

	if s.google == nil && s.apis.GoogleSearchConsole.Enabled {
		s.google = sitemapSubmitter("Google", s.apis.GoogleSearchConsole.Endpoint, googlePingURL)
	}
	if s.bing == nil && s.apis.BingWebmaster.Enabled {
		s.bing = sitemapSubmitter("Bing", s.apis.BingWebmaster.Endpoint, bingPingURL)
	}
	if s.indexNow == nil && s.apis.IndexNow.Enabled {
		s.indexNow = NewIndexNowClient(s.apis.IndexNow.Endpoint, s.website.Domain, s.apis.IndexNow.Key, s.client, s.limiter, s.log)
	}
}

func (s *Service) sitemapURL() string {
	return s.baseURL() + "/sitemap.xml"
}

func (s *Service) baseURL() string {
	return strings.TrimRight(s.website.BaseURL, "/")
}

// NotifySearchEngines publishes sitemap.xml and robots.txt, submits the
// sitemap to Google and Bing, pushes changed URLs to IndexNow and records
// Yandex and Baidu. Every step runs even if an earlier one fails. The state
// is saved to notification-state.json in either case.
func (s *Service) NotifySearchEngines(ctx context.Context, opts Options) (*models.NotificationResult, error) {
	timer := s.log.StartTimer("search engine notification")
	s.log.Info("Starting search engine notification process")

	result := &models.NotificationResult{
		Timestamp:     s.now().UTC(),
		Notifications: []models.Notification{},
		Errors:        []models.StepError{},
	}
	var errs error

	run := func(kind string, step func() (models.Notification, error)) bool {
		var (
			n   models.Notification
			err error
		)
		if err = ctx.Err(); err == nil {
			n, err = step()
		}
		n.Type = kind
		n.Timestamp = s.now().UTC()
		n.Success = err == nil
		if err != nil {
			s.log.Error(fmt.Sprintf("Step %s failed", kind), err)
			n.Error = err.Error()
			result.Errors = append(result.Errors, models.NewStepError(errorTypeNotification, kind, err, n.Timestamp))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", kind, err))
		}
		result.Notifications = append(result.Notifications, n)
		return n.Success
	}

	result.Summary.SitemapUpdated = run(models.NotifySitemapUpdate, s.updateSitemap)
	result.Summary.RobotsUpdated = run(models.NotifyRobotsUpdate, s.updateRobots)

	if s.google != nil {
		result.Summary.GoogleNotified = run(models.NotifyGoogle, func() (models.Notification, error) {
			return s.submitSitemap(ctx, s.google)
		})
	}
	if s.bing != nil {
		result.Summary.BingNotified = run(models.NotifyBing, func() (models.Notification, error) {
			return s.submitSitemap(ctx, s.bing)
		})
	}
	if s.indexNow != nil {
		result.Summary.IndexNowSubmitted = run(models.NotifyIndexNow, func() (models.Notification, error) {
			n, err := s.submitIndexNow(ctx, opts.URLs)
			if err == nil {
				result.Summary.URLsSubmitted = n.URLCount
			}
			return n, err
		})
	}

	run(models.NotifyYandex, notImplemented("Yandex"))
	run(models.NotifyBaidu, notImplemented("Baidu"))

	result.Success = errs == nil
	if err := s.store.WriteJSON(store.NotificationStateFile, result); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, models.NewStepError(errorTypeNotification, "save_state", err, s.now().UTC()))
		errs = multierr.Append(errs, fmt.Errorf("save_state: %w", err))
	} else {
		s.mu.Lock()
		s.last = result
		s.mu.Unlock()
	}

	timer.End()
	if errs != nil {
		s.log.Error("Search engine notification finished with errors", map[string]any{"errors": len(result.Errors), "summary": result.Summary})
		return result, fmt.Errorf("search engine notification failed: %w", errs)
	}
	s.log.Info("Search engine notification completed", result.Summary)
	return result, nil
}

func notImplemented(engine string) func() (models.Notification, error) {
	return func() (models.Notification, error) {
		return models.Notification{Message: engine + " submission not implemented"}, nil
	}
}

// updateSitemap copies the sitemap source to public and dist and writes a
// sitemap index next to the dist copy. Without a source file the sitemap is
// built from the site's pages.
func (s *Service) updateSitemap() (models.Notification, error) {
	s.log.Info("Updating sitemap.xml")
	src := s.paths.SitemapSource

	data, err := afero.ReadFile(s.fs, src)
	switch {
	case err == nil:
		if _, err := parseSitemap(data); err != nil {
			return models.Notification{Path: src}, err
		}
	case store.IsNotExist(err) && s.site != nil:
		s.log.Warn("Sitemap source not found, building from pages", map[string]string{"path": src})
		pages, perr := s.site.Pages()
		if perr != nil {
			return models.Notification{Path: src}, perr
		}
		if data, err = buildSitemap(s.baseURL(), pages); err != nil {
			return models.Notification{Path: src}, fmt.Errorf("failed to build sitemap: %w", err)
		}
		src = ""
	default:
		return models.Notification{Path: src}, fmt.Errorf("failed to read sitemap: %w", err)
	}

	outputs, err := s.publish("sitemap.xml", data)
	n := models.Notification{Path: src, Outputs: outputs, Size: len(data)}
	if err != nil {
		return n, err
	}

	index, err := buildSitemapIndex(s.baseURL(), s.now().UTC())
	if err != nil {
		return n, fmt.Errorf("failed to build sitemap index: %w", err)
	}
	indexPath := filepath.Join(s.paths.Dist, "sitemapindex.xml")
	if err := store.WriteFileAtomic(s.fs, indexPath, index); err != nil {
		return n, err
	}
	n.Outputs = append(n.Outputs, indexPath)
	return n, nil
}

// updateRobots copies robots.txt to public and dist after checking it parses
func (s *Service) updateRobots() (models.Notification, error) {
	s.log.Info("Updating robots.txt")
	src := s.paths.RobotsSource

	data, err := afero.ReadFile(s.fs, src)
	if err != nil {
		return models.Notification{Path: src}, fmt.Errorf("failed to read robots.txt: %w", err)
	}
	warnings, err := validateRobots(data, s.sitemapURL())
	if err != nil {
		return models.Notification{Path: src}, err
	}
	for _, w := range warnings {
		s.log.Warn(w)
	}

	outputs, err := s.publish("robots.txt", data)
	return models.Notification{Path: src, Outputs: outputs, Size: len(data)}, err
}

// publish writes name to the dist and public directories
func (s *Service) publish(name string, data []byte) ([]string, error) {
	var outputs []string
	for _, dir := range []string{s.paths.Dist, s.paths.Public} {
		path := filepath.Join(dir, name)
		if err := store.WriteFileAtomic(s.fs, path, data); err != nil {
			return outputs, err
		}
		outputs = append(outputs, path)
	}
	return outputs, nil
}

func (s *Service) submitSitemap(ctx context.Context, sub SitemapSubmitter) (models.Notification, error) {
	s.log.Info(fmt.Sprintf("Submitting sitemap via %s", sub.Name()))
	n := models.Notification{SitemapURL: s.sitemapURL()}
	resp, err := sub.SubmitSitemap(ctx, n.SitemapURL)
	n.StatusCode = resp.StatusCode
	n.Message = resp.Message
	return n, err
}

func (s *Service) submitIndexNow(ctx context.Context, urls []string) (models.Notification, error) {
	s.log.Info("Submitting URLs via IndexNow API")

	filter, err := newSiteFilter(s.website.BaseURL, s.website.Domain)
	if err != nil {
		return models.Notification{}, err
	}
	if len(urls) == 0 {
		urls = s.recentlyUpdated()
	}
	kept, dropped := filter.Filter(urls)
	if len(dropped) > 0 {
		s.log.Warn("Skipping URLs outside the site", map[string]any{"urls": dropped})
	}
	if len(kept) == 0 {
		return models.Notification{Message: "No URLs to submit"}, nil
	}

	resp, err := s.indexNow.SubmitURLs(ctx, kept)
	return models.Notification{
		URLCount:   len(kept),
		URLs:       kept,
		StatusCode: resp.StatusCode,
		Message:    resp.Message,
	}, err
}

// recentlyUpdated collects URLs modified within the configured window from
// the published sitemap and the feed, falling back to the core pages
func (s *Service) recentlyUpdated() []string {
	days := s.cfg.RecentDays
	if days <= 0 {
		days = 7
	}
	since := s.now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	var urls []string
	sitemapPath := filepath.Join(s.paths.Public, "sitemap.xml")
	if data, err := afero.ReadFile(s.fs, sitemapPath); err == nil {
		if set, err := parseSitemap(data); err == nil {
			urls = append(urls, recentFromSitemap(set, since)...)
		}
	}

	if s.paths.Feed != "" {
		data, err := afero.ReadFile(s.fs, s.paths.Feed)
		switch {
		case err == nil:
			links, ferr := recentFromFeed(data, since)
			if ferr != nil {
				s.log.Warn("Could not read feed", ferr)
			}
			urls = append(urls, links...)
		case !store.IsNotExist(err):
			s.log.Warn("Could not read feed", err)
		}
	}

	if len(urls) == 0 {
		return corePages
	}
	return urls
}

func (s *Service) clientNames() []string {
	var names []string
	if s.google != nil {
		names = append(names, "googleSearchConsole")
	}
	if s.bing != nil {
		names = append(names, "bingWebmaster")
	}
	if s.indexNow != nil {
		names = append(names, "indexNow")
	}
	sort.Strings(names)
	return names
}

// HealthCheck reports the configured engines and the last run
func (s *Service) HealthCheck() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := Health{Status: "healthy", APIClients: map[string]string{}}
	for _, name := range s.clientNames() {
		h.APIClients[name] = "connected"
	}
	if s.last != nil {
		ts := s.last.Timestamp
		h.LastNotification = &ts
	}
	return h
}

// Status describes the last run
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		NextScheduledNotification: s.cfg.Schedule,
		APIClients:                s.clientNames(),
	}
	if s.last != nil {
		ts := s.last.Timestamp
		sum := s.last.Summary
		st.LastNotification = &ts
		st.LastNotificationSummary = &sum
	}
	return st
}

// Shutdown releases idle HTTP connections
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down Search Engine Notification Service")
	s.client.CloseIdleConnections()
	return nil
}
