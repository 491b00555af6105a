package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

var testNow = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

const sourceSitemap = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://eyecare.example/</loc><lastmod>2026-01-10</lastmod></url>
  <url><loc>https://eyecare.example/services/cataract-surgery</loc><lastmod>2026-02-27</lastmod></url>
  <url><loc>https://www.eyecare.example/locations/irvine</loc><lastmod>2026-03-01T10:00:00Z</lastmod></url>
  <url><loc>https://partner.example/offer</loc><lastmod>2026-03-01</lastmod></url>
</urlset>
`

const sourceRobots = `User-agent: *
Allow: /
Disallow: /admin

Sitemap: https://eyecare.example/sitemap.xml
`

const sourceFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Eye Care Blog</title>
    <link>https://eyecare.example/blog</link>
    <item>
      <title>Dry eye season</title>
      <link>https://eyecare.example/blog/dry-eye-season</link>
      <pubDate>Sat, 28 Feb 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>New year checkups</title>
      <link>https://eyecare.example/blog/new-year-checkups</link>
      <pubDate>Mon, 05 Jan 2026 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>
`

type indexNowServer struct {
	*httptest.Server
	payloads []indexNowPayload
}

func newIndexNowServer(t *testing.T, status int) *indexNowServer {
	t.Helper()
	s := &indexNowServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var p indexNowPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		s.payloads = append(s.payloads, p)
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func testConfig(indexNowURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Website.Domain = "eyecare.example"
	cfg.Website.BaseURL = "https://eyecare.example/"
	cfg.APIs.GoogleSearchConsole.Enabled = true
	cfg.APIs.BingWebmaster.Enabled = true
	cfg.APIs.IndexNow = config.APIToggle{Enabled: true, Key: "abc123", Endpoint: indexNowURL}
	cfg.Automation.SearchEngineNotification = config.SearchEngineNotificationConfig{
		Enabled:           true,
		Schedule:          "0 3 * * *",
		RequestsPerSecond: 100,
		RecentDays:        7,
	}
	cfg.Paths = config.PathsConfig{
		Public:        "/site/public",
		Dist:          "/site/dist",
		SitemapSource: "/site/source/sitemap.xml",
		RobotsSource:  "/site/source/robots.txt",
		Feed:          "/site/source/feed.xml",
	}
	return cfg
}

func newService(t *testing.T, cfg *config.Config, fsys afero.Fs, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st := store.New(fsys, "/site/reports")
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := New(cfg, fsys, st, nil, opts...)
	require.NoError(t, s.Initialize(context.Background()))
	return s, st
}

func seedSources(t *testing.T, fsys afero.Fs) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, "/site/source/sitemap.xml", []byte(sourceSitemap), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/site/source/robots.txt", []byte(sourceRobots), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/site/source/feed.xml", []byte(sourceFeed), 0o644))
}

func notificationTypes(r *models.NotificationResult) []string {
	var types []string
	for _, n := range r.Notifications {
		types = append(types, n.Type)
	}
	return types
}

func TestNotifySearchEngines(t *testing.T) {
	server := newIndexNowServer(t, http.StatusOK)
	fsys := afero.NewMemMapFs()
	seedSources(t, fsys)
	s, st := newService(t, testConfig(server.URL), fsys)

	result, err := s.NotifySearchEngines(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
	assert.Equal(t, models.NotificationSummary{
		SitemapUpdated:    true,
		RobotsUpdated:     true,
		GoogleNotified:    true,
		BingNotified:      true,
		IndexNowSubmitted: true,
		URLsSubmitted:     3,
	}, result.Summary)
	assert.Equal(t, []string{
		models.NotifySitemapUpdate,
		models.NotifyRobotsUpdate,
		models.NotifyGoogle,
		models.NotifyBing,
		models.NotifyIndexNow,
		models.NotifyYandex,
		models.NotifyBaidu,
	}, notificationTypes(result))

	require.Len(t, server.payloads, 1)
	assert.Equal(t, "eyecare.example", server.payloads[0].Host)
	assert.Equal(t, "abc123", server.payloads[0].Key)
	assert.Equal(t, []string{
		"https://eyecare.example/services/cataract-surgery",
		"https://www.eyecare.example/locations/irvine",
		"https://eyecare.example/blog/dry-eye-season",
	}, server.payloads[0].URLList)

	google := result.Notifications[2]
	assert.Equal(t, "https://eyecare.example/sitemap.xml", google.SitemapURL)
	assert.Equal(t, "submitted", google.Message)
	assert.Equal(t, "Yandex submission not implemented", result.Notifications[5].Message)
	assert.True(t, result.Notifications[5].Success)

	for _, path := range []string{"/site/public/sitemap.xml", "/site/dist/sitemap.xml"} {
		data, err := afero.ReadFile(fsys, path)
		require.NoError(t, err, path)
		assert.Equal(t, sourceSitemap, string(data))
	}
	robots, err := afero.ReadFile(fsys, "/site/dist/robots.txt")
	require.NoError(t, err)
	assert.Equal(t, sourceRobots, string(robots))

	index, err := afero.ReadFile(fsys, "/site/dist/sitemapindex.xml")
	require.NoError(t, err)
	assert.Contains(t, string(index), `<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, string(index), "<loc>https://eyecare.example/sitemap.xml</loc>")
	assert.Contains(t, string(index), "<lastmod>2026-03-02</lastmod>")
	assert.Contains(t, result.Notifications[0].Outputs, "/site/dist/sitemapindex.xml")

	var state models.NotificationResult
	require.NoError(t, st.ReadJSON(store.NotificationStateFile, &state))
	assert.True(t, state.Success)
	assert.Equal(t, 3, state.Summary.URLsSubmitted)

	status := s.Status()
	require.NotNil(t, status.LastNotification)
	assert.Equal(t, testNow, *status.LastNotification)
	assert.Equal(t, "0 3 * * *", status.NextScheduledNotification)
	assert.Equal(t, []string{"bingWebmaster", "googleSearchConsole", "indexNow"}, status.APIClients)
}

func TestIndexNowRejectionDoesNotStopOtherSteps(t *testing.T) {
	server := newIndexNowServer(t, http.StatusForbidden)
	fsys := afero.NewMemMapFs()
	seedSources(t, fsys)
	s, st := newService(t, testConfig(server.URL), fsys)

	result, err := s.NotifySearchEngines(context.Background(), Options{})
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.True(t, result.Summary.SitemapUpdated)
	assert.True(t, result.Summary.GoogleNotified)
	assert.False(t, result.Summary.IndexNowSubmitted)
	assert.Zero(t, result.Summary.URLsSubmitted)

	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.NotifyIndexNow, result.Errors[0].Step)
	indexNow := result.Notifications[4]
	assert.False(t, indexNow.Success)
	assert.Equal(t, "IndexNow API error: 403 Forbidden", indexNow.Error)
	assert.Equal(t, http.StatusForbidden, indexNow.StatusCode)
	assert.Len(t, result.Notifications, 7)

	var state models.NotificationResult
	require.NoError(t, st.ReadJSON(store.NotificationStateFile, &state))
	assert.False(t, state.Success)
}

func TestExplicitURLsAreFilteredToTheSite(t *testing.T) {
	server := newIndexNowServer(t, http.StatusAccepted)
	fsys := afero.NewMemMapFs()
	seedSources(t, fsys)
	s, _ := newService(t, testConfig(server.URL), fsys)

	result, err := s.NotifySearchEngines(context.Background(), Options{URLs: []string{
		"/new-page",
		"https://eyecare.example/new-page#faq",
		"https://other.example/x",
		"mailto:office@eyecare.example",
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Summary.URLsSubmitted)
	require.Len(t, server.payloads, 1)
	assert.Equal(t, []string{"https://eyecare.example/new-page"}, server.payloads[0].URLList)

	result, err = s.NotifySearchEngines(context.Background(), Options{URLs: []string{"https://other.example/x"}})
	require.NoError(t, err)
	assert.True(t, result.Summary.IndexNowSubmitted)
	assert.Zero(t, result.Summary.URLsSubmitted)
	assert.Equal(t, "No URLs to submit", result.Notifications[4].Message)
	assert.Len(t, server.payloads, 1)
}

func TestMissingSitemapSource(t *testing.T) {
	server := newIndexNowServer(t, http.StatusOK)
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/site/source/robots.txt", []byte(sourceRobots), 0o644))
	s, _ := newService(t, testConfig(server.URL), fsys)

	result, err := s.NotifySearchEngines(context.Background(), Options{})
	require.Error(t, err)
	assert.False(t, result.Summary.SitemapUpdated)
	assert.True(t, result.Summary.RobotsUpdated)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, models.NotifySitemapUpdate, result.Errors[0].Step)

	exists, _ := afero.Exists(fsys, "/site/dist/sitemapindex.xml")
	assert.False(t, exists)

	// nothing recent to read, so the core pages go out
	require.Len(t, server.payloads, 1)
	assert.Equal(t, []string{
		"https://eyecare.example/",
		"https://eyecare.example/services",
		"https://eyecare.example/about",
		"https://eyecare.example/contact",
	}, server.payloads[0].URLList)
}

func TestSitemapBuiltFromPages(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/site/src/pages/index.html",
		[]byte(`<html><head><title>Eye Care Center</title></head><body></body></html>`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/site/src/pages/about.html",
		[]byte(`<html><head><title>About</title></head><body><p>About us.</p></body></html>`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/site/source/robots.txt", []byte(sourceRobots), 0o644))

	cfg := testConfig("")
	cfg.APIs.IndexNow.Enabled = false
	repo := site.New(fsys, "/site/src/pages", "/site/src/data", cfg.Website.BaseURL, nil)
	s, _ := newService(t, cfg, fsys, WithSite(repo))

	result, err := s.NotifySearchEngines(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, result.Summary.SitemapUpdated)
	assert.Empty(t, result.Notifications[0].Path)

	data, err := afero.ReadFile(fsys, "/site/public/sitemap.xml")
	require.NoError(t, err)
	set, err := parseSitemap(data)
	require.NoError(t, err)
	require.Len(t, set.URLs, 2)
	assert.Equal(t, "https://eyecare.example/", set.URLs[0].Loc)
	assert.Equal(t, "1.0", set.URLs[0].Priority)
	assert.Equal(t, "https://eyecare.example/about", set.URLs[1].Loc)
	assert.NotEmpty(t, set.URLs[1].LastMod)
}

func TestInvalidSourcesFail(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fsys, "/site/source/sitemap.xml", []byte(`<urlset><url><loc>`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/site/source/robots.txt", []byte(sourceRobots), 0o644))

	cfg := testConfig("")
	cfg.APIs.IndexNow.Enabled = false
	s, _ := newService(t, cfg, fsys)

	result, err := s.NotifySearchEngines(context.Background(), Options{})
	require.Error(t, err)
	assert.Contains(t, result.Notifications[0].Error, "invalid sitemap")
	exists, _ := afero.Exists(fsys, "/site/public/sitemap.xml")
	assert.False(t, exists)
}

func TestCanceledRunRecordsEveryStep(t *testing.T) {
	fsys := afero.NewMemMapFs()
	seedSources(t, fsys)
	s, _ := newService(t, testConfig("http://127.0.0.1:1"), fsys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := s.NotifySearchEngines(ctx, Options{})
	require.Error(t, err)
	assert.Len(t, result.Errors, 7)
	for _, n := range result.Notifications {
		assert.False(t, n.Success, n.Type)
	}
}

func TestValidateRobots(t *testing.T) {
	warnings, err := validateRobots([]byte(sourceRobots), "https://eyecare.example/sitemap.xml")
	require.NoError(t, err)
	assert.Empty(t, warnings)

	warnings, err = validateRobots([]byte("User-agent: *\nDisallow: /\n"), "https://eyecare.example/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"robots.txt disallows the site root for all crawlers",
		"robots.txt does not reference https://eyecare.example/sitemap.xml",
	}, warnings)
}

func TestRecentFromFeed(t *testing.T) {
	since := time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC)
	urls, err := recentFromFeed([]byte(sourceFeed), since)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://eyecare.example/blog/dry-eye-season"}, urls)

	_, err = recentFromFeed([]byte("not a feed"), since)
	assert.Error(t, err)
}

func TestPingSubmitter(t *testing.T) {
	var got string
	status := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("sitemap")
		w.WriteHeader(status)
	}))
	defer server.Close()

	p := NewPingSubmitter("Bing", server.URL+"/ping", server.Client(), nil, nil)
	resp, err := p.SubmitSitemap(context.Background(), "https://eyecare.example/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "https://eyecare.example/sitemap.xml", got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status = http.StatusInternalServerError
	_, err = p.SubmitSitemap(context.Background(), "https://eyecare.example/sitemap.xml")
	assert.EqualError(t, err, "Bing ping error: 500 Internal Server Error")
}

func TestSubmitterDefaults(t *testing.T) {
	l := NewLoggingSubmitter("Google", nil)
	assert.Equal(t, "Google (logged)", l.Name())
	resp, err := l.SubmitSitemap(context.Background(), "https://eyecare.example/sitemap.xml")
	require.NoError(t, err)
	assert.Equal(t, "submitted", resp.Message)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.SubmitSitemap(ctx, "https://eyecare.example/sitemap.xml")
	assert.ErrorIs(t, err, context.Canceled)

	c := NewIndexNowClient("", "eyecare.example", "key", nil, nil, nil)
	assert.Equal(t, "IndexNow", c.Name())
	assert.Equal(t, "https://api.indexnow.org/indexnow", c.endpoint)
}

func TestPingEndpointsConfig(t *testing.T) {
	cfg := testConfig("")
	cfg.Automation.SearchEngineNotification.PingEndpoints = true
	cfg.APIs.BingWebmaster.Endpoint = "https://bing.test/ping"
	s, _ := newService(t, cfg, afero.NewMemMapFs())

	assert.Equal(t, "Google (ping)", s.google.Name())
	assert.Equal(t, "Bing (ping)", s.bing.Name())
	assert.Equal(t, "https://bing.test/ping", s.bing.(*PingSubmitter).endpoint)
	assert.Equal(t, googlePingURL, s.google.(*PingSubmitter).endpoint)
}

func TestInitializeLoadsState(t *testing.T) {
	fsys := afero.NewMemMapFs()
	st := store.New(fsys, "/site/reports")
	last := models.NotificationResult{
		Timestamp: testNow.Add(-24 * time.Hour),
		Success:   true,
		Summary:   models.NotificationSummary{SitemapUpdated: true, URLsSubmitted: 4},
	}
	require.NoError(t, st.WriteJSON(store.NotificationStateFile, last))

	s, _ := newService(t, testConfig(""), fsys)
	h := s.HealthCheck()
	assert.Equal(t, "healthy", h.Status)
	require.NotNil(t, h.LastNotification)
	assert.Equal(t, last.Timestamp, *h.LastNotification)
	assert.Equal(t, map[string]string{
		"bingWebmaster":       "connected",
		"googleSearchConsole": "connected",
		"indexNow":            "connected",
	}, h.APIClients)

	status := s.Status()
	require.NotNil(t, status.LastNotificationSummary)
	assert.Equal(t, 4, status.LastNotificationSummary.URLsSubmitted)
	assert.NoError(t, s.Shutdown(context.Background()))
}
