package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

var testNow = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type fakePDF struct{ err error }

func (f fakePDF) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte("%PDF-"), html[:15]...), nil
}

type fakeStream struct {
	published []models.Alert
	closed    bool
}

func (f *fakeStream) PublishAlert(a models.Alert) error {
	f.published = append(f.published, a)
	return nil
}

func (f *fakeStream) Close() { f.closed = true }

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Website.Domain = "eyecare.example"
	cfg.Website.BaseURL = "https://eyecare.example"
	cfg.Website.BusinessName = "Eye Care Center"
	cfg.Reporting.Recipients = []string{"office@eyecare.example"}
	cfg.Reporting.Frequency = "weekly"
	cfg.Email.From = "seo@eyecare.example"
	return cfg
}

func newService(t *testing.T, cfg *config.Config, opts ...Option) (*Service, *store.Store) {
	t.Helper()
	st := store.New(afero.NewMemMapFs(), "/reports")
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	s := New(cfg, st, nil, opts...)
	require.NoError(t, s.Initialize(context.Background()))
	return s, st
}

func seedHistory(t *testing.T, st *store.Store) {
	t.Helper()
	_, err := store.AppendCapped(st, store.RankingsFile, models.RankingResult{
		Timestamp: testNow.AddDate(0, 0, -1),
		Keywords: []models.RankingData{
			{Keyword: "eye doctor orange county", CurrentPosition: 3, Change: -2, URL: "/"},
		},
		Summary: models.RankingSummary{TotalKeywords: 10, Improved: 2, Declined: 8, AveragePosition: 7.5},
	}, store.MetricsCap)
	require.NoError(t, err)

	_, err = store.AppendCapped(st, store.TechnicalAuditFile, models.TechnicalAudit{
		OverallScore: 72,
		Summary:      models.AuditSummary{CriticalIssues: 1, WarningIssues: 2, PassedChecks: 2},
		Categories: map[string]models.CategoryScore{
			"links":   {Score: 40, Status: "critical"},
			"content": {Score: 90, Status: "passed"},
		},
	}, store.AuditCap)
	require.NoError(t, err)
}

func TestGenerateExecutiveSummary(t *testing.T) {
	tests := []struct {
		name       string
		sections   models.ReportSections
		health     string
		concerns   []string
		highlights []string
	}{
		{
			name: "more declines than improvements",
			sections: models.ReportSections{
				Rankings: &models.RankingResult{Summary: models.RankingSummary{Improved: 2, Declined: 8}},
			},
			health:     models.HealthNeedsAttention,
			concerns:   []string{"Declined rankings for 8 keywords"},
			highlights: []string{},
		},
		{
			name: "growing",
			sections: models.ReportSections{
				Rankings: &models.RankingResult{Summary: models.RankingSummary{Improved: 5, Declined: 1}},
				Traffic:  &models.TrafficResult{Trends: models.TrafficTrends{OrganicGrowth: 18.2}},
			},
			health:     models.HealthGood,
			concerns:   []string{},
			highlights: []string{"Improved rankings for 5 keywords", "Organic traffic increased by 18.2%"},
		},
		{
			name: "organic decline",
			sections: models.ReportSections{
				Traffic: &models.TrafficResult{Trends: models.TrafficTrends{OrganicGrowth: -12.5}},
			},
			health:     models.HealthNeedsAttention,
			concerns:   []string{"Organic traffic declined by 12.5%"},
			highlights: []string{},
		},
		{
			name: "critical audit issues",
			sections: models.ReportSections{
				Technical: &models.TechnicalAudit{OverallScore: 64, Summary: models.AuditSummary{CriticalIssues: 3}},
			},
			health:     models.HealthNeedsAttention,
			concerns:   []string{"3 critical technical issues found"},
			highlights: []string{},
		},
		{
			name:       "no data",
			sections:   models.ReportSections{},
			health:     models.HealthGood,
			concerns:   []string{},
			highlights: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary := GenerateExecutiveSummary(tt.sections)
			assert.Equal(t, tt.health, summary.OverallHealth)
			assert.Equal(t, tt.concerns, summary.Concerns)
			assert.Equal(t, tt.highlights, summary.Highlights)
			if len(tt.concerns) > 0 {
				assert.Contains(t, summary.Recommendations, "Focus on addressing identified technical and ranking issues")
			}
		})
	}
}

func TestExecutiveSummaryKeyMetrics(t *testing.T) {
	summary := GenerateExecutiveSummary(models.ReportSections{
		Rankings:    &models.RankingResult{Summary: models.RankingSummary{Improved: 2, Declined: 8}},
		Traffic:     &models.TrafficResult{Metrics: models.TrafficMetrics{OrganicSessions: 8920, BounceRate: 0.65}},
		Conversions: &models.ConversionResult{Summary: models.ConversionSummary{TotalConversions: 247, ConversionRate: 0.0533}},
		Technical:   &models.TechnicalAudit{OverallScore: 81.5},
	})

	assert.Equal(t, models.KeyMetrics{RankingChange: -6, OrganicTraffic: 8920, ConversionRate: 0.0533, TechnicalScore: 81.5}, summary.KeyMetrics)
	assert.Contains(t, summary.Recommendations, "Improve page content and user experience to reduce bounce rate")
}

func TestGenerateWeeklyReportWithoutHistory(t *testing.T) {
	s, st := newService(t, testConfig())

	result, err := s.GenerateWeeklyReport(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Emailed)
	assert.Equal(t, models.HealthGood, result.ReportData.Summary.OverallHealth)
	assert.Equal(t, models.Period{Start: "2026-02-23", End: "2026-03-02"}, result.ReportData.Period)
	require.NotNil(t, result.ReportData.Sections.Rankings)
	assert.Empty(t, result.ReportData.Sections.Rankings.Keywords)

	for _, name := range []string{"weekly-report.html", "weekly-report-2026-03-02.html", "weekly-data-2026-03-02.json"} {
		assert.True(t, st.Exists(name), name)
	}
	assert.False(t, st.Exists("weekly-report.pdf"))

	html, err := st.ReadFile("weekly-report.html")
	require.NoError(t, err)
	assert.Contains(t, string(html), "Overall Health: GOOD")
	assert.Contains(t, string(html), "https://eyecare.example")
	assert.Equal(t, st.Path("weekly-report.html"), result.HTMLPath)
}

func TestDatedName(t *testing.T) {
	assert.Equal(t, "weekly-report-2026-03-02.pdf", datedName("weekly-report", "2026-03-02", "pdf"))
	assert.Equal(t, "weekly_report-2026_03_02.html", datedName("weekly/report", "2026:03:02", "html"))
}

func TestGenerateWeeklyReportEmailsPDF(t *testing.T) {
	mailer := &fakeMailer{}
	s, st := newService(t, testConfig(), WithMailer(mailer), WithPDFRenderer(fakePDF{}))
	seedHistory(t, st)

	result, err := s.GenerateWeeklyReport(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Emailed)
	assert.Equal(t, models.HealthNeedsAttention, result.ReportData.Summary.OverallHealth)
	assert.Equal(t, st.Path("weekly-report.pdf"), result.PDFPath)
	assert.True(t, st.Exists("weekly-report-2026-03-02.pdf"))

	charts := result.ReportData.Charts
	require.NotNil(t, charts.RankingsTrend)
	assert.Equal(t, []float64{7.5}, charts.RankingsTrend.Values)
	require.NotNil(t, charts.Categories)
	assert.Equal(t, []string{"content", "links"}, charts.Categories.Labels)
	assert.Nil(t, charts.TrafficTrend)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "Weekly SEO Report - eyecare.example", msg.Subject)
	assert.Equal(t, "seo@eyecare.example", msg.From)
	assert.Equal(t, []string{"office@eyecare.example"}, msg.To)
	assert.Contains(t, msg.HTML, "Declined rankings for 8 keywords")
	assert.Contains(t, msg.HTML, "1 critical technical issues found")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "seo-report.pdf", msg.Attachments[0].Name)
	assert.True(t, bytes.HasPrefix(msg.Attachments[0].Data, []byte("%PDF-")))
}

func TestGenerateWeeklyReportRenderFailureSavesNothing(t *testing.T) {
	s, st := newService(t, testConfig(), WithPDFRenderer(fakePDF{err: errors.New("chromium not found")}))

	result, err := s.GenerateWeeklyReport(context.Background())
	require.Error(t, err)
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "render_pdf", result.Errors[0].Step)
	assert.False(t, st.Exists("weekly-report.html"))
	assert.Nil(t, s.HealthCheck().LastReport)
}

func TestGenerateWeeklyReportEmailFailure(t *testing.T) {
	s, st := newService(t, testConfig(), WithMailer(&fakeMailer{err: errors.New("535 auth failed")}))

	result, err := s.GenerateWeeklyReport(context.Background())
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.Emailed)
	assert.Equal(t, "send_report", result.Errors[0].Step)
	assert.True(t, st.Exists("weekly-report.html"))
}

func TestCustomTemplate(t *testing.T) {
	cfg := testConfig()
	cfg.Reporting.TemplatesDir = "/templates"

	st := store.New(afero.NewMemMapFs(), "/reports")
	require.NoError(t, afero.WriteFile(st.Fs(), "/templates/weekly.html", []byte(`<p>{{.Website}}: {{health .Summary.OverallHealth}}</p>`), 0o644))
	require.NoError(t, afero.WriteFile(st.Fs(), "/templates/broken.html", []byte(`{{.Website`), 0o644))

	s := New(cfg, st, nil, WithClock(func() time.Time { return testNow }))
	require.NoError(t, s.Initialize(context.Background()))
	assert.Equal(t, []string{"weekly"}, s.Status().ReportTemplates)

	result, err := s.GenerateWeeklyReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<p>eyecare.example: GOOD</p>", string(result.Report))
}

func TestGenerateCustomReportFormats(t *testing.T) {
	s, st := newService(t, testConfig())
	seedHistory(t, st)
	ctx := context.Background()

	tests := []struct {
		format string
		check  func(t *testing.T, out []byte)
	}{
		{FormatJSON, func(t *testing.T, out []byte) {
			var data models.ReportData
			require.NoError(t, json.Unmarshal(out, &data))
			assert.Equal(t, "custom", data.Type)
			assert.Equal(t, 2, data.Sections.Rankings.Summary.Improved)
		}},
		{FormatCSV, func(t *testing.T, out []byte) {
			lines := strings.Split(strings.TrimSpace(string(out)), "\n")
			assert.Equal(t, "section,metric,value", lines[0])
			assert.Contains(t, lines, "summary,overall_health,needs_attention")
			assert.Contains(t, lines, "technical,links,40")
		}},
		{FormatMarkdown, func(t *testing.T, out []byte) {
			assert.Contains(t, string(out), "# SEO Report for eyecare.example")
			assert.Contains(t, string(out), "| eye doctor orange county | 3 | -2 | / |")
		}},
		{FormatHTML, func(t *testing.T, out []byte) {
			assert.Contains(t, string(out), "<!DOCTYPE html>")
			assert.Contains(t, string(out), `<td class="negative">-2</td>`)
		}},
		{FormatXLSX, func(t *testing.T, out []byte) {
			f, err := excelize.OpenReader(bytes.NewReader(out))
			require.NoError(t, err)
			defer f.Close()
			assert.Equal(t, []string{"Summary", "Rankings", "Traffic", "Conversions", "Technical"}, f.GetSheetList())
			v, err := f.GetCellValue("Summary", "B2")
			require.NoError(t, err)
			assert.Equal(t, "needs_attention", v)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			result, err := s.GenerateCustomReport(ctx, CustomOptions{Format: tt.format})
			require.NoError(t, err)
			assert.True(t, result.Success)
			assert.Equal(t, tt.format, result.Format)
			tt.check(t, result.Report)
		})
	}
}

func TestGenerateCustomReportOptions(t *testing.T) {
	s, _ := newService(t, testConfig())
	ctx := context.Background()

	result, err := s.GenerateCustomReport(ctx, CustomOptions{
		Type:     "monthly",
		Sections: []string{SectionTraffic},
		Period:   &models.Period{Start: "2026-02-01", End: "2026-02-28"},
		Format:   FormatJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, "monthly", result.ReportData.Type)
	assert.Equal(t, "2026-02-01", result.ReportData.Period.Start)
	assert.Nil(t, result.ReportData.Sections.Rankings)
	assert.NotNil(t, result.ReportData.Sections.Traffic)

	_, err = s.GenerateCustomReport(ctx, CustomOptions{Sections: []string{"backlinks"}})
	assert.ErrorContains(t, err, `unknown section "backlinks"`)

	_, err = s.GenerateCustomReport(ctx, CustomOptions{Format: "docx"})
	assert.ErrorContains(t, err, "unsupported format: docx")

	result, err = s.GenerateCustomReport(ctx, CustomOptions{Format: FormatPDF})
	assert.ErrorContains(t, err, "pdf rendering is disabled")
	assert.False(t, result.Success)
}

func TestSendAlert(t *testing.T) {
	var received models.Alert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Reporting.Webhook = server.URL
	mailer := &fakeMailer{}
	stream := &fakeStream{}
	s, st := newService(t, cfg, WithMailer(mailer), WithAlertStream(stream))

	result, err := s.SendAlert(context.Background(), models.Alert{
		Type:     models.AlertTrafficAnomaly,
		Severity: models.SeverityMedium,
		Message:  "Traffic increased by 30.0%",
		Details:  map[string]string{"previousSessions": "1000"},
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Emailed)
	assert.True(t, result.Webhook)
	assert.True(t, result.Streamed)
	assert.NotEmpty(t, result.Alert.ID)
	assert.Equal(t, testNow, result.Alert.Timestamp)
	assert.Equal(t, "eyecare.example", result.Alert.Website)

	assert.Equal(t, result.Alert.ID, received.ID)
	require.Len(t, stream.published, 1)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "SEO Alert: traffic_anomaly - eyecare.example", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "<strong>previousSessions:</strong> 1000")

	logged, err := store.All[models.Alert](st, store.AlertsFile)
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, result.Alert.ID, logged[0].ID)

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, stream.closed)
}

func TestSendAlertWebhookFailureStillLogs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Reporting.Webhook = server.URL
	s, st := newService(t, cfg)

	results, err := s.SendAlerts(context.Background(), []models.Alert{
		{Type: models.AlertRankingDrop, Severity: models.SeverityHigh, Message: "Ranking dropped by 7 positions"},
		{Type: models.AlertConversionDrop, Severity: models.SeverityHigh, Message: "Conversion rate dropped by 25.0%"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook returned status 502")
	require.Len(t, results, 2)
	for _, r := range results {
		assert.False(t, r.Success)
		require.Len(t, r.Errors, 1)
		assert.Equal(t, "webhook", r.Errors[0].Step)
	}

	logged, err := store.All[models.Alert](st, store.AlertsFile)
	require.NoError(t, err)
	assert.Len(t, logged, 2)
}

func TestHealthAndStatus(t *testing.T) {
	s, _ := newService(t, testConfig(), WithMailer(&fakeMailer{}))

	h := s.HealthCheck()
	assert.Equal(t, "healthy", h.Status)
	assert.True(t, h.EmailConfigured)
	assert.False(t, h.PDFEnabled)
	assert.Nil(t, h.LastReport)

	_, err := s.GenerateWeeklyReport(context.Background())
	require.NoError(t, err)

	st := s.Status()
	assert.Equal(t, "connected", st.EmailService)
	assert.Equal(t, "weekly", st.Frequency)
	require.NotNil(t, st.LastReport)
	assert.Equal(t, testNow, *st.LastReport)
}
