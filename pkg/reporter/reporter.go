// Package reporter builds the weekly SEO report and custom reports from the
// stored monitoring history, and dispatches alerts by email, webhook and NATS.
package reporter

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// Section names accepted by GenerateCustomReport
const (
	SectionRankings    = "rankings"
	SectionTraffic     = "traffic"
	SectionConversions = "conversions"
	SectionTechnical   = "technical"
)

// AllSections is the default section list
var AllSections = []string{SectionRankings, SectionTraffic, SectionConversions, SectionTechnical}

const (
	weeklyTemplate    = "weekly"
	latestWeeklyHTML  = "weekly-report.html"
	latestWeeklyPDF   = "weekly-report.pdf"
	errorTypeReport   = "report_error"
	errorTypeDispatch = "dispatch_error"
)

// CustomOptions selects what a custom report covers
type CustomOptions struct {
	Type     string
	Period   *models.Period
	Sections []string
	Format   string
}

// Health is the service's health report
type Health struct {
	Status          string     `json:"status"`
	EmailConfigured bool       `json:"emailConfigured"`
	PDFEnabled      bool       `json:"pdfEnabled"`
	StreamConnected bool       `json:"streamConnected"`
	TemplatesLoaded int        `json:"templatesLoaded"`
	LastReport      *time.Time `json:"lastReport"`
}

// Status describes delivery settings
type Status struct {
	EmailService    string     `json:"emailService"`
	ReportTemplates []string   `json:"reportTemplates"`
	Recipients      []string   `json:"recipients"`
	Frequency       string     `json:"frequency"`
	LastReport      *time.Time `json:"lastReport"`
}

// Service is the ReportingService
type Service struct {
	cfg     config.ReportingConfig
	email   config.EmailConfig
	nats    config.NATSConfig
	website config.WebsiteConfig
	store   *store.Store
	log     *logger.Logger
	now     func() time.Time
	client  *http.Client

	mailer Mailer
	pdf    PDFRenderer
	stream AlertStream

	mu         sync.RWMutex
	templates  map[string]*template.Template
	lastReport *time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMailer replaces the SMTP mailer
func WithMailer(m Mailer) Option {
	return func(s *Service) { s.mailer = m }
}

// WithPDFRenderer replaces the Chromium renderer
func WithPDFRenderer(r PDFRenderer) Option {
	return func(s *Service) { s.pdf = r }
}

// WithAlertStream replaces the NATS stream
func WithAlertStream(a AlertStream) Option {
	return func(s *Service) { s.stream = a }
}

// WithHTTPClient sets the client used for webhooks
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// New creates a Service
func New(cfg *config.Config, st *store.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		cfg:       cfg.Reporting,
		email:     cfg.Email,
		nats:      cfg.NATS,
		website:   cfg.Website,
		store:     st,
		log:       log,
		now:       time.Now,
		client:    &http.Client{Timeout: 10 * time.Second},
		templates: make(map[string]*template.Template),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize sets up delivery channels and loads custom templates. Missing
// channels are logged and left disabled.
func (s *Service) Initialize(ctx context.Context) error {
	s.log.Info("Initializing Reporting Service")
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.mailer == nil && s.email.User != "" && s.email.Host != "" {
		s.mailer = NewSMTPMailer(s.email)
	}
	if s.pdf == nil && s.cfg.PDF.Enabled {
		s.pdf = NewChromePDF(s.cfg.PDF)
	}
	if s.stream == nil && s.nats.URL != "" {
		stream, err := NewNATSStream(s.nats)
		if err != nil {
			s.log.Warn("Could not connect to NATS, alert streaming disabled", err)
		} else {
			s.stream = stream
		}
	}

	s.loadTemplates()
	s.log.Info("Reporting Service initialized", map[string]any{
		"email":     s.mailer != nil,
		"pdf":       s.pdf != nil,
		"stream":    s.stream != nil,
		"templates": len(s.templates),
	})
	return nil
}

func (s *Service) loadTemplates() {
	dir := s.cfg.TemplatesDir
	if dir == "" {
		return
	}
	entries, err := afero.ReadDir(s.store.Fs(), dir)
	if err != nil {
		s.log.Warn("No custom templates found, using defaults")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".html" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".html")
		raw, err := afero.ReadFile(s.store.Fs(), filepath.Join(dir, e.Name()))
		if err != nil {
			s.log.Warn("Could not read template", map[string]any{"template": name, "error": err.Error()})
			continue
		}
		t, err := template.New(name).Funcs(templateFuncs).Parse(string(raw))
		if err != nil {
			s.log.Warn("Could not parse template", map[string]any{"template": name, "error": err.Error()})
			continue
		}
		s.templates[name] = t
	}
}

var builtin = template.Must(template.New("report").Funcs(templateFuncs).Parse(defaultTemplate))

func (s *Service) template(name string) *template.Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.templates[name]; ok {
		return t
	}
	return builtin
}

// loadSections reads the latest record of each requested history. A missing
// or unreadable file yields a zero-value section and a warning.
func (s *Service) loadSections(names []string) models.ReportSections {
	var sections models.ReportSections
	for _, name := range names {
		switch name {
		case SectionRankings:
			r := latest[models.RankingResult](s, store.RankingsFile, "rankings")
			if r.Keywords == nil {
				r.Keywords = []models.RankingData{}
			}
			sections.Rankings = &r
		case SectionTraffic:
			t := latest[models.TrafficResult](s, store.TrafficFile, "traffic")
			sections.Traffic = &t
		case SectionConversions:
			c := latest[models.ConversionResult](s, store.ConversionsFile, "conversions")
			sections.Conversions = &c
		case SectionTechnical:
			t := latest[models.TechnicalAudit](s, store.TechnicalAuditFile, "technical")
			if t.Categories == nil {
				t.Categories = map[string]models.CategoryScore{}
			}
			sections.Technical = &t
		}
	}
	return sections
}

func latest[T any](s *Service, file, label string) T {
	item, ok, err := store.Last[T](s.store, file)
	switch {
	case err != nil:
		s.log.Warn(fmt.Sprintf("Could not load %s data", label), err)
	case !ok:
		s.log.Warn(fmt.Sprintf("Could not load %s data", label), map[string]any{"file": file, "reason": "no history"})
	}
	return item
}

func (s *Service) charts(sections models.ReportSections) models.Charts {
	var charts models.Charts
	if sections.Rankings != nil {
		history, err := store.Tail[models.RankingResult](s.store, store.RankingsFile, chartPoints)
		if err != nil {
			s.log.Warn("Chart generation failed", err)
		}
		charts.RankingsTrend = rankingsChart(history)
	}
	if sections.Traffic != nil {
		history, err := store.Tail[models.TrafficResult](s.store, store.TrafficFile, chartPoints)
		if err != nil {
			s.log.Warn("Chart generation failed", err)
		}
		charts.TrafficTrend = trafficChart(history)
	}
	charts.Categories = categoryChart(sections.Technical)
	return charts
}

func (s *Service) reportData(kind string, period models.Period, sectionNames []string) *models.ReportData {
	sections := s.loadSections(sectionNames)
	return &models.ReportData{
		Type:      kind,
		Period:    period,
		Timestamp: s.now().UTC(),
		Website:   s.website.Domain,
		Summary:   GenerateExecutiveSummary(sections),
		Sections:  sections,
		Charts:    s.charts(sections),
	}
}

func (s *Service) periodDays(days int) models.Period {
	now := s.now().UTC()
	return models.Period{
		Start: now.AddDate(0, 0, -days).Format("2006-01-02"),
		End:   now.Format("2006-01-02"),
	}
}

// GenerateWeeklyReport builds the weekly report from the latest history,
// saves the dated and latest HTML, the dated JSON data and the PDF when one
// is rendered, then emails it. A render failure aborts before anything is
// saved.
func (s *Service) GenerateWeeklyReport(ctx context.Context) (*models.ReportResult, error) {
	timer := s.log.StartTimer("weekly report")
	s.log.Info("Generating weekly SEO report")

	data := s.reportData("weekly", s.periodDays(7), AllSections)
	result := &models.ReportResult{ReportData: data, Format: FormatHTML}

	html, err := s.renderHTML(weeklyTemplate, data)
	if err != nil {
		return s.fail(result, "render_html", err)
	}

	var pdf []byte
	if s.pdf != nil {
		if pdf, err = s.pdf.RenderPDF(ctx, html); err != nil {
			return s.fail(result, "render_pdf", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return s.fail(result, "save_report", err)
	}
	if err := s.saveWeekly(result, html, pdf); err != nil {
		return s.fail(result, "save_report", err)
	}
	result.Report = html

	if err := s.sendWeekly(ctx, html, pdf); err != nil {
		return s.fail(result, "send_report", err)
	}
	result.Emailed = s.mailer != nil && len(s.cfg.Recipients) > 0

	result.Success = true
	ts := data.Timestamp
	s.mu.Lock()
	s.lastReport = &ts
	s.mu.Unlock()

	timer.End()
	s.log.Info("Weekly report generated and sent successfully", map[string]any{
		"health":  data.Summary.OverallHealth,
		"emailed": result.Emailed,
	})
	return result, nil
}

func (s *Service) saveWeekly(result *models.ReportResult, html, pdf []byte) error {
	date := result.ReportData.Timestamp.Format("2006-01-02")
	dated := datedName("weekly-report", date, "html")
	dataFile := datedName("weekly-data", date, "json")

	if err := s.store.WriteFile(dated, html); err != nil {
		return err
	}
	if err := s.store.WriteFile(latestWeeklyHTML, html); err != nil {
		return err
	}
	if err := s.store.WriteJSON(dataFile, result.ReportData); err != nil {
		return err
	}
	result.HTMLPath = s.store.Path(latestWeeklyHTML)
	result.DataPath = s.store.Path(dataFile)

	if pdf != nil {
		if err := s.store.WriteFile(datedName("weekly-report", date, "pdf"), pdf); err != nil {
			return err
		}
		if err := s.store.WriteFile(latestWeeklyPDF, pdf); err != nil {
			return err
		}
		result.PDFPath = s.store.Path(latestWeeklyPDF)
	}
	return nil
}

// datedName builds a report file name safe for the reports directory
func datedName(prefix, date, ext string) string {
	return utils.SanitizeFilename(fmt.Sprintf("%s-%s.%s", prefix, date, ext))
}

func (s *Service) sendWeekly(ctx context.Context, html, pdf []byte) error {
	if s.mailer == nil || len(s.cfg.Recipients) == 0 {
		s.log.Debug("Email not configured, weekly report not sent")
		return nil
	}

	msg := Message{
		From:    s.sender(),
		To:      s.cfg.Recipients,
		Subject: fmt.Sprintf("Weekly SEO Report - %s", s.website.Domain),
		HTML:    string(html),
	}
	if pdf != nil {
		msg.Attachments = []Attachment{{Name: "seo-report.pdf", Data: pdf}}
	}
	return s.mailer.Send(ctx, msg)
}

func (s *Service) sender() string {
	if s.email.From != "" {
		return s.email.From
	}
	return s.email.User
}

// GenerateCustomReport renders the requested sections over the requested
// period in one of the supported formats. Nothing is written to disk.
func (s *Service) GenerateCustomReport(ctx context.Context, opts CustomOptions) (*models.ReportResult, error) {
	s.log.Info("Generating custom report", opts)

	kind := opts.Type
	if kind == "" {
		kind = "custom"
	}
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatHTML
	}
	sections := opts.Sections
	if len(sections) == 0 {
		sections = AllSections
	}
	period := s.periodDays(30)
	if opts.Period != nil {
		period = *opts.Period
	}

	result := &models.ReportResult{Format: format}
	for _, name := range sections {
		if !validSection(name) {
			return s.fail(result, "options", fmt.Errorf("unknown section %q", name))
		}
	}

	data := s.reportData(kind, period, sections)
	result.ReportData = data

	var (
		out []byte
		err error
	)
	switch format {
	case FormatJSON:
		out, err = renderJSON(data)
	case FormatCSV:
		out, err = renderCSV(data)
	case FormatHTML:
		out, err = s.renderHTML(kind, data)
	case FormatMarkdown:
		out = renderMarkdown(data)
	case FormatXLSX:
		out, err = renderXLSX(data)
	case FormatPDF:
		if s.pdf == nil {
			err = fmt.Errorf("pdf rendering is disabled")
			break
		}
		var html []byte
		if html, err = s.renderHTML(kind, data); err == nil {
			out, err = s.pdf.RenderPDF(ctx, html)
		}
	default:
		err = fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return s.fail(result, "render_"+format, err)
	}

	result.Report = out
	result.Success = true
	return result, nil
}

func validSection(name string) bool {
	for _, s := range AllSections {
		if s == name {
			return true
		}
	}
	return false
}

func (s *Service) fail(result *models.ReportResult, step string, err error) (*models.ReportResult, error) {
	s.log.Error("Report generation failed", map[string]any{"step": step, "error": err.Error()})
	result.Success = false
	result.Errors = append(result.Errors, models.NewStepError(errorTypeReport, step, err, s.now().UTC()))
	return result, fmt.Errorf("report generation failed at %s: %w", step, err)
}

// HealthCheck reports which delivery channels are available
func (s *Service) HealthCheck() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Health{
		Status:          "healthy",
		EmailConfigured: s.mailer != nil,
		PDFEnabled:      s.pdf != nil,
		StreamConnected: s.stream != nil,
		TemplatesLoaded: len(s.templates),
		LastReport:      s.lastReport,
	}
}

// Status describes the delivery settings and loaded templates
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.templates))
	for name := range s.templates {
		names = append(names, name)
	}
	sort.Strings(names)

	st := Status{
		EmailService:    "disconnected",
		ReportTemplates: names,
		Recipients:      s.cfg.Recipients,
		Frequency:       s.cfg.Frequency,
		LastReport:      s.lastReport,
	}
	if s.mailer != nil {
		st.EmailService = "connected"
	}
	return st
}

// Shutdown closes the alert stream
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down Reporting Service")
	if s.stream != nil {
		s.stream.Close()
	}
	return nil
}
