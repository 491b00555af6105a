// Package automation builds every SEO service from one configuration and
// runs them as named tasks. Scheduling is left to an external cron.
package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/analyzer"
	"github.com/amosWeiskopf/seoautomation/pkg/content"
	"github.com/amosWeiskopf/seoautomation/pkg/crawler"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/monitor"
	"github.com/amosWeiskopf/seoautomation/pkg/notifier"
	"github.com/amosWeiskopf/seoautomation/pkg/reporter"
	"github.com/amosWeiskopf/seoautomation/pkg/schema"
	"github.com/amosWeiskopf/seoautomation/pkg/seasonal"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

// Task names
const (
	TaskContentUpdate        = "content-update"
	TaskSearchNotification   = "search-notification"
	TaskRankingCheck         = "ranking-check"
	TaskTrafficAnalysis      = "traffic-analysis"
	TaskConversionMonitoring = "conversion-monitoring"
	TaskPerformanceCheck     = "performance-check"
	TaskTechnicalAudit       = "technical-audit"
	TaskGenerateReport       = "generate-report"
)

// Tasks lists every task in run order
var Tasks = []string{
	TaskContentUpdate,
	TaskSearchNotification,
	TaskRankingCheck,
	TaskTrafficAnalysis,
	TaskConversionMonitoring,
	TaskPerformanceCheck,
	TaskTechnicalAudit,
	TaskGenerateReport,
}

// Log names of the services, used for log files and the logs endpoint
const (
	LogOrchestrator = "SEOOrchestrator"
	LogContent      = "ContentUpdateService"
	LogMonitoring   = "PerformanceMonitoringService"
	LogReporting    = "ReportingService"
	LogNotification = "SearchEngineNotificationService"
	LogTechnical    = "TechnicalSEOService"
)

var (
	ErrUnknownTask    = errors.New("unknown task")
	ErrTaskDisabled   = errors.New("task is disabled")
	ErrTaskRunning    = errors.New("task is already running")
	ErrUnknownService = errors.New("unknown service")
)

// PageSource supplies the pages a technical audit scores
type PageSource func(ctx context.Context) ([]models.Page, error)

// TaskResult describes one task run
type TaskResult struct {
	Task         string    `json:"task"`
	Success      bool      `json:"success"`
	StartedAt    time.Time `json:"startedAt"`
	DurationMs   int64     `json:"durationMs"`
	Alerts       int       `json:"alerts"`
	AlertsFailed int       `json:"alertsFailed,omitempty"`
	Error        string    `json:"error,omitempty"`
	Result       any       `json:"result,omitempty"`
}

type taskFunc func(ctx context.Context) (any, []models.Alert, error)

// Orchestrator owns the services and runs tasks against them
type Orchestrator struct {
	cfg   *config.Config
	fs    afero.Fs
	store *store.Store
	site  *site.Repository
	now   func() time.Time

	Content  *content.Service
	Monitor  *monitor.Service
	Reporter *reporter.Service
	Notifier *notifier.Service
	Analyzer *analyzer.Analyzer

	log     *logger.Logger
	loggers map[string]*logger.Logger
	pages   PageSource
	tasks   map[string]taskFunc

	inflight sync.WaitGroup
	mu       sync.RWMutex
	running  map[string]bool
	lastRuns map[string]*TaskResult
}

type options struct {
	fs        afero.Fs
	now       func() time.Time
	console   io.Writer
	rankings  monitor.RankingProvider
	analytics monitor.AnalyticsProvider
	pages     PageSource
	reporter  []reporter.Option
	notifier  []notifier.Option
}

// Option configures an Orchestrator
type Option func(*options)

// WithFs runs every service against fsys instead of the OS filesystem
func WithFs(fsys afero.Fs) Option {
	return func(o *options) { o.fs = fsys }
}

// WithClock overrides time.Now in every service
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithConsole sends console logging to w
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// WithProviders replaces the ranking and analytics sources
func WithProviders(rankings monitor.RankingProvider, analytics monitor.AnalyticsProvider) Option {
	return func(o *options) {
		o.rankings = rankings
		o.analytics = analytics
	}
}

// WithPageSource replaces the pages fed to the technical audit
func WithPageSource(p PageSource) Option {
	return func(o *options) { o.pages = p }
}

// WithReporterOptions passes options through to the reporting service
func WithReporterOptions(opts ...reporter.Option) Option {
	return func(o *options) { o.reporter = append(o.reporter, opts...) }
}

// WithNotifierOptions passes options through to the notification service
func WithNotifierOptions(opts ...notifier.Option) Option {
	return func(o *options) { o.notifier = append(o.notifier, opts...) }
}

// New builds every service from cfg
func New(cfg *config.Config, opts ...Option) *Orchestrator {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}

	newLogger := func(service string) *logger.Logger {
		return logger.New(service, logger.Options{
			Dir:       cfg.Paths.Logs,
			Level:     cfg.Logging.Level,
			ToFile:    cfg.Logging.ToFile,
			ToConsole: cfg.Logging.ToConsole,
			Fs:        o.fs,
			Console:   o.console,
			Now:       o.now,
		})
	}
	loggers := map[string]*logger.Logger{}
	for _, name := range []string{LogOrchestrator, LogContent, LogMonitoring, LogReporting, LogNotification, LogTechnical} {
		loggers[name] = newLogger(name)
	}

	st := store.New(o.fs, cfg.Paths.Reports, store.WithLogger(loggers[LogOrchestrator]), store.WithClock(o.now))
	repo := site.New(o.fs, cfg.Paths.Pages, cfg.Paths.Data, cfg.Website.BaseURL, loggers[LogContent])

	rankings := o.rankings
	if rankings == nil {
		rankings = monitor.NewRankingProvider(cfg, loggers[LogMonitoring])
	}

	orch := &Orchestrator{
		cfg:   cfg,
		fs:    o.fs,
		store: st,
		site:  repo,
		now:   o.now,
		Content: content.New(cfg, repo,
			schema.New(cfg.Website, loggers[LogContent]),
			seasonal.NewManager(loggers[LogContent], seasonal.WithClock(o.now), seasonal.WithSeed(cfg.Content.RandomSeed)),
			st, loggers[LogContent], content.WithClock(o.now)),
		Monitor: monitor.New(cfg, rankings, o.analytics, st, loggers[LogMonitoring], monitor.WithClock(o.now)),
		Reporter: reporter.New(cfg, st, loggers[LogReporting],
			append([]reporter.Option{reporter.WithClock(o.now)}, o.reporter...)...),
		Notifier: notifier.New(cfg, o.fs, st, loggers[LogNotification],
			append([]notifier.Option{notifier.WithClock(o.now), notifier.WithSite(repo)}, o.notifier...)...),
		Analyzer: analyzer.New(cfg.Website, st, loggers[LogTechnical], analyzer.WithClock(o.now)),
		log:      loggers[LogOrchestrator],
		loggers:  loggers,
		pages:    o.pages,
		running:  map[string]bool{},
		lastRuns: map[string]*TaskResult{},
	}
	if orch.pages == nil {
		orch.pages = orch.defaultPages
	}
	orch.tasks = map[string]taskFunc{
		TaskContentUpdate:        orch.runContentUpdate,
		TaskSearchNotification:   orch.runSearchNotification,
		TaskRankingCheck:         orch.runRankingCheck,
		TaskTrafficAnalysis:      orch.runTrafficAnalysis,
		TaskConversionMonitoring: orch.runConversionMonitoring,
		TaskPerformanceCheck:     orch.runPerformanceCheck,
		TaskTechnicalAudit:       orch.runTechnicalAudit,
		TaskGenerateReport:       orch.runGenerateReport,
	}
	return orch
}

// Initialize initializes every service. A failing service does not stop the
// others; the errors are combined.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.log.Info("Initializing SEO automation", map[string]any{"domain": o.cfg.Website.Domain})

	err := multierr.Combine(
		o.Content.Initialize(ctx),
		o.Monitor.Initialize(ctx),
		o.Reporter.Initialize(ctx),
		o.Notifier.Initialize(ctx),
	)
	if err != nil {
		o.log.Error("Initialization failed", err)
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	o.log.Info("SEO automation initialized", map[string]any{"tasks": len(o.tasks)})
	return nil
}

// Enabled reports whether task may run under the current configuration
func (o *Orchestrator) Enabled(task string) bool {
	a := o.cfg.Automation
	switch task {
	case TaskContentUpdate:
		return a.ContentUpdate.Enabled
	case TaskSearchNotification:
		return a.SearchEngineNotification.Enabled
	case TaskRankingCheck, TaskTrafficAnalysis, TaskConversionMonitoring, TaskPerformanceCheck:
		return a.PerformanceMonitoring.Enabled
	case TaskTechnicalAudit:
		return a.TechnicalSEO.Enabled
	case TaskGenerateReport:
		return true
	}
	return false
}

func (o *Orchestrator) schedule(task string) string {
	a := o.cfg.Automation
	switch task {
	case TaskContentUpdate:
		return a.ContentUpdate.Schedule
	case TaskSearchNotification:
		return a.SearchEngineNotification.Schedule
	case TaskRankingCheck, TaskTrafficAnalysis, TaskConversionMonitoring, TaskPerformanceCheck:
		return a.PerformanceMonitoring.Schedule
	case TaskTechnicalAudit:
		return a.TechnicalSEO.Schedule
	case TaskGenerateReport:
		return o.cfg.Reporting.Frequency
	}
	return ""
}

// RunTask runs the named task, sends the alerts it raised and records the
// run. The returned TaskResult is nil only when the task could not start.
func (o *Orchestrator) RunTask(ctx context.Context, task string) (*TaskResult, error) {
	run, ok := o.tasks[task]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, task)
	}
	if !o.Enabled(task) {
		return nil, fmt.Errorf("%w: %s", ErrTaskDisabled, task)
	}

	o.mu.Lock()
	if o.running[task] {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrTaskRunning, task)
	}
	o.running[task] = true
	o.inflight.Add(1)
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.running, task)
		o.mu.Unlock()
		o.inflight.Done()
	}()

	o.log.Info(fmt.Sprintf("Running task: %s", task))
	began := time.Now()
	start := o.now().UTC()

	out, alerts, err := run(ctx)
	observeTask(task, began, err)

	result := &TaskResult{
		Task:      task,
		Success:   err == nil,
		StartedAt: start,
		Alerts:    len(alerts),
		Result:    out,
	}
	if err != nil {
		result.Error = err.Error()
		o.log.Error(fmt.Sprintf("Task failed: %s", task), err)
	}
	if len(alerts) > 0 {
		result.AlertsFailed = o.dispatchAlerts(ctx, alerts)
	}
	result.DurationMs = o.now().Sub(start).Milliseconds()

	o.mu.Lock()
	o.lastRuns[task] = result
	o.mu.Unlock()

	if err != nil {
		return result, fmt.Errorf("task %s failed: %w", task, err)
	}
	o.log.Info(fmt.Sprintf("Task completed: %s", task), map[string]any{"alerts": len(alerts), "durationMs": result.DurationMs})
	return result, nil
}

// dispatchAlerts sends alerts through the reporter and returns how many
// could not be fully delivered. Delivery failures never fail the task.
func (o *Orchestrator) dispatchAlerts(ctx context.Context, alerts []models.Alert) int {
	recordAlerts(alerts)
	results, err := o.Reporter.SendAlerts(ctx, alerts)
	if err != nil {
		o.log.Warn("Some alerts were not delivered", err)
	}

	failed := 0
	for _, r := range results {
		if r == nil || r.Success {
			continue
		}
		failed++
		for _, e := range r.Errors {
			recordDeliveryFailure(e.Step)
		}
	}
	return failed
}

// LastRun returns the most recent result of task
func (o *Orchestrator) LastRun(task string) *TaskResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if r, ok := o.lastRuns[task]; ok {
		snapshot := *r
		return &snapshot
	}
	return nil
}

// Logger returns the logger of a service by log name
func (o *Orchestrator) Logger(service string) (*logger.Logger, error) {
	l, ok := o.loggers[service]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, service)
	}
	return l, nil
}

// Services lists the log names in sorted order
func (o *Orchestrator) Services() []string {
	names := make([]string, 0, len(o.loggers))
	for name := range o.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CleanLogs removes log files older than daysToKeep
func (o *Orchestrator) CleanLogs(daysToKeep int) ([]string, error) {
	return o.log.CleanOldLogs(daysToKeep)
}

// Store exposes the report store
func (o *Orchestrator) Store() *store.Store {
	return o.store
}

// Config returns the configuration the services were built from
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}

func (o *Orchestrator) defaultPages(ctx context.Context) ([]models.Page, error) {
	if !o.cfg.Automation.TechnicalSEO.LiveCrawl {
		return o.site.Pages()
	}
	c, err := crawler.NewFromConfig(o.cfg, o.loggers[LogTechnical])
	if err != nil {
		return nil, fmt.Errorf("failed to create crawler: %w", err)
	}
	return c.Crawl(ctx)
}

// Shutdown waits for running tasks, then shuts every service down
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.log.Info("Shutting down SEO automation")

	done := make(chan struct{})
	go func() {
		o.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		o.log.Warn("Shutdown deadline reached with tasks still running")
	}

	return multierr.Combine(
		o.Content.Shutdown(ctx),
		o.Monitor.Shutdown(ctx),
		o.Reporter.Shutdown(ctx),
		o.Notifier.Shutdown(ctx),
	)
}
