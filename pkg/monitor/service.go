// Package monitor tracks keyword rankings, traffic and conversions, raises
// threshold alerts and keeps a capped history of every check.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

// Error types recorded in results
const (
	ErrorTypeRanking = "ranking_error"
	ErrorTypeGeneral = "general_error"
)

// Health is the service's health report
type Health struct {
	Status     string         `json:"status"`
	Providers  ProviderHealth `json:"apiClients"`
	DataPoints DataPoints     `json:"dataPoints"`
}

// ProviderHealth names the active data sources
type ProviderHealth struct {
	Rankings  string `json:"rankingTools"`
	Analytics string `json:"analytics"`
}

// DataPoints counts the previous values held in memory
type DataPoints struct {
	Rankings    int `json:"rankings"`
	Traffic     int `json:"traffic"`
	Conversions int `json:"conversions"`
}

// Status reports when each check last ran
type Status struct {
	MonitoringActive    bool       `json:"monitoringActive"`
	LastRankingCheck    *time.Time `json:"lastRankingCheck"`
	LastTrafficAnalysis *time.Time `json:"lastTrafficAnalysis"`
	LastConversionCheck *time.Time `json:"lastConversionCheck"`
	TrackedKeywords     int        `json:"trackedKeywords"`
	ActiveAlerts        int        `json:"activeAlerts"`
}

// Service is the PerformanceMonitoringService
type Service struct {
	cfg       config.PerformanceMonitoringConfig
	keywords  []string
	domain    string
	rankings  RankingProvider
	analytics AnalyticsProvider
	store     *store.Store
	log       *logger.Logger
	now       func() time.Time

	mu              sync.RWMutex
	lastRankings    map[string]models.RankingData
	lastTraffic     *models.TrafficMetrics
	lastConversions *models.ConversionSummary
	rankingCheckAt  *time.Time
	trafficCheckAt  *time.Time
	convCheckAt     *time.Time
	activeAlerts    int
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. A nil analytics provider uses SampleAnalytics.
func New(cfg *config.Config, rankings RankingProvider, analytics AnalyticsProvider, st *store.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	if rankings == nil {
		rankings = NewStaticRankings(nil, cfg.Content.RandomSeed)
	}
	if analytics == nil {
		analytics = SampleAnalytics{}
	}
	s := &Service{
		cfg:          cfg.Automation.PerformanceMonitoring,
		keywords:     cfg.Keywords.All(),
		domain:       cfg.Website.Domain,
		rankings:     rankings,
		analytics:    analytics,
		store:        st,
		log:          log,
		now:          time.Now,
		lastRankings: make(map[string]models.RankingData),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.HistorySize <= 0 || s.cfg.HistorySize > store.MetricsCap {
		s.cfg.HistorySize = store.MetricsCap
	}
	return s
}

// Initialize loads the last recorded rankings, traffic and conversions so
// change calculations survive a restart. Unreadable history is logged and
// treated as empty.
func (s *Service) Initialize(ctx context.Context) error {
	s.log.Info("Initializing Performance Monitoring Service")
	if err := ctx.Err(); err != nil {
		return err
	}

	s.log.Info("Loading historical performance data")
	s.mu.Lock()
	defer s.mu.Unlock()

	if last, ok, err := store.Last[models.RankingResult](s.store, store.RankingsFile); err != nil {
		s.log.Warn("Could not load ranking history", err)
	} else if ok {
		for _, k := range last.Keywords {
			s.lastRankings[k.Keyword] = k
		}
		ts := last.Timestamp
		s.rankingCheckAt = &ts
	}

	if last, ok, err := store.Last[models.TrafficResult](s.store, store.TrafficFile); err != nil {
		s.log.Warn("Could not load traffic history", err)
	} else if ok {
		m := last.Metrics
		ts := last.Timestamp
		s.lastTraffic = &m
		s.trafficCheckAt = &ts
	}

	if last, ok, err := store.Last[models.ConversionResult](s.store, store.ConversionsFile); err != nil {
		s.log.Warn("Could not load conversion history", err)
	} else if ok {
		sum := last.Summary
		ts := last.Timestamp
		s.lastConversions = &sum
		s.convCheckAt = &ts
	}

	s.log.Info("Performance Monitoring Service initialized", map[string]any{
		"rankingProvider":   s.rankings.Name(),
		"analyticsProvider": s.analytics.Name(),
		"knownKeywords":     len(s.lastRankings),
	})
	return nil
}

// CheckKeywordRanking looks up keyword and compares it with the last known
// position. Change is previous minus current, and zero on the first check.
func (s *Service) CheckKeywordRanking(ctx context.Context, keyword string) (models.RankingData, error) {
	data, err := s.lookupRanking(ctx, keyword)
	if err != nil {
		return data, err
	}
	s.commitRankings([]models.RankingData{data})
	return data, nil
}

// lookupRanking compares keyword's current position with the last known one
// without replacing it
func (s *Service) lookupRanking(ctx context.Context, keyword string) (models.RankingData, error) {
	pos, err := s.rankings.Ranking(ctx, keyword)
	if err != nil {
		return models.RankingData{}, err
	}

	data := models.RankingData{
		Keyword:         keyword,
		CurrentPosition: pos.Position,
		URL:             pos.URL,
		SearchVolume:    pos.SearchVolume,
		Difficulty:      pos.Difficulty,
		Timestamp:       s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.lastRankings[keyword]; ok {
		p := prev.CurrentPosition
		data.PreviousPosition = &p
		data.Change = p - pos.Position
	}
	return data, nil
}

// commitRankings makes keywords the baseline for the next change calculation
func (s *Service) commitRankings(keywords []models.RankingData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keywords {
		s.lastRankings[k.Keyword] = k
	}
}

// CheckRankings checks every configured keyword. A keyword that cannot be
// looked up is recorded in Errors and skipped; the run only fails when it is
// canceled or the history cannot be saved. Previous positions only move once
// the history is saved.
func (s *Service) CheckRankings(ctx context.Context) (*models.RankingResult, error) {
	timer := s.log.StartTimer("ranking check")
	s.log.Info("Starting ranking check")

	result := &models.RankingResult{
		Timestamp: s.now().UTC(),
		Keywords:  []models.RankingData{},
		Alerts:    []models.Alert{},
		Errors:    []models.StepError{},
	}

	for _, kw := range s.keywords {
		if err := ctx.Err(); err != nil {
			return s.failRankings(result, "check_rankings", err)
		}

		data, err := s.lookupRanking(ctx, kw)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return s.failRankings(result, "check_rankings", err)
			}
			s.log.Error(fmt.Sprintf("Failed to check ranking for keyword: %s", kw), err)
			result.Errors = append(result.Errors, models.NewStepError(ErrorTypeRanking, kw, err, s.now().UTC()))
			continue
		}

		result.Keywords = append(result.Keywords, data)
		result.Alerts = append(result.Alerts, s.stamp(RankingAlerts(data, s.now().UTC()))...)
	}

	result.Summary = summarizeRankings(result.Keywords)
	result.Insights = rankingInsights(result.Keywords, result.Summary)
	result.Success = true

	if _, err := store.AppendCapped(s.store, store.RankingsFile, *result, store.MetricsCap); err != nil {
		return s.failRankings(result, "store_rankings", err)
	}
	s.commitRankings(result.Keywords)

	s.recordCheck(&s.rankingCheckAt, result.Timestamp, len(result.Alerts))
	timer.End()
	s.log.Info("Ranking check completed", result.Summary)
	return result, nil
}

func (s *Service) failRankings(result *models.RankingResult, step string, err error) (*models.RankingResult, error) {
	s.log.Error("Ranking check failed", map[string]any{"step": step, "error": err.Error()})
	result.Success = false
	result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, step, err, s.now().UTC()))
	return result, fmt.Errorf("ranking check failed at %s: %w", step, err)
}

// AnalyzeTraffic collects the period's traffic, compares it with the previous
// snapshot and saves it to the traffic history
func (s *Service) AnalyzeTraffic(ctx context.Context) (*models.TrafficResult, error) {
	timer := s.log.StartTimer("traffic analysis")
	s.log.Info("Starting traffic analysis")

	now := s.now().UTC()
	result := &models.TrafficResult{
		Timestamp: now,
		Period: models.Period{
			Start: now.AddDate(0, 0, -30).Format("2006-01-02"),
			End:   now.Format("2006-01-02"),
		},
		Alerts: []models.Alert{},
		Errors: []models.StepError{},
	}

	fail := func(step string, err error) (*models.TrafficResult, error) {
		s.log.Error("Traffic analysis failed", map[string]any{"step": step, "error": err.Error()})
		result.Success = false
		result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, step, err, s.now().UTC()))
		return result, fmt.Errorf("traffic analysis failed at %s: %w", step, err)
	}

	metrics, err := s.analytics.TrafficMetrics(ctx)
	if err != nil {
		return fail("traffic_metrics", err)
	}
	segments, err := s.analytics.TrafficSegments(ctx)
	if err != nil {
		return fail("traffic_segments", err)
	}

	s.mu.RLock()
	previous := s.lastTraffic
	if metrics.ConversionRate == 0 && s.lastConversions != nil {
		metrics.ConversionRate = s.lastConversions.ConversionRate
	}
	s.mu.RUnlock()

	result.Metrics = metrics
	result.Segments = segments
	result.Trends = trafficTrends(previous, metrics)
	if previous != nil {
		result.Alerts = append(result.Alerts, s.stamp(TrafficAnomalies(previous.Sessions, metrics.Sessions, s.cfg.AlertThreshold, now))...)
	}
	result.Success = true

	if _, err := store.AppendCapped(s.store, store.TrafficFile, *result, store.MetricsCap); err != nil {
		return fail("store_traffic", err)
	}

	s.mu.Lock()
	s.lastTraffic = &metrics
	s.mu.Unlock()
	s.recordCheck(&s.trafficCheckAt, now, len(result.Alerts))

	timer.End()
	s.log.Info("Traffic analysis completed", map[string]any{"sessions": metrics.Sessions, "alerts": len(result.Alerts)})
	return result, nil
}

// MonitorConversions aggregates goal conversions and funnels and alerts on
// a drop of more than 20% against the previous period
func (s *Service) MonitorConversions(ctx context.Context) (*models.ConversionResult, error) {
	timer := s.log.StartTimer("conversion monitoring")
	s.log.Info("Starting conversion monitoring")

	now := s.now().UTC()
	result := &models.ConversionResult{
		Timestamp: now,
		Goals:     []models.Goal{},
		Funnels:   []models.Funnel{},
		Alerts:    []models.Alert{},
		Errors:    []models.StepError{},
	}

	fail := func(step string, err error) (*models.ConversionResult, error) {
		s.log.Error("Conversion monitoring failed", map[string]any{"step": step, "error": err.Error()})
		result.Success = false
		result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, step, err, s.now().UTC()))
		return result, fmt.Errorf("conversion monitoring failed at %s: %w", step, err)
	}

	goals, err := s.analytics.Goals(ctx)
	if err != nil {
		return fail("goal_conversions", err)
	}
	funnels, err := s.analytics.Funnels(ctx)
	if err != nil {
		return fail("conversion_funnels", err)
	}

	s.mu.RLock()
	previous := s.lastConversions
	s.mu.RUnlock()

	result.Goals = goals
	result.Funnels = funnels
	result.Summary = summarizeConversions(goals, previous)
	result.Alerts = append(result.Alerts, s.stamp(ConversionAlerts(result.Summary, now))...)
	result.Success = true

	if _, err := store.AppendCapped(s.store, store.ConversionsFile, *result, store.MetricsCap); err != nil {
		return fail("store_conversions", err)
	}

	summary := result.Summary
	s.mu.Lock()
	s.lastConversions = &summary
	s.mu.Unlock()
	s.recordCheck(&s.convCheckAt, now, len(result.Alerts))

	timer.End()
	s.log.Info("Conversion monitoring completed", result.Summary)
	return result, nil
}

// FullAnalysis runs the three checks concurrently, then correlates them,
// derives recommendations and merges their alerts. If any check fails the
// partial results are returned with the combined error and nothing is
// written to the full analysis history.
func (s *Service) FullAnalysis(ctx context.Context) (*models.FullAnalysisResult, error) {
	timer := s.log.StartTimer("full analysis")
	s.log.Info("Starting full performance analysis")

	result := &models.FullAnalysisResult{
		Timestamp:       s.now().UTC(),
		Recommendations: []models.Recommendation{},
		Alerts:          []models.Alert{},
		Errors:          []models.StepError{},
	}

	var (
		wg               conc.WaitGroup
		rErr, tErr, cErr error
	)
	wg.Go(func() { result.Rankings, rErr = s.CheckRankings(ctx) })
	wg.Go(func() { result.Traffic, tErr = s.AnalyzeTraffic(ctx) })
	wg.Go(func() { result.Conversions, cErr = s.MonitorConversions(ctx) })
	wg.Wait()

	steps := []struct {
		name string
		err  error
	}{{"rankings", rErr}, {"traffic", tErr}, {"conversions", cErr}}
	for _, st := range steps {
		if st.err != nil {
			result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, st.name, st.err, s.now().UTC()))
		}
	}
	if err := multierr.Combine(rErr, tErr, cErr); err != nil {
		s.log.Error("Full analysis failed", err)
		return result, fmt.Errorf("full analysis failed: %w", err)
	}

	result.Correlations = s.correlations(result.Traffic)
	result.Recommendations = Recommendations(result.Rankings.Summary, result.Traffic.Metrics, result.Conversions.Summary)
	result.Alerts = append(result.Alerts, result.Rankings.Alerts...)
	result.Alerts = append(result.Alerts, result.Traffic.Alerts...)
	result.Alerts = append(result.Alerts, result.Conversions.Alerts...)
	result.Success = true

	if _, err := store.AppendCapped(s.store, store.FullAnalysisFile, *result, store.MetricsCap); err != nil {
		s.log.Error("Full analysis failed", err)
		result.Success = false
		result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, "store_analysis", err, s.now().UTC()))
		return result, fmt.Errorf("full analysis failed at store_analysis: %w", err)
	}

	timer.End()
	s.log.Info("Full analysis completed", map[string]any{
		"alerts":          len(result.Alerts),
		"recommendations": len(result.Recommendations),
	})
	return result, nil
}

// correlations relates ranking strength to organic sessions and sessions to
// conversions across the stored history
func (s *Service) correlations(traffic *models.TrafficResult) models.Correlations {
	c := models.Correlations{OrganicTrafficShare: traffic.Metrics.OrganicPercentage}

	rankings, err := store.Tail[models.RankingResult](s.store, store.RankingsFile, s.cfg.HistorySize)
	if err != nil {
		s.log.Warn("Could not read ranking history", err)
		return c
	}
	trafficHist, err := store.Tail[models.TrafficResult](s.store, store.TrafficFile, s.cfg.HistorySize)
	if err != nil {
		s.log.Warn("Could not read traffic history", err)
		return c
	}
	conversions, err := store.Tail[models.ConversionResult](s.store, store.ConversionsFile, s.cfg.HistorySize)
	if err != nil {
		s.log.Warn("Could not read conversion history", err)
		return c
	}

	// lower positions are better, so rank strength is the negated average
	strength := make([]float64, len(rankings))
	for i, r := range rankings {
		strength[i] = -r.Summary.AveragePosition
	}
	organic := make([]float64, len(trafficHist))
	sessions := make([]float64, len(trafficHist))
	for i, t := range trafficHist {
		organic[i] = float64(t.Metrics.OrganicSessions)
		sessions[i] = float64(t.Metrics.Sessions)
	}
	converted := make([]float64, len(conversions))
	for i, cv := range conversions {
		converted[i] = float64(cv.Summary.TotalConversions)
	}

	c.RankingTrafficCorrelation = pearson(strength, organic)
	c.TrafficConversionCorrelation = pearson(sessions, converted)
	return c
}

func (s *Service) stamp(alerts []models.Alert) []models.Alert {
	for i := range alerts {
		alerts[i].Website = s.domain
	}
	return alerts
}

func (s *Service) recordCheck(at **time.Time, ts time.Time, alerts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	*at = &ts
	s.activeAlerts += alerts
}

// HealthCheck reports providers and the previous values held in memory
func (s *Service) HealthCheck() Health {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := Health{
		Status:     "healthy",
		Providers:  ProviderHealth{Rankings: s.rankings.Name(), Analytics: s.analytics.Name()},
		DataPoints: DataPoints{Rankings: len(s.lastRankings)},
	}
	if s.lastTraffic != nil {
		h.DataPoints.Traffic = 1
	}
	if s.lastConversions != nil {
		h.DataPoints.Conversions = 1
	}
	return h
}

// Status reports when each check last completed
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		MonitoringActive:    s.cfg.Enabled,
		LastRankingCheck:    s.rankingCheckAt,
		LastTrafficAnalysis: s.trafficCheckAt,
		LastConversionCheck: s.convCheckAt,
		TrackedKeywords:     len(s.lastRankings),
		ActiveAlerts:        s.activeAlerts,
	}
}

// Shutdown releases the service
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down Performance Monitoring Service")
	return nil
}
