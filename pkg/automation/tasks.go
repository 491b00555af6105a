package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/content"
	"github.com/amosWeiskopf/seoautomation/pkg/metrics"
	"github.com/amosWeiskopf/seoautomation/pkg/notifier"
)

// Alert type raised when an audit finds critical issues
const alertTechnicalIssues = "technical_issues"

func observeTask(task string, began time.Time, err error) {
	metrics.ObserveTask(task, began, err)
}

func recordAlerts(alerts []models.Alert) {
	metrics.RecordAlerts(alerts)
}

func recordDeliveryFailure(channel string) {
	metrics.AlertDeliveryFailures.WithLabelValues(channel).Inc()
}

func (o *Orchestrator) runContentUpdate(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Content.PerformUpdate(ctx, content.Options{})
	if result != nil {
		for _, u := range result.Updates {
			metrics.ContentUpdates.WithLabelValues(string(u.Type)).Add(float64(u.Count))
		}
	}
	return result, nil, err
}

func (o *Orchestrator) runSearchNotification(ctx context.Context) (any, []models.Alert, error) {
	return o.Notify(ctx, nil)
}

// Notify runs the search engine notification with explicit URLs, or with
// recently updated pages when urls is empty
func (o *Orchestrator) Notify(ctx context.Context, urls []string) (*models.NotificationResult, []models.Alert, error) {
	result, err := o.Notifier.NotifySearchEngines(ctx, notifier.Options{URLs: urls})
	if result != nil && result.Summary.URLsSubmitted > 0 {
		metrics.URLsSubmitted.WithLabelValues("indexnow").Add(float64(result.Summary.URLsSubmitted))
	}
	return result, nil, err
}

func (o *Orchestrator) runRankingCheck(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Monitor.CheckRankings(ctx)
	if result == nil {
		return nil, nil, err
	}
	metrics.RecordRankings(result.Keywords)
	return result, result.Alerts, err
}

func (o *Orchestrator) runTrafficAnalysis(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Monitor.AnalyzeTraffic(ctx)
	if result == nil {
		return nil, nil, err
	}
	if result.Success {
		metrics.OrganicSessions.Set(float64(result.Metrics.OrganicSessions))
	}
	return result, result.Alerts, err
}

func (o *Orchestrator) runConversionMonitoring(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Monitor.MonitorConversions(ctx)
	if result == nil {
		return nil, nil, err
	}
	if result.Success {
		metrics.ConversionRate.Set(result.Summary.ConversionRate)
	}
	return result, result.Alerts, err
}

func (o *Orchestrator) runPerformanceCheck(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Monitor.FullAnalysis(ctx)
	if result == nil {
		return nil, nil, err
	}
	if result.Rankings != nil {
		metrics.RecordRankings(result.Rankings.Keywords)
	}
	if result.Traffic != nil && result.Traffic.Success {
		metrics.OrganicSessions.Set(float64(result.Traffic.Metrics.OrganicSessions))
	}
	if result.Conversions != nil && result.Conversions.Success {
		metrics.ConversionRate.Set(result.Conversions.Summary.ConversionRate)
	}
	return result, result.Alerts, err
}

// runTechnicalAudit scores the site's pages, saves the audit and raises an
// alert when it finds critical issues
func (o *Orchestrator) runTechnicalAudit(ctx context.Context) (any, []models.Alert, error) {
	pages, err := o.pages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load pages: %w", err)
	}

	audit, err := o.Analyzer.Run(ctx, pages)
	if audit == nil {
		return nil, nil, err
	}
	metrics.TechnicalScore.Set(audit.OverallScore)

	var alerts []models.Alert
	if n := audit.Summary.CriticalIssues; n > 0 {
		alerts = append(alerts, models.Alert{
			Type:     alertTechnicalIssues,
			Severity: models.SeverityHigh,
			Message:  fmt.Sprintf("Technical audit found %d critical issues", n),
			Details: map[string]string{
				"overallScore": fmt.Sprintf("%.1f", audit.OverallScore),
				"pagesAudited": fmt.Sprintf("%d", audit.PagesAudited),
			},
			Timestamp: audit.Timestamp,
		})
	}
	return audit, alerts, err
}

func (o *Orchestrator) runGenerateReport(ctx context.Context) (any, []models.Alert, error) {
	result, err := o.Reporter.GenerateWeeklyReport(ctx)
	return result, nil, err
}
