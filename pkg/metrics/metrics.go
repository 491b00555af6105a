package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amosWeiskopf/seoautomation/internal/models"
)

var (
	// HTTP request metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_http_requests_total",
			Help: "Total number of dashboard HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seo_http_request_duration_seconds",
			Help:    "Dashboard HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Task metrics
	TaskRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_task_runs_total",
			Help: "Total number of automation task runs",
		},
		[]string{"task", "status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seo_task_duration_seconds",
			Help:    "Automation task duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"task"},
	)

	TaskLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seo_task_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run of each task",
		},
		[]string{"task"},
	)

	// Alert metrics
	AlertsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_alerts_total",
			Help: "Total number of alerts raised",
		},
		[]string{"type", "severity"},
	)

	AlertDeliveryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_alert_delivery_failures_total",
			Help: "Alert deliveries that failed per channel",
		},
		[]string{"channel"},
	)

	// Business metrics
	KeywordPosition = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seo_keyword_position",
			Help: "Latest search position of each tracked keyword",
		},
		[]string{"keyword"},
	)

	OrganicSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seo_organic_sessions",
			Help: "Organic sessions in the latest traffic period",
		},
	)

	ConversionRate = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seo_conversion_rate",
			Help: "Mean goal conversion rate in the latest period",
		},
	)

	TechnicalScore = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "seo_technical_score",
			Help: "Overall score of the latest technical audit",
		},
	)

	URLsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_urls_submitted_total",
			Help: "URLs submitted to search engines",
		},
		[]string{"engine"},
	)

	ContentUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seo_content_updates_total",
			Help: "Content updates applied per update type",
		},
		[]string{"type"},
	)

	// Application health metrics
	ApplicationInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "seo_application_info",
			Help: "Application information",
		},
		[]string{"service", "version", "domain"},
	)
)

// Init sets the application info gauge
func Init(serviceName, version, domain string) {
	ApplicationInfo.WithLabelValues(serviceName, version, domain).Set(1)
}

// ObserveTask records one task run that started at start
func ObserveTask(task string, start time.Time, err error) {
	TaskDuration.WithLabelValues(task).Observe(time.Since(start).Seconds())
	status := "success"
	if err != nil {
		status = "failure"
	}
	TaskRunsTotal.WithLabelValues(task, status).Inc()
	if err == nil {
		TaskLastSuccess.WithLabelValues(task).Set(float64(time.Now().Unix()))
	}
}

// RecordAlerts counts alerts by type and severity
func RecordAlerts(alerts []models.Alert) {
	for _, a := range alerts {
		AlertsTotal.WithLabelValues(a.Type, string(a.Severity)).Inc()
	}
}

// RecordRankings sets the position gauge for each checked keyword
func RecordRankings(rankings []models.RankingData) {
	for _, r := range rankings {
		KeywordPosition.WithLabelValues(r.Keyword).Set(float64(r.CurrentPosition))
	}
}
