package models

import "time"

// Severity ranks alerts
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert types raised by threshold checks
const (
	AlertRankingDrop    = "ranking_drop"
	AlertFirstPageLoss  = "first_page_loss"
	AlertTrafficAnomaly = "traffic_anomaly"
	AlertConversionDrop = "conversion_drop"
)

// Alert is a threshold breach worth notifying someone about
type Alert struct {
	ID              string            `json:"id,omitempty"`
	Type            string            `json:"type"`
	Severity        Severity          `json:"severity"`
	Message         string            `json:"message"`
	Keyword         string            `json:"keyword,omitempty"`
	Change          float64           `json:"change,omitempty"`
	CurrentPosition int               `json:"currentPosition,omitempty"`
	Website         string            `json:"website,omitempty"`
	Details         map[string]string `json:"details,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Period is an inclusive date range formatted as YYYY-MM-DD
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// RankingData is one keyword position observation.
// Change is PreviousPosition - CurrentPosition, so positive means improved.
type RankingData struct {
	Keyword          string    `json:"keyword"`
	CurrentPosition  int       `json:"currentPosition"`
	PreviousPosition *int      `json:"previousPosition"`
	Change           int       `json:"change"`
	URL              string    `json:"url"`
	SearchVolume     int       `json:"searchVolume"`
	Difficulty       int       `json:"difficulty"`
	Timestamp        time.Time `json:"timestamp"`
}

// RankingSummary counts keywords by direction of movement
type RankingSummary struct {
	TotalKeywords   int     `json:"totalKeywords"`
	Improved        int     `json:"improved"`
	Declined        int     `json:"declined"`
	Stable          int     `json:"stable"`
	NewRankings     int     `json:"newRankings"`
	FirstPage       int     `json:"firstPage"`
	AveragePosition float64 `json:"averagePosition"`
}

// RankingResult is appended to rankings.json
type RankingResult struct {
	Timestamp time.Time      `json:"timestamp"`
	Keywords  []RankingData  `json:"keywords"`
	Summary   RankingSummary `json:"summary"`
	Alerts    []Alert        `json:"alerts"`
	Insights  []string       `json:"insights,omitempty"`
	Errors    []StepError    `json:"errors,omitempty"`
	Success   bool           `json:"success"`
}

// TrafficMetrics are site-wide aggregates for the period
type TrafficMetrics struct {
	Sessions           int     `json:"sessions"`
	Users              int     `json:"users"`
	Pageviews          int     `json:"pageviews"`
	BounceRate         float64 `json:"bounceRate"`
	AvgSessionDuration float64 `json:"avgSessionDuration"`
	OrganicSessions    int     `json:"organicSessions"`
	OrganicPercentage  float64 `json:"organicPercentage"`
	ConversionRate     float64 `json:"conversionRate"`
}

// SegmentShare is a named slice of sessions
type SegmentShare struct {
	Name       string  `json:"name"`
	Sessions   int     `json:"sessions"`
	Percentage float64 `json:"percentage"`
}

// PageTraffic is per-page engagement
type PageTraffic struct {
	Page          string  `json:"page"`
	Pageviews     int     `json:"pageviews"`
	UniqueViews   int     `json:"uniqueViews"`
	AvgTimeOnPage float64 `json:"avgTimeOnPage"`
	BounceRate    float64 `json:"bounceRate,omitempty"`
}

// TrafficSegments breaks sessions down by dimension
type TrafficSegments struct {
	Sources    []SegmentShare `json:"sources"`
	Pages      []PageTraffic  `json:"pages"`
	Devices    []SegmentShare `json:"devices"`
	Geographic []SegmentShare `json:"geographic"`
}

// TrafficTrends are period-over-period changes in percent
type TrafficTrends struct {
	SessionsGrowth          float64 `json:"sessionsGrowth"`
	OrganicGrowth           float64 `json:"organicGrowth"`
	BounceRateTrend         float64 `json:"bounceRateTrend"`
	AvgSessionDurationTrend float64 `json:"avgSessionDurationTrend"`
}

// TrafficResult is appended to traffic.json
type TrafficResult struct {
	Timestamp time.Time       `json:"timestamp"`
	Period    Period          `json:"period"`
	Metrics   TrafficMetrics  `json:"metrics"`
	Segments  TrafficSegments `json:"segments"`
	Trends    TrafficTrends   `json:"trends"`
	Alerts    []Alert         `json:"alerts"`
	Errors    []StepError     `json:"errors,omitempty"`
	Success   bool            `json:"success"`
}

// Goal is a tracked conversion goal
type Goal struct {
	Name           string  `json:"name"`
	Completions    int     `json:"completions"`
	ConversionRate float64 `json:"conversionRate"`
	Value          float64 `json:"value"`
	Change         float64 `json:"change"`
}

// FunnelStep is one stage of a conversion funnel
type FunnelStep struct {
	Name  string `json:"name"`
	Users int    `json:"users"`
}

// Funnel is an ordered set of steps
type Funnel struct {
	Name           string       `json:"name"`
	Steps          []FunnelStep `json:"steps"`
	ConversionRate float64      `json:"conversionRate"`
}

// ConversionSummary aggregates goal data
type ConversionSummary struct {
	TotalConversions   int     `json:"totalConversions"`
	ConversionRate     float64 `json:"conversionRate"`
	Revenue            float64 `json:"revenue"`
	ChangeFromPrevious float64 `json:"changeFromPrevious"`
}

// ConversionResult is appended to conversions.json
type ConversionResult struct {
	Timestamp time.Time         `json:"timestamp"`
	Goals     []Goal            `json:"goals"`
	Funnels   []Funnel          `json:"funnels"`
	Summary   ConversionSummary `json:"summary"`
	Alerts    []Alert           `json:"alerts"`
	Errors    []StepError       `json:"errors,omitempty"`
	Success   bool              `json:"success"`
}

// Correlations relate the three monitored signals
type Correlations struct {
	RankingTrafficCorrelation    float64 `json:"rankingTrafficCorrelation"`
	TrafficConversionCorrelation float64 `json:"trafficConversionCorrelation"`
	OrganicTrafficShare          float64 `json:"organicTrafficShare"`
}

// FullAnalysisResult is appended to full-analysis.json
type FullAnalysisResult struct {
	Timestamp       time.Time         `json:"timestamp"`
	Rankings        *RankingResult    `json:"rankings"`
	Traffic         *TrafficResult    `json:"traffic"`
	Conversions     *ConversionResult `json:"conversions"`
	Correlations    Correlations      `json:"correlations"`
	Recommendations []Recommendation  `json:"recommendations"`
	Alerts          []Alert           `json:"alerts"`
	Errors          []StepError       `json:"errors,omitempty"`
	Success         bool              `json:"success"`
}
