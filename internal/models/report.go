package models

import "time"

// Health values for ExecutiveSummary.OverallHealth
const (
	HealthGood           = "good"
	HealthNeedsAttention = "needs_attention"
)

// ExecutiveSummary condenses the weekly sections into a health verdict
type ExecutiveSummary struct {
	OverallHealth   string     `json:"overallHealth"`
	KeyMetrics      KeyMetrics `json:"keyMetrics"`
	Highlights      []string   `json:"highlights"`
	Concerns        []string   `json:"concerns"`
	Recommendations []string   `json:"recommendations"`
}

// KeyMetrics are the headline numbers of a report
type KeyMetrics struct {
	RankingChange  int     `json:"rankingChange"`
	OrganicTraffic int     `json:"organicTraffic"`
	ConversionRate float64 `json:"conversionRate"`
	TechnicalScore float64 `json:"technicalScore"`
}

// AuditSummary counts technical checks by outcome
type AuditSummary struct {
	CriticalIssues int `json:"criticalIssues"`
	WarningIssues  int `json:"warningIssues"`
	PassedChecks   int `json:"passedChecks"`
}

// CategoryScore is one technical audit category
type CategoryScore struct {
	Score  float64   `json:"score"`
	Status string    `json:"status"`
	Issues []Finding `json:"issues,omitempty"`
}

// TechnicalAudit is appended to technical-audit.json
type TechnicalAudit struct {
	Timestamp       time.Time                `json:"timestamp"`
	Domain          string                   `json:"domain,omitempty"`
	PagesAudited    int                      `json:"pagesAudited"`
	OverallScore    float64                  `json:"overallScore"`
	Summary         AuditSummary             `json:"summary"`
	Categories      map[string]CategoryScore `json:"categories"`
	Findings        []Finding                `json:"findings,omitempty"`
	Recommendations []Recommendation         `json:"recommendations,omitempty"`
}

// ReportSections bundles the most recent monitoring snapshots
type ReportSections struct {
	Rankings    *RankingResult    `json:"rankings,omitempty"`
	Traffic     *TrafficResult    `json:"traffic,omitempty"`
	Conversions *ConversionResult `json:"conversions,omitempty"`
	Technical   *TechnicalAudit   `json:"technical,omitempty"`
}

// ChartSeries is a renderable data series
type ChartSeries struct {
	Type   string    `json:"type"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

// Charts holds the series embedded in a report
type Charts struct {
	RankingsTrend *ChartSeries `json:"rankingsTrend,omitempty"`
	TrafficTrend  *ChartSeries `json:"trafficTrend,omitempty"`
	Categories    *ChartSeries `json:"categories,omitempty"`
}

// ReportData is the payload rendered into a report
type ReportData struct {
	Type      string           `json:"type"`
	Period    Period           `json:"period"`
	Timestamp time.Time        `json:"timestamp"`
	Website   string           `json:"website"`
	Summary   ExecutiveSummary `json:"summary"`
	Sections  ReportSections   `json:"sections"`
	Charts    Charts           `json:"charts"`
}

// ReportResult describes a generated report
type ReportResult struct {
	Success    bool        `json:"success"`
	ReportData *ReportData `json:"reportData,omitempty"`
	Format     string      `json:"format,omitempty"`
	Report     []byte      `json:"-"`
	HTMLPath   string      `json:"htmlPath,omitempty"`
	PDFPath    string      `json:"pdfPath,omitempty"`
	DataPath   string      `json:"dataPath,omitempty"`
	Emailed    bool        `json:"emailed"`
	Errors     []StepError `json:"errors,omitempty"`
}

// AlertResult describes a dispatched alert
type AlertResult struct {
	Success  bool        `json:"success"`
	Alert    Alert       `json:"alert"`
	Emailed  bool        `json:"emailed"`
	Webhook  bool        `json:"webhook"`
	Streamed bool        `json:"streamed"`
	Errors   []StepError `json:"errors,omitempty"`
}
