package reporter

import (
	"fmt"
	"math"
	"sort"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

const (
	organicGrowthLimit = 10.0
	highBounceRate     = 0.6
	chartPoints        = 12
)

// GenerateExecutiveSummary condenses the report sections into a health
// verdict. Health needs attention when more keywords declined than improved,
// organic traffic fell more than 10%, or the audit found critical issues.
func GenerateExecutiveSummary(sections models.ReportSections) models.ExecutiveSummary {
	summary := models.ExecutiveSummary{
		OverallHealth:   models.HealthGood,
		Highlights:      []string{},
		Concerns:        []string{},
		Recommendations: []string{},
	}

	if r := sections.Rankings; r != nil {
		change := r.Summary.Improved - r.Summary.Declined
		summary.KeyMetrics.RankingChange = change
		switch {
		case change > 0:
			summary.Highlights = append(summary.Highlights, fmt.Sprintf("Improved rankings for %d keywords", r.Summary.Improved))
		case r.Summary.Declined > r.Summary.Improved:
			summary.Concerns = append(summary.Concerns, fmt.Sprintf("Declined rankings for %d keywords", r.Summary.Declined))
			summary.OverallHealth = models.HealthNeedsAttention
		}
	}

	if t := sections.Traffic; t != nil {
		summary.KeyMetrics.OrganicTraffic = t.Metrics.OrganicSessions
		summary.KeyMetrics.ConversionRate = t.Metrics.ConversionRate
		growth := t.Trends.OrganicGrowth
		switch {
		case growth > organicGrowthLimit:
			summary.Highlights = append(summary.Highlights, fmt.Sprintf("Organic traffic increased by %.1f%%", growth))
		case growth < -organicGrowthLimit:
			summary.Concerns = append(summary.Concerns, fmt.Sprintf("Organic traffic declined by %.1f%%", math.Abs(growth)))
			summary.OverallHealth = models.HealthNeedsAttention
		}
	}

	if c := sections.Conversions; c != nil && c.Summary.TotalConversions > 0 {
		summary.KeyMetrics.ConversionRate = c.Summary.ConversionRate
		if c.Summary.ChangeFromPrevious > 0 {
			summary.Highlights = append(summary.Highlights, fmt.Sprintf("Conversions up %.1f%% on the previous period", c.Summary.ChangeFromPrevious))
		}
	}

	if tech := sections.Technical; tech != nil {
		summary.KeyMetrics.TechnicalScore = tech.OverallScore
		if tech.Summary.CriticalIssues > 0 {
			summary.Concerns = append(summary.Concerns, fmt.Sprintf("%d critical technical issues found", tech.Summary.CriticalIssues))
			summary.OverallHealth = models.HealthNeedsAttention
		}
	}

	if len(summary.Concerns) > 0 {
		summary.Recommendations = append(summary.Recommendations, "Focus on addressing identified technical and ranking issues")
	}
	if sections.Traffic != nil && sections.Traffic.Metrics.BounceRate > highBounceRate {
		summary.Recommendations = append(summary.Recommendations, "Improve page content and user experience to reduce bounce rate")
	}

	return summary
}

// rankingsChart plots the average position of each stored ranking check
func rankingsChart(history []models.RankingResult) *models.ChartSeries {
	if len(history) == 0 {
		return nil
	}
	c := &models.ChartSeries{Type: "line", Title: "Average keyword position"}
	for _, h := range history {
		c.Labels = append(c.Labels, h.Timestamp.Format("2006-01-02"))
		c.Values = append(c.Values, h.Summary.AveragePosition)
	}
	return c
}

// trafficChart plots organic sessions per stored traffic snapshot
func trafficChart(history []models.TrafficResult) *models.ChartSeries {
	if len(history) == 0 {
		return nil
	}
	c := &models.ChartSeries{Type: "bar", Title: "Organic sessions"}
	for _, h := range history {
		c.Labels = append(c.Labels, h.Timestamp.Format("2006-01-02"))
		c.Values = append(c.Values, float64(h.Metrics.OrganicSessions))
	}
	return c
}

// categoryChart shows the latest audit's category scores
func categoryChart(audit *models.TechnicalAudit) *models.ChartSeries {
	if audit == nil || len(audit.Categories) == 0 {
		return nil
	}
	c := &models.ChartSeries{Type: "gauge", Title: "Technical category scores"}
	for _, name := range sortedCategories(audit) {
		c.Labels = append(c.Labels, name)
		c.Values = append(c.Values, utils.Round(audit.Categories[name].Score, 1))
	}
	return c
}

func sortedCategories(audit *models.TechnicalAudit) []string {
	names := make([]string, 0, len(audit.Categories))
	for name := range audit.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
