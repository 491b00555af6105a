package monitor

import (
	"fmt"
	"math"
	"time"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

const (
	rankingDropLimit    = -5
	firstPageLimit      = 10
	conversionDropLimit = -20.0
	highBounceRate      = 0.6
	lowConversionRate   = 0.02
)

// RankingAlerts flags a drop of more than five positions and a fall off the
// first page of results
func RankingAlerts(r models.RankingData, now time.Time) []models.Alert {
	var alerts []models.Alert

	if r.Change < rankingDropLimit {
		alerts = append(alerts, models.Alert{
			Type:            models.AlertRankingDrop,
			Severity:        models.SeverityHigh,
			Keyword:         r.Keyword,
			Message:         fmt.Sprintf("Ranking dropped by %d positions", -r.Change),
			Change:          float64(r.Change),
			CurrentPosition: r.CurrentPosition,
			Timestamp:       now,
		})
	}

	if r.PreviousPosition != nil && *r.PreviousPosition <= firstPageLimit && r.CurrentPosition > firstPageLimit {
		alerts = append(alerts, models.Alert{
			Type:            models.AlertFirstPageLoss,
			Severity:        models.SeverityHigh,
			Keyword:         r.Keyword,
			Message:         "Keyword fell out of first page",
			Change:          float64(r.Change),
			CurrentPosition: r.CurrentPosition,
			Timestamp:       now,
		})
	}

	return alerts
}

// TrafficAnomalies compares session counts against the previous snapshot.
// A change beyond threshold percent raises a medium alert, beyond twice the
// threshold a high one. No previous sessions means nothing to compare.
func TrafficAnomalies(previous, current int, threshold float64, now time.Time) []models.Alert {
	if previous <= 0 {
		return nil
	}

	change := utils.PercentChange(float64(previous), float64(current))
	if math.Abs(change) <= threshold {
		return nil
	}

	severity := models.SeverityMedium
	if math.Abs(change) > threshold*2 {
		severity = models.SeverityHigh
	}
	direction := "increased"
	if change < 0 {
		direction = "decreased"
	}

	return []models.Alert{{
		Type:      models.AlertTrafficAnomaly,
		Severity:  severity,
		Message:   fmt.Sprintf("Traffic %s by %.1f%%", direction, math.Abs(change)),
		Change:    utils.Round(change, 2),
		Details:   map[string]string{"previousSessions": fmt.Sprint(previous), "currentSessions": fmt.Sprint(current)},
		Timestamp: now,
	}}
}

// ConversionAlerts flags a period-over-period conversion drop beyond 20%
func ConversionAlerts(summary models.ConversionSummary, now time.Time) []models.Alert {
	if summary.ChangeFromPrevious >= conversionDropLimit {
		return nil
	}
	return []models.Alert{{
		Type:      models.AlertConversionDrop,
		Severity:  models.SeverityHigh,
		Message:   fmt.Sprintf("Conversion rate dropped by %.1f%%", math.Abs(summary.ChangeFromPrevious)),
		Change:    summary.ChangeFromPrevious,
		Timestamp: now,
	}}
}

// Recommendations derives actions from the combined results
func Recommendations(rankings models.RankingSummary, traffic models.TrafficMetrics, conversions models.ConversionSummary) []models.Recommendation {
	recs := []models.Recommendation{}

	if rankings.Declined > rankings.Improved {
		recs = append(recs, models.Recommendation{
			Type:        "seo_optimization",
			Priority:    "high",
			Title:       "Improve declining keyword rankings",
			Description: "Focus on optimizing pages for keywords that have declined in rankings",
			Action:      "content_optimization",
		})
	}

	if traffic.BounceRate > highBounceRate {
		recs = append(recs, models.Recommendation{
			Type:        "user_experience",
			Priority:    "medium",
			Title:       "Reduce bounce rate",
			Description: "High bounce rate indicates potential UX issues",
			Action:      "page_optimization",
		})
	}

	if conversions.ConversionRate < lowConversionRate {
		recs = append(recs, models.Recommendation{
			Type:        "conversion_optimization",
			Priority:    "high",
			Title:       "Improve conversion rate",
			Description: "Low conversion rate suggests optimization opportunities",
			Action:      "cro_analysis",
		})
	}

	return recs
}

// summarizeRankings counts movement, first-page keywords and the average position
func summarizeRankings(keywords []models.RankingData) models.RankingSummary {
	var sum models.RankingSummary
	total := 0
	for _, k := range keywords {
		sum.TotalKeywords++
		switch {
		case k.Change > 0:
			sum.Improved++
		case k.Change < 0:
			sum.Declined++
		default:
			sum.Stable++
		}
		if k.PreviousPosition == nil {
			sum.NewRankings++
		}
		if k.CurrentPosition <= firstPageLimit {
			sum.FirstPage++
		}
		total += k.CurrentPosition
	}
	if sum.TotalKeywords > 0 {
		sum.AveragePosition = utils.Round(float64(total)/float64(sum.TotalKeywords), 1)
	}
	return sum
}

// rankingInsights turns the summary into short sentences for the report
func rankingInsights(keywords []models.RankingData, sum models.RankingSummary) []string {
	if len(keywords) == 0 {
		return []string{}
	}

	insights := []string{
		fmt.Sprintf("%d of %d keywords rank on the first page", sum.FirstPage, sum.TotalKeywords),
		fmt.Sprintf("Average position is %.1f", sum.AveragePosition),
	}

	best, worst := keywords[0], keywords[0]
	for _, k := range keywords[1:] {
		if k.Change > best.Change {
			best = k
		}
		if k.Change < worst.Change {
			worst = k
		}
	}
	if best.Change > 0 {
		insights = append(insights, fmt.Sprintf("Biggest gain: %q moved up %d positions to #%d", best.Keyword, best.Change, best.CurrentPosition))
	}
	if worst.Change < 0 {
		insights = append(insights, fmt.Sprintf("Biggest loss: %q moved down %d positions to #%d", worst.Keyword, -worst.Change, worst.CurrentPosition))
	}
	return insights
}

// summarizeConversions totals the goals. The rate is the mean goal rate and
// the change is measured against the previous rate when there is one, else
// it is the completion-weighted mean of the goals' own changes.
func summarizeConversions(goals []models.Goal, previous *models.ConversionSummary) models.ConversionSummary {
	var sum models.ConversionSummary
	if len(goals) == 0 {
		return sum
	}

	var rate, weighted float64
	for _, g := range goals {
		sum.TotalConversions += g.Completions
		sum.Revenue += g.Value
		rate += g.ConversionRate
		weighted += g.Change * float64(g.Completions)
	}
	sum.ConversionRate = utils.Round(rate/float64(len(goals)), 4)

	switch {
	case previous != nil && previous.ConversionRate > 0:
		sum.ChangeFromPrevious = utils.Round(utils.PercentChange(previous.ConversionRate, sum.ConversionRate), 1)
	case sum.TotalConversions > 0:
		sum.ChangeFromPrevious = utils.Round(weighted/float64(sum.TotalConversions), 1)
	}
	return sum
}

// trafficTrends compares metrics to the previous snapshot in percent
func trafficTrends(previous *models.TrafficMetrics, current models.TrafficMetrics) models.TrafficTrends {
	if previous == nil {
		return models.TrafficTrends{}
	}
	return models.TrafficTrends{
		SessionsGrowth:          utils.Round(utils.PercentChange(float64(previous.Sessions), float64(current.Sessions)), 1),
		OrganicGrowth:           utils.Round(utils.PercentChange(float64(previous.OrganicSessions), float64(current.OrganicSessions)), 1),
		BounceRateTrend:         utils.Round(utils.PercentChange(previous.BounceRate, current.BounceRate), 1),
		AvgSessionDurationTrend: utils.Round(utils.PercentChange(previous.AvgSessionDuration, current.AvgSessionDuration), 1),
	}
}

// pearson returns the correlation coefficient of xs and ys, or 0 with fewer
// than three points or no variance
func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if n < 3 {
		return 0
	}
	xs, ys = xs[len(xs)-n:], ys[len(ys)-n:]

	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return utils.Round(cov/math.Sqrt(vx*vy), 2)
}
