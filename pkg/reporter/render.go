package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// Report formats
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatXLSX     = "xlsx"
	FormatPDF      = "pdf"
)

const maxTableKeywords = 10

// reportView is what the HTML templates render
type reportView struct {
	*models.ReportData
	GeneratedAt  string
	BaseURL      string
	BusinessName string
	TopKeywords  []models.RankingData
	Categories   []categoryRow
}

type categoryRow struct {
	Name   string
	Score  float64
	Status string
}

func (s *Service) view(data *models.ReportData) reportView {
	v := reportView{
		ReportData:   data,
		GeneratedAt:  data.Timestamp.Format("January 2, 2006"),
		BaseURL:      s.website.BaseURL,
		BusinessName: s.website.BusinessName,
	}
	if r := data.Sections.Rankings; r != nil {
		v.TopKeywords = r.Keywords
		if len(v.TopKeywords) > maxTableKeywords {
			v.TopKeywords = v.TopKeywords[:maxTableKeywords]
		}
	}
	if t := data.Sections.Technical; t != nil {
		for _, name := range sortedCategories(t) {
			c := t.Categories[name]
			v.Categories = append(v.Categories, categoryRow{Name: utils.Humanize(name), Score: utils.Round(c.Score, 1), Status: c.Status})
		}
	}
	return v
}

var templateFuncs = template.FuncMap{
	"health": func(h string) string {
		return strings.ToUpper(strings.ReplaceAll(h, "_", " "))
	},
	"percent": func(v float64) string {
		return fmt.Sprintf("%.2f%%", v*100)
	},
	"signed": func(v int) string {
		if v > 0 {
			return fmt.Sprintf("+%d", v)
		}
		return fmt.Sprint(v)
	},
	"trend": func(v float64) string {
		if v > 0 {
			return fmt.Sprintf("+%.1f%%", v)
		}
		return fmt.Sprintf("%.1f%%", v)
	},
	"changeClass": func(v any) string {
		var f float64
		switch n := v.(type) {
		case int:
			f = float64(n)
		case float64:
			f = n
		}
		switch {
		case f > 0:
			return "positive"
		case f < 0:
			return "negative"
		}
		return "neutral"
	},
}

const defaultTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SEO Report - {{.GeneratedAt}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 1100px;
            margin: 0 auto;
            padding: 20px;
        }
        .header { border-bottom: 2px solid #007cba; padding-bottom: 10px; }
        .card {
            background: white;
            border-radius: 8px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
        }
        .health { font-size: 1.2rem; font-weight: bold; }
        .health.good { color: #2e7d32; }
        .health.needs_attention { color: #ef6c00; }
        .metrics { display: grid; grid-template-columns: repeat(auto-fit, minmax(180px, 1fr)); gap: 1rem; }
        .metric { text-align: center; padding: 1rem; background: #f8f9fa; border-radius: 8px; }
        .metric .value { font-size: 1.6rem; font-weight: bold; color: #007cba; }
        table { width: 100%; border-collapse: collapse; }
        th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        .positive { color: green; }
        .negative { color: red; }
        .neutral { color: gray; }
        .stat { padding: 5px 10px; border-radius: 3px; margin-right: 0.5rem; }
        .critical { background: #ffebee; color: #c62828; }
        .warning { background: #fff3e0; color: #ef6c00; }
        .passed { background: #e8f5e8; color: #2e7d32; }
    </style>
</head>
<body>
    <div class="header">
        <h1>SEO Automation Report{{if .BusinessName}} - {{.BusinessName}}{{end}}</h1>
        <p>Website: {{.BaseURL}} | Period: {{.Period.Start}} to {{.Period.End}}</p>
    </div>

    <div class="card">
        <h2>Executive Summary</h2>
        <p class="health {{.Summary.OverallHealth}}">Overall Health: {{health .Summary.OverallHealth}}</p>
        <div class="metrics">
            <div class="metric"><div class="value">{{signed .Summary.KeyMetrics.RankingChange}}</div>Ranking change</div>
            <div class="metric"><div class="value">{{.Summary.KeyMetrics.OrganicTraffic}}</div>Organic sessions</div>
            <div class="metric"><div class="value">{{percent .Summary.KeyMetrics.ConversionRate}}</div>Conversion rate</div>
            <div class="metric"><div class="value">{{printf "%.0f" .Summary.KeyMetrics.TechnicalScore}}</div>Technical score</div>
        </div>
        {{if .Summary.Highlights}}
        <h3>Highlights</h3>
        <ul>{{range .Summary.Highlights}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
        {{if .Summary.Concerns}}
        <h3>Areas of Concern</h3>
        <ul>{{range .Summary.Concerns}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
        {{if .Summary.Recommendations}}
        <h3>Recommendations</h3>
        <ul>{{range .Summary.Recommendations}}<li>{{.}}</li>{{end}}</ul>
        {{end}}
    </div>

    {{with .Sections.Rankings}}
    <div class="card">
        <h2>Keyword Rankings</h2>
        <p>
            <span class="stat">Improved: {{.Summary.Improved}}</span>
            <span class="stat">Declined: {{.Summary.Declined}}</span>
            <span class="stat">Stable: {{.Summary.Stable}}</span>
        </p>
    </div>
    {{end}}
    {{if .TopKeywords}}
    <div class="card">
        <table>
            <thead><tr><th>Keyword</th><th>Position</th><th>Change</th><th>URL</th></tr></thead>
            <tbody>
            {{range .TopKeywords}}
                <tr>
                    <td>{{.Keyword}}</td>
                    <td>{{.CurrentPosition}}</td>
                    <td class="{{changeClass .Change}}">{{signed .Change}}</td>
                    <td>{{.URL}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}

    {{with .Sections.Traffic}}
    <div class="card">
        <h2>Traffic Analysis</h2>
        <div class="metrics">
            <div class="metric"><div class="value">{{.Metrics.OrganicSessions}}</div>Organic sessions</div>
            <div class="metric"><div class="value">{{percent .Metrics.BounceRate}}</div>Bounce rate</div>
            <div class="metric"><div class="value {{changeClass .Trends.OrganicGrowth}}">{{trend .Trends.OrganicGrowth}}</div>Organic growth</div>
        </div>
    </div>
    {{end}}

    {{with .Sections.Conversions}}
    <div class="card">
        <h2>Conversions</h2>
        <table>
            <thead><tr><th>Goal</th><th>Completions</th><th>Rate</th><th>Change</th></tr></thead>
            <tbody>
            {{range .Goals}}
                <tr>
                    <td>{{.Name}}</td>
                    <td>{{.Completions}}</td>
                    <td>{{percent .ConversionRate}}</td>
                    <td class="{{changeClass .Change}}">{{trend .Change}}</td>
                </tr>
            {{end}}
            </tbody>
        </table>
    </div>
    {{end}}

    {{with .Sections.Technical}}
    <div class="card">
        <h2>Technical SEO</h2>
        <h3>Overall Score: {{printf "%.0f" .OverallScore}}/100</h3>
        <p>
            <span class="stat critical">Critical Issues: {{.Summary.CriticalIssues}}</span>
            <span class="stat warning">Warnings: {{.Summary.WarningIssues}}</span>
            <span class="stat passed">Passed: {{.Summary.PassedChecks}}</span>
        </p>
    </div>
    {{end}}
    {{if .Categories}}
    <div class="card">
        {{range .Categories}}
        <p><strong>{{.Name}}</strong> <span class="stat {{.Status}}">{{.Score}}/100</span></p>
        {{end}}
    </div>
    {{end}}

    <div class="footer">
        <p><small>Generated automatically by SEO Automation System on {{.GeneratedAt}}</small></p>
    </div>
</body>
</html>
`

// renderHTML renders data with the named custom template, falling back to
// the built-in one
func (s *Service) renderHTML(name string, data *models.ReportData) ([]byte, error) {
	t := s.template(name)

	var buf bytes.Buffer
	if err := t.Execute(&buf, s.view(data)); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.Bytes(), nil
}

func renderJSON(data *models.ReportData) ([]byte, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return out, nil
}

// renderMarkdown creates a Markdown formatted report
func renderMarkdown(data *models.ReportData) []byte {
	var buf bytes.Buffer
	sum := data.Summary

	fmt.Fprintf(&buf, "# SEO Report for %s\n\n", data.Website)
	fmt.Fprintf(&buf, "*Period %s to %s, generated %s*\n\n", data.Period.Start, data.Period.End, data.Timestamp.Format("January 2, 2006"))

	fmt.Fprintf(&buf, "## Executive Summary\n\n")
	fmt.Fprintf(&buf, "**Overall Health:** %s\n\n", strings.ReplaceAll(sum.OverallHealth, "_", " "))
	fmt.Fprintf(&buf, "| Metric | Value |\n")
	fmt.Fprintf(&buf, "|--------|-------|\n")
	fmt.Fprintf(&buf, "| Ranking change | %d |\n", sum.KeyMetrics.RankingChange)
	fmt.Fprintf(&buf, "| Organic sessions | %d |\n", sum.KeyMetrics.OrganicTraffic)
	fmt.Fprintf(&buf, "| Conversion rate | %.2f%% |\n", sum.KeyMetrics.ConversionRate*100)
	fmt.Fprintf(&buf, "| Technical score | %.0f |\n\n", sum.KeyMetrics.TechnicalScore)

	writeList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		fmt.Fprintf(&buf, "### %s\n\n", title)
		for _, item := range items {
			fmt.Fprintf(&buf, "- %s\n", item)
		}
		fmt.Fprintf(&buf, "\n")
	}
	writeList("Highlights", sum.Highlights)
	writeList("Areas of Concern", sum.Concerns)
	writeList("Recommendations", sum.Recommendations)

	if r := data.Sections.Rankings; r != nil && len(r.Keywords) > 0 {
		fmt.Fprintf(&buf, "## Keyword Rankings\n\n")
		fmt.Fprintf(&buf, "| Keyword | Position | Change | URL |\n")
		fmt.Fprintf(&buf, "|---------|----------|--------|-----|\n")
		for _, k := range r.Keywords {
			fmt.Fprintf(&buf, "| %s | %d | %+d | %s |\n", k.Keyword, k.CurrentPosition, k.Change, k.URL)
		}
		fmt.Fprintf(&buf, "\n")
	}

	if t := data.Sections.Traffic; t != nil {
		fmt.Fprintf(&buf, "## Traffic\n\n")
		fmt.Fprintf(&buf, "- **Sessions:** %d\n", t.Metrics.Sessions)
		fmt.Fprintf(&buf, "- **Organic sessions:** %d\n", t.Metrics.OrganicSessions)
		fmt.Fprintf(&buf, "- **Bounce rate:** %.1f%%\n", t.Metrics.BounceRate*100)
		fmt.Fprintf(&buf, "- **Organic growth:** %+.1f%%\n\n", t.Trends.OrganicGrowth)
	}

	if c := data.Sections.Conversions; c != nil && len(c.Goals) > 0 {
		fmt.Fprintf(&buf, "## Conversions\n\n")
		for _, g := range c.Goals {
			fmt.Fprintf(&buf, "- **%s:** %d completions (%+.1f%%)\n", g.Name, g.Completions, g.Change)
		}
		fmt.Fprintf(&buf, "\n")
	}

	if t := data.Sections.Technical; t != nil {
		fmt.Fprintf(&buf, "## Technical SEO\n\n")
		fmt.Fprintf(&buf, "**Overall score:** %.0f/100 (%d critical, %d warnings, %d passed)\n\n",
			t.OverallScore, t.Summary.CriticalIssues, t.Summary.WarningIssues, t.Summary.PassedChecks)
		for _, name := range sortedCategories(t) {
			c := t.Categories[name]
			fmt.Fprintf(&buf, "- **%s:** %.0f (%s)\n", utils.Humanize(name), c.Score, c.Status)
		}
		fmt.Fprintf(&buf, "\n")
	}

	return buf.Bytes()
}

// tableRows flattens the report into section/metric/value rows
func tableRows(data *models.ReportData) [][]string {
	rows := [][]string{
		{"summary", "overall_health", data.Summary.OverallHealth},
		{"summary", "ranking_change", fmt.Sprint(data.Summary.KeyMetrics.RankingChange)},
		{"summary", "organic_traffic", fmt.Sprint(data.Summary.KeyMetrics.OrganicTraffic)},
		{"summary", "conversion_rate", fmt.Sprint(data.Summary.KeyMetrics.ConversionRate)},
		{"summary", "technical_score", fmt.Sprint(data.Summary.KeyMetrics.TechnicalScore)},
	}

	if r := data.Sections.Rankings; r != nil {
		for _, k := range r.Keywords {
			rows = append(rows,
				[]string{"rankings", k.Keyword + " position", fmt.Sprint(k.CurrentPosition)},
				[]string{"rankings", k.Keyword + " change", fmt.Sprint(k.Change)},
			)
		}
	}
	if t := data.Sections.Traffic; t != nil {
		rows = append(rows,
			[]string{"traffic", "sessions", fmt.Sprint(t.Metrics.Sessions)},
			[]string{"traffic", "organic_sessions", fmt.Sprint(t.Metrics.OrganicSessions)},
			[]string{"traffic", "bounce_rate", fmt.Sprint(t.Metrics.BounceRate)},
			[]string{"traffic", "organic_growth", fmt.Sprint(t.Trends.OrganicGrowth)},
		)
	}
	if c := data.Sections.Conversions; c != nil {
		rows = append(rows,
			[]string{"conversions", "total_conversions", fmt.Sprint(c.Summary.TotalConversions)},
			[]string{"conversions", "conversion_rate", fmt.Sprint(c.Summary.ConversionRate)},
			[]string{"conversions", "revenue", fmt.Sprint(c.Summary.Revenue)},
		)
		for _, g := range c.Goals {
			rows = append(rows, []string{"conversions", g.Name, fmt.Sprint(g.Completions)})
		}
	}
	if t := data.Sections.Technical; t != nil {
		rows = append(rows,
			[]string{"technical", "overall_score", fmt.Sprint(t.OverallScore)},
			[]string{"technical", "critical_issues", fmt.Sprint(t.Summary.CriticalIssues)},
		)
		for _, name := range sortedCategories(t) {
			rows = append(rows, []string{"technical", name, fmt.Sprint(utils.Round(t.Categories[name].Score, 1))})
		}
	}
	return rows
}

func renderCSV(data *models.ReportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"section", "metric", "value"}); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := w.WriteAll(tableRows(data)); err != nil {
		return nil, fmt.Errorf("failed to write rows: %w", err)
	}
	return buf.Bytes(), nil
}

// renderXLSX writes a summary sheet plus one sheet per included section
func renderXLSX(data *models.ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"007CBA"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}

	sheets := map[string][][]string{}
	order := []string{}
	for _, row := range tableRows(data) {
		name := utils.Humanize(row[0])
		if _, ok := sheets[name]; !ok {
			order = append(order, name)
		}
		sheets[name] = append(sheets[name], row[1:])
	}

	for i, name := range order {
		index, err := f.NewSheet(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create sheet: %w", err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		for col, header := range []string{"Metric", "Value"} {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			f.SetCellValue(name, cell, header)
			f.SetCellStyle(name, cell, cell, headerStyle)
		}
		for r, row := range sheets[name] {
			for col, value := range row {
				cell, _ := excelize.CoordinatesToCellName(col+1, r+2)
				f.SetCellValue(name, cell, value)
			}
		}
		f.SetColWidth(name, "A", "A", 40)
		f.SetColWidth(name, "B", "B", 20)
		f.SetPanes(name, &excelize.Panes{Freeze: true, Split: false, XSplit: 0, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
