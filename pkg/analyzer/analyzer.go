// Package analyzer audits the site's pages for technical SEO problems and
// ranks them by internal link authority.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/extractor"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// Audit categories
const (
	CategoryContent   = "content"
	CategoryTechnical = "technical"
	CategoryLinks     = "links"
	CategoryImages    = "images"
	CategoryLocal     = "local"
)

// Category statuses
const (
	StatusPassed   = "passed"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

var weights = map[string]float64{
	CategoryTechnical: 0.3,
	CategoryContent:   0.3,
	CategoryLinks:     0.2,
	CategoryImages:    0.1,
	CategoryLocal:     0.1,
}

// maxReadingMinutes is the reading time above which a page is flagged as long
const maxReadingMinutes = 10

var severityOrder = map[string]int{"critical": 0, "high": 1, "medium": 2, "low": 3}

// Analyzer performs the technical SEO audit
type Analyzer struct {
	site  config.WebsiteConfig
	store *store.Store
	ext   *extractor.Extractor
	log   *logger.Logger
	now   func() time.Time
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// New creates a new Analyzer. st may be nil when results are not persisted.
func New(site config.WebsiteConfig, st *store.Store, log *logger.Logger, opts ...Option) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	a := &Analyzer{
		site:  site,
		store: st,
		ext:   extractor.New(),
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run audits pages and appends the result to technical-audit.json
func (a *Analyzer) Run(ctx context.Context, pages []models.Page) (*models.TechnicalAudit, error) {
	timer := a.log.StartTimer("technical audit")
	audit, err := a.Audit(ctx, pages)
	if err != nil {
		return nil, err
	}

	if a.store != nil {
		if _, err := store.AppendCapped(a.store, store.TechnicalAuditFile, *audit, store.AuditCap); err != nil {
			a.log.Error("Failed to save technical audit", err)
			return audit, fmt.Errorf("failed to save technical audit: %w", err)
		}
	}

	timer.End(map[string]any{
		"pages":          audit.PagesAudited,
		"overallScore":   audit.OverallScore,
		"criticalIssues": audit.Summary.CriticalIssues,
	})
	return audit, nil
}

// Audit scores pages without persisting anything
func (a *Analyzer) Audit(ctx context.Context, pages []models.Page) (*models.TechnicalAudit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	audit := &models.TechnicalAudit{
		Timestamp:    a.now().UTC(),
		Domain:       a.site.Domain,
		PagesAudited: len(pages),
		Categories:   make(map[string]models.CategoryScore),
	}
	if len(pages) == 0 {
		a.log.Warn("No pages to audit")
		return audit, nil
	}

	SetPageRank(pages)

	findings := a.generateFindings(pages)
	scores := map[string]float64{
		CategoryContent:   a.analyzeContent(pages),
		CategoryTechnical: a.analyzeTechnical(pages),
		CategoryLinks:     a.analyzeLinks(pages),
		CategoryImages:    a.analyzeImages(pages),
		CategoryLocal:     a.analyzeLocal(pages),
	}

	for name, score := range scores {
		cs := models.CategoryScore{
			Score:  utils.Round(score, 1),
			Status: statusFor(score),
		}
		for _, f := range findings {
			if f.Category == name {
				cs.Issues = append(cs.Issues, f)
			}
		}
		audit.Categories[name] = cs

		switch cs.Status {
		case StatusPassed:
			audit.Summary.PassedChecks++
		case StatusWarning:
			audit.Summary.WarningIssues++
		default:
			audit.Summary.CriticalIssues++
		}
	}

	audit.OverallScore = utils.Round(calculateOverallScore(scores), 1)
	audit.Findings = findings
	audit.Recommendations = generateRecommendations(findings)
	return audit, nil
}

func statusFor(score float64) string {
	switch {
	case score >= 80:
		return StatusPassed
	case score >= 50:
		return StatusWarning
	default:
		return StatusCritical
	}
}

// PageRank computes link authority over the internal link graph of pages.
// Links are matched to pages by URL path, so absolute and relative links to
// the same page count alike.
func PageRank(pages []models.Page) map[string]float64 {
	const (
		dampingFactor = 0.85
		iterations    = 100
	)

	pageRank := make(map[string]float64)
	if len(pages) == 0 {
		return pageRank
	}

	known := make(map[string]bool, len(pages))
	for _, page := range pages {
		known[pathKey(page.URL)] = true
	}

	// Build link graph
	linkGraph := make(map[string][]string)
	inboundLinks := make(map[string][]string)
	for _, page := range pages {
		from := pathKey(page.URL)
		for _, link := range page.Links {
			to := pathKey(link.ToURL)
			if !known[to] || to == from {
				continue
			}
			linkGraph[from] = append(linkGraph[from], to)
			inboundLinks[to] = append(inboundLinks[to], from)
		}
	}

	pageCount := float64(len(known))
	for key := range known {
		pageRank[key] = 1.0 / pageCount
	}

	for i := 0; i < iterations; i++ {
		newPageRank := make(map[string]float64, len(known))
		for key := range known {
			rank := (1.0 - dampingFactor) / pageCount
			for _, inbound := range inboundLinks[key] {
				outboundCount := float64(len(linkGraph[inbound]))
				if outboundCount > 0 {
					rank += dampingFactor * pageRank[inbound] / outboundCount
				}
			}
			newPageRank[key] = rank
		}
		pageRank = newPageRank
	}

	ranks := make(map[string]float64, len(pages))
	for _, page := range pages {
		ranks[page.URL] = pageRank[pathKey(page.URL)]
	}
	return ranks
}

// SetPageRank stores each page's PageRank on the page
func SetPageRank(pages []models.Page) {
	ranks := PageRank(pages)
	for i := range pages {
		pages[i].PageRank = ranks[pages[i].URL]
	}
}

func pathKey(raw string) string {
	p := utils.PathOf(raw)
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// analyzeContent evaluates titles, descriptions and word counts
func (a *Analyzer) analyzeContent(pages []models.Page) float64 {
	score := 0.0
	factors := 0

	for _, page := range pages {
		if len(page.MetaTitle) > 0 && len(page.MetaTitle) <= 60 {
			score += 1.0
		} else if len(page.MetaTitle) > 0 {
			score += 0.5
		}
		factors++

		if len(page.MetaDescription) >= 120 && len(page.MetaDescription) <= 160 {
			score += 1.0
		} else if len(page.MetaDescription) > 0 {
			score += 0.5
		}
		factors++

		wordCount := wordsOf(page)
		if wordCount >= 300 {
			score += 1.0
		} else if wordCount >= 100 {
			score += 0.5
		}
		factors++
	}

	if factors == 0 {
		return 0
	}
	return (score / float64(factors)) * 100
}

// analyzeTechnical checks duplicate titles, error statuses, URL structure and
// canonical tags
func (a *Analyzer) analyzeTechnical(pages []models.Page) float64 {
	score := 0.0
	factors := 0

	titles := make(map[string]int)
	for _, page := range pages {
		titles[page.MetaTitle]++
	}
	duplicateTitles := 0
	for _, count := range titles {
		if count > 1 {
			duplicateTitles++
		}
	}
	score += math.Max(0, 1.0-float64(duplicateTitles)/float64(len(titles)))
	factors++

	errorPages := 0
	cleanURLs := 0
	withCanonical := 0
	for _, page := range pages {
		if page.StatusCode >= 400 {
			errorPages++
		}
		if !strings.ContainsAny(page.URL, "?#") && page.URL == strings.ToLower(page.URL) {
			cleanURLs++
		}
		if page.Canonical != "" {
			withCanonical++
		}
	}
	total := float64(len(pages))
	score += math.Max(0, 1.0-float64(errorPages)/total)
	score += float64(cleanURLs) / total
	score += float64(withCanonical) / total
	factors += 3

	return (score / float64(factors)) * 100
}

// analyzeLinks scores the share of internal links that resolve to a known page
func (a *Analyzer) analyzeLinks(pages []models.Page) float64 {
	internal, broken := a.internalLinks(pages)
	if internal == 0 {
		return 100
	}
	return (1.0 - float64(len(broken))/float64(internal)) * 100
}

func (a *Analyzer) internalLinks(pages []models.Page) (int, []string) {
	known := make(map[string]bool, len(pages))
	for _, page := range pages {
		known[pathKey(page.URL)] = true
	}

	host := utils.GetDomainFromURL(a.site.BaseURL)
	internal := 0
	var broken []string
	for _, page := range pages {
		for _, link := range page.Links {
			linkHost := utils.GetDomainFromURL(link.ToURL)
			if linkHost != "" && linkHost != host {
				continue
			}
			internal++
			if !known[pathKey(link.ToURL)] {
				broken = append(broken, fmt.Sprintf("%s -> %s", page.URL, pathKey(link.ToURL)))
			}
		}
	}
	return internal, broken
}

func (a *Analyzer) analyzeImages(pages []models.Page) float64 {
	clean := 0
	for _, page := range pages {
		if page.ImagesMissingAlt == 0 {
			clean++
		}
	}
	return float64(clean) / float64(len(pages)) * 100
}

// analyzeLocal checks that every phone number shown on the site matches the
// practice's listed number
func (a *Analyzer) analyzeLocal(pages []models.Page) float64 {
	withPhone, mismatched := a.phoneConsistency(pages)
	if withPhone == 0 {
		return 100
	}
	return (1.0 - float64(len(mismatched))/float64(withPhone)) * 100
}

func (a *Analyzer) phoneConsistency(pages []models.Page) (int, []string) {
	want := extractor.DigitsOnly(a.site.Phone)
	withPhone := 0
	var mismatched []string
	for _, page := range pages {
		phones := a.ext.ExtractPhones(page.Text)
		if len(phones) == 0 {
			continue
		}
		withPhone++
		for _, p := range phones {
			if want != "" && p != want {
				mismatched = append(mismatched, page.URL)
				break
			}
		}
	}
	return withPhone, mismatched
}

func calculateOverallScore(scores map[string]float64) float64 {
	total := 0.0
	for name, weight := range weights {
		total += scores[name] * weight
	}
	return total
}

func wordsOf(page models.Page) int {
	if page.WordCount > 0 {
		return page.WordCount
	}
	return len(strings.Fields(page.Text))
}

// generateFindings creates a list of SEO findings
func (a *Analyzer) generateFindings(pages []models.Page) []models.Finding {
	findings := []models.Finding{}

	missingDesc := 0
	longTitles := 0
	thinContent := 0
	missingAlt := 0
	var errorPages, longPages []string
	for _, page := range pages {
		if page.MetaDescription == "" {
			missingDesc++
		}
		if len(page.MetaTitle) > 60 {
			longTitles++
		}
		if wordsOf(page) < 100 {
			thinContent++
		}
		if page.Text != "" && utils.CalculateReadingTime(page.Text) > maxReadingMinutes {
			longPages = append(longPages, page.URL)
		}
		missingAlt += page.ImagesMissingAlt
		if page.StatusCode >= 400 {
			errorPages = append(errorPages, page.URL)
		}
	}

	if missingDesc > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryContent,
			Type:        "Missing Meta Descriptions",
			Description: fmt.Sprintf("%d pages lack meta descriptions", missingDesc),
			Severity:    "medium",
		})
	}
	if longTitles > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryContent,
			Type:        "Long Titles",
			Description: fmt.Sprintf("%d pages have titles longer than 60 characters", longTitles),
			Severity:    "low",
		})
	}

	titles := make(map[string][]string)
	for _, page := range pages {
		titles[page.MetaTitle] = append(titles[page.MetaTitle], page.URL)
	}
	dupTitles := make([]string, 0, len(titles))
	for title, urls := range titles {
		if len(urls) > 1 && title != "" {
			dupTitles = append(dupTitles, title)
		}
	}
	sort.Strings(dupTitles)
	for _, title := range dupTitles {
		findings = append(findings, models.Finding{
			Category:    CategoryTechnical,
			Type:        "Duplicate Title",
			Description: fmt.Sprintf("Title '%s' used on %d pages", title, len(titles[title])),
			Severity:    "high",
			Details:     strings.Join(titles[title], ", "),
		})
	}

	if len(errorPages) > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryTechnical,
			Type:        "Error Pages",
			Description: fmt.Sprintf("%d pages return an error status", len(errorPages)),
			Severity:    "critical",
			Details:     strings.Join(errorPages, ", "),
		})
	}

	if thinContent > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryContent,
			Type:        "Thin Content",
			Description: fmt.Sprintf("%d pages have less than 100 words", thinContent),
			Severity:    "medium",
		})
	}

	if len(longPages) > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryContent,
			Type:        "Long Reading Time",
			Description: fmt.Sprintf("%d pages take more than %d minutes to read", len(longPages), maxReadingMinutes),
			Severity:    "low",
			Details:     strings.Join(longPages, ", "),
		})
	}

	if _, broken := a.internalLinks(pages); len(broken) > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryLinks,
			Type:        "Broken Internal Links",
			Description: fmt.Sprintf("%d internal links point to missing pages", len(broken)),
			Severity:    "high",
			Details:     strings.Join(broken, ", "),
		})
	}

	if missingAlt > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryImages,
			Type:        "Missing Alt Text",
			Description: fmt.Sprintf("%d images have no alt text", missingAlt),
			Severity:    "low",
		})
	}

	if _, mismatched := a.phoneConsistency(pages); len(mismatched) > 0 {
		findings = append(findings, models.Finding{
			Category:    CategoryLocal,
			Type:        "Inconsistent Phone Number",
			Description: fmt.Sprintf("%d pages show a phone number other than %s", len(mismatched), a.site.Phone),
			Severity:    "medium",
			Details:     strings.Join(mismatched, ", "),
		})
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return severityOrder[findings[i].Severity] < severityOrder[findings[j].Severity]
	})
	return findings
}

// generateRecommendations maps findings, already ordered by severity, to
// actions
func generateRecommendations(findings []models.Finding) []models.Recommendation {
	recommendations := []models.Recommendation{}

	for _, finding := range findings {
		var rec models.Recommendation

		switch finding.Type {
		case "Missing Meta Descriptions":
			rec = models.Recommendation{
				Priority:    "high",
				Title:       "Add unique meta descriptions",
				Action:      "Add unique meta descriptions",
				Impact:      "high",
				Effort:      "low",
				Description: "Write unique, compelling meta descriptions (120-160 characters) for all pages",
			}
		case "Long Titles":
			rec = models.Recommendation{
				Priority:    "low",
				Title:       "Shorten page titles",
				Action:      "Shorten titles to 60 characters",
				Impact:      "low",
				Effort:      "low",
				Description: "Keep title tags under 60 characters so they are not truncated in search results",
			}
		case "Duplicate Title":
			rec = models.Recommendation{
				Priority:    "critical",
				Title:       "Fix duplicate titles",
				Action:      "Fix duplicate titles",
				Impact:      "high",
				Effort:      "low",
				Description: "Ensure each page has a unique, descriptive title tag",
			}
		case "Error Pages":
			rec = models.Recommendation{
				Priority:    "critical",
				Title:       "Fix pages returning errors",
				Action:      "Restore or redirect error pages",
				Impact:      "high",
				Effort:      "medium",
				Description: "Restore missing pages or add permanent redirects to their replacements",
			}
		case "Thin Content":
			rec = models.Recommendation{
				Priority:    "medium",
				Title:       "Expand content",
				Action:      "Expand content",
				Impact:      "medium",
				Effort:      "medium",
				Description: "Add more valuable, relevant content to pages with less than 300 words",
			}
		case "Long Reading Time":
			rec = models.Recommendation{
				Priority:    "low",
				Title:       "Break up long pages",
				Action:      "Split long pages or add section headings",
				Impact:      "low",
				Effort:      "medium",
				Description: "Keep service pages scannable; move in-depth material to linked articles",
			}
		case "Broken Internal Links":
			rec = models.Recommendation{
				Priority:    "high",
				Title:       "Repair broken internal links",
				Action:      "Update or remove broken internal links",
				Impact:      "medium",
				Effort:      "low",
				Description: "Point internal links at existing pages so link authority is not lost",
			}
		case "Missing Alt Text":
			rec = models.Recommendation{
				Priority:    "low",
				Title:       "Add image alt text",
				Action:      "Add descriptive alt attributes",
				Impact:      "low",
				Effort:      "low",
				Description: "Describe every image with an alt attribute for accessibility and image search",
			}
		case "Inconsistent Phone Number":
			rec = models.Recommendation{
				Priority:    "medium",
				Title:       "Make NAP details consistent",
				Action:      "Use the listed phone number everywhere",
				Impact:      "medium",
				Effort:      "low",
				Description: "Local rankings depend on name, address and phone matching across the site and listings",
			}
		default:
			continue
		}

		rec.Type = finding.Category
		recommendations = append(recommendations, rec)
	}

	return recommendations
}
