package content

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/analyzer"
	"github.com/amosWeiskopf/seoautomation/pkg/schema"
	"github.com/amosWeiskopf/seoautomation/pkg/seasonal"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

// rotateTestimonials moves each testimonial slot on to the next testimonials
// of the page's category
func (s *Service) rotateTestimonials(ctx context.Context, r *runState) (models.Update, error) {
	s.log.Info("Rotating testimonials")

	testimonials := s.repo.Testimonials()
	s.schema.SetReviews(testimonials)

	pages, err := s.repo.Pages()
	if err != nil {
		return models.Update{}, err
	}

	update := models.Update{}
	for _, page := range pages {
		if !usesTestimonials(page) {
			continue
		}
		pc := r.dc.Page(page.URL)
		selected := selectNewTestimonials(testimonials, pc.Testimonials, page.Category, s.cfg.TestimonialsPerPage)
		if len(selected) == 0 || sameTestimonials(selected, pc.Testimonials) {
			continue
		}

		ids := make([]string, len(selected))
		for i, t := range selected {
			ids[i] = t.ID
		}
		update.Details = append(update.Details, models.UpdateDetail{
			Page:   page.URL,
			Before: len(pc.Testimonials),
			After:  len(selected),
			Items:  ids,
		})
		update.Count += len(selected)

		pc.Testimonials = selected
		pc.UpdatedAt = r.now
		s.log.Info(fmt.Sprintf("Updated testimonials for %s", page.URL))
	}

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	return update, nil
}

func usesTestimonials(page models.Page) bool {
	switch {
	case page.HasReviews:
		return true
	case page.Type == schema.TypeHomepage:
		return true
	case page.Type == schema.TypeService && page.Location == "":
		return true
	}
	return false
}

// selectNewTestimonials picks up to n testimonials of category (or
// "general"), starting after the last one currently shown and wrapping
// around the pool
func selectNewTestimonials(all, current []models.Testimonial, category string, n int) []models.Testimonial {
	var pool []models.Testimonial
	for _, t := range all {
		if t.Category == category || t.Category == "general" {
			pool = append(pool, t)
		}
	}
	if len(pool) == 0 || n <= 0 {
		return nil
	}
	if len(pool) <= n {
		return pool
	}

	start := 0
	if len(current) > 0 {
		last := current[len(current)-1].ID
		for i, t := range pool {
			if t.ID == last {
				start = i + 1
				break
			}
		}
	}

	selected := make([]models.Testimonial, 0, n)
	for i := 0; i < n; i++ {
		selected = append(selected, pool[(start+i)%len(pool)])
	}
	return selected
}

func sameTestimonials(a, b []models.Testimonial) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

// updateSeasonalContent writes the season's slots into the dynamic content.
// When the stored slots already belong to the current season and are less
// than 30 days old, only the promotion slots are rewritten. Expired
// promotions are always removed.
func (s *Service) updateSeasonalContent(ctx context.Context, r *runState) (models.Update, error) {
	s.log.Info("Updating seasonal content")

	stale := s.seasonal.NeedsSeasonalUpdate()
	season := s.seasonFor(r)
	update := models.Update{Season: string(season)}

	updates := s.seasonal.GetSeasonalUpdates(season)
	_, hasHero := r.dc.Slots["homepage_hero"]
	full := r.season != "" || stale || !hasHero || r.dc.Season != string(season)
	if !full {
		s.log.Info("Seasonal content is current, refreshing promotions only")
		updates = onlyKind(updates, seasonal.KindPromotion)
	}
	clearPromotions(r.dc.Slots)

	for _, u := range updates {
		if u.Target == "" {
			s.log.Error("Failed to apply seasonal update", map[string]string{"type": u.Type, "error": "missing target"})
			continue
		}
		r.dc.Slots[u.Target] = site.Slot{
			Type:        u.Type,
			Content:     u.Content,
			Description: u.Description,
			UpdatedAt:   r.now,
		}
		update.Count++
		update.Details = append(update.Details, models.UpdateDetail{
			Target:      u.Target,
			Kind:        u.Type,
			Description: u.Description,
		})
		s.log.Debug(fmt.Sprintf("Applied seasonal update: %s", u.Type))
	}
	r.dc.Season = string(season)

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	if full {
		s.seasonal.MarkUpdateCompleted()
	}
	return update, nil
}

func onlyKind(updates []seasonal.Update, kind string) []seasonal.Update {
	var out []seasonal.Update
	for _, u := range updates {
		if u.Type == kind {
			out = append(out, u)
		}
	}
	return out
}

// clearPromotions drops every promotion slot
func clearPromotions(slots map[string]site.Slot) {
	for target, slot := range slots {
		if slot.Type == seasonal.KindPromotion || strings.HasPrefix(target, "promotion_") {
			delete(slots, target)
		}
	}
}

// updateSchemaMarkup regenerates the JSON-LD of every page
func (s *Service) updateSchemaMarkup(ctx context.Context, r *runState) (models.Update, error) {
	s.log.Info("Updating schema markup")

	pages, err := s.repo.Pages()
	if err != nil {
		return models.Update{}, err
	}

	update := models.Update{}
	for _, page := range pages {
		schemas := s.schema.GenerateForPage(page)
		if err := schema.ValidateAll(schemas); err != nil {
			s.log.Error(fmt.Sprintf("Failed to update schema for %s", page.URL), err)
			continue
		}
		jsonLD, err := schema.ToJSONLD(schemas)
		if err != nil {
			s.log.Error(fmt.Sprintf("Failed to update schema for %s", page.URL), err)
			continue
		}

		types := make([]string, 0, len(schemas))
		for name := range schemas {
			types = append(types, name)
		}
		sort.Strings(types)

		pc := r.dc.Page(page.URL)
		pc.JSONLD = jsonLD
		pc.SchemaTypes = types
		pc.UpdatedAt = r.now

		update.Count++
		update.Details = append(update.Details, models.UpdateDetail{Page: page.URL, Items: types})
	}

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	return update, nil
}

// updateMetaTags writes title and description overrides for pages whose
// effective tags are missing or outside the recommended lengths
func (s *Service) updateMetaTags(ctx context.Context, r *runState) (models.Update, error) {
	s.log.Info("Updating meta tags")

	pages, err := s.repo.Pages()
	if err != nil {
		return models.Update{}, err
	}

	update := models.Update{}
	for _, page := range pages {
		pc := r.dc.Page(page.URL)
		title := firstNonEmpty(pc.MetaTitle, page.MetaTitle)
		desc := firstNonEmpty(pc.MetaDescription, page.MetaDescription)

		var reasons, changes []string
		switch {
		case title == "":
			reasons = append(reasons, "title missing")
		case len(title) > maxTitleLength:
			reasons = append(reasons, fmt.Sprintf("title longer than %d characters", maxTitleLength))
		}
		switch {
		case desc == "":
			reasons = append(reasons, "description missing")
		case len(desc) < minDescriptionLength:
			reasons = append(reasons, fmt.Sprintf("description shorter than %d characters", minDescriptionLength))
		case len(desc) > maxDescriptionLength:
			reasons = append(reasons, fmt.Sprintf("description longer than %d characters", maxDescriptionLength))
		}
		if len(reasons) == 0 {
			continue
		}

		if newTitle := s.optimizedTitle(page, title); newTitle != title {
			pc.MetaTitle = newTitle
			changes = append(changes, "title")
		}
		if newDesc := s.optimizedDescription(page, desc); newDesc != desc {
			pc.MetaDescription = newDesc
			changes = append(changes, "description")
		}
		if pc.MetaKeywords == "" {
			pc.MetaKeywords = s.keywordsFor(page, r)
		}
		if len(changes) == 0 {
			continue
		}
		pc.UpdatedAt = r.now

		update.Count++
		update.Details = append(update.Details, models.UpdateDetail{
			Page:   page.URL,
			Items:  changes,
			Reason: strings.Join(reasons, "; "),
		})
		s.log.Info(fmt.Sprintf("Updated meta tags for %s", page.URL))
	}

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	return update, nil
}

// generateNewPages creates a page for every configured service/location pair
// that has neither a page file nor a generation record
func (s *Service) generateNewPages(ctx context.Context, r *runState) (models.Update, error) {
	update := models.Update{}
	if !s.cfg.GeneratePages {
		s.log.Debug("Page generation disabled")
		return update, nil
	}
	s.log.Info("Checking for new pages to generate")

	for _, service := range s.content.Services {
		for _, location := range s.content.Locations {
			if err := ctx.Err(); err != nil {
				return update, err
			}
			url := fmt.Sprintf("/services/%s/%s", utils.Slugify(service), utils.Slugify(location))
			if s.repo.Exists(url) || r.dc.HasGenerated(url) {
				continue
			}

			keywords := targetKeywords(service, location)
			path, err := s.createNewPage(url, service, location, keywords)
			if err != nil {
				s.log.Error(fmt.Sprintf("Failed to generate page for %s in %s", service, location), err)
				continue
			}

			r.dc.GeneratedPages = append(r.dc.GeneratedPages, site.GeneratedPage{
				URL:       url,
				Path:      path,
				Service:   service,
				Location:  location,
				Keywords:  keywords,
				CreatedAt: r.now,
			})
			update.Count++
			update.Details = append(update.Details, models.UpdateDetail{Page: url, Items: keywords})
		}
	}

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	return update, nil
}

func targetKeywords(service, location string) []string {
	svc := strings.ToLower(utils.Humanize(service))
	loc := strings.ToLower(utils.Humanize(location))
	return []string{
		fmt.Sprintf("%s %s", svc, loc),
		fmt.Sprintf("%s near %s", svc, loc),
		fmt.Sprintf("eye doctor %s", loc),
	}
}

func (s *Service) createNewPage(url, service, location string, keywords []string) (string, error) {
	page := models.Page{
		URL:      url,
		Type:     schema.TypeService,
		Service:  service,
		Location: location,
	}
	page.MetaTitle = s.optimizedTitle(page, "")
	page.MetaDescription = s.optimizedDescription(page, "")

	jsonLD, err := schema.ToJSONLD(s.schema.GenerateForPage(page))
	if err != nil {
		return "", err
	}

	svc := utils.Humanize(service)
	loc := utils.Humanize(location)
	return s.repo.WritePage(url, site.PageData{
		Title:       page.MetaTitle,
		Description: page.MetaDescription,
		Keywords:    strings.Join(keywords, ", "),
		Canonical:   s.website.BaseURL + url,
		Heading:     fmt.Sprintf("%s in %s", svc, loc),
		Paragraphs: []string{
			fmt.Sprintf("%s offers %s for patients in %s and the surrounding communities.", s.website.BusinessName, strings.ToLower(svc), loc),
			fmt.Sprintf("Every %s consultation starts with a comprehensive eye exam and a treatment plan built around your vision goals.", strings.ToLower(svc)),
		},
		BusinessName: s.website.BusinessName,
		Phone:        s.website.Phone,
		JSONLD:       template.HTML(jsonLD),
		RelatedLinks: []models.Link{
			{ToURL: "/services/" + utils.Slugify(service), AnchorText: svc},
			{ToURL: "/locations/" + utils.Slugify(location), AnchorText: "Eye care in " + loc},
		},
	})
}

// optimizeInternalLinking adds related links from each page to the highest
// ranked pages of the same category it does not already link to
func (s *Service) optimizeInternalLinking(ctx context.Context, r *runState) (models.Update, error) {
	s.log.Info("Optimizing internal linking")

	pages, err := s.repo.Pages()
	if err != nil {
		return models.Update{}, err
	}
	analyzer.SetPageRank(pages)

	ranked := make([]models.Page, len(pages))
	copy(ranked, pages)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PageRank != ranked[j].PageRank {
			return ranked[i].PageRank > ranked[j].PageRank
		}
		return ranked[i].URL < ranked[j].URL
	})

	update := models.Update{}
	for _, source := range pages {
		pc := r.dc.Page(source.URL)
		linked := map[string]bool{source.URL: true}
		for _, l := range source.Links {
			linked[utils.PathOf(l.ToURL)] = true
		}
		for _, l := range pc.RelatedLinks {
			linked[utils.PathOf(l.ToURL)] = true
		}

		var added []models.Link
		for _, candidate := range ranked {
			if len(added) >= s.cfg.LinksPerPage {
				break
			}
			if linked[candidate.URL] || !related(source, candidate) {
				continue
			}
			added = append(added, models.Link{ToURL: candidate.URL, AnchorText: anchorFor(candidate)})
		}
		if len(added) == 0 {
			continue
		}

		pc.RelatedLinks = append(pc.RelatedLinks, added...)
		pc.UpdatedAt = r.now

		targets := make([]string, len(added))
		for i, l := range added {
			targets[i] = l.ToURL
		}
		update.Count++
		update.Details = append(update.Details, models.UpdateDetail{Page: source.URL, Items: targets})
		s.log.Debug(fmt.Sprintf("Added %d internal links to %s", len(added), source.URL))
	}

	if err := s.repo.SaveDynamic(r.dc, r.now); err != nil {
		return update, err
	}
	return update, nil
}

// related reports whether candidate is a linking target for source: pages of
// the same treatment category, or top-level service pages for general pages
func related(source, candidate models.Page) bool {
	if source.Category != "general" {
		return candidate.Category == source.Category
	}
	return candidate.Type == schema.TypeService && candidate.Location == ""
}

func anchorFor(page models.Page) string {
	if title, _, _ := strings.Cut(page.MetaTitle, " | "); strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	segs := strings.Split(strings.Trim(page.URL, "/"), "/")
	return utils.Humanize(segs[len(segs)-1])
}

// keywordsFor derives meta keywords: the seasonal set for the homepage,
// the most frequent terms of the page text otherwise
func (s *Service) keywordsFor(page models.Page, r *runState) string {
	if page.Type == schema.TypeHomepage {
		return s.seasonal.MetaTags(s.seasonFor(r)).Keywords
	}
	return strings.Join(utils.ExtractKeywords(page.Text, 8), ", ")
}

// seasonFor returns the season a run targets
func (s *Service) seasonFor(r *runState) seasonal.Season {
	if r.season != "" {
		return r.season
	}
	return s.seasonal.CurrentSeason()
}
