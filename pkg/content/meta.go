package content

import (
	"fmt"
	"strings"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/schema"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

const (
	maxTitleLength       = 60
	minDescriptionLength = 120
	maxDescriptionLength = 160
)

// optimizedTitle keeps a title that fits, shortens a long one and builds one
// from the page's service, location and business name when missing
func (s *Service) optimizedTitle(page models.Page, current string) string {
	switch {
	case current != "" && len(current) <= maxTitleLength:
		return current
	case current != "":
		return utils.Truncate(current, maxTitleLength-3)
	}

	title := fmt.Sprintf("%s | %s", s.subject(page), s.website.BusinessName)
	if len(title) > maxTitleLength {
		title = utils.Truncate(s.subject(page), maxTitleLength-3)
	}
	return title
}

// optimizedDescription keeps a description within 120-160 characters,
// shortens a long one, and rebuilds a missing or short one
func (s *Service) optimizedDescription(page models.Page, current string) string {
	switch {
	case len(current) >= minDescriptionLength && len(current) <= maxDescriptionLength:
		return current
	case len(current) > maxDescriptionLength:
		return utils.Truncate(current, maxDescriptionLength-3)
	}

	sentences := []string{
		fmt.Sprintf("%s at %s in %s, %s.", s.subject(page), s.website.BusinessName, s.website.Locality, s.website.Region),
		"Personalized, board-certified eye care for patients of every age.",
		fmt.Sprintf("Call %s to schedule your visit.", s.website.Phone),
		"Same-week appointments available.",
	}

	desc := sentences[0]
	if len(desc) > maxDescriptionLength {
		return utils.Truncate(desc, maxDescriptionLength-3)
	}
	for _, next := range sentences[1:] {
		if len(desc)+1+len(next) > maxDescriptionLength {
			continue
		}
		desc += " " + next
	}
	return desc
}

// subject names what a page is about
func (s *Service) subject(page models.Page) string {
	switch {
	case page.Service != "" && page.Location != "":
		return fmt.Sprintf("%s in %s", utils.Humanize(page.Service), utils.Humanize(page.Location))
	case page.Service != "":
		return utils.Humanize(page.Service)
	case page.Type == schema.TypeHomepage:
		return "Eye Care"
	case page.Location != "":
		return fmt.Sprintf("Eye Care in %s", utils.Humanize(page.Location))
	}
	segs := strings.Split(strings.Trim(page.URL, "/"), "/")
	return utils.Humanize(segs[len(segs)-1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
