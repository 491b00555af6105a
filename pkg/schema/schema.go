// Package schema builds schema.org JSON-LD structured data for site pages.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/utils"
)

const schemaContext = "https://schema.org"

// Page types
const (
	TypeHomepage = "homepage"
	TypeService  = "service"
	TypeLocation = "location"
	TypeAbout    = "about"
	TypeContact  = "contact"
	TypeGeneral  = "general"
)

// Object is a single JSON-LD node
type Object = map[string]any

// Schemas maps a slot name (organization, localBusiness, ...) to an Object,
// or to a []Object for reviews
type Schemas map[string]any

// Crumb is one breadcrumb step
type Crumb struct {
	Name string
	URL  string
}

// Health is the generator's health report
type Health struct {
	Status       string `json:"status"`
	BaseURL      string `json:"baseUrl"`
	BusinessName string `json:"businessName"`
}

// Generator builds schemas for one practice website
type Generator struct {
	site config.WebsiteConfig
	log  *logger.Logger

	mu      sync.RWMutex
	reviews []models.Testimonial
}

// New creates a Generator
func New(site config.WebsiteConfig, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	site.BaseURL = strings.TrimSuffix(site.BaseURL, "/")
	return &Generator{site: site, log: log}
}

// SetReviews replaces the testimonials used for Review and AggregateRating nodes
func (g *Generator) SetReviews(reviews []models.Testimonial) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reviews = append([]models.Testimonial(nil), reviews...)
}

// GenerateForPage returns every schema that applies to page. The page type
// is detected from its URL when not set. Organization is always included.
func (g *Generator) GenerateForPage(page models.Page) Schemas {
	schemas := Schemas{"organization": g.Organization()}

	pageType := page.Type
	if pageType == "" {
		pageType = DetectPageType(page.URL)
	}

	switch pageType {
	case TypeHomepage:
		schemas["localBusiness"] = g.LocalBusiness("")
		schemas["website"] = g.WebSite()
		schemas["breadcrumbs"] = g.Breadcrumb(page)
	case TypeService:
		schemas["medicalService"] = g.MedicalService(page)
		schemas["localBusiness"] = g.LocalBusiness(page.Location)
		schemas["breadcrumbs"] = g.Breadcrumb(page)
		if faq := g.FAQ(page); faq != nil {
			schemas["faq"] = faq
		}
	case TypeLocation:
		schemas["localBusiness"] = g.LocalBusiness(page.Location)
		schemas["medicalService"] = g.MedicalService(page)
		schemas["breadcrumbs"] = g.Breadcrumb(page)
	case TypeAbout:
		schemas["person"] = g.Person()
		schemas["localBusiness"] = g.LocalBusiness("")
		schemas["breadcrumbs"] = g.Breadcrumb(page)
	case TypeContact:
		schemas["localBusiness"] = g.LocalBusiness("")
		schemas["contactPage"] = g.ContactPage()
		schemas["breadcrumbs"] = g.Breadcrumb(page)
	default:
		schemas["localBusiness"] = g.LocalBusiness("")
		schemas["breadcrumbs"] = g.Breadcrumb(page)
	}

	if page.HasReviews {
		schemas["reviews"] = g.Reviews(page)
	}
	g.log.Debug("Generated schema markup", map[string]any{"url": page.URL, "type": pageType, "schemas": len(schemas)})
	return schemas
}

func (g *Generator) address() Object {
	return Object{
		"@type":           "PostalAddress",
		"streetAddress":   g.site.StreetAddress,
		"addressLocality": g.site.Locality,
		"addressRegion":   g.site.Region,
		"postalCode":      g.site.PostalCode,
		"addressCountry":  g.site.Country,
	}
}

func (g *Generator) doctor() string {
	if g.site.DoctorName != "" {
		return g.site.DoctorName
	}
	return g.site.BusinessName
}

// Organization returns the MedicalOrganization node
func (g *Generator) Organization() Object {
	org := Object{
		"@context":    schemaContext,
		"@type":       "MedicalOrganization",
		"name":        g.site.BusinessName,
		"url":         g.site.BaseURL,
		"logo":        g.site.BaseURL + "/images/logo.png",
		"image":       g.site.BaseURL + "/images/practice-exterior.jpg",
		"description": "Comprehensive eye care services in Orange County, California. Specializing in cataract surgery, glaucoma treatment, and general ophthalmology.",
		"medicalSpecialty": []string{
			"Ophthalmology",
			"Cataract Surgery",
			"Glaucoma Treatment",
			"Diabetic Retinopathy Care",
			"Macular Degeneration Treatment",
		},
		"address": g.address(),
		"contactPoint": Object{
			"@type":             "ContactPoint",
			"telephone":         g.site.Phone,
			"contactType":       "customer service",
			"availableLanguage": []string{"English", "Spanish", "Farsi"},
			"areaServed":        "Orange County, CA",
		},
		"openingHoursSpecification": OpeningHours(g.site.OpeningHours),
		"priceRange":                g.site.PriceRange,
		"currenciesAccepted":        "USD",
		"paymentAccepted":           "Insurance, Cash, Credit Cards",
		"employee": Object{
			"@type":    "Person",
			"name":     g.doctor(),
			"jobTitle": "Ophthalmologist",
			"hasCredential": []Object{{
				"@type":              "EducationalOccupationalCredential",
				"credentialCategory": "Medical License",
				"recognizedBy":       Object{"@type": "Organization", "name": "California Medical Board"},
			}},
		},
	}
	if len(g.site.SameAs) > 0 {
		org["sameAs"] = g.site.SameAs
	}
	return org
}

// knownLocations holds coordinates for served cities
var knownLocations = map[string][2]float64{
	"newport-beach": {33.6189, -117.9298},
	"irvine":        {33.6846, -117.8265},
	"costa-mesa":    {33.6411, -117.9187},
}

// LocalBusiness returns the MedicalBusiness node. A non-empty location slug
// names the branch and overrides its locality and coordinates.
func (g *Generator) LocalBusiness(location string) Object {
	lat, lng := g.site.Latitude, g.site.Longitude
	name := g.site.BusinessName
	addr := g.address()

	if location != "" {
		name = fmt.Sprintf("%s - %s", g.site.BusinessName, utils.Humanize(location))
		addr["addressLocality"] = utils.Humanize(location)
		if coords, ok := knownLocations[location]; ok {
			lat, lng = coords[0], coords[1]
		}
	}

	return Object{
		"@context":    schemaContext,
		"@type":       "MedicalBusiness",
		"name":        name,
		"image":       g.site.BaseURL + "/images/practice-exterior.jpg",
		"telephone":   g.site.Phone,
		"email":       g.site.Email,
		"url":         g.site.BaseURL,
		"description": "Leading eye care practice in Orange County providing comprehensive ophthalmology services including cataract surgery, glaucoma treatment, and routine eye exams.",
		"priceRange":  g.site.PriceRange,
		"address":     addr,
		"geo": Object{
			"@type":     "GeoCoordinates",
			"latitude":  lat,
			"longitude": lng,
		},
		"openingHoursSpecification": OpeningHours(g.site.OpeningHours),
		"hasMap":                    "https://maps.google.com/?q=" + strings.ReplaceAll(name, " ", "+"),
		"isAccessibleForFree":       false,
		"paymentAccepted":           []string{"Insurance", "Cash", "Credit Card"},
		"currenciesAccepted":        "USD",
		"aggregateRating":           g.aggregateRating(),
	}
}

func (g *Generator) aggregateRating() Object {
	g.mu.RLock()
	defer g.mu.RUnlock()

	value, count := "4.8", "127"
	if len(g.reviews) > 0 {
		total := 0
		for _, r := range g.reviews {
			total += r.Rating
		}
		value = fmt.Sprintf("%.1f", float64(total)/float64(len(g.reviews)))
		count = fmt.Sprint(len(g.reviews))
	}
	return Object{
		"@type":       "AggregateRating",
		"ratingValue": value,
		"reviewCount": count,
		"bestRating":  "5",
		"worstRating": "1",
	}
}

type serviceInfo struct {
	name, description, procedure, bodyLocation string
}

var services = map[string]serviceInfo{
	"cataract-surgery": {
		"Cataract Surgery",
		"Advanced cataract surgery using the latest techniques and technology",
		"Phacoemulsification",
		"Eye",
	},
	"glaucoma-treatment": {
		"Glaucoma Treatment",
		"Comprehensive glaucoma diagnosis and treatment",
		"Medical and Surgical Glaucoma Treatment",
		"Eye",
	},
	"diabetic-retinopathy": {
		"Diabetic Retinopathy Care",
		"Specialized care for diabetic eye complications",
		"Retinal Examination and Treatment",
		"Retina",
	},
	"macular-degeneration": {
		"Macular Degeneration Treatment",
		"Treatment for age-related macular degeneration",
		"Anti-VEGF Injections and Monitoring",
		"Macula",
	},
}

var generalService = serviceInfo{
	"Eye Care Services",
	"Comprehensive eye care and treatment",
	"Eye Examination and Treatment",
	"Eye",
}

// MedicalService returns the MedicalProcedure node for the page's service
func (g *Generator) MedicalService(page models.Page) Object {
	key := page.Service
	if key == "" {
		key = ExtractService(page.URL)
	}
	svc, ok := services[key]
	if !ok {
		svc = generalService
	}

	return Object{
		"@context":      schemaContext,
		"@type":         "MedicalProcedure",
		"name":          svc.name,
		"description":   svc.description,
		"procedureType": svc.procedure,
		"bodyLocation":  Object{"@type": "AnatomicalStructure", "name": svc.bodyLocation},
		"performer": Object{
			"@type":   "MedicalOrganization",
			"name":    g.site.BusinessName,
			"address": g.address(),
		},
		"howPerformed": "Outpatient procedure performed in our state-of-the-art facility",
		"preparation":  "Pre-operative consultation and examination required",
		"followup":     "Post-operative care and follow-up appointments included",
		"status":       "Available",
		"category":     "Ophthalmology",
	}
}

// Person returns the Person node for the practice's doctor
func (g *Generator) Person() Object {
	return Object{
		"@context":    schemaContext,
		"@type":       "Person",
		"name":        g.doctor(),
		"jobTitle":    "Ophthalmologist",
		"description": "Board-certified ophthalmologist specializing in cataract surgery and glaucoma treatment with over 15 years of experience.",
		"url":         g.site.BaseURL + "/about",
		"image":       g.site.BaseURL + "/images/doctor.jpg",
		"worksFor": Object{
			"@type": "MedicalOrganization",
			"name":  g.site.BusinessName,
			"url":   g.site.BaseURL,
		},
		"hasCredential": []Object{
			{
				"@type":              "EducationalOccupationalCredential",
				"name":               "Medical License",
				"credentialCategory": "Professional License",
				"recognizedBy":       Object{"@type": "Organization", "name": "California Medical Board"},
			},
			{
				"@type":              "EducationalOccupationalCredential",
				"name":               "Board Certification in Ophthalmology",
				"credentialCategory": "Professional Certification",
				"recognizedBy":       Object{"@type": "Organization", "name": "American Board of Ophthalmology"},
			},
		},
		"knowsAbout": []string{
			"Cataract Surgery",
			"Glaucoma Treatment",
			"Diabetic Retinopathy",
			"Macular Degeneration",
			"General Ophthalmology",
		},
		"memberOf": []Object{
			{"@type": "Organization", "name": "American Academy of Ophthalmology"},
			{"@type": "Organization", "name": "California Medical Association"},
		},
	}
}

var serviceFAQs = map[string][]models.FAQ{
	"cataract-surgery": {
		{
			Question: "What is cataract surgery?",
			Answer:   "Cataract surgery is a procedure to remove the clouded lens from your eye and replace it with an artificial intraocular lens (IOL) to restore clear vision.",
		},
		{
			Question: "How long does cataract surgery take?",
			Answer:   "The surgery typically takes 15-20 minutes per eye and is performed as an outpatient procedure.",
		},
		{
			Question: "Is cataract surgery painful?",
			Answer:   "No, cataract surgery is performed under local anesthesia and most patients experience minimal discomfort.",
		},
	},
	"glaucoma-treatment": {
		{
			Question: "What is glaucoma?",
			Answer:   "Glaucoma is a group of eye diseases that damage the optic nerve, often due to increased pressure in the eye, and can lead to vision loss if untreated.",
		},
		{
			Question: "How is glaucoma treated?",
			Answer:   "Treatment may include eye drops, oral medications, laser treatment, or surgery, depending on the type and severity of glaucoma.",
		},
	},
}

// FAQ returns the FAQPage node built from the page's own FAQs, or from the
// service's stock questions. It returns nil when there are none.
func (g *Generator) FAQ(page models.Page) Object {
	faqs := page.FAQs
	if len(faqs) == 0 {
		key := page.Service
		if key == "" {
			key = ExtractService(page.URL)
		}
		faqs = serviceFAQs[key]
	}
	if len(faqs) == 0 {
		return nil
	}

	entities := make([]Object, 0, len(faqs))
	for _, f := range faqs {
		entities = append(entities, Object{
			"@type": "Question",
			"name":  f.Question,
			"acceptedAnswer": Object{
				"@type": "Answer",
				"text":  f.Answer,
			},
		})
	}
	return Object{
		"@context":   schemaContext,
		"@type":      "FAQPage",
		"mainEntity": entities,
	}
}

// Breadcrumb returns the BreadcrumbList node for the page path
func (g *Generator) Breadcrumb(page models.Page) Object {
	crumbs := BreadcrumbPath(page.URL)
	items := make([]Object, 0, len(crumbs))
	for i, c := range crumbs {
		items = append(items, Object{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     c.Name,
			"item":     g.site.BaseURL + c.URL,
		})
	}
	return Object{
		"@context":        schemaContext,
		"@type":           "BreadcrumbList",
		"itemListElement": items,
	}
}

var sampleReviews = []models.Testimonial{
	{
		Author: "Sarah M.",
		Rating: 5,
		Text:   "Excellent care and professional service. The doctor explained everything clearly and made me feel comfortable throughout my cataract surgery.",
		Date:   "2024-01-15",
	},
	{
		Author: "John D.",
		Rating: 5,
		Text:   "Outstanding results from my glaucoma treatment. The staff is knowledgeable and caring.",
		Date:   "2024-01-20",
	},
}

// Reviews returns Review nodes for the page. Loaded testimonials matching
// the page category (or general ones) are preferred over the stock reviews.
func (g *Generator) Reviews(page models.Page) []Object {
	g.mu.RLock()
	var picked []models.Testimonial
	for _, t := range g.reviews {
		if t.Category == page.Category || t.Category == "general" {
			picked = append(picked, t)
		}
		if len(picked) == 5 {
			break
		}
	}
	g.mu.RUnlock()
	if len(picked) == 0 {
		picked = sampleReviews
	}

	out := make([]Object, 0, len(picked))
	for _, r := range picked {
		review := Object{
			"@context": schemaContext,
			"@type":    "Review",
			"author":   Object{"@type": "Person", "name": r.Author},
			"reviewRating": Object{
				"@type":       "Rating",
				"ratingValue": r.Rating,
				"bestRating":  5,
				"worstRating": 1,
			},
			"reviewBody": r.Text,
			"itemReviewed": Object{
				"@type": "MedicalBusiness",
				"name":  g.site.BusinessName,
				"url":   g.site.BaseURL,
			},
		}
		if r.Date != "" {
			review["datePublished"] = r.Date
		}
		out = append(out, review)
	}
	return out
}

// WebSite returns the WebSite node with a site search action
func (g *Generator) WebSite() Object {
	site := Object{
		"@context":    schemaContext,
		"@type":       "WebSite",
		"name":        g.site.BusinessName,
		"url":         g.site.BaseURL,
		"description": "Comprehensive eye care services in Orange County, California",
		"publisher": Object{
			"@type": "Organization",
			"name":  g.site.BusinessName,
			"url":   g.site.BaseURL,
		},
		"potentialAction": Object{
			"@type": "SearchAction",
			"target": Object{
				"@type":       "EntryPoint",
				"urlTemplate": g.site.BaseURL + "/search?q={search_term_string}",
			},
			"query-input": "required name=search_term_string",
		},
	}
	if len(g.site.SameAs) > 0 {
		site["sameAs"] = g.site.SameAs
	}
	return site
}

// ContactPage returns the ContactPage node
func (g *Generator) ContactPage() Object {
	return Object{
		"@context":    schemaContext,
		"@type":       "ContactPage",
		"name":        "Contact " + g.site.BusinessName,
		"description": "Get in touch with our eye care specialists for appointments and consultations",
		"url":         g.site.BaseURL + "/contact",
		"mainEntity": Object{
			"@type":     "MedicalOrganization",
			"name":      g.site.BusinessName,
			"telephone": g.site.Phone,
			"email":     g.site.Email,
			"address":   g.address(),
		},
	}
}

// HealthCheck reports the generator's identity
func (g *Generator) HealthCheck() Health {
	return Health{Status: "healthy", BaseURL: g.site.BaseURL, BusinessName: g.site.BusinessName}
}

// DetectPageType classifies a page by its URL path
func DetectPageType(rawURL string) string {
	path := utils.PathOf(rawURL)
	switch {
	case path == "/" || path == "":
		return TypeHomepage
	case strings.Contains(path, "/services/"):
		return TypeService
	case strings.Contains(path, "/about"):
		return TypeAbout
	case strings.Contains(path, "/contact"):
		return TypeContact
	case strings.Contains(path, "/locations/"):
		return TypeLocation
	default:
		return TypeGeneral
	}
}

var serviceRegex = regexp.MustCompile(`/services/([^/]+)`)

// ExtractService returns the service slug following /services/, or "general"
func ExtractService(rawURL string) string {
	if m := serviceRegex.FindStringSubmatch(utils.PathOf(rawURL)); m != nil {
		return m[1]
	}
	return "general"
}

// BreadcrumbPath returns Home followed by one crumb per path segment
func BreadcrumbPath(rawURL string) []Crumb {
	crumbs := []Crumb{{Name: "Home", URL: "/"}}
	current := ""
	for _, seg := range strings.Split(utils.PathOf(rawURL), "/") {
		if seg == "" {
			continue
		}
		current += "/" + seg
		crumbs = append(crumbs, Crumb{Name: utils.Humanize(seg), URL: current})
	}
	return crumbs
}

var dayNames = map[string]string{
	"Mo": "Monday", "Tu": "Tuesday", "We": "Wednesday", "Th": "Thursday",
	"Fr": "Friday", "Sa": "Saturday", "Su": "Sunday",
}

var dayOrder = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// OpeningHours converts schema.org short-form hours such as
// "Mo-Fr 08:00-17:00" into OpeningHoursSpecification nodes.
// Malformed entries are skipped.
func OpeningHours(hours []string) []Object {
	specs := make([]Object, 0, len(hours))
	for _, h := range hours {
		parts := strings.Fields(h)
		if len(parts) != 2 {
			continue
		}
		days := expandDays(parts[0])
		times := strings.SplitN(parts[1], "-", 2)
		if len(days) == 0 || len(times) != 2 {
			continue
		}
		spec := Object{
			"@type":  "OpeningHoursSpecification",
			"opens":  times[0],
			"closes": times[1],
		}
		if len(days) == 1 {
			spec["dayOfWeek"] = days[0]
		} else {
			spec["dayOfWeek"] = days
		}
		specs = append(specs, spec)
	}
	return specs
}

func expandDays(spec string) []string {
	var days []string
	for _, part := range strings.Split(spec, ",") {
		from, to, isRange := strings.Cut(part, "-")
		if !isRange {
			if name, ok := dayNames[from]; ok {
				days = append(days, name)
			}
			continue
		}
		start, end := indexOf(dayOrder, from), indexOf(dayOrder, to)
		if start < 0 || end < start {
			continue
		}
		for _, d := range dayOrder[start : end+1] {
			days = append(days, dayNames[d])
		}
	}
	return days
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// ToJSONLD renders each schema as a <script type="application/ld+json">
// block, ordered by slot name
func ToJSONLD(schemas Schemas) (string, error) {
	keys := make([]string, 0, len(schemas))
	for k := range schemas {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	blocks := make([]string, 0, len(keys))
	for _, k := range keys {
		data, err := json.MarshalIndent(schemas[k], "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode %s schema: %w", k, err)
		}
		blocks = append(blocks, fmt.Sprintf("<script type=\"application/ld+json\">\n%s\n</script>", data))
	}
	return strings.Join(blocks, "\n"), nil
}

// Validate checks that a node carries a schema.org @context and an @type
func Validate(node Object) error {
	if node == nil {
		return errors.New("empty schema")
	}
	ctx, _ := node["@context"].(string)
	if ctx == "" {
		return errors.New("missing required field: @context")
	}
	if t, _ := node["@type"].(string); t == "" {
		return errors.New("missing required field: @type")
	}
	if !strings.Contains(ctx, "schema.org") {
		return errors.New("invalid @context - must include schema.org")
	}
	return nil
}

// ValidateAll validates every node in schemas and combines the failures
func ValidateAll(schemas Schemas) error {
	var err error
	for name, v := range schemas {
		switch node := v.(type) {
		case Object:
			if e := Validate(node); e != nil {
				err = multierr.Append(err, fmt.Errorf("%s: %w", name, e))
			}
		case []Object:
			for i, n := range node {
				if e := Validate(n); e != nil {
					err = multierr.Append(err, fmt.Errorf("%s[%d]: %w", name, i, e))
				}
			}
		default:
			err = multierr.Append(err, fmt.Errorf("%s: unsupported schema value %T", name, v))
		}
	}
	return err
}
