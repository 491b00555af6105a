package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
)

func testSite() config.WebsiteConfig {
	return config.WebsiteConfig{
		Domain:        "eyecarecenteroc.com",
		BaseURL:       "https://eyecarecenteroc.com/",
		BusinessName:  "Eye Care Center of Orange County",
		DoctorName:    "Dr. Alexander Bonakdar",
		Phone:         "+1-949-123-4567",
		Email:         "info@eyecarecenteroc.com",
		StreetAddress: "123 Medical Center Drive",
		Locality:      "Newport Beach",
		Region:        "CA",
		PostalCode:    "92660",
		Country:       "US",
		Latitude:      33.6189,
		Longitude:     -117.9298,
		OpeningHours:  []string{"Mo-Fr 08:00-17:00", "Sa 09:00-13:00"},
		PriceRange:    "$$",
	}
}

func keys(s Schemas) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}

func TestGenerateForPageDispatch(t *testing.T) {
	g := New(testSite(), nil)

	tests := []struct {
		name string
		page models.Page
		want []string
	}{
		{"homepage", models.Page{URL: "/"}, []string{"organization", "localBusiness", "website", "breadcrumbs"}},
		{"service with faq", models.Page{URL: "/services/cataract-surgery"}, []string{"organization", "medicalService", "localBusiness", "breadcrumbs", "faq"}},
		{"service without faq", models.Page{URL: "/services/macular-degeneration"}, []string{"organization", "medicalService", "localBusiness", "breadcrumbs"}},
		{"location", models.Page{URL: "/locations/irvine", Location: "irvine"}, []string{"organization", "localBusiness", "medicalService", "breadcrumbs"}},
		{"about", models.Page{URL: "https://eyecarecenteroc.com/about"}, []string{"organization", "person", "localBusiness", "breadcrumbs"}},
		{"contact", models.Page{URL: "/contact"}, []string{"organization", "localBusiness", "contactPage", "breadcrumbs"}},
		{"general", models.Page{URL: "/blog/dry-eye"}, []string{"organization", "localBusiness", "breadcrumbs"}},
		{"explicit type wins", models.Page{URL: "/blog", Type: TypeContact}, []string{"organization", "localBusiness", "contactPage", "breadcrumbs"}},
		{"reviews", models.Page{URL: "/", HasReviews: true}, []string{"organization", "localBusiness", "website", "breadcrumbs", "reviews"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.GenerateForPage(tt.page)
			assert.ElementsMatch(t, tt.want, keys(got))
			assert.NoError(t, ValidateAll(got))
		})
	}
}

func TestDetectPageTypeAndService(t *testing.T) {
	assert.Equal(t, TypeHomepage, DetectPageType(""))
	assert.Equal(t, TypeHomepage, DetectPageType("https://eyecarecenteroc.com"))
	assert.Equal(t, TypeService, DetectPageType("/services/glaucoma-treatment/irvine"))
	assert.Equal(t, TypeLocation, DetectPageType("/locations/costa-mesa"))
	assert.Equal(t, TypeGeneral, DetectPageType("/services"))

	assert.Equal(t, "glaucoma-treatment", ExtractService("/services/glaucoma-treatment/irvine"))
	assert.Equal(t, "general", ExtractService("/about"))
}

func TestBreadcrumbPath(t *testing.T) {
	crumbs := BreadcrumbPath("/services/cataract-surgery/newport-beach")
	assert.Equal(t, []Crumb{
		{Name: "Home", URL: "/"},
		{Name: "Services", URL: "/services"},
		{Name: "Cataract Surgery", URL: "/services/cataract-surgery"},
		{Name: "Newport Beach", URL: "/services/cataract-surgery/newport-beach"},
	}, crumbs)

	g := New(testSite(), nil)
	items := g.Breadcrumb(models.Page{URL: "/about"})["itemListElement"].([]Object)
	require.Len(t, items, 2)
	assert.Equal(t, "https://eyecarecenteroc.com/about", items[1]["item"])
	assert.Equal(t, 2, items[1]["position"])
}

func TestLocalBusinessLocationOverride(t *testing.T) {
	g := New(testSite(), nil)

	main := g.LocalBusiness("")
	assert.Equal(t, "Eye Care Center of Orange County", main["name"])

	irvine := g.LocalBusiness("irvine")
	assert.Equal(t, "Eye Care Center of Orange County - Irvine", irvine["name"])
	assert.Equal(t, "Irvine", irvine["address"].(Object)["addressLocality"])
	assert.Equal(t, 33.6846, irvine["geo"].(Object)["latitude"])

	unknown := g.LocalBusiness("tustin")
	assert.Equal(t, 33.6189, unknown["geo"].(Object)["latitude"])
}

func TestMedicalServiceFallsBackToGeneral(t *testing.T) {
	g := New(testSite(), nil)
	assert.Equal(t, "Cataract Surgery", g.MedicalService(models.Page{URL: "/services/cataract-surgery"})["name"])
	assert.Equal(t, "Eye Care Services", g.MedicalService(models.Page{URL: "/services/lasik"})["name"])
	assert.Equal(t, "Macular Degeneration Treatment", g.MedicalService(models.Page{URL: "/x", Service: "macular-degeneration"})["name"])
}

func TestFAQPrefersPageQuestions(t *testing.T) {
	g := New(testSite(), nil)
	page := models.Page{
		URL:  "/services/macular-degeneration",
		FAQs: []models.FAQ{{Question: "Is AMD hereditary?", Answer: "It can run in families."}},
	}
	faq := g.FAQ(page)
	require.NotNil(t, faq)
	entities := faq["mainEntity"].([]Object)
	require.Len(t, entities, 1)
	assert.Equal(t, "Is AMD hereditary?", entities[0]["name"])

	assert.Nil(t, g.FAQ(models.Page{URL: "/services/macular-degeneration"}))
}

func TestReviewsUseLoadedTestimonials(t *testing.T) {
	g := New(testSite(), nil)
	assert.Len(t, g.Reviews(models.Page{}), 2)

	g.SetReviews([]models.Testimonial{
		{Author: "Ana R.", Rating: 5, Text: "Great cataract care", Category: "cataract"},
		{Author: "Li W.", Rating: 4, Text: "Friendly staff", Category: "general"},
		{Author: "Max P.", Rating: 3, Text: "Good glaucoma follow-up", Category: "glaucoma"},
	})

	reviews := g.Reviews(models.Page{Category: "cataract"})
	require.Len(t, reviews, 2)
	assert.Equal(t, "Ana R.", reviews[0]["author"].(Object)["name"])

	rating := g.LocalBusiness("")["aggregateRating"].(Object)
	assert.Equal(t, "4.0", rating["ratingValue"])
	assert.Equal(t, "3", rating["reviewCount"])
}

func TestOpeningHours(t *testing.T) {
	specs := OpeningHours([]string{"Mo-Fr 08:00-17:00", "Sa 09:00-13:00", "bogus", "Xx 1-2"})
	require.Len(t, specs, 2)
	assert.Equal(t, []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}, specs[0]["dayOfWeek"])
	assert.Equal(t, "Saturday", specs[1]["dayOfWeek"])
	assert.Equal(t, "13:00", specs[1]["closes"])
}

func TestToJSONLD(t *testing.T) {
	g := New(testSite(), nil)
	out, err := ToJSONLD(g.GenerateForPage(models.Page{URL: "/contact"}))
	require.NoError(t, err)

	assert.Equal(t, 4, strings.Count(out, `<script type="application/ld+json">`))
	// slots are emitted in name order
	assert.Less(t, strings.Index(out, `"BreadcrumbList"`), strings.Index(out, `"ContactPage"`))
	assert.Less(t, strings.Index(out, `"ContactPage"`), strings.Index(out, `"MedicalOrganization"`))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		node Object
		err  string
	}{
		{"valid", Object{"@context": "https://schema.org", "@type": "Person"}, ""},
		{"missing context", Object{"@type": "Person"}, "@context"},
		{"missing type", Object{"@context": "https://schema.org"}, "@type"},
		{"wrong context", Object{"@context": "https://example.org", "@type": "Person"}, "schema.org"},
		{"nil", nil, "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.node)
			if tt.err == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestValidateAllCombinesErrors(t *testing.T) {
	err := ValidateAll(Schemas{
		"a":       Object{"@type": "X"},
		"reviews": []Object{{"@context": "https://schema.org"}},
		"bad":     42,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a: missing required field: @context")
	assert.Contains(t, err.Error(), "reviews[0]: missing required field: @type")
	assert.Contains(t, err.Error(), "bad: unsupported")
}
