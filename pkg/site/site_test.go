package site

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seoautomation/internal/models"
)

func newTestRepo(t *testing.T) (*Repository, afero.Fs) {
	t.Helper()
	fsys := afero.NewMemMapFs()
	files := []struct{ name, body string }{
		{"/site/pages/index.html", `<html><head><title>Eye Care Center</title></head>
<body><p>Welcome to our practice.</p><div class="testimonials"></div>
<a href="/services/cataract-surgery">Cataract surgery</a></body></html>`},
		{"/site/pages/about.html", `<html><head><title>About</title></head><body><p>About us.</p></body></html>`},
		{"/site/pages/services/index.html", `<html><head><title>Services</title></head><body></body></html>`},
		{"/site/pages/services/cataract-surgery.html", `<html><head><title>Cataract Surgery</title><meta name="description" content="Cataract care."></head><body><img src="a.jpg"></body></html>`},
		{"/site/pages/services/glaucoma-treatment/irvine.html", `<html><head><title>Glaucoma Irvine</title></head><body></body></html>`},
		{"/site/pages/notes.txt", "not a page"},
	}
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fsys, f.name, []byte(f.body), 0o644))
	}
	return New(fsys, "/site/pages", "/site/data", "https://eyecarecenteroc.com/", nil), fsys
}

func TestPages(t *testing.T) {
	repo, _ := newTestRepo(t)

	pages, err := repo.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 5)

	var urls []string
	for _, p := range pages {
		urls = append(urls, p.URL)
	}
	assert.Equal(t, []string{"/", "/about", "/services", "/services/cataract-surgery", "/services/glaucoma-treatment/irvine"}, urls)

	home := pages[0]
	assert.Equal(t, "homepage", home.Type)
	assert.True(t, home.HasReviews)
	assert.Equal(t, "Eye Care Center", home.MetaTitle)
	require.Len(t, home.Links, 1)
	assert.Equal(t, "https://eyecarecenteroc.com/services/cataract-surgery", home.Links[0].ToURL)

	cataract := pages[3]
	assert.Equal(t, "service", cataract.Type)
	assert.Equal(t, "cataract", cataract.Category)
	assert.Equal(t, "cataract-surgery", cataract.Service)
	assert.Equal(t, "Cataract care.", cataract.MetaDescription)
	assert.Equal(t, 1, cataract.ImagesMissingAlt)

	irvine := pages[4]
	assert.Equal(t, "glaucoma", irvine.Category)
	assert.Equal(t, "irvine", irvine.Location)
}

func TestPagesMissingDir(t *testing.T) {
	repo := New(afero.NewMemMapFs(), "/nope", "/data", "https://x.test", nil)
	pages, err := repo.Pages()
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestURLMapping(t *testing.T) {
	tests := []struct{ file, url string }{
		{"index.html", "/"},
		{"about.html", "/about"},
		{"services/index.html", "/services"},
		{"services/cataract-surgery.html", "/services/cataract-surgery"},
		{"reindex.html", "/reindex"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.url, URLForFile(tt.file), tt.file)
	}

	repo, _ := newTestRepo(t)
	assert.Equal(t, "/site/pages/index.html", repo.FileForURL("/"))
	assert.Equal(t, "/site/pages/services/glaucoma-treatment/irvine.html", repo.FileForURL("/services/glaucoma-treatment/irvine"))
	assert.True(t, repo.Exists("/services/glaucoma-treatment/irvine"))
	assert.False(t, repo.Exists("/services/glaucoma-treatment/costa-mesa"))
}

func TestClassify(t *testing.T) {
	pageType, category, service, location := Classify("/locations/costa-mesa")
	assert.Equal(t, "location", pageType)
	assert.Equal(t, "general", category)
	assert.Empty(t, service)
	assert.Equal(t, "costa-mesa", location)
}

func TestTestimonials(t *testing.T) {
	repo, fsys := newTestRepo(t)
	assert.Empty(t, repo.Testimonials())

	require.NoError(t, afero.WriteFile(fsys, "/site/data/testimonials.json",
		[]byte(`[{"id":"t1","author":"Ana R.","text":"Great","rating":5,"category":"cataract"}]`), 0o644))
	got := repo.Testimonials()
	require.Len(t, got, 1)
	assert.Equal(t, "Ana R.", got[0].Author)

	require.NoError(t, afero.WriteFile(fsys, "/site/data/testimonials.json", []byte(`{broken`), 0o644))
	assert.Empty(t, repo.Testimonials())
}

func TestDynamicContentRoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)

	dc, err := repo.LoadDynamic()
	require.NoError(t, err)
	assert.Empty(t, dc.Pages)

	dc.Page("/").Testimonials = []models.Testimonial{{ID: "t1"}}
	dc.Slots["homepage_hero"] = Slot{Type: "hero_message", Content: "Hello"}
	dc.GeneratedPages = append(dc.GeneratedPages, GeneratedPage{URL: "/services/x/y"})
	now := time.Date(2026, 10, 18, 2, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SaveDynamic(dc, now))

	loaded, err := repo.LoadDynamic()
	require.NoError(t, err)
	assert.Equal(t, now, loaded.UpdatedAt)
	assert.Equal(t, "t1", loaded.Page("/").Testimonials[0].ID)
	assert.Equal(t, "Hello", loaded.Slots["homepage_hero"].Content)
	assert.True(t, loaded.HasGenerated("/services/x/y"))
	assert.False(t, loaded.HasGenerated("/services/x/z"))
}

func TestNullPageEntries(t *testing.T) {
	repo, fsys := newTestRepo(t)
	require.NoError(t, afero.WriteFile(fsys, "/site/data/dynamic-content.json",
		[]byte(`{"pages":{"/":null,"/about":{"testimonials":[{"id":"t2"}]}}}`), 0o644))

	dc, err := repo.LoadDynamic()
	require.NoError(t, err)
	assert.NotContains(t, dc.Pages, "/")
	assert.Equal(t, "t2", dc.Pages["/about"].Testimonials[0].ID)

	dc.Pages["/contact"] = nil
	pc := dc.Page("/contact")
	require.NotNil(t, pc)
	pc.MetaDescription = "Contact us"
	assert.Equal(t, "Contact us", dc.Pages["/contact"].MetaDescription)
}

func TestLoadDynamicCorrupt(t *testing.T) {
	repo, fsys := newTestRepo(t)
	require.NoError(t, afero.WriteFile(fsys, "/site/data/dynamic-content.json", []byte("nope"), 0o644))
	_, err := repo.LoadDynamic()
	assert.Error(t, err)
}

func TestWritePage(t *testing.T) {
	repo, _ := newTestRepo(t)

	path, err := repo.WritePage("/services/cataract-surgery/costa-mesa", PageData{
		Title:        "Cataract Surgery in Costa Mesa",
		Description:  "Cataract surgery for Costa Mesa patients <fast>",
		Canonical:    "https://eyecarecenteroc.com/services/cataract-surgery/costa-mesa",
		Heading:      "Cataract Surgery in Costa Mesa",
		Paragraphs:   []string{"First paragraph."},
		BusinessName: "Eye Care Center",
		Phone:        "+1-949-123-4567",
		RelatedLinks: []models.Link{{ToURL: "/services/cataract-surgery", AnchorText: "Cataract Surgery"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/site/pages/services/cataract-surgery/costa-mesa.html", path)

	body, err := repo.ReadPage("/services/cataract-surgery/costa-mesa")
	require.NoError(t, err)
	html := string(body)
	assert.Contains(t, html, "<title>Cataract Surgery in Costa Mesa</title>")
	assert.Contains(t, html, "&lt;fast&gt;")
	assert.Contains(t, html, `<a href="/services/cataract-surgery">Cataract Surgery</a>`)
	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))

	pages, err := repo.Pages()
	require.NoError(t, err)
	assert.Len(t, pages, 6)
}
