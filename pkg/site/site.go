// Package site reads the static site's pages and data files and maintains
// dynamic-content.json, the file the front-end reads for rotated
// testimonials, JSON-LD, meta overrides, seasonal slots and related links.
package site

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/extractor"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/schema"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

// Data files under the data directory
const (
	TestimonialsFile   = "testimonials.json"
	DynamicContentFile = "dynamic-content.json"
)

// Slot is one seasonal content slot (hero, health topic, promotion, ...)
type Slot struct {
	Type        string    `json:"type"`
	Content     any       `json:"content"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PageContent holds the automation-managed fragments of one page
type PageContent struct {
	Testimonials    []models.Testimonial `json:"testimonials,omitempty"`
	JSONLD          string               `json:"jsonLd,omitempty"`
	SchemaTypes     []string             `json:"schemaTypes,omitempty"`
	MetaTitle       string               `json:"metaTitle,omitempty"`
	MetaDescription string               `json:"metaDescription,omitempty"`
	MetaKeywords    string               `json:"metaKeywords,omitempty"`
	RelatedLinks    []models.Link        `json:"relatedLinks,omitempty"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// GeneratedPage records a service/location page created by the automation
type GeneratedPage struct {
	URL       string    `json:"url"`
	Path      string    `json:"path"`
	Service   string    `json:"service"`
	Location  string    `json:"location"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"createdAt"`
}

// DynamicContent is the document stored in dynamic-content.json
type DynamicContent struct {
	UpdatedAt      time.Time               `json:"updatedAt"`
	Season         string                  `json:"season,omitempty"`
	Slots          map[string]Slot         `json:"slots"`
	Pages          map[string]*PageContent `json:"pages"`
	GeneratedPages []GeneratedPage         `json:"generatedPages"`
}

// Page returns the managed content for url, creating it if needed
func (dc *DynamicContent) Page(url string) *PageContent {
	if dc.Pages == nil {
		dc.Pages = make(map[string]*PageContent)
	}
	pc, ok := dc.Pages[url]
	if !ok || pc == nil {
		pc = &PageContent{}
		dc.Pages[url] = pc
	}
	return pc
}

// HasGenerated reports whether url was generated before
func (dc *DynamicContent) HasGenerated(url string) bool {
	for _, gp := range dc.GeneratedPages {
		if gp.URL == url {
			return true
		}
	}
	return false
}

// Repository gives access to the site's pages and data files
type Repository struct {
	fs       afero.Fs
	pagesDir string
	dataDir  string
	baseURL  string
	ext      *extractor.Extractor
	log      *logger.Logger
}

// New creates a Repository
func New(fsys afero.Fs, pagesDir, dataDir, baseURL string, log *logger.Logger) *Repository {
	if log == nil {
		log = logger.Nop()
	}
	return &Repository{
		fs:       fsys,
		pagesDir: pagesDir,
		dataDir:  dataDir,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		ext:      extractor.New(),
		log:      log,
	}
}

// BaseURL returns the site's base URL without a trailing slash
func (r *Repository) BaseURL() string {
	return r.baseURL
}

// Pages parses every .html file under the pages directory. Files that fail
// to parse are logged and skipped. A missing directory yields no pages.
func (r *Repository) Pages() ([]models.Page, error) {
	if ok, _ := afero.DirExists(r.fs, r.pagesDir); !ok {
		r.log.Warn("Pages directory not found", map[string]string{"dir": r.pagesDir})
		return nil, nil
	}

	var pages []models.Page
	err := afero.Walk(r.fs, r.pagesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".html") {
			return nil
		}

		rel, err := filepath.Rel(r.pagesDir, path)
		if err != nil {
			return err
		}
		page, perr := r.loadPage(path, rel, info.ModTime())
		if perr != nil {
			r.log.Error(fmt.Sprintf("Failed to parse page %s", rel), perr)
			return nil
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", r.pagesDir, err)
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].URL < pages[j].URL })
	return pages, nil
}

func (r *Repository) loadPage(path, rel string, modTime time.Time) (models.Page, error) {
	raw, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return models.Page{}, err
	}

	urlPath := URLForFile(rel)
	doc, err := r.ext.Parse(string(raw), r.baseURL+urlPath)
	if err != nil {
		return models.Page{}, err
	}

	pageType, category, service, location := Classify(urlPath)
	return models.Page{
		URL:              urlPath,
		Path:             path,
		Type:             pageType,
		Category:         category,
		Service:          service,
		Location:         location,
		Text:             doc.Text,
		Links:            doc.Links,
		MetaTitle:        doc.Title,
		MetaDescription:  doc.MetaDescription,
		Canonical:        doc.Canonical,
		WordCount:        doc.WordCount,
		ImagesMissingAlt: doc.ImagesMissingAlt,
		HasReviews:       strings.Contains(strings.ToLower(string(raw)), "testimonial"),
		StatusCode:       200,
		ModifiedAt:       modTime.UTC(),
	}, nil
}

// URLForFile maps a path relative to the pages directory to a site URL path:
// index.html is "/", services/index.html is "/services", about.html is "/about".
func URLForFile(rel string) string {
	rel = filepath.ToSlash(strings.TrimSuffix(rel, ".html"))
	if rel == "index" {
		return "/"
	}
	return "/" + strings.Trim(strings.TrimSuffix(rel, "/index"), "/")
}

// FileForURL is the inverse of URLForFile for generated pages
func (r *Repository) FileForURL(urlPath string) string {
	urlPath = strings.Trim(urlPath, "/")
	if urlPath == "" {
		return filepath.Join(r.pagesDir, "index.html")
	}
	return filepath.Join(r.pagesDir, filepath.FromSlash(urlPath)+".html")
}

// Classify derives page type, testimonial category, service and location
// slugs from a URL path
func Classify(urlPath string) (pageType, category, service, location string) {
	pageType = schema.DetectPageType(urlPath)
	category = "general"

	segs := strings.Split(strings.Trim(urlPath, "/"), "/")
	switch {
	case len(segs) >= 2 && segs[0] == "services":
		service = segs[1]
		category, _, _ = strings.Cut(service, "-")
		if len(segs) >= 3 {
			location = segs[2]
		}
	case len(segs) >= 2 && segs[0] == "locations":
		location = segs[1]
	}
	return pageType, category, service, location
}

// Exists reports whether a page file exists for urlPath
func (r *Repository) Exists(urlPath string) bool {
	ok, err := afero.Exists(r.fs, r.FileForURL(urlPath))
	return err == nil && ok
}

// Testimonials loads testimonials.json. A missing or unreadable file is
// logged and yields no testimonials.
func (r *Repository) Testimonials() []models.Testimonial {
	var out []models.Testimonial
	data, err := afero.ReadFile(r.fs, filepath.Join(r.dataDir, TestimonialsFile))
	if err == nil {
		err = json.Unmarshal(data, &out)
	}
	if err != nil {
		r.log.Warn("Could not load testimonials file, using empty array", err)
		return []models.Testimonial{}
	}
	return out
}

// LoadDynamic reads dynamic-content.json; a missing file is an empty document
func (r *Repository) LoadDynamic() (*DynamicContent, error) {
	dc := &DynamicContent{
		Slots: make(map[string]Slot),
		Pages: make(map[string]*PageContent),
	}

	data, err := afero.ReadFile(r.fs, filepath.Join(r.dataDir, DynamicContentFile))
	if err != nil {
		if store.IsNotExist(err) {
			return dc, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", DynamicContentFile, err)
	}
	if err := json.Unmarshal(data, dc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", DynamicContentFile, err)
	}
	if dc.Slots == nil {
		dc.Slots = make(map[string]Slot)
	}
	if dc.Pages == nil {
		dc.Pages = make(map[string]*PageContent)
	}
	for url, pc := range dc.Pages {
		if pc == nil {
			delete(dc.Pages, url)
		}
	}
	return dc, nil
}

// SaveDynamic atomically writes dynamic-content.json
func (r *Repository) SaveDynamic(dc *DynamicContent, now time.Time) error {
	dc.UpdatedAt = now.UTC()
	data, err := json.MarshalIndent(dc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", DynamicContentFile, err)
	}
	return store.WriteFileAtomic(r.fs, filepath.Join(r.dataDir, DynamicContentFile), data)
}
