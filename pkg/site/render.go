package site

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/spf13/afero"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

// PageData feeds the generated service/location page template
type PageData struct {
	Title        string
	Description  string
	Keywords     string
	Canonical    string
	Heading      string
	Paragraphs   []string
	BusinessName string
	Phone        string
	JSONLD       template.HTML
	RelatedLinks []models.Link
}

var pageTemplate = template.Must(template.New("service-location").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <meta name="description" content="{{.Description}}">
  {{- if .Keywords}}
  <meta name="keywords" content="{{.Keywords}}">
  {{- end}}
  <link rel="canonical" href="{{.Canonical}}">
  {{.JSONLD}}
</head>
<body>
  <main>
    <h1>{{.Heading}}</h1>
    {{- range .Paragraphs}}
    <p>{{.}}</p>
    {{- end}}
    <section class="testimonials" data-dynamic="testimonials"></section>
    <p class="cta">Call {{.BusinessName}} at <a href="tel:{{.Phone}}">{{.Phone}}</a> to schedule a consultation.</p>
    {{- if .RelatedLinks}}
    <nav class="related">
      <ul>
      {{- range .RelatedLinks}}
        <li><a href="{{.ToURL}}">{{.AnchorText}}</a></li>
      {{- end}}
      </ul>
    </nav>
    {{- end}}
  </main>
</body>
</html>
`))

// RenderPage renders a generated service/location page
func RenderPage(data PageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

// WritePage renders data and writes it to the file backing urlPath.
// It returns the file path.
func (r *Repository) WritePage(urlPath string, data PageData) (string, error) {
	body, err := RenderPage(data)
	if err != nil {
		return "", err
	}
	path := r.FileForURL(urlPath)
	if err := store.WriteFileAtomic(r.fs, path, body); err != nil {
		return "", err
	}
	return path, nil
}

// ReadPage returns the raw HTML of the page at urlPath
func (r *Repository) ReadPage(urlPath string) ([]byte, error) {
	return afero.ReadFile(r.fs, r.FileForURL(urlPath))
}
