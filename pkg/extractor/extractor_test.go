package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seoautomation/internal/models"
)

const servicePage = `<!DOCTYPE html>
<html>
<head>
  <title>Cataract Surgery | Eye Care Center</title>
  <meta name="description" content="Advanced cataract surgery in Orange County.">
  <meta name="keywords" content="cataract surgery, orange county">
  <link rel="canonical" href="/services/cataract-surgery">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"MedicalProcedure"}</script>
</head>
<body>
  <nav><a href="/">Home</a> <a href="#main">Skip</a></nav>
  <main id="main">
    <h1>Cataract Surgery</h1>
    <p>Cataract surgery replaces the clouded natural lens with a clear artificial lens so patients can see clearly again.</p>
    <p>Call (949) 123-4567 or email info@eyecarecenteroc.com to schedule a consultation with our surgeons.</p>
    <img src="/images/lens.jpg">
    <img src="/images/surgeon.jpg" alt="Surgeon">
    <a href="/services/glaucoma-treatment">Glaucoma treatment</a>
    <a href="contact">Contact us</a>
    <a href="tel:+19491234567">Call</a>
  </main>
</body>
</html>`

func TestParse(t *testing.T) {
	doc, err := New().Parse(servicePage, "https://eyecarecenteroc.com/services/cataract-surgery")
	require.NoError(t, err)

	assert.Equal(t, "Cataract Surgery | Eye Care Center", doc.Title)
	assert.Equal(t, "Advanced cataract surgery in Orange County.", doc.MetaDescription)
	assert.Equal(t, "cataract surgery, orange county", doc.MetaKeywords)
	assert.Equal(t, "https://eyecarecenteroc.com/services/cataract-surgery", doc.Canonical)
	assert.Equal(t, []string{"Cataract Surgery"}, doc.H1)
	assert.Equal(t, 1, doc.ImagesMissingAlt)
	assert.True(t, doc.HasJSONLD)

	assert.Equal(t, []models.Link{
		{ToURL: "https://eyecarecenteroc.com/", AnchorText: "Home"},
		{ToURL: "https://eyecarecenteroc.com/services/glaucoma-treatment", AnchorText: "Glaucoma treatment"},
		{ToURL: "https://eyecarecenteroc.com/services/contact", AnchorText: "Contact us"},
	}, doc.Links)

	assert.Contains(t, doc.Text, "clouded natural lens")
	assert.Greater(t, doc.WordCount, 15)
}

func TestParseWithoutBaseKeepsPaths(t *testing.T) {
	doc, err := New().Parse(`<a href="/about#team">About</a>`, "")
	require.NoError(t, err)
	require.Len(t, doc.Links, 1)
	assert.Equal(t, "/about", doc.Links[0].ToURL)
}

func TestExtractMetadata(t *testing.T) {
	title, desc, err := New().ExtractMetadata(servicePage)
	require.NoError(t, err)
	assert.Equal(t, "Cataract Surgery | Eye Care Center", title)
	assert.Equal(t, "Advanced cataract surgery in Orange County.", desc)
}

func TestExtractContacts(t *testing.T) {
	e := New()
	assert.Equal(t, []string{"info@eyecarecenteroc.com"}, e.ExtractEmails(servicePage))
	assert.Contains(t, e.ExtractPhones("Call (949) 123-4567 or +1-949-123-4567"), "9491234567")
	assert.Len(t, e.ExtractPhones("Call (949) 123-4567 or +1-949-123-4567"), 1)
}

func TestDigitsOnly(t *testing.T) {
	assert.Equal(t, "9491234567", DigitsOnly("+1-949-123-4567"))
	assert.Equal(t, "9491234567", DigitsOnly("(949) 123.4567"))
}
