package models

import "time"

// Page represents a site page loaded from the pages directory or fetched from the live site
type Page struct {
	URL              string    `json:"url"`
	Path             string    `json:"path,omitempty"`
	Type             string    `json:"type"`
	Category         string    `json:"category"`
	Service          string    `json:"service,omitempty"`
	Location         string    `json:"location,omitempty"`
	Text             string    `json:"text,omitempty"`
	Links            []Link    `json:"links,omitempty"`
	MetaTitle        string    `json:"metaTitle"`
	MetaDescription  string    `json:"metaDescription"`
	Canonical        string    `json:"canonical,omitempty"`
	WordCount        int       `json:"wordCount"`
	ImagesMissingAlt int       `json:"imagesMissingAlt"`
	HasReviews       bool      `json:"hasReviews,omitempty"`
	FAQs             []FAQ     `json:"faqs,omitempty"`
	StatusCode       int       `json:"statusCode,omitempty"`
	ModifiedAt       time.Time `json:"modifiedAt"`
	PageRank         float64   `json:"pageRank,omitempty"`
}

// Link represents a hyperlink from one page to another
type Link struct {
	ToURL      string `json:"toUrl"`
	AnchorText string `json:"anchorText"`
}

// FAQ is a question/answer pair rendered on a page
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Testimonial is a patient review that can be rotated onto pages
type Testimonial struct {
	ID       string `json:"id"`
	Author   string `json:"author"`
	Text     string `json:"text"`
	Rating   int    `json:"rating"`
	Category string `json:"category"`
	Date     string `json:"date,omitempty"`
}

// Finding represents an SEO issue or observation
type Finding struct {
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Details     string `json:"details,omitempty"`
}

// Recommendation represents an actionable SEO improvement
type Recommendation struct {
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Action      string `json:"action"`
	Impact      string `json:"impact,omitempty"`
	Effort      string `json:"effort,omitempty"`
}
