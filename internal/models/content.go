package models

import "time"

// UpdateType tags the content refresh step that produced an Update
type UpdateType string

const (
	UpdateTestimonialRotation UpdateType = "testimonial_rotation"
	UpdateSeasonalContent     UpdateType = "seasonal_content"
	UpdateSchemaMarkup        UpdateType = "schema_markup"
	UpdateMetaTags            UpdateType = "meta_tags"
	UpdateNewPages            UpdateType = "new_pages"
	UpdateInternalLinking     UpdateType = "internal_linking"
)

// Update records the outcome of a single content refresh step
type Update struct {
	Type      UpdateType     `json:"type"`
	Count     int            `json:"count"`
	Season    string         `json:"season,omitempty"`
	Details   []UpdateDetail `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

// UpdateDetail describes one page or slot touched by a step
type UpdateDetail struct {
	Page        string   `json:"page,omitempty"`
	Target      string   `json:"target,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	Description string   `json:"description,omitempty"`
	Before      int      `json:"before,omitempty"`
	After       int      `json:"after,omitempty"`
	Items       []string `json:"items,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

// UpdateSummary holds per-run counters
type UpdateSummary struct {
	PagesUpdated           int `json:"pagesUpdated"`
	TestimonialsRotated    int `json:"testimonialsRotated"`
	SchemaUpdated          int `json:"schemaUpdated"`
	SeasonalContentUpdated int `json:"seasonalContentUpdated"`
	MetaTagsUpdated        int `json:"metaTagsUpdated"`
	LinksAdded             int `json:"linksAdded"`
}

// UpdateResult is the content-state snapshot written after a successful run
type UpdateResult struct {
	Timestamp time.Time     `json:"timestamp"`
	Success   bool          `json:"success"`
	Updates   []Update      `json:"updates"`
	Errors    []StepError   `json:"errors"`
	Summary   UpdateSummary `json:"summary"`
}

// StepError records a failed step inside an orchestration run
type StepError struct {
	Type      string    `json:"type"`
	Step      string    `json:"step,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStepError builds a StepError from err
func NewStepError(kind, step string, err error, at time.Time) StepError {
	return StepError{
		Type:      kind,
		Step:      step,
		Message:   err.Error(),
		Timestamp: at,
	}
}
