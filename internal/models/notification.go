package models

import "time"

// Notification types recorded by the search engine notifier
const (
	NotifySitemapUpdate = "sitemap_update"
	NotifyRobotsUpdate  = "robots_update"
	NotifyGoogle        = "google_submission"
	NotifyBing          = "bing_submission"
	NotifyIndexNow      = "indexnow_submission"
	NotifyYandex        = "yandex_submission"
	NotifyBaidu         = "baidu_submission"
)

// Notification is the outcome of one notifier step
type Notification struct {
	Type       string    `json:"type"`
	Success    bool      `json:"success"`
	Path       string    `json:"path,omitempty"`
	Outputs    []string  `json:"outputs,omitempty"`
	Size       int       `json:"size,omitempty"`
	SitemapURL string    `json:"sitemapUrl,omitempty"`
	URLCount   int       `json:"urlCount,omitempty"`
	URLs       []string  `json:"urls,omitempty"`
	StatusCode int       `json:"statusCode,omitempty"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// NotificationSummary flags which steps succeeded
type NotificationSummary struct {
	SitemapUpdated    bool `json:"sitemapUpdated"`
	RobotsUpdated     bool `json:"robotsUpdated"`
	GoogleNotified    bool `json:"googleNotified"`
	BingNotified      bool `json:"bingNotified"`
	IndexNowSubmitted bool `json:"indexNowSubmitted"`
	URLsSubmitted     int  `json:"urlsSubmitted"`
}

// NotificationResult is written to notification-state.json
type NotificationResult struct {
	Timestamp     time.Time           `json:"timestamp"`
	Success       bool                `json:"success"`
	Notifications []Notification      `json:"notifications"`
	Errors        []StepError         `json:"errors"`
	Summary       NotificationSummary `json:"summary"`
}
