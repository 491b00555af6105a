// Package seasonal selects season-specific marketing content for the site:
// hero messages, health topics, promotions, styling, and blog/social ideas.
package seasonal

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/amosWeiskopf/seoautomation/pkg/logger"
)

// Season is one of four fixed calendar ranges
type Season string

const (
	Winter Season = "winter"
	Spring Season = "spring"
	Summer Season = "summer"
	Fall   Season = "fall"
)

// Seasons lists every season in calendar order starting with winter
var Seasons = []Season{Winter, Spring, Summer, Fall}

// ParseSeason returns the season named s
func ParseSeason(s string) (Season, error) {
	for _, season := range Seasons {
		if string(season) == s {
			return season, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// SeasonFor maps a calendar date to its season. Boundaries are the same
// every year: winter 12/21-3/19, spring 3/20-6/20, summer 6/21-9/21,
// fall 9/22-12/20.
func SeasonFor(month time.Month, day int) Season {
	switch {
	case month == time.December && day >= 21,
		month == time.January, month == time.February,
		month == time.March && day < 20:
		return Winter
	case month == time.March,
		month == time.April, month == time.May,
		month == time.June && day < 21:
		return Spring
	case month == time.June,
		month == time.July, month == time.August,
		month == time.September && day < 22:
		return Summer
	default:
		return Fall
	}
}

// Update kinds produced by GetSeasonalUpdates
const (
	KindHeroMessage = "hero_message"
	KindHealthTopic = "health_topic"
	KindPromotion   = "promotion"
	KindStyling     = "styling"
	KindBlogContent = "blog_content"
	KindSocialMedia = "social_media"
)

// Update describes one content slot to refresh
type Update struct {
	Type        string `json:"type"`
	Target      string `json:"target"`
	Content     any    `json:"content"`
	Description string `json:"description"`
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// FixedPicker always picks the same index, clamped to the range
type FixedPicker int

// Intn implements Picker
func (f FixedPicker) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}

// Health is the manager's health report
type Health struct {
	Status        string   `json:"status"`
	CurrentSeason Season   `json:"currentSeason"`
	LastUpdate    string   `json:"lastUpdate,omitempty"`
	SeasonsLoaded []string `json:"seasonsLoaded"`
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPicker overrides the hero message picker
func WithPicker(p Picker) Option {
	return func(m *Manager) { m.picker = p }
}

// WithSeed seeds the default picker; zero keeps a time-based seed
func WithSeed(seed int64) Option {
	return func(m *Manager) {
		if seed != 0 {
			m.picker = rand.New(rand.NewSource(seed))
		}
	}
}

// Manager serves the static seasonal catalog for the current date
type Manager struct {
	log    *logger.Logger
	now    func() time.Time
	picker Picker

	mu         sync.Mutex
	current    Season
	lastUpdate time.Time
}

// NewManager creates a Manager
func NewManager(log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		log: log,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.picker == nil {
		m.picker = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	return m
}

// Initialize caches the season for the current date
func (m *Manager) Initialize() {
	season := m.detect()

	m.mu.Lock()
	m.current = season
	m.mu.Unlock()

	m.log.Info(fmt.Sprintf("Seasonal Content Manager initialized for %s season", season))
}

func (m *Manager) detect() Season {
	now := m.now()
	return SeasonFor(now.Month(), now.Day())
}

// CurrentSeason returns the cached season, detecting it if Initialize was not called
func (m *Manager) CurrentSeason() Season {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == "" {
		m.current = m.detect()
	}
	return m.current
}

func (m *Manager) target(season Season) Season {
	if season == "" {
		return m.CurrentSeason()
	}
	return season
}

// GetSeasonalUpdates returns the update descriptors for season, or for the
// current season when season is empty. An unknown season yields none.
func (m *Manager) GetSeasonalUpdates(season Season) []Update {
	season = m.target(season)
	bundle, ok := catalog[season]
	if !ok {
		m.log.Warn(fmt.Sprintf("No content found for season: %s", season))
		return nil
	}

	updates := make([]Update, 0, 3+len(bundle.HealthTopics)+len(bundle.Promotions))
	updates = append(updates, Update{
		Type:        KindHeroMessage,
		Target:      "homepage_hero",
		Content:     m.pick(bundle.HeroMessages),
		Description: fmt.Sprintf("Updated hero message for %s season", season),
	})

	for i, topic := range bundle.HealthTopics {
		updates = append(updates, Update{
			Type:        KindHealthTopic,
			Target:      fmt.Sprintf("health_topic_%d", i+1),
			Content:     topic,
			Description: "Updated health topic: " + topic.Title,
		})
	}

	for i, promo := range m.ActivePromotions(season) {
		updates = append(updates, Update{
			Type:        KindPromotion,
			Target:      fmt.Sprintf("promotion_%d", i+1),
			Content:     promo,
			Description: "Updated promotion: " + promo.Title,
		})
	}

	updates = append(updates,
		Update{
			Type:        KindStyling,
			Target:      "seasonal_styling",
			Content:     Styling{Colors: m.Colors(season), Images: m.Images(season)},
			Description: fmt.Sprintf("Updated styling for %s season", season),
		},
		Update{
			Type:        KindBlogContent,
			Target:      "blog_suggestions",
			Content:     BlogSuggestions(season),
			Description: fmt.Sprintf("Blog content suggestions for %s", season),
		},
		Update{
			Type:        KindSocialMedia,
			Target:      "social_content",
			Content:     SocialContent(season),
			Description: fmt.Sprintf("Social media content for %s", season),
		},
	)
	return updates
}

func (m *Manager) pick(items []string) string {
	if len(items) == 0 {
		return ""
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return items[m.picker.Intn(len(items))]
}

// CurrentPromotion returns the first promotion of season that has not expired
func (m *Manager) CurrentPromotion(season Season) (Promotion, bool) {
	active := m.ActivePromotions(season)
	if len(active) == 0 {
		return Promotion{}, false
	}
	return active[0], true
}

// ActivePromotions returns the promotions of season that have not expired,
// in catalog order
func (m *Manager) ActivePromotions(season Season) []Promotion {
	bundle, ok := catalog[m.target(season)]
	if !ok {
		return nil
	}

	now := m.now()
	var active []Promotion
	for _, promo := range bundle.Promotions {
		if m.promotionActive(promo, now) {
			active = append(active, promo)
		}
	}
	return active
}

// promotionActive reports whether promo has no expiry or now is before the
// expiry date. An unparsable expiry is treated as expired.
func (m *Manager) promotionActive(promo Promotion, now time.Time) bool {
	if promo.Expires == "" {
		return true
	}
	expires, err := time.Parse("2006-01-02", promo.Expires)
	if err != nil {
		m.log.Warn("Invalid promotion expiry", map[string]string{"title": promo.Title, "expires": promo.Expires})
		return false
	}
	return now.Before(expires)
}

// NeedsSeasonalUpdate reports whether the season changed since the cached
// value, or more than 30 days have passed since the last completed update.
// A detected change is cached.
func (m *Manager) NeedsSeasonalUpdate() bool {
	detected := m.detect()

	m.mu.Lock()
	defer m.mu.Unlock()

	if detected != m.current {
		m.log.Info(fmt.Sprintf("Season changed from %s to %s", m.current, detected))
		m.current = detected
		return true
	}
	if !m.lastUpdate.IsZero() && m.now().Sub(m.lastUpdate) > 30*24*time.Hour {
		return true
	}
	return false
}

// MarkUpdateCompleted records the time of the last applied update
func (m *Manager) MarkUpdateCompleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUpdate = m.now().UTC()
}

// RestoreLastUpdate seeds the last update time from persisted content. It
// never moves the recorded time backwards.
func (m *Manager) RestoreLastUpdate(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.lastUpdate) {
		m.lastUpdate = t.UTC()
	}
}

// LastUpdate returns when MarkUpdateCompleted last ran
func (m *Manager) LastUpdate() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUpdate
}

// MetaTags returns the seasonal meta values, falling back to spring
func (m *Manager) MetaTags(season Season) MetaTags {
	if tags, ok := metaTags[m.target(season)]; ok {
		return tags
	}
	return metaTags[Spring]
}

// Colors returns the seasonal palette, or the default one when the season
// has none
func (m *Manager) Colors(season Season) []string {
	if bundle, ok := catalog[m.target(season)]; ok && len(bundle.Styling.Colors) > 0 {
		return bundle.Styling.Colors
	}
	return defaultColors
}

// Images returns the seasonal images, or the default ones when the season
// has none
func (m *Manager) Images(season Season) []string {
	if bundle, ok := catalog[m.target(season)]; ok && len(bundle.Styling.Images) > 0 {
		return bundle.Styling.Images
	}
	return defaultImages
}

// BlogSuggestions returns the blog ideas for season
func BlogSuggestions(season Season) []BlogSuggestion {
	return blogSuggestions[season]
}

// SocialContent returns the social post ideas for season
func SocialContent(season Season) []SocialPost {
	return socialPosts[season]
}

// HealthCheck reports the cached season and catalog contents
func (m *Manager) HealthCheck() Health {
	season := m.CurrentSeason()
	loaded := make([]string, 0, len(catalog))
	for s := range catalog {
		loaded = append(loaded, string(s))
	}
	sort.Strings(loaded)

	h := Health{Status: "healthy", CurrentSeason: season, SeasonsLoaded: loaded}
	if last := m.LastUpdate(); !last.IsZero() {
		h.LastUpdate = last.Format(time.RFC3339)
	}
	return h
}
