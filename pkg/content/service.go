// Package content runs the content refresh cycle: testimonial rotation,
// seasonal slots, schema markup, meta tags, service/location page
// generation and internal linking.
package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/logger"
	"github.com/amosWeiskopf/seoautomation/pkg/schema"
	"github.com/amosWeiskopf/seoautomation/pkg/seasonal"
	"github.com/amosWeiskopf/seoautomation/pkg/site"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

// ErrorTypeGeneral tags a step failure that stopped the run
const ErrorTypeGeneral = "general_error"

// Options restricts a run
type Options struct {
	// Only runs the listed steps; empty runs every enabled step
	Only []models.UpdateType
	// Season overrides the detected season for the seasonal step
	Season seasonal.Season
}

func (o Options) wants(kind models.UpdateType) bool {
	if len(o.Only) == 0 {
		return true
	}
	for _, k := range o.Only {
		if k == kind {
			return true
		}
	}
	return false
}

// Health is the service's health report
type Health struct {
	Status     string         `json:"status"`
	LastUpdate *time.Time     `json:"lastUpdate"`
	Services   ServicesHealth `json:"services"`
}

// ServicesHealth reports the sub-services
type ServicesHealth struct {
	SchemaGenerator schema.Health   `json:"schemaGenerator"`
	SeasonalManager seasonal.Health `json:"seasonalManager"`
}

// Status summarizes the last successful run
type Status struct {
	LastUpdate          *time.Time            `json:"lastUpdate"`
	LastUpdateSummary   *models.UpdateSummary `json:"lastUpdateSummary"`
	NextScheduledUpdate string                `json:"nextScheduledUpdate"`
}

// Service is the ContentUpdateService
type Service struct {
	cfg      config.ContentUpdateConfig
	content  config.ContentConfig
	website  config.WebsiteConfig
	repo     *site.Repository
	schema   *schema.Generator
	seasonal *seasonal.Manager
	store    *store.Store
	log      *logger.Logger
	now      func() time.Time

	// run serializes PerformUpdate so dynamic-content.json has one writer
	run      sync.Mutex
	inflight sync.WaitGroup

	mu         sync.RWMutex
	lastUpdate *models.UpdateResult
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service from cfg and its collaborators
func New(cfg *config.Config, repo *site.Repository, gen *schema.Generator, mgr *seasonal.Manager, st *store.Store, log *logger.Logger, opts ...Option) *Service {
	if log == nil {
		log = logger.Nop()
	}
	s := &Service{
		cfg:      cfg.Automation.ContentUpdate,
		content:  cfg.Content,
		website:  cfg.Website,
		repo:     repo,
		schema:   gen,
		seasonal: mgr,
		store:    st,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.TestimonialsPerPage <= 0 {
		s.cfg.TestimonialsPerPage = 3
	}
	if s.cfg.LinksPerPage <= 0 {
		s.cfg.LinksPerPage = 3
	}
	return s
}

// Initialize loads the previous content state and prepares the sub-services
func (s *Service) Initialize(ctx context.Context) error {
	s.log.Info("Initializing Content Update Service")
	if err := ctx.Err(); err != nil {
		return err
	}

	s.loadContentState()
	s.schema.SetReviews(s.repo.Testimonials())
	s.seasonal.Initialize()
	s.restoreSeasonalState()

	s.log.Info("Content Update Service initialized")
	return nil
}

func (s *Service) loadContentState() {
	var state models.UpdateResult
	if err := s.store.ReadJSON(store.ContentStateFile, &state); err != nil {
		if !store.IsNotExist(err) {
			s.log.Warn("Could not load content state", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUpdate = &state
}

// restoreSeasonalState carries the last seasonal refresh time over from the
// saved dynamic content
func (s *Service) restoreSeasonalState() {
	dc, err := s.repo.LoadDynamic()
	if err != nil {
		s.log.Warn("Could not load dynamic content", err)
		return
	}
	if hero, ok := dc.Slots["homepage_hero"]; ok && dc.Season != "" {
		s.seasonal.RestoreLastUpdate(hero.UpdatedAt)
	}
}

type step struct {
	kind    models.UpdateType
	enabled bool
	run     func(ctx context.Context, r *runState) (models.Update, error)
}

// runState is shared by the steps of one PerformUpdate call
type runState struct {
	dc     *site.DynamicContent
	season seasonal.Season
	now    time.Time
}

func (s *Service) steps() []step {
	return []step{
		{models.UpdateTestimonialRotation, s.cfg.TestimonialRotation, s.rotateTestimonials},
		{models.UpdateSeasonalContent, s.cfg.SeasonalContent, s.updateSeasonalContent},
		{models.UpdateSchemaMarkup, true, s.updateSchemaMarkup},
		{models.UpdateMetaTags, true, s.updateMetaTags},
		{models.UpdateNewPages, true, s.generateNewPages},
		{models.UpdateInternalLinking, true, s.optimizeInternalLinking},
	}
}

// PerformUpdate runs the enabled steps in order. Each step saves its own
// changes, so a failing step leaves the earlier ones applied: the run stops,
// the failure is recorded in the result and returned, and content-state.json
// is left untouched. The result is never nil.
func (s *Service) PerformUpdate(ctx context.Context, opts Options) (*models.UpdateResult, error) {
	s.inflight.Add(1)
	defer s.inflight.Done()
	s.run.Lock()
	defer s.run.Unlock()

	timer := s.log.StartTimer("content update")
	s.log.Info("Starting content update process")

	start := s.now().UTC()
	result := &models.UpdateResult{
		Timestamp: start,
		Updates:   []models.Update{},
		Errors:    []models.StepError{},
	}

	season := opts.Season
	if season != "" {
		if _, err := seasonal.ParseSeason(string(season)); err != nil {
			return s.fail(result, "options", err)
		}
	}

	dc, err := s.repo.LoadDynamic()
	if err != nil {
		return s.fail(result, "load_dynamic_content", err)
	}
	rs := &runState{dc: dc, season: season, now: start}

	for _, st := range s.steps() {
		if !st.enabled || !opts.wants(st.kind) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return s.fail(result, string(st.kind), err)
		}

		update, err := st.run(ctx, rs)
		if err != nil {
			return s.fail(result, string(st.kind), err)
		}
		update.Type = st.kind
		update.Timestamp = s.now().UTC()
		if update.Details == nil {
			update.Details = []models.UpdateDetail{}
		}
		result.Updates = append(result.Updates, update)
		addToSummary(&result.Summary, update)
	}

	result.Success = true
	if err := s.store.WriteJSON(store.ContentStateFile, result); err != nil {
		result.Success = false
		return s.fail(result, "save_state", err)
	}

	s.mu.Lock()
	snapshot := *result
	s.lastUpdate = &snapshot
	s.mu.Unlock()

	timer.End()
	s.log.Info("Content update completed successfully", result.Summary)
	return result, nil
}

func (s *Service) fail(result *models.UpdateResult, stepName string, err error) (*models.UpdateResult, error) {
	s.log.Error("Content update failed", map[string]any{"step": stepName, "error": err.Error()})
	result.Success = false
	result.Errors = append(result.Errors, models.NewStepError(ErrorTypeGeneral, stepName, err, s.now().UTC()))
	return result, fmt.Errorf("content update failed at %s: %w", stepName, err)
}

func addToSummary(sum *models.UpdateSummary, u models.Update) {
	switch u.Type {
	case models.UpdateTestimonialRotation:
		sum.TestimonialsRotated = u.Count
	case models.UpdateSeasonalContent:
		sum.SeasonalContentUpdated = u.Count
	case models.UpdateSchemaMarkup:
		sum.SchemaUpdated = u.Count
	case models.UpdateMetaTags:
		sum.MetaTagsUpdated = u.Count
	case models.UpdateNewPages:
		sum.PagesUpdated = u.Count
	case models.UpdateInternalLinking:
		for _, d := range u.Details {
			sum.LinksAdded += len(d.Items)
		}
	}
}

// LastUpdate returns the last successful run, or nil
func (s *Service) LastUpdate() *models.UpdateResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastUpdate == nil {
		return nil
	}
	snapshot := *s.lastUpdate
	return &snapshot
}

// HealthCheck reports the service and its sub-services
func (s *Service) HealthCheck() Health {
	h := Health{
		Status: "healthy",
		Services: ServicesHealth{
			SchemaGenerator: s.schema.HealthCheck(),
			SeasonalManager: s.seasonal.HealthCheck(),
		},
	}
	if last := s.LastUpdate(); last != nil {
		ts := last.Timestamp
		h.LastUpdate = &ts
	}
	return h
}

// Status summarizes the last run and the configured schedule
func (s *Service) Status() Status {
	st := Status{NextScheduledUpdate: s.cfg.Schedule}
	if last := s.LastUpdate(); last != nil {
		ts := last.Timestamp
		sum := last.Summary
		st.LastUpdate = &ts
		st.LastUpdateSummary = &sum
	}
	return st
}

// Shutdown waits for a running update to finish
func (s *Service) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down Content Update Service")
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
