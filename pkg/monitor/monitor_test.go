package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/store"
)

var testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)

// fakeRankings serves positions from a mutable table
type fakeRankings struct {
	positions map[string]int
	failing   map[string]error
}

func (f *fakeRankings) Name() string { return "fake" }

func (f *fakeRankings) Ranking(ctx context.Context, keyword string) (Position, error) {
	if err := f.failing[keyword]; err != nil {
		return Position{}, err
	}
	return Position{Position: f.positions[keyword], URL: "/"}, ctx.Err()
}

type brokenGoals struct{ SampleAnalytics }

func (brokenGoals) Goals(context.Context) ([]models.Goal, error) {
	return nil, errors.New("analytics quota exceeded")
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Website.Domain = "eyecare.example"
	cfg.Keywords = config.KeywordsConfig{
		Primary:   []string{"eye doctor orange county"},
		Secondary: []string{"ophthalmologist orange county"},
		Local:     []string{"cataract surgery orange county"},
	}
	cfg.Automation.PerformanceMonitoring.AlertThreshold = 20
	cfg.Automation.PerformanceMonitoring.Enabled = true
	return cfg
}

func newService(t *testing.T, st *store.Store, rankings RankingProvider, analytics AnalyticsProvider) *Service {
	t.Helper()
	s := New(testConfig(), rankings, analytics, st, nil, WithClock(func() time.Time { return testNow }))
	require.NoError(t, s.Initialize(context.Background()))
	return s
}

func newStore() *store.Store {
	return store.New(afero.NewMemMapFs(), "/reports")
}

func TestCheckKeywordRankingFirstCheck(t *testing.T) {
	s := newService(t, newStore(), nil, nil)

	data, err := s.CheckKeywordRanking(context.Background(), "eye doctor orange county")
	require.NoError(t, err)

	assert.Equal(t, 3, data.CurrentPosition)
	assert.Nil(t, data.PreviousPosition)
	assert.Equal(t, 0, data.Change)
	assert.Equal(t, 1200, data.SearchVolume)

	raw, err := json.Marshal(data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"previousPosition":null`)
}

func TestCheckKeywordRankingChange(t *testing.T) {
	provider := &fakeRankings{positions: map[string]int{"lasik": 4}}
	s := newService(t, newStore(), provider, nil)
	ctx := context.Background()

	_, err := s.CheckKeywordRanking(ctx, "lasik")
	require.NoError(t, err)

	provider.positions["lasik"] = 13
	data, err := s.CheckKeywordRanking(ctx, "lasik")
	require.NoError(t, err)
	require.NotNil(t, data.PreviousPosition)
	assert.Equal(t, 4, *data.PreviousPosition)
	assert.Equal(t, -9, data.Change)

	alerts := RankingAlerts(data, testNow)
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertRankingDrop, alerts[0].Type)
	assert.Equal(t, "Ranking dropped by 9 positions", alerts[0].Message)
	assert.Equal(t, models.AlertFirstPageLoss, alerts[1].Type)
	assert.Equal(t, 13, alerts[1].CurrentPosition)
}

func TestStaticRankingsFallbackIsSeeded(t *testing.T) {
	a := NewStaticRankings(nil, 42)
	b := NewStaticRankings(nil, 42)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		pa, err := a.Ranking(ctx, "pediatric eye exam")
		require.NoError(t, err)
		pb, _ := b.Ranking(ctx, "pediatric eye exam")
		assert.Equal(t, pa, pb)
		assert.GreaterOrEqual(t, pa.Position, 1)
		assert.LessOrEqual(t, pa.Position, 50)
	}
}

func TestRankingAlerts(t *testing.T) {
	intp := func(v int) *int { return &v }

	tests := []struct {
		name  string
		data  models.RankingData
		types []string
	}{
		{"first check", models.RankingData{CurrentPosition: 30}, nil},
		{"drop of five", models.RankingData{CurrentPosition: 8, PreviousPosition: intp(3), Change: -5}, nil},
		{"drop of six", models.RankingData{CurrentPosition: 9, PreviousPosition: intp(3), Change: -6}, []string{models.AlertRankingDrop}},
		{"off first page", models.RankingData{CurrentPosition: 11, PreviousPosition: intp(10), Change: -1}, []string{models.AlertFirstPageLoss}},
		{"already off first page", models.RankingData{CurrentPosition: 15, PreviousPosition: intp(12), Change: -3}, nil},
		{"improved", models.RankingData{CurrentPosition: 2, PreviousPosition: intp(9), Change: 7}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var types []string
			for _, a := range RankingAlerts(tt.data, testNow) {
				types = append(types, a.Type)
				assert.Equal(t, models.SeverityHigh, a.Severity)
			}
			assert.Equal(t, tt.types, types)
		})
	}
}

func TestTrafficAnomalies(t *testing.T) {
	tests := []struct {
		name     string
		previous int
		current  int
		severity models.Severity
		message  string
	}{
		{"within threshold", 1000, 1150, "", ""},
		{"exactly threshold", 1000, 1200, "", ""},
		{"medium increase", 1000, 1300, models.SeverityMedium, "Traffic increased by 30.0%"},
		{"high decrease", 1000, 500, models.SeverityHigh, "Traffic decreased by 50.0%"},
		{"no previous", 0, 1300, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := TrafficAnomalies(tt.previous, tt.current, 20, testNow)
			if tt.severity == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertTrafficAnomaly, alerts[0].Type)
			assert.Equal(t, tt.severity, alerts[0].Severity)
			assert.Equal(t, tt.message, alerts[0].Message)
		})
	}
}

func TestConversionAlerts(t *testing.T) {
	assert.Empty(t, ConversionAlerts(models.ConversionSummary{ChangeFromPrevious: -20}, testNow))

	alerts := ConversionAlerts(models.ConversionSummary{ChangeFromPrevious: -25.5}, testNow)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertConversionDrop, alerts[0].Type)
	assert.Equal(t, "Conversion rate dropped by 25.5%", alerts[0].Message)
}

func TestRecommendations(t *testing.T) {
	recs := Recommendations(
		models.RankingSummary{Improved: 1, Declined: 4},
		models.TrafficMetrics{BounceRate: 0.65},
		models.ConversionSummary{ConversionRate: 0.01},
	)
	require.Len(t, recs, 3)
	assert.Equal(t, "seo_optimization", recs[0].Type)
	assert.Equal(t, "user_experience", recs[1].Type)
	assert.Equal(t, "conversion_optimization", recs[2].Type)

	assert.Empty(t, Recommendations(
		models.RankingSummary{Improved: 2, Declined: 2},
		models.TrafficMetrics{BounceRate: 0.6},
		models.ConversionSummary{ConversionRate: 0.02},
	))
}

func TestCheckRankingsPersistsAndSurvivesRestart(t *testing.T) {
	st := newStore()
	ctx := context.Background()

	first := newService(t, st, nil, nil)
	result, err := first.CheckRankings(ctx)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Summary.TotalKeywords)
	assert.Equal(t, 3, result.Summary.NewRankings)
	assert.Equal(t, 3, result.Summary.FirstPage)
	assert.Equal(t, 3.3, result.Summary.AveragePosition)
	assert.Contains(t, result.Insights, "3 of 3 keywords rank on the first page")

	// a fresh process reads the previous positions back from rankings.json
	second := newService(t, st, nil, nil)
	data, err := second.CheckKeywordRanking(ctx, "cataract surgery orange county")
	require.NoError(t, err)
	require.NotNil(t, data.PreviousPosition)
	assert.Equal(t, 2, *data.PreviousPosition)
	assert.Equal(t, 0, data.Change)

	history, err := store.All[models.RankingResult](st, store.RankingsFile)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	assert.Equal(t, 3, second.Status().TrackedKeywords)
}

func TestFailedSaveKeepsPreviousPositions(t *testing.T) {
	provider := &fakeRankings{positions: map[string]int{"eye doctor orange county": 4}}
	ctx := context.Background()

	good := newStore()
	s := newService(t, good, provider, nil)
	_, err := s.CheckRankings(ctx)
	require.NoError(t, err)

	// history can no longer be written
	s.store = store.New(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/reports")
	provider.positions["eye doctor orange county"] = 9
	result, err := s.CheckRankings(ctx)
	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "store_rankings", result.Errors[len(result.Errors)-1].Step)

	s.store = good
	provider.positions["eye doctor orange county"] = 6
	data, err := s.CheckKeywordRanking(ctx, "eye doctor orange county")
	require.NoError(t, err)
	require.NotNil(t, data.PreviousPosition)
	assert.Equal(t, 4, *data.PreviousPosition)
	assert.Equal(t, -2, data.Change)
}

func TestCheckRankingsSkipsFailedKeyword(t *testing.T) {
	provider := &fakeRankings{
		positions: map[string]int{"eye doctor orange county": 4, "cataract surgery orange county": 7},
		failing:   map[string]error{"ophthalmologist orange county": errors.New("rate limited")},
	}
	s := newService(t, newStore(), provider, nil)

	result, err := s.CheckRankings(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.Keywords, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrorTypeRanking, result.Errors[0].Type)
	assert.Equal(t, "ophthalmologist orange county", result.Errors[0].Step)
}

func TestCheckRankingsCanceled(t *testing.T) {
	s := newService(t, newStore(), nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.CheckRankings(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.False(t, s.store.Exists(store.RankingsFile))
}

func TestAnalyzeTrafficComparesStoredSnapshot(t *testing.T) {
	st := newStore()
	_, err := store.AppendCapped(st, store.TrafficFile, models.TrafficResult{
		Metrics: models.TrafficMetrics{Sessions: 10000, OrganicSessions: 8920, BounceRate: 0.42, AvgSessionDuration: 185},
	}, store.MetricsCap)
	require.NoError(t, err)

	s := newService(t, st, nil, nil)
	result, err := s.AnalyzeTraffic(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.Period{Start: "2026-01-31", End: "2026-03-02"}, result.Period)
	assert.Equal(t, 54.2, result.Trends.SessionsGrowth)
	assert.Equal(t, 0.0, result.Trends.OrganicGrowth)
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, models.SeverityHigh, result.Alerts[0].Severity)
	assert.Equal(t, "Traffic increased by 54.2%", result.Alerts[0].Message)
	assert.Equal(t, "eyecare.example", result.Alerts[0].Website)
	assert.Len(t, result.Segments.Sources, 5)

	history, err := store.All[models.TrafficResult](st, store.TrafficFile)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestMonitorConversions(t *testing.T) {
	s := newService(t, newStore(), nil, nil)
	ctx := context.Background()

	first, err := s.MonitorConversions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 247, first.Summary.TotalConversions)
	assert.Equal(t, 13040.0, first.Summary.Revenue)
	assert.Equal(t, 0.0533, first.Summary.ConversionRate)
	assert.Equal(t, 5.0, first.Summary.ChangeFromPrevious)
	assert.Empty(t, first.Alerts)
	assert.Len(t, first.Funnels, 1)

	second, err := s.MonitorConversions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, second.Summary.ChangeFromPrevious)
}

func TestFullAnalysis(t *testing.T) {
	st := newStore()
	s := newService(t, st, nil, nil)

	result, err := s.FullAnalysis(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Success)
	require.NotNil(t, result.Rankings)
	require.NotNil(t, result.Traffic)
	require.NotNil(t, result.Conversions)
	assert.Equal(t, 0.578, result.Correlations.OrganicTrafficShare)
	assert.Equal(t, 0.0, result.Correlations.RankingTrafficCorrelation)
	assert.Empty(t, result.Recommendations)
	assert.Empty(t, result.Alerts)

	for _, name := range []string{store.RankingsFile, store.TrafficFile, store.ConversionsFile, store.FullAnalysisFile} {
		assert.True(t, st.Exists(name), name)
	}
}

func TestFullAnalysisReportsFailedCheck(t *testing.T) {
	st := newStore()
	s := newService(t, st, nil, brokenGoals{})

	result, err := s.FullAnalysis(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analytics quota exceeded")
	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "conversions", result.Errors[0].Step)
	assert.NotNil(t, result.Rankings)
	assert.False(t, st.Exists(store.FullAnalysisFile))
}

func TestPearson(t *testing.T) {
	assert.Equal(t, 1.0, pearson([]float64{1, 2, 3, 4}, []float64{10, 20, 30, 40}))
	assert.Equal(t, -1.0, pearson([]float64{1, 2, 3}, []float64{3, 2, 1}))
	assert.Equal(t, 0.0, pearson([]float64{1, 2}, []float64{1, 2}))
	assert.Equal(t, 0.0, pearson([]float64{5, 5, 5}, []float64{1, 2, 3}))
}

func TestSerpAPIRankings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("q") == "unranked" {
			w.Write([]byte(`{"organic_results":[{"position":1,"link":"https://other.example/"}]}`))
			return
		}
		w.Write([]byte(`{"organic_results":[
			{"position":1,"link":"https://other.example/"},
			{"position":4,"link":"https://www.eyecare.example/services/lasik"}
		]}`))
	}))
	defer server.Close()

	p := NewSerpAPIRankings(config.SerpAPIConfig{APIKey: "secret", Endpoint: server.URL}, "eyecare.example", 100, nil)

	pos, err := p.Ranking(context.Background(), "lasik orange county")
	require.NoError(t, err)
	assert.Equal(t, 4, pos.Position)
	assert.Equal(t, "/services/lasik", pos.URL)

	_, err = p.Ranking(context.Background(), "unranked")
	assert.ErrorIs(t, err, ErrNotRanked)
}
