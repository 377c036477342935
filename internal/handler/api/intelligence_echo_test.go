package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"omniscient/internal/domain/models"
	icache "omniscient/internal/service/cache"
	"omniscient/internal/services/analytics"
	"omniscient/internal/usecase"
	"omniscient/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubStore struct {
	mu      sync.Mutex
	history map[string][]models.MarketStat
}

func newStubStore() *stubStore {
	return &stubStore{history: map[string][]models.MarketStat{}}
}

func (s *stubStore) seed(keyword, category string, values ...float64) {
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		s.history[keyword] = append(s.history[keyword], models.MarketStat{
			Keyword:         keyword,
			Category:        category,
			SellThroughRate: v,
			VolumeSold:      int(v * 10),
			ActiveListings:  1000,
			RecordedAt:      base.Add(time.Duration(i) * 24 * time.Hour),
		})
	}
}

func (s *stubStore) Init(context.Context) error { return nil }

func (s *stubStore) Store(_ context.Context, stat *models.MarketStat) error {
	return s.StoreBatch(context.Background(), []*models.MarketStat{stat})
}

func (s *stubStore) StoreBatch(_ context.Context, stats []*models.MarketStat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stat := range stats {
		s.history[stat.Keyword] = append(s.history[stat.Keyword], *stat)
	}
	return nil
}

func (s *stubStore) History(_ context.Context, keyword string, days int) ([]models.MarketStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.history[keyword]
	if len(rows) > days {
		rows = rows[len(rows)-days:]
	}
	out := make([]models.MarketStat, len(rows))
	copy(out, rows)
	return out, nil
}

func (s *stubStore) Rates(ctx context.Context, keyword string, days int) ([]float64, error) {
	rows, err := s.History(ctx, keyword, days)
	if err != nil {
		return nil, err
	}
	values := make([]float64, 0, len(rows))
	for _, r := range rows {
		values = append(values, r.SellThroughRate)
	}
	return values, nil
}

func (s *stubStore) Latest(_ context.Context, keyword string) (*models.MarketStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.history[keyword]
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[len(rows)-1]
	return &latest, nil
}

func (s *stubStore) Keywords(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.history))
	for k := range s.history {
		out = append(out, k)
	}
	return out, nil
}

func (s *stubStore) MarketDaily(_ context.Context, days int) ([]models.DailyAggregate, error) {
	return nil, nil
}

func (s *stubStore) Health(context.Context) error { return nil }
func (s *stubStore) Close() error                 { return nil }

type stubProbe struct {
	snaps map[string]*models.MarketSnapshot
}

func (p *stubProbe) Observe(_ context.Context, item models.WatchlistItem) (*models.MarketSnapshot, error) {
	snap, ok := p.snaps[item.Keyword]
	if !ok {
		return nil, fmt.Errorf("no snapshot for %q", item.Keyword)
	}
	return snap, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, *models.Signal) error        { return nil }
func (nopPublisher) PublishBatch(context.Context, []*models.Signal) error { return nil }
func (nopPublisher) Close() error                                         { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordScan(string)                     {}
func (nopMetrics) RecordAnomaly(string, string)          {}
func (nopMetrics) RecordSignal(string)                   {}
func (nopMetrics) RecordError(string)                    {}
func (nopMetrics) RecordOpportunity(string, float64)     {}
func (nopMetrics) RecordSellThroughRate(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)         {}

type apiHarness struct {
	echo  *echo.Echo
	scan  *usecase.MarketScanUseCase
	store *stubStore
	h     *IntelligenceEchoHandler
}

func newAPIHarness(t *testing.T, store *stubStore, probe *stubProbe, watchlist []models.WatchlistItem) *apiHarness {
	t.Helper()

	l, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	trends := analytics.NewTrendEngine()
	detector := analytics.NewStatAnomalyDetector()
	forecaster := analytics.NewStatForecaster()
	scorer := analytics.NewMarketScorer()
	feed := usecase.NewSignalFeed()

	scan := usecase.NewMarketScanUseCase(
		probe, store, trends, detector, scorer,
		nopPublisher{}, nopMetrics{}, feed, l,
		usecase.ScanConfig{HistoryDays: 30, Concurrency: 2, Watchlist: watchlist},
	)
	intel := usecase.NewIntelligenceUseCase(store, trends, detector, forecaster, scorer, watchlist)

	h := NewIntelligenceEchoHandler(l, scan, intel, feed, CacheTTLs{
		Trends:        time.Minute,
		Forecast:      time.Minute,
		Anomalies:     time.Minute,
		Opportunities: time.Minute,
	})

	e := echo.New()
	h.RegisterRoutes(e)
	return &apiHarness{echo: e, scan: scan, store: store, h: h}
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (h *apiHarness) get(t *testing.T, path string) envelope {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.echo.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s: http status = %d, body %s", path, rec.Code, rec.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("GET %s: decode envelope: %v", path, err)
	}
	return env
}

func TestRootEndpoint(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, nil)

	env := h.get(t, "/")
	if env.Status != 200 {
		t.Fatalf("status = %d, want 200", env.Status)
	}
	var data map[string]string
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["service"] != "omniscient" || data["status"] != "operational" {
		t.Fatalf("root data = %v", data)
	}
}

func TestTrendsEndpointReflectsSweep(t *testing.T) {
	watchlist := []models.WatchlistItem{
		{Keyword: "retro console", Category: "gaming"},
		{Keyword: "film camera", Category: "electronics"},
	}
	price := 120.0
	probe := &stubProbe{snaps: map[string]*models.MarketSnapshot{
		"retro console": {Keyword: "retro console", SellThroughRate: 85, SoldDemand: 850, ActiveSupply: 1000, AvgPrice: &price, MarketStatus: "HOT", ObservedAt: time.Now().UTC()},
		"film camera":   {Keyword: "film camera", SellThroughRate: 35, SoldDemand: 350, ActiveSupply: 1000, AvgPrice: &price, MarketStatus: "WARM", ObservedAt: time.Now().UTC()},
	}}
	h := newAPIHarness(t, newStubStore(), probe, watchlist)

	env := h.get(t, "/api/trends")
	var before struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &before); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if before.Count != 0 {
		t.Fatalf("count before sweep = %d, want 0", before.Count)
	}

	if _, err := h.scan.ScanAll(context.Background()); err != nil {
		t.Fatalf("ScanAll: %v", err)
	}

	env = h.get(t, "/api/trends")
	var after struct {
		Count  int               `json:"count"`
		Trends []models.TrendRow `json:"trends"`
	}
	if err := json.Unmarshal(env.Data, &after); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if after.Count != 2 {
		t.Fatalf("count after sweep = %d, want 2", after.Count)
	}
	if after.Trends[0].Keyword != "retro console" {
		t.Fatalf("top trend = %q, want retro console", after.Trends[0].Keyword)
	}
}

func TestPulseEndpointBeforeSweep(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, []models.WatchlistItem{{Keyword: "x"}})

	env := h.get(t, "/api/pulse")
	var pulse models.Pulse
	if err := json.Unmarshal(env.Data, &pulse); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pulse.SystemStatus != "SCANNING" {
		t.Fatalf("system status = %q, want SCANNING", pulse.SystemStatus)
	}
	if pulse.ScannedNodes != 1 {
		t.Fatalf("scanned nodes = %d, want 1", pulse.ScannedNodes)
	}
}

func TestSignalsEndpointBootstrap(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, nil)

	env := h.get(t, "/api/signals?limit=5")
	var data struct {
		Count   int             `json:"count"`
		Signals []models.Signal `json:"signals"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Count != 1 {
		t.Fatalf("count = %d, want bootstrap signal only", data.Count)
	}
	if data.Signals[0].Message != "System initialized. Awaiting first scan..." {
		t.Fatalf("bootstrap message = %q", data.Signals[0].Message)
	}
}

func TestSignalsEndpointRejectsBadLimit(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, nil)

	env := h.get(t, "/api/signals?limit=500")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", env.Status)
	}
	if !strings.Contains(string(env.Data), "Limit") {
		t.Fatalf("validation data = %s", env.Data)
	}
}

func TestForecastEndpointInsufficientData(t *testing.T) {
	store := newStubStore()
	store.seed("sparse", "home", 40, 42, 41)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/analytics/forecast/sparse")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", env.Status)
	}
	if !strings.Contains(string(env.Data), "Insufficient data for forecast. Need 7+ data points, have 3") {
		t.Fatalf("error data = %s", env.Data)
	}
}

func TestForecastEndpointProjects(t *testing.T) {
	store := newStubStore()
	store.seed("steady", "home", 50, 51, 52, 51, 50, 52, 53, 51, 52, 53, 54, 52, 53, 54)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/analytics/forecast/steady?days=7")
	if env.Status != 200 {
		t.Fatalf("status = %d, body %s", env.Status, env.Data)
	}
	var fc models.ForecastPayload
	if err := json.Unmarshal(env.Data, &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fc.Keyword != "steady" {
		t.Fatalf("keyword = %q", fc.Keyword)
	}
	if len(fc.Predictions) != 7 {
		t.Fatalf("forecast points = %d, want 7", len(fc.Predictions))
	}
}

func TestForecastEndpointHonorsConfidence(t *testing.T) {
	store := newStubStore()
	store.seed("steady", "home", 50, 51, 52, 51, 50, 52, 53, 51, 52, 53, 54, 52, 53, 54)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/analytics/forecast/steady?days=7&confidence=0.99")
	if env.Status != 200 {
		t.Fatalf("status = %d, body %s", env.Status, env.Data)
	}
	var fc models.ForecastPayload
	if err := json.Unmarshal(env.Data, &fc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(fc.Predictions) == 0 || fc.Predictions[0].Confidence != 0.99 {
		t.Fatalf("predictions = %+v, want 0.99 confidence level", fc.Predictions)
	}

	env = h.get(t, "/api/analytics/forecast/steady?confidence=0.3")
	if env.Status != http.StatusBadRequest {
		t.Fatalf("status = %d for out-of-range confidence, want 400", env.Status)
	}
}

func TestForecastEndpointServesCachedBody(t *testing.T) {
	store := newStubStore()
	store.seed("cached", "home", 50, 51, 52, 51, 50, 52, 53, 51, 52, 53)
	h := newAPIHarness(t, store, &stubProbe{}, nil)
	h.h.SetCache(icache.NewTTLCache())

	first := h.get(t, "/api/analytics/forecast/cached")
	store.seed("cached", "home", 90, 95, 99)
	second := h.get(t, "/api/analytics/forecast/cached")

	if string(first.Data) != string(second.Data) {
		t.Fatalf("cached response changed:\nfirst:  %s\nsecond: %s", first.Data, second.Data)
	}
}

func TestForecastEndpointRateLimits(t *testing.T) {
	store := newStubStore()
	store.seed("busy", "home", 50, 51, 52, 51, 50, 52, 53, 51)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	limited := false
	for i := 0; i < 8; i++ {
		env := h.get(t, "/api/analytics/forecast/busy")
		if env.Status == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	if !limited {
		t.Fatal("burst of forecast requests was never rate limited")
	}
}

func TestTrendDetailNotFound(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, nil)

	env := h.get(t, "/api/trends/ghost")
	if env.Status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", env.Status)
	}
	if !strings.Contains(string(env.Data), "No data found for 'ghost'") {
		t.Fatalf("error data = %s", env.Data)
	}
}

func TestTrendDetailReturnsConsolidatedView(t *testing.T) {
	store := newStubStore()
	store.seed("vintage lens", "electronics",
		40, 42, 41, 43, 44, 42, 45, 46, 44, 45, 47, 46, 48, 47)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/trends/vintage%20lens")
	if env.Status != 200 {
		t.Fatalf("status = %d, body %s", env.Status, env.Data)
	}
	var detail struct {
		Keyword  string                      `json:"keyword"`
		Trend    *models.TrendMetricsPayload `json:"trend"`
		Forecast *models.ForecastPayload     `json:"forecast"`
		History  []models.MarketStatPayload  `json:"history"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.Keyword != "vintage lens" {
		t.Fatalf("keyword = %q", detail.Keyword)
	}
	if detail.Trend == nil || detail.Forecast == nil {
		t.Fatalf("trend/forecast missing: %+v", detail)
	}
	if len(detail.History) != 14 {
		t.Fatalf("history = %d, want 14", len(detail.History))
	}
}

func TestTrendDetailHonorsDaysWindow(t *testing.T) {
	store := newStubStore()
	store.seed("vintage lens", "electronics",
		40, 42, 41, 43, 44, 42, 45, 46, 44, 45, 47, 46, 48, 47)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/trends/vintage%20lens?days=5")
	if env.Status != 200 {
		t.Fatalf("status = %d, body %s", env.Status, env.Data)
	}
	var detail struct {
		History []models.MarketStatPayload `json:"history"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(detail.History) != 5 {
		t.Fatalf("history = %d, want the requested 5-day window", len(detail.History))
	}
}

func TestKeywordsEndpoint(t *testing.T) {
	store := newStubStore()
	store.seed("widget", "home", 40, 41)
	store.seed("gizmo", "home", 50, 51)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/keywords")
	var data struct {
		Keywords []string `json:"keywords"`
		Count    int      `json:"count"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Count != 2 {
		t.Fatalf("count = %d, want 2", data.Count)
	}
	if data.Keywords[0] != "gizmo" || data.Keywords[1] != "widget" {
		t.Fatalf("keywords = %v, want sorted", data.Keywords)
	}
}

func TestItemHistoryEndpoint(t *testing.T) {
	store := newStubStore()
	store.seed("gpu", "electronics", 60, 62, 61, 63)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/history/item/gpu?days=30")
	if env.Status != 200 {
		t.Fatalf("status = %d", env.Status)
	}
	var data struct {
		Keyword    string `json:"keyword"`
		PeriodDays int    `json:"period_days"`
		DataPoints int    `json:"data_points"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Keyword != "gpu" || data.PeriodDays != 30 || data.DataPoints != 4 {
		t.Fatalf("history = %+v", data)
	}
}

func TestOpportunitiesEndpointRanks(t *testing.T) {
	watchlist := []models.WatchlistItem{
		{Keyword: "winner", Category: "gaming"},
		{Keyword: "loser", Category: "home"},
	}
	store := newStubStore()
	store.seed("winner", "gaming", 70, 75, 78, 80, 82, 85, 88, 90, 92, 95)
	store.seed("loser", "home", 10, 9, 8, 9, 10, 8, 7, 9, 8, 7)
	h := newAPIHarness(t, store, &stubProbe{}, watchlist)

	env := h.get(t, "/api/analytics/opportunities")
	if env.Status != 200 {
		t.Fatalf("status = %d", env.Status)
	}
	var data struct {
		Count         int `json:"count"`
		Opportunities []struct {
			Rank     int    `json:"rank"`
			Keyword  string `json:"keyword"`
			Category string `json:"category"`
		} `json:"opportunities"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.Count != 2 {
		t.Fatalf("count = %d, want 2", data.Count)
	}
	if data.Opportunities[0].Keyword != "winner" || data.Opportunities[0].Rank != 1 {
		t.Fatalf("top = %+v", data.Opportunities[0])
	}
	if data.Opportunities[0].Category != "gaming" {
		t.Fatalf("category = %q, want gaming", data.Opportunities[0].Category)
	}
}

func TestAnomaliesEndpointFlagsSpike(t *testing.T) {
	watchlist := []models.WatchlistItem{
		{Keyword: "spiky", Category: "toys"},
		{Keyword: "calm", Category: "home"},
	}
	store := newStubStore()
	store.seed("spiky", "toys", 30, 31, 30, 32, 31, 30, 31, 30, 31, 95)
	store.seed("calm", "home", 40, 41, 40, 42, 41, 40, 41, 40, 41, 40)
	h := newAPIHarness(t, store, &stubProbe{}, watchlist)

	env := h.get(t, "/api/analytics/anomalies")
	if env.Status != 200 {
		t.Fatalf("status = %d", env.Status)
	}
	var data struct {
		Anomalies []models.AnomalyPayload `json:"anomalies"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Anomalies) == 0 {
		t.Fatal("spike not flagged")
	}
	if data.Anomalies[0].Keyword != "spiky" {
		t.Fatalf("top anomaly = %q, want spiky", data.Anomalies[0].Keyword)
	}
	for _, a := range data.Anomalies {
		if a.Keyword == "calm" {
			t.Fatalf("calm series flagged: %+v", a)
		}
	}
}

func TestIntelligenceEndpointConsolidates(t *testing.T) {
	store := newStubStore()
	store.seed("drone kit", "electronics",
		50, 52, 51, 53, 54, 52, 55, 56, 54, 55, 57, 56, 58, 57, 59, 58)
	h := newAPIHarness(t, store, &stubProbe{}, nil)

	env := h.get(t, "/api/analytics/intelligence/drone%20kit")
	if env.Status != 200 {
		t.Fatalf("status = %d, body %s", env.Status, env.Data)
	}
	var intel models.IntelligencePayload
	if err := json.Unmarshal(env.Data, &intel); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if intel.Keyword != "drone kit" {
		t.Fatalf("keyword = %q", intel.Keyword)
	}
	if intel.Trend == nil || intel.Forecast == nil || intel.Score == nil {
		t.Fatalf("consolidated view incomplete: %+v", intel)
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newAPIHarness(t, newStubStore(), &stubProbe{}, []models.WatchlistItem{{Keyword: "a"}, {Keyword: "b"}})

	env := h.get(t, "/api/stats")
	var data struct {
		ScannedNodes    int    `json:"scanned_nodes"`
		SystemStatus    string `json:"system_status"`
		BufferedSignals int    `json:"buffered_signals"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if data.ScannedNodes != 2 || data.SystemStatus != "SCANNING" {
		t.Fatalf("stats = %+v", data)
	}
	// The bootstrap entry is synthesized on read, not buffered; stats
	// reports the raw buffer size.
	if data.BufferedSignals != 0 {
		t.Fatalf("buffered signals = %d, want 0 before first sweep", data.BufferedSignals)
	}

	sig := h.get(t, "/api/signals")
	var signals struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(sig.Data, &signals); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if signals.Count != 1 {
		t.Fatalf("signal feed count = %d, want the bootstrap entry", signals.Count)
	}
}
