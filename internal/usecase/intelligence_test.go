package usecase

import (
	"context"
	"errors"
	"testing"

	"omniscient/internal/domain/models"
	"omniscient/internal/services/analytics"
)

func newIntelligence(store *memStore, watchlist []models.WatchlistItem) *IntelligenceUseCase {
	return NewIntelligenceUseCase(
		store,
		analytics.NewTrendEngine(),
		analytics.NewStatAnomalyDetector(),
		analytics.NewStatForecaster(),
		analytics.NewMarketScorer(),
		watchlist,
	)
}

func steadySeries(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i%3)
	}
	return out
}

func TestGetIntelligenceConsolidatesEngines(t *testing.T) {
	store := newMemStore()
	store.seed("vintage camera", steadySeries(50, 30)...)
	uc := newIntelligence(store, nil)

	res, err := uc.GetIntelligence(context.Background(), "vintage camera", 7)
	if err != nil {
		t.Fatalf("GetIntelligence: %v", err)
	}
	if res.Keyword != "vintage camera" {
		t.Fatalf("keyword = %q", res.Keyword)
	}
	if res.Trend == nil || res.Forecast == nil || res.Score == nil {
		t.Fatalf("missing engine output: %+v", res)
	}
	if res.Trend.MA7 == nil {
		t.Fatal("trend MA7 missing with 30 points")
	}
	if res.Forecast.ModelType == models.ModelInsufficientData {
		t.Fatalf("forecast model = %s with 30 points", res.Forecast.ModelType)
	}
	if len(res.Forecast.Points) != 7 {
		t.Fatalf("forecast points = %d, want 7", len(res.Forecast.Points))
	}
	if res.Errors != nil {
		t.Fatalf("errors = %v, want none", res.Errors)
	}
}

func TestGetIntelligenceUnknownKeyword(t *testing.T) {
	uc := newIntelligence(newMemStore(), nil)

	_, err := uc.GetIntelligence(context.Background(), "ghost", 7)
	var nf *ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if nf.Keyword != "ghost" {
		t.Fatalf("not-found keyword = %q", nf.Keyword)
	}
}

func TestGetTrendDetail(t *testing.T) {
	store := newMemStore()
	store.seed("lego set", steadySeries(40, 20)...)
	uc := newIntelligence(store, nil)

	detail, err := uc.GetTrendDetail(context.Background(), "lego set", 90)
	if err != nil {
		t.Fatalf("GetTrendDetail: %v", err)
	}
	if detail.Latest == nil || detail.Latest.Keyword != "lego set" {
		t.Fatalf("latest = %+v", detail.Latest)
	}
	if len(detail.History) != 20 {
		t.Fatalf("history = %d, want 20", len(detail.History))
	}
	if detail.Trend == nil || detail.Forecast == nil {
		t.Fatalf("trend/forecast missing: %+v", detail)
	}
	if detail.Anomaly != nil {
		t.Fatalf("anomaly = %+v on a steady series, want nil", detail.Anomaly)
	}
}

func TestGetTrendDetailNotFound(t *testing.T) {
	uc := newIntelligence(newMemStore(), nil)
	if _, err := uc.GetTrendDetail(context.Background(), "nothing", 90); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestGetForecastInsufficientData(t *testing.T) {
	store := newMemStore()
	store.seed("rare coin", 10, 12, 11)
	uc := newIntelligence(store, nil)

	_, err := uc.GetForecast(context.Background(), "rare coin", 14, 0)
	var insufficient *ErrInsufficientData
	if !errors.As(err, &insufficient) {
		t.Fatalf("err = %v, want ErrInsufficientData", err)
	}
	if insufficient.Need != 7 || insufficient.Have != 3 {
		t.Fatalf("need/have = %d/%d, want 7/3", insufficient.Need, insufficient.Have)
	}
}

func TestGetForecastProjectsSeries(t *testing.T) {
	store := newMemStore()
	store.seed("lego set", steadySeries(45, 30)...)
	uc := newIntelligence(store, nil)

	fc, err := uc.GetForecast(context.Background(), "lego set", 14, 0)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if len(fc.Points) != 14 {
		t.Fatalf("points = %d, want 14", len(fc.Points))
	}
	for _, p := range fc.Points {
		if p.ConfidenceLower > p.PredictedValue || p.PredictedValue > p.ConfidenceUpper {
			t.Fatalf("band does not bracket prediction: %+v", p)
		}
	}
}

func TestGetForecastConfidenceWidensBands(t *testing.T) {
	store := newMemStore()
	store.seed("lego set", steadySeries(45, 30)...)
	uc := newIntelligence(store, nil)

	narrow, err := uc.GetForecast(context.Background(), "lego set", 14, 0.90)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	wide, err := uc.GetForecast(context.Background(), "lego set", 14, 0.99)
	if err != nil {
		t.Fatalf("GetForecast: %v", err)
	}
	if narrow.Points[0].ConfidenceLevel != 0.90 || wide.Points[0].ConfidenceLevel != 0.99 {
		t.Fatalf("levels = %v/%v, want 0.90/0.99",
			narrow.Points[0].ConfidenceLevel, wide.Points[0].ConfidenceLevel)
	}
	narrowWidth := narrow.Points[0].ConfidenceUpper - narrow.Points[0].ConfidenceLower
	wideWidth := wide.Points[0].ConfidenceUpper - wide.Points[0].ConfidenceLower
	if wideWidth <= narrowWidth {
		t.Fatalf("99%% band (%v) not wider than 90%% band (%v)", wideWidth, narrowWidth)
	}
}

func TestGetTrendDetailHonorsWindow(t *testing.T) {
	store := newMemStore()
	store.seed("lego set", steadySeries(40, 20)...)
	uc := newIntelligence(store, nil)

	detail, err := uc.GetTrendDetail(context.Background(), "lego set", 10)
	if err != nil {
		t.Fatalf("GetTrendDetail: %v", err)
	}
	if len(detail.History) != 10 {
		t.Fatalf("history = %d, want 10", len(detail.History))
	}
}

func TestGetKeywordsSorted(t *testing.T) {
	store := newMemStore()
	store.seed("zebra print", steadySeries(20, 5)...)
	store.seed("action figure", steadySeries(30, 5)...)
	uc := newIntelligence(store, nil)

	keywords, err := uc.GetKeywords(context.Background())
	if err != nil {
		t.Fatalf("GetKeywords: %v", err)
	}
	if len(keywords) != 2 || keywords[0] != "action figure" || keywords[1] != "zebra print" {
		t.Fatalf("keywords = %v", keywords)
	}
}

func TestGetAnomaliesSweepsWatchlist(t *testing.T) {
	store := newMemStore()
	store.seed("calm one", steadySeries(30, 15)...)
	spiky := steadySeries(30, 14)
	spiky = append(spiky, 95) // latest observation breaks the pattern
	store.seed("spiky one", spiky...)
	watchlist := []models.WatchlistItem{
		{Keyword: "calm one", Category: "home"},
		{Keyword: "spiky one", Category: "toys"},
		{Keyword: "unseeded", Category: "toys"},
	}
	uc := newIntelligence(store, watchlist)

	anomalies, summary, err := uc.GetAnomalies(context.Background())
	if err != nil {
		t.Fatalf("GetAnomalies: %v", err)
	}
	if len(anomalies) == 0 {
		t.Fatal("expected at least one anomaly")
	}
	if anomalies[0].Keyword != "spiky one" {
		t.Fatalf("top anomaly = %+v, want spiky one", anomalies[0])
	}
	for _, a := range anomalies {
		if a.Keyword == "calm one" {
			t.Fatalf("steady keyword flagged: %+v", a)
		}
	}
	if summary.Total != len(anomalies) {
		t.Fatalf("summary total = %d, anomalies = %d", summary.Total, len(anomalies))
	}
	if summary.MostSevere == nil || summary.MostSevere.Keyword != "spiky one" {
		t.Fatalf("most severe = %+v", summary.MostSevere)
	}
}

func TestGetOpportunitiesRanksAndTrims(t *testing.T) {
	store := newMemStore()
	store.seed("winner", steadySeries(85, 10)...)
	store.seed("loser", steadySeries(5, 10)...)
	store.seed("middle", steadySeries(45, 10)...)
	watchlist := []models.WatchlistItem{
		{Keyword: "loser", Category: "home"},
		{Keyword: "winner", Category: "electronics"},
		{Keyword: "middle", Category: "toys"},
		{Keyword: "unseeded", Category: "toys"},
	}
	uc := newIntelligence(store, watchlist)

	opps, err := uc.GetOpportunities(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetOpportunities: %v", err)
	}
	if len(opps) != 2 {
		t.Fatalf("opportunities = %d, want 2", len(opps))
	}
	if opps[0].Keyword != "winner" || opps[0].Category != "electronics" {
		t.Fatalf("top opportunity = %+v", opps[0])
	}
	if opps[0].Score.TotalScore < opps[1].Score.TotalScore {
		t.Fatalf("not sorted: %v < %v", opps[0].Score.TotalScore, opps[1].Score.TotalScore)
	}
}

func TestGetItemHistory(t *testing.T) {
	store := newMemStore()
	store.seed("lego set", steadySeries(40, 20)...)
	uc := newIntelligence(store, nil)

	hist, err := uc.GetItemHistory(context.Background(), "lego set", 30)
	if err != nil {
		t.Fatalf("GetItemHistory: %v", err)
	}
	if hist.PeriodDays != 30 {
		t.Fatalf("period = %d, want 30", hist.PeriodDays)
	}
	if len(hist.History) != 20 {
		t.Fatalf("history = %d, want 20", len(hist.History))
	}

	if _, err := uc.GetItemHistory(context.Background(), "nothing", 30); err == nil {
		t.Fatal("expected not-found for unseeded keyword")
	}
}

func TestGetMarketHistoryAggregates(t *testing.T) {
	store := newMemStore()
	store.seed("a", 10, 20)
	store.seed("b", 30, 40)
	uc := newIntelligence(store, nil)

	days, err := uc.GetMarketHistory(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetMarketHistory: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("days = %d, want 2", len(days))
	}
	for _, d := range days {
		if d.ItemsTracked != 2 {
			t.Fatalf("items tracked = %d, want 2", d.ItemsTracked)
		}
	}
}
