package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"omniscient/internal/domain/models"
	domrepo "omniscient/internal/domain/repository"
	domsvc "omniscient/internal/domain/service"
)

// ErrNotFound marks a keyword with no recorded observations.
type ErrNotFound struct{ Keyword string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("no data found for '%s'", e.Keyword) }

// ErrInsufficientData marks a keyword with too little history for the
// requested analysis.
type ErrInsufficientData struct {
	Need int
	Have int
}

func (e *ErrInsufficientData) Error() string {
	return fmt.Sprintf("insufficient data for forecast. Need %d+ data points, have %d", e.Need, e.Have)
}

const (
	forecastHistoryDays = 90
	trendHistoryDays    = 90
	anomalyHistoryDays  = 30
	minForecastSamples  = 7

	defaultConfidenceLevel = 0.95
)

// IntelligenceUseCase serves the read-side analytics: consolidated views,
// forecasts, anomaly sweeps, and opportunity rankings computed from the
// persisted history.
type IntelligenceUseCase struct {
	store     domrepo.StatStore
	trends    domsvc.TrendAnalyzer
	detector  domsvc.AnomalyDetector
	forecast  domsvc.Forecaster
	scorer    domsvc.OpportunityScorer
	watchlist []models.WatchlistItem
	timeout   time.Duration
}

func NewIntelligenceUseCase(
	store domrepo.StatStore,
	trends domsvc.TrendAnalyzer,
	detector domsvc.AnomalyDetector,
	forecast domsvc.Forecaster,
	scorer domsvc.OpportunityScorer,
	watchlist []models.WatchlistItem,
) *IntelligenceUseCase {
	return &IntelligenceUseCase{
		store:     store,
		trends:    trends,
		detector:  detector,
		forecast:  forecast,
		scorer:    scorer,
		watchlist: watchlist,
		timeout:   10 * time.Second,
	}
}

// GetIntelligence runs all four engines over one keyword's history and
// consolidates the outputs. Individual engine failures land in Errors
// instead of failing the whole view.
func (uc *IntelligenceUseCase) GetIntelligence(ctx context.Context, keyword string, daysAhead int) (*models.Intelligence, error) {
	if keyword == "" {
		return nil, fmt.Errorf("keyword required")
	}
	if daysAhead <= 0 {
		daysAhead = 14
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	latest, err := uc.store.Latest(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, &ErrNotFound{Keyword: keyword}
	}
	values, err := uc.store.Rates(ctx, keyword, trendHistoryDays)
	if err != nil {
		return nil, err
	}

	res := &models.Intelligence{
		Keyword:   keyword,
		Timestamp: time.Now().UTC(),
		Errors:    map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
	}
	ch := make(chan item, 4)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"trend", uc.trends.Analyze(keyword, values), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		if len(values) < 2 {
			ch <- item{"anomalies", []models.Anomaly(nil), nil}
			return
		}
		anomalies := uc.detector.AnalyzeBatch([]domsvc.BatchItem{{
			Keyword:      keyword,
			CurrentValue: values[len(values)-1],
			History:      values[:len(values)-1],
		}})
		ch <- item{"anomalies", anomalies, nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ch <- item{"forecast", uc.forecast.BestForecast(keyword, values, daysAhead, defaultConfidenceLevel), nil}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		score := uc.scorer.Score(uc.scoreInput(latest, values))
		ch <- item{"score", score, nil}
	}()

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Errors[it.name] = it.err.Error()
			continue
		}
		switch it.name {
		case "trend":
			v := it.val.(models.TrendMetrics)
			res.Trend = &v
		case "anomalies":
			res.Anomalies = it.val.([]models.Anomaly)
		case "forecast":
			v := it.val.(models.Forecast)
			res.Forecast = &v
		case "score":
			v := it.val.(models.MarketScore)
			res.Score = &v
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// TrendDetail is the consolidated per-keyword view served by the trend
// detail endpoint.
type TrendDetail struct {
	Keyword  string
	Latest   *models.MarketStat
	Trend    *models.TrendMetrics
	History  []models.MarketStat
	Anomaly  *models.Anomaly
	Forecast *models.Forecast
}

// GetTrendDetail assembles the detail view for one keyword over the given
// history window.
func (uc *IntelligenceUseCase) GetTrendDetail(ctx context.Context, keyword string, days int) (*TrendDetail, error) {
	if days <= 0 {
		days = trendHistoryDays
	}

	latest, err := uc.store.Latest(ctx, keyword)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return nil, &ErrNotFound{Keyword: keyword}
	}

	history, err := uc.store.History(ctx, keyword, days)
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(history))
	for _, h := range history {
		values = append(values, h.SellThroughRate)
	}

	detail := &TrendDetail{Keyword: keyword, Latest: latest, History: history}

	if len(values) > 0 {
		tm := uc.trends.Analyze(keyword, values)
		detail.Trend = &tm
		detail.Forecast = uc.bestForecastPtr(keyword, values)
	}
	if len(values) >= minForecastSamples {
		detail.Anomaly = uc.detector.DetectValueAnomaly(keyword, values[len(values)-1], values[:len(values)-1])
	}

	return detail, nil
}

// GetForecast projects one keyword's series forward. The confidence level
// sizes the interval bands; zero falls back to 95%.
func (uc *IntelligenceUseCase) GetForecast(ctx context.Context, keyword string, daysAhead int, confidenceLevel float64) (*models.Forecast, error) {
	if confidenceLevel <= 0 {
		confidenceLevel = defaultConfidenceLevel
	}

	values, err := uc.store.Rates(ctx, keyword, forecastHistoryDays)
	if err != nil {
		return nil, err
	}
	if len(values) < minForecastSamples {
		return nil, &ErrInsufficientData{Need: minForecastSamples, Have: len(values)}
	}

	fc := uc.forecast.BestForecast(keyword, values, daysAhead, confidenceLevel)
	return &fc, nil
}

// GetKeywords lists every keyword with recorded observations, sorted.
func (uc *IntelligenceUseCase) GetKeywords(ctx context.Context) ([]string, error) {
	keywords, err := uc.store.Keywords(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keywords)
	return keywords, nil
}

// GetAnomalies sweeps every watchlist keyword for anomalies, ranked most
// severe first.
func (uc *IntelligenceUseCase) GetAnomalies(ctx context.Context) ([]models.Anomaly, models.AnomalySummary, error) {
	items := make([]domsvc.BatchItem, 0, len(uc.watchlist))
	for _, w := range uc.watchlist {
		values, err := uc.store.Rates(ctx, w.Keyword, anomalyHistoryDays)
		if err != nil {
			return nil, models.AnomalySummary{}, err
		}
		if len(values) < minForecastSamples {
			continue
		}
		items = append(items, domsvc.BatchItem{
			Keyword:      w.Keyword,
			CurrentValue: values[len(values)-1],
			History:      values[:len(values)-1],
		})
	}

	anomalies := uc.detector.AnalyzeBatch(items)
	return anomalies, uc.detector.Summary(anomalies), nil
}

// Opportunity pairs a ranked score with its watchlist category.
type Opportunity struct {
	Keyword  string
	Category string
	Score    models.MarketScore
}

// GetOpportunities ranks the watchlist by composite opportunity score.
func (uc *IntelligenceUseCase) GetOpportunities(ctx context.Context, limit int) ([]Opportunity, error) {
	if limit <= 0 {
		limit = 20
	}

	categories := make(map[string]string, len(uc.watchlist))
	inputs := make([]domsvc.ScoreInput, 0, len(uc.watchlist))
	for _, w := range uc.watchlist {
		latest, err := uc.store.Latest(ctx, w.Keyword)
		if err != nil {
			return nil, err
		}
		if latest == nil {
			continue
		}
		values, err := uc.store.Rates(ctx, w.Keyword, anomalyHistoryDays)
		if err != nil {
			return nil, err
		}
		categories[w.Keyword] = w.Category
		inputs = append(inputs, uc.scoreInput(latest, values))
	}

	ranked := uc.scorer.RankOpportunities(inputs)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]Opportunity, 0, len(ranked))
	for _, score := range ranked {
		out = append(out, Opportunity{
			Keyword:  score.Keyword,
			Category: categories[score.Keyword],
			Score:    score,
		})
	}
	return out, nil
}

// ItemHistory is the per-keyword history view.
type ItemHistory struct {
	Keyword    string
	PeriodDays int
	History    []models.MarketStat
}

// GetItemHistory returns the recorded observations for one keyword.
func (uc *IntelligenceUseCase) GetItemHistory(ctx context.Context, keyword string, days int) (*ItemHistory, error) {
	days = int(domrepo.NormalizeWindow(days))

	history, err := uc.store.History(ctx, keyword, days)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, &ErrNotFound{Keyword: keyword}
	}
	return &ItemHistory{Keyword: keyword, PeriodDays: days, History: history}, nil
}

// GetMarketHistory returns market-wide daily aggregates.
func (uc *IntelligenceUseCase) GetMarketHistory(ctx context.Context, days int) ([]models.DailyAggregate, error) {
	if days <= 0 {
		days = 7
	}
	return uc.store.MarketDaily(ctx, days)
}

func (uc *IntelligenceUseCase) scoreInput(latest *models.MarketStat, values []float64) domsvc.ScoreInput {
	in := domsvc.ScoreInput{
		Keyword:         latest.Keyword,
		SellThroughRate: latest.SellThroughRate,
		ActiveListings:  latest.ActiveListings,
		VolumeSold:      latest.VolumeSold,
		DataPoints:      len(values),
		HasHistory:      len(values) >= minForecastSamples,
	}
	if len(values) > 0 {
		tm := uc.trends.Analyze(latest.Keyword, values)
		in.Momentum7 = tm.Momentum7
		in.Volatility = tm.Volatility
	}
	return in
}

func (uc *IntelligenceUseCase) bestForecastPtr(keyword string, values []float64) *models.Forecast {
	fc := uc.forecast.BestForecast(keyword, values, 14, defaultConfidenceLevel)
	return &fc
}
