package service

import (
	"omniscient/internal/domain/models"
)

// The four analytics engines are pure and synchronous: they hold no state,
// perform no I/O, and are safe to call concurrently on independent inputs.
// Missing-data conditions surface as nil results or sentinel enums, never
// as errors.

// TrendAnalyzer computes moving averages, momentum and trend classification
// from an ordered value series (oldest first).
type TrendAnalyzer interface {
	Analyze(keyword string, values []float64) models.TrendMetrics
	DetectCrossovers(values []float64) []models.Crossover
	Summary(m models.TrendMetrics) string
}

// AnomalyDetector flags statistically unusual observations.
type AnomalyDetector interface {
	DetectValueAnomaly(keyword string, current float64, history []float64) *models.Anomaly
	DetectSpike(keyword string, values []float64, lookback int, thresholdMultiplier float64) *models.Anomaly
	DetectVolumeSurge(keyword string, current int, history []int) *models.Anomaly
	DetectPatternBreak(keyword string, values []float64, window int) *models.Anomaly
	AnalyzeBatch(items []BatchItem) []models.Anomaly
	Summary(anomalies []models.Anomaly) models.AnomalySummary
}

// BatchItem is one keyword's inputs for a batch anomaly scan.
type BatchItem struct {
	Keyword      string
	CurrentValue float64
	History      []float64
}

// Forecaster projects a value series forward with confidence bands.
type Forecaster interface {
	ForecastEMA(keyword string, values []float64, daysAhead int, confidenceLevel float64) models.Forecast
	ForecastMeanReversion(keyword string, values []float64, daysAhead int, reversionRate, confidenceLevel float64) models.Forecast
	BestForecast(keyword string, values []float64, daysAhead int, confidenceLevel float64) models.Forecast
	BatchForecast(items []ForecastItem, daysAhead int) []models.Forecast
}

// ForecastItem is one keyword's history for a batch forecast.
type ForecastItem struct {
	Keyword string
	History []float64
}

// OpportunityScorer combines raw metrics and trend outputs into a composite
// 0-100 opportunity score.
type OpportunityScorer interface {
	Score(in ScoreInput) models.MarketScore
	RankOpportunities(inputs []ScoreInput) []models.MarketScore
}

// ScoreInput carries the raw summary metrics plus optional trend scalars.
type ScoreInput struct {
	Keyword         string
	SellThroughRate float64
	ActiveListings  int
	VolumeSold      int
	Momentum7       *float64
	Volatility      *float64
	DataPoints      int
	HasHistory      bool
}
