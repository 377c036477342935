package models

import (
	"time"

	"omniscient/pkg/util"
)

// ModelType identifies the forecasting model that produced a Forecast.
type ModelType string

const (
	ModelEMATrend         ModelType = "ema_trend"
	ModelMeanReversion    ModelType = "mean_reversion"
	ModelInsufficientData ModelType = "insufficient_data"
)

// Confidence is a coarse data-quality grade shared by forecasts and scores.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// ForecastPoint is one future day's projection with its confidence band.
type ForecastPoint struct {
	Date            time.Time
	PredictedValue  float64
	ConfidenceLower float64 // floored at 0
	ConfidenceUpper float64
	ConfidenceLevel float64 // e.g. 0.95
}

// Forecast is a full multi-day projection for one keyword. An
// insufficient_data forecast carries no points.
type Forecast struct {
	Keyword        string
	CurrentValue   float64
	Points         []ForecastPoint
	ModelType      ModelType
	TrendSummary   string
	ExpectedChange float64 // % over the horizon
	Confidence     Confidence
	GeneratedAt    time.Time
}

// ForecastPointPayload is the serialized form of a ForecastPoint.
type ForecastPointPayload struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Confidence float64 `json:"confidence"`
}

// ForecastPayload is the serialized form of a Forecast.
type ForecastPayload struct {
	Keyword        string                 `json:"keyword"`
	CurrentValue   float64                `json:"current_value"`
	Predictions    []ForecastPointPayload `json:"predictions"`
	Model          ModelType              `json:"model"`
	TrendSummary   string                 `json:"trend_summary"`
	ExpectedChange float64                `json:"expected_change"`
	Confidence     Confidence             `json:"confidence"`
	GeneratedAt    string                 `json:"generated_at"`
}

// Payload converts the forecast under the fixed rounding policy.
func (f Forecast) Payload() ForecastPayload {
	preds := make([]ForecastPointPayload, 0, len(f.Points))
	for _, p := range f.Points {
		preds = append(preds, ForecastPointPayload{
			Date:       p.Date.UTC().Format(time.RFC3339),
			Value:      util.Round2(p.PredictedValue),
			Lower:      util.Round2(p.ConfidenceLower),
			Upper:      util.Round2(p.ConfidenceUpper),
			Confidence: p.ConfidenceLevel,
		})
	}
	return ForecastPayload{
		Keyword:        f.Keyword,
		CurrentValue:   util.Round2(f.CurrentValue),
		Predictions:    preds,
		Model:          f.ModelType,
		TrendSummary:   f.TrendSummary,
		ExpectedChange: util.Round1(f.ExpectedChange),
		Confidence:     f.Confidence,
		GeneratedAt:    f.GeneratedAt.UTC().Format(time.RFC3339),
	}
}
