package analytics

import (
	"fmt"
	"math"
	"time"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
)

// History requirements for a reliable forecast.
const (
	minHistory       = 7
	preferredHistory = 30
)

// Confidence interval z-scores.
const (
	z90 = 1.645
	z95 = 1.96
	z99 = 2.576
)

// DefaultReversionRate is the per-day pull toward the long-run mean used by
// the mean-reversion model.
const DefaultReversionRate = 0.1

// StatForecaster projects sell-through-rate series forward using either
// EMA-trend extrapolation or mean reversion, selecting the model from the
// statistical character of the series. Stateless.
type StatForecaster struct{}

func NewStatForecaster() *StatForecaster { return &StatForecaster{} }

// forecastEMA is the same whole-series recurrence as TrendEngine.EMA but
// without the minimum-length gate: seeded with the first element, run to
// the end.
func forecastEMA(values []float64, span int) float64 {
	if len(values) == 0 {
		return 0
	}
	multiplier := 2 / float64(span+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = (v-ema)*multiplier + ema
	}
	return ema
}

// tail returns the last n elements, or the whole slice when shorter.
func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

// seasonality partitions the series by position mod period and returns the
// per-bucket mean divided by the overall mean. Empty when the series is
// shorter than two full periods.
func seasonality(values []float64, period int) map[int]float64 {
	if len(values) < period*2 {
		return nil
	}
	buckets := make([][]float64, period)
	for idx, v := range values {
		i := idx % period
		buckets[i] = append(buckets[i], v)
	}
	overall := mean(values)
	adjustments := make(map[int]float64, period)
	for i, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		if overall != 0 {
			adjustments[i] = mean(bucket) / overall
		} else {
			adjustments[i] = 1.0
		}
	}
	return adjustments
}

func zForLevel(confidenceLevel float64) float64 {
	switch {
	case confidenceLevel >= 0.99:
		return z99
	case confidenceLevel >= 0.95:
		return z95
	default:
		return z90
	}
}

func insufficientForecast(keyword string, values []float64) models.Forecast {
	return models.Forecast{
		Keyword:      keyword,
		CurrentValue: last(values),
		ModelType:    models.ModelInsufficientData,
		TrendSummary: "Insufficient data for forecast",
		Confidence:   models.ConfidenceLow,
		GeneratedAt:  time.Now().UTC(),
	}
}

func expectedChange(points []models.ForecastPoint, currentValue float64) float64 {
	if len(points) == 0 || currentValue <= 0 {
		return 0
	}
	final := points[len(points)-1].PredictedValue
	return ((final - currentValue) / currentValue) * 100
}

// trendSummaryFor buckets the expected % change over the horizon.
func trendSummaryFor(change float64) string {
	switch {
	case change > 15:
		return "Strong upward trend expected"
	case change > 5:
		return "Moderate upward trend expected"
	case change > -5:
		return "Relatively stable with minor fluctuations"
	case change > -15:
		return "Moderate downward trend expected"
	default:
		return "Strong downward trend expected"
	}
}

// ForecastEMA extrapolates the whole-series EMA with the OLS drift of the
// last 14 points, optionally adjusted by weekly seasonality. Confidence
// intervals widen with the square root of the horizon (random-walk
// assumption).
func (f *StatForecaster) ForecastEMA(keyword string, values []float64, daysAhead int, confidenceLevel float64) models.Forecast {
	if len(values) < minHistory {
		return insufficientForecast(keyword, values)
	}

	currentValue := values[len(values)-1]
	baseline := forecastEMA(values, 7)
	drift := olsSlope(tail(values, 14))
	volatility := sampleStdDev(values)
	seasonal := seasonality(values, 7)
	z := zForLevel(confidenceLevel)

	points := make([]models.ForecastPoint, 0, daysAhead)
	baseDate := time.Now().UTC()

	for day := 1; day <= daysAhead; day++ {
		prediction := baseline + drift*float64(day)
		if factor, ok := seasonal[(len(values)+day)%7]; ok {
			prediction *= factor
		}
		prediction = math.Max(0, prediction)

		halfWidth := z * volatility * math.Sqrt(float64(day))
		points = append(points, models.ForecastPoint{
			Date:            baseDate.AddDate(0, 0, day),
			PredictedValue:  prediction,
			ConfidenceLower: math.Max(0, prediction-halfWidth),
			ConfidenceUpper: prediction + halfWidth,
			ConfidenceLevel: confidenceLevel,
		})
	}

	change := expectedChange(points, currentValue)

	confidence := models.ConfidenceLow
	switch {
	case len(values) >= preferredHistory && volatility < currentValue*0.3:
		confidence = models.ConfidenceHigh
	case len(values) >= minHistory*2:
		confidence = models.ConfidenceMedium
	}

	return models.Forecast{
		Keyword:        keyword,
		CurrentValue:   currentValue,
		Points:         points,
		ModelType:      models.ModelEMATrend,
		TrendSummary:   trendSummaryFor(change),
		ExpectedChange: change,
		Confidence:     confidence,
		GeneratedAt:    time.Now().UTC(),
	}
}

// ForecastMeanReversion relaxes the current value toward the long-run mean
// at the given rate per day. Interval half-widths are floored at half the
// volatility so bands never vanish at long horizons.
func (f *StatForecaster) ForecastMeanReversion(keyword string, values []float64, daysAhead int, reversionRate, confidenceLevel float64) models.Forecast {
	if len(values) < minHistory {
		return insufficientForecast(keyword, values)
	}

	currentValue := values[len(values)-1]
	longRunMean := mean(values)
	volatility := sampleStdDev(values)
	z := zForLevel(confidenceLevel)

	points := make([]models.ForecastPoint, 0, daysAhead)
	baseDate := time.Now().UTC()
	prediction := currentValue

	for day := 1; day <= daysAhead; day++ {
		prediction += (longRunMean - prediction) * reversionRate
		prediction = math.Max(0, prediction)

		halfWidth := z * volatility * math.Sqrt(float64(day)) * (1 - reversionRate*float64(day)/10)
		halfWidth = math.Max(volatility*0.5, halfWidth)

		points = append(points, models.ForecastPoint{
			Date:            baseDate.AddDate(0, 0, day),
			PredictedValue:  prediction,
			ConfidenceLower: math.Max(0, prediction-halfWidth),
			ConfidenceUpper: prediction + halfWidth,
			ConfidenceLevel: confidenceLevel,
		})
	}

	return models.Forecast{
		Keyword:        keyword,
		CurrentValue:   currentValue,
		Points:         points,
		ModelType:      models.ModelMeanReversion,
		TrendSummary:   fmt.Sprintf("Expected to revert toward mean of %.1f%%", longRunMean),
		ExpectedChange: expectedChange(points, currentValue),
		Confidence:     models.ConfidenceMedium,
		GeneratedAt:    time.Now().UTC(),
	}
}

// BestForecast matches model assumptions to the statistical character of
// the series: a noisy series with a weak trend (CV > 0.3, normalized slope
// < 0.05) routes to mean reversion, everything else to EMA-trend. The
// confidence level sizes the interval bands of whichever model is chosen.
func (f *StatForecaster) BestForecast(keyword string, values []float64, daysAhead int, confidenceLevel float64) models.Forecast {
	if len(values) < minHistory {
		return f.ForecastEMA(keyword, values, daysAhead, confidenceLevel)
	}

	volatility := sampleStdDev(values)
	meanVal := mean(values)

	cv := 0.0
	trendStrength := 0.0
	if meanVal > 0 {
		cv = volatility / meanVal
		trendStrength = math.Abs(olsSlope(tail(values, 14))) / meanVal
	}

	if cv > 0.3 && trendStrength < 0.05 {
		return f.ForecastMeanReversion(keyword, values, daysAhead, DefaultReversionRate, confidenceLevel)
	}
	return f.ForecastEMA(keyword, values, daysAhead, confidenceLevel)
}

// BatchForecast applies BestForecast per item. Items are independent; no
// shared state.
func (f *StatForecaster) BatchForecast(items []domsvc.ForecastItem, daysAhead int) []models.Forecast {
	forecasts := make([]models.Forecast, 0, len(items))
	for _, item := range items {
		forecasts = append(forecasts, f.BestForecast(item.Keyword, item.History, daysAhead, 0.95))
	}
	return forecasts
}

var _ domsvc.Forecaster = (*StatForecaster)(nil)
