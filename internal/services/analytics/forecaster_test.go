package analytics

import (
	"math"
	"strings"
	"testing"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
)

// choppy flips between low and high around a mean of 50: high coefficient
// of variation, negligible drift.
func choppy(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = 20
		} else {
			out[i] = 80
		}
	}
	return out
}

func rising(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func TestZForLevel(t *testing.T) {
	if z := zForLevel(0.90); !almostEqual(z, 1.645) {
		t.Fatalf("z90 = %v", z)
	}
	if z := zForLevel(0.95); !almostEqual(z, 1.96) {
		t.Fatalf("z95 = %v", z)
	}
	if z := zForLevel(0.99); !almostEqual(z, 2.576) {
		t.Fatalf("z99 = %v", z)
	}
}

func TestForecastEMAInsufficientData(t *testing.T) {
	f := NewStatForecaster()

	fc := f.ForecastEMA("widget", []float64{40, 42, 44}, 14, 0.95)
	if fc.ModelType != models.ModelInsufficientData {
		t.Fatalf("model = %v, want insufficient_data", fc.ModelType)
	}
	if fc.Confidence != models.ConfidenceLow {
		t.Fatalf("confidence = %v, want LOW", fc.Confidence)
	}
	if len(fc.Points) != 0 {
		t.Fatalf("expected no points, got %d", len(fc.Points))
	}
	if fc.CurrentValue != 44 {
		t.Fatalf("current = %v, want last observation", fc.CurrentValue)
	}
}

func TestForecastEMAIntervalShape(t *testing.T) {
	f := NewStatForecaster()

	values := rising(50, 1, 30)
	fc := f.ForecastEMA("widget", values, 14, 0.95)

	if fc.ModelType != models.ModelEMATrend {
		t.Fatalf("model = %v, want ema_trend", fc.ModelType)
	}
	if len(fc.Points) != 14 {
		t.Fatalf("points = %d, want 14", len(fc.Points))
	}

	prevWidth := 0.0
	for i, p := range fc.Points {
		if p.PredictedValue < 0 || p.ConfidenceLower < 0 {
			t.Fatalf("point %d negative: %+v", i, p)
		}
		if p.ConfidenceLower > p.PredictedValue || p.PredictedValue > p.ConfidenceUpper {
			t.Fatalf("point %d interval does not bracket prediction: %+v", i, p)
		}
		width := p.ConfidenceUpper - p.ConfidenceLower
		if width < prevWidth {
			t.Fatalf("interval narrowed at day %d: %v < %v", i+1, width, prevWidth)
		}
		prevWidth = width
		if p.ConfidenceLevel != 0.95 {
			t.Fatalf("confidence level = %v", p.ConfidenceLevel)
		}
	}

	// Positive drift on a rising series.
	if fc.ExpectedChange <= 0 {
		t.Fatalf("expected positive change on rising series, got %v", fc.ExpectedChange)
	}
}

func TestForecastEMAConfidenceHigh(t *testing.T) {
	f := NewStatForecaster()

	// 30 samples with volatility well under 30% of the level.
	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + float64(i%2)
	}
	fc := f.ForecastEMA("widget", values, 7, 0.95)
	if fc.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %v, want HIGH", fc.Confidence)
	}

	fc = f.ForecastEMA("widget", values[:14], 7, 0.95)
	if fc.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %v, want MEDIUM at 14 samples", fc.Confidence)
	}
}

func TestForecastMeanReversionConverges(t *testing.T) {
	f := NewStatForecaster()

	values := choppy(20) // mean 50, last value 80
	fc := f.ForecastMeanReversion("widget", values, 14, DefaultReversionRate, 0.95)

	if fc.ModelType != models.ModelMeanReversion {
		t.Fatalf("model = %v, want mean_reversion", fc.ModelType)
	}
	if fc.Confidence != models.ConfidenceMedium {
		t.Fatalf("confidence = %v, want MEDIUM", fc.Confidence)
	}
	if !strings.Contains(fc.TrendSummary, "revert toward mean of 50.0%") {
		t.Fatalf("summary = %q", fc.TrendSummary)
	}

	m := mean(values)
	prevDist := math.Abs(fc.CurrentValue - m)
	for i, p := range fc.Points {
		dist := math.Abs(p.PredictedValue - m)
		if dist > prevDist+1e-9 {
			t.Fatalf("day %d moved away from the mean: %v > %v", i+1, dist, prevDist)
		}
		prevDist = dist
	}
}

func TestForecastMeanReversionBandFloor(t *testing.T) {
	f := NewStatForecaster()

	values := choppy(20)
	vol := sampleStdDev(values)
	fc := f.ForecastMeanReversion("widget", values, 30, DefaultReversionRate, 0.95)

	for i, p := range fc.Points {
		width := p.ConfidenceUpper - p.PredictedValue
		if width < vol*0.5-1e-9 {
			t.Fatalf("day %d band %v under floor %v", i+1, width, vol*0.5)
		}
	}
}

func TestBestForecastModelSelection(t *testing.T) {
	f := NewStatForecaster()

	// High CV, flat drift: mean reversion.
	fc := f.BestForecast("widget", choppy(20), 14, 0.95)
	if fc.ModelType != models.ModelMeanReversion {
		t.Fatalf("choppy series routed to %v, want mean_reversion", fc.ModelType)
	}

	// Clear trend with modest dispersion: EMA-trend.
	fc = f.BestForecast("widget", rising(50, 1, 30), 14, 0.95)
	if fc.ModelType != models.ModelEMATrend {
		t.Fatalf("trending series routed to %v, want ema_trend", fc.ModelType)
	}

	// Too short for either model.
	fc = f.BestForecast("widget", []float64{1, 2, 3}, 14, 0.95)
	if fc.ModelType != models.ModelInsufficientData {
		t.Fatalf("short series routed to %v, want insufficient_data", fc.ModelType)
	}
}

func TestBestForecastPropagatesConfidenceLevel(t *testing.T) {
	f := NewStatForecaster()

	// Both branches must carry the caller's level into the points.
	fc := f.BestForecast("widget", choppy(20), 14, 0.99)
	if fc.Points[0].ConfidenceLevel != 0.99 {
		t.Fatalf("mean reversion level = %v, want 0.99", fc.Points[0].ConfidenceLevel)
	}
	fc = f.BestForecast("widget", rising(50, 1, 30), 14, 0.99)
	if fc.Points[0].ConfidenceLevel != 0.99 {
		t.Fatalf("ema trend level = %v, want 0.99", fc.Points[0].ConfidenceLevel)
	}
}

func TestTrendSummaryBuckets(t *testing.T) {
	cases := []struct {
		change float64
		want   string
	}{
		{20, "Strong upward trend expected"},
		{10, "Moderate upward trend expected"},
		{0, "Relatively stable with minor fluctuations"},
		{-10, "Moderate downward trend expected"},
		{-20, "Strong downward trend expected"},
	}
	for _, c := range cases {
		if got := trendSummaryFor(c.change); got != c.want {
			t.Fatalf("trendSummaryFor(%v) = %q, want %q", c.change, got, c.want)
		}
	}
}

func TestSeasonality(t *testing.T) {
	// Two full weeks with day 0 consistently elevated.
	values := []float64{100, 50, 50, 50, 50, 50, 50, 100, 50, 50, 50, 50, 50, 50}
	factors := seasonality(values, 7)
	if factors == nil {
		t.Fatalf("expected factors with two full periods")
	}
	if factors[0] <= factors[1] {
		t.Fatalf("elevated bucket should carry factor > others: %v vs %v", factors[0], factors[1])
	}

	if got := seasonality(values[:10], 7); got != nil {
		t.Fatalf("under two periods must return nil, got %v", got)
	}
}

func TestBatchForecast(t *testing.T) {
	f := NewStatForecaster()

	out := f.BatchForecast([]domsvc.ForecastItem{
		{Keyword: "a", History: rising(50, 1, 30)},
		{Keyword: "b", History: choppy(20)},
	}, 7)
	if len(out) != 2 {
		t.Fatalf("len = %d", len(out))
	}
	if out[0].Keyword != "a" || out[1].Keyword != "b" {
		t.Fatalf("order changed: %v, %v", out[0].Keyword, out[1].Keyword)
	}
}
