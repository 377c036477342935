package analytics

import (
	"math"
	"testing"

	"omniscient/internal/domain/models"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMA(t *testing.T) {
	e := NewTrendEngine()

	got := e.SMA([]float64{10, 20, 30, 40, 50, 60, 70}, 7)
	if got == nil {
		t.Fatalf("expected value")
	}
	if !almostEqual(*got, 40) {
		t.Fatalf("sma = %v, want 40", *got)
	}

	if e.SMA([]float64{1, 2, 3}, 7) != nil {
		t.Fatalf("expected nil for short series")
	}
}

func TestEMAWholeSeriesRecurrence(t *testing.T) {
	e := NewTrendEngine()

	// Seed is the first element of the whole series, not the windowed tail.
	values := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 100}
	got := e.EMA(values, 7)
	if got == nil {
		t.Fatalf("expected value")
	}
	want := 10.0
	for _, v := range values[1:] {
		want = (v-want)*0.25 + want
	}
	if !almostEqual(*got, want) {
		t.Fatalf("ema = %v, want %v", *got, want)
	}

	if e.EMA([]float64{1, 2, 3}, 7) != nil {
		t.Fatalf("expected nil below period")
	}
}

func TestMomentum(t *testing.T) {
	e := NewTrendEngine()

	got := e.Momentum([]float64{100, 100, 100, 100, 100, 100, 100, 110}, 7)
	if got == nil {
		t.Fatalf("expected value")
	}
	if !almostEqual(*got, 10.0) {
		t.Fatalf("momentum = %v, want 10", *got)
	}

	if e.Momentum([]float64{100, 110}, 7) != nil {
		t.Fatalf("expected nil for short series")
	}
	if e.Momentum([]float64{0, 1, 2, 3, 4, 5, 6, 7}, 7) != nil {
		t.Fatalf("expected nil for zero base value")
	}
}

func TestVolatility(t *testing.T) {
	e := NewTrendEngine()

	if e.Volatility([]float64{1, 2, 3}, 14) != nil {
		t.Fatalf("expected nil below period")
	}

	vals := make([]float64, 14)
	for i := range vals {
		vals[i] = 50
	}
	got := e.Volatility(vals, 14)
	if got == nil || *got != 0 {
		t.Fatalf("volatility = %v, want 0", got)
	}
}

func TestClassifyTrend(t *testing.T) {
	e := NewTrendEngine()

	cases := []struct {
		momentum  float64
		direction models.TrendDirection
		strength  float64
	}{
		{20, models.TrendStrongUp, 60},
		{40, models.TrendStrongUp, 100}, // capped
		{10, models.TrendUp, 40},
		{-20, models.TrendStrongDown, 60},
		{-10, models.TrendDown, 40},
		{2, models.TrendFlat, 6},
		{0, models.TrendFlat, 10},
	}
	for _, c := range cases {
		m := c.momentum
		dir, strength := e.ClassifyTrend(&m)
		if dir != c.direction || !almostEqual(strength, c.strength) {
			t.Fatalf("classify(%v) = %v/%v, want %v/%v", c.momentum, dir, strength, c.direction, c.strength)
		}
	}

	dir, strength := e.ClassifyTrend(nil)
	if dir != models.TrendFlat || strength != 0 {
		t.Fatalf("nil momentum should classify FLAT/0, got %v/%v", dir, strength)
	}
}

func TestAnalyzeEmptySeries(t *testing.T) {
	e := NewTrendEngine()

	m := e.Analyze("widget", nil)
	if m.Keyword != "widget" || m.CurrentSTR != 0 {
		t.Fatalf("unexpected metrics %+v", m)
	}
	if m.Direction != models.TrendFlat || m.Strength != 0 {
		t.Fatalf("empty series should be FLAT/0, got %v/%v", m.Direction, m.Strength)
	}
	if m.MA7 != nil || m.EMA7 != nil || m.Momentum7 != nil || m.Volatility != nil {
		t.Fatalf("expected nil indicators on empty series")
	}
}

func TestAnalyzeFullSeries(t *testing.T) {
	e := NewTrendEngine()

	values := make([]float64, 30)
	for i := range values {
		values[i] = 50 + float64(i)
	}
	m := e.Analyze("widget", values)

	if m.CurrentSTR != 79 {
		t.Fatalf("current = %v, want 79", m.CurrentSTR)
	}
	if m.MA7 == nil || m.MA14 == nil || m.MA30 == nil || m.EMA7 == nil {
		t.Fatalf("expected all moving averages present")
	}
	if !almostEqual(*m.MA7, 76) {
		t.Fatalf("ma7 = %v, want 76", *m.MA7)
	}
	if m.Momentum7 == nil || m.Momentum30 != nil {
		// 30-day momentum needs 31 samples.
		t.Fatalf("momentum presence wrong: m7=%v m30=%v", m.Momentum7, m.Momentum30)
	}
	if m.Acceleration == nil {
		t.Fatalf("expected acceleration with 30 samples")
	}
	if m.Direction != models.TrendUp && m.Direction != models.TrendStrongUp {
		t.Fatalf("rising series classified %v", m.Direction)
	}
}

func TestDetectCrossovers(t *testing.T) {
	e := NewTrendEngine()

	if got := e.DetectCrossovers([]float64{1, 2, 3}); got != nil {
		t.Fatalf("expected no crossovers on short series")
	}

	// Flat then a sharp rise: the 7-SMA must cross above the 14-SMA.
	values := make([]float64, 0, 28)
	for i := 0; i < 20; i++ {
		values = append(values, 50)
	}
	for i := 0; i < 8; i++ {
		values = append(values, 80)
	}
	crossovers := e.DetectCrossovers(values)
	if len(crossovers) == 0 {
		t.Fatalf("expected a crossover")
	}
	if crossovers[0].Type != "BULLISH_CROSSOVER" {
		t.Fatalf("first crossover = %v, want BULLISH_CROSSOVER", crossovers[0].Type)
	}
}
