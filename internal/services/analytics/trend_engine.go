package analytics

import (
	"fmt"
	"math"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
)

// Momentum thresholds (percent) for trend classification.
const (
	strongUpThreshold   = 15.0
	upThreshold         = 5.0
	downThreshold       = -5.0
	strongDownThreshold = -15.0
)

// TrendEngine computes moving averages, momentum and trend classification
// over sell-through-rate series. Stateless; safe for concurrent use.
type TrendEngine struct{}

func NewTrendEngine() *TrendEngine { return &TrendEngine{} }

// SMA returns the simple moving average of the last period values, or nil
// when the series is shorter than period.
func (e *TrendEngine) SMA(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	out := sum / float64(period)
	return &out
}

// EMA returns the exponential moving average seeded with the first element
// of the whole series and run across every subsequent element. The
// whole-series recurrence (rather than a window-local EMA) is intentional
// and must not be "fixed" to a textbook windowed variant.
func (e *TrendEngine) EMA(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	multiplier := 2 / float64(period+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = (v-ema)*multiplier + ema
	}
	return &ema
}

// Momentum returns the percent change between the last value and the value
// period+1 steps from the end. Nil when the series is too short or the base
// value is exactly zero.
func (e *TrendEngine) Momentum(values []float64, period int) *float64 {
	if len(values) < period+1 {
		return nil
	}
	oldValue := values[len(values)-(period+1)]
	currentValue := values[len(values)-1]
	if oldValue == 0 {
		return nil
	}
	out := ((currentValue - oldValue) / oldValue) * 100
	return &out
}

// Volatility returns the sample standard deviation of the last period
// values, or nil below the threshold.
func (e *TrendEngine) Volatility(values []float64, period int) *float64 {
	if len(values) < period {
		return nil
	}
	out := sampleStdDev(values[len(values)-period:])
	return &out
}

// ClassifyTrend maps a momentum reading onto a direction and a 0-100
// strength. Nil momentum classifies as FLAT at strength 0.
func (e *TrendEngine) ClassifyTrend(momentum *float64) (models.TrendDirection, float64) {
	if momentum == nil {
		return models.TrendFlat, 0
	}
	m := *momentum
	switch {
	case m > strongUpThreshold:
		return models.TrendStrongUp, math.Min(100, 50+(m-strongUpThreshold)*2)
	case m > upThreshold:
		return models.TrendUp, 30 + (m-upThreshold)*2
	case m < strongDownThreshold:
		return models.TrendStrongDown, math.Min(100, 50+math.Abs(m-strongDownThreshold)*2)
	case m < downThreshold:
		return models.TrendDown, 30 + math.Abs(m-downThreshold)*2
	default:
		return models.TrendFlat, math.Max(0, 10-math.Abs(m)*2)
	}
}

// Analyze runs the full trend analysis over a value series sorted oldest to
// newest. An empty series yields zero-valued metrics, never an error.
func (e *TrendEngine) Analyze(keyword string, values []float64) models.TrendMetrics {
	if len(values) == 0 {
		return models.TrendMetrics{Keyword: keyword, Direction: models.TrendFlat}
	}

	momentum7 := e.Momentum(values, 7)

	// Acceleration: recent 7-day momentum vs the reading one window back.
	var acceleration *float64
	if len(values) >= 14 {
		older := values[:len(values)-7]
		if olderMomentum := e.Momentum(older, 7); olderMomentum != nil && momentum7 != nil {
			d := *momentum7 - *olderMomentum
			acceleration = &d
		}
	}

	direction, strength := e.ClassifyTrend(momentum7)

	return models.TrendMetrics{
		Keyword:      keyword,
		CurrentSTR:   values[len(values)-1],
		MA7:          e.SMA(values, 7),
		MA14:         e.SMA(values, 14),
		MA30:         e.SMA(values, 30),
		EMA7:         e.EMA(values, 7),
		Momentum7:    momentum7,
		Momentum30:   e.Momentum(values, 30),
		Acceleration: acceleration,
		Direction:    direction,
		Strength:     strength,
		Volatility:   e.Volatility(values, 14),
	}
}

// DetectCrossovers walks the series from index 14 and reports transitions of
// the 7-SMA across the 14-SMA. Prefix recomputation per index is quadratic
// but fine for the bounded series lengths this system handles.
func (e *TrendEngine) DetectCrossovers(values []float64) []models.Crossover {
	if len(values) < 15 {
		return nil
	}

	var crossovers []models.Crossover
	for i := 14; i < len(values); i++ {
		ma7Curr := e.SMA(values[:i+1], 7)
		ma14Curr := e.SMA(values[:i+1], 14)
		ma7Prev := e.SMA(values[:i], 7)
		ma14Prev := e.SMA(values[:i], 14)
		if ma7Curr == nil || ma14Curr == nil || ma7Prev == nil || ma14Prev == nil {
			continue
		}
		switch {
		case *ma7Prev <= *ma14Prev && *ma7Curr > *ma14Curr:
			crossovers = append(crossovers, models.Crossover{
				Type: "BULLISH_CROSSOVER", Index: i, MA7: *ma7Curr, MA14: *ma14Curr,
			})
		case *ma7Prev >= *ma14Prev && *ma7Curr < *ma14Curr:
			crossovers = append(crossovers, models.Crossover{
				Type: "BEARISH_CROSSOVER", Index: i, MA7: *ma7Curr, MA14: *ma14Curr,
			})
		}
	}
	return crossovers
}

// Summary renders a human-readable one-liner for a metrics snapshot.
func (e *TrendEngine) Summary(m models.TrendMetrics) string {
	directionText := map[models.TrendDirection]string{
		models.TrendStrongUp:   "strongly trending upward",
		models.TrendUp:         "trending upward",
		models.TrendFlat:       "relatively stable",
		models.TrendDown:       "trending downward",
		models.TrendStrongDown: "strongly trending downward",
	}

	summary := fmt.Sprintf("%s is %s", m.Keyword, directionText[m.Direction])
	if m.Momentum7 != nil && *m.Momentum7 != 0 {
		word := "gain"
		if *m.Momentum7 < 0 {
			word = "decline"
		}
		summary += fmt.Sprintf(" with %.1f%% %s over 7 days", math.Abs(*m.Momentum7), word)
	}
	if m.Acceleration != nil && math.Abs(*m.Acceleration) > 2 {
		if *m.Acceleration > 0 {
			summary += " (accelerating)"
		} else {
			summary += " (decelerating)"
		}
	}
	return summary
}

var _ domsvc.TrendAnalyzer = (*TrendEngine)(nil)
