package models

import "omniscient/pkg/util"

// TrendDirection classifies the direction of a sell-through-rate trend.
type TrendDirection string

const (
	TrendStrongUp   TrendDirection = "STRONG_UP"
	TrendUp         TrendDirection = "UP"
	TrendFlat       TrendDirection = "FLAT"
	TrendDown       TrendDirection = "DOWN"
	TrendStrongDown TrendDirection = "STRONG_DOWN"
)

// TrendMetrics is a snapshot of computed trend state for one tracked keyword.
// Moving-average and momentum fields are nil when the history is shorter than
// the corresponding period.
type TrendMetrics struct {
	Keyword      string
	CurrentSTR   float64
	MA7          *float64
	MA14         *float64
	MA30         *float64
	EMA7         *float64
	Momentum7    *float64 // % change over 7 days
	Momentum30   *float64 // % change over 30 days
	Acceleration *float64
	Direction    TrendDirection
	Strength     float64  // 0-100
	Volatility   *float64 // 14d sample stdev
}

// Crossover is a moving-average crossover event within a value series.
type Crossover struct {
	Type  string // BULLISH_CROSSOVER or BEARISH_CROSSOVER
	Index int
	MA7   float64
	MA14  float64
}

// TrendMetricsPayload is the wire shape of TrendMetrics under the fixed
// rounding policy: metrics 2dp, percentages 2dp momentum / 1dp strength,
// nil serialized as null.
type TrendMetricsPayload struct {
	Keyword      string         `json:"keyword"`
	CurrentSTR   float64        `json:"current_str"`
	MA7          *float64       `json:"ma_7d"`
	MA14         *float64       `json:"ma_14d"`
	MA30         *float64       `json:"ma_30d"`
	EMA7         *float64       `json:"ema_7d"`
	Momentum7    *float64       `json:"momentum_7d"`
	Momentum30   *float64       `json:"momentum_30d"`
	Acceleration *float64       `json:"acceleration"`
	Direction    TrendDirection `json:"trend_direction"`
	Strength     float64        `json:"trend_strength"`
	Volatility   *float64       `json:"volatility"`
}

// Payload converts the metrics to their serialized form.
func (m TrendMetrics) Payload() TrendMetricsPayload {
	return TrendMetricsPayload{
		Keyword:      m.Keyword,
		CurrentSTR:   util.Round2(m.CurrentSTR),
		MA7:          util.Round2Ptr(m.MA7),
		MA14:         util.Round2Ptr(m.MA14),
		MA30:         util.Round2Ptr(m.MA30),
		EMA7:         util.Round2Ptr(m.EMA7),
		Momentum7:    util.Round2Ptr(m.Momentum7),
		Momentum30:   util.Round2Ptr(m.Momentum30),
		Acceleration: util.Round2Ptr(m.Acceleration),
		Direction:    m.Direction,
		Strength:     util.Round1(m.Strength),
		Volatility:   util.Round2Ptr(m.Volatility),
	}
}
