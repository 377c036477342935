package models

import (
	"time"

	"omniscient/pkg/util"
)

// MarketStat is one persisted observation of a tracked keyword, the unit of
// the ordered value history the analytics engines consume.
type MarketStat struct {
	Keyword          string
	Category         string
	Platform         string
	SellThroughRate  float64
	VolumeSold       int
	ActiveListings   int
	AvgPrice         *float64
	Momentum7        *float64
	MovingAvg7       *float64
	OpportunityScore *float64
	TrendDirection   TrendDirection
	MarketStatus     string
	RecordedAt       time.Time
}

// MarketStatPayload is the serialized form of a MarketStat.
type MarketStatPayload struct {
	Keyword          string         `json:"keyword"`
	Category         string         `json:"category,omitempty"`
	Platform         string         `json:"platform,omitempty"`
	SellThroughRate  float64        `json:"sell_through_rate"`
	VolumeSold       int            `json:"volume_sold"`
	ActiveListings   int            `json:"active_listings"`
	AvgPrice         *float64       `json:"avg_price"`
	Momentum7        *float64       `json:"momentum_7d"`
	MovingAvg7       *float64       `json:"ma_7d"`
	OpportunityScore *float64       `json:"opportunity_score"`
	TrendDirection   TrendDirection `json:"trend_direction,omitempty"`
	MarketStatus     string         `json:"market_status,omitempty"`
	RecordedAt       string         `json:"recorded_at"`
}

// Payload converts the stat under the fixed rounding policy.
func (s MarketStat) Payload() MarketStatPayload {
	return MarketStatPayload{
		Keyword:          s.Keyword,
		Category:         s.Category,
		Platform:         s.Platform,
		SellThroughRate:  util.Round2(s.SellThroughRate),
		VolumeSold:       s.VolumeSold,
		ActiveListings:   s.ActiveListings,
		AvgPrice:         util.Round2Ptr(s.AvgPrice),
		Momentum7:        util.Round2Ptr(s.Momentum7),
		MovingAvg7:       util.Round2Ptr(s.MovingAvg7),
		OpportunityScore: util.Round1Ptr(s.OpportunityScore),
		TrendDirection:   s.TrendDirection,
		MarketStatus:     s.MarketStatus,
		RecordedAt:       s.RecordedAt.UTC().Format(time.RFC3339),
	}
}

// MarketSnapshot is the current market health of a keyword as reported by a
// probe: the scalar summary metrics MarketScorer consumes.
type MarketSnapshot struct {
	Keyword         string
	SellThroughRate float64
	SoldDemand      int
	ActiveSupply    int
	AvgPrice        *float64
	PriceMin        *float64
	PriceMax        *float64
	MarketStatus    string
	IsEstimated     bool
	ObservedAt      time.Time
}

// DailyAggregate is one day of market-wide history.
type DailyAggregate struct {
	Date         string  `json:"date"`
	AvgSTR       float64 `json:"avg_str"`
	TotalVolume  int     `json:"total_volume"`
	ItemsTracked int     `json:"items_tracked"`
}

// CategoryHeat aggregates the latest sweep for one category.
type CategoryHeat struct {
	Category    string             `json:"category"`
	AvgSTR      float64            `json:"avg_str"`
	TotalVolume int                `json:"total_volume"`
	ItemCount   int                `json:"item_count"`
	HeatLevel   string             `json:"heat_level"`
	Items       []CategoryHeatItem `json:"items"`
}

type CategoryHeatItem struct {
	Keyword string  `json:"keyword"`
	STR     float64 `json:"str"`
	Volume  int     `json:"volume"`
	Score   float64 `json:"score"`
}

// SignalLevel grades a market signal for the live feed.
type SignalLevel string

const (
	SignalInfo     SignalLevel = "INFO"
	SignalWarning  SignalLevel = "WARNING"
	SignalCritical SignalLevel = "CRITICAL"
)

// Signal is one entry in the live feed, also published to the signal topic.
type Signal struct {
	Timestamp time.Time   `json:"-"`
	Time      string      `json:"timestamp"`
	Keyword   string      `json:"keyword,omitempty"`
	Message   string      `json:"message"`
	Level     SignalLevel `json:"level"`
}

// NewSignal stamps a signal with the feed's HH:MM:SS clock format.
func NewSignal(level SignalLevel, keyword, message string) Signal {
	now := time.Now().UTC()
	return Signal{
		Timestamp: now,
		Time:      now.Format("15:04:05"),
		Keyword:   keyword,
		Message:   message,
		Level:     level,
	}
}

// Pulse is the system-wide aggregate pushed over the live websocket.
type Pulse struct {
	GlobalVelocityIndex float64                `json:"global_velocity_index"`
	ScannedNodes        int                    `json:"scanned_nodes"`
	SystemStatus        string                 `json:"system_status"`
	LastScan            *string                `json:"last_scan"`
	TrendDistribution   map[TrendDirection]int `json:"trend_distribution"`
	TotalItemsTracked   int                    `json:"total_items_tracked"`
}

// WatchlistItem is one tracked keyword with its category.
type WatchlistItem struct {
	Keyword  string `json:"keyword" yaml:"keyword"`
	Category string `json:"category" yaml:"category"`
	Platform string `json:"platform,omitempty" yaml:"platform"`
}
