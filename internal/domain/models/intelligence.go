package models

import "time"

// Intelligence represents a consolidated analytics view for one keyword.
// Note: no transport (json/http) concerns here.
type Intelligence struct {
	Keyword   string
	Timestamp time.Time
	Trend     *TrendMetrics
	Anomalies []Anomaly
	Forecast  *Forecast
	Score     *MarketScore
	Errors    map[string]string
}

// IntelligencePayload is the serialized form of an Intelligence view.
type IntelligencePayload struct {
	Keyword   string               `json:"keyword"`
	Timestamp string               `json:"timestamp"`
	Trend     *TrendMetricsPayload `json:"trend"`
	Anomalies []AnomalyPayload     `json:"anomalies"`
	Forecast  *ForecastPayload     `json:"forecast"`
	Score     *MarketScorePayload  `json:"score"`
	Errors    map[string]string    `json:"errors,omitempty"`
}

// Payload converts the view under the fixed rounding policy.
func (i Intelligence) Payload() IntelligencePayload {
	p := IntelligencePayload{
		Keyword:   i.Keyword,
		Timestamp: i.Timestamp.UTC().Format(time.RFC3339),
		Anomalies: make([]AnomalyPayload, 0, len(i.Anomalies)),
		Errors:    i.Errors,
	}
	if i.Trend != nil {
		t := i.Trend.Payload()
		p.Trend = &t
	}
	for _, a := range i.Anomalies {
		p.Anomalies = append(p.Anomalies, a.Payload())
	}
	if i.Forecast != nil {
		f := i.Forecast.Payload()
		p.Forecast = &f
	}
	if i.Score != nil {
		s := i.Score.Payload()
		p.Score = &s
	}
	return p
}

// TrendRow is one entry of the ranked sweep snapshot served by /api/trends.
type TrendRow struct {
	Keyword     string        `json:"keyword"`
	Category    string        `json:"category"`
	Velocity    float64       `json:"velocity"`
	Volume      int           `json:"volume"`
	Supply      int           `json:"supply"`
	Sentiment   string        `json:"sentiment"`
	AvgPrice    *float64      `json:"avg_price"`
	Trend       TrendRowTrend `json:"trend"`
	Opportunity TrendRowOpp   `json:"opportunity"`
	IsEstimated bool          `json:"is_estimated"`
}

type TrendRowTrend struct {
	Direction  TrendDirection `json:"direction"`
	Momentum7  *float64       `json:"momentum_7d"`
	Momentum30 *float64       `json:"momentum_30d"`
	MA7        *float64       `json:"ma_7d"`
}

type TrendRowOpp struct {
	Score          float64          `json:"score"`
	Level          OpportunityLevel `json:"level"`
	Recommendation string           `json:"recommendation"`
}
