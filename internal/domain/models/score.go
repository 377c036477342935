package models

import "omniscient/pkg/util"

// OpportunityLevel buckets a composite score for ranking.
type OpportunityLevel string

const (
	OpportunityExceptional OpportunityLevel = "EXCEPTIONAL" // 90-100
	OpportunityHigh        OpportunityLevel = "HIGH"        // 70-89
	OpportunityMedium      OpportunityLevel = "MEDIUM"      // 50-69
	OpportunityLow         OpportunityLevel = "LOW"         // 30-49
	OpportunityPoor        OpportunityLevel = "POOR"        // 0-29
)

// MarketScore is the composite opportunity record for one keyword. All
// scores and sub-scores sit in [0,100].
type MarketScore struct {
	Keyword string

	TotalScore       float64
	OpportunityLevel OpportunityLevel
	Confidence       Confidence

	VelocityScore  float64
	SupplyScore    float64
	MomentumScore  float64
	StabilityScore float64
	VolumeScore    float64

	SellThroughRate float64
	ActiveListings  int
	VolumeSold      int
	Momentum7       *float64
	Volatility      *float64

	Strengths      []string
	Weaknesses     []string
	Recommendation string
}

// ScoreComponentsPayload carries the five component scores, 1dp each.
type ScoreComponentsPayload struct {
	Velocity  float64 `json:"velocity"`
	Supply    float64 `json:"supply"`
	Momentum  float64 `json:"momentum"`
	Stability float64 `json:"stability"`
	Volume    float64 `json:"volume"`
}

// ScoreMetricsPayload echoes the raw inputs of a score.
type ScoreMetricsPayload struct {
	STR            float64  `json:"str"`
	ActiveListings int      `json:"active_listings"`
	VolumeSold     int      `json:"volume_sold"`
	Momentum7      *float64 `json:"momentum_7d"`
	Volatility     *float64 `json:"volatility"`
}

// MarketScorePayload is the serialized form of a MarketScore.
type MarketScorePayload struct {
	Keyword          string                 `json:"keyword"`
	TotalScore       float64                `json:"total_score"`
	OpportunityLevel OpportunityLevel       `json:"opportunity_level"`
	Confidence       Confidence             `json:"confidence"`
	Components       ScoreComponentsPayload `json:"components"`
	Metrics          ScoreMetricsPayload    `json:"metrics"`
	Strengths        []string               `json:"strengths"`
	Weaknesses       []string               `json:"weaknesses"`
	Recommendation   string                 `json:"recommendation"`
}

// Payload converts the score under the fixed rounding policy.
func (s MarketScore) Payload() MarketScorePayload {
	return MarketScorePayload{
		Keyword:          s.Keyword,
		TotalScore:       util.Round1(s.TotalScore),
		OpportunityLevel: s.OpportunityLevel,
		Confidence:       s.Confidence,
		Components: ScoreComponentsPayload{
			Velocity:  util.Round1(s.VelocityScore),
			Supply:    util.Round1(s.SupplyScore),
			Momentum:  util.Round1(s.MomentumScore),
			Stability: util.Round1(s.StabilityScore),
			Volume:    util.Round1(s.VolumeScore),
		},
		Metrics: ScoreMetricsPayload{
			STR:            util.Round1(s.SellThroughRate),
			ActiveListings: s.ActiveListings,
			VolumeSold:     s.VolumeSold,
			Momentum7:      util.Round1Ptr(s.Momentum7),
			Volatility:     util.Round2Ptr(s.Volatility),
		},
		Strengths:      s.Strengths,
		Weaknesses:     s.Weaknesses,
		Recommendation: s.Recommendation,
	}
}
