package analytics

import (
	"fmt"
	"math"
	"sort"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
	"omniscient/pkg/util"
)

// Component weights; must sum to exactly 1.0.
const (
	weightVelocity  = 0.30
	weightSupply    = 0.25
	weightMomentum  = 0.20
	weightStability = 0.15
	weightVolume    = 0.10
)

// Sell-through-rate breakpoints.
const (
	strExcellent = 80.0
	strGood      = 50.0
	strFair      = 30.0
)

// Supply breakpoints (active listings); lower supply scores higher.
const (
	supplyLow    = 100
	supplyMedium = 500
	supplyHigh   = 2000
)

// Volume breakpoints (units sold).
const (
	volumeHigh   = 500
	volumeMedium = 100
	volumeLow    = 30
)

// MarketScorer turns raw market metrics plus trend scalars into a weighted
// 0-100 opportunity score with component breakdown. Stateless.
type MarketScorer struct{}

func NewMarketScorer() *MarketScorer { return &MarketScorer{} }

// clampScore bounds a component or total to [0,100].
func clampScore(v float64) float64 { return util.Clamp(v, 0, 100) }

// ScoreVelocity maps the sell-through rate onto [0,100].
func (s *MarketScorer) ScoreVelocity(str float64) float64 {
	switch {
	case str >= strExcellent:
		return clampScore(90 + math.Min(10, (str-strExcellent)/2))
	case str >= strGood:
		return clampScore(60 + ((str-strGood)/(strExcellent-strGood))*30)
	case str >= strFair:
		return clampScore(30 + ((str-strFair)/(strGood-strFair))*30)
	default:
		return clampScore((str / strFair) * 30)
	}
}

// ScoreSupply is inverted: scarcity scores high, oversaturation beyond the
// high breakpoint keeps decaying.
func (s *MarketScorer) ScoreSupply(activeListings int) float64 {
	n := float64(activeListings)
	switch {
	case activeListings <= supplyLow:
		return clampScore(90 + math.Min(10, (supplyLow-n)/10))
	case activeListings <= supplyMedium:
		return clampScore(60 + ((supplyMedium-n)/(supplyMedium-supplyLow))*30)
	case activeListings <= supplyHigh:
		return clampScore(30 + ((supplyHigh-n)/(supplyHigh-supplyMedium))*30)
	default:
		return clampScore(math.Max(0, 30-(n-supplyHigh)/100))
	}
}

// ScoreMomentum maps 7-day momentum % onto [0,100]; nil momentum is
// neutral.
func (s *MarketScorer) ScoreMomentum(momentum7 *float64) float64 {
	if momentum7 == nil {
		return 50
	}
	m := *momentum7
	switch {
	case m >= 20:
		return 95
	case m >= 10:
		return clampScore(80 + (m - 10))
	case m >= 5:
		return clampScore(65 + (m-5)*3)
	case m >= 0:
		return clampScore(50 + m*3)
	case m >= -5:
		return clampScore(50 + m*4)
	case m >= -10:
		return clampScore(30 + (m+10)*4)
	default:
		return clampScore(math.Max(0, 30+(m+10)*2))
	}
}

// ScoreStability maps the coefficient of variation onto [0,100]; nil
// volatility or a zero base rate is neutral.
func (s *MarketScorer) ScoreStability(volatility *float64, avgSTR float64) float64 {
	if volatility == nil || avgSTR == 0 {
		return 50
	}
	cv := *volatility / avgSTR
	switch {
	case cv <= 0.1:
		return 95
	case cv <= 0.2:
		return clampScore(80 + (0.2-cv)*150)
	case cv <= 0.3:
		return clampScore(60 + (0.3-cv)*200)
	case cv <= 0.5:
		return clampScore(30 + (0.5-cv)*150)
	default:
		return clampScore(math.Max(0, 30-(cv-0.5)*50))
	}
}

// ScoreVolume maps units sold onto [0,100].
func (s *MarketScorer) ScoreVolume(volumeSold int) float64 {
	n := float64(volumeSold)
	switch {
	case volumeSold >= volumeHigh:
		return clampScore(85 + math.Min(15, (n-volumeHigh)/100))
	case volumeSold >= volumeMedium:
		return clampScore(60 + ((n-volumeMedium)/(volumeHigh-volumeMedium))*25)
	case volumeSold >= volumeLow:
		return clampScore(35 + ((n-volumeLow)/(volumeMedium-volumeLow))*25)
	default:
		return clampScore((n / volumeLow) * 35)
	}
}

func opportunityLevelFor(score float64) models.OpportunityLevel {
	switch {
	case score >= 90:
		return models.OpportunityExceptional
	case score >= 70:
		return models.OpportunityHigh
	case score >= 50:
		return models.OpportunityMedium
	case score >= 30:
		return models.OpportunityLow
	default:
		return models.OpportunityPoor
	}
}

func confidenceFor(dataPoints int, hasHistory bool) models.Confidence {
	switch {
	case dataPoints >= 30 && hasHistory:
		return models.ConfidenceHigh
	case dataPoints >= 7:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

type componentDescriptor struct {
	score    float64
	strength string
	weakness string
}

// strengthsWeaknesses walks the components in fixed order (velocity,
// supply, momentum, stability, volume) and collects at most three
// descriptors per list; the fixed order makes the output deterministic.
func strengthsWeaknesses(velocity, supply, momentum, stability, volume float64) ([]string, []string) {
	components := []componentDescriptor{
		{velocity, "High demand velocity", "Low demand velocity"},
		{supply, "Limited supply", "Oversaturated market"},
		{momentum, "Positive trend momentum", "Declining trend"},
		{stability, "Stable performance", "High volatility"},
		{volume, "Proven market volume", "Limited market size"},
	}

	var strengths, weaknesses []string
	for _, c := range components {
		if c.score >= 70 && len(strengths) < 3 {
			strengths = append(strengths, c.strength)
		} else if c.score < 40 && len(weaknesses) < 3 {
			weaknesses = append(weaknesses, c.weakness)
		}
	}
	return strengths, weaknesses
}

func recommendationFor(totalScore float64, weaknesses []string, momentumScore float64) string {
	switch {
	case totalScore >= 90:
		return "STRONG BUY - Exceptional opportunity with high demand and limited supply"
	case totalScore >= 75:
		if momentumScore >= 70 {
			return "BUY - Strong fundamentals with positive momentum"
		}
		return "BUY - Strong fundamentals, monitor for momentum shift"
	case totalScore >= 60:
		if len(weaknesses) == 0 {
			return "CONSIDER - Balanced opportunity with no major concerns"
		}
		return fmt.Sprintf("CONSIDER - Watch for: %s", weaknesses[0])
	case totalScore >= 45:
		return "HOLD - Mixed signals, wait for clearer trend"
	case totalScore >= 30:
		return "AVOID - Unfavorable conditions"
	default:
		return "STRONG AVOID - Poor market conditions"
	}
}

// Score computes the full composite opportunity record for one keyword.
func (s *MarketScorer) Score(in domsvc.ScoreInput) models.MarketScore {
	velocityScore := s.ScoreVelocity(in.SellThroughRate)
	supplyScore := s.ScoreSupply(in.ActiveListings)
	momentumScore := s.ScoreMomentum(in.Momentum7)
	stabilityScore := s.ScoreStability(in.Volatility, in.SellThroughRate)
	volumeScore := s.ScoreVolume(in.VolumeSold)

	totalScore := clampScore(
		velocityScore*weightVelocity +
			supplyScore*weightSupply +
			momentumScore*weightMomentum +
			stabilityScore*weightStability +
			volumeScore*weightVolume,
	)

	strengths, weaknesses := strengthsWeaknesses(velocityScore, supplyScore, momentumScore, stabilityScore, volumeScore)

	return models.MarketScore{
		Keyword:          in.Keyword,
		TotalScore:       totalScore,
		OpportunityLevel: opportunityLevelFor(totalScore),
		Confidence:       confidenceFor(in.DataPoints, in.HasHistory),
		VelocityScore:    velocityScore,
		SupplyScore:      supplyScore,
		MomentumScore:    momentumScore,
		StabilityScore:   stabilityScore,
		VolumeScore:      volumeScore,
		SellThroughRate:  in.SellThroughRate,
		ActiveListings:   in.ActiveListings,
		VolumeSold:       in.VolumeSold,
		Momentum7:        in.Momentum7,
		Volatility:       in.Volatility,
		Strengths:        strengths,
		Weaknesses:       weaknesses,
		Recommendation:   recommendationFor(totalScore, weaknesses, momentumScore),
	}
}

// RankOpportunities scores a batch and sorts descending by total score.
// Stable: ties preserve input order.
func (s *MarketScorer) RankOpportunities(inputs []domsvc.ScoreInput) []models.MarketScore {
	scores := make([]models.MarketScore, 0, len(inputs))
	for _, in := range inputs {
		scores = append(scores, s.Score(in))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
	return scores
}

var _ domsvc.OpportunityScorer = (*MarketScorer)(nil)
