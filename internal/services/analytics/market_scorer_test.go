package analytics

import (
	"strings"
	"testing"

	domsvc "omniscient/internal/domain/service"
	"omniscient/pkg/util"
)

func TestScoreExceptional(t *testing.T) {
	s := NewMarketScorer()

	score := s.Score(domsvc.ScoreInput{
		Keyword:         "widget",
		SellThroughRate: 90,
		ActiveListings:  50,
		VolumeSold:      600,
		Momentum7:       util.Float64Ptr(25),
		Volatility:      util.Float64Ptr(2),
		DataPoints:      30,
		HasHistory:      true,
	})

	if !almostEqual(score.VelocityScore, 95) {
		t.Fatalf("velocity = %v, want 95", score.VelocityScore)
	}
	if !almostEqual(score.SupplyScore, 95) {
		t.Fatalf("supply = %v, want 95", score.SupplyScore)
	}
	if !almostEqual(score.MomentumScore, 95) {
		t.Fatalf("momentum = %v, want 95", score.MomentumScore)
	}
	if !almostEqual(score.StabilityScore, 95) {
		t.Fatalf("stability = %v, want 95", score.StabilityScore)
	}
	if !almostEqual(score.VolumeScore, 86) {
		t.Fatalf("volume = %v, want 86", score.VolumeScore)
	}
	if !almostEqual(score.TotalScore, 94.1) {
		t.Fatalf("total = %v, want 94.1", score.TotalScore)
	}
	if score.OpportunityLevel != "EXCEPTIONAL" {
		t.Fatalf("level = %v", score.OpportunityLevel)
	}
	if score.Confidence != "HIGH" {
		t.Fatalf("confidence = %v", score.Confidence)
	}
	if !strings.HasPrefix(score.Recommendation, "STRONG BUY") {
		t.Fatalf("recommendation = %q", score.Recommendation)
	}
	if len(score.Strengths) != 3 || len(score.Weaknesses) != 0 {
		t.Fatalf("strengths/weaknesses = %v / %v", score.Strengths, score.Weaknesses)
	}
	if score.Strengths[0] != "High demand velocity" {
		t.Fatalf("strengths order changed: %v", score.Strengths)
	}
}

func TestScorePoorMarket(t *testing.T) {
	s := NewMarketScorer()

	score := s.Score(domsvc.ScoreInput{
		Keyword:         "dud",
		SellThroughRate: 10,
		ActiveListings:  3000,
		VolumeSold:      5,
		Momentum7:       util.Float64Ptr(-15),
		Volatility:      util.Float64Ptr(8),
		DataPoints:      10,
	})

	if score.TotalScore >= 30 {
		t.Fatalf("total = %v, want < 30", score.TotalScore)
	}
	if score.OpportunityLevel != "POOR" {
		t.Fatalf("level = %v", score.OpportunityLevel)
	}
	if !strings.HasPrefix(score.Recommendation, "STRONG AVOID") {
		t.Fatalf("recommendation = %q", score.Recommendation)
	}
	if len(score.Weaknesses) != 3 {
		t.Fatalf("weakness cap broken: %v", score.Weaknesses)
	}
}

func TestScoreMissingTrendDataIsNeutral(t *testing.T) {
	s := NewMarketScorer()

	score := s.Score(domsvc.ScoreInput{
		Keyword:         "fresh",
		SellThroughRate: 60,
		ActiveListings:  300,
		VolumeSold:      200,
		DataPoints:      3,
	})

	if !almostEqual(score.MomentumScore, 50) || !almostEqual(score.StabilityScore, 50) {
		t.Fatalf("nil metrics must score neutral: momentum=%v stability=%v",
			score.MomentumScore, score.StabilityScore)
	}
	if score.Confidence != "LOW" {
		t.Fatalf("confidence = %v, want LOW under 7 points", score.Confidence)
	}
	if !strings.HasPrefix(score.Recommendation, "CONSIDER - Balanced") {
		t.Fatalf("recommendation = %q (total %v)", score.Recommendation, score.TotalScore)
	}
}

func TestRecommendationNamesFirstWeakness(t *testing.T) {
	s := NewMarketScorer()

	score := s.Score(domsvc.ScoreInput{
		Keyword:         "fading",
		SellThroughRate: 85,
		ActiveListings:  50,
		VolumeSold:      600,
		Momentum7:       util.Float64Ptr(-12),
		DataPoints:      14,
	})

	if score.Recommendation != "CONSIDER - Watch for: Declining trend" {
		t.Fatalf("recommendation = %q (total %v)", score.Recommendation, score.TotalScore)
	}
}

func TestComponentCurvesStayInRange(t *testing.T) {
	s := NewMarketScorer()

	strs := []float64{0, 10, 29.9, 30, 49, 50, 79, 80, 100, 500}
	listings := []int{0, 50, 100, 101, 499, 500, 1999, 2000, 2001, 100000}
	momenta := []float64{-100, -10.1, -10, -5, -0.1, 0, 4.9, 5, 9.9, 10, 19.9, 20, 100}
	vols := []float64{0, 1, 5, 10, 50, 200}
	volumes := []int{0, 29, 30, 99, 100, 499, 500, 2500}

	check := func(name string, v float64) {
		if v < 0 || v > 100 {
			t.Fatalf("%s out of range: %v", name, v)
		}
	}
	for _, v := range strs {
		check("velocity", s.ScoreVelocity(v))
	}
	for _, n := range listings {
		check("supply", s.ScoreSupply(n))
	}
	for _, m := range momenta {
		check("momentum", s.ScoreMomentum(util.Float64Ptr(m)))
	}
	for _, vol := range vols {
		for _, str := range strs {
			check("stability", s.ScoreStability(util.Float64Ptr(vol), str))
		}
	}
	for _, n := range volumes {
		check("volume", s.ScoreVolume(n))
	}

	// Totals inherit the bound from the components and the weights.
	for _, str := range strs {
		for _, n := range listings {
			score := s.Score(domsvc.ScoreInput{SellThroughRate: str, ActiveListings: n})
			check("total", score.TotalScore)
		}
	}
}

func TestRankOpportunitiesStable(t *testing.T) {
	s := NewMarketScorer()

	same := domsvc.ScoreInput{SellThroughRate: 60, ActiveListings: 300, VolumeSold: 200}
	inputs := []domsvc.ScoreInput{
		{Keyword: "weak", SellThroughRate: 10, ActiveListings: 3000, VolumeSold: 5},
		{Keyword: "tie-a", SellThroughRate: same.SellThroughRate, ActiveListings: same.ActiveListings, VolumeSold: same.VolumeSold},
		{Keyword: "strong", SellThroughRate: 90, ActiveListings: 50, VolumeSold: 600},
		{Keyword: "tie-b", SellThroughRate: same.SellThroughRate, ActiveListings: same.ActiveListings, VolumeSold: same.VolumeSold},
	}

	ranked := s.RankOpportunities(inputs)
	if len(ranked) != 4 {
		t.Fatalf("len = %d", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].TotalScore < ranked[i].TotalScore {
			t.Fatalf("not descending at %d", i)
		}
	}
	if ranked[0].Keyword != "strong" || ranked[3].Keyword != "weak" {
		t.Fatalf("order: %v %v %v %v", ranked[0].Keyword, ranked[1].Keyword, ranked[2].Keyword, ranked[3].Keyword)
	}
	if ranked[1].Keyword != "tie-a" || ranked[2].Keyword != "tie-b" {
		t.Fatalf("tie order flipped: %v then %v", ranked[1].Keyword, ranked[2].Keyword)
	}
}
