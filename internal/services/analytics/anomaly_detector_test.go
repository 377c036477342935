package analytics

import (
	"math"
	"testing"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
)

// noisyHistory builds a series around base with a small alternating
// perturbation so the sample stdev is nonzero.
func noisyHistory(base float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		if i%2 == 0 {
			out[i] = base + 2
		} else {
			out[i] = base - 2
		}
	}
	return out
}

func TestSeverityBandsMonotonicExhaustive(t *testing.T) {
	cases := []struct {
		z    float64
		want models.Severity
	}{
		{0, models.SeverityNone},
		{1.49, models.SeverityNone},
		{1.5, models.SeverityLow},
		{-1.5, models.SeverityLow},
		{2.0, models.SeverityMedium},
		{2.49, models.SeverityMedium},
		{2.5, models.SeverityHigh},
		{-2.99, models.SeverityHigh},
		{3.0, models.SeverityCritical},
		{15, models.SeverityCritical},
	}
	for _, c := range cases {
		if got := severityFor(c.z); got != c.want {
			t.Fatalf("severityFor(%v) = %v, want %v", c.z, got, c.want)
		}
	}
}

func TestDetectValueAnomalyZeroVarianceGuard(t *testing.T) {
	d := NewStatAnomalyDetector()

	flat := make([]float64, 10)
	for i := range flat {
		flat[i] = 50
	}
	if a := d.DetectValueAnomaly("widget", 80, flat); a != nil {
		t.Fatalf("zero-variance history must not flag, got %+v", a)
	}
}

func TestDetectValueAnomalyCritical(t *testing.T) {
	d := NewStatAnomalyDetector()

	history := noisyHistory(50, 10) // mean 50, stdev ~2.1
	a := d.DetectValueAnomaly("widget", 80, history)
	if a == nil {
		t.Fatalf("expected anomaly")
	}
	if a.Severity != models.SeverityCritical {
		t.Fatalf("severity = %v, want CRITICAL (z=%v)", a.Severity, a.ZScore)
	}
	if a.Type != models.AnomalySpike {
		t.Fatalf("type = %v, want SPIKE", a.Type)
	}
	if a.ZScore < 10 {
		t.Fatalf("z = %v, expected z >> 3", a.ZScore)
	}
}

func TestDetectValueAnomalyDrop(t *testing.T) {
	d := NewStatAnomalyDetector()

	a := d.DetectValueAnomaly("widget", 20, noisyHistory(50, 10))
	if a == nil || a.Type != models.AnomalyDrop {
		t.Fatalf("expected DROP, got %+v", a)
	}
	if a.ZScore >= 0 {
		t.Fatalf("drop should carry negative z, got %v", a.ZScore)
	}
}

func TestDetectValueAnomalyShortHistory(t *testing.T) {
	d := NewStatAnomalyDetector()
	if a := d.DetectValueAnomaly("widget", 80, []float64{48, 52, 48}); a != nil {
		t.Fatalf("short history must not flag, got %+v", a)
	}
}

func TestDetectSpike(t *testing.T) {
	d := NewStatAnomalyDetector()

	values := []float64{10, 10, 10, 10, 10, 10, 10, 25}
	a := d.DetectSpike("widget", values, DefaultSpikeLookback, DefaultSpikeMultiplier)
	if a == nil {
		t.Fatalf("expected spike at 2.5x baseline")
	}
	if a.Severity != models.SeverityMedium {
		t.Fatalf("severity = %v, want MEDIUM at 2.5x", a.Severity)
	}
	if !almostEqual(a.DeviationPercent, 150) {
		t.Fatalf("deviation = %v, want 150", a.DeviationPercent)
	}

	values[len(values)-1] = 35
	a = d.DetectSpike("widget", values, DefaultSpikeLookback, DefaultSpikeMultiplier)
	if a == nil || a.Severity != models.SeverityHigh {
		t.Fatalf("expected HIGH at 3.5x, got %+v", a)
	}

	values[len(values)-1] = 15
	if a := d.DetectSpike("widget", values, DefaultSpikeLookback, DefaultSpikeMultiplier); a != nil {
		t.Fatalf("1.5x should not fire, got %+v", a)
	}

	zeros := []float64{0, 0, 0, 0, 0, 0, 0, 5}
	if a := d.DetectSpike("widget", zeros, DefaultSpikeLookback, DefaultSpikeMultiplier); a != nil {
		t.Fatalf("zero baseline mean must short-circuit, got %+v", a)
	}
}

func TestDetectVolumeSurgeAsymmetry(t *testing.T) {
	d := NewStatAnomalyDetector()

	history := []int{100, 104, 96, 104, 96, 104, 96, 100}

	up := d.DetectVolumeSurge("widget", 200, history)
	if up == nil || up.Type != models.AnomalyVolumeSurge {
		t.Fatalf("expected surge, got %+v", up)
	}

	// Drops never surface as surges.
	if a := d.DetectVolumeSurge("widget", 10, history); a != nil {
		t.Fatalf("negative z must be discarded, got %+v", a)
	}
}

func TestDetectPatternBreak(t *testing.T) {
	d := NewStatAnomalyDetector()

	// Stable first half, violent second half: volatility ratio fires.
	values := make([]float64, 0, 28)
	for i := 0; i < 14; i++ {
		values = append(values, 50+float64(i%2)) // stdev ~0.5
	}
	for i := 0; i < 14; i++ {
		values = append(values, 50+float64(i%2)*20) // stdev ~10
	}
	a := d.DetectPatternBreak("widget", values, DefaultPatternWindow)
	if a == nil {
		t.Fatalf("expected pattern break")
	}
	if a.Type != models.AnomalyPatternBreak || a.Severity != models.SeverityHigh {
		t.Fatalf("got %v/%v, want PATTERN_BREAK/HIGH", a.Type, a.Severity)
	}

	if a := d.DetectPatternBreak("widget", values[:20], DefaultPatternWindow); a != nil {
		t.Fatalf("needs 2x window samples, got %+v", a)
	}
}

func TestAnalyzeBatchStableSeverityOrder(t *testing.T) {
	d := NewStatAnomalyDetector()

	items := []domsvc.BatchItem{
		{Keyword: "mild", CurrentValue: 54, History: noisyHistory(50, 10)},   // z ~1.9 LOW
		{Keyword: "wild-a", CurrentValue: 80, History: noisyHistory(50, 10)}, // CRITICAL
		{Keyword: "wild-b", CurrentValue: 80, History: noisyHistory(50, 10)}, // CRITICAL
	}

	first := d.AnalyzeBatch(items)
	second := d.AnalyzeBatch(items)
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("batch sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Keyword != second[i].Keyword || first[i].Type != second[i].Type {
			t.Fatalf("order not stable at %d: %v vs %v", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if first[i-1].Severity.Rank() > first[i].Severity.Rank() {
			t.Fatalf("not sorted by severity at %d", i)
		}
	}
	// Equal-severity records keep insertion order.
	var criticals []string
	for _, a := range first {
		if a.Severity == models.SeverityCritical && a.Type != models.AnomalyPatternBreak {
			criticals = append(criticals, a.Keyword)
		}
	}
	for i := 1; i < len(criticals); i++ {
		if criticals[i-1] == "wild-b" && criticals[i] == "wild-a" {
			t.Fatalf("tie order flipped: %v", criticals)
		}
	}
}

func TestSummary(t *testing.T) {
	d := NewStatAnomalyDetector()

	empty := d.Summary(nil)
	if empty.Total != 0 || empty.MostSevere != nil {
		t.Fatalf("empty summary wrong: %+v", empty)
	}

	anomalies := d.AnalyzeBatch([]domsvc.BatchItem{
		{Keyword: "widget", CurrentValue: 80, History: noisyHistory(50, 10)},
	})
	s := d.Summary(anomalies)
	if s.Total != len(anomalies) || s.MostSevere == nil {
		t.Fatalf("summary wrong: %+v", s)
	}
	if s.MostSevere.Keyword != anomalies[0].Keyword {
		t.Fatalf("most severe should be the first sorted record")
	}
}

func TestZScoreGuard(t *testing.T) {
	if z := zScore(10, 5, 0); z != 0 {
		t.Fatalf("zero stdev must yield 0, got %v", z)
	}
	if z := zScore(10, 5, 2.5); math.Abs(z-2) > 1e-9 {
		t.Fatalf("z = %v, want 2", z)
	}
}
