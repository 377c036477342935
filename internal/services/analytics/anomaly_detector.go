package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"omniscient/internal/domain/models"
	domsvc "omniscient/internal/domain/service"
)

// Z-score severity thresholds.
const (
	lowThreshold      = 1.5
	mediumThreshold   = 2.0
	highThreshold     = 2.5
	criticalThreshold = 3.0

	// Minimum samples for reliable statistics.
	minSamples = 7
)

// Defaults for the ratio-based spike test.
const (
	DefaultSpikeLookback   = 7
	DefaultSpikeMultiplier = 2.0
	DefaultPatternWindow   = 14
)

// StatAnomalyDetector flags statistically unusual market behavior using
// Z-score analysis, spike detection and pattern matching. Stateless.
type StatAnomalyDetector struct{}

func NewStatAnomalyDetector() *StatAnomalyDetector { return &StatAnomalyDetector{} }

// zScore guards against zero variance before dividing.
func zScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// severityFor maps |z| onto the fixed severity bands.
func severityFor(z float64) models.Severity {
	absZ := math.Abs(z)
	switch {
	case absZ >= criticalThreshold:
		return models.SeverityCritical
	case absZ >= highThreshold:
		return models.SeverityHigh
	case absZ >= mediumThreshold:
		return models.SeverityMedium
	case absZ >= lowThreshold:
		return models.SeverityLow
	default:
		return models.SeverityNone
	}
}

// DetectValueAnomaly tests whether the current value is anomalous against
// its history. Requires at least minSamples history points and nonzero
// sample stdev; returns nil otherwise.
func (d *StatAnomalyDetector) DetectValueAnomaly(keyword string, current float64, history []float64) *models.Anomaly {
	if len(history) < minSamples {
		return nil
	}

	m := mean(history)
	std := sampleStdDev(history)
	if std == 0 {
		return nil
	}

	z := zScore(current, m, std)
	severity := severityFor(z)
	if severity == models.SeverityNone {
		return nil
	}

	anomalyType := models.AnomalySpike
	direction := "above"
	if z <= 0 {
		anomalyType = models.AnomalyDrop
		direction = "below"
	}

	deviationPercent := 0.0
	if m != 0 {
		deviationPercent = ((current - m) / m) * 100
	}

	return &models.Anomaly{
		Keyword:          keyword,
		Type:             anomalyType,
		Severity:         severity,
		ZScore:           z,
		CurrentValue:     current,
		ExpectedValue:    m,
		DeviationPercent: deviationPercent,
		Message: fmt.Sprintf("%s STR is %.1f%% %s normal (current: %.1f%%, expected: %.1f%%)",
			keyword, math.Abs(deviationPercent), direction, current, m),
		DetectedAt: time.Now().UTC(),
	}
}

// DetectSpike compares the latest value to the mean of the preceding
// lookback values and fires when the ratio reaches thresholdMultiplier.
// Deliberately independent in sensitivity from the z-score path: both may
// fire on the same input.
func (d *StatAnomalyDetector) DetectSpike(keyword string, values []float64, lookback int, thresholdMultiplier float64) *models.Anomaly {
	if len(values) < lookback+1 {
		return nil
	}

	recent := values[len(values)-1]
	baseline := values[len(values)-(lookback+1) : len(values)-1]
	baselineMean := mean(baseline)
	baselineStd := sampleStdDev(baseline)

	if baselineMean == 0 {
		return nil
	}

	ratio := recent / baselineMean
	if ratio < thresholdMultiplier {
		return nil
	}

	severity := models.SeverityMedium
	if ratio >= 3 {
		severity = models.SeverityHigh
	}
	deviationPercent := (ratio - 1) * 100

	return &models.Anomaly{
		Keyword:          keyword,
		Type:             models.AnomalySpike,
		Severity:         severity,
		ZScore:           zScore(recent, baselineMean, baselineStd),
		CurrentValue:     recent,
		ExpectedValue:    baselineMean,
		DeviationPercent: deviationPercent,
		Message:          fmt.Sprintf("%s spiked %.0f%% vs %d-day average", keyword, deviationPercent, lookback),
		DetectedAt:       time.Now().UTC(),
	}
}

// DetectVolumeSurge runs the same z-score machinery as the value test but
// discards negative z: a drop in volume is never a surge.
func (d *StatAnomalyDetector) DetectVolumeSurge(keyword string, current int, history []int) *models.Anomaly {
	if len(history) < minSamples {
		return nil
	}

	vals := make([]float64, len(history))
	for i, v := range history {
		vals[i] = float64(v)
	}

	m := mean(vals)
	std := sampleStdDev(vals)
	if std == 0 {
		return nil
	}

	z := zScore(float64(current), m, std)
	severity := severityFor(z)
	if severity == models.SeverityNone || z < 0 {
		return nil
	}

	deviationPercent := ((float64(current) - m) / m) * 100

	return &models.Anomaly{
		Keyword:          keyword,
		Type:             models.AnomalyVolumeSurge,
		Severity:         severity,
		ZScore:           z,
		CurrentValue:     float64(current),
		ExpectedValue:    m,
		DeviationPercent: deviationPercent,
		Message: fmt.Sprintf("%s volume surged %.0f%% above normal (%d vs avg %.0f)",
			keyword, deviationPercent, current, m),
		DetectedAt: time.Now().UTC(),
	}
}

// DetectPatternBreak splits the tail of the series into older and recent
// halves and fires when volatility doubled or the mean shifted 30%+.
func (d *StatAnomalyDetector) DetectPatternBreak(keyword string, values []float64, window int) *models.Anomaly {
	if len(values) < window*2 {
		return nil
	}

	olderHalf := values[len(values)-window*2 : len(values)-window]
	recentHalf := values[len(values)-window:]

	olderStd := sampleStdDev(olderHalf)
	recentStd := sampleStdDev(recentHalf)
	if olderStd == 0 {
		return nil
	}

	volatilityRatio := recentStd / olderStd

	olderMean := mean(olderHalf)
	recentMean := mean(recentHalf)
	meanShift := 0.0
	if olderMean != 0 {
		meanShift = ((recentMean - olderMean) / olderMean) * 100
	}

	if volatilityRatio < 2.0 && math.Abs(meanShift) < 30 {
		return nil
	}

	severity := models.SeverityMedium
	if volatilityRatio >= 3.0 || math.Abs(meanShift) >= 50 {
		severity = models.SeverityHigh
	}

	var message string
	switch {
	case volatilityRatio >= 2.0 && math.Abs(meanShift) >= 30:
		message = fmt.Sprintf("%s pattern break: volatility %.1fx and mean shift %+.0f%%", keyword, volatilityRatio, meanShift)
	case volatilityRatio >= 2.0:
		message = fmt.Sprintf("%s volatility increased %.1fx", keyword, volatilityRatio)
	default:
		message = fmt.Sprintf("%s mean shifted %+.0f%% from baseline", keyword, meanShift)
	}

	return &models.Anomaly{
		Keyword:          keyword,
		Type:             models.AnomalyPatternBreak,
		Severity:         severity,
		ZScore:           volatilityRatio, // ratio as proxy
		CurrentValue:     recentMean,
		ExpectedValue:    olderMean,
		DeviationPercent: meanShift,
		Message:          message,
		DetectedAt:       time.Now().UTC(),
	}
}

// AnalyzeBatch runs the value, spike and pattern-break tests for every item
// and returns all hits ordered most severe first. The sort is stable: ties
// keep insertion order.
func (d *StatAnomalyDetector) AnalyzeBatch(items []domsvc.BatchItem) []models.Anomaly {
	var anomalies []models.Anomaly

	for _, item := range items {
		if a := d.DetectValueAnomaly(item.Keyword, item.CurrentValue, item.History); a != nil {
			anomalies = append(anomalies, *a)
		}
		if len(item.History) > 0 {
			all := append(append([]float64{}, item.History...), item.CurrentValue)
			if a := d.DetectSpike(item.Keyword, all, DefaultSpikeLookback, DefaultSpikeMultiplier); a != nil {
				anomalies = append(anomalies, *a)
			}
			if a := d.DetectPatternBreak(item.Keyword, all, DefaultPatternWindow); a != nil {
				anomalies = append(anomalies, *a)
			}
		}
	}

	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() < anomalies[j].Severity.Rank()
	})
	return anomalies
}

// Summary builds count breakdowns and surfaces the most severe record.
func (d *StatAnomalyDetector) Summary(anomalies []models.Anomaly) models.AnomalySummary {
	summary := models.AnomalySummary{
		Total:      len(anomalies),
		BySeverity: map[models.Severity]int{},
		ByType:     map[models.AnomalyType]int{},
	}
	if len(anomalies) == 0 {
		return summary
	}
	for _, a := range anomalies {
		summary.BySeverity[a.Severity]++
		summary.ByType[a.Type]++
	}
	most := anomalies[0].Payload()
	summary.MostSevere = &most
	return summary
}

var _ domsvc.AnomalyDetector = (*StatAnomalyDetector)(nil)
