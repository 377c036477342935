package models

import (
	"time"

	"omniscient/pkg/util"
)

// AnomalyType identifies the kind of detected irregularity.
type AnomalyType string

const (
	AnomalySpike        AnomalyType = "SPIKE"
	AnomalyDrop         AnomalyType = "DROP"
	AnomalyPatternBreak AnomalyType = "PATTERN_BREAK"
	AnomalyVolumeSurge  AnomalyType = "VOLUME_SURGE"
)

// Severity grades an anomaly. SeverityNone means "not an anomaly" and is
// never emitted as a record.
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Rank returns the sort rank of a severity, most severe first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Anomaly is one detected statistical irregularity, created fresh per
// detection call and never mutated afterwards.
type Anomaly struct {
	Keyword          string
	Type             AnomalyType
	Severity         Severity
	ZScore           float64
	CurrentValue     float64
	ExpectedValue    float64
	DeviationPercent float64
	Message          string
	DetectedAt       time.Time
}

// AnomalyPayload is the serialized form of an Anomaly.
type AnomalyPayload struct {
	Keyword          string      `json:"keyword"`
	Type             AnomalyType `json:"anomaly_type"`
	Severity         Severity    `json:"severity"`
	ZScore           float64     `json:"z_score"`
	CurrentValue     float64     `json:"current_value"`
	ExpectedValue    float64     `json:"expected_value"`
	DeviationPercent float64     `json:"deviation_percent"`
	Message          string      `json:"message"`
	DetectedAt       string      `json:"detected_at"`
}

// Payload converts the anomaly under the fixed rounding policy.
func (a Anomaly) Payload() AnomalyPayload {
	return AnomalyPayload{
		Keyword:          a.Keyword,
		Type:             a.Type,
		Severity:         a.Severity,
		ZScore:           util.Round2(a.ZScore),
		CurrentValue:     util.Round2(a.CurrentValue),
		ExpectedValue:    util.Round2(a.ExpectedValue),
		DeviationPercent: util.Round1(a.DeviationPercent),
		Message:          a.Message,
		DetectedAt:       a.DetectedAt.UTC().Format(time.RFC3339),
	}
}

// AnomalySummary aggregates a batch of anomalies by severity and type.
type AnomalySummary struct {
	Total      int                 `json:"total"`
	BySeverity map[Severity]int    `json:"by_severity"`
	ByType     map[AnomalyType]int `json:"by_type"`
	MostSevere *AnomalyPayload     `json:"most_severe"`
}
