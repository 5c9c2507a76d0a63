package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
	SeverityUrgent Severity = "urgent"
)

// Alert is raised when a threshold rule transitions into violation and is
// resolved when a later evaluation finds the condition no longer holds.
type Alert struct {
	ID          string     `json:"id" bson:"_id"`
	Severity    Severity   `json:"severity" bson:"severity"`
	Kind        string     `json:"kind" bson:"kind"`
	PeriodKey   string     `json:"periodKey" bson:"periodKey"`
	MetricPath  string     `json:"metricPath" bson:"metricPath"`
	Message     string     `json:"message" bson:"message"`
	Value       float64    `json:"value" bson:"value"`
	Threshold   float64    `json:"threshold" bson:"threshold"`
	TriggeredAt time.Time  `json:"triggeredAt" bson:"triggeredAt"`
	Resolved    bool       `json:"resolved" bson:"resolved"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty" bson:"resolvedAt,omitempty"`
}

func NewAlert(rule ThresholdRule, periodKey string, value float64) *Alert {
	return &Alert{
		ID:          uuid.NewString(),
		Severity:    rule.Severity,
		Kind:        rule.Kind,
		PeriodKey:   periodKey,
		MetricPath:  rule.MetricPath,
		Message:     fmt.Sprintf("%s: %s %s %g (current %g)", rule.Kind, rule.MetricPath, rule.Comparator, rule.Threshold, value),
		Value:       value,
		Threshold:   rule.Threshold,
		TriggeredAt: time.Now().UTC(),
	}
}

type Comparator string

const (
	CompareGT  Comparator = "gt"
	CompareGTE Comparator = "gte"
	CompareLT  Comparator = "lt"
	CompareLTE Comparator = "lte"
)

// ThresholdRule describes one alert condition against a metric bucket.
// MetricPath addresses a value inside the bucket: "counts.<name>",
// "sums.<name>", "rate.attendance" or "rate.utilization".
type ThresholdRule struct {
	Kind       string     `json:"kind"`
	MetricPath string     `json:"metricPath"`
	Comparator Comparator `json:"comparator"`
	Threshold  float64    `json:"threshold"`
	Severity   Severity   `json:"severity"`
}

func (r ThresholdRule) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("threshold rule: kind is required")
	}
	if r.MetricPath == "" {
		return fmt.Errorf("threshold rule %q: metricPath is required", r.Kind)
	}
	switch r.Comparator {
	case CompareGT, CompareGTE, CompareLT, CompareLTE:
	default:
		return fmt.Errorf("threshold rule %q: unknown comparator %q", r.Kind, r.Comparator)
	}
	switch r.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityUrgent:
	default:
		return fmt.Errorf("threshold rule %q: unknown severity %q", r.Kind, r.Severity)
	}
	return nil
}
