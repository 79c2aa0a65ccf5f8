// Package domain defines the core entities shared by the insight
// discovery pipeline: metric series, insights, ranked insights, action
// drafts and the diagnostics channel for non-fatal failures.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// InsightKind classifies the pattern a detector found.
type InsightKind string

const (
	KindTrendShift           InsightKind = "TREND_SHIFT"
	KindOutlier              InsightKind = "OUTLIER"
	KindThresholdBreach      InsightKind = "THRESHOLD_BREACH"
	KindSeasonalityDeviation InsightKind = "SEASONALITY_DEVIATION"
)

// ValidKind reports whether k is one of the recognized insight kinds.
func ValidKind(k InsightKind) bool {
	switch k {
	case KindTrendShift, KindOutlier, KindThresholdBreach, KindSeasonalityDeviation:
		return true
	}
	return false
}

// SeriesPoint is a single observation in a metric series. Missing points
// keep their position so window indices stay stable, but carry no value.
type SeriesPoint struct {
	Index   int     `json:"index"`
	Ordinal string  `json:"ordinal,omitempty"`
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// MetricSeries is an ordered numeric series for one metric. It is
// immutable once produced by the extractor; detectors share it read-only.
type MetricSeries struct {
	Metric string        `json:"metric"`
	Points []SeriesPoint `json:"points"`
}

// Len returns the number of points, missing ones included.
func (s *MetricSeries) Len() int {
	return len(s.Points)
}

// PresentCount returns the number of non-missing points.
func (s *MetricSeries) PresentCount() int {
	n := 0
	for _, p := range s.Points {
		if !p.Missing {
			n++
		}
	}
	return n
}

// PresentValues returns the values of non-missing points in index order.
func (s *MetricSeries) PresentValues() []float64 {
	out := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		if !p.Missing {
			out = append(out, p.Value)
		}
	}
	return out
}

// Window marks the inclusive index range an insight covers.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Insight is a single notable pattern found in a metric series.
// Identity is content-derived: two runs over the same series produce
// the same id for the same finding.
type Insight struct {
	ID         string      `json:"id"`
	Metric     string      `json:"metric"`
	Kind       InsightKind `json:"kind"`
	Window     Window      `json:"window"`
	Magnitude  float64     `json:"magnitude"`
	Confidence float64     `json:"confidence"`
	Observed   float64     `json:"observed_value"`
	Expected   float64     `json:"expected_value"`
	Evidence   []string    `json:"evidence,omitempty"`
}

// NewInsightID derives the deterministic identity of an insight from
// its metric, kind and window.
func NewInsightID(metric string, kind InsightKind, w Window) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d", metric, kind, w.Start, w.End)))
	return hex.EncodeToString(sum[:])[:16]
}

// ConfidenceBand buckets an insight's confidence for display.
type ConfidenceBand string

const (
	BandHigh   ConfidenceBand = "High"
	BandMedium ConfidenceBand = "Medium"
	BandLow    ConfidenceBand = "Low"
)

// RankedInsight is an insight with its composite relevance score and
// 1-based rank. Recomputed wholesale on every run, never mutated.
type RankedInsight struct {
	Insight
	Score float64        `json:"score"`
	Rank  int            `json:"rank"`
	Band  ConfidenceBand `json:"confidence_band"`
}

// DraftStatus is the approval state of an action draft.
type DraftStatus string

const (
	StatusDrafted  DraftStatus = "DRAFTED"
	StatusApproved DraftStatus = "APPROVED"
	StatusRejected DraftStatus = "REJECTED"
)

// ActionDraft is an unexecuted action proposal awaiting human sign-off.
// The engine only ever creates drafts in the DRAFTED state; status
// transitions belong to the approval boundary.
type ActionDraft struct {
	ID         string            `json:"id"`
	InsightID  string            `json:"linked_insight_id"`
	RuleID     string            `json:"rule_id"`
	ActionType string            `json:"action_type"`
	Target     string            `json:"target"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Rationale  string            `json:"rationale"`
	Status     DraftStatus       `json:"status"`
}

// NewDraftID derives the deterministic identity of a draft from the
// insight and rule that produced it.
func NewDraftID(insightID, ruleID string) string {
	sum := sha256.Sum256([]byte(insightID + "|" + ruleID))
	return hex.EncodeToString(sum[:])[:16]
}

// DiagnosticCode identifies the category of a non-fatal failure.
type DiagnosticCode string

const (
	DiagDetectorError     DiagnosticCode = "detector_error"
	DiagPolicyViolation   DiagnosticCode = "policy_violation"
	DiagDraftingError     DiagnosticCode = "drafting_error"
	DiagExtractionWarning DiagnosticCode = "extraction_warning"
	DiagPolicyWarning     DiagnosticCode = "policy_warning"
)

// Diagnostic records a non-fatal failure collected during a run so the
// boundary can report partial success without hiding problems.
type Diagnostic struct {
	Code      DiagnosticCode `json:"code"`
	Component string         `json:"component"`
	Subject   string         `json:"subject,omitempty"`
	Message   string         `json:"message"`
}
