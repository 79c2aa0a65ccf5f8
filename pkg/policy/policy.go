// Package policy models the declarative policy document that drives the
// engine: objectives, thresholds, allowed actions and drafting rules.
// A policy is loaded once, validated up front, and treated as immutable
// for the lifetime of a pipeline run.
package policy

import (
	"fmt"

	"github.com/vantagelabs/vantage/pkg/domain"
)

// Direction states how the business wants a metric to move.
type Direction string

const (
	DirectionMaximize Direction = "MAXIMIZE"
	DirectionMinimize Direction = "MINIMIZE"
	DirectionTarget   Direction = "TARGET"
)

// Comparator is the operator used by thresholds and rule conditions.
type Comparator string

const (
	CompareGT  Comparator = "gt"
	CompareGTE Comparator = "gte"
	CompareLT  Comparator = "lt"
	CompareLTE Comparator = "lte"
	CompareEQ  Comparator = "eq"
)

// Apply evaluates the comparator against a value and a reference.
func (c Comparator) Apply(value, reference float64) bool {
	switch c {
	case CompareGT:
		return value > reference
	case CompareGTE:
		return value >= reference
	case CompareLT:
		return value < reference
	case CompareLTE:
		return value <= reference
	case CompareEQ:
		return value == reference
	}
	return false
}

func validComparator(c Comparator) bool {
	switch c {
	case CompareGT, CompareGTE, CompareLT, CompareLTE, CompareEQ:
		return true
	}
	return false
}

// Objective declares a business goal for one metric.
type Objective struct {
	Metric    string    `yaml:"metric"`
	Direction Direction `yaml:"direction"`
	Weight    float64   `yaml:"weight"`
	Target    float64   `yaml:"target,omitempty"`
}

// Threshold is a deterministic breach rule for one metric.
type Threshold struct {
	Kind       domain.InsightKind `yaml:"kind"`
	Value      float64            `yaml:"value"`
	Comparator Comparator         `yaml:"comparator"`
}

// Trigger selects which insights a rule applies to. Empty metric or
// kind acts as a wildcard.
type Trigger struct {
	Metric string             `yaml:"metric,omitempty"`
	Kind   domain.InsightKind `yaml:"kind,omitempty"`
}

// Condition gates a rule on an insight field. A nil condition matches
// any insight of the triggering kind.
type Condition struct {
	Field        string     `yaml:"field,omitempty"`
	Comparator   Comparator `yaml:"comparator,omitempty"`
	Value        float64    `yaml:"value,omitempty"`
	MinMagnitude float64    `yaml:"min_magnitude,omitempty"`
}

// Rule binds a trigger and condition to the action it should draft.
type Rule struct {
	ID         string            `yaml:"id"`
	Trigger    Trigger           `yaml:"trigger"`
	Condition  *Condition        `yaml:"condition,omitempty"`
	ActionType string            `yaml:"action_type"`
	Target     string            `yaml:"target,omitempty"`
	Parameters map[string]string `yaml:"parameter_mapping,omitempty"`
}

// Ranking carries the composite-score weights. Zero values fall back to
// the ranker's defaults.
type Ranking struct {
	WeightMagnitude        float64 `yaml:"weight_magnitude,omitempty"`
	WeightConfidence       float64 `yaml:"weight_confidence,omitempty"`
	WeightRecency          float64 `yaml:"weight_recency,omitempty"`
	WeightObjective        float64 `yaml:"weight_objective,omitempty"`
	DefaultObjectiveWeight float64 `yaml:"default_objective_weight,omitempty"`
}

// Bands holds the confidence-band cut points.
type Bands struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

// Extraction holds extractor tolerances.
type Extraction struct {
	MaxMissingRatio float64 `yaml:"max_missing_ratio"`
}

// Policy is the full validated policy document.
type Policy struct {
	Objectives     []Objective          `yaml:"objectives"`
	Thresholds     map[string]Threshold `yaml:"thresholds,omitempty"`
	AllowedActions []string             `yaml:"allowed_actions"`
	Rules          []Rule               `yaml:"rules"`
	Ranking        Ranking              `yaml:"ranking,omitempty"`
	Bands          Bands                `yaml:"confidence_bands,omitempty"`
	Extraction     Extraction           `yaml:"extraction,omitempty"`

	// DocHash is the content hash of the source document, set by Load.
	// It keys pipeline memoization.
	DocHash string `yaml:"-"`
}

// ObjectiveFor looks up the objective declared for a metric.
func (p *Policy) ObjectiveFor(metric string) (Objective, bool) {
	for _, o := range p.Objectives {
		if o.Metric == metric {
			return o, true
		}
	}
	return Objective{}, false
}

// ThresholdFor looks up the threshold declared for a metric.
func (p *Policy) ThresholdFor(metric string) (Threshold, bool) {
	t, ok := p.Thresholds[metric]
	return t, ok
}

// ActionAllowed reports whether an action type is in the allowed set.
func (p *Policy) ActionAllowed(actionType string) bool {
	for _, a := range p.AllowedActions {
		if a == actionType {
			return true
		}
	}
	return false
}

// Band buckets a confidence value using the policy's cut points.
func (p *Policy) Band(confidence float64) domain.ConfidenceBand {
	switch {
	case confidence >= p.Bands.High:
		return domain.BandHigh
	case confidence >= p.Bands.Medium:
		return domain.BandMedium
	default:
		return domain.BandLow
	}
}

// validate checks the document field by field so bad policies fail at
// load time instead of deep inside detection.
func (p *Policy) validate() error {
	if len(p.Objectives) == 0 {
		return domain.NewSchemaError("objectives", "at least one objective is required")
	}
	for i, o := range p.Objectives {
		field := fmt.Sprintf("objectives[%d]", i)
		if o.Metric == "" {
			return domain.NewSchemaError(field+".metric", "metric name is required")
		}
		switch o.Direction {
		case DirectionMaximize, DirectionMinimize, DirectionTarget:
		default:
			return domain.NewSchemaError(field+".direction",
				fmt.Sprintf("unknown direction %q (want MAXIMIZE, MINIMIZE or TARGET)", o.Direction))
		}
		if o.Weight < 0 || o.Weight > 1 {
			return domain.NewSchemaError(field+".weight", "weight must be in [0,1]")
		}
	}

	for metric, t := range p.Thresholds {
		field := fmt.Sprintf("thresholds[%s]", metric)
		if !domain.ValidKind(t.Kind) {
			return domain.NewSchemaError(field+".kind", fmt.Sprintf("unknown insight kind %q", t.Kind))
		}
		if !validComparator(t.Comparator) {
			return domain.NewSchemaError(field+".comparator", fmt.Sprintf("unknown comparator %q", t.Comparator))
		}
	}

	seen := make(map[string]bool, len(p.Rules))
	for i, r := range p.Rules {
		field := fmt.Sprintf("rules[%d]", i)
		if r.ID == "" {
			return domain.NewSchemaError(field+".id", "rule id is required")
		}
		if seen[r.ID] {
			return domain.NewSchemaError(field+".id", fmt.Sprintf("duplicate rule id %q", r.ID))
		}
		seen[r.ID] = true
		if r.ActionType == "" {
			return domain.NewSchemaError(field+".action_type", "action_type is required")
		}
		if r.Trigger.Kind != "" && !domain.ValidKind(r.Trigger.Kind) {
			return domain.NewSchemaError(field+".trigger.kind", fmt.Sprintf("unknown insight kind %q", r.Trigger.Kind))
		}
		if c := r.Condition; c != nil && c.Field != "" {
			if !validComparator(c.Comparator) {
				return domain.NewSchemaError(field+".condition.comparator",
					fmt.Sprintf("unknown comparator %q", c.Comparator))
			}
			switch c.Field {
			case "magnitude", "confidence", "observed_value", "expected_value":
			default:
				return domain.NewSchemaError(field+".condition.field",
					fmt.Sprintf("unknown condition field %q", c.Field))
			}
		}
	}

	if p.Bands.High < p.Bands.Medium {
		return domain.NewSchemaError("confidence_bands", "high cut point must be >= medium")
	}
	if p.Extraction.MaxMissingRatio < 0 || p.Extraction.MaxMissingRatio > 1 {
		return domain.NewSchemaError("extraction.max_missing_ratio", "must be in [0,1]")
	}
	return nil
}

// applyDefaults sets default values for optional fields.
func (p *Policy) applyDefaults() {
	if p.Thresholds == nil {
		p.Thresholds = make(map[string]Threshold)
	}
	if p.Bands.High == 0 && p.Bands.Medium == 0 {
		p.Bands = Bands{High: 0.8, Medium: 0.6}
	}
}
