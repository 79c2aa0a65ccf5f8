// Package action turns ranked insights into unexecuted action drafts:
// the policy engine matches insights against drafting rules, the
// drafter materializes proposals, and the queue holds them for human
// approval.
package action

import (
	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// Match pairs an insight with a rule that applies to it.
type Match struct {
	Insight domain.RankedInsight
	Rule    policy.Rule
}

// Matcher evaluates ranked insights against the policy's rules.
type Matcher struct {
	logger *zap.Logger
}

// NewMatcher creates a policy rule matcher.
func NewMatcher(logger *zap.Logger) *Matcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{logger: logger}
}

// Match finds every (insight, rule) pair whose trigger and condition
// are satisfied. Matching is idempotent: a rule is applied at most once
// per insight per run. A rule requesting an action outside the allowed
// set produces a PolicyViolation diagnostic instead of a match, so the
// engine never silently drafts disallowed actions.
func (m *Matcher) Match(insights []domain.RankedInsight, pol *policy.Policy) ([]Match, []domain.Diagnostic) {
	var matches []Match
	var diags []domain.Diagnostic
	seen := make(map[string]bool)

	for _, in := range insights {
		for _, rule := range pol.Rules {
			if !triggerMatches(rule.Trigger, in) || !conditionMatches(rule.Condition, in) {
				continue
			}
			key := in.ID + "|" + rule.ID
			if seen[key] {
				continue
			}
			seen[key] = true

			if !pol.ActionAllowed(rule.ActionType) {
				violation := domain.NewPolicyViolation(rule.ID, rule.ActionType)
				m.logger.Warn("Dropping rule match: action not allowed",
					zap.String("rule", rule.ID),
					zap.String("action_type", rule.ActionType),
					zap.String("insight", in.ID))
				diags = append(diags, domain.Diagnostic{
					Code:      domain.DiagPolicyViolation,
					Component: "action",
					Subject:   rule.ID,
					Message:   violation.Error(),
				})
				continue
			}

			matches = append(matches, Match{Insight: in, Rule: rule})
		}
	}

	return matches, diags
}

// triggerMatches checks a rule trigger against an insight. Empty
// trigger fields act as wildcards.
func triggerMatches(t policy.Trigger, in domain.RankedInsight) bool {
	if t.Metric != "" && t.Metric != in.Metric {
		return false
	}
	if t.Kind != "" && t.Kind != in.Kind {
		return false
	}
	return true
}

// conditionMatches evaluates a rule condition against insight fields.
// A nil condition matches any insight of the triggering kind.
func conditionMatches(c *policy.Condition, in domain.RankedInsight) bool {
	if c == nil {
		return true
	}
	if c.MinMagnitude > 0 && abs(in.Magnitude) < c.MinMagnitude {
		return false
	}
	if c.Field == "" {
		return true
	}
	var value float64
	switch c.Field {
	case "magnitude":
		value = in.Magnitude
	case "confidence":
		value = in.Confidence
	case "observed_value":
		value = in.Observed
	case "expected_value":
		value = in.Expected
	default:
		return false
	}
	return c.Comparator.Apply(value, c.Value)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
