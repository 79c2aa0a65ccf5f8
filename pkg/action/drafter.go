package action

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// literalPrefix marks a parameter-mapping value as a literal instead of
// an insight field reference.
const literalPrefix = "literal:"

// Drafter materializes matched rules into action drafts. Drafts are
// created in the DRAFTED state only; this component never transitions
// them.
type Drafter struct {
	logger *zap.Logger
}

// NewDrafter creates an action drafter.
func NewDrafter(logger *zap.Logger) *Drafter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Drafter{logger: logger}
}

// Draft builds one ActionDraft per match. Drafting fails closed: a
// match whose parameter mapping references an unknown insight field is
// skipped and recorded as a DraftingError diagnostic; the rest of the
// run proceeds.
func (d *Drafter) Draft(matches []Match, pol *policy.Policy) ([]domain.ActionDraft, []domain.Diagnostic) {
	var drafts []domain.ActionDraft
	var diags []domain.Diagnostic

	for _, match := range matches {
		params, badRef := resolveParameters(match.Rule.Parameters, match.Insight)
		if badRef != "" {
			draftErr := domain.NewDraftingError(match.Insight.ID, match.Rule.ID, badRef)
			d.logger.Warn("Skipping draft: unresolvable parameter",
				zap.String("insight", match.Insight.ID),
				zap.String("rule", match.Rule.ID),
				zap.String("parameter", badRef))
			diags = append(diags, domain.Diagnostic{
				Code:      domain.DiagDraftingError,
				Component: "action",
				Subject:   match.Rule.ID,
				Message:   draftErr.Error(),
			})
			continue
		}

		target := match.Rule.Target
		if target == "" {
			target = match.Insight.Metric
		}

		drafts = append(drafts, domain.ActionDraft{
			ID:         domain.NewDraftID(match.Insight.ID, match.Rule.ID),
			InsightID:  match.Insight.ID,
			RuleID:     match.Rule.ID,
			ActionType: match.Rule.ActionType,
			Target:     target,
			Parameters: params,
			Rationale:  rationale(match, pol),
			Status:     domain.StatusDrafted,
		})
	}

	return drafts, diags
}

// resolveParameters maps rule parameter references onto insight fields.
// It returns the first unresolvable reference, if any.
func resolveParameters(mapping map[string]string, in domain.RankedInsight) (map[string]string, string) {
	if len(mapping) == 0 {
		return nil, ""
	}
	params := make(map[string]string, len(mapping))
	for name, ref := range mapping {
		if strings.HasPrefix(ref, literalPrefix) {
			params[name] = strings.TrimPrefix(ref, literalPrefix)
			continue
		}
		value, ok := fieldValue(ref, in)
		if !ok {
			return nil, ref
		}
		params[name] = value
	}
	return params, ""
}

// fieldValue renders a named insight field as a string.
func fieldValue(ref string, in domain.RankedInsight) (string, bool) {
	switch ref {
	case "metric_name":
		return in.Metric, true
	case "kind":
		return string(in.Kind), true
	case "window_start":
		return strconv.Itoa(in.Window.Start), true
	case "window_end":
		return strconv.Itoa(in.Window.End), true
	case "magnitude":
		return formatFloat(in.Magnitude), true
	case "confidence":
		return formatFloat(in.Confidence), true
	case "observed_value":
		return formatFloat(in.Observed), true
	case "expected_value":
		return formatFloat(in.Expected), true
	case "rank":
		return strconv.Itoa(in.Rank), true
	case "score":
		return formatFloat(in.Score), true
	}
	return "", false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// rationale renders the deterministic justification shown to the human
// approver, naming the metric, the finding and the objective behind it.
func rationale(match Match, pol *policy.Policy) string {
	in := match.Insight
	base := fmt.Sprintf("%s detected on metric %q (magnitude %s, confidence %s, window %d-%d)",
		in.Kind, in.Metric, formatFloat(in.Magnitude), formatFloat(in.Confidence),
		in.Window.Start, in.Window.End)

	if pol != nil {
		if obj, ok := pol.ObjectiveFor(in.Metric); ok {
			switch obj.Direction {
			case policy.DirectionTarget:
				return fmt.Sprintf("%s; objective holds %q at target %s", base, in.Metric, formatFloat(obj.Target))
			default:
				return fmt.Sprintf("%s; objective is to %s %q", base, strings.ToLower(string(obj.Direction)), in.Metric)
			}
		}
	}
	return base
}
