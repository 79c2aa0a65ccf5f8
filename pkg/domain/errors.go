package domain

import "fmt"

// SchemaError reports malformed input: a bad policy document or a
// tabular payload that cannot be projected into a metric series. It is
// fatal to the invocation that raised it: no partial output is produced.
type SchemaError struct {
	Field   string
	Message string
	Wrapped error
}

// Error implements the error interface
func (e *SchemaError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("schema error: field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("schema error: %s", e.Message)
}

// Unwrap returns the wrapped error
func (e *SchemaError) Unwrap() error {
	return e.Wrapped
}

// NewSchemaError creates a SchemaError for the given field.
func NewSchemaError(field, message string) *SchemaError {
	return &SchemaError{Field: field, Message: message}
}

// WrapSchemaError creates a SchemaError wrapping an underlying cause.
func WrapSchemaError(field, message string, err error) *SchemaError {
	return &SchemaError{Field: field, Message: message, Wrapped: err}
}

// DetectorError reports the failure of one detector strategy. Other
// detectors' insights are still returned; the failure is recorded
// per-detector in the run diagnostics.
type DetectorError struct {
	Detector string
	Wrapped  error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("detector %q failed: %v", e.Detector, e.Wrapped)
}

func (e *DetectorError) Unwrap() error {
	return e.Wrapped
}

// NewDetectorError wraps a detector strategy failure.
func NewDetectorError(detector string, err error) *DetectorError {
	return &DetectorError{Detector: detector, Wrapped: err}
}

// PolicyViolation reports a rule whose action type is not in the
// policy's allowed set. The match is dropped, never silently drafted.
type PolicyViolation struct {
	RuleID     string
	ActionType string
}

func (e *PolicyViolation) Error() string {
	return fmt.Sprintf("rule %q requests action %q which is not in allowed_actions", e.RuleID, e.ActionType)
}

// NewPolicyViolation records a disallowed action request.
func NewPolicyViolation(ruleID, actionType string) *PolicyViolation {
	return &PolicyViolation{RuleID: ruleID, ActionType: actionType}
}

// DraftingError reports a draft that could not be materialized because
// a required parameter was unresolvable. Drafting fails closed: the
// draft is skipped, the rest of the run proceeds.
type DraftingError struct {
	InsightID string
	RuleID    string
	Parameter string
}

func (e *DraftingError) Error() string {
	return fmt.Sprintf("cannot draft action for insight %q via rule %q: unresolvable parameter %q",
		e.InsightID, e.RuleID, e.Parameter)
}

// NewDraftingError records an unresolvable draft parameter.
func NewDraftingError(insightID, ruleID, parameter string) *DraftingError {
	return &DraftingError{InsightID: insightID, RuleID: ruleID, Parameter: parameter}
}
