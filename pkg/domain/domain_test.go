package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInsightID_Deterministic(t *testing.T) {
	a := NewInsightID("conversion_rate", KindOutlier, Window{Start: 4, End: 4})
	b := NewInsightID("conversion_rate", KindOutlier, Window{Start: 4, End: 4})

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestNewInsightID_DistinguishesInputs(t *testing.T) {
	base := NewInsightID("conversion_rate", KindOutlier, Window{Start: 4, End: 4})

	assert.NotEqual(t, base, NewInsightID("revenue", KindOutlier, Window{Start: 4, End: 4}))
	assert.NotEqual(t, base, NewInsightID("conversion_rate", KindTrendShift, Window{Start: 4, End: 4}))
	assert.NotEqual(t, base, NewInsightID("conversion_rate", KindOutlier, Window{Start: 4, End: 5}))
}

func TestNewDraftID_Deterministic(t *testing.T) {
	a := NewDraftID("insight-1", "rule-1")
	b := NewDraftID("insight-1", "rule-1")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, NewDraftID("insight-1", "rule-2"))
}

func TestMetricSeries_PresentValues(t *testing.T) {
	series := &MetricSeries{
		Metric: "latency",
		Points: []SeriesPoint{
			{Index: 0, Value: 1},
			{Index: 1, Missing: true},
			{Index: 2, Value: 3},
		},
	}

	assert.Equal(t, 3, series.Len())
	assert.Equal(t, 2, series.PresentCount())
	assert.Equal(t, []float64{1, 3}, series.PresentValues())
}

func TestValidKind(t *testing.T) {
	assert.True(t, ValidKind(KindThresholdBreach))
	assert.True(t, ValidKind(KindSeasonalityDeviation))
	assert.False(t, ValidKind(InsightKind("SOMETHING_ELSE")))
}

func TestSchemaError_Unwrap(t *testing.T) {
	cause := errors.New("bad float")
	err := WrapSchemaError("value", "not numeric", cause)

	require.ErrorContains(t, err, "value")
	assert.ErrorIs(t, err, cause)

	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr))
}

func TestDetectorError_Message(t *testing.T) {
	err := NewDetectorError("outlier", errors.New("window too small"))

	assert.Contains(t, err.Error(), "outlier")
	assert.Contains(t, err.Error(), "window too small")
}

func TestPolicyViolation_Message(t *testing.T) {
	err := NewPolicyViolation("r1", "delete_records")

	assert.Contains(t, err.Error(), "r1")
	assert.Contains(t, err.Error(), "delete_records")
}

func TestDraftingError_Message(t *testing.T) {
	err := NewDraftingError("i1", "r1", "observed")

	assert.Contains(t, err.Error(), "i1")
	assert.Contains(t, err.Error(), "observed")
}
