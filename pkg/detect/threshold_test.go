package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

func makeSeries(metric string, values []float64, missing ...int) *domain.MetricSeries {
	skip := make(map[int]bool, len(missing))
	for _, i := range missing {
		skip[i] = true
	}
	points := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		points[i] = domain.SeriesPoint{Index: i, Value: v, Missing: skip[i]}
		if skip[i] {
			points[i].Value = 0
		}
	}
	return &domain.MetricSeries{Metric: metric, Points: points}
}

func thresholdPolicy(metric string, value float64, cmp policy.Comparator) *policy.Policy {
	return &policy.Policy{
		Thresholds: map[string]policy.Threshold{
			metric: {Kind: domain.KindThresholdBreach, Value: value, Comparator: cmp},
		},
	}
}

func TestThresholdDetector_SingleBreach(t *testing.T) {
	series := makeSeries("value", []float64{10, 10, 10, 10, 50, 10, 10})
	pol := thresholdPolicy("value", 40, policy.CompareGT)

	insights, err := NewThresholdDetector().Detect(context.Background(), series, pol)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	in := insights[0]
	assert.Equal(t, domain.KindThresholdBreach, in.Kind)
	assert.Equal(t, domain.Window{Start: 4, End: 4}, in.Window)
	assert.Equal(t, 10.0, in.Magnitude)
	assert.Equal(t, 1.0, in.Confidence)
	assert.Equal(t, 50.0, in.Observed)
	assert.Equal(t, 40.0, in.Expected)
}

func TestThresholdDetector_ContiguousRuns(t *testing.T) {
	series := makeSeries("value", []float64{50, 60, 10, 45, 30})
	pol := thresholdPolicy("value", 40, policy.CompareGT)

	insights, err := NewThresholdDetector().Detect(context.Background(), series, pol)

	require.NoError(t, err)
	require.Len(t, insights, 2)
	assert.Equal(t, domain.Window{Start: 0, End: 1}, insights[0].Window)
	assert.Equal(t, 20.0, insights[0].Magnitude)
	assert.Equal(t, 60.0, insights[0].Observed)
	assert.Equal(t, domain.Window{Start: 3, End: 3}, insights[1].Window)
	assert.Equal(t, 5.0, insights[1].Magnitude)
}

func TestThresholdDetector_MissingBreaksRun(t *testing.T) {
	series := makeSeries("value", []float64{50, 0, 60}, 1)
	pol := thresholdPolicy("value", 40, policy.CompareGT)

	insights, err := NewThresholdDetector().Detect(context.Background(), series, pol)

	require.NoError(t, err)
	require.Len(t, insights, 2)
}

func TestThresholdDetector_LowerBound(t *testing.T) {
	series := makeSeries("value", []float64{10, 2, 10})
	pol := thresholdPolicy("value", 5, policy.CompareLT)

	insights, err := NewThresholdDetector().Detect(context.Background(), series, pol)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, 3.0, insights[0].Magnitude)
	assert.Equal(t, 2.0, insights[0].Observed)
}

func TestThresholdDetector_NoThresholdConfigured(t *testing.T) {
	series := makeSeries("value", []float64{100, 200})

	insights, err := NewThresholdDetector().Detect(context.Background(), series, &policy.Policy{})

	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestThresholdDetector_KindMismatchIgnored(t *testing.T) {
	series := makeSeries("value", []float64{100, 200})
	pol := &policy.Policy{
		Thresholds: map[string]policy.Threshold{
			"value": {Kind: domain.KindOutlier, Value: 40, Comparator: policy.CompareGT},
		},
	}

	insights, err := NewThresholdDetector().Detect(context.Background(), series, pol)

	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestThresholdDetector_DeterministicIDs(t *testing.T) {
	series := makeSeries("value", []float64{10, 10, 10, 10, 50, 10, 10})
	pol := thresholdPolicy("value", 40, policy.CompareGT)
	det := NewThresholdDetector()

	first, err := det.Detect(context.Background(), series, pol)
	require.NoError(t, err)
	second, err := det.Detect(context.Background(), series, pol)
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}
