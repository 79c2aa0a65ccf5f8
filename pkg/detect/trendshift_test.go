package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantagelabs/vantage/pkg/domain"
)

func TestTrendShiftDetector_CleanMeanShift(t *testing.T) {
	series := makeSeries("value", []float64{10, 10, 10, 10, 10, 30, 30, 30, 30, 30})

	insights, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), series, nil)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	in := insights[0]
	assert.Equal(t, domain.KindTrendShift, in.Kind)
	assert.Equal(t, 5, in.Window.Start)
	assert.Equal(t, 9, in.Window.End)
	assert.Equal(t, 30.0, in.Observed)
	assert.Equal(t, 10.0, in.Expected)
	// Harmonic mean of 5/5 segments against a saturation size of 30.
	assert.InDelta(t, 5.0/30.0, in.Confidence, 1e-9)
}

func TestTrendShiftDetector_NoisyShift(t *testing.T) {
	series := makeSeries("value", []float64{10, 11, 9, 10, 11, 9, 30, 31, 29, 30, 31, 29})

	insights, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), series, nil)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	assert.Equal(t, 6, insights[0].Window.Start)
	assert.Greater(t, insights[0].Magnitude, 1.0)
}

func TestTrendShiftDetector_FlatSeries(t *testing.T) {
	series := makeSeries("value", []float64{10, 11, 10, 11, 10, 11})

	insights, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), series, nil)

	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestTrendShiftDetector_TooShort(t *testing.T) {
	series := makeSeries("value", []float64{10, 10, 30, 30})

	insights, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), series, nil)

	require.NoError(t, err)
	assert.Empty(t, insights)
}

func TestTrendShiftDetector_MissingExcluded(t *testing.T) {
	series := makeSeries("value",
		[]float64{10, 0, 10, 10, 10, 10, 0, 30, 30, 30, 30, 30},
		1, 6)

	insights, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), series, nil)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	// The first present point of the after-segment is at index 7.
	assert.Equal(t, 7, insights[0].Window.Start)
}

func TestTrendShiftDetector_LargerSegmentsRaiseConfidence(t *testing.T) {
	short := makeSeries("value", []float64{10, 10, 10, 30, 30, 30})
	long := makeSeries("value", []float64{10, 10, 10, 10, 10, 10, 10, 10, 30, 30, 30, 30, 30, 30, 30, 30})

	a, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), short, nil)
	require.NoError(t, err)
	b, err := NewTrendShiftDetector(TrendShiftConfig{}).Detect(context.Background(), long, nil)
	require.NoError(t, err)

	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Greater(t, b[0].Confidence, a[0].Confidence)
}
