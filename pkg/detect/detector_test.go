package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

type stubDetector struct {
	name     string
	kind     domain.InsightKind
	insights []domain.Insight
	err      error
}

func (s *stubDetector) Name() string             { return s.name }
func (s *stubDetector) Kind() domain.InsightKind { return s.kind }
func (s *stubDetector) Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error) {
	return s.insights, s.err
}

func TestRunner_UnionsDetectorOutputs(t *testing.T) {
	a := domain.Insight{ID: "b-id", Kind: domain.KindOutlier, Window: domain.Window{Start: 5, End: 5}}
	b := domain.Insight{ID: "a-id", Kind: domain.KindOutlier, Window: domain.Window{Start: 2, End: 2}}
	c := domain.Insight{ID: "c-id", Kind: domain.KindTrendShift, Window: domain.Window{Start: 1, End: 9}}

	runner := NewRunnerWith(zaptest.NewLogger(t),
		&stubDetector{name: "one", insights: []domain.Insight{a}},
		&stubDetector{name: "two", insights: []domain.Insight{b, c}},
	)

	insights, diags, err := runner.Run(context.Background(), makeSeries("m", []float64{1}), nil)

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, insights, 3)
	// Sorted by kind, then window start.
	assert.Equal(t, "a-id", insights[0].ID)
	assert.Equal(t, "b-id", insights[1].ID)
	assert.Equal(t, "c-id", insights[2].ID)
}

func TestRunner_IsolatesFailingDetector(t *testing.T) {
	ok := domain.Insight{ID: "ok", Kind: domain.KindOutlier}
	runner := NewRunnerWith(zaptest.NewLogger(t),
		&stubDetector{name: "broken", err: errors.New("window too small")},
		&stubDetector{name: "healthy", insights: []domain.Insight{ok}},
	)

	insights, diags, err := runner.Run(context.Background(), makeSeries("m", []float64{1}), nil)

	require.NoError(t, err)
	require.Len(t, insights, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, domain.DiagDetectorError, diags[0].Code)
	assert.Equal(t, "broken", diags[0].Subject)
	assert.Contains(t, diags[0].Message, "window too small")
}

func TestRunner_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunnerWith(zaptest.NewLogger(t), &stubDetector{name: "one"})
	_, _, err := runner.Run(ctx, makeSeries("m", []float64{1}), nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Deterministic(t *testing.T) {
	series := makeSeries("value", []float64{10, 12, 9, 11, 10, 9, 12, 10, 11, 40, 11, 9, 10, 12, 10, 11, 9, 12})
	pol := thresholdPolicy("value", 35, policy.CompareGT)
	runner := NewRunner(DefaultConfig(), zaptest.NewLogger(t))

	first, _, err := runner.Run(context.Background(), series, pol)
	require.NoError(t, err)
	second, _, err := runner.Run(context.Background(), series, pol)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunner_FullSetOnScenarioSeries(t *testing.T) {
	// Threshold and outlier both fire on the spike; findings are
	// unioned, not deduplicated.
	series := makeSeries("value", []float64{10, 12, 9, 11, 10, 9, 12, 10, 11, 40, 11, 9, 10, 12, 10, 11, 9, 12})
	pol := thresholdPolicy("value", 35, policy.CompareGT)
	runner := NewRunner(DefaultConfig(), zaptest.NewLogger(t))

	insights, diags, err := runner.Run(context.Background(), series, pol)

	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, insights, 2)
	kinds := []domain.InsightKind{insights[0].Kind, insights[1].Kind}
	assert.Contains(t, kinds, domain.KindOutlier)
	assert.Contains(t, kinds, domain.KindThresholdBreach)
	assert.NotEqual(t, insights[0].ID, insights[1].ID)
}
