package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// ThresholdDetector compares each value against the policy threshold
// for the metric and emits one insight per contiguous breach run. The
// rule is deterministic, so confidence is always 1.0.
type ThresholdDetector struct{}

// NewThresholdDetector creates a threshold breach detector.
func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{}
}

func (d *ThresholdDetector) Name() string { return "threshold" }

func (d *ThresholdDetector) Kind() domain.InsightKind { return domain.KindThresholdBreach }

func (d *ThresholdDetector) Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error) {
	if pol == nil {
		return nil, nil
	}
	thr, ok := pol.ThresholdFor(series.Metric)
	if !ok || thr.Kind != domain.KindThresholdBreach {
		return nil, nil
	}

	var insights []domain.Insight
	runStart := -1
	runEnd := -1
	maxDev := 0.0
	maxObserved := 0.0

	flush := func() {
		if runStart < 0 {
			return
		}
		w := domain.Window{Start: runStart, End: runEnd}
		insights = append(insights, domain.Insight{
			ID:         domain.NewInsightID(series.Metric, domain.KindThresholdBreach, w),
			Metric:     series.Metric,
			Kind:       domain.KindThresholdBreach,
			Window:     w,
			Magnitude:  maxDev,
			Confidence: 1.0,
			Observed:   maxObserved,
			Expected:   thr.Value,
			Evidence: []string{
				fmt.Sprintf("values breach threshold %.4g (%s) from index %d to %d, max deviation %.4g",
					thr.Value, thr.Comparator, runStart, runEnd, maxDev),
			},
		})
		runStart, runEnd = -1, -1
		maxDev, maxObserved = 0, 0
	}

	for _, p := range series.Points {
		// A missing or non-breaching point ends the current run.
		if p.Missing || !thr.Comparator.Apply(p.Value, thr.Value) {
			flush()
			continue
		}
		dev := math.Abs(p.Value - thr.Value)
		if runStart < 0 {
			runStart = p.Index
			maxDev = dev
			maxObserved = p.Value
		} else if dev > maxDev {
			maxDev = dev
			maxObserved = p.Value
		}
		runEnd = p.Index
	}
	flush()

	return insights, nil
}
