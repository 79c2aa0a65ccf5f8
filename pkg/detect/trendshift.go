package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// minPooledStd floors the pooled deviation so a clean level shift with
// zero within-segment variance produces a large finite effect size.
const minPooledStd = 1e-6

// TrendShiftDetector splits the series at each candidate index and
// reports the split with the largest standardized mean difference, if
// it clears the minimum effect size.
type TrendShiftDetector struct {
	cfg TrendShiftConfig
}

// NewTrendShiftDetector creates a trend shift detector with the given config.
func NewTrendShiftDetector(cfg TrendShiftConfig) *TrendShiftDetector {
	def := DefaultConfig().TrendShift
	if cfg.MinSegment <= 0 {
		cfg.MinSegment = def.MinSegment
	}
	if cfg.MinEffect <= 0 {
		cfg.MinEffect = def.MinEffect
	}
	if cfg.SaturationSize <= 0 {
		cfg.SaturationSize = def.SaturationSize
	}
	return &TrendShiftDetector{cfg: cfg}
}

func (d *TrendShiftDetector) Name() string { return "trend_shift" }

func (d *TrendShiftDetector) Kind() domain.InsightKind { return domain.KindTrendShift }

func (d *TrendShiftDetector) Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error) {
	pts := presentPoints(series)
	if len(pts) < 2*d.cfg.MinSegment {
		return nil, nil
	}

	bestEffect := 0.0
	bestSplit := -1
	var bestBefore, bestAfter float64
	for k := d.cfg.MinSegment; k <= len(pts)-d.cfg.MinSegment; k++ {
		before := values(pts[:k])
		after := values(pts[k:])
		std := pooledStd(before, after)
		if std < minPooledStd {
			std = minPooledStd
		}
		effect := math.Abs(mean(after)-mean(before)) / std
		// Strictly greater keeps the earliest maximal split.
		if effect > bestEffect {
			bestEffect = effect
			bestSplit = k
			bestBefore = mean(before)
			bestAfter = mean(after)
		}
	}

	if bestSplit < 0 || bestEffect < d.cfg.MinEffect {
		return nil, nil
	}

	n1 := bestSplit
	n2 := len(pts) - bestSplit
	w := domain.Window{Start: pts[bestSplit].index, End: pts[len(pts)-1].index}
	return []domain.Insight{{
		ID:         domain.NewInsightID(series.Metric, domain.KindTrendShift, w),
		Metric:     series.Metric,
		Kind:       domain.KindTrendShift,
		Window:     w,
		Magnitude:  bestEffect,
		Confidence: d.confidence(n1, n2),
		Observed:   bestAfter,
		Expected:   bestBefore,
		Evidence: []string{
			fmt.Sprintf("mean shifted from %.4g to %.4g at index %d (effect size %.2f, segments %d/%d)",
				bestBefore, bestAfter, w.Start, bestEffect, n1, n2),
		},
	}}, nil
}

// confidence grows with the harmonic mean of the segment sizes and
// saturates at SaturationSize: larger segments give higher confidence.
func (d *TrendShiftDetector) confidence(n1, n2 int) float64 {
	harmonic := 2 * float64(n1) * float64(n2) / float64(n1+n2)
	return math.Min(1.0, harmonic/float64(d.cfg.SaturationSize))
}
