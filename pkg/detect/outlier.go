package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// OutlierDetector scores each point against a robust baseline (median
// and MAD) over a trailing window of present points. Missing values are
// excluded from the statistics, never treated as zero.
type OutlierDetector struct {
	cfg OutlierConfig
}

// NewOutlierDetector creates an outlier detector with the given config.
func NewOutlierDetector(cfg OutlierConfig) *OutlierDetector {
	def := DefaultConfig().Outlier
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = def.MinSamples
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	return &OutlierDetector{cfg: cfg}
}

func (d *OutlierDetector) Name() string { return "outlier" }

func (d *OutlierDetector) Kind() domain.InsightKind { return domain.KindOutlier }

func (d *OutlierDetector) Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error) {
	pts := presentPoints(series)
	if len(pts) <= d.cfg.MinSamples {
		return nil, nil
	}

	var insights []domain.Insight
	for k := d.cfg.MinSamples; k < len(pts); k++ {
		lo := k - d.cfg.Window
		if lo < 0 {
			lo = 0
		}
		window := values(pts[lo:k])
		med := median(window)
		spread := mad(window)
		if spread == 0 {
			// Degenerate baseline: no robust spread to score against.
			continue
		}

		z := math.Abs(madScale * (pts[k].value - med) / spread)
		if z <= d.cfg.Multiplier {
			continue
		}

		w := domain.Window{Start: pts[k].index, End: pts[k].index}
		insights = append(insights, domain.Insight{
			ID:         domain.NewInsightID(series.Metric, domain.KindOutlier, w),
			Metric:     series.Metric,
			Kind:       domain.KindOutlier,
			Window:     w,
			Magnitude:  z,
			Confidence: outlierConfidence(z, d.cfg.Multiplier),
			Observed:   pts[k].value,
			Expected:   med,
			Evidence: []string{
				fmt.Sprintf("value %.4g deviates %.2f robust deviations from trailing median %.4g (n=%d)",
					pts[k].value, z, med, len(window)),
			},
		})
	}

	return insights, nil
}

// outlierConfidence maps a robust z-score to a confidence in (0,1]:
// 0.5 at the flagging multiplier, increasing monotonically toward 1.
func outlierConfidence(z, multiplier float64) float64 {
	excess := z - multiplier
	if excess < 0 {
		excess = 0
	}
	return math.Min(1.0, 1.0-0.5/(1.0+excess))
}
