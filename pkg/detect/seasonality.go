package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// spreadFloor keeps the phase tolerance band from collapsing when the
// phase history is perfectly regular, as a fraction of the series MAD.
const spreadFloor = 0.05

// SeasonalityDetector looks for a periodic structure in the series and
// compares each point against the same phase in prior cycles. Points
// outside the tolerance band are flagged.
type SeasonalityDetector struct {
	cfg SeasonalityConfig
}

// NewSeasonalityDetector creates a seasonality deviation detector.
func NewSeasonalityDetector(cfg SeasonalityConfig) *SeasonalityDetector {
	def := DefaultConfig().Seasonality
	if cfg.MinCycles <= 0 {
		cfg.MinCycles = def.MinCycles
	}
	if cfg.PeriodTolerance <= 0 {
		cfg.PeriodTolerance = def.PeriodTolerance
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = def.Multiplier
	}
	return &SeasonalityDetector{cfg: cfg}
}

func (d *SeasonalityDetector) Name() string { return "seasonality" }

func (d *SeasonalityDetector) Kind() domain.InsightKind { return domain.KindSeasonalityDeviation }

func (d *SeasonalityDetector) Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error) {
	seriesMAD := mad(series.PresentValues())
	if seriesMAD == 0 {
		return nil, nil
	}

	period, ok := d.detectPeriod(series, seriesMAD)
	if !ok {
		return nil, nil
	}

	var insights []domain.Insight
	for pos, p := range series.Points {
		if p.Missing {
			continue
		}
		history := phaseHistory(series, pos, period)
		if len(history) < d.cfg.MinCycles {
			continue
		}
		med := median(history)
		spread := math.Max(mad(history), spreadFloor*seriesMAD)
		z := math.Abs(p.Value-med) / spread
		if z <= d.cfg.Multiplier {
			continue
		}

		w := domain.Window{Start: p.Index, End: p.Index}
		cycles := float64(len(history))
		confidence := math.Min(1.0, (1.0-0.5/(1.0+z-d.cfg.Multiplier))*(cycles/(cycles+1)))
		insights = append(insights, domain.Insight{
			ID:         domain.NewInsightID(series.Metric, domain.KindSeasonalityDeviation, w),
			Metric:     series.Metric,
			Kind:       domain.KindSeasonalityDeviation,
			Window:     w,
			Magnitude:  z,
			Confidence: confidence,
			Observed:   p.Value,
			Expected:   med,
			Evidence: []string{
				fmt.Sprintf("value %.4g deviates from phase median %.4g over %d prior cycles (period %d, %.1f band widths)",
					p.Value, med, len(history), period, z),
			},
		})
	}

	return insights, nil
}

// detectPeriod searches for the lag whose same-phase differences are
// smallest. The median difference makes the score robust to a single
// anomaly. A period only counts when same-phase similarity clearly
// beats lag-1 similarity, so flat or merely smooth series do not pass.
func (d *SeasonalityDetector) detectPeriod(series *domain.MetricSeries, seriesMAD float64) (int, bool) {
	n := series.Len()
	maxPeriod := n / d.cfg.MinCycles
	if maxPeriod < 2 {
		return 0, false
	}

	bestScore := math.Inf(1)
	bestPeriod := 0
	for p := 2; p <= maxPeriod; p++ {
		score, ok := lagScore(series, p)
		if !ok {
			continue
		}
		if score < bestScore {
			bestScore = score
			bestPeriod = p
		}
	}
	if bestPeriod == 0 || bestScore > d.cfg.PeriodTolerance*seriesMAD {
		return 0, false
	}

	lag1, ok := lagScore(series, 1)
	if !ok || lag1 <= math.Max(2*bestScore, 0.5*seriesMAD) {
		return 0, false
	}
	return bestPeriod, true
}

// lagScore returns the median absolute difference between points that
// sit lag positions apart, over pairs where both points are present.
func lagScore(series *domain.MetricSeries, lag int) (float64, bool) {
	var diffs []float64
	for i := 0; i+lag < len(series.Points); i++ {
		a, b := series.Points[i], series.Points[i+lag]
		if a.Missing || b.Missing {
			continue
		}
		diffs = append(diffs, math.Abs(a.Value-b.Value))
	}
	if len(diffs) < 3 {
		return 0, false
	}
	return median(diffs), true
}

// phaseHistory returns the present values at the same phase in prior
// cycles, newest last.
func phaseHistory(series *domain.MetricSeries, pos, period int) []float64 {
	var history []float64
	for j := pos - period; j >= 0; j -= period {
		if !series.Points[j].Missing {
			history = append(history, series.Points[j].Value)
		}
	}
	// Reverse into chronological order; callers only take medians but
	// evidence reads better oldest-first.
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	return history
}
