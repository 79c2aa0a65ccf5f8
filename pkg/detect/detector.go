// Package detect runs the pattern detector strategies over a metric
// series. Each detector is deterministic given identical input and
// configuration; detectors run independently and their findings are
// unioned, not deduplicated.
package detect

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// Detector finds one category of pattern in a metric series.
type Detector interface {
	Name() string
	Kind() domain.InsightKind
	Detect(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, error)
}

// Runner fans a series out to all registered detectors.
type Runner struct {
	detectors []Detector
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewRunner creates a runner with the standard detector set.
func NewRunner(cfg Config, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	return &Runner{
		detectors: []Detector{
			NewThresholdDetector(),
			NewOutlierDetector(cfg.Outlier),
			NewTrendShiftDetector(cfg.TrendShift),
			NewSeasonalityDetector(cfg.Seasonality),
		},
		logger: logger,
		tracer: otel.Tracer("vantage.detect"),
	}
}

// NewRunnerWith creates a runner over an explicit detector set.
func NewRunnerWith(logger *zap.Logger, detectors ...Detector) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		detectors: detectors,
		logger:    logger,
		tracer:    otel.Tracer("vantage.detect"),
	}
}

// Run executes every detector against the series. Detectors run in
// parallel; the series is shared read-only. A failing detector is
// isolated: its error becomes a diagnostic and the remaining findings
// are still returned. The union is sorted deterministically.
func (r *Runner) Run(ctx context.Context, series *domain.MetricSeries, pol *policy.Policy) ([]domain.Insight, []domain.Diagnostic, error) {
	ctx, span := r.tracer.Start(ctx, "detect.run",
		trace.WithAttributes(
			attribute.String("metric", series.Metric),
			attribute.Int("points", series.Len()),
		))
	defer span.End()

	type result struct {
		detector string
		insights []domain.Insight
		err      error
	}

	results := make([]result, len(r.detectors))
	var wg sync.WaitGroup
	for i, d := range r.detectors {
		wg.Add(1)
		go func(i int, d Detector) {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					results[i] = result{detector: d.Name(), err: fmt.Errorf("panic: %v", rec)}
				}
			}()
			dctx, dspan := r.tracer.Start(ctx, "detect."+d.Name())
			insights, err := d.Detect(dctx, series, pol)
			dspan.End()
			results[i] = result{detector: d.Name(), insights: insights, err: err}
		}(i, d)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var insights []domain.Insight
	var diags []domain.Diagnostic
	for _, res := range results {
		if res.err != nil {
			detErr := domain.NewDetectorError(res.detector, res.err)
			r.logger.Error("Detector failed",
				zap.String("detector", res.detector),
				zap.Error(res.err))
			diags = append(diags, domain.Diagnostic{
				Code:      domain.DiagDetectorError,
				Component: "detect",
				Subject:   res.detector,
				Message:   detErr.Error(),
			})
			continue
		}
		insights = append(insights, res.insights...)
	}

	sort.Slice(insights, func(a, b int) bool {
		if insights[a].Kind != insights[b].Kind {
			return insights[a].Kind < insights[b].Kind
		}
		if insights[a].Window.Start != insights[b].Window.Start {
			return insights[a].Window.Start < insights[b].Window.Start
		}
		return insights[a].ID < insights[b].ID
	})

	span.SetAttributes(attribute.Int("insights", len(insights)))
	r.logger.Info("Detection complete",
		zap.String("metric", series.Metric),
		zap.Int("insights", len(insights)),
		zap.Int("failed_detectors", len(diags)))

	return insights, diags, nil
}
