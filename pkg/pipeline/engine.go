// Package pipeline wires the analytical core into a single synchronous
// invocation: extract, detect, rank, match, draft. Each run is pure
// with respect to its inputs and produces a fresh immutable result set.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/action"
	"github.com/vantagelabs/vantage/pkg/detect"
	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/extract"
	"github.com/vantagelabs/vantage/pkg/policy"
	"github.com/vantagelabs/vantage/pkg/rank"
)

// Selection names what to analyze in the tabular input.
type Selection struct {
	// Metric is the column to analyze. Required.
	Metric string
	// OrderBy optionally names the ordering/timestamp column.
	OrderBy string
}

// Config configures the pipeline engine.
type Config struct {
	// Detect carries the detector tunables.
	Detect detect.Config
	// DisableMemoization turns off the (data, policy) result cache.
	DisableMemoization bool
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{Detect: detect.DefaultConfig()}
}

// Result is the output contract of one pipeline run: ranked insights
// for the boundary's insight cards and drafted actions awaiting
// approval, plus the diagnostics collected along the way.
type Result struct {
	RunID       string                 `json:"run_id"`
	GeneratedAt time.Time              `json:"generated_at"`
	Metric      string                 `json:"metric"`
	SeriesLen   int                    `json:"series_length"`
	Present     int                    `json:"present_points"`
	Insights    []domain.RankedInsight `json:"insights"`
	Drafts      []domain.ActionDraft   `json:"drafts"`
	Diagnostics []domain.Diagnostic    `json:"diagnostics,omitempty"`
}

// Engine runs the insight discovery pipeline. It holds no analytical
// state between runs beyond a single-entry memoization cache; the only
// shared resource inside a run is the read-only metric series.
type Engine struct {
	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer

	// generation orders concurrent runs so a stale run can never
	// publish over a newer one (last-invocation-wins).
	generation atomic.Uint64

	mu       sync.Mutex
	memoKey  string
	memoized *Result
}

// NewEngine creates a pipeline engine.
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("vantage.pipeline"),
	}
}

// Run executes one full pipeline invocation. Fatal errors (schema
// problems) return with no partial output; non-fatal detector, policy
// and drafting failures are collected into Result.Diagnostics.
func (e *Engine) Run(ctx context.Context, table *extract.Table, sel Selection, pol *policy.Policy) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("metric", sel.Metric)))
	defer span.End()

	gen := e.generation.Add(1)
	key := e.cacheKey(table, sel, pol)

	if !e.cfg.DisableMemoization {
		e.mu.Lock()
		if e.memoKey == key && e.memoized != nil {
			cached := e.memoized
			e.mu.Unlock()
			e.logger.Debug("Memoized result reused", zap.String("run_id", cached.RunID))
			span.SetAttributes(attribute.Bool("memoized", true))
			return cached, nil
		}
		e.mu.Unlock()
	}

	series, diags, err := extract.Series(table, extract.Options{
		Metric:          sel.Metric,
		OrderBy:         sel.OrderBy,
		MaxMissingRatio: pol.Extraction.MaxMissingRatio,
	}, e.logger)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	insights, detectDiags, err := detect.NewRunner(e.cfg.Detect, e.logger).Run(ctx, series, pol)
	if err != nil {
		return nil, err
	}
	diags = append(diags, detectDiags...)

	ranker := rank.NewRanker(rank.FromPolicy(pol.Ranking), e.logger)
	ranked := ranker.Rank(insights, pol, series.Len())

	matches, matchDiags := action.NewMatcher(e.logger).Match(ranked, pol)
	diags = append(diags, matchDiags...)

	drafts, draftDiags := action.NewDrafter(e.logger).Draft(matches, pol)
	diags = append(diags, draftDiags...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Metric:      sel.Metric,
		SeriesLen:   series.Len(),
		Present:     series.PresentCount(),
		Insights:    ranked,
		Drafts:      drafts,
		Diagnostics: diags,
	}

	e.publish(gen, key, result)

	span.SetAttributes(
		attribute.Int("insights", len(ranked)),
		attribute.Int("drafts", len(drafts)),
		attribute.Int("diagnostics", len(diags)),
	)
	e.logger.Info("Pipeline run complete",
		zap.String("run_id", result.RunID),
		zap.String("metric", sel.Metric),
		zap.Int("insights", len(ranked)),
		zap.Int("drafts", len(drafts)),
		zap.Int("diagnostics", len(diags)))

	return result, nil
}

// publish stores the result in the memoization cache unless a newer
// invocation has started since this one: the stale result is still
// returned to its caller but never cached, so outputs of different
// invocations cannot merge.
func (e *Engine) publish(gen uint64, key string, result *Result) {
	if e.cfg.DisableMemoization {
		return
	}
	if e.generation.Load() != gen {
		e.logger.Debug("Discarding stale run from cache", zap.String("run_id", result.RunID))
		return
	}
	e.mu.Lock()
	e.memoKey = key
	e.memoized = result
	e.mu.Unlock()
}

// cacheKey hashes the full input snapshot: table content, selection
// and policy document.
func (e *Engine) cacheKey(table *extract.Table, sel Selection, pol *policy.Policy) string {
	h := sha256.New()
	h.Write([]byte(table.Hash()))
	h.Write([]byte{0})
	h.Write([]byte(sel.Metric))
	h.Write([]byte{0})
	h.Write([]byte(sel.OrderBy))
	h.Write([]byte{0})
	h.Write([]byte(pol.DocHash))
	return hex.EncodeToString(h.Sum(nil))
}
