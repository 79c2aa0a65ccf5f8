// Package rank orders insights by a composite relevance score built
// from magnitude, confidence, recency and the business weight the
// policy assigns to the metric. The ranker never filters; truncation
// for display belongs to the boundary.
package rank

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/vantagelabs/vantage/pkg/domain"
	"github.com/vantagelabs/vantage/pkg/policy"
)

// Config carries the composite-score weights.
type Config struct {
	WeightMagnitude  float64
	WeightConfidence float64
	WeightRecency    float64
	WeightObjective  float64
	// DefaultObjectiveWeight applies to metrics with no declared
	// objective, small but non-zero so they are never silently hidden.
	DefaultObjectiveWeight float64
}

// DefaultConfig returns the default score weights.
func DefaultConfig() Config {
	return Config{
		WeightMagnitude:        0.4,
		WeightConfidence:       0.3,
		WeightRecency:          0.15,
		WeightObjective:        0.15,
		DefaultObjectiveWeight: 0.05,
	}
}

// FromPolicy overlays any weights the policy document sets onto the
// defaults.
func FromPolicy(r policy.Ranking) Config {
	cfg := DefaultConfig()
	if r.WeightMagnitude > 0 {
		cfg.WeightMagnitude = r.WeightMagnitude
	}
	if r.WeightConfidence > 0 {
		cfg.WeightConfidence = r.WeightConfidence
	}
	if r.WeightRecency > 0 {
		cfg.WeightRecency = r.WeightRecency
	}
	if r.WeightObjective > 0 {
		cfg.WeightObjective = r.WeightObjective
	}
	if r.DefaultObjectiveWeight > 0 {
		cfg.DefaultObjectiveWeight = r.DefaultObjectiveWeight
	}
	return cfg
}

// Ranker scores and orders insights.
type Ranker struct {
	cfg    Config
	logger *zap.Logger
}

// NewRanker creates a ranker with the given weights.
func NewRanker(cfg Config, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.WeightMagnitude <= 0 && cfg.WeightConfidence <= 0 && cfg.WeightRecency <= 0 && cfg.WeightObjective <= 0 {
		cfg = def
	}
	if cfg.DefaultObjectiveWeight <= 0 {
		cfg.DefaultObjectiveWeight = def.DefaultObjectiveWeight
	}
	return &Ranker{cfg: cfg, logger: logger}
}

// Rank computes the composite score for every insight and returns them
// ordered by descending score with stable 1-based ranks. Ties are
// broken by higher confidence, then earlier window start, then
// lexicographic id, so the order is total and deterministic.
func (r *Ranker) Rank(insights []domain.Insight, pol *policy.Policy, seriesLen int) []domain.RankedInsight {
	if len(insights) == 0 {
		return nil
	}

	// Raw magnitudes of different kinds are not comparable; normalize
	// within each kind against the kind's largest magnitude.
	maxMagnitude := make(map[domain.InsightKind]float64)
	for _, in := range insights {
		if m := math.Abs(in.Magnitude); m > maxMagnitude[in.Kind] {
			maxMagnitude[in.Kind] = m
		}
	}

	ranked := make([]domain.RankedInsight, len(insights))
	for i, in := range insights {
		norm := 0.0
		if maxMagnitude[in.Kind] > 0 {
			norm = math.Abs(in.Magnitude) / maxMagnitude[in.Kind]
		}
		score := r.cfg.WeightMagnitude*norm +
			r.cfg.WeightConfidence*in.Confidence +
			r.cfg.WeightRecency*recency(in.Window, seriesLen) +
			r.cfg.WeightObjective*r.objectiveWeight(pol, in.Metric)
		ranked[i] = domain.RankedInsight{Insight: in, Score: score}
		if pol != nil {
			ranked[i].Band = pol.Band(in.Confidence)
		}
	}

	sort.Slice(ranked, func(a, b int) bool {
		ra, rb := ranked[a], ranked[b]
		if ra.Score != rb.Score {
			return ra.Score > rb.Score
		}
		if ra.Confidence != rb.Confidence {
			return ra.Confidence > rb.Confidence
		}
		if ra.Window.Start != rb.Window.Start {
			return ra.Window.Start < rb.Window.Start
		}
		return ra.ID < rb.ID
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	r.logger.Debug("Ranked insights", zap.Int("count", len(ranked)))
	return ranked
}

// objectiveWeight looks up the metric's declared business weight,
// falling back to the small default for unconfigured metrics.
func (r *Ranker) objectiveWeight(pol *policy.Policy, metric string) float64 {
	if pol != nil {
		if obj, ok := pol.ObjectiveFor(metric); ok {
			return obj.Weight
		}
	}
	return r.cfg.DefaultObjectiveWeight
}

// recency scores how late in the series the finding's window ends:
// newest findings approach 1.
func recency(w domain.Window, seriesLen int) float64 {
	if seriesLen <= 0 {
		return 0
	}
	f := float64(w.End+1) / float64(seriesLen)
	return math.Min(math.Max(f, 0), 1)
}
