package detect

// Config carries the tunables for the statistical detectors. The
// threshold detector is configured by the policy document instead.
type Config struct {
	Outlier     OutlierConfig
	TrendShift  TrendShiftConfig
	Seasonality SeasonalityConfig
}

// OutlierConfig tunes the robust trailing-window outlier detector.
type OutlierConfig struct {
	// Window is the number of trailing present points the baseline is
	// computed over.
	Window int
	// MinSamples is the minimum baseline size before a point is scored.
	MinSamples int
	// Multiplier is the robust z-score a point must exceed to be
	// flagged.
	Multiplier float64
}

// TrendShiftConfig tunes the mean-shift change point detector.
type TrendShiftConfig struct {
	// MinSegment is the minimum present-point count on each side of a
	// candidate split.
	MinSegment int
	// MinEffect is the minimum standardized mean difference worth
	// reporting.
	MinEffect float64
	// SaturationSize is the harmonic-mean segment size at which
	// confidence reaches 1.0.
	SaturationSize int
}

// SeasonalityConfig tunes period detection and phase deviation checks.
type SeasonalityConfig struct {
	// MinCycles is the number of full cycles that must be present both
	// to accept a period and before a point can be scored against its
	// phase history.
	MinCycles int
	// PeriodTolerance caps the median same-phase difference, as a
	// fraction of the series MAD, for a candidate period to count as
	// periodic structure.
	PeriodTolerance float64
	// Multiplier is the tolerance band width, in units of the phase
	// history's robust spread.
	Multiplier float64
}

// DefaultConfig returns the detector defaults.
func DefaultConfig() Config {
	return Config{
		Outlier: OutlierConfig{
			Window:     20,
			MinSamples: 5,
			Multiplier: 3.5,
		},
		TrendShift: TrendShiftConfig{
			MinSegment:     3,
			MinEffect:      1.0,
			SaturationSize: 30,
		},
		Seasonality: SeasonalityConfig{
			MinCycles:       3,
			PeriodTolerance: 0.5,
			Multiplier:      3.5,
		},
	}
}

// applyDefaults fills zero values with the defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Outlier.Window <= 0 {
		c.Outlier.Window = def.Outlier.Window
	}
	if c.Outlier.MinSamples <= 0 {
		c.Outlier.MinSamples = def.Outlier.MinSamples
	}
	if c.Outlier.Multiplier <= 0 {
		c.Outlier.Multiplier = def.Outlier.Multiplier
	}
	if c.TrendShift.MinSegment <= 0 {
		c.TrendShift.MinSegment = def.TrendShift.MinSegment
	}
	if c.TrendShift.MinEffect <= 0 {
		c.TrendShift.MinEffect = def.TrendShift.MinEffect
	}
	if c.TrendShift.SaturationSize <= 0 {
		c.TrendShift.SaturationSize = def.TrendShift.SaturationSize
	}
	if c.Seasonality.MinCycles <= 0 {
		c.Seasonality.MinCycles = def.Seasonality.MinCycles
	}
	if c.Seasonality.PeriodTolerance <= 0 {
		c.Seasonality.PeriodTolerance = def.Seasonality.PeriodTolerance
	}
	if c.Seasonality.Multiplier <= 0 {
		c.Seasonality.Multiplier = def.Seasonality.Multiplier
	}
}
