package detect

import (
	"math"
	"sort"

	"github.com/vantagelabs/vantage/pkg/domain"
)

// madScale rescales the median absolute deviation to be consistent
// with the standard deviation of a normal distribution.
const madScale = 0.6745

// presentPoint pairs a value with its original series index after
// missing points have been dropped.
type presentPoint struct {
	index int
	value float64
}

// presentPoints returns the non-missing points of a series in order.
func presentPoints(series *domain.MetricSeries) []presentPoint {
	out := make([]presentPoint, 0, len(series.Points))
	for _, p := range series.Points {
		if !p.Missing {
			out = append(out, presentPoint{index: p.Index, value: p.Value})
		}
	}
	return out
}

// median returns the median of values. Empty input returns 0.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// mad returns the median absolute deviation around the median.
func mad(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := median(values)
	devs := make([]float64, len(values))
	for i, v := range values {
		devs[i] = math.Abs(v - med)
	}
	return median(devs)
}

// mean returns the arithmetic mean. Empty input returns 0.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance returns the sample variance (n-1 denominator).
func variance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(n-1)
}

// pooledStd returns the pooled standard deviation of two segments.
func pooledStd(a, b []float64) float64 {
	na, nb := len(a), len(b)
	if na+nb < 3 {
		return 0
	}
	num := float64(na-1)*variance(a) + float64(nb-1)*variance(b)
	return math.Sqrt(num / float64(na+nb-2))
}

func values(points []presentPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.value
	}
	return out
}
