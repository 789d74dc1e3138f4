package analytics

import (
	"math"
	"sort"
)

// Efficiency reference points and weights.
const (
	refCTR       = 10.0   // % CTR treated as excellent
	refCPC       = 100.0  // CPC treated as expensive
	refClicks    = 1000.0 // clicks for full volume confidence
	weightCTR    = 0.6
	weightCPC    = 0.3
	volumeBase   = 0.7
	volumeWeight = 0.3

	outlierMinPoints = 4
	iqrFactor        = 1.5
)

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// CoefficientOfVariation returns stddev/mean in percent, 0 when the mean is 0.
func CoefficientOfVariation(values []float64) float64 {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	return StdDev(values) / m * 100
}

// Trend fits an OLS line against periods 1..n and returns slope/mean,
// or the raw slope when the mean is 0. Fewer than 2 points give 0.
func Trend(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i + 1)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (fn*sumXY - sumX*sumY) / denom
	mean := sumY / fn
	if mean == 0 {
		return slope
	}
	return slope / mean
}

// EfficiencyRating blends normalized CTR, inverted CPC and traffic volume.
// Result lies roughly in [0, 0.9]; 0 when there are no clicks or no cost.
func EfficiencyRating(ctr, cpc, clicks, cost float64) float64 {
	if clicks == 0 || cost == 0 {
		return 0
	}
	normCTR := math.Min(ctr/refCTR, 1)
	normCPC := math.Max(0, 1-cpc/refCPC)
	volume := math.Min(clicks/refClicks, 1)
	return (normCTR*weightCTR + normCPC*weightCPC) * (volumeBase + volumeWeight*volume)
}

// DetectOutliers returns original-order indices outside Tukey fences.
// Quartiles are sorted[n/4] and sorted[3n/4] with truncating division.
func DetectOutliers(values []float64) []int {
	n := len(values)
	if n < outlierMinPoints {
		return nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := sorted[n/4]
	q3 := sorted[3*n/4]
	iqr := q3 - q1
	lo, hi := q1-iqrFactor*iqr, q3+iqrFactor*iqr

	var out []int
	for i, v := range values {
		if v < lo || v > hi {
			out = append(out, i)
		}
	}
	return out
}
