package features

import (
	"math"
	"sort"
)

// Round2 rounds a value to two decimal places. NaN passes through so the
// missing sentinel survives rounding.
func Round2(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Round(v*100) / 100
}

// Mean returns the arithmetic mean of the defined (non-NaN) values.
// It returns NaN when no value is defined.
func Mean(values []float64) float64 {
	sum := 0.0
	count := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

// StdDev returns the population standard deviation of the defined values.
// It returns NaN when no value is defined.
func StdDev(values []float64) float64 {
	mean := Mean(values)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sumSq := 0.0
	count := 0
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sumSq += (v - mean) * (v - mean)
		count++
	}
	return math.Sqrt(sumSq / float64(count))
}

// Median returns the median of the defined values, NaN when none are.
func Median(values []float64) float64 {
	defined := definedValues(values)
	if len(defined) == 0 {
		return math.NaN()
	}
	sort.Float64s(defined)
	return Percentile(defined, 0.5)
}

// Percentile returns the q-th percentile (0..1) of an ascending-sorted
// slice using linear interpolation between closest ranks.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	pos := q * float64(n-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower]*(1-frac) + sorted[upper]*frac
}

// CapOutliers clips every defined value to [mean - nStd*sigma,
// mean + nStd*sigma], computed over the defined values of the input.
// NaN cells pass through untouched: capping never turns a defined value
// undefined and never defines a missing one.
func CapOutliers(values []float64, nStd float64) []float64 {
	result := make([]float64, len(values))
	copy(result, values)

	mean := Mean(values)
	sigma := StdDev(values)
	if math.IsNaN(mean) || math.IsNaN(sigma) {
		return result
	}

	lower := mean - nStd*sigma
	upper := mean + nStd*sigma
	for i, v := range result {
		if math.IsNaN(v) {
			continue
		}
		if v < lower {
			result[i] = lower
		} else if v > upper {
			result[i] = upper
		}
	}
	return result
}

// DenseRankDesc assigns dense ranks (1 = highest value; ties share a rank
// and the next distinct value gets rank+1, so ranks never skip). Missing
// inputs receive a missing rank.
func DenseRankDesc(values []float64) []float64 {
	distinct := definedValues(values)
	sort.Sort(sort.Reverse(sort.Float64Slice(distinct)))

	rankOf := make(map[float64]float64, len(distinct))
	rank := float64(0)
	for _, v := range distinct {
		if _, seen := rankOf[v]; seen {
			continue
		}
		rank++
		rankOf[v] = rank
	}

	result := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			result[i] = math.NaN()
			continue
		}
		result[i] = rankOf[v]
	}
	return result
}

// definedValues copies the non-NaN entries of a slice.
func definedValues(values []float64) []float64 {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	return defined
}
