// Package indicator provides the pure numeric functions the signal
// generators and the metrics engine are built on. Every function operates on
// an ordered slice, has no side effects, and returns defined edge-case values
// instead of NaN or infinity wherever the input is degenerate.
package indicator

import "math"

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}

	sum := 0.0
	for _, value := range series {
		sum += value
	}

	return sum / float64(len(series))
}

// StdDev returns the population standard deviation, 0 for fewer than two
// elements.
func StdDev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}

	mean := Mean(series)

	sumSquares := 0.0
	for _, value := range series {
		diff := value - mean
		sumSquares += diff * diff
	}

	return math.Sqrt(sumSquares / float64(len(series)))
}

// Returns converts a value series into per-step returns. The result has one
// fewer element than the input; an input shorter than two values yields an
// empty slice.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)

	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			returns[i-1] = 0
			continue
		}

		returns[i-1] = (values[i] - values[i-1]) / values[i-1]
	}

	return returns
}

// Correlation returns the Pearson correlation of two equally ordered series,
// truncated to the shorter length. Degenerate inputs (length < 2 or zero
// variance on either side) return 0.
func Correlation(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	if n < 2 {
		return 0
	}

	a = a[:n]
	b = b[:n]
	meanA := Mean(a)
	meanB := Mean(b)

	var cov, varA, varB float64

	for i := 0; i < n; i++ {
		da := a[i] - meanA
		db := b[i] - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0
	}

	return cov / math.Sqrt(varA*varB)
}
