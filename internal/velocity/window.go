package velocity

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats summarizes a slice of a speed series. Drives transition
// detection: a stay arrival is where the forward window's median settles
// under the velocity threshold, not merely the first low instantaneous reading.
type WindowStats struct {
	Median float64
	Mean   float64
	Max    float64
	P95    float64
	Count  int
}

// Stats computes summary statistics over a speed series slice.
func Stats(series []float64) WindowStats {
	if len(series) == 0 {
		return WindowStats{}
	}
	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	return WindowStats{
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Mean:   stat.Mean(sorted, nil),
		Max:    sorted[len(sorted)-1],
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Count:  len(sorted),
	}
}

// ForwardStats computes statistics over the forward-looking window of up to
// size samples starting at index start. Windows past the end of the series
// are truncated.
func ForwardStats(series []float64, start, size int) WindowStats {
	if start < 0 || start >= len(series) || size < 1 {
		return WindowStats{}
	}
	end := start + size
	if end > len(series) {
		end = len(series)
	}
	return Stats(series[start:end])
}

// BackwardStats computes statistics over the backward-looking window of up to
// size samples ending at index end (inclusive).
func BackwardStats(series []float64, end, size int) WindowStats {
	if end < 0 || end >= len(series) || size < 1 {
		return WindowStats{}
	}
	start := end - size + 1
	if start < 0 {
		start = 0
	}
	return Stats(series[start : end+1])
}
