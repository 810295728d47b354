// Package trajectory implements the Trajectory Engine (C8): a pure
// function from an article's yearly-citation series to its forward
// citation slope. It never mutates the Store.
package trajectory

import "litscope/internal/models"

// ForwardSlope fits an ordinary-least-squares line over the (year, count)
// series and returns its slope, projected one year ahead. With fewer
// than two points the slope is 0, per spec.md §4.8. With exactly two
// points the closed-form slope degenerates to the arithmetic annual
// delta, which is itself the documented short-series fallback.
func ForwardSlope(series []models.YearCount) float64 {
	n := len(series)
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, point := range series {
		x := float64(point.Year)
		y := float64(point.Count)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	nf := float64(n)
	denominator := nf*sumXX - sumX*sumX
	if denominator == 0 {
		return meanAnnualDelta(series)
	}

	slope := (nf*sumXY - sumX*sumY) / denominator
	return slope
}

// meanAnnualDelta is the fallback for a degenerate series (e.g. every
// observation on the same year), used when the OLS denominator is zero.
func meanAnnualDelta(series []models.YearCount) float64 {
	if len(series) < 2 {
		return 0
	}

	var sum float64
	for i := 1; i < len(series); i++ {
		sum += float64(series[i].Count - series[i-1].Count)
	}
	return sum / float64(len(series)-1)
}
