// Package formulas provides the leaf numeric helpers used by the feature
// engine: percentage changes, log returns and full-sample standardization.
// All helpers are NaN-aware so that lookback windows propagate missing values
// instead of poisoning sample statistics.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of the non-NaN values in data.
// Returns NaN if data contains no observed values.
func Mean(data []float64) float64 {
	obs := observed(data)
	if len(obs) == 0 {
		return math.NaN()
	}
	return stat.Mean(obs, nil)
}

// StdDev calculates the sample standard deviation (n-1 divisor) of the
// non-NaN values in data. Returns NaN for fewer than two observed values.
func StdDev(data []float64) float64 {
	obs := observed(data)
	if len(obs) < 2 {
		return math.NaN()
	}
	return stat.StdDev(obs, nil)
}

// PercentChange computes the percentage change between each value and the
// value periods rows earlier: 100 * (v[i]/v[i-periods] - 1).
// The first periods entries are NaN (lookback window).
func PercentChange(values []float64, periods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < periods || values[i-periods] == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (values[i]/values[i-periods] - 1) * 100
	}
	return out
}

// LogReturns computes one-period logarithmic returns: ln(v[i] / v[i-1]).
// The first entry is NaN (one-period lookback).
func LogReturns(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(values[i] / values[i-1])
	}
	return out
}

// ZScores standardizes values against the full-sample mean and sample
// standard deviation of the non-NaN entries: (v - mean) / std.
// NaN entries stay NaN.
func ZScores(values []float64) []float64 {
	mean := Mean(values)
	std := StdDev(values)

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - mean) / std
	}
	return out
}

func observed(data []float64) []float64 {
	obs := make([]float64, 0, len(data))
	for _, v := range data {
		if !math.IsNaN(v) {
			obs = append(obs, v)
		}
	}
	return obs
}
