// Package timeseries holds the data model shared by every pipeline stage:
// date-indexed series, the rectangular monthly frame, the month-end calendar
// helpers, and the pipeline error taxonomy.
package timeseries

import (
	"math"
	"sort"
	"time"
)

// Frequency is the declared native observation frequency of a raw series.
type Frequency string

const (
	Daily     Frequency = "daily"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// Valid reports whether f is one of the three supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Monthly, Quarterly:
		return true
	}
	return false
}

// Point is a single dated observation. A missing observation carries NaN.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is an immutable ordered sequence of observations for one source
// instrument. Transformations never mutate a Series in place; they produce
// new series or frame columns.
type Series struct {
	Key        string    // column name this series contributes to the aligned table
	Name       string    // human-readable name
	Source     string    // data provider (e.g. "fred", "market")
	Identifier string    // provider symbol or series code (e.g. "M2SL", "BTC-USD")
	Frequency  Frequency // declared native frequency
	points     []Point
}

// NewSeries builds a series from observations, sorting them ascending by date.
// The input slice is copied; the caller keeps ownership of its slice.
func NewSeries(key, name, source, identifier string, freq Frequency, points []Point) *Series {
	sorted := make([]Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	return &Series{
		Key:        key,
		Name:       name,
		Source:     source,
		Identifier: identifier,
		Frequency:  freq,
		points:     sorted,
	}
}

// Len returns the total observation count, missing observations included.
func (s *Series) Len() int {
	return len(s.points)
}

// Points returns a copy of all observations in ascending date order.
func (s *Series) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Observed returns the non-missing observations in ascending date order.
func (s *Series) Observed() []Point {
	out := make([]Point, 0, len(s.points))
	for _, p := range s.points {
		if !math.IsNaN(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

// MissingCount returns the number of NaN observations.
func (s *Series) MissingCount() int {
	n := 0
	for _, p := range s.points {
		if math.IsNaN(p.Value) {
			n++
		}
	}
	return n
}

// Start returns the first observation date, or the zero time for an empty series.
func (s *Series) Start() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[0].Date
}

// End returns the last observation date, or the zero time for an empty series.
func (s *Series) End() time.Time {
	if len(s.points) == 0 {
		return time.Time{}
	}
	return s.points[len(s.points)-1].Date
}
