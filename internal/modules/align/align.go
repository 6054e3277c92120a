// Package align normalizes series of mixed native frequency onto a single
// month-end calendar and joins them into one rectangular monthly table.
//
// Sub-monthly (quarterly) series are interpolated with a cubic spline anchored
// at their observed dates; daily and monthly series are resampled by taking
// the last observation within each calendar month. The month-end snapshot
// rule preserves level semantics (a price or rate "as of" month end) and
// introduces no look-ahead: every monthly value is derived only from
// observations inside that month or, for the spline, from the quarterly
// anchors themselves.
package align

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/interp"

	"github.com/lluc-palou/wealth-preservation/internal/timeseries"
)

// Aligner produces one aligned monthly table from heterogeneous series.
type Aligner struct {
	clip time.Time // earliest valid date; rows before it are discarded
	log  zerolog.Logger
}

// New creates an aligner that clips the joined table to rows at or after clip.
func New(clip time.Time, log zerolog.Logger) *Aligner {
	return &Aligner{
		clip: clip,
		log:  log.With().Str("component", "aligner").Logger(),
	}
}

// Align resamples every series to the month-end calendar, inner-joins them on
// their date index, clips to the configured earliest date and drops residual
// missing rows. A month survives only if every series has a non-missing
// observation for it.
//
// Fails with ErrInsufficientData when a series has too few observations to
// resample or interpolate, and with ErrAlignmentEmpty when the join or the
// subsequent truncation leaves zero rows.
func (a *Aligner) Align(series []*timeseries.Series) (*timeseries.Frame, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no series to align: %w", timeseries.ErrAlignmentEmpty)
	}

	monthly := make([]map[int64]float64, len(series))
	for i, s := range series {
		points, err := a.toMonthly(s)
		if err != nil {
			return nil, err
		}

		byDate := make(map[int64]float64, len(points))
		for _, p := range points {
			byDate[p.Date.Unix()] = p.Value
		}
		monthly[i] = byDate
	}

	// Intersection of all month-end date sets, ascending.
	var joined []time.Time
	for unix := range monthly[0] {
		shared := true
		for _, byDate := range monthly[1:] {
			if _, ok := byDate[unix]; !ok {
				shared = false
				break
			}
		}
		if shared {
			joined = append(joined, time.Unix(unix, 0).UTC())
		}
	}
	if len(joined) == 0 {
		return nil, fmt.Errorf("no shared months across %d series: %w", len(series), timeseries.ErrAlignmentEmpty)
	}
	sort.Slice(joined, func(i, j int) bool { return joined[i].Before(joined[j]) })

	frame := timeseries.NewFrame(joined)
	for i, s := range series {
		values := make([]float64, len(joined))
		for j, d := range joined {
			values[j] = monthly[i][d.Unix()]
		}
		if err := frame.SetColumn(s.Key, values); err != nil {
			return nil, fmt.Errorf("series %q: %w", s.Key, err)
		}
	}

	frame = frame.ClipBefore(a.clip)
	frame, dropped := frame.DropMissingRows()
	if frame.NumRows() == 0 {
		return nil, fmt.Errorf("no rows remain after clipping to %s: %w",
			a.clip.Format("2006-01-02"), timeseries.ErrAlignmentEmpty)
	}

	a.log.Info().
		Int("rows", frame.NumRows()).
		Int("columns", frame.NumCols()).
		Time("from", frame.Start()).
		Time("to", frame.End()).
		Int("rows_dropped", dropped).
		Msg("Aligned series to monthly frequency")

	return frame, nil
}

// toMonthly dispatches on the declared native frequency.
func (a *Aligner) toMonthly(s *timeseries.Series) ([]timeseries.Point, error) {
	obs := s.Observed()
	if len(obs) == 0 {
		return nil, fmt.Errorf("series %q has no observations: %w", s.Key, timeseries.ErrInsufficientData)
	}

	switch s.Frequency {
	case timeseries.Quarterly:
		return interpolateToMonthly(s.Key, obs)
	case timeseries.Daily, timeseries.Monthly:
		// Monthly series go through the same last-of-month rule as daily ones
		// so every series lands on an identical month-end index.
		return resampleMonthEnd(obs), nil
	default:
		return nil, fmt.Errorf("series %q has unknown frequency %q", s.Key, s.Frequency)
	}
}

// interpolateToMonthly fits a natural cubic spline through the observations,
// using their Unix timestamps as the independent variable, and evaluates it at
// the first-of-month date for every month spanned by the series. The spline
// passes through the original values exactly at their observed dates. The
// generated dates are then shifted to month-end to match the join calendar.
func interpolateToMonthly(key string, obs []timeseries.Point) ([]timeseries.Point, error) {
	if len(obs) < 2 {
		return nil, fmt.Errorf("series %q has %d observations, need at least 2 spline anchors: %w",
			key, len(obs), timeseries.ErrInsufficientData)
	}

	xs := make([]float64, len(obs))
	ys := make([]float64, len(obs))
	for i, p := range obs {
		xs[i] = float64(p.Date.Unix())
		ys[i] = p.Value
	}

	var spline interp.NaturalCubic
	if err := spline.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("series %q: spline fit: %w", key, err)
	}

	first, last := obs[0].Date, obs[len(obs)-1].Date
	var out []timeseries.Point
	for _, m := range timeseries.MonthStartsBetween(first, last) {
		if m.Before(first) || m.After(last) {
			// Stay inside the anchored range: no extrapolation.
			continue
		}
		out = append(out, timeseries.Point{
			Date:  timeseries.MonthEnd(m),
			Value: spline.Predict(float64(m.Unix())),
		})
	}
	return out, nil
}

// resampleMonthEnd selects the last available observation within each calendar
// month and stamps it on the month-end date, discarding all earlier
// observations in that month.
func resampleMonthEnd(obs []timeseries.Point) []timeseries.Point {
	byMonth := make(map[time.Time]float64)
	for _, p := range obs {
		// Observations arrive ascending, so the last write per month wins.
		byMonth[timeseries.MonthEnd(p.Date)] = p.Value
	}

	out := make([]timeseries.Point, 0, len(byMonth))
	for date, value := range byMonth {
		out = append(out, timeseries.Point{Date: date, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
