package timeseries

import (
	"fmt"
	"math"
	"time"
)

// Frame is a rectangular table keyed by a single ascending date axis, with one
// named float64 column per series or derived feature. Column order is stable:
// columns appear in insertion order, which the output writer preserves.
//
// Stage functions treat frames as immutable inputs: they Clone before adding
// or dropping columns, so the fixed derivation order composes as pure steps.
type Frame struct {
	dates []time.Time
	order []string
	cols  map[string][]float64
}

// NewFrame creates an empty frame over the given date axis. The dates must
// already be ascending; the slice is copied.
func NewFrame(dates []time.Time) *Frame {
	d := make([]time.Time, len(dates))
	copy(d, dates)
	return &Frame{
		dates: d,
		cols:  make(map[string][]float64),
	}
}

// NumRows returns the number of rows (dates).
func (f *Frame) NumRows() int { return len(f.dates) }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return len(f.order) }

// Dates returns a copy of the date axis.
func (f *Frame) Dates() []time.Time {
	out := make([]time.Time, len(f.dates))
	copy(out, f.dates)
	return out
}

// Columns returns the column names in insertion order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.order))
	copy(out, f.order)
	return out
}

// HasColumn reports whether the named column exists.
func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns a copy of the named column's values.
func (f *Frame) Column(name string) ([]float64, bool) {
	v, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(v))
	copy(out, v)
	return out, true
}

// SetColumn adds or replaces a column. The value count must match the row count.
func (f *Frame) SetColumn(name string, values []float64) error {
	if len(values) != len(f.dates) {
		return fmt.Errorf("column %q has %d values for %d rows", name, len(values), len(f.dates))
	}

	v := make([]float64, len(values))
	copy(v, values)

	if _, exists := f.cols[name]; !exists {
		f.order = append(f.order, name)
	}
	f.cols[name] = v
	return nil
}

// DropColumns removes the named columns. Unknown names are ignored.
func (f *Frame) DropColumns(names ...string) {
	for _, name := range names {
		if _, ok := f.cols[name]; !ok {
			continue
		}
		delete(f.cols, name)
		for i, col := range f.order {
			if col == name {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := NewFrame(f.dates)
	for _, name := range f.order {
		// SetColumn copies the values and cannot fail here: lengths match.
		_ = c.SetColumn(name, f.cols[name])
	}
	return c
}

// ClipBefore returns a new frame containing only rows at or after t.
func (f *Frame) ClipBefore(t time.Time) *Frame {
	start := 0
	for start < len(f.dates) && f.dates[start].Before(t) {
		start++
	}
	return f.slice(f.keepRange(start, len(f.dates)))
}

// DropMissingRows returns a new frame with every row containing a NaN removed,
// along with the number of rows dropped.
func (f *Frame) DropMissingRows() (*Frame, int) {
	var keep []int
	for i := range f.dates {
		missing := false
		for _, name := range f.order {
			if math.IsNaN(f.cols[name][i]) {
				missing = true
				break
			}
		}
		if !missing {
			keep = append(keep, i)
		}
	}

	dropped := len(f.dates) - len(keep)
	return f.slice(keep), dropped
}

// Start returns the first date on the axis, or the zero time for an empty frame.
func (f *Frame) Start() time.Time {
	if len(f.dates) == 0 {
		return time.Time{}
	}
	return f.dates[0]
}

// End returns the last date on the axis, or the zero time for an empty frame.
func (f *Frame) End() time.Time {
	if len(f.dates) == 0 {
		return time.Time{}
	}
	return f.dates[len(f.dates)-1]
}

func (f *Frame) keepRange(from, to int) []int {
	keep := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		keep = append(keep, i)
	}
	return keep
}

func (f *Frame) slice(keep []int) *Frame {
	dates := make([]time.Time, len(keep))
	for i, idx := range keep {
		dates[i] = f.dates[idx]
	}

	out := NewFrame(dates)
	for _, name := range f.order {
		src := f.cols[name]
		vals := make([]float64, len(keep))
		for i, idx := range keep {
			vals[i] = src[idx]
		}
		_ = out.SetColumn(name, vals)
	}
	return out
}
