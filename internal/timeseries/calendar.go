package timeseries

import "time"

// MonthStart returns midnight UTC on the first day of t's calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthEnd returns midnight UTC on the last day of t's calendar month.
// All aligned series share this month-end join calendar.
func MonthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).
		AddDate(0, 1, -1)
}

// MonthStartsBetween returns the first-of-month dates for every calendar month
// from the month containing start through the month containing end, inclusive.
func MonthStartsBetween(start, end time.Time) []time.Time {
	if end.Before(start) {
		return nil
	}

	var months []time.Time
	for m := MonthStart(start); !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m)
	}
	return months
}
