package timeseries

import "errors"

// Pipeline failure taxonomy. All of these are unrecoverable at the run level:
// the orchestrator aborts on the first error and never persists partial output.
// Callers wrap these with fmt.Errorf("...: %w", ...) to attach the stage and
// series involved, and test with errors.Is.
var (
	// ErrDataAccess indicates a required input series record or value column is missing.
	ErrDataAccess = errors.New("data access error")

	// ErrInsufficientData indicates a series has too few observations to
	// resample or interpolate (fewer than two spline anchors, or none at all).
	ErrInsufficientData = errors.New("insufficient data")

	// ErrSchema indicates a feature stage's required input column is absent,
	// which means an earlier stage did not run or was misconfigured.
	ErrSchema = errors.New("schema error")

	// ErrAlignmentEmpty indicates the inner join across all series produced
	// zero rows, e.g. because two series have disjoint date ranges.
	ErrAlignmentEmpty = errors.New("alignment produced empty table")
)
