package contracts

import "errors"

// Error taxonomy shared by every stage. Callers match with errors.Is; stages
// add context with fmt.Errorf("...: %w", err).
var (
	// ErrCalendarGap means a requested date range extends beyond the last
	// known trading session. Fatal to the specific query, not the run; the
	// external calendar source must be refreshed, not retried here.
	ErrCalendarGap = errors.New("calendar gap: range exceeds known sessions")

	// ErrNotFound means the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientHistory signals an undefined metric: fewer trading days
	// of history than the window requires. Not a failure; downstream must
	// exclude the value, never default it.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInsufficientUniverse means too few tickers have defined scores on a
	// date for ranking to be meaningful. The run for that date aborts.
	ErrInsufficientUniverse = errors.New("insufficient universe")

	// ErrDataInconsistency means duplicate or out-of-order bars were
	// detected. The offending ticker's series is rejected for the run.
	ErrDataInconsistency = errors.New("data inconsistency")

	// ErrProviderFailure means an external fetch failed after the retry
	// budget at the provider boundary was exhausted. The ticker is marked
	// stale and excluded for the run.
	ErrProviderFailure = errors.New("provider failure")
)
