package domain

import "errors"

// Error kinds surfaced at stage boundaries. Stage-local recoverable faults
// (store unavailability, budget expiry) are absorbed by the stage and
// reported on its result; these sentinels cover the user-visible cases.
var (
	// ErrInvalidInput marks malformed variants, non-monotonic intervals,
	// unknown pattern archetypes, or weights that do not sum to 1.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable marks a MetricsStore operation that timed out or
	// answered "unavailable". Consumers fall back and tag results.
	ErrStoreUnavailable = errors.New("metrics store unavailable")

	// ErrBudgetExceeded marks a stage that hit its deadline and returned a
	// partial, degraded result.
	ErrBudgetExceeded = errors.New("stage budget exceeded")

	// ErrInfeasible marks an assignment model that cannot satisfy coverage
	// and budget constraints simultaneously.
	ErrInfeasible = errors.New("assignment infeasible")

	// ErrCancelled marks a run cancelled by the orchestrator or caller.
	ErrCancelled = errors.New("run cancelled")
)
