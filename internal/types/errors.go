package types

import "errors"

// Error taxonomy for the settlement core. Handlers map these to HTTP statuses;
// everything else is treated as an internal failure and surfaced as such.
var (
	// ErrNotFound indicates an unknown plan, subscription, or user row.
	ErrNotFound = errors.New("requested item not found")

	// ErrInvalidInput marks a request that fails validation before any
	// storage work happens. Handlers render it as a 400.
	ErrInvalidInput = errors.New("invalid request input")

	// ErrDuplicateOrder signals that an order_id insert hit the unique
	// constraint. It never escapes the settlement service: the idempotent
	// re-read path converts it into the already-committed result.
	ErrDuplicateOrder = errors.New("order already settled")

	// ErrConcurrencyConflict is a retryable failure: lock contention or a
	// uniqueness conflict that the idempotent re-read could not resolve.
	ErrConcurrencyConflict = errors.New("concurrent modification conflict")

	// ErrInvariantViolation means the ledger holds more than one active
	// subscription for a user. Hard consistency error, never masked.
	ErrInvariantViolation = errors.New("subscription ledger invariant violated")
)
