package engine

import "errors"

// Failure kinds. Callers pick a remediation path by checking with
// errors.Is: fix the input, grant approval or refresh, or retry the
// transaction manually.
var (
	// ErrValidation marks malformed input: bad address, missing field,
	// deadline not in the future.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition marks a state the user must remediate first: the
	// offered asset is not approved, or proposal data is missing from the
	// local cache.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound marks a stale view: the swap id is absent from the
	// current snapshot.
	ErrNotFound = errors.New("not found")

	// ErrLedger marks a rejected or reverted transaction. Local cache
	// state is left unchanged so a manual retry can still succeed.
	ErrLedger = errors.New("ledger operation failed")

	// ErrBusy marks an accept or cancel already in flight for the same
	// swap id.
	ErrBusy = errors.New("operation already in progress")
)
