package ledger

import "errors"

// Sentinel errors surfaced to the command layer. Store failures are wrapped
// with their context instead; match these with errors.Is.
var (
	// ErrAccountNotFound is returned when a referenced account does not exist.
	ErrAccountNotFound = errors.New("ledger: account not found")
)
