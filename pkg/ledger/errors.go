package ledger

import "errors"

var (
	// ErrStorageNotAvailable indicates the storage backend is unavailable.
	ErrStorageNotAvailable = errors.New("ledger storage backend is unavailable")

	// ErrEntryValidation indicates entry validation failed.
	ErrEntryValidation = errors.New("ledger entry validation failed")

	// ErrEntryNotFound indicates no entry matches the query.
	ErrEntryNotFound = errors.New("ledger entry not found")
)
