package fileshare

import "errors"

var (
	// ErrUnauthorized is returned when the caller is not the owner of the
	// catalog it tries to change. Not retryable.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrOutOfRange is returned for positions outside of [0, count).
	ErrOutOfRange = errors.New("position is out of range")

	// ErrInvalidIdentity is returned for malformed identities and for
	// self-grants.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrEmptyPointer is returned when a record is added without a content
	// pointer.
	ErrEmptyPointer = errors.New("empty content pointer")

	// ErrLedgerUnavailable wraps transient ledger failures. Writes are never
	// partially applied, so the whole call can be retried.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
)

// IsRetryable checks whether the call failed with a transient ledger error.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLedgerUnavailable)
}
