package fileshare

import "context"

// Ledger is the storage boundary of the engine. Every write is a single
// atomic ledger transaction and returns only after the transaction is
// durably committed. The caller identity is bound to the implementation;
// writes on behalf of any other owner fail with ErrUnauthorized.
//
// Implementations report failures with the errors of this package (wrapped
// if needed): ErrUnauthorized, ErrOutOfRange, ErrInvalidIdentity,
// ErrEmptyPointer and ErrLedgerUnavailable for everything transient.
type Ledger interface {
	// AddFile appends a record to the owner's catalog and returns its position.
	AddFile(ctx context.Context, owner Identity, pointer, name string) (int, error)
	// RemoveFile removes the record at the given position.
	RemoveFile(ctx context.Context, owner Identity, position int) error
	// RemoveFiles removes records at all valid positions in one transaction
	// and returns the invalid ones.
	RemoveFiles(ctx context.Context, owner Identity, positions []int) ([]int, error)
	// Files lists the owner's catalog in order.
	Files(ctx context.Context, owner Identity) ([]FileRecord, error)
	// FileCount returns the size of the owner's catalog.
	FileCount(ctx context.Context, owner Identity) (int, error)
	// File returns the record at the given position.
	File(ctx context.Context, owner Identity, position int) (FileRecord, error)

	// SetGlobalAccess grants or revokes access to the whole catalog. It
	// reports whether the grant actually changed.
	SetGlobalAccess(ctx context.Context, owner, viewer Identity, granted bool) (bool, error)
	// SetFileAccess grants or revokes access to the record at the given
	// position. It reports whether the grant actually changed.
	SetFileAccess(ctx context.Context, owner Identity, position int, viewer Identity, granted bool) (bool, error)
	// HasGlobalAccess checks access to the whole catalog.
	HasGlobalAccess(ctx context.Context, owner, viewer Identity) (bool, error)
	// HasFileAccess checks per-file access to the record at the given position.
	HasFileAccess(ctx context.Context, owner Identity, position int, viewer Identity) (bool, error)
	// Grantees lists everyone ever granted global access with the current
	// state of their grants.
	Grantees(ctx context.Context, owner Identity) ([]Grantee, error)
	// FileGrantees lists viewers with active access to the record at the
	// given position.
	FileGrantees(ctx context.Context, owner Identity, position int) ([]Identity, error)
}

// SharerIndex is an optional Ledger extension enumerating owners that have
// ever granted anything to the viewer. The result is a superset, access is
// re-verified by the caller.
type SharerIndex interface {
	SharersOf(ctx context.Context, viewer Identity) ([]Identity, error)
}

// ActivitySource provides identities seen in recent ledger activity related
// to the viewer. The result is a heuristic and is expected to be incomplete.
type ActivitySource interface {
	RecentActors(ctx context.Context, viewer Identity) ([]Identity, error)
}

// KnownCache is a local set of previously seen identities. It is a discovery
// aid only and is never relied upon for correctness. Implementations must be
// safe for concurrent use.
type KnownCache interface {
	Known() ([]Identity, error)
	Remember(ids ...Identity) error
}
