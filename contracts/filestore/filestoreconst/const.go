package filestoreconst

const (
	// ErrorUnauthorized is thrown when the transaction is not witnessed by
	// the owner of the catalog being changed.
	ErrorUnauthorized = "owner witness check failed"

	// ErrorOutOfRange is thrown when the position does not address any record
	// of the owner's catalog.
	ErrorOutOfRange = "position is out of range"

	// ErrorInvalidIdentity is thrown for malformed identities and self-grants.
	ErrorInvalidIdentity = "invalid identity"

	// ErrorEmptyPointer is thrown on attempt to add a record without content
	// pointer.
	ErrorEmptyPointer = "empty content pointer"

	// ErrorUpdateDenied is thrown when the contract update is not witnessed by
	// the committee.
	ErrorUpdateDenied = "only committee can update contract"
)
