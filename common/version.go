package common

import "github.com/nspcc-dev/neo-go/pkg/interop/native/std"

const (
	major = 0
	minor = 1
	patch = 0

	// Version is the current FileStore contract version.
	Version = major*1_000_000 + minor*1_000 + patch

	// MinUpdatableVersion is the oldest version whose storage layout the
	// current code can take over.
	MinUpdatableVersion = 1_000

	// ErrVersionMismatch is thrown by CheckVersion when the storage is too old.
	ErrVersionMismatch = "previous version mismatch"

	// ErrAlreadyUpdated is thrown by CheckVersion when the contract is
	// updated from the current or a newer version.
	ErrAlreadyUpdated = "contract is already of the latest version"
)

// CheckVersion panics unless contract of the given version can be updated to
// the current one.
func CheckVersion(from int) {
	if from < MinUpdatableVersion {
		panic(ErrVersionMismatch + ": expected >=" + std.Itoa(MinUpdatableVersion, 10))
	}
	if from >= Version {
		panic(ErrAlreadyUpdated + ": " + std.Itoa(Version, 10))
	}
}

// AppendVersion appends version of the running contract to the update data
// passed to the new code.
func AppendVersion(data any) []any {
	if data == nil {
		return []any{Version}
	}
	return append(data.([]any), Version)
}
