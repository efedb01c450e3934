package fileshare

import (
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Identity is an account handle: the script hash of a Neo account.
type Identity = util.Uint160

// FileRecord is an entry of the owner's catalog.
type FileRecord struct {
	// Stable identifier of the record within the owner's catalog.
	ID uint64
	// Current index of the record, valid at the moment of the query only.
	Position int
	// Opaque reference to the file contents in the external blob store.
	Pointer string
	// Owner-supplied display name.
	Name string
}

// Grantee is a viewer that has ever been granted access to the whole catalog
// of some owner along with the current state of the grant.
type Grantee struct {
	Viewer  Identity
	Granted bool
}

// AccessKind describes why a record is visible to a viewer.
type AccessKind uint8

const (
	_ AccessKind = iota
	// AccessGlobal means the viewer can see the whole catalog.
	AccessGlobal
	// AccessFile means the viewer was granted this particular record.
	AccessFile
)

// String implements fmt.Stringer.
func (k AccessKind) String() string {
	switch k {
	case AccessGlobal:
		return "global"
	case AccessFile:
		return "file"
	default:
		return "unknown"
	}
}

// SharedFile is a record of another owner visible to the viewer.
type SharedFile struct {
	Owner  Identity
	File   FileRecord
	Access AccessKind
}

// Ref returns reference to the shared record.
func (f SharedFile) Ref() RecordRef {
	return RecordRef{Owner: f.Owner, ID: f.File.ID}
}

// SharedResult is the result of Projection.SharedWithMe.
type SharedResult struct {
	// Records ordered by owner discovery order and then by position.
	Files []SharedFile
	// Set when the result may miss records: owners were discovered
	// heuristically or some of them could not be checked.
	Incomplete bool
	// Owners skipped because of ledger failures.
	Skipped []Identity
}

// Outcome of a grant or revoke operation.
type Outcome uint8

const (
	// Unchanged means the ledger already was in the requested state.
	Unchanged Outcome = iota
	// Changed means the operation flipped the grant.
	Changed
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	if o == Changed {
		return "changed"
	}
	return "unchanged"
}

func outcome(changed bool) Outcome {
	if changed {
		return Changed
	}
	return Unchanged
}
