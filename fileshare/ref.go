package fileshare

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const refLen = util.Uint160Size + 8

// RecordRef references a record independently of its current position.
type RecordRef struct {
	Owner Identity
	ID    uint64
}

// String returns base58 encoding of the owner hash followed by big-endian ID.
func (r RecordRef) String() string {
	b := make([]byte, refLen)
	copy(b, r.Owner.BytesBE())
	binary.BigEndian.PutUint64(b[util.Uint160Size:], r.ID)
	return base58.Encode(b)
}

// ParseRecordRef decodes RecordRef from its string form.
func ParseRecordRef(s string) (RecordRef, error) {
	var r RecordRef

	b, err := base58.Decode(s)
	if err != nil {
		return r, fmt.Errorf("decode base58: %w", err)
	}
	if len(b) != refLen {
		return r, fmt.Errorf("invalid reference length %d", len(b))
	}

	r.Owner, err = util.Uint160DecodeBytesBE(b[:util.Uint160Size])
	if err != nil {
		return r, err
	}
	r.ID = binary.BigEndian.Uint64(b[util.Uint160Size:])
	if r.ID == 0 {
		return r, fmt.Errorf("zero record ID")
	}

	return r, nil
}

// Locate returns current position of the referenced record in the listing.
func (r RecordRef) Locate(files []FileRecord) (int, bool) {
	for i := range files {
		if files[i].ID == r.ID {
			return files[i].Position, true
		}
	}
	return 0, false
}
