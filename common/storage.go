package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/neo-go/pkg/interop/util"
)

var (
	flagSet   = []byte{1}
	flagUnset = []byte{0}
)

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(ctx storage.Context, key any, value any) {
	data := std.Serialize(value)
	storage.Put(ctx, key, data)
}

// GetIntList returns deserialized list of integers stored by key or an empty
// list if there is nothing.
func GetIntList(ctx storage.Context, key any) []int {
	data := storage.Get(ctx, key)
	if data != nil {
		return std.Deserialize(data.([]byte)).([]int)
	}

	return []int{}
}

// PutFlag stores a boolean flag by key. Unset flags are kept in storage, so
// the key survives revocation and can still be enumerated.
func PutFlag(ctx storage.Context, key []byte, value bool) {
	if value {
		storage.Put(ctx, key, flagSet)
	} else {
		storage.Put(ctx, key, flagUnset)
	}
}

// GetFlag returns the flag stored by key. Missing keys are unset flags.
func GetFlag(ctx storage.Context, key []byte) bool {
	data := storage.Get(ctx, key)
	if data == nil {
		return false
	}

	return IsFlagSet(data.([]byte))
}

// IsFlagSet checks raw storage value written by PutFlag.
func IsFlagSet(value []byte) bool {
	return BytesEqual(value, flagSet)
}

// BytesEqual compares two slice of bytes by wrapping them into strings,
// which is necessary with new util.Equal interop behaviour, see neo-go#1176.
func BytesEqual(a []byte, b []byte) bool {
	return util.Equals(string(a), string(b))
}
