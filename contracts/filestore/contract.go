package filestore

import (
	"github.com/nspcc-dev/neo-go/pkg/interop"
	"github.com/nspcc-dev/neo-go/pkg/interop/contract"
	"github.com/nspcc-dev/neo-go/pkg/interop/convert"
	"github.com/nspcc-dev/neo-go/pkg/interop/iterator"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/management"
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/runtime"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
	"github.com/nspcc-dev/safechain/common"
	cst "github.com/nspcc-dev/safechain/contracts/filestore/filestoreconst"
)

type (
	// File is a catalog record. ID is stable and never reused within the
	// owner's catalog, Position is the current index of the record and is
	// filled on read.
	File struct {
		ID       int
		Position int
		Pointer  string
		Name     string
	}

	// Grantee is a viewer that has ever been granted access to the whole
	// catalog along with the current state of the grant.
	Grantee struct {
		Viewer  interop.Hash160
		Granted bool
	}
)

const (
	counterKeyPrefix = 'c'
	indexKeyPrefix   = 'i'
	fileKeyPrefix    = 'f'
	globalKeyPrefix  = 'a'
	fileGrantPrefix  = 'g'
	sharerKeyPrefix  = 'r'
)

// nolint:deadcode,unused
func _deploy(data any, isUpdate bool) {
	if isUpdate {
		args := data.([]any)
		common.CheckVersion(args[len(args)-1].(int))
		return
	}

	runtime.Log("filestore contract initialized")
}

// Update method updates contract source code and manifest. It can be invoked
// only by committee.
func Update(script []byte, manifest []byte, data any) {
	common.CheckCommitteeWitness(cst.ErrorUpdateDenied)

	contract.Call(interop.Hash160(management.Hash), "update",
		contract.All, script, manifest, common.AppendVersion(data))
	runtime.Log("filestore contract updated")
}

// AddFile method appends a record to the end of the owner's catalog and
// returns its position. It must be witnessed by the owner. Pointer is an
// opaque reference to the file contents and must not be empty, name is free
// text.
func AddFile(owner interop.Hash160, pointer string, name string) int {
	ctx := storage.GetContext()

	checkIdentity(owner)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	if len(pointer) == 0 {
		panic(cst.ErrorEmptyPointer)
	}

	id := nextID(ctx, owner)
	ids := common.GetIntList(ctx, indexKey(owner))
	position := len(ids)

	common.SetSerialized(ctx, fileKey(owner, id), File{
		ID:      id,
		Pointer: pointer,
		Name:    name,
	})

	ids = append(ids, id)
	common.SetSerialized(ctx, indexKey(owner), ids)

	runtime.Notify("FileAdded", owner, id, position)

	return position
}

// RemoveFile method removes the record at the given position. All the later
// records shift down by one. It must be witnessed by the owner.
//
// If the position is out of range, it panics with ErrorOutOfRange.
func RemoveFile(owner interop.Hash160, position int) {
	ctx := storage.GetContext()

	checkIdentity(owner)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	ids := common.GetIntList(ctx, indexKey(owner))
	if position < 0 || position >= len(ids) {
		panic(cst.ErrorOutOfRange)
	}

	left := []int{}
	id := 0

	for i := range ids {
		if i == position {
			id = ids[i]
			continue
		}
		left = append(left, ids[i])
	}

	dropFile(ctx, owner, id, left)
}

// RemoveFiles method removes records at all the given positions in a single
// transaction. Positions are interpreted against the catalog state before the
// call. Invalid positions do not abort the call, they are returned to the
// caller instead. It must be witnessed by the owner.
func RemoveFiles(owner interop.Hash160, positions []int) []int {
	ctx := storage.GetContext()

	checkIdentity(owner)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	ids := common.GetIntList(ctx, indexKey(owner))
	invalid := []int{}

	for _, p := range positions {
		if (p < 0 || p >= len(ids)) && !containsInt(invalid, p) {
			invalid = append(invalid, p)
		}
	}

	left := []int{}
	removed := []int{}

	for i := range ids {
		if containsInt(positions, i) {
			removed = append(removed, ids[i])
		} else {
			left = append(left, ids[i])
		}
	}

	if len(removed) == 0 {
		return invalid
	}

	// Later records go first, so that FileRemoved notifications follow the
	// same order a sequence of single removals would produce.
	for i := len(removed) - 1; i >= 0; i-- {
		storage.Delete(ctx, fileKey(owner, removed[i]))
		runtime.Notify("FileRemoved", owner, removed[i])
	}

	common.SetSerialized(ctx, indexKey(owner), left)
	runtime.Log("records removed")

	return invalid
}

// Files method returns all the records of the owner's catalog in order.
// Catalogs are public, so it can be called by anyone.
func Files(owner interop.Hash160) []File {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)

	ids := common.GetIntList(ctx, indexKey(owner))
	res := []File{}

	for i := range ids {
		f := getFile(ctx, owner, ids[i])
		f.Position = i
		res = append(res, f)
	}

	return res
}

// FileAt method returns the record at the given position.
//
// If the position is out of range, it panics with ErrorOutOfRange.
func FileAt(owner interop.Hash160, position int) File {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)

	f := getFile(ctx, owner, idAt(ctx, owner, position))
	f.Position = position

	return f
}

// FileCount method returns the number of records in the owner's catalog.
func FileCount(owner interop.Hash160) int {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)

	return len(common.GetIntList(ctx, indexKey(owner)))
}

// Allow method grants the viewer access to the whole owner's catalog,
// including records added later. It must be witnessed by the owner. Returns
// false if the access had already been granted.
//
// Self-grants panic with ErrorInvalidIdentity.
func Allow(owner, viewer interop.Hash160) bool {
	ctx := storage.GetContext()

	checkGrantParties(owner, viewer)

	key := globalKey(owner, viewer)
	if common.GetFlag(ctx, key) {
		return false
	}

	common.PutFlag(ctx, key, true)
	putSharer(ctx, owner, viewer)

	runtime.Notify("AccessGranted", owner, viewer)

	return true
}

// Disallow method revokes the access to the whole catalog. It must be
// witnessed by the owner. Returns false if there was nothing to revoke.
// Per-file grants are not affected.
func Disallow(owner, viewer interop.Hash160) bool {
	ctx := storage.GetContext()

	checkIdentity(owner)
	checkIdentity(viewer)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	key := globalKey(owner, viewer)
	if !common.GetFlag(ctx, key) {
		return false
	}

	common.PutFlag(ctx, key, false)

	runtime.Notify("AccessRevoked", owner, viewer)

	return true
}

// ShareFile method grants the viewer access to the record currently placed
// at the given position. The grant stays with the record when positions
// shift. It must be witnessed by the owner. Returns false if the access had
// already been granted.
//
// If the position is out of range, it panics with ErrorOutOfRange. Self-grants
// panic with ErrorInvalidIdentity.
func ShareFile(owner interop.Hash160, position int, viewer interop.Hash160) bool {
	ctx := storage.GetContext()

	checkGrantParties(owner, viewer)

	id := idAt(ctx, owner, position)
	key := fileGrantKey(owner, id, viewer)
	if common.GetFlag(ctx, key) {
		return false
	}

	common.PutFlag(ctx, key, true)
	putSharer(ctx, owner, viewer)

	runtime.Notify("FileShared", owner, id, viewer)

	return true
}

// RevokeFile method revokes the access to the record at the given position.
// It must be witnessed by the owner. Returns false if there was nothing to
// revoke.
//
// If the position is out of range, it panics with ErrorOutOfRange.
func RevokeFile(owner interop.Hash160, position int, viewer interop.Hash160) bool {
	ctx := storage.GetContext()

	checkIdentity(owner)
	checkIdentity(viewer)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	id := idAt(ctx, owner, position)
	key := fileGrantKey(owner, id, viewer)
	if !common.GetFlag(ctx, key) {
		return false
	}

	common.PutFlag(ctx, key, false)

	runtime.Notify("FileUnshared", owner, id, viewer)

	return true
}

// HasGlobalAccess method checks whether the viewer has access to the whole
// owner's catalog. Unknown pairs are not granted.
func HasGlobalAccess(owner, viewer interop.Hash160) bool {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)
	checkIdentity(viewer)

	return common.GetFlag(ctx, globalKey(owner, viewer))
}

// HasFileAccess method checks whether the viewer has been granted access to
// the record at the given position. Global grants are not taken into account.
//
// If the position is out of range, it panics with ErrorOutOfRange.
func HasFileAccess(owner interop.Hash160, position int, viewer interop.Hash160) bool {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)
	checkIdentity(viewer)

	id := idAt(ctx, owner, position)

	return common.GetFlag(ctx, fileGrantKey(owner, id, viewer))
}

// Grantees method returns all the viewers that have ever been granted access
// to the whole owner's catalog with the current state of their grants.
func Grantees(owner interop.Hash160) []Grantee {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)

	res := []Grantee{}

	it := storage.Find(ctx, append([]byte{globalKeyPrefix}, owner...), storage.RemovePrefix)
	for iterator.Next(it) {
		item := iterator.Value(it).(struct {
			key   []byte
			value []byte
		})

		res = append(res, Grantee{
			Viewer:  item.key,
			Granted: common.IsFlagSet(item.value),
		})
	}

	return res
}

// FileGrantees method returns viewers having active access to the record at
// the given position.
//
// If the position is out of range, it panics with ErrorOutOfRange.
func FileGrantees(owner interop.Hash160, position int) []interop.Hash160 {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(owner)

	id := idAt(ctx, owner, position)
	res := []interop.Hash160{}

	prefix := append([]byte{fileGrantPrefix}, owner...)
	prefix = append(prefix, convert.ToBytes(id)...)

	it := storage.Find(ctx, prefix, storage.RemovePrefix)
	for iterator.Next(it) {
		item := iterator.Value(it).(struct {
			key   []byte
			value []byte
		})

		// Keys of records with longer identifiers share the prefix.
		if len(item.key) != interop.Hash160Len {
			continue
		}

		if common.IsFlagSet(item.value) {
			res = append(res, item.key)
		}
	}

	return res
}

// SharersOf method returns owners that have ever granted anything to the
// viewer. The list is a superset: grants can be revoked since then, so
// callers should check the access explicitly.
func SharersOf(viewer interop.Hash160) []interop.Hash160 {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(viewer)

	res := []interop.Hash160{}

	it := storage.Find(ctx, append([]byte{sharerKeyPrefix}, viewer...), storage.KeysOnly|storage.RemovePrefix)
	for iterator.Next(it) {
		res = append(res, iterator.Value(it).([]byte))
	}

	return res
}

// IterateSharers method is the same as SharersOf, but returns iterator over
// owner hashes instead of a list.
func IterateSharers(viewer interop.Hash160) iterator.Iterator {
	ctx := storage.GetReadOnlyContext()

	checkIdentity(viewer)

	return storage.Find(ctx, append([]byte{sharerKeyPrefix}, viewer...), storage.KeysOnly|storage.RemovePrefix)
}

// Version returns the version of the contract.
func Version() int {
	return common.Version
}

func checkIdentity(h interop.Hash160) {
	if len(h) != interop.Hash160Len {
		panic(cst.ErrorInvalidIdentity)
	}
}

func checkGrantParties(owner, viewer interop.Hash160) {
	checkIdentity(owner)
	checkIdentity(viewer)
	common.CheckOwnerWitness(owner, cst.ErrorUnauthorized)

	if common.BytesEqual(owner, viewer) {
		panic(cst.ErrorInvalidIdentity)
	}
}

func nextID(ctx storage.Context, owner interop.Hash160) int {
	key := append([]byte{counterKeyPrefix}, owner...)

	last := 0
	v := storage.Get(ctx, key)
	if v != nil {
		last = v.(int)
	}

	storage.Put(ctx, key, last+1)

	return last + 1
}

func idAt(ctx storage.Context, owner interop.Hash160, position int) int {
	ids := common.GetIntList(ctx, indexKey(owner))
	if position < 0 || position >= len(ids) {
		panic(cst.ErrorOutOfRange)
	}

	return ids[position]
}

func dropFile(ctx storage.Context, owner interop.Hash160, id int, left []int) {
	storage.Delete(ctx, fileKey(owner, id))
	common.SetSerialized(ctx, indexKey(owner), left)

	runtime.Notify("FileRemoved", owner, id)
}

func getFile(ctx storage.Context, owner interop.Hash160, id int) File {
	data := storage.Get(ctx, fileKey(owner, id))
	if data != nil {
		return std.Deserialize(data.([]byte)).(File)
	}

	return File{ID: id, Pointer: "", Name: ""}
}

func putSharer(ctx storage.Context, owner, viewer interop.Hash160) {
	key := append([]byte{sharerKeyPrefix}, viewer...)
	key = append(key, owner...)

	storage.Put(ctx, key, []byte{1})
}

func indexKey(owner interop.Hash160) []byte {
	return append([]byte{indexKeyPrefix}, owner...)
}

func fileKey(owner interop.Hash160, id int) []byte {
	key := append([]byte{fileKeyPrefix}, owner...)
	return append(key, convert.ToBytes(id)...)
}

func globalKey(owner, viewer interop.Hash160) []byte {
	key := append([]byte{globalKeyPrefix}, owner...)
	return append(key, viewer...)
}

func fileGrantKey(owner interop.Hash160, id int, viewer interop.Hash160) []byte {
	key := append([]byte{fileGrantPrefix}, owner...)
	key = append(key, convert.ToBytes(id)...)
	return append(key, viewer...)
}

func containsInt(list []int, v int) bool {
	for i := range list {
		if list[i] == v {
			return true
		}
	}
	return false
}
