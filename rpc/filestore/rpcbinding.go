// Package filestore contains RPC wrappers for SafeChain FileStore contract.
package filestore

import (
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/core/transaction"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/rpcclient/unwrap"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// FilestoreFile is a contract-specific filestore.File type used by its methods.
type FilestoreFile struct {
	ID       *big.Int
	Position *big.Int
	Pointer  string
	Name     string
}

// FilestoreGrantee is a contract-specific filestore.Grantee type used by its methods.
type FilestoreGrantee struct {
	Viewer  util.Uint160
	Granted bool
}

// FileAddedEvent represents "FileAdded" event emitted by the contract.
type FileAddedEvent struct {
	Owner    util.Uint160
	ID       *big.Int
	Position *big.Int
}

// FileRemovedEvent represents "FileRemoved" event emitted by the contract.
type FileRemovedEvent struct {
	Owner util.Uint160
	ID    *big.Int
}

// AccessGrantedEvent represents "AccessGranted" event emitted by the contract.
type AccessGrantedEvent struct {
	Owner  util.Uint160
	Viewer util.Uint160
}

// AccessRevokedEvent represents "AccessRevoked" event emitted by the contract.
type AccessRevokedEvent struct {
	Owner  util.Uint160
	Viewer util.Uint160
}

// FileSharedEvent represents "FileShared" event emitted by the contract.
type FileSharedEvent struct {
	Owner  util.Uint160
	ID     *big.Int
	Viewer util.Uint160
}

// FileUnsharedEvent represents "FileUnshared" event emitted by the contract.
type FileUnsharedEvent struct {
	Owner  util.Uint160
	ID     *big.Int
	Viewer util.Uint160
}

// Invoker is used by ContractReader to call various safe methods.
type Invoker interface {
	Call(contract util.Uint160, operation string, params ...any) (*result.Invoke, error)
	CallAndExpandIterator(contract util.Uint160, method string, maxItems int, params ...any) (*result.Invoke, error)
	TerminateSession(sessionID uuid.UUID) error
	TraverseIterator(sessionID uuid.UUID, iterator *result.Iterator, num int) ([]stackitem.Item, error)
}

// Actor is used by Contract to call state-changing methods.
type Actor interface {
	Invoker

	MakeCall(contract util.Uint160, method string, params ...any) (*transaction.Transaction, error)
	MakeRun(script []byte) (*transaction.Transaction, error)
	MakeUnsignedCall(contract util.Uint160, method string, attrs []transaction.Attribute, params ...any) (*transaction.Transaction, error)
	MakeUnsignedRun(script []byte, attrs []transaction.Attribute) (*transaction.Transaction, error)
	SendCall(contract util.Uint160, method string, params ...any) (util.Uint256, uint32, error)
	SendRun(script []byte) (util.Uint256, uint32, error)
}

// ContractReader implements safe contract methods.
type ContractReader struct {
	invoker Invoker
	hash    util.Uint160
}

// Contract implements all contract methods.
type Contract struct {
	ContractReader
	actor Actor
	hash  util.Uint160
}

// NewReader creates an instance of ContractReader using provided contract hash and the given Invoker.
func NewReader(invoker Invoker, hash util.Uint160) *ContractReader {
	return &ContractReader{invoker, hash}
}

// New creates an instance of Contract using provided contract hash and the given Actor.
func New(actor Actor, hash util.Uint160) *Contract {
	return &Contract{ContractReader{actor, hash}, actor, hash}
}

// Hash returns the address of the contract.
func (c *ContractReader) Hash() util.Uint160 {
	return c.hash
}

// Files invokes `files` method of contract.
func (c *ContractReader) Files(owner util.Uint160) ([]*FilestoreFile, error) {
	return func(item stackitem.Item, err error) ([]*FilestoreFile, error) {
		if err != nil {
			return nil, err
		}
		arr, ok := item.Value().([]stackitem.Item)
		if !ok {
			return nil, errors.New("not an array")
		}
		res := make([]*FilestoreFile, len(arr))
		for i := range arr {
			res[i], err = itemToFilestoreFile(arr[i], nil)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
		return res, nil
	}(unwrap.Item(c.invoker.Call(c.hash, "files", owner)))
}

// FileAt invokes `fileAt` method of contract.
func (c *ContractReader) FileAt(owner util.Uint160, position *big.Int) (*FilestoreFile, error) {
	return itemToFilestoreFile(unwrap.Item(c.invoker.Call(c.hash, "fileAt", owner, position)))
}

// FileCount invokes `fileCount` method of contract.
func (c *ContractReader) FileCount(owner util.Uint160) (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "fileCount", owner))
}

// FileGrantees invokes `fileGrantees` method of contract.
func (c *ContractReader) FileGrantees(owner util.Uint160, position *big.Int) ([]util.Uint160, error) {
	return itemToArrayOfUint160(unwrap.Item(c.invoker.Call(c.hash, "fileGrantees", owner, position)))
}

// Grantees invokes `grantees` method of contract.
func (c *ContractReader) Grantees(owner util.Uint160) ([]*FilestoreGrantee, error) {
	return func(item stackitem.Item, err error) ([]*FilestoreGrantee, error) {
		if err != nil {
			return nil, err
		}
		arr, ok := item.Value().([]stackitem.Item)
		if !ok {
			return nil, errors.New("not an array")
		}
		res := make([]*FilestoreGrantee, len(arr))
		for i := range arr {
			res[i], err = itemToFilestoreGrantee(arr[i], nil)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
		return res, nil
	}(unwrap.Item(c.invoker.Call(c.hash, "grantees", owner)))
}

// HasFileAccess invokes `hasFileAccess` method of contract.
func (c *ContractReader) HasFileAccess(owner util.Uint160, position *big.Int, viewer util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "hasFileAccess", owner, position, viewer))
}

// HasGlobalAccess invokes `hasGlobalAccess` method of contract.
func (c *ContractReader) HasGlobalAccess(owner util.Uint160, viewer util.Uint160) (bool, error) {
	return unwrap.Bool(c.invoker.Call(c.hash, "hasGlobalAccess", owner, viewer))
}

// IterateSharers invokes `iterateSharers` method of contract.
func (c *ContractReader) IterateSharers(viewer util.Uint160) (uuid.UUID, result.Iterator, error) {
	return unwrap.SessionIterator(c.invoker.Call(c.hash, "iterateSharers", viewer))
}

// IterateSharersExpanded is similar to IterateSharers (uses the same contract
// method), but can be useful if the server used doesn't support sessions and
// doesn't expand iterators. It creates a script that will get the specified
// number of result items from the iterator right in the VM and return them to
// you. It's only limited by VM stack and GAS available for RPC invocations.
func (c *ContractReader) IterateSharersExpanded(viewer util.Uint160, _numOfIteratorItems int) ([]stackitem.Item, error) {
	return unwrap.Array(c.invoker.CallAndExpandIterator(c.hash, "iterateSharers", _numOfIteratorItems, viewer))
}

// SharersOf invokes `sharersOf` method of contract.
func (c *ContractReader) SharersOf(viewer util.Uint160) ([]util.Uint160, error) {
	return itemToArrayOfUint160(unwrap.Item(c.invoker.Call(c.hash, "sharersOf", viewer)))
}

// Version invokes `version` method of contract.
func (c *ContractReader) Version() (*big.Int, error) {
	return unwrap.BigInt(c.invoker.Call(c.hash, "version"))
}

// AddFile creates a transaction invoking `addFile` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) AddFile(owner util.Uint160, pointer string, name string) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "addFile", owner, pointer, name)
}

// AddFileTransaction creates a transaction invoking `addFile` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AddFileTransaction(owner util.Uint160, pointer string, name string) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "addFile", owner, pointer, name)
}

// AddFileUnsigned creates a transaction invoking `addFile` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AddFileUnsigned(owner util.Uint160, pointer string, name string) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "addFile", nil, owner, pointer, name)
}

// RemoveFile creates a transaction invoking `removeFile` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RemoveFile(owner util.Uint160, position *big.Int) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "removeFile", owner, position)
}

// RemoveFileTransaction creates a transaction invoking `removeFile` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RemoveFileTransaction(owner util.Uint160, position *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "removeFile", owner, position)
}

// RemoveFileUnsigned creates a transaction invoking `removeFile` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RemoveFileUnsigned(owner util.Uint160, position *big.Int) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "removeFile", nil, owner, position)
}

// RemoveFiles creates a transaction invoking `removeFiles` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RemoveFiles(owner util.Uint160, positions []any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "removeFiles", owner, positions)
}

// RemoveFilesTransaction creates a transaction invoking `removeFiles` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RemoveFilesTransaction(owner util.Uint160, positions []any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "removeFiles", owner, positions)
}

// RemoveFilesUnsigned creates a transaction invoking `removeFiles` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RemoveFilesUnsigned(owner util.Uint160, positions []any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "removeFiles", nil, owner, positions)
}

// Allow creates a transaction invoking `allow` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Allow(owner util.Uint160, viewer util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "allow", owner, viewer)
}

// AllowTransaction creates a transaction invoking `allow` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) AllowTransaction(owner util.Uint160, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "allow", owner, viewer)
}

// AllowUnsigned creates a transaction invoking `allow` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) AllowUnsigned(owner util.Uint160, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "allow", nil, owner, viewer)
}

// Disallow creates a transaction invoking `disallow` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Disallow(owner util.Uint160, viewer util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "disallow", owner, viewer)
}

// DisallowTransaction creates a transaction invoking `disallow` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) DisallowTransaction(owner util.Uint160, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "disallow", owner, viewer)
}

// DisallowUnsigned creates a transaction invoking `disallow` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) DisallowUnsigned(owner util.Uint160, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "disallow", nil, owner, viewer)
}

// ShareFile creates a transaction invoking `shareFile` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) ShareFile(owner util.Uint160, position *big.Int, viewer util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "shareFile", owner, position, viewer)
}

// ShareFileTransaction creates a transaction invoking `shareFile` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) ShareFileTransaction(owner util.Uint160, position *big.Int, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "shareFile", owner, position, viewer)
}

// ShareFileUnsigned creates a transaction invoking `shareFile` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) ShareFileUnsigned(owner util.Uint160, position *big.Int, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "shareFile", nil, owner, position, viewer)
}

// RevokeFile creates a transaction invoking `revokeFile` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) RevokeFile(owner util.Uint160, position *big.Int, viewer util.Uint160) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "revokeFile", owner, position, viewer)
}

// RevokeFileTransaction creates a transaction invoking `revokeFile` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) RevokeFileTransaction(owner util.Uint160, position *big.Int, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "revokeFile", owner, position, viewer)
}

// RevokeFileUnsigned creates a transaction invoking `revokeFile` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) RevokeFileUnsigned(owner util.Uint160, position *big.Int, viewer util.Uint160) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "revokeFile", nil, owner, position, viewer)
}

// Update creates a transaction invoking `update` method of the contract.
// This transaction is signed and immediately sent to the network.
// The values returned are its hash, ValidUntilBlock value and error if any.
func (c *Contract) Update(script []byte, manifest []byte, data any) (util.Uint256, uint32, error) {
	return c.actor.SendCall(c.hash, "update", script, manifest, data)
}

// UpdateTransaction creates a transaction invoking `update` method of the contract.
// This transaction is signed, but not sent to the network, instead it's
// returned to the caller.
func (c *Contract) UpdateTransaction(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeCall(c.hash, "update", script, manifest, data)
}

// UpdateUnsigned creates a transaction invoking `update` method of the contract.
// This transaction is not signed, it's simply returned to the caller.
// Any fields of it that do not affect fees can be changed (ValidUntilBlock,
// Nonce), fee values (NetworkFee, SystemFee) can be increased as well.
func (c *Contract) UpdateUnsigned(script []byte, manifest []byte, data any) (*transaction.Transaction, error) {
	return c.actor.MakeUnsignedCall(c.hash, "update", nil, script, manifest, data)
}

// itemToFilestoreFile converts stack item into *FilestoreFile.
func itemToFilestoreFile(item stackitem.Item, err error) (*FilestoreFile, error) {
	if err != nil {
		return nil, err
	}
	var res = new(FilestoreFile)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of FilestoreFile from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *FilestoreFile) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 4 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.ID, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	index++
	res.Position, err = arr[index].TryInteger()
	if err != nil {
		return fmt.Errorf("field Position: %w", err)
	}

	index++
	res.Pointer, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field Pointer: %w", err)
	}

	index++
	res.Name, err = itemToUTF8String(arr[index])
	if err != nil {
		return fmt.Errorf("field Name: %w", err)
	}

	return nil
}

// itemToFilestoreGrantee converts stack item into *FilestoreGrantee.
func itemToFilestoreGrantee(item stackitem.Item, err error) (*FilestoreGrantee, error) {
	if err != nil {
		return nil, err
	}
	var res = new(FilestoreGrantee)
	err = res.FromStackItem(item)
	return res, err
}

// FromStackItem retrieves fields of FilestoreGrantee from the given
// [stackitem.Item] or returns an error if it's not possible to do to so.
func (res *FilestoreGrantee) FromStackItem(item stackitem.Item) error {
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return errors.New("not an array")
	}
	if len(arr) != 2 {
		return errors.New("wrong number of structure elements")
	}

	var (
		index = -1
		err   error
	)
	index++
	res.Viewer, err = itemToUint160(arr[index])
	if err != nil {
		return fmt.Errorf("field Viewer: %w", err)
	}

	index++
	res.Granted, err = arr[index].TryBool()
	if err != nil {
		return fmt.Errorf("field Granted: %w", err)
	}

	return nil
}

// FileAddedEventsFromApplicationLog retrieves a set of all emitted events
// with "FileAdded" name from the provided [result.ApplicationLog].
func FileAddedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FileAddedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FileAddedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FileAdded" {
				continue
			}
			event := new(FileAddedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FileAddedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FileAddedEvent or
// returns an error if it's not possible to do to so.
func (e *FileAddedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.ID, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	e.Position, err = arr[2].TryInteger()
	if err != nil {
		return fmt.Errorf("field Position: %w", err)
	}

	return nil
}

// FileRemovedEventsFromApplicationLog retrieves a set of all emitted events
// with "FileRemoved" name from the provided [result.ApplicationLog].
func FileRemovedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FileRemovedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FileRemovedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FileRemoved" {
				continue
			}
			event := new(FileRemovedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FileRemovedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FileRemovedEvent or
// returns an error if it's not possible to do to so.
func (e *FileRemovedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.ID, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	return nil
}

// AccessGrantedEventsFromApplicationLog retrieves a set of all emitted events
// with "AccessGranted" name from the provided [result.ApplicationLog].
func AccessGrantedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AccessGrantedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AccessGrantedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AccessGranted" {
				continue
			}
			event := new(AccessGrantedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AccessGrantedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AccessGrantedEvent or
// returns an error if it's not possible to do to so.
func (e *AccessGrantedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Viewer, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Viewer: %w", err)
	}

	return nil
}

// AccessRevokedEventsFromApplicationLog retrieves a set of all emitted events
// with "AccessRevoked" name from the provided [result.ApplicationLog].
func AccessRevokedEventsFromApplicationLog(log *result.ApplicationLog) ([]*AccessRevokedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*AccessRevokedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "AccessRevoked" {
				continue
			}
			event := new(AccessRevokedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize AccessRevokedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to AccessRevokedEvent or
// returns an error if it's not possible to do to so.
func (e *AccessRevokedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 2)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.Viewer, err = itemToUint160(arr[1])
	if err != nil {
		return fmt.Errorf("field Viewer: %w", err)
	}

	return nil
}

// FileSharedEventsFromApplicationLog retrieves a set of all emitted events
// with "FileShared" name from the provided [result.ApplicationLog].
func FileSharedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FileSharedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FileSharedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FileShared" {
				continue
			}
			event := new(FileSharedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FileSharedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FileSharedEvent or
// returns an error if it's not possible to do to so.
func (e *FileSharedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.ID, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	e.Viewer, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field Viewer: %w", err)
	}

	return nil
}

// FileUnsharedEventsFromApplicationLog retrieves a set of all emitted events
// with "FileUnshared" name from the provided [result.ApplicationLog].
func FileUnsharedEventsFromApplicationLog(log *result.ApplicationLog) ([]*FileUnsharedEvent, error) {
	if log == nil {
		return nil, errors.New("nil application log")
	}

	var res []*FileUnsharedEvent
	for i, ex := range log.Executions {
		for j, e := range ex.Events {
			if e.Name != "FileUnshared" {
				continue
			}
			event := new(FileUnsharedEvent)
			err := event.FromStackItem(e.Item)
			if err != nil {
				return nil, fmt.Errorf("failed to deserialize FileUnsharedEvent from stackitem (execution #%d, event #%d): %w", i, j, err)
			}
			res = append(res, event)
		}
	}

	return res, nil
}

// FromStackItem converts provided [stackitem.Array] to FileUnsharedEvent or
// returns an error if it's not possible to do to so.
func (e *FileUnsharedEvent) FromStackItem(item *stackitem.Array) error {
	arr, err := eventFields(item, 3)
	if err != nil {
		return err
	}

	e.Owner, err = itemToUint160(arr[0])
	if err != nil {
		return fmt.Errorf("field Owner: %w", err)
	}

	e.ID, err = arr[1].TryInteger()
	if err != nil {
		return fmt.Errorf("field ID: %w", err)
	}

	e.Viewer, err = itemToUint160(arr[2])
	if err != nil {
		return fmt.Errorf("field Viewer: %w", err)
	}

	return nil
}

func eventFields(item *stackitem.Array, n int) ([]stackitem.Item, error) {
	if item == nil {
		return nil, errors.New("nil item")
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	if len(arr) != n {
		return nil, errors.New("wrong number of structure elements")
	}
	return arr, nil
}

func itemToUint160(item stackitem.Item) (util.Uint160, error) {
	b, err := item.TryBytes()
	if err != nil {
		return util.Uint160{}, err
	}
	u, err := util.Uint160DecodeBytesBE(b)
	if err != nil {
		return util.Uint160{}, err
	}
	return u, nil
}

func itemToUTF8String(item stackitem.Item) (string, error) {
	b, err := item.TryBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("not a UTF-8 string")
	}
	return string(b), nil
}

func itemToArrayOfUint160(item stackitem.Item, err error) ([]util.Uint160, error) {
	if err != nil {
		return nil, err
	}
	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, errors.New("not an array")
	}
	res := make([]util.Uint160, len(arr))
	for i := range arr {
		res[i], err = itemToUint160(arr[i])
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return res, nil
}
