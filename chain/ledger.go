/*
Package chain implements fileshare.Ledger over the FileStore contract deployed
to a Neo blockchain.

Writes are sent as transactions signed by the local account and return only
after the transaction is accepted into a block. Contract exceptions are mapped
to fileshare errors, all the other failures are reported as
fileshare.ErrLedgerUnavailable.
*/
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	cst "github.com/nspcc-dev/safechain/contracts/filestore/filestoreconst"
	"github.com/nspcc-dev/safechain/fileshare"
	"github.com/nspcc-dev/safechain/rpc/filestore"
	"go.uber.org/zap"
)

// Actor groups functions needed to send FileStore transactions and wait for
// their results. It is implemented by actor.Actor.
type Actor interface {
	filestore.Actor

	// Sender returns the account all the transactions are signed with.
	Sender() util.Uint160
	// Wait waits until the transaction is accepted to the chain and returns
	// its execution result.
	Wait(h util.Uint256, vub uint32, err error) (*state.AppExecResult, error)
}

// Ledger is fileshare.Ledger backed by the FileStore contract. It also
// implements fileshare.SharerIndex.
type Ledger struct {
	inv      filestore.Invoker
	reader   *filestore.ContractReader
	contract *filestore.Contract
	act      Actor
	log      *zap.Logger
}

// New returns Ledger sending transactions via act to the FileStore contract
// with the given address. Nil logger disables logging.
func New(act Actor, contract util.Uint160, log *zap.Logger) *Ledger {
	l := NewReadOnly(act, contract, log)
	l.act = act
	l.contract = filestore.New(act, contract)
	return l
}

// NewReadOnly returns Ledger that can only read the contract, all writes fail
// with fileshare.ErrUnauthorized.
func NewReadOnly(inv filestore.Invoker, contract util.Uint160, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{
		inv:    inv,
		reader: filestore.NewReader(inv, contract),
		log:    log,
	}
}

// Signer returns the account writes are signed with or zero hash for
// read-only Ledger.
func (l *Ledger) Signer() util.Uint160 {
	if l.act == nil {
		return util.Uint160{}
	}
	return l.act.Sender()
}

// mapError converts RPC and contract failures into fileshare errors.
// Exception texts thrown by the contract are matched as substrings of the
// error message since they pass through the RPC server unstructured.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var (
		msg    = err.Error()
		target error
	)

	switch {
	case strings.Contains(msg, cst.ErrorUnauthorized):
		target = fileshare.ErrUnauthorized
	case strings.Contains(msg, cst.ErrorOutOfRange):
		target = fileshare.ErrOutOfRange
	case strings.Contains(msg, cst.ErrorInvalidIdentity):
		target = fileshare.ErrInvalidIdentity
	case strings.Contains(msg, cst.ErrorEmptyPointer):
		target = fileshare.ErrEmptyPointer
	default:
		target = fileshare.ErrLedgerUnavailable
	}

	if errors.Is(err, target) {
		return err
	}

	return fmt.Errorf("%w: %w", target, err)
}

func (l *Ledger) checkSigner(owner util.Uint160) error {
	if l.act == nil {
		return fmt.Errorf("%w: read-only client", fileshare.ErrUnauthorized)
	}
	if s := l.act.Sender(); !s.Equals(owner) {
		return fmt.Errorf("%w: signer %s is not the owner %s",
			fileshare.ErrUnauthorized, s.StringLE(), owner.StringLE())
	}
	return nil
}

// send waits for the transaction sent by one of the Contract methods and
// returns the first item of the resulting stack if any.
func (l *Ledger) send(ctx context.Context, method string, h util.Uint256, vub uint32, err error) (stackitem.Item, error) {
	if err != nil {
		return nil, fmt.Errorf("send '%s' transaction: %w", method, mapError(err))
	}

	l.log.Debug("transaction sent, waiting for acceptance",
		zap.String("method", method), zap.Stringer("tx", h), zap.Uint32("vub", vub))

	if err = ctx.Err(); err != nil {
		// there is no way to cancel sent transaction, but the caller is no
		// longer interested in its result
		return nil, fmt.Errorf("%w: '%s' transaction %s: %w", fileshare.ErrLedgerUnavailable, method, h.StringLE(), err)
	}

	res, err := l.act.Wait(h, vub, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: wait for '%s' transaction %s: %w", fileshare.ErrLedgerUnavailable, method, h.StringLE(), err)
	}

	if !res.VMState.HasFlag(vmstate.Halt) {
		return nil, fmt.Errorf("'%s' transaction %s failed: %w", method, h.StringLE(),
			mapError(errors.New(res.FaultException)))
	}

	l.log.Debug("transaction accepted", zap.String("method", method), zap.Stringer("tx", h))

	if len(res.Stack) == 0 {
		return nil, nil
	}

	return res.Stack[0], nil
}

func (l *Ledger) enter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", fileshare.ErrLedgerUnavailable, err)
	}
	return nil
}

// AddFile implements fileshare.Ledger.
func (l *Ledger) AddFile(ctx context.Context, owner util.Uint160, pointer, name string) (int, error) {
	if err := l.checkSigner(owner); err != nil {
		return 0, err
	}
	if err := l.enter(ctx); err != nil {
		return 0, err
	}

	h, vub, err := l.contract.AddFile(owner, pointer, name)

	item, err := l.send(ctx, "addFile", h, vub, err)
	if err != nil {
		return 0, err
	}

	return itemToInt(item)
}

// RemoveFile implements fileshare.Ledger.
func (l *Ledger) RemoveFile(ctx context.Context, owner util.Uint160, position int) error {
	if err := l.checkSigner(owner); err != nil {
		return err
	}
	if err := l.enter(ctx); err != nil {
		return err
	}

	h, vub, err := l.contract.RemoveFile(owner, big.NewInt(int64(position)))

	_, err = l.send(ctx, "removeFile", h, vub, err)
	return err
}

// RemoveFiles implements fileshare.Ledger.
func (l *Ledger) RemoveFiles(ctx context.Context, owner util.Uint160, positions []int) ([]int, error) {
	if err := l.checkSigner(owner); err != nil {
		return nil, err
	}
	if err := l.enter(ctx); err != nil {
		return nil, err
	}

	prm := make([]any, len(positions))
	for i := range positions {
		prm[i] = int64(positions[i])
	}

	h, vub, err := l.contract.RemoveFiles(owner, prm)

	item, err := l.send(ctx, "removeFiles", h, vub, err)
	if err != nil {
		return nil, err
	}

	arr, ok := item.Value().([]stackitem.Item)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected 'removeFiles' result %s",
			fileshare.ErrLedgerUnavailable, item.Type())
	}

	res := make([]int, len(arr))
	for i := range arr {
		res[i], err = itemToInt(arr[i])
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

// Files implements fileshare.Ledger.
func (l *Ledger) Files(ctx context.Context, owner util.Uint160) ([]fileshare.FileRecord, error) {
	if err := l.enter(ctx); err != nil {
		return nil, err
	}

	files, err := l.reader.Files(owner)
	if err != nil {
		return nil, mapError(err)
	}

	res := make([]fileshare.FileRecord, len(files))
	for i := range files {
		res[i] = toFileRecord(files[i])
	}

	return res, nil
}

// FileCount implements fileshare.Ledger.
func (l *Ledger) FileCount(ctx context.Context, owner util.Uint160) (int, error) {
	if err := l.enter(ctx); err != nil {
		return 0, err
	}

	n, err := l.reader.FileCount(owner)
	if err != nil {
		return 0, mapError(err)
	}

	return int(n.Int64()), nil
}

// File implements fileshare.Ledger.
func (l *Ledger) File(ctx context.Context, owner util.Uint160, position int) (fileshare.FileRecord, error) {
	if err := l.enter(ctx); err != nil {
		return fileshare.FileRecord{}, err
	}

	f, err := l.reader.FileAt(owner, big.NewInt(int64(position)))
	if err != nil {
		return fileshare.FileRecord{}, mapError(err)
	}

	return toFileRecord(f), nil
}

// SetGlobalAccess implements fileshare.Ledger.
func (l *Ledger) SetGlobalAccess(ctx context.Context, owner, viewer util.Uint160, granted bool) (bool, error) {
	if err := l.checkSigner(owner); err != nil {
		return false, err
	}
	if err := l.enter(ctx); err != nil {
		return false, err
	}

	var (
		method = "allow"
		h      util.Uint256
		vub    uint32
		err    error
	)

	if granted {
		h, vub, err = l.contract.Allow(owner, viewer)
	} else {
		method = "disallow"
		h, vub, err = l.contract.Disallow(owner, viewer)
	}

	item, err := l.send(ctx, method, h, vub, err)
	if err != nil {
		return false, err
	}

	return itemToBool(item)
}

// SetFileAccess implements fileshare.Ledger.
func (l *Ledger) SetFileAccess(ctx context.Context, owner util.Uint160, position int, viewer util.Uint160, granted bool) (bool, error) {
	if err := l.checkSigner(owner); err != nil {
		return false, err
	}
	if err := l.enter(ctx); err != nil {
		return false, err
	}

	var (
		method = "shareFile"
		pos    = big.NewInt(int64(position))
		h      util.Uint256
		vub    uint32
		err    error
	)

	if granted {
		h, vub, err = l.contract.ShareFile(owner, pos, viewer)
	} else {
		method = "revokeFile"
		h, vub, err = l.contract.RevokeFile(owner, pos, viewer)
	}

	item, err := l.send(ctx, method, h, vub, err)
	if err != nil {
		return false, err
	}

	return itemToBool(item)
}

// HasGlobalAccess implements fileshare.Ledger.
func (l *Ledger) HasGlobalAccess(ctx context.Context, owner, viewer util.Uint160) (bool, error) {
	if err := l.enter(ctx); err != nil {
		return false, err
	}

	ok, err := l.reader.HasGlobalAccess(owner, viewer)
	return ok, mapError(err)
}

// HasFileAccess implements fileshare.Ledger.
func (l *Ledger) HasFileAccess(ctx context.Context, owner util.Uint160, position int, viewer util.Uint160) (bool, error) {
	if err := l.enter(ctx); err != nil {
		return false, err
	}

	ok, err := l.reader.HasFileAccess(owner, big.NewInt(int64(position)), viewer)
	return ok, mapError(err)
}

// Grantees implements fileshare.Ledger.
func (l *Ledger) Grantees(ctx context.Context, owner util.Uint160) ([]fileshare.Grantee, error) {
	if err := l.enter(ctx); err != nil {
		return nil, err
	}

	list, err := l.reader.Grantees(owner)
	if err != nil {
		return nil, mapError(err)
	}

	res := make([]fileshare.Grantee, len(list))
	for i := range list {
		res[i] = fileshare.Grantee{Viewer: list[i].Viewer, Granted: list[i].Granted}
	}

	return res, nil
}

// FileGrantees implements fileshare.Ledger.
func (l *Ledger) FileGrantees(ctx context.Context, owner util.Uint160, position int) ([]util.Uint160, error) {
	if err := l.enter(ctx); err != nil {
		return nil, err
	}

	res, err := l.reader.FileGrantees(owner, big.NewInt(int64(position)))
	if err != nil {
		return nil, mapError(err)
	}

	return res, nil
}

// iteratorBatch is the number of items requested per iterator traversal.
const iteratorBatch = 100

// SharersOf implements fileshare.SharerIndex. It traverses the contract
// iterator within a session and falls back to the list method when the RPC
// server does not support sessions.
func (l *Ledger) SharersOf(ctx context.Context, viewer util.Uint160) ([]util.Uint160, error) {
	if err := l.enter(ctx); err != nil {
		return nil, err
	}

	sess, iter, err := l.reader.IterateSharers(viewer)
	if err != nil {
		l.log.Debug("iterator session unavailable, listing sharers at once", zap.Error(err))

		res, err := l.reader.SharersOf(viewer)
		if err != nil {
			return nil, mapError(err)
		}
		return res, nil
	}

	defer func() {
		if err := l.inv.TerminateSession(sess); err != nil {
			l.log.Debug("failed to terminate iterator session", zap.Error(err))
		}
	}()

	var res []util.Uint160

	for {
		if err = ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", fileshare.ErrLedgerUnavailable, err)
		}

		items, err := l.inv.TraverseIterator(sess, &iter, iteratorBatch)
		if err != nil {
			return nil, mapError(fmt.Errorf("traverse sharers: %w", err))
		}
		if len(items) == 0 {
			return res, nil
		}

		for i := range items {
			b, err := items[i].TryBytes()
			if err != nil {
				return nil, fmt.Errorf("%w: invalid sharer item: %w", fileshare.ErrLedgerUnavailable, err)
			}

			u, err := util.Uint160DecodeBytesBE(b)
			if err != nil {
				return nil, fmt.Errorf("%w: invalid sharer item: %w", fileshare.ErrLedgerUnavailable, err)
			}

			res = append(res, u)
		}
	}
}

func toFileRecord(f *filestore.FilestoreFile) fileshare.FileRecord {
	return fileshare.FileRecord{
		ID:       f.ID.Uint64(),
		Position: int(f.Position.Int64()),
		Pointer:  f.Pointer,
		Name:     f.Name,
	}
}

func itemToInt(item stackitem.Item) (int, error) {
	if item == nil {
		return 0, fmt.Errorf("%w: missing result", fileshare.ErrLedgerUnavailable)
	}
	v, err := item.TryInteger()
	if err != nil {
		return 0, fmt.Errorf("%w: invalid integer result: %w", fileshare.ErrLedgerUnavailable, err)
	}
	return int(v.Int64()), nil
}

func itemToBool(item stackitem.Item) (bool, error) {
	if item == nil {
		return false, fmt.Errorf("%w: missing result", fileshare.ErrLedgerUnavailable)
	}
	v, err := item.TryBool()
	if err != nil {
		return false, fmt.Errorf("%w: invalid boolean result: %w", fileshare.ErrLedgerUnavailable, err)
	}
	return v, nil
}
