package fileshare

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Matrix manages global and per-file grants.
//
// All mutations are gated by the ledger on the caller being the owner and
// report whether the grant actually changed, so an idempotent repeat is not
// mistaken for a failure.
type Matrix struct {
	ledger Ledger
	log    *zap.Logger
}

// NewMatrix constructs Matrix working over the given ledger. Nil logger
// disables logging.
func NewMatrix(ledger Ledger, log *zap.Logger) *Matrix {
	if log == nil {
		log = zap.NewNop()
	}
	return &Matrix{ledger: ledger, log: log}
}

// GrantGlobal allows the viewer to see the whole owner's catalog including
// records added later. Self-grants fail with ErrInvalidIdentity.
func (m *Matrix) GrantGlobal(ctx context.Context, owner, viewer Identity) (Outcome, error) {
	if err := checkGrant(owner, viewer); err != nil {
		return Unchanged, err
	}
	return m.setGlobal(ctx, owner, viewer, true)
}

// RevokeGlobal revokes access to the whole catalog. Revoking a never granted
// access is a no-op. Per-file grants are not affected.
func (m *Matrix) RevokeGlobal(ctx context.Context, owner, viewer Identity) (Outcome, error) {
	if err := checkIdentity(owner, viewer); err != nil {
		return Unchanged, err
	}
	return m.setGlobal(ctx, owner, viewer, false)
}

func (m *Matrix) setGlobal(ctx context.Context, owner, viewer Identity, granted bool) (Outcome, error) {
	changed, err := m.ledger.SetGlobalAccess(ctx, owner, viewer, granted)
	if err != nil {
		return Unchanged, fmt.Errorf("set global access to %t: %w", granted, err)
	}

	res := outcome(changed)

	m.log.Debug("global access updated",
		zap.Stringer("owner", owner), zap.Stringer("viewer", viewer),
		zap.Bool("granted", granted), zap.Stringer("outcome", res))

	return res, nil
}

// GrantFile allows the viewer to see the record currently placed at the
// given position. The grant stays with the record when positions shift and
// does not imply global access.
func (m *Matrix) GrantFile(ctx context.Context, owner Identity, position int, viewer Identity) (Outcome, error) {
	if err := checkGrant(owner, viewer); err != nil {
		return Unchanged, err
	}
	return m.setFile(ctx, owner, position, viewer, true)
}

// RevokeFile revokes access to the record at the given position.
func (m *Matrix) RevokeFile(ctx context.Context, owner Identity, position int, viewer Identity) (Outcome, error) {
	if err := checkIdentity(owner, viewer); err != nil {
		return Unchanged, err
	}
	return m.setFile(ctx, owner, position, viewer, false)
}

func (m *Matrix) setFile(ctx context.Context, owner Identity, position int, viewer Identity, granted bool) (Outcome, error) {
	if position < 0 {
		return Unchanged, ErrOutOfRange
	}

	changed, err := m.ledger.SetFileAccess(ctx, owner, position, viewer, granted)
	if err != nil {
		return Unchanged, fmt.Errorf("set access to record #%d to %t: %w", position, granted, err)
	}

	res := outcome(changed)

	m.log.Debug("file access updated",
		zap.Stringer("owner", owner), zap.Int("position", position),
		zap.Stringer("viewer", viewer), zap.Bool("granted", granted),
		zap.Stringer("outcome", res))

	return res, nil
}

// HasGlobalAccess checks whether the viewer can see the whole owner's
// catalog. Unknown pairs are not granted.
func (m *Matrix) HasGlobalAccess(ctx context.Context, owner, viewer Identity) (bool, error) {
	if err := checkIdentity(owner, viewer); err != nil {
		return false, err
	}

	ok, err := m.ledger.HasGlobalAccess(ctx, owner, viewer)
	if err != nil {
		return false, fmt.Errorf("check global access: %w", err)
	}

	return ok, nil
}

// HasFileAccess checks per-file access to the record at the given position.
// Global grants are not taken into account.
func (m *Matrix) HasFileAccess(ctx context.Context, owner Identity, position int, viewer Identity) (bool, error) {
	if err := checkIdentity(owner, viewer); err != nil {
		return false, err
	}
	if position < 0 {
		return false, ErrOutOfRange
	}

	ok, err := m.ledger.HasFileAccess(ctx, owner, position, viewer)
	if err != nil {
		return false, fmt.Errorf("check access to record #%d: %w", position, err)
	}

	return ok, nil
}

// CanView checks whether the viewer can see the record at the given position
// by any kind of grant. Owners always see their own records.
func (m *Matrix) CanView(ctx context.Context, owner Identity, position int, viewer Identity) (bool, error) {
	if owner.Equals(viewer) {
		return true, checkIdentity(owner)
	}

	ok, err := m.HasGlobalAccess(ctx, owner, viewer)
	if err != nil || ok {
		return ok, err
	}

	return m.HasFileAccess(ctx, owner, position, viewer)
}

// VisibleTo returns the owner's records the viewer can see, in catalog order.
// With a global grant every record is listed as AccessGlobal, otherwise only
// records shared one by one are listed as AccessFile. Viewer must differ from
// the owner.
func (m *Matrix) VisibleTo(ctx context.Context, owner, viewer Identity) ([]SharedFile, error) {
	if err := checkGrant(owner, viewer); err != nil {
		return nil, err
	}

	global, err := m.ledger.HasGlobalAccess(ctx, owner, viewer)
	if err != nil {
		return nil, fmt.Errorf("check global access: %w", err)
	}

	files, err := m.ledger.Files(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	res := make([]SharedFile, 0, len(files))

	if global {
		for i := range files {
			res = append(res, SharedFile{Owner: owner, File: files[i], Access: AccessGlobal})
		}
		return res, nil
	}

	for i := range files {
		ok, err := m.ledger.HasFileAccess(ctx, owner, files[i].Position, viewer)
		if err != nil {
			if errors.Is(err, ErrOutOfRange) {
				// catalog shrank after listing
				break
			}
			return nil, fmt.Errorf("check access to record #%d: %w", files[i].Position, err)
		}
		if ok {
			res = append(res, SharedFile{Owner: owner, File: files[i], Access: AccessFile})
		}
	}

	return res, nil
}

// ListGrantees returns every viewer ever granted global access with the
// current state of the grant.
func (m *Matrix) ListGrantees(ctx context.Context, owner Identity) ([]Grantee, error) {
	if err := checkIdentity(owner); err != nil {
		return nil, err
	}

	res, err := m.ledger.Grantees(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list grantees: %w", err)
	}

	return res, nil
}

// ListFileGrantees returns viewers with active access to the record at the
// given position.
func (m *Matrix) ListFileGrantees(ctx context.Context, owner Identity, position int) ([]Identity, error) {
	if err := checkIdentity(owner); err != nil {
		return nil, err
	}
	if position < 0 {
		return nil, ErrOutOfRange
	}

	res, err := m.ledger.FileGrantees(ctx, owner, position)
	if err != nil {
		return nil, fmt.Errorf("list grantees of record #%d: %w", position, err)
	}

	return res, nil
}

func checkGrant(owner, viewer Identity) error {
	if err := checkIdentity(owner, viewer); err != nil {
		return err
	}
	if owner.Equals(viewer) {
		return fmt.Errorf("%w: self-grant", ErrInvalidIdentity)
	}
	return nil
}
