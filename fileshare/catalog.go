package fileshare

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// Catalog provides access to per-owner ordered file catalogs.
type Catalog struct {
	ledger Ledger
	log    *zap.Logger
}

// NewCatalog constructs Catalog working over the given ledger. Nil logger
// disables logging.
func NewCatalog(ledger Ledger, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{ledger: ledger, log: log}
}

// Append adds a record to the end of the owner's catalog and returns its
// position. Pointer must not be empty.
func (c *Catalog) Append(ctx context.Context, owner Identity, pointer, name string) (int, error) {
	if err := checkIdentity(owner); err != nil {
		return 0, err
	}
	if pointer == "" {
		return 0, ErrEmptyPointer
	}

	pos, err := c.ledger.AddFile(ctx, owner, pointer, name)
	if err != nil {
		return 0, fmt.Errorf("append record: %w", err)
	}

	c.log.Debug("record appended",
		zap.Stringer("owner", owner), zap.Int("position", pos))

	return pos, nil
}

// Remove deletes the record at the given position. Later records shift down.
func (c *Catalog) Remove(ctx context.Context, owner Identity, position int) error {
	if err := checkIdentity(owner); err != nil {
		return err
	}
	if position < 0 {
		return ErrOutOfRange
	}

	err := c.ledger.RemoveFile(ctx, owner, position)
	if err != nil {
		return fmt.Errorf("remove record #%d: %w", position, err)
	}

	c.log.Debug("record removed",
		zap.Stringer("owner", owner), zap.Int("position", position))

	return nil
}

// RemoveMany deletes records at the given positions, interpreted against the
// catalog state before the call. All valid positions are removed atomically
// in one ledger transaction, invalid ones are returned in ascending order and
// do not abort the call. Duplicates are ignored.
func (c *Catalog) RemoveMany(ctx context.Context, owner Identity, positions []int) ([]int, error) {
	if err := checkIdentity(owner); err != nil {
		return nil, err
	}

	var (
		seen    = make(map[int]struct{}, len(positions))
		valid   []int
		invalid []int
	)

	for _, p := range positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		if p < 0 {
			invalid = append(invalid, p)
		} else {
			valid = append(valid, p)
		}
	}

	if len(valid) != 0 {
		sort.Sort(sort.Reverse(sort.IntSlice(valid)))

		rejected, err := c.ledger.RemoveFiles(ctx, owner, valid)
		if err != nil {
			return nil, fmt.Errorf("remove %d records: %w", len(valid), err)
		}

		invalid = append(invalid, rejected...)

		c.log.Debug("records removed", zap.Stringer("owner", owner),
			zap.Int("requested", len(valid)), zap.Int("rejected", len(rejected)))
	}

	sort.Ints(invalid)

	return invalid, nil
}

// List returns all records of the owner's catalog in order. Catalogs are
// public, anyone can list them.
func (c *Catalog) List(ctx context.Context, owner Identity) ([]FileRecord, error) {
	if err := checkIdentity(owner); err != nil {
		return nil, err
	}

	files, err := c.ledger.Files(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	return files, nil
}

// Count returns the number of records in the owner's catalog.
func (c *Catalog) Count(ctx context.Context, owner Identity) (int, error) {
	if err := checkIdentity(owner); err != nil {
		return 0, err
	}

	n, err := c.ledger.FileCount(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}

	return n, nil
}

// Get returns the record at the given position.
func (c *Catalog) Get(ctx context.Context, owner Identity, position int) (FileRecord, error) {
	if err := checkIdentity(owner); err != nil {
		return FileRecord{}, err
	}
	if position < 0 {
		return FileRecord{}, ErrOutOfRange
	}

	f, err := c.ledger.File(ctx, owner, position)
	if err != nil {
		return FileRecord{}, fmt.Errorf("get record #%d: %w", position, err)
	}

	return f, nil
}

// Resolve returns the record referenced by r.
func (c *Catalog) Resolve(ctx context.Context, r RecordRef) (FileRecord, error) {
	files, err := c.List(ctx, r.Owner)
	if err != nil {
		return FileRecord{}, err
	}

	pos, ok := r.Locate(files)
	if !ok {
		return FileRecord{}, fmt.Errorf("record %s: %w", r, ErrOutOfRange)
	}

	return files[pos], nil
}

func checkIdentity(ids ...Identity) error {
	for i := range ids {
		if ids[i].Equals(Identity{}) {
			return ErrInvalidIdentity
		}
	}
	return nil
}
