/*
Package memledger provides in-process fileshare.Ledger with the same semantics
as the FileStore contract: stable record IDs, grants bound to IDs, revoked
grants kept for enumeration and the reverse grant index.

It is meant for tests and local demos. Every Ledger shares the state with the
ones derived from it by As, which emulates different signers of one chain.
*/
package memledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/safechain/fileshare"
)

// DefaultActivityLimit is the default length of the activity log.
const DefaultActivityLimit = 100

type record struct {
	id      uint64
	pointer string
	name    string
}

type catalog struct {
	lastID  uint64
	records []record
}

type fileRef struct {
	owner util.Uint160
	id    uint64
}

type activity struct {
	actor  util.Uint160
	viewer util.Uint160
}

type state struct {
	mtx sync.RWMutex

	catalogs   map[util.Uint160]*catalog
	global     map[util.Uint160][]fileshare.Grantee
	fileGrants map[fileRef][]fileshare.Grantee
	sharers    map[util.Uint160][]util.Uint160

	log      []activity
	logLimit int

	fail func(method string) error
}

// Ledger is an in-memory fileshare.Ledger bound to one caller identity. It
// also implements fileshare.SharerIndex and fileshare.ActivitySource.
type Ledger struct {
	st     *state
	caller util.Uint160
}

// Option configures Ledger.
type Option func(*state)

// WithActivityLimit sets the number of last write operations remembered for
// RecentActors.
func WithActivityLimit(n int) Option {
	return func(s *state) { s.logLimit = n }
}

// WithFailures makes every call fail with the error returned by f for its
// method name, if any. Method names match fileshare.Ledger ones.
func WithFailures(f func(method string) error) Option {
	return func(s *state) { s.fail = f }
}

// New returns new empty ledger without caller. Use As to get a ledger able to
// write.
func New(opts ...Option) *Ledger {
	s := &state{
		catalogs:   make(map[util.Uint160]*catalog),
		global:     make(map[util.Uint160][]fileshare.Grantee),
		fileGrants: make(map[fileRef][]fileshare.Grantee),
		sharers:    make(map[util.Uint160][]util.Uint160),
		logLimit:   DefaultActivityLimit,
	}
	for _, o := range opts {
		o(s)
	}
	return &Ledger{st: s}
}

// As returns ledger sharing the state with l and signing writes as caller.
func (l *Ledger) As(caller util.Uint160) *Ledger {
	return &Ledger{st: l.st, caller: caller}
}

// Caller returns identity the ledger signs writes with.
func (l *Ledger) Caller() util.Uint160 {
	return l.caller
}

// WithoutIndex returns l without the reverse grant index: the result does not
// implement fileshare.SharerIndex.
func (l *Ledger) WithoutIndex() fileshare.Ledger {
	return struct{ fileshare.Ledger }{l}
}

// SharersOf implements fileshare.SharerIndex.
func (l *Ledger) SharersOf(ctx context.Context, viewer util.Uint160) ([]util.Uint160, error) {
	if err := l.enter(ctx, "SharersOf"); err != nil {
		return nil, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	return append([]util.Uint160{}, l.st.sharers[viewer]...), nil
}

func (l *Ledger) enter(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", fileshare.ErrLedgerUnavailable, err)
	}
	if l.st.fail != nil {
		if err := l.st.fail(method); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) authorize(owner util.Uint160) error {
	if owner.Equals(util.Uint160{}) {
		return fileshare.ErrInvalidIdentity
	}
	if !owner.Equals(l.caller) {
		return fmt.Errorf("%w: signer %s is not the owner %s",
			fileshare.ErrUnauthorized, l.caller.StringLE(), owner.StringLE())
	}
	return nil
}

// record has to be called under the write lock.
func (l *Ledger) record(viewer util.Uint160) {
	if l.st.logLimit <= 0 {
		return
	}
	l.st.log = append(l.st.log, activity{actor: l.caller, viewer: viewer})
	if over := len(l.st.log) - l.st.logLimit; over > 0 {
		l.st.log = append(l.st.log[:0:0], l.st.log[over:]...)
	}
}

func (l *Ledger) catalogOf(owner util.Uint160) *catalog {
	c, ok := l.st.catalogs[owner]
	if !ok {
		c = new(catalog)
		l.st.catalogs[owner] = c
	}
	return c
}

func (c *catalog) at(position int) (record, error) {
	if c == nil || position < 0 || position >= len(c.records) {
		return record{}, fileshare.ErrOutOfRange
	}
	return c.records[position], nil
}

// AddFile implements fileshare.Ledger.
func (l *Ledger) AddFile(ctx context.Context, owner util.Uint160, pointer, name string) (int, error) {
	if err := l.enter(ctx, "AddFile"); err != nil {
		return 0, err
	}
	if err := l.authorize(owner); err != nil {
		return 0, err
	}
	if pointer == "" {
		return 0, fileshare.ErrEmptyPointer
	}

	l.st.mtx.Lock()
	defer l.st.mtx.Unlock()

	c := l.catalogOf(owner)
	c.lastID++
	c.records = append(c.records, record{id: c.lastID, pointer: pointer, name: name})
	l.record(util.Uint160{})

	return len(c.records) - 1, nil
}

// RemoveFile implements fileshare.Ledger.
func (l *Ledger) RemoveFile(ctx context.Context, owner util.Uint160, position int) error {
	if err := l.enter(ctx, "RemoveFile"); err != nil {
		return err
	}
	if err := l.authorize(owner); err != nil {
		return err
	}

	l.st.mtx.Lock()
	defer l.st.mtx.Unlock()

	c := l.st.catalogs[owner]
	if _, err := c.at(position); err != nil {
		return err
	}

	l.drop(owner, c, map[int]struct{}{position: {}})
	l.record(util.Uint160{})

	return nil
}

// RemoveFiles implements fileshare.Ledger.
func (l *Ledger) RemoveFiles(ctx context.Context, owner util.Uint160, positions []int) ([]int, error) {
	if err := l.enter(ctx, "RemoveFiles"); err != nil {
		return nil, err
	}
	if err := l.authorize(owner); err != nil {
		return nil, err
	}

	l.st.mtx.Lock()
	defer l.st.mtx.Unlock()

	var (
		c       = l.st.catalogs[owner]
		drop    = make(map[int]struct{}, len(positions))
		invalid = []int{}
	)

	for _, p := range positions {
		if _, err := c.at(p); err != nil {
			invalid = append(invalid, p)
			continue
		}
		drop[p] = struct{}{}
	}

	if len(drop) != 0 {
		l.drop(owner, c, drop)
		l.record(util.Uint160{})
	}

	return invalid, nil
}

// drop removes records at the given positions and their per-file grants,
// has to be called under the write lock.
func (l *Ledger) drop(owner util.Uint160, c *catalog, positions map[int]struct{}) {
	left := make([]record, 0, len(c.records))
	for i := range c.records {
		if _, ok := positions[i]; ok {
			delete(l.st.fileGrants, fileRef{owner: owner, id: c.records[i].id})
			continue
		}
		left = append(left, c.records[i])
	}
	c.records = left
}

// Files implements fileshare.Ledger.
func (l *Ledger) Files(ctx context.Context, owner util.Uint160) ([]fileshare.FileRecord, error) {
	if err := l.enter(ctx, "Files"); err != nil {
		return nil, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	res := []fileshare.FileRecord{}
	if c := l.st.catalogs[owner]; c != nil {
		for i := range c.records {
			res = append(res, c.records[i].toFileRecord(i))
		}
	}

	return res, nil
}

// FileCount implements fileshare.Ledger.
func (l *Ledger) FileCount(ctx context.Context, owner util.Uint160) (int, error) {
	if err := l.enter(ctx, "FileCount"); err != nil {
		return 0, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	if c := l.st.catalogs[owner]; c != nil {
		return len(c.records), nil
	}
	return 0, nil
}

// File implements fileshare.Ledger.
func (l *Ledger) File(ctx context.Context, owner util.Uint160, position int) (fileshare.FileRecord, error) {
	if err := l.enter(ctx, "File"); err != nil {
		return fileshare.FileRecord{}, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	r, err := l.st.catalogs[owner].at(position)
	if err != nil {
		return fileshare.FileRecord{}, err
	}

	return r.toFileRecord(position), nil
}

func (r record) toFileRecord(position int) fileshare.FileRecord {
	return fileshare.FileRecord{
		ID:       r.id,
		Position: position,
		Pointer:  r.pointer,
		Name:     r.name,
	}
}

// SetGlobalAccess implements fileshare.Ledger.
func (l *Ledger) SetGlobalAccess(ctx context.Context, owner, viewer util.Uint160, granted bool) (bool, error) {
	if err := l.enter(ctx, "SetGlobalAccess"); err != nil {
		return false, err
	}
	if err := l.checkParties(owner, viewer, granted); err != nil {
		return false, err
	}

	l.st.mtx.Lock()
	defer l.st.mtx.Unlock()

	list, changed := setFlag(l.st.global[owner], viewer, granted)
	if !changed {
		return false, nil
	}

	l.st.global[owner] = list
	l.grantRecorded(owner, viewer, granted)

	return true, nil
}

// SetFileAccess implements fileshare.Ledger.
func (l *Ledger) SetFileAccess(ctx context.Context, owner util.Uint160, position int, viewer util.Uint160, granted bool) (bool, error) {
	if err := l.enter(ctx, "SetFileAccess"); err != nil {
		return false, err
	}
	if err := l.checkParties(owner, viewer, granted); err != nil {
		return false, err
	}

	l.st.mtx.Lock()
	defer l.st.mtx.Unlock()

	r, err := l.st.catalogs[owner].at(position)
	if err != nil {
		return false, err
	}

	ref := fileRef{owner: owner, id: r.id}

	list, changed := setFlag(l.st.fileGrants[ref], viewer, granted)
	if !changed {
		return false, nil
	}

	l.st.fileGrants[ref] = list
	l.grantRecorded(owner, viewer, granted)

	return true, nil
}

func (l *Ledger) checkParties(owner, viewer util.Uint160, granted bool) error {
	if err := l.authorize(owner); err != nil {
		return err
	}
	if viewer.Equals(util.Uint160{}) || (granted && viewer.Equals(owner)) {
		return fileshare.ErrInvalidIdentity
	}
	return nil
}

// grantRecorded updates the reverse index and the activity log, has to be
// called under the write lock.
func (l *Ledger) grantRecorded(owner, viewer util.Uint160, granted bool) {
	if !granted {
		l.record(util.Uint160{})
		return
	}

	l.record(viewer)

	for _, o := range l.st.sharers[viewer] {
		if o.Equals(owner) {
			return
		}
	}
	l.st.sharers[viewer] = append(l.st.sharers[viewer], owner)
}

// setFlag returns updated list and reports whether the flag changed. Revoking
// a never granted access leaves no trace.
func setFlag(list []fileshare.Grantee, viewer util.Uint160, granted bool) ([]fileshare.Grantee, bool) {
	for i := range list {
		if list[i].Viewer.Equals(viewer) {
			if list[i].Granted == granted {
				return list, false
			}
			list[i].Granted = granted
			return list, true
		}
	}

	if !granted {
		return list, false
	}

	return append(list, fileshare.Grantee{Viewer: viewer, Granted: true}), true
}

func getFlag(list []fileshare.Grantee, viewer util.Uint160) bool {
	for i := range list {
		if list[i].Viewer.Equals(viewer) {
			return list[i].Granted
		}
	}
	return false
}

// HasGlobalAccess implements fileshare.Ledger.
func (l *Ledger) HasGlobalAccess(ctx context.Context, owner, viewer util.Uint160) (bool, error) {
	if err := l.enter(ctx, "HasGlobalAccess"); err != nil {
		return false, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	return getFlag(l.st.global[owner], viewer), nil
}

// HasFileAccess implements fileshare.Ledger.
func (l *Ledger) HasFileAccess(ctx context.Context, owner util.Uint160, position int, viewer util.Uint160) (bool, error) {
	if err := l.enter(ctx, "HasFileAccess"); err != nil {
		return false, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	r, err := l.st.catalogs[owner].at(position)
	if err != nil {
		return false, err
	}

	return getFlag(l.st.fileGrants[fileRef{owner: owner, id: r.id}], viewer), nil
}

// Grantees implements fileshare.Ledger.
func (l *Ledger) Grantees(ctx context.Context, owner util.Uint160) ([]fileshare.Grantee, error) {
	if err := l.enter(ctx, "Grantees"); err != nil {
		return nil, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	return append([]fileshare.Grantee{}, l.st.global[owner]...), nil
}

// FileGrantees implements fileshare.Ledger.
func (l *Ledger) FileGrantees(ctx context.Context, owner util.Uint160, position int) ([]util.Uint160, error) {
	if err := l.enter(ctx, "FileGrantees"); err != nil {
		return nil, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	r, err := l.st.catalogs[owner].at(position)
	if err != nil {
		return nil, err
	}

	res := []util.Uint160{}
	for _, g := range l.st.fileGrants[fileRef{owner: owner, id: r.id}] {
		if g.Granted {
			res = append(res, g.Viewer)
		}
	}

	return res, nil
}

// RecentActors implements fileshare.ActivitySource. Like transaction senders
// on a real chain, every recent writer is reported regardless of the viewer,
// grant counterparts of the viewer go first.
func (l *Ledger) RecentActors(ctx context.Context, viewer util.Uint160) ([]util.Uint160, error) {
	if err := l.enter(ctx, "RecentActors"); err != nil {
		return nil, err
	}

	l.st.mtx.RLock()
	defer l.st.mtx.RUnlock()

	var granters, others []util.Uint160

	for i := len(l.st.log) - 1; i >= 0; i-- {
		a := l.st.log[i]
		if a.viewer.Equals(viewer) {
			granters = append(granters, a.actor)
		} else {
			others = append(others, a.actor)
		}
	}

	return append(granters, others...), nil
}
