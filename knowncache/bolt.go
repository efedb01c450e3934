package knowncache

import (
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketName = []byte("known")

// Bolt is Memory persisted in a BoltDB file. Every identity is stored with
// the time it was seen last, so the set survives restarts of the
// application with the same eviction rules.
//
// Evicted identities are deleted from the file on the next Remember or on
// Close.
type Bolt struct {
	*Memory

	db  *bbolt.DB
	log *zap.Logger

	// mu guards fields below and serializes file writes. It is never held
	// while calling Memory methods, the eviction callback runs under the LRU
	// lock and takes mu.
	mu      sync.Mutex
	closed  bool
	evicted []util.Uint160
}

// BoltPrm groups parameters of OpenBolt.
type BoltPrm struct {
	// Path to the database file, created if missing.
	Path string
	// Max number of identities, DefaultSize if not positive.
	Size int
	// Lifetime of identities, DefaultTTL if not positive.
	TTL time.Duration
	// NoSync disables fsync after every write.
	NoSync bool

	Logger *zap.Logger
}

// OpenBolt opens or creates the database and loads non-expired identities
// from it. Expired ones are deleted from the file.
func OpenBolt(prm BoltPrm) (*Bolt, error) {
	db, err := bbolt.Open(prm.Path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", prm.Path, err)
	}
	db.NoSync = prm.NoSync

	b := &Bolt{db: db, log: prm.Logger}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	b.Memory = newMemory(prm.Size, prm.TTL, b.onEvict)

	err = b.load()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return b, nil
}

type seenEntry struct {
	id   util.Uint160
	seen time.Time
}

func (b *Bolt) load() error {
	var (
		now     = b.now()
		entries []seenEntry
	)

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}

		var expired [][]byte

		err = bkt.ForEach(func(k, v []byte) error {
			id, err := util.Uint160DecodeBytesBE(k)
			if err != nil || len(v) != 8 {
				b.log.Warn("invalid entry in the known identities database, removing", zap.Binary("key", k))
				expired = append(expired, k)
				return nil
			}

			seen := time.Unix(0, int64(binary.BigEndian.Uint64(v)))
			if now.Sub(seen) > b.ttl {
				expired = append(expired, k)
				return nil
			}

			entries = append(entries, seenEntry{id: id, seen: seen})
			return nil
		})
		if err != nil {
			return err
		}

		for i := range expired {
			err = bkt.Delete(expired[i])
			if err != nil {
				return fmt.Errorf("delete expired entry: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("load known identities: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].seen.Before(entries[j].seen)
	})

	for i := range entries {
		b.Memory.remember(entries[i].seen, []util.Uint160{entries[i].id})
	}

	b.log.Debug("known identities loaded", zap.Int("count", len(entries)))

	return nil
}

// Remember marks identities as seen now and stores them in the file.
func (b *Bolt) Remember(ids ...util.Uint160) error {
	now := b.now()

	b.Memory.remember(now, ids)

	// identities may be evicted at once if there are more of them than the
	// size limit
	kept := make([]util.Uint160, 0, len(ids))
	for _, id := range ids {
		if !id.Equals(util.Uint160{}) && b.lru.Contains(id) {
			kept = append(kept, id)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return bbolt.ErrDatabaseNotOpen
	}

	return b.flush(now, kept)
}

// flush deletes evicted identities and stores the given ones. Must be called
// with mu held.
func (b *Bolt) flush(seen time.Time, ids []util.Uint160) error {
	if len(ids) == 0 && len(b.evicted) == 0 {
		return nil
	}

	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(seen.UnixNano()))

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)

		// deletions go first, an identity may be evicted and seen again
		for _, id := range b.evicted {
			err := bkt.Delete(id.BytesBE())
			if err != nil {
				return fmt.Errorf("delete evicted %s: %w", id.StringLE(), err)
			}
		}

		for _, id := range ids {
			err := bkt.Put(id.BytesBE(), v[:])
			if err != nil {
				return fmt.Errorf("store %s: %w", id.StringLE(), err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	b.evicted = b.evicted[:0]

	return nil
}

func (b *Bolt) onEvict(id util.Uint160) {
	b.mu.Lock()
	if !b.closed {
		b.evicted = append(b.evicted, id)
	}
	b.mu.Unlock()
}

// Close writes pending deletions and closes the database file. Identities
// expiring after Close are dropped from memory only, Remember fails with
// bbolt.ErrDatabaseNotOpen.
func (b *Bolt) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	err := b.flush(time.Time{}, nil)
	if err != nil {
		b.log.Warn("failed to delete evicted identities", zap.Int("count", len(b.evicted)), zap.Error(err))
	}

	return b.db.Close()
}
