/*
Package knowncache provides local sets of previously seen identities used by
fileshare.Discovery. Sets are bounded: the least recently seen identities are
evicted when the size limit is reached and entries expire after the TTL since
they were seen last.
*/
package knowncache

import (
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const (
	// DefaultSize is the default max number of remembered identities.
	DefaultSize = 1024
	// DefaultTTL is the default lifetime of a remembered identity.
	DefaultTTL = 30 * 24 * time.Hour
)

// Memory is an in-memory set of identities. It is safe for concurrent use.
type Memory struct {
	ttl     time.Duration
	now     func() time.Time
	lru     *expirable.LRU[util.Uint160, time.Time]
	version atomic.Uint64
}

// NewMemory returns empty set holding at most size identities for ttl each.
// Non-positive values are replaced with defaults.
func NewMemory(size int, ttl time.Duration) *Memory {
	return newMemory(size, ttl, nil)
}

func newMemory(size int, ttl time.Duration, onEvict func(util.Uint160)) *Memory {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	m := &Memory{ttl: ttl, now: time.Now}

	var cb expirable.EvictCallback[util.Uint160, time.Time]
	if onEvict != nil {
		cb = func(id util.Uint160, _ time.Time) {
			m.version.Add(1)
			onEvict(id)
		}
	} else {
		cb = func(util.Uint160, time.Time) { m.version.Add(1) }
	}

	m.lru = expirable.NewLRU[util.Uint160, time.Time](size, cb, ttl)

	return m
}

// Known returns non-expired identities from the least to the most recently
// seen one.
func (m *Memory) Known() ([]util.Uint160, error) {
	var (
		now  = m.now()
		keys = m.lru.Keys()
		res  = make([]util.Uint160, 0, len(keys))
	)

	for _, k := range keys {
		seen, ok := m.lru.Peek(k)
		if !ok || now.Sub(seen) > m.ttl {
			continue
		}
		res = append(res, k)
	}

	return res, nil
}

// Remember marks identities as seen now.
func (m *Memory) Remember(ids ...util.Uint160) error {
	m.remember(m.now(), ids)
	return nil
}

func (m *Memory) remember(at time.Time, ids []util.Uint160) {
	changed := false

	for _, id := range ids {
		if id.Equals(util.Uint160{}) {
			continue
		}
		if !m.lru.Contains(id) {
			changed = true
		}
		m.lru.Add(id, at)
	}

	if changed {
		m.version.Add(1)
	}
}

// Forget removes identities from the set.
func (m *Memory) Forget(ids ...util.Uint160) {
	for _, id := range ids {
		m.lru.Remove(id)
	}
}

// Len returns the number of stored identities including expired ones not yet
// collected.
func (m *Memory) Len() int {
	return m.lru.Len()
}

// Version returns the version of the set contents. It grows on every
// addition of a new identity and on every eviction.
func (m *Memory) Version() uint64 {
	return m.version.Load()
}
